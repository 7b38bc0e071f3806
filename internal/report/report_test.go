package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder/vestige/internal/recovery"
)

func sampleSummary() *recovery.Summary {
	return &recovery.Summary{
		RunID:          "f81d4fae-7dec-11d0-a765-00a0c91e6bf6",
		Source:         "/cases/0042/usb-stick",
		OutputDir:      "/cases/0042/recovered",
		StartedAt:      time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Duration:       3 * time.Second,
		Scanned:        120,
		Identified:     3,
		Truncated:      1,
		FalsePositives: 2,
		BytesRecovered: 1536,
		ByType: map[string]*recovery.TypeStats{
			"png": {Identified: 2, Truncated: 1, Bytes: 1024},
			"pdf": {Identified: 1, Bytes: 512},
		},
		Files: []recovery.RecoveredFile{
			{SourcePath: "/src/a.bin", RecoveredPath: "/out/png/png_1.png", Type: "png", SizeBytes: 512},
			{SourcePath: "/src/cut.bin", RecoveredPath: "/out/png/png_2.png", Type: "png", SizeBytes: 512, Truncated: true},
			{SourcePath: "/src/doc.bak", RecoveredPath: "/out/pdf/pdf_1.pdf", Type: "pdf", SizeBytes: 512},
		},
	}
}

func TestBuild(t *testing.T) {
	md := Build(sampleSummary())

	assert.Contains(t, md, "# Recovery Report")
	assert.Contains(t, md, "f81d4fae-7dec-11d0-a765-00a0c91e6bf6")
	assert.Contains(t, md, "`/cases/0042/usb-stick`")
	assert.Contains(t, md, "2026-03-14 09:26:53 UTC")
	assert.Contains(t, md, "| Files scanned | 120 |")
	assert.Contains(t, md, "| Files identified | 3 |")
	assert.Contains(t, md, "| False positives | 2 |")
	assert.Contains(t, md, "| Bytes recovered | 1.5 KB |")

	// Types come out alphabetically
	pdfRow := "| pdf | 1 | 0 | 512 B |"
	pngRow := "| png | 2 | 1 | 1.0 KB |"
	assert.Contains(t, md, pdfRow)
	assert.Contains(t, md, pngRow)
	assert.Less(t, strings.Index(md, pdfRow), strings.Index(md, pngRow))

	// Only the truncated file shows up in the truncated section
	assert.Contains(t, md, "## Truncated files")
	assert.Contains(t, md, "- `/out/png/png_2.png` (from `/src/cut.bin`)")
	assert.NotContains(t, md, "- `/out/png/png_1.png`")

	assert.NotContains(t, md, "Timed out")
	assert.NotContains(t, md, "## Scan errors")
}

func TestBuildTimedOutAndErrors(t *testing.T) {
	s := sampleSummary()
	s.TimedOut = true
	s.Errors = []string{"walk /cases/0042/usb-stick/locked: permission denied"}

	md := Build(s)

	assert.Contains(t, md, "**Timed out:**")
	assert.Contains(t, md, "## Scan errors")
	assert.Contains(t, md, "permission denied")
}

func TestBuildNothingIdentified(t *testing.T) {
	s := &recovery.Summary{
		RunID:     "empty-run",
		Source:    "/src",
		OutputDir: "/out",
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Scanned:   4,
	}

	md := Build(s)

	assert.Contains(t, md, "No recoverable files were identified.")
	assert.NotContains(t, md, "| Type |")
	assert.NotContains(t, md, "## Truncated files")
}

func TestRenderHTML(t *testing.T) {
	page, err := RenderHTML(Build(sampleSummary()))
	require.NoError(t, err)

	html := string(page)
	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<title>Recovery Report</title>")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "Files scanned")
	assert.Contains(t, html, "</html>")
}

func TestWriteMarkdownAndHTML(t *testing.T) {
	dir := t.TempDir()
	s := sampleSummary()

	mdPath := filepath.Join(dir, "report.md")
	require.NoError(t, WriteMarkdown(s, mdPath))

	data, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Equal(t, Build(s), string(data))

	htmlPath := filepath.Join(dir, "report.html")
	require.NoError(t, WriteHTML(s, htmlPath))

	page, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(page), "<!DOCTYPE html>"))
	assert.Contains(t, string(page), "png_2.png")
}
