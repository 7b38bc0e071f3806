package cmd

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/calder/vestige/internal/catalog"
)

// writeNoisePNG writes a PNG whose pixel data does not compress, so the
// file stays above the recovery size floor.
func writeNoisePNG(t *testing.T, path string) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 24, 24))
	v := uint32(0x2545F491)
	for i := range img.Pix {
		v ^= v << 13
		v ^= v >> 17
		v ^= v << 5
		img.Pix[i] = uint8(v)
	}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create png: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
}

func TestRecoveryRunCommand(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source")
	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatal(err)
	}
	writeNoisePNG(t, filepath.Join(src, "photo.dat"))
	filler := strings.Repeat("plain text with no magic bytes ", 8)
	if err := os.WriteFile(filepath.Join(src, "readme.txt"), []byte(filler), 0644); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "recovered")
	db := filepath.Join(dir, "catalog.db")
	mdPath := filepath.Join(dir, "run.md")
	htmlPath := filepath.Join(dir, "run.html")

	output, err := executeCommand(t, "recovery", "run", src,
		"-o", out, "--db-path", db, "--report", mdPath, "--report-html", htmlPath)
	if err != nil {
		t.Fatalf("recovery run failed: %v\n%s", err, output)
	}

	for _, want := range []string{"=== Recovery Summary ===", "Run ID:", "Identified"} {
		if !strings.Contains(output, want) {
			t.Errorf("Output should contain %q, got: %s", want, output)
		}
	}

	// The run landed in the catalog
	store, err := catalog.Open(db)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	defer store.Close()

	runs, err := store.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Expected 1 cataloged run, got %d", len(runs))
	}
	run := runs[0]
	if run.FilesScanned != 2 {
		t.Errorf("FilesScanned = %d, want 2", run.FilesScanned)
	}
	if run.FilesIdentified != 1 {
		t.Errorf("FilesIdentified = %d, want 1", run.FilesIdentified)
	}

	files, err := store.RunFiles(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("run files: %v", err)
	}
	if len(files) != 1 || files[0].Type != "png" || !files[0].Complete {
		t.Errorf("Expected one complete png file record, got %+v", files)
	}

	// Reports were written
	md, err := os.ReadFile(mdPath)
	if err != nil {
		t.Fatalf("markdown report should exist: %v", err)
	}
	if !strings.Contains(string(md), "# Recovery Report") {
		t.Errorf("Markdown report should have the report header")
	}
	html, err := os.ReadFile(htmlPath)
	if err != nil {
		t.Fatalf("HTML report should exist: %v", err)
	}
	if !strings.HasPrefix(string(html), "<!DOCTYPE html>") {
		t.Errorf("HTML report should be a standalone page")
	}
}

func TestRecoveryRunNoCatalog(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source")
	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatal(err)
	}
	writeNoisePNG(t, filepath.Join(src, "photo.dat"))

	db := filepath.Join(dir, "catalog.db")
	_, err := executeCommand(t, "recovery", "run", src,
		"-o", filepath.Join(dir, "recovered"), "--db-path", db, "--no-catalog")
	if err != nil {
		t.Fatalf("recovery run failed: %v", err)
	}

	if _, err := os.Stat(db); !os.IsNotExist(err) {
		t.Errorf("--no-catalog should not create the catalog database")
	}
}

func TestRecoveryRunAuditLog(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source")
	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatal(err)
	}
	writeNoisePNG(t, filepath.Join(src, "photo.dat"))

	logDir := filepath.Join(dir, "logs")
	_, err := executeCommand(t, "recovery", "run", src,
		"-o", filepath.Join(dir, "recovered"), "--no-catalog", "--audit-log", logDir)
	if err != nil {
		t.Fatalf("recovery run failed: %v", err)
	}

	logged, err := os.ReadFile(filepath.Join(logDir, "latest.log"))
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	if !strings.Contains(string(logged), "=== Vestige Run Log ===") {
		t.Errorf("audit log missing header:\n%s", logged)
	}
	if !strings.Contains(string(logged), "scanning") {
		t.Errorf("audit log missing scan messages:\n%s", logged)
	}
}

func TestRecoveryRunRejectsUnknownType(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source")
	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatal(err)
	}

	_, err := executeCommand(t, "recovery", "run", src,
		"-o", filepath.Join(dir, "recovered"), "--no-catalog", "--types", "wav")
	if err == nil {
		t.Fatal("Expected an unknown type to be rejected")
	}
	if !strings.Contains(err.Error(), "unknown file type") {
		t.Errorf("Error should name the unknown type, got: %v", err)
	}
}

func TestRecoveryHistoryCommands(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "catalog.db")

	// Seed the catalog directly
	store, err := catalog.Open(db)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	run := &catalog.Run{
		ID:              "11111111-2222-3333-4444-555555555555",
		StartedAt:       time.Now().UTC(),
		Source:          "/evidence/usb",
		OutputDir:       "/evidence/recovered",
		FilesScanned:    9,
		FilesIdentified: 4,
		Truncated:       1,
		BytesRecovered:  4096,
		DurationSecs:    2,
	}
	if err := store.RecordRun(context.Background(), run); err != nil {
		t.Fatalf("record run: %v", err)
	}
	files := []catalog.File{
		{Type: "png", SourcePath: "/evidence/usb/a", OutputPath: "/evidence/recovered/png/png_1.png", SizeBytes: 2048, Complete: true},
		{Type: "pdf", SourcePath: "/evidence/usb/b", OutputPath: "/evidence/recovered/pdf/pdf_1.pdf", SizeBytes: 2048, Complete: false},
	}
	if err := store.RecordFiles(context.Background(), run.ID, files); err != nil {
		t.Fatalf("record files: %v", err)
	}
	store.Close()

	output, err := executeCommand(t, "recovery", "history", "--db-path", db)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	for _, want := range []string{run.ID, "/evidence/usb", "Identified 4 of 9 scanned", "(1 truncated)"} {
		if !strings.Contains(output, want) {
			t.Errorf("History output should contain %q, got: %s", want, output)
		}
	}

	output, err = executeCommand(t, "recovery", "history", "--db-path", db, "--run", run.ID)
	if err != nil {
		t.Fatalf("history --run failed: %v", err)
	}
	for _, want := range []string{"[png]", "png_1.png", "[pdf]", "truncated"} {
		if !strings.Contains(output, want) {
			t.Errorf("Run file listing should contain %q, got: %s", want, output)
		}
	}
}

func TestRecoveryHistoryEmpty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "missing.db")

	output, err := executeCommand(t, "recovery", "history", "--db-path", db)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(output, "No recovery runs recorded.") {
		t.Errorf("Expected the empty-catalog message, got: %s", output)
	}
}
