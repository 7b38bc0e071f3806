// Package report renders recovery run summaries as markdown and as
// standalone HTML pages.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/calder/vestige/internal/filelock"
	"github.com/calder/vestige/internal/fileutil"
	"github.com/calder/vestige/internal/logger"
	"github.com/calder/vestige/internal/recovery"
)

const htmlShell = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: sans-serif; max-width: 72rem; margin: 2rem auto; padding: 0 1rem; color: #222; }
table { border-collapse: collapse; margin: 1rem 0; }
th, td { border: 1px solid #ccc; padding: 0.3rem 0.8rem; text-align: left; }
th { background: #f2f2f2; }
code { background: #f6f6f6; padding: 0.1rem 0.3rem; }
</style>
</head>
<body>
%s</body>
</html>
`

// Build renders a recovery summary as a markdown report.
func Build(s *recovery.Summary) string {
	var sb strings.Builder

	sb.WriteString("# Recovery Report\n\n")
	fmt.Fprintf(&sb, "- **Run ID:** %s\n", s.RunID)
	fmt.Fprintf(&sb, "- **Source:** `%s`\n", s.Source)
	fmt.Fprintf(&sb, "- **Output:** `%s`\n", s.OutputDir)
	fmt.Fprintf(&sb, "- **Started:** %s\n", s.StartedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "- **Duration:** %s\n", logger.FormatDuration(s.Duration))
	if s.TimedOut {
		sb.WriteString("- **Timed out:** the run hit its time limit before scanning everything\n")
	}

	sb.WriteString("\n## Totals\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("| --- | ---: |\n")
	fmt.Fprintf(&sb, "| Files scanned | %d |\n", s.Scanned)
	fmt.Fprintf(&sb, "| Files identified | %d |\n", s.Identified)
	fmt.Fprintf(&sb, "| Truncated | %d |\n", s.Truncated)
	fmt.Fprintf(&sb, "| False positives | %d |\n", s.FalsePositives)
	fmt.Fprintf(&sb, "| Skipped oversize | %d |\n", s.SkippedOversize)
	fmt.Fprintf(&sb, "| Bytes recovered | %s |\n", fileutil.FormatBytes(s.BytesRecovered))

	sb.WriteString("\n## By type\n\n")
	if s.Identified == 0 {
		sb.WriteString("No recoverable files were identified.\n")
	} else {
		sb.WriteString("| Type | Identified | Truncated | Bytes |\n")
		sb.WriteString("| --- | ---: | ---: | ---: |\n")
		for _, name := range s.SortedTypes() {
			stats := s.ByType[name]
			fmt.Fprintf(&sb, "| %s | %d | %d | %s |\n",
				name, stats.Identified, stats.Truncated, fileutil.FormatBytes(stats.Bytes))
		}
	}

	if s.Truncated > 0 {
		sb.WriteString("\n## Truncated files\n\n")
		sb.WriteString("These were recovered without their end-of-file trailer and may be incomplete:\n\n")
		for _, f := range s.Files {
			if !f.Truncated {
				continue
			}
			fmt.Fprintf(&sb, "- `%s` (from `%s`)\n", f.RecoveredPath, f.SourcePath)
		}
	}

	if len(s.Errors) > 0 {
		sb.WriteString("\n## Scan errors\n\n")
		for _, e := range s.Errors {
			fmt.Fprintf(&sb, "- %s\n", e)
		}
	}

	return sb.String()
}

// RenderHTML converts a markdown report into a standalone HTML page.
func RenderHTML(markdown string) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	return []byte(fmt.Sprintf(htmlShell, "Recovery Report", body.String())), nil
}

// WriteMarkdown builds the markdown report and writes it atomically.
func WriteMarkdown(s *recovery.Summary, path string) error {
	if err := filelock.AtomicWrite(path, []byte(Build(s))); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// WriteHTML builds the report, renders it to HTML, and writes it atomically.
func WriteHTML(s *recovery.Summary, path string) error {
	page, err := RenderHTML(Build(s))
	if err != nil {
		return err
	}
	if err := filelock.AtomicWrite(path, page); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
