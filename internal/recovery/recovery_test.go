package recovery

import (
	"archive/zip"
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/calder/vestige/internal/filelock"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	// Noise compresses poorly, keeping the file comfortably above the
	// scanner's minimum size even after truncation.
	v := uint32(2463534242)
	for i := range img.Pix {
		v ^= v << 13
		v ^= v >> 17
		v ^= v << 5
		img.Pix[i] = uint8(v)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func zipBytes(t *testing.T, names ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range names {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(bytes.Repeat([]byte("content "), 16)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func pdfBytes(withEOF bool) []byte {
	data := []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")
	data = append(data, bytes.Repeat([]byte("stream data "), 24)...)
	if withEOF {
		data = append(data, []byte("\n%%EOF\n")...)
	}
	return data
}

// buildSourceTree lays out a directory of files with misleading names, the
// way an undelete dump looks.
func buildSourceTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	intactPNG := pngBytes(t)
	truncatedPNG := intactPNG[:len(intactPNG)-20]

	writeFile(t, filepath.Join(dir, "file_0001"), intactPNG)
	writeFile(t, filepath.Join(dir, "nested", "file_0002.dat"), truncatedPNG)
	writeFile(t, filepath.Join(dir, "file_0003.bak"), pdfBytes(true))
	writeFile(t, filepath.Join(dir, "file_0004"), pdfBytes(false))
	// Signature without the obj marker: a false positive.
	writeFile(t, filepath.Join(dir, "file_0005"), append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte{0xCC}, 200)...))
	writeFile(t, filepath.Join(dir, "file_0006"), zipBytes(t, "[Content_Types].xml", "word/document.xml"))
	writeFile(t, filepath.Join(dir, "file_0007"), zipBytes(t, "a.txt", "b.txt"))
	writeFile(t, filepath.Join(dir, "file_0008"), append([]byte("SQLite format 3\x00"), bytes.Repeat([]byte{0x00}, 200)...))
	writeFile(t, filepath.Join(dir, "readme"), bytes.Repeat([]byte("plain text notes. "), 10))
	// Below the plausibility floor, never scanned.
	writeFile(t, filepath.Join(dir, "stub.png"), pngBytes(t)[:60])

	return dir
}

func TestRun(t *testing.T) {
	src := buildSourceTree(t)
	out := filepath.Join(t.TempDir(), "recovered")

	summary, err := Run(context.Background(), Options{Source: src, OutputDir: out})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Scanned != 9 {
		t.Errorf("Scanned = %d, want 9", summary.Scanned)
	}
	if summary.Identified != 7 {
		t.Errorf("Identified = %d, want 7", summary.Identified)
	}
	if summary.Truncated != 2 {
		t.Errorf("Truncated = %d, want 2", summary.Truncated)
	}
	if summary.FalsePositives != 1 {
		t.Errorf("FalsePositives = %d, want 1", summary.FalsePositives)
	}
	if len(summary.Errors) != 0 {
		t.Errorf("Errors = %v, want none", summary.Errors)
	}
	if summary.TimedOut {
		t.Error("TimedOut = true, want false")
	}
	if uuid.Validate(summary.RunID) != nil {
		t.Errorf("RunID %q is not a UUID", summary.RunID)
	}

	wantByType := map[string]int{"png": 2, "pdf": 2, "docx": 1, "zip": 1}
	for fileType, want := range wantByType {
		stats := summary.ByType[fileType]
		if stats == nil || stats.Identified != want {
			t.Errorf("ByType[%s] = %+v, want Identified %d", fileType, stats, want)
		}
	}
	if summary.ByType["png"].Truncated != 1 {
		t.Errorf("png truncated = %d, want 1", summary.ByType["png"].Truncated)
	}
	if summary.ByType["pdf"].Truncated != 1 {
		t.Errorf("pdf truncated = %d, want 1", summary.ByType["pdf"].Truncated)
	}

	if summary.ByType["sqlite"] == nil || summary.ByType["sqlite"].Identified != 1 {
		t.Fatal("sqlite file not identified")
	}

	for _, f := range summary.Files {
		info, err := os.Stat(f.RecoveredPath)
		if err != nil {
			t.Errorf("recovered file missing: %v", err)
			continue
		}
		if info.Size() != f.SizeBytes {
			t.Errorf("%s size = %d, recorded %d", f.RecoveredPath, info.Size(), f.SizeBytes)
		}

		base := filepath.Base(f.RecoveredPath)
		prefix := f.Type + "_"
		suffix := "." + f.Type
		if !strings.HasPrefix(base, prefix) || !strings.HasSuffix(base, suffix) {
			t.Errorf("recovered name %q does not follow <type>_<uuid>.<type>", base)
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(base, prefix), suffix)
		if uuid.Validate(id) != nil {
			t.Errorf("recovered name %q does not embed a UUID", base)
		}
		if filepath.Base(filepath.Dir(f.RecoveredPath)) != f.Type {
			t.Errorf("recovered file %q not under a %s directory", f.RecoveredPath, f.Type)
		}
	}

	// No partial copies left behind.
	err = filepath.Walk(out, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(filepath.Base(path), ".partial-") {
			t.Errorf("leftover partial file %s", path)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRunTypeFilter(t *testing.T) {
	src := buildSourceTree(t)
	out := filepath.Join(t.TempDir(), "recovered")

	summary, err := Run(context.Background(), Options{
		Source:    src,
		OutputDir: out,
		Types:     []string{"PNG"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Identified != 2 {
		t.Errorf("Identified = %d, want 2", summary.Identified)
	}
	if len(summary.ByType) != 1 || summary.ByType["png"] == nil {
		t.Errorf("ByType = %v, want png only", summary.ByType)
	}
	if _, err := os.Stat(filepath.Join(out, "pdf")); !os.IsNotExist(err) {
		t.Error("pdf directory should not exist for a png-only run")
	}
}

func TestRunTypeAlias(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "pic"), append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x10}, 200)...))
	out := filepath.Join(t.TempDir(), "recovered")

	summary, err := Run(context.Background(), Options{
		Source:    src,
		OutputDir: out,
		Types:     []string{"jpeg"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.ByType["jpg"] == nil || summary.ByType["jpg"].Identified != 1 {
		t.Errorf("jpeg alias did not recover jpg: %+v", summary.ByType)
	}
}

func TestRunUnknownType(t *testing.T) {
	_, err := Run(context.Background(), Options{
		Source:    t.TempDir(),
		OutputDir: t.TempDir(),
		Types:     []string{"exe"},
	})
	if err == nil || !strings.Contains(err.Error(), "unknown file type") {
		t.Fatalf("err = %v, want unknown file type", err)
	}
}

func TestRunSourceErrors(t *testing.T) {
	out := filepath.Join(t.TempDir(), "recovered")

	if _, err := Run(context.Background(), Options{Source: "/does/not/exist", OutputDir: out}); err == nil {
		t.Error("missing source should fail")
	}

	file := filepath.Join(t.TempDir(), "afile")
	writeFile(t, file, []byte("data"))
	_, err := Run(context.Background(), Options{Source: file, OutputDir: out})
	if err == nil || !strings.Contains(err.Error(), "not a directory") {
		t.Errorf("err = %v, want not a directory", err)
	}
}

func TestRunOutputDirLocked(t *testing.T) {
	out := filepath.Join(t.TempDir(), "recovered")
	lock, err := filelock.LockDir(out)
	if err != nil {
		t.Fatal(err)
	}
	defer lock.Unlock()

	_, err = Run(context.Background(), Options{Source: t.TempDir(), OutputDir: out})
	if err == nil || !strings.Contains(err.Error(), "locked by another session") {
		t.Fatalf("err = %v, want session lock refusal", err)
	}
}

func TestRunCanceledContext(t *testing.T) {
	src := buildSourceTree(t)
	out := filepath.Join(t.TempDir(), "recovered")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := Run(ctx, Options{Source: src, OutputDir: out})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !summary.TimedOut {
		t.Error("TimedOut = false, want true for a canceled context")
	}
	if summary.Identified != 0 {
		t.Errorf("Identified = %d, want 0", summary.Identified)
	}
}

func TestSortedTypes(t *testing.T) {
	s := &Summary{ByType: map[string]*TypeStats{
		"zip": {}, "png": {}, "docx": {},
	}}
	got := s.SortedTypes()
	want := []string{"docx", "png", "zip"}
	if len(got) != len(want) {
		t.Fatalf("SortedTypes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SortedTypes = %v, want %v", got, want)
		}
	}
}
