package recovery

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/calder/vestige/internal/filelock"
	"github.com/calder/vestige/internal/fileutil"
	"github.com/calder/vestige/internal/logger"
)

const (
	// headWindowSize covers every signature offset and the OPC content
	// markers near the start of a document.
	headWindowSize = 64 * 1024
	// tailWindowSize covers trailers and the zip central directory.
	tailWindowSize = 64 * 1024
	// minPlausibleSize filters fragments too small to be a recoverable
	// file of any supported type.
	minPlausibleSize = 100
)

// Options configure a recovery run.
type Options struct {
	Source    string
	OutputDir string
	// Types restricts recovery to these type names; empty recovers every
	// supported type.
	Types []string
	// MinSizeBytes skips files below this size. Values under the built-in
	// plausibility floor are raised to it.
	MinSizeBytes int64
	// Timeout bounds the whole run; zero means no limit.
	Timeout time.Duration
	Logger  logger.Logger
}

// RecoveredFile describes one identified and copied file.
type RecoveredFile struct {
	SourcePath    string `json:"source_path"`
	RecoveredPath string `json:"recovered_path"`
	Type          string `json:"type"`
	SizeBytes     int64  `json:"size_bytes"`
	Truncated     bool   `json:"truncated"`
}

// TypeStats aggregates per-type counts for the run summary.
type TypeStats struct {
	Identified int
	Truncated  int
	Bytes      int64
}

// Summary reports the outcome of one recovery run.
type Summary struct {
	RunID           string
	Source          string
	OutputDir       string
	StartedAt       time.Time
	Duration        time.Duration
	Scanned         int
	Identified      int
	Truncated       int
	SkippedOversize int
	FalsePositives  int
	BytesRecovered  int64
	TimedOut        bool
	ByType          map[string]*TypeStats
	Files           []RecoveredFile
	Errors          []string
}

// SortedTypes returns the type names present in ByType, sorted for
// deterministic output.
func (s *Summary) SortedTypes() []string {
	out := make([]string, 0, len(s.ByType))
	for name := range s.ByType {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Run walks opts.Source, identifies files by signature, and copies matches
// into per-type directories under opts.OutputDir. The output directory is
// locked for the duration of the run so concurrent sessions cannot
// interleave their results.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	requested, err := normalizeTypes(opts.Types)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(opts.Source)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", opts.Source, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source %s is not a directory", opts.Source)
	}

	lock, err := filelock.LockDir(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	defer lock.Unlock()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	summary := &Summary{
		RunID:     uuid.NewString(),
		Source:    opts.Source,
		OutputDir: opts.OutputDir,
		StartedAt: time.Now(),
		ByType:    make(map[string]*TypeStats),
	}

	minSize := opts.MinSizeBytes
	if minSize < minPlausibleSize {
		minSize = minPlausibleSize
	}

	scan, err := fileutil.ScanDirectory(opts.Source, fileutil.ScanOptions{
		Recursive:     true,
		IncludeHidden: true,
		MinSizeBytes:  minSize,
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", opts.Source, err)
	}
	for _, scanErr := range scan.Errors {
		summary.Errors = append(summary.Errors, scanErr.Error())
	}

	log.LogInfo(fmt.Sprintf("scanning %d files under %s", len(scan.Files), opts.Source))

	for _, path := range scan.Files {
		if ctx.Err() != nil {
			summary.TimedOut = true
			log.LogWarn("stopping scan early: " + ctx.Err().Error())
			break
		}
		summary.Scanned++
		if err := recoverOne(path, requested, summary, opts.OutputDir, log); err != nil {
			summary.Errors = append(summary.Errors, err.Error())
			log.LogError(err.Error())
		}
	}

	summary.Duration = time.Since(summary.StartedAt)
	log.LogInfo(fmt.Sprintf("identified %d of %d files in %s",
		summary.Identified, summary.Scanned, logger.FormatDuration(summary.Duration)))
	return summary, nil
}

// recoverOne sniffs a single file and, on a validated match, copies it into
// the per-type output directory under a collision-free name.
func recoverOne(path string, requested map[string]bool, summary *Summary, outputDir string, log logger.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	size := info.Size()

	head := make([]byte, headWindowSize)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return fmt.Errorf("read %s: %w", path, err)
	}
	head = head[:n]

	fileType, ok := Sniff(head)
	if !ok {
		log.LogTrace("no signature match: " + path)
		return nil
	}
	if len(requested) > 0 && !requested[fileType] {
		return nil
	}

	set := signatureTable[fileType]
	if size > set.maxSize {
		summary.SkippedOversize++
		log.LogDebug(fmt.Sprintf("skipping %s: %s exceeds the %s size limit",
			path, fileutil.FormatBytes(size), fileType))
		return nil
	}

	tail := head
	if size > int64(len(head)) {
		tail, err = readTail(f, size)
		if err != nil {
			return fmt.Errorf("read tail of %s: %w", path, err)
		}
	}

	if !validateContent(fileType, head, tail) {
		summary.FalsePositives++
		log.LogDebug(fmt.Sprintf("%s signature without content markers: %s", fileType, path))
		return nil
	}

	known, present := trailerPresent(fileType, tail)
	truncated := known && !present

	destPath := filepath.Join(outputDir, fileType,
		fmt.Sprintf("%s_%s.%s", fileType, uuid.NewString(), fileType))
	written, err := copyFile(path, destPath)
	if err != nil {
		return err
	}

	stats := summary.ByType[fileType]
	if stats == nil {
		stats = &TypeStats{}
		summary.ByType[fileType] = stats
	}
	summary.Identified++
	summary.BytesRecovered += written
	stats.Identified++
	stats.Bytes += written
	if truncated {
		summary.Truncated++
		stats.Truncated++
	}
	summary.Files = append(summary.Files, RecoveredFile{
		SourcePath:    path,
		RecoveredPath: destPath,
		Type:          fileType,
		SizeBytes:     written,
		Truncated:     truncated,
	})

	msg := fmt.Sprintf("recovered %s: %s (%s)", fileType, filepath.Base(destPath), fileutil.FormatBytes(written))
	if truncated {
		msg += " [truncated]"
	}
	log.LogInfo(msg)
	return nil
}

// readTail returns the final window of the file, or the whole file when it
// is smaller than the window.
func readTail(f *os.File, size int64) ([]byte, error) {
	window := int64(tailWindowSize)
	if size < window {
		window = size
	}
	buf := make([]byte, window)
	if _, err := f.ReadAt(buf, size-window); err != nil && err != io.EOF {
		return nil, err
	}
	return buf, nil
}

// copyFile streams src into destPath through a temp file and rename, so an
// interrupted run never leaves partially copied evidence.
func copyFile(src, destPath string) (written int64, err error) {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return 0, fmt.Errorf("create %s: %w", filepath.Dir(destPath), err)
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".partial-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	written, err = io.Copy(tmp, in)
	if err != nil {
		return 0, fmt.Errorf("copy %s: %w", src, err)
	}
	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return 0, fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), destPath); err != nil {
		return 0, fmt.Errorf("rename to %s: %w", destPath, err)
	}
	tmp = nil
	return written, nil
}

// normalizeTypes resolves and validates user-supplied type names.
func normalizeTypes(names []string) (map[string]bool, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make(map[string]bool, len(names))
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		canonical, ok := canonicalType(name)
		if !ok {
			return nil, fmt.Errorf("unknown file type %q (known: %s)",
				raw, strings.Join(KnownTypes(), ", "))
		}
		out[canonical] = true
	}
	return out, nil
}
