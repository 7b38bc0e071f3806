package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScanOptions configures directory scanning behavior.
type ScanOptions struct {
	// Recursive enables walking into subdirectories
	Recursive bool
	// IncludeHidden also walks directories whose names start with "."
	IncludeHidden bool
	// ExcludeDirs is a list of directory names to skip (e.g. "node_modules")
	ExcludeDirs []string
	// MaxDepth limits recursion depth (0 = unlimited, 1 = top level only)
	MaxDepth int
	// MinSizeBytes skips files smaller than this
	MinSizeBytes int64
}

// ScanResult contains the results of a directory scan.
type ScanResult struct {
	// Files contains the absolute paths of all candidate files, sorted
	Files []string
	// Errors contains non-fatal errors encountered while walking
	Errors []error
}

// ScanDirectory walks dir and collects regular files matching the options.
// Unreadable entries become entries in ScanResult.Errors rather than
// aborting the walk.
func ScanDirectory(dir string, opts ScanOptions) (*ScanResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	result := &ScanResult{
		Files:  make([]string, 0),
		Errors: make([]error, 0),
	}

	excludeMap := make(map[string]bool)
	for _, name := range opts.ExcludeDirs {
		excludeMap[name] = true
	}

	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("access %s: %w", path, err))
			return nil // Continue walking
		}

		if path == dir {
			return nil
		}

		if d.IsDir() {
			if excludeMap[d.Name()] {
				return filepath.SkipDir
			}
			if !opts.IncludeHidden && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if !opts.Recursive {
				return filepath.SkipDir
			}
			if opts.MaxDepth > 0 {
				relPath, _ := filepath.Rel(dir, path)
				depth := strings.Count(relPath, string(filepath.Separator)) + 1
				if depth >= opts.MaxDepth {
					return filepath.SkipDir
				}
			}
			return nil
		}

		// Only regular files can hold recoverable content.
		if !d.Type().IsRegular() {
			return nil
		}

		if opts.MinSizeBytes > 0 {
			fi, err := d.Info()
			if err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("stat %s: %w", path, err))
				return nil
			}
			if fi.Size() < opts.MinSizeBytes {
				return nil
			}
		}

		absPath, err := filepath.Abs(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("resolve path %s: %w", path, err))
			return nil
		}
		result.Files = append(result.Files, absPath)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	// Sorted for deterministic output.
	sort.Strings(result.Files)

	return result, nil
}
