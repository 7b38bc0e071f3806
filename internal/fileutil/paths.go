package fileutil

import (
	"path/filepath"
	"strings"
)

// DerivedPath returns path with suffix appended to the filename stem,
// keeping the directory and extension. DerivedPath("a/photo.png", "_clean")
// returns "a/photo_clean.png".
func DerivedPath(path, suffix string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, stem+suffix+ext)
}

// DerivedPathExt is DerivedPath with the extension replaced, for commands
// whose output format differs from the input.
func DerivedPathExt(path, suffix, newExt string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+suffix+newExt)
}
