// Package fileutil provides the shared file system helpers used across
// vestige commands.
//
// ScanDirectory walks a directory tree and returns a deterministic, sorted
// list of candidate files for recovery scanning. It is error tolerant:
// unreadable entries are collected as non-fatal errors and the walk
// continues, so one permission failure does not abort a whole evidence
// sweep. Hidden directories are skipped unless IncludeHidden is set, which
// recovery enables because deleted-file remnants often hide in dot
// directories.
//
// DerivedPath builds the conventional sibling output name used by commands
// that write a transformed copy of their input, for example
// photo.png -> photo_encoded.png.
package fileutil
