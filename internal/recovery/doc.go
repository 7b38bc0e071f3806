// Package recovery identifies files by magic signature and copies them
// into a structured output tree.
//
// The scanner walks a directory of material with unreliable names and
// extensions, say a lost+found dump or an undeleted partition copy, sniffs
// each file's leading bytes against a signature table, validates
// zip-family matches by their content markers, and checks known trailers
// to flag truncated files. It does not carve raw devices.
package recovery
