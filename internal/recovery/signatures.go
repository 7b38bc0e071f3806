package recovery

import (
	"bytes"
	"sort"
)

// Signature is one magic byte pattern, at a fixed offset into the file.
// Most magics sit at offset zero; the mp4 ftyp box does not.
type Signature struct {
	Offset int
	Magic  []byte
}

// signatureSet describes how one recoverable type is identified and
// validated.
type signatureSet struct {
	// Any matching signature identifies the type.
	signatures []Signature
	// Content markers confirming the match; any one must appear in the
	// head or tail window. Empty means the signature alone decides.
	validation [][]byte
	// Trailer expected near the end of an intact file, nil when the
	// format has none.
	trailer []byte
	// Files larger than this are implausible for the type and skipped.
	maxSize int64
}

var signatureTable = map[string]signatureSet{
	"png": {
		signatures: []Signature{{Magic: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}}},
		trailer:    []byte{0x49, 0x45, 0x4E, 0x44, 0xAE, 0x42, 0x60, 0x82},
		maxSize:    50 << 20,
	},
	"jpg": {
		signatures: []Signature{
			{Magic: []byte{0xFF, 0xD8, 0xFF, 0xE0}},
			{Magic: []byte{0xFF, 0xD8, 0xFF, 0xE1}},
			{Magic: []byte{0xFF, 0xD8, 0xFF, 0xDB}},
		},
		trailer: []byte{0xFF, 0xD9},
		maxSize: 30 << 20,
	},
	"gif": {
		signatures: []Signature{
			{Magic: []byte("GIF87a")},
			{Magic: []byte("GIF89a")},
		},
		trailer: []byte{0x00, 0x3B},
		maxSize: 20 << 20,
	},
	"bmp": {
		signatures: []Signature{{Magic: []byte{0x42, 0x4D}}},
		maxSize:    50 << 20,
	},
	"pdf": {
		signatures: []Signature{{Magic: []byte("%PDF")}},
		validation: [][]byte{[]byte("obj")},
		trailer:    []byte("%%EOF"),
		maxSize:    100 << 20,
	},
	"docx": {
		signatures: []Signature{{Magic: []byte{0x50, 0x4B, 0x03, 0x04}}},
		validation: [][]byte{[]byte("word/")},
		maxSize:    50 << 20,
	},
	"zip": {
		signatures: []Signature{{Magic: []byte{0x50, 0x4B, 0x03, 0x04}}},
		validation: [][]byte{
			{0x50, 0x4B, 0x01, 0x02},
			{0x50, 0x4B, 0x05, 0x06},
		},
		maxSize: 200 << 20,
	},
	"7z": {
		signatures: []Signature{{Magic: []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}}},
		maxSize:    200 << 20,
	},
	"rar": {
		signatures: []Signature{
			{Magic: []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x00}},
			{Magic: []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x01, 0x00}},
		},
		maxSize: 200 << 20,
	},
	"mp3": {
		signatures: []Signature{{Magic: []byte{0x49, 0x44, 0x33}}},
		maxSize:    50 << 20,
	},
	"mp4": {
		signatures: []Signature{{Offset: 4, Magic: []byte("ftyp")}},
		maxSize:    1 << 30,
	},
	"sqlite": {
		signatures: []Signature{{Magic: []byte("SQLite format 3\x00")}},
		maxSize:    200 << 20,
	},
}

// sniffOrder tries the most specific types first, so an OPC document
// matches as docx before the generic zip signature claims it.
var sniffOrder = []string{
	"docx", "zip", "7z", "rar",
	"png", "jpg", "gif", "bmp",
	"pdf", "sqlite", "mp3", "mp4",
}

// typeAliases maps common alternate spellings to table keys.
var typeAliases = map[string]string{
	"jpeg": "jpg",
	"db":   "sqlite",
}

// Sniff identifies the type of a file from its head window. The bool is
// false when no known signature matches.
func Sniff(head []byte) (string, bool) {
	for _, fileType := range sniffOrder {
		set := signatureTable[fileType]
		for _, sig := range set.signatures {
			end := sig.Offset + len(sig.Magic)
			if end <= len(head) && bytes.Equal(head[sig.Offset:end], sig.Magic) {
				// The docx signature is the zip signature plus markers;
				// fall through to zip when they are missing.
				if fileType == "docx" && !containsAny(set.validation, head, head) {
					continue
				}
				return fileType, true
			}
		}
	}
	return "", false
}

// validateContent reports whether the windows carry the content markers
// expected for fileType. Types without markers always validate.
func validateContent(fileType string, head, tail []byte) bool {
	set, ok := signatureTable[fileType]
	if !ok || len(set.validation) == 0 {
		return true
	}
	return containsAny(set.validation, head, tail)
}

func containsAny(markers [][]byte, head, tail []byte) bool {
	for _, marker := range markers {
		if bytes.Contains(head, marker) || bytes.Contains(tail, marker) {
			return true
		}
	}
	return false
}

// trailerPresent reports whether fileType has a known trailer and whether
// the tail window contains it.
func trailerPresent(fileType string, tail []byte) (known, present bool) {
	set, ok := signatureTable[fileType]
	if !ok || set.trailer == nil {
		return false, false
	}
	return true, bytes.Contains(tail, set.trailer)
}

// KnownTypes returns the recoverable type names, sorted.
func KnownTypes() []string {
	out := make([]string, 0, len(signatureTable))
	for name := range signatureTable {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// canonicalType resolves a user-supplied type name to a table key.
func canonicalType(name string) (string, bool) {
	if alias, ok := typeAliases[name]; ok {
		name = alias
	}
	_, ok := signatureTable[name]
	return name, ok
}
