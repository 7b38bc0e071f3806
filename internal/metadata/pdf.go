package metadata

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/calder/vestige/internal/filelock"
	"github.com/calder/vestige/internal/fileutil"
)

// pdfInfoKeys are the standard Info dictionary entries worth reporting.
var pdfInfoKeys = []string{
	"Title", "Author", "Subject", "Keywords",
	"Creator", "Producer", "CreationDate", "ModDate",
}

// The extractors scan for Info dictionary string patterns rather than
// parsing the cross-reference table, so they also work on mildly damaged
// files. Literal strings look like /Key (value), hex strings like
// /Key <FEFF...>.
var (
	pdfLiteralRe = regexp.MustCompile(`/(\w+)\s*\(([^)]*)\)`)
	pdfHexRe     = regexp.MustCompile(`/(\w+)\s*<([0-9A-Fa-f\s]+)>`)
)

var pdfHeader = []byte("%PDF-")

// ExtractPDF scans the PDF at path for Info dictionary string entries and
// an XMP metadata packet.
func ExtractPDF(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pdf %s: %w", path, err)
	}
	if !bytes.HasPrefix(data, pdfHeader) {
		return nil, fmt.Errorf("%s is not a PDF file", path)
	}

	doc := &Document{Path: path, Format: "pdf"}
	if len(data) >= 8 {
		doc.Fields = append(doc.Fields, Field{
			Key:      "Version",
			Value:    string(data[5:8]),
			Category: "PDF Header",
		})
	}

	info := pdfInfoStrings(data)
	for _, key := range pdfInfoKeys {
		if value, ok := info[key]; ok {
			doc.Fields = append(doc.Fields, Field{
				Key:      key,
				Value:    value,
				Category: "PDF Info",
			})
		}
	}

	if packet := pdfXMPPacket(data); packet != nil {
		doc.Fields = append(doc.Fields, Field{
			Key:      "XMP",
			Value:    fmt.Sprintf("present (%d bytes)", len(packet)),
			Category: "PDF XMP",
		})
	}
	return doc, nil
}

// ClearPDF blanks the Info dictionary string values and the XMP packet
// body, padding each with bytes of identical length so object offsets and
// the cross-reference table stay valid. An empty outputPath derives a
// sibling file with DefaultCleanSuffix.
func ClearPDF(path, outputPath string) (*ClearResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pdf %s: %w", path, err)
	}
	if !bytes.HasPrefix(data, pdfHeader) {
		return nil, fmt.Errorf("%s is not a PDF file", path)
	}

	removed := 0
	blankValue := func(re *regexp.Regexp, pad byte) {
		data = re.ReplaceAllFunc(data, func(m []byte) []byte {
			sub := re.FindSubmatchIndex(m)
			if !isPDFInfoKey(string(m[sub[2]:sub[3]])) {
				return m
			}
			if alreadyPadded(m[sub[4]:sub[5]], pad) {
				return m
			}
			removed++
			out := append([]byte(nil), m...)
			for i := sub[4]; i < sub[5]; i++ {
				out[i] = pad
			}
			return out
		})
	}
	blankValue(pdfLiteralRe, ' ')
	// Hex strings stay valid hex when padded with zero digits.
	blankValue(pdfHexRe, '0')

	// Space-filling the whole packet keeps every byte offset valid while
	// leaving nothing for a later extraction to find.
	if packet := pdfXMPPacket(data); packet != nil {
		for i := range packet {
			packet[i] = ' '
		}
		removed++
	}

	if outputPath == "" {
		outputPath = fileutil.DerivedPath(path, DefaultCleanSuffix)
	}
	if err := filelock.AtomicWrite(outputPath, data); err != nil {
		return nil, fmt.Errorf("write %s: %w", outputPath, err)
	}
	return &ClearResult{OutputPath: outputPath, RemovedFields: removed}, nil
}

func isPDFInfoKey(key string) bool {
	for _, k := range pdfInfoKeys {
		if k == key {
			return true
		}
	}
	return false
}

// alreadyPadded reports whether a value region was blanked by an earlier
// clear, so repeat runs do not recount it.
func alreadyPadded(value []byte, pad byte) bool {
	for _, b := range value {
		if b != pad {
			return false
		}
	}
	return true
}

// pdfInfoStrings collects the recognized Info entries, preferring literal
// strings over hex strings when a key appears as both. Blank values, the
// residue of a cleared file, are dropped.
func pdfInfoStrings(data []byte) map[string]string {
	out := map[string]string{}
	for _, m := range pdfLiteralRe.FindAllSubmatch(data, -1) {
		key := string(m[1])
		if isPDFInfoKey(key) {
			if value := decodePDFString(string(m[2])); !pdfValueBlank(value) {
				out[key] = value
			}
		}
	}
	for _, m := range pdfHexRe.FindAllSubmatch(data, -1) {
		key := string(m[1])
		if !isPDFInfoKey(key) {
			continue
		}
		if _, exists := out[key]; exists {
			continue
		}
		if value, ok := decodePDFHexString(string(m[2])); ok && !pdfValueBlank(value) {
			out[key] = value
		}
	}
	return out
}

func pdfValueBlank(s string) bool {
	return strings.TrimFunc(s, func(r rune) bool {
		return r == 0 || unicode.IsSpace(r)
	}) == ""
}

var pdfEscapes = strings.NewReplacer(
	`\n`, "\n",
	`\r`, "\r",
	`\t`, "\t",
	`\(`, "(",
	`\)`, ")",
	`\\`, "\\",
)

// decodePDFString resolves the common escape sequences of a literal PDF
// string and converts UTF-16BE text, recognized by its byte order mark.
func decodePDFString(s string) string {
	s = pdfEscapes.Replace(s)
	if strings.HasPrefix(s, "\xFE\xFF") {
		return decodeUTF16BE([]byte(s[2:]))
	}
	return s
}

func decodePDFHexString(h string) (string, bool) {
	h = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, h)
	if len(h)%2 != 0 {
		// An odd final digit reads as if followed by zero.
		h += "0"
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return "", false
	}
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		return decodeUTF16BE(b[2:]), true
	}
	return string(b), true
}

func decodeUTF16BE(b []byte) string {
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		u := uint16(b[i])<<8 | uint16(b[i+1])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

// pdfXMPPacket returns the XMP packet region of data, or nil if the file
// carries none. The returned slice aliases data.
func pdfXMPPacket(data []byte) []byte {
	start := bytes.Index(data, []byte("<?xpacket begin="))
	if start < 0 {
		start = bytes.Index(data, []byte("<x:xmpmeta"))
	}
	if start < 0 {
		return nil
	}
	rest := data[start:]

	if end := bytes.Index(rest, []byte("<?xpacket end=")); end >= 0 {
		if closeIdx := bytes.IndexByte(rest[end:], '>'); closeIdx >= 0 {
			return rest[:end+closeIdx+1]
		}
		return nil
	}
	if end := bytes.Index(rest, []byte("</x:xmpmeta>")); end >= 0 {
		return rest[:end+len("</x:xmpmeta>")]
	}
	return nil
}

