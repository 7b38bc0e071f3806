package metadata

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"strconv"

	_ "image/gif"  // registered for extraction support
	_ "image/jpeg" // registered for extraction support

	"golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff" // registered for extraction support

	"github.com/calder/vestige/internal/filelock"
	"github.com/calder/vestige/internal/fileutil"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// ExtractImage reads structural and textual metadata from the image at
// path: format, dimensions, and color model, plus PNG text chunks and the
// comment and APP1 segments of a JPEG.
func ExtractImage(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", path, err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}

	doc := &Document{Path: path, Format: format}
	doc.Fields = append(doc.Fields,
		Field{Key: "Width", Value: strconv.Itoa(cfg.Width), Category: "Image"},
		Field{Key: "Height", Value: strconv.Itoa(cfg.Height), Category: "Image"},
		Field{Key: "ColorModel", Value: colorModelName(cfg.ColorModel), Category: "Image"},
	)

	switch format {
	case "png":
		doc.Fields = append(doc.Fields, pngTextFields(data)...)
	case "jpeg":
		doc.Fields = append(doc.Fields, jpegSegmentFields(data)...)
	}
	return doc, nil
}

// ClearImage decodes the pixels of the image at path and re-encodes them
// into a fresh file with no ancillary chunks or marker segments. Lossless
// inputs keep their format; lossy inputs are written as PNG so the cleaned
// copy does not degrade further, with the extension swapped to match. An
// empty outputPath derives a sibling file with DefaultCleanSuffix.
func ClearImage(path, outputPath string) (*ClearResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", path, err)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}

	removed := 0
	switch format {
	case "png":
		removed = len(pngTextFields(data))
	case "jpeg":
		removed = len(jpegSegmentFields(data))
	}

	var buf bytes.Buffer
	switch format {
	case "png":
		if outputPath == "" {
			outputPath = fileutil.DerivedPath(path, DefaultCleanSuffix)
		}
		err = png.Encode(&buf, img)
	case "bmp":
		if outputPath == "" {
			outputPath = fileutil.DerivedPath(path, DefaultCleanSuffix)
		}
		err = bmp.Encode(&buf, img)
	default:
		if outputPath == "" {
			outputPath = fileutil.DerivedPathExt(path, DefaultCleanSuffix, ".png")
		}
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, fmt.Errorf("encode cleaned image: %w", err)
	}

	if err := filelock.AtomicWrite(outputPath, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("write %s: %w", outputPath, err)
	}
	return &ClearResult{OutputPath: outputPath, RemovedFields: removed}, nil
}

func colorModelName(m color.Model) string {
	switch m {
	case color.RGBAModel:
		return "RGBA"
	case color.RGBA64Model:
		return "RGBA64"
	case color.NRGBAModel:
		return "NRGBA"
	case color.NRGBA64Model:
		return "NRGBA64"
	case color.GrayModel:
		return "Gray"
	case color.Gray16Model:
		return "Gray16"
	case color.YCbCrModel:
		return "YCbCr"
	case color.NYCbCrAModel:
		return "NYCbCrA"
	case color.CMYKModel:
		return "CMYK"
	}
	if _, ok := m.(color.Palette); ok {
		return "Paletted"
	}
	return "unknown"
}

// pngTextFields walks the chunk stream of a PNG and collects the textual
// chunks. Values of compressed chunks are reported by size only.
func pngTextFields(data []byte) []Field {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil
	}

	var fields []Field
	off := len(pngSignature)
	for off+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[off : off+4]))
		chunkType := string(data[off+4 : off+8])
		dataStart := off + 8
		dataEnd := dataStart + length
		if length < 0 || dataEnd+4 > len(data) {
			break
		}
		chunk := data[dataStart:dataEnd]

		switch chunkType {
		case "tEXt":
			if key, value, ok := bytes.Cut(chunk, []byte{0}); ok {
				fields = append(fields, Field{
					Key:      string(key),
					Value:    string(value),
					Category: "PNG Text",
				})
			}
		case "zTXt":
			if key, _, ok := bytes.Cut(chunk, []byte{0}); ok {
				fields = append(fields, Field{
					Key:      string(key),
					Value:    fmt.Sprintf("(compressed, %d bytes)", length),
					Category: "PNG Text",
				})
			}
		case "iTXt":
			fields = append(fields, itxtField(chunk))
		case "IEND":
			return fields
		}
		off = dataEnd + 4
	}
	return fields
}

// itxtField parses one iTXt chunk: keyword, compression flag and method,
// language tag, translated keyword, then the text itself.
func itxtField(chunk []byte) Field {
	malformed := Field{
		Key:      "iTXt",
		Value:    fmt.Sprintf("(malformed, %d bytes)", len(chunk)),
		Category: "PNG Text",
	}

	key, rest, ok := bytes.Cut(chunk, []byte{0})
	if !ok || len(rest) < 2 {
		return malformed
	}
	compressed := rest[0] != 0
	rest = rest[2:]

	_, rest, ok = bytes.Cut(rest, []byte{0})
	if !ok {
		return malformed
	}
	_, text, ok := bytes.Cut(rest, []byte{0})
	if !ok {
		return malformed
	}

	f := Field{Key: string(key), Category: "PNG Text"}
	if compressed {
		f.Value = fmt.Sprintf("(compressed, %d bytes)", len(text))
	} else {
		f.Value = string(text)
	}
	return f
}

// jpegSegmentFields walks the marker segments before the entropy-coded
// data and collects comments and APP1 payloads.
func jpegSegmentFields(data []byte) []Field {
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil
	}

	var fields []Field
	off := 2
	for off+4 <= len(data) {
		if data[off] != 0xFF {
			break
		}
		marker := data[off+1]

		// Standalone markers carry no length word.
		if marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7) {
			off += 2
			continue
		}
		// SOS starts the entropy-coded data; nothing textual follows.
		if marker == 0xDA || marker == 0xD9 {
			break
		}

		segLen := int(binary.BigEndian.Uint16(data[off+2 : off+4]))
		if segLen < 2 || off+2+segLen > len(data) {
			break
		}
		payload := data[off+4 : off+2+segLen]

		switch marker {
		case 0xFE:
			fields = append(fields, Field{
				Key:      "Comment",
				Value:    string(payload),
				Category: "JPEG",
			})
		case 0xE1:
			fields = append(fields, app1Field(payload))
		}
		off += 2 + segLen
	}
	return fields
}

var (
	exifHeader = []byte("Exif\x00\x00")
	xmpHeader  = []byte("http://ns.adobe.com/xap/1.0/\x00")
)

func app1Field(payload []byte) Field {
	switch {
	case bytes.HasPrefix(payload, exifHeader):
		return Field{
			Key:      "Exif",
			Value:    fmt.Sprintf("present (%d bytes)", len(payload)-len(exifHeader)),
			Category: "JPEG",
		}
	case bytes.HasPrefix(payload, xmpHeader):
		return Field{
			Key:      "XMP",
			Value:    fmt.Sprintf("present (%d bytes)", len(payload)-len(xmpHeader)),
			Category: "JPEG",
		}
	default:
		return Field{
			Key:      "APP1",
			Value:    fmt.Sprintf("%d bytes", len(payload)),
			Category: "JPEG",
		}
	}
}
