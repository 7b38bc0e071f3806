package metadata

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTestImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := img.PixOffset(x, y)
			img.Pix[off+0] = uint8(x * 9)
			img.Pix[off+1] = uint8(y * 17)
			img.Pix[off+2] = uint8(x + y)
			img.Pix[off+3] = 255
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// pngChunk builds a complete chunk with length and CRC, ready to splice
// into a PNG stream.
func pngChunk(chunkType string, chunkData []byte) []byte {
	out := make([]byte, 0, 12+len(chunkData))
	out = binary.BigEndian.AppendUint32(out, uint32(len(chunkData)))
	out = append(out, chunkType...)
	out = append(out, chunkData...)
	crc := crc32.ChecksumIEEE(append([]byte(chunkType), chunkData...))
	return binary.BigEndian.AppendUint32(out, crc)
}

// insertBeforeIEND splices chunks into pngData just ahead of the IEND
// chunk.
func insertBeforeIEND(t *testing.T, pngData []byte, chunks ...[]byte) []byte {
	t.Helper()
	idx := bytes.Index(pngData, []byte("IEND"))
	require.GreaterOrEqual(t, idx, 4)
	cut := idx - 4

	out := append([]byte(nil), pngData[:cut]...)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return append(out, pngData[cut:]...)
}

// insertJPEGSegment splices a marker segment right after the SOI marker.
func insertJPEGSegment(t *testing.T, jpegData []byte, marker byte, payload []byte) []byte {
	t.Helper()
	require.True(t, len(jpegData) > 2)

	seg := []byte{0xFF, marker}
	seg = binary.BigEndian.AppendUint16(seg, uint16(len(payload)+2))
	seg = append(seg, payload...)

	out := append([]byte(nil), jpegData[:2]...)
	out = append(out, seg...)
	return append(out, jpegData[2:]...)
}

func fieldValue(doc *Document, key string) (string, bool) {
	for _, f := range doc.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

func TestExtractImagePNG(t *testing.T) {
	data := encodePNG(t, makeTestImage(9, 6))
	data = insertBeforeIEND(t, data,
		pngChunk("tEXt", []byte("Author\x00casey")),
		pngChunk("tEXt", []byte("Software\x00gimp 2.10")),
		pngChunk("iTXt", []byte("Comment\x00\x00\x00en\x00\x00left on purpose")),
		pngChunk("zTXt", []byte("Plot\x00\x00\x78\x9c\x01\x02\x03")),
	)

	path := filepath.Join(t.TempDir(), "annotated.png")
	require.NoError(t, os.WriteFile(path, data, 0644))

	doc, err := ExtractImage(path)
	require.NoError(t, err)
	assert.Equal(t, "png", doc.Format)

	width, _ := fieldValue(doc, "Width")
	height, _ := fieldValue(doc, "Height")
	assert.Equal(t, "9", width)
	assert.Equal(t, "6", height)

	author, ok := fieldValue(doc, "Author")
	require.True(t, ok)
	assert.Equal(t, "casey", author)

	comment, ok := fieldValue(doc, "Comment")
	require.True(t, ok)
	assert.Equal(t, "left on purpose", comment)

	plot, ok := fieldValue(doc, "Plot")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(plot, "(compressed"), "zTXt value %q", plot)

	assert.Len(t, doc.FieldsInCategory("PNG Text"), 4)
}

func TestExtractImageJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, makeTestImage(12, 12), nil))

	data := insertJPEGSegment(t, buf.Bytes(), 0xE1, append([]byte("Exif\x00\x00"), make([]byte, 40)...))
	data = insertJPEGSegment(t, data, 0xFE, []byte("shot on the test rig"))

	path := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(path, data, 0644))

	doc, err := ExtractImage(path)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", doc.Format)

	comment, ok := fieldValue(doc, "Comment")
	require.True(t, ok)
	assert.Equal(t, "shot on the test rig", comment)

	exif, ok := fieldValue(doc, "Exif")
	require.True(t, ok)
	assert.Equal(t, "present (40 bytes)", exif)
}

func TestExtractImageErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ExtractImage(filepath.Join(dir, "missing.png"))
	require.Error(t, err)

	path := filepath.Join(dir, "notes.png")
	require.NoError(t, os.WriteFile(path, []byte("not pixels"), 0644))
	_, err = ExtractImage(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode image")
}

func TestClearImagePNG(t *testing.T) {
	dir := t.TempDir()
	img := makeTestImage(14, 10)
	data := insertBeforeIEND(t, encodePNG(t, img),
		pngChunk("tEXt", []byte("Author\x00casey")),
		pngChunk("tEXt", []byte("Location\x00somewhere sensitive")),
	)

	path := filepath.Join(dir, "tagged.png")
	require.NoError(t, os.WriteFile(path, data, 0644))

	result, err := ClearImage(path, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "tagged_clean.png"), result.OutputPath)
	assert.Equal(t, 2, result.RemovedFields)

	doc, err := ExtractImage(result.OutputPath)
	require.NoError(t, err)
	assert.Empty(t, doc.FieldsInCategory("PNG Text"))

	// Pixels survive the rewrite untouched.
	f, err := os.Open(result.OutputPath)
	require.NoError(t, err)
	defer f.Close()
	cleaned, err := png.Decode(f)
	require.NoError(t, err)
	require.Equal(t, img.Bounds(), cleaned.Bounds())
	for y := 0; y < 10; y += 3 {
		for x := 0; x < 14; x += 3 {
			r1, g1, b1, a1 := img.At(x, y).RGBA()
			r2, g2, b2, a2 := cleaned.At(x, y).RGBA()
			require.Equal(t, [4]uint32{r1, g1, b1, a1}, [4]uint32{r2, g2, b2, a2},
				"pixel (%d,%d)", x, y)
		}
	}
}

func TestClearImageJPEGBecomesPNG(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, makeTestImage(10, 10), nil))
	data := insertJPEGSegment(t, buf.Bytes(), 0xFE, []byte("metadata to drop"))

	path := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(path, data, 0644))

	result, err := ClearImage(path, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "photo_clean.png"), result.OutputPath)
	assert.Equal(t, 1, result.RemovedFields)

	doc, err := ExtractImage(result.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "png", doc.Format)
	assert.Empty(t, doc.FieldsInCategory("JPEG"))
}

func TestClearImageExplicitOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.png")
	require.NoError(t, os.WriteFile(path, encodePNG(t, makeTestImage(5, 5)), 0644))

	out := filepath.Join(dir, "cleaned", "v1.png")
	result, err := ClearImage(path, out)
	require.NoError(t, err)
	assert.Equal(t, out, result.OutputPath)
	assert.Equal(t, 0, result.RemovedFields)

	_, err = os.Stat(out)
	require.NoError(t, err)
}

func TestColorModelName(t *testing.T) {
	assert.Equal(t, "NRGBA", colorModelName(color.NRGBAModel))
	assert.Equal(t, "RGBA", colorModelName(color.RGBAModel))
	assert.Equal(t, "Gray", colorModelName(color.GrayModel))
	assert.Equal(t, "YCbCr", colorModelName(color.YCbCrModel))
	assert.Equal(t, "Paletted", colorModelName(color.Palette{color.Black, color.White}))
}
