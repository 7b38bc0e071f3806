package stego

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"  // registered for decode-side format support
	_ "image/jpeg" // registered for decode-side format support

	"golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff" // registered for decode-side format support

	"github.com/calder/vestige/internal/filelock"
)

// losslessFormats lists the format names encode accepts for covers.
var losslessFormats = map[string]bool{
	"png": true,
	"bmp": true,
}

// loadImage decodes the image at path and reports the format name the
// registered decoder recognized.
func loadImage(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", &UnreadableImageError{Path: path, Err: err}
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, "", &UnreadableImageError{Path: path, Err: err}
	}
	return img, format, nil
}

// saveImage encodes img in the named lossless format and persists it with
// an atomic rename so a failed write never leaves a truncated image.
func saveImage(path string, img image.Image, format string) error {
	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("encode png: %w", err)
		}
	case "bmp":
		if err := bmp.Encode(&buf, img); err != nil {
			return fmt.Errorf("encode bmp: %w", err)
		}
	default:
		return &LossyFormatError{Path: path, Format: format}
	}

	if err := filelock.AtomicWrite(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// formatForPath maps an output path extension to a lossless format name.
func formatForPath(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png":
		return "png", nil
	case ".bmp", ".dib":
		return "bmp", nil
	case ".jpg", ".jpeg", ".gif", ".webp":
		return "", &LossyFormatError{Path: path, Format: strings.TrimPrefix(ext, ".")}
	default:
		return "", fmt.Errorf("unsupported output format %q, use .png or .bmp", ext)
	}
}

// toNRGBA returns img as an NRGBA grid with bounds anchored at the origin.
// NRGBA sources are copied row by row so non-opaque pixel values survive
// exactly; other types go through the draw package's conversion, which is
// exact for opaque pixels.
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	if src, ok := img.(*image.NRGBA); ok {
		rowLen := 4 * b.Dx()
		for y := 0; y < b.Dy(); y++ {
			srcOff := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+rowLen], src.Pix[srcOff:srcOff+rowLen])
		}
		return dst
	}

	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
