package stego

import (
	"encoding/binary"
	"fmt"
	"image"
	"unicode/utf8"

	"github.com/calder/vestige/internal/fileutil"
)

// headerBits is the size of the big-endian payload bit-length prefix.
const headerBits = 32

// carriersPerPixel is the number of payload-carrying channels per pixel.
const carriersPerPixel = 3

// maxPayloadBits is the largest whole-byte payload the header can declare.
const maxPayloadBits = ((1<<32 - 1) / 8) * 8

// DefaultOutputSuffix is appended to the cover filename stem when Encode is
// called without an output path.
const DefaultOutputSuffix = "_encoded"

// CapacityBits returns the total number of embeddable bits in an image: one
// per R, G, B channel. Alpha never carries payload.
func CapacityBits(img image.Image) int {
	b := img.Bounds()
	return b.Dx() * b.Dy() * carriersPerPixel
}

// PayloadCapacityBits returns the bits left for message payload once the
// length header is paid for.
func PayloadCapacityBits(img image.Image) int {
	capacity := CapacityBits(img) - headerBits
	if capacity < 0 {
		return 0
	}
	if capacity > maxPayloadBits {
		return maxPayloadBits
	}
	return capacity
}

// RequiredBits returns the embedding cost of a message: the length header
// plus eight bits per payload byte.
func RequiredBits(message []byte) int {
	return headerBits + 8*len(message)
}

// CapacityFile reports the total and payload carrier capacity of the image
// at path, in bits.
func CapacityFile(path string) (totalBits, payloadBits int, err error) {
	img, _, err := loadImage(path)
	if err != nil {
		return 0, 0, err
	}
	return CapacityBits(img), PayloadCapacityBits(img), nil
}

// EncodeImage embeds message into a copy of cover and returns the copy. The
// cover is never modified. Only the least significant bits of the first
// RequiredBits(message) carrier channels differ from the cover grid; every
// other bit is identical, and dimensions and channel layout are preserved.
func EncodeImage(cover image.Image, message []byte) (*image.NRGBA, error) {
	available := CapacityBits(cover)
	if available > headerBits+maxPayloadBits {
		// The header cannot declare more than maxPayloadBits.
		available = headerBits + maxPayloadBits
	}
	required := RequiredBits(message)
	if required > available {
		return nil, &CapacityExceededError{RequiredBits: required, AvailableBits: available}
	}

	payload := make([]byte, headerBits/8+len(message))
	binary.BigEndian.PutUint32(payload[:headerBits/8], uint32(8*len(message)))
	copy(payload[headerBits/8:], message)

	out := toNRGBA(cover)
	for i := 0; i < required; i++ {
		off := carrierOffset(i)
		out.Pix[off] = out.Pix[off]&0xFE | payloadBit(payload, i)
	}
	return out, nil
}

// DecodeImage extracts the embedded message from img. It reads the 32-bit
// length header, bound-checks the declared length against capacity,
// reassembles exactly that many bits, and validates the result as UTF-8.
// The output depends only on the image's least significant bits, so the
// function is idempotent for a given image.
func DecodeImage(img image.Image) (string, error) {
	capacity := CapacityBits(img)
	if capacity < headerBits {
		return "", fmt.Errorf("%w: image smaller than the %d-bit header", ErrNoHiddenMessage, headerBits)
	}

	grid := toNRGBA(img)

	header := newBitCollector(headerBits)
	for i := 0; i < headerBits; i++ {
		header.push(lsbAt(grid, i))
	}
	declared := binary.BigEndian.Uint32(header.bytes())

	if declared%8 != 0 {
		return "", fmt.Errorf("%w: header declares %d bits, not a whole number of bytes", ErrNoHiddenMessage, declared)
	}
	if uint64(declared) > uint64(capacity-headerBits) {
		return "", fmt.Errorf("%w: header declares %d payload bits but the image holds %d", ErrNoHiddenMessage, declared, capacity-headerBits)
	}

	collector := newBitCollector(int(declared))
	for i := 0; i < int(declared); i++ {
		collector.push(lsbAt(grid, headerBits+i))
	}

	raw := collector.bytes()
	if !utf8.Valid(raw) {
		return "", &CorruptPayloadError{PayloadBytes: len(raw)}
	}
	return string(raw), nil
}

// Encode reads the cover image at coverPath, embeds message, and writes the
// encoded image to outputPath. An empty outputPath derives a sibling file
// from the cover name with DefaultOutputSuffix. Covers must be in a
// lossless format. Encode returns the path actually written.
func Encode(coverPath, message, outputPath string) (string, error) {
	cover, format, err := loadImage(coverPath)
	if err != nil {
		return "", err
	}
	if !losslessFormats[format] {
		return "", &LossyFormatError{Path: coverPath, Format: format}
	}

	encoded, err := EncodeImage(cover, []byte(message))
	if err != nil {
		return "", err
	}

	if outputPath == "" {
		outputPath = fileutil.DerivedPath(coverPath, DefaultOutputSuffix)
	}
	outFormat, err := formatForPath(outputPath)
	if err != nil {
		return "", err
	}
	if err := saveImage(outputPath, encoded, outFormat); err != nil {
		return "", err
	}
	return outputPath, nil
}

// Decode reads the image at path and extracts the embedded message.
func Decode(path string) (string, error) {
	img, _, err := loadImage(path)
	if err != nil {
		return "", err
	}
	return DecodeImage(img)
}

// carrierOffset maps payload bit index i to the NRGBA Pix offset of the
// channel carrying it: row-major pixels, R, G, B within a pixel, alpha
// skipped.
func carrierOffset(i int) int {
	return (i/carriersPerPixel)*4 + i%carriersPerPixel
}

// lsbAt returns the least significant bit of carrier channel i.
func lsbAt(grid *image.NRGBA, i int) uint8 {
	return grid.Pix[carrierOffset(i)] & 1
}
