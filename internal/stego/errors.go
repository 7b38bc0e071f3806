package stego

import (
	"errors"
	"fmt"
)

// ErrNoHiddenMessage is returned by Decode when the leading bits of an image
// do not form a plausible payload header. Wrapped errors carry the specific
// structural failure; callers classify with errors.Is.
var ErrNoHiddenMessage = errors.New("no hidden message found")

// UnreadableImageError indicates a source file that is missing, corrupt, or
// in a format no registered decoder understands.
type UnreadableImageError struct {
	Path string
	Err  error
}

func (e *UnreadableImageError) Error() string {
	return fmt.Sprintf("unreadable image %s: %v", e.Path, e.Err)
}

func (e *UnreadableImageError) Unwrap() error {
	return e.Err
}

// CapacityExceededError reports a message that does not fit in the cover
// image, naming the deficit so the caller can pick a larger cover or a
// shorter message.
type CapacityExceededError struct {
	RequiredBits  int
	AvailableBits int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("message needs %d bits but the image holds %d", e.RequiredBits, e.AvailableBits)
}

// LossyFormatError indicates a cover or output format whose compression
// would destroy embedded bits.
type LossyFormatError struct {
	Path   string
	Format string
}

func (e *LossyFormatError) Error() string {
	return fmt.Sprintf("%s is %s; lossy formats destroy embedded bits, use png or bmp", e.Path, e.Format)
}

// CorruptPayloadError indicates extracted payload bytes that are not valid
// UTF-8, distinct from "no message" to aid diagnosis: the usual causes are
// decoding an image that was never encoded or one that was recompressed.
type CorruptPayloadError struct {
	PayloadBytes int
}

func (e *CorruptPayloadError) Error() string {
	return fmt.Sprintf("extracted %d-byte payload is not valid UTF-8", e.PayloadBytes)
}
