// Package stego implements the LSB steganography codec used by the
// "vestige stego" commands.
//
// Messages are embedded one bit per color channel into the least significant
// bits of a cover image. The codec uses one canonical convention, enforced
// symmetrically by encode and decode:
//
//   - pixels are visited row-major, left to right, top to bottom
//   - within a pixel the channels are visited in R, G, B order; alpha is
//     skipped and preserved
//   - bits are taken most-significant-bit first from each payload byte
//   - the payload is preceded by a 32-bit big-endian header holding the
//     payload length in bits
//
// Capacity is therefore width x height x 3 bits, of which 32 are spent on
// the header. Covers must be lossless (PNG or BMP): lossy recompression
// destroys the embedded bits.
package stego
