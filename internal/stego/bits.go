package stego

// payloadBit returns bit i of buf, counting most-significant-bit first
// within each byte.
func payloadBit(buf []byte, i int) uint8 {
	return (buf[i/8] >> (7 - uint(i%8))) & 1
}

// bitCollector reassembles a bit stream into bytes, most-significant-bit
// first, mirroring payloadBit.
type bitCollector struct {
	buf []byte
	n   int
}

func newBitCollector(bits int) *bitCollector {
	return &bitCollector{buf: make([]byte, (bits+7)/8)}
}

func (c *bitCollector) push(bit uint8) {
	if bit != 0 {
		c.buf[c.n/8] |= 1 << (7 - uint(c.n%8))
	}
	c.n++
}

func (c *bitCollector) bytes() []byte {
	return c.buf
}
