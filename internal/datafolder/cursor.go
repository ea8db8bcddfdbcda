package datafolder

import (
	"encoding/binary"
	"fmt"
)

// cursor is an explicit read position over archive bytes.
type cursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte) *cursor { return &cursor{buf: buf} }

func (c *cursor) done() bool      { return c.pos >= len(c.buf) }
func (c *cursor) remaining() int  { return len(c.buf) - c.pos }

func (c *cursor) int32() (int32, error) {
	if c.remaining() < 4 {
		return 0, fmt.Errorf("truncated at offset %d", c.pos)
	}
	v := int32(binary.LittleEndian.Uint32(c.buf[c.pos:]))
	c.pos += 4
	return v, nil
}

// lpString reads a length-prefixed string.
func (c *cursor) lpString() (string, error) {
	n, err := c.int32()
	if err != nil {
		return "", err
	}
	if n < 0 || int(n) > c.remaining() {
		return "", fmt.Errorf("bad string length %d at offset %d", n, c.pos)
	}
	s := string(c.buf[c.pos : c.pos+int(n)])
	c.pos += int(n)
	return s, nil
}
