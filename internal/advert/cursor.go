package advert

// Cursor is a bounds-checked, forward-only reader over one datagram.
// Every decode call owns exactly one Cursor; nothing is shared across
// datagrams. The position only ever moves forward and never exceeds the
// buffer length.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor returns a Cursor positioned at the start of buf. The buffer
// is borrowed, not copied; callers must not mutate it during decoding.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// ReadExact returns the next n bytes and advances the position by n.
// If fewer than n bytes remain it fails with ErrTruncated and the
// position is left unchanged.
func (c *Cursor) ReadExact(n int) ([]byte, error) {
	if n < 0 || c.pos+n > len(c.buf) {
		return nil, newDecodeError(ErrTruncated, c.pos,
			"need %d bytes, %d remain", n, len(c.buf)-c.pos)
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// ReadByte returns the next single byte.
func (c *Cursor) ReadByte() (byte, error) {
	b, err := c.ReadExact(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Remaining reports how many bytes are left to read.
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.pos
}

// AtEnd reports whether the whole buffer has been consumed.
func (c *Cursor) AtEnd() bool {
	return c.pos == len(c.buf)
}

// Offset returns the current position, used to annotate errors,
// warnings and trace output.
func (c *Cursor) Offset() int {
	return c.pos
}
