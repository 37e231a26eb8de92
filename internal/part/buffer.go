// Package part provides the fixed-capacity buffer that accumulates bytes for
// a single multipart upload part.
package part

// Buffer accumulates bytes up to a fixed capacity. Sequential fills append at
// the fill mark; absolute writes may land anywhere below capacity and extend
// the mark when they end past it.
type Buffer struct {
	data []byte
	n    int
}

// NewBuffer returns an empty buffer backed by data. The full capacity of data
// is used and its contents are treated as garbage.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data[:cap(data)]}
}

// Fill copies as much of p as fits after the fill mark and returns the number
// of bytes copied.
func (b *Buffer) Fill(p []byte) int {
	n := copy(b.data[b.n:], p)
	b.n += n
	return n
}

// WriteAt copies p to offset off and returns the number of bytes copied.
// Bytes past capacity are dropped. Gaps below off are zeroed.
func (b *Buffer) WriteAt(p []byte, off int) int {
	if off < 0 || off >= len(b.data) {
		return 0
	}
	if off > b.n {
		clear(b.data[b.n:off])
	}
	n := copy(b.data[off:], p)
	if off+n > b.n {
		b.n = off + n
	}
	return n
}

// Len returns the number of bytes up to the fill mark.
func (b *Buffer) Len() int { return b.n }

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int { return len(b.data) }

// Remaining returns the free space after the fill mark.
func (b *Buffer) Remaining() int { return len(b.data) - b.n }

// Full reports whether the fill mark reached capacity.
func (b *Buffer) Full() bool { return b.n == len(b.data) }

// Bytes returns the filled prefix. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte { return b.data[:b.n] }

// Padded returns the whole buffer with everything past the fill mark zeroed.
func (b *Buffer) Padded() []byte {
	clear(b.data[b.n:])
	return b.data
}
