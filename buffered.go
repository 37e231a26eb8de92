package s3channel

import (
	"context"
	"io"

	"github.com/input-output-hk/catalyst-forge-libs/s3channel/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3channel/s3types"
)

// BufferedReader serves reads from a window of up to BufferSize bytes
// fetched in one ranged request. A read that misses the window refills it
// starting at the read offset; reads larger than the window bypass it.
//
// A BufferedReader is not safe for concurrent use.
type BufferedReader struct {
	*RangedReader

	cache  []byte
	offset int64
	limit  int64
}

// NewBufferedReader opens a BufferedReader on bucket/key with a window of
// size bytes.
func NewBufferedReader(
	ctx context.Context,
	store s3types.Store,
	bucket, key string,
	size int,
	opts ...s3types.Option,
) (*BufferedReader, error) {
	cfg := newConfig(opts)
	cfg.BufferSize = size
	return newBufferedReader(ctx, store, bucket, key, cfg)
}

func newBufferedReader(
	ctx context.Context,
	store s3types.Store,
	bucket, key string,
	cfg *s3types.Config,
) (*BufferedReader, error) {
	if cfg.BufferSize <= 0 {
		return nil, errors.NewConfigError("buffer size must be positive")
	}
	r, err := newRangedReader(ctx, store, bucket, key, cfg)
	if err != nil {
		return nil, err
	}
	return &BufferedReader{
		RangedReader: r,
		cache:        make([]byte, cfg.BufferSize),
	}, nil
}

// windowUse reports how a read used the window, ordered by cost.
type windowUse int

const (
	windowBypassed windowUse = iota
	windowHit
	windowRefilled
)

// ReadAt reads len(p) bytes at off, from the window where possible. Each call
// records one cache lookup: a miss if it refilled the window, a hit if the
// window served it alone.
func (b *BufferedReader) ReadAt(p []byte, off int64) (int, error) {
	if b.closed {
		return 0, errors.NewObjectError("readAt", b.bucket, b.key, errors.ErrClosed)
	}

	n, use, err := b.readAt(p, off)
	if b.cfg.Metrics != nil {
		switch use {
		case windowHit:
			b.cfg.Metrics.RecordCacheHit()
		case windowRefilled:
			b.cfg.Metrics.RecordCacheMiss()
		}
	}
	return n, err
}

func (b *BufferedReader) readAt(p []byte, off int64) (int, windowUse, error) {
	if off < 0 || len(p) == 0 || off >= b.info.Size {
		n, err := b.RangedReader.ReadAt(p, off)
		return n, windowBypassed, err
	}

	if off >= b.offset && off < b.limit {
		n := copy(p, b.cache[off-b.offset:b.limit-b.offset])
		if n == len(p) {
			return n, windowHit, nil
		}
		m, use, err := b.readAt(p[n:], off+int64(n))
		return n + m, max(use, windowHit), err
	}

	if len(p) > len(b.cache) {
		n, err := b.RangedReader.ReadAt(p, off)
		return n, windowBypassed, err
	}

	want := min(int64(len(b.cache)), b.info.Size-off)
	n, err := b.fetch(b.cache[:want], off)
	b.offset = off
	b.limit = off + int64(n)
	if err != nil {
		return 0, windowRefilled, err
	}
	if n == 0 {
		return 0, windowRefilled, io.EOF
	}
	n, _, err = b.readAt(p, off)
	return n, windowRefilled, err
}

// Read reads from the current position and advances it.
func (b *BufferedReader) Read(p []byte) (int, error) {
	n, err := b.ReadAt(p, b.pos)
	b.pos += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

// BufferSize returns the window capacity.
func (b *BufferedReader) BufferSize() int { return len(b.cache) }

// Close drops the window and marks the reader closed.
func (b *BufferedReader) Close() error {
	b.cache = nil
	b.offset, b.limit = 0, 0
	return b.RangedReader.Close()
}
