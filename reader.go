package s3channel

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/s3channel/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3channel/s3types"
)

// RangedReader reads an object with one ranged request per call. The object
// size is fetched once when the reader is opened and never refreshed.
//
// A RangedReader is not safe for concurrent use; ReadAt may be called
// concurrently with itself.
type RangedReader struct {
	ctx    context.Context
	store  s3types.Store
	bucket string
	key    string
	cfg    *s3types.Config

	info   s3types.ObjectInfo
	pos    int64
	closed bool
}

// NewRangedReader opens a RangedReader on bucket/key.
func NewRangedReader(
	ctx context.Context,
	store s3types.Store,
	bucket, key string,
	opts ...s3types.Option,
) (*RangedReader, error) {
	return newRangedReader(ctx, store, bucket, key, newConfig(opts))
}

func newRangedReader(
	ctx context.Context,
	store s3types.Store,
	bucket, key string,
	cfg *s3types.Config,
) (*RangedReader, error) {
	switch {
	case bucket == "":
		return nil, errors.NewConfigError("bucket must be set")
	case key == "":
		return nil, errors.NewConfigError("object key must be set")
	case store == nil:
		return nil, errors.NewConfigError("object store must be set")
	}

	info, err := store.HeadObject(ctx, bucket, key)
	if err != nil {
		return nil, errors.NewObjectError("open", bucket, key, err)
	}

	if cfg.Logger != nil {
		cfg.Logger.DebugContext(ctx, "opened ranged reader",
			"bucket", bucket,
			"key", key,
			"size", info.Size)
	}

	return &RangedReader{
		ctx:    ctx,
		store:  store,
		bucket: bucket,
		key:    key,
		cfg:    cfg,
		info:   info,
	}, nil
}

// ReadAt reads len(p) bytes at off with a single ranged request. Reads are
// clipped at the end of the object, in which case io.EOF is returned with
// the bytes read. An empty p issues no request.
func (r *RangedReader) ReadAt(p []byte, off int64) (int, error) {
	if r.closed {
		return 0, errors.NewObjectError("readAt", r.bucket, r.key, errors.ErrClosed)
	}
	if off < 0 {
		return 0, errors.NewObjectError("readAt", r.bucket, r.key,
			fmt.Errorf("%w: negative offset %d", errors.ErrInvalidRange, off))
	}
	if len(p) == 0 {
		return 0, nil
	}
	if off >= r.info.Size {
		return 0, io.EOF
	}

	want := min(int64(len(p)), r.info.Size-off)
	n, err := r.fetch(p[:want], off)
	if err != nil {
		return n, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// fetch fills p from one ranged request starting at off.
func (r *RangedReader) fetch(p []byte, off int64) (int, error) {
	start := time.Now()
	body, err := r.store.GetObjectRange(r.ctx, r.bucket, r.key, off, off+int64(len(p))-1)
	if err != nil {
		r.recordFetch(start, false, 0)
		return 0, errors.NewObjectError("readAt", r.bucket, r.key, err)
	}
	defer func() {
		_ = body.Close()
	}()

	n, err := io.ReadFull(body, p)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		// The object shrank underneath us; report what arrived.
		err = nil
	}
	r.recordFetch(start, err == nil, int64(n))
	if err != nil {
		return n, errors.NewObjectError("readAt", r.bucket, r.key, err)
	}
	return n, nil
}

func (r *RangedReader) recordFetch(start time.Time, success bool, bytes int64) {
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.RecordRangeFetch(time.Since(start).Seconds(), success, bytes)
	}
}

// Read reads from the current position and advances it.
func (r *RangedReader) Read(p []byte) (int, error) {
	n, err := r.ReadAt(p, r.pos)
	r.pos += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

// Seek moves the read position. Targets outside [0, Size] are rejected.
func (r *RangedReader) Seek(offset int64, whence int) (int64, error) {
	target, err := seekTarget(offset, whence, r.pos, r.info.Size)
	if err != nil {
		return r.pos, err
	}
	if err := r.SetPosition(target); err != nil {
		return r.pos, err
	}
	return r.pos, nil
}

// SetPosition moves the read position to pos.
func (r *RangedReader) SetPosition(pos int64) error {
	if pos < 0 || pos > r.info.Size {
		return errors.NewObjectError("position", r.bucket, r.key,
			fmt.Errorf("%w: %d outside [0, %d]", errors.ErrInvalidRange, pos, r.info.Size))
	}
	r.pos = pos
	return nil
}

// Position returns the current read position.
func (r *RangedReader) Position() int64 { return r.pos }

// Size returns the object size observed when the reader was opened.
func (r *RangedReader) Size() int64 { return r.info.Size }

// Info returns the object metadata observed when the reader was opened.
func (r *RangedReader) Info() s3types.ObjectInfo { return r.info }

// Write always fails; the reader is read-only.
func (r *RangedReader) Write([]byte) (int, error) {
	return 0, errors.NewObjectError("write", r.bucket, r.key, errors.ErrReadOnly)
}

// Truncate always fails; the reader is read-only.
func (r *RangedReader) Truncate(int64) error {
	return errors.NewObjectError("truncate", r.bucket, r.key, errors.ErrReadOnly)
}

// IsOpen reports whether Close has not been called.
func (r *RangedReader) IsOpen() bool { return !r.closed }

// Close marks the reader closed. It holds no connections between reads.
func (r *RangedReader) Close() error {
	r.closed = true
	return nil
}
