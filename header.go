package s3channel

import (
	"context"
	"fmt"

	"github.com/input-output-hk/catalyst-forge-libs/s3channel/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3channel/internal/part"
	"github.com/input-output-hk/catalyst-forge-libs/s3channel/internal/upload"
	"github.com/input-output-hk/catalyst-forge-libs/s3channel/s3types"
)

// HeaderWriter is a Writer whose first part is held back until Close. The
// first HeaderSize bytes of the object form the header region: they can be
// written sequentially like any other bytes, rewritten with WriteAt, or
// revisited by moving the position below HeaderSize. Body bytes start at
// HeaderSize and are uploaded from part 2 on.
//
// The header part is always uploaded at its full size, zero padded.
type HeaderWriter struct {
	body   *Writer
	header *part.Buffer
	cursor int64
	size   int64
}

// NewHeaderWriter opens a HeaderWriter on the upload identified by session.
func NewHeaderWriter(
	ctx context.Context,
	store s3types.Store,
	session s3types.Session,
	opts ...s3types.Option,
) (*HeaderWriter, error) {
	cfg := newConfig(opts)
	cfg.DelayedHeader = true
	return newHeaderWriter(ctx, store, session, cfg)
}

func newHeaderWriter(
	ctx context.Context,
	store s3types.Store,
	session s3types.Session,
	cfg *s3types.Config,
) (*HeaderWriter, error) {
	body, err := newWriter(ctx, store, session, cfg, 2)
	if err != nil {
		return nil, err
	}
	return &HeaderWriter{
		body:   body,
		header: part.NewBuffer(body.buffers.Get()),
	}, nil
}

func (h *HeaderWriter) headerSize() int64 {
	return int64(h.header.Cap())
}

// Write writes p at the current position. Inside the header region bytes go
// to the header; once body bytes exist a write that would cross the header
// bound fails with a HeaderOverflowError. When the position reaches the end
// of the header it continues at the end of the object.
func (h *HeaderWriter) Write(p []byte) (int, error) {
	if err := h.body.writable("write"); err != nil {
		return 0, err
	}

	hs := h.headerSize()
	if h.cursor >= hs {
		n, err := h.body.Write(p)
		h.cursor += int64(n)
		h.size = h.cursor
		return n, err
	}

	if h.size > hs && h.cursor+int64(len(p)) > hs {
		return 0, &errors.HeaderOverflowError{Size: len(p), Offset: h.cursor, Capacity: int(hs)}
	}

	n := h.header.WriteAt(p, int(h.cursor))
	h.cursor += int64(n)
	h.size = max(h.size, h.cursor)

	if n < len(p) {
		m, err := h.body.Write(p[n:])
		h.cursor += int64(m)
		h.size = h.cursor
		return n + m, err
	}

	if h.cursor == hs && h.size > hs {
		h.cursor = h.size
	}
	return n, nil
}

// WriteAt writes p into the header region at off without moving the position.
// The whole of p must fit below HeaderSize.
func (h *HeaderWriter) WriteAt(p []byte, off int64) (int, error) {
	if err := h.body.writable("writeAt"); err != nil {
		return 0, err
	}

	hs := h.headerSize()
	if off < 0 || off+int64(len(p)) > hs {
		return 0, &errors.HeaderOverflowError{Size: len(p), Offset: off, Capacity: int(hs)}
	}

	h.header.WriteAt(p, int(off))
	h.size = max(h.size, off+int64(len(p)))
	return len(p), nil
}

// Seek moves the position. Targets past the end are zero filled, targets in
// the header region are always reachable, and targets between the header and
// the end are rejected.
func (h *HeaderWriter) Seek(offset int64, whence int) (int64, error) {
	target, err := seekTarget(offset, whence, h.cursor, h.size)
	if err != nil {
		return h.cursor, err
	}
	err = h.SetPosition(target)
	return h.cursor, err
}

// SetPosition moves the position to pos.
func (h *HeaderWriter) SetPosition(pos int64) error {
	hs := h.headerSize()
	switch {
	case pos < 0:
		return h.positionError(pos)
	case pos > h.size:
		h.cursor = h.size
		return h.Skip(pos - h.size)
	case pos == h.size, pos < hs:
		h.cursor = pos
		return nil
	default:
		return h.positionError(pos)
	}
}

func (h *HeaderWriter) positionError(pos int64) error {
	return errors.NewObjectError("position", h.body.session.Bucket, h.body.session.Key,
		fmt.Errorf("%w: %d is neither in the header [0, %d) nor at or past the end %d",
			errors.ErrInvalidPosition, pos, h.headerSize(), h.size))
}

// Skip writes n zero bytes at the current position. Like Write, it fails
// without writing anything when the zeros would cross the header bound after
// body bytes exist.
func (h *HeaderWriter) Skip(n int64) error {
	if err := h.body.writable("skip"); err != nil {
		return err
	}
	hs := h.headerSize()
	if h.cursor < hs && h.size > hs && h.cursor+n > hs {
		return &errors.HeaderOverflowError{Size: int(n), Offset: h.cursor, Capacity: int(hs)}
	}
	return writeZeros(h, n)
}

// Truncate writes zeros from the position up to size. Shrinking is not possible.
func (h *HeaderWriter) Truncate(size int64) error {
	if size < h.cursor {
		return errors.NewObjectError("truncate", h.body.session.Bucket, h.body.session.Key,
			fmt.Errorf("%w: size %d, position %d", errors.ErrTruncate, size, h.cursor))
	}
	return h.Skip(size - h.cursor)
}

// Position returns the current position.
func (h *HeaderWriter) Position() int64 { return h.cursor }

// Size returns the largest offset written so far, header included.
func (h *HeaderWriter) Size() int64 { return h.size }

// PartSize returns the effective part size.
func (h *HeaderWriter) PartSize() int { return h.body.cfg.PartSize }

// HasDelayedHeader always reports true.
func (h *HeaderWriter) HasDelayedHeader() bool { return true }

// HeaderSize returns the size of the header region, which equals the part size.
func (h *HeaderWriter) HeaderSize() int { return h.header.Cap() }

// Session returns the upload the writer feeds.
func (h *HeaderWriter) Session() s3types.Session { return h.body.session }

// Close uploads the header as part 1 together with the final body part and
// completes the upload, exactly like Writer.Close.
func (h *HeaderWriter) Close() error {
	if h.header == nil {
		return h.body.close(nil)
	}
	if err := h.body.writable("close"); err != nil {
		h.body.buffers.Put(h.header.Bytes())
		h.header = nil
		// Let the body report the latched or cancelled state.
		return h.body.close(nil)
	}

	header := &upload.Part{Number: 1, Data: h.header.Padded()}
	h.header = nil
	return h.body.close(header)
}

// Cancel aborts the multipart upload without waiting. See Writer.Cancel.
func (h *HeaderWriter) Cancel() *Cancellation { return h.body.Cancel() }

// Cancellation returns the handle of a requested abort, or nil.
func (h *HeaderWriter) Cancellation() *Cancellation { return h.body.Cancellation() }

// IsOpen reports whether the writer is neither closed nor cancelled.
func (h *HeaderWriter) IsOpen() bool { return h.body.IsOpen() }
