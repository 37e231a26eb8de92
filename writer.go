package s3channel

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/s3channel/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3channel/internal/part"
	"github.com/input-output-hk/catalyst-forge-libs/s3channel/internal/pool"
	"github.com/input-output-hk/catalyst-forge-libs/s3channel/internal/upload"
	"github.com/input-output-hk/catalyst-forge-libs/s3channel/s3types"
)

const zeroChunk = 64 * 1024

// Writer streams bytes into an existing multipart upload. Every full part is
// uploaded in the background as soon as more bytes arrive; Close uploads the
// final part and completes the upload.
//
// A Writer is not safe for concurrent use, except for Cancel, Cancellation
// and IsOpen.
type Writer struct {
	ctx     context.Context
	store   s3types.Store
	session s3types.Session
	cfg     *s3types.Config

	buffers   *pool.BufferPool
	uploader  *upload.Uploader
	buf       *part.Buffer
	firstPart int32
	nextPart  int32
	pos       int64
	closed    bool

	mu           sync.Mutex
	completing   bool
	cancellation *Cancellation
}

// NewMultipartWriter opens a Writer on the upload identified by session.
// ctx governs every request the writer issues, including the abort.
func NewMultipartWriter(
	ctx context.Context,
	store s3types.Store,
	session s3types.Session,
	opts ...s3types.Option,
) (*Writer, error) {
	cfg := newConfig(opts)
	return newWriter(ctx, store, session, cfg, 1)
}

func newWriter(
	ctx context.Context,
	store s3types.Store,
	session s3types.Session,
	cfg *s3types.Config,
	firstPart int32,
) (*Writer, error) {
	if err := validateSession(store, session, cfg); err != nil {
		return nil, err
	}

	w := &Writer{
		ctx:       ctx,
		store:     store,
		session:   session,
		cfg:       cfg,
		buffers:   pool.ForSize(cfg.PartSize),
		firstPart: firstPart,
		nextPart:  firstPart,
	}
	w.uploader = upload.NewUploader(upload.Config{
		Store:     store,
		Session:   session,
		Executor:  cfg.Executor,
		Retries:   cfg.Retries,
		Backoff:   cfg.RetryBackoff,
		Logger:    cfg.Logger,
		Metrics:   cfg.Metrics,
		OnFailure: func(error) { w.abort(true) },
		Release:   w.buffers.Put,
	})
	w.buf = part.NewBuffer(w.buffers.Get())

	if cfg.Logger != nil {
		cfg.Logger.DebugContext(ctx, "opened multipart writer",
			"bucket", session.Bucket,
			"key", session.Key,
			"upload_id", session.UploadID,
			"part_size", cfg.PartSize,
			"retries", cfg.Retries)
	}

	return w, nil
}

func validateSession(store s3types.Store, session s3types.Session, cfg *s3types.Config) error {
	switch {
	case session.Bucket == "":
		return errors.NewConfigError("bucket must be set")
	case session.UploadID == "":
		return errors.NewConfigError("multipart upload id must be set")
	case session.Key == "":
		return errors.NewConfigError("object key must be set")
	case store == nil:
		return errors.NewConfigError("object store must be set")
	case cfg.Executor == nil:
		return errors.NewConfigError("executor must be set")
	}
	return nil
}

// Write appends p to the object. Full parts are handed to the executor; Write
// never waits for an upload. It fails once an upload error has been latched,
// after Cancel or Close, and when the part limit is reached.
func (w *Writer) Write(p []byte) (int, error) {
	if err := w.writable("write"); err != nil {
		return 0, err
	}

	written := 0
	for {
		if w.nextPart > s3types.MaxParts {
			w.pos += int64(written)
			return written, w.tooManyParts("write")
		}
		written += w.buf.Fill(p[written:])
		if written == len(p) {
			break
		}
		w.dispatch(false)
	}

	w.pos += int64(written)
	return written, nil
}

// WriteAt is not supported without a delayed header.
func (w *Writer) WriteAt(p []byte, off int64) (int, error) {
	return 0, errors.NewObjectError("writeAt", w.session.Bucket, w.session.Key, errors.ErrNotSupported)
}

// Seek moves the write position. Moving backwards is rejected because bytes
// below the position may already be uploaded; moving forwards writes zeros.
func (w *Writer) Seek(offset int64, whence int) (int64, error) {
	target, err := seekTarget(offset, whence, w.pos, w.pos)
	if err != nil {
		return w.pos, err
	}
	err = w.SetPosition(target)
	return w.pos, err
}

// SetPosition moves the write position to pos.
func (w *Writer) SetPosition(pos int64) error {
	switch {
	case pos < w.pos:
		return errors.NewObjectError("position", w.session.Bucket, w.session.Key,
			fmt.Errorf("%w: cannot move back from %d to %d", errors.ErrInvalidPosition, w.pos, pos))
	case pos == w.pos:
		return nil
	default:
		return w.Skip(pos - w.pos)
	}
}

// Skip writes n zero bytes.
func (w *Writer) Skip(n int64) error {
	return writeZeros(w, n)
}

// Truncate extends the object with zeros up to size. Shrinking is not possible.
func (w *Writer) Truncate(size int64) error {
	if size < w.pos {
		return errors.NewObjectError("truncate", w.session.Bucket, w.session.Key,
			fmt.Errorf("%w: size %d, position %d", errors.ErrTruncate, size, w.pos))
	}
	return w.Skip(size - w.pos)
}

// Position returns the current write position.
func (w *Writer) Position() int64 { return w.pos }

// Size returns the number of bytes written so far.
func (w *Writer) Size() int64 { return w.pos }

// PartSize returns the effective part size.
func (w *Writer) PartSize() int { return w.cfg.PartSize }

// HasDelayedHeader reports whether part 1 is reserved for a header.
func (w *Writer) HasDelayedHeader() bool { return false }

// HeaderSize returns the header region size, zero without a delayed header.
func (w *Writer) HeaderSize() int { return 0 }

// Session returns the upload the writer feeds.
func (w *Writer) Session() s3types.Session { return w.session }

// Close uploads the buffered bytes as the final part, waits for every upload
// and completes the multipart upload. Any failure aborts the upload and is
// returned. Close does not wait for the abort; use Cancellation for that.
func (w *Writer) Close() error {
	return w.close(nil)
}

func (w *Writer) close(header *upload.Part) error {
	if err := w.uploader.Err(); err != nil {
		w.abort(true)
		return errors.NewObjectError("close", w.session.Bucket, w.session.Key, err)
	}
	if w.cancelled() {
		return errors.NewObjectError("close", w.session.Bucket, w.session.Key, errors.ErrCancelled)
	}
	if w.closed {
		return nil
	}
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	start := time.Now()
	if header != nil {
		w.uploader.Dispatch(w.ctx, *header)
	}

	// An upload needs at least one part, so an empty object still gets part 1.
	if w.buf.Len() > 0 || (header == nil && w.nextPart == w.firstPart) {
		w.dispatch(true)
	} else {
		w.buffers.Put(w.buf.Bytes())
		w.buf = nil
	}

	if err := w.uploader.Wait(); err != nil {
		return errors.NewObjectError("close", w.session.Bucket, w.session.Key, err)
	}

	w.mu.Lock()
	if w.cancellation != nil {
		w.mu.Unlock()
		return errors.NewObjectError("close", w.session.Bucket, w.session.Key, errors.ErrCancelled)
	}
	w.completing = true
	w.mu.Unlock()

	parts := w.uploader.Completed()
	err := w.store.CompleteMultipartUpload(w.ctx, w.session, parts)
	if w.cfg.Metrics != nil {
		w.cfg.Metrics.RecordCompletion(time.Since(start).Seconds(), err == nil)
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", errors.ErrCompleteFailed, err)
		w.uploader.Latch(w.ctx, err)
		return errors.NewObjectError("close", w.session.Bucket, w.session.Key, err)
	}

	if w.cfg.Logger != nil {
		w.cfg.Logger.InfoContext(w.ctx, "multipart upload completed",
			"bucket", w.session.Bucket,
			"key", w.session.Key,
			"upload_id", w.session.UploadID,
			"parts", len(parts),
			"duration", time.Since(start))
	}
	return nil
}

// Cancel aborts the multipart upload without waiting. The first call issues
// exactly one abort; later calls return the same handle. Once completion has
// been requested Cancel issues nothing and returns a handle resolved with
// ErrAlreadyCompleted.
func (w *Writer) Cancel() *Cancellation {
	return w.abort(false)
}

// Cancellation returns the handle of a requested abort, or nil.
func (w *Writer) Cancellation() *Cancellation {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancellation
}

// IsOpen reports whether the writer is neither closed nor cancelled.
func (w *Writer) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.closed && w.cancellation == nil
}

func (w *Writer) abort(internal bool) *Cancellation {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancellation != nil {
		return w.cancellation
	}
	if w.completing && !internal {
		return resolvedCancellation(
			errors.NewObjectError("cancel", w.session.Bucket, w.session.Key, errors.ErrAlreadyCompleted))
	}

	c := newCancellation()
	w.cancellation = c
	w.uploader.Stop()

	ctx := context.WithoutCancel(w.ctx)
	w.cfg.Executor.Go(func() {
		err := w.store.AbortMultipartUpload(ctx, w.session)
		if w.cfg.Metrics != nil {
			w.cfg.Metrics.RecordAbort(err == nil)
		}
		if err != nil {
			err = errors.NewObjectError("abort", w.session.Bucket, w.session.Key,
				fmt.Errorf("%w: %w", errors.ErrAbortFailed, err))
			if w.cfg.Logger != nil {
				w.cfg.Logger.ErrorContext(ctx, "failed to abort multipart upload",
					"upload_id", w.session.UploadID,
					"error", err)
			}
		} else if w.cfg.Logger != nil {
			w.cfg.Logger.InfoContext(ctx, "multipart upload aborted",
				"bucket", w.session.Bucket,
				"key", w.session.Key,
				"upload_id", w.session.UploadID)
		}
		c.resolve(err)
	})

	return c
}

func (w *Writer) cancelled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancellation != nil
}

func (w *Writer) writable(op string) error {
	if err := w.uploader.Err(); err != nil {
		return errors.NewObjectError(op, w.session.Bucket, w.session.Key, err)
	}
	if w.cancelled() {
		return errors.NewObjectError(op, w.session.Bucket, w.session.Key, errors.ErrCancelled)
	}
	if w.closed {
		return errors.NewObjectError(op, w.session.Bucket, w.session.Key, errors.ErrClosed)
	}
	return nil
}

func (w *Writer) tooManyParts(op string) error {
	return errors.NewObjectError(op, w.session.Bucket, w.session.Key,
		fmt.Errorf("%w (%d)", errors.ErrTooManyParts, s3types.MaxParts))
}

// dispatch hands the current buffer to the uploader under the next part number.
func (w *Writer) dispatch(last bool) {
	w.uploader.Dispatch(w.ctx, upload.Part{Number: w.nextPart, Data: w.buf.Bytes(), Last: last})
	w.nextPart++
	if last {
		w.buf = nil
		return
	}
	w.buf = part.NewBuffer(w.buffers.Get())
}

func writeZeros(w io.Writer, n int64) error {
	if n < 0 {
		return fmt.Errorf("%w: negative skip %d", errors.ErrInvalidPosition, n)
	}
	zeros := make([]byte, min(n, zeroChunk))
	for n > 0 {
		k := min(n, int64(len(zeros)))
		m, err := w.Write(zeros[:k])
		n -= int64(m)
		if err != nil {
			return err
		}
	}
	return nil
}

func seekTarget(offset int64, whence int, pos, size int64) (int64, error) {
	switch whence {
	case io.SeekStart:
		return offset, nil
	case io.SeekCurrent:
		return pos + offset, nil
	case io.SeekEnd:
		return size + offset, nil
	default:
		return 0, fmt.Errorf("%w: invalid whence %d", errors.ErrInvalidPosition, whence)
	}
}
