// Package upload handles concurrent part uploads for a single multipart
// upload session, with a per-part retry budget and a sticky first error.
package upload

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/s3channel/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3channel/s3types"
)

// Part is one unit of upload work.
type Part struct {
	Number int32
	Data   []byte
	Last   bool
}

// Config configures an Uploader.
type Config struct {
	Store    s3types.Store
	Session  s3types.Session
	Executor s3types.Executor

	// Retries is the number of extra attempts after the first failure.
	Retries int

	// Backoff is the delay before the first retry. It doubles per attempt.
	Backoff time.Duration

	Logger  *slog.Logger
	Metrics s3types.MetricsRecorder

	// OnFailure is called exactly once, with the first error latched.
	OnFailure func(error)

	// Release is called with a part's data after its final attempt.
	Release func([]byte)
}

// Uploader dispatches parts to an executor and collects their results.
type Uploader struct {
	cfg Config

	mu          sync.Mutex
	outstanding map[int32]struct{}
	completed   []s3types.CompletedPart

	wg      sync.WaitGroup
	err     atomic.Pointer[error]
	stopped atomic.Bool
}

// NewUploader creates a new part uploader
func NewUploader(cfg Config) *Uploader {
	return &Uploader{
		cfg:         cfg,
		outstanding: make(map[int32]struct{}),
	}
}

// Dispatch schedules p for upload and returns without waiting.
func (u *Uploader) Dispatch(ctx context.Context, p Part) {
	u.mu.Lock()
	u.outstanding[p.Number] = struct{}{}
	u.mu.Unlock()

	if u.cfg.Logger != nil {
		u.cfg.Logger.DebugContext(ctx, "dispatching part",
			"bucket", u.cfg.Session.Bucket,
			"key", u.cfg.Session.Key,
			"part", p.Number,
			"bytes", len(p.Data),
			"last", p.Last)
	}

	u.wg.Add(1)
	u.cfg.Executor.Go(func() {
		defer u.wg.Done()
		u.run(ctx, p)
	})
}

// run uploads p, retrying the same part number and bytes until the budget is spent.
func (u *Uploader) run(ctx context.Context, p Part) {
	defer func() {
		if u.cfg.Release != nil {
			u.cfg.Release(p.Data)
		}
	}()

	delay := u.cfg.Backoff
	for attempt := 0; ; attempt++ {
		if u.stopped.Load() {
			u.finish(p.Number)
			return
		}

		start := time.Now()
		etag, err := u.cfg.Store.UploadPart(ctx, u.cfg.Session, p.Number, p.Data)
		if u.cfg.Metrics != nil {
			u.cfg.Metrics.RecordPartUpload(time.Since(start).Seconds(), err == nil, int64(len(p.Data)))
		}
		if err == nil {
			u.mu.Lock()
			delete(u.outstanding, p.Number)
			u.completed = append(u.completed, s3types.CompletedPart{PartNumber: p.Number, ETag: etag})
			u.mu.Unlock()
			return
		}

		// Failures observed after cancellation are neither retried nor latched.
		if u.stopped.Load() {
			u.finish(p.Number)
			return
		}

		if attempt >= u.cfg.Retries || ctx.Err() != nil {
			u.finish(p.Number)
			u.Latch(ctx, &errors.PartUploadError{PartNumber: p.Number, Retries: attempt, Err: err})
			return
		}

		if u.cfg.Metrics != nil {
			u.cfg.Metrics.RecordPartRetry()
		}
		if u.cfg.Logger != nil {
			u.cfg.Logger.WarnContext(ctx, "retrying part upload",
				"bucket", u.cfg.Session.Bucket,
				"key", u.cfg.Session.Key,
				"part", p.Number,
				"attempt", attempt+1,
				"error", err)
		}

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
			delay *= 2
		}
	}
}

func (u *Uploader) finish(number int32) {
	u.mu.Lock()
	delete(u.outstanding, number)
	u.mu.Unlock()
}

// Latch records err as the session's terminal error if none was recorded yet.
// Only the winning caller triggers OnFailure. It reports whether err won.
func (u *Uploader) Latch(ctx context.Context, err error) bool {
	if !u.err.CompareAndSwap(nil, &err) {
		return false
	}

	if u.cfg.Logger != nil {
		u.cfg.Logger.ErrorContext(ctx, "multipart upload failed",
			"bucket", u.cfg.Session.Bucket,
			"key", u.cfg.Session.Key,
			"upload_id", u.cfg.Session.UploadID,
			"error", err)
	}
	if u.cfg.OnFailure != nil {
		u.cfg.OnFailure(err)
	}
	return true
}

// Err returns the latched error, if any.
func (u *Uploader) Err() error {
	if p := u.err.Load(); p != nil {
		return *p
	}
	return nil
}

// Stop prevents further attempts. Parts already in flight finish their
// current attempt; their failures are ignored.
func (u *Uploader) Stop() {
	u.stopped.Store(true)
}

// Wait blocks until every dispatched part finished and returns the latched error.
func (u *Uploader) Wait() error {
	u.wg.Wait()
	return u.Err()
}

// Outstanding returns the number of parts that have not finished.
func (u *Uploader) Outstanding() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.outstanding)
}

// Completed returns the uploaded parts sorted by part number.
func (u *Uploader) Completed() []s3types.CompletedPart {
	u.mu.Lock()
	parts := slices.Clone(u.completed)
	u.mu.Unlock()

	slices.SortFunc(parts, func(a, b s3types.CompletedPart) int {
		return int(a.PartNumber - b.PartNumber)
	})
	return parts
}
