package s3channel

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/input-output-hk/catalyst-forge-libs/s3channel/s3types"
)

// Pool is a bounded executor. At most size tasks run at once; Go never blocks
// the caller.
type Pool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// NewPool creates a pool running at most size tasks concurrently.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Go schedules task. It returns immediately.
func (p *Pool) Go(task func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		// Acquire with a background context cannot fail.
		_ = p.sem.Acquire(context.Background(), 1)
		defer p.sem.Release(1)
		task()
	}()
}

// Wait blocks until every scheduled task has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}

var _ s3types.Executor = (*Pool)(nil)
