package s3channel

import (
	"context"
)

// Cancellation tracks an abort request. It resolves once the abort call
// returned; Err then reports its outcome.
type Cancellation struct {
	done chan struct{}
	err  error
}

func newCancellation() *Cancellation {
	return &Cancellation{done: make(chan struct{})}
}

func resolvedCancellation(err error) *Cancellation {
	c := newCancellation()
	c.resolve(err)
	return c
}

func (c *Cancellation) resolve(err error) {
	c.err = err
	close(c.done)
}

// Done returns a channel closed when the abort call returned.
func (c *Cancellation) Done() <-chan struct{} {
	return c.done
}

// Err returns the abort outcome, or nil while it is still running.
func (c *Cancellation) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Wait blocks until the abort call returned or ctx is done.
func (c *Cancellation) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
