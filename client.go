package s3channel

import (
	"context"
	"slices"

	"github.com/input-output-hk/catalyst-forge-libs/s3channel/s3types"
)

// Client opens channels against one store with shared default options.
// Unless an executor is configured, all channels opened by a Client share a
// Pool of DefaultConcurrency workers.
//
// Example:
//
//	store, err := awss3.New(ctx, awss3.WithRegion("us-west-2"))
//	if err != nil {
//	    return err
//	}
//	client := s3channel.NewClient(store, s3channel.WithRetries(3))
//
//	w, err := client.Create(ctx, "my-bucket", "path/file.bin")
type Client struct {
	store s3types.Store
	opts  []s3types.Option
	pool  *Pool
}

// NewClient creates a Client. Options are applied before the per-call
// options of each channel.
func NewClient(store s3types.Store, opts ...s3types.Option) *Client {
	p := NewPool(DefaultConcurrency)
	return &Client{
		store: store,
		opts:  append([]s3types.Option{WithExecutor(p)}, opts...),
		pool:  p,
	}
}

// Store returns the underlying store.
func (c *Client) Store() s3types.Store {
	return c.store
}

// Create initiates a new multipart upload and opens a write channel on it.
func (c *Client) Create(ctx context.Context, bucket, key string, opts ...s3types.Option) (WriteChannel, error) {
	return Create(ctx, c.store, bucket, key, c.merge(opts)...)
}

// OpenWriter opens a write channel on an existing multipart upload.
func (c *Client) OpenWriter(ctx context.Context, session s3types.Session, opts ...s3types.Option) (WriteChannel, error) {
	return NewWriter(ctx, c.store, session, c.merge(opts)...)
}

// OpenReader opens a read channel on an existing object.
func (c *Client) OpenReader(ctx context.Context, bucket, key string, opts ...s3types.Option) (ReadChannel, error) {
	return NewReader(ctx, c.store, bucket, key, c.merge(opts)...)
}

// Wait blocks until every task scheduled on the shared pool finished,
// including aborts that channels issued in the background.
func (c *Client) Wait() {
	c.pool.Wait()
}

func (c *Client) merge(opts []s3types.Option) []s3types.Option {
	return append(slices.Clone(c.opts), opts...)
}
