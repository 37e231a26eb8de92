package s3channel

import (
	"log/slog"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/s3channel/s3types"
)

// DefaultConcurrency is the pool size a Client uses when none is configured.
const DefaultConcurrency = 5

// WithPartSize sets the part size for multipart uploads.
// Default is 5 MiB. Values below 5 MiB are raised to 5 MiB.
func WithPartSize(partSize int) s3types.Option {
	return func(c *s3types.Config) {
		c.PartSize = partSize
	}
}

// WithRetries sets how many times a failed part upload is retried before the
// whole upload is aborted. Default is 0.
func WithRetries(retries int) s3types.Option {
	return func(c *s3types.Config) {
		if retries >= 0 {
			c.Retries = retries
		}
	}
}

// WithRetryBackoff sets the delay before the first retry of a part. The delay
// doubles on each further attempt. Default is no delay.
func WithRetryBackoff(backoff time.Duration) s3types.Option {
	return func(c *s3types.Config) {
		c.RetryBackoff = backoff
	}
}

// WithDelayedHeader reserves part 1 for a header that can be written at any
// time before close. The header region is one part long.
func WithDelayedHeader(enabled bool) s3types.Option {
	return func(c *s3types.Config) {
		c.DelayedHeader = enabled
	}
}

// WithExecutor sets the executor that runs part uploads and the abort call.
func WithExecutor(executor s3types.Executor) s3types.Option {
	return func(c *s3types.Config) {
		c.Executor = executor
	}
}

// WithConcurrency runs uploads on a dedicated Pool of the given size.
// It replaces any executor set earlier.
func WithConcurrency(concurrency int) s3types.Option {
	return func(c *s3types.Config) {
		if concurrency > 0 {
			c.Executor = NewPool(concurrency)
		}
	}
}

// WithBufferSize enables the read cache window with the given size in bytes.
func WithBufferSize(size int) s3types.Option {
	return func(c *s3types.Config) {
		if size >= 0 {
			c.BufferSize = size
		}
	}
}

// WithLogger sets the logger for channel events. A nil logger disables logging.
func WithLogger(logger *slog.Logger) s3types.Option {
	return func(c *s3types.Config) {
		c.Logger = logger
	}
}

// WithMetrics sets the recorder for channel metrics.
func WithMetrics(metrics s3types.MetricsRecorder) s3types.Option {
	return func(c *s3types.Config) {
		c.Metrics = metrics
	}
}

// WithContentType sets the content type of uploads initiated by Create.
func WithContentType(contentType string) s3types.Option {
	return func(c *s3types.Config) {
		c.Create.ContentType = contentType
	}
}

// WithMetadata sets user metadata on uploads initiated by Create.
func WithMetadata(metadata map[string]string) s3types.Option {
	return func(c *s3types.Config) {
		c.Create.Metadata = metadata
	}
}

// WithStorageClass sets the storage class of uploads initiated by Create.
func WithStorageClass(class s3types.StorageClass) s3types.Option {
	return func(c *s3types.Config) {
		c.Create.StorageClass = class
	}
}

func newConfig(opts []s3types.Option) *s3types.Config {
	cfg := &s3types.Config{
		PartSize: s3types.MinPartSize,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.PartSize < s3types.MinPartSize {
		cfg.PartSize = s3types.MinPartSize
	}
	return cfg
}
