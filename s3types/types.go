// Package s3types provides shared type definitions for the s3channel module.
package s3types

import (
	"context"
	"io"
	"log/slog"
	"time"
)

const (
	// MinPartSize is the smallest size accepted for a non-final part.
	MinPartSize = 5 * 1024 * 1024

	// MaxParts is the highest part number a multipart upload accepts.
	MaxParts = 10000
)

// StorageClass represents the S3 storage class for objects.
type StorageClass string

// Predefined S3 storage classes
const (
	// StorageClassStandard is the default S3 storage class
	StorageClassStandard StorageClass = "STANDARD"

	// StorageClassStandardIA provides infrequent access storage
	StorageClassStandardIA StorageClass = "STANDARD_IA"

	// StorageClassOneZoneIA provides one zone infrequent access storage
	StorageClassOneZoneIA StorageClass = "ONEZONE_IA"

	// StorageClassIntelligentTiering provides intelligent tiering storage
	StorageClassIntelligentTiering StorageClass = "INTELLIGENT_TIERING"

	// StorageClassGlacierIR provides Glacier Instant Retrieval storage
	StorageClassGlacierIR StorageClass = "GLACIER_IR"
)

// Session identifies an in-progress multipart upload.
type Session struct {
	Bucket   string
	Key      string
	UploadID string
}

// CompletedPart is a successfully uploaded part as presented to the
// completion call.
type CompletedPart struct {
	PartNumber int32
	ETag       string
}

// ObjectInfo contains the object metadata needed by readers.
type ObjectInfo struct {
	// Size is the object size in bytes
	Size int64

	// ETag is the entity tag for the object
	ETag string

	// ContentType is the MIME type of the object
	ContentType string

	// LastModified is when the object was last modified
	LastModified time.Time
}

// CreateOptions carries the settings applied when a multipart upload is initiated.
type CreateOptions struct {
	ContentType  string
	Metadata     map[string]string
	StorageClass StorageClass
}

// Store is the object store capability channels are built on.
// Implementations must be safe for concurrent use.
type Store interface {
	// CreateMultipartUpload initiates an upload and returns its id.
	CreateMultipartUpload(ctx context.Context, bucket, key string, opts CreateOptions) (string, error)

	// UploadPart uploads one part and returns its ETag. The store must not
	// retain data after returning.
	UploadPart(ctx context.Context, session Session, partNumber int32, data []byte) (string, error)

	// CompleteMultipartUpload assembles the object from parts sorted by number.
	CompleteMultipartUpload(ctx context.Context, session Session, parts []CompletedPart) error

	// AbortMultipartUpload discards the upload and all uploaded parts.
	AbortMultipartUpload(ctx context.Context, session Session) error

	// HeadObject returns object metadata.
	HeadObject(ctx context.Context, bucket, key string) (ObjectInfo, error)

	// GetObjectRange returns bytes [start, end] of an object, end inclusive.
	GetObjectRange(ctx context.Context, bucket, key string, start, end int64) (io.ReadCloser, error)
}

// Executor runs tasks with bounded parallelism. Go must not block the caller
// on task execution.
type Executor interface {
	Go(task func())
}

// MetricsRecorder records channel-level events.
// This allows channels to be decoupled from the metrics package.
type MetricsRecorder interface {
	RecordPartUpload(durationSeconds float64, success bool, bytes int64)
	RecordPartRetry()
	RecordCompletion(durationSeconds float64, success bool)
	RecordAbort(success bool)
	RecordRangeFetch(durationSeconds float64, success bool, bytes int64)
	RecordCacheHit()
	RecordCacheMiss()
}

// Config holds the settings shared by write and read channels.
type Config struct {
	// PartSize is the part size in bytes. Values below MinPartSize are raised.
	PartSize int

	// Retries is the number of extra attempts per part after the first failure.
	Retries int

	// RetryBackoff is the delay before the first retry; it doubles per attempt.
	RetryBackoff time.Duration

	// DelayedHeader reserves part 1 for a header written at any time before close.
	DelayedHeader bool

	// Executor runs part uploads and the abort call.
	Executor Executor

	// BufferSize is the read cache window size. Zero disables caching.
	BufferSize int

	// Logger receives channel events. Nil disables logging.
	Logger *slog.Logger

	// Metrics receives channel events. Nil disables metrics.
	Metrics MetricsRecorder

	// Create is applied when a new multipart upload is initiated.
	Create CreateOptions
}

// Option is a functional option for configuring channels.
type Option func(*Config)
