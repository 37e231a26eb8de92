// Package errors provides error types and handling for multipart channel operations.
package errors

import (
	"errors"
	"fmt"
)

// Error represents a channel or store operation error with context about the
// operation that failed.
type Error struct {
	// Op is the operation that failed (e.g., "uploadPart", "complete", "readAt")
	Op string

	// Bucket is the bucket name (if applicable)
	Bucket string

	// Key is the object key (if applicable)
	Key string

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("s3channel.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("s3channel.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("s3channel.%s object %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("s3channel.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewObjectError creates a new Error with bucket and key context.
func NewObjectError(op, bucket, key string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

// Sentinel errors for channel and store failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrInvalidConfig indicates a required setting is missing or invalid
	ErrInvalidConfig = errors.New("s3channel: invalid configuration")

	// ErrHeaderOverflow indicates a write does not fit in the header region
	ErrHeaderOverflow = errors.New("s3channel: buffer does not fit in header")

	// ErrTooManyParts indicates the maximum number of parts has been reached
	ErrTooManyParts = errors.New("s3channel: reached max allowed number of parts")

	// ErrInvalidPosition indicates a position move the channel cannot honor
	ErrInvalidPosition = errors.New("s3channel: invalid position")

	// ErrTruncate indicates an attempt to truncate below the current position
	ErrTruncate = errors.New("s3channel: cannot truncate below current position")

	// ErrUploadFailed indicates a part could not be uploaded within the retry budget
	ErrUploadFailed = errors.New("s3channel: part upload failed")

	// ErrCompleteFailed indicates the completion call was rejected
	ErrCompleteFailed = errors.New("s3channel: complete multipart upload failed")

	// ErrAbortFailed indicates the abort call failed
	ErrAbortFailed = errors.New("s3channel: abort multipart upload failed")

	// ErrClosed indicates the channel has been closed
	ErrClosed = errors.New("s3channel: channel closed")

	// ErrCancelled indicates the upload was cancelled
	ErrCancelled = errors.New("s3channel: upload cancelled")

	// ErrAlreadyCompleted indicates the completion call was already issued
	ErrAlreadyCompleted = errors.New("s3channel: upload already completed")

	// ErrReadOnly indicates a write was attempted on a read channel
	ErrReadOnly = errors.New("s3channel: channel is read-only")

	// ErrWriteOnly indicates a read was attempted on a write channel
	ErrWriteOnly = errors.New("s3channel: channel is write-only")

	// ErrNotSupported indicates the operation is not supported by the channel
	ErrNotSupported = errors.New("s3channel: operation not supported")

	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = errors.New("s3channel: object not found")

	// ErrUploadNotFound indicates the multipart upload does not exist
	ErrUploadNotFound = errors.New("s3channel: multipart upload not found")

	// ErrAccessDenied indicates that access to the resource is denied
	ErrAccessDenied = errors.New("s3channel: access denied")

	// ErrInvalidRange indicates that the requested range is invalid
	ErrInvalidRange = errors.New("s3channel: invalid range")

	// ErrInvalidPart indicates the store rejected the part list
	ErrInvalidPart = errors.New("s3channel: invalid part")

	// ErrInvalidBucketName indicates that the bucket name is invalid
	ErrInvalidBucketName = errors.New("s3channel: invalid bucket name")

	// ErrInvalidObjectKey indicates that the object key is invalid
	ErrInvalidObjectKey = errors.New("s3channel: invalid object key")
)

// HeaderOverflowError reports a header write that does not fit in the header region.
type HeaderOverflowError struct {
	Size     int
	Offset   int64
	Capacity int
}

func (e *HeaderOverflowError) Error() string {
	return fmt.Sprintf("%v: %d bytes at offset %d exceed header size %d",
		ErrHeaderOverflow, e.Size, e.Offset, e.Capacity)
}

// Is reports whether target is ErrHeaderOverflow.
func (e *HeaderOverflowError) Is(target error) bool {
	return target == ErrHeaderOverflow
}

// PartUploadError reports a part that failed after exhausting its retry budget.
type PartUploadError struct {
	PartNumber int32
	Retries    int
	Err        error
}

func (e *PartUploadError) Error() string {
	return fmt.Sprintf("could not upload part %d after %d retries: %v", e.PartNumber, e.Retries, e.Err)
}

// Unwrap returns the last store error.
func (e *PartUploadError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrUploadFailed.
func (e *PartUploadError) Is(target error) bool {
	return target == ErrUploadFailed
}

// NewConfigError returns an ErrInvalidConfig error naming the offending setting.
func NewConfigError(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}

// IsObjectNotFound checks if an error indicates that an object was not found.
func IsObjectNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsHeaderOverflow checks if an error indicates a header region overflow.
func IsHeaderOverflow(err error) bool {
	return errors.Is(err, ErrHeaderOverflow)
}

// IsCancelled checks if an error indicates the upload was cancelled.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
