package s3channel

import (
	"context"
	"io"

	"github.com/input-output-hk/catalyst-forge-libs/s3channel/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3channel/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/s3channel/s3types"
)

// WriteChannel is implemented by Writer and HeaderWriter.
type WriteChannel interface {
	io.WriteCloser
	io.WriterAt
	io.Seeker

	SetPosition(pos int64) error
	Position() int64
	Size() int64
	Skip(n int64) error
	Truncate(size int64) error

	PartSize() int
	HasDelayedHeader() bool
	HeaderSize() int
	Session() s3types.Session

	Cancel() *Cancellation
	Cancellation() *Cancellation
	IsOpen() bool
}

// ReadChannel is implemented by RangedReader and BufferedReader.
type ReadChannel interface {
	io.ReadCloser
	io.ReaderAt
	io.Seeker

	SetPosition(pos int64) error
	Position() int64
	Size() int64
	IsOpen() bool
}

var (
	_ WriteChannel = (*Writer)(nil)
	_ WriteChannel = (*HeaderWriter)(nil)
	_ ReadChannel  = (*RangedReader)(nil)
	_ ReadChannel  = (*BufferedReader)(nil)
)

// NewWriter opens a write channel on an existing multipart upload. It returns
// a *HeaderWriter when WithDelayedHeader(true) is given and a *Writer otherwise.
//
// Example:
//
//	w, err := s3channel.NewWriter(ctx, store, s3types.Session{
//	    Bucket:   "my-bucket",
//	    Key:      "data/file.bin",
//	    UploadID: uploadID,
//	}, s3channel.WithConcurrency(4), s3channel.WithRetries(3))
func NewWriter(
	ctx context.Context,
	store s3types.Store,
	session s3types.Session,
	opts ...s3types.Option,
) (WriteChannel, error) {
	return openWriter(ctx, store, session, newConfig(opts))
}

func openWriter(
	ctx context.Context,
	store s3types.Store,
	session s3types.Session,
	cfg *s3types.Config,
) (WriteChannel, error) {
	if cfg.DelayedHeader {
		h, err := newHeaderWriter(ctx, store, session, cfg)
		if err != nil {
			return nil, err
		}
		return h, nil
	}

	w, err := newWriter(ctx, store, session, cfg, 1)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Create initiates a new multipart upload for bucket/key and opens a write
// channel on it. Content type, metadata and storage class options apply to
// the new upload. If the channel cannot be opened the upload is aborted.
func Create(
	ctx context.Context,
	store s3types.Store,
	bucket, key string,
	opts ...s3types.Option,
) (WriteChannel, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, err
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return nil, err
	}

	cfg := newConfig(opts)
	if err := validation.ValidateCreateOptions(cfg.Create); err != nil {
		return nil, err
	}
	switch {
	case store == nil:
		return nil, errors.NewConfigError("object store must be set")
	case cfg.Executor == nil:
		return nil, errors.NewConfigError("executor must be set")
	}

	uploadID, err := store.CreateMultipartUpload(ctx, bucket, key, cfg.Create)
	if err != nil {
		return nil, errors.NewObjectError("create", bucket, key, err)
	}
	if cfg.Logger != nil {
		cfg.Logger.InfoContext(ctx, "multipart upload initiated",
			"bucket", bucket,
			"key", key,
			"upload_id", uploadID)
	}

	session := s3types.Session{Bucket: bucket, Key: key, UploadID: uploadID}
	ch, err := openWriter(ctx, store, session, cfg)
	if err != nil {
		_ = store.AbortMultipartUpload(ctx, session)
		return nil, err
	}
	return ch, nil
}

// NewReader opens a read channel on bucket/key. It returns a *BufferedReader
// when WithBufferSize is given a positive size and a *RangedReader otherwise.
func NewReader(
	ctx context.Context,
	store s3types.Store,
	bucket, key string,
	opts ...s3types.Option,
) (ReadChannel, error) {
	cfg := newConfig(opts)
	if cfg.BufferSize > 0 {
		b, err := newBufferedReader(ctx, store, bucket, key, cfg)
		if err != nil {
			return nil, err
		}
		return b, nil
	}

	r, err := newRangedReader(ctx, store, bucket, key, cfg)
	if err != nil {
		return nil, err
	}
	return r, nil
}
