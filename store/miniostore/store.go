// Package miniostore implements s3types.Store on the low-level minio-go Core
// API, for MinIO and other S3-compatible servers.
package miniostore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/input-output-hk/catalyst-forge-libs/s3channel/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3channel/s3types"
)

// CoreAPI is the subset of *minio.Core used by Store.
type CoreAPI interface {
	NewMultipartUpload(ctx context.Context, bucket, object string, opts minio.PutObjectOptions) (string, error)
	PutObjectPart(
		ctx context.Context,
		bucket, object, uploadID string,
		partID int,
		data io.Reader,
		size int64,
		opts minio.PutObjectPartOptions,
	) (minio.ObjectPart, error)
	CompleteMultipartUpload(
		ctx context.Context,
		bucket, object, uploadID string,
		parts []minio.CompletePart,
		opts minio.PutObjectOptions,
	) (minio.UploadInfo, error)
	AbortMultipartUpload(ctx context.Context, bucket, object, uploadID string) error
	StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetObject(
		ctx context.Context,
		bucket, object string,
		opts minio.GetObjectOptions,
	) (io.ReadCloser, minio.ObjectInfo, http.Header, error)
}

var _ CoreAPI = (*minio.Core)(nil)

// Store talks to an S3-compatible server through minio-go.
type Store struct {
	core CoreAPI
}

// New connects to endpoint ("host:port") with static credentials.
func New(endpoint, accessKeyID, secretAccessKey string, secure bool) (*Store, error) {
	core, err := minio.NewCore(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, errors.NewError("store initialization", err)
	}
	return &Store{core: core}, nil
}

// NewWithCore creates a Store on an existing client.
func NewWithCore(core CoreAPI) *Store {
	return &Store{core: core}
}

// CreateMultipartUpload initiates a multipart upload.
func (s *Store) CreateMultipartUpload(
	ctx context.Context,
	bucket, key string,
	opts s3types.CreateOptions,
) (string, error) {
	id, err := s.core.NewMultipartUpload(ctx, bucket, key, minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		UserMetadata: opts.Metadata,
		StorageClass: string(opts.StorageClass),
	})
	if err != nil {
		return "", translate(err)
	}
	return id, nil
}

// UploadPart uploads one part and returns its ETag.
func (s *Store) UploadPart(
	ctx context.Context,
	session s3types.Session,
	partNumber int32,
	data []byte,
) (string, error) {
	part, err := s.core.PutObjectPart(ctx, session.Bucket, session.Key, session.UploadID,
		int(partNumber), bytes.NewReader(data), int64(len(data)), minio.PutObjectPartOptions{})
	if err != nil {
		return "", translate(err)
	}
	return part.ETag, nil
}

// CompleteMultipartUpload assembles the object from parts.
func (s *Store) CompleteMultipartUpload(
	ctx context.Context,
	session s3types.Session,
	parts []s3types.CompletedPart,
) error {
	completed := make([]minio.CompletePart, len(parts))
	for i, p := range parts {
		completed[i] = minio.CompletePart{PartNumber: int(p.PartNumber), ETag: p.ETag}
	}
	_, err := s.core.CompleteMultipartUpload(ctx, session.Bucket, session.Key, session.UploadID,
		completed, minio.PutObjectOptions{})
	return translate(err)
}

// AbortMultipartUpload discards the upload.
func (s *Store) AbortMultipartUpload(ctx context.Context, session s3types.Session) error {
	return translate(s.core.AbortMultipartUpload(ctx, session.Bucket, session.Key, session.UploadID))
}

// HeadObject returns object metadata.
func (s *Store) HeadObject(ctx context.Context, bucket, key string) (s3types.ObjectInfo, error) {
	info, err := s.core.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return s3types.ObjectInfo{}, translate(err)
	}
	return s3types.ObjectInfo{
		Size:         info.Size,
		ETag:         info.ETag,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
	}, nil
}

// GetObjectRange fetches bytes [start, end].
func (s *Store) GetObjectRange(
	ctx context.Context,
	bucket, key string,
	start, end int64,
) (io.ReadCloser, error) {
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(start, end); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrInvalidRange, err)
	}
	body, _, _, err := s.core.GetObject(ctx, bucket, key, opts)
	if err != nil {
		return nil, translate(err)
	}
	return body, nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}

	var sentinel error
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		sentinel = errors.ErrObjectNotFound
	case "NoSuchUpload":
		sentinel = errors.ErrUploadNotFound
	case "AccessDenied":
		sentinel = errors.ErrAccessDenied
	case "InvalidRange":
		sentinel = errors.ErrInvalidRange
	case "InvalidPart", "InvalidPartOrder", "EntityTooSmall":
		sentinel = errors.ErrInvalidPart
	case "NoSuchBucket", "InvalidBucketName":
		sentinel = errors.ErrInvalidBucketName
	default:
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

var _ s3types.Store = (*Store)(nil)
