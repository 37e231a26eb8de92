// Package awss3 implements s3types.Store on the AWS SDK for Go v2.
//
// Service error codes are translated to the sentinel errors of the errors
// package so channels and callers can classify failures with errors.Is.
package awss3

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/input-output-hk/catalyst-forge-libs/s3channel/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3channel/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/s3channel/s3types"
)

// Store talks to S3 through an s3api.S3API client.
type Store struct {
	client s3api.S3API
}

// New creates a Store with a client built from the default AWS credential
// chain and the given options.
//
// Example:
//
//	store, err := awss3.New(ctx,
//	    awss3.WithRegion("us-west-2"),
//	    awss3.WithMaxRetries(5),
//	)
func New(ctx context.Context, opts ...Option) (*Store, error) {
	o := &options{
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(o)
	}

	var cfg aws.Config
	if o.awsConfig != nil {
		cfg = *o.awsConfig
	} else {
		var loadOpts []func(*config.LoadOptions) error
		if o.accessKeyID != "" {
			loadOpts = append(loadOpts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(o.accessKeyID, o.secretAccessKey, o.sessionToken)))
		}

		var err error
		cfg, err = config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, errors.NewError("store initialization", err)
		}
	}

	if o.region != "" {
		cfg.Region = o.region
	} else if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if o.maxRetries > 0 {
		cfg.RetryMaxAttempts = o.maxRetries
	}

	var s3Opts []func(*s3.Options)
	if o.endpoint != "" {
		s3Opts = append(s3Opts, func(so *s3.Options) {
			so.BaseEndpoint = aws.String(o.endpoint)
		})
	}
	if o.forcePathStyle {
		s3Opts = append(s3Opts, func(so *s3.Options) {
			so.UsePathStyle = true
		})
	}

	return &Store{client: s3.NewFromConfig(cfg, s3Opts...)}, nil
}

// NewWithClient creates a Store on a custom S3API implementation.
// This is primarily used for testing with mocked clients.
func NewWithClient(client s3api.S3API) *Store {
	return &Store{client: client}
}

// CreateMultipartUpload initiates a multipart upload.
func (s *Store) CreateMultipartUpload(
	ctx context.Context,
	bucket, key string,
	opts s3types.CreateOptions,
) (string, error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}
	if opts.StorageClass != "" {
		input.StorageClass = types.StorageClass(opts.StorageClass)
	}

	out, err := s.client.CreateMultipartUpload(ctx, input)
	if err != nil {
		return "", translate(err)
	}
	if aws.ToString(out.UploadId) == "" {
		return "", fmt.Errorf("create multipart upload for %s/%s returned no upload id", bucket, key)
	}
	return aws.ToString(out.UploadId), nil
}

// UploadPart uploads one part and returns its ETag.
func (s *Store) UploadPart(
	ctx context.Context,
	session s3types.Session,
	partNumber int32,
	data []byte,
) (string, error) {
	out, err := s.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(session.Bucket),
		Key:           aws.String(session.Key),
		UploadId:      aws.String(session.UploadID),
		PartNumber:    aws.Int32(partNumber),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", translate(err)
	}
	return aws.ToString(out.ETag), nil
}

// CompleteMultipartUpload assembles the object from parts.
func (s *Store) CompleteMultipartUpload(
	ctx context.Context,
	session s3types.Session,
	parts []s3types.CompletedPart,
) error {
	completed := make([]types.CompletedPart, len(parts))
	for i, p := range parts {
		completed[i] = types.CompletedPart{
			PartNumber: aws.Int32(p.PartNumber),
			ETag:       aws.String(p.ETag),
		}
	}

	_, err := s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(session.Bucket),
		Key:      aws.String(session.Key),
		UploadId: aws.String(session.UploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	return translate(err)
}

// AbortMultipartUpload discards the upload.
func (s *Store) AbortMultipartUpload(ctx context.Context, session s3types.Session) error {
	_, err := s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(session.Bucket),
		Key:      aws.String(session.Key),
		UploadId: aws.String(session.UploadID),
	})
	return translate(err)
}

// HeadObject returns object metadata.
func (s *Store) HeadObject(ctx context.Context, bucket, key string) (s3types.ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return s3types.ObjectInfo{}, translate(err)
	}
	return s3types.ObjectInfo{
		Size:         aws.ToInt64(out.ContentLength),
		ETag:         aws.ToString(out.ETag),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

// GetObjectRange fetches bytes [start, end] with an HTTP range request.
func (s *Store) GetObjectRange(
	ctx context.Context,
	bucket, key string,
	start, end int64,
) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", start, end)),
	})
	if err != nil {
		return nil, translate(err)
	}
	return out.Body, nil
}

// translate maps S3 service error codes to sentinel errors. The SDK
// error stays in the chain.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if !stderrors.As(err, &apiErr) {
		return err
	}

	var sentinel error
	switch apiErr.ErrorCode() {
	case "NoSuchKey", "NotFound":
		sentinel = errors.ErrObjectNotFound
	case "NoSuchUpload":
		sentinel = errors.ErrUploadNotFound
	case "AccessDenied", "Forbidden":
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
