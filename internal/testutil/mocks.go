// Package testutil provides test utilities and mocks for channel and store tests.
// This package is internal and should only be used for testing within the module.
package testutil

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/s3channel/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/s3channel/s3types"
)

// MockS3Client is a mock implementation of the S3API interface for testing.
// It allows customization of each S3 operation through function fields.
type MockS3Client struct {
	GetObjectFunc               func(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObjectFunc              func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	CreateMultipartUploadFunc   func(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPartFunc              func(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUploadFunc func(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUploadFunc    func(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// GetObject mocks the S3 GetObject operation.
func (m *MockS3Client) GetObject(
	ctx context.Context,
	params *s3.GetObjectInput,
	optFns ...func(*s3.Options),
) (*s3.GetObjectOutput, error) {
	if m.GetObjectFunc != nil {
		return m.GetObjectFunc(ctx, params, optFns...)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(nil))}, nil
}

// HeadObject mocks the S3 HeadObject operation.
func (m *MockS3Client) HeadObject(
	ctx context.Context,
	params *s3.HeadObjectInput,
	optFns ...func(*s3.Options),
) (*s3.HeadObjectOutput, error) {
	if m.HeadObjectFunc != nil {
		return m.HeadObjectFunc(ctx, params, optFns...)
	}
	return &s3.HeadObjectOutput{}, nil
}

// CreateMultipartUpload mocks the S3 CreateMultipartUpload operation.
func (m *MockS3Client) CreateMultipartUpload(
	ctx context.Context,
	params *s3.CreateMultipartUploadInput,
	optFns ...func(*s3.Options),
) (*s3.CreateMultipartUploadOutput, error) {
	if m.CreateMultipartUploadFunc != nil {
		return m.CreateMultipartUploadFunc(ctx, params, optFns...)
	}
	return &s3.CreateMultipartUploadOutput{}, nil
}

// UploadPart mocks the S3 UploadPart operation.
func (m *MockS3Client) UploadPart(
	ctx context.Context,
	params *s3.UploadPartInput,
	optFns ...func(*s3.Options),
) (*s3.UploadPartOutput, error) {
	if m.UploadPartFunc != nil {
		return m.UploadPartFunc(ctx, params, optFns...)
	}
	return &s3.UploadPartOutput{}, nil
}

// CompleteMultipartUpload mocks the S3 CompleteMultipartUpload operation.
func (m *MockS3Client) CompleteMultipartUpload(
	ctx context.Context,
	params *s3.CompleteMultipartUploadInput,
	optFns ...func(*s3.Options),
) (*s3.CompleteMultipartUploadOutput, error) {
	if m.CompleteMultipartUploadFunc != nil {
		return m.CompleteMultipartUploadFunc(ctx, params, optFns...)
	}
	return &s3.CompleteMultipartUploadOutput{}, nil
}

// AbortMultipartUpload mocks the S3 AbortMultipartUpload operation.
func (m *MockS3Client) AbortMultipartUpload(
	ctx context.Context,
	params *s3.AbortMultipartUploadInput,
	optFns ...func(*s3.Options),
) (*s3.AbortMultipartUploadOutput, error) {
	if m.AbortMultipartUploadFunc != nil {
		return m.AbortMultipartUploadFunc(ctx, params, optFns...)
	}
	return &s3.AbortMultipartUploadOutput{}, nil
}

// Ensure MockS3Client implements s3api.S3API interface
var _ s3api.S3API = (*MockS3Client)(nil)

// MockStore is a mock implementation of s3types.Store for testing.
// Each operation can be customized through function fields. Calls are
// counted so tests can assert how many requests a channel issued.
type MockStore struct {
	CreateMultipartUploadFunc   func(ctx context.Context, bucket, key string, opts s3types.CreateOptions) (string, error)
	UploadPartFunc              func(ctx context.Context, session s3types.Session, partNumber int32, data []byte) (string, error)
	CompleteMultipartUploadFunc func(ctx context.Context, session s3types.Session, parts []s3types.CompletedPart) error
	AbortMultipartUploadFunc    func(ctx context.Context, session s3types.Session) error
	HeadObjectFunc              func(ctx context.Context, bucket, key string) (s3types.ObjectInfo, error)
	GetObjectRangeFunc          func(ctx context.Context, bucket, key string, start, end int64) (io.ReadCloser, error)

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockStore) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[op]++
}

// Calls returns how many times op was invoked.
func (m *MockStore) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// CreateMultipartUpload mocks upload initiation.
func (m *MockStore) CreateMultipartUpload(
	ctx context.Context,
	bucket, key string,
	opts s3types.CreateOptions,
) (string, error) {
	m.record("CreateMultipartUpload")
	if m.CreateMultipartUploadFunc != nil {
		return m.CreateMultipartUploadFunc(ctx, bucket, key, opts)
	}
	return "upload-id", nil
}

// UploadPart mocks part upload.
func (m *MockStore) UploadPart(
	ctx context.Context,
	session s3types.Session,
	partNumber int32,
	data []byte,
) (string, error) {
	m.record("UploadPart")
	if m.UploadPartFunc != nil {
		return m.UploadPartFunc(ctx, session, partNumber, data)
	}
	return CalculateETag(data), nil
}

// CompleteMultipartUpload mocks upload completion.
func (m *MockStore) CompleteMultipartUpload(
	ctx context.Context,
	session s3types.Session,
	parts []s3types.CompletedPart,
) error {
	m.record("CompleteMultipartUpload")
	if m.CompleteMultipartUploadFunc != nil {
		return m.CompleteMultipartUploadFunc(ctx, session, parts)
	}
	return nil
}

// AbortMultipartUpload mocks upload abort.
func (m *MockStore) AbortMultipartUpload(ctx context.Context, session s3types.Session) error {
	m.record("AbortMultipartUpload")
	if m.AbortMultipartUploadFunc != nil {
		return m.AbortMultipartUploadFunc(ctx, session)
	}
	return nil
}

// HeadObject mocks the metadata probe.
func (m *MockStore) HeadObject(ctx context.Context, bucket, key string) (s3types.ObjectInfo, error) {
	m.record("HeadObject")
	if m.HeadObjectFunc != nil {
		return m.HeadObjectFunc(ctx, bucket, key)
	}
	return s3types.ObjectInfo{}, nil
}

// GetObjectRange mocks a ranged fetch.
func (m *MockStore) GetObjectRange(
	ctx context.Context,
	bucket, key string,
	start, end int64,
) (io.ReadCloser, error) {
	m.record("GetObjectRange")
	if m.GetObjectRangeFunc != nil {
		return m.GetObjectRangeFunc(ctx, bucket, key, start, end)
	}
	return io.NopCloser(bytes.NewReader(nil)), nil
}

// Ensure MockStore implements s3types.Store interface
var _ s3types.Store = (*MockStore)(nil)

// GoExecutor runs every task on its own goroutine without a bound.
type GoExecutor struct{}

// Go runs task asynchronously.
func (GoExecutor) Go(task func()) { go task() }
