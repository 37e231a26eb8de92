package s3channel

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/s3channel/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3channel/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/s3channel/s3types"
	"github.com/input-output-hk/catalyst-forge-libs/s3channel/store/memstore"
)

func TestCreate(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	w, err := Create(ctx, store, "my-bucket", "path/object.txt",
		WithConcurrency(2),
		WithContentType("text/plain"),
		WithMetadata(map[string]string{"owner": "tests"}),
		WithStorageClass(s3types.StorageClassStandard),
	)
	require.NoError(t, err)
	require.IsType(t, &Writer{}, w)
	assert.NotEmpty(t, w.Session().UploadID)
	assert.Equal(t, 1, store.InProgress())

	_, err = io.WriteString(w, "hello, world")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	info, err := store.HeadObject(ctx, "my-bucket", "path/object.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(12), info.Size)
	assert.Equal(t, "text/plain", info.ContentType)
}

func TestCreate_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		store   s3types.Store
		bucket  string
		key     string
		opts    []s3types.Option
		wantErr error
	}{
		{"invalid bucket", memstore.New(), "Bad_Bucket", "key", []s3types.Option{WithConcurrency(1)}, errors.ErrInvalidBucketName},
		{"empty key", memstore.New(), "bucket", "", []s3types.Option{WithConcurrency(1)}, errors.ErrInvalidObjectKey},
		{
			"invalid content type", memstore.New(), "bucket", "key",
			[]s3types.Option{WithConcurrency(1), WithContentType("not a mime type")}, errors.ErrInvalidConfig,
		},
		{
			"reserved metadata", memstore.New(), "bucket", "key",
			[]s3types.Option{WithConcurrency(1), WithMetadata(map[string]string{"x-amz-foo": "v"})}, errors.ErrInvalidConfig,
		},
		{"missing store", nil, "bucket", "key", []s3types.Option{WithConcurrency(1)}, errors.ErrInvalidConfig},
		{"missing executor", memstore.New(), "bucket", "key", nil, errors.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Create(context.Background(), tt.store, tt.bucket, tt.key, tt.opts...)
			assert.ErrorIs(t, err, tt.wantErr)
			if s, ok := tt.store.(*memstore.Store); ok {
				assert.Equal(t, 0, s.Stats().CreateMultipartUpload)
			}
		})
	}
}

func TestCreate_StoreFailure(t *testing.T) {
	store := &testutil.MockStore{
		CreateMultipartUploadFunc: func(context.Context, string, string, s3types.CreateOptions) (string, error) {
			return "", errors.ErrAccessDenied
		},
	}

	_, err := Create(context.Background(), store, "bucket", "key", WithConcurrency(1))
	assert.ErrorIs(t, err, errors.ErrAccessDenied)

	var chErr *errors.Error
	require.ErrorAs(t, err, &chErr)
	assert.Equal(t, "create", chErr.Op)
	assert.Equal(t, "bucket", chErr.Bucket)
}

func TestNewWriter_SelectsVariant(t *testing.T) {
	session := s3types.Session{Bucket: "bucket", Key: "key", UploadID: "upload"}
	store := &testutil.MockStore{}

	w, err := NewWriter(context.Background(), store, session, WithConcurrency(1))
	require.NoError(t, err)
	assert.IsType(t, &Writer{}, w)
	assert.False(t, w.HasDelayedHeader())
	w.Cancel()

	h, err := NewWriter(context.Background(), store, session, WithConcurrency(1), WithDelayedHeader(true))
	require.NoError(t, err)
	assert.IsType(t, &HeaderWriter{}, h)
	assert.True(t, h.HasDelayedHeader())
	assert.Equal(t, partSize, h.HeaderSize())
	h.Cancel()

	_, err = NewWriter(context.Background(), store, s3types.Session{}, WithConcurrency(1), WithDelayedHeader(true))
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestNewReader_SelectsVariant(t *testing.T) {
	store := memstore.New()
	store.PutObject("bucket", "key", []byte("object body"))

	r, err := NewReader(context.Background(), store, "bucket", "key")
	require.NoError(t, err)
	assert.IsType(t, &RangedReader{}, r)

	b, err := NewReader(context.Background(), store, "bucket", "key", WithBufferSize(4))
	require.NoError(t, err)
	assert.IsType(t, &BufferedReader{}, b)

	got, err := io.ReadAll(io.LimitReader(b, 4))
	require.NoError(t, err)
	assert.Equal(t, "obje", string(got))

	_, err = NewReader(context.Background(), store, "bucket", "missing", WithBufferSize(4))
	assert.ErrorIs(t, err, errors.ErrObjectNotFound)
}
