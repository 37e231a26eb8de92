package s3channel

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/s3channel/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3channel/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/s3channel/s3types"
	"github.com/input-output-hk/catalyst-forge-libs/s3channel/store/memstore"
)

const partSize = s3types.MinPartSize

var errBoom = stderrors.New("boom")

func newSession(t *testing.T, store s3types.Store) s3types.Session {
	t.Helper()
	id, err := store.CreateMultipartUpload(context.Background(), "bucket", "key", s3types.CreateOptions{})
	require.NoError(t, err)
	return s3types.Session{Bucket: "bucket", Key: "key", UploadID: id}
}

func newTestWriter(t *testing.T, store s3types.Store, opts ...s3types.Option) *Writer {
	t.Helper()
	opts = append([]s3types.Option{WithExecutor(NewPool(4))}, opts...)
	w, err := NewMultipartWriter(context.Background(), store, newSession(t, store), opts...)
	require.NoError(t, err)
	return w
}

func waitCancellation(t *testing.T, c *Cancellation) error {
	t.Helper()
	require.NotNil(t, c)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.Wait(ctx)
}

func TestWriter_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		chunk     int
		wantParts int
	}{
		{"single small write", 100, 100, 1},
		{"exactly one part", partSize, partSize, 1},
		{"one byte over a part", partSize + 1, 4096, 2},
		{"several parts in one write", 2*partSize + 2048, 2*partSize + 2048, 3},
		{"odd chunk size", 2*partSize + 17, 333333, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memstore.New()
			w := newTestWriter(t, store)
			data := testutil.GenerateSequentialData(tt.size)

			for off := 0; off < len(data); off += tt.chunk {
				end := min(off+tt.chunk, len(data))
				n, err := w.Write(data[off:end])
				require.NoError(t, err)
				require.Equal(t, end-off, n)
			}
			assert.Equal(t, int64(tt.size), w.Size())
			assert.Equal(t, int64(tt.size), w.Position())

			require.NoError(t, w.Close())
			assert.False(t, w.IsOpen())

			got, ok := store.Object("bucket", "key")
			require.True(t, ok)
			assert.True(t, bytes.Equal(data, got))
			assert.Equal(t, tt.wantParts, store.Stats().UploadPart)
			assert.Equal(t, 0, store.InProgress())
		})
	}
}

func TestWriter_ExactFillWaitsForMoreBytes(t *testing.T) {
	store := &testutil.MockStore{}
	w := newTestWriter(t, store)

	_, err := w.Write(make([]byte, partSize))
	require.NoError(t, err)
	assert.Equal(t, int32(1), w.nextPart, "a full buffer is not dispatched")

	_, err = w.Write([]byte{1})
	require.NoError(t, err)
	assert.Equal(t, int32(2), w.nextPart)

	require.NoError(t, w.Close())
	assert.Equal(t, 2, store.Calls("UploadPart"))
	assert.Equal(t, 1, store.Calls("CompleteMultipartUpload"))
}

func TestWriter_PartSizeFloor(t *testing.T) {
	tests := []struct {
		name string
		size int
		want int
	}{
		{"below floor", 1024, partSize},
		{"zero", 0, partSize},
		{"above floor", 8 * 1024 * 1024, 8 * 1024 * 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWriter(t, &testutil.MockStore{}, WithPartSize(tt.size))
			assert.Equal(t, tt.want, w.PartSize())
			assert.False(t, w.HasDelayedHeader())
			assert.Equal(t, 0, w.HeaderSize())
			w.Cancel()
		})
	}
}

func TestWriter_CompletesWithSortedParts(t *testing.T) {
	var got []s3types.CompletedPart
	store := &testutil.MockStore{
		UploadPartFunc: func(ctx context.Context, s s3types.Session, n int32, data []byte) (string, error) {
			// Earlier parts finish last.
			time.Sleep(time.Duration(5-n) * 10 * time.Millisecond)
			return testutil.CalculateETag(data), nil
		},
		CompleteMultipartUploadFunc: func(ctx context.Context, s s3types.Session, parts []s3types.CompletedPart) error {
			got = parts
			return nil
		},
	}
	w := newTestWriter(t, store, WithConcurrency(4))

	_, err := w.Write(make([]byte, 3*partSize+1))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.Len(t, got, 4)
	for i, p := range got {
		assert.Equal(t, int32(i+1), p.PartNumber)
	}
}

func TestWriter_RetriesFailedParts(t *testing.T) {
	store := memstore.New()
	var failures atomic.Int32
	store.UploadPartHook = func(_ s3types.Session, n int32, _ []byte) error {
		if n == 1 && failures.Add(1) <= 2 {
			return errBoom
		}
		return nil
	}
	w := newTestWriter(t, store, WithRetries(2), WithRetryBackoff(time.Millisecond))
	data := testutil.GenerateRandomData(partSize + 10)

	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got, ok := store.Object("bucket", "key")
	require.True(t, ok)
	assert.Equal(t, data, got)
	assert.Equal(t, int32(3), failures.Load())
	assert.Nil(t, w.Cancellation())
}

func TestWriter_FailureAbortsOnce(t *testing.T) {
	store := memstore.New()
	store.UploadPartHook = func(_ s3types.Session, n int32, _ []byte) error {
		if n >= 2 {
			return errBoom
		}
		return nil
	}
	w := newTestWriter(t, store, WithRetries(1))

	for i := 0; i < 4; i++ {
		if _, err := w.Write(make([]byte, partSize)); err != nil {
			break
		}
	}

	err := w.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUploadFailed)
	assert.ErrorIs(t, err, errBoom)

	var partErr *errors.PartUploadError
	require.ErrorAs(t, err, &partErr)
	assert.Equal(t, 1, partErr.Retries)

	require.NoError(t, waitCancellation(t, w.Cancellation()))
	assert.Equal(t, 1, store.Stats().AbortMultipartUpload)
	assert.Equal(t, 0, store.Stats().CompleteMultipartUpload)
	assert.Equal(t, 0, store.InProgress())

	_, err = w.Write([]byte("more"))
	assert.ErrorIs(t, err, errors.ErrUploadFailed)
	assert.Error(t, w.Close())
	assert.Equal(t, 1, store.Stats().AbortMultipartUpload)
}

func TestWriter_CompletionFailureAborts(t *testing.T) {
	store := memstore.New()
	store.CompleteHook = func(s3types.Session, []s3types.CompletedPart) error {
		return errBoom
	}
	w := newTestWriter(t, store)

	_, err := w.Write([]byte("payload"))
	require.NoError(t, err)

	err = w.Close()
	assert.ErrorIs(t, err, errors.ErrCompleteFailed)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, errors.KindCompletion, errors.KindOf(err))

	require.NoError(t, waitCancellation(t, w.Cancellation()))
	assert.Equal(t, 1, store.Stats().AbortMultipartUpload)
}

func TestWriter_Cancel(t *testing.T) {
	store := memstore.New()
	w := newTestWriter(t, store)

	_, err := w.Write(make([]byte, partSize+100))
	require.NoError(t, err)

	c := w.Cancel()
	assert.Same(t, c, w.Cancel(), "cancel is idempotent")
	assert.Same(t, c, w.Cancellation())
	assert.False(t, w.IsOpen())
	require.NoError(t, waitCancellation(t, c))

	_, err = w.Write([]byte("x"))
	assert.ErrorIs(t, err, errors.ErrCancelled)
	assert.ErrorIs(t, w.Close(), errors.ErrCancelled)

	assert.Equal(t, 1, store.Stats().AbortMultipartUpload)
	assert.Equal(t, 0, store.Stats().CompleteMultipartUpload)
	assert.Equal(t, 0, store.InProgress())
}

func TestWriter_CancelFailureSurfacesOnHandle(t *testing.T) {
	store := memstore.New()
	store.AbortHook = func(s3types.Session) error { return errBoom }
	w := newTestWriter(t, store)

	err := waitCancellation(t, w.Cancel())
	assert.ErrorIs(t, err, errors.ErrAbortFailed)
	assert.ErrorIs(t, err, errBoom)
}

func TestWriter_CancelAfterClose(t *testing.T) {
	store := memstore.New()
	w := newTestWriter(t, store)

	_, err := w.Write([]byte("done"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	c := w.Cancel()
	require.NotNil(t, c)
	assert.ErrorIs(t, waitCancellation(t, c), errors.ErrAlreadyCompleted)
	assert.Equal(t, 0, store.Stats().AbortMultipartUpload)

	_, ok := store.Object("bucket", "key")
	assert.True(t, ok)
}

func TestWriter_CloseTwice(t *testing.T) {
	store := memstore.New()
	w := newTestWriter(t, store)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Equal(t, 1, store.Stats().CompleteMultipartUpload)

	_, err := w.Write([]byte("late"))
	assert.ErrorIs(t, err, errors.ErrClosed)
}

func TestWriter_EmptyObject(t *testing.T) {
	store := memstore.New()
	w := newTestWriter(t, store)

	require.NoError(t, w.Close())

	got, ok := store.Object("bucket", "key")
	require.True(t, ok)
	assert.Empty(t, got)
	assert.Equal(t, 1, store.Stats().UploadPart)
}

func TestWriter_TooManyParts(t *testing.T) {
	store := &testutil.MockStore{}
	w := newTestWriter(t, store)
	w.nextPart = s3types.MaxParts

	n, err := w.Write(make([]byte, partSize+1))
	assert.Equal(t, partSize, n)
	assert.ErrorIs(t, err, errors.ErrTooManyParts)
	assert.Equal(t, errors.KindCapacity, errors.KindOf(err))
	assert.Equal(t, int64(partSize), w.Position())

	require.NoError(t, w.uploader.Wait())
	uploads := store.Calls("UploadPart")
	assert.Equal(t, 1, uploads, "only the last allowed part was dispatched")

	n, err = w.Write([]byte{1})
	assert.Zero(t, n)
	assert.ErrorIs(t, err, errors.ErrTooManyParts)
	require.NoError(t, w.uploader.Wait())
	assert.Equal(t, uploads, store.Calls("UploadPart"), "a rejected write starts no upload")
	w.Cancel()
}

func TestWriter_Positioning(t *testing.T) {
	store := memstore.New()
	w := newTestWriter(t, store)

	_, err := w.Write([]byte("abc"))
	require.NoError(t, err)

	require.NoError(t, w.SetPosition(3), "same position is a no-op")
	assert.ErrorIs(t, w.SetPosition(1), errors.ErrInvalidPosition)

	pos, err := w.Seek(2, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(5), pos)

	pos, err = w.Seek(0, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(5), pos)

	_, err = w.Seek(0, 42)
	assert.ErrorIs(t, err, errors.ErrInvalidPosition)

	require.NoError(t, w.Skip(1))
	assert.ErrorIs(t, w.Truncate(2), errors.ErrTruncate)
	require.NoError(t, w.Truncate(8))
	_, err = w.Write([]byte("z"))
	require.NoError(t, err)

	_, err = w.WriteAt([]byte("x"), 0)
	assert.ErrorIs(t, err, errors.ErrNotSupported)

	require.NoError(t, w.Close())
	got, _ := store.Object("bucket", "key")
	assert.Equal(t, []byte("abc\x00\x00\x00\x00\x00z"), got)
}

func TestWriter_Validation(t *testing.T) {
	store := &testutil.MockStore{}
	valid := s3types.Session{Bucket: "b", Key: "k", UploadID: "u"}

	tests := []struct {
		name    string
		store   s3types.Store
		session s3types.Session
		opts    []s3types.Option
	}{
		{"missing bucket", store, s3types.Session{Key: "k", UploadID: "u"}, []s3types.Option{WithConcurrency(1)}},
		{"missing upload id", store, s3types.Session{Bucket: "b", Key: "k"}, []s3types.Option{WithConcurrency(1)}},
		{"missing key", store, s3types.Session{Bucket: "b", UploadID: "u"}, []s3types.Option{WithConcurrency(1)}},
		{"missing store", nil, valid, []s3types.Option{WithConcurrency(1)}},
		{"missing executor", store, valid, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMultipartWriter(context.Background(), tt.store, tt.session, tt.opts...)
			assert.ErrorIs(t, err, errors.ErrInvalidConfig)
			assert.Equal(t, errors.KindConfiguration, errors.KindOf(err))
		})
	}
}

func TestWriter_CancelDuringUploads(t *testing.T) {
	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(1)
	var once sync.Once
	store := &testutil.MockStore{
		UploadPartFunc: func(ctx context.Context, s s3types.Session, n int32, data []byte) (string, error) {
			once.Do(started.Done)
			<-release
			return "", errBoom
		},
	}
	w := newTestWriter(t, store, WithRetries(3))

	_, err := w.Write(make([]byte, partSize+1))
	require.NoError(t, err)
	started.Wait()

	c := w.Cancel()
	close(release)
	require.NoError(t, waitCancellation(t, c))

	// The in-flight failure after cancel is neither retried nor latched.
	assert.ErrorIs(t, w.Close(), errors.ErrCancelled)
	assert.Equal(t, 1, store.Calls("UploadPart"))
	assert.Equal(t, 1, store.Calls("AbortMultipartUpload"))
}

func TestWriter_ThreePartsAndARemainder(t *testing.T) {
	var mu sync.Mutex
	sizes := map[int32]int{}
	var completed []s3types.CompletedPart
	store := &testutil.MockStore{
		UploadPartFunc: func(ctx context.Context, s s3types.Session, n int32, data []byte) (string, error) {
			mu.Lock()
			sizes[n] = len(data)
			mu.Unlock()
			return testutil.CalculateETag(data), nil
		},
		CompleteMultipartUploadFunc: func(ctx context.Context, s s3types.Session, parts []s3types.CompletedPart) error {
			completed = parts
			return nil
		},
	}
	w := newTestWriter(t, store, WithPartSize(1024))

	for i := 0; i < 3; i++ {
		_, err := w.Write(make([]byte, partSize))
		require.NoError(t, err)
	}
	_, err := w.Write(make([]byte, 2048))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, map[int32]int{1: partSize, 2: partSize, 3: partSize, 4: 2048}, sizes)
	require.Len(t, completed, 4)
	for i, p := range completed {
		assert.Equal(t, int32(i+1), p.PartNumber)
	}
	assert.Equal(t, int64(3*partSize+2048), w.Size())
}
