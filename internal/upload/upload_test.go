package upload

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/s3channel/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3channel/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/s3channel/s3types"
)

var testSession = s3types.Session{Bucket: "bucket", Key: "key", UploadID: "upload"}

func TestUploader_CompletedSorted(t *testing.T) {
	store := &testutil.MockStore{}
	u := NewUploader(Config{Store: store, Session: testSession, Executor: testutil.GoExecutor{}})

	for _, n := range []int32{3, 1, 5, 2, 4} {
		u.Dispatch(context.Background(), Part{Number: n, Data: []byte{byte(n)}})
	}

	require.NoError(t, u.Wait())
	assert.Equal(t, 0, u.Outstanding())

	parts := u.Completed()
	require.Len(t, parts, 5)
	for i, p := range parts {
		assert.Equal(t, int32(i+1), p.PartNumber)
		assert.Equal(t, testutil.CalculateETag([]byte{byte(i + 1)}), p.ETag)
	}
}

func TestUploader_Retries(t *testing.T) {
	tests := []struct {
		name      string
		retries   int
		failures  int
		wantErr   bool
		wantCalls int
	}{
		{"no retries, success", 0, 0, false, 1},
		{"no retries, failure", 0, 1, true, 1},
		{"recovers within budget", 2, 2, false, 3},
		{"budget exhausted", 2, 3, true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			store := &testutil.MockStore{
				UploadPartFunc: func(ctx context.Context, s s3types.Session, n int32, data []byte) (string, error) {
					if int(calls.Add(1)) <= tt.failures {
						return "", stderrors.New("boom")
					}
					return "etag", nil
				},
			}
			var failures atomic.Int32
			u := NewUploader(Config{
				Store:     store,
				Session:   testSession,
				Executor:  testutil.GoExecutor{},
				Retries:   tt.retries,
				OnFailure: func(error) { failures.Add(1) },
			})

			u.Dispatch(context.Background(), Part{Number: 7, Data: []byte("x")})
			err := u.Wait()

			assert.Equal(t, tt.wantCalls, int(calls.Load()))
			if tt.wantErr {
				require.Error(t, err)
				var partErr *errors.PartUploadError
				require.ErrorAs(t, err, &partErr)
				assert.Equal(t, int32(7), partErr.PartNumber)
				assert.Equal(t, tt.retries, partErr.Retries)
				assert.ErrorIs(t, err, errors.ErrUploadFailed)
				assert.Equal(t, int32(1), failures.Load())
				assert.Empty(t, u.Completed())
			} else {
				require.NoError(t, err)
				assert.Equal(t, int32(0), failures.Load())
				assert.Len(t, u.Completed(), 1)
			}
		})
	}
}

func TestUploader_FirstErrorWins(t *testing.T) {
	release := make(chan struct{})
	store := &testutil.MockStore{
		UploadPartFunc: func(ctx context.Context, s s3types.Session, n int32, data []byte) (string, error) {
			<-release
			return "", stderrors.New("boom")
		},
	}

	var mu sync.Mutex
	var seen []error
	u := NewUploader(Config{
		Store:    store,
		Session:  testSession,
		Executor: testutil.GoExecutor{},
		OnFailure: func(err error) {
			mu.Lock()
			seen = append(seen, err)
			mu.Unlock()
		},
	})

	for n := int32(1); n <= 8; n++ {
		u.Dispatch(context.Background(), Part{Number: n, Data: []byte("x")})
	}
	close(release)

	err := u.Wait()
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1, "only the first failure triggers the callback")
	assert.Same(t, seen[0], err)
}

func TestUploader_StopSuppressesFailures(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	store := &testutil.MockStore{
		UploadPartFunc: func(ctx context.Context, s s3types.Session, n int32, data []byte) (string, error) {
			calls.Add(1)
			close(started)
			<-release
			return "", stderrors.New("boom")
		},
	}
	u := NewUploader(Config{Store: store, Session: testSession, Executor: testutil.GoExecutor{}, Retries: 5})

	u.Dispatch(context.Background(), Part{Number: 1, Data: []byte("x")})
	<-started
	u.Stop()
	close(release)

	assert.NoError(t, u.Wait())
	assert.Equal(t, int32(1), calls.Load(), "no retries after stop")
	assert.Equal(t, 0, u.Outstanding())
}

func TestUploader_LatchOnce(t *testing.T) {
	var calls atomic.Int32
	u := NewUploader(Config{
		Store:     &testutil.MockStore{},
		Session:   testSession,
		Executor:  testutil.GoExecutor{},
		OnFailure: func(error) { calls.Add(1) },
	})

	first := stderrors.New("first")
	assert.True(t, u.Latch(context.Background(), first))
	assert.False(t, u.Latch(context.Background(), stderrors.New("second")))
	assert.Same(t, first, u.Err())
	assert.Equal(t, int32(1), calls.Load())
}

func TestUploader_ReleasesData(t *testing.T) {
	var released atomic.Int32
	u := NewUploader(Config{
		Store:    &testutil.MockStore{},
		Session:  testSession,
		Executor: testutil.GoExecutor{},
		Release:  func([]byte) { released.Add(1) },
	})

	u.Dispatch(context.Background(), Part{Number: 1, Data: []byte("a")})
	u.Dispatch(context.Background(), Part{Number: 2, Data: []byte("b"), Last: true})

	require.NoError(t, u.Wait())
	assert.Equal(t, int32(2), released.Load())
}

func TestUploader_Backoff(t *testing.T) {
	var calls atomic.Int32
	store := &testutil.MockStore{
		UploadPartFunc: func(ctx context.Context, s s3types.Session, n int32, data []byte) (string, error) {
			if calls.Add(1) < 3 {
				return "", stderrors.New("boom")
			}
			return "etag", nil
		},
	}
	u := NewUploader(Config{
		Store:    store,
		Session:  testSession,
		Executor: testutil.GoExecutor{},
		Retries:  2,
		Backoff:  5 * time.Millisecond,
	})

	start := time.Now()
	u.Dispatch(context.Background(), Part{Number: 1, Data: []byte("x")})
	require.NoError(t, u.Wait())
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}
