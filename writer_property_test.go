package s3channel

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/input-output-hk/catalyst-forge-libs/s3channel/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/s3channel/store/memstore"
)

// writeChunked writes data to w in chunks cycling through sizes.
func writeChunked(w WriteChannel, data []byte, sizes []int) error {
	if len(sizes) == 0 {
		sizes = []int{len(data)}
	}
	for off, i := 0, 0; off < len(data); i++ {
		end := min(off+max(1, sizes[i%len(sizes)]), len(data))
		n, err := w.Write(data[off:end])
		if err != nil {
			return err
		}
		off += n
	}
	return nil
}

func TestProperty_WriteGranularity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 8
	properties := gopter.NewProperties(parameters)

	data := testutil.GenerateRandomData(2*partSize + 4096)

	properties.Property("object content and part count do not depend on write sizes", prop.ForAll(
		func(size int, sizes []int) bool {
			store := memstore.New()
			session := newSession(t, store)
			w, err := NewMultipartWriter(context.Background(), store, session, WithExecutor(NewPool(3)))
			if err != nil {
				return false
			}
			if err := writeChunked(w, data[:size], sizes); err != nil {
				return false
			}
			if err := w.Close(); err != nil {
				return false
			}

			got, ok := store.Object("bucket", "key")
			wantParts := max(1, (size+partSize-1)/partSize)
			return ok && bytes.Equal(data[:size], got) && store.Stats().UploadPart == wantParts
		},
		gen.IntRange(0, len(data)),
		gen.SliceOfN(4, gen.IntRange(1, 3*1024*1024)),
	))

	properties.Property("header writer output does not depend on write sizes", prop.ForAll(
		func(size int, sizes []int) bool {
			store := memstore.New()
			h, err := NewHeaderWriter(context.Background(), store, newSession(t, store), WithExecutor(NewPool(3)))
			if err != nil {
				return false
			}
			if err := writeChunked(h, data[:size], sizes); err != nil {
				return false
			}
			if err := h.Close(); err != nil {
				return false
			}

			got, ok := store.Object("bucket", "key")
			want := data[:size]
			if size < partSize {
				want = append(bytes.Clone(want), make([]byte, partSize-size)...)
			}
			return ok && bytes.Equal(want, got)
		},
		gen.IntRange(0, len(data)),
		gen.SliceOfN(4, gen.IntRange(1, 3*1024*1024)),
	))

	properties.TestingRun(t)
}

func TestWriter_ConcurrentCancel(t *testing.T) {
	store := &testutil.MockStore{}
	w, err := NewMultipartWriter(context.Background(), store, newSession(t, store), WithConcurrency(2))
	assert.NoError(t, err)

	const callers = 8
	handles := make([]*Cancellation, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			handles[i] = w.Cancel()
		}()
	}
	wg.Wait()

	for _, c := range handles[1:] {
		assert.Same(t, handles[0], c)
	}
	assert.NoError(t, waitCancellation(t, handles[0]))
	assert.Equal(t, 1, store.Calls("AbortMultipartUpload"))
}
