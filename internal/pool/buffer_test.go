package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBufferPool(t *testing.T) {
	bp := NewBufferPool(1024)
	require.NotNil(t, bp)
	assert.Equal(t, 1024, bp.Size())
}

func TestBufferPool_Get(t *testing.T) {
	bp := NewBufferPool(64)

	buf := bp.Get()
	require.NotNil(t, buf)
	assert.Equal(t, 64, len(buf))
	assert.Equal(t, 64, cap(buf))

	bp.Put(buf)
}

func TestBufferPool_BufferReuse(t *testing.T) {
	bp := NewBufferPool(16)

	buf1 := bp.Get()
	copy(buf1, "first use")
	bp.Put(buf1[:4])

	buf2 := bp.Get()
	assert.Equal(t, 16, len(buf2), "length is restored on get")

	bp.Put(buf2)
}

func TestBufferPool_PutForeignSize(t *testing.T) {
	bp := NewBufferPool(16)

	bp.Put(make([]byte, 8))

	for i := 0; i < 4; i++ {
		assert.Equal(t, 16, cap(bp.Get()))
	}
}

func TestForSize(t *testing.T) {
	a := ForSize(4096)
	b := ForSize(4096)
	c := ForSize(8192)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 8192, c.Size())
}

func BenchmarkBufferPool_GetPut(b *testing.B) {
	bp := NewBufferPool(5 * 1024 * 1024)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			buf := bp.Get()
			bp.Put(buf)
		}
	})
}
