// Package pool provides memory management optimizations.
//
// Part buffers are as large as the configured part size (5 MiB or more), so
// writers sharing a part size reuse them instead of allocating a fresh one per
// part.
package pool

import (
	"sync"
)

// BufferPool manages reusable buffers of a single fixed size.
type BufferPool struct {
	size int
	pool *sync.Pool
}

var (
	poolsMu sync.Mutex
	pools   = map[int]*BufferPool{}
)

// ForSize returns the shared pool for buffers of the given size.
func ForSize(size int) *BufferPool {
	poolsMu.Lock()
	defer poolsMu.Unlock()

	if bp, ok := pools[size]; ok {
		return bp
	}
	bp := NewBufferPool(size)
	pools[size] = bp
	return bp
}

// NewBufferPool creates a new pool handing out buffers of the given size.
func NewBufferPool(size int) *BufferPool {
	return &BufferPool{
		size: size,
		pool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, size)
				return &buf
			},
		},
	}
}

// Size returns the buffer size served by the pool.
func (bp *BufferPool) Size() int {
	return bp.size
}

// Get returns a buffer of full length from the pool. Its contents are
// unspecified. The caller is responsible for calling Put to return it.
func (bp *BufferPool) Get() []byte {
	bufPtr := bp.pool.Get().(*[]byte)
	return (*bufPtr)[:bp.size]
}

// Put returns a buffer to the pool.
// The buffer should not be used after calling Put. Buffers of a different
// capacity are dropped.
func (bp *BufferPool) Put(buf []byte) {
	if cap(buf) != bp.size {
		return
	}
	buf = buf[:bp.size]
	bp.pool.Put(&buf)
}
