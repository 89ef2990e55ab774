package regroup

import "sync"

// BufferPool recycles the float64 slices handed out by the compressors.
type BufferPool struct {
	pool sync.Pool
}

func NewBufferPool() *BufferPool {
	return &BufferPool{
		pool: sync.Pool{
			New: func() any {
				s := make([]float64, 0, DefaultSize)
				return &s
			},
		},
	}
}

var defaultPool = NewBufferPool()

// Get returns a zeroed buffer of length n.
func (p *BufferPool) Get(n int) *Buffer {
	holder := p.pool.Get().(*[]float64)
	if cap(*holder) < n {
		*holder = make([]float64, n)
	}
	values := (*holder)[:n]
	clear(values)
	return &Buffer{values: values, holder: holder, pool: p}
}

// Buffer is a pooled slice. Values must not be used after Release.
type Buffer struct {
	values []float64
	holder *[]float64
	pool   *BufferPool
}

func (b *Buffer) Values() []float64 { return b.values }

func (b *Buffer) Len() int { return len(b.values) }

// Release hands the buffer back to its pool. Calling it more than once is a
// no-op.
func (b *Buffer) Release() {
	if b == nil || b.pool == nil {
		return
	}
	*b.holder = b.values[:0]
	b.pool.pool.Put(b.holder)
	b.values = nil
	b.holder = nil
	b.pool = nil
}
