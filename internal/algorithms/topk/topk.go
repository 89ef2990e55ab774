// Package topk keeps the K largest elements of a stream under a caller-supplied
// total order.
//
// A TopK is not safe for concurrent use; callers sharing one across goroutines
// must serialize Add themselves.
package topk

import (
	"cmp"
	"errors"
	"iter"
)

var (
	ErrInvalidK      = errors.New("k must be a positive integer")
	ErrNilComparator = errors.New("comparator is nil")
	// ErrHeapCorrupted is the panic value raised when the cached minimum can no
	// longer be found in the backing structure.
	ErrHeapCorrupted = errors.New("topk: heap corrupted")
)

// Compare returns a negative number when a < b, zero when equal and a positive
// number when a > b.
type Compare[T any] func(a, b T) int

// TopK holds at most K elements: the largest seen so far by its comparator.
type TopK[T any] struct {
	k    int
	cmp  Compare[T]
	heap Heap[T]
}

// New builds a TopK backed by a red-black tree. Use it when K is large.
func New[T any](k int, compare Compare[T]) (*TopK[T], error) {
	return newTopK(k, compare, func() Heap[T] { return NewRedBlackTreeHeap(k, compare) })
}

// NewArray builds a TopK backed by a sorted slice. Cheaper than the tree for
// small K.
func NewArray[T any](k int, compare Compare[T]) (*TopK[T], error) {
	return newTopK(k, compare, func() Heap[T] { return NewArrayHeap(k, compare) })
}

// NewOrdered builds a tree-backed TopK using the natural order of T.
func NewOrdered[T cmp.Ordered](k int) (*TopK[T], error) {
	return New[T](k, cmp.Compare[T])
}

func newTopK[T any](k int, compare Compare[T], heapFn func() Heap[T]) (*TopK[T], error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if compare == nil {
		return nil, ErrNilComparator
	}
	return &TopK[T]{k: k, cmp: compare, heap: heapFn()}, nil
}

// K returns the capacity.
func (t *TopK[T]) K() int { return t.k }

// Len returns the number of elements currently held.
func (t *TopK[T]) Len() int { return t.heap.Len() }

// Add offers value for inclusion. Once the store is full, value is kept only
// when it is strictly greater than the current minimum, which it then evicts.
// When several held elements tie for the minimum, which one is evicted is
// unspecified.
func (t *TopK[T]) Add(value T) {
	t.heap.Add(value)
}

// ToSlice returns the held elements in ascending order. The result is a fresh
// slice of length Len().
func (t *TopK[T]) ToSlice() []T {
	res := make([]T, t.k)
	n := t.heap.CopyTo(res)
	return res[:n]
}

// All iterates the held elements in ascending order.
func (t *TopK[T]) All() iter.Seq[T] {
	return t.heap.All()
}

// Descending returns the held elements from largest to smallest.
func (t *TopK[T]) Descending() []T {
	res := t.ToSlice()
	for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
		res[i], res[j] = res[j], res[i]
	}
	return res
}
