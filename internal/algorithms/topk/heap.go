package topk

import "iter"

// Heap is the bounded ordered collection behind a TopK. Implementations keep at
// most k elements and must agree on which elements survive a given sequence of
// Add calls.
type Heap[T any] interface {
	Len() int
	Add(value T)
	// CopyTo writes the held elements in ascending order into dst and returns
	// how many were written. dst must have room for Len() elements.
	CopyTo(dst []T) int
	All() iter.Seq[T]
}

var (
	_ Heap[int] = (*RedBlackTreeHeap[int])(nil)
	_ Heap[int] = (*ArrayHeap[int])(nil)
)
