package topk

import (
	"fmt"
	"iter"
	"sort"
)

// ArrayHeap keeps the top k elements in a slice sorted ascending: index 0 is
// the minimum, the tail is the maximum. Inserting costs O(k) element moves,
// which beats the tree for small k.
type ArrayHeap[T any] struct {
	k       int
	cmp     Compare[T]
	content []T
}

func NewArrayHeap[T any](k int, compare Compare[T]) *ArrayHeap[T] {
	return &ArrayHeap[T]{k: k, cmp: compare, content: make([]T, 0, k)}
}

func (h *ArrayHeap[T]) Len() int { return len(h.content) }

func (h *ArrayHeap[T]) Add(value T) {
	n := len(h.content)
	if n < h.k {
		if n == 0 || h.cmp(value, h.content[n-1]) >= 0 {
			h.content = append(h.content, value)
		} else {
			h.insertSorted(value)
		}
	} else {
		if h.cmp(value, h.content[0]) <= 0 {
			return
		}
		// drop the minimum, then place value among the survivors
		copy(h.content, h.content[1:])
		h.content = h.content[:n-1]
		h.insertSorted(value)
	}
	if debugInvariants {
		h.checkInvariants()
	}
}

// insertSorted places value after any elements equal to it.
func (h *ArrayHeap[T]) insertSorted(value T) {
	pos := sort.Search(len(h.content), func(i int) bool {
		return h.cmp(h.content[i], value) > 0
	})
	var zero T
	h.content = append(h.content, zero)
	copy(h.content[pos+1:], h.content[pos:])
	h.content[pos] = value
}

func (h *ArrayHeap[T]) checkInvariants() {
	if len(h.content) > h.k {
		panic(fmt.Errorf("%w: size %d exceeds k %d", ErrHeapCorrupted, len(h.content), h.k))
	}
	for i := 1; i < len(h.content); i++ {
		if h.cmp(h.content[i-1], h.content[i]) > 0 {
			panic(fmt.Errorf("%w: unsorted at index %d", ErrHeapCorrupted, i))
		}
	}
}

func (h *ArrayHeap[T]) CopyTo(dst []T) int {
	return copy(dst, h.content)
}

func (h *ArrayHeap[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, v := range h.content {
			if !yield(v) {
				return
			}
		}
	}
}
