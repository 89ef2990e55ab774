package topk

import (
	"cmp"
	"fmt"
	"iter"

	"github.com/emirpasic/gods/trees/redblacktree"
)

// treeKey disambiguates elements that compare equal so the tree can hold
// duplicates.
type treeKey[T any] struct {
	value T
	seq   uint64
}

// RedBlackTreeHeap keeps the top k elements in a red-black tree and caches the
// current minimum so that rejecting a candidate costs a single comparison.
//
// Invariant: whenever Len() == k, min is the tree's least key. It is refreshed
// after every eviction and when the tree first fills up.
type RedBlackTreeHeap[T any] struct {
	k    int
	cmp  Compare[T]
	tree *redblacktree.Tree
	seq  uint64
	min  treeKey[T]
}

func NewRedBlackTreeHeap[T any](k int, compare Compare[T]) *RedBlackTreeHeap[T] {
	h := &RedBlackTreeHeap[T]{k: k, cmp: compare}
	h.tree = redblacktree.NewWith(h.compareKeys)
	return h
}

func (h *RedBlackTreeHeap[T]) compareKeys(a, b interface{}) int {
	x := a.(treeKey[T])
	y := b.(treeKey[T])
	if c := h.cmp(x.value, y.value); c != 0 {
		return c
	}
	return cmp.Compare(x.seq, y.seq)
}

func (h *RedBlackTreeHeap[T]) Len() int { return h.tree.Size() }

func (h *RedBlackTreeHeap[T]) Add(value T) {
	count := h.tree.Size()
	insert := count < h.k
	var refresh bool
	if insert {
		refresh = count+1 >= h.k
	} else {
		insert = h.cmp(value, h.min.value) > 0
		refresh = true
	}
	if !insert {
		return
	}

	h.seq++
	h.tree.Put(treeKey[T]{value: value, seq: h.seq}, nil)

	if size := h.tree.Size(); size > h.k {
		h.tree.Remove(h.min)
		if h.tree.Size() == size {
			panic(fmt.Errorf("%w: minimum %v not found (size %d, k %d)", ErrHeapCorrupted, h.min.value, size, h.k))
		}
	}

	if refresh {
		h.min = h.tree.Left().Key.(treeKey[T])
	}
	if debugInvariants {
		h.checkInvariants()
	}
}

func (h *RedBlackTreeHeap[T]) checkInvariants() {
	size := h.tree.Size()
	if size > h.k {
		panic(fmt.Errorf("%w: size %d exceeds k %d", ErrHeapCorrupted, size, h.k))
	}
	if size < h.k {
		return
	}
	least := h.tree.Left().Key.(treeKey[T])
	if h.compareKeys(least, h.min) != 0 {
		panic(fmt.Errorf("%w: cached minimum %v, tree minimum %v", ErrHeapCorrupted, h.min.value, least.value))
	}
}

func (h *RedBlackTreeHeap[T]) CopyTo(dst []T) int {
	i := 0
	it := h.tree.Iterator()
	for it.Next() {
		dst[i] = it.Key().(treeKey[T]).value
		i++
	}
	return i
}

func (h *RedBlackTreeHeap[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		it := h.tree.Iterator()
		for it.Next() {
			if !yield(it.Key().(treeKey[T]).value) {
				return
			}
		}
	}
}
