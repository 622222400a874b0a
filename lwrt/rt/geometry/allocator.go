package geometry

import (
	"slices"
	"sort"
)

// BlockRun is a contiguous range of free blocks.
type BlockRun struct {
	ID    int
	Count int
}

// BlockAllocator hands out contiguous block ranges from a fixed block space.
// The free list is sorted by ID and adjacent runs are always merged.
// It is not safe for concurrent use; BlockGeometry serializes access.
//
// Allocation is first-fit in ID order.
type BlockAllocator struct {
	total     int
	free      []BlockRun
	allocated map[int]int
}

func NewBlockAllocator(total int) *BlockAllocator {
	a := &BlockAllocator{
		total:     total,
		allocated: make(map[int]int),
	}
	if total > 0 {
		a.free = []BlockRun{{ID: 0, Count: total}}
	}
	return a
}

// Allocate reserves n blocks and returns the first block ID, or -1 when no run fits.
// Allocating zero blocks returns TotalBlocks without reserving anything.
func (a *BlockAllocator) Allocate(n int) int {
	if n == 0 {
		return a.total
	}
	if n < 0 {
		return -1
	}
	for i, r := range a.free {
		if r.Count < n {
			continue
		}
		if r.Count == n {
			a.free = slices.Delete(a.free, i, i+1)
		} else {
			a.free[i] = BlockRun{ID: r.ID + n, Count: r.Count - n}
		}
		a.allocated[r.ID] = n
		return r.ID
	}
	return -1
}

// Free returns a range to the free list. Unknown IDs are ignored.
func (a *BlockAllocator) Free(id int) bool {
	n, ok := a.allocated[id]
	if !ok {
		return false
	}
	delete(a.allocated, id)

	i := sort.Search(len(a.free), func(k int) bool { return a.free[k].ID > id })
	mergePrev := i > 0 && a.free[i-1].ID+a.free[i-1].Count == id
	mergeNext := i < len(a.free) && id+n == a.free[i].ID

	switch {
	case mergePrev && mergeNext:
		a.free[i-1].Count += n + a.free[i].Count
		a.free = slices.Delete(a.free, i, i+1)
	case mergePrev:
		a.free[i-1].Count += n
	case mergeNext:
		a.free[i] = BlockRun{ID: id, Count: n + a.free[i].Count}
	default:
		a.free = slices.Insert(a.free, i, BlockRun{ID: id, Count: n})
	}
	return true
}

func (a *BlockAllocator) TotalBlocks() int { return a.total }

func (a *BlockAllocator) FreeBlocks() int {
	n := 0
	for _, r := range a.free {
		n += r.Count
	}
	return n
}

func (a *BlockAllocator) AllocatedBlocks() int {
	n := 0
	for _, c := range a.allocated {
		n += c
	}
	return n
}

// Runs returns a copy of the free list.
func (a *BlockAllocator) Runs() []BlockRun {
	return slices.Clone(a.free)
}

// Len returns the block count of an allocation, or 0 if id is not allocated.
func (a *BlockAllocator) Len(id int) int {
	return a.allocated[id]
}
