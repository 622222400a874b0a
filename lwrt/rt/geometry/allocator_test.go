package geometry

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkAllocatorInvariants(t *testing.T, a *BlockAllocator) {
	t.Helper()
	runs := a.Runs()
	for i := 1; i < len(runs); i++ {
		prev, cur := runs[i-1], runs[i]
		require.Less(t, prev.ID+prev.Count, cur.ID, "runs %v and %v overlap or touch", prev, cur)
	}
	for _, r := range runs {
		require.Positive(t, r.Count)
	}
	require.Equal(t, a.TotalBlocks(), a.FreeBlocks()+a.AllocatedBlocks())
}

func TestBlockAllocatorRandomSequences(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		a := NewBlockAllocator(128)
		var live []int
		for step := 0; step < 400; step++ {
			if len(live) > 0 && rng.Intn(3) == 0 {
				i := rng.Intn(len(live))
				assert.True(t, a.Free(live[i]))
				live = append(live[:i], live[i+1:]...)
			} else if id := a.Allocate(1 + rng.Intn(12)); id >= 0 {
				live = append(live, id)
			}
			checkAllocatorInvariants(t, a)
		}
		for _, id := range live {
			a.Free(id)
		}
		assert.Equal(t, []BlockRun{{ID: 0, Count: 128}}, a.Runs(), "seed %d", seed)
	}
}

func TestBlockAllocatorFirstFit(t *testing.T) {
	a := NewBlockAllocator(10)
	x := a.Allocate(2)
	y := a.Allocate(3)
	z := a.Allocate(2)
	assert.Equal(t, []int{0, 2, 5}, []int{x, y, z})

	require.True(t, a.Free(y))
	// The earlier 3 block hole wins over the larger tail run.
	assert.Equal(t, 2, a.Allocate(3))
	assert.Equal(t, 7, a.Allocate(3))
	assert.Equal(t, -1, a.Allocate(1))
}

func TestBlockAllocatorCoalesce(t *testing.T) {
	a := NewBlockAllocator(6)
	ids := []int{a.Allocate(2), a.Allocate(2), a.Allocate(2)}

	a.Free(ids[0])
	a.Free(ids[2])
	assert.Equal(t, []BlockRun{{0, 2}, {4, 2}}, a.Runs())

	a.Free(ids[1])
	assert.Equal(t, []BlockRun{{0, 6}}, a.Runs())
}

func TestBlockAllocatorEdgeCases(t *testing.T) {
	a := NewBlockAllocator(4)
	assert.Equal(t, 4, a.Allocate(0))
	assert.Equal(t, 4, a.FreeBlocks())
	assert.Equal(t, -1, a.Allocate(-1))
	assert.Equal(t, -1, a.Allocate(5))

	assert.False(t, a.Free(3))
	id := a.Allocate(4)
	assert.Equal(t, 4, a.Len(id))
	assert.True(t, a.Free(id))
	assert.False(t, a.Free(id))
	assert.Equal(t, 0, a.Len(id))

	empty := NewBlockAllocator(0)
	assert.Equal(t, -1, empty.Allocate(1))
	assert.Equal(t, 0, empty.Allocate(0))
}
