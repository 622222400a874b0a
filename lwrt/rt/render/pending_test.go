package render

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/lightwave/lwrt/rt/core"
	"github.com/gekko3d/lightwave/lwrt/rt/geometry"
	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
)

func TestPendingQueueBounded(t *testing.T) {
	r := newTestRenderer(t, gpu.NewHeadlessDriver(64, 64), nil)
	assert.Equal(t, MaxPendingResources, r.PendingSpace())
	for i := 0; i < MaxPendingResources; i++ {
		require.True(t, r.CreateBuffer(fmt.Sprintf("b%d", i), gpu.BufferDesc{Size: 4}, nil))
	}
	assert.False(t, r.CreateBuffer("overflow", gpu.BufferDesc{Size: 4}, nil))
	assert.Equal(t, MaxPendingResources, r.PendingCount())
	assert.Zero(t, r.PendingSpace())
}

func TestPendingBudgetKeepsFIFOOrder(t *testing.T) {
	drv := gpu.NewHeadlessDriver(64, 64)
	clock := &fakeClock{t: time.Unix(0, 0), step: time.Millisecond}
	r := newTestRenderer(t, drv, clock)

	for i := 0; i < 5; i++ {
		require.True(t, r.CreateBuffer(fmt.Sprintf("b%d", i), gpu.BufferDesc{Size: 16, Usage: gpu.UsageStorage}, nil))
	}

	assert.Equal(t, 2, r.ProcessPendingResources(2*time.Millisecond))
	assert.Equal(t, 3, r.PendingCount())
	_, ok := r.Resources().Buffer(core.NameHash("b1"))
	assert.True(t, ok)
	_, ok = r.Resources().Buffer(core.NameHash("b2"))
	assert.False(t, ok)

	// a zero budget still makes progress
	assert.Equal(t, 1, r.ProcessPendingResources(0))
	_, ok = r.Resources().Buffer(core.NameHash("b2"))
	assert.True(t, ok)

	assert.Equal(t, 2, r.ProcessPendingResources(time.Hour))
	assert.Zero(t, r.ProcessPendingResources(time.Hour))

	var prev gpu.BufferID
	for i := 0; i < 5; i++ {
		id, ok := r.Resources().Buffer(core.NameHash(fmt.Sprintf("b%d", i)))
		require.True(t, ok)
		assert.Greater(t, id, prev, "buffers are created in submission order")
		prev = id
		desc, _ := drv.BufferDesc(id)
		assert.Equal(t, fmt.Sprintf("b%d", i), desc.Label)
	}
}

func TestPendingDestroy(t *testing.T) {
	drv := gpu.NewHeadlessDriver(64, 64)
	r := newTestRenderer(t, drv, nil)
	before, textures, _ := drv.Live()

	require.True(t, r.CreateBuffer("b", gpu.BufferDesc{Size: 4}, nil))
	require.True(t, r.CreateTexture("t", TextureProps{TextureDesc: gpu.TextureDesc{Width: 4, Height: 4}}, nil))
	require.True(t, r.CreateFramebuffer("fb", FramebufferProps{Color: []string{"t"}}))
	require.True(t, r.DestroyFramebuffer("fb"))
	require.True(t, r.DestroyTexture("t"))
	require.True(t, r.DestroyBuffer("b"))
	require.True(t, r.DestroyBuffer("never created"))
	assert.Equal(t, 7, r.ProcessPendingResources(time.Second))

	buffers, textures2, framebuffers := drv.Live()
	assert.Equal(t, before, buffers)
	assert.Equal(t, textures, textures2)
	assert.Zero(t, framebuffers)
}

func TestFramebufferMissingAttachment(t *testing.T) {
	r := newTestRenderer(t, gpu.NewHeadlessDriver(64, 64), nil)
	err := r.executePending(PendingFramebuffer("fb", FramebufferProps{Color: []string{"nope"}}))
	assert.ErrorIs(t, err, ErrUnknownResource)
}

func TestDuplicateNames(t *testing.T) {
	r := newTestRenderer(t, gpu.NewHeadlessDriver(64, 64), nil)
	require.NoError(t, r.executePending(PendingBuffer("b", gpu.BufferDesc{Size: 4}, nil)))
	assert.ErrorIs(t, r.executePending(PendingBuffer("b", gpu.BufferDesc{Size: 4}, nil)), ErrDuplicateResource)

	_, err := r.CreateBlockGeometry("pool", geometry.BlockGeometryProps{VerticesPerBlock: 4, MaxVerticeBlocks: 1})
	require.NoError(t, err)
	_, err = r.CreateBlockGeometry("pool", geometry.BlockGeometryProps{VerticesPerBlock: 4, MaxVerticeBlocks: 1})
	assert.ErrorIs(t, err, ErrDuplicateResource)
}

func TestBlockGeometryLifecycle(t *testing.T) {
	drv := gpu.NewHeadlessDriver(64, 64)
	r := newTestRenderer(t, drv, nil)
	start, _, _ := drv.Live()

	pool, err := r.CreateBlockGeometry("pool", geometry.BlockGeometryProps{
		VerticesPerBlock: 4, MaxVerticeBlocks: 4, IndicesPerBlock: 6, MaxIndiceBlocks: 4,
		PositionLayout: geometry.DefaultPositionLayout(),
	})
	require.NoError(t, err)
	assert.Same(t, pool, r.Resources().BlockGeometry(pool.NameHash()))

	positions := make([]byte, 4*16)
	positions[16] = 0xAB
	id := pool.AllocateUpload(positions, nil, []uint32{0, 1, 2, 0, 2, 3}, 4, 6, r)
	require.True(t, id.Valid())
	assert.Equal(t, 2, r.PendingCount())

	assert.Equal(t, 2, r.ProcessPendingResources(time.Second))
	pos, _, index := pool.Buffers()
	data, ok := drv.BufferData(pos)
	require.True(t, ok)
	assert.Equal(t, byte(0xAB), data[16])
	idata, _ := drv.BufferData(index)
	assert.Equal(t, byte(3), idata[20])

	require.True(t, r.DestroyBlockGeometry("pool"))
	r.ProcessPendingResources(time.Second)
	assert.Nil(t, r.Resources().BlockGeometry(pool.NameHash()))
	buffers, _, _ := drv.Live()
	assert.Equal(t, start, buffers)
}

func TestCreateBlockGeometryQueueFull(t *testing.T) {
	r := newTestRenderer(t, gpu.NewHeadlessDriver(64, 64), nil)
	for i := 0; i < MaxPendingResources; i++ {
		require.True(t, r.CreateBuffer(fmt.Sprintf("b%d", i), gpu.BufferDesc{Size: 4}, nil))
	}
	_, err := r.CreateBlockGeometry("pool", geometry.BlockGeometryProps{VerticesPerBlock: 4, MaxVerticeBlocks: 1})
	assert.ErrorIs(t, err, ErrPendingFull)
	assert.Nil(t, r.Resources().BlockGeometry(core.NameHash("pool")))
}

func TestUploadToUnknownPoolIsDropped(t *testing.T) {
	r := newTestRenderer(t, gpu.NewHeadlessDriver(64, 64), nil)
	require.True(t, r.PushBlockUpload(geometry.UploadRequest{Pool: core.NameHash("gone")}))
	assert.Equal(t, 1, r.ProcessPendingResources(time.Second))
	assert.Zero(t, r.PendingCount())
}

func TestPendingKindString(t *testing.T) {
	assert.Equal(t, "block upload", PendingBlockUpload.String())
	assert.Equal(t, "PendingKind(42)", PendingKind(42).String())
}
