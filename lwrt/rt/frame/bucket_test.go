package frame

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/lightwave/lwrt/rt/geometry"
	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
)

func TestSortModes(t *testing.T) {
	items := func() []BucketItem {
		return []BucketItem{
			{Model: 0, MaterialHash: 5, BlockHash: 1, Distance: 9},
			{Model: 1, MaterialHash: 0, BlockHash: 0, Distance: DistanceLast},
			{Model: 2, MaterialHash: 1, BlockHash: 7, Distance: 4},
			{Model: 3, MaterialHash: 0xFFFFFFFF, BlockHash: 0xFFFFFFFF, Distance: DistanceFirst},
			{Model: 4, MaterialHash: 1, BlockHash: 2, Distance: 16},
		}
	}
	order := func(in []BucketItem) []int {
		out := make([]int, len(in))
		for i, it := range in {
			out[i] = it.Model
		}
		return out
	}

	tests := []struct {
		mode SortMode
		want []int
	}{
		{SortNone, []int{0, 1, 2, 3, 4}},
		{SortState, []int{3, 4, 2, 0, 1}},
		{SortFrontToBack, []int{3, 2, 0, 4, 1}},
		{SortBackToFront, []int{3, 4, 0, 2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			got := items()
			sortItems(got, tt.mode)
			assert.Equal(t, tt.want, order(got))
		})
	}
}

func TestSortDistanceMonotonic(t *testing.T) {
	in := make([]BucketItem, 64)
	for i := range in {
		in[i] = BucketItem{Model: i, Distance: float32((i * 37) % 64)}
	}

	front := append([]BucketItem(nil), in...)
	sortItems(front, SortFrontToBack)
	back := append([]BucketItem(nil), in...)
	sortItems(back, SortBackToFront)
	for i := 1; i < len(in); i++ {
		assert.LessOrEqual(t, front[i-1].Distance, front[i].Distance)
		assert.GreaterOrEqual(t, back[i-1].Distance, back[i].Distance)
	}
}

func TestBucketUninitialized(t *testing.T) {
	f := testFrame(8, false, nil)
	b := f.Bucket(0)
	assert.False(t, b.Initialized())
	assert.False(t, b.SphereInFrustum(mgl32.Vec3{}, 100))
	assert.False(t, b.AABBInFrustum(mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1}))
	assert.False(t, b.ConeInFrustum(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}, 1, 0.5))

	o, tr := b.Finalize(poolResolver{}, nil, 0)
	assert.Zero(t, o)
	assert.Zero(t, tr)
}

func TestBucketDistances(t *testing.T) {
	f := testFrame(8, false, nil)
	require.NoError(t, f.InitializeBucket(0, testCamera(), DefaultBucketProps(1)))
	b := f.Bucket(0)

	m := GeometryModel{}
	require.True(t, b.PushModel(0, 1, 1, &m, mgl32.Vec3{0, 0, 2}))
	m.Flags = ModelDrawFirst
	require.True(t, b.PushModel(1, 1, 1, &m, mgl32.Vec3{}))
	m.Flags = ModelDrawLast | ModelTransparent
	require.True(t, b.PushModel(2, 1, 1, &m, mgl32.Vec3{}))

	require.Len(t, b.OpaqueItems(), 2)
	assert.InDelta(t, 9, b.OpaqueItems()[0].Distance, 1e-5)
	assert.Equal(t, DistanceFirst, b.OpaqueItems()[1].Distance)
	require.Len(t, b.TransparentItems(), 1)
	assert.Equal(t, DistanceLast, b.TransparentItems()[0].Distance)

	b.Reset()
	assert.False(t, b.Initialized())
	assert.Zero(t, b.OpaqueCount())
	assert.Zero(t, b.TransparentCount())
}

func TestBucketOverflowLogsOnce(t *testing.T) {
	log := &recordingLogger{}
	b := newGeometryBucket(0, 2, false, log)
	b.Initialize(testCamera(), DefaultBucketProps(1))

	m := GeometryModel{}
	assert.True(t, b.PushModel(0, 0, 0, &m, mgl32.Vec3{}))
	assert.True(t, b.PushModel(1, 0, 0, &m, mgl32.Vec3{}))
	assert.False(t, b.PushModel(2, 0, 0, &m, mgl32.Vec3{}))
	assert.False(t, b.PushModel(3, 0, 0, &m, mgl32.Vec3{}))
	assert.Equal(t, 2, b.OpaqueCount())
	assert.Len(t, log.criticals, 1)
}

func TestBucketBatching(t *testing.T) {
	pool := testPool()
	id := pool.AllocateUpload(nil, nil, nil, 24, 36, acceptQueue{})
	require.True(t, id.Valid())
	resolver := poolResolver{pool.NameHash(): pool}

	shared := GeometryModel{
		Block:    PooledBlock(pool.NameHash(), id, 0, 0),
		Material: NewRenderMaterial("lit", "albedo"),
	}
	other := shared
	other.Material = NewRenderMaterial("unlit")

	t.Run("instances merge", func(t *testing.T) {
		f := testFrame(8, false, nil)
		require.NoError(t, f.InitializeBucket(0, testCamera(), DefaultBucketProps(1)))
		data := NewModelData(mgl32.Ident4(), mgl32.Vec4{1, 1, 1, 1})
		a := f.PushModel(shared, data, 1, mgl32.Vec3{}, 1)
		b := f.PushModel(shared, data, 1, mgl32.Vec3{0, 1, 0}, 1)
		c := f.PushModel(other, data, 1, mgl32.Vec3{0, -1, 0}, 1)
		require.Equal(t, []int{0, 1, 2}, []int{a, b, c})

		o, tr := f.Bucket(0).Finalize(resolver, f.models[:3], 0)
		assert.Equal(t, 2, o, "two opaque renderables, not three")
		assert.Zero(t, tr)

		rs := f.Bucket(0).Renderables()
		require.Len(t, rs, 2)
		var merged, single Renderable
		for _, r := range rs {
			if r.InstanceCount == 2 {
				merged = r
			} else {
				single = r
			}
		}
		assert.Equal(t, uint32(1), merged.DrawCount)
		assert.Equal(t, shared.Material, merged.Material)
		assert.Equal(t, uint32(1), single.DrawCount)
		assert.Equal(t, uint32(1), single.InstanceCount)

		indirect := f.Bucket(0).IndirectData()
		require.Len(t, indirect, 2*gpu.IndirectCommandSize)
		rec := gpu.DecodeIndirect(indirect[merged.IndirectOffset*gpu.IndirectCommandSize:], true)
		assert.Equal(t, uint32(2), rec.InstanceCount)
		assert.Equal(t, uint32(36), rec.Count)

		ids := f.Bucket(0).IDs()
		require.Len(t, ids, 3)
		assert.ElementsMatch(t, []uint32{0, 1}, ids[rec.BaseInstance:rec.BaseInstance+2])
	})

	t.Run("different ranges share a renderable", func(t *testing.T) {
		f := testFrame(8, false, nil)
		require.NoError(t, f.InitializeBucket(0, testCamera(), DefaultBucketProps(1)))
		first := shared
		first.Block = PooledBlock(pool.NameHash(), id, 0, 18)
		second := shared
		second.Block = PooledBlock(pool.NameHash(), id, 18, 18)
		data := NewModelData(mgl32.Ident4(), mgl32.Vec4{1, 1, 1, 1})
		f.PushModel(first, data, 1, mgl32.Vec3{}, 1)
		f.PushModel(second, data, 1, mgl32.Vec3{}, 1)

		o, _ := f.Bucket(0).Finalize(resolver, f.models[:2], 0)
		require.Equal(t, 1, o)
		r := f.Bucket(0).Renderables()[0]
		assert.Equal(t, uint32(2), r.DrawCount)
		assert.Equal(t, uint32(2), r.InstanceCount)
		assert.Len(t, f.Bucket(0).IndirectData(), 2*gpu.IndirectCommandSize)
	})

	t.Run("no merge across transparency", func(t *testing.T) {
		f := testFrame(8, false, nil)
		require.NoError(t, f.InitializeBucket(0, testCamera(), DefaultBucketProps(1)))
		glass := shared
		glass.Flags = ModelTransparent
		data := NewModelData(mgl32.Ident4(), mgl32.Vec4{1, 1, 1, 1})
		f.PushModel(shared, data, 1, mgl32.Vec3{}, 1)
		f.PushModel(glass, data, 1, mgl32.Vec3{}, 1)

		o, tr := f.Bucket(0).Finalize(resolver, f.models[:2], 0)
		assert.Equal(t, 1, o)
		assert.Equal(t, 1, tr)
	})

	t.Run("unknown pool skipped", func(t *testing.T) {
		f := testFrame(8, false, nil)
		require.NoError(t, f.InitializeBucket(0, testCamera(), DefaultBucketProps(1)))
		lost := shared
		lost.Block.Pool = 42
		data := NewModelData(mgl32.Ident4(), mgl32.Vec4{1, 1, 1, 1})
		f.PushModel(lost, data, 1, mgl32.Vec3{}, 1)
		f.PushModel(shared, data, 1, mgl32.Vec3{}, 1)

		o, _ := f.Bucket(0).Finalize(resolver, f.models[:2], 0)
		assert.Equal(t, 1, o)
		assert.Equal(t, []uint32{1}, f.Bucket(0).IDs())
	})
}

func TestBucketRawBlocksWithEqualHashDoNotMerge(t *testing.T) {
	first, err := RawBlock(geometry.BufferTriple{Position: 1, Attribute: 2, Index: 3}, 0, 36)
	require.NoError(t, err)
	second, err := RawBlock(geometry.BufferTriple{Position: 4, Attribute: 5, Index: 6}, 0, 36)
	require.NoError(t, err)
	require.False(t, first.SameBuffers(second))
	assert.True(t, first.SameBuffers(first))
	assert.False(t, first.SameBuffers(PooledBlock(7, 0, 0, 0)))

	material := NewRenderMaterial("lit")
	models := []GeometryModel{
		{Block: first, Material: material},
		{Block: second, Material: material},
	}

	b := newGeometryBucket(0, 4, false, nil)
	b.Initialize(testCamera(), DefaultBucketProps(1))
	// both items carry the same block hash, as a hash collision would
	require.True(t, b.PushModel(0, 99, material.Hash(), &models[0], mgl32.Vec3{}))
	require.True(t, b.PushModel(1, 99, material.Hash(), &models[1], mgl32.Vec3{}))

	o, _ := b.Finalize(poolResolver{}, models, 0)
	require.Equal(t, 2, o)
	rs := b.Renderables()
	assert.Equal(t, first.Raw, rs[0].Block.Raw)
	assert.Equal(t, second.Raw, rs[1].Block.Raw)
	assert.Equal(t, uint32(1), rs[0].InstanceCount)
	assert.Equal(t, uint32(1), rs[1].InstanceCount)
}
