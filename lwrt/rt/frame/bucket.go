package frame

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lightwave/lwrt/rt/core"
	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
)

type BucketProps struct {
	PassBits        uint32
	OpaqueSort      SortMode
	TransparentSort SortMode
}

func DefaultBucketProps(passBits uint32) BucketProps {
	return BucketProps{PassBits: passBits, OpaqueSort: SortState, TransparentSort: SortBackToFront}
}

// Renderable is one pipeline and buffer binding followed by DrawCount
// consecutive indirect records starting at IndirectOffset.
type Renderable struct {
	Material       RenderMaterial
	Block          GeometryBlock
	Indexed        bool
	IndirectOffset uint32
	DrawCount      uint32
	InstanceCount  uint32
}

// DrawResolver turns a block into its indirect record.
type DrawResolver interface {
	DrawCall(block GeometryBlock, baseInstance uint32) (cmd gpu.IndirectCommand, indexed, ok bool)
}

// GeometryBucket collects the models visible to one camera for one pass.
// Buckets not initialized for the current frame reject every culling query.
type GeometryBucket struct {
	index int
	log   core.Logger

	initialized bool
	props       BucketProps
	camera      core.Camera
	planes      [6]mgl32.Vec4
	points      [6]mgl32.Vec3
	dirMatrix   mgl32.Mat4
	position    mgl32.Vec3

	opaque           []BucketItem
	transparent      []BucketItem
	opaqueCount      Counter
	transparentCount Counter
	overflow         atomic.Bool

	// staging written by Finalize
	indirect    []byte
	ids         []uint32
	renderables []Renderable
	records     int
	counts      [2]int
}

func newGeometryBucket(index, capacity int, threaded bool, log core.Logger) GeometryBucket {
	return GeometryBucket{
		index:            index,
		log:              log,
		opaque:           make([]BucketItem, capacity),
		transparent:      make([]BucketItem, capacity),
		opaqueCount:      NewCounter(threaded),
		transparentCount: NewCounter(threaded),
	}
}

// Initialize binds the bucket to a camera for this frame. The camera's
// frustum must be current.
func (b *GeometryBucket) Initialize(cam core.Camera, props BucketProps) {
	b.camera = cam
	b.props = props
	b.planes = cam.Frustum()
	b.points = cam.BuildFrustumPoints()
	b.dirMatrix = cam.DirectionMatrix()
	b.position = cam.Position()
	b.opaqueCount.Store(0)
	b.transparentCount.Store(0)
	b.records = 0
	b.counts = [2]int{}
	b.initialized = true
}

// Reset unbinds the bucket. Item storage is kept and hidden by the counters.
func (b *GeometryBucket) Reset() {
	b.initialized = false
	b.opaqueCount.Store(0)
	b.transparentCount.Store(0)
	b.overflow.Store(false)
	b.records = 0
	b.counts = [2]int{}
}

func (b *GeometryBucket) Index() int                  { return b.index }
func (b *GeometryBucket) Initialized() bool           { return b.initialized }
func (b *GeometryBucket) Props() BucketProps          { return b.props }
func (b *GeometryBucket) Camera() *core.Camera        { return &b.camera }
func (b *GeometryBucket) Points() [6]mgl32.Vec3       { return b.points }
func (b *GeometryBucket) DirectionMatrix() mgl32.Mat4 { return b.dirMatrix }
func (b *GeometryBucket) Position() mgl32.Vec3        { return b.position }

func (b *GeometryBucket) SphereInFrustum(pos mgl32.Vec3, radius float32) bool {
	return b.initialized && core.SphereInPlanes(&b.planes, pos, radius)
}

func (b *GeometryBucket) AABBInFrustum(min, max mgl32.Vec3) bool {
	return b.initialized && core.AABBInPlanes(&b.planes, min, max)
}

func (b *GeometryBucket) ConeInFrustum(origin, dir mgl32.Vec3, length, theta float32) bool {
	return b.initialized && core.ConeInPlanes(&b.planes, origin, dir, length, theta)
}

// PushModel appends a model to the opaque or transparent list. Returns false
// when the list is full; the first overflow of a frame is logged.
func (b *GeometryBucket) PushModel(model int, blockHash, materialHash uint32, m *GeometryModel, worldPos mgl32.Vec3) bool {
	dist := worldPos.Sub(b.position).LenSqr()
	switch {
	case m.Flags&ModelDrawFirst != 0:
		dist = DistanceFirst
	case m.Flags&ModelDrawLast != 0:
		dist = DistanceLast
	}

	items, counter := b.opaque, b.opaqueCount
	if m.Flags&ModelTransparent != 0 {
		items, counter = b.transparent, b.transparentCount
	}
	slot := counter.Reserve(1)
	if slot >= len(items) {
		if b.overflow.CompareAndSwap(false, true) {
			b.log.Criticalf("geometry bucket %d: item capacity %d exhausted, dropping models", b.index, len(items))
		}
		return false
	}
	items[slot] = BucketItem{Model: model, BlockHash: blockHash, MaterialHash: materialHash, Distance: dist}
	return true
}

func (b *GeometryBucket) OpaqueCount() int      { return min(b.opaqueCount.Load(), len(b.opaque)) }
func (b *GeometryBucket) TransparentCount() int { return min(b.transparentCount.Load(), len(b.transparent)) }

// OpaqueItems returns the live opaque items, sorted once Finalize ran.
func (b *GeometryBucket) OpaqueItems() []BucketItem { return b.opaque[:b.OpaqueCount()] }

func (b *GeometryBucket) TransparentItems() []BucketItem {
	return b.transparent[:b.TransparentCount()]
}

func (b *GeometryBucket) ensureStaging() {
	capacity := len(b.opaque)
	if len(b.ids) == capacity {
		return
	}
	b.indirect = make([]byte, capacity*gpu.IndirectCommandSize)
	b.ids = make([]uint32, capacity)
	b.renderables = make([]Renderable, capacity)
}

// Finalize sorts the items and writes indirect records, model ids and
// renderables into the bucket staging. base is the offset of the bucket's
// ids within the frame id buffer. Returns the opaque and transparent
// renderable counts.
func (b *GeometryBucket) Finalize(resolver DrawResolver, models []GeometryModel, base uint32) (int, int) {
	if !b.initialized {
		return 0, 0
	}
	b.ensureStaging()

	opaque := b.OpaqueItems()
	transparent := b.TransparentItems()
	sortItems(opaque, b.props.OpaqueSort)
	sortItems(transparent, b.props.TransparentSort)

	w := bucketWriter{b: b, resolver: resolver, models: models, base: base}
	o := w.walk(opaque)
	t := w.walk(transparent)
	b.records = w.records
	b.counts = [2]int{o, t}
	return o, t
}

// Counts returns the renderable counts of the last Finalize.
func (b *GeometryBucket) Counts() (int, int) { return b.counts[0], b.counts[1] }

// Renderables returns opaque renderables followed by transparent ones.
func (b *GeometryBucket) Renderables() []Renderable {
	return b.renderables[:b.counts[0]+b.counts[1]]
}

// IndirectData returns the encoded indirect records of the last Finalize.
func (b *GeometryBucket) IndirectData() []byte {
	return b.indirect[:b.records*gpu.IndirectCommandSize]
}

// IDs returns the model index of every instance slot written by the last Finalize.
func (b *GeometryBucket) IDs() []uint32 { return b.ids[:b.slots()] }

func (b *GeometryBucket) slots() int {
	n := 0
	for _, r := range b.Renderables() {
		n += int(r.InstanceCount)
	}
	return n
}

type bucketWriter struct {
	b        *GeometryBucket
	resolver DrawResolver
	models   []GeometryModel
	base     uint32

	slot        uint32
	records     int
	renderables int
}

// walk emits the renderables of one sorted list and returns how many it added.
// Runs never continue across lists.
func (w *bucketWriter) walk(items []BucketItem) int {
	start := w.renderables
	var prev BucketItem
	var prevCmd gpu.IndirectCommand
	for _, it := range items {
		m := &w.models[it.Model]
		cmd, indexed, ok := w.resolver.DrawCall(m.Block, w.base+w.slot)
		if !ok {
			continue
		}
		w.b.ids[w.slot] = uint32(it.Model)
		w.slot++

		sameBinding := w.renderables > start &&
			prev.BlockHash == it.BlockHash && prev.MaterialHash == it.MaterialHash &&
			w.models[prev.Model].Block.SameBuffers(m.Block)
		switch {
		case sameBinding && prevCmd.SameRange(cmd):
			rec := w.records - 1
			prevCmd.InstanceCount++
			prevCmd.Put(w.b.indirect[rec*gpu.IndirectCommandSize:], indexed)
			w.b.renderables[w.renderables-1].InstanceCount++
		case sameBinding:
			cmd.Put(w.b.indirect[w.records*gpu.IndirectCommandSize:], indexed)
			w.records++
			r := &w.b.renderables[w.renderables-1]
			r.DrawCount++
			r.InstanceCount++
			prevCmd = cmd
		default:
			cmd.Put(w.b.indirect[w.records*gpu.IndirectCommandSize:], indexed)
			w.b.renderables[w.renderables] = Renderable{
				Material:       m.Material,
				Block:          m.Block,
				Indexed:        indexed,
				IndirectOffset: uint32(w.records),
				DrawCount:      1,
				InstanceCount:  1,
			}
			w.records++
			w.renderables++
			prevCmd = cmd
		}
		prev = it
	}
	return w.renderables - start
}
