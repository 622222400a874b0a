package geometry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/gekko3d/lightwave/lwrt/rt/core"
	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
)

var (
	ErrNotCreated   = errors.New("geometry: pool buffers not created")
	ErrUploadBounds = errors.New("geometry: upload exceeds allocation")
)

type BlockGeometryProps struct {
	VerticesPerBlock int
	MaxVerticeBlocks int
	IndicesPerBlock  int
	MaxIndiceBlocks  int
	PositionLayout   gpu.VertexLayout
	AttributeLayout  gpu.VertexLayout
}

func (p BlockGeometryProps) HasIndices() bool {
	return p.IndicesPerBlock > 0 && p.MaxIndiceBlocks > 0
}

// DefaultPositionLayout stores positions as 4 floats.
func DefaultPositionLayout() gpu.VertexLayout {
	return gpu.VertexLayout{Stride: 16, Attributes: []gpu.VertexAttribute{
		{Name: "Position", Format: gpu.Float32x4, Offset: 0},
	}}
}

func DefaultAttributeLayout() gpu.VertexLayout {
	return gpu.VertexLayout{Stride: 48, Attributes: []gpu.VertexAttribute{
		{Name: "TexCoord", Format: gpu.Float32x4, Offset: 0},
		{Name: "Tangent", Format: gpu.Float32x4, Offset: 16},
		{Name: "Normal", Format: gpu.Float32x4, Offset: 32},
	}}
}

type uploadSize struct {
	vertices uint32
	indices  uint32
}

// BlockGeometry is a named vertex/index pool carved into fixed size blocks.
// Allocation is safe from any goroutine; buffer creation and uploads run on the driver goroutine.
type BlockGeometry struct {
	name  string
	hash  uint32
	props BlockGeometryProps
	log   core.Logger

	mu       sync.Mutex
	verts    *BlockAllocator
	inds     *BlockAllocator
	uploaded map[AllocID]uploadSize

	primMu sync.Mutex
	shapes [shapeCount]AllocID

	posBuffer   gpu.BufferID
	attrBuffer  gpu.BufferID
	indexBuffer gpu.BufferID
}

func NewBlockGeometry(name string, props BlockGeometryProps, log core.Logger) *BlockGeometry {
	if props.VerticesPerBlock <= 0 {
		props.VerticesPerBlock = 1
	}
	indiceBlocks := 0
	if props.HasIndices() {
		indiceBlocks = props.MaxIndiceBlocks
	}
	g := &BlockGeometry{
		name:     name,
		hash:     core.NameHash(name),
		props:    props,
		log:      core.OrNop(log),
		verts:    NewBlockAllocator(props.MaxVerticeBlocks),
		inds:     NewBlockAllocator(indiceBlocks),
		uploaded: make(map[AllocID]uploadSize),
	}
	for i := range g.shapes {
		g.shapes[i] = NullID
	}
	return g
}

func (g *BlockGeometry) Name() string              { return g.name }
func (g *BlockGeometry) NameHash() uint32          { return g.hash }
func (g *BlockGeometry) Props() BlockGeometryProps { return g.props }
func (g *BlockGeometry) HasIndices() bool          { return g.props.HasIndices() }

func ceilDiv(n, d int) int {
	if n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}

// Allocate reserves enough blocks for the given counts. Returns NullID when
// either block space is exhausted; a partial reservation is rolled back.
func (g *BlockGeometry) Allocate(verticeCount, indiceCount int) AllocID {
	vBlocks := ceilDiv(verticeCount, g.props.VerticesPerBlock)
	iBlocks := 0
	if g.props.HasIndices() {
		iBlocks = ceilDiv(indiceCount, g.props.IndicesPerBlock)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	v := g.verts.Allocate(vBlocks)
	if v < 0 {
		g.log.Criticalf("block geometry %q: no space remains for %d vertices", g.name, verticeCount)
		return NullID
	}
	i := g.inds.Allocate(iBlocks)
	if i < 0 {
		g.verts.Free(v)
		g.log.Criticalf("block geometry %q: no space remains for %d indices", g.name, indiceCount)
		return NullID
	}
	return BlockRef{VerticeBlock: uint32(v), IndiceBlock: uint32(i)}.Pack()
}

// AllocateUpload reserves blocks and queues the host data for upload.
// The reservation is released if the queue rejects the request.
func (g *BlockGeometry) AllocateUpload(positions, attributes []byte, indices []uint32, verticeCount, indiceCount int, q UploadQueue) AllocID {
	id := g.Allocate(verticeCount, indiceCount)
	if id == NullID {
		return NullID
	}
	g.mu.Lock()
	g.uploaded[id] = uploadSize{vertices: uint32(verticeCount), indices: uint32(indiceCount)}
	g.mu.Unlock()

	ok := q != nil && q.PushBlockUpload(UploadRequest{
		Pool:         g.hash,
		ID:           id,
		Positions:    positions,
		Attributes:   attributes,
		Indices:      indices,
		VerticeCount: verticeCount,
		IndiceCount:  indiceCount,
	})
	if !ok {
		g.log.Errorf("block geometry %q: upload queue rejected allocation", g.name)
		g.Free(id)
		return NullID
	}
	return id
}

// Free releases both block ranges. GPU contents are left as they are.
func (g *BlockGeometry) Free(id AllocID) {
	if id == NullID {
		return
	}
	ref := id.Ref()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verts.Free(int(ref.VerticeBlock))
	g.inds.Free(int(ref.IndiceBlock))
	delete(g.uploaded, id)
}

// MakeDrawCall builds an indirect record for a sub-range of an allocation.
// A zero count draws everything recorded for the allocation.
func (g *BlockGeometry) MakeDrawCall(id AllocID, instanceOffset, offset, count uint32) gpu.IndirectCommand {
	ref := id.Ref()
	if count == 0 {
		g.mu.Lock()
		size, ok := g.uploaded[id]
		g.mu.Unlock()
		if !ok {
			g.log.Warnf("block geometry %q: draw of allocation %#x with no recorded upload", g.name, uint64(id))
		}
		count = size.vertices
		if g.props.HasIndices() {
			count = size.indices
		}
	}
	baseVertex := ref.VerticeBlock * uint32(g.props.VerticesPerBlock)
	if g.props.HasIndices() {
		return gpu.IndirectCommand{
			Count:         count,
			InstanceCount: 1,
			First:         ref.IndiceBlock*uint32(g.props.IndicesPerBlock) + offset,
			BaseVertex:    int32(baseVertex),
			BaseInstance:  instanceOffset,
		}
	}
	return gpu.IndirectCommand{
		Count:         count,
		InstanceCount: 1,
		First:         baseVertex + offset,
		BaseInstance:  instanceOffset,
	}
}

// UploadedSize returns the vertex and index counts recorded for id.
func (g *BlockGeometry) UploadedSize(id AllocID) (uint32, uint32, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.uploaded[id]
	return s.vertices, s.indices, ok
}

// FreeBlocks reports the free vertice and indice blocks.
func (g *BlockGeometry) FreeBlocks() (int, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.verts.FreeBlocks(), g.inds.FreeBlocks()
}

// Buffers returns the position, attribute and index buffers. Zero when absent.
func (g *BlockGeometry) Buffers() (pos, attr, index gpu.BufferID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.posBuffer, g.attrBuffer, g.indexBuffer
}

// Streams returns the vertex streams bound when drawing from this pool.
func (g *BlockGeometry) Streams() []gpu.BufferID {
	pos, attr, _ := g.Buffers()
	if attr == 0 {
		return []gpu.BufferID{pos}
	}
	return []gpu.BufferID{pos, attr}
}

func (g *BlockGeometry) CreateBuffers(drv gpu.Driver) error {
	verts := uint64(g.props.VerticesPerBlock * g.props.MaxVerticeBlocks)
	pos, err := drv.CreateBuffer(gpu.BufferDesc{
		Label: g.name + " positions",
		Size:  verts * uint64(g.props.PositionLayout.Stride),
		Usage: gpu.UsageVertex | gpu.UsageCopyDst,
	}, nil)
	if err != nil {
		return fmt.Errorf("block geometry %q: %w", g.name, err)
	}
	var attr, index gpu.BufferID
	if g.props.AttributeLayout.Stride > 0 {
		attr, err = drv.CreateBuffer(gpu.BufferDesc{
			Label: g.name + " attributes",
			Size:  verts * uint64(g.props.AttributeLayout.Stride),
			Usage: gpu.UsageVertex | gpu.UsageCopyDst,
		}, nil)
		if err != nil {
			drv.DestroyBuffer(pos)
			return fmt.Errorf("block geometry %q: %w", g.name, err)
		}
	}
	if g.props.HasIndices() {
		index, err = drv.CreateBuffer(gpu.BufferDesc{
			Label: g.name + " indices",
			Size:  uint64(g.props.IndicesPerBlock*g.props.MaxIndiceBlocks) * 4,
			Usage: gpu.UsageIndex | gpu.UsageCopyDst,
		}, nil)
		if err != nil {
			drv.DestroyBuffer(pos)
			if attr != 0 {
				drv.DestroyBuffer(attr)
			}
			return fmt.Errorf("block geometry %q: %w", g.name, err)
		}
	}

	g.mu.Lock()
	g.posBuffer, g.attrBuffer, g.indexBuffer = pos, attr, index
	g.mu.Unlock()
	return nil
}

// Upload writes a queued request into the pool buffers.
func (g *BlockGeometry) Upload(drv gpu.Driver, req UploadRequest) error {
	pos, attr, index := g.Buffers()
	if pos == 0 {
		return fmt.Errorf("block geometry %q: %w", g.name, ErrNotCreated)
	}
	ref := req.ID.Ref()
	vBlocks, iBlocks := g.allocatedBlocks(ref)
	if req.VerticeCount > vBlocks*g.props.VerticesPerBlock ||
		(g.props.HasIndices() && req.IndiceCount > iBlocks*g.props.IndicesPerBlock) {
		return fmt.Errorf("block geometry %q: %w", g.name, ErrUploadBounds)
	}

	firstVertex := uint64(ref.VerticeBlock) * uint64(g.props.VerticesPerBlock)
	if n := req.VerticeCount * int(g.props.PositionLayout.Stride); n > 0 && len(req.Positions) > 0 {
		if err := drv.UpdateBuffer(pos, firstVertex*uint64(g.props.PositionLayout.Stride), req.Positions[:min(n, len(req.Positions))]); err != nil {
			return fmt.Errorf("block geometry %q positions: %w", g.name, err)
		}
	}
	if n := req.VerticeCount * int(g.props.AttributeLayout.Stride); attr != 0 && n > 0 && len(req.Attributes) > 0 {
		if err := drv.UpdateBuffer(attr, firstVertex*uint64(g.props.AttributeLayout.Stride), req.Attributes[:min(n, len(req.Attributes))]); err != nil {
			return fmt.Errorf("block geometry %q attributes: %w", g.name, err)
		}
	}
	if index != 0 && req.IndiceCount > 0 && len(req.Indices) > 0 {
		n := min(req.IndiceCount, len(req.Indices))
		data := make([]byte, n*4)
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint32(data[i*4:], req.Indices[i])
		}
		firstIndex := uint64(ref.IndiceBlock) * uint64(g.props.IndicesPerBlock)
		if err := drv.UpdateBuffer(index, firstIndex*4, data); err != nil {
			return fmt.Errorf("block geometry %q indices: %w", g.name, err)
		}
	}
	return nil
}

func (g *BlockGeometry) allocatedBlocks(ref BlockRef) (int, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.verts.Len(int(ref.VerticeBlock)), g.inds.Len(int(ref.IndiceBlock))
}

// Release destroys the pool buffers.
func (g *BlockGeometry) Release(drv gpu.Driver) {
	g.mu.Lock()
	pos, attr, index := g.posBuffer, g.attrBuffer, g.indexBuffer
	g.posBuffer, g.attrBuffer, g.indexBuffer = 0, 0, 0
	g.mu.Unlock()
	for _, b := range []gpu.BufferID{pos, attr, index} {
		if b != 0 {
			drv.DestroyBuffer(b)
		}
	}
}
