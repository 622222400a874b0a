package frame

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lightwave/lwrt/rt/core"
	"github.com/gekko3d/lightwave/lwrt/rt/geometry"
	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
)

// GeometryBlock references the geometry of one draw. Pooled blocks name a
// BlockGeometry by hash; raw blocks carry a packed BufferTriple.
type GeometryBlock struct {
	Pool   uint32
	ID     geometry.AllocID
	Raw    uint64
	Offset uint32
	Count  uint32
}

func PooledBlock(pool uint32, id geometry.AllocID, offset, count uint32) GeometryBlock {
	return GeometryBlock{Pool: pool, ID: id, Offset: offset, Count: count}
}

// RawBlock draws count elements starting at first from raw buffers.
// An index buffer of zero draws non-indexed.
func RawBlock(buffers geometry.BufferTriple, first, count uint32) (GeometryBlock, error) {
	packed, err := buffers.Pack()
	if err != nil {
		return GeometryBlock{}, err
	}
	return GeometryBlock{ID: geometry.NullID, Raw: packed, Offset: first, Count: count}, nil
}

func (b GeometryBlock) IsRaw() bool { return b.Pool == 0 }

func (b GeometryBlock) Buffers() geometry.BufferTriple {
	return geometry.UnpackBufferTriple(b.Raw)
}

// Hash identifies the buffers bound to draw b. Blocks of one pool share it.
func (b GeometryBlock) Hash() uint32 {
	if !b.IsRaw() {
		return b.Pool
	}
	return core.CombineHash(uint32(b.Raw), uint32(b.Raw>>32))
}

// SameBuffers reports whether b and o bind the same buffers. Unlike Hash it
// cannot collide for raw blocks.
func (b GeometryBlock) SameBuffers(o GeometryBlock) bool {
	if b.IsRaw() || o.IsRaw() {
		return b.IsRaw() && o.IsRaw() && b.Raw == o.Raw
	}
	return b.Pool == o.Pool
}

// RawDrawCall builds the indirect record of a raw block.
func RawDrawCall(b GeometryBlock, baseInstance uint32) (gpu.IndirectCommand, bool) {
	indexed := b.Buffers().Index != 0
	return gpu.IndirectCommand{
		Count:         b.Count,
		InstanceCount: 1,
		First:         b.Offset,
		BaseInstance:  baseInstance,
	}, indexed
}

const MaxMaterialTextures = 5

// RenderMaterial names a pipeline and its textures by name hash. Zero is an empty slot.
type RenderMaterial struct {
	Pipeline uint32
	Textures [MaxMaterialTextures]uint32
}

func NewRenderMaterial(pipeline string, textures ...string) RenderMaterial {
	m := RenderMaterial{Pipeline: core.NameHash(pipeline)}
	for i, t := range textures {
		if i == MaxMaterialTextures {
			break
		}
		m.Textures[i] = core.NameHash(t)
	}
	return m
}

func (m RenderMaterial) Hash() uint32 {
	h := m.Pipeline
	for _, t := range m.Textures {
		h = core.CombineHash(h, t)
	}
	return h
}

type ModelFlags uint32

const (
	ModelTransparent ModelFlags = 1 << iota
	ModelDrawFirst
	ModelDrawLast
)

// GeometryModel is one drawable submitted for a single frame.
type GeometryModel struct {
	Block    GeometryBlock
	Material RenderMaterial
	Flags    ModelFlags
}

// GeometryModelData mirrors the per model shader struct.
type GeometryModelData struct {
	Transform mgl32.Mat4
	Color     [4]float32
	Material  [4]float32 // metallic, roughness, emissive, alpha cutoff
	BoneID    int32
	BoneCount int32
	_         [2]int32
}

func NewModelData(transform mgl32.Mat4, color mgl32.Vec4) GeometryModelData {
	return GeometryModelData{Transform: transform, Color: color, Material: [4]float32{0, 1, 0, 0}, BoneID: -1}
}

// GlobalData mirrors the per frame shader constants.
type GlobalData struct {
	ScreenSize [2]float32
	Time       float32
	LightCount uint32
	FrameID    uint32
	ModelCount uint32
	_          [2]uint32
}

// PassData holds the camera of one sub-pass.
type PassData struct {
	ProjView   mgl32.Mat4
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Position   [4]float32
	Direction  [4]float32
	Frustum    [6][4]float32
	Params     [4]float32 // viewport width, height, layer, light index
}

func NewPassData(cam *core.Camera, width, height float32) PassData {
	pd := PassData{
		ProjView:   cam.ProjViewMatrix(),
		View:       cam.ViewMatrix(),
		Projection: cam.ProjectionMatrix(),
		Position:   cam.Position().Vec4(1),
		Direction:  cam.Direction().Vec4(0),
		Params:     [4]float32{width, height, 0, -1},
	}
	for i, p := range cam.Frustum() {
		pd.Frustum[i] = p
	}
	return pd
}

// ShadowCaster is a light that asked for a shadow map this frame.
type ShadowCaster struct {
	Light    int
	Distance float32
}

type MeshPrimitive struct {
	Block    GeometryBlock
	Material int
	Flags    ModelFlags
}

// Mesh groups primitives drawn with one transform. Min and Max bound it in object space.
type Mesh struct {
	Name       string
	Primitives []MeshPrimitive
	Min, Max   mgl32.Vec3
}
