package frame

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lightwave/lwrt/rt/core"
	"github.com/gekko3d/lightwave/lwrt/rt/geometry"
	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
)

// Sentinel returned by the Push methods when nothing was stored.
const NotSubmitted = -1

var ErrNoBucket = errors.New("frame: bucket index out of range")

// FrameConfig sizes the arrays of a RenderFrame. Models and bucket items
// share MaxBucketSize.
type FrameConfig struct {
	MaxBuckets       int  `yaml:"max_buckets"`
	MaxBucketSize    int  `yaml:"max_bucket_size"`
	MaxLights        int  `yaml:"max_lights"`
	MaxBones         int  `yaml:"max_bones"`
	MaxShadowCasters int  `yaml:"max_shadow_casters"`
	MaxPassData      int  `yaml:"max_pass_data"`
	Threaded         bool `yaml:"threaded"`
}

func DefaultFrameConfig() FrameConfig {
	return FrameConfig{
		MaxBuckets:       16,
		MaxBucketSize:    16384,
		MaxLights:        2048,
		MaxBones:         16384,
		MaxShadowCasters: 64,
		MaxPassData:      64,
	}
}

// withDefaults fills zero capacities from DefaultFrameConfig.
func (c FrameConfig) withDefaults() FrameConfig {
	d := DefaultFrameConfig()
	if c.MaxBuckets <= 0 {
		c.MaxBuckets = d.MaxBuckets
	}
	if c.MaxBucketSize <= 0 {
		c.MaxBucketSize = d.MaxBucketSize
	}
	if c.MaxLights <= 0 {
		c.MaxLights = d.MaxLights
	}
	if c.MaxBones <= 0 {
		c.MaxBones = d.MaxBones
	}
	if c.MaxShadowCasters <= 0 {
		c.MaxShadowCasters = d.MaxShadowCasters
	}
	if c.MaxPassData <= 0 {
		c.MaxPassData = d.MaxPassData
	}
	return c
}

// FrameBuffers are the GPU buffers a frame uploads into on Finalize.
type FrameBuffers struct {
	Global   gpu.BufferID
	Models   gpu.BufferID
	Lights   gpu.BufferID
	Bones    gpu.BufferID
	PassData gpu.BufferID
	Indirect gpu.BufferID
	IDs      gpu.BufferID
}

type overflowKind int

const (
	overflowModels overflowKind = iota
	overflowLights
	overflowBones
	overflowShadows
	overflowPassData
	overflowKinds
)

var overflowNames = [overflowKinds]string{"model", "light", "bone", "shadow caster", "pass data"}

// RenderFrame holds everything submitted for one rendered frame.
//
// Initialize happens before any Push and every Push before Finalize.
// With FrameConfig.Threaded the Push methods and NextBoneID may be called
// from several goroutines at once; everything else is single goroutine.
type RenderFrame struct {
	cfg FrameConfig
	log core.Logger

	id      uint64
	camera  core.Camera
	primary int
	buckets []GeometryBucket

	models    []GeometryModel
	modelData []GeometryModelData
	lights    []core.Light
	bones     []mgl32.Mat4
	shadows   []ShadowCaster
	passData  []PassData

	modelCount  Counter
	lightCount  Counter
	boneCount   Counter
	shadowCount Counter
	passCount   int

	global   GlobalData
	overflow [overflowKinds]atomic.Bool

	debug         *geometry.BlockGeometry
	debugQueue    geometry.UploadQueue
	debugMaterial RenderMaterial
}

func NewRenderFrame(cfg FrameConfig, log core.Logger) *RenderFrame {
	cfg = cfg.withDefaults()
	log = core.OrNop(log)
	f := &RenderFrame{
		cfg:         cfg,
		log:         log,
		buckets:     make([]GeometryBucket, cfg.MaxBuckets),
		models:      make([]GeometryModel, cfg.MaxBucketSize),
		modelData:   make([]GeometryModelData, cfg.MaxBucketSize),
		lights:      make([]core.Light, cfg.MaxLights),
		bones:       make([]mgl32.Mat4, cfg.MaxBones),
		shadows:     make([]ShadowCaster, cfg.MaxShadowCasters),
		passData:    make([]PassData, cfg.MaxPassData),
		modelCount:  NewCounter(cfg.Threaded),
		lightCount:  NewCounter(cfg.Threaded),
		boneCount:   NewCounter(cfg.Threaded),
		shadowCount: NewCounter(cfg.Threaded),
	}
	for i := range f.buckets {
		f.buckets[i] = newGeometryBucket(i, cfg.MaxBucketSize, cfg.Threaded, log)
	}
	return f
}

func (f *RenderFrame) Config() FrameConfig { return f.cfg }
func (f *RenderFrame) ID() uint64          { return f.id }

// Initialize starts a new frame and drops everything submitted before.
func (f *RenderFrame) Initialize(frameID uint64) {
	f.id = frameID
	f.primary = 0
	for i := range f.buckets {
		f.buckets[i].Reset()
	}
	f.modelCount.Store(0)
	f.lightCount.Store(0)
	f.boneCount.Store(0)
	f.shadowCount.Store(0)
	f.passCount = 0
	f.global = GlobalData{}
	for i := range f.overflow {
		f.overflow[i].Store(false)
	}
}

// SetCamera records the viewer passes build their buckets from.
func (f *RenderFrame) SetCamera(cam core.Camera) { f.camera = cam }

func (f *RenderFrame) Camera() *core.Camera { return &f.camera }

// InitializeBucket binds bucket idx to a camera for this frame.
func (f *RenderFrame) InitializeBucket(idx int, cam core.Camera, props BucketProps) error {
	if idx < 0 || idx >= len(f.buckets) {
		return fmt.Errorf("initialize bucket %d: %w", idx, ErrNoBucket)
	}
	f.buckets[idx].Initialize(cam, props)
	return nil
}

// SetPrimaryBucket selects the bucket lights are culled against.
func (f *RenderFrame) SetPrimaryBucket(idx int) {
	if idx >= 0 && idx < len(f.buckets) {
		f.primary = idx
	}
}

func (f *RenderFrame) PrimaryBucket() *GeometryBucket { return &f.buckets[f.primary] }

func (f *RenderFrame) Bucket(idx int) *GeometryBucket {
	if idx < 0 || idx >= len(f.buckets) {
		return nil
	}
	return &f.buckets[idx]
}

func (f *RenderFrame) BucketCount() int { return len(f.buckets) }

func (f *RenderFrame) logOverflow(kind overflowKind, limit int) {
	if f.overflow[kind].CompareAndSwap(false, true) {
		f.log.Criticalf("render frame %d: %s capacity %d exhausted, dropping submissions", f.id, overflowNames[kind], limit)
	}
}

// PushModel submits a model bounded by a sphere to every bucket whose pass
// bits intersect passBits and whose frustum contains the sphere. Returns the
// model index or NotSubmitted.
func (f *RenderFrame) PushModel(model GeometryModel, data GeometryModelData, passBits uint32, pos mgl32.Vec3, radius float32) int {
	if passBits == 0 {
		return NotSubmitted
	}
	return f.pushModel(&model, &data, passBits, pos, func(b *GeometryBucket) bool {
		return b.SphereInFrustum(pos, radius)
	})
}

// PushModelAABB is PushModel for a world space box.
func (f *RenderFrame) PushModelAABB(model GeometryModel, data GeometryModelData, passBits uint32, min, max mgl32.Vec3) int {
	if passBits == 0 {
		return NotSubmitted
	}
	center := min.Add(max).Mul(0.5)
	return f.pushModel(&model, &data, passBits, center, func(b *GeometryBucket) bool {
		return b.AABBInFrustum(min, max)
	})
}

func (f *RenderFrame) pushModel(model *GeometryModel, data *GeometryModelData, passBits uint32, pos mgl32.Vec3, visible func(*GeometryBucket) bool) int {
	idx := NotSubmitted
	blockHash := model.Block.Hash()
	materialHash := model.Material.Hash()
	for i := range f.buckets {
		b := &f.buckets[i]
		if !b.initialized || b.props.PassBits&passBits == 0 || !visible(b) {
			continue
		}
		if idx == NotSubmitted {
			slot := f.modelCount.Reserve(1)
			if slot >= len(f.models) {
				f.logOverflow(overflowModels, len(f.models))
				return NotSubmitted
			}
			idx = slot
			f.models[idx] = *model
			f.modelData[idx] = *data
		}
		b.PushModel(idx, blockHash, materialHash, &f.models[idx], pos)
	}
	return idx
}

// PushMesh submits every primitive of mesh with a shared world bound.
// materials is indexed by MeshPrimitive.Material. Returns the number of
// primitives submitted.
func (f *RenderFrame) PushMesh(mesh *Mesh, transform mgl32.Mat4, materials []RenderMaterial, data GeometryModelData, passBits uint32) int {
	if mesh == nil || passBits == 0 {
		return 0
	}
	min, max := core.TransformAABB(transform, mesh.Min, mesh.Max)
	data.Transform = transform
	n := 0
	for i := range mesh.Primitives {
		if f.pushMeshPrimitive(mesh, i, materials, data, passBits, min, max) != NotSubmitted {
			n++
		}
	}
	return n
}

// PushMeshPrimitive submits a single primitive of mesh.
func (f *RenderFrame) PushMeshPrimitive(mesh *Mesh, primitive int, transform mgl32.Mat4, materials []RenderMaterial, data GeometryModelData, passBits uint32) int {
	if mesh == nil || primitive < 0 || primitive >= len(mesh.Primitives) {
		return NotSubmitted
	}
	min, max := core.TransformAABB(transform, mesh.Min, mesh.Max)
	data.Transform = transform
	return f.pushMeshPrimitive(mesh, primitive, materials, data, passBits, min, max)
}

func (f *RenderFrame) pushMeshPrimitive(mesh *Mesh, i int, materials []RenderMaterial, data GeometryModelData, passBits uint32, min, max mgl32.Vec3) int {
	p := mesh.Primitives[i]
	if p.Material < 0 || p.Material >= len(materials) {
		f.log.Warnf("mesh %q primitive %d: material %d out of range", mesh.Name, i, p.Material)
		return NotSubmitted
	}
	return f.PushModelAABB(GeometryModel{Block: p.Block, Material: materials[p.Material], Flags: p.Flags}, data, passBits, min, max)
}

// PushLight stores a light. Point and spot lights outside the primary
// bucket's frustum are rejected; ambient lights never cast shadows.
// Returns the light index or NotSubmitted.
func (f *RenderFrame) PushLight(light core.Light, shadowCaster bool) int {
	primary := &f.buckets[f.primary]
	switch light.Type() {
	case core.LightAmbient:
		shadowCaster = false
	case core.LightPoint, core.LightSpot:
		if primary.initialized && !primary.SphereInFrustum(light.Pos(), light.Range()) {
			return NotSubmitted
		}
	}

	slot := f.lightCount.Reserve(1)
	if slot >= len(f.lights) {
		f.logOverflow(overflowLights, len(f.lights))
		return NotSubmitted
	}
	light.SetShadowSlot(-1)
	f.lights[slot] = light

	if shadowCaster {
		s := f.shadowCount.Reserve(1)
		if s >= len(f.shadows) {
			f.logOverflow(overflowShadows, len(f.shadows))
			return slot
		}
		dist := float32(0)
		if light.Type() != core.LightDirectional {
			dist = light.Pos().Sub(primary.position).LenSqr()
		}
		f.shadows[s] = ShadowCaster{Light: slot, Distance: dist}
	}
	return slot
}

// NextBoneID reserves count consecutive bone matrices. Returns NotSubmitted
// when the bone array is exhausted.
func (f *RenderFrame) NextBoneID(count int) int {
	if count <= 0 {
		return NotSubmitted
	}
	first := f.boneCount.Reserve(count)
	if first+count > len(f.bones) {
		f.logOverflow(overflowBones, len(f.bones))
		return NotSubmitted
	}
	return first
}

// Bones returns the matrices reserved by NextBoneID for writing.
func (f *RenderFrame) Bones(first, count int) []mgl32.Mat4 {
	if first < 0 || first+count > len(f.bones) {
		return nil
	}
	return f.bones[first : first+count]
}

// PushPassData appends the camera data of one sub-pass and returns its slot.
func (f *RenderFrame) PushPassData(pd PassData) int {
	if f.passCount >= len(f.passData) {
		f.logOverflow(overflowPassData, len(f.passData))
		return NotSubmitted
	}
	f.passData[f.passCount] = pd
	f.passCount++
	return f.passCount - 1
}

func (f *RenderFrame) ModelCount() int    { return min(f.modelCount.Load(), len(f.models)) }
func (f *RenderFrame) LightCount() int    { return min(f.lightCount.Load(), len(f.lights)) }
func (f *RenderFrame) BoneCount() int     { return min(f.boneCount.Load(), len(f.bones)) }
func (f *RenderFrame) ShadowCount() int   { return min(f.shadowCount.Load(), len(f.shadows)) }
func (f *RenderFrame) PassDataCount() int { return f.passCount }

func (f *RenderFrame) Model(i int) *GeometryModel         { return &f.models[i] }
func (f *RenderFrame) ModelData(i int) *GeometryModelData { return &f.modelData[i] }
func (f *RenderFrame) Light(i int) *core.Light            { return &f.lights[i] }
func (f *RenderFrame) PassData(i int) *PassData           { return &f.passData[i] }

// ShadowCasters returns the shadow requests of this frame.
func (f *RenderFrame) ShadowCasters() []ShadowCaster { return f.shadows[:f.ShadowCount()] }

func (f *RenderFrame) Global() GlobalData { return f.global }

// Finalize clamps every counter, uploads the frame arrays and finalizes each
// initialized bucket. Bucket records are uploaded at bucket*MaxBucketSize.
func (f *RenderFrame) Finalize(resolver DrawResolver, drv gpu.Driver, bufs FrameBuffers, elapsed float32, width, height int) error {
	models := clamp(f.modelCount, len(f.models))
	lights := clamp(f.lightCount, len(f.lights))
	bones := clamp(f.boneCount, len(f.bones))
	clamp(f.shadowCount, len(f.shadows))

	f.global = GlobalData{
		ScreenSize: [2]float32{float32(width), float32(height)},
		Time:       elapsed,
		LightCount: uint32(lights),
		FrameID:    uint32(f.id),
		ModelCount: uint32(models),
	}

	var errs []error
	upload := func(name string, id gpu.BufferID, offset uint64, data []byte) {
		if id == 0 || len(data) == 0 {
			return
		}
		if err := drv.UpdateBuffer(id, offset, data); err != nil {
			errs = append(errs, fmt.Errorf("upload %s: %w", name, err))
		}
	}
	upload("global data", bufs.Global, 0, gpu.ValueBytes(&f.global))
	upload("model data", bufs.Models, 0, gpu.SliceBytes(f.modelData[:models]))
	upload("light data", bufs.Lights, 0, gpu.SliceBytes(f.lights[:lights]))
	upload("bone data", bufs.Bones, 0, gpu.SliceBytes(f.bones[:bones]))
	upload("pass data", bufs.PassData, 0, gpu.SliceBytes(f.passData[:f.passCount]))

	capacity := uint64(f.cfg.MaxBucketSize)
	for i := range f.buckets {
		b := &f.buckets[i]
		if !b.initialized {
			continue
		}
		b.Finalize(resolver, f.models[:models], uint32(uint64(i)*capacity))
		upload("indirect", bufs.Indirect, uint64(i)*capacity*gpu.IndirectCommandSize, b.IndirectData())
		upload("model ids", bufs.IDs, uint64(i)*capacity*4, gpu.SliceBytes(b.IDs()))
	}
	return errors.Join(errs...)
}

// BufferSizes returns the byte sizes FrameBuffers must have for cfg.
func BufferSizes(cfg FrameConfig) FrameBufferSizes {
	cfg = cfg.withDefaults()
	return FrameBufferSizes{
		Global:   gpu.SizeOf[GlobalData](),
		Models:   uint64(cfg.MaxBucketSize) * gpu.SizeOf[GeometryModelData](),
		Lights:   uint64(cfg.MaxLights) * gpu.SizeOf[core.Light](),
		Bones:    uint64(cfg.MaxBones) * 64,
		PassData: uint64(cfg.MaxPassData) * gpu.SizeOf[PassData](),
		Indirect: uint64(cfg.MaxBuckets*cfg.MaxBucketSize) * gpu.IndirectCommandSize,
		IDs:      uint64(cfg.MaxBuckets*cfg.MaxBucketSize) * 4,
	}
}

type FrameBufferSizes struct {
	Global, Models, Lights, Bones, PassData, Indirect, IDs uint64
}
