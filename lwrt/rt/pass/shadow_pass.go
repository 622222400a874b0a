package pass

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lightwave/lwrt/rt/core"
	"github.com/gekko3d/lightwave/lwrt/rt/frame"
	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
	"github.com/gekko3d/lightwave/lwrt/rt/render"
)

type ShadowMapPassProps struct {
	Name string
	// Pipeline draws depth only; material pipelines are ignored.
	Pipeline string
	// Buckets is the number of shadow map layers, shared by every caster.
	Buckets  int
	Cascades int
	MapSize  uint32
	Format   gpu.TextureFormat
	// Near is the near plane of spot and point light cameras.
	Near     float32
	SceneMin mgl32.Vec3
	SceneMax mgl32.Vec3
}

func DefaultShadowMapPassProps() ShadowMapPassProps {
	return ShadowMapPassProps{
		Name:     "shadow",
		Pipeline: "shadow",
		Buckets:  8,
		Cascades: 3,
		MapSize:  2048,
		Format:   gpu.FormatDepth32F,
		Near:     0.05,
		SceneMin: mgl32.Vec3{-512, -512, -512},
		SceneMax: mgl32.Vec3{512, 512, 512},
	}
}

// cubeFaces are the point light camera directions and up vectors.
var cubeFaces = [6][2]mgl32.Vec3{
	{{1, 0, 0}, {0, -1, 0}},
	{{-1, 0, 0}, {0, -1, 0}},
	{{0, 1, 0}, {0, 0, 1}},
	{{0, -1, 0}, {0, 0, -1}},
	{{0, 0, 1}, {0, -1, 0}},
	{{0, 0, -1}, {0, -1, 0}},
}

// ShadowMapPass renders the depth of shadow casting lights into the layers
// of one texture array. Casters are served nearest first: a directional
// light takes Cascades layers, a spot light one and a point light six.
// Casters that no longer fit are dropped for the frame.
type ShadowMapPass struct {
	render.PassBase
	props   ShadowMapPassProps
	missing missingLog

	// producer side
	casters []frame.ShadowCaster
	cams    [6]core.Camera

	// driver side
	layerNames []string
	layers     []int
	matrices   []mgl32.Mat4
	matrixBuf  gpu.BufferID
}

func NewShadowMapPass(props ShadowMapPassProps) *ShadowMapPass {
	d := DefaultShadowMapPassProps()
	props.Name = cmp.Or(props.Name, d.Name)
	props.Pipeline = cmp.Or(props.Pipeline, d.Pipeline)
	props.Buckets = cmp.Or(props.Buckets, d.Buckets)
	props.Cascades = min(cmp.Or(props.Cascades, d.Cascades), core.MaxCascades)
	props.MapSize = cmp.Or(props.MapSize, d.MapSize)
	props.Near = cmp.Or(props.Near, d.Near)
	if props.SceneMin == props.SceneMax {
		props.SceneMin, props.SceneMax = d.SceneMin, d.SceneMax
	}
	if !props.Format.IsDepth() {
		props.Format = d.Format
	}
	return &ShadowMapPass{
		PassBase: render.PassBase{PassName: props.Name},
		props:    props,
		missing:  make(missingLog),
	}
}

func (p *ShadowMapPass) Props() ShadowMapPassProps { return p.props }

// MapName is the texture array the shadow maps are rendered into.
func (p *ShadowMapPass) MapName() string { return p.PassName + " map" }

// MatricesName is the storage buffer holding one light matrix per layer.
func (p *ShadowMapPass) MatricesName() string { return p.PassName + " matrices" }

func (p *ShadowMapPass) InitializePass(r *render.Renderer, bucketOffset int) (int, error) {
	n := p.props.Buckets
	p.InitializeBase(r, bucketOffset, n)

	err := r.ExecuteNow(render.PendingTexture(p.MapName(), render.TextureProps{TextureDesc: gpu.TextureDesc{
		Width:        p.props.MapSize,
		Height:       p.props.MapSize,
		Layers:       uint32(n),
		Format:       p.props.Format,
		Samples:      1,
		RenderTarget: true,
	}}, nil))
	if err != nil {
		return 0, err
	}
	p.layerNames = make([]string, n)
	for i := range p.layerNames {
		p.layerNames[i] = fmt.Sprintf("%s layer %d", p.PassName, i)
		err := r.ExecuteNow(render.PendingFramebuffer(p.layerNames[i], render.FramebufferProps{
			Depth: p.MapName(),
			Layer: uint32(i),
		}))
		if err != nil {
			return 0, err
		}
	}
	p.matrices = make([]mgl32.Mat4, n)
	err = r.ExecuteNow(render.PendingBuffer(p.MatricesName(), gpu.BufferDesc{
		Size:  uint64(n) * 64,
		Usage: gpu.UsageStorage | gpu.UsageCopyDst,
	}, nil))
	if err != nil {
		return 0, err
	}
	p.matrixBuf, _ = r.Resources().Buffer(core.NameHash(p.MatricesName()))
	return n, nil
}

// BucketsFor returns the layers a light of type t occupies.
func (p *ShadowMapPass) BucketsFor(t core.LightType) int {
	switch t {
	case core.LightDirectional:
		return p.props.Cascades
	case core.LightSpot:
		return 1
	case core.LightPoint:
		return 6
	}
	return 0
}

// PrepareFrame assigns layers to the shadow casters pushed so far and binds
// their buckets. Lights without a layer keep a shadow slot of -1.
func (p *ShadowMapPass) PrepareFrame(r *render.Renderer, f *frame.RenderFrame) {
	p.casters = append(p.casters[:0], f.ShadowCasters()...)
	slices.SortStableFunc(p.casters, func(a, b frame.ShadowCaster) int {
		return cmp.Compare(a.Distance, b.Distance)
	})

	bucketProps := frame.BucketProps{PassBits: p.PassBit, OpaqueSort: frame.SortState, TransparentSort: frame.SortNone}
	next := 0
	for _, c := range p.casters {
		l := f.Light(c.Light)
		need := p.BucketsFor(l.Type())
		if need == 0 || next+need > p.BucketCount {
			continue
		}
		cams := p.lightCameras(f, l, need)
		for k, cam := range cams {
			if err := f.InitializeBucket(p.BucketOffset+next+k, cam, bucketProps); err != nil {
				r.Logger().Errorf("pass %q: %v", p.PassName, err)
			}
		}
		l.SetShadowSlot(next)
		next += need
	}
}

func (p *ShadowMapPass) lightCameras(f *frame.RenderFrame, l *core.Light, need int) []core.Camera {
	cams := p.cams[:need]
	switch l.Type() {
	case core.LightDirectional:
		view := f.Camera()
		n := core.MakeCascadeCameraViews(l.Dir(), view.Position(), view.BuildFrustumPoints(), cams, need, p.props.SceneMin, p.props.SceneMax)
		return cams[:n]
	case core.LightSpot:
		dir := l.Dir()
		up := mgl32.Vec3{0, 1, 0}
		if absf(dir.Y()) > 0.99 {
			up = mgl32.Vec3{0, 0, 1}
		}
		cams[0] = core.NewPerspectiveCamera(l.Pos(), dir, up, core.Perspective{
			FOV:    2 * l.ConeAngle(),
			Aspect: 1,
			Near:   p.props.Near,
			Far:    max(l.Range(), p.props.Near*2),
		}, core.CameraShadowCaster)
	case core.LightPoint:
		for i, face := range cubeFaces {
			cams[i] = core.NewPerspectiveCamera(l.Pos(), face[0], face[1], core.Perspective{
				FOV:    mgl32.DegToRad(90),
				Aspect: 1,
				Near:   p.props.Near,
				Far:    max(l.Range(), p.props.Near*2),
			}, core.CameraShadowCaster)
		}
	}
	return cams
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// PreFinalizeFrame pushes one PassData per bound layer, in light order, and
// uploads the light matrices.
func (p *ShadowMapPass) PreFinalizeFrame(r *render.Renderer, f *frame.RenderFrame) {
	p.layers = p.layers[:0]
	clear(p.matrices)
	size := float32(p.props.MapSize)
lights:
	for i := 0; i < f.LightCount(); i++ {
		l := f.Light(i)
		slot := l.ShadowSlot()
		if slot < 0 {
			continue
		}
		for k := 0; k < p.BucketsFor(l.Type()); k++ {
			layer := slot + k
			b := f.Bucket(p.BucketOffset + layer)
			if layer >= p.BucketCount || b == nil || !b.Initialized() {
				continue
			}
			pd := frame.NewPassData(b.Camera(), size, size)
			pd.Params[2] = float32(layer)
			pd.Params[3] = float32(i)
			if f.PushPassData(pd) == frame.NotSubmitted {
				break lights
			}
			p.layers = append(p.layers, layer)
			p.matrices[layer] = b.Camera().ProjViewMatrix()
		}
	}
	if p.matrixBuf != 0 {
		if err := r.Driver().UpdateBuffer(p.matrixBuf, 0, gpu.SliceBytes(p.matrices)); err != nil {
			r.Logger().Errorf("pass %q: upload matrices: %v", p.PassName, err)
		}
	}
}

// Layers returns the layers rendered this frame, in pass data order.
func (p *ShadowMapPass) Layers() []int { return p.layers }

func (p *ShadowMapPass) RenderPass(r *render.Renderer, f *frame.RenderFrame, passDataOffset uint32) uint32 {
	if len(p.layers) == 0 {
		return 0
	}
	pipeline, ok := r.Resources().Pipeline(core.NameHash(p.props.Pipeline))
	if !ok {
		p.missing.warn(r.Logger(), p.PassName, "pipeline", core.NameHash(p.props.Pipeline), p.props.Pipeline)
		return uint32(len(p.layers))
	}
	drv := r.Driver()
	storage := frameStorage(r, nil)
	drawn := 0
	for k, layer := range p.layers {
		target, ok := lookupTarget(r, p.layerNames[layer], p.missing, p.PassName)
		if !ok {
			continue
		}
		if err := drv.BeginPass(target, gpu.ClearState{Depth: 1, ClearDepth: true}); err != nil {
			r.Logger().Errorf("pass %q: %v", p.PassName, err)
			continue
		}
		drawn += drawBucket(r, f, p.BucketOffset+layer, bucketDraw{
			pipeline:   pipeline,
			passData:   passDataOffset + uint32(k),
			storage:    storage,
			opaqueOnly: true,
		}, p.missing, p.PassName)
		if err := drv.EndPass(); err != nil {
			r.Logger().Errorf("pass %q: %v", p.PassName, err)
		}
	}
	r.Profiler().SetCount(p.PassName+" draws", drawn)
	return uint32(len(p.layers))
}

func (p *ShadowMapPass) DestroyPass(r *render.Renderer) {
	for _, n := range p.layerNames {
		_ = r.ExecuteNow(render.PendingDestroy(render.PendingDestroyFramebuffer, n))
	}
	_ = r.ExecuteNow(render.PendingDestroy(render.PendingDestroyTexture, p.MapName()))
	_ = r.ExecuteNow(render.PendingDestroy(render.PendingDestroyBuffer, p.MatricesName()))
	p.matrixBuf = 0
}
