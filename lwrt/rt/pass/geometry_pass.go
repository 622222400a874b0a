package pass

import (
	"github.com/gekko3d/lightwave/lwrt/rt/frame"
	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
	"github.com/gekko3d/lightwave/lwrt/rt/render"
)

type GeometryPassProps struct {
	Name string
	// Target is a framebuffer name; empty draws to the window.
	Target          string
	Clear           gpu.ClearState
	OpaqueSort      frame.SortMode
	TransparentSort frame.SortMode
	// Primary makes the pass bucket the one lights are culled against.
	Primary bool
	// Storage and Textures name resources bound after the frame buffers and
	// the material textures.
	Storage  []string
	Textures []string
}

// GeometryPass draws the models visible to the frame camera through one
// geometry bucket, opaque renderables first.
type GeometryPass struct {
	render.PassBase
	props    GeometryPassProps
	missing  missingLog
	passData int
}

func NewGeometryPass(props GeometryPassProps) *GeometryPass {
	if props.Name == "" {
		props.Name = "geometry"
	}
	return &GeometryPass{
		PassBase: render.PassBase{PassName: props.Name},
		props:    props,
		missing:  make(missingLog),
		passData: frame.NotSubmitted,
	}
}

func (p *GeometryPass) Props() GeometryPassProps { return p.props }

func (p *GeometryPass) InitializeFrame(r *render.Renderer, f *frame.RenderFrame) {
	props := frame.BucketProps{
		PassBits:        p.PassBit,
		OpaqueSort:      p.props.OpaqueSort,
		TransparentSort: p.props.TransparentSort,
	}
	if err := f.InitializeBucket(p.BucketOffset, *f.Camera(), props); err != nil {
		r.Logger().Errorf("pass %q: %v", p.PassName, err)
		return
	}
	if p.props.Primary {
		f.SetPrimaryBucket(p.BucketOffset)
	}
}

func (p *GeometryPass) PreFinalizeFrame(r *render.Renderer, f *frame.RenderFrame) {
	w, h := r.WindowSize()
	p.passData = f.PushPassData(frame.NewPassData(f.Camera(), float32(w), float32(h)))
}

func (p *GeometryPass) RenderPass(r *render.Renderer, f *frame.RenderFrame, passDataOffset uint32) uint32 {
	if p.passData == frame.NotSubmitted {
		return 0
	}
	target, ok := lookupTarget(r, p.props.Target, p.missing, p.PassName)
	if !ok {
		return 1
	}
	storage, ok := lookupBuffers(r, p.props.Storage, p.missing, p.PassName)
	if !ok {
		return 1
	}
	textures, ok := lookupTextures(r, p.props.Textures, p.missing, p.PassName)
	if !ok {
		return 1
	}

	drv := r.Driver()
	if err := drv.BeginPass(target, p.props.Clear); err != nil {
		r.Logger().Errorf("pass %q: %v", p.PassName, err)
		return 1
	}
	drawn := drawBucket(r, f, p.BucketOffset, bucketDraw{
		passData: passDataOffset,
		storage:  frameStorage(r, storage),
		textures: textures,
	}, p.missing, p.PassName)
	if err := drv.EndPass(); err != nil {
		r.Logger().Errorf("pass %q: %v", p.PassName, err)
	}
	r.Profiler().SetCount(p.PassName+" draws", drawn)
	return 1
}
