package pass

import (
	"github.com/gekko3d/lightwave/lwrt/rt/core"
	"github.com/gekko3d/lightwave/lwrt/rt/frame"
	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
	"github.com/gekko3d/lightwave/lwrt/rt/render"
)

type PPPassProps struct {
	Name     string
	Pipeline string
	// Target is a framebuffer name; empty draws to the window.
	Target  string
	Inputs  []string
	Storage []string
	Clear   gpu.ClearState
}

// PPPass draws one screen quad sampling its input textures.
type PPPass struct {
	render.PassBase
	props   PPPassProps
	missing missingLog
}

func NewPPPass(props PPPassProps) *PPPass {
	if props.Name == "" {
		props.Name = "postprocess"
	}
	return &PPPass{
		PassBase: render.PassBase{PassName: props.Name},
		props:    props,
		missing:  make(missingLog),
	}
}

func (p *PPPass) Props() PPPassProps { return p.props }

func (p *PPPass) RenderPass(r *render.Renderer, f *frame.RenderFrame, passDataOffset uint32) uint32 {
	drawFullscreen(r, p.PassName, p.missing, fullscreenDraw{
		pipeline: p.props.Pipeline,
		target:   p.props.Target,
		inputs:   p.props.Inputs,
		storage:  p.props.Storage,
		clear:    p.props.Clear,
		passData: passDataOffset,
	})
	return 0
}

type fullscreenDraw struct {
	pipeline string
	target   string
	inputs   []string
	storage  []string
	clear    gpu.ClearState
	passData uint32
}

// drawFullscreen runs one render pass drawing the screen quad. Missing
// resources skip the draw.
func drawFullscreen(r *render.Renderer, pass string, missing missingLog, d fullscreenDraw) bool {
	pipeline, ok := r.Resources().Pipeline(core.NameHash(d.pipeline))
	if !ok {
		missing.warn(r.Logger(), pass, "pipeline", core.NameHash(d.pipeline), d.pipeline)
		return false
	}
	target, ok := lookupTarget(r, d.target, missing, pass)
	if !ok {
		return false
	}
	textures, ok := lookupTextures(r, d.inputs, missing, pass)
	if !ok {
		return false
	}
	storage, ok := lookupBuffers(r, d.storage, missing, pass)
	if !ok {
		return false
	}

	drv := r.Driver()
	if err := drv.BeginPass(target, d.clear); err != nil {
		r.Logger().Errorf("pass %q: %v", pass, err)
		return false
	}
	err := drv.Draw(gpu.DrawState{
		Pipeline: pipeline,
		Storage:  frameStorage(r, storage),
		Textures: textures,
		PassData: d.passData,
	}, FullscreenVertices, 1)
	if err != nil {
		r.Logger().Errorf("pass %q: draw: %v", pass, err)
	}
	if err := drv.EndPass(); err != nil {
		r.Logger().Errorf("pass %q: %v", pass, err)
	}
	return err == nil
}
