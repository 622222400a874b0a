package pass

import (
	"cmp"

	"github.com/gekko3d/lightwave/lwrt/rt/frame"
	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
	"github.com/gekko3d/lightwave/lwrt/rt/render"
)

type GaussianBlurPassProps struct {
	Name     string
	Pipeline string
	Source   string
	// Target is a framebuffer name; empty draws to the window.
	Target string
	// Scale sizes the intermediate texture relative to the window.
	Scale  float32
	Format gpu.TextureFormat
}

// GaussianBlurPass blurs Source into Target in two sub-passes, horizontal
// into an intermediate texture and vertical from it. The blur direction of
// each sub-pass is the Direction of its PassData, in texels.
type GaussianBlurPass struct {
	render.PassBase
	props   GaussianBlurPassProps
	missing missingLog
	pushed  uint32
}

func NewGaussianBlurPass(props GaussianBlurPassProps) *GaussianBlurPass {
	props.Name = cmp.Or(props.Name, "blur")
	props.Scale = cmp.Or(props.Scale, 1)
	return &GaussianBlurPass{
		PassBase: render.PassBase{PassName: props.Name},
		props:    props,
		missing:  make(missingLog),
	}
}

func (p *GaussianBlurPass) Props() GaussianBlurPassProps { return p.props }

// TempName names the intermediate texture and its framebuffer.
func (p *GaussianBlurPass) TempName() string { return p.PassName + " temp" }

func (p *GaussianBlurPass) InitializePass(r *render.Renderer, bucketOffset int) (int, error) {
	p.InitializeBase(r, bucketOffset, 1)
	err := r.ExecuteNow(render.PendingTexture(p.TempName(), render.TextureProps{
		TextureDesc: gpu.TextureDesc{Format: p.props.Format, Samples: 1, RenderTarget: true},
		WindowScale: p.props.Scale,
	}, nil))
	if err != nil {
		return 0, err
	}
	if err := r.ExecuteNow(render.PendingFramebuffer(p.TempName(), render.FramebufferProps{Color: []string{p.TempName()}})); err != nil {
		return 0, err
	}
	return 1, nil
}

func (p *GaussianBlurPass) PreFinalizeFrame(r *render.Renderer, f *frame.RenderFrame) {
	w, h := r.WindowSize()
	sw := max(1, float32(w)*p.props.Scale)
	sh := max(1, float32(h)*p.props.Scale)
	p.pushed = 0
	for _, dir := range [2][4]float32{{1 / sw, 0, 0, 0}, {0, 1 / sh, 0, 0}} {
		pd := frame.PassData{Direction: dir, Params: [4]float32{sw, sh, 0, -1}}
		if f.PushPassData(pd) == frame.NotSubmitted {
			return
		}
		p.pushed++
	}
}

func (p *GaussianBlurPass) RenderPass(r *render.Renderer, f *frame.RenderFrame, passDataOffset uint32) uint32 {
	if p.pushed < 2 {
		return p.pushed
	}
	if !drawFullscreen(r, p.PassName, p.missing, fullscreenDraw{
		pipeline: p.props.Pipeline,
		target:   p.TempName(),
		inputs:   []string{p.props.Source},
		passData: passDataOffset,
	}) {
		return p.pushed
	}
	drawFullscreen(r, p.PassName, p.missing, fullscreenDraw{
		pipeline: p.props.Pipeline,
		target:   p.props.Target,
		inputs:   []string{p.TempName()},
		passData: passDataOffset + 1,
	})
	return p.pushed
}

func (p *GaussianBlurPass) DestroyPass(r *render.Renderer) {
	_ = r.ExecuteNow(render.PendingDestroy(render.PendingDestroyFramebuffer, p.TempName()))
	_ = r.ExecuteNow(render.PendingDestroy(render.PendingDestroyTexture, p.TempName()))
}
