package pass

import (
	"github.com/gekko3d/lightwave/lwrt/rt/frame"
	"github.com/gekko3d/lightwave/lwrt/rt/render"
)

// ResolveTarget pairs a multisampled texture with its resolve destination.
type ResolveTarget struct {
	Source string
	Dest   string
}

// ResolvePass resolves multisampled textures in list order.
type ResolvePass struct {
	render.PassBase
	targets []ResolveTarget
	missing missingLog
}

func NewResolvePass(name string, targets ...ResolveTarget) *ResolvePass {
	if name == "" {
		name = "resolve"
	}
	return &ResolvePass{
		PassBase: render.PassBase{PassName: name},
		targets:  targets,
		missing:  make(missingLog),
	}
}

func (p *ResolvePass) Targets() []ResolveTarget { return p.targets }

func (p *ResolvePass) RenderPass(r *render.Renderer, f *frame.RenderFrame, passDataOffset uint32) uint32 {
	for _, t := range p.targets {
		ids, ok := lookupTextures(r, []string{t.Source, t.Dest}, p.missing, p.PassName)
		if !ok {
			continue
		}
		if err := r.Driver().Resolve(ids[0], ids[1]); err != nil {
			r.Logger().Errorf("pass %q: resolve %q into %q: %v", p.PassName, t.Source, t.Dest, err)
		}
	}
	return 0
}
