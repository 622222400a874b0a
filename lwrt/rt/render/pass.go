package render

import (
	"github.com/gekko3d/lightwave/lwrt/rt/frame"
)

// Pass turns a finalized frame into draw calls. All methods except
// InitializeFrame and PrepareFrame run on the driver goroutine; those two run
// on the goroutine that owns the frame between BeginFrame and EndFrame.
type Pass interface {
	Name() string
	Enabled() bool

	// InitializePass returns how many geometry buckets the pass needs,
	// starting at bucketOffset. Zero is invalid.
	InitializePass(r *Renderer, bucketOffset int) (int, error)
	CreateFrame(r *Renderer, slot int) error
	ReleaseFrame(r *Renderer, slot int)

	InitializeFrame(r *Renderer, f *frame.RenderFrame)
	PrepareFrame(r *Renderer, f *frame.RenderFrame)
	PreFinalizeFrame(r *Renderer, f *frame.RenderFrame)
	PostFinalizeFrame(r *Renderer, f *frame.RenderFrame)

	// RenderPass issues the draws of the pass and returns how many pass
	// data slots it consumed from passDataOffset.
	RenderPass(r *Renderer, f *frame.RenderFrame, passDataOffset uint32) uint32

	WindowSizeChanged(r *Renderer, width, height int)
	DestroyPass(r *Renderer)
}

// PassBase implements every optional Pass hook as a no-op.
type PassBase struct {
	PassName     string
	Disabled     bool
	BucketOffset int
	BucketCount  int
	PassBit      uint32
}

func (p *PassBase) Name() string  { return p.PassName }
func (p *PassBase) Enabled() bool { return !p.Disabled }

func (p *PassBase) SetEnabled(enabled bool) { p.Disabled = !enabled }

// InitializeBase records the bucket range and pass bit the renderer assigned.
func (p *PassBase) InitializeBase(r *Renderer, bucketOffset, bucketCount int) {
	p.BucketOffset = bucketOffset
	p.BucketCount = bucketCount
	p.PassBit = r.PassBit(p.PassName)
}

func (p *PassBase) InitializePass(r *Renderer, bucketOffset int) (int, error) {
	p.InitializeBase(r, bucketOffset, 1)
	return 1, nil
}

func (p *PassBase) CreateFrame(r *Renderer, slot int) error             { return nil }
func (p *PassBase) ReleaseFrame(r *Renderer, slot int)                  {}
func (p *PassBase) InitializeFrame(r *Renderer, f *frame.RenderFrame)   {}
func (p *PassBase) PrepareFrame(r *Renderer, f *frame.RenderFrame)      {}
func (p *PassBase) PreFinalizeFrame(r *Renderer, f *frame.RenderFrame)  {}
func (p *PassBase) PostFinalizeFrame(r *Renderer, f *frame.RenderFrame) {}
func (p *PassBase) WindowSizeChanged(r *Renderer, width, height int)    {}
func (p *PassBase) DestroyPass(r *Renderer)                             {}
func (p *PassBase) RenderPass(r *Renderer, f *frame.RenderFrame, passDataOffset uint32) uint32 {
	return 0
}
