package pass

import (
	"cmp"
	"sync"

	"github.com/gekko3d/lightwave/lwrt/rt/core"
	"github.com/gekko3d/lightwave/lwrt/rt/frame"
	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
	"github.com/gekko3d/lightwave/lwrt/rt/render"
)

type UIPassProps struct {
	Name      string
	Pipeline  string
	FontSize  float64
	MaxGlyphs int
	// ShowProfiler draws the renderer profiler in the top left corner.
	ShowProfiler bool
}

// TextVertexLayout is the vertex stream of the UI pipeline.
func TextVertexLayout() gpu.VertexLayout {
	return gpu.VertexLayout{Stride: uint32(gpu.SizeOf[core.TextVertex]()), Attributes: []gpu.VertexAttribute{
		{Name: "Position", Format: gpu.Float32x2, Offset: 0},
		{Name: "TexCoord", Format: gpu.Float32x2, Offset: 8},
		{Name: "Color", Format: gpu.Float32x4, Offset: 16},
	}}
}

// UIPass draws text over the window. Text may be set from any goroutine.
type UIPass struct {
	render.PassBase
	props   UIPassProps
	missing missingLog
	atlas   *core.GlyphAtlas

	mu    sync.Mutex
	items []core.TextItem

	drawItems []core.TextItem
	vertices  []core.TextVertex
	vbuf      gpu.BufferID
	texture   gpu.TextureID
}

func NewUIPass(props UIPassProps) *UIPass {
	props.Name = cmp.Or(props.Name, "ui")
	props.Pipeline = cmp.Or(props.Pipeline, "text")
	props.FontSize = cmp.Or(props.FontSize, 16)
	props.MaxGlyphs = cmp.Or(props.MaxGlyphs, 4096)
	return &UIPass{
		PassBase: render.PassBase{PassName: props.Name},
		props:    props,
		missing:  make(missingLog),
	}
}

func (p *UIPass) AtlasName() string    { return p.PassName + " atlas" }
func (p *UIPass) VerticesName() string { return p.PassName + " vertices" }

func (p *UIPass) InitializePass(r *render.Renderer, bucketOffset int) (int, error) {
	p.InitializeBase(r, bucketOffset, 1)
	atlas, err := core.NewDefaultGlyphAtlas(p.props.FontSize)
	if err != nil {
		return 0, err
	}
	p.atlas = atlas

	b := atlas.Image.Bounds()
	err = r.ExecuteNow(render.PendingTexture(p.AtlasName(), render.TextureProps{TextureDesc: gpu.TextureDesc{
		Width:   uint32(b.Dx()),
		Height:  uint32(b.Dy()),
		Format:  gpu.FormatR8,
		Samples: 1,
	}}, atlas.Image.Pix))
	if err != nil {
		return 0, err
	}
	err = r.ExecuteNow(render.PendingBuffer(p.VerticesName(), gpu.BufferDesc{
		Size:  uint64(p.props.MaxGlyphs*6) * gpu.SizeOf[core.TextVertex](),
		Usage: gpu.UsageVertex | gpu.UsageCopyDst,
	}, nil))
	if err != nil {
		return 0, err
	}
	p.vbuf, _ = r.Resources().Buffer(core.NameHash(p.VerticesName()))
	p.texture, _ = r.Resources().Texture(core.NameHash(p.AtlasName()))
	return 1, nil
}

// SetText replaces the text drawn from the next rendered frame on.
func (p *UIPass) SetText(items ...core.TextItem) {
	p.mu.Lock()
	p.items = append(p.items[:0], items...)
	p.mu.Unlock()
}

// Atlas is nil until the pass is added to a renderer.
func (p *UIPass) Atlas() *core.GlyphAtlas { return p.atlas }

func (p *UIPass) RenderPass(r *render.Renderer, f *frame.RenderFrame, passDataOffset uint32) uint32 {
	p.mu.Lock()
	p.drawItems = append(p.drawItems[:0], p.items...)
	p.mu.Unlock()
	if p.props.ShowProfiler {
		p.drawItems = append(p.drawItems, core.TextItem{
			Text:     r.Profiler().String(),
			Position: [2]float32{8, 8},
			Scale:    1,
			Color:    [4]float32{1, 1, 1, 1},
		})
	}
	if len(p.drawItems) == 0 || p.atlas == nil {
		return 0
	}

	w, h := r.WindowSize()
	p.vertices = p.atlas.BuildVertices(p.drawItems, w, h, p.vertices[:0])
	n := min(len(p.vertices), p.props.MaxGlyphs*6)
	if n == 0 {
		return 0
	}
	pipeline, ok := r.Resources().Pipeline(core.NameHash(p.props.Pipeline))
	if !ok {
		p.missing.warn(r.Logger(), p.PassName, "pipeline", core.NameHash(p.props.Pipeline), p.props.Pipeline)
		return 0
	}

	drv := r.Driver()
	if err := drv.UpdateBuffer(p.vbuf, 0, gpu.SliceBytes(p.vertices[:n])); err != nil {
		r.Logger().Errorf("pass %q: upload text: %v", p.PassName, err)
		return 0
	}
	if err := drv.BeginPass(gpu.Backbuffer, gpu.ClearState{}); err != nil {
		r.Logger().Errorf("pass %q: %v", p.PassName, err)
		return 0
	}
	err := drv.Draw(gpu.DrawState{
		Pipeline: pipeline,
		Streams:  []gpu.BufferID{p.vbuf},
		Textures: []gpu.TextureID{p.texture},
	}, uint32(n), 1)
	if err != nil {
		r.Logger().Errorf("pass %q: draw: %v", p.PassName, err)
	}
	if err := drv.EndPass(); err != nil {
		r.Logger().Errorf("pass %q: %v", p.PassName, err)
	}
	return 0
}

func (p *UIPass) DestroyPass(r *render.Renderer) {
	_ = r.ExecuteNow(render.PendingDestroy(render.PendingDestroyBuffer, p.VerticesName()))
	_ = r.ExecuteNow(render.PendingDestroy(render.PendingDestroyTexture, p.AtlasName()))
	p.vbuf, p.texture = 0, 0
}
