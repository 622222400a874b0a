package config

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lightwave/lwrt/rt/core"
	"github.com/gekko3d/lightwave/lwrt/rt/frame"
	"github.com/gekko3d/lightwave/lwrt/rt/geometry"
	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
	"github.com/gekko3d/lightwave/lwrt/rt/pass"
	"github.com/gekko3d/lightwave/lwrt/rt/render"
	"github.com/gekko3d/lightwave/lwrt/rt/shaders"
)

// Options returns the renderer options the document declares.
func (c *Renderer) Options(log core.Logger) render.Options {
	opts := render.Options{Frame: c.Frame, Logger: log}
	if c.DebugPipeline != "" {
		opts.DebugMaterial = frame.NewRenderMaterial(c.DebugPipeline, c.DebugTexture)
	}
	return opts
}

// Apply creates the declared resources and passes on r, in declaration
// order. It must run on the driver goroutine. Items naming unknown values
// are logged critical and skipped; creation failures are returned joined.
func (c *Renderer) Apply(r *render.Renderer) error {
	log := r.Logger()
	var errs []error
	skip := func(kind, name string, err error) {
		log.Criticalf("config: skipping %s %q: %v", kind, name, err)
	}

	for _, t := range c.Textures {
		props, data, err := t.props()
		if err != nil {
			skip("texture", t.Name, err)
			continue
		}
		if err := r.ExecuteNow(render.PendingTexture(t.Name, props, data)); err != nil {
			errs = append(errs, err)
		}
	}
	for _, b := range c.Buffers {
		usage, err := BufferUsage(b.Usage)
		if err != nil {
			skip("buffer", b.Name, err)
			continue
		}
		desc := gpu.BufferDesc{Label: b.Name, Size: b.Size, Usage: usage | gpu.UsageCopyDst}
		if err := r.ExecuteNow(render.PendingBuffer(b.Name, desc, nil)); err != nil {
			errs = append(errs, err)
		}
	}
	for _, fb := range c.Framebuffers {
		props := render.FramebufferProps{Color: fb.Color, Depth: fb.Depth, Layer: fb.Layer}
		if err := r.ExecuteNow(render.PendingFramebuffer(fb.Name, props)); err != nil {
			errs = append(errs, err)
		}
	}
	for _, p := range c.Pools {
		if _, err := r.CreateBlockGeometry(p.Name, p.props()); err != nil {
			errs = append(errs, err)
		}
	}
	for _, p := range c.Pipelines {
		desc, err := p.Desc()
		if err != nil {
			skip("pipeline", p.Name, err)
			continue
		}
		if _, err := r.CreatePipeline(p.Name, desc); err != nil {
			errs = append(errs, fmt.Errorf("pipeline %q: %w", p.Name, err))
		}
	}
	for _, p := range c.Passes {
		built, err := p.Build()
		if err != nil {
			skip("pass", p.Name, err)
			continue
		}
		if err := r.AddPass(built); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t Texture) props() (render.TextureProps, []byte, error) {
	format, err := TextureFormat(t.Format)
	if err != nil {
		return render.TextureProps{}, nil, err
	}
	props := render.TextureProps{
		TextureDesc: gpu.TextureDesc{
			Label:        t.Name,
			Width:        t.Width,
			Height:       t.Height,
			Layers:       t.Layers,
			Format:       format,
			Samples:      t.Samples,
			RenderTarget: t.RenderTarget,
		},
		WindowScale: t.WindowScale,
	}
	if len(t.Fill) == 0 || t.WindowScale > 0 {
		return props, nil, nil
	}
	if len(t.Fill) != int(format.BytesPerPixel()) {
		return props, nil, fmt.Errorf("fill of %d bytes for %s texels: %w", len(t.Fill), t.Format, ErrUnknownValue)
	}
	texels := int(t.Width) * int(t.Height) * int(max(t.Layers, 1))
	return props, bytes.Repeat(t.Fill, texels), nil
}

func (p Pool) props() geometry.BlockGeometryProps {
	return geometry.BlockGeometryProps{
		VerticesPerBlock: p.VerticesPerBlock,
		MaxVerticeBlocks: p.MaxVerticeBlocks,
		IndicesPerBlock:  p.IndicesPerBlock,
		MaxIndiceBlocks:  p.MaxIndiceBlocks,
		PositionLayout:   geometry.DefaultPositionLayout(),
		AttributeLayout:  geometry.DefaultAttributeLayout(),
	}
}

// Desc resolves the pipeline source and enums.
func (p Pipeline) Desc() (gpu.PipelineDesc, error) {
	desc := gpu.PipelineDesc{
		Label:          p.Name,
		Source:         p.Source,
		VertexEntry:    p.Vertex,
		FragmentEntry:  p.Fragment,
		DepthTest:      p.DepthTest,
		DepthWrite:     p.DepthWrite,
		Samples:        p.Samples,
		StorageBuffers: p.Storage,
		Textures:       p.Textures,
		Lines:          p.Lines,
	}
	if desc.Source == "" {
		src, ok := shaders.Source(p.Shader)
		if !ok {
			return desc, fmt.Errorf("shader %q: %w", p.Shader, ErrUnknownValue)
		}
		desc.Source = src
	}
	for _, s := range p.Streams {
		layout, err := lookup(streamLayouts, "stream", s)
		if err != nil {
			return desc, err
		}
		desc.Streams = append(desc.Streams, layout())
	}
	for _, f := range p.Color {
		format, err := lookup(textureFormats, "color format", f)
		if err != nil {
			return desc, err
		}
		desc.ColorFormats = append(desc.ColorFormats, format)
	}
	if p.Depth != "" {
		format, err := lookup(textureFormats, "depth format", p.Depth)
		if err != nil {
			return desc, err
		}
		if !format.IsDepth() {
			return desc, fmt.Errorf("depth format %q: %w", p.Depth, ErrUnknownValue)
		}
		desc.DepthFormat, desc.HasDepth = format, true
	}
	var err error
	if desc.Blend, err = lookup(blendModes, "blend mode", p.Blend); err != nil {
		return desc, err
	}
	if desc.Cull, err = lookup(cullModes, "cull mode", p.Cull); err != nil {
		return desc, err
	}
	for _, i := range p.ArrayTextures {
		if i < 0 || i >= p.Textures {
			return desc, fmt.Errorf("array texture %d of %d: %w", i, p.Textures, ErrUnknownValue)
		}
		desc.ArrayTextures |= 1 << i
	}
	return desc, nil
}

func (c *Clear) state() gpu.ClearState {
	var s gpu.ClearState
	if c == nil {
		return s
	}
	if len(c.Color) > 0 {
		s.ClearColor = true
		s.Color[3] = 1
		copy(s.Color[:], c.Color)
	}
	if c.Depth != nil {
		s.ClearDepth = true
		s.Depth = *c.Depth
	}
	return s
}

type enabler interface{ SetEnabled(bool) }

// Build creates the pass the entry declares.
func (p Pass) Build() (render.Pass, error) {
	built, err := p.build()
	if err != nil {
		return nil, err
	}
	if e, ok := built.(enabler); ok && p.Disabled {
		e.SetEnabled(false)
	}
	return built, nil
}

func (p Pass) build() (render.Pass, error) {
	switch p.Type {
	case "geometry":
		opaque, err := SortMode(p.OpaqueSort)
		if err != nil {
			return nil, err
		}
		transparent, err := SortMode(p.TransparentSort)
		if err != nil {
			return nil, err
		}
		return pass.NewGeometryPass(pass.GeometryPassProps{
			Name:            p.Name,
			Target:          p.Target,
			Clear:           p.Clear.state(),
			OpaqueSort:      opaque,
			TransparentSort: transparent,
			Primary:         p.Primary,
			Storage:         p.Storage,
			Textures:        p.Textures,
		}), nil
	case "shadow":
		var format gpu.TextureFormat
		if p.Format != "" {
			f, err := lookup(textureFormats, "shadow format", p.Format)
			if err != nil {
				return nil, err
			}
			format = f
		}
		return pass.NewShadowMapPass(pass.ShadowMapPassProps{
			Name:     p.Name,
			Pipeline: p.Pipeline,
			Buckets:  p.Buckets,
			Cascades: p.Cascades,
			MapSize:  p.MapSize,
			Format:   format,
			Near:     p.Near,
			SceneMin: mgl32.Vec3(p.SceneMin),
			SceneMax: mgl32.Vec3(p.SceneMax),
		}), nil
	case "postprocess":
		return pass.NewPPPass(pass.PPPassProps{
			Name:     p.Name,
			Pipeline: p.Pipeline,
			Target:   p.Target,
			Inputs:   p.Inputs,
			Storage:  p.Storage,
			Clear:    p.Clear.state(),
		}), nil
	case "blur":
		format, err := TextureFormat(p.Format)
		if err != nil {
			return nil, err
		}
		return pass.NewGaussianBlurPass(pass.GaussianBlurPassProps{
			Name:     p.Name,
			Pipeline: p.Pipeline,
			Source:   p.Source,
			Target:   p.Target,
			Scale:    p.Scale,
			Format:   format,
		}), nil
	case "resolve":
		targets := make([]pass.ResolveTarget, len(p.Resolve))
		for i, t := range p.Resolve {
			targets[i] = pass.ResolveTarget{Source: t.Source, Dest: t.Dest}
		}
		return pass.NewResolvePass(p.Name, targets...), nil
	case "ui":
		return pass.NewUIPass(pass.UIPassProps{
			Name:         p.Name,
			Pipeline:     p.Pipeline,
			FontSize:     p.FontSize,
			MaxGlyphs:    p.MaxGlyphs,
			ShowProfiler: p.ShowProfiler,
		}), nil
	}
	return nil, fmt.Errorf("pass type %q: %w", p.Type, ErrUnknownValue)
}
