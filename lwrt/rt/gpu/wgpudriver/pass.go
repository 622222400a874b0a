package wgpudriver

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
)

func (d *Driver) frameEncoder() (*wgpu.CommandEncoder, error) {
	if d.encoder != nil {
		return d.encoder, nil
	}
	enc, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("create encoder: %w", err)
	}
	d.encoder = enc
	return enc, nil
}

// acquireSurface fetches the surface texture once per presented frame.
func (d *Driver) acquireSurface() (*wgpu.TextureView, error) {
	if d.surfaceView != nil {
		return d.surfaceView, nil
	}
	tex, err := d.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("acquire surface: %w", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("surface view: %w", err)
	}
	d.surfaceTex, d.surfaceView = tex, view
	return view, nil
}

func loadOp(clear bool) wgpu.LoadOp {
	if clear {
		return wgpu.LoadOpClear
	}
	return wgpu.LoadOpLoad
}

func (d *Driver) BeginPass(target gpu.FramebufferID, clear gpu.ClearState) error {
	if d.pass != nil {
		return gpu.ErrPassActive
	}
	var color []*wgpu.TextureView
	var depth *wgpu.TextureView
	// The window surface carries no depth attachment.
	if target == gpu.Backbuffer {
		view, err := d.acquireSurface()
		if err != nil {
			return err
		}
		color = []*wgpu.TextureView{view}
	} else {
		fb, ok := d.framebuffers[target]
		if !ok {
			return gpu.ErrUnknownFramebuffer
		}
		color, depth = fb.color, fb.depth
	}
	enc, err := d.frameEncoder()
	if err != nil {
		return err
	}

	c := clear.Color
	desc := &wgpu.RenderPassDescriptor{}
	for _, view := range color {
		desc.ColorAttachments = append(desc.ColorAttachments, wgpu.RenderPassColorAttachment{
			View:       view,
			LoadOp:     loadOp(clear.ClearColor),
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3])},
		})
	}
	if depth != nil {
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            depth,
			DepthLoadOp:     loadOp(clear.ClearDepth),
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: clear.Depth,
		}
	}
	d.pass = enc.BeginRenderPass(desc)
	return nil
}

func (d *Driver) EndPass() error {
	if d.pass == nil {
		return gpu.ErrNoPass
	}
	pass := d.pass
	d.pass = nil
	defer pass.Release()
	return pass.End()
}

// bindGroup returns the cached group 0 of state for p.
func (d *Driver) bindGroup(id gpu.PipelineID, p *pipeline, state gpu.DrawState) (*wgpu.BindGroup, error) {
	desc := p.desc
	if desc.StorageBuffers+desc.Textures == 0 {
		return nil, nil
	}
	if len(state.Storage) < desc.StorageBuffers {
		return nil, fmt.Errorf("pipeline %q: %d storage buffers bound, %d required: %w",
			desc.Label, len(state.Storage), desc.StorageBuffers, gpu.ErrUnknownBuffer)
	}

	h := fnv.New64a()
	var scratch [4]byte
	put := func(v uint32) {
		binary.LittleEndian.PutUint32(scratch[:], v)
		h.Write(scratch[:])
	}
	put(uint32(id))
	for _, b := range state.Storage[:desc.StorageBuffers] {
		put(uint32(b))
	}
	for i := 0; i < desc.Textures && i < len(state.Textures); i++ {
		put(uint32(state.Textures[i]))
	}
	key := h.Sum64()
	if g, ok := d.groups[key]; ok {
		return g, nil
	}

	entries := make([]wgpu.BindGroupEntry, 0, desc.StorageBuffers+desc.Textures+1)
	for _, bid := range state.Storage[:desc.StorageBuffers] {
		b, ok := d.buffers[bid]
		if !ok {
			return nil, gpu.ErrUnknownBuffer
		}
		entries = append(entries, wgpu.BindGroupEntry{
			Binding: uint32(len(entries)),
			Buffer:  b.buf,
			Offset:  0,
			Size:    wgpu.WholeSize,
		})
	}
	for i := 0; i < desc.Textures; i++ {
		t := d.fallback
		if i < len(state.Textures) {
			var ok bool
			if t, ok = d.textures[state.Textures[i]]; !ok {
				return nil, gpu.ErrUnknownTexture
			}
		}
		view := t.view
		if desc.ArrayTextures&(1<<i) != 0 {
			view = t.array
		}
		entries = append(entries, wgpu.BindGroupEntry{
			Binding:     uint32(len(entries)),
			TextureView: view,
		})
	}
	if desc.Textures > 0 {
		entries = append(entries, wgpu.BindGroupEntry{
			Binding: uint32(len(entries)),
			Sampler: d.sampler,
		})
	}

	g, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  p.group0,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("bind group %q: %w", desc.Label, err)
	}
	d.groups[key] = g
	return g, nil
}

func (d *Driver) clearGroups() {
	for k, g := range d.groups {
		g.Release()
		delete(d.groups, k)
	}
}

// bind sets the pipeline, groups and vertex streams of state on the open pass.
func (d *Driver) bind(state gpu.DrawState) error {
	if d.pass == nil {
		return gpu.ErrNoPass
	}
	p, ok := d.pipelines[state.Pipeline]
	if !ok {
		return gpu.ErrUnknownPipeline
	}
	if d.draws*drawParamStride >= len(d.drawParams) {
		return ErrTooManyDraws
	}
	group, err := d.bindGroup(state.Pipeline, p, state)
	if err != nil {
		return err
	}

	d.pass.SetPipeline(p.pipeline)
	if group != nil {
		d.pass.SetBindGroup(0, group, nil)
	}
	offset := d.draws * drawParamStride
	binary.LittleEndian.PutUint32(d.drawParams[offset:], state.PassData)
	d.draws++
	d.pass.SetBindGroup(1, d.drawGroup, []uint32{uint32(offset)})

	for i, sid := range state.Streams {
		b, ok := d.buffers[sid]
		if !ok {
			return gpu.ErrUnknownBuffer
		}
		d.pass.SetVertexBuffer(uint32(i), b.buf, 0, wgpu.WholeSize)
	}
	if state.IndexBuffer != 0 {
		b, ok := d.buffers[state.IndexBuffer]
		if !ok {
			return gpu.ErrUnknownBuffer
		}
		d.pass.SetIndexBuffer(b.buf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	}
	return nil
}

func (d *Driver) Draw(state gpu.DrawState, vertexCount, instanceCount uint32) error {
	if err := d.bind(state); err != nil {
		return err
	}
	d.pass.Draw(vertexCount, instanceCount, 0, 0)
	return nil
}

func (d *Driver) DrawIndirect(state gpu.DrawState, indirect gpu.BufferID, count, offset uint32) error {
	b, ok := d.buffers[indirect]
	if !ok {
		return gpu.ErrUnknownBuffer
	}
	if uint64(offset+count)*gpu.IndirectCommandSize > b.desc.Size {
		return gpu.ErrOutOfRange
	}
	if err := d.bind(state); err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		at := uint64(offset+i) * gpu.IndirectCommandSize
		if state.IndexBuffer != 0 {
			d.pass.DrawIndexedIndirect(b.buf, at)
		} else {
			d.pass.DrawIndirect(b.buf, at)
		}
	}
	return nil
}

// Resolve runs an empty pass that resolves src into dst.
func (d *Driver) Resolve(src, dst gpu.TextureID) error {
	if d.pass != nil {
		return gpu.ErrPassActive
	}
	s, ok := d.textures[src]
	if !ok {
		return gpu.ErrUnknownTexture
	}
	t, ok := d.textures[dst]
	if !ok {
		return gpu.ErrUnknownTexture
	}
	enc, err := d.frameEncoder()
	if err != nil {
		return err
	}
	pass := enc.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:          s.view,
			ResolveTarget: t.view,
			LoadOp:        wgpu.LoadOpLoad,
			StoreOp:       wgpu.StoreOpDiscard,
		}},
	})
	defer pass.Release()
	return pass.End()
}
