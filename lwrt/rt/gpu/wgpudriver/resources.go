package wgpudriver

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
)

func (d *Driver) textureFormat(f gpu.TextureFormat) wgpu.TextureFormat {
	switch f {
	case gpu.FormatBGRA8:
		return wgpu.TextureFormatBGRA8Unorm
	case gpu.FormatRGBA16F:
		return wgpu.TextureFormatRGBA16Float
	case gpu.FormatR8:
		return wgpu.TextureFormatR8Unorm
	case gpu.FormatDepth24:
		return wgpu.TextureFormatDepth24Plus
	case gpu.FormatDepth32F:
		return wgpu.TextureFormatDepth32Float
	case gpu.FormatSurface:
		return d.config.Format
	}
	return wgpu.TextureFormatRGBA8Unorm
}

func bufferUsage(u gpu.BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	for _, m := range [...]struct {
		from gpu.BufferUsage
		to   wgpu.BufferUsage
	}{
		{gpu.UsageVertex, wgpu.BufferUsageVertex},
		{gpu.UsageIndex, wgpu.BufferUsageIndex},
		{gpu.UsageUniform, wgpu.BufferUsageUniform},
		{gpu.UsageStorage, wgpu.BufferUsageStorage},
		{gpu.UsageIndirect, wgpu.BufferUsageIndirect},
		{gpu.UsageCopyDst, wgpu.BufferUsageCopyDst},
	} {
		if u&m.from != 0 {
			out |= m.to
		}
	}
	return out
}

// align4 rounds n up to the copy alignment of queue writes.
func align4(n uint64) uint64 { return (n + 3) &^ 3 }

func (d *Driver) CreateBuffer(desc gpu.BufferDesc, data []byte) (gpu.BufferID, error) {
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  align4(max(desc.Size, 4)),
		Usage: bufferUsage(desc.Usage | gpu.UsageCopyDst),
	})
	if err != nil {
		return 0, fmt.Errorf("create buffer %q: %w", desc.Label, err)
	}
	if len(data) > 0 {
		d.queue.WriteBuffer(buf, 0, padded(data))
	}
	id := gpu.BufferID(d.id())
	d.buffers[id] = &buffer{buf: buf, desc: desc}
	return id, nil
}

// padded extends data to the copy alignment.
func padded(data []byte) []byte {
	if n := align4(uint64(len(data))); n != uint64(len(data)) {
		out := make([]byte, n)
		copy(out, data)
		return out
	}
	return data
}

func (d *Driver) UpdateBuffer(id gpu.BufferID, offset uint64, data []byte) error {
	b, ok := d.buffers[id]
	if !ok {
		return gpu.ErrUnknownBuffer
	}
	if offset+uint64(len(data)) > b.desc.Size || offset&3 != 0 {
		return gpu.ErrOutOfRange
	}
	d.queue.WriteBuffer(b.buf, offset, padded(data))
	return nil
}

func (d *Driver) DestroyBuffer(id gpu.BufferID) {
	b, ok := d.buffers[id]
	if !ok {
		return
	}
	delete(d.buffers, id)
	d.clearGroups()
	b.buf.Release()
}

func (d *Driver) newTexture(desc gpu.TextureDesc, data []byte) (*texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("create texture %q: zero extent", desc.Label)
	}
	format := d.textureFormat(desc.Format)
	layers := max(desc.Layers, 1)
	samples := max(desc.Samples, 1)
	usage := wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst
	if desc.RenderTarget || desc.Format.IsDepth() {
		usage |= wgpu.TextureUsageRenderAttachment
	}
	if samples > 1 {
		usage = wgpu.TextureUsageRenderAttachment
	}

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: layers,
		},
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", desc.Label, err)
	}
	t := &texture{tex: tex, desc: desc}

	dim := wgpu.TextureViewDimension2D
	if layers > 1 {
		dim = wgpu.TextureViewDimension2DArray
	}
	if t.view, err = d.layerView(t, dim, 0, layers); err != nil {
		d.releaseTexture(t)
		return nil, err
	}
	if samples == 1 {
		if t.array, err = d.layerView(t, wgpu.TextureViewDimension2DArray, 0, layers); err != nil {
			d.releaseTexture(t)
			return nil, err
		}
	}
	if len(data) > 0 {
		d.writeTexture(t, data)
	}
	return t, nil
}

func (d *Driver) layerView(t *texture, dim wgpu.TextureViewDimension, first, count uint32) (*wgpu.TextureView, error) {
	view, err := t.tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           t.desc.Label,
		Format:          d.textureFormat(t.desc.Format),
		Dimension:       dim,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  first,
		ArrayLayerCount: count,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		return nil, fmt.Errorf("create view of %q: %w", t.desc.Label, err)
	}
	return view, nil
}

func (d *Driver) writeTexture(t *texture, data []byte) {
	w, h := t.desc.Width, t.desc.Height
	bpp := t.desc.Format.BytesPerPixel()
	layers := max(t.desc.Layers, 1)
	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  w * bpp,
			RowsPerImage: h,
		},
		&wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: layers},
	)
}

func (d *Driver) CreateTexture(desc gpu.TextureDesc, data []byte) (gpu.TextureID, error) {
	t, err := d.newTexture(desc, data)
	if err != nil {
		return 0, err
	}
	id := gpu.TextureID(d.id())
	d.textures[id] = t
	return id, nil
}

func (d *Driver) UpdateTexture(id gpu.TextureID, data []byte) error {
	t, ok := d.textures[id]
	if !ok {
		return gpu.ErrUnknownTexture
	}
	want := uint64(t.desc.Width) * uint64(t.desc.Height) * uint64(max(t.desc.Layers, 1)) * uint64(t.desc.Format.BytesPerPixel())
	if uint64(len(data)) < want {
		return gpu.ErrOutOfRange
	}
	d.writeTexture(t, data)
	return nil
}

func (d *Driver) releaseTexture(t *texture) {
	release(&t.array)
	release(&t.view)
	release(&t.tex)
}

func (d *Driver) DestroyTexture(id gpu.TextureID) {
	t, ok := d.textures[id]
	if !ok {
		return
	}
	delete(d.textures, id)
	d.clearGroups()
	d.releaseTexture(t)
}

func (d *Driver) CreateFramebuffer(desc gpu.FramebufferDesc) (gpu.FramebufferID, error) {
	fb := &framebuffer{desc: desc}
	for _, c := range desc.Color {
		t, ok := d.textures[c]
		if !ok {
			d.releaseFramebuffer(fb)
			return 0, fmt.Errorf("create framebuffer %q: %w", desc.Label, gpu.ErrUnknownTexture)
		}
		view, err := d.layerView(t, wgpu.TextureViewDimension2D, desc.Layer, 1)
		if err != nil {
			d.releaseFramebuffer(fb)
			return 0, fmt.Errorf("create framebuffer %q: %w", desc.Label, err)
		}
		fb.color = append(fb.color, view)
	}
	if desc.Depth != 0 {
		t, ok := d.textures[desc.Depth]
		if !ok {
			d.releaseFramebuffer(fb)
			return 0, fmt.Errorf("create framebuffer %q: %w", desc.Label, gpu.ErrUnknownTexture)
		}
		view, err := d.layerView(t, wgpu.TextureViewDimension2D, desc.Layer, 1)
		if err != nil {
			d.releaseFramebuffer(fb)
			return 0, fmt.Errorf("create framebuffer %q: %w", desc.Label, err)
		}
		fb.depth = view
	}
	id := gpu.FramebufferID(d.id())
	d.framebuffers[id] = fb
	return id, nil
}

func (d *Driver) releaseFramebuffer(fb *framebuffer) {
	for i := range fb.color {
		release(&fb.color[i])
	}
	release(&fb.depth)
}

func (d *Driver) DestroyFramebuffer(id gpu.FramebufferID) {
	fb, ok := d.framebuffers[id]
	if !ok {
		return
	}
	delete(d.framebuffers, id)
	d.releaseFramebuffer(fb)
}
