// Package pass holds the render passes the renderer configuration can
// instantiate.
package pass

import (
	"github.com/gekko3d/lightwave/lwrt/rt/core"
	"github.com/gekko3d/lightwave/lwrt/rt/frame"
	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
	"github.com/gekko3d/lightwave/lwrt/rt/render"
)

// FullscreenVertices is the vertex count of the screen quad drawn by the
// post process passes. The vertex shader derives positions from the index.
const FullscreenVertices = 6

// frameStorage returns the storage buffers every draw binds, in binding
// order, followed by extra.
func frameStorage(r *render.Renderer, extra []gpu.BufferID) []gpu.BufferID {
	bufs := r.FrameBuffers(r.AppliedSlot())
	storage := make([]gpu.BufferID, 0, 6+len(extra))
	storage = append(storage, bufs.Global, bufs.Models, bufs.Lights, bufs.Bones, bufs.PassData, bufs.IDs)
	return append(storage, extra...)
}

// missingLog reports each missing resource once per pass.
type missingLog map[uint32]bool

func (m missingLog) warn(log core.Logger, pass, kind string, hash uint32, name string) {
	if m[hash] {
		return
	}
	m[hash] = true
	if name == "" {
		log.Warnf("pass %q: %s %#x not found", pass, kind, hash)
		return
	}
	log.Warnf("pass %q: %s %q not found", pass, kind, name)
}

func lookupBuffers(r *render.Renderer, names []string, missing missingLog, pass string) ([]gpu.BufferID, bool) {
	out := make([]gpu.BufferID, 0, len(names))
	for _, n := range names {
		id, ok := r.Resources().Buffer(core.NameHash(n))
		if !ok {
			missing.warn(r.Logger(), pass, "buffer", core.NameHash(n), n)
			return nil, false
		}
		out = append(out, id)
	}
	return out, true
}

func lookupTextures(r *render.Renderer, names []string, missing missingLog, pass string) ([]gpu.TextureID, bool) {
	out := make([]gpu.TextureID, 0, len(names))
	for _, n := range names {
		id, ok := r.Resources().Texture(core.NameHash(n))
		if !ok {
			missing.warn(r.Logger(), pass, "texture", core.NameHash(n), n)
			return nil, false
		}
		out = append(out, id)
	}
	return out, true
}

// lookupTarget resolves a framebuffer name. The empty name is the window.
func lookupTarget(r *render.Renderer, name string, missing missingLog, pass string) (gpu.FramebufferID, bool) {
	if name == "" {
		return gpu.Backbuffer, true
	}
	id, ok := r.Resources().Framebuffer(core.NameHash(name))
	if !ok {
		missing.warn(r.Logger(), pass, "framebuffer", core.NameHash(name), name)
	}
	return id, ok
}

// blockBindings returns the vertex streams and index buffer of a block.
// Pools whose buffers are still queued do not bind.
func blockBindings(r *render.Renderer, b frame.GeometryBlock) ([]gpu.BufferID, gpu.BufferID, bool) {
	if b.IsRaw() {
		t := b.Buffers()
		if t.Position == 0 {
			return nil, 0, false
		}
		streams := []gpu.BufferID{gpu.BufferID(t.Position)}
		if t.Attribute != 0 {
			streams = append(streams, gpu.BufferID(t.Attribute))
		}
		return streams, gpu.BufferID(t.Index), true
	}
	g := r.Resources().BlockGeometry(b.Pool)
	if g == nil {
		return nil, 0, false
	}
	pos, _, index := g.Buffers()
	if pos == 0 {
		return nil, 0, false
	}
	return g.Streams(), index, true
}

// bucketDraw describes how drawBucket binds the renderables of a bucket.
type bucketDraw struct {
	// pipeline replaces every material pipeline when non-zero.
	pipeline gpu.PipelineID
	passData uint32
	storage  []gpu.BufferID
	textures []gpu.TextureID
	// opaqueOnly skips the transparent renderables.
	opaqueOnly bool
}

// drawBucket issues one indirect draw per renderable of bucket and returns
// how many were issued. A render pass must be active.
func drawBucket(r *render.Renderer, f *frame.RenderFrame, bucket int, d bucketDraw, missing missingLog, pass string) int {
	b := f.Bucket(bucket)
	if b == nil || !b.Initialized() {
		return 0
	}
	renderables := b.Renderables()
	if d.opaqueOnly {
		opaque, _ := b.Counts()
		renderables = renderables[:opaque]
	}

	res := r.Resources()
	indirect := r.FrameBuffers(r.AppliedSlot()).Indirect
	base := uint32(bucket * r.Config().MaxBucketSize)
	drawn := 0
	for i := range renderables {
		rd := &renderables[i]
		pipeline := d.pipeline
		if pipeline == 0 {
			id, ok := res.Pipeline(rd.Material.Pipeline)
			if !ok {
				missing.warn(r.Logger(), pass, "pipeline", rd.Material.Pipeline, res.Name(rd.Material.Pipeline))
				continue
			}
			pipeline = id
		}
		streams, index, ok := blockBindings(r, rd.Block)
		if !ok {
			continue
		}
		if !rd.Indexed {
			index = 0
		}

		textures := d.textures
		if d.pipeline == 0 {
			textures = materialTextures(r, rd.Material, d.textures, missing, pass)
		}
		state := gpu.DrawState{
			Pipeline:    pipeline,
			IndexBuffer: index,
			Streams:     streams,
			Storage:     d.storage,
			Textures:    textures,
			PassData:    d.passData,
		}
		if err := r.Driver().DrawIndirect(state, indirect, rd.DrawCount, base+rd.IndirectOffset); err != nil {
			r.Logger().Errorf("pass %q: draw indirect: %v", pass, err)
			continue
		}
		drawn++
	}
	return drawn
}

func materialTextures(r *render.Renderer, m frame.RenderMaterial, extra []gpu.TextureID, missing missingLog, pass string) []gpu.TextureID {
	var out []gpu.TextureID
	for _, h := range m.Textures {
		if h == 0 {
			continue
		}
		id, ok := r.Resources().Texture(h)
		if !ok {
			missing.warn(r.Logger(), pass, "texture", h, r.Resources().Name(h))
			continue
		}
		out = append(out, id)
	}
	return append(out, extra...)
}
