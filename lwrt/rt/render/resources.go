package render

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gekko3d/lightwave/lwrt/rt/core"
	"github.com/gekko3d/lightwave/lwrt/rt/geometry"
	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
)

var (
	ErrUnknownResource   = errors.New("render: unknown resource")
	ErrDuplicateResource = errors.New("render: resource already exists")
)

// TextureProps describes a named texture. A positive WindowScale sizes the
// texture relative to the window and recreates it on resize.
type TextureProps struct {
	gpu.TextureDesc
	WindowScale float32
}

func (p TextureProps) sized(width, height int) gpu.TextureDesc {
	d := p.TextureDesc
	if p.WindowScale > 0 {
		d.Width = uint32(max(1, int(float32(width)*p.WindowScale)))
		d.Height = uint32(max(1, int(float32(height)*p.WindowScale)))
	}
	return d
}

// FramebufferProps references its attachments by texture name.
type FramebufferProps struct {
	Color []string
	Depth string
	Layer uint32
}

type namedTexture struct {
	id    gpu.TextureID
	props TextureProps
}

type namedFramebuffer struct {
	id    gpu.FramebufferID
	props FramebufferProps
}

type namedPipeline struct {
	id   gpu.PipelineID
	desc gpu.PipelineDesc
}

// Resources maps name hashes to driver objects. Lookups are safe from any
// goroutine; driver objects are only created on the driver goroutine.
type Resources struct {
	mu           sync.RWMutex
	textures     map[uint32]*namedTexture
	buffers      map[uint32]gpu.BufferID
	framebuffers map[uint32]*namedFramebuffer
	pools        map[uint32]*geometry.BlockGeometry
	pipelines    map[uint32]*namedPipeline
	names        map[uint32]string
}

func newResources() *Resources {
	return &Resources{
		textures:     make(map[uint32]*namedTexture),
		buffers:      make(map[uint32]gpu.BufferID),
		framebuffers: make(map[uint32]*namedFramebuffer),
		pools:        make(map[uint32]*geometry.BlockGeometry),
		pipelines:    make(map[uint32]*namedPipeline),
		names:        make(map[uint32]string),
	}
}

// Name returns the name a hash was registered with.
func (rs *Resources) Name(hash uint32) string {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.names[hash]
}

func (rs *Resources) Texture(hash uint32) (gpu.TextureID, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	t, ok := rs.textures[hash]
	if !ok {
		return 0, false
	}
	return t.id, true
}

func (rs *Resources) TextureDesc(hash uint32) (TextureProps, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	t, ok := rs.textures[hash]
	if !ok {
		return TextureProps{}, false
	}
	return t.props, true
}

func (rs *Resources) Buffer(hash uint32) (gpu.BufferID, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	b, ok := rs.buffers[hash]
	return b, ok
}

func (rs *Resources) Framebuffer(hash uint32) (gpu.FramebufferID, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	fb, ok := rs.framebuffers[hash]
	if !ok {
		return 0, false
	}
	return fb.id, true
}

func (rs *Resources) Pipeline(hash uint32) (gpu.PipelineID, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	p, ok := rs.pipelines[hash]
	if !ok {
		return 0, false
	}
	return p.id, true
}

func (rs *Resources) PipelineDesc(hash uint32) (gpu.PipelineDesc, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	p, ok := rs.pipelines[hash]
	if !ok {
		return gpu.PipelineDesc{}, false
	}
	return p.desc, true
}

func (rs *Resources) BlockGeometry(hash uint32) *geometry.BlockGeometry {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.pools[hash]
}

func (rs *Resources) addPool(g *geometry.BlockGeometry) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if _, ok := rs.pools[g.NameHash()]; ok {
		return fmt.Errorf("block geometry %q: %w", g.Name(), ErrDuplicateResource)
	}
	rs.pools[g.NameHash()] = g
	rs.names[g.NameHash()] = g.Name()
	return nil
}

func (rs *Resources) removePool(hash uint32) *geometry.BlockGeometry {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	g := rs.pools[hash]
	delete(rs.pools, hash)
	return g
}

func (rs *Resources) createBuffer(drv gpu.Driver, name string, desc gpu.BufferDesc, data []byte) error {
	h := core.NameHash(name)
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if _, ok := rs.buffers[h]; ok {
		return fmt.Errorf("buffer %q: %w", name, ErrDuplicateResource)
	}
	if desc.Label == "" {
		desc.Label = name
	}
	id, err := drv.CreateBuffer(desc, data)
	if err != nil {
		return fmt.Errorf("buffer %q: %w", name, err)
	}
	rs.buffers[h] = id
	rs.names[h] = name
	return nil
}

func (rs *Resources) destroyBuffer(drv gpu.Driver, hash uint32) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	id, ok := rs.buffers[hash]
	if !ok {
		return fmt.Errorf("buffer %#x: %w", hash, ErrUnknownResource)
	}
	drv.DestroyBuffer(id)
	delete(rs.buffers, hash)
	return nil
}

func (rs *Resources) createTexture(drv gpu.Driver, name string, props TextureProps, data []byte, width, height int) error {
	h := core.NameHash(name)
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if _, ok := rs.textures[h]; ok {
		return fmt.Errorf("texture %q: %w", name, ErrDuplicateResource)
	}
	if props.Label == "" {
		props.Label = name
	}
	id, err := drv.CreateTexture(props.sized(width, height), data)
	if err != nil {
		return fmt.Errorf("texture %q: %w", name, err)
	}
	rs.textures[h] = &namedTexture{id: id, props: props}
	rs.names[h] = name
	return nil
}

func (rs *Resources) destroyTexture(drv gpu.Driver, hash uint32) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	t, ok := rs.textures[hash]
	if !ok {
		return fmt.Errorf("texture %#x: %w", hash, ErrUnknownResource)
	}
	drv.DestroyTexture(t.id)
	delete(rs.textures, hash)
	return nil
}

// framebufferDesc resolves attachment names. Callers hold mu.
func (rs *Resources) framebufferDesc(name string, props FramebufferProps) (gpu.FramebufferDesc, error) {
	desc := gpu.FramebufferDesc{Label: name, Layer: props.Layer}
	for _, c := range props.Color {
		t, ok := rs.textures[core.NameHash(c)]
		if !ok {
			return desc, fmt.Errorf("framebuffer %q color %q: %w", name, c, ErrUnknownResource)
		}
		desc.Color = append(desc.Color, t.id)
	}
	if props.Depth != "" {
		t, ok := rs.textures[core.NameHash(props.Depth)]
		if !ok {
			return desc, fmt.Errorf("framebuffer %q depth %q: %w", name, props.Depth, ErrUnknownResource)
		}
		desc.Depth = t.id
	}
	return desc, nil
}

func (rs *Resources) createFramebuffer(drv gpu.Driver, name string, props FramebufferProps) error {
	h := core.NameHash(name)
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if _, ok := rs.framebuffers[h]; ok {
		return fmt.Errorf("framebuffer %q: %w", name, ErrDuplicateResource)
	}
	desc, err := rs.framebufferDesc(name, props)
	if err != nil {
		return err
	}
	id, err := drv.CreateFramebuffer(desc)
	if err != nil {
		return fmt.Errorf("framebuffer %q: %w", name, err)
	}
	rs.framebuffers[h] = &namedFramebuffer{id: id, props: props}
	rs.names[h] = name
	return nil
}

func (rs *Resources) destroyFramebuffer(drv gpu.Driver, hash uint32) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	fb, ok := rs.framebuffers[hash]
	if !ok {
		return fmt.Errorf("framebuffer %#x: %w", hash, ErrUnknownResource)
	}
	drv.DestroyFramebuffer(fb.id)
	delete(rs.framebuffers, hash)
	return nil
}

func (rs *Resources) createPipeline(drv gpu.Driver, name string, desc gpu.PipelineDesc) (gpu.PipelineID, error) {
	h := core.NameHash(name)
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if p, ok := rs.pipelines[h]; ok {
		return p.id, nil
	}
	if desc.Label == "" {
		desc.Label = name
	}
	id, err := drv.CreatePipeline(desc)
	if err != nil {
		return 0, fmt.Errorf("pipeline %q: %w", name, err)
	}
	rs.pipelines[h] = &namedPipeline{id: id, desc: desc}
	rs.names[h] = name
	return id, nil
}

// resize recreates window relative textures and every framebuffer that
// references one of them.
func (rs *Resources) resize(drv gpu.Driver, width, height int) []error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	var errs []error
	changed := make(map[gpu.TextureID]bool)
	for h, t := range rs.textures {
		if t.props.WindowScale <= 0 {
			continue
		}
		id, err := drv.CreateTexture(t.props.sized(width, height), nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("resize texture %q: %w", rs.names[h], err))
			continue
		}
		drv.DestroyTexture(t.id)
		changed[t.id] = true
		t.id = id
	}
	if len(changed) == 0 {
		return errs
	}

	for h, fb := range rs.framebuffers {
		desc, err := rs.framebufferDesc(rs.names[h], fb.props)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		id, err := drv.CreateFramebuffer(desc)
		if err != nil {
			errs = append(errs, fmt.Errorf("resize framebuffer %q: %w", rs.names[h], err))
			continue
		}
		drv.DestroyFramebuffer(fb.id)
		fb.id = id
	}
	return errs
}

func (rs *Resources) release(drv gpu.Driver) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for _, fb := range rs.framebuffers {
		drv.DestroyFramebuffer(fb.id)
	}
	for _, t := range rs.textures {
		drv.DestroyTexture(t.id)
	}
	for _, b := range rs.buffers {
		drv.DestroyBuffer(b)
	}
	for _, p := range rs.pipelines {
		drv.DestroyPipeline(p.id)
	}
	for _, g := range rs.pools {
		g.Release(drv)
	}
	clear(rs.framebuffers)
	clear(rs.textures)
	clear(rs.buffers)
	clear(rs.pipelines)
	clear(rs.pools)
}
