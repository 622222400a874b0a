package gpu

import (
	"fmt"
	"sync"
)

type CallKind int

const (
	CallBeginPass CallKind = iota
	CallDrawIndirect
	CallDraw
	CallEndPass
	CallResolve
	CallPresent
)

// Call is one recorded command of the headless driver.
type Call struct {
	Kind     CallKind
	Target   FramebufferID
	State    DrawState
	Indirect BufferID
	Count    uint32
	Offset   uint32
	Src, Dst TextureID
}

type headlessBuffer struct {
	desc BufferDesc
	data []byte
}

// HeadlessDriver keeps every resource in host memory and records commands.
// It backs tests and windowless runs.
type HeadlessDriver struct {
	mu           sync.Mutex
	width        int
	height       int
	next         uint32
	buffers      map[BufferID]*headlessBuffer
	textures     map[TextureID]TextureDesc
	framebuffers map[FramebufferID]FramebufferDesc
	pipelines    map[PipelineID]PipelineDesc
	inPass       bool
	calls        []Call
	presents     int
}

func NewHeadlessDriver(width, height int) *HeadlessDriver {
	return &HeadlessDriver{
		width:        width,
		height:       height,
		buffers:      make(map[BufferID]*headlessBuffer),
		textures:     make(map[TextureID]TextureDesc),
		framebuffers: make(map[FramebufferID]FramebufferDesc),
		pipelines:    make(map[PipelineID]PipelineDesc),
	}
}

func (d *HeadlessDriver) Name() string { return "headless" }

func (d *HeadlessDriver) WindowSize() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width, d.height
}

func (d *HeadlessDriver) Resize(width, height int) {
	d.mu.Lock()
	d.width, d.height = width, height
	d.mu.Unlock()
}

func (d *HeadlessDriver) nextID() uint32 {
	d.next++
	return d.next
}

func (d *HeadlessDriver) CreateBuffer(desc BufferDesc, data []byte) (BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if uint64(len(data)) > desc.Size {
		return 0, fmt.Errorf("create buffer %q: %w", desc.Label, ErrOutOfRange)
	}
	b := &headlessBuffer{desc: desc, data: make([]byte, desc.Size)}
	copy(b.data, data)
	id := BufferID(d.nextID())
	d.buffers[id] = b
	return id, nil
}

func (d *HeadlessDriver) UpdateBuffer(id BufferID, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		return ErrUnknownBuffer
	}
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		return fmt.Errorf("update buffer %q: %w", b.desc.Label, ErrOutOfRange)
	}
	copy(b.data[offset:], data)
	return nil
}

func (d *HeadlessDriver) DestroyBuffer(id BufferID) {
	d.mu.Lock()
	delete(d.buffers, id)
	d.mu.Unlock()
}

// BufferData returns a copy of the buffer contents.
func (d *HeadlessDriver) BufferData(id BufferID) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out, true
}

func (d *HeadlessDriver) BufferDesc(id BufferID) (BufferDesc, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		return BufferDesc{}, false
	}
	return b.desc, true
}

func (d *HeadlessDriver) CreateTexture(desc TextureDesc, data []byte) (TextureID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if desc.Width == 0 || desc.Height == 0 {
		return 0, fmt.Errorf("create texture %q: zero extent", desc.Label)
	}
	id := TextureID(d.nextID())
	d.textures[id] = desc
	return id, nil
}

func (d *HeadlessDriver) UpdateTexture(id TextureID, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.textures[id]; !ok {
		return ErrUnknownTexture
	}
	return nil
}

func (d *HeadlessDriver) DestroyTexture(id TextureID) {
	d.mu.Lock()
	delete(d.textures, id)
	d.mu.Unlock()
}

func (d *HeadlessDriver) TextureDesc(id TextureID) (TextureDesc, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[id]
	return t, ok
}

func (d *HeadlessDriver) CreateFramebuffer(desc FramebufferDesc) (FramebufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range desc.Color {
		if _, ok := d.textures[c]; !ok {
			return 0, fmt.Errorf("create framebuffer %q: %w", desc.Label, ErrUnknownTexture)
		}
	}
	if desc.Depth != 0 {
		if _, ok := d.textures[desc.Depth]; !ok {
			return 0, fmt.Errorf("create framebuffer %q: %w", desc.Label, ErrUnknownTexture)
		}
	}
	id := FramebufferID(d.nextID())
	d.framebuffers[id] = desc
	return id, nil
}

func (d *HeadlessDriver) DestroyFramebuffer(id FramebufferID) {
	d.mu.Lock()
	delete(d.framebuffers, id)
	d.mu.Unlock()
}

func (d *HeadlessDriver) CreatePipeline(desc PipelineDesc) (PipelineID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := PipelineID(d.nextID())
	d.pipelines[id] = desc
	return id, nil
}

func (d *HeadlessDriver) DestroyPipeline(id PipelineID) {
	d.mu.Lock()
	delete(d.pipelines, id)
	d.mu.Unlock()
}

func (d *HeadlessDriver) BeginPass(target FramebufferID, clear ClearState) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inPass {
		return ErrPassActive
	}
	if target != Backbuffer {
		if _, ok := d.framebuffers[target]; !ok {
			return ErrUnknownFramebuffer
		}
	}
	d.inPass = true
	d.calls = append(d.calls, Call{Kind: CallBeginPass, Target: target})
	return nil
}

func (d *HeadlessDriver) DrawIndirect(state DrawState, indirect BufferID, count, offset uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.inPass {
		return ErrNoPass
	}
	if err := d.checkState(state); err != nil {
		return err
	}
	b, ok := d.buffers[indirect]
	if !ok {
		return ErrUnknownBuffer
	}
	if uint64(offset+count)*IndirectCommandSize > uint64(len(b.data)) {
		return ErrOutOfRange
	}
	d.calls = append(d.calls, Call{Kind: CallDrawIndirect, State: state, Indirect: indirect, Count: count, Offset: offset})
	return nil
}

func (d *HeadlessDriver) Draw(state DrawState, vertexCount, instanceCount uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.inPass {
		return ErrNoPass
	}
	if err := d.checkState(state); err != nil {
		return err
	}
	d.calls = append(d.calls, Call{Kind: CallDraw, State: state, Count: vertexCount, Offset: instanceCount})
	return nil
}

func (d *HeadlessDriver) checkState(state DrawState) error {
	if _, ok := d.pipelines[state.Pipeline]; !ok {
		return ErrUnknownPipeline
	}
	if state.IndexBuffer != 0 {
		if _, ok := d.buffers[state.IndexBuffer]; !ok {
			return ErrUnknownBuffer
		}
	}
	for _, s := range state.Streams {
		if _, ok := d.buffers[s]; !ok {
			return ErrUnknownBuffer
		}
	}
	for _, s := range state.Storage {
		if _, ok := d.buffers[s]; !ok {
			return ErrUnknownBuffer
		}
	}
	for _, t := range state.Textures {
		if _, ok := d.textures[t]; !ok {
			return ErrUnknownTexture
		}
	}
	return nil
}

func (d *HeadlessDriver) EndPass() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.inPass {
		return ErrNoPass
	}
	d.inPass = false
	d.calls = append(d.calls, Call{Kind: CallEndPass})
	return nil
}

func (d *HeadlessDriver) Resolve(src, dst TextureID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.textures[src]; !ok {
		return ErrUnknownTexture
	}
	if _, ok := d.textures[dst]; !ok {
		return ErrUnknownTexture
	}
	d.calls = append(d.calls, Call{Kind: CallResolve, Src: src, Dst: dst})
	return nil
}

func (d *HeadlessDriver) Present() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.presents++
	d.calls = append(d.calls, Call{Kind: CallPresent})
	return nil
}

func (d *HeadlessDriver) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.buffers)
	clear(d.textures)
	clear(d.framebuffers)
	clear(d.pipelines)
}

// Calls returns and clears the recorded command list.
func (d *HeadlessDriver) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.calls
	d.calls = nil
	return out
}

func (d *HeadlessDriver) Presents() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presents
}

// Live reports the number of live buffers, textures and framebuffers.
func (d *HeadlessDriver) Live() (buffers, textures, framebuffers int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffers), len(d.textures), len(d.framebuffers)
}
