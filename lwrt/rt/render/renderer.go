// Package render drives the frame ring, the pass list and the named GPU
// resources on top of a gpu.Driver.
package render

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gekko3d/lightwave/lwrt/rt/core"
	"github.com/gekko3d/lightwave/lwrt/rt/frame"
	"github.com/gekko3d/lightwave/lwrt/rt/geometry"
	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
)

// FrameRing is the number of frames in flight between producer and driver.
const FrameRing = 3

// MaxPasses bounds the number of distinct pass bits.
const MaxPasses = 32

var (
	ErrInvalidBucketCount = errors.New("render: pass requested zero buckets")
	ErrTooManyBuckets     = errors.New("render: bucket budget exhausted")
	ErrPendingFull        = errors.New("render: pending resource queue full")
)

// DebugPoolName names the block geometry pool the WriteDebug helpers of
// every frame draw from.
const DebugPoolName = "debug"

type Options struct {
	Frame  frame.FrameConfig
	Logger core.Logger
	// DebugMaterial enables the debug geometry pool when its pipeline is set.
	DebugMaterial frame.RenderMaterial
	DebugPool     geometry.BlockGeometryProps
	// Clock overrides time.Now for the pending resource budget.
	Clock func() time.Time
}

// Renderer owns the frame ring. BeginFrame, PrepareFrame and EndFrame are
// called by the single producer; everything else runs on the driver
// goroutine.
type Renderer struct {
	drv gpu.Driver
	log core.Logger
	cfg frame.FrameConfig
	now func() time.Time

	frames       [FrameRing]*frame.RenderFrame
	frameBuffers [FrameRing]frame.FrameBuffers
	write        atomic.Uint64
	read         atomic.Uint64
	writing      atomic.Bool
	nextFrameID  atomic.Uint64

	applied     *frame.RenderFrame
	appliedSlot int

	passes      []Pass
	bucketCount int

	passMu   sync.Mutex
	passBits map[string]uint32

	pending   chan PendingResource
	resources *Resources

	debugPool     *geometry.BlockGeometry
	debugMaterial frame.RenderMaterial

	width, height int
	start         time.Time
	elapsed       float32
	dt            float32
	profiler      *Profiler
}

func New(drv gpu.Driver, opts Options) (*Renderer, error) {
	r := &Renderer{
		drv:       drv,
		log:       core.OrNop(opts.Logger),
		cfg:       opts.Frame,
		now:       opts.Clock,
		passBits:  make(map[string]uint32),
		pending:   make(chan PendingResource, MaxPendingResources),
		resources: newResources(),
		profiler:  NewProfiler(),
	}
	if r.now == nil {
		r.now = time.Now
	}
	r.profiler.now = r.now
	r.width, r.height = drv.WindowSize()

	for i := range r.frames {
		r.frames[i] = frame.NewRenderFrame(r.cfg, r.log)
	}
	r.cfg = r.frames[0].Config()

	sizes := frame.BufferSizes(r.cfg)
	for slot := range r.frameBuffers {
		bufs, err := r.createFrameBuffers(slot, sizes)
		if err != nil {
			r.releaseFrameBuffers()
			return nil, err
		}
		r.frameBuffers[slot] = bufs
	}

	if opts.DebugMaterial.Pipeline != 0 {
		props := opts.DebugPool
		if props.VerticesPerBlock == 0 {
			props = DefaultDebugPoolProps()
		}
		g, err := r.CreateBlockGeometry(DebugPoolName, props)
		if err != nil {
			r.releaseFrameBuffers()
			return nil, err
		}
		r.debugPool = g
		r.debugMaterial = opts.DebugMaterial
	}
	return r, nil
}

// DefaultDebugPoolProps fits every debug primitive with room to spare.
func DefaultDebugPoolProps() geometry.BlockGeometryProps {
	return geometry.BlockGeometryProps{
		VerticesPerBlock: 512,
		MaxVerticeBlocks: 64,
		IndicesPerBlock:  2048,
		MaxIndiceBlocks:  64,
		PositionLayout:   geometry.DefaultPositionLayout(),
		AttributeLayout:  geometry.DefaultAttributeLayout(),
	}
}

func (r *Renderer) createFrameBuffers(slot int, sizes frame.FrameBufferSizes) (frame.FrameBuffers, error) {
	var bufs frame.FrameBuffers
	specs := []struct {
		name  string
		size  uint64
		usage gpu.BufferUsage
		dst   *gpu.BufferID
	}{
		{"global", sizes.Global, gpu.UsageUniform | gpu.UsageStorage, &bufs.Global},
		{"models", sizes.Models, gpu.UsageStorage, &bufs.Models},
		{"lights", sizes.Lights, gpu.UsageStorage, &bufs.Lights},
		{"bones", sizes.Bones, gpu.UsageStorage, &bufs.Bones},
		{"pass data", sizes.PassData, gpu.UsageStorage, &bufs.PassData},
		{"indirect", sizes.Indirect, gpu.UsageIndirect | gpu.UsageStorage, &bufs.Indirect},
		{"model ids", sizes.IDs, gpu.UsageStorage, &bufs.IDs},
	}
	for _, s := range specs {
		id, err := r.drv.CreateBuffer(gpu.BufferDesc{
			Label: fmt.Sprintf("frame %d %s", slot, s.name),
			Size:  s.size,
			Usage: s.usage | gpu.UsageCopyDst,
		}, nil)
		if err != nil {
			destroyFrameBuffers(r.drv, bufs)
			return frame.FrameBuffers{}, fmt.Errorf("frame %d %s buffer: %w", slot, s.name, err)
		}
		*s.dst = id
	}
	return bufs, nil
}

func destroyFrameBuffers(drv gpu.Driver, bufs frame.FrameBuffers) {
	for _, id := range []gpu.BufferID{bufs.Global, bufs.Models, bufs.Lights, bufs.Bones, bufs.PassData, bufs.Indirect, bufs.IDs} {
		if id != 0 {
			drv.DestroyBuffer(id)
		}
	}
}

func (r *Renderer) releaseFrameBuffers() {
	for slot := range r.frameBuffers {
		destroyFrameBuffers(r.drv, r.frameBuffers[slot])
		r.frameBuffers[slot] = frame.FrameBuffers{}
	}
}

func (r *Renderer) Driver() gpu.Driver               { return r.drv }
func (r *Renderer) Logger() core.Logger              { return r.log }
func (r *Renderer) Config() frame.FrameConfig        { return r.cfg }
func (r *Renderer) Resources() *Resources            { return r.resources }
func (r *Renderer) Profiler() *Profiler              { return r.profiler }
func (r *Renderer) WindowSize() (int, int)           { return r.width, r.height }
func (r *Renderer) Elapsed() float32                 { return r.elapsed }
func (r *Renderer) DeltaTime() float32               { return r.dt }
func (r *Renderer) BucketCount() int                 { return r.bucketCount }
func (r *Renderer) Passes() []Pass                   { return r.passes }
func (r *Renderer) AppliedFrame() *frame.RenderFrame { return r.applied }
func (r *Renderer) AppliedSlot() int                 { return r.appliedSlot }

// FrameBuffers returns the GPU buffers of ring slot slot.
func (r *Renderer) FrameBuffers(slot int) frame.FrameBuffers {
	return r.frameBuffers[slot%FrameRing]
}

// PassBit returns the bit assigned to a pass name, assigning the next free
// bit on first use. Zero means every bit is taken.
func (r *Renderer) PassBit(name string) uint32 {
	r.passMu.Lock()
	defer r.passMu.Unlock()
	if b, ok := r.passBits[name]; ok {
		return b
	}
	if len(r.passBits) >= MaxPasses {
		r.log.Criticalf("no pass bit left for %q", name)
		return 0
	}
	b := uint32(1) << len(r.passBits)
	r.passBits[name] = b
	return b
}

// PassBits combines the bits of several pass names.
func (r *Renderer) PassBits(names ...string) uint32 {
	var mask uint32
	for _, n := range names {
		mask |= r.PassBit(n)
	}
	return mask
}

// PassNames lists the names whose bit is set in mask, lowest bit first.
func (r *Renderer) PassNames(mask uint32) []string {
	r.passMu.Lock()
	defer r.passMu.Unlock()
	var names []string
	for name, b := range r.passBits {
		if mask&b != 0 {
			names = append(names, name)
		}
	}
	slices.SortFunc(names, func(a, b string) int {
		return cmp.Compare(r.passBits[a], r.passBits[b])
	})
	return names
}

// AddPass initializes p and appends it to the pass list. Passes render in
// the order they were added.
func (r *Renderer) AddPass(p Pass) error {
	offset := r.bucketCount
	n, err := p.InitializePass(r, offset)
	if err != nil {
		return fmt.Errorf("pass %q: %w", p.Name(), err)
	}
	if n <= 0 {
		return fmt.Errorf("pass %q: %w", p.Name(), ErrInvalidBucketCount)
	}
	if offset+n > r.cfg.MaxBuckets {
		return fmt.Errorf("pass %q needs buckets %d..%d of %d: %w", p.Name(), offset, offset+n-1, r.cfg.MaxBuckets, ErrTooManyBuckets)
	}
	for slot := 0; slot < FrameRing; slot++ {
		if err := p.CreateFrame(r, slot); err != nil {
			for s := 0; s < slot; s++ {
				p.ReleaseFrame(r, s)
			}
			p.DestroyPass(r)
			return fmt.Errorf("pass %q frame %d: %w", p.Name(), slot, err)
		}
	}
	r.passes = append(r.passes, p)
	r.bucketCount += n
	r.log.Debugf("pass %q: buckets %d..%d bit %#x", p.Name(), offset, offset+n-1, r.PassBit(p.Name()))
	return nil
}

// Pass returns the pass named name, or nil.
func (r *Renderer) Pass(name string) Pass {
	for _, p := range r.passes {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// BeginFrame hands out the next frame of the ring, or nil when the driver
// is two frames behind or a frame is already being written. It never blocks.
func (r *Renderer) BeginFrame(cam core.Camera) *frame.RenderFrame {
	if !r.writing.CompareAndSwap(false, true) {
		return nil
	}
	w := r.write.Load()
	if w-r.read.Load() >= FrameRing-1 {
		r.writing.Store(false)
		return nil
	}
	f := r.frames[w%FrameRing]
	f.Initialize(r.nextFrameID.Add(1))
	f.SetCamera(cam)
	if r.debugPool != nil {
		f.SetDebugGeometry(r.debugPool, r, r.debugMaterial)
	}
	for _, p := range r.passes {
		if p.Enabled() {
			p.InitializeFrame(r, f)
		}
	}
	return f
}

// PrepareFrame runs the pass hooks that depend on the lights submitted so
// far, such as shadow bucket assignment. Call it before pushing models.
func (r *Renderer) PrepareFrame(f *frame.RenderFrame) {
	for _, p := range r.passes {
		if p.Enabled() {
			p.PrepareFrame(r, f)
		}
	}
}

// EndFrame publishes the frame returned by BeginFrame to the driver.
func (r *Renderer) EndFrame() {
	if !r.writing.Load() {
		return
	}
	r.write.Add(1)
	r.writing.Store(false)
}

// PendingFrames reports how many published frames wait to be applied.
func (r *Renderer) PendingFrames() int {
	return int(r.write.Load() - r.read.Load())
}

// ApplyFrame finalizes the oldest published frame and makes it the frame
// Render draws. It reports false when no frame is pending.
func (r *Renderer) ApplyFrame() bool {
	rd := r.read.Load()
	if rd >= r.write.Load() {
		return false
	}
	slot := int(rd % FrameRing)
	f := r.frames[slot]

	r.profiler.BeginScope("apply")
	for _, p := range r.passes {
		if p.Enabled() {
			p.PreFinalizeFrame(r, f)
		}
	}
	if err := f.Finalize(r, r.drv, r.frameBuffers[slot], r.elapsed, r.width, r.height); err != nil {
		r.log.Errorf("finalize frame %d: %v", f.ID(), err)
	}
	for _, p := range r.passes {
		if p.Enabled() {
			p.PostFinalizeFrame(r, f)
		}
	}
	r.applied = f
	r.appliedSlot = slot
	r.read.Store(rd + 1)
	r.profiler.EndScope("apply")

	r.profiler.SetCount("models", f.ModelCount())
	r.profiler.SetCount("lights", f.LightCount())
	r.profiler.SetCount("shadows", f.ShadowCount())
	return true
}

// DrawCall resolves the indirect record of a block. Pooled blocks whose
// pool is unknown do not resolve.
func (r *Renderer) DrawCall(b frame.GeometryBlock, baseInstance uint32) (gpu.IndirectCommand, bool, bool) {
	if b.IsRaw() {
		cmd, indexed := frame.RawDrawCall(b, baseInstance)
		return cmd, indexed, true
	}
	g := r.resources.BlockGeometry(b.Pool)
	if g == nil || !b.ID.Valid() {
		return gpu.IndirectCommand{}, false, false
	}
	return g.MakeDrawCall(b.ID, baseInstance, b.Offset, b.Count), g.HasIndices(), true
}

func (r *Renderer) checkResize() {
	w, h := r.drv.WindowSize()
	if w <= 0 || h <= 0 || (w == r.width && h == r.height) {
		return
	}
	r.log.Debugf("window resized to %dx%d", w, h)
	r.width, r.height = w, h
	r.drv.Resize(w, h)
	for _, err := range r.resources.resize(r.drv, w, h) {
		r.log.Errorf("%v", err)
	}
	for _, p := range r.passes {
		p.WindowSizeChanged(r, w, h)
	}
}

// Render runs one driver tick: resize handling, at most one ApplyFrame, the
// pending resource drain within pendingBudget, every enabled pass over the
// applied frame and present.
func (r *Renderer) Render(dt float32, now time.Time, pendingBudget time.Duration) error {
	if r.start.IsZero() {
		r.start = now
	}
	r.dt = dt
	r.elapsed = float32(now.Sub(r.start).Seconds())

	r.profiler.BeginScope("render")
	defer r.profiler.EndScope("render")

	r.checkResize()
	r.ApplyFrame()

	r.profiler.BeginScope("pending")
	r.ProcessPendingResources(pendingBudget)
	r.profiler.EndScope("pending")
	r.profiler.SetCount("pending", len(r.pending))

	if f := r.applied; f != nil {
		var offset uint32
		for _, p := range r.passes {
			if !p.Enabled() {
				continue
			}
			r.profiler.BeginScope(p.Name())
			offset += p.RenderPass(r, f, offset)
			r.profiler.EndScope(p.Name())
		}
	}
	return r.drv.Present()
}

// CreateBuffer queues the creation of a named buffer.
func (r *Renderer) CreateBuffer(name string, desc gpu.BufferDesc, data []byte) bool {
	return r.PushPendingResource(PendingBuffer(name, desc, data))
}

// CreateTexture queues the creation of a named texture.
func (r *Renderer) CreateTexture(name string, props TextureProps, data []byte) bool {
	return r.PushPendingResource(PendingTexture(name, props, data))
}

// CreateFramebuffer queues a framebuffer. Its attachments must be queued
// before it.
func (r *Renderer) CreateFramebuffer(name string, props FramebufferProps) bool {
	return r.PushPendingResource(PendingFramebuffer(name, props))
}

func (r *Renderer) DestroyBuffer(name string) bool {
	return r.PushPendingResource(PendingDestroy(PendingDestroyBuffer, name))
}

func (r *Renderer) DestroyTexture(name string) bool {
	return r.PushPendingResource(PendingDestroy(PendingDestroyTexture, name))
}

func (r *Renderer) DestroyFramebuffer(name string) bool {
	return r.PushPendingResource(PendingDestroy(PendingDestroyFramebuffer, name))
}

// CreateBlockGeometry registers a pool that can allocate right away. Its GPU
// buffers are created by the pending queue ahead of any upload pushed later.
func (r *Renderer) CreateBlockGeometry(name string, props geometry.BlockGeometryProps) (*geometry.BlockGeometry, error) {
	g := geometry.NewBlockGeometry(name, props, r.log)
	if err := r.resources.addPool(g); err != nil {
		return nil, err
	}
	if !r.PushPendingResource(PendingResource{Kind: PendingCreateBlockGeometry, Name: name, Hash: g.NameHash()}) {
		r.resources.removePool(g.NameHash())
		return nil, fmt.Errorf("block geometry %q: %w", name, ErrPendingFull)
	}
	return g, nil
}

func (r *Renderer) DestroyBlockGeometry(name string) bool {
	return r.PushPendingResource(PendingDestroy(PendingDestroyBlockGeometry, name))
}

// DebugGeometry returns the debug pool, or nil when disabled.
func (r *Renderer) DebugGeometry() *geometry.BlockGeometry { return r.debugPool }

// CreatePipeline compiles a named pipeline on the driver goroutine. A name
// already in use returns the existing pipeline.
func (r *Renderer) CreatePipeline(name string, desc gpu.PipelineDesc) (gpu.PipelineID, error) {
	return r.resources.createPipeline(r.drv, name, desc)
}

// Release destroys every pass, frame buffer and named resource. Queued
// requests are discarded. The driver itself stays alive.
func (r *Renderer) Release() {
	for _, p := range r.passes {
		for slot := 0; slot < FrameRing; slot++ {
			p.ReleaseFrame(r, slot)
		}
		p.DestroyPass(r)
	}
	r.passes = nil
	r.bucketCount = 0
drain:
	for {
		select {
		case <-r.pending:
		default:
			break drain
		}
	}
	r.releaseFrameBuffers()
	r.resources.release(r.drv)
	r.applied = nil
}
