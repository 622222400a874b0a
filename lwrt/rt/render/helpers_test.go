package render

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lightwave/lwrt/rt/core"
	"github.com/gekko3d/lightwave/lwrt/rt/frame"
	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
)

type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

type hookPass struct {
	PassBase
	buckets  int
	calls    []string
	offsets  []uint32
	consumed uint32
	sizes    [][2]int
	failSlot int
}

func newHookPass(name string, buckets int) *hookPass {
	return &hookPass{PassBase: PassBase{PassName: name}, buckets: buckets, consumed: 1, failSlot: -1}
}

func (p *hookPass) InitializePass(r *Renderer, bucketOffset int) (int, error) {
	p.InitializeBase(r, bucketOffset, p.buckets)
	return p.buckets, nil
}

func (p *hookPass) CreateFrame(r *Renderer, slot int) error {
	if slot == p.failSlot {
		return gpu.ErrUnknownBuffer
	}
	p.calls = append(p.calls, "create")
	return nil
}

func (p *hookPass) ReleaseFrame(r *Renderer, slot int) { p.calls = append(p.calls, "release") }

func (p *hookPass) InitializeFrame(r *Renderer, f *frame.RenderFrame) {
	p.calls = append(p.calls, "init")
	if p.BucketCount > 0 {
		_ = f.InitializeBucket(p.BucketOffset, *f.Camera(), frame.DefaultBucketProps(p.PassBit))
	}
}

func (p *hookPass) PrepareFrame(r *Renderer, f *frame.RenderFrame) {
	p.calls = append(p.calls, "prepare")
}

func (p *hookPass) PreFinalizeFrame(r *Renderer, f *frame.RenderFrame) {
	p.calls = append(p.calls, "prefinalize")
}

func (p *hookPass) PostFinalizeFrame(r *Renderer, f *frame.RenderFrame) {
	p.calls = append(p.calls, "postfinalize")
}

func (p *hookPass) RenderPass(r *Renderer, f *frame.RenderFrame, passDataOffset uint32) uint32 {
	p.calls = append(p.calls, "render")
	p.offsets = append(p.offsets, passDataOffset)
	return p.consumed
}

func (p *hookPass) WindowSizeChanged(r *Renderer, width, height int) {
	p.sizes = append(p.sizes, [2]int{width, height})
}

func (p *hookPass) DestroyPass(r *Renderer) { p.calls = append(p.calls, "destroy") }

func testCamera() core.Camera {
	return core.NewPerspectiveCamera(
		mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0},
		core.Perspective{FOV: mgl32.DegToRad(90), Aspect: 1, Near: 0.1, Far: 100}, 0)
}

func testConfig() frame.FrameConfig {
	return frame.FrameConfig{
		MaxBuckets:       4,
		MaxBucketSize:    64,
		MaxLights:        8,
		MaxBones:         16,
		MaxShadowCasters: 4,
		MaxPassData:      8,
	}
}

func newTestRenderer(t interface{ Fatalf(string, ...any) }, drv *gpu.HeadlessDriver, clock *fakeClock) *Renderer {
	opts := Options{Frame: testConfig()}
	if clock != nil {
		opts.Clock = clock.Now
	}
	r, err := New(drv, opts)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return r
}
