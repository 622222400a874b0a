// Package wgpudriver implements gpu.Driver on WebGPU with a GLFW window surface.
package wgpudriver

import (
	"cmp"
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gekko3d/lightwave/lwrt/rt/core"
	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
)

// drawParamStride is the dynamic uniform offset alignment every adapter supports.
const drawParamStride = 256

var ErrTooManyDraws = errors.New("wgpu: draw parameter ring is full")

type Options struct {
	Logger core.Logger
	VSync  bool
	// MaxDraws bounds the draws recorded between two presents.
	MaxDraws int
}

type buffer struct {
	buf  *wgpu.Buffer
	desc gpu.BufferDesc
}

type texture struct {
	tex   *wgpu.Texture
	view  *wgpu.TextureView
	array *wgpu.TextureView
	desc  gpu.TextureDesc
}

type framebuffer struct {
	desc  gpu.FramebufferDesc
	color []*wgpu.TextureView
	depth *wgpu.TextureView
}

type pipeline struct {
	pipeline *wgpu.RenderPipeline
	group0   *wgpu.BindGroupLayout
	desc     gpu.PipelineDesc
}

type Driver struct {
	window *glfw.Window
	log    core.Logger
	opts   Options

	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	config   *wgpu.SurfaceConfiguration

	sampler  *wgpu.Sampler
	fallback *texture

	drawLayout *wgpu.BindGroupLayout
	drawBuf    *wgpu.Buffer
	drawGroup  *wgpu.BindGroup
	drawParams []byte
	draws      int

	nextID       uint32
	buffers      map[gpu.BufferID]*buffer
	textures     map[gpu.TextureID]*texture
	framebuffers map[gpu.FramebufferID]*framebuffer
	pipelines    map[gpu.PipelineID]*pipeline
	groups       map[uint64]*wgpu.BindGroup

	encoder     *wgpu.CommandEncoder
	pass        *wgpu.RenderPassEncoder
	surfaceTex  *wgpu.Texture
	surfaceView *wgpu.TextureView
}

// New creates the device and configures the surface of window.
func New(window *glfw.Window, opts Options) (*Driver, error) {
	opts.MaxDraws = cmp.Or(opts.MaxDraws, 4096)
	d := &Driver{
		window:       window,
		log:          core.OrNop(opts.Logger),
		opts:         opts,
		buffers:      make(map[gpu.BufferID]*buffer),
		textures:     make(map[gpu.TextureID]*texture),
		framebuffers: make(map[gpu.FramebufferID]*framebuffer),
		pipelines:    make(map[gpu.PipelineID]*pipeline),
		groups:       make(map[uint64]*wgpu.BindGroup),
		drawParams:   make([]byte, opts.MaxDraws*drawParamStride),
	}

	d.instance = wgpu.CreateInstance(nil)
	d.surface = d.instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(window))

	var err error
	d.adapter, err = d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: d.surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	d.device, err = d.adapter.RequestDevice(nil)
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	d.queue = d.device.GetQueue()

	width, height := window.GetFramebufferSize()
	caps := d.surface.GetCapabilities(d.adapter)
	present := wgpu.PresentModeImmediate
	if opts.VSync {
		present = wgpu.PresentModeFifo
	}
	d.config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(max(1, width)),
		Height:      uint32(max(1, height)),
		PresentMode: present,
		AlphaMode:   caps.AlphaModes[0],
	}
	d.surface.Configure(d.adapter, d.device, d.config)

	if err := d.createShared(); err != nil {
		d.Release()
		return nil, err
	}
	d.log.Infof("wgpu driver ready: %dx%d, surface format %v", d.config.Width, d.config.Height, d.config.Format)
	return d, nil
}

// createShared builds the sampler, fallback texture and draw parameter ring.
func (d *Driver) createShared() error {
	var err error
	d.sampler, err = d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "lightwave sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeNearest,
		MinFilter:     wgpu.FilterModeNearest,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("create sampler: %w", err)
	}

	d.fallback, err = d.newTexture(gpu.TextureDesc{Label: "fallback", Width: 1, Height: 1, Format: gpu.FormatRGBA8}, []byte{255, 255, 255, 255})
	if err != nil {
		return err
	}

	d.drawLayout, err = d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "draw params",
		Entries: []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type:             wgpu.BufferBindingTypeUniform,
				HasDynamicOffset: true,
				MinBindingSize:   4,
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("create draw params layout: %w", err)
	}
	d.drawBuf, err = d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "draw params",
		Size:  uint64(len(d.drawParams)),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create draw params: %w", err)
	}
	d.drawGroup, err = d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "draw params",
		Layout: d.drawLayout,
		Entries: []wgpu.BindGroupEntry{{
			Binding: 0,
			Buffer:  d.drawBuf,
			Offset:  0,
			Size:    drawParamStride,
		}},
	})
	if err != nil {
		return fmt.Errorf("create draw params group: %w", err)
	}
	return nil
}

func (d *Driver) Name() string { return "wgpu" }

// WindowSize reports the framebuffer size of the window, which may differ
// from the configured surface until Resize is called.
func (d *Driver) WindowSize() (int, int) {
	return d.window.GetFramebufferSize()
}

func (d *Driver) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	d.config.Width = uint32(width)
	d.config.Height = uint32(height)
	d.surface.Configure(d.adapter, d.device, d.config)
}

func (d *Driver) id() uint32 {
	d.nextID++
	return d.nextID
}

// Present submits the recorded frame and presents the surface.
func (d *Driver) Present() error {
	if d.pass != nil {
		return gpu.ErrPassActive
	}
	defer d.releaseSurface()
	if d.encoder == nil {
		return nil
	}
	encoder := d.encoder
	d.encoder = nil
	defer encoder.Release()

	if d.draws > 0 {
		d.queue.WriteBuffer(d.drawBuf, 0, d.drawParams[:d.draws*drawParamStride])
		d.draws = 0
	}
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish frame: %w", err)
	}
	defer cmd.Release()
	d.queue.Submit(cmd)
	if d.surfaceTex != nil {
		d.surface.Present()
	}
	return nil
}

func (d *Driver) releaseSurface() {
	if d.surfaceView != nil {
		d.surfaceView.Release()
		d.surfaceView = nil
	}
	if d.surfaceTex != nil {
		d.surfaceTex.Release()
		d.surfaceTex = nil
	}
}

// Release destroys every object still alive and the device.
func (d *Driver) Release() {
	if d.pass != nil {
		d.pass.Release()
		d.pass = nil
	}
	if d.encoder != nil {
		d.encoder.Release()
		d.encoder = nil
	}
	d.releaseSurface()
	d.clearGroups()
	for id := range d.pipelines {
		d.DestroyPipeline(id)
	}
	for id := range d.framebuffers {
		d.DestroyFramebuffer(id)
	}
	for id := range d.textures {
		d.DestroyTexture(id)
	}
	for id := range d.buffers {
		d.DestroyBuffer(id)
	}
	if d.fallback != nil {
		d.releaseTexture(d.fallback)
		d.fallback = nil
	}
	release(&d.drawGroup)
	release(&d.drawBuf)
	release(&d.drawLayout)
	release(&d.sampler)
	release(&d.queue)
	release(&d.device)
	release(&d.adapter)
	release(&d.surface)
	release(&d.instance)
}

func release[T interface {
	comparable
	Release()
}](p *T) {
	var zero T
	if *p != zero {
		(*p).Release()
		*p = zero
	}
}
