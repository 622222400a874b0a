package wgpudriver

import (
	"cmp"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
)

func vertexFormat(f gpu.VertexFormat) wgpu.VertexFormat {
	switch f {
	case gpu.Float32x2:
		return wgpu.VertexFormatFloat32x2
	case gpu.Float32x3:
		return wgpu.VertexFormatFloat32x3
	case gpu.Uint32x4:
		return wgpu.VertexFormatUint32x4
	}
	return wgpu.VertexFormatFloat32x4
}

func blendState(m gpu.BlendMode) *wgpu.BlendState {
	switch m {
	case gpu.BlendAlpha:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	case gpu.BlendAdditive:
		add := wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOne,
			Operation: wgpu.BlendOperationAdd,
		}
		return &wgpu.BlendState{Color: add, Alpha: add}
	}
	return nil
}

func cullMode(c gpu.CullMode) wgpu.CullMode {
	switch c {
	case gpu.CullBack:
		return wgpu.CullModeBack
	case gpu.CullFront:
		return wgpu.CullModeFront
	}
	return wgpu.CullModeNone
}

// groupLayout lays out group 0 as the storage buffers, then the textures,
// then one sampler when any texture is bound.
func (d *Driver) groupLayout(desc gpu.PipelineDesc) (*wgpu.BindGroupLayout, error) {
	visible := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	var entries []wgpu.BindGroupLayoutEntry
	for i := 0; i < desc.StorageBuffers; i++ {
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    uint32(len(entries)),
			Visibility: visible,
			Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
		})
	}
	for i := 0; i < desc.Textures; i++ {
		dim := wgpu.TextureViewDimension2D
		if desc.ArrayTextures&(1<<i) != 0 {
			dim = wgpu.TextureViewDimension2DArray
		}
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    uint32(len(entries)),
			Visibility: visible,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
				ViewDimension: dim,
			},
		})
	}
	if desc.Textures > 0 {
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    uint32(len(entries)),
			Visibility: visible,
			Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeNonFiltering},
		})
	}
	return d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: entries,
	})
}

func (d *Driver) CreatePipeline(desc gpu.PipelineDesc) (gpu.PipelineID, error) {
	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.Source},
	})
	if err != nil {
		return 0, fmt.Errorf("compile %q: %w", desc.Label, err)
	}
	defer module.Release()

	group0, err := d.groupLayout(desc)
	if err != nil {
		return 0, fmt.Errorf("layout %q: %w", desc.Label, err)
	}
	layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: []*wgpu.BindGroupLayout{group0, d.drawLayout},
	})
	if err != nil {
		group0.Release()
		return 0, fmt.Errorf("layout %q: %w", desc.Label, err)
	}
	defer layout.Release()

	location := uint32(0)
	streams := make([]wgpu.VertexBufferLayout, 0, len(desc.Streams))
	for _, s := range desc.Streams {
		attrs := make([]wgpu.VertexAttribute, 0, len(s.Attributes))
		for _, a := range s.Attributes {
			attrs = append(attrs, wgpu.VertexAttribute{
				Format:         vertexFormat(a.Format),
				Offset:         uint64(a.Offset),
				ShaderLocation: location,
			})
			location++
		}
		streams = append(streams, wgpu.VertexBufferLayout{
			ArrayStride: uint64(s.Stride),
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes:  attrs,
		})
	}

	topology := wgpu.PrimitiveTopologyTriangleList
	if desc.Lines {
		topology = wgpu.PrimitiveTopologyLineList
	}
	rp := &wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: cmp.Or(desc.VertexEntry, "vs_main"),
			Buffers:    streams,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  topology,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  cullMode(desc.Cull),
		},
		Multisample: wgpu.MultisampleState{
			Count: max(desc.Samples, 1),
			Mask:  0xFFFFFFFF,
		},
	}
	if desc.FragmentEntry != "" {
		targets := make([]wgpu.ColorTargetState, 0, len(desc.ColorFormats))
		for _, f := range desc.ColorFormats {
			targets = append(targets, wgpu.ColorTargetState{
				Format:    d.textureFormat(f),
				Blend:     blendState(desc.Blend),
				WriteMask: wgpu.ColorWriteMaskAll,
			})
		}
		rp.Fragment = &wgpu.FragmentState{
			Module:     module,
			EntryPoint: desc.FragmentEntry,
			Targets:    targets,
		}
	}
	if desc.HasDepth {
		compare := wgpu.CompareFunctionAlways
		if desc.DepthTest {
			compare = wgpu.CompareFunctionLessEqual
		}
		rp.DepthStencil = &wgpu.DepthStencilState{
			Format:            d.textureFormat(cmp.Or(desc.DepthFormat, gpu.FormatDepth32F)),
			DepthWriteEnabled: desc.DepthWrite,
			DepthCompare:      compare,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		}
	}

	created, err := d.device.CreateRenderPipeline(rp)
	if err != nil {
		group0.Release()
		return 0, fmt.Errorf("create pipeline %q: %w", desc.Label, err)
	}
	id := gpu.PipelineID(d.id())
	d.pipelines[id] = &pipeline{pipeline: created, group0: group0, desc: desc}
	return id, nil
}

func (d *Driver) DestroyPipeline(id gpu.PipelineID) {
	p, ok := d.pipelines[id]
	if !ok {
		return
	}
	delete(d.pipelines, id)
	d.clearGroups()
	p.pipeline.Release()
	p.group0.Release()
}
