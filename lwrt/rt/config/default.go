package config

import "github.com/gekko3d/lightwave/lwrt/rt/frame"

// Default renders lit geometry with cascaded shadows into an HDR target,
// tonemaps it to the window and draws the text overlay on top.
func Default() *Renderer {
	one := float32(1)
	return &Renderer{
		Frame: frame.DefaultFrameConfig(),
		Textures: []Texture{
			{Name: "white", Width: 1, Height: 1, Format: "rgba8", Fill: []uint8{255, 255, 255, 255}},
			{Name: "scene color", Format: "rgba16f", RenderTarget: true, WindowScale: 1},
			{Name: "scene depth", Format: "depth32f", RenderTarget: true, WindowScale: 1},
		},
		Framebuffers: []Framebuffer{
			{Name: "scene", Color: []string{"scene color"}, Depth: "scene depth"},
		},
		Pools: []Pool{
			{Name: "meshes", VerticesPerBlock: 256, MaxVerticeBlocks: 1024, IndicesPerBlock: 1024, MaxIndiceBlocks: 1024},
		},
		Pipelines: []Pipeline{
			{
				Name: "lit", Shader: "geometry", Fragment: "fs_main",
				Streams: []string{"position", "attributes"},
				Color:   []string{"rgba16f"}, Depth: "depth32f", DepthTest: true, DepthWrite: true,
				Cull: "back", Storage: 7, Textures: 2, ArrayTextures: []int{1},
			},
			{
				Name: "lit transparent", Shader: "geometry", Fragment: "fs_main",
				Streams: []string{"position", "attributes"},
				Color:   []string{"rgba16f"}, Depth: "depth32f", DepthTest: true,
				Blend: "alpha", Storage: 7, Textures: 2, ArrayTextures: []int{1},
			},
			{
				Name: "shadow", Shader: "shadow",
				Streams: []string{"position"},
				Depth:   "depth32f", DepthTest: true, DepthWrite: true,
				Storage: 6,
			},
			{
				Name: "tonemap", Shader: "fullscreen", Fragment: "fs_tonemap",
				Color: []string{"surface"}, Storage: 6, Textures: 1,
			},
			{
				Name: "text", Shader: "text", Fragment: "fs_main",
				Streams: []string{"text"},
				Color:   []string{"surface"}, Blend: "alpha", Textures: 1,
			},
		},
		Passes: []Pass{
			{Type: "shadow", Name: "shadow", Pipeline: "shadow", Buckets: 8, Cascades: 3, MapSize: 2048},
			{
				Type: "geometry", Name: "geometry", Target: "scene",
				Clear:      &Clear{Color: []float32{0.05, 0.05, 0.08, 1}, Depth: &one},
				OpaqueSort: "state", TransparentSort: "back_to_front", Primary: true,
				Storage: []string{"shadow matrices"}, Textures: []string{"shadow map"},
			},
			{Type: "postprocess", Name: "tonemap", Pipeline: "tonemap", Inputs: []string{"scene color"}},
			{Type: "ui", Name: "ui", Pipeline: "text"},
		},
		DebugPipeline: "lit transparent",
		DebugTexture:  "white",
	}
}
