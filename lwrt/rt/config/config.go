// Package config loads the renderer setup from YAML: frame capacities,
// named resources, pipelines and the pass graph.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gekko3d/lightwave/lwrt/rt/frame"
)

var ErrUnknownValue = errors.New("config: unknown value")

type Renderer struct {
	Frame        frame.FrameConfig `yaml:"frame"`
	Textures     []Texture         `yaml:"textures"`
	Buffers      []Buffer          `yaml:"buffers"`
	Framebuffers []Framebuffer     `yaml:"framebuffers"`
	Pools        []Pool            `yaml:"pools"`
	Pipelines    []Pipeline        `yaml:"pipelines"`
	Passes       []Pass            `yaml:"passes"`
	// DebugPipeline enables debug geometry drawn with this pipeline.
	DebugPipeline string `yaml:"debug_pipeline,omitempty"`
	DebugTexture  string `yaml:"debug_texture,omitempty"`
}

type Texture struct {
	Name         string  `yaml:"name"`
	Width        uint32  `yaml:"width,omitempty"`
	Height       uint32  `yaml:"height,omitempty"`
	Layers       uint32  `yaml:"layers,omitempty"`
	Format       string  `yaml:"format"`
	Samples      uint32  `yaml:"samples,omitempty"`
	RenderTarget bool    `yaml:"render_target,omitempty"`
	WindowScale  float32 `yaml:"window_scale,omitempty"`
	// Fill is an RGBA8 color repeated over every texel.
	Fill []uint8 `yaml:"fill,omitempty"`
}

type Buffer struct {
	Name  string   `yaml:"name"`
	Size  uint64   `yaml:"size"`
	Usage []string `yaml:"usage"`
}

type Framebuffer struct {
	Name  string   `yaml:"name"`
	Color []string `yaml:"color,omitempty"`
	Depth string   `yaml:"depth,omitempty"`
	Layer uint32   `yaml:"layer,omitempty"`
}

type Pool struct {
	Name             string `yaml:"name"`
	VerticesPerBlock int    `yaml:"vertices_per_block"`
	MaxVerticeBlocks int    `yaml:"max_vertice_blocks"`
	IndicesPerBlock  int    `yaml:"indices_per_block,omitempty"`
	MaxIndiceBlocks  int    `yaml:"max_indice_blocks,omitempty"`
}

type Pipeline struct {
	Name string `yaml:"name"`
	// Shader names a built-in program; Source holds inline WGSL instead.
	Shader        string   `yaml:"shader,omitempty"`
	Source        string   `yaml:"source,omitempty"`
	Vertex        string   `yaml:"vertex,omitempty"`
	Fragment      string   `yaml:"fragment,omitempty"`
	Streams       []string `yaml:"streams,omitempty"`
	Color         []string `yaml:"color,omitempty"`
	Depth         string   `yaml:"depth,omitempty"`
	DepthTest     bool     `yaml:"depth_test,omitempty"`
	DepthWrite    bool     `yaml:"depth_write,omitempty"`
	Blend         string   `yaml:"blend,omitempty"`
	Cull          string   `yaml:"cull,omitempty"`
	Samples       uint32   `yaml:"samples,omitempty"`
	Storage       int      `yaml:"storage,omitempty"`
	Textures      int      `yaml:"textures,omitempty"`
	ArrayTextures []int    `yaml:"array_textures,omitempty"`
	Lines         bool     `yaml:"lines,omitempty"`
}

type Clear struct {
	Color []float32 `yaml:"color,omitempty"`
	Depth *float32  `yaml:"depth,omitempty"`
}

type ResolveTarget struct {
	Source string `yaml:"source"`
	Dest   string `yaml:"dest"`
}

// Pass declares one entry of the pass graph. Type selects which of the
// remaining fields apply.
type Pass struct {
	Type     string `yaml:"type"`
	Name     string `yaml:"name,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty"`
	Pipeline string `yaml:"pipeline,omitempty"`
	Target   string `yaml:"target,omitempty"`
	Clear    *Clear `yaml:"clear,omitempty"`

	// geometry
	OpaqueSort      string   `yaml:"opaque_sort,omitempty"`
	TransparentSort string   `yaml:"transparent_sort,omitempty"`
	Primary         bool     `yaml:"primary,omitempty"`
	Storage         []string `yaml:"storage,omitempty"`
	Textures        []string `yaml:"textures,omitempty"`

	// shadow
	Buckets  int        `yaml:"buckets,omitempty"`
	Cascades int        `yaml:"cascades,omitempty"`
	MapSize  uint32     `yaml:"map_size,omitempty"`
	Near     float32    `yaml:"near,omitempty"`
	SceneMin [3]float32 `yaml:"scene_min,omitempty"`
	SceneMax [3]float32 `yaml:"scene_max,omitempty"`

	// postprocess and blur
	Inputs []string `yaml:"inputs,omitempty"`
	Source string   `yaml:"source,omitempty"`
	Scale  float32  `yaml:"scale,omitempty"`
	Format string   `yaml:"format,omitempty"`

	Resolve []ResolveTarget `yaml:"resolve,omitempty"`

	// ui
	FontSize     float64 `yaml:"font_size,omitempty"`
	MaxGlyphs    int     `yaml:"max_glyphs,omitempty"`
	ShowProfiler bool    `yaml:"show_profiler,omitempty"`
}

// Parse decodes a YAML document. Unknown keys are rejected.
func Parse(data []byte) (*Renderer, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var c Renderer
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &c, nil
}

func Load(path string) (*Renderer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Marshal encodes c as YAML.
func (c *Renderer) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
