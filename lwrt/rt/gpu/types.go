package gpu

import (
	"encoding/binary"
)

// Zero is never a valid handle.
type (
	BufferID      uint32
	TextureID     uint32
	FramebufferID uint32
	PipelineID    uint32
)

// Backbuffer targets the window surface when passed to BeginPass.
const Backbuffer FramebufferID = 0

type BufferUsage uint32

const (
	UsageVertex BufferUsage = 1 << iota
	UsageIndex
	UsageUniform
	UsageStorage
	UsageIndirect
	UsageCopyDst
)

type BufferDesc struct {
	Label string
	Size  uint64
	Usage BufferUsage
}

type TextureFormat uint32

const (
	FormatRGBA8 TextureFormat = iota
	FormatBGRA8
	FormatRGBA16F
	FormatR8
	FormatDepth24
	FormatDepth32F
	// FormatSurface resolves to the window surface format.
	FormatSurface
)

func (f TextureFormat) IsDepth() bool {
	return f == FormatDepth24 || f == FormatDepth32F
}

// BytesPerPixel of color formats; depth formats report 4.
func (f TextureFormat) BytesPerPixel() uint32 {
	switch f {
	case FormatR8:
		return 1
	case FormatRGBA16F:
		return 8
	}
	return 4
}

type TextureDesc struct {
	Label        string
	Width        uint32
	Height       uint32
	Layers       uint32
	Format       TextureFormat
	Samples      uint32
	RenderTarget bool
}

type FramebufferDesc struct {
	Label string
	Color []TextureID
	Depth TextureID
	// Layer selects the array layer of every attachment.
	Layer uint32
}

type VertexFormat uint32

const (
	Float32x2 VertexFormat = iota
	Float32x3
	Float32x4
	Uint32x4
)

func (f VertexFormat) Size() uint32 {
	switch f {
	case Float32x2:
		return 8
	case Float32x3:
		return 12
	}
	return 16
}

type VertexAttribute struct {
	Name   string
	Format VertexFormat
	Offset uint32
}

type VertexLayout struct {
	Stride     uint32
	Attributes []VertexAttribute
}

func (l VertexLayout) Find(name string) (VertexAttribute, bool) {
	for _, a := range l.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return VertexAttribute{}, false
}

type BlendMode uint32

const (
	BlendNone BlendMode = iota
	BlendAlpha
	BlendAdditive
)

type CullMode uint32

const (
	CullNone CullMode = iota
	CullBack
	CullFront
)

type PipelineDesc struct {
	Label          string
	Source         string
	VertexEntry    string
	FragmentEntry  string
	Streams        []VertexLayout
	ColorFormats   []TextureFormat
	DepthFormat    TextureFormat
	HasDepth       bool
	DepthTest      bool
	DepthWrite     bool
	Blend          BlendMode
	Cull           CullMode
	Samples        uint32
	StorageBuffers int
	Textures       int
	// ArrayTextures marks texture binding i as a 2D array by bit i.
	ArrayTextures uint32
	Lines         bool
}

type ClearState struct {
	Color      [4]float32
	Depth      float32
	ClearColor bool
	ClearDepth bool
}

// DrawState binds a pipeline with its buffers. Storage buffers and textures
// are bound in order to group 0 bindings, buffers first.
type DrawState struct {
	Pipeline    PipelineID
	IndexBuffer BufferID
	Streams     []BufferID
	Storage     []BufferID
	Textures    []TextureID
	// PassData selects the PassData record the draw reads.
	PassData uint32
}

// IndirectCommandSize is the stride of one record in an indirect buffer.
const IndirectCommandSize = 20

// IndirectCommand mirrors the indexed indirect layout. Non-indexed records
// reuse Count and First as vertex count and first vertex.
type IndirectCommand struct {
	Count         uint32
	InstanceCount uint32
	First         uint32
	BaseVertex    int32
	BaseInstance  uint32
}

// Put writes c into dst which must hold IndirectCommandSize bytes.
func (c IndirectCommand) Put(dst []byte, indexed bool) {
	le := binary.LittleEndian
	le.PutUint32(dst[0:], c.Count)
	le.PutUint32(dst[4:], c.InstanceCount)
	le.PutUint32(dst[8:], c.First)
	if indexed {
		le.PutUint32(dst[12:], uint32(c.BaseVertex))
		le.PutUint32(dst[16:], c.BaseInstance)
		return
	}
	le.PutUint32(dst[12:], c.BaseInstance)
	le.PutUint32(dst[16:], 0)
}

func DecodeIndirect(src []byte, indexed bool) IndirectCommand {
	le := binary.LittleEndian
	c := IndirectCommand{
		Count:         le.Uint32(src[0:]),
		InstanceCount: le.Uint32(src[4:]),
		First:         le.Uint32(src[8:]),
	}
	if indexed {
		c.BaseVertex = int32(le.Uint32(src[12:]))
		c.BaseInstance = le.Uint32(src[16:])
	} else {
		c.BaseInstance = le.Uint32(src[12:])
	}
	return c
}

// SameRange reports whether two records draw the same geometry range.
func (c IndirectCommand) SameRange(o IndirectCommand) bool {
	return c.Count == o.Count && c.First == o.First && c.BaseVertex == o.BaseVertex
}
