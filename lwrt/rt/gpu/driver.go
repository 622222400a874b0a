// Package gpu defines the backend contract the renderer issues work through.
// All methods are called from the driver goroutine only.
package gpu

import "errors"

var (
	ErrUnknownBuffer      = errors.New("gpu: unknown buffer")
	ErrUnknownTexture     = errors.New("gpu: unknown texture")
	ErrUnknownFramebuffer = errors.New("gpu: unknown framebuffer")
	ErrUnknownPipeline    = errors.New("gpu: unknown pipeline")
	ErrOutOfRange         = errors.New("gpu: write exceeds buffer size")
	ErrNoPass             = errors.New("gpu: no render pass is active")
	ErrPassActive         = errors.New("gpu: a render pass is already active")
)

type Driver interface {
	Name() string
	// WindowSize reports the current surface size in pixels.
	WindowSize() (int, int)
	// Resize reconfigures the surface.
	Resize(width, height int)

	CreateBuffer(desc BufferDesc, data []byte) (BufferID, error)
	UpdateBuffer(id BufferID, offset uint64, data []byte) error
	DestroyBuffer(id BufferID)

	CreateTexture(desc TextureDesc, data []byte) (TextureID, error)
	UpdateTexture(id TextureID, data []byte) error
	DestroyTexture(id TextureID)

	CreateFramebuffer(desc FramebufferDesc) (FramebufferID, error)
	DestroyFramebuffer(id FramebufferID)

	CreatePipeline(desc PipelineDesc) (PipelineID, error)
	DestroyPipeline(id PipelineID)

	BeginPass(target FramebufferID, clear ClearState) error
	// DrawIndirect issues count records starting at record offset of the indirect buffer.
	DrawIndirect(state DrawState, indirect BufferID, count, offset uint32) error
	Draw(state DrawState, vertexCount, instanceCount uint32) error
	EndPass() error
	Resolve(src, dst TextureID) error

	Present() error
	Release()
}
