package wgpudriver

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"

	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
)

func TestBufferUsage(t *testing.T) {
	assert.Equal(t, wgpu.BufferUsageIndirect|wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst,
		bufferUsage(gpu.UsageIndirect|gpu.UsageStorage|gpu.UsageCopyDst))
	assert.Equal(t, wgpu.BufferUsage(0), bufferUsage(0))
}

func TestPadded(t *testing.T) {
	assert.Equal(t, uint64(8), align4(5))
	assert.Equal(t, uint64(8), align4(8))
	assert.Len(t, padded(make([]byte, 6)), 8)

	same := make([]byte, 12)
	assert.Equal(t, &same[0], &padded(same)[0], "aligned data is not copied")
}

func TestTextureFormat(t *testing.T) {
	d := &Driver{config: &wgpu.SurfaceConfiguration{Format: wgpu.TextureFormatBGRA8UnormSrgb}}
	assert.Equal(t, wgpu.TextureFormatBGRA8UnormSrgb, d.textureFormat(gpu.FormatSurface))
	assert.Equal(t, wgpu.TextureFormatDepth32Float, d.textureFormat(gpu.FormatDepth32F))
	assert.Equal(t, wgpu.TextureFormatR8Unorm, d.textureFormat(gpu.FormatR8))
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, d.textureFormat(gpu.FormatRGBA8))
}

func TestPipelineStates(t *testing.T) {
	assert.Nil(t, blendState(gpu.BlendNone))
	assert.Equal(t, wgpu.BlendFactorOneMinusSrcAlpha, blendState(gpu.BlendAlpha).Color.DstFactor)
	assert.Equal(t, wgpu.BlendFactorOne, blendState(gpu.BlendAdditive).Alpha.DstFactor)
	assert.Equal(t, wgpu.CullModeBack, cullMode(gpu.CullBack))
	assert.Equal(t, wgpu.VertexFormatFloat32x3, vertexFormat(gpu.Float32x3))
	assert.Equal(t, wgpu.VertexFormatFloat32x4, vertexFormat(gpu.Float32x4))
}
