package pass

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/lightwave/lwrt/rt/core"
	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
)

func TestUIPassDrawsText(t *testing.T) {
	fx := newFixture(t)
	ui := NewUIPass(UIPassProps{})
	require.NoError(t, fx.r.AddPass(ui))
	text := fx.pipeline(t, "text")
	require.NotNil(t, ui.Atlas())

	atlas, ok := fx.r.Resources().Texture(core.NameHash(ui.AtlasName()))
	require.True(t, ok)
	desc, _ := fx.drv.TextureDesc(atlas)
	assert.Equal(t, gpu.FormatR8, desc.Format)

	fx.frame(t, nil)
	assert.Empty(t, callsOf(fx.drv.Calls(), gpu.CallDraw), "nothing to draw")

	ui.SetText(core.TextItem{Text: "hi", Position: [2]float32{10, 10}, Color: [4]float32{1, 1, 1, 1}})
	fx.frame(t, nil)
	draws := callsOf(fx.drv.Calls(), gpu.CallDraw)
	require.Len(t, draws, 1)
	assert.Equal(t, uint32(12), draws[0].Count)
	assert.Equal(t, text, draws[0].State.Pipeline)
	assert.Equal(t, []gpu.TextureID{atlas}, draws[0].State.Textures)

	vbuf, _ := fx.r.Resources().Buffer(core.NameHash(ui.VerticesName()))
	data, _ := fx.drv.BufferData(vbuf)
	var want []core.TextVertex
	want = ui.Atlas().BuildVertices([]core.TextItem{{Text: "hi", Position: [2]float32{10, 10}, Color: [4]float32{1, 1, 1, 1}}}, 320, 200, want)
	assert.Equal(t, gpu.SliceBytes(want), data[:len(gpu.SliceBytes(want))])
}

func TestUIPassProfilerOverlay(t *testing.T) {
	fx := newFixture(t)
	ui := NewUIPass(UIPassProps{ShowProfiler: true, MaxGlyphs: 8})
	require.NoError(t, fx.r.AddPass(ui))
	fx.pipeline(t, "text")

	fx.frame(t, nil)
	draws := callsOf(fx.drv.Calls(), gpu.CallDraw)
	require.Len(t, draws, 1)
	assert.Equal(t, uint32(8*6), draws[0].Count, "glyphs beyond MaxGlyphs are dropped")
}

func TestTextVertexLayout(t *testing.T) {
	l := TextVertexLayout()
	assert.Equal(t, uint32(32), l.Stride)
	a, ok := l.Find("Color")
	require.True(t, ok)
	assert.Equal(t, uint32(16), a.Offset)
}
