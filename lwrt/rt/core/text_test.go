package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlyphAtlas(t *testing.T) {
	atlas, err := NewDefaultGlyphAtlas(16)
	require.NoError(t, err)
	require.NotNil(t, atlas.Image)

	_, ok := atlas.Glyphs['A']
	assert.True(t, ok)

	verts := atlas.BuildVertices([]TextItem{{Text: "ab\nc", Scale: 1, Color: [4]float32{1, 1, 1, 1}}}, 800, 600, nil)
	assert.Len(t, verts, 3*6)

	w, h := atlas.MeasureText("ab\nc", 1)
	assert.Greater(t, w, float32(0))
	assert.Greater(t, h, float32(0))

	assert.Empty(t, atlas.BuildVertices([]TextItem{{Text: "x"}}, 0, 0, nil))
}

func TestGlyphAtlasBadFont(t *testing.T) {
	_, err := NewGlyphAtlas([]byte("not a font"), 12)
	assert.Error(t, err)
}
