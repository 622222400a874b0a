package shaders

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSources(t *testing.T) {
	assert.Equal(t, []string{"fullscreen", "geometry", "shadow", "text"}, Names())

	geo, ok := Source("geometry")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(geo, CommonWGSL))
	assert.Contains(t, geo, "fn vs_main")

	text, ok := Source("text")
	require.True(t, ok)
	assert.NotContains(t, text, "struct PassData", "text binds only its atlas")

	_, ok = Source("missing")
	assert.False(t, ok)
}
