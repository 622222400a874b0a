package lightwave

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/lightwave/lwrt/rt/core"
)

func TestSceneDrawables(t *testing.T) {
	assets := NewAssetServer()
	scene := NewScene()
	box := assets.CreateBoxMesh()

	_, err := scene.AddDrawable(assets, Drawable{Mesh: "nope"})
	assert.ErrorIs(t, err, ErrUnknownAsset)
	_, err = scene.AddDrawable(assets, Drawable{Mesh: box, Materials: []AssetId{"nope"}})
	assert.ErrorIs(t, err, ErrUnknownAsset)

	a, err := scene.AddDrawable(assets, Drawable{Mesh: box})
	require.NoError(t, err)
	b, err := scene.AddDrawable(assets, Drawable{Mesh: box, Hidden: true})
	require.NoError(t, err)
	assert.Equal(t, 2, scene.DrawableCount())

	d := scene.Drawable(a)
	require.NotNil(t, d)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, d.Transform.Scale)
	assert.Equal(t, mgl32.Vec4{1, 1, 1, 1}, d.Color)

	var visible []DrawableId
	scene.Each(func(id DrawableId, _ *Drawable) { visible = append(visible, id) })
	assert.Equal(t, []DrawableId{a}, visible)

	assert.True(t, scene.RemoveDrawable(a))
	assert.False(t, scene.RemoveDrawable(a))
	assert.Nil(t, scene.Drawable(a))
	assert.Nil(t, scene.Drawable(42))

	c, err := scene.AddDrawable(assets, Drawable{Mesh: box})
	require.NoError(t, err)
	assert.Equal(t, a, c, "freed ids are reused")
	assert.NotEqual(t, b, c)
}

func TestSceneModuleDefaults(t *testing.T) {
	app := NewAppBuilder().UseModule(SceneModule{DefaultPasses: []string{"geometry"}}).Build()
	scene, ok := Resource[Scene](app)
	require.True(t, ok)
	assert.Equal(t, []string{"geometry"}, scene.DefaultPasses)
	_, ok = Resource[AssetServer](app)
	assert.True(t, ok)
	cam, ok := Resource[MainCamera](app)
	require.True(t, ok)
	assert.InDelta(t, 6, cam.Position().Z(), 1e-6)

	idx := scene.AddLight(core.NewAmbientLight(mgl32.Vec3{1, 1, 1}, 0.2), false)
	assert.Equal(t, 0, idx)
	assert.Len(t, scene.Lights, 1)
}
