package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCascadeSplits(t *testing.T) {
	s := cascadeSplits(1000)
	assert.InDelta(t, 0.225, s[2], 1e-6)
	assert.InDelta(t, 0.33*0.225, s[1], 1e-6)
	assert.Equal(t, float32(0.6), s[3])
	assert.Equal(t, float32(1), s[4])

	// short view distances are capped by the 60% split
	s = cascadeSplits(100)
	assert.InDelta(t, 0.6, s[2], 1e-6)
}

func TestMakeCascadeCameraViews(t *testing.T) {
	view := NewPerspectiveCamera(
		mgl32.Vec3{0, 2, 0},
		mgl32.Vec3{0, 0, -1},
		mgl32.Vec3{0, 1, 0},
		Perspective{FOV: mgl32.DegToRad(60), Aspect: 1.5, Near: 0.1, Far: 500},
		0,
	)
	pts := view.BuildFrustumPoints()
	lightDir := mgl32.Vec3{0.3, -1, 0.2}
	sceneMin := mgl32.Vec3{-50, -1, -600}
	sceneMax := mgl32.Vec3{50, 40, 10}

	var out [MaxCascades]Camera
	n := MakeCascadeCameraViews(lightDir, view.Position(), pts, out[:], 6, sceneMin, sceneMax)
	require.Equal(t, MaxCascades, n, "requests are capped at MaxCascades")

	corners := FrustumCorners(pts)
	splits := cascadeSplits(500)
	for i := 0; i < n; i++ {
		c := out[i]
		assert.True(t, c.IsOrthoCamera())
		assert.True(t, c.IsShadowCaster())
		assert.InDelta(t, 0, c.Direction().Sub(lightDir.Normalize()).Len(), 1e-5)

		for k := 0; k < 4; k++ {
			edge := corners[k+4].Sub(corners[k])
			for _, s := range []float32{splits[i], splits[i+1]} {
				p := corners[k].Add(edge.Mul(s))
				assert.True(t, c.SphereInFrustum(p, 0.05), "cascade %d misses slice corner %v", i, p)
			}
		}
		// the scene corner closest to the light is not clipped by the near plane
		near := c.Frustum()[PlaneNear]
		casterCorner := mgl32.Vec3{-50, 40, -600}
		assert.GreaterOrEqual(t, near.Vec3().Dot(casterCorner)+near.W(), float32(-1e-2))
	}
}

func TestMakeCascadeCameraViewsLimits(t *testing.T) {
	view := NewPerspectiveCamera(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0},
		Perspective{FOV: 1, Aspect: 1, Near: 0.1, Far: 100}, 0)
	pts := view.BuildFrustumPoints()

	out := make([]Camera, 2)
	assert.Equal(t, 2, MakeCascadeCameraViews(mgl32.Vec3{0, -1, 0}, mgl32.Vec3{}, pts, out, 4, mgl32.Vec3{}, mgl32.Vec3{}))
	assert.Equal(t, 0, MakeCascadeCameraViews(mgl32.Vec3{0, -1, 0}, mgl32.Vec3{}, pts, out, 0, mgl32.Vec3{}, mgl32.Vec3{}))

	// a single cascade covers the whole view distance
	assert.Equal(t, 1, MakeCascadeCameraViews(mgl32.Vec3{0, -1, 0}, mgl32.Vec3{}, pts, out, 1, mgl32.Vec3{}, mgl32.Vec3{}))
	farCorners := FrustumCorners(pts)
	for _, p := range farCorners[4:] {
		assert.True(t, out[0].SphereInFrustum(p, 0.05))
	}
}
