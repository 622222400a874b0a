package core

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closeEnough(a, b, eps float32) bool {
	d := a - b
	return d < eps && d > -eps
}

func testPerspectiveCamera() Camera {
	return NewPerspectiveCamera(
		mgl32.Vec3{0, 0, 5},
		mgl32.Vec3{0, 0, -1},
		mgl32.Vec3{0, 1, 0},
		Perspective{FOV: mgl32.DegToRad(90), Aspect: 1, Near: 0.1, Far: 100},
		0,
	)
}

func TestSphereInFrustumScenario(t *testing.T) {
	cam := testPerspectiveCamera()
	cam.BuildFrustum()

	assert.True(t, cam.SphereInFrustum(mgl32.Vec3{0, 0, 0}, 1))
	assert.False(t, cam.SphereInFrustum(mgl32.Vec3{0, 0, 200}, 1), "beyond far plane")
	assert.False(t, cam.SphereInFrustum(mgl32.Vec3{0, 0, -200}, 1), "beyond far plane")
	assert.True(t, cam.SphereInFrustum(mgl32.Vec3{0, 0, -94.5}, 1), "straddles far plane")
	assert.False(t, cam.SphereInFrustum(mgl32.Vec3{50, 0, 0}, 1), "right of the frustum")
}

// planeFrom derives an inward facing plane from three corners.
func planeFrom(a, b, c, inside mgl32.Vec3) mgl32.Vec4 {
	n := b.Sub(a).Cross(c.Sub(a)).Normalize()
	d := -n.Dot(a)
	if n.Dot(inside)+d < 0 {
		n = n.Mul(-1)
		d = -d
	}
	return n.Vec4(d)
}

func TestFrustumRoundTrip(t *testing.T) {
	cams := map[string]Camera{
		"perspective": testPerspectiveCamera(),
		"tilted perspective": NewPerspectiveCamera(
			mgl32.Vec3{3, -2, 7},
			mgl32.Vec3{0.4, -0.3, -1},
			mgl32.Vec3{0, 1, 0},
			Perspective{FOV: mgl32.DegToRad(60), Aspect: 16.0 / 9.0, Near: 0.5, Far: 250},
			0,
		),
		"ortho": NewOrthoCamera(
			mgl32.Vec3{1, 10, 0},
			mgl32.Vec3{0, -1, 0.1},
			mgl32.Vec3{0, 1, 0},
			Ortho{Left: -4, Right: 6, Bottom: -3, Top: 5, Near: 1, Far: 40},
			0,
		),
		"point": NewPointCamera(mgl32.Vec3{-2, 4, 1}, 12, 0),
	}

	for name, cam := range cams {
		t.Run(name, func(t *testing.T) {
			cam.BuildFrustum()
			c := FrustumCorners(cam.BuildFrustumPoints())
			var inside mgl32.Vec3
			for _, p := range c {
				inside = inside.Add(p)
			}
			inside = inside.Mul(1.0 / 8.0)

			derived := [6]mgl32.Vec4{
				PlaneNear:   planeFrom(c[0], c[1], c[2], inside),
				PlaneFar:    planeFrom(c[4], c[5], c[6], inside),
				PlaneRight:  planeFrom(c[1], c[5], c[3], inside),
				PlaneLeft:   planeFrom(c[0], c[4], c[2], inside),
				PlaneBottom: planeFrom(c[2], c[6], c[3], inside),
				PlaneTop:    planeFrom(c[0], c[4], c[1], inside),
			}
			planes := cam.Frustum()
			for i := range planes {
				for k := 0; k < 4; k++ {
					eps := float32(1e-3)
					if k == 3 {
						eps = 1e-2
					}
					if !closeEnough(planes[i][k], derived[i][k], eps) {
						t.Errorf("plane %d component %d: got %f, derived %f", i, k, planes[i][k], derived[i][k])
					}
				}
			}
		})
	}
}

func TestProjectionAccessors(t *testing.T) {
	cam := testPerspectiveCamera()
	p, ok := cam.Perspective()
	require.True(t, ok)
	assert.Equal(t, float32(100), p.Far)
	_, ok = cam.Ortho()
	assert.False(t, ok)
	assert.False(t, cam.IsOrthoCamera())
	assert.False(t, cam.IsPointCamera())

	pc := NewPointCamera(mgl32.Vec3{}, 5, CameraShadowCaster)
	assert.True(t, pc.IsPointCamera())
	assert.True(t, pc.IsShadowCaster())
	_, ok = pc.Perspective()
	assert.False(t, ok)
	assert.False(t, pc.SetAspect(2), "point cameras have no aspect")

	oc := NewOrthoCamera(mgl32.Vec3{}, mgl32.Vec3{0, -1, 0}, mgl32.Vec3{0, 1, 0}, Ortho{Left: -1, Right: 1, Bottom: -1, Top: 1, Near: 0, Far: 10}, CameraOrthoSource)
	assert.True(t, oc.IsOrthoCamera())
	assert.Equal(t, CameraOrthoSource, oc.Flags())
}

func TestBasisFallbackWhenParallel(t *testing.T) {
	cam := NewPerspectiveCamera(mgl32.Vec3{}, mgl32.Vec3{0, -1, 0}, mgl32.Vec3{0, 1, 0},
		Perspective{FOV: 1, Aspect: 1, Near: 0.1, Far: 10}, 0)
	fwd, right, up := cam.Basis()
	assert.InDelta(t, 1, right.Len(), 1e-5)
	assert.InDelta(t, 0, fwd.Dot(right), 1e-5)
	assert.InDelta(t, 0, fwd.Dot(up), 1e-5)
	assert.True(t, cam.SphereInFrustum(mgl32.Vec3{0, -5, 0}, 0.5))
}

func TestProjectUnProject(t *testing.T) {
	cam := testPerspectiveCamera()
	ndc, ok := cam.Project(mgl32.Vec3{0, 0, -10})
	require.True(t, ok)
	assert.InDelta(t, 0, ndc.X(), 1e-5)
	assert.InDelta(t, 0, ndc.Y(), 1e-5)

	_, ok = cam.Project(mgl32.Vec3{0, 0, 10})
	assert.False(t, ok, "behind the camera")

	origin, dir := cam.UnProject(mgl32.Vec2{400, 300}, mgl32.Vec2{800, 600})
	assert.InDelta(t, 0, origin.X(), 1e-3)
	assert.InDelta(t, -1, dir.Z(), 1e-3)
}

func TestMouseLook(t *testing.T) {
	cam := testPerspectiveCamera()
	cam.ProcessDirectionInputFirst(mgl32.Vec2{100, 0}, 0.01, 0.01, -1.5, 1.5)
	dir := cam.Direction()
	assert.Greater(t, dir.X(), float32(0), "moving the mouse right turns right")
	assert.InDelta(t, 0, dir.Y(), 1e-5)

	cam.ProcessDirectionInputFirst(mgl32.Vec2{0, 1000}, 0.01, 0.01, -0.5, 0.5)
	assert.InDelta(t, -0.5, asinf(cam.Direction().Y()), 1e-4, "pitch clamped")

	center := mgl32.Vec3{1, 2, 3}
	cam.ProcessDirectionInputThird(center, 10, mgl32.Vec2{5, 5}, 0.01, 0.01, -1, 1)
	assert.InDelta(t, 10, cam.Position().Sub(center).Len(), 1e-4)
}

func asinf(v float32) float32 {
	return float32(math.Asin(float64(v)))
}
