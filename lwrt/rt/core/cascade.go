package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const MaxCascades = 4

// cascadeSplits returns the fractional depth splits of the view frustum.
func cascadeSplits(far float32) [MaxCascades + 1]float32 {
	r := float32(1)
	if far > 0 {
		r = min(225, far*0.6) / far
	}
	return [MaxCascades + 1]float32{0, 0.33 * r, r, 0.6, 1}
}

// MakeCascadeCameraViews fits one orthographic shadow camera per depth slice
// of the view frustum described by viewPoints (see BuildFrustumPoints).
// The last emitted cascade always reaches the far plane.
// Returns the number of cameras written to out.
func MakeCascadeCameraViews(lightDir, viewerPos mgl32.Vec3, viewPoints [6]mgl32.Vec3, out []Camera, cascadeCount int, sceneMin, sceneMax mgl32.Vec3) int {
	n := min(cascadeCount, MaxCascades, len(out))
	if n <= 0 {
		return 0
	}

	corners := FrustumCorners(viewPoints)
	farCenter := corners[4].Add(corners[7]).Mul(0.5)
	splits := cascadeSplits(farCenter.Sub(viewerPos).Len())
	splits[n] = 1

	light := Camera{direction: normalizeOr(lightDir, mgl32.Vec3{0, -1, 0}), up: mgl32.Vec3{0, 1, 0}}
	fwd, right, up := light.Basis()
	toLight := func(p mgl32.Vec3) mgl32.Vec3 {
		d := p.Sub(viewerPos)
		return mgl32.Vec3{right.Dot(d), up.Dot(d), fwd.Dot(d)}
	}

	sceneNear := float32(math.MaxFloat32)
	for i := 0; i < 8; i++ {
		c := mgl32.Vec3{sceneMin.X(), sceneMin.Y(), sceneMin.Z()}
		if i&1 != 0 {
			c[0] = sceneMax.X()
		}
		if i&2 != 0 {
			c[1] = sceneMax.Y()
		}
		if i&4 != 0 {
			c[2] = sceneMax.Z()
		}
		sceneNear = min(sceneNear, toLight(c).Z())
	}

	for i := 0; i < n; i++ {
		lo := mgl32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
		hi := mgl32.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
		for k := 0; k < 4; k++ {
			edge := corners[k+4].Sub(corners[k])
			for _, t := range [2]float32{splits[i], splits[i+1]} {
				p := toLight(corners[k].Add(edge.Mul(t)))
				for a := 0; a < 3; a++ {
					lo[a] = min(lo[a], p[a])
					hi[a] = max(hi[a], p[a])
				}
			}
		}
		lo[2] = min(lo[2], sceneNear)

		halfW := (hi.X() - lo.X()) * 0.5
		halfH := (hi.Y() - lo.Y()) * 0.5
		cx := lo.X() + halfW
		cy := lo.Y() + halfH
		pos := viewerPos.Add(right.Mul(cx)).Add(up.Mul(cy)).Add(fwd.Mul(lo.Z()))

		out[i] = NewOrthoCamera(pos, fwd, up, Ortho{
			Left:   -halfW,
			Right:  halfW,
			Bottom: -halfH,
			Top:    halfH,
			Near:   0,
			Far:    hi.Z() - lo.Z(),
		}, CameraShadowCaster)
	}
	return n
}
