package core

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestFrustumCulling(t *testing.T) {
	// Camera at origin looking down -Z, 90 deg FOV, aspect 1, near 1, far 100.
	cam := NewPerspectiveCamera(
		mgl32.Vec3{0, 0, 0},
		mgl32.Vec3{0, 0, -1},
		mgl32.Vec3{0, 1, 0},
		Perspective{FOV: mgl32.DegToRad(90), Aspect: 1, Near: 1, Far: 100},
		0,
	)

	tests := []struct {
		name     string
		aabbMin  mgl32.Vec3
		aabbMax  mgl32.Vec3
		expected bool
	}{
		{"Inside (center)", mgl32.Vec3{-1, -1, -10}, mgl32.Vec3{1, 1, -5}, true},
		{"Outside (Left)", mgl32.Vec3{-20, -1, -10}, mgl32.Vec3{-15, 1, -5}, false},
		{"Outside (Right)", mgl32.Vec3{15, -1, -10}, mgl32.Vec3{20, 1, -5}, false},
		{"Outside (Behind/Near)", mgl32.Vec3{-1, -1, 2}, mgl32.Vec3{1, 1, 5}, false},
		{"Outside (Far)", mgl32.Vec3{-1, -1, -200}, mgl32.Vec3{1, 1, -150}, false},
		{"Intersecting (Left Plane)", mgl32.Vec3{-12, -1, -10}, mgl32.Vec3{-8, 1, -5}, true},
		{"Outside (Above)", mgl32.Vec3{-1, 30, -20}, mgl32.Vec3{1, 40, -10}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cam.AABBInFrustum(tt.aabbMin, tt.aabbMax); got != tt.expected {
				t.Errorf("AABBInFrustum() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestConeCulling(t *testing.T) {
	cam := NewPerspectiveCamera(
		mgl32.Vec3{0, 0, 0},
		mgl32.Vec3{0, 0, -1},
		mgl32.Vec3{0, 1, 0},
		Perspective{FOV: mgl32.DegToRad(90), Aspect: 1, Near: 1, Far: 100},
		0,
	)

	tests := []struct {
		name     string
		origin   mgl32.Vec3
		dir      mgl32.Vec3
		length   float32
		theta    float32
		expected bool
	}{
		{"Apex inside", mgl32.Vec3{0, 0, -10}, mgl32.Vec3{0, 0, -1}, 5, math.Pi / 8, true},
		{"Behind pointing away", mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, 1}, 5, math.Pi / 8, false},
		{"Behind pointing in", mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, -1}, 20, math.Pi / 8, true},
		{"Wide base reaches in", mgl32.Vec3{30, 0, -10}, mgl32.Vec3{1, 0, 0}, 10, 1.4, true},
		{"Far left", mgl32.Vec3{-60, 0, -10}, mgl32.Vec3{-1, 0, 0}, 10, math.Pi / 8, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cam.ConeInFrustum(tt.origin, tt.dir, tt.length, tt.theta); got != tt.expected {
				t.Errorf("ConeInFrustum() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestZeroFrustumAcceptsEverything(t *testing.T) {
	var cam Camera
	// zero planes: every distance is 0 which is never below -radius
	if !cam.SphereInFrustum(mgl32.Vec3{1000, 0, 0}, 1) {
		t.Errorf("zero frustum should not reject")
	}
}
