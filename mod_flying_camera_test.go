package lightwave

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestFlyingCameraInput(t *testing.T) {
	in := &Input{}
	fly := &FlyingCamera{}

	in.setKey(KeyW, true)
	in.setKey(KeyA, true)
	in.setKey(KeySpace, true)
	FlyingCameraInputSystem(in, fly)
	assert.Equal(t, mgl32.Vec3{-1, 1, 1}, fly.Move)
	assert.Equal(t, mgl32.Vec2{}, fly.Look)

	in.setKey(KeyTab, true)
	in.MouseCaptured = false
	FlyingCameraInputSystem(in, fly)
	assert.True(t, in.MouseCaptured)
}

func TestFlyingCameraMovesAlongView(t *testing.T) {
	cam := NewMainCamera(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1})
	fly := &FlyingCamera{Speed: 2, Move: mgl32.Vec3{0, 0, 1}}

	fly.apply(cam, 0.5)
	assert.InDelta(t, -1, cam.Position().Z(), 1e-5)
	assert.InDelta(t, 0, cam.Position().X(), 1e-5)

	fly.Move = mgl32.Vec3{1, 0, 0}
	fly.apply(cam, 0.5)
	assert.InDelta(t, 1, cam.Position().X(), 1e-5)

	before := cam.Position()
	fly.apply(cam, 0)
	assert.Equal(t, before, cam.Position())
}

func TestFlyingCameraLookRespectsPitchLimit(t *testing.T) {
	cam := NewMainCamera(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1})
	limit := mgl32.DegToRad(45)
	fly := &FlyingCamera{Sensitivity: 1, MinPitch: -limit, MaxPitch: limit, Look: mgl32.Vec2{0, -1000}}

	fly.apply(cam, 0.016)
	dir := cam.Direction()
	assert.InDelta(t, float32(0.7071), dir.Y(), 1e-3)
	assert.InDelta(t, 1, dir.Len(), 1e-5)
}
