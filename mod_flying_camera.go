package lightwave

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// FlyingCameraModule steers the MainCamera with WASD, Space/Control and
// mouse-look while the cursor is captured. Tab toggles capture.
type FlyingCameraModule struct {
	Speed       float32
	Sensitivity float32
}

type FlyingCamera struct {
	Speed       float32
	Sensitivity float32
	MinPitch    float32
	MaxPitch    float32
	Move        mgl32.Vec3
	Look        mgl32.Vec2
}

func (m FlyingCameraModule) Install(app *App, cmd *Commands) {
	ensureMainCamera(app)
	limit := float32(mgl32.DegToRad(89))
	cmd.AddResources(&FlyingCamera{
		Speed:       m.Speed,
		Sensitivity: m.Sensitivity,
		MinPitch:    -limit,
		MaxPitch:    limit,
	})
	app.UseSystem(
		System(FlyingCameraInputSystem).
			InStage(Update).
			RunAlways(),
	)
	app.UseSystem(
		System(FlyingCameraControlSystem).
			InStage(Update).
			RunAlways(),
	)
}

func FlyingCameraInputSystem(input *Input, fly *FlyingCamera) {
	if input.JustPressed[KeyTab] {
		input.MouseCaptured = !input.MouseCaptured
	}

	fly.Move = mgl32.Vec3{}
	axis := func(pos, neg Key) float32 {
		var v float32
		if input.Pressed[pos] {
			v++
		}
		if input.Pressed[neg] {
			v--
		}
		return v
	}
	fly.Move[0] = axis(KeyD, KeyA)
	fly.Move[1] = axis(KeySpace, KeyControl)
	fly.Move[2] = axis(KeyW, KeyS)

	if input.MouseCaptured {
		fly.Look = input.MouseDelta()
	} else {
		fly.Look = mgl32.Vec2{}
	}
}

func FlyingCameraControlSystem(t *Time, fly *FlyingCamera, cam *MainCamera) {
	fly.apply(cam, t.DtSeconds())
}

func (fly *FlyingCamera) apply(cam *MainCamera, dt float32) {
	if dt <= 0 {
		return
	}
	if fly.Sensitivity == 0 {
		fly.Sensitivity = 0.1
	}
	if fly.Speed == 0 {
		fly.Speed = 5.0
	}

	c := &cam.Camera
	if fly.Look.Len() > 0 {
		sens := mgl32.DegToRad(fly.Sensitivity)
		c.ProcessDirectionInputFirst(fly.Look, sens, sens, fly.MinPitch, fly.MaxPitch)
	}

	fwd, right, _ := c.Basis()
	move := right.Mul(fly.Move.X()).
		Add(c.Up().Mul(fly.Move.Y())).
		Add(fwd.Mul(fly.Move.Z()))
	if l := move.Len(); l > 0 && !math.IsNaN(float64(l)) {
		c.SetPosition(c.Position().Add(move.Mul(fly.Speed * dt / l)))
	}
}
