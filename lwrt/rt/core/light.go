package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type LightType uint32

const (
	LightAmbient LightType = iota
	LightDirectional
	LightPoint
	LightSpot
)

func (t LightType) String() string {
	switch t {
	case LightAmbient:
		return "ambient"
	case LightDirectional:
		return "directional"
	case LightPoint:
		return "point"
	case LightSpot:
		return "spot"
	}
	return "unknown"
}

// Light is the GPU representation of a light.
type Light struct {
	Position  [4]float32 // xyz, unused
	Direction [4]float32 // xyz, unused
	Color     [4]float32 // rgb, intensity
	Params    [4]float32 // range, cone_angle_cos, type, first shadow slot (-1 when none)
}

func NewAmbientLight(color mgl32.Vec3, intensity float32) Light {
	return Light{
		Color:  [4]float32{color.X(), color.Y(), color.Z(), intensity},
		Params: [4]float32{0, 0, float32(LightAmbient), -1},
	}
}

func NewDirectionalLight(dir, color mgl32.Vec3, intensity float32) Light {
	d := normalizeOr(dir, mgl32.Vec3{0, -1, 0})
	return Light{
		Direction: [4]float32{d.X(), d.Y(), d.Z(), 0},
		Color:     [4]float32{color.X(), color.Y(), color.Z(), intensity},
		Params:    [4]float32{0, 0, float32(LightDirectional), -1},
	}
}

func NewPointLight(pos, color mgl32.Vec3, intensity, radius float32) Light {
	return Light{
		Position: [4]float32{pos.X(), pos.Y(), pos.Z(), 1},
		Color:    [4]float32{color.X(), color.Y(), color.Z(), intensity},
		Params:   [4]float32{radius, 0, float32(LightPoint), -1},
	}
}

// NewSpotLight takes the cone half angle in radians.
func NewSpotLight(pos, dir, color mgl32.Vec3, intensity, radius, theta float32) Light {
	d := normalizeOr(dir, mgl32.Vec3{0, -1, 0})
	return Light{
		Position:  [4]float32{pos.X(), pos.Y(), pos.Z(), 1},
		Direction: [4]float32{d.X(), d.Y(), d.Z(), 0},
		Color:     [4]float32{color.X(), color.Y(), color.Z(), intensity},
		Params:    [4]float32{radius, float32(math.Cos(float64(theta))), float32(LightSpot), -1},
	}
}

func (l *Light) Type() LightType { return LightType(l.Params[2]) }

func (l *Light) Pos() mgl32.Vec3 { return mgl32.Vec3{l.Position[0], l.Position[1], l.Position[2]} }

func (l *Light) Dir() mgl32.Vec3 { return mgl32.Vec3{l.Direction[0], l.Direction[1], l.Direction[2]} }

func (l *Light) Range() float32 { return l.Params[0] }

// ConeAngle returns the spot half angle in radians.
func (l *Light) ConeAngle() float32 {
	return float32(math.Acos(float64(mgl32.Clamp(l.Params[1], -1, 1))))
}

func (l *Light) SetShadowSlot(slot int) { l.Params[3] = float32(slot) }

func (l *Light) ShadowSlot() int { return int(l.Params[3]) }
