package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func NewTransform() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

func (t Transform) ObjectToWorld() mgl32.Mat4 {
	// M = T * R * S
	translate := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	scale := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())
	return translate.Mul4(t.Rotation.Mat4()).Mul4(scale)
}

func (t Transform) WorldToObject() mgl32.Mat4 {
	invScale := mgl32.Scale3D(1.0/t.Scale.X(), 1.0/t.Scale.Y(), 1.0/t.Scale.Z())
	invRotate := t.Rotation.Conjugate().Mat4()
	invTranslate := mgl32.Translate3D(-t.Position.X(), -t.Position.Y(), -t.Position.Z())
	return invScale.Mul4(invRotate).Mul4(invTranslate)
}

// TransformAABB returns the world bounds of a local box by transforming its 8 corners.
func TransformAABB(m mgl32.Mat4, min, max mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
	lo := mgl32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	hi := mgl32.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for i := 0; i < 8; i++ {
		c := min
		if i&1 != 0 {
			c[0] = max[0]
		}
		if i&2 != 0 {
			c[1] = max[1]
		}
		if i&4 != 0 {
			c[2] = max[2]
		}
		w := m.Mul4x1(c.Vec4(1)).Vec3()
		for a := 0; a < 3; a++ {
			lo[a] = float32(math.Min(float64(lo[a]), float64(w[a])))
			hi[a] = float32(math.Max(float64(hi[a]), float64(w[a])))
		}
	}
	return lo, hi
}

// LineTransform maps a unit box centered on the origin onto the segment a-b with the given thickness.
func LineTransform(a, b mgl32.Vec3, thickness float32) mgl32.Mat4 {
	dir := b.Sub(a)
	length := dir.Len()
	mid := a.Add(dir.Mul(0.5))
	rot := mgl32.QuatIdent()
	if length > mgl32.Epsilon {
		rot = mgl32.QuatBetweenVectors(mgl32.Vec3{0, 0, 1}, dir.Mul(1/length))
	}
	return mgl32.Translate3D(mid.X(), mid.Y(), mid.Z()).
		Mul4(rot.Mat4()).
		Mul4(mgl32.Scale3D(thickness, thickness, length))
}
