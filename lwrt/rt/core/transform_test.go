package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestTransformInverse(t *testing.T) {
	tr := NewTransform()
	tr.Position = mgl32.Vec3{1, 2, 3}
	tr.Rotation = mgl32.QuatRotate(0.7, mgl32.Vec3{0, 1, 0})
	tr.Scale = mgl32.Vec3{2, 2, 2}

	id := tr.ObjectToWorld().Mul4(tr.WorldToObject())
	assert.True(t, id.ApproxEqualThreshold(mgl32.Ident4(), 1e-5))
}

func TestTransformAABB(t *testing.T) {
	m := mgl32.Translate3D(10, 0, 0).Mul4(mgl32.Scale3D(2, 1, 1))
	lo, hi := TransformAABB(m, mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1})
	assert.Equal(t, mgl32.Vec3{8, -1, -1}, lo)
	assert.Equal(t, mgl32.Vec3{12, 1, 1}, hi)
}

func TestLineTransform(t *testing.T) {
	a := mgl32.Vec3{0, 0, 0}
	b := mgl32.Vec3{0, 4, 0}
	m := LineTransform(a, b, 0.1)

	end := m.Mul4x1(mgl32.Vec4{0, 0, 0.5, 1}).Vec3()
	start := m.Mul4x1(mgl32.Vec4{0, 0, -0.5, 1}).Vec3()
	assert.InDelta(t, 0, end.Sub(b).Len(), 1e-5)
	assert.InDelta(t, 0, start.Sub(a).Len(), 1e-5)
}

func TestNameHash(t *testing.T) {
	assert.Equal(t, NameHash("Geometry"), NameHash("Geometry"))
	assert.NotEqual(t, NameHash("Geometry"), NameHash("Shadow"))
	// FNV-1a offset basis for the empty string
	assert.Equal(t, uint32(2166136261), NameHash(""))
}
