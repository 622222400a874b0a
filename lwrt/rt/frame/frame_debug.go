package frame

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lightwave/lwrt/rt/core"
	"github.com/gekko3d/lightwave/lwrt/rt/geometry"
)

var (
	ErrNoDebugGeometry = errors.New("frame: no debug geometry pool")
	ErrDebugPrimitive  = errors.New("frame: debug primitive unavailable")
)

// SetDebugGeometry attaches the pool the WriteDebug helpers draw from.
func (f *RenderFrame) SetDebugGeometry(pool *geometry.BlockGeometry, q geometry.UploadQueue, material RenderMaterial) {
	f.debug = pool
	f.debugQueue = q
	f.debugMaterial = material
}

func (f *RenderFrame) writeDebug(shape geometry.Shape, transform mgl32.Mat4, color mgl32.Vec4, passBits uint32) (int, error) {
	if f.debug == nil {
		return NotSubmitted, ErrNoDebugGeometry
	}
	id := f.debug.Primitive(shape, f.debugQueue)
	if id == geometry.NullID {
		return NotSubmitted, fmt.Errorf("%s: %w", shape, ErrDebugPrimitive)
	}
	flags := ModelFlags(0)
	if color.W() < 1 {
		flags = ModelTransparent
	}
	model := GeometryModel{
		Block:    PooledBlock(f.debug.NameHash(), id, 0, 0),
		Material: f.debugMaterial,
		Flags:    flags,
	}
	lo, hi := debugBounds(shape)
	min, max := core.TransformAABB(transform, lo, hi)
	return f.PushModelAABB(model, NewModelData(transform, color), passBits, min, max), nil
}

func debugBounds(shape geometry.Shape) (mgl32.Vec3, mgl32.Vec3) {
	switch shape {
	case geometry.ShapeCone:
		return mgl32.Vec3{-1, -1, 0}, mgl32.Vec3{1, 1, 1}
	case geometry.ShapeCapsule:
		return mgl32.Vec3{-0.5, -1, -0.5}, mgl32.Vec3{0.5, 1, 0.5}
	}
	return mgl32.Vec3{-0.5, -0.5, -0.5}, mgl32.Vec3{0.5, 0.5, 0.5}
}

// WriteDebugLine draws a box of the given thickness spanning a and b.
func (f *RenderFrame) WriteDebugLine(a, b mgl32.Vec3, color mgl32.Vec4, thickness float32, passBits uint32) (int, error) {
	return f.writeDebug(geometry.ShapeBox, core.LineTransform(a, b, thickness), color, passBits)
}

func (f *RenderFrame) WriteDebugPoint(pos mgl32.Vec3, color mgl32.Vec4, radius float32, passBits uint32) (int, error) {
	m := mgl32.Translate3D(pos.X(), pos.Y(), pos.Z()).Mul4(mgl32.Scale3D(radius*2, radius*2, radius*2))
	return f.writeDebug(geometry.ShapeSphere, m, color, passBits)
}

// WriteDebugCone draws a cone with its apex at origin opening along dir by theta radians.
func (f *RenderFrame) WriteDebugCone(origin, dir mgl32.Vec3, length, theta float32, color mgl32.Vec4, passBits uint32) (int, error) {
	r := length * float32(math.Tan(float64(theta)))
	rot := mgl32.QuatBetweenVectors(mgl32.Vec3{0, 0, 1}, dir.Normalize()).Mat4()
	m := mgl32.Translate3D(origin.X(), origin.Y(), origin.Z()).Mul4(rot).Mul4(mgl32.Scale3D(r, r, length))
	return f.writeDebug(geometry.ShapeCone, m, color, passBits)
}

func (f *RenderFrame) WriteDebugCube(pos, size mgl32.Vec3, color mgl32.Vec4, passBits uint32) (int, error) {
	m := mgl32.Translate3D(pos.X(), pos.Y(), pos.Z()).Mul4(mgl32.Scale3D(size.X(), size.Y(), size.Z()))
	return f.writeDebug(geometry.ShapeBox, m, color, passBits)
}

// WriteDebugAABB outlines a box with 12 lines. Returns the number of lines submitted.
func (f *RenderFrame) WriteDebugAABB(min, max mgl32.Vec3, color mgl32.Vec4, thickness float32, passBits uint32) (int, error) {
	corner := func(i int) mgl32.Vec3 {
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
		return c
	}
	n := 0
	for i := 0; i < 8; i++ {
		for _, bit := range [3]int{1, 2, 4} {
			if i&bit != 0 {
				continue
			}
			idx, err := f.WriteDebugLine(corner(i), corner(i|bit), color, thickness, passBits)
			if err != nil {
				return n, err
			}
			if idx != NotSubmitted {
				n++
			}
		}
	}
	return n, nil
}

// WriteDebugAxis draws the x, y and z axes of transform in red, green and blue.
func (f *RenderFrame) WriteDebugAxis(transform mgl32.Mat4, length, thickness float32, passBits uint32) (int, error) {
	origin := transform.Col(3).Vec3()
	n := 0
	for i := 0; i < 3; i++ {
		axis := transform.Col(i).Vec3()
		color := mgl32.Vec4{0, 0, 0, 1}
		color[i] = 1
		idx, err := f.WriteDebugLine(origin, origin.Add(axis.Normalize().Mul(length)), color, thickness, passBits)
		if err != nil {
			return n, err
		}
		if idx != NotSubmitted {
			n++
		}
	}
	return n, nil
}

// WriteDebugGeometry draws any debug primitive with an arbitrary transform.
func (f *RenderFrame) WriteDebugGeometry(shape geometry.Shape, transform mgl32.Mat4, color mgl32.Vec4, passBits uint32) (int, error) {
	return f.writeDebug(shape, transform, color, passBits)
}
