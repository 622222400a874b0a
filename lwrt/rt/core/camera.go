package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type CameraFlags uint32

const (
	CameraPointSource CameraFlags = 1 << iota
	CameraOrthoSource
	CameraShadowCaster
	CameraReflection
)

const parallelEpsilon = 1e-5

// projection kind bits are derived from the active Projection, never stored.
const cameraKindMask = CameraPointSource | CameraOrthoSource

// Frustum plane order.
const (
	PlaneNear = iota
	PlaneFar
	PlaneRight
	PlaneLeft
	PlaneBottom
	PlaneTop
)

// Frustum point order. The far-bottom-right and near-bottom-right corners
// are TL + (BL-TL) + (TR-TL).
const (
	PointNearTopLeft = iota
	PointNearTopRight
	PointNearBottomLeft
	PointFarTopLeft
	PointFarTopRight
	PointFarBottomLeft
)

// Projection is one of Perspective, Ortho or Point.
type Projection interface {
	matrix() mgl32.Mat4
	planes(pos, fwd, right, up mgl32.Vec3) [6]mgl32.Vec4
	points(pos, fwd, right, up mgl32.Vec3) [6]mgl32.Vec3
	kind() CameraFlags
}

// Perspective FOV is the vertical field of view in radians.
type Perspective struct {
	FOV    float32
	Aspect float32
	Near   float32
	Far    float32
}

type Ortho struct {
	Left   float32
	Right  float32
	Near   float32
	Far    float32
	Top    float32
	Bottom float32
}

// Point is an omnidirectional source covering a cube of half-extent Radius.
type Point struct {
	Radius float32
}

type Camera struct {
	position  mgl32.Vec3
	direction mgl32.Vec3
	up        mgl32.Vec3
	proj      Projection
	flags     CameraFlags
	frustum   [6]mgl32.Vec4
}

func NewPerspectiveCamera(pos, dir, up mgl32.Vec3, p Perspective, flags CameraFlags) Camera {
	return newCamera(pos, dir, up, p, flags)
}

func NewOrthoCamera(pos, dir, up mgl32.Vec3, o Ortho, flags CameraFlags) Camera {
	return newCamera(pos, dir, up, o, flags)
}

func NewPointCamera(pos mgl32.Vec3, radius float32, flags CameraFlags) Camera {
	return newCamera(pos, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}, Point{Radius: radius}, flags)
}

func newCamera(pos, dir, up mgl32.Vec3, p Projection, flags CameraFlags) Camera {
	c := Camera{
		position:  pos,
		direction: normalizeOr(dir, mgl32.Vec3{0, 0, -1}),
		up:        normalizeOr(up, mgl32.Vec3{0, 1, 0}),
		proj:      p,
		flags:     flags &^ cameraKindMask,
	}
	c.BuildFrustum()
	return c
}

func (c *Camera) Position() mgl32.Vec3  { return c.position }
func (c *Camera) Direction() mgl32.Vec3 { return c.direction }
func (c *Camera) Up() mgl32.Vec3        { return c.up }

// Frustum returns the cached planes from the last BuildFrustum call.
func (c *Camera) Frustum() [6]mgl32.Vec4 { return c.frustum }

func (c *Camera) Flags() CameraFlags {
	if c.proj == nil {
		return c.flags
	}
	return c.flags | c.proj.kind()
}

func (c *Camera) SetFlags(flags CameraFlags) { c.flags = flags &^ cameraKindMask }

func (c *Camera) IsPointCamera() bool { return c.Flags()&CameraPointSource != 0 }
func (c *Camera) IsOrthoCamera() bool { return c.Flags()&CameraOrthoSource != 0 }
func (c *Camera) IsShadowCaster() bool {
	return c.flags&CameraShadowCaster != 0
}

func (c *Camera) Projection() Projection { return c.proj }

func (c *Camera) Perspective() (Perspective, bool) {
	p, ok := c.proj.(Perspective)
	return p, ok
}

func (c *Camera) Ortho() (Ortho, bool) {
	o, ok := c.proj.(Ortho)
	return o, ok
}

func (c *Camera) Point() (Point, bool) {
	p, ok := c.proj.(Point)
	return p, ok
}

// Mutators do not rebuild the frustum; call BuildFrustum afterwards.

func (c *Camera) SetPosition(pos mgl32.Vec3) { c.position = pos }

func (c *Camera) SetDirection(dir mgl32.Vec3) {
	c.direction = normalizeOr(dir, c.direction)
}

func (c *Camera) SetUp(up mgl32.Vec3) { c.up = normalizeOr(up, c.up) }

func (c *Camera) SetProjection(p Projection) { c.proj = p }

func (c *Camera) LookAt(target mgl32.Vec3) {
	c.SetDirection(target.Sub(c.position))
}

// SetAspect updates the aspect ratio of a perspective camera; other kinds ignore it.
func (c *Camera) SetAspect(aspect float32) bool {
	p, ok := c.proj.(Perspective)
	if !ok || aspect <= 0 {
		return false
	}
	p.Aspect = aspect
	c.proj = p
	return true
}

// Basis returns the orthonormal forward, right and up vectors.
// When direction is parallel to up a fallback axis is used.
func (c *Camera) Basis() (fwd, right, up mgl32.Vec3) {
	fwd = c.direction
	up = c.up
	if absf(fwd.Dot(up)) >= 1-parallelEpsilon {
		up = mgl32.Vec3{0, 1, 0}
		if absf(fwd.Y()) >= 1-parallelEpsilon {
			up = mgl32.Vec3{0, 0, 1}
		}
	}
	right = fwd.Cross(up).Normalize()
	up = right.Cross(fwd)
	return fwd, right, up
}

func (c *Camera) BuildFrustum() {
	if c.proj == nil {
		return
	}
	fwd, right, up := c.Basis()
	c.frustum = c.proj.planes(c.position, fwd, right, up)
}

func (c *Camera) BuildFrustumPoints() [6]mgl32.Vec3 {
	if c.proj == nil {
		return [6]mgl32.Vec3{}
	}
	fwd, right, up := c.Basis()
	return c.proj.points(c.position, fwd, right, up)
}

// FrustumCorners expands the 6 frustum points into near TL,TR,BL,BR then far TL,TR,BL,BR.
func FrustumCorners(pts [6]mgl32.Vec3) [8]mgl32.Vec3 {
	nbr := pts[PointNearBottomLeft].Add(pts[PointNearTopRight].Sub(pts[PointNearTopLeft]))
	fbr := pts[PointFarBottomLeft].Add(pts[PointFarTopRight].Sub(pts[PointFarTopLeft]))
	return [8]mgl32.Vec3{
		pts[PointNearTopLeft], pts[PointNearTopRight], pts[PointNearBottomLeft], nbr,
		pts[PointFarTopLeft], pts[PointFarTopRight], pts[PointFarBottomLeft], fbr,
	}
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	fwd, _, up := c.Basis()
	return mgl32.LookAtV(c.position, c.position.Add(fwd), up)
}

func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	if c.proj == nil {
		return mgl32.Ident4()
	}
	return c.proj.matrix()
}

func (c *Camera) ProjViewMatrix() mgl32.Mat4 {
	return c.ProjectionMatrix().Mul4(c.ViewMatrix())
}

// DirectionMatrix packs right, up, forward and position as columns.
func (c *Camera) DirectionMatrix() mgl32.Mat4 {
	fwd, right, up := c.Basis()
	return mgl32.Mat4FromCols(right.Vec4(0), up.Vec4(0), fwd.Vec4(0), c.position.Vec4(1))
}

// Project maps a world position into normalized device coordinates.
// ok is false for points behind the camera.
func (c *Camera) Project(world mgl32.Vec3) (mgl32.Vec3, bool) {
	clip := c.ProjViewMatrix().Mul4x1(world.Vec4(1))
	if clip.W() <= 0 {
		return mgl32.Vec3{}, false
	}
	return clip.Vec3().Mul(1 / clip.W()), true
}

// UnProject turns a pixel coordinate into a world space ray.
func (c *Camera) UnProject(screen, viewport mgl32.Vec2) (origin, dir mgl32.Vec3) {
	if viewport.X() <= 0 || viewport.Y() <= 0 {
		return c.position, c.direction
	}
	ndcX := 2*screen.X()/viewport.X() - 1
	ndcY := 1 - 2*screen.Y()/viewport.Y()
	inv := c.ProjViewMatrix().Inv()
	near := inv.Mul4x1(mgl32.Vec4{ndcX, ndcY, -1, 1})
	far := inv.Mul4x1(mgl32.Vec4{ndcX, ndcY, 1, 1})
	if near.W() == 0 || far.W() == 0 {
		return c.position, c.direction
	}
	n := near.Vec3().Mul(1 / near.W())
	f := far.Vec3().Mul(1 / far.W())
	return n, normalizeOr(f.Sub(n), c.direction)
}

// ProcessDirectionInputFirst applies mouse-look around the camera position.
// Pitch limits are in radians relative to the plane orthogonal to up.
func (c *Camera) ProcessDirectionInputFirst(delta mgl32.Vec2, hSens, vSens, minPitch, maxPitch float32) {
	c.direction = c.lookDirection(delta, hSens, vSens, minPitch, maxPitch)
}

// ProcessDirectionInputThird orbits the camera around center at distance.
func (c *Camera) ProcessDirectionInputThird(center mgl32.Vec3, distance float32, delta mgl32.Vec2, hSens, vSens, minPitch, maxPitch float32) {
	c.direction = c.lookDirection(delta, hSens, vSens, minPitch, maxPitch)
	c.position = center.Sub(c.direction.Mul(distance))
}

func (c *Camera) lookDirection(delta mgl32.Vec2, hSens, vSens, minPitch, maxPitch float32) mgl32.Vec3 {
	fwd, right, _ := c.Basis()
	worldUp := c.up
	horizontal := normalizeOr(worldUp.Cross(right), fwd)

	pitch := float32(math.Asin(float64(mgl32.Clamp(fwd.Dot(worldUp), -1, 1))))
	pitch = mgl32.Clamp(pitch-delta.Y()*vSens, minPitch, maxPitch)
	yaw := -delta.X() * hSens

	horizontal = mgl32.QuatRotate(yaw, worldUp).Rotate(horizontal)
	sp, cp := math.Sincos(float64(pitch))
	return horizontal.Mul(float32(cp)).Add(worldUp.Mul(float32(sp))).Normalize()
}

// SphereInFrustum is false for every query until BuildFrustum has run on a valid projection.
func (c *Camera) SphereInFrustum(pos mgl32.Vec3, radius float32) bool {
	return SphereInPlanes(&c.frustum, pos, radius)
}

func (c *Camera) AABBInFrustum(min, max mgl32.Vec3) bool {
	return AABBInPlanes(&c.frustum, min, max)
}

func (c *Camera) ConeInFrustum(origin, dir mgl32.Vec3, length, theta float32) bool {
	return ConeInPlanes(&c.frustum, origin, dir, length, theta)
}

// SphereInPlanes tests a sphere against 6 inward facing planes.
func SphereInPlanes(planes *[6]mgl32.Vec4, pos mgl32.Vec3, radius float32) bool {
	for i := range planes {
		p := planes[i]
		if p.Vec3().Dot(pos)+p.W() < -radius {
			return false
		}
	}
	return true
}

// AABBInPlanes uses the positive vertex of the box against each plane.
func AABBInPlanes(planes *[6]mgl32.Vec4, min, max mgl32.Vec3) bool {
	for i := range planes {
		p := planes[i]
		var v mgl32.Vec3
		for k := 0; k < 3; k++ {
			if p[k] >= 0 {
				v[k] = max[k]
			} else {
				v[k] = min[k]
			}
		}
		if p.Vec3().Dot(v)+p.W() < 0 {
			return false
		}
	}
	return true
}

// ConeInPlanes rejects the cone only when both its apex and the base point
// closest to the plane are outside.
func ConeInPlanes(planes *[6]mgl32.Vec4, origin, dir mgl32.Vec3, length, theta float32) bool {
	dir = normalizeOr(dir, mgl32.Vec3{0, 0, -1})
	radius := length * float32(math.Tan(float64(theta)))
	base := origin.Add(dir.Mul(length))
	for i := range planes {
		p := planes[i]
		n := p.Vec3()
		m := n.Cross(dir).Cross(dir)
		q := base
		if m.Len() > mgl32.Epsilon {
			q = base.Sub(m.Normalize().Mul(radius))
		}
		if n.Dot(origin)+p.W() < 0 && n.Dot(q)+p.W() < 0 {
			return false
		}
	}
	return true
}

func (p Perspective) kind() CameraFlags { return 0 }

func (p Perspective) matrix() mgl32.Mat4 {
	return mgl32.Perspective(p.FOV, p.Aspect, p.Near, p.Far)
}

func (p Perspective) halfExtents(dist float32) (w, h float32) {
	h = float32(math.Tan(float64(p.FOV)*0.5)) * dist
	return h * p.Aspect, h
}

func (p Perspective) planes(pos, fwd, right, up mgl32.Vec3) [6]mgl32.Vec4 {
	nc := pos.Add(fwd.Mul(p.Near))
	fc := pos.Add(fwd.Mul(p.Far))
	wn, hn := p.halfExtents(p.Near)

	rightN := up.Cross(fwd.Mul(p.Near).Add(right.Mul(wn))).Normalize()
	leftN := fwd.Mul(p.Near).Sub(right.Mul(wn)).Cross(up).Normalize()
	bottomN := right.Cross(fwd.Mul(p.Near).Sub(up.Mul(hn))).Normalize()
	topN := fwd.Mul(p.Near).Add(up.Mul(hn)).Cross(right).Normalize()

	return [6]mgl32.Vec4{
		PlaneNear:   fwd.Vec4(-fwd.Dot(nc)),
		PlaneFar:    fwd.Mul(-1).Vec4(fwd.Dot(fc)),
		PlaneRight:  rightN.Vec4(-rightN.Dot(pos)),
		PlaneLeft:   leftN.Vec4(-leftN.Dot(pos)),
		PlaneBottom: bottomN.Vec4(-bottomN.Dot(pos)),
		PlaneTop:    topN.Vec4(-topN.Dot(pos)),
	}
}

func (p Perspective) points(pos, fwd, right, up mgl32.Vec3) [6]mgl32.Vec3 {
	nc := pos.Add(fwd.Mul(p.Near))
	fc := pos.Add(fwd.Mul(p.Far))
	wn, hn := p.halfExtents(p.Near)
	wf, hf := p.halfExtents(p.Far)
	return [6]mgl32.Vec3{
		nc.Add(up.Mul(hn)).Sub(right.Mul(wn)),
		nc.Add(up.Mul(hn)).Add(right.Mul(wn)),
		nc.Sub(up.Mul(hn)).Sub(right.Mul(wn)),
		fc.Add(up.Mul(hf)).Sub(right.Mul(wf)),
		fc.Add(up.Mul(hf)).Add(right.Mul(wf)),
		fc.Sub(up.Mul(hf)).Sub(right.Mul(wf)),
	}
}

func (o Ortho) kind() CameraFlags { return CameraOrthoSource }

func (o Ortho) matrix() mgl32.Mat4 {
	return mgl32.Ortho(o.Left, o.Right, o.Bottom, o.Top, o.Near, o.Far)
}

func (o Ortho) planes(pos, fwd, right, up mgl32.Vec3) [6]mgl32.Vec4 {
	return boxPlanes(pos, fwd, right, up, o.Left, o.Right, o.Bottom, o.Top, o.Near, o.Far)
}

func (o Ortho) points(pos, fwd, right, up mgl32.Vec3) [6]mgl32.Vec3 {
	return boxPoints(pos, fwd, right, up, o.Left, o.Right, o.Bottom, o.Top, o.Near, o.Far)
}

func (p Point) kind() CameraFlags { return CameraPointSource }

func (p Point) matrix() mgl32.Mat4 {
	near := p.Radius * 0.001
	if near < 0.01 {
		near = 0.01
	}
	return mgl32.Perspective(math.Pi/2, 1, near, p.Radius)
}

func (p Point) planes(pos, fwd, right, up mgl32.Vec3) [6]mgl32.Vec4 {
	r := p.Radius
	return boxPlanes(pos, fwd, right, up, -r, r, -r, r, -r, r)
}

func (p Point) points(pos, fwd, right, up mgl32.Vec3) [6]mgl32.Vec3 {
	r := p.Radius
	return boxPoints(pos, fwd, right, up, -r, r, -r, r, -r, r)
}

// boxPlanes builds inward planes for a camera-space box.
func boxPlanes(pos, fwd, right, up mgl32.Vec3, l, r, b, t, n, f float32) [6]mgl32.Vec4 {
	nearP := pos.Add(fwd.Mul(n))
	farP := pos.Add(fwd.Mul(f))
	rightP := pos.Add(right.Mul(r))
	leftP := pos.Add(right.Mul(l))
	bottomP := pos.Add(up.Mul(b))
	topP := pos.Add(up.Mul(t))
	return [6]mgl32.Vec4{
		PlaneNear:   fwd.Vec4(-fwd.Dot(nearP)),
		PlaneFar:    fwd.Mul(-1).Vec4(fwd.Dot(farP)),
		PlaneRight:  right.Mul(-1).Vec4(right.Dot(rightP)),
		PlaneLeft:   right.Vec4(-right.Dot(leftP)),
		PlaneBottom: up.Vec4(-up.Dot(bottomP)),
		PlaneTop:    up.Mul(-1).Vec4(up.Dot(topP)),
	}
}

func boxPoints(pos, fwd, right, up mgl32.Vec3, l, r, b, t, n, f float32) [6]mgl32.Vec3 {
	at := func(x, y, z float32) mgl32.Vec3 {
		return pos.Add(right.Mul(x)).Add(up.Mul(y)).Add(fwd.Mul(z))
	}
	return [6]mgl32.Vec3{
		at(l, t, n), at(r, t, n), at(l, b, n),
		at(l, t, f), at(r, t, f), at(l, b, f),
	}
}

func normalizeOr(v, fallback mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l <= mgl32.Epsilon || math.IsNaN(float64(l)) {
		return fallback
	}
	return v.Mul(1 / l)
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
