package geometry

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
)

type Shape int

const (
	ShapeBox Shape = iota
	ShapeSphere
	ShapeDome
	ShapeCapsule
	ShapeCone
	ShapeCylinder
	ShapePlane
	shapeCount
)

func (s Shape) String() string {
	switch s {
	case ShapeBox:
		return "box"
	case ShapeSphere:
		return "sphere"
	case ShapeDome:
		return "dome"
	case ShapeCapsule:
		return "capsule"
	case ShapeCone:
		return "cone"
	case ShapeCylinder:
		return "cylinder"
	case ShapePlane:
		return "plane"
	}
	return "unknown"
}

const (
	sphereStacks   = 16
	sphereSlices   = 20
	radialSegments = 24
)

// PrimitiveData is a host side triangle list with the full attribute set.
type PrimitiveData struct {
	Positions []mgl32.Vec3
	TexCoords []mgl32.Vec2
	Tangents  []mgl32.Vec4
	Normals   []mgl32.Vec3
	Indices   []uint32
}

func (p *PrimitiveData) add(pos mgl32.Vec3, uv mgl32.Vec2, tangent mgl32.Vec3, normal mgl32.Vec3) uint32 {
	p.Positions = append(p.Positions, pos)
	p.TexCoords = append(p.TexCoords, uv)
	p.Tangents = append(p.Tangents, tangent.Vec4(1))
	p.Normals = append(p.Normals, normal)
	return uint32(len(p.Positions) - 1)
}

func (p *PrimitiveData) tri(a, b, c uint32) {
	p.Indices = append(p.Indices, a, b, c)
}

// Flatten expands the index list into a non-indexed triangle list.
func (p PrimitiveData) Flatten() PrimitiveData {
	if len(p.Indices) == 0 {
		return p
	}
	out := PrimitiveData{
		Positions: make([]mgl32.Vec3, len(p.Indices)),
		TexCoords: make([]mgl32.Vec2, len(p.Indices)),
		Tangents:  make([]mgl32.Vec4, len(p.Indices)),
		Normals:   make([]mgl32.Vec3, len(p.Indices)),
	}
	for i, idx := range p.Indices {
		out.Positions[i] = p.Positions[idx]
		out.TexCoords[i] = p.TexCoords[idx]
		out.Tangents[i] = p.Tangents[idx]
		out.Normals[i] = p.Normals[idx]
	}
	return out
}

// GeneratePrimitive tessellates a shape. Shapes fit the unit box centered at
// the origin, except the cone which has its apex at the origin and its unit
// radius base at z=1.
func GeneratePrimitive(s Shape) PrimitiveData {
	switch s {
	case ShapeBox:
		return boxData()
	case ShapeSphere:
		return sphereData(sphereStacks, math.Pi)
	case ShapeDome:
		return sphereData(sphereStacks/2, math.Pi/2)
	case ShapeCapsule:
		return capsuleData()
	case ShapeCone:
		return coneData()
	case ShapeCylinder:
		return cylinderData()
	case ShapePlane:
		return planeData()
	}
	return PrimitiveData{}
}

func boxData() PrimitiveData {
	faces := [6][2]mgl32.Vec3{
		{{1, 0, 0}, {0, 0, -1}},
		{{-1, 0, 0}, {0, 0, 1}},
		{{0, 1, 0}, {1, 0, 0}},
		{{0, -1, 0}, {1, 0, 0}},
		{{0, 0, 1}, {1, 0, 0}},
		{{0, 0, -1}, {-1, 0, 0}},
	}
	corners := [4]mgl32.Vec2{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

	var p PrimitiveData
	for _, f := range faces {
		n, t := f[0], f[1]
		b := n.Cross(t)
		base := uint32(len(p.Positions))
		for _, c := range corners {
			pos := n.Add(t.Mul(c.X())).Add(b.Mul(c.Y())).Mul(0.5)
			p.add(pos, mgl32.Vec2{(c.X() + 1) * 0.5, 1 - (c.Y()+1)*0.5}, t, n)
		}
		p.tri(base, base+1, base+2)
		p.tri(base, base+2, base+3)
	}
	return p
}

// lat-long grid of radius 0.5 from the +Y pole down to polar angle maxPhi.
func sphereData(stacks int, maxPhi float64) PrimitiveData {
	var p PrimitiveData
	for i := 0; i <= stacks; i++ {
		phi := maxPhi * float64(i) / float64(stacks)
		sinP, cosP := math.Sincos(phi)
		for j := 0; j <= sphereSlices; j++ {
			theta := 2 * math.Pi * float64(j) / float64(sphereSlices)
			sinT, cosT := math.Sincos(theta)
			n := mgl32.Vec3{float32(sinP * cosT), float32(cosP), float32(sinP * sinT)}
			p.add(n.Mul(0.5),
				mgl32.Vec2{float32(j) / sphereSlices, float32(phi / math.Pi)},
				mgl32.Vec3{float32(-sinT), 0, float32(cosT)}, n)
		}
	}
	gridIndices(&p, stacks, sphereSlices)
	return p
}

func gridIndices(p *PrimitiveData, rows, cols int) {
	stride := uint32(cols + 1)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			a := uint32(i)*stride + uint32(j)
			b := a + stride
			p.tri(a, a+1, b)
			p.tri(b, a+1, b+1)
		}
	}
}

// capsule of radius 0.5 whose hemispheres are centered at y=±0.5.
func capsuleData() PrimitiveData {
	var p PrimitiveData
	half := sphereStacks / 2
	rows := 0
	ring := func(i int, offset float32) {
		phi := math.Pi * float64(i) / float64(sphereStacks)
		sinP, cosP := math.Sincos(phi)
		for j := 0; j <= sphereSlices; j++ {
			theta := 2 * math.Pi * float64(j) / float64(sphereSlices)
			sinT, cosT := math.Sincos(theta)
			n := mgl32.Vec3{float32(sinP * cosT), float32(cosP), float32(sinP * sinT)}
			pos := n.Mul(0.5).Add(mgl32.Vec3{0, offset, 0})
			v := 0.5 - pos.Y()*0.5
			p.add(pos, mgl32.Vec2{float32(j) / sphereSlices, v},
				mgl32.Vec3{float32(-sinT), 0, float32(cosT)}, n)
		}
		rows++
	}
	for i := 0; i <= half; i++ {
		ring(i, 0.5)
	}
	for i := half; i <= sphereStacks; i++ {
		ring(i, -0.5)
	}
	gridIndices(&p, rows-1, sphereSlices)
	return p
}

// cylinder of radius 0.5 spanning y in [-0.5, 0.5] with both caps.
func cylinderData() PrimitiveData {
	var p PrimitiveData
	for _, y := range [2]float32{-0.5, 0.5} {
		for k := 0; k <= radialSegments; k++ {
			theta := 2 * math.Pi * float64(k) / radialSegments
			sinT, cosT := math.Sincos(theta)
			n := mgl32.Vec3{float32(cosT), 0, float32(sinT)}
			p.add(mgl32.Vec3{n.X() * 0.5, y, n.Z() * 0.5},
				mgl32.Vec2{float32(k) / radialSegments, 0.5 - y},
				mgl32.Vec3{float32(-sinT), 0, float32(cosT)}, n)
		}
	}
	gridIndicesSide(&p, radialSegments)

	for _, y := range [2]float32{-0.5, 0.5} {
		n := mgl32.Vec3{0, y * 2, 0}
		center := p.add(mgl32.Vec3{0, y, 0}, mgl32.Vec2{0.5, 0.5}, mgl32.Vec3{1, 0, 0}, n)
		for k := 0; k <= radialSegments; k++ {
			theta := 2 * math.Pi * float64(k) / radialSegments
			sinT, cosT := math.Sincos(theta)
			p.add(mgl32.Vec3{float32(cosT) * 0.5, y, float32(sinT) * 0.5},
				mgl32.Vec2{float32(cosT)*0.5 + 0.5, float32(sinT)*0.5 + 0.5},
				mgl32.Vec3{1, 0, 0}, n)
		}
		for k := uint32(1); k <= radialSegments; k++ {
			if y > 0 {
				p.tri(center, center+k+1, center+k)
			} else {
				p.tri(center, center+k, center+k+1)
			}
		}
	}
	return p
}

// side strip between the first two rings of a cylinder-like mesh.
func gridIndicesSide(p *PrimitiveData, segments int) {
	stride := uint32(segments + 1)
	for k := uint32(0); k < uint32(segments); k++ {
		a, c := k, k+stride
		p.tri(a, c, a+1)
		p.tri(a+1, c, c+1)
	}
}

func coneData() PrimitiveData {
	var p PrimitiveData
	inv := float32(1 / math.Sqrt2)
	for k := 0; k <= radialSegments; k++ {
		theta := 2 * math.Pi * float64(k) / radialSegments
		sinT, cosT := math.Sincos(theta)
		n := mgl32.Vec3{float32(cosT) * inv, float32(sinT) * inv, -inv}
		t := mgl32.Vec3{float32(-sinT), float32(cosT), 0}
		u := float32(k) / radialSegments
		p.add(mgl32.Vec3{}, mgl32.Vec2{u, 0}, t, n)
		p.add(mgl32.Vec3{float32(cosT), float32(sinT), 1}, mgl32.Vec2{u, 1}, t, n)
	}
	for k := uint32(0); k < radialSegments; k++ {
		apex, base, next := k*2, k*2+1, k*2+3
		p.tri(apex, next, base)
	}

	n := mgl32.Vec3{0, 0, 1}
	center := p.add(mgl32.Vec3{0, 0, 1}, mgl32.Vec2{0.5, 0.5}, mgl32.Vec3{1, 0, 0}, n)
	for k := 0; k <= radialSegments; k++ {
		theta := 2 * math.Pi * float64(k) / radialSegments
		sinT, cosT := math.Sincos(theta)
		p.add(mgl32.Vec3{float32(cosT), float32(sinT), 1},
			mgl32.Vec2{float32(cosT)*0.5 + 0.5, float32(sinT)*0.5 + 0.5},
			mgl32.Vec3{1, 0, 0}, n)
	}
	for k := uint32(1); k <= radialSegments; k++ {
		p.tri(center, center+k, center+k+1)
	}
	return p
}

func planeData() PrimitiveData {
	var p PrimitiveData
	n := mgl32.Vec3{0, 1, 0}
	t := mgl32.Vec3{1, 0, 0}
	p.add(mgl32.Vec3{-0.5, 0, -0.5}, mgl32.Vec2{0, 0}, t, n)
	p.add(mgl32.Vec3{0.5, 0, -0.5}, mgl32.Vec2{1, 0}, t, n)
	p.add(mgl32.Vec3{0.5, 0, 0.5}, mgl32.Vec2{1, 1}, t, n)
	p.add(mgl32.Vec3{-0.5, 0, 0.5}, mgl32.Vec2{0, 1}, t, n)
	p.tri(0, 2, 1)
	p.tri(0, 3, 2)
	return p
}

func putFloats(dst []byte, format gpu.VertexFormat, v [4]float32) {
	n := int(format.Size() / 4)
	for k := 0; k < n; k++ {
		binary.LittleEndian.PutUint32(dst[k*4:], math.Float32bits(v[k]))
	}
}

// Primitive returns the pool's allocation for a shape, building it on first use.
func (g *BlockGeometry) Primitive(s Shape, q UploadQueue) AllocID {
	if s < 0 || s >= shapeCount {
		return NullID
	}
	g.primMu.Lock()
	defer g.primMu.Unlock()
	if id := g.shapes[s]; id != NullID {
		return id
	}
	id := g.UploadPrimitive(GeneratePrimitive(s), q)
	if id == NullID {
		g.log.Errorf("block geometry %q: failed to build %s primitive", g.name, s)
		return NullID
	}
	g.shapes[s] = id
	return id
}

func (g *BlockGeometry) Box(q UploadQueue) AllocID      { return g.Primitive(ShapeBox, q) }
func (g *BlockGeometry) Sphere(q UploadQueue) AllocID   { return g.Primitive(ShapeSphere, q) }
func (g *BlockGeometry) Dome(q UploadQueue) AllocID     { return g.Primitive(ShapeDome, q) }
func (g *BlockGeometry) Capsule(q UploadQueue) AllocID  { return g.Primitive(ShapeCapsule, q) }
func (g *BlockGeometry) Cone(q UploadQueue) AllocID     { return g.Primitive(ShapeCone, q) }
func (g *BlockGeometry) Cylinder(q UploadQueue) AllocID { return g.Primitive(ShapeCylinder, q) }
func (g *BlockGeometry) Plane(q UploadQueue) AllocID    { return g.Primitive(ShapePlane, q) }

// UploadPrimitive encodes data into the pool's vertex layouts and queues the upload.
// Indices are synthesized when the pool is indexed but data is not, and expanded
// when data is indexed but the pool is not.
func (g *BlockGeometry) UploadPrimitive(data PrimitiveData, q UploadQueue) AllocID {
	indices := data.Indices
	if g.props.HasIndices() {
		if len(indices) == 0 {
			indices = make([]uint32, len(data.Positions))
			for i := range indices {
				indices[i] = uint32(i)
			}
		}
	} else if len(indices) > 0 {
		data = data.Flatten()
		indices = nil
	}

	count := len(data.Positions)
	posLayout := g.props.PositionLayout
	posAttr, ok := posLayout.Find("Position")
	if !ok {
		posAttr = gpu.VertexAttribute{Name: "Position", Format: gpu.Float32x3}
	}
	positions := make([]byte, count*int(posLayout.Stride))
	for i, v := range data.Positions {
		off := i*int(posLayout.Stride) + int(posAttr.Offset)
		putFloats(positions[off:], posAttr.Format, [4]float32{v[0], v[1], v[2], 1})
	}

	var attributes []byte
	if stride := int(g.props.AttributeLayout.Stride); stride > 0 {
		attributes = make([]byte, count*stride)
		write := func(name string, at func(i int) [4]float32) {
			a, ok := g.props.AttributeLayout.Find(name)
			if !ok {
				g.log.Debugf("block geometry %q: no %s attribute in layout", g.name, name)
				return
			}
			for i := 0; i < count; i++ {
				putFloats(attributes[i*stride+int(a.Offset):], a.Format, at(i))
			}
		}
		write("TexCoord", func(i int) [4]float32 {
			uv := data.TexCoords[i]
			return [4]float32{uv[0], uv[1], 0, 0}
		})
		write("Tangent", func(i int) [4]float32 { return data.Tangents[i] })
		write("Normal", func(i int) [4]float32 {
			n := data.Normals[i]
			return [4]float32{n[0], n[1], n[2], 0}
		})
	}
	return g.AllocateUpload(positions, attributes, indices, count, len(indices), q)
}
