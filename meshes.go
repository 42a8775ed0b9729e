package frostvale

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// VertexPNC is the forward pipeline's vertex: position, flat normal, baked
// color, planar UV. The layout tags drive vertex attribute generation.
type VertexPNC struct {
	Position mgl32.Vec3 `frostvale:"layout" format:"float3" location:"0"`
	Normal   mgl32.Vec3 `frostvale:"layout" format:"float3" location:"1"`
	Color    mgl32.Vec4 `frostvale:"layout" format:"float4" location:"2"`
	UV       mgl32.Vec2 `frostvale:"layout" format:"float2" location:"3"`
}

// meshBuilder accumulates flat-shaded triangles. Faces duplicate vertices
// so every triangle keeps its own normal. UVs project the xz-plane scaled
// by uvScale; the zero value maps everything to the texture center, which
// is what untextured meshes want.
type meshBuilder struct {
	vertices []VertexPNC
	indices  []uint16
	uvScale  float32
}

func (b *meshBuilder) uvAt(p mgl32.Vec3) mgl32.Vec2 {
	return mgl32.Vec2{p.X()*b.uvScale + 0.5, p.Z()*b.uvScale + 0.5}
}

func (b *meshBuilder) addTriangle(a, c, d mgl32.Vec3, color mgl32.Vec4) {
	normal := c.Sub(a).Cross(d.Sub(a))
	if length := normal.Len(); length > 0 {
		normal = normal.Mul(1 / length)
	}
	base := uint16(len(b.vertices))
	b.vertices = append(b.vertices,
		VertexPNC{Position: a, Normal: normal, Color: color, UV: b.uvAt(a)},
		VertexPNC{Position: c, Normal: normal, Color: color, UV: b.uvAt(c)},
		VertexPNC{Position: d, Normal: normal, Color: color, UV: b.uvAt(d)},
	)
	b.indices = append(b.indices, base, base+1, base+2)
}

// addQuad expects counter-clockwise winding seen from the outside.
func (b *meshBuilder) addQuad(a, c, d, e mgl32.Vec3, color mgl32.Vec4) {
	b.addTriangle(a, c, d, color)
	b.addTriangle(a, d, e, color)
}

// appendAt copies a prebuilt mesh into the builder scaled then offset, for
// composing multi-part shapes into one mesh. Scale components must be
// positive; normals are rescaled by the inverse and renormalized.
func (b *meshBuilder) appendAt(vertices []VertexPNC, indices []uint16, offset, scale mgl32.Vec3) {
	base := uint16(len(b.vertices))
	for _, v := range vertices {
		p := mgl32.Vec3{
			v.Position.X()*scale.X() + offset.X(),
			v.Position.Y()*scale.Y() + offset.Y(),
			v.Position.Z()*scale.Z() + offset.Z(),
		}
		n := mgl32.Vec3{v.Normal.X() / scale.X(), v.Normal.Y() / scale.Y(), v.Normal.Z() / scale.Z()}
		if length := n.Len(); length > 0 {
			n = n.Mul(1 / length)
		}
		b.vertices = append(b.vertices, VertexPNC{Position: p, Normal: n, Color: v.Color, UV: v.UV})
	}
	for _, i := range indices {
		b.indices = append(b.indices, base+i)
	}
}

// buildBoxMesh makes a box centered at the origin.
func buildBoxMesh(width, height, depth float32, color mgl32.Vec4) ([]VertexPNC, []uint16) {
	hx, hy, hz := width/2, height/2, depth/2
	b := &meshBuilder{}

	// corners: n = negative, p = positive
	nnn := mgl32.Vec3{-hx, -hy, -hz}
	nnp := mgl32.Vec3{-hx, -hy, hz}
	npn := mgl32.Vec3{-hx, hy, -hz}
	npp := mgl32.Vec3{-hx, hy, hz}
	pnn := mgl32.Vec3{hx, -hy, -hz}
	pnp := mgl32.Vec3{hx, -hy, hz}
	ppn := mgl32.Vec3{hx, hy, -hz}
	ppp := mgl32.Vec3{hx, hy, hz}

	b.addQuad(nnp, pnp, ppp, npp, color) // front (+z)
	b.addQuad(pnn, nnn, npn, ppn, color) // back (-z)
	b.addQuad(nnn, nnp, npp, npn, color) // left (-x)
	b.addQuad(pnp, pnn, ppn, ppp, color) // right (+x)
	b.addQuad(npp, ppp, ppn, npn, color) // top (+y)
	b.addQuad(nnn, pnn, pnp, nnp, color) // bottom (-y)

	return b.vertices, b.indices
}

// buildPrismMesh makes a triangular prism with its rectangular base
// centered at y = 0 and the ridge running along z at y = height. Used for
// gabled roofs.
func buildPrismMesh(width, height, depth float32, color mgl32.Vec4) ([]VertexPNC, []uint16) {
	hx, hz := width/2, depth/2
	b := &meshBuilder{}

	baseNL := mgl32.Vec3{-hx, 0, -hz}
	baseNR := mgl32.Vec3{hx, 0, -hz}
	basePL := mgl32.Vec3{-hx, 0, hz}
	basePR := mgl32.Vec3{hx, 0, hz}
	ridgeN := mgl32.Vec3{0, height, -hz}
	ridgeP := mgl32.Vec3{0, height, hz}

	b.addTriangle(basePL, basePR, ridgeP, color)     // front gable (+z)
	b.addTriangle(baseNR, baseNL, ridgeN, color)     // back gable (-z)
	b.addQuad(basePR, baseNR, ridgeN, ridgeP, color) // right slope
	b.addQuad(baseNL, basePL, ridgeP, ridgeN, color) // left slope
	b.addQuad(baseNL, baseNR, basePR, basePL, color) // underside

	return b.vertices, b.indices
}

// buildConeMesh makes a cone centered vertically on the origin, base at
// -height/2 and apex at +height/2.
func buildConeMesh(radius, height float32, segments int, color mgl32.Vec4) ([]VertexPNC, []uint16) {
	if segments < 3 {
		segments = 3
	}
	b := &meshBuilder{}
	hy := height / 2
	apex := mgl32.Vec3{0, hy, 0}
	center := mgl32.Vec3{0, -hy, 0}

	for i := 0; i < segments; i++ {
		a0 := 2 * math.Pi * float64(i) / float64(segments)
		a1 := 2 * math.Pi * float64(i+1) / float64(segments)
		p0 := mgl32.Vec3{radius * float32(math.Cos(a0)), -hy, radius * float32(math.Sin(a0))}
		p1 := mgl32.Vec3{radius * float32(math.Cos(a1)), -hy, radius * float32(math.Sin(a1))}
		b.addTriangle(p1, p0, apex, color)   // side
		b.addTriangle(p0, p1, center, color) // base, facing down
	}

	return b.vertices, b.indices
}

// buildCylinderMesh makes a cylinder centered vertically on the origin.
func buildCylinderMesh(radius, height float32, segments int, color mgl32.Vec4) ([]VertexPNC, []uint16) {
	if segments < 3 {
		segments = 3
	}
	b := &meshBuilder{}
	hy := height / 2
	topCenter := mgl32.Vec3{0, hy, 0}
	botCenter := mgl32.Vec3{0, -hy, 0}

	for i := 0; i < segments; i++ {
		a0 := 2 * math.Pi * float64(i) / float64(segments)
		a1 := 2 * math.Pi * float64(i+1) / float64(segments)
		c0, s0 := radius*float32(math.Cos(a0)), radius*float32(math.Sin(a0))
		c1, s1 := radius*float32(math.Cos(a1)), radius*float32(math.Sin(a1))

		bot0 := mgl32.Vec3{c0, -hy, s0}
		bot1 := mgl32.Vec3{c1, -hy, s1}
		top0 := mgl32.Vec3{c0, hy, s0}
		top1 := mgl32.Vec3{c1, hy, s1}

		b.addQuad(bot1, bot0, top0, top1, color)
		b.addTriangle(top1, top0, topCenter, color)
		b.addTriangle(bot0, bot1, botCenter, color)
	}

	return b.vertices, b.indices
}

// buildDiscMesh makes a flat disc in the xz-plane at y = 0, facing up,
// with UVs spanning the disc's bounding square.
func buildDiscMesh(radius float32, segments int, color mgl32.Vec4) ([]VertexPNC, []uint16) {
	if segments < 3 {
		segments = 3
	}
	b := &meshBuilder{uvScale: 1 / (2 * radius)}
	center := mgl32.Vec3{}

	for i := 0; i < segments; i++ {
		a0 := 2 * math.Pi * float64(i) / float64(segments)
		a1 := 2 * math.Pi * float64(i+1) / float64(segments)
		p0 := mgl32.Vec3{radius * float32(math.Cos(a0)), 0, radius * float32(math.Sin(a0))}
		p1 := mgl32.Vec3{radius * float32(math.Cos(a1)), 0, radius * float32(math.Sin(a1))}
		b.addTriangle(p1, p0, center, color)
	}

	return b.vertices, b.indices
}

// buildDomeMesh makes a hemisphere over the origin with inward-facing
// triangles, for enclosing the scene as a sky.
func buildDomeMesh(radius float32, rings, segments int, color mgl32.Vec4) ([]VertexPNC, []uint16) {
	if rings < 2 {
		rings = 2
	}
	if segments < 3 {
		segments = 3
	}
	b := &meshBuilder{}

	at := func(ring, seg int) mgl32.Vec3 {
		lat := (math.Pi / 2) * float64(ring) / float64(rings)
		lon := 2 * math.Pi * float64(seg) / float64(segments)
		y := radius * float32(math.Sin(lat))
		r := radius * float32(math.Cos(lat))
		return mgl32.Vec3{r * float32(math.Cos(lon)), y, r * float32(math.Sin(lon))}
	}

	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segments; seg++ {
			p00 := at(ring, seg)
			p01 := at(ring, seg+1)
			p10 := at(ring+1, seg)
			p11 := at(ring+1, seg+1)
			// inward winding so the inside face survives culling
			b.addQuad(p00, p01, p11, p10, color)
		}
	}

	return b.vertices, b.indices
}
