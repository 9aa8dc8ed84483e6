package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Mesh is a triangle mesh. Vertices, Normals and UVs are parallel slices;
// Indices holds three entries per triangle.
type Mesh struct {
	Vertices []mgl64.Vec3
	Normals  []mgl64.Vec3
	UVs      []mgl64.Vec2
	Indices  []uint32
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return m == nil || len(m.Vertices) == 0
}

// quad appends the quad a-b-c-d (counter-clockwise seen from the side n points to).
func (m *Mesh) quad(a, b, c, d, n mgl64.Vec3, uv [4]mgl64.Vec2) {
	base := uint32(len(m.Vertices))
	m.Vertices = append(m.Vertices, a, b, c, d)
	m.Normals = append(m.Normals, n, n, n, n)
	m.UVs = append(m.UVs, uv[0], uv[1], uv[2], uv[3])
	m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
}

// translate shifts every vertex by -origin, expressing the mesh relative to a pivot.
func (m *Mesh) translate(origin mgl64.Vec3) {
	for i := range m.Vertices {
		m.Vertices[i] = m.Vertices[i].Sub(origin)
	}
}

// shellSpec describes a section of an axisymmetric wall.
type shellSpec struct {
	startAngle, endAngle float64 // radians
	segments             int
	bottomY, topY        float64
	bottomR, topR        float64 // outer radius at bottomY / topY
	thickness            float64
	closedSides          bool // cap the two radial cut faces
}

func (s shellSpec) radiusAt(y float64) float64 {
	if s.topY == s.bottomY {
		return s.bottomR
	}
	t := (y - s.bottomY) / (s.topY - s.bottomY)
	return s.bottomR + (s.topR-s.bottomR)*t
}

func ringPoint(angle, r, y float64) mgl64.Vec3 {
	return mgl64.Vec3{math.Cos(angle) * r, y, math.Sin(angle) * r}
}

func radial(angle float64) mgl64.Vec3 {
	return mgl64.Vec3{math.Cos(angle), 0, math.Sin(angle)}
}

// buildShell generates a closed wall section: outer and inner skins, top and
// bottom rims and, for partial sections, the two side faces.
func buildShell(s shellSpec) *Mesh {
	m := &Mesh{}
	segs := s.segments
	if segs < 1 {
		segs = 1
	}
	step := (s.endAngle - s.startAngle) / float64(segs)
	height := s.topY - s.bottomY
	dr := s.topR - s.bottomR
	inBottom := math.Max(s.bottomR-s.thickness, 0)
	inTop := math.Max(s.topR-s.thickness, 0)

	for i := 0; i < segs; i++ {
		a0 := s.startAngle + step*float64(i)
		a1 := a0 + step
		mid := (a0 + a1) / 2
		u0 := float64(i) / float64(segs)
		u1 := float64(i+1) / float64(segs)
		uv := [4]mgl64.Vec2{{u0, 0}, {u1, 0}, {u1, 1}, {u0, 1}}

		// outward normal of the sloped generatrix
		n := radial(mid).Mul(height).Sub(mgl64.Vec3{0, dr, 0}).Normalize()

		ob0 := ringPoint(a0, s.bottomR, s.bottomY)
		ob1 := ringPoint(a1, s.bottomR, s.bottomY)
		ot1 := ringPoint(a1, s.topR, s.topY)
		ot0 := ringPoint(a0, s.topR, s.topY)
		m.quad(ob0, ot0, ot1, ob1, n, uv)

		ib0 := ringPoint(a0, inBottom, s.bottomY)
		ib1 := ringPoint(a1, inBottom, s.bottomY)
		it1 := ringPoint(a1, inTop, s.topY)
		it0 := ringPoint(a0, inTop, s.topY)
		m.quad(ib0, ib1, it1, it0, n.Mul(-1), uv)

		m.quad(ot0, it0, it1, ot1, mgl64.Vec3{0, 1, 0}, uv)
		m.quad(ob0, ob1, ib1, ib0, mgl64.Vec3{0, -1, 0}, uv)
	}

	if s.closedSides {
		sideUV := [4]mgl64.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
		a0, a1 := s.startAngle, s.endAngle
		n0 := mgl64.Vec3{math.Sin(a0), 0, -math.Cos(a0)}
		m.quad(ringPoint(a0, inBottom, s.bottomY), ringPoint(a0, s.bottomR, s.bottomY),
			ringPoint(a0, s.topR, s.topY), ringPoint(a0, inTop, s.topY), n0, sideUV)
		n1 := mgl64.Vec3{-math.Sin(a1), 0, math.Cos(a1)}
		m.quad(ringPoint(a1, s.bottomR, s.bottomY), ringPoint(a1, inBottom, s.bottomY),
			ringPoint(a1, inTop, s.topY), ringPoint(a1, s.topR, s.topY), n1, sideUV)
	}
	return m
}
