package drag

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/sstutools/fairing/internal/geometry"
	"github.com/sstutools/fairing/pkg/core"
)

// Renderer produces a drag cube from the current pose of a scene graph.
type Renderer interface {
	Render(root *geometry.Node, name string) core.DragCube
}

// HullRenderer approximates each face by the convex hull of the geometry
// projected onto the face plane. The drag coefficient of a face is the hull's
// fill ratio of its bounding rectangle, a bluntness proxy in [0,1].
type HullRenderer struct{}

// axes maps each face pair to the two coordinates spanning its plane and the
// depth axis.
var faceAxes = [3]struct{ u, v, depth int }{
	{1, 2, 0}, // X faces see Y/Z
	{0, 2, 1}, // Y faces see X/Z
	{0, 1, 2}, // Z faces see X/Y
}

// Render implements Renderer.
func (HullRenderer) Render(root *geometry.Node, name string) core.DragCube {
	var (
		b     geometry.Bounds
		verts []mgl64.Vec3
	)
	geometry.WorldVertices(root, func(v mgl64.Vec3) {
		b.Encapsulate(v)
		verts = append(verts, v)
	})

	cube := core.DragCube{Name: name}
	if b.Empty() {
		return cube
	}
	cube.Center = b.Center()
	cube.Size = b.Size()

	for axis, fa := range faceAxes {
		area := projectedHullArea(verts, fa.u, fa.v)
		rect := cube.Size[fa.u] * cube.Size[fa.v]
		fill := 0.0
		if rect > 0 {
			fill = math.Min(area/rect, 1)
		}
		for _, f := range []core.Face{core.Face(axis * 2), core.Face(axis*2 + 1)} {
			cube.Area[f] = area
			cube.Drag[f] = fill
			cube.Depth[f] = cube.Size[fa.depth]
		}
	}
	return cube
}

func projectedHullArea(verts []mgl64.Vec3, u, v int) float64 {
	if len(verts) < 3 {
		return 0
	}
	flat := make([]float64, 0, len(verts)*2)
	for _, p := range verts {
		flat = append(flat, p[u], p[v])
	}
	ls := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	return ls.ConvexHull().Area()
}
