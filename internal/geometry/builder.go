// Package geometry generates the procedural fairing shell: a base ring, panel
// groups split into stacked bands, bolt trim and editor collision proxies.
package geometry

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sstutools/fairing/pkg/core"
)

// Scene node names.
const (
	RootName            = "FairingRoot"
	BaseName            = "FairingBase"
	EditorCollidersName = "EditorColliders"
	BoltTrimName        = "BoltTrim"
)

// PanelName returns the node name of panel group i.
func PanelName(i int) string { return fmt.Sprintf("FairingPanel-%d", i) }

// BandName returns the node name of band j inside a panel group.
func BandName(j int) string { return fmt.Sprintf("Band-%d", j) }

// bandEpsilon keeps an exact multiple of the max panel height from spilling
// into an extra band through float error.
const bandEpsilon = 1e-9

// BandCount is the number of stacked bands needed so that none exceeds maxHeight.
func BandCount(height, maxHeight float64) int {
	n := int(math.Ceil(height/maxHeight - bandEpsilon))
	if n < 1 {
		n = 1
	}
	return n
}

// Band is one vertical slice of a panel group.
type Band struct {
	Node          *Node
	BottomY, TopY float64
}

// Height of the band.
func (b Band) Height() float64 {
	return b.TopY - b.BottomY
}

// PanelGroup is one radial section of the shell. It rotates about a hinge at
// its foot, tangent to the circumference.
type PanelGroup struct {
	Node     *Node
	Bands    []Band
	BoltTrim *Node
	Collider *Node

	StartAngle, EndAngle float64 // radians
	axis                 mgl64.Vec3
}

// Fairing is the generated scene graph plus handles to its parts.
type Fairing struct {
	Root            *Node
	Base            *Node
	Panels          []*PanelGroup
	EditorColliders *Node

	params   core.FairingParameters
	startY   float64
	rotation float64
}

// Build generates the fairing for p with its lowest point at startY.
// p must satisfy p.Validate(); violating it is a programming error.
func Build(p core.FairingParameters, startY float64) *Fairing {
	if err := p.Validate(); err != nil {
		panic(fmt.Sprintf("geometry.Build: %v", err))
	}

	f := &Fairing{
		Root:   NewNode(RootName, 0),
		params: p,
		startY: startY,
	}

	baseTop := startY + p.BaseHeight
	f.Base = NewNode(BaseName, Renderable)
	if p.BaseHeight > 0 {
		f.Base.Mesh = buildShell(shellSpec{
			startAngle: 0,
			endAngle:   2 * math.Pi,
			segments:   p.CylinderSides,
			bottomY:    startY,
			topY:       baseTop,
			bottomR:    p.BottomRadius,
			topR:       p.BottomRadius,
			thickness:  p.WallThickness,
		})
	}
	f.Root.AddChild(f.Base)

	f.EditorColliders = NewNode(EditorCollidersName, EditorOnly)
	f.Root.AddChild(f.EditorColliders)

	panelTop := baseTop + p.CurrentHeight
	bands := BandCount(p.CurrentHeight, p.MaxPanelSectionHeight)
	bandHeight := p.CurrentHeight / float64(bands)
	sectionAngle := 2 * math.Pi / float64(p.NumRadialSections)
	segs := p.CylinderSides / p.NumRadialSections
	if segs < 1 {
		segs = 1
	}
	wall := shellSpec{bottomY: baseTop, topY: panelTop, bottomR: p.BottomRadius, topR: p.TopRadius}

	for i := 0; i < p.NumRadialSections; i++ {
		a0 := sectionAngle * float64(i)
		a1 := a0 + sectionAngle
		mid := (a0 + a1) / 2
		pivot := ringPoint(mid, p.BottomRadius, baseTop)

		g := &PanelGroup{
			Node:       NewNode(PanelName(i), 0),
			StartAngle: a0,
			EndAngle:   a1,
			// up x radial: positive rotation swings the panel top outward
			axis: mgl64.Vec3{0, 1, 0}.Cross(radial(mid)).Normalize(),
		}
		g.Node.Position = pivot

		for j := 0; j < bands; j++ {
			y0 := baseTop + bandHeight*float64(j)
			y1 := y0 + bandHeight
			if j == bands-1 {
				y1 = panelTop
			}
			mesh := buildShell(shellSpec{
				startAngle:  a0,
				endAngle:    a1,
				segments:    segs,
				bottomY:     y0,
				topY:        y1,
				bottomR:     wall.radiusAt(y0),
				topR:        wall.radiusAt(y1),
				thickness:   p.WallThickness,
				closedSides: true,
			})
			mesh.translate(pivot)
			band := NewNode(BandName(j), Renderable)
			band.Mesh = mesh
			g.Node.AddChild(band)
			g.Bands = append(g.Bands, Band{Node: band, BottomY: y0, TopY: y1})
		}

		if p.BoltPanelHeight > 0 {
			boltTop := math.Min(baseTop+p.BoltPanelHeight, panelTop)
			mesh := buildShell(shellSpec{
				startAngle:  a0,
				endAngle:    a1,
				segments:    segs,
				bottomY:     baseTop,
				topY:        boltTop,
				bottomR:     wall.radiusAt(baseTop) + p.WallThickness,
				topR:        wall.radiusAt(boltTop) + p.WallThickness,
				thickness:   p.WallThickness,
				closedSides: true,
			})
			mesh.translate(pivot)
			g.BoltTrim = NewNode(BoltTrimName, Renderable)
			g.BoltTrim.Mesh = mesh
			g.Node.AddChild(g.BoltTrim)
		}

		collider := buildShell(shellSpec{
			startAngle:  a0,
			endAngle:    a1,
			segments:    1,
			bottomY:     baseTop,
			topY:        panelTop,
			bottomR:     p.BottomRadius,
			topR:        p.TopRadius,
			thickness:   p.WallThickness,
			closedSides: true,
		})
		g.Collider = NewNode(fmt.Sprintf("EditorCollider-%d", i), Collider|EditorOnly)
		g.Collider.Mesh = collider
		g.Collider.ColliderEnabled = true
		f.EditorColliders.AddChild(g.Collider)

		f.Root.AddChild(g.Node)
		f.Panels = append(f.Panels, g)
	}
	return f
}

// Params returns the parameters the fairing was built from.
func (f *Fairing) Params() core.FairingParameters {
	return f.params
}

// BottomY is the lowest point of the base.
func (f *Fairing) BottomY() float64 {
	return f.startY
}

// PanelBottomY is where the panels meet the base.
func (f *Fairing) PanelBottomY() float64 {
	return f.startY + f.params.BaseHeight
}

// TopY is the top of the panels.
func (f *Fairing) TopY() float64 {
	return f.startY + f.params.TotalHeight()
}

// SetPanelRotation opens every panel group by deg degrees.
func (f *Fairing) SetPanelRotation(deg float64) {
	f.rotation = deg
	rad := mgl64.DegToRad(deg)
	for _, g := range f.Panels {
		g.Node.Rotation = mgl64.QuatRotate(rad, g.axis)
	}
}

// PanelRotation is the angle last applied by SetPanelRotation.
func (f *Fairing) PanelRotation() float64 {
	return f.rotation
}

// SetPanelOpacity sets the opacity of all panel geometry.
func (f *Fairing) SetPanelOpacity(a float64) {
	for _, g := range f.Panels {
		g.Node.Walk(func(n *Node) bool {
			n.Opacity = a
			return true
		})
	}
}

// EnableEditorColliders toggles the editor-only collision proxies.
func (f *Fairing) EnableEditorColliders(on bool) {
	f.EditorColliders.Walk(func(n *Node) bool {
		if n.Has(Collider) {
			n.ColliderEnabled = on
		}
		return true
	})
}

// RenderBounds is the combined bounds of the visible shell in root space.
func (f *Fairing) RenderBounds() Bounds {
	return RenderBounds(f.Root)
}

// Release tears down the whole scene graph.
func (f *Fairing) Release() {
	if f.Root != nil {
		f.Root.Release()
	}
	f.Root, f.Base, f.EditorColliders, f.Panels = nil, nil, nil, nil
}
