// pkg/core/part.go
package core

import "github.com/go-gl/mathgl/mgl64"

// PartRef identifies a part (or any sibling object) on the vessel.
type PartRef string

// Sibling is another part of the same vessel as seen from the fairing.
// Position is expressed in the fairing part's local space. Known is false
// when the host could not provide render geometry for the part.
type Sibling struct {
	Ref      PartRef
	Position mgl64.Vec3
	Known    bool
}

// Drag cube profile names.
const (
	DragCubeClosed = "Closed"
	DragCubeOpen   = "Open"
)

// Face indexes into the per-face arrays of a DragCube.
type Face int

const (
	FaceXPos Face = iota
	FaceXNeg
	FaceYPos
	FaceYNeg
	FaceZPos
	FaceZNeg
)

// DragCube is a static aerodynamic snapshot of one geometric configuration.
type DragCube struct {
	Name   string
	Area   [6]float64
	Drag   [6]float64
	Depth  [6]float64
	Center mgl64.Vec3
	Size   mgl64.Vec3
}

// Attachment node names used by the fairing.
const (
	NodeTop      = "top"
	NodeBottom   = "bottom"
	NodeInternal = "internal"
)
