// Package shield computes which sibling parts sit inside the closed fairing
// and keeps the host shield registry in sync with that set.
package shield

import (
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/sstutools/fairing/internal/geometry"
	"github.com/sstutools/fairing/pkg/core"
	"github.com/sstutools/fairing/pkg/host"
)

// Frustum is the occlusion volume, axis-aligned with the part's Y axis.
type Frustum struct {
	BottomY, TopY           float64
	BottomRadius, TopRadius float64
}

// FrustumFor derives the occlusion frustum from the fairing parameters: it
// spans the panels from the top of the base ring to the top of the fairing.
func FrustumFor(p core.FairingParameters) Frustum {
	total := p.TotalHeight()
	return Frustum{
		BottomY:      -total*0.5 + p.BaseHeight,
		TopY:         total * 0.5,
		BottomRadius: p.BottomRadius,
		TopRadius:    p.TopRadius,
	}
}

// section is the meridional cross-section of f: a trapezoid in the
// (radial distance, y) half-plane.
func (f Frustum) section() geom.Geometry {
	ring := geom.NewLineString(geom.NewSequence([]float64{
		0, f.BottomY,
		f.BottomRadius, f.BottomY,
		f.TopRadius, f.TopY,
		0, f.TopY,
		0, f.BottomY,
	}, geom.DimXY))
	return geom.NewPolygon([]geom.LineString{ring}).AsGeometry()
}

// Contains reports whether p lies inside f, boundary included.
func (f Frustum) Contains(p mgl64.Vec3) bool {
	if f.TopY <= f.BottomY {
		return false
	}
	r := math.Hypot(p[0], p[2])
	pt := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: r, Y: p[1]}, Type: geom.DimXY})
	return geom.Intersects(f.section(), pt.AsGeometry())
}

// Input is everything a recompute reads.
type Input struct {
	// Closed is true while the panels are stowed.
	Closed bool
	// TopAttached is true when a part is attached to the top node.
	TopAttached bool
	// Geometry is the current shell; nil when it has not been built.
	Geometry *geometry.Fairing
	Params   core.FairingParameters
	Siblings []core.Sibling
}

// Query owns the shielded set of one fairing.
type Query struct {
	owner    core.PartRef
	shielded []core.PartRef
	log      *slog.Logger
}

// New creates a query for the fairing part owner.
func New(owner core.PartRef, log *slog.Logger) *Query {
	if log == nil {
		log = slog.Default()
	}
	return &Query{owner: owner, log: log}
}

// Shielded returns the current set.
func (q *Query) Shielded() []core.PartRef {
	return append([]core.PartRef(nil), q.shielded...)
}

// Count returns the size of the current set.
func (q *Query) Count() int { return len(q.shielded) }

// Clear removes every shield this fairing asserted.
func (q *Query) Clear(reg host.ShieldRegistry) {
	if reg != nil {
		for _, ref := range q.shielded {
			reg.RemoveShield(ref, q.owner)
		}
	}
	q.shielded = nil
}

// Recompute clears the previous set and rebuilds it from in. Shields are
// removed before any are added.
func (q *Query) Recompute(in Input, reg host.ShieldRegistry) []core.PartRef {
	q.Clear(reg)
	if !in.Closed || !in.TopAttached {
		return nil
	}
	if in.Geometry == nil || in.Geometry.Root == nil {
		q.log.Warn("skipping shield recompute: fairing geometry missing", "part", q.owner)
		return nil
	}

	bounds := in.Geometry.RenderBounds()
	if bounds.Empty() {
		q.log.Warn("skipping shield recompute: empty render bounds", "part", q.owner)
		return nil
	}
	frustum := FrustumFor(in.Params)

	for _, s := range in.Siblings {
		if s.Ref == q.owner {
			continue
		}
		if !s.Known {
			q.log.Debug("sibling has no render geometry", "part", q.owner, "sibling", s.Ref)
			continue
		}
		if !bounds.Contains(s.Position) || !frustum.Contains(s.Position) {
			continue
		}
		q.shielded = append(q.shielded, s.Ref)
	}

	if reg != nil {
		for _, ref := range q.shielded {
			reg.AddShield(ref, q.owner)
		}
	}
	return q.Shielded()
}
