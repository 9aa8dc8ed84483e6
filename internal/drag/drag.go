// Package drag keeps the two static drag profiles of the fairing (panels
// closed and fully open) and blends between them by deployment progress.
package drag

import (
	"math"

	"github.com/sstutools/fairing/internal/geometry"
	"github.com/sstutools/fairing/pkg/core"
	"github.com/sstutools/fairing/pkg/host"
)

// Weights are the blend weights of the two profiles. They always sum to 1.
type Weights struct {
	Closed float64
	Open   float64
}

// Blend returns the weights for progress in [0,1]; values outside are clamped.
func Blend(progress float64) Weights {
	if math.IsNaN(progress) {
		progress = 0
	}
	p := math.Max(0, math.Min(1, progress))
	return Weights{Closed: 1 - p, Open: p}
}

// Approximator owns the rendered profiles.
type Approximator struct {
	renderer Renderer
	closed   core.DragCube
	open     core.DragCube
	ready    bool
}

// New creates an approximator; a nil renderer selects HullRenderer.
func New(r Renderer) *Approximator {
	if r == nil {
		r = HullRenderer{}
	}
	return &Approximator{renderer: r}
}

// Regenerate re-renders both profiles for a new shape. The panels are posed
// at openAngle and at 0 for the two snapshots and restored afterwards.
func (a *Approximator) Regenerate(f *geometry.Fairing, openAngle float64) {
	current := f.PanelRotation()

	f.SetPanelRotation(openAngle)
	a.open = a.renderer.Render(f.Root, core.DragCubeOpen)
	f.SetPanelRotation(0)
	a.closed = a.renderer.Render(f.Root, core.DragCubeClosed)

	f.SetPanelRotation(current)
	a.ready = true
}

// Ready reports whether profiles have been rendered.
func (a *Approximator) Ready() bool { return a.ready }

// Cubes returns the closed and open profiles.
func (a *Approximator) Cubes() (closed, open core.DragCube) {
	return a.closed, a.open
}

// Publish hands the rendered profiles to the host.
func (a *Approximator) Publish(store host.DragCubeStore) {
	if !a.ready || store == nil {
		return
	}
	store.ReplaceCubes(a.closed, a.open)
}

// Apply pushes the blend weights for progress to the host.
func (a *Approximator) Apply(w host.DragCubeWeighting, progress float64) Weights {
	weights := Blend(progress)
	if w == nil {
		return weights
	}
	w.SetWeight(core.DragCubeOpen, weights.Open)
	w.SetWeight(core.DragCubeClosed, weights.Closed)
	return weights
}
