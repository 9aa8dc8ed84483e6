package fairing

import (
	"math"

	"github.com/sstutools/fairing/internal/drag"
	"github.com/sstutools/fairing/internal/geometry"
	"github.com/sstutools/fairing/pkg/core"
)

// GroundBounds is the box used to put the vessel on the ground when it is
// unpacked in flight, centred on the part.
type GroundBounds struct {
	Diameter float64 `json:"diameter"`
	Height   float64 `json:"height"`
}

// Status is a point-in-time view of a module for display and telemetry.
type Status struct {
	Part        core.PartRef           `json:"part"`
	Scene       string                 `json:"scene"`
	Params      core.FairingParameters `json:"params"`
	Extras      Extras                 `json:"extras"`
	State       string                 `json:"state"`
	Angle       float64                `json:"angle"`
	Progress    float64                `json:"progress"`
	Weights     drag.Weights           `json:"weights"`
	Shielded    []core.PartRef         `json:"shielded"`
	Mass        float64                `json:"mass"`
	Cost        float64                `json:"cost"`
	CanDeploy   bool                   `json:"canDeploy"`
	CanDecouple bool                   `json:"canDecouple"`
	Bands       int                    `json:"bands"`
	Ground      GroundBounds           `json:"ground"`
	Rebuilds    int                    `json:"rebuilds"`
}

// Status returns the current status.
func (m *Module) Status() Status {
	return Status{
		Part:        m.part.Ref,
		Scene:       m.scene.String(),
		Params:      m.params,
		Extras:      m.Extras(),
		State:       m.State().String(),
		Angle:       m.machine.Angle(),
		Progress:    m.machine.Progress(),
		Weights:     m.weights,
		Shielded:    m.shields.Shielded(),
		Mass:        m.econ.Mass,
		Cost:        m.econ.Cost,
		CanDeploy:   m.CanDeploy(),
		CanDecouple: m.CanDecouple(),
		Bands:       geometry.BandCount(m.params.CurrentHeight, m.params.MaxPanelSectionHeight),
		Ground:      m.GroundBounds(),
		Rebuilds:    m.rebuilds,
	}
}

// GroundBounds spans the widest radius and the full height of the part.
func (m *Module) GroundBounds() GroundBounds {
	r := math.Max(m.params.BottomRadius, m.params.TopRadius)
	return GroundBounds{Diameter: 2 * r, Height: m.params.TotalHeight()}
}
