// pkg/core/fairing.go
package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidParameters is wrapped by every FairingParameters validation failure.
var ErrInvalidParameters = errors.New("invalid fairing parameters")

// FairingParameters is the complete input set of the fairing geometry generator.
// Only the radii and CurrentHeight are user adjustable; the rest comes from config.
type FairingParameters struct {
	BottomRadius          float64
	TopRadius             float64
	CurrentHeight         float64
	BaseHeight            float64
	BoltPanelHeight       float64
	WallThickness         float64
	NumRadialSections     int
	MaxPanelSectionHeight float64
	CylinderSides         int
}

// Validate reports contract violations that would make the geometry undefined.
func (p FairingParameters) Validate() error {
	switch {
	case p.BottomRadius < 0 || p.TopRadius < 0:
		return fmt.Errorf("%w: negative radius (bottom=%g, top=%g)", ErrInvalidParameters, p.BottomRadius, p.TopRadius)
	case p.NumRadialSections < 1:
		return fmt.Errorf("%w: numRadialSections=%d", ErrInvalidParameters, p.NumRadialSections)
	case p.CurrentHeight <= 0:
		return fmt.Errorf("%w: currentHeight=%g", ErrInvalidParameters, p.CurrentHeight)
	case p.MaxPanelSectionHeight <= 0:
		return fmt.Errorf("%w: maxPanelSectionHeight=%g", ErrInvalidParameters, p.MaxPanelSectionHeight)
	case p.BaseHeight < 0 || p.BoltPanelHeight < 0 || p.WallThickness < 0:
		return fmt.Errorf("%w: negative base/bolt/wall dimension", ErrInvalidParameters)
	case p.CylinderSides < p.NumRadialSections:
		return fmt.Errorf("%w: cylinderSides=%d below numRadialSections=%d", ErrInvalidParameters, p.CylinderSides, p.NumRadialSections)
	}
	return nil
}

// TotalHeight is the base plus the panel height.
func (p FairingParameters) TotalHeight() float64 {
	return p.BaseHeight + p.CurrentHeight
}

// DeploymentState is the lifecycle of the fairing panels.
// Transitions only move forward.
type DeploymentState int

const (
	Stowed DeploymentState = iota
	Deploying
	Deployed
	Decoupled
)

var deploymentStateNames = map[DeploymentState]string{
	Stowed:    "stowed",
	Deploying: "deploying",
	Deployed:  "deployed",
	Decoupled: "decoupled",
}

func (s DeploymentState) String() string {
	if name, ok := deploymentStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("DeploymentState(%d)", int(s))
}

// ErrUnknownState is returned by ParseDeploymentState for unrecognized input.
var ErrUnknownState = errors.New("unknown deployment state")

// ParseDeploymentState maps a persisted state name back to its value.
// Matching is case-insensitive; anything else is an error so callers can
// apply their documented default explicitly.
func ParseDeploymentState(s string) (DeploymentState, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for state, name := range deploymentStateNames {
		if name == want {
			return state, nil
		}
	}
	return Stowed, fmt.Errorf("%w: %q", ErrUnknownState, s)
}

// Economics holds the derived part mass and cost.
type Economics struct {
	Mass float64
	Cost float64
}
