// Package economy derives fairing mass and cost from its dimensions.
package economy

import (
	"math"

	"github.com/sstutools/fairing/pkg/core"
)

// Rates are the per-unit mass and cost constants.
type Rates struct {
	MassPerBaseVolume float64 `mapstructure:"massPerBaseVolume"`
	MassPerPanelArea  float64 `mapstructure:"massPerPanelArea"`
	CostPerBaseVolume float64 `mapstructure:"costPerBaseVolume"`
	CostPerPanelArea  float64 `mapstructure:"costPerPanelArea"`
}

// DefaultRates are the stock part values.
func DefaultRates() Rates {
	return Rates{
		MassPerBaseVolume: 0.5,
		MassPerPanelArea:  0.025,
		CostPerBaseVolume: 1500,
		CostPerPanelArea:  50,
	}
}

// BaseVolume approximates the solid base ring as a full cylinder.
func BaseVolume(p core.FairingParameters) float64 {
	return p.BottomRadius * p.BottomRadius * p.BaseHeight * math.Pi
}

// PanelArea approximates the panel skin by the mean-radius lateral area.
func PanelArea(p core.FairingParameters) float64 {
	avg := p.BottomRadius + (p.TopRadius-p.BottomRadius)*0.5
	return avg * 2 * math.Pi * p.CurrentHeight
}

// Compute returns mass and cost for p.
func Compute(p core.FairingParameters, r Rates) core.Economics {
	v := BaseVolume(p)
	a := PanelArea(p)
	return core.Economics{
		Mass: v*r.MassPerBaseVolume + a*r.MassPerPanelArea,
		Cost: v*r.CostPerBaseVolume + a*r.CostPerPanelArea,
	}
}
