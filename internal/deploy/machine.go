// Package deploy implements the one-way panel deployment state machine:
// stowed -> deploying -> deployed -> decoupled.
package deploy

import (
	"math"

	"github.com/sstutools/fairing/pkg/core"
)

// Config holds the animation constants.
type Config struct {
	// TargetAngle is the fully open panel rotation in degrees.
	TargetAngle float64
	// Rate is the opening speed in degrees per second.
	Rate float64
}

// DefaultConfig matches the stock part configuration.
func DefaultConfig() Config {
	return Config{TargetAngle: 60, Rate: 5}
}

// Hooks are invoked on transitions. Any of them may be nil.
type Hooks struct {
	// SeverOuter releases the part above the fairing when deployment starts.
	SeverOuter func()
	// SeverInner releases the payload inside the fairing on decouple.
	SeverInner func()
	// OnRotation is called with every applied angle.
	OnRotation func(angle float64)
	// OnDeployed fires once when the target angle is reached.
	OnDeployed func()
}

// Machine tracks the deployment state and panel angle.
type Machine struct {
	cfg   Config
	hooks Hooks
	state core.DeploymentState
	angle float64
}

// New creates a stowed machine.
func New(cfg Config, hooks Hooks) *Machine {
	if cfg.TargetAngle <= 0 {
		cfg.TargetAngle = DefaultConfig().TargetAngle
	}
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultConfig().Rate
	}
	return &Machine{cfg: cfg, hooks: hooks}
}

// State returns the current state.
func (m *Machine) State() core.DeploymentState { return m.state }

// Angle returns the current panel rotation in degrees.
func (m *Machine) Angle() float64 { return m.angle }

// Config returns the machine configuration.
func (m *Machine) Config() Config { return m.cfg }

// Progress is the opening fraction in [0,1].
func (m *Machine) Progress() float64 {
	return clamp01(m.angle / m.cfg.TargetAngle)
}

// Deployed reports whether deployment has started (the persisted "deployed" flag).
func (m *Machine) Deployed() bool { return m.state != core.Stowed }

// Decoupled reports whether the inner attachment has been released.
func (m *Machine) Decoupled() bool { return m.state == core.Decoupled }

// Animating reports whether the panels are still opening.
func (m *Machine) Animating() bool { return m.state == core.Deploying }

// CanDeploy gates the deploy command and action.
func (m *Machine) CanDeploy() bool { return m.state == core.Stowed }

// CanDecouple gates the decouple command and action.
func (m *Machine) CanDecouple() bool { return m.state == core.Deployed }

// Deploy starts opening the panels and severs the outer attachment.
// It is a no-op unless the machine is stowed.
func (m *Machine) Deploy() bool {
	if m.state != core.Stowed {
		return false
	}
	m.state = core.Deploying
	if m.hooks.SeverOuter != nil {
		m.hooks.SeverOuter()
	}
	return true
}

// Advance opens the panels by delta degrees while deploying. It returns true
// on the call that reaches the target angle.
func (m *Machine) Advance(delta float64) bool {
	if m.state != core.Deploying {
		return false
	}
	if delta > 0 {
		m.angle += delta
	}
	reached := m.angle >= m.cfg.TargetAngle
	if reached {
		m.angle = m.cfg.TargetAngle
		m.state = core.Deployed
	}
	if m.hooks.OnRotation != nil {
		m.hooks.OnRotation(m.angle)
	}
	if reached && m.hooks.OnDeployed != nil {
		m.hooks.OnDeployed()
	}
	return reached
}

// Tick advances the animation by dt seconds at the configured rate.
func (m *Machine) Tick(dt float64) bool {
	return m.Advance(m.cfg.Rate * dt)
}

// Decouple releases the inner attachment. It is a no-op unless fully deployed.
func (m *Machine) Decouple() bool {
	if m.state != core.Deployed {
		return false
	}
	m.state = core.Decoupled
	if m.hooks.SeverInner != nil {
		m.hooks.SeverInner()
	}
	return true
}

// Activate is the staging action: deploy when stowed, decouple when deployed.
func (m *Machine) Activate() bool {
	switch m.state {
	case core.Stowed:
		return m.Deploy()
	case core.Deployed:
		return m.Decouple()
	}
	return false
}

// Restore rebuilds the state from persisted values without invoking any
// sever hook. An interrupted deployment resumes from the stored angle.
// decoupled implies deployed; a decoupled or stowed record snaps the angle
// to its stable value.
func (m *Machine) Restore(deployed, decoupled bool, angle float64) {
	m.state, m.angle = m.restored(deployed, decoupled, angle)
}

// Ahead reports whether restoring the given values would move the machine
// backwards: an earlier state, or a smaller angle in the same state.
func (m *Machine) Ahead(deployed, decoupled bool, angle float64) bool {
	state, a := m.restored(deployed, decoupled, angle)
	return state < m.state || (state == m.state && a < m.angle)
}

func (m *Machine) restored(deployed, decoupled bool, angle float64) (core.DeploymentState, float64) {
	if math.IsNaN(angle) {
		angle = 0
	}
	angle = math.Max(0, math.Min(angle, m.cfg.TargetAngle))
	switch {
	case decoupled:
		return core.Decoupled, m.cfg.TargetAngle
	case !deployed:
		return core.Stowed, 0
	case angle >= m.cfg.TargetAngle:
		return core.Deployed, m.cfg.TargetAngle
	default:
		return core.Deploying, angle
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
