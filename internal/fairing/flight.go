package fairing

import "github.com/sstutools/fairing/pkg/core"

// Deploy starts opening the panels and releases the part above. It is a
// no-op unless the fairing is stowed.
func (m *Module) Deploy() bool {
	if m.destroyed || !m.machine.Deploy() {
		return false
	}
	m.transitioned()
	return true
}

// Decouple releases the payload inside the fairing. It is a no-op unless the
// panels are fully open.
func (m *Module) Decouple() bool {
	if m.destroyed || !m.machine.Decouple() {
		return false
	}
	m.transitioned()
	return true
}

// Activate is the staging action: deploy when stowed, decouple when deployed.
func (m *Module) Activate() bool {
	if m.destroyed || !m.machine.Activate() {
		return false
	}
	m.transitioned()
	return true
}

// FixedUpdate advances the panel animation by dt seconds.
func (m *Module) FixedUpdate(dt float64) {
	if m.destroyed || !m.machine.Animating() {
		return
	}
	m.machine.Tick(dt)
	m.save()
}

// CanDeploy reports whether the deploy command and action are available.
func (m *Module) CanDeploy() bool { return !m.destroyed && m.machine.CanDeploy() }

// CanDecouple reports whether the decouple command and action are available.
func (m *Module) CanDecouple() bool { return !m.destroyed && m.machine.CanDecouple() }

func (m *Module) transitioned() {
	m.refreshShields()
	m.save()
	m.log.Info("fairing state changed", "state", m.State().String(), "angle", m.machine.Angle())
	if m.obs != nil {
		m.obs.StateChanged(m.Status())
	}
}

func (m *Module) onRotation(angle float64) {
	if m.shell != nil {
		m.shell.SetPanelRotation(angle)
	}
	m.weights = m.drag.Apply(m.part.Drag, m.machine.Progress())
}

func (m *Module) onDeployed() {
	m.transitioned()
}

// Animating reports whether the panels are opening.
func (m *Module) Animating() bool {
	return m.machine.State() == core.Deploying
}
