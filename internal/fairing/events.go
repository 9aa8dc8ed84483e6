package fairing

import "github.com/sstutools/fairing/pkg/core"

func (m *Module) subscribe() {
	bus := m.part.Events
	if bus == nil {
		m.log.Warn("no event bus; shielding will only refresh on rebuild")
		return
	}
	m.subs = append(m.subs,
		bus.Subscribe(core.EventEditorShipModified, func(any) { m.onEditorShipModified() }),
		bus.Subscribe(core.EventVesselModified, func(any) { m.refreshShields() }),
		bus.Subscribe(core.EventVesselGoOffRails, func(any) { m.refreshShields() }),
		bus.Subscribe(core.EventVesselGoOnRails, func(any) { m.clearShields() }),
		bus.Subscribe(core.EventPartDie, m.onPartDie),
		bus.Subscribe(core.EventExternalGeometryChanged, func(any) { m.rebuild() }),
	)
}

func (m *Module) onEditorShipModified() {
	if m.destroyed {
		return
	}
	if m.editable() && m.slidersChanged() {
		m.updateModelParameters()
		m.rebuild()
	}
	m.refreshShields()
	if m.scene == SceneEditor && m.shell != nil {
		m.shell.SetPanelOpacity(m.cfg.EditorOpacity)
	}
}

func (m *Module) onPartDie(payload any) {
	if m.destroyed {
		return
	}
	m.clearShields()
	if ref, ok := payload.(core.PartRef); ok && ref == m.part.Ref {
		return
	}
	m.refreshShields()
}
