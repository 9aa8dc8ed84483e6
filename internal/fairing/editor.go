package fairing

import (
	"math"

	"github.com/sstutools/fairing/pkg/core"
)

// editorFields split each adjustable dimension into whole steps, changed by
// the +/- commands, and a fine fraction of one step set by the sliders.
type editorFields struct {
	topRadius, bottomRadius, height                float64
	topExtra, bottomExtra, heightExtra             float64
	lastTopExtra, lastBottomExtra, lastHeightExtra float64
}

func splitStep(v, step float64) (whole, extra float64) {
	div := v / step
	n := math.Trunc(div)
	return n * step, div - n
}

// restoreEditorFields derives the editor split from the current parameters.
func (m *Module) restoreEditorFields() {
	e := &m.editor
	e.topRadius, e.topExtra = splitStep(m.params.TopRadius, m.cfg.TopRadiusAdjust)
	e.bottomRadius, e.bottomExtra = splitStep(m.params.BottomRadius, m.cfg.BottomRadiusAdjust)
	e.height, e.heightExtra = splitStep(m.params.CurrentHeight, m.cfg.HeightAdjust)
	e.lastTopExtra, e.lastBottomExtra, e.lastHeightExtra = e.topExtra, e.bottomExtra, e.heightExtra
}

// updateModelParameters recomputes the parameters from the editor split.
func (m *Module) updateModelParameters() {
	e := &m.editor
	e.lastTopExtra, e.lastBottomExtra, e.lastHeightExtra = e.topExtra, e.bottomExtra, e.heightExtra
	m.params.TopRadius = math.Min(e.topRadius+e.topExtra*m.cfg.TopRadiusAdjust, m.cfg.MaxRadius)
	m.params.BottomRadius = math.Min(e.bottomRadius+e.bottomExtra*m.cfg.BottomRadiusAdjust, m.cfg.MaxRadius)
	h := e.height + e.heightExtra*m.cfg.HeightAdjust
	m.params.CurrentHeight = math.Max(m.cfg.MinHeight, math.Min(h, m.cfg.MaxHeight))
}

func (m *Module) slidersChanged() bool {
	e := &m.editor
	return e.lastTopExtra != e.topExtra || e.lastBottomExtra != e.bottomExtra || e.lastHeightExtra != e.heightExtra
}

// editorChanged applies an editor adjustment and tells the rest of the
// vessel about it.
func (m *Module) editorChanged() {
	m.updateModelParameters()
	m.rebuild()
	if m.scene == SceneEditor && m.part.Events != nil {
		m.part.Events.Publish(core.EventEditorShipModified, m.part.Ref)
	}
}

// editable reports whether shape commands are accepted: only in the editor,
// and never once the panels have started to open.
func (m *Module) editable() bool {
	return m.started && !m.destroyed && m.scene == SceneEditor && m.State() == core.Stowed
}

// IncreaseHeight adds one height step while below the maximum.
func (m *Module) IncreaseHeight() bool {
	if !m.editable() || m.editor.height >= m.cfg.MaxHeight {
		return false
	}
	m.editor.height = math.Min(m.editor.height+m.cfg.HeightAdjust, m.cfg.MaxHeight)
	m.editorChanged()
	return true
}

// DecreaseHeight removes one height step while above the minimum.
func (m *Module) DecreaseHeight() bool {
	if !m.editable() || m.editor.height <= m.cfg.MinHeight {
		return false
	}
	m.editor.height = math.Max(m.editor.height-m.cfg.HeightAdjust, m.cfg.MinHeight)
	m.editorChanged()
	return true
}

// IncreaseTopRadius adds one radius step up to the maximum radius.
func (m *Module) IncreaseTopRadius() bool {
	return m.stepRadius(&m.editor.topRadius, m.cfg.TopRadiusAdjust)
}

// DecreaseTopRadius removes one radius step, never going below one step.
func (m *Module) DecreaseTopRadius() bool {
	return m.stepRadius(&m.editor.topRadius, -m.cfg.TopRadiusAdjust)
}

// IncreaseBottomRadius adds one radius step up to the maximum radius.
func (m *Module) IncreaseBottomRadius() bool {
	return m.stepRadius(&m.editor.bottomRadius, m.cfg.BottomRadiusAdjust)
}

// DecreaseBottomRadius removes one radius step, never going below one step.
func (m *Module) DecreaseBottomRadius() bool {
	return m.stepRadius(&m.editor.bottomRadius, -m.cfg.BottomRadiusAdjust)
}

func (m *Module) stepRadius(r *float64, delta float64) bool {
	if !m.editable() {
		return false
	}
	step := math.Abs(delta)
	if delta > 0 {
		if *r >= m.cfg.MaxRadius {
			return false
		}
		*r = math.Min(*r+step, m.cfg.MaxRadius)
	} else {
		if *r <= step {
			return false
		}
		*r = math.Max(*r-step, step)
	}
	m.editorChanged()
	return true
}

// Extras are the fine slider values, each a fraction of one step in [0,1].
type Extras struct {
	TopRadius    float64 `json:"topRadius"`
	BottomRadius float64 `json:"bottomRadius"`
	Height       float64 `json:"height"`
}

// Extras returns the current slider values.
func (m *Module) Extras() Extras {
	return Extras{TopRadius: m.editor.topExtra, BottomRadius: m.editor.bottomExtra, Height: m.editor.heightExtra}
}

// SetExtras stores new slider values. Like the host sliders they take effect
// on the next editor-ship-modified event, and only in the editor while
// stowed.
func (m *Module) SetExtras(x Extras) bool {
	if !m.editable() {
		return false
	}
	m.editor.topExtra = clampUnit(x.TopRadius)
	m.editor.bottomExtra = clampUnit(x.BottomRadius)
	m.editor.heightExtra = clampUnit(x.Height)
	return true
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// SetScene switches between editor and flight presentation.
func (m *Module) SetScene(s Scene) {
	m.scene = s
	m.applyScene()
}

// Scene returns the current scene.
func (m *Module) Scene() Scene { return m.scene }

func (m *Module) applyScene() {
	if m.shell == nil {
		return
	}
	if m.scene == SceneEditor {
		m.shell.SetPanelOpacity(m.cfg.EditorOpacity)
		m.shell.EnableEditorColliders(true)
		return
	}
	m.shell.SetPanelOpacity(1)
	m.shell.EnableEditorColliders(false)
}
