// Package fairing is the per-part interstage fairing module. It owns the
// generated shell and deployment state of one part and keeps drag profiles,
// shielding, mass and cost and the persisted record in step with them.
package fairing

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sstutools/fairing/internal/config"
	"github.com/sstutools/fairing/internal/deploy"
	"github.com/sstutools/fairing/internal/drag"
	"github.com/sstutools/fairing/internal/economy"
	"github.com/sstutools/fairing/internal/geometry"
	"github.com/sstutools/fairing/internal/persist"
	"github.com/sstutools/fairing/internal/shield"
	"github.com/sstutools/fairing/pkg/core"
	"github.com/sstutools/fairing/pkg/host"
)

// Scene is the host scene the part lives in.
type Scene int

const (
	SceneEditor Scene = iota
	SceneFlight
)

func (s Scene) String() string {
	if s == SceneEditor {
		return "editor"
	}
	return "flight"
}

// Observer is notified after a rebuild and after every state transition.
type Observer interface {
	Rebuilt(s Status)
	StateChanged(s Status)
}

// Dependencies holds everything a Module needs from outside. Logger should
// already identify the part (see logging.SlogManager.PartLogger).
type Dependencies struct {
	Part     host.Part
	Logger   *slog.Logger
	Renderer drag.Renderer
	Observer Observer
}

// Module is the fairing controller of one part instance. It is not safe for
// concurrent use; the host drives it from its update step.
type Module struct {
	cfg   config.FairingConfig
	part  host.Part
	log   *slog.Logger
	obs   Observer
	scene Scene

	params core.FairingParameters
	editor editorFields

	shell   *geometry.Fairing
	machine *deploy.Machine
	drag    *drag.Approximator
	shields *shield.Query
	econ    core.Economics
	weights drag.Weights
	record  core.Record

	subs      []host.Subscription
	started   bool
	destroyed bool
	rebuilds  int
}

// New creates the module for deps.Part from cfg. cfg is expected to be
// normalized (see config.FairingConfig.Normalize).
func New(deps Dependencies, cfg config.FairingConfig, scene Scene) *Module {
	log := deps.Logger
	if log == nil {
		log = slog.Default().With("part", string(deps.Part.Ref))
	}

	m := &Module{
		cfg:     cfg,
		part:    deps.Part,
		log:     log,
		obs:     deps.Observer,
		scene:   scene,
		params:  paramsFromConfig(cfg),
		drag:    drag.New(deps.Renderer),
		shields: shield.New(deps.Part.Ref, log),
		record:  core.Record{},
		weights: drag.Blend(0),
	}
	m.machine = deploy.New(
		deploy.Config{TargetAngle: cfg.DeployedRotation, Rate: cfg.AnimationSpeed},
		deploy.Hooks{
			SeverOuter: func() { m.sever(cfg.TopNodeName) },
			SeverInner: func() { m.sever(cfg.InternalNodeName) },
			OnRotation: m.onRotation,
			OnDeployed: m.onDeployed,
		},
	)
	m.restoreEditorFields()
	return m
}

func paramsFromConfig(cfg config.FairingConfig) core.FairingParameters {
	return core.FairingParameters{
		BottomRadius:          cfg.BottomRadius,
		TopRadius:             cfg.TopRadius,
		CurrentHeight:         cfg.CurrentHeight,
		BaseHeight:            cfg.BaseHeight,
		BoltPanelHeight:       cfg.BoltPanelHeight,
		WallThickness:         cfg.WallThickness,
		NumRadialSections:     cfg.NumRadialSections,
		MaxPanelSectionHeight: cfg.MaxPanelSectionHeight,
		CylinderSides:         cfg.CylinderSides,
	}
}

func (m *Module) rates() economy.Rates {
	return economy.Rates{
		MassPerBaseVolume: m.cfg.MassPerBaseVolume,
		MassPerPanelArea:  m.cfg.MassPerPanelArea,
		CostPerBaseVolume: m.cfg.CostPerBaseVolume,
		CostPerPanelArea:  m.cfg.CostPerPanelArea,
	}
}

// Ref is the part this module belongs to.
func (m *Module) Ref() core.PartRef { return m.part.Ref }

// Params returns the current fairing parameters.
func (m *Module) Params() core.FairingParameters { return m.params }

// State returns the deployment state.
func (m *Module) State() core.DeploymentState { return m.machine.State() }

// Angle is the current panel opening angle in degrees.
func (m *Module) Angle() float64 { return m.machine.Angle() }

// Geometry returns the current shell, nil before Start or after Destroy.
func (m *Module) Geometry() *geometry.Fairing { return m.shell }

// Economics returns the last computed mass and cost.
func (m *Module) Economics() core.Economics { return m.econ }

// Record returns a copy of the persisted record as of the last update.
func (m *Module) Record() core.Record { return m.record.Clone() }

// Start builds the shell and subscribes to host events. Calling it twice has
// no further effect.
func (m *Module) Start() {
	if m.started || m.destroyed {
		return
	}
	m.started = true
	m.rebuild()
	m.applyScene()
	m.subscribe()
	m.log.Info("fairing started", "scene", m.scene.String(), "state", m.State().String())
}

// Destroy unsubscribes from host events, clears shields and releases the
// shell. The module is unusable afterwards.
func (m *Module) Destroy() {
	if m.destroyed {
		return
	}
	m.destroyed = true
	for _, s := range m.subs {
		s.Unsubscribe()
	}
	m.subs = nil
	m.shields.Clear(m.part.Shields)
	if m.shell != nil {
		m.shell.Release()
		m.shell = nil
	}
	m.log.Debug("fairing destroyed")
}

// rebuild regenerates everything derived from the parameters, in order:
// shell, attach nodes, drag profiles, shielding, mass and cost, record.
func (m *Module) rebuild() {
	if m.destroyed {
		return
	}
	if err := m.params.Validate(); err != nil {
		m.log.Error("invalid fairing parameters; reverting to configured defaults", "error", err)
		m.params = paramsFromConfig(m.cfg)
		m.restoreEditorFields()
	}

	if m.shell != nil {
		m.shell.Release()
		m.shell = nil
	}
	total := m.params.TotalHeight()
	m.shell = geometry.Build(m.params, -total/2)
	m.shell.SetPanelRotation(m.machine.Angle())
	m.applyScene()

	m.updateNodePositions()

	m.drag.Regenerate(m.shell, m.machine.Config().TargetAngle)
	if store, ok := m.part.Drag.(host.DragCubeStore); ok {
		m.drag.Publish(store)
	}
	m.weights = m.drag.Apply(m.part.Drag, m.machine.Progress())

	m.refreshShields()

	m.econ = economy.Compute(m.params, m.rates())

	m.save()
	m.rebuilds++
	m.log.Debug("fairing rebuilt",
		"bottomRadius", m.params.BottomRadius,
		"topRadius", m.params.TopRadius,
		"height", m.params.CurrentHeight,
		"bands", geometry.BandCount(m.params.CurrentHeight, m.params.MaxPanelSectionHeight),
		"mass", m.econ.Mass,
		"cost", m.econ.Cost,
	)
	if m.obs != nil {
		m.obs.Rebuilt(m.Status())
	}
}

// updateNodePositions moves the top, internal and bottom attach nodes to
// match the shell.
func (m *Module) updateNodePositions() {
	mover, ok := m.part.Graph.(host.NodeMover)
	if !ok {
		return
	}
	half := (m.params.CurrentHeight + m.params.BaseHeight) * 0.5
	mover.MoveNode(m.cfg.BottomNodeName, mgl64.Vec3{0, -half, 0})
	mover.MoveNode(m.cfg.InternalNodeName, mgl64.Vec3{0, -half + m.params.BaseHeight, 0})
	mover.MoveNode(m.cfg.TopNodeName, mgl64.Vec3{0, half, 0})
}

// refreshShields recomputes the shielded set. Missing host services skip
// the parts of the computation that need them.
func (m *Module) refreshShields() {
	in := shield.Input{
		Closed:   m.State() == core.Stowed,
		Geometry: m.shell,
		Params:   m.params,
	}
	if m.part.Graph != nil {
		_, in.TopAttached = m.part.Graph.FindAttachmentAt(m.cfg.TopNodeName)
	} else {
		m.log.Warn("no attachment graph; treating top node as empty")
	}
	if m.part.Vessel != nil {
		in.Siblings = m.part.Vessel.Siblings()
	}
	m.shields.Recompute(in, m.part.Shields)
}

func (m *Module) clearShields() {
	m.shields.Clear(m.part.Shields)
}

// sever detaches whatever is attached at node. A missing attachment is
// logged and skipped.
func (m *Module) sever(node string) {
	if m.part.Graph == nil {
		m.log.Warn("no attachment graph; cannot sever", "node", node)
		return
	}
	ref, ok := m.part.Graph.FindAttachmentAt(node)
	if !ok {
		m.log.Info("nothing attached; skipping sever", "node", node)
		return
	}
	if err := m.part.Graph.Sever(ref); err != nil {
		m.log.Error("sever failed", "node", node, "attached", string(ref), "error", err)
		return
	}
	m.log.Info("severed attachment", "node", node, "attached", string(ref))
}

func (m *Module) snapshot() persist.Snapshot {
	return persist.Snapshot{
		BottomRadius:    m.params.BottomRadius,
		TopRadius:       m.params.TopRadius,
		CurrentHeight:   m.params.CurrentHeight,
		CurrentRotation: m.machine.Angle(),
		Deployed:        m.machine.Deployed(),
		Decoupled:       m.machine.Decoupled(),
	}
}

func (m *Module) save() {
	persist.Save(m.record, m.snapshot())
}

// OnSave writes the persisted fields into rec.
func (m *Module) OnSave(rec core.Record) {
	persist.Save(rec, m.snapshot())
}

// OnLoad restores parameters and deployment state from rec. Malformed values
// fall back to the configured defaults and are returned after being logged.
// A started module rebuilds immediately and never moves its deployment
// backwards: deployment fields behind the current state are ignored.
func (m *Module) OnLoad(rec core.Record) []persist.Issue {
	defaults := persist.Snapshot{
		BottomRadius:  m.cfg.BottomRadius,
		TopRadius:     m.cfg.TopRadius,
		CurrentHeight: m.cfg.CurrentHeight,
	}
	limits := persist.Limits{
		MinHeight:   m.cfg.MinHeight,
		MaxHeight:   m.cfg.MaxHeight,
		MaxRotation: m.cfg.DeployedRotation,
	}
	snap, issues := persist.Load(rec, defaults, limits)
	for _, i := range issues {
		m.log.Warn("persisted value replaced", "key", i.Key, "value", i.Value, "reason", i.Reason)
	}

	m.params.BottomRadius = snap.BottomRadius
	m.params.TopRadius = snap.TopRadius
	m.params.CurrentHeight = snap.CurrentHeight
	if m.started && m.machine.Ahead(snap.Deployed, snap.Decoupled, snap.CurrentRotation) {
		m.log.Warn("record is behind the current deployment; keeping state",
			"state", m.State().String(), "angle", m.machine.Angle())
	} else {
		m.machine.Restore(snap.Deployed, snap.Decoupled, snap.CurrentRotation)
	}
	m.restoreEditorFields()

	if m.started {
		m.rebuild()
	} else {
		m.save()
	}
	return issues
}
