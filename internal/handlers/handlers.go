// Package handlers turns host commands into calls on fairing modules. Every
// handler runs under one lock, so modules are only ever driven from one
// goroutine at a time.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sstutools/fairing/internal/cache"
	"github.com/sstutools/fairing/internal/config"
	"github.com/sstutools/fairing/internal/dispatcher"
	"github.com/sstutools/fairing/internal/fairing"
	"github.com/sstutools/fairing/internal/logging"
	"github.com/sstutools/fairing/internal/queue"
	"github.com/sstutools/fairing/internal/sim"
	"github.com/sstutools/fairing/internal/storage"
	"github.com/sstutools/fairing/internal/util"
	"github.com/sstutools/fairing/pkg/core"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/sstutools/fairing/internal/handlers"

var (
	ErrInvalidArgs = errors.New("invalid arguments")
	ErrUnknownPart = errors.New("unknown fairing")
	ErrNotEditable = errors.New("fairing shape is locked outside the editor or once deployed")
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	World      *sim.World
	Modules    *cache.ModuleCache
	Backend    storage.Backend
	Samples    *queue.Queue[core.StateSample]
	LogManager *logging.SlogManager
	Config     config.FairingConfig
	Craft      string
}

// Service provides handler methods for the fairing commands
type Service struct {
	deps Dependencies
	log  *slog.Logger
	mu   sync.Mutex
	now  func() time.Time

	samples     cache.SafeCounter
	rebuilds    metric.Int64Counter
	transitions metric.Int64Counter
}

// NewService creates a new handler service
func NewService(deps Dependencies) (*Service, error) {
	if deps.World == nil {
		deps.World = sim.NewWorld()
	}
	if deps.Modules == nil {
		deps.Modules = cache.NewModuleCache()
	}
	if deps.Samples == nil {
		deps.Samples = queue.New[core.StateSample]()
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}

	s := &Service{
		deps: deps,
		log:  deps.LogManager.Logger(),
		now:  time.Now,
	}

	m := otel.Meter(instrumentationName)
	var err error
	s.rebuilds, err = m.Int64Counter(
		"fairing.rebuilds",
		metric.WithDescription("Fairing shell rebuilds"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rebuild counter: %w", err)
	}
	s.transitions, err = m.Int64Counter(
		"fairing.transitions",
		metric.WithDescription("Fairing deployment state transitions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transition counter: %w", err)
	}
	return s, nil
}

// World returns the simulated vessel the service drives.
func (s *Service) World() *sim.World { return s.deps.World }

// Modules returns the live module registry.
func (s *Service) Modules() *cache.ModuleCache { return s.deps.Modules }

// SampleCount is the number of telemetry samples queued so far.
func (s *Service) SampleCount() int { return s.samples.Value() }

// Rebuilt implements fairing.Observer.
func (s *Service) Rebuilt(st fairing.Status) {
	s.rebuilds.Add(context.Background(), 1, metric.WithAttributes(attribute.String("part", string(st.Part))))
	s.push(core.SampleRebuilt, st)
}

// StateChanged implements fairing.Observer.
func (s *Service) StateChanged(st fairing.Status) {
	s.transitions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("part", string(st.Part)),
		attribute.String("state", st.State),
	))
	s.push(core.SampleState, st)
}

func (s *Service) push(kind string, st fairing.Status) {
	s.deps.Samples.Push(core.StateSample{
		Time:     s.now(),
		Craft:    s.deps.Craft,
		Part:     st.Part,
		Kind:     kind,
		State:    st.State,
		Angle:    st.Angle,
		Progress: st.Progress,
		Height:   st.Params.CurrentHeight,
		Mass:     st.Mass,
		Cost:     st.Cost,
		Bands:    st.Bands,
		Shielded: append([]core.PartRef(nil), st.Shielded...),
	})
	s.samples.Inc()
}

// RegisterHandlers registers all fairing commands with the dispatcher.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Lifecycle
	d.Register(":FAIRING:NEW:", s.locked(s.handleNew), dispatcher.Logged())
	d.Register(":FAIRING:REMOVE:", s.locked(s.handleRemove), dispatcher.Logged())
	d.Register(":FAIRING:SYMMETRY:", s.locked(s.handleSymmetry), dispatcher.Logged())
	d.Register(":FAIRING:SCENE:", s.locked(s.handleScene), dispatcher.Logged())

	// Editor shape commands, applied across symmetry
	d.Register(":FAIRING:HEIGHT:INC:", s.locked(s.editor((*fairing.Module).IncreaseHeight)), dispatcher.Logged())
	d.Register(":FAIRING:HEIGHT:DEC:", s.locked(s.editor((*fairing.Module).DecreaseHeight)), dispatcher.Logged())
	d.Register(":FAIRING:TOPRAD:INC:", s.locked(s.editor((*fairing.Module).IncreaseTopRadius)), dispatcher.Logged())
	d.Register(":FAIRING:TOPRAD:DEC:", s.locked(s.editor((*fairing.Module).DecreaseTopRadius)), dispatcher.Logged())
	d.Register(":FAIRING:BOTRAD:INC:", s.locked(s.editor((*fairing.Module).IncreaseBottomRadius)), dispatcher.Logged())
	d.Register(":FAIRING:BOTRAD:DEC:", s.locked(s.editor((*fairing.Module).DecreaseBottomRadius)), dispatcher.Logged())
	d.Register(":FAIRING:EXTRA:", s.locked(s.handleExtra), dispatcher.Logged())

	// Flight
	d.Register(":FAIRING:DEPLOY:", s.locked(s.action((*fairing.Module).Deploy)), dispatcher.Logged())
	d.Register(":FAIRING:DECOUPLE:", s.locked(s.action((*fairing.Module).Decouple)), dispatcher.Logged())
	d.Register(":FAIRING:STAGE:", s.locked(s.action((*fairing.Module).Activate)), dispatcher.Logged())
	d.Register(":FAIRING:TICK:", s.locked(s.handleTick))

	// Inspection and persistence
	d.Register(":FAIRING:STATUS:", s.locked(s.handleStatus))
	d.Register(":FAIRING:SAVE:", s.locked(s.handleSave), dispatcher.Logged())

	// Vessel
	d.Register(":PART:ADD:", s.locked(s.handlePartAdd), dispatcher.Logged())
	d.Register(":PART:ATTACH:", s.locked(s.handlePartAttach), dispatcher.Logged())
	d.Register(":PART:REMOVE:", s.locked(s.handlePartRemove), dispatcher.Logged())

	// Host events
	for _, topic := range core.Topics {
		d.Register(EventCommand(topic), s.locked(s.publisher(topic)), dispatcher.Logged())
	}
}

// EventCommand is the command that publishes topic on the vessel bus, e.g.
// ":EVENT:VESSEL:MODIFIED:" for "vessel.modified".
func EventCommand(topic core.Topic) string {
	return ":EVENT:" + strings.ToUpper(strings.ReplaceAll(string(topic), ".", ":")) + ":"
}

func (s *Service) locked(h dispatcher.HandlerFunc) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		e.Args = util.CleanArgs(e.Args)
		return h(e)
	}
}

func (s *Service) module(args []string) (*fairing.Module, error) {
	if len(args) < 1 || args[0] == "" {
		return nil, fmt.Errorf("%w: part reference required", ErrInvalidArgs)
	}
	mod, ok := s.deps.Modules.Get(core.PartRef(args[0]))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPart, args[0])
	}
	return mod, nil
}

func parseScene(v string) (fairing.Scene, error) {
	switch strings.ToLower(v) {
	case "", "editor":
		return fairing.SceneEditor, nil
	case "flight":
		return fairing.SceneFlight, nil
	}
	return 0, fmt.Errorf("%w: scene %q", ErrInvalidArgs, v)
}

func parseVec(args []string, from int) (mgl64.Vec3, error) {
	var v mgl64.Vec3
	for i := 0; i < 3; i++ {
		f, err := util.ArgFloatOr(args, from+i, 0)
		if err != nil {
			return v, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
		}
		v[i] = f
	}
	return v, nil
}

// handleNew creates the module of a part: [ref, scene, x, y, z]. A stored
// record for the part is loaded before the module starts.
func (s *Service) handleNew(e dispatcher.Event) (any, error) {
	if len(e.Args) < 1 || e.Args[0] == "" {
		return nil, fmt.Errorf("%w: part reference required", ErrInvalidArgs)
	}
	ref := core.PartRef(e.Args[0])
	scene, err := parseScene(argAt(e.Args, 1))
	if err != nil {
		return nil, err
	}
	pos, err := parseVec(e.Args, 2)
	if err != nil {
		return nil, err
	}

	// the old module owns the same shields; release them first
	if prev, ok := s.deps.Modules.Remove(ref); ok {
		prev.Destroy()
	}
	if p, ok := s.deps.World.Part(ref); !ok || len(e.Args) > 2 {
		known := !ok || p.Known
		s.deps.World.AddPart(ref, pos, known)
	}

	var mod *fairing.Module
	logger := s.deps.LogManager.PartLogger(string(ref), func() (string, float64, bool) {
		if mod == nil {
			return "", 0, false
		}
		return mod.State().String(), mod.Angle(), true
	})
	mod = fairing.New(fairing.Dependencies{
		Part:     s.deps.World.Host(ref),
		Logger:   logger,
		Observer: s,
	}, s.deps.Config, scene)

	if err := s.load(mod); err != nil {
		return nil, err
	}
	mod.Start()

	s.deps.Modules.Add(mod)
	return mod.Status(), nil
}

func (s *Service) load(mod *fairing.Module) error {
	if s.deps.Backend == nil {
		return nil
	}
	rec, err := s.deps.Backend.LoadRecord(s.deps.Craft, mod.Ref())
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, issue := range mod.OnLoad(rec.Record) {
		s.log.Warn("Stored fairing record repaired", "part", string(mod.Ref()), "issue", issue.String())
	}
	return nil
}

func (s *Service) handleRemove(e dispatcher.Event) (any, error) {
	mod, err := s.module(e.Args)
	if err != nil {
		return nil, err
	}
	s.remove(mod)
	return nil, nil
}

func (s *Service) remove(mod *fairing.Module) {
	mod.Destroy()
	s.deps.Modules.Remove(mod.Ref())
	s.deps.World.Remove(mod.Ref())
}

func (s *Service) handleSymmetry(e dispatcher.Event) (any, error) {
	if len(e.Args) < 2 {
		return nil, fmt.Errorf("%w: at least two parts required", ErrInvalidArgs)
	}
	refs := make([]core.PartRef, 0, len(e.Args))
	for _, a := range e.Args {
		if _, ok := s.deps.Modules.Get(core.PartRef(a)); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPart, a)
		}
		refs = append(refs, core.PartRef(a))
	}
	s.deps.Modules.Link(refs...)
	return len(refs), nil
}

func (s *Service) handleScene(e dispatcher.Event) (any, error) {
	mod, err := s.module(e.Args)
	if err != nil {
		return nil, err
	}
	scene, err := parseScene(argAt(e.Args, 1))
	if err != nil {
		return nil, err
	}
	mod.SetScene(scene)
	return mod.Status(), nil
}

// editor applies a shape command to the part and its symmetry counterparts.
func (s *Service) editor(apply func(*fairing.Module) bool) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		mod, err := s.module(e.Args)
		if err != nil {
			return nil, err
		}
		for _, m := range s.deps.Modules.Group(mod.Ref()) {
			apply(m)
		}
		return mod.Status(), nil
	}
}

// handleExtra sets one fine slider: [ref, top|bottom|height, value].
func (s *Service) handleExtra(e dispatcher.Event) (any, error) {
	mod, err := s.module(e.Args)
	if err != nil {
		return nil, err
	}
	v, err := util.ArgFloat(e.Args, 2)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	which := argAt(e.Args, 1)
	set := map[string]func(*fairing.Extras){
		"top":    func(x *fairing.Extras) { x.TopRadius = v },
		"bottom": func(x *fairing.Extras) { x.BottomRadius = v },
		"height": func(x *fairing.Extras) { x.Height = v },
	}[which]
	if set == nil {
		return nil, fmt.Errorf("%w: slider %q", ErrInvalidArgs, which)
	}

	if !mod.SetExtras(withSlider(mod, set)) {
		return nil, fmt.Errorf("%w: %s", ErrNotEditable, mod.Ref())
	}
	for _, m := range s.deps.Modules.Group(mod.Ref())[1:] {
		m.SetExtras(withSlider(m, set))
	}
	s.deps.World.Bus.Publish(core.EventEditorShipModified, mod.Ref())
	return mod.Status(), nil
}

func withSlider(m *fairing.Module, set func(*fairing.Extras)) fairing.Extras {
	x := m.Extras()
	set(&x)
	return x
}

func (s *Service) action(apply func(*fairing.Module) bool) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		mod, err := s.module(e.Args)
		if err != nil {
			return nil, err
		}
		changed := apply(mod)
		st := mod.Status()
		return map[string]any{"changed": changed, "status": st}, nil
	}
}

// handleTick advances every module: [dt, steps].
func (s *Service) handleTick(e dispatcher.Event) (any, error) {
	dt, err := util.ArgFloat(e.Args, 0)
	if err != nil || dt <= 0 {
		return nil, fmt.Errorf("%w: positive dt required", ErrInvalidArgs)
	}
	steps := 1
	if len(e.Args) > 1 {
		steps, err = util.ArgInt(e.Args, 1)
		if err != nil || steps < 1 {
			return nil, fmt.Errorf("%w: steps must be a positive integer", ErrInvalidArgs)
		}
	}

	angles := make(map[core.PartRef]float64)
	for _, ref := range s.deps.Modules.Refs() {
		mod, _ := s.deps.Modules.Get(ref)
		if !mod.Animating() {
			continue
		}
		for i := 0; i < steps && mod.Animating(); i++ {
			mod.FixedUpdate(dt)
		}
		st := mod.Status()
		if st.State == core.Deploying.String() {
			s.push(core.SampleState, st)
		}
		angles[ref] = st.Angle
	}
	return angles, nil
}

func (s *Service) handleStatus(e dispatcher.Event) (any, error) {
	if len(e.Args) > 0 && e.Args[0] != "" {
		mod, err := s.module(e.Args)
		if err != nil {
			return nil, err
		}
		return mod.Status(), nil
	}
	refs := s.deps.Modules.Refs()
	out := make([]fairing.Status, 0, len(refs))
	for _, ref := range refs {
		mod, _ := s.deps.Modules.Get(ref)
		out = append(out, mod.Status())
	}
	return out, nil
}

// handleSave writes the record of one part, or of every part when no
// reference is given.
func (s *Service) handleSave(e dispatcher.Event) (any, error) {
	if s.deps.Backend == nil {
		return nil, errors.New("no record store configured")
	}
	var mods []*fairing.Module
	if len(e.Args) > 0 && e.Args[0] != "" {
		mod, err := s.module(e.Args)
		if err != nil {
			return nil, err
		}
		mods = append(mods, mod)
	} else {
		for _, ref := range s.deps.Modules.Refs() {
			mod, _ := s.deps.Modules.Get(ref)
			mods = append(mods, mod)
		}
	}

	var errs []error
	saved := 0
	for _, mod := range mods {
		rec := core.Record{}
		mod.OnSave(rec)
		err := s.deps.Backend.SaveRecord(&core.PartRecord{
			Craft:  s.deps.Craft,
			Part:   mod.Ref(),
			Record: rec,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		saved++
	}
	return saved, errors.Join(errs...)
}

// handlePartAdd places a plain part: [ref, x, y, z, known].
func (s *Service) handlePartAdd(e dispatcher.Event) (any, error) {
	if len(e.Args) < 1 || e.Args[0] == "" {
		return nil, fmt.Errorf("%w: part reference required", ErrInvalidArgs)
	}
	pos, err := parseVec(e.Args, 1)
	if err != nil {
		return nil, err
	}
	known := !strings.EqualFold(argAt(e.Args, 4), "false")
	s.deps.World.AddPart(core.PartRef(e.Args[0]), pos, known)
	return nil, nil
}

// handlePartAttach connects parts: [owner, node, other].
func (s *Service) handlePartAttach(e dispatcher.Event) (any, error) {
	if len(e.Args) < 3 {
		return nil, fmt.Errorf("%w: owner, node and part required", ErrInvalidArgs)
	}
	err := s.deps.World.Attach(core.PartRef(e.Args[0]), e.Args[1], core.PartRef(e.Args[2]))
	return nil, err
}

func (s *Service) handlePartRemove(e dispatcher.Event) (any, error) {
	if len(e.Args) < 1 || e.Args[0] == "" {
		return nil, fmt.Errorf("%w: part reference required", ErrInvalidArgs)
	}
	ref := core.PartRef(e.Args[0])
	if mod, ok := s.deps.Modules.Get(ref); ok {
		s.remove(mod)
		return nil, nil
	}
	s.deps.World.Remove(ref)
	return nil, nil
}

// publisher raises topic on the vessel bus. The first argument, if any, is
// passed as a part reference payload.
func (s *Service) publisher(topic core.Topic) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		var payload any
		if len(e.Args) > 0 && e.Args[0] != "" {
			payload = core.PartRef(e.Args[0])
		}
		s.deps.World.Bus.Publish(topic, payload)
		return nil, nil
	}
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
