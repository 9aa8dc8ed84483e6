// Package sim is an in-memory stand-in for the game host: one vessel of
// parts with attach nodes, a shield registry, per-part drag cubes and an
// event bus. The CLI and the module tests drive fairings through it.
package sim

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sstutools/fairing/internal/events"
	"github.com/sstutools/fairing/pkg/core"
	"github.com/sstutools/fairing/pkg/host"
)

var (
	ErrUnknownPart = errors.New("unknown part")
	ErrNotAttached = errors.New("part is not attached")
)

// Part is one part of the simulated vessel.
type Part struct {
	Ref      core.PartRef
	Position mgl64.Vec3
	// Known is false for parts without render geometry.
	Known bool

	onVessel bool
	nodes    map[string]mgl64.Vec3
	attached map[string]core.PartRef
	drag     *DragCubes
}

// World is a single simulated vessel.
type World struct {
	Bus     *events.Bus
	Shields *ShieldRegistry

	parts map[core.PartRef]*Part
	order []core.PartRef
	// SeverErr, when set, is returned by every Sever call.
	SeverErr error
	severed  []core.PartRef
}

// NewWorld creates an empty vessel.
func NewWorld() *World {
	return &World{
		Bus:     events.New(),
		Shields: NewShieldRegistry(),
		parts:   make(map[core.PartRef]*Part),
	}
}

// AddPart places a part on the vessel at pos.
func (w *World) AddPart(ref core.PartRef, pos mgl64.Vec3, known bool) *Part {
	p, ok := w.parts[ref]
	if !ok {
		p = &Part{
			Ref:      ref,
			nodes:    make(map[string]mgl64.Vec3),
			attached: make(map[string]core.PartRef),
			drag:     NewDragCubes(),
		}
		w.parts[ref] = p
		w.order = append(w.order, ref)
	}
	p.Position, p.Known, p.onVessel = pos, known, true
	return p
}

// Part returns the part ref, if present.
func (w *World) Part(ref core.PartRef) (*Part, bool) {
	p, ok := w.parts[ref]
	return p, ok
}

// Attach connects other to owner's node.
func (w *World) Attach(owner core.PartRef, node string, other core.PartRef) error {
	p, ok := w.parts[owner]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPart, owner)
	}
	if _, ok := w.parts[other]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPart, other)
	}
	p.attached[node] = other
	return nil
}

// Remove destroys a part and announces it on the bus.
func (w *World) Remove(ref core.PartRef) {
	p, ok := w.parts[ref]
	if !ok || !p.onVessel {
		return
	}
	p.onVessel = false
	w.detachEverywhere(ref)
	w.Bus.Publish(core.EventPartDie, ref)
}

// Severed returns the parts released by Sever, in order.
func (w *World) Severed() []core.PartRef {
	return append([]core.PartRef(nil), w.severed...)
}

// NodePosition returns where owner's node currently sits.
func (w *World) NodePosition(owner core.PartRef, node string) (mgl64.Vec3, bool) {
	p, ok := w.parts[owner]
	if !ok {
		return mgl64.Vec3{}, false
	}
	pos, ok := p.nodes[node]
	return pos, ok
}

// DragCubes returns the drag cube state of a part.
func (w *World) DragCubes(ref core.PartRef) *DragCubes {
	if p, ok := w.parts[ref]; ok {
		return p.drag
	}
	return nil
}

// Host returns the host services seen by the module of part ref.
func (w *World) Host(ref core.PartRef) host.Part {
	p := w.parts[ref]
	if p == nil {
		p = w.AddPart(ref, mgl64.Vec3{}, true)
	}
	return host.Part{
		Ref:     ref,
		Graph:   &graph{world: w, owner: p},
		Vessel:  &vessel{world: w, owner: p},
		Drag:    p.drag,
		Shields: w.Shields,
		Events:  w.Bus,
	}
}

func (w *World) detachEverywhere(ref core.PartRef) {
	for _, p := range w.parts {
		for node, other := range p.attached {
			if other == ref {
				delete(p.attached, node)
			}
		}
	}
}

type graph struct {
	world *World
	owner *Part
}

func (g *graph) FindAttachmentAt(node string) (core.PartRef, bool) {
	ref, ok := g.owner.attached[node]
	return ref, ok
}

// Sever releases ref into its own vessel, taking it off this one.
func (g *graph) Sever(ref core.PartRef) error {
	if g.world.SeverErr != nil {
		return g.world.SeverErr
	}
	p, ok := g.world.parts[ref]
	if !ok || !p.onVessel {
		return fmt.Errorf("%w: %s", ErrNotAttached, ref)
	}
	p.onVessel = false
	g.world.detachEverywhere(ref)
	g.world.severed = append(g.world.severed, ref)
	g.world.Bus.Publish(core.EventVesselModified, ref)
	return nil
}

func (g *graph) MoveNode(node string, pos mgl64.Vec3) {
	g.owner.nodes[node] = pos
}

type vessel struct {
	world *World
	owner *Part
}

// Siblings lists the other parts on the vessel with positions relative to
// the owner.
func (v *vessel) Siblings() []core.Sibling {
	var out []core.Sibling
	for _, ref := range v.world.order {
		p := v.world.parts[ref]
		if !p.onVessel || p == v.owner {
			continue
		}
		out = append(out, core.Sibling{Ref: ref, Position: p.Position.Sub(v.owner.Position), Known: p.Known})
	}
	return out
}

// DragCubes records the cubes and weights a module publishes.
type DragCubes struct {
	weights map[string]float64
	cubes   []core.DragCube
	// Updates counts SetWeight calls.
	Updates int
}

// NewDragCubes creates an empty store.
func NewDragCubes() *DragCubes {
	return &DragCubes{weights: make(map[string]float64)}
}

func (d *DragCubes) SetWeight(name string, weight float64) {
	d.weights[name] = weight
	d.Updates++
}

func (d *DragCubes) ReplaceCubes(cubes ...core.DragCube) {
	d.cubes = append(d.cubes[:0], cubes...)
}

// Weight returns the last weight set for name.
func (d *DragCubes) Weight(name string) float64 {
	return d.weights[name]
}

// Cubes returns the published cubes.
func (d *DragCubes) Cubes() []core.DragCube {
	return append([]core.DragCube(nil), d.cubes...)
}

// ShieldCall is one call recorded by the registry.
type ShieldCall struct {
	Add   bool
	Obj   core.PartRef
	Owner core.PartRef
}

// ShieldRegistry tracks which parts are shielded by which owners.
type ShieldRegistry struct {
	shields map[core.PartRef]map[core.PartRef]bool
	Calls   []ShieldCall
}

// NewShieldRegistry creates an empty registry.
func NewShieldRegistry() *ShieldRegistry {
	return &ShieldRegistry{shields: make(map[core.PartRef]map[core.PartRef]bool)}
}

func (r *ShieldRegistry) AddShield(obj, owner core.PartRef) {
	if r.shields[obj] == nil {
		r.shields[obj] = make(map[core.PartRef]bool)
	}
	r.shields[obj][owner] = true
	r.Calls = append(r.Calls, ShieldCall{Add: true, Obj: obj, Owner: owner})
}

func (r *ShieldRegistry) RemoveShield(obj, owner core.PartRef) {
	delete(r.shields[obj], owner)
	if len(r.shields[obj]) == 0 {
		delete(r.shields, obj)
	}
	r.Calls = append(r.Calls, ShieldCall{Obj: obj, Owner: owner})
}

// Shielded reports whether obj is shielded by anyone.
func (r *ShieldRegistry) Shielded(obj core.PartRef) bool {
	return len(r.shields[obj]) > 0
}

// ShieldedBy returns the parts owner currently shields, sorted.
func (r *ShieldRegistry) ShieldedBy(owner core.PartRef) []core.PartRef {
	var out []core.PartRef
	for obj, owners := range r.shields {
		if owners[owner] {
			out = append(out, obj)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
