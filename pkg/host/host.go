// Package host declares the services the fairing module consumes from the
// game host. The host (or internal/sim in tests and the CLI) implements them.
package host

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/sstutools/fairing/pkg/core"
)

// AttachmentGraph exposes the structural attachments of a part.
type AttachmentGraph interface {
	// FindAttachmentAt returns the part attached at the named node.
	FindAttachmentAt(node string) (core.PartRef, bool)
	// Sever detaches ref from the fairing part.
	Sever(ref core.PartRef) error
}

// NodeMover is optionally implemented by an AttachmentGraph that supports
// repositioning attach nodes after a rebuild.
type NodeMover interface {
	MoveNode(node string, pos mgl64.Vec3)
}

// VesselParts lists the other parts of the vessel the fairing belongs to.
type VesselParts interface {
	Siblings() []core.Sibling
}

// DragCubeWeighting sets the blend weight of a named drag cube.
type DragCubeWeighting interface {
	SetWeight(name string, weight float64)
}

// DragCubeStore is optionally implemented by a DragCubeWeighting that accepts
// freshly rendered cubes.
type DragCubeStore interface {
	ReplaceCubes(cubes ...core.DragCube)
}

// ShieldRegistry tracks which parts are aerodynamically shielded by whom.
type ShieldRegistry interface {
	AddShield(obj, owner core.PartRef)
	RemoveShield(obj, owner core.PartRef)
}

// Handler receives the payload of a published event.
type Handler func(payload any)

// Subscription is returned by EventBus.Subscribe.
type Subscription interface {
	Unsubscribe()
}

// EventBus is the host publish/subscribe capability handed to each module.
type EventBus interface {
	Subscribe(topic core.Topic, h Handler) Subscription
	Publish(topic core.Topic, payload any)
}

// Part bundles the host services for one part instance.
type Part struct {
	Ref     core.PartRef
	Graph   AttachmentGraph
	Vessel  VesselParts
	Drag    DragCubeWeighting
	Shields ShieldRegistry
	Events  EventBus
}
