// pkg/core/events.go
package core

// Topic names a host event the fairing can subscribe to.
type Topic string

const (
	EventEditorShipModified Topic = "editor.ship.modified"
	EventVesselModified     Topic = "vessel.modified"
	EventVesselGoOffRails   Topic = "vessel.offrails"
	EventVesselGoOnRails    Topic = "vessel.onrails"
	// EventPartDie carries the PartRef of the destroyed part as payload.
	EventPartDie Topic = "part.die"
	// EventExternalGeometryChanged is raised by sibling modules (e.g. an engine
	// mount resize) whose geometry moves the fairing.
	EventExternalGeometryChanged Topic = "geometry.external"
)

// Topics lists every topic in a stable order.
var Topics = []Topic{
	EventEditorShipModified,
	EventVesselModified,
	EventVesselGoOffRails,
	EventVesselGoOnRails,
	EventPartDie,
	EventExternalGeometryChanged,
}
