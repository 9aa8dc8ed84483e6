package core

import "time"

// PartRecord is the persisted record of one fairing part on a named craft.
type PartRecord struct {
	ID      uint
	Craft   string
	Part    PartRef
	Record  Record
	SavedAt time.Time
}

// Sample kinds.
const (
	SampleRebuilt = "rebuilt"
	SampleState   = "state"
)

// StateSample is one telemetry observation of a fairing.
type StateSample struct {
	Time     time.Time
	Craft    string
	Part     PartRef
	Kind     string
	State    string
	Angle    float64
	Progress float64
	Height   float64
	Mass     float64
	Cost     float64
	Bands    int
	Shielded []PartRef
}
