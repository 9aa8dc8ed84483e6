// Package storage defines the craft record store used to persist fairing
// records between sessions and to keep a history of telemetry samples.
package storage

import (
	"errors"

	"github.com/sstutools/fairing/pkg/core"
)

// ErrNotFound is returned by LoadRecord when no record exists for the part.
var ErrNotFound = errors.New("record not found")

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Part records (one per craft and part, replaced on save)
	SaveRecord(r *core.PartRecord) error
	LoadRecord(craft string, part core.PartRef) (*core.PartRecord, error)

	// Telemetry history
	RecordSample(s *core.StateSample) error
}

// Exporter is an optional interface for backends that write their contents
// to a file on Close.
type Exporter interface {
	GetExportedFilePath() string
}
