// Package memory keeps craft records and telemetry in memory and writes them
// to a JSON file (optionally gzipped) on Close. An existing file is read back
// on Init so records survive between sessions.
package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/sstutools/fairing/internal/config"
	"github.com/sstutools/fairing/internal/storage"
	"github.com/sstutools/fairing/pkg/core"
)

type recordKey struct {
	craft string
	part  core.PartRef
}

// Backend stores craft records in memory and exports to JSON
type Backend struct {
	cfg config.MemoryConfig

	records map[recordKey]*core.PartRecord
	samples []core.StateSample

	idCounter      uint
	lastExportPath string
	now            func() time.Time
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:     cfg,
		records: make(map[recordKey]*core.PartRecord),
		now:     time.Now,
	}
}

// Init loads the export file left by a previous session, if any.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	export, err := readExport(b.exportPath())
	if err != nil {
		return fmt.Errorf("failed to read previous export: %w", err)
	}
	if export == nil {
		return nil
	}
	for _, r := range export.Records {
		rec := recordFromJSON(r)
		b.records[recordKey{rec.Craft, rec.Part}] = &rec
		if rec.ID > b.idCounter {
			b.idCounter = rec.ID
		}
	}
	for _, s := range export.Samples {
		b.samples = append(b.samples, sampleFromJSON(s))
	}
	return nil
}

// Close writes everything to the export file.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.records) == 0 && len(b.samples) == 0 {
		return nil
	}
	return b.exportJSON()
}

// SaveRecord stores r, replacing any earlier record of the same part. r.ID
// and r.SavedAt are filled in.
func (b *Backend) SaveRecord(r *core.PartRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := recordKey{r.Craft, r.Part}
	if prev, ok := b.records[key]; ok {
		r.ID = prev.ID
	} else {
		b.idCounter++
		r.ID = b.idCounter
	}
	r.SavedAt = b.now()

	stored := *r
	stored.Record = r.Record.Clone()
	b.records[key] = &stored
	return nil
}

// LoadRecord returns a copy of the stored record.
func (b *Backend) LoadRecord(craft string, part core.PartRef) (*core.PartRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	r, ok := b.records[recordKey{craft, part}]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", craft, part, storage.ErrNotFound)
	}
	out := *r
	out.Record = r.Record.Clone()
	return &out, nil
}

// RecordSample appends s to the telemetry history.
func (b *Backend) RecordSample(s *core.StateSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	sample := *s
	sample.Shielded = append([]core.PartRef(nil), s.Shielded...)
	b.samples = append(b.samples, sample)
	return nil
}

// GetExportedFilePath returns the path of the last export, if any.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// Samples returns a copy of the telemetry history.
func (b *Backend) Samples() []core.StateSample {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.StateSample(nil), b.samples...)
}
