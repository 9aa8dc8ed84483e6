// Package gormstorage implements the storage.Backend interface on GORM.
// Part records are written synchronously; telemetry samples are queued and
// written in batches by a background goroutine.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sstutools/fairing/internal/database"
	"github.com/sstutools/fairing/internal/model"
	"github.com/sstutools/fairing/internal/model/convert"
	"github.com/sstutools/fairing/internal/queue"
	"github.com/sstutools/fairing/internal/storage"
	"github.com/sstutools/fairing/pkg/core"

	"gorm.io/gorm"
)

// DefaultFlushInterval is used when Dependencies.FlushInterval is zero.
const DefaultFlushInterval = 2 * time.Second

const sampleBatchSize = 500

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	FlushInterval time.Duration
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	samples   *queue.Queue[model.StateSample]
	stopChan  chan struct{}
	done      sync.WaitGroup
	lastWrite atomic.Int64
	writeMu   sync.Mutex
	closeOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:     deps,
		samples:  queue.New[model.StateSample](),
		stopChan: make(chan struct{}),
	}
}

// Init migrates the schema and starts the sample writer.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gorm backend: no database")
	}
	if err := database.Migrate(b.deps.DB); err != nil {
		return err
	}

	b.done.Add(1)
	go b.writerLoop()
	return nil
}

// Close stops the writer and writes whatever is still queued.
func (b *Backend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.stopChan)
		b.done.Wait()
		err = b.Flush()
	})
	return err
}

// DB exposes the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// SaveRecord inserts or replaces the record of r.Part on r.Craft.
func (b *Backend) SaveRecord(r *core.PartRecord) error {
	row := convert.CoreToFairingRecord(*r)

	err := b.deps.DB.Transaction(func(tx *gorm.DB) error {
		var existing model.FairingRecord
		err := tx.Where("craft = ? AND part = ?", row.Craft, row.Part).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row.ID = 0
			return tx.Create(&row).Error
		case err != nil:
			return err
		}
		row.ID = existing.ID
		row.CreatedAt = existing.CreatedAt
		return tx.Save(&row).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save record %s/%s: %w", r.Craft, r.Part, err)
	}

	r.ID = row.ID
	r.SavedAt = row.UpdatedAt
	return nil
}

// LoadRecord returns the stored record of part on craft.
func (b *Backend) LoadRecord(craft string, part core.PartRef) (*core.PartRecord, error) {
	var row model.FairingRecord
	err := b.deps.DB.Where("craft = ? AND part = ?", craft, string(part)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s/%s: %w", craft, part, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record %s/%s: %w", craft, part, err)
	}
	rec := convert.FairingRecordToCore(row)
	return &rec, nil
}

// RecordSample queues s for the next batch write.
func (b *Backend) RecordSample(s *core.StateSample) error {
	b.samples.Push(convert.CoreToStateSample(*s))
	return nil
}

// LoadSamples returns the written samples of part on craft, oldest first.
func (b *Backend) LoadSamples(craft string, part core.PartRef) ([]core.StateSample, error) {
	var rows []model.StateSample
	err := b.deps.DB.Where("craft = ? AND part = ?", craft, string(part)).
		Order("time asc, id asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load samples %s/%s: %w", craft, part, err)
	}
	out := make([]core.StateSample, 0, len(rows))
	for _, r := range rows {
		out = append(out, convert.StateSampleToCore(r))
	}
	return out, nil
}

// Pending is the number of queued samples not yet written.
func (b *Backend) Pending() int {
	return b.samples.Len()
}

// Flush writes all queued samples now.
func (b *Backend) Flush() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if b.samples.Empty() {
		return nil
	}
	start := time.Now()
	rows := b.samples.GetAndEmpty()
	if err := b.deps.DB.CreateInBatches(&rows, sampleBatchSize).Error; err != nil {
		return fmt.Errorf("failed to write %d samples: %w", len(rows), err)
	}
	b.lastWrite.Store(int64(time.Since(start)))
	return nil
}

// GetLastDBWriteDuration returns the duration of the last batch write.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	return time.Duration(b.lastWrite.Load())
}

func (b *Backend) writerLoop() {
	defer b.done.Done()
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error("Error writing samples", "error", err)
			}
		}
	}
}
