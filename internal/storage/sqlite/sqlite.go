// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend via composition; the only SQLite-specific concerns are
// creating the in-memory DB and the periodic and final disk dump.
package sqlitestorage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sstutools/fairing/internal/database"
	"github.com/sstutools/fairing/internal/model"
	gormstorage "github.com/sstutools/fairing/internal/storage/gorm"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpInterval time.Duration
	DumpPath     string // Path for periodic VACUUM INTO dumps
	// Source is the database opened; empty selects the shared in-memory DB.
	Source string
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      Config
	log      *slog.Logger
	stopChan chan struct{}
	stopped  chan struct{}
}

// New creates a new SQLite storage backend.
func New(cfg Config, log *slog.Logger) (*Backend, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := database.GetSqliteDBStandalone(cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	return &Backend{
		Backend:  gormstorage.New(gormstorage.Dependencies{DB: db, Logger: log}),
		db:       db,
		cfg:      cfg,
		log:      log,
		stopChan: make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	if err := b.restore(); err != nil {
		return fmt.Errorf("failed to restore previous dump: %w", err)
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		go b.dumpLoop()
	} else {
		close(b.stopped)
	}

	return nil
}

// Close stops the dump goroutine, closes the embedded GORM backend and
// writes a final dump.
func (b *Backend) Close() error {
	close(b.stopChan)
	<-b.stopped
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.cfg.DumpPath == "" {
		return nil
	}
	return b.Dump()
}

// Dump writes the current database to DumpPath.
func (b *Backend) Dump() error {
	start := time.Now()
	if err := b.Backend.Flush(); err != nil {
		return err
	}
	if err := database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath); err != nil {
		return err
	}
	b.log.Debug("Dumped to disk", "path", b.cfg.DumpPath, "duration", time.Since(start))
	return nil
}

// restore copies the part records of an earlier dump into the live database.
// Telemetry history is left in the dump.
func (b *Backend) restore() error {
	if b.cfg.DumpPath == "" || b.cfg.DumpPath == b.cfg.Source {
		return nil
	}
	if _, err := os.Stat(b.cfg.DumpPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	prev, err := database.GetSqliteDBStandalone(b.cfg.DumpPath)
	if err != nil {
		return err
	}
	if sqlDB, err := prev.DB(); err == nil {
		defer sqlDB.Close()
	}
	if !prev.Migrator().HasTable(&model.FairingRecord{}) {
		return nil
	}

	var records []model.FairingRecord
	if err := prev.Find(&records).Error; err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	err = b.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "craft"}, {Name: "part"}},
		UpdateAll: true,
	}).Create(&records).Error
	if err != nil {
		return err
	}
	b.log.Info("Restored part records", "path", b.cfg.DumpPath, "count", len(records))
	return nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer close(b.stopped)
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Dump(); err != nil {
				b.log.Error("Error dumping to disk", "error", err)
			}
		}
	}
}
