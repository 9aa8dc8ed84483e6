// Package postgres implements the storage.Backend interface on a PostgreSQL
// connection managed by database.Manager. When the manager fell back to its
// local SQLite database the same GORM backend runs on that instead.
package postgres

import (
	"errors"
	"log/slog"

	"github.com/sstutools/fairing/internal/database"
	gormstorage "github.com/sstutools/fairing/internal/storage/gorm"
)

// Backend wraps the GORM backend around a managed connection.
type Backend struct {
	*gormstorage.Backend
	manager *database.Manager
	log     *slog.Logger
}

// New creates the backend on a connected manager.
func New(manager *database.Manager, log *slog.Logger) (*Backend, error) {
	if manager == nil || !manager.IsValid || manager.DB == nil {
		return nil, errors.New("postgres backend: database not connected")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{DB: manager.DB, Logger: log}),
		manager: manager,
		log:     log,
	}, nil
}

// Init migrates the schema and starts the sample writer.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	b.log.Info("Record store ready", "dialect", b.manager.DB.Dialector.Name(), "local", b.Local())
	return nil
}

// Close flushes pending samples and closes the connection pool.
func (b *Backend) Close() error {
	err := b.Backend.Close()
	return errors.Join(err, b.manager.Close())
}

// Local reports whether the manager fell back to SQLite.
func (b *Backend) Local() bool {
	return b.manager.ShouldSaveLocal
}
