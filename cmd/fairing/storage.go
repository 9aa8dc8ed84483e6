package main

import (
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"
	"github.com/sstutools/fairing/internal/config"
	"github.com/sstutools/fairing/internal/database"
	"github.com/sstutools/fairing/internal/storage"
	"github.com/sstutools/fairing/internal/storage/memory"
	pgstorage "github.com/sstutools/fairing/internal/storage/postgres"
	sqlitestorage "github.com/sstutools/fairing/internal/storage/sqlite"
)

func createStorageBackend(storageCfg config.StorageConfig, logger *slog.Logger, dbLogger zerolog.Logger) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		manager := database.NewManager(dbLogger)
		if err := manager.Connect(); err != nil {
			return nil, fmt.Errorf("failed to connect record store: %w", err)
		}
		backend, err := pgstorage.New(manager, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("Postgres storage backend initialized", "local", backend.Local())
		return backend, nil

	case "sqlite":
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     storageCfg.SQLite.DumpPath,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		logger.Info("SQLite storage backend initialized", "dumpPath", storageCfg.SQLite.DumpPath)
		return backend, nil

	case "memory", "":
		logger.Info("Memory storage backend initialized", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}
