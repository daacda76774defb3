package main

import (
	"fmt"
	"log/slog"

	"github.com/turretline/algo/internal/config"
	"github.com/turretline/algo/internal/database"
	"github.com/turretline/algo/internal/logging"
	"github.com/turretline/algo/internal/storage"
	gormstorage "github.com/turretline/algo/internal/storage/gorm"
	"github.com/turretline/algo/internal/storage/memory"
	wsstorage "github.com/turretline/algo/internal/storage/websocket"
)

func initStorage(cfg config.StorageConfig, logs *logging.SlogManager, logger *slog.Logger) (storage.Backend, error) {
	backend, err := createStorageBackend(cfg, logs, logger)
	if err != nil {
		return nil, err
	}
	if err := backend.Init(); err != nil {
		return nil, fmt.Errorf("init %s storage: %w", cfg.Type, err)
	}
	return backend, nil
}

func createStorageBackend(cfg config.StorageConfig, logs *logging.SlogManager, logger *slog.Logger) (storage.Backend, error) {
	switch cfg.Type {
	case database.DialectPostgres, database.DialectSQLite:
		db, err := database.Connect(cfg, logs.Zerolog("database"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Type, err)
		}
		logger.Info("GORM storage backend initialized", "dialect", db.Name())
		return gormstorage.New(gormstorage.Dependencies{
			DB:            db,
			Logger:        logs.Zerolog("storage"),
			FlushInterval: cfg.FlushInterval,
		}), nil

	case "websocket":
		if cfg.Websocket.URL == "" {
			return nil, fmt.Errorf("websocket storage needs storage.websocket.url")
		}
		logger.Info("WebSocket storage backend initialized", "url", cfg.Websocket.URL)
		return wsstorage.New(wsstorage.Config{
			URL:        cfg.Websocket.URL,
			Secret:     cfg.Websocket.Secret,
			AckTimeout: cfg.Websocket.AckTimeout,
		}, logger), nil

	case "", "memory":
		logger.Info("Memory storage backend initialized", "outputDir", cfg.Memory.OutputDir)
		return memory.New(cfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

func closeStorage(backend storage.Backend, logger *slog.Logger) {
	if backend == nil {
		return
	}
	if err := backend.Close(); err != nil {
		logger.Warn("Failed to close storage backend", "error", err)
	}
	if ws, ok := backend.(*wsstorage.Backend); ok {
		if dropped := ws.Dropped(); dropped > 0 {
			logger.Warn("Feed messages dropped", "count", dropped)
		}
	}
}
