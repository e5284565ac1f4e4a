package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/OCAP2/demo/internal/config"
	"github.com/OCAP2/demo/internal/database"
	"github.com/OCAP2/demo/internal/storage"
	"github.com/OCAP2/demo/internal/storage/memory"
	pgstorage "github.com/OCAP2/demo/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/demo/internal/storage/sqlite"
	wsstorage "github.com/OCAP2/demo/internal/storage/websocket"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// initStorage creates and initializes the configured catalog backend.
func initStorage(logger *slog.Logger, zlog zerolog.Logger) (storage.Backend, error) {
	storageCfg := config.GetStorageConfig()

	backend, err := createStorageBackend(storageCfg, logger, zlog)
	if err != nil {
		logger.Error("Failed to create storage backend", "error", err)
		return nil, err
	}
	if err := backend.Init(); err != nil {
		logger.Error("Failed to initialize storage backend", "error", err)
		return nil, err
	}
	return backend, nil
}

func createStorageBackend(storageCfg config.StorageConfig, logger *slog.Logger, zlog zerolog.Logger) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		conn, err := database.Connect(context.Background(), database.PostgresFromConfig(),
			zlog.With().Str("component", "database").Logger())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if conn.Local {
			logger.Warn("Postgres unreachable, using in-memory SQLite catalog", "dump", storageCfg.SQLite.Path)
			backend, err := sqlitestorage.New(storageCfg.SQLite, conn.DB, logger)
			if err != nil {
				return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
			}
			return backend, nil
		}
		logger.Info("Postgres storage backend initialized")
		return pgstorage.New(pgstorage.Dependencies{
			DB:     conn.DB,
			Logger: logger,
		}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(storageCfg.SQLite, nil, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		logger.Info("SQLite storage backend initialized", "path", storageCfg.SQLite.Path)
		return backend, nil

	case "websocket":
		wsCfg := storageCfg.WebSocket
		if wsCfg.URL == "" {
			wsCfg.URL = httpToWS(viper.GetString("api.serverUrl")) + "/api"
		}
		if wsCfg.Secret == "" {
			wsCfg.Secret = viper.GetString("api.apiKey")
		}
		logger.Info("WebSocket storage backend initialized", "url", wsCfg.URL)
		return wsstorage.New(wsCfg, logger), nil

	case "memory", "":
		logger.Info("Memory storage backend initialized")
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
