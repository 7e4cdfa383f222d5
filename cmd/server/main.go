// Command server runs the problem-hub REST API.
//
// All configuration comes from environment variables (see internal/config).
// JWT_SECRET is the only required one:
//
//	JWT_SECRET=$(openssl rand -hex 32) go run ./cmd/server
//
// Set MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY to enable
// problem images.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/problem-hub/internal/config"
	"github.com/sakif/problem-hub/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// sqlite creates the file but not its directory.
	if cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
