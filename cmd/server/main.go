// Package main implements the lingosync agent: a local offline-sync service
// that owns the durable lesson store, replays pending actions to the remote
// API, and serves a localhost control surface for the presentation layer.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/phrazzld/lingosync/internal/config"
	"github.com/phrazzld/lingosync/internal/platform/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := initializeApp(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.cleanup()

	if err := app.serve(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// initializeApp loads configuration, sets up logging, and wires the
// component graph.
func initializeApp(ctx context.Context) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("agent configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"storage_path", cfg.Storage.Path,
		"cache_version", cfg.Cache.Version)

	app := newApplication(cfg, appLogger)
	if err := app.start(ctx); err != nil {
		return nil, err
	}
	return app, nil
}
