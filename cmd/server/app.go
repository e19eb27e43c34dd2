package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/lingosync/internal/api"
	"github.com/phrazzld/lingosync/internal/cache"
	"github.com/phrazzld/lingosync/internal/config"
	"github.com/phrazzld/lingosync/internal/connectivity"
	"github.com/phrazzld/lingosync/internal/domain"
	"github.com/phrazzld/lingosync/internal/events"
	"github.com/phrazzld/lingosync/internal/offline"
	"github.com/phrazzld/lingosync/internal/platform/sqlite"
	"github.com/phrazzld/lingosync/internal/remote"
	"github.com/phrazzld/lingosync/internal/service"
	"github.com/phrazzld/lingosync/internal/store"
	"github.com/phrazzld/lingosync/internal/syncer"
)

// probeInterval is how often the connectivity monitor pings the probe URL
// when one is configured.
const probeInterval = 30 * time.Second

// application holds the wired component graph.
type application struct {
	config     *config.Config
	logger     *slog.Logger
	localStore store.LocalStore // nil when storage is unavailable
	emitter    *events.InMemoryEmitter
	monitor    *connectivity.Monitor
	cacheLayer *cache.Layer
	orch       *syncer.Orchestrator // nil when storage is unavailable
	facade     *offline.Facade
	handler    http.Handler
}

// newApplication builds the component graph from configuration. A store that
// cannot open is a degradation, not a startup failure: the agent still
// serves status and online-only operations.
func newApplication(cfg *config.Config, log *slog.Logger) *application {
	app := &application{
		config:  cfg,
		logger:  log,
		emitter: events.NewInMemoryEmitter(log),
	}

	app.monitor = connectivity.NewMonitor(app.emitter, log)

	app.cacheLayer = cache.New(cache.Config{
		Dir:          cfg.Cache.Dir,
		Version:      cfg.Cache.Version,
		PrecacheURLs: cfg.Cache.PrecacheURLs,
	}, app.monitor, log)

	localStore, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		if errors.Is(err, store.ErrStorageUnavailable) {
			log.Error("local store unavailable, degrading to online-only mode",
				"error", err)
		} else {
			log.Error("failed to open local store, degrading to online-only mode",
				"error", err)
		}
	} else {
		app.localStore = localStore
	}

	// Remote calls flow through the cache layer so GET responses are
	// captured for offline use.
	remoteClient := remote.NewClient(remote.Config{
		BaseURL:     cfg.Remote.BaseURL,
		Timeout:     cfg.Remote.Timeout,
		TokenSecret: cfg.Remote.TokenSecret,
		DeviceID:    cfg.Remote.DeviceID,
		HTTPClient:  &http.Client{Transport: app.cacheLayer},
	}, log)

	if app.localStore != nil {
		app.orch = syncer.New(app.localStore, remoteClient, app.monitor, app.emitter, syncer.Config{
			RetryBase: cfg.Sync.RetryBase,
			RetryCap:  cfg.Sync.RetryCap,
		}, log)
		app.facade = offline.New(app.localStore, app.cacheLayer, app.monitor, app.orch, app.emitter, log)
	} else {
		// A typed nil orchestrator must not reach the facade's interface
		// field, so the degraded path passes untyped nils.
		app.facade = offline.New(nil, app.cacheLayer, app.monitor, nil, app.emitter, log)
	}

	return app
}

// start runs the background loops, registers the cache layer, and builds the
// router. It must be called exactly once, before serving.
func (app *application) start(ctx context.Context) error {
	app.cacheLayer.Register(cache.Hooks{
		OnSuccess: func(version string) {
			app.logger.Info("cache version active", "version", version)
		},
		OnUpdate: func(version string) {
			app.logger.Info("cache update installed and waiting", "version", version)
			event, err := events.New(events.TypeUpdateAvailable, events.UpdatePayload{Version: version})
			if err != nil {
				app.logger.Error("failed to build update event", "error", err)
				return
			}
			// Subscribers (the facade included) push a fresh status snapshot
			// so the UI learns ShowUpdateAvailable without polling.
			if err := app.emitter.Emit(ctx, event); err != nil {
				app.logger.Error("failed to emit update event", "error", err)
			}
		},
	})

	if app.orch != nil {
		// The orchestrator flushes whatever a previous run left unsynced,
		// then waits for kicks and retry timers. Connectivity events reach
		// it through the emitter subscription.
		go app.orch.Run(ctx)
		app.emitter.Subscribe(app.orch)
	}

	if app.config.Remote.ProbeURL != "" {
		go app.monitor.RunProbe(ctx, app.config.Remote.ProbeURL, probeInterval)
	}

	router, err := app.setupRouter()
	if err != nil {
		return err
	}
	app.handler = router
	return nil
}

// setupRouter creates the control API router with its handlers.
func (app *application) setupRouter() (http.Handler, error) {
	var progressSvc service.ProgressService
	if app.localStore != nil && app.orch != nil {
		svc, err := service.NewProgressService(app.localStore, app.orch, app.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create progress service: %w", err)
		}
		progressSvc = svc
	} else {
		progressSvc = unavailableProgressService{}
	}

	handler := api.NewStatusHandler(app.facade, progressSvc, app.logger)
	return api.NewRouter(handler), nil
}

// cleanup releases resources on shutdown.
func (app *application) cleanup() {
	if app.facade != nil {
		app.facade.Close()
	}
	if app.localStore != nil {
		if err := app.localStore.Close(); err != nil {
			app.logger.Error("failed to close local store", "error", err)
		}
	}
}

// unavailableProgressService answers every mutation with the storage
// capability failure while the store is unusable.
type unavailableProgressService struct{}

func (unavailableProgressService) RecordProgress(context.Context, service.RecordProgressInput) (*domain.Progress, error) {
	return nil, store.ErrStorageUnavailable
}

func (unavailableProgressService) RecordVocabularyPractice(context.Context, service.VocabularyPracticeInput) (*domain.Progress, error) {
	return nil, store.ErrStorageUnavailable
}
