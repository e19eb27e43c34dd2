// Package offline exposes the engine's aggregated status and control
// surface. The Facade is constructed once at startup and is the only thing
// the API layer talks to.
//
// The facade is capability-aware: when the local store failed to open, it
// keeps serving with IsOfflineReady=false and store-backed operations
// reporting unavailability instead of taking the whole agent down.
package offline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/phrazzld/lingosync/internal/cache"
	"github.com/phrazzld/lingosync/internal/domain"
	"github.com/phrazzld/lingosync/internal/events"
	"github.com/phrazzld/lingosync/internal/store"
	"github.com/phrazzld/lingosync/internal/syncer"
)

// connectivitySource is the slice of the monitor the facade needs.
type connectivitySource interface {
	IsOnline() bool
	SetOnline(ctx context.Context, online bool)
}

// orchestrator is the slice of *syncer.Orchestrator the facade needs.
type orchestrator interface {
	Status() syncer.Status
	ForceSync(ctx context.Context) error
	PreloadLesson(ctx context.Context, lessonID string) (*domain.Lesson, error)
}

// subscribable is the slice of the event emitter the facade needs;
// satisfied by *events.InMemoryEmitter.
type subscribable interface {
	events.Emitter
	Subscribe(handler events.Handler) func()
}

// Status is the merged view the UI renders from.
type Status struct {
	IsOnline            bool          `json:"is_online"`
	IsOfflineReady      bool          `json:"is_offline_ready"`
	SyncStatus          syncer.Status `json:"sync_status"`
	StorageUsage        store.Usage   `json:"storage_usage"`
	CacheSize           store.Usage   `json:"cache_size"`
	ShowUpdateAvailable bool          `json:"show_update_available"`
}

// Facade aggregates the store, cache layer, connectivity monitor and sync
// orchestrator behind one status/control surface.
type Facade struct {
	localStore store.LocalStore // nil when the store failed to open
	cacheLayer *cache.Layer
	monitor    connectivitySource
	orch       orchestrator
	emitter    subscribable
	logger     *slog.Logger

	mu      sync.Mutex
	nextSub int
	subs    map[int]func(Status)
	cancel  func()
}

// New creates the Facade and wires it to status-bearing events. Pass a nil
// localStore (and nil orch) when the store could not be opened; the facade
// then reports IsOfflineReady=false.
func New(
	localStore store.LocalStore,
	cacheLayer *cache.Layer,
	monitor connectivitySource,
	orch orchestrator,
	emitter subscribable,
	logger *slog.Logger,
) *Facade {
	f := &Facade{
		localStore: localStore,
		cacheLayer: cacheLayer,
		monitor:    monitor,
		orch:       orch,
		emitter:    emitter,
		logger:     logger.With("component", "offline_facade"),
		subs:       make(map[int]func(Status)),
	}
	f.cancel = emitter.Subscribe(events.HandlerFunc(f.handleEvent))
	return f
}

// Status returns the current merged snapshot.
func (f *Facade) Status(ctx context.Context) Status {
	status := Status{
		IsOnline:       f.monitor.IsOnline(),
		IsOfflineReady: f.localStore != nil,
	}
	if f.orch != nil {
		status.SyncStatus = f.orch.Status()
	}
	if f.localStore != nil {
		status.StorageUsage = f.localStore.EstimateUsage(ctx)
	}
	if f.cacheLayer != nil {
		status.CacheSize = f.cacheLayer.Size()
		status.ShowUpdateAvailable = f.cacheLayer.UpdateAvailable()
	}
	return status
}

// PreloadLesson downloads a lesson and its media for offline use.
func (f *Facade) PreloadLesson(ctx context.Context, lessonID string) (*domain.Lesson, error) {
	if f.orch == nil {
		return nil, store.ErrStorageUnavailable
	}
	return f.orch.PreloadLesson(ctx, lessonID)
}

// ForceSync replays pending actions now, surfacing the terminal outcome.
func (f *Facade) ForceSync(ctx context.Context) error {
	if f.orch == nil {
		return store.ErrStorageUnavailable
	}
	return f.orch.ForceSync(ctx)
}

// SetOnline forwards a host reachability signal to the monitor.
func (f *Facade) SetOnline(ctx context.Context, online bool) {
	f.monitor.SetOnline(ctx, online)
}

// ClearCache wipes both the local store's collections and the response
// cache. Partial failure still attempts the rest; the first error wins.
func (f *Facade) ClearCache(ctx context.Context) error {
	var firstErr error
	if f.localStore != nil {
		if err := f.localStore.ClearAll(ctx); err != nil {
			firstErr = err
		}
	}
	if f.cacheLayer != nil {
		if err := f.cacheLayer.Clear(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		f.logger.Info("local data cleared")
	}
	return firstErr
}

// UpdateApp forces the waiting cache version active and, when a restart is
// needed to pick it up, emits a restart-required event.
func (f *Facade) UpdateApp(ctx context.Context) error {
	if f.cacheLayer == nil {
		return nil
	}
	if !f.cacheLayer.SkipWaiting() {
		return nil
	}
	event, err := events.New(events.TypeRestartRequired, events.UpdatePayload{})
	if err != nil {
		return err
	}
	return f.emitter.Emit(ctx, event)
}

// Subscribe registers a callback invoked with a fresh merged snapshot on
// every status-bearing event. It returns an unsubscribe function.
func (f *Facade) Subscribe(fn func(Status)) func() {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

// Close detaches the facade from the event emitter.
func (f *Facade) Close() {
	if f.cancel != nil {
		f.cancel()
	}
	f.mu.Lock()
	f.subs = make(map[int]func(Status))
	f.mu.Unlock()
}

// handleEvent fans status-bearing events out to subscribers as merged
// snapshots.
func (f *Facade) handleEvent(ctx context.Context, event *events.Event) error {
	switch event.Type {
	case events.TypeSyncStatus, events.TypeConnectivity,
		events.TypeUpdateAvailable, events.TypeRestartRequired:
	default:
		return nil
	}

	if event.Type == events.TypeConnectivity && f.cacheLayer != nil {
		var payload events.ConnectivityPayload
		if err := event.UnmarshalPayload(&payload); err != nil {
			f.logger.Error("failed to decode connectivity payload", "error", err)
		} else {
			f.cacheLayer.NotifyConnectivity(payload.Online)
		}
	}

	status := f.Status(ctx)

	f.mu.Lock()
	callbacks := make([]func(Status), 0, len(f.subs))
	for _, fn := range f.subs {
		callbacks = append(callbacks, fn)
	}
	f.mu.Unlock()

	for _, fn := range callbacks {
		fn(status)
	}
	return nil
}
