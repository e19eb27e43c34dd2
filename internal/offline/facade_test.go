package offline

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/lingosync/internal/cache"
	"github.com/phrazzld/lingosync/internal/domain"
	"github.com/phrazzld/lingosync/internal/events"
	"github.com/phrazzld/lingosync/internal/platform/sqlite"
	"github.com/phrazzld/lingosync/internal/store"
	"github.com/phrazzld/lingosync/internal/syncer"
)

type fakeMonitor struct {
	mu     sync.Mutex
	online bool
	sets   []bool
}

func (m *fakeMonitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *fakeMonitor) SetOnline(_ context.Context, online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online = online
	m.sets = append(m.sets, online)
}

type fakeOrchestrator struct {
	status     syncer.Status
	syncErr    error
	syncCalls  int
	preloaded  []string
	preloadErr error
}

func (o *fakeOrchestrator) Status() syncer.Status { return o.status }

func (o *fakeOrchestrator) ForceSync(context.Context) error {
	o.syncCalls++
	return o.syncErr
}

func (o *fakeOrchestrator) PreloadLesson(_ context.Context, lessonID string) (*domain.Lesson, error) {
	if o.preloadErr != nil {
		return nil, o.preloadErr
	}
	o.preloaded = append(o.preloaded, lessonID)
	return &domain.Lesson{ID: lessonID, Content: []byte(`{}`)}, nil
}

func newTestFacade(t *testing.T) (*Facade, *fakeMonitor, *fakeOrchestrator, *events.InMemoryEmitter) {
	t.Helper()

	localStore, err := sqlite.Open(filepath.Join(t.TempDir(), "lingosync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = localStore.Close() })

	monitor := &fakeMonitor{online: true}
	orch := &fakeOrchestrator{status: syncer.Status{PendingActions: 3}}
	emitter := events.NewInMemoryEmitter(slog.Default())
	cacheLayer := cache.New(cache.Config{Dir: t.TempDir(), Version: "v1"}, monitor, slog.Default())
	cacheLayer.Register(cache.Hooks{})

	f := New(localStore, cacheLayer, monitor, orch, emitter, slog.Default())
	t.Cleanup(f.Close)
	return f, monitor, orch, emitter
}

func TestStatusMergesSources(t *testing.T) {
	f, monitor, _, _ := newTestFacade(t)

	status := f.Status(context.Background())
	assert.True(t, status.IsOnline)
	assert.True(t, status.IsOfflineReady)
	assert.Equal(t, 3, status.SyncStatus.PendingActions)
	assert.False(t, status.ShowUpdateAvailable)

	monitor.SetOnline(context.Background(), false)
	status = f.Status(context.Background())
	assert.False(t, status.IsOnline)
	assert.True(t, status.IsOfflineReady, "offline readiness is about the store, not the network")
}

func TestStatusDegradesWithoutStore(t *testing.T) {
	monitor := &fakeMonitor{online: true}
	emitter := events.NewInMemoryEmitter(slog.Default())
	f := New(nil, nil, monitor, nil, emitter, slog.Default())
	defer f.Close()

	status := f.Status(context.Background())
	assert.True(t, status.IsOnline)
	assert.False(t, status.IsOfflineReady)
	assert.Zero(t, status.StorageUsage.Used)

	_, err := f.PreloadLesson(context.Background(), "lesson-es-1")
	assert.ErrorIs(t, err, store.ErrStorageUnavailable)
	assert.ErrorIs(t, f.ForceSync(context.Background()), store.ErrStorageUnavailable)
}

func TestForceSyncDelegates(t *testing.T) {
	f, _, orch, _ := newTestFacade(t)

	require.NoError(t, f.ForceSync(context.Background()))
	assert.Equal(t, 1, orch.syncCalls)

	orch.syncErr = syncer.ErrOffline
	assert.ErrorIs(t, f.ForceSync(context.Background()), syncer.ErrOffline)
}

func TestPreloadLessonDelegates(t *testing.T) {
	f, _, orch, _ := newTestFacade(t)

	lesson, err := f.PreloadLesson(context.Background(), "lesson-es-1")
	require.NoError(t, err)
	assert.Equal(t, "lesson-es-1", lesson.ID)
	assert.Equal(t, []string{"lesson-es-1"}, orch.preloaded)
}

func TestSetOnlineForwardsToMonitor(t *testing.T) {
	f, monitor, _, _ := newTestFacade(t)

	f.SetOnline(context.Background(), false)
	f.SetOnline(context.Background(), true)
	assert.Equal(t, []bool{false, true}, monitor.sets)
}

func TestClearCacheWipesStoreAndCache(t *testing.T) {
	f, _, _, _ := newTestFacade(t)
	ctx := context.Background()

	lesson, err := domain.NewLesson("lesson-es-1", "beginner", nil, []byte(`{"title":"Hola"}`))
	require.NoError(t, err)
	require.NoError(t, f.localStore.Lessons().Put(ctx, lesson))

	require.NoError(t, f.ClearCache(ctx))

	stored, err := f.localStore.Lessons().Get(ctx, "lesson-es-1")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestUpdateAppWithoutWaitingVersionIsNoOp(t *testing.T) {
	f, _, _, emitter := newTestFacade(t)

	var restarts int
	cancel := emitter.Subscribe(events.HandlerFunc(func(_ context.Context, e *events.Event) error {
		if e.Type == events.TypeRestartRequired {
			restarts++
		}
		return nil
	}))
	defer cancel()

	require.NoError(t, f.UpdateApp(context.Background()))
	assert.Zero(t, restarts)
}

func TestSubscriberSeesStatusChanges(t *testing.T) {
	f, _, _, emitter := newTestFacade(t)
	ctx := context.Background()

	var (
		mu       sync.Mutex
		received []Status
	)
	cancel := f.Subscribe(func(s Status) {
		mu.Lock()
		received = append(received, s)
		mu.Unlock()
	})
	defer cancel()

	event, err := events.New(events.TypeConnectivity, events.ConnectivityPayload{Online: false})
	require.NoError(t, err)
	require.NoError(t, emitter.Emit(ctx, event))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.True(t, received[0].IsOfflineReady)
}

func TestConnectivityEventsReachCacheHooks(t *testing.T) {
	ctx := context.Background()

	localStore, err := sqlite.Open(filepath.Join(t.TempDir(), "lingosync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = localStore.Close() })

	monitor := &fakeMonitor{online: true}
	emitter := events.NewInMemoryEmitter(slog.Default())
	cacheLayer := cache.New(cache.Config{Dir: t.TempDir(), Version: "v1"}, monitor, slog.Default())

	var offline, online int
	cacheLayer.Register(cache.Hooks{
		OnOffline: func() { offline++ },
		OnOnline:  func() { online++ },
	})

	f := New(localStore, cacheLayer, monitor, &fakeOrchestrator{}, emitter, slog.Default())
	defer f.Close()

	emit := func(isOnline bool) {
		event, err := events.New(events.TypeConnectivity, events.ConnectivityPayload{Online: isOnline})
		require.NoError(t, err)
		require.NoError(t, emitter.Emit(ctx, event))
	}

	emit(false)
	assert.Equal(t, 1, offline)
	assert.Zero(t, online)

	emit(true)
	assert.Equal(t, 1, offline)
	assert.Equal(t, 1, online)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	f, _, _, emitter := newTestFacade(t)
	ctx := context.Background()

	var calls int
	cancel := f.Subscribe(func(Status) { calls++ })
	cancel()

	event, err := events.New(events.TypeSyncStatus, events.SyncStatusPayload{})
	require.NoError(t, err)
	require.NoError(t, emitter.Emit(ctx, event))
	assert.Zero(t, calls)
}
