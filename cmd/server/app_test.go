package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/lingosync/internal/config"
	"github.com/phrazzld/lingosync/internal/offline"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{Port: 8525, LogLevel: "info"},
		Storage: config.StorageConfig{
			Path: filepath.Join(t.TempDir(), "lingosync.db"),
		},
		Remote: config.RemoteConfig{
			BaseURL:     "https://api.lingosync.example.com",
			Timeout:     10 * time.Second,
			TokenSecret: "0123456789abcdef0123456789abcdef",
			DeviceID:    "device-test",
		},
		Sync: config.SyncConfig{
			RetryBase: time.Second,
			RetryCap:  5 * time.Minute,
		},
		Cache: config.CacheConfig{
			Dir:     t.TempDir(),
			Version: "v1",
		},
	}
}

func startTestApp(t *testing.T, cfg *config.Config) (*application, *httptest.Server) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	app := newApplication(cfg, slog.Default())
	require.NoError(t, app.start(ctx))
	t.Cleanup(app.cleanup)

	server := httptest.NewServer(app.handler)
	t.Cleanup(server.Close)
	return app, server
}

func getStatus(t *testing.T, server *httptest.Server) offline.Status {
	t.Helper()
	resp, err := server.Client().Get(server.URL + "/api/status")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status offline.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	return status
}

func TestApplicationServesStatus(t *testing.T) {
	_, server := startTestApp(t, testConfig(t))

	status := getStatus(t, server)
	assert.True(t, status.IsOnline)
	assert.True(t, status.IsOfflineReady)
}

func TestApplicationDegradesWhenStorageUnavailable(t *testing.T) {
	cfg := testConfig(t)

	// A regular file as the parent directory makes the store path unusable.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	cfg.Storage.Path = filepath.Join(blocker, "lingosync.db")

	app, server := startTestApp(t, cfg)
	assert.Nil(t, app.localStore)

	// The agent still answers; it just reports the store as unusable.
	status := getStatus(t, server)
	assert.False(t, status.IsOfflineReady)

	resp, err := server.Client().Post(server.URL+"/api/progress", "application/json",
		jsonReader(t, map[string]any{"lesson_id": "lesson-es-1", "score": 50}))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestApplicationPushesUpdateAvailable(t *testing.T) {
	cacheDir := t.TempDir()

	// First run activates v1 and persists the current-version marker.
	cfg1 := testConfig(t)
	cfg1.Cache.Dir = cacheDir
	startTestApp(t, cfg1)

	// Second run ships v2; it installs alongside v1 and parks waiting.
	cfg2 := testConfig(t)
	cfg2.Cache.Dir = cacheDir
	cfg2.Cache.Version = "v2"

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	app := newApplication(cfg2, slog.Default())
	t.Cleanup(app.cleanup)

	var pushed []offline.Status
	unsubscribe := app.facade.Subscribe(func(s offline.Status) {
		pushed = append(pushed, s)
	})
	t.Cleanup(unsubscribe)

	require.NoError(t, app.start(ctx))

	require.NotEmpty(t, pushed, "the waiting version should push a status snapshot")
	assert.True(t, pushed[len(pushed)-1].ShowUpdateAvailable)

	server := httptest.NewServer(app.handler)
	t.Cleanup(server.Close)
	assert.True(t, getStatus(t, server).ShowUpdateAvailable)
}

func TestApplicationHealthEndpoint(t *testing.T) {
	_, server := startTestApp(t, testConfig(t))

	resp, err := server.Client().Get(server.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
