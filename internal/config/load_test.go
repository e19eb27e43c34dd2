package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupEnv sets up environment variables for testing
func setupEnv(t *testing.T, envVars map[string]string) func() {
	// Save current environment values
	originalValues := make(map[string]string)
	for name := range envVars {
		originalValues[name] = os.Getenv(name)
	}

	// Set new environment variables
	for name, value := range envVars {
		if value == "" {
			require.NoError(t, os.Unsetenv(name))
			continue
		}
		err := os.Setenv(name, value)
		require.NoError(t, err, "Failed to set environment variable %s", name)
	}

	// Return cleanup function
	return func() {
		for name, value := range originalValues {
			if value == "" {
				os.Unsetenv(name)
			} else {
				os.Setenv(name, value)
			}
		}
	}
}

// requiredEnv returns the minimal environment for a valid config.
func requiredEnv() map[string]string {
	return map[string]string{
		"LINGOSYNC_STORAGE_PATH":        "/tmp/lingosync/local.db",
		"LINGOSYNC_REMOTE_BASE_URL":     "https://api.example.com/v1",
		"LINGOSYNC_REMOTE_TOKEN_SECRET": "thisisasecretkeythatis32charslong!!",
		"LINGOSYNC_REMOTE_DEVICE_ID":    "device-test-1",
		"LINGOSYNC_CACHE_DIR":           "/tmp/lingosync/cache",
	}
}

func TestLoadDefaults(t *testing.T) {
	env := requiredEnv()
	// Explicitly unset the ones we want to test defaults for
	env["LINGOSYNC_SERVER_PORT"] = ""
	env["LINGOSYNC_SERVER_LOG_LEVEL"] = ""
	env["LINGOSYNC_SYNC_RETRY_BASE"] = ""
	env["LINGOSYNC_SYNC_RETRY_CAP"] = ""
	cleanup := setupEnv(t, env)
	defer cleanup()

	cfg, err := Load()

	require.NoError(t, err, "Load() should not return an error with default values")
	require.NotNil(t, cfg, "Load() should return a non-nil config")
	assert.Equal(t, 8525, cfg.Server.Port, "Default server port should be 8525")
	assert.Equal(t, "info", cfg.Server.LogLevel, "Default log level should be 'info'")
	assert.Equal(t, 10*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, time.Second, cfg.Sync.RetryBase)
	assert.Equal(t, 5*time.Minute, cfg.Sync.RetryCap)
	assert.Equal(t, "v1", cfg.Cache.Version)
}

func TestLoadFromEnvironment(t *testing.T) {
	env := requiredEnv()
	env["LINGOSYNC_SERVER_PORT"] = "9100"
	env["LINGOSYNC_SERVER_LOG_LEVEL"] = "debug"
	env["LINGOSYNC_REMOTE_TIMEOUT"] = "3s"
	env["LINGOSYNC_CACHE_VERSION"] = "v7"
	cleanup := setupEnv(t, env)
	defer cleanup()

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, "/tmp/lingosync/local.db", cfg.Storage.Path)
	assert.Equal(t, "https://api.example.com/v1", cfg.Remote.BaseURL)
	assert.Equal(t, "v7", cfg.Cache.Version)
}

func TestLoadValidation(t *testing.T) {
	testCases := []struct {
		name     string
		override map[string]string
	}{
		{
			name:     "missing storage path",
			override: map[string]string{"LINGOSYNC_STORAGE_PATH": ""},
		},
		{
			name:     "malformed remote base URL",
			override: map[string]string{"LINGOSYNC_REMOTE_BASE_URL": "not-a-url"},
		},
		{
			name:     "token secret too short",
			override: map[string]string{"LINGOSYNC_REMOTE_TOKEN_SECRET": "short"},
		},
		{
			name:     "invalid log level",
			override: map[string]string{"LINGOSYNC_SERVER_LOG_LEVEL": "loud"},
		},
		{
			name:     "port out of range",
			override: map[string]string{"LINGOSYNC_SERVER_PORT": "70000"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := requiredEnv()
			for k, v := range tc.override {
				env[k] = v
			}
			cleanup := setupEnv(t, env)
			defer cleanup()

			cfg, err := Load()

			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}
