package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"  validate:"required"`
	Storage StorageConfig `mapstructure:"storage" validate:"required"`
	Remote  RemoteConfig  `mapstructure:"remote"  validate:"required"`
	Sync    SyncConfig    `mapstructure:"sync"    validate:"required"`
	Cache   CacheConfig   `mapstructure:"cache"   validate:"required"`
}

// ServerConfig contains settings for the local control API.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// StorageConfig locates the durable local store on disk.
type StorageConfig struct {
	// Path is the SQLite database file. The parent directory must be
	// writable; when it is not, the store reports a permanent capability
	// failure and the app degrades to online-only mode.
	Path string `mapstructure:"path" validate:"required"`
}

// RemoteConfig describes the remote system pending actions replay against.
type RemoteConfig struct {
	// BaseURL is the root of the remote API. The apply endpoint is
	// POST {BaseURL}/actions; lesson content is GET {BaseURL}/lessons/{id}.
	BaseURL string `mapstructure:"base_url" validate:"required,url"`

	// ProbeURL is an optional cheap endpoint the connectivity monitor may
	// poll. Empty disables probing; the host shell's signal still works.
	ProbeURL string `mapstructure:"probe_url" validate:"omitempty,url"`

	// Timeout bounds each remote call during a flush. A hung apply call
	// counts as a retryable failure once the deadline passes.
	Timeout time.Duration `mapstructure:"timeout" validate:"required"`

	// TokenSecret signs the short-lived device tokens attached to remote
	// requests.
	TokenSecret string `mapstructure:"token_secret" validate:"required,min=32"`

	// DeviceID identifies this installation to the remote system.
	DeviceID string `mapstructure:"device_id" validate:"required"`
}

// SyncConfig tunes the orchestrator's retry behavior.
type SyncConfig struct {
	// RetryBase is the first backoff delay after a failed flush; it doubles
	// per consecutive failure.
	RetryBase time.Duration `mapstructure:"retry_base" validate:"required"`

	// RetryCap bounds the backoff growth.
	RetryCap time.Duration `mapstructure:"retry_cap" validate:"required"`
}

// CacheConfig controls the background response cache.
type CacheConfig struct {
	// Dir is the on-disk response cache directory, kept separate from the
	// structured store so clearing one never touches the other.
	Dir string `mapstructure:"dir" validate:"required"`

	// Version stamps the installed cache contents. Bumping it installs a
	// new cache generation; the old one keeps serving until activation.
	Version string `mapstructure:"version" validate:"required"`

	// PrecacheURLs are the critical assets fetched during install.
	PrecacheURLs []string `mapstructure:"precache_urls"`
}
