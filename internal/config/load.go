package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config file. Environment variables use the LINGOSYNC_ prefix with
// underscores for nesting (LINGOSYNC_SERVER_PORT) and take precedence over
// file values. Returns a populated Config or an error when loading or
// validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("lingosync")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/lingosync")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; environment variables carry the rest.
	}

	v.SetEnvPrefix("LINGOSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv alone does not surface env-only keys through Unmarshal,
	// so bind each key explicitly.
	for _, key := range []string{
		"server.port", "server.log_level",
		"storage.path",
		"remote.base_url", "remote.probe_url", "remote.timeout",
		"remote.token_secret", "remote.device_id",
		"sync.retry_base", "sync.retry_cap",
		"cache.dir", "cache.version", "cache.precache_urls",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers the defaults applied when neither the environment
// nor a config file provides a value.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8525)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("remote.timeout", 10*time.Second)
	v.SetDefault("sync.retry_base", time.Second)
	v.SetDefault("sync.retry_cap", 5*time.Minute)
	v.SetDefault("cache.version", "v1")
}
