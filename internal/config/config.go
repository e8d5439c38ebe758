// Package config resolves runtime configuration from viper: config file,
// QUERYDECK_* environment variables, and bound CLI flags, in that order of
// increasing precedence.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved runtime configuration.
type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Session SessionConfig
	Demo    DemoConfig
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host              string
	Port              int
	CORSOrigins       []string
	RequestsPerMinute int
	ShutdownTimeout   time.Duration
}

// BackendConfig points at the analytics backend that owns the schema and
// query endpoints.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SessionConfig controls query-builder session housekeeping.
type SessionConfig struct {
	IdleTTL time.Duration
}

// DemoConfig enables the offline demo engine. It is never enabled
// implicitly.
type DemoConfig struct {
	Enabled bool
}

// SetDefaults registers every config key's default on the viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.requests_per_minute", 240)
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.timeout", "30s")
	v.SetDefault("session.idle_ttl", "2h")
	v.SetDefault("demo.enabled", false)
}

// Load reads the resolved configuration out of the viper instance.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:              v.GetString("server.host"),
			Port:              v.GetInt("server.port"),
			CORSOrigins:       v.GetStringSlice("server.cors_origins"),
			RequestsPerMinute: v.GetInt("server.requests_per_minute"),
			ShutdownTimeout:   v.GetDuration("server.shutdown_timeout"),
		},
		Backend: BackendConfig{
			BaseURL: v.GetString("backend.base_url"),
			Timeout: v.GetDuration("backend.timeout"),
		},
		Session: SessionConfig{
			IdleTTL: v.GetDuration("session.idle_ttl"),
		},
		Demo: DemoConfig{
			Enabled: v.GetBool("demo.enabled"),
		},
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return cfg, fmt.Errorf("invalid server.port %d", cfg.Server.Port)
	}
	if !cfg.Demo.Enabled && cfg.Backend.BaseURL == "" {
		return cfg, fmt.Errorf("backend.base_url is required unless demo mode is enabled")
	}
	return cfg, nil
}
