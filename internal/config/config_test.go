package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Backend.Timeout != 30*time.Second {
		t.Errorf("backend timeout = %v", cfg.Backend.Timeout)
	}
	if cfg.Demo.Enabled {
		t.Error("demo mode enabled by default")
	}
	if cfg.Session.IdleTTL != 2*time.Hour {
		t.Errorf("idle TTL = %v", cfg.Session.IdleTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("server.port", 9999)
	v.Set("backend.base_url", "https://analytics.internal")
	v.Set("demo.enabled", true)

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 || cfg.Backend.BaseURL != "https://analytics.internal" || !cfg.Demo.Enabled {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("server.port", -1)
	if _, err := Load(v); err == nil {
		t.Error("negative port accepted")
	}
}

func TestLoadRequiresBackendUnlessDemo(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("backend.base_url", "")
	if _, err := Load(v); err == nil {
		t.Error("missing backend URL accepted without demo mode")
	}

	v.Set("demo.enabled", true)
	if _, err := Load(v); err != nil {
		t.Errorf("demo mode should not require a backend URL: %v", err)
	}
}
