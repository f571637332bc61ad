package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.MaxConns != 25 || cfg.Database.MinConns != 5 {
		t.Errorf("Database conns = %d/%d", cfg.Database.MaxConns, cfg.Database.MinConns)
	}
	if cfg.Cache.Enabled {
		t.Error("Cache.Enabled default should be false")
	}
	if cfg.Cache.ExportTTL != 10*time.Minute {
		t.Errorf("Cache.ExportTTL = %s", cfg.Cache.ExportTTL)
	}
	if cfg.Seed.Dir != "./data/seed" {
		t.Errorf("Seed.Dir = %q", cfg.Seed.Dir)
	}
	if cfg.Seed.LoadTimeout != 30*time.Second {
		t.Errorf("Seed.LoadTimeout = %s", cfg.Seed.LoadTimeout)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PHARM_SERVER_PORT", "9090")
	t.Setenv("PHARM_SEED_DIR", "/srv/seed")
	t.Setenv("PHARM_CACHE_ENABLED", "true")
	t.Setenv("PHARM_CACHE_EXPORT_TTL", "1h")
	t.Setenv("PHARM_LOG_FORMAT", "text")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Seed.Dir != "/srv/seed" {
		t.Errorf("Seed.Dir = %q", cfg.Seed.Dir)
	}
	if !cfg.Cache.Enabled {
		t.Error("Cache.Enabled = false")
	}
	if cfg.Cache.ExportTTL != time.Hour {
		t.Errorf("Cache.ExportTTL = %s", cfg.Cache.ExportTTL)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q", cfg.Log.Format)
	}
}

func TestLoad_MalformedValuesKeepDefaults(t *testing.T) {
	t.Setenv("PHARM_SERVER_PORT", "not-a-number")
	t.Setenv("PHARM_SEED_LOAD_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default", cfg.Server.Port)
	}
	if cfg.Seed.LoadTimeout != 30*time.Second {
		t.Errorf("Seed.LoadTimeout = %s, want default", cfg.Seed.LoadTimeout)
	}
}

func TestValidate(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v", err)
	}

	cfg.Seed.Dir = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail without a seed dir")
	}

	cfg, _ = Load()
	cfg.Cache.Enabled = true
	cfg.Cache.URL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail when cache enabled without URL")
	}

	cfg, _ = Load()
	cfg.Seed.LoadTimeout = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for a zero load timeout")
	}
}
