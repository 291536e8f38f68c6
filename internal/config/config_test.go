package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/signaldeck/internal/core"
)

func TestLoad_FromFile(t *testing.T) {
	content := []byte(`
api:
  base_url: "http://scanner.internal:8000"
  limit: 50
  portfolio: false

poll:
  interval: 10s

preferences:
  backend: redis
  redis:
    addr: "redis:6379"
`)

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.API.BaseURL != "http://scanner.internal:8000" {
		t.Errorf("unexpected base url %s", cfg.API.BaseURL)
	}
	if cfg.API.Limit != 50 {
		t.Errorf("expected limit 50, got %d", cfg.API.Limit)
	}
	if cfg.API.Portfolio {
		t.Error("expected portfolio disabled")
	}
	if cfg.Poll.Interval != 10*time.Second {
		t.Errorf("expected 10s interval, got %s", cfg.Poll.Interval)
	}
	if cfg.Preferences.Backend != "redis" || cfg.Preferences.Redis.Addr != "redis:6379" {
		t.Errorf("unexpected preferences %+v", cfg.Preferences)
	}

	// Unset keys fall back to defaults
	if cfg.Poll.FetchTimeout != 12*time.Second {
		t.Errorf("expected default fetch timeout, got %s", cfg.Poll.FetchTimeout)
	}
	if cfg.Dashboard.Market != core.MarketCrypto {
		t.Errorf("expected default market CRYPTO, got %s", cfg.Dashboard.Market)
	}
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Poll.Interval != 5*time.Second {
		t.Errorf("expected default 5s interval, got %s", cfg.Poll.Interval)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SIGNALDECK_API_URL", "https://signals.example.com")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "https://signals.example.com" {
		t.Errorf("expected env override, got %s", cfg.API.BaseURL)
	}
}

func TestLoad_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("PREFS_BUCKET", "team-prefs")
	content := []byte(`
preferences:
  backend: s3
  s3:
    bucket: "${PREFS_BUCKET}"
`)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Preferences.S3.Bucket != "team-prefs" {
		t.Errorf("expected expanded bucket, got %q", cfg.Preferences.S3.Bucket)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Poll.Interval != 5*time.Second {
		t.Errorf("expected default interval 5s, got %s", cfg.Poll.Interval)
	}
	if cfg.Dashboard.CopiedIndicator != 2*time.Second {
		t.Errorf("expected copied indicator 2s, got %s", cfg.Dashboard.CopiedIndicator)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr *core.Error
	}{
		{"valid config", func(c *Config) {}, nil},
		{"missing base url", func(c *Config) { c.API.BaseURL = "" }, core.ErrConfigMissing},
		{"relative base url", func(c *Config) { c.API.BaseURL = "/api" }, core.ErrConfigInvalid},
		{"zero limit", func(c *Config) { c.API.Limit = 0 }, core.ErrConfigInvalid},
		{"zero interval", func(c *Config) { c.Poll.Interval = 0 }, core.ErrConfigInvalid},
		{"zero fetch timeout", func(c *Config) { c.Poll.FetchTimeout = 0 }, core.ErrConfigInvalid},
		{"unknown market", func(c *Config) { c.Dashboard.Market = "LSE" }, core.ErrConfigInvalid},
		{"unknown system", func(c *Config) { c.Dashboard.System = "MOMENTUM" }, core.ErrConfigInvalid},
		{"s3 without bucket", func(c *Config) { c.Preferences.Backend = "s3" }, core.ErrConfigMissing},
		{"unknown backend", func(c *Config) { c.Preferences.Backend = "etcd" }, core.ErrConfigInvalid},
		{"memory backend", func(c *Config) { c.Preferences.Backend = "memory" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
