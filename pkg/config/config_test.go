package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if cfg.Host != "localhost" || cfg.Port != 8080 {
		t.Fatalf("unexpected defaults: %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.SessionTTL.Duration != 24*time.Hour {
		t.Fatalf("unexpected default session ttl %v", cfg.SessionTTL)
	}
	if cfg.DatabasePath == "" {
		t.Fatal("expected a default database path")
	}
}

func TestLoadConfigParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
database_path = "/tmp/agora-test.db"
host = "0.0.0.0"
port = 9999
redis_url = "redis://localhost:6379/2"
session_ttl = "30m"
admin_email = "root@example.com"
admin_password = "secret"
debug = ["realtime", "notifications"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if cfg.DatabasePath != "/tmp/agora-test.db" {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath)
	}
	if cfg.Host != "0.0.0.0" || cfg.Port != 9999 {
		t.Fatalf("unexpected listen address %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.RedisURL != "redis://localhost:6379/2" {
		t.Fatalf("unexpected redis url %q", cfg.RedisURL)
	}
	if cfg.SessionTTL.Duration != 30*time.Minute {
		t.Fatalf("unexpected session ttl %v", cfg.SessionTTL)
	}
	if len(cfg.Debug) != 2 || cfg.Debug[0] != "realtime" {
		t.Fatalf("unexpected debug list %v", cfg.Debug)
	}
}

func TestLoadConfigFillsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`port = 3000`), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if cfg.Port != 3000 {
		t.Fatalf("file value lost, got port %d", cfg.Port)
	}
	if cfg.Host != "localhost" {
		t.Fatalf("missing host not defaulted, got %q", cfg.Host)
	}
	if cfg.SessionTTL.Duration != 24*time.Hour {
		t.Fatalf("missing ttl not defaulted, got %v", cfg.SessionTTL)
	}
}

func TestSaveSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := SaveSample(path); err != nil {
		t.Fatalf("writing sample: %v", err)
	}

	// The sample must load cleanly.
	if _, err := LoadConfig(path); err != nil {
		t.Fatalf("loading sample: %v", err)
	}

	if err := SaveSample(path); err == nil {
		t.Fatal("expected error overwriting existing config")
	}
}
