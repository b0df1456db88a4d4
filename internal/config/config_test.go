package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Port != 5000 {
		t.Errorf("Port = %d, want 5000", cfg.Port)
	}
	if cfg.DataDir != "/var/lib/aoe2-scout" {
		t.Errorf("DataDir = %q, want /var/lib/aoe2-scout", cfg.DataDir)
	}
	if cfg.FetchWorkers != 3 {
		t.Errorf("FetchWorkers = %d, want 3", cfg.FetchWorkers)
	}
	if cfg.SessionIdleMinutes != 20 {
		t.Errorf("SessionIdleMinutes = %d, want 20", cfg.SessionIdleMinutes)
	}
	if cfg.GameSpeedFactor != 1.7 {
		t.Errorf("GameSpeedFactor = %v, want 1.7", cfg.GameSpeedFactor)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
port: 8080
data_dir: /tmp/scout
user_ids:
  - "1520583"
  - "2837512"
refresh_interval_minutes: 30
session_mode_filter: ["RM 1v1"]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.DataDir != "/tmp/scout" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if len(cfg.UserIDs) != 2 || cfg.UserIDs[0] != "1520583" {
		t.Errorf("UserIDs = %v", cfg.UserIDs)
	}
	if cfg.RefreshInterval() != 30*time.Minute {
		t.Errorf("RefreshInterval = %v", cfg.RefreshInterval())
	}
	// Unset keys keep their defaults.
	if cfg.FetchWorkers != 3 {
		t.Errorf("FetchWorkers = %d, want 3", cfg.FetchWorkers)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvDataDir, "/srv/scout-data")
	t.Setenv(EnvPort, "9100")

	cfg := DefaultConfig()
	cfg.DataDir = "/etc/from-file"
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.DataDir != "/srv/scout-data" {
		t.Errorf("DataDir = %q, env override must win", cfg.DataDir)
	}
	if cfg.Port != 9100 {
		t.Errorf("Port = %d, want 9100", cfg.Port)
	}
}

func TestApplyEnvBadPort(t *testing.T) {
	t.Setenv(EnvPort, "not-a-port")
	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err == nil {
		t.Fatal("expected error for bad port")
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for port 0")
	}

	cfg = DefaultConfig()
	cfg.DataDir = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty data_dir")
	}

	cfg = DefaultConfig()
	cfg.FetchWorkers = -1
	cfg.GameSpeedFactor = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.FetchWorkers != 3 || cfg.GameSpeedFactor != 1.7 {
		t.Errorf("zero values not restored: workers=%d factor=%v", cfg.FetchWorkers, cfg.GameSpeedFactor)
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.StateFile(); got != "/var/lib/aoe2-scout/aoe2scout.sqlite" {
		t.Errorf("StateFile = %q", got)
	}
	if got := cfg.ResolvedLogFile(); got != "/var/lib/aoe2-scout/aoe2scout.log" {
		t.Errorf("ResolvedLogFile = %q", got)
	}
	cfg.LogFile = "/tmp/custom.log"
	if got := cfg.ResolvedLogFile(); got != "/tmp/custom.log" {
		t.Errorf("ResolvedLogFile = %q", got)
	}
}
