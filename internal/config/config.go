// Package config loads the aoe2scout daemon configuration from YAML with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables honored at load time. AOE2_DATA_DIR is the one the
// service unit sets and always wins over the config file.
const (
	EnvConfigPath = "AOE2SCOUT_CONFIG"
	EnvDataDir    = "AOE2_DATA_DIR"
	EnvPort       = "AOE2SCOUT_PORT"
)

// Config holds daemon configuration.
type Config struct {
	Port    int    `yaml:"port"`
	DataDir string `yaml:"data_dir"`
	LogFile string `yaml:"log_file"`

	// UserIDs are the aoe2insights profile IDs refreshed in the background.
	UserIDs []string `yaml:"user_ids"`

	FetchWorkers           int      `yaml:"fetch_workers"`            // concurrent per-user fetches (default 3)
	MaxFetchPages          int      `yaml:"max_fetch_pages"`          // page cap per backfill (default 2000)
	RefreshIntervalMinutes int      `yaml:"refresh_interval_minutes"` // 0 disables the background refresher
	SessionIdleMinutes     int      `yaml:"session_idle_minutes"`     // idle gap starting a new play session
	GameSpeedFactor        float64  `yaml:"game_speed_factor"`        // game time vs real time
	SessionModeFilter      []string `yaml:"session_mode_filter"`      // empty = all modes
	ImportWatch            bool     `yaml:"import_watch"`             // watch data dir for legacy JSON caches
	UserAgent              string   `yaml:"user_agent"`
}

// DefaultConfig returns the defaults: port 5000, data under
// /var/lib/aoe2-scout, three fetch workers.
func DefaultConfig() *Config {
	return &Config{
		Port:                   5000,
		DataDir:                "/var/lib/aoe2-scout",
		FetchWorkers:           3,
		MaxFetchPages:          2000,
		RefreshIntervalMinutes: 0,
		SessionIdleMinutes:     20,
		GameSpeedFactor:        1.7,
		ImportWatch:            true,
	}
}

// LoadConfig loads configuration from a YAML file over the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment overrides onto cfg. Invalid values are
// returned as errors rather than silently ignored.
func (c *Config) ApplyEnv() error {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		c.DataDir = dir
	}
	if port := os.Getenv(EnvPort); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.Port = n
	}
	return nil
}

// Validate checks option ranges and fills zero values back to defaults.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", c.Port)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.FetchWorkers <= 0 {
		c.FetchWorkers = 3
	}
	if c.MaxFetchPages <= 0 {
		c.MaxFetchPages = 2000
	}
	if c.SessionIdleMinutes <= 0 {
		c.SessionIdleMinutes = 20
	}
	if c.GameSpeedFactor <= 0 {
		c.GameSpeedFactor = 1.7
	}
	return nil
}

// StateFile returns the SQLite database path under the data directory.
func (c *Config) StateFile() string {
	return filepath.Join(c.DataDir, "aoe2scout.sqlite")
}

// ResolvedLogFile returns the log file path: the configured one, or
// aoe2scout.log under the data directory.
func (c *Config) ResolvedLogFile() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(c.DataDir, "aoe2scout.log")
}

// RefreshInterval returns the background refresh cadence, 0 when disabled.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMinutes) * time.Minute
}

// SessionIdle returns the real-time idle gap that starts a new session.
func (c *Config) SessionIdle() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}
