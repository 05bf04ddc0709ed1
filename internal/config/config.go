// Package config holds the explicit configuration surface of the tool. The
// analyzer core never reads ambient process state; everything it needs is
// resolved here (file, then environment, then flags at the CLI layer) and
// passed down as plain structs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultThreshold is the confidence at or above which an endpoint is
// considered safe to prune.
const DefaultThreshold = 80

// configNames are the well-known config file names, checked in order.
var configNames = []string{".graveyard.yml", ".graveyard.yaml", "graveyard.yml"}

// Config is the tool configuration, typically loaded from .graveyard.yml.
type Config struct {
	Spec      string        `yaml:"spec"`
	Logs      string        `yaml:"logs"`
	Service   string        `yaml:"service"`
	Threshold int           `yaml:"threshold"`
	Window    string        `yaml:"window"`
	Server    ServerConfig  `yaml:"server"`
	History   HistoryConfig `yaml:"history"`
}

// ServerConfig configures the dashboard API server.
type ServerConfig struct {
	Port      int     `yaml:"port"`
	RateLimit float64 `yaml:"rate_limit"` // requests per second, 0 disables
	RateBurst int     `yaml:"rate_burst"`
	Watch     bool    `yaml:"watch"`
}

// HistoryConfig configures scan persistence.
type HistoryConfig struct {
	Driver string `yaml:"driver"` // "sqlite" (default) or "postgres"
	DSN    string `yaml:"dsn"`    // sqlite file path or postgres DSN
}

// Default returns the baseline configuration before any file or
// environment override.
func Default() *Config {
	return &Config{
		Threshold: DefaultThreshold,
		Server: ServerConfig{
			Port:      8080,
			RateBurst: 20,
		},
		History: HistoryConfig{
			Driver: "sqlite",
			DSN:    ".graveyard.db",
		},
	}
}

// Load reads a config file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 - caller-supplied config path
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Discover looks for a well-known config file in dir and loads it; when
// none exists the defaults are returned.
func Discover(dir string) (*Config, error) {
	for _, name := range configNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Default(), nil
}

// ParseWindow converts a window expression into a duration. Plain Go
// durations ("720h") work, plus a day suffix ("30d") since log-retention
// windows are usually spoken of in days. Empty means no window.
func ParseWindow(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, fmt.Errorf("invalid window %q: %w", s, err)
		}
		if days < 0 {
			return 0, fmt.Errorf("invalid window %q: must not be negative", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid window %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid window %q: must not be negative", s)
	}
	return d, nil
}
