package config

import (
	"os"
	"strconv"
)

// LoadFromEnv applies GRAVEYARD_* environment overrides on top of cfg.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("GRAVEYARD_SPEC"); v != "" {
		cfg.Spec = v
	}
	if v := os.Getenv("GRAVEYARD_LOGS"); v != "" {
		cfg.Logs = v
	}
	if v := os.Getenv("GRAVEYARD_SERVICE"); v != "" {
		cfg.Service = v
	}
	if v := os.Getenv("GRAVEYARD_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Threshold = n
		}
	}
	if v := os.Getenv("GRAVEYARD_WINDOW"); v != "" {
		cfg.Window = v
	}
	if v := os.Getenv("GRAVEYARD_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("GRAVEYARD_HISTORY_DRIVER"); v != "" {
		cfg.History.Driver = v
	}
	if v := os.Getenv("GRAVEYARD_HISTORY_DSN"); v != "" {
		cfg.History.DSN = v
	}
}

// GetEnvOrDefault returns an environment variable or a fallback value.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
