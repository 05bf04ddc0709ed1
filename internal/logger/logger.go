// Package logger builds the zap loggers the tool runs with.
package logger

import (
	"os"

	"go.uber.org/zap"
)

// NewCLI returns a logger for command-line runs. Output stays quiet at
// warn level so reports on stdout are not interleaved with log lines;
// GRAVEYARD_DEBUG switches to a development logger.
func NewCLI() (*zap.Logger, error) {
	if os.Getenv("GRAVEYARD_DEBUG") != "" {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// NewServer returns a production logger with full request logging for the
// API server.
func NewServer() (*zap.Logger, error) {
	return zap.NewProduction()
}
