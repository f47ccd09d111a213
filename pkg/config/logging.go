package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// LoggingConfig controls structured logging and correlation propagation.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"log_level"`

	// CorrelationHeader is the HTTP header carrying the correlation id.
	CorrelationHeader string `yaml:"correlation_header_name"`
}

// DefaultLoggingConfig returns the built-in logging defaults.
func DefaultLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		Level:             "info",
		CorrelationHeader: "X-Correlation-ID",
	}
}

// SlogLevel parses Level into a slog.Level.
func (c *LoggingConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", c.Level)
	}
}
