// Package logging provides structured logging utilities.
//
// The default console format is Maven-style with colors:
// [LEVEL] [SYSTEM] [run 1a2b3c4d] [HH:MM:SS] message key=value
//
// "json" and "text" formats use the standard slog handlers for log shipping.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/eshaffer321/buybox-analyzer/internal/infrastructure/config"
)

// Attribute keys rendered as brackets by the console handler
const (
	SystemKey = "system"
	RunKey    = "run_id"
)

// NewLogger creates a structured logger writing to stdout
func NewLogger(cfg config.LoggingConfig) *slog.Logger {
	return NewLoggerTo(os.Stdout, cfg)
}

// NewLoggerTo creates a structured logger writing to w
func NewLoggerTo(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "logfmt":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = NewMavenHandler(w, opts)
	}

	return slog.New(handler)
}

// NewLoggerWithSystem creates a logger with a system prefix (e.g., "spapi", "pipeline", "api")
func NewLoggerWithSystem(cfg config.LoggingConfig, system string) *slog.Logger {
	return NewLogger(cfg).With(SystemKey, system)
}

// ForRun scopes a logger to one analysis run
func ForRun(logger *slog.Logger, runID string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(RunKey, runID)
}

// ParseLevel maps a config level name to a slog level. Unknown names mean info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
