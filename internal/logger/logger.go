// Package logger provides structured logging configuration.
// Code logs through log/slog; charmbracelet/log renders the records.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// Config holds logger configuration.
type Config struct {
	Level  slog.Level
	Format string    // "text", "json" or "logfmt"
	Output io.Writer // defaults to os.Stderr
}

// NewLogger creates a configured slog.Logger.
func NewLogger(cfg Config) *slog.Logger {
	return slog.New(NewHandler(cfg))
}

// NewHandler creates the slog handler behind NewLogger.
func NewHandler(cfg Config) slog.Handler {
	w := cfg.Output
	if w == nil {
		w = os.Stderr
	}

	return charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(cfg.Level),
		Formatter:       formatter(cfg.Format),
		ReportTimestamp: true,
		// Caller reporting is only worth its cost when debugging
		ReportCaller: cfg.Level <= slog.LevelDebug,
	})
}

func formatter(format string) charmlog.Formatter {
	switch strings.ToLower(format) {
	case "json":
		return charmlog.JSONFormatter
	case "logfmt":
		return charmlog.LogfmtFormatter
	default:
		return charmlog.TextFormatter
	}
}

// ParseLevel parses DEBUG, INFO, WARN, WARNING or ERROR (case-insensitive).
// Unknown values return fallback.
func ParseLevel(s string, fallback slog.Level) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return fallback
	}
}

// DefaultConfig returns the default logger configuration.
// TUNEQUEUE_LOG_LEVEL overrides the INFO default.
func DefaultConfig() Config {
	return Config{
		Level:  ParseLevel(os.Getenv("TUNEQUEUE_LOG_LEVEL"), slog.LevelInfo),
		Format: "text",
	}
}
