// Package telemetry configures logging and OpenTelemetry export.
package telemetry

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel reads LOG_LEVEL (DEBUG, INFO, WARN, ERROR). Defaults to INFO.
func LogLevel() slog.Level {
	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger returns a logger writing to w. LOG_FORMAT=text selects the text
// handler; JSON otherwise.
func NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: LogLevel()}
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// SetupLogger installs NewLogger(os.Stderr) as the default logger.
func SetupLogger() *slog.Logger {
	logger := NewLogger(os.Stderr)
	slog.SetDefault(logger)
	return logger
}
