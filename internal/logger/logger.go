// Package logger holds the shared slog instance for the whole process.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Log is the process-wide logger. Packages log through it before main has a
// chance to configure anything, so init gives it a usable default.
var Log *slog.Logger

func init() {
	Initialize("info", false)
}

// Initialize replaces Log with a handler at the given level, emitting text or
// JSON lines. cmd/quill calls this once with the configured values.
func Initialize(level string, useJSON bool) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: true,
	}

	if useJSON {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	Log = slog.New(handler)
	slog.SetDefault(Log)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
