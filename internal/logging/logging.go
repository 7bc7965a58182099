// Package logging builds the slog logger shared by the digest pipeline.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New creates a console slog.Logger for the given level string. Unknown
// values fall back to info, the pipeline's configured default.
func New(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: levelFromString(level),
	})
	return slog.New(handler)
}

func levelFromString(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
