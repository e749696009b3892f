// Package log configures the process-wide structured logger.
package log

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// Setup installs the default slog logger. Local development gets a colored
// tint handler; everything else logs machine-readable JSON.
func Setup(logLevel, format string) {
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler

	switch format {
	case "pretty":
		handler = tint.NewHandler(os.Stderr, &tint.Options{Level: level})
	default:
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	slog.SetDefault(slog.New(handler))
}

func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
