package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls logger behavior.
type Config struct {
	Level     slog.Level
	Format    string
	DevMode   bool
	AddSource bool

	// Output defaults to stderr; stdout is reserved for command output.
	Output io.Writer
}

// New creates a configured slog.Logger.
// DevMode or Format "text" produce human-readable text; "json" produces JSON.
func New(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource || cfg.DevMode,
	}

	w := cfg.Output
	if w == nil {
		w = os.Stderr
	}

	var handler slog.Handler
	if cfg.DevMode || !strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
