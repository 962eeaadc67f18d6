package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls logger construction and maps directly to environment
// variables so the composition root can load it with core/config.
type Config struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// New returns a JSON logger writing to stdout at info level.
func New() *slog.Logger {
	return NewWithConfig(Config{Level: "info", Format: "json"}, os.Stdout)
}

// NewWithConfig builds a logger from config, writing to w.
func NewWithConfig(cfg Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}

// NewDiscard returns a logger that drops everything. Used as the default in
// components that accept an optional logger.
func NewDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
