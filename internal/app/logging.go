package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dshills/inkterm/internal/config"
)

// ParseLevel parses a level name. Unknown names map to info.
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

// Logging is the process logger together with its adjustable level.
type Logging struct {
	Logger *slog.Logger
	Level  *slog.LevelVar
	file   *os.File
}

// NewLogging builds a text or JSON slog handler. Output goes to cfg.File
// when set (appended), otherwise to fallback.
func NewLogging(cfg config.LoggingConfig, fallback io.Writer) (*Logging, error) {
	l := &Logging{Level: new(slog.LevelVar)}
	l.Level.Set(ParseLevel(cfg.Level))

	w := fallback
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.file = f
		w = f
	}
	if w == nil {
		w = io.Discard
	}

	opts := &slog.HandlerOptions{Level: l.Level}
	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	l.Logger = slog.New(h)
	return l, nil
}

// SetLevel changes the level of every logger derived from this one.
func (l *Logging) SetLevel(name string) {
	l.Level.Set(ParseLevel(name))
}

// Close closes the log file, if any.
func (l *Logging) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
