// internal/logger/logger.go
// Package logger builds the application's slog.Logger.
package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/phsym/console-slog"
	"golang.org/x/term"
)

// Options controls logger construction.
type Options struct {
	// Debug lowers the level to debug and adds source locations
	Debug bool
	// Console selects the human-readable handler instead of JSON
	Console bool
}

// New returns a logger writing to w.
func New(w io.Writer, opts Options) *slog.Logger {
	level := &slog.LevelVar{}
	level.Set(slog.LevelInfo)
	if opts.Debug {
		level.Set(slog.LevelDebug)
	}

	var handler slog.Handler
	if opts.Console {
		handler = console.NewHandler(w, &console.HandlerOptions{
			AddSource: opts.Debug,
			Level:     level,
		})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource: opts.Debug,
			Level:     level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey && len(groups) == 0 {
					a.Key = "ts"
				}
				return a
			},
		})
	}
	return slog.New(handler)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
