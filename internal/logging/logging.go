// Package logging configures the process-wide slog logger. Logs go to
// stderr so table output on stdout stays pipeable.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New builds a text logger at the named level ("debug", "info", "warn",
// "error"); unknown names fall back to info.
func New(level string) *slog.Logger {
	return newWithWriter(os.Stderr, level)
}

func newWithWriter(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelFromVerbosity maps the -v/-q flags onto a level name: quiet wins,
// then verbose, then the configured base level.
func LevelFromVerbosity(base string, verbose, quiet bool) string {
	switch {
	case quiet:
		return "error"
	case verbose:
		return "debug"
	default:
		return base
	}
}

// Discard returns a logger that drops everything; used in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
