// Package logging provides the diagnostic logger shared by the internal
// packages. User-facing output goes through internal/ui instead.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// EnvDebug enables debug-level diagnostics when set to any non-empty value.
const EnvDebug = "PBSETUP_DEBUG"

// Logger provides structured logging for internal packages.
// *slog.Logger satisfies it, as does any adapter with the same shape.
type Logger interface {
	// Debug logs debug-level messages with optional key-value pairs.
	Debug(msg string, keysAndValues ...interface{})

	// Info logs info-level messages with optional key-value pairs.
	Info(msg string, keysAndValues ...interface{})

	// Warn logs warning-level messages with optional key-value pairs.
	Warn(msg string, keysAndValues ...interface{})

	// Error logs error-level messages with optional key-value pairs.
	Error(msg string, keysAndValues ...interface{})
}

// noopLogger is a Logger implementation that does nothing.
type noopLogger struct{}

func (n *noopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (n *noopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (n *noopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (n *noopLogger) Error(msg string, keysAndValues ...interface{}) {}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return &noopLogger{}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop()
	}
	return l
}

// DebugEnabled reports whether PBSETUP_DEBUG is set.
func DebugEnabled() bool {
	return os.Getenv(EnvDebug) != ""
}

// New returns a text logger writing to w. Records below Warn are dropped
// unless debug is true. Every record carries the run_id attribute so that
// lines from one invocation can be grouped.
func New(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("run_id", uuid.NewString())
}
