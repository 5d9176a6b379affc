package pmemkit

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// LogEnvVar sets the minimum level of the default logger
// (debug, info, warn or error). Read once at first use and treated as
// read-only afterwards.
const LogEnvVar = "PMEMKIT_LOG"

// Logger wraps slog.Logger with pmemkit-specific helpers. Logging is
// observability-only: disabling it never affects correctness.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler. A nil handler
// falls back to a text handler on stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger that writes human-readable text to
// stderr at the given minimum level.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewJSONLogger creates a Logger that writes JSON lines to stderr at
// the given minimum level.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// defaultLogger builds the process-wide fallback logger once, with its
// level taken from PMEMKIT_LOG.
var defaultLogger = sync.OnceValue(func() *Logger {
	return NewTextLogger(envLogLevel())
})

// envLogLevel maps PMEMKIT_LOG onto a slog level, defaulting to info.
func envLogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(LogEnvVar))) {
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

// logRange emits a debug line for a range operation. The Enabled check
// keeps the hot path allocation-free when debug logging is off.
func (l *Logger) logRange(op, strategy string, addr uintptr, size int) {
	if !l.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	l.Debug(op,
		"strategy", strategy,
		"addr", addr,
		"size", size,
	)
}
