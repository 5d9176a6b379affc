package pmemkit

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvLogLevel(t *testing.T) {
	tests := []struct {
		val  string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range tests {
		t.Setenv(LogEnvVar, tc.val)
		assert.Equal(t, tc.want, envLogLevel(), "PMEMKIT_LOG=%q", tc.val)
	}
}

func TestLogger_RangeLines(t *testing.T) {
	var out bytes.Buffer
	log := NewLogger(slog.NewTextHandler(&out, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	log.logRange("memset", "clwb", 0xdead000, 128)

	s := out.String()
	assert.Contains(t, s, "memset")
	assert.Contains(t, s, "strategy=clwb")
	assert.Contains(t, s, "size=128")
}

func TestLogger_MemcpyLogsCopiedLength(t *testing.T) {
	var out bytes.Buffer
	log := NewLogger(slog.NewTextHandler(&out, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// A short destination truncates the copy; the logged size must be
	// the bytes actually copied and flushed, not len(src).
	n := NewNoop(WithLogger(log))
	dst := make([]byte, 48)
	src := make([]byte, 128)
	n.Memcpy(dst, src)

	s := out.String()
	assert.Contains(t, s, "memcpy")
	assert.Contains(t, s, "size=48")
	assert.NotContains(t, s, "size=128")
}

func TestLogger_RangeLinesSuppressedAboveDebug(t *testing.T) {
	var out bytes.Buffer
	log := NewLogger(slog.NewTextHandler(&out, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	log.logRange("memset", "clwb", 0xdead000, 128)
	assert.Empty(t, out.String())
}

func TestNoopLogger_Discards(t *testing.T) {
	log := NoopLogger()
	assert.False(t, log.Enabled(context.Background(), slog.LevelError))
}

func TestNewLogger_NilHandler(t *testing.T) {
	assert.NotNil(t, NewLogger(nil).Logger)
}
