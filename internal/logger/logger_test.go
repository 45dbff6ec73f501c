package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestSetup_JSON(t *testing.T) {
	t.Setenv(EnvLevel, "")
	var buf bytes.Buffer

	l := Setup("warn", "json", &buf)
	l.Info("hidden")
	l.Warn("shown", "path", "a.txt")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "a.txt", rec["path"])
}

func TestSetup_EnvOverrides(t *testing.T) {
	t.Setenv(EnvLevel, "debug")
	var buf bytes.Buffer

	l := Setup("error", "text", &buf)
	l.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}
