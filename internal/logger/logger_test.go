package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_Init(t *testing.T) {
	levels := []string{"debug", "info", "warn", "error", "invalid"}

	for _, level := range levels {
		t.Run("Level_"+level, func(t *testing.T) {
			Init(level)
			assert.NotNil(t, Get())
		})
	}
}

func TestLogger_GetAutoInitializes(t *testing.T) {
	logger = nil
	assert.NotNil(t, Get())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("invalid-level"))
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", "json")

	log.Debug("hidden")
	log.Info("queued", "job", "deploy")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "queued", entry["msg"])
	assert.Equal(t, "deploy", entry["job"])
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug", "text")

	log.Debug("polling", "target", "queue")
	assert.Contains(t, buf.String(), "msg=polling")
	assert.Contains(t, buf.String(), "target=queue")
}

func TestLogger_LogMethods(t *testing.T) {
	Init("debug")

	// Package-level helpers must not panic
	Debug("test debug message", "key", "value")
	Info("test info message", "key", "value")
	Warn("test warn message", "key", "value")
	Error("test error message", "key", "value")
	With("run_id", "abc").Info("scoped")
}
