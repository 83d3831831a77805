package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"Error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for name, want := range tests {
		assert.Equal(t, want, ParseLevel(name), "level %q", name)
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "", slog.LevelInfo)

	logger = WithAction(WithNodeID(WithDispatchID(logger, "d-1"), "n-1"), "container", "stats")
	logger.Debug("hidden")
	logger.Info("stream connected")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "stream connected", rec["msg"])
	assert.Equal(t, "d-1", rec["dispatch_id"])
	assert.Equal(t, "n-1", rec["node_id"])
	assert.Equal(t, "container", rec["kind"])
	assert.Equal(t, "stats", rec["action"])
	assert.NotContains(t, rec, "source")
}

func TestNewLogger_TextDebugSource(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "TEXT", slog.LevelDebug).Debug("probe")

	assert.Contains(t, buf.String(), "msg=probe")
	assert.Contains(t, buf.String(), "source=")
}

func TestFromContext(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))

	logger := NewLogger(&bytes.Buffer{}, "json", slog.LevelInfo)
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
}
