package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/todo-sync-server/logging"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := logging.ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := logging.ParseLevel("loud")
	assert.Error(t, err)
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(&buf, "info", "json")
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Warn("skipping invalid document", "id", "abc")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "skipping invalid document", line["message"])
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, map[string]any{"id": "abc"}, line["meta"])
	assert.NotContains(t, line, "msg")
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(&buf, "debug", "text")
	require.NoError(t, err)

	logger.Info("listening", "addr", ":8080")
	assert.Contains(t, buf.String(), "listening")
	assert.Contains(t, buf.String(), ":8080")
}

func TestBadFormat(t *testing.T) {
	_, err := logging.New(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)
	_, err = logging.New(&bytes.Buffer{}, "nope", "json")
	assert.Error(t, err)
}
