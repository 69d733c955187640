package logmsg

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxion-dev/fluxion/pkg/protocol"
)

func TestExecuteLogsMessage(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := NewHandler()

	out, err := h.Execute(context.Background(), protocol.Request{
		ExecutionID: "exec-1",
		NodeID:      "trace",
		Config:      map[string]any{"message": "processed 3 items", "level": "warn"},
		Logger:      logger,
	})
	require.NoError(t, err)

	assert.Equal(t, "processed 3 items", out["message"])
	assert.Equal(t, "warn", out["level"])
	assert.NotEmpty(t, out["logged_at"])

	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "execution_id=exec-1")
	assert.Contains(t, buf.String(), "node_id=trace")
}

func TestExecuteDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := NewHandler()

	out, err := h.Execute(context.Background(), protocol.Request{
		Config: map[string]any{"message": "hello"},
		Logger: logger,
	})
	require.NoError(t, err)
	assert.Equal(t, "info", out["level"])
	assert.Contains(t, buf.String(), "level=INFO")
}

func TestExecuteRejectsBadConfig(t *testing.T) {
	h := NewHandler()

	_, err := h.Execute(context.Background(), protocol.Request{
		Config: map[string]any{"level": "info"},
		Logger: slog.New(slog.DiscardHandler),
	})
	require.Error(t, err)

	_, err = h.Execute(context.Background(), protocol.Request{
		Config: map[string]any{"message": "hello", "level": "verbose"},
		Logger: slog.New(slog.DiscardHandler),
	})
	require.Error(t, err)
}
