// Package logmsg provides the log action handler. It emits a structured log
// line carrying the execution and node identifiers, useful as a cheap probe
// inside a workflow.
package logmsg

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fluxion-dev/fluxion/pkg/protocol"
)

const Subtype = "log"

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Handler logs a resolved message at a configurable level.
type Handler struct{}

// NewHandler creates a log handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Execute logs the message and returns {message, level, logged_at}.
func (h *Handler) Execute(ctx context.Context, req protocol.Request) (map[string]any, error) {
	message, ok := req.Config["message"].(string)
	if !ok {
		return nil, errors.New("missing required field 'message'")
	}

	levelName := "info"
	if raw, ok := req.Config["level"].(string); ok {
		levelName = raw
	}

	level, ok := levels[levelName]
	if !ok {
		return nil, errors.New("level must be one of debug, info, warn, error")
	}

	req.Logger.Log(ctx, level, message,
		"execution_id", req.ExecutionID, "node_id", req.NodeID)

	return map[string]any{
		"message":   message,
		"level":     levelName,
		"logged_at": time.Now().UTC().Format(time.RFC3339),
	}, nil
}
