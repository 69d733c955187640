// Package trigger provides the trigger-category node handlers. Triggers are
// graph entry points: they never consume upstream inputs, always succeed, and
// report metadata about how and when the run was fired.
package trigger

import (
	"context"
	"time"

	"github.com/fluxion-dev/fluxion/pkg/protocol"
)

// Trigger subtypes shipped by default.
const (
	SubtypeManual   = "manual"
	SubtypeWebhook  = "webhook"
	SubtypeSchedule = "schedule"
)

// Handler implements all built-in trigger subtypes; behaviour differs only in
// the reported metadata.
type Handler struct {
	subtype string
	config  map[string]any
}

// NewHandler creates a trigger handler for the given subtype.
func NewHandler(subtype string, config map[string]any) *Handler {
	return &Handler{subtype: subtype, config: config}
}

// Execute reports the firing metadata. Trigger handlers cannot fail.
func (h *Handler) Execute(_ context.Context, req protocol.Request) (map[string]any, error) {
	data := map[string]any{
		"subtype":  h.subtype,
		"fired_at": time.Now().UTC().Format(time.RFC3339),
	}

	switch h.subtype {
	case SubtypeWebhook:
		if path, ok := req.Config["path"].(string); ok {
			data["path"] = path
		}

		if payload, ok := req.Variables["webhook_payload"]; ok {
			data["payload"] = payload
		}
	case SubtypeSchedule:
		if cronExpr, ok := req.Config["cron"].(string); ok {
			data["cron"] = cronExpr
		}
	}

	return data, nil
}
