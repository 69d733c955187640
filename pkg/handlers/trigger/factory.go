package trigger

import (
	"github.com/fluxion-dev/fluxion/pkg/models"
	"github.com/fluxion-dev/fluxion/pkg/protocol"
)

// Factory creates trigger handlers for one subtype.
type Factory struct {
	subtype string
	schema  map[string]any
}

// NewManualFactory creates the factory for manually fired triggers.
func NewManualFactory() protocol.HandlerFactory {
	return &Factory{
		subtype: SubtypeManual,
		schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}
}

// NewWebhookFactory creates the factory for webhook-fired triggers.
func NewWebhookFactory() protocol.HandlerFactory {
	return &Factory{
		subtype: SubtypeWebhook,
		schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Webhook path the trigger listens on",
				},
			},
		},
	}
}

// NewScheduleFactory creates the factory for cron-scheduled triggers.
func NewScheduleFactory() protocol.HandlerFactory {
	return &Factory{
		subtype: SubtypeSchedule,
		schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"cron": map[string]any{
					"type":        "string",
					"description": "Cron expression in standard five-field format",
				},
			},
			"required": []any{"cron"},
		},
	}
}

func (f *Factory) Create(config map[string]any) (protocol.Handler, error) {
	return NewHandler(f.subtype, config), nil
}

func (f *Factory) Category() models.NodeCategory {
	return models.CategoryTrigger
}

func (f *Factory) Subtype() string {
	return f.subtype
}

func (f *Factory) Schema() map[string]any {
	return f.schema
}
