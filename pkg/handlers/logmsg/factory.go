package logmsg

import (
	"github.com/fluxion-dev/fluxion/pkg/models"
	"github.com/fluxion-dev/fluxion/pkg/protocol"
)

// Factory creates log handlers.
type Factory struct{}

// NewFactory creates the log node factory.
func NewFactory() protocol.HandlerFactory {
	return &Factory{}
}

func (f *Factory) Create(_ map[string]any) (protocol.Handler, error) {
	return NewHandler(), nil
}

func (f *Factory) Category() models.NodeCategory {
	return models.CategoryAction
}

func (f *Factory) Subtype() string {
	return Subtype
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Message to log. Supports templating, e.g. processed {{ $node.fetch.count }} items",
			},
			"level": map[string]any{
				"type":    "string",
				"enum":    []string{"debug", "info", "warn", "error"},
				"default": "info",
			},
		},
		"required": []string{"message"},
	}
}
