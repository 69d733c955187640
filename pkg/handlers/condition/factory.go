package condition

import (
	"github.com/fluxion-dev/fluxion/pkg/models"
	"github.com/fluxion-dev/fluxion/pkg/protocol"
)

// Factory creates condition handlers.
type Factory struct{}

// NewFactory creates the condition node factory.
func NewFactory() protocol.HandlerFactory {
	return &Factory{}
}

func (f *Factory) Create(_ map[string]any) (protocol.Handler, error) {
	return NewHandler(), nil
}

func (f *Factory) Category() models.NodeCategory {
	return models.CategoryCondition
}

func (f *Factory) Subtype() string {
	return "expression"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"description": "Templated expression coerced to a boolean, e.g. {{ $node.fetch.status == 200 }}",
			},
			"value": map[string]any{
				"description": "Value to match against 'cases' for multi-way routing",
			},
			"cases": map[string]any{
				"type":        "object",
				"description": "Map of matched value to output branch name",
			},
			"default": map[string]any{
				"type":        "string",
				"description": "Branch taken when no case matches",
			},
		},
	}
}
