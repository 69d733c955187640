package transform

import (
	"github.com/fluxion-dev/fluxion/pkg/models"
	"github.com/fluxion-dev/fluxion/pkg/protocol"
)

// Factory creates transform handlers.
type Factory struct{}

// NewFactory creates the transform node factory.
func NewFactory() protocol.HandlerFactory {
	return &Factory{}
}

func (f *Factory) Create(_ map[string]any) (protocol.Handler, error) {
	return NewHandler(), nil
}

func (f *Factory) Category() models.NodeCategory {
	return models.CategoryTransform
}

func (f *Factory) Subtype() string {
	return Subtype
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"output": map[string]any{
				"description": "Shape of the node output. Values support templating, e.g. {\"total\": \"{{ $node.fetch.count * 2 }}\"}",
			},
			"merge": map[string]any{
				"type":        "boolean",
				"description": "Merge all upstream outputs into one map instead of using 'output'",
			},
			"pick": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Keep only these keys in the result",
			},
		},
	}
}
