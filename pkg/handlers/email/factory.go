package email

import (
	"github.com/fluxion-dev/fluxion/pkg/models"
	"github.com/fluxion-dev/fluxion/pkg/protocol"
)

// Factory creates email handlers bound to a shared mailer.
type Factory struct {
	mailer protocol.Mailer
}

// NewFactory creates the email node factory.
func NewFactory(mailer protocol.Mailer) protocol.HandlerFactory {
	return &Factory{mailer: mailer}
}

func (f *Factory) Create(_ map[string]any) (protocol.Handler, error) {
	return NewHandler(f.mailer), nil
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
			"to": map[string]any{
				"type":        "string",
				"description": "Recipient address. Supports templating, e.g. {{ $node.lookup.email }}",
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Message subject. Supports templating",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Message body. Supports templating for dynamic content",
			},
		},
		"required": []string{"to", "subject"},
	}
}
