package httprequest

import (
	"github.com/fluxion-dev/fluxion/pkg/models"
	"github.com/fluxion-dev/fluxion/pkg/protocol"
)

// Factory creates HTTP request handlers bound to a shared client.
type Factory struct {
	client protocol.HTTPDoer
}

// NewFactory creates the HTTP request node factory.
func NewFactory(client protocol.HTTPDoer) protocol.HandlerFactory {
	return &Factory{client: client}
}

func (f *Factory) Create(_ map[string]any) (protocol.Handler, error) {
	return NewHandler(f.client), nil
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
			"url": map[string]any{
				"type":        "string",
				"description": "URL to request. Supports templating, e.g. https://{{ $vars.api_host }}/users",
			},
			"method": map[string]any{
				"type":    "string",
				"default": "GET",
				"enum":    []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"},
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "HTTP headers. Values support templating",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Request body. Supports templating for dynamic content",
			},
			"timeout": map[string]any{
				"type":        "number",
				"description": "Request timeout in seconds",
				"default":     30,
				"minimum":     1,
				"maximum":     300,
			},
			"retries": map[string]any{
				"type":        "object",
				"description": "Opt-in retry for transient failures. Off unless configured",
				"properties": map[string]any{
					"attempts": map[string]any{
						"type":        "number",
						"description": "Total attempts including the initial request",
						"default":     1,
						"minimum":     1,
						"maximum":     10,
					},
					"delay": map[string]any{
						"type":        "number",
						"description": "Delay between attempts in milliseconds",
						"default":     1000,
						"minimum":     0,
					},
				},
			},
		},
		"required": []string{"url"},
	}
}
