// Package registry maps (category, subtype) pairs to node handler factories
// and validates node configuration against each factory's JSON schema before
// a handler is created.
package registry

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/fluxion-dev/fluxion/pkg/models"
	"github.com/fluxion-dev/fluxion/pkg/protocol"
)

// Registry holds the known node types.
type Registry struct {
	logger    *slog.Logger
	factories map[string]protocol.HandlerFactory
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[string]protocol.HandlerFactory),
	}
}

func key(category models.NodeCategory, subtype string) string {
	return string(category) + "/" + subtype
}

// Register adds a factory. Registering the same (category, subtype) twice
// replaces the earlier factory.
func (r *Registry) Register(factory protocol.HandlerFactory) {
	k := key(factory.Category(), factory.Subtype())
	if _, exists := r.factories[k]; exists {
		r.logger.Warn("replacing node factory", "node_type", k)
	}

	r.factories[k] = factory
}

// Create validates config against the factory's schema and builds a handler.
func (r *Registry) Create(category models.NodeCategory, subtype string, config map[string]any) (protocol.Handler, error) {
	factory, ok := r.factories[key(category, subtype)]
	if !ok {
		return nil, fmt.Errorf("node type '%s/%s' not registered", category, subtype)
	}

	if err := validateConfig(factory.Schema(), config); err != nil {
		return nil, fmt.Errorf("invalid config for node type '%s/%s': %w", category, subtype, err)
	}

	return factory.Create(config)
}

// Schema returns the config schema for a registered node type.
func (r *Registry) Schema(category models.NodeCategory, subtype string) (map[string]any, error) {
	factory, ok := r.factories[key(category, subtype)]
	if !ok {
		return nil, fmt.Errorf("node type '%s/%s' not registered", category, subtype)
	}

	return factory.Schema(), nil
}

// NodeTypes lists the registered (category, subtype) keys.
func (r *Registry) NodeTypes() []string {
	types := make([]string, 0, len(r.factories))
	for k := range r.factories {
		types = append(types, k)
	}

	return types
}

// ValidateGraph checks that every node in the graph resolves to a registered
// factory and carries schema-valid static config. Template expressions are
// still unresolved here, so only structural constraints can be enforced.
func (r *Registry) ValidateGraph(graph *models.WorkflowGraph) error {
	for _, node := range graph.Nodes {
		factory, ok := r.factories[key(node.Category, node.Subtype)]
		if !ok {
			return &models.GraphError{
				NodeID: node.ID,
				Err:    fmt.Errorf("node type '%s/%s' not registered", node.Category, node.Subtype),
			}
		}

		if err := validateConfig(factory.Schema(), node.Config); err != nil {
			return &models.GraphError{NodeID: node.ID, Err: err}
		}
	}

	return nil
}

func validateConfig(schema, config map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}

	if !result.Valid() {
		descs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descs = append(descs, desc.String())
		}

		return fmt.Errorf("validation errors: %s", strings.Join(descs, "; "))
	}

	return nil
}
