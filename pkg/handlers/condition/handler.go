// Package condition provides the branching node handler. It evaluates a
// boolean expression (or a multi-way match) against the node's inputs and
// reports which downstream branch is live.
package condition

import (
	"context"
	"errors"
	"fmt"

	"github.com/fluxion-dev/fluxion/pkg/expression"
	"github.com/fluxion-dev/fluxion/pkg/models"
	"github.com/fluxion-dev/fluxion/pkg/protocol"
)

// Handler evaluates the resolved condition value and routes to a branch.
//
// The "expression" config value normally arrives already evaluated by the
// resolver (it is templated); whatever type remains is coerced to a boolean
// with the language's truthiness rules.
type Handler struct{}

// NewHandler creates a condition handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Execute returns {result, branch}. The orchestrator uses branch to decide
// which sourceHandle edges stay live; untaken paths are later skipped.
func (h *Handler) Execute(_ context.Context, req protocol.Request) (map[string]any, error) {
	// Multi-way match: route on an exact value instead of a boolean.
	if cases, ok := req.Config["cases"].(map[string]any); ok {
		return h.executeMatch(req, cases)
	}

	value, ok := req.Config["expression"]
	if !ok {
		return nil, errors.New("missing required field 'expression'")
	}

	result := expression.Truthy(value)

	branch := models.BranchFalse
	if result {
		branch = models.BranchTrue
	}

	return map[string]any{
		protocol.ConditionResultKey: result,
		protocol.ConditionBranchKey: branch,
	}, nil
}

func (h *Handler) executeMatch(req protocol.Request, cases map[string]any) (map[string]any, error) {
	value, ok := req.Config["value"]
	if !ok {
		return nil, errors.New("multi-way condition requires field 'value'")
	}

	key := fmt.Sprintf("%v", value)

	branch, ok := cases[key].(string)
	if !ok {
		if fallback, ok := req.Config["default"].(string); ok {
			branch = fallback
		} else {
			branch = models.BranchFalse
		}
	}

	return map[string]any{
		protocol.ConditionResultKey: ok,
		protocol.ConditionBranchKey: branch,
		"matched_value":             key,
	}, nil
}
