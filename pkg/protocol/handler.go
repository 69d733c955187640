// Package protocol defines the contracts between the orchestrator and
// pluggable node handlers. Handlers never reach global state: every external
// effect goes through a collaborator interface injected at construction.
package protocol

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fluxion-dev/fluxion/pkg/models"
)

// Request carries everything a handler may see for one node execution. Config
// arrives with all template expressions already resolved.
type Request struct {
	ExecutionID string
	NodeID      string
	Subtype     string
	Config      map[string]any
	Inputs      map[string]any // upstream node id -> output data
	Variables   map[string]any
	Logger      *slog.Logger
}

// Handler executes one node. The returned map becomes the node's output data.
// Blocking work must honour ctx: the orchestrator cancels it on stop and on
// the node's time budget.
type Handler interface {
	Execute(ctx context.Context, req Request) (map[string]any, error)
}

// HandlerFactory creates handler instances and describes the node type.
type HandlerFactory interface {
	// Create builds a handler for the given static (unresolved) node config.
	Create(config map[string]any) (Handler, error)

	// Category returns the node category this handler serves.
	Category() models.NodeCategory

	// Subtype returns the unique subtype within the category.
	Subtype() string

	// Schema returns the JSON schema describing valid node configuration.
	Schema() map[string]any
}

// Condition handlers return their decision under these output keys.
const (
	ConditionResultKey = "result"
	ConditionBranchKey = "branch"
)

// ActionError wraps the underlying cause of a failed external effect.
type ActionError struct {
	Subtype string
	Cause   error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %s failed: %v", e.Subtype, e.Cause)
}

func (e *ActionError) Unwrap() error {
	return e.Cause
}

// NewActionError creates an ActionError for the given action subtype.
func NewActionError(subtype string, cause error) *ActionError {
	return &ActionError{Subtype: subtype, Cause: cause}
}
