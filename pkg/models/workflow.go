package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow definition.
type WorkflowStatus string

const (
	WorkflowStatusDraft       WorkflowStatus = "draft"       // Editable, not executable
	WorkflowStatusPublished   WorkflowStatus = "published"   // Current active, executable
	WorkflowStatusUnpublished WorkflowStatus = "unpublished" // Historical, not executable
)

// Workflow is a stored workflow definition. The Graph it carries is snapshotted
// into each ExecutionRecord's run, so later edits never touch running executions.
type Workflow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description"`
	Status      WorkflowStatus `json:"status"      validate:"required,oneof=draft published unpublished"`
	Graph       *WorkflowGraph `json:"graph"       validate:"required"`
	Variables   map[string]any `json:"variables,omitempty"`
	Owner       string         `json:"owner,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Executable reports whether the workflow may be submitted for execution.
func (w *Workflow) Executable() bool {
	return w.Status == WorkflowStatusPublished && w.Graph != nil && len(w.Graph.Nodes) > 0
}
