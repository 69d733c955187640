// Package web provides HTTP request and response types for the fluxion API.
package web

import "github.com/fluxion-dev/fluxion/pkg/models"

// CreateWorkflowRequest represents the request body for creating a new workflow.
type CreateWorkflowRequest struct {
	Name        string                `json:"name"        validate:"required,min=3"`
	Description string                `json:"description"`
	Graph       *models.WorkflowGraph `json:"graph"       validate:"required"`
	Variables   map[string]any        `json:"variables,omitempty"`
	Owner       string                `json:"owner,omitempty"`
}

// UpdateWorkflowRequest represents the request body for updating an existing
// workflow. All fields are optional to support partial updates.
type UpdateWorkflowRequest struct {
	Name        *string               `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string               `json:"description,omitempty"`
	Graph       *models.WorkflowGraph `json:"graph,omitempty"`
	Variables   map[string]any        `json:"variables,omitempty"`
}

// SubmitExecutionRequest represents the request body for submitting a workflow
// execution. Priority selects the queue priority class; empty means normal.
type SubmitExecutionRequest struct {
	WorkflowID string         `json:"workflow_id" validate:"required"`
	Inputs     map[string]any `json:"inputs,omitempty"`
	Priority   string         `json:"priority,omitempty" validate:"omitempty,oneof=low normal high critical"`
}

// StopExecutionRequest carries an optional operator-facing reason recorded on
// the stopped execution.
type StopExecutionRequest struct {
	Reason string `json:"reason,omitempty"`
}

// SubmitExecutionResponse is returned when an execution is accepted.
type SubmitExecutionResponse struct {
	ExecutionID string `json:"execution_id"`
	WorkflowID  string `json:"workflow_id"`
	Status      string `json:"status"`
}

// NodeTypeResponse describes one registered node handler and its config schema.
type NodeTypeResponse struct {
	Type   string         `json:"type"`
	Schema map[string]any `json:"schema,omitempty"`
}
