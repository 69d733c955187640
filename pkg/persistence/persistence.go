// Package persistence provides the storage abstraction for workflows and
// execution records. Implementations must survive process restarts: an
// execution record together with its node outputs is the checkpoint that
// resume builds on.
package persistence

import (
	"context"

	"github.com/fluxion-dev/fluxion/pkg/models"
)

// WorkflowRepository stores workflow definitions.
type WorkflowRepository interface {
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error
}

// ExecutionRepository stores execution records and their per-node outputs.
//
// AppendNodeOutput and UpdateExecution are the checkpoint writes: the
// orchestrator persists each node's output before moving on, so a record read
// back after a crash reflects every node that finished.
type ExecutionRepository interface {
	CreateExecution(ctx context.Context, record *models.ExecutionRecord) error
	GetExecution(ctx context.Context, id string) (*models.ExecutionRecord, error)
	ListExecutions(ctx context.Context, workflowID string) ([]*models.ExecutionRecord, error)

	// UpdateExecution applies the non-nil fields of patch. Implementations
	// must reject status changes on records already in a terminal status
	// with ErrTerminalState.
	UpdateExecution(ctx context.Context, id string, patch models.ExecutionPatch) error

	// AppendNodeOutput upserts one node's output on the record.
	AppendNodeOutput(ctx context.Context, id string, output models.NodeOutput) error

	// AppendLog attaches a log entry to the record's execution history.
	AppendLog(ctx context.Context, id string, entry models.ExecutionLogEntry) error
}

// Persistence bundles the repositories behind one backend connection.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
