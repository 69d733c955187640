// Package orchestrator drives workflow executions. The Orchestrator type is
// the client side: it validates submissions, creates the durable execution
// record and publishes control intents. The Worker type consumes those
// intents and runs the graph node by node, checkpointing after every node.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fluxion-dev/fluxion/pkg/eventbus"
	"github.com/fluxion-dev/fluxion/pkg/events"
	"github.com/fluxion-dev/fluxion/pkg/models"
	"github.com/fluxion-dev/fluxion/pkg/persistence"
	"github.com/fluxion-dev/fluxion/pkg/registry"
)

var (
	// ErrWorkflowNotExecutable indicates the workflow is not published.
	ErrWorkflowNotExecutable = errors.New("workflow is not executable")

	// ErrInvalidTransition indicates a control request that cannot apply to
	// the execution's current state, e.g. resuming a run that is not paused.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// ExecutionStatus is the client-facing view of an execution.
type ExecutionStatus struct {
	ID            string                       `json:"id"`
	WorkflowID    string                       `json:"workflow_id"`
	Status        models.ExecutionStatus       `json:"status"`
	Progress      float64                      `json:"progress"`
	CurrentNodeID string                       `json:"current_node_id,omitempty"`
	Error         string                       `json:"error,omitempty"`
	NodeResults   map[string]models.NodeOutput `json:"node_results"`
	Logs          []models.ExecutionLogEntry   `json:"logs,omitempty"`
	StartTime     time.Time                    `json:"start_time,omitzero"`
	EndTime       time.Time                    `json:"end_time,omitzero"`
}

// Orchestrator submits and controls executions. It never runs nodes itself;
// all execution happens on workers consuming the control topic.
type Orchestrator struct {
	persistence persistence.Persistence
	bus         eventbus.EventBus
	registry    *registry.Registry
	logger      *slog.Logger
}

// NewOrchestrator creates an orchestrator client.
func NewOrchestrator(p persistence.Persistence, bus eventbus.EventBus, reg *registry.Registry, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		persistence: p,
		bus:         bus,
		registry:    reg,
		logger:      logger.With("module", "orchestrator"),
	}
}

// SubmitExecution validates the workflow graph and creates a pending
// execution record, then publishes the start intent. Validation failures
// surface before any record exists, so a rejected submission leaves no
// trace.
func (o *Orchestrator) SubmitExecution(ctx context.Context, workflowID string, inputs map[string]any, priority models.ExecutionPriority) (string, error) {
	workflow, err := o.persistence.WorkflowRepository().WorkflowByID(ctx, workflowID)
	if err != nil {
		return "", err
	}

	if !workflow.Executable() {
		return "", fmt.Errorf("%w: workflow %s has status %s", ErrWorkflowNotExecutable, workflowID, workflow.Status)
	}

	if err := workflow.Graph.Validate(); err != nil {
		return "", fmt.Errorf("invalid workflow graph: %w", err)
	}

	if err := o.registry.ValidateGraph(workflow.Graph); err != nil {
		return "", fmt.Errorf("invalid workflow graph: %w", err)
	}

	if !priority.Valid() {
		priority = models.PriorityNormal
	}

	record := &models.ExecutionRecord{
		ID:          uuid.New().String(),
		WorkflowID:  workflowID,
		Status:      models.ExecutionStatusPending,
		Inputs:      inputs,
		Variables:   mergeVariables(workflow.Variables, inputs),
		NodeOutputs: make(map[string]models.NodeOutput),
	}

	if err := o.persistence.ExecutionRepository().CreateExecution(ctx, record); err != nil {
		return "", err
	}

	event := events.ExecutionStart{
		BaseEvent: o.baseEvent(events.ExecutionStartEvent, record.ID, workflowID),
		Priority:  priority,
	}

	if err := o.bus.Publish(ctx, events.ControlTopic, record.ID, event); err != nil {
		return "", fmt.Errorf("failed to publish start intent: %w", err)
	}

	o.logger.InfoContext(ctx, "execution submitted",
		"execution_id", record.ID, "workflow_id", workflowID, "priority", priority)

	return record.ID, nil
}

// PauseExecution requests a pause at the next node boundary. Pausing an
// execution that is not running is a no-op, so duplicate deliveries and
// races with completion stay harmless.
func (o *Orchestrator) PauseExecution(ctx context.Context, executionID string) error {
	record, err := o.persistence.ExecutionRepository().GetExecution(ctx, executionID)
	if err != nil {
		return err
	}

	if record.Status != models.ExecutionStatusRunning && record.Status != models.ExecutionStatusPending {
		o.logger.InfoContext(ctx, "pause ignored", "execution_id", executionID, "status", record.Status)

		return nil
	}

	return o.bus.Publish(ctx, events.ControlTopic, executionID, events.ExecutionPause{
		BaseEvent: o.baseEvent(events.ExecutionPauseEvent, executionID, record.WorkflowID),
	})
}

// ResumeExecution continues a paused execution from its checkpoint. Only
// paused executions can resume; anything else is ErrInvalidTransition.
func (o *Orchestrator) ResumeExecution(ctx context.Context, executionID string) error {
	record, err := o.persistence.ExecutionRepository().GetExecution(ctx, executionID)
	if err != nil {
		return err
	}

	if record.Status != models.ExecutionStatusPaused {
		if record.Status == models.ExecutionStatusRunning {
			// Already where resume would take it.
			return nil
		}

		return fmt.Errorf("%w: cannot resume execution in status %s", ErrInvalidTransition, record.Status)
	}

	return o.bus.Publish(ctx, events.ControlTopic, executionID, events.ExecutionResume{
		BaseEvent: o.baseEvent(events.ExecutionResumeEvent, executionID, record.WorkflowID),
	})
}

// StopExecution terminates an execution. Stop beats pause: it applies from
// any non-terminal state, and stopping an already finished execution is a
// no-op.
func (o *Orchestrator) StopExecution(ctx context.Context, executionID, reason string) error {
	record, err := o.persistence.ExecutionRepository().GetExecution(ctx, executionID)
	if err != nil {
		return err
	}

	if record.Status.Terminal() {
		o.logger.InfoContext(ctx, "stop ignored", "execution_id", executionID, "status", record.Status)

		return nil
	}

	return o.bus.Publish(ctx, events.ControlTopic, executionID, events.ExecutionStop{
		BaseEvent: o.baseEvent(events.ExecutionStopEvent, executionID, record.WorkflowID),
		Reason:    reason,
	})
}

// Status reports the execution's current state, including per-node results
// and progress over the workflow's total node count.
func (o *Orchestrator) Status(ctx context.Context, executionID string) (*ExecutionStatus, error) {
	record, err := o.persistence.ExecutionRepository().GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}

	totalNodes := 0

	workflow, err := o.persistence.WorkflowRepository().WorkflowByID(ctx, record.WorkflowID)
	if err == nil {
		totalNodes = len(workflow.Graph.Nodes)
	}

	return &ExecutionStatus{
		ID:            record.ID,
		WorkflowID:    record.WorkflowID,
		Status:        record.Status,
		Progress:      record.Progress(totalNodes),
		CurrentNodeID: record.CurrentNodeID,
		Error:         record.Error,
		NodeResults:   record.NodeOutputs,
		Logs:          record.Logs,
		StartTime:     record.StartTime,
		EndTime:       record.EndTime,
	}, nil
}

// ListExecutions returns status views for a workflow's executions.
func (o *Orchestrator) ListExecutions(ctx context.Context, workflowID string) ([]*ExecutionStatus, error) {
	records, err := o.persistence.ExecutionRepository().ListExecutions(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	statuses := make([]*ExecutionStatus, 0, len(records))
	for _, record := range records {
		statuses = append(statuses, &ExecutionStatus{
			ID:            record.ID,
			WorkflowID:    record.WorkflowID,
			Status:        record.Status,
			CurrentNodeID: record.CurrentNodeID,
			Error:         record.Error,
			NodeResults:   record.NodeOutputs,
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
		})
	}

	return statuses, nil
}

func (o *Orchestrator) baseEvent(eventType events.EventType, executionID, workflowID string) events.BaseEvent {
	return events.BaseEvent{
		ID:          o.bus.GenerateID(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		ExecutionID: executionID,
		WorkflowID:  workflowID,
	}
}

func mergeVariables(base, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(overrides))

	for k, v := range base {
		merged[k] = v
	}

	for k, v := range overrides {
		merged[k] = v
	}

	return merged
}
