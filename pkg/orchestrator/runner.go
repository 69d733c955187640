package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/fluxion-dev/fluxion/pkg/events"
	"github.com/fluxion-dev/fluxion/pkg/expression"
	"github.com/fluxion-dev/fluxion/pkg/models"
	"github.com/fluxion-dev/fluxion/pkg/otelhelper"
	"github.com/fluxion-dev/fluxion/pkg/persistence"
	"github.com/fluxion-dev/fluxion/pkg/plan"
	"github.com/fluxion-dev/fluxion/pkg/protocol"
)

// ErrNodeTimeout indicates a node exceeded its execution time budget.
var ErrNodeTimeout = errors.New("node execution timed out")

// runGraph executes the workflow graph node by node in deterministic order.
// Every node's output is persisted before the next node starts, which makes
// the record a checkpoint: resume replays nothing that already finished.
func (w *Worker) runGraph(ctx context.Context, state *runState, record *models.ExecutionRecord) error {
	workflow, err := w.persistence.WorkflowRepository().WorkflowByID(ctx, record.WorkflowID)
	if err != nil {
		return w.failExecution(ctx, record, "", fmt.Errorf("failed to load workflow: %w", err))
	}

	graph := workflow.Graph

	order, err := plan.Order(graph)
	if err != nil {
		return w.failExecution(ctx, record, "", err)
	}

	live := plan.NewLiveSet(graph)

	// On resume, replay past condition decisions and skips into the live
	// set so untaken branches stay dead.
	for nodeID, output := range record.NodeOutputs {
		switch {
		case output.Status == models.NodeStatusSkipped:
			live.MarkSkipped(nodeID)
		case output.Status == models.NodeStatusSuccess:
			if node := graph.NodeByID(nodeID); node != nil && node.Category == models.CategoryCondition {
				if branch, ok := output.Data[protocol.ConditionBranchKey].(string); ok {
					live.TakeBranch(nodeID, branch)
				}
			}
		}
	}

	logger := w.logger.With("execution_id", record.ID, "workflow_id", record.WorkflowID)

	for _, nodeID := range order {
		// Outputs in a terminal status are checkpointed work; skip them.
		if existing, ok := record.NodeOutputs[nodeID]; ok && existing.Status.Terminal() {
			continue
		}

		if halted, err := w.checkBoundary(ctx, state, record, nodeID); halted || err != nil {
			return err
		}

		node := graph.NodeByID(nodeID)
		if node == nil {
			return w.failExecution(ctx, record, nodeID, fmt.Errorf("planned node %s missing from graph", nodeID))
		}

		if !live.Live(nodeID) {
			live.MarkSkipped(nodeID)

			output := models.NodeOutput{NodeID: nodeID, Status: models.NodeStatusSkipped}
			if err := w.persistence.ExecutionRepository().AppendNodeOutput(ctx, record.ID, output); err != nil {
				return err
			}

			record.NodeOutputs[nodeID] = output
			logger.DebugContext(ctx, "node skipped", "node_id", nodeID)

			continue
		}

		output, execErr := w.executeNode(ctx, record, graph, node)

		if err := w.persistence.ExecutionRepository().AppendNodeOutput(ctx, record.ID, output); err != nil {
			return err
		}

		record.NodeOutputs[nodeID] = output

		w.publishLifecycle(ctx, events.NodeCompleted{
			BaseEvent:  w.baseEvent(events.NodeCompletedEvent, record),
			NodeID:     nodeID,
			Status:     output.Status,
			Error:      output.Error,
			DurationMs: output.EndTime.Sub(output.StartTime).Milliseconds(),
		})

		if execErr != nil {
			// A stop that lands mid-node surfaces as a cancelled context;
			// the stop handler already persisted the terminal status.
			if state.stopped() {
				logger.InfoContext(ctx, "run halted by stop", "node_id", nodeID)

				return nil
			}

			_ = w.persistence.ExecutionRepository().AppendLog(ctx, record.ID, models.ExecutionLogEntry{
				Level: "error", NodeID: nodeID, Message: execErr.Error(),
			})

			return w.failExecution(ctx, record, nodeID, execErr)
		}

		logger.DebugContext(ctx, "node completed", "node_id", nodeID,
			"duration_ms", output.EndTime.Sub(output.StartTime).Milliseconds())

		if node.Category == models.CategoryCondition {
			if branch, ok := output.Data[protocol.ConditionBranchKey].(string); ok {
				live.TakeBranch(nodeID, branch)
			}
		}
	}

	return w.completeExecution(ctx, record)
}

// checkBoundary applies pending control at a node boundary. It reports
// halted=true when the run should end here without an error.
func (w *Worker) checkBoundary(ctx context.Context, state *runState, record *models.ExecutionRecord, nodeID string) (bool, error) {
	if ctx.Err() != nil || state.stopped() {
		return true, nil
	}

	if state.pauseRequested() {
		paused := models.ExecutionStatusPaused

		err := w.persistence.ExecutionRepository().UpdateExecution(ctx, record.ID, models.ExecutionPatch{
			Status:        &paused,
			CurrentNodeID: &nodeID,
		})
		if err != nil {
			if errors.Is(err, persistence.ErrTerminalState) {
				return true, nil
			}

			return true, err
		}

		w.logger.InfoContext(ctx, "execution paused",
			"execution_id", record.ID, "current_node_id", nodeID)

		w.publishLifecycle(ctx, events.ExecutionPaused{
			BaseEvent:     w.baseEvent(events.ExecutionPausedEvent, record),
			CurrentNodeID: nodeID,
		})

		return true, nil
	}

	// A status change made outside this process (stop handled by another
	// worker) also halts the run.
	current, err := w.persistence.ExecutionRepository().GetExecution(ctx, record.ID)
	if err != nil {
		return true, err
	}

	if current.Status != models.ExecutionStatusRunning {
		w.logger.InfoContext(ctx, "run halted by external status change",
			"execution_id", record.ID, "status", current.Status)

		return true, nil
	}

	// Record the node about to run so a crash points at the boundary.
	if err := w.persistence.ExecutionRepository().UpdateExecution(ctx, record.ID, models.ExecutionPatch{CurrentNodeID: &nodeID}); err != nil {
		return true, err
	}

	record.CurrentNodeID = nodeID

	return false, nil
}

// executeNode resolves the node's config against the execution scope and
// runs its handler under the node time budget.
func (w *Worker) executeNode(ctx context.Context, record *models.ExecutionRecord, graph *models.WorkflowGraph, node *models.Node) (models.NodeOutput, error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "worker.node execute",
		attribute.String(otelhelper.ExecutionIDKey, record.ID),
		attribute.String(otelhelper.WorkflowIDKey, record.WorkflowID),
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeCategoryKey, string(node.Category)),
		attribute.String(otelhelper.NodeSubtypeKey, node.Subtype),
	)
	defer span.End()

	output := models.NodeOutput{
		NodeID:    node.ID,
		Status:    models.NodeStatusRunning,
		StartTime: time.Now().UTC(),
	}

	handler, err := w.registry.Create(node.Category, node.Subtype, node.Config)
	if err != nil {
		otelhelper.SetError(span, err)

		return w.finishOutput(output, nil, err), err
	}

	inputs := plan.Inputs(graph, node.ID, record)

	scope := expression.Scope{
		Node:  plan.NodeData(record),
		Input: inputs,
		Vars:  record.Variables,
	}

	resolvedConfig := w.resolver.ResolveConfig(node.Config, scope)

	nodeCtx, cancel := context.WithTimeout(ctx, w.nodeTimeout)
	defer cancel()

	data, err := handler.Execute(nodeCtx, protocol.Request{
		ExecutionID: record.ID,
		NodeID:      node.ID,
		Subtype:     node.Subtype,
		Config:      resolvedConfig,
		Inputs:      inputs,
		Variables:   record.Variables,
		Logger:      w.logger.With("execution_id", record.ID, "node_id", node.ID),
	})

	if err != nil && nodeCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		err = fmt.Errorf("%w: node %s exceeded %s", ErrNodeTimeout, node.ID, w.nodeTimeout)
	}

	if err != nil {
		otelhelper.SetError(span, err)
	}

	return w.finishOutput(output, data, err), err
}

func (w *Worker) finishOutput(output models.NodeOutput, data map[string]any, err error) models.NodeOutput {
	output.EndTime = time.Now().UTC()
	output.Data = data

	if err != nil {
		output.Status = models.NodeStatusError
		output.Error = err.Error()
	} else {
		output.Status = models.NodeStatusSuccess
	}

	return output
}

func (w *Worker) completeExecution(ctx context.Context, record *models.ExecutionRecord) error {
	completed := models.ExecutionStatusCompleted
	now := time.Now().UTC()
	empty := ""

	err := w.persistence.ExecutionRepository().UpdateExecution(ctx, record.ID, models.ExecutionPatch{
		Status:        &completed,
		EndTime:       &now,
		CurrentNodeID: &empty,
	})
	if err != nil {
		if errors.Is(err, persistence.ErrTerminalState) {
			return nil
		}

		return err
	}

	w.logger.InfoContext(ctx, "execution completed",
		"execution_id", record.ID, "duration", now.Sub(record.StartTime))

	w.publishLifecycle(ctx, events.ExecutionCompleted{
		BaseEvent: w.baseEvent(events.ExecutionCompletedEvent, record),
		Duration:  now.Sub(record.StartTime),
	})

	return nil
}

// failExecution marks the run failed. Remaining nodes never execute; their
// absence from NodeOutputs is what distinguishes "not reached" from
// "skipped".
func (w *Worker) failExecution(ctx context.Context, record *models.ExecutionRecord, nodeID string, cause error) error {
	failed := models.ExecutionStatusFailed
	now := time.Now().UTC()
	message := cause.Error()

	err := w.persistence.ExecutionRepository().UpdateExecution(ctx, record.ID, models.ExecutionPatch{
		Status:  &failed,
		Error:   &message,
		EndTime: &now,
	})
	if err != nil && !errors.Is(err, persistence.ErrTerminalState) {
		return err
	}

	w.logger.ErrorContext(ctx, "execution failed",
		"execution_id", record.ID, "node_id", nodeID, "error", message)

	w.publishLifecycle(ctx, events.ExecutionFailed{
		BaseEvent: w.baseEvent(events.ExecutionFailedEvent, record),
		NodeID:    nodeID,
		Error:     message,
		Duration:  now.Sub(record.StartTime),
	})

	return nil
}
