// Package scheduler submits executions for published workflows with
// cron-scheduled trigger nodes. It is the time-based entry point into the
// orchestration queue; every fired schedule goes through the same submission
// path as a manual run.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fluxion-dev/fluxion/pkg/handlers/trigger"
	"github.com/fluxion-dev/fluxion/pkg/models"
	"github.com/fluxion-dev/fluxion/pkg/persistence"
)

// Submitter accepts workflow executions. *orchestrator.Orchestrator satisfies it.
type Submitter interface {
	SubmitExecution(ctx context.Context, workflowID string, inputs map[string]any, priority models.ExecutionPriority) (string, error)
}

// Scheduler scans published workflows for schedule trigger nodes and fires
// executions on their cron expressions. Reload picks up workflow changes;
// callers typically run it on an interval or after publish events.
type Scheduler struct {
	persistence persistence.Persistence
	submitter   Submitter
	logger      *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID // workflowID/nodeID -> cron entry
}

func NewScheduler(p persistence.Persistence, submitter Submitter, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		persistence: p,
		submitter:   submitter,
		logger:      logger.With("module", "scheduler"),
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
		entries: make(map[string]cron.EntryID),
	}
}

// Start registers every scheduled workflow and starts the cron engine.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.Reload(ctx); err != nil {
		return err
	}

	s.cron.Start()

	return nil
}

// Stop halts the cron engine and waits for in-flight submissions to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Reload re-syncs cron entries against the current set of published
// workflows. Removed or re-scheduled trigger nodes lose their old entries.
func (s *Scheduler) Reload(ctx context.Context) error {
	workflows, err := s.persistence.WorkflowRepository().Workflows(ctx)
	if err != nil {
		return fmt.Errorf("failed to load workflows: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(s.entries))

	for _, workflow := range workflows {
		if !workflow.Executable() {
			continue
		}

		for _, node := range workflow.Graph.Nodes {
			if node.Category != models.CategoryTrigger || node.Subtype != trigger.SubtypeSchedule {
				continue
			}

			cronExpr, ok := node.Config["cron"].(string)
			if !ok || cronExpr == "" {
				s.logger.Warn("schedule node without cron expression",
					"workflow_id", workflow.ID, "node_id", node.ID)

				continue
			}

			entryKey := workflow.ID + "/" + node.ID
			seen[entryKey] = true

			if _, exists := s.entries[entryKey]; exists {
				continue
			}

			entryID, err := s.cron.AddFunc(cronExpr, s.fire(workflow.ID, node.ID))
			if err != nil {
				s.logger.Error("invalid cron expression",
					"workflow_id", workflow.ID, "node_id", node.ID, "cron", cronExpr, "error", err)

				continue
			}

			s.entries[entryKey] = entryID

			s.logger.Info("schedule registered",
				"workflow_id", workflow.ID, "node_id", node.ID, "cron", cronExpr)
		}
	}

	for entryKey, entryID := range s.entries {
		if !seen[entryKey] {
			s.cron.Remove(entryID)
			delete(s.entries, entryKey)

			s.logger.Info("schedule removed", "entry", entryKey)
		}
	}

	return nil
}

// Entries reports the number of registered schedules.
func (s *Scheduler) Entries() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

func (s *Scheduler) fire(workflowID, nodeID string) func() {
	return func() {
		ctx := context.Background()

		inputs := map[string]any{
			"trigger_node_id": nodeID,
			"fired_at":        time.Now().UTC().Format(time.RFC3339),
		}

		executionID, err := s.submitter.SubmitExecution(ctx, workflowID, inputs, models.PriorityNormal)
		if err != nil {
			s.logger.Error("scheduled submission failed",
				"workflow_id", workflowID, "node_id", nodeID, "error", err)

			return
		}

		s.logger.Info("scheduled execution submitted",
			"workflow_id", workflowID, "node_id", nodeID, "execution_id", executionID)
	}
}
