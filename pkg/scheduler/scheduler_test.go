package scheduler_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxion-dev/fluxion/pkg/models"
	"github.com/fluxion-dev/fluxion/pkg/persistence/file"
	"github.com/fluxion-dev/fluxion/pkg/scheduler"
)

type fakeSubmitter struct {
	mu          sync.Mutex
	submissions []string
}

func (f *fakeSubmitter) SubmitExecution(_ context.Context, workflowID string, _ map[string]any, _ models.ExecutionPriority) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.submissions = append(f.submissions, workflowID)

	return "exec-" + workflowID, nil
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.submissions)
}

func scheduledWorkflow(id, status, cronExpr string) *models.Workflow {
	return &models.Workflow{
		ID:     id,
		Name:   "Scheduled " + id,
		Status: models.WorkflowStatus(status),
		Graph: &models.WorkflowGraph{
			Nodes: []*models.Node{
				{ID: "tick", Category: models.CategoryTrigger, Subtype: "schedule",
					Config: map[string]any{"cron": cronExpr}},
				{ID: "note", Category: models.CategoryAction, Subtype: "log",
					Config: map[string]any{"message": "fired"}},
			},
			Edges: []*models.Edge{
				{ID: "e1", SourceNodeID: "tick", TargetNodeID: "note"},
			},
		},
	}
}

func TestSchedulerFiresSubmissions(t *testing.T) {
	t.Parallel()

	p, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.WorkflowRepository().SaveWorkflow(ctx, scheduledWorkflow("wf-tick", "published", "@every 50ms")))

	submitter := &fakeSubmitter{}
	s := scheduler.NewScheduler(p, submitter, slog.New(slog.DiscardHandler))

	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	assert.Equal(t, 1, s.Entries())

	assert.Eventually(t, func() bool {
		return submitter.count() >= 2
	}, 2*time.Second, 20*time.Millisecond, "expected at least two scheduled submissions")
}

func TestSchedulerSkipsNonPublished(t *testing.T) {
	t.Parallel()

	p, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.WorkflowRepository().SaveWorkflow(ctx, scheduledWorkflow("wf-draft", "draft", "@every 1s")))

	s := scheduler.NewScheduler(p, &fakeSubmitter{}, slog.New(slog.DiscardHandler))

	require.NoError(t, s.Reload(ctx))
	assert.Equal(t, 0, s.Entries())
}

func TestSchedulerReloadRemovesStaleEntries(t *testing.T) {
	t.Parallel()

	p, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	workflow := scheduledWorkflow("wf-stale", "published", "@every 1h")
	require.NoError(t, p.WorkflowRepository().SaveWorkflow(ctx, workflow))

	s := scheduler.NewScheduler(p, &fakeSubmitter{}, slog.New(slog.DiscardHandler))

	require.NoError(t, s.Reload(ctx))
	require.Equal(t, 1, s.Entries())

	workflow.Status = models.WorkflowStatusUnpublished
	require.NoError(t, p.WorkflowRepository().SaveWorkflow(ctx, workflow))

	require.NoError(t, s.Reload(ctx))
	assert.Equal(t, 0, s.Entries())
}

func TestSchedulerIgnoresInvalidCron(t *testing.T) {
	t.Parallel()

	p, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.WorkflowRepository().SaveWorkflow(ctx, scheduledWorkflow("wf-bad", "published", "not a cron")))

	s := scheduler.NewScheduler(p, &fakeSubmitter{}, slog.New(slog.DiscardHandler))

	require.NoError(t, s.Reload(ctx))
	assert.Equal(t, 0, s.Entries())
}
