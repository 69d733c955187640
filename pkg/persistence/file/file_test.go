package file

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxion-dev/fluxion/pkg/models"
	"github.com/fluxion-dev/fluxion/pkg/persistence"
)

func newTestPersistence(t *testing.T) *Persistence {
	t.Helper()

	p, err := NewPersistence(t.TempDir())
	require.NoError(t, err)

	return p
}

func testWorkflow(id string) *models.Workflow {
	return &models.Workflow{
		ID:     id,
		Name:   "Order notifications",
		Status: models.WorkflowStatusPublished,
		Graph: &models.WorkflowGraph{
			Nodes: []*models.Node{
				{ID: "start", Category: models.CategoryTrigger, Subtype: "manual"},
			},
		},
	}
}

func TestWorkflowRoundTrip(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()
	repo := p.WorkflowRepository()

	require.NoError(t, repo.SaveWorkflow(ctx, testWorkflow("wf-1")))

	got, err := repo.WorkflowByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "Order notifications", got.Name)
	assert.False(t, got.CreatedAt.IsZero())

	all, err := repo.Workflows(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.DeleteWorkflow(ctx, "wf-1"))

	_, err = repo.WorkflowByID(ctx, "wf-1")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestWorkflowNotFound(t *testing.T) {
	p := newTestPersistence(t)

	_, err := p.WorkflowRepository().WorkflowByID(context.Background(), "missing")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

	err = p.WorkflowRepository().DeleteWorkflow(context.Background(), "missing")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestExecutionLifecycle(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()
	repo := p.ExecutionRepository()

	record := &models.ExecutionRecord{
		ID:         "exec-1",
		WorkflowID: "wf-1",
		Status:     models.ExecutionStatusPending,
		Inputs:     map[string]any{"order_id": "42"},
	}
	require.NoError(t, repo.CreateExecution(ctx, record))

	err := repo.CreateExecution(ctx, record)
	assert.ErrorIs(t, err, persistence.ErrExecutionAlreadyExists)

	running := models.ExecutionStatusRunning
	require.NoError(t, repo.UpdateExecution(ctx, "exec-1", models.ExecutionPatch{Status: &running}))

	require.NoError(t, repo.AppendNodeOutput(ctx, "exec-1", models.NodeOutput{
		NodeID: "fetch",
		Status: models.NodeStatusSuccess,
		Data:   map[string]any{"status_code": float64(200)},
	}))

	require.NoError(t, repo.AppendLog(ctx, "exec-1", models.ExecutionLogEntry{
		Level: "info", NodeID: "fetch", Message: "node completed",
	}))

	got, err := repo.GetExecution(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, got.Status)
	assert.Equal(t, models.NodeStatusSuccess, got.NodeOutputs["fetch"].Status)
	require.Len(t, got.Logs, 1)
	assert.False(t, got.Logs[0].Time.IsZero())
	assert.Equal(t, map[string]any{"order_id": "42"}, got.Inputs)
}

func TestUpdateRejectsTerminalTransition(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()
	repo := p.ExecutionRepository()

	require.NoError(t, repo.CreateExecution(ctx, &models.ExecutionRecord{
		ID: "exec-1", WorkflowID: "wf-1", Status: models.ExecutionStatusRunning,
	}))

	completed := models.ExecutionStatusCompleted
	now := time.Now().UTC()
	require.NoError(t, repo.UpdateExecution(ctx, "exec-1", models.ExecutionPatch{
		Status: &completed, EndTime: &now,
	}))

	paused := models.ExecutionStatusPaused
	err := repo.UpdateExecution(ctx, "exec-1", models.ExecutionPatch{Status: &paused})
	assert.ErrorIs(t, err, persistence.ErrTerminalState)

	// Non-status patches on a terminal record still apply.
	msg := "post-mortem note"
	assert.NoError(t, repo.UpdateExecution(ctx, "exec-1", models.ExecutionPatch{Error: &msg}))
}

func TestListExecutionsFiltersByWorkflow(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()
	repo := p.ExecutionRepository()

	for _, pair := range [][2]string{{"exec-1", "wf-a"}, {"exec-2", "wf-b"}, {"exec-3", "wf-a"}} {
		require.NoError(t, repo.CreateExecution(ctx, &models.ExecutionRecord{
			ID: pair[0], WorkflowID: pair[1], Status: models.ExecutionStatusPending,
		}))
	}

	records, err := repo.ListExecutions(ctx, "wf-a")
	require.NoError(t, err)
	assert.Len(t, records, 2)

	all, err := repo.ListExecutions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestHealthCheck(t *testing.T) {
	p := newTestPersistence(t)
	assert.NoError(t, p.HealthCheck(context.Background()))
	assert.NoError(t, p.Close(context.Background()))
}
