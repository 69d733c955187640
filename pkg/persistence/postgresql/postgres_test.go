package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/fluxion-dev/fluxion/pkg/models"
	"github.com/fluxion-dev/fluxion/pkg/persistence"
	"github.com/fluxion-dev/fluxion/pkg/persistence/postgresql"
)

var postgresContainer *postgres.PostgresContainer

func dropDB(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"executions", "workflows", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	require.NoError(t, db.Close())
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("fluxion_test"),
			postgres.WithUsername("fluxion"),
			postgres.WithPassword("fluxion"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDB(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDB(ctx, t, databaseURL)
		require.NoError(t, p.Close(ctx))
		cancel()
	})

	return p, ctx
}

func TestPersistenceHealthCheck(t *testing.T) {
	p, ctx := setupTestDB(t)
	assert.NoError(t, p.HealthCheck(ctx))
}

func TestWorkflowRepositoryRoundTrip(t *testing.T) {
	p, ctx := setupTestDB(t)
	repo := p.WorkflowRepository()

	workflow := &models.Workflow{
		ID:          uuid.New().String(),
		Name:        "Order notifications",
		Description: "Email the customer when an order ships",
		Status:      models.WorkflowStatusPublished,
		Graph: &models.WorkflowGraph{
			Nodes: []*models.Node{
				{ID: "start", Category: models.CategoryTrigger, Subtype: "manual"},
				{ID: "notify", Category: models.CategoryAction, Subtype: "email", Config: map[string]any{
					"to": "{{ $input.email }}", "subject": "Order shipped",
				}},
			},
			Edges: []*models.Edge{
				{ID: "e1", SourceNodeID: "start", TargetNodeID: "notify"},
			},
		},
		Variables: map[string]any{"region": "eu"},
	}

	require.NoError(t, repo.SaveWorkflow(ctx, workflow))

	got, err := repo.WorkflowByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, got.Name)
	assert.Len(t, got.Graph.Nodes, 2)
	assert.Equal(t, map[string]any{"region": "eu"}, got.Variables)

	// Saving again updates in place.
	workflow.Name = "Order notifications v2"
	require.NoError(t, repo.SaveWorkflow(ctx, workflow))

	got, err = repo.WorkflowByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, "Order notifications v2", got.Name)

	all, err := repo.Workflows(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.DeleteWorkflow(ctx, workflow.ID))

	_, err = repo.WorkflowByID(ctx, workflow.ID)
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestExecutionRepositoryCheckpoints(t *testing.T) {
	p, ctx := setupTestDB(t)
	repo := p.ExecutionRepository()

	record := &models.ExecutionRecord{
		ID:         uuid.New().String(),
		WorkflowID: uuid.New().String(),
		Status:     models.ExecutionStatusPending,
		Inputs:     map[string]any{"order_id": "42"},
	}
	require.NoError(t, repo.CreateExecution(ctx, record))

	err := repo.CreateExecution(ctx, record)
	assert.ErrorIs(t, err, persistence.ErrExecutionAlreadyExists)

	running := models.ExecutionStatusRunning
	current := "fetch"
	require.NoError(t, repo.UpdateExecution(ctx, record.ID, models.ExecutionPatch{
		Status: &running, CurrentNodeID: &current,
	}))

	require.NoError(t, repo.AppendNodeOutput(ctx, record.ID, models.NodeOutput{
		NodeID: "fetch",
		Status: models.NodeStatusSuccess,
		Data:   map[string]any{"status_code": float64(200)},
	}))

	require.NoError(t, repo.AppendLog(ctx, record.ID, models.ExecutionLogEntry{
		Level: "info", NodeID: "fetch", Message: "node completed",
	}))

	got, err := repo.GetExecution(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, got.Status)
	assert.Equal(t, "fetch", got.CurrentNodeID)
	assert.Equal(t, models.NodeStatusSuccess, got.NodeOutputs["fetch"].Status)
	require.Len(t, got.Logs, 1)
	assert.Equal(t, map[string]any{"order_id": "42"}, got.Inputs)

	completed := models.ExecutionStatusCompleted
	now := time.Now().UTC()
	require.NoError(t, repo.UpdateExecution(ctx, record.ID, models.ExecutionPatch{
		Status: &completed, EndTime: &now,
	}))

	paused := models.ExecutionStatusPaused
	err = repo.UpdateExecution(ctx, record.ID, models.ExecutionPatch{Status: &paused})
	assert.ErrorIs(t, err, persistence.ErrTerminalState)
}

func TestExecutionRepositoryNotFound(t *testing.T) {
	p, ctx := setupTestDB(t)
	repo := p.ExecutionRepository()

	_, err := repo.GetExecution(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrExecutionNotFound)

	err = repo.AppendNodeOutput(ctx, "missing", models.NodeOutput{NodeID: "n"})
	assert.ErrorIs(t, err, persistence.ErrExecutionNotFound)
}

func TestListExecutionsFiltersByWorkflow(t *testing.T) {
	p, ctx := setupTestDB(t)
	repo := p.ExecutionRepository()

	wfA, wfB := uuid.New().String(), uuid.New().String()

	for _, workflowID := range []string{wfA, wfB, wfA} {
		require.NoError(t, repo.CreateExecution(ctx, &models.ExecutionRecord{
			ID: uuid.New().String(), WorkflowID: workflowID, Status: models.ExecutionStatusPending,
		}))
	}

	records, err := repo.ListExecutions(ctx, wfA)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
