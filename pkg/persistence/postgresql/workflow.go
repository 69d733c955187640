package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fluxion-dev/fluxion/pkg/models"
	"github.com/fluxion-dev/fluxion/pkg/persistence"
)

// WorkflowRepository stores workflow definitions. The graph and variables
// live in JSONB columns; the relational columns exist for filtering.
type WorkflowRepository struct {
	db *sql.DB
}

func (r *WorkflowRepository) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	graphJSON, err := json.Marshal(workflow.Graph)
	if err != nil {
		return persistence.NewWorkflowError("save", workflow.ID, fmt.Errorf("failed to marshal graph: %w", err))
	}

	variablesJSON, err := json.Marshal(workflow.Variables)
	if err != nil {
		return persistence.NewWorkflowError("save", workflow.ID, fmt.Errorf("failed to marshal variables: %w", err))
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	query := `
		INSERT INTO workflows (id, name, description, status, graph, variables, owner, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			graph = EXCLUDED.graph,
			variables = EXCLUDED.variables,
			owner = EXCLUDED.owner,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID, workflow.Name, workflow.Description, workflow.Status,
		graphJSON, variablesJSON, workflow.Owner, workflow.CreatedAt, workflow.UpdatedAt,
	)
	if err != nil {
		return persistence.NewWorkflowError("save", workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, status, graph, variables, owner, created_at, updated_at
		FROM workflows WHERE id = $1
	`, id)

	workflow, err := scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("get", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("get", id, err)
	}

	return workflow, nil
}

func (r *WorkflowRepository) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, status, graph, variables, owner, created_at, updated_at
		FROM workflows ORDER BY created_at
	`)
	if err != nil {
		return nil, persistence.NewWorkflowError("list", "", err)
	}
	defer func() { _ = rows.Close() }()

	var workflows []*models.Workflow

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, persistence.NewWorkflowError("list", "", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewWorkflowError("list", "", err)
	}

	return workflows, nil
}

func (r *WorkflowRepository) DeleteWorkflow(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return persistence.NewWorkflowError("delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("delete", id, err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow      models.Workflow
		graphJSON     []byte
		variablesJSON []byte
		owner         sql.NullString
	)

	err := row.Scan(
		&workflow.ID, &workflow.Name, &workflow.Description, &workflow.Status,
		&graphJSON, &variablesJSON, &owner, &workflow.CreatedAt, &workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(graphJSON, &workflow.Graph); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph: %w", err)
	}

	if len(variablesJSON) > 0 {
		if err := json.Unmarshal(variablesJSON, &workflow.Variables); err != nil {
			return nil, fmt.Errorf("failed to unmarshal variables: %w", err)
		}
	}

	workflow.Owner = owner.String

	return &workflow, nil
}
