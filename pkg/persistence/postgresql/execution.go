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

// ExecutionRepository stores execution records. Node outputs and logs are
// JSONB documents updated per checkpoint; the terminal-status guard runs
// inside the UPDATE so concurrent writers cannot revive a finished run.
type ExecutionRepository struct {
	db *sql.DB
}

func (r *ExecutionRepository) CreateExecution(ctx context.Context, record *models.ExecutionRecord) error {
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	if record.NodeOutputs == nil {
		record.NodeOutputs = make(map[string]models.NodeOutput)
	}

	inputsJSON, variablesJSON, outputsJSON, logsJSON, err := marshalRecord(record)
	if err != nil {
		return persistence.NewExecutionError("create", record.ID, err)
	}

	query := `
		INSERT INTO executions (id, workflow_id, status, start_time, end_time, inputs,
			variables, node_outputs, current_node_id, error_message, logs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		record.ID, record.WorkflowID, record.Status,
		nullTime(record.StartTime), nullTime(record.EndTime),
		inputsJSON, variablesJSON, outputsJSON,
		record.CurrentNodeID, record.Error, logsJSON,
		record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		return persistence.NewExecutionError("create", record.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewExecutionError("create", record.ID, err)
	}

	if affected == 0 {
		return persistence.NewExecutionError("create", record.ID, persistence.ErrExecutionAlreadyExists)
	}

	return nil
}

func (r *ExecutionRepository) GetExecution(ctx context.Context, id string) (*models.ExecutionRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, workflow_id, status, start_time, end_time, inputs, variables,
			node_outputs, current_node_id, error_message, logs, created_at, updated_at
		FROM executions WHERE id = $1
	`, id)

	record, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionError("get", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("get", id, err)
	}

	return record, nil
}

func (r *ExecutionRepository) ListExecutions(ctx context.Context, workflowID string) ([]*models.ExecutionRecord, error) {
	query := `
		SELECT id, workflow_id, status, start_time, end_time, inputs, variables,
			node_outputs, current_node_id, error_message, logs, created_at, updated_at
		FROM executions
	`

	var (
		rows *sql.Rows
		err  error
	)

	if workflowID != "" {
		rows, err = r.db.QueryContext(ctx, query+" WHERE workflow_id = $1 ORDER BY created_at", workflowID)
	} else {
		rows, err = r.db.QueryContext(ctx, query+" ORDER BY created_at")
	}

	if err != nil {
		return nil, persistence.NewExecutionError("list", "", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*models.ExecutionRecord

	for rows.Next() {
		record, err := scanExecution(rows)
		if err != nil {
			return nil, persistence.NewExecutionError("list", "", err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewExecutionError("list", "", err)
	}

	return records, nil
}

func (r *ExecutionRepository) UpdateExecution(ctx context.Context, id string, patch models.ExecutionPatch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.NewExecutionError("update", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	var status models.ExecutionStatus

	err = tx.QueryRowContext(ctx, "SELECT status FROM executions WHERE id = $1 FOR UPDATE", id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.NewExecutionError("update", id, persistence.ErrExecutionNotFound)
		}

		return persistence.NewExecutionError("update", id, err)
	}

	if patch.Status != nil && status.Terminal() {
		return persistence.NewExecutionError("update", id, persistence.ErrTerminalState)
	}

	set := "updated_at = $2"
	args := []any{id, time.Now().UTC()}

	add := func(column string, value any) {
		args = append(args, value)
		set += fmt.Sprintf(", %s = $%d", column, len(args))
	}

	if patch.Status != nil {
		add("status", *patch.Status)
	}

	if patch.CurrentNodeID != nil {
		add("current_node_id", *patch.CurrentNodeID)
	}

	if patch.Error != nil {
		add("error_message", *patch.Error)
	}

	if patch.StartTime != nil {
		add("start_time", *patch.StartTime)
	}

	if patch.EndTime != nil {
		add("end_time", *patch.EndTime)
	}

	if patch.Variables != nil {
		variablesJSON, err := json.Marshal(patch.Variables)
		if err != nil {
			return persistence.NewExecutionError("update", id, fmt.Errorf("failed to marshal variables: %w", err))
		}

		add("variables", variablesJSON)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE executions SET "+set+" WHERE id = $1", args...); err != nil {
		return persistence.NewExecutionError("update", id, err)
	}

	if err := tx.Commit(); err != nil {
		return persistence.NewExecutionError("update", id, err)
	}

	return nil
}

func (r *ExecutionRepository) AppendNodeOutput(ctx context.Context, id string, output models.NodeOutput) error {
	outputJSON, err := json.Marshal(output)
	if err != nil {
		return persistence.NewExecutionError("append_node_output", id, fmt.Errorf("failed to marshal output: %w", err))
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE executions
		SET node_outputs = jsonb_set(node_outputs, ARRAY[$2], $3::jsonb), updated_at = $4
		WHERE id = $1
	`, id, output.NodeID, outputJSON, time.Now().UTC())
	if err != nil {
		return persistence.NewExecutionError("append_node_output", id, err)
	}

	return requireRow(result, "append_node_output", id)
}

func (r *ExecutionRepository) AppendLog(ctx context.Context, id string, entry models.ExecutionLogEntry) error {
	if entry.Time.IsZero() {
		entry.Time = time.Now().UTC()
	}

	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return persistence.NewExecutionError("append_log", id, fmt.Errorf("failed to marshal log entry: %w", err))
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE executions
		SET logs = logs || $2::jsonb, updated_at = $3
		WHERE id = $1
	`, id, entryJSON, time.Now().UTC())
	if err != nil {
		return persistence.NewExecutionError("append_log", id, err)
	}

	return requireRow(result, "append_log", id)
}

func requireRow(result sql.Result, op, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewExecutionError(op, id, err)
	}

	if affected == 0 {
		return persistence.NewExecutionError(op, id, persistence.ErrExecutionNotFound)
	}

	return nil
}

func marshalRecord(record *models.ExecutionRecord) (inputs, variables, outputs, logs []byte, err error) {
	if inputs, err = json.Marshal(record.Inputs); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal inputs: %w", err)
	}

	if variables, err = json.Marshal(record.Variables); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal variables: %w", err)
	}

	if outputs, err = json.Marshal(record.NodeOutputs); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal node outputs: %w", err)
	}

	if record.Logs == nil {
		logs = []byte("[]")
	} else if logs, err = json.Marshal(record.Logs); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal logs: %w", err)
	}

	return inputs, variables, outputs, logs, nil
}

func scanExecution(row rowScanner) (*models.ExecutionRecord, error) {
	var (
		record        models.ExecutionRecord
		startTime     sql.NullTime
		endTime       sql.NullTime
		inputsJSON    []byte
		variablesJSON []byte
		outputsJSON   []byte
		logsJSON      []byte
		currentNodeID sql.NullString
		errorMessage  sql.NullString
	)

	err := row.Scan(
		&record.ID, &record.WorkflowID, &record.Status, &startTime, &endTime,
		&inputsJSON, &variablesJSON, &outputsJSON, &currentNodeID, &errorMessage,
		&logsJSON, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.StartTime = startTime.Time
	record.EndTime = endTime.Time
	record.CurrentNodeID = currentNodeID.String
	record.Error = errorMessage.String

	for _, pair := range []struct {
		data []byte
		dest any
	}{
		{inputsJSON, &record.Inputs},
		{variablesJSON, &record.Variables},
		{outputsJSON, &record.NodeOutputs},
		{logsJSON, &record.Logs},
	} {
		if len(pair.data) == 0 {
			continue
		}

		if err := json.Unmarshal(pair.data, pair.dest); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution field: %w", err)
		}
	}

	if record.NodeOutputs == nil {
		record.NodeOutputs = make(map[string]models.NodeOutput)
	}

	return &record, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
