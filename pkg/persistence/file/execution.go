package file

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fluxion-dev/fluxion/pkg/models"
	"github.com/fluxion-dev/fluxion/pkg/persistence"
)

// ExecutionRepository stores execution records as JSON files. Mutations go
// through a read-modify-write cycle under the shared lock, which is the
// file backend's substitute for a transactional update.
type ExecutionRepository struct {
	dir string
	mu  *sync.RWMutex
}

func (r *ExecutionRepository) path(id string) string {
	return filepath.Join(r.dir, id+".json")
}

func (r *ExecutionRepository) CreateExecution(_ context.Context, record *models.ExecutionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := os.Stat(r.path(record.ID)); err == nil {
		return persistence.NewExecutionError("create", record.ID, persistence.ErrExecutionAlreadyExists)
	}

	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	if record.NodeOutputs == nil {
		record.NodeOutputs = make(map[string]models.NodeOutput)
	}

	if err := writeJSON(r.path(record.ID), record); err != nil {
		return persistence.NewExecutionError("create", record.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) GetExecution(_ context.Context, id string) (*models.ExecutionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.load(id)
}

func (r *ExecutionRepository) load(id string) (*models.ExecutionRecord, error) {
	var record models.ExecutionRecord

	if err := readJSON(r.path(id), &record); err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewExecutionError("get", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("get", id, err)
	}

	return &record, nil
}

func (r *ExecutionRepository) ListExecutions(_ context.Context, workflowID string) ([]*models.ExecutionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	files, err := fs.Glob(os.DirFS(r.dir), "*.json")
	if err != nil {
		return nil, persistence.NewExecutionError("list", "", err)
	}

	records := make([]*models.ExecutionRecord, 0, len(files))

	for _, file := range files {
		record, err := r.load(strings.TrimSuffix(file, ".json"))
		if err != nil {
			return nil, err
		}

		if workflowID == "" || record.WorkflowID == workflowID {
			records = append(records, record)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})

	return records, nil
}

func (r *ExecutionRepository) UpdateExecution(_ context.Context, id string, patch models.ExecutionPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, err := r.load(id)
	if err != nil {
		return err
	}

	if patch.Status != nil {
		if record.Status.Terminal() {
			return persistence.NewExecutionError("update", id, persistence.ErrTerminalState)
		}

		record.Status = *patch.Status
	}

	if patch.CurrentNodeID != nil {
		record.CurrentNodeID = *patch.CurrentNodeID
	}

	if patch.Error != nil {
		record.Error = *patch.Error
	}

	if patch.StartTime != nil {
		record.StartTime = *patch.StartTime
	}

	if patch.EndTime != nil {
		record.EndTime = *patch.EndTime
	}

	if patch.Variables != nil {
		record.Variables = patch.Variables
	}

	record.UpdatedAt = time.Now().UTC()

	if err := writeJSON(r.path(id), record); err != nil {
		return persistence.NewExecutionError("update", id, err)
	}

	return nil
}

func (r *ExecutionRepository) AppendNodeOutput(_ context.Context, id string, output models.NodeOutput) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, err := r.load(id)
	if err != nil {
		return err
	}

	if record.NodeOutputs == nil {
		record.NodeOutputs = make(map[string]models.NodeOutput)
	}

	record.NodeOutputs[output.NodeID] = output
	record.UpdatedAt = time.Now().UTC()

	if err := writeJSON(r.path(id), record); err != nil {
		return persistence.NewExecutionError("append_node_output", id, err)
	}

	return nil
}

func (r *ExecutionRepository) AppendLog(_ context.Context, id string, entry models.ExecutionLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, err := r.load(id)
	if err != nil {
		return err
	}

	if entry.Time.IsZero() {
		entry.Time = time.Now().UTC()
	}

	record.Logs = append(record.Logs, entry)
	record.UpdatedAt = time.Now().UTC()

	if err := writeJSON(r.path(id), record); err != nil {
		return persistence.NewExecutionError("append_log", id, err)
	}

	return nil
}
