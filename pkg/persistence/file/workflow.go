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

// WorkflowRepository stores workflow definitions as JSON files.
type WorkflowRepository struct {
	dir string
	mu  *sync.RWMutex
}

func (r *WorkflowRepository) path(id string) string {
	return filepath.Join(r.dir, id+".json")
}

func (r *WorkflowRepository) SaveWorkflow(_ context.Context, workflow *models.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if err := writeJSON(r.path(workflow.ID), workflow); err != nil {
		return persistence.NewWorkflowError("save", workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) WorkflowByID(_ context.Context, id string) (*models.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var workflow models.Workflow

	if err := readJSON(r.path(id), &workflow); err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewWorkflowError("get", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("get", id, err)
	}

	return &workflow, nil
}

func (r *WorkflowRepository) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	r.mu.RLock()
	files, err := fs.Glob(os.DirFS(r.dir), "*.json")
	r.mu.RUnlock()

	if err != nil {
		return nil, persistence.NewWorkflowError("list", "", err)
	}

	workflows := make([]*models.Workflow, 0, len(files))

	for _, file := range files {
		workflow, err := r.WorkflowByID(ctx, strings.TrimSuffix(file, ".json"))
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})

	return workflows, nil
}

func (r *WorkflowRepository) DeleteWorkflow(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path(id)); err != nil {
		if os.IsNotExist(err) {
			return persistence.NewWorkflowError("delete", id, persistence.ErrWorkflowNotFound)
		}

		return persistence.NewWorkflowError("delete", id, err)
	}

	return nil
}
