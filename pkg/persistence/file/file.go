// Package file provides file system backed persistence. Each workflow and
// execution record is one JSON document, which keeps local development and
// tests free of external services.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fluxion-dev/fluxion/pkg/persistence"
)

// Persistence implements persistence.Persistence on a root directory.
type Persistence struct {
	root          string
	workflowRepo  *WorkflowRepository
	executionRepo *ExecutionRepository
}

// NewPersistence creates file persistence rooted at the given directory. The
// "file://" scheme prefix is accepted and stripped.
func NewPersistence(root string) (*Persistence, error) {
	cleanRoot := strings.TrimPrefix(root, "file://")

	for _, dir := range []string{"workflows", "executions"} {
		if err := os.MkdirAll(filepath.Join(cleanRoot, dir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to prepare %s directory: %w", dir, err)
		}
	}

	mu := &sync.RWMutex{}

	return &Persistence{
		root:          cleanRoot,
		workflowRepo:  &WorkflowRepository{dir: filepath.Join(cleanRoot, "workflows"), mu: mu},
		executionRepo: &ExecutionRepository{dir: filepath.Join(cleanRoot, "executions"), mu: mu},
	}, nil
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return p.executionRepo
}

// HealthCheck verifies the root directory still exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); err != nil {
		return fmt.Errorf("persistence root unavailable: %w", err)
	}

	return nil
}

// Close is a no-op for file persistence.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// writeJSON writes the document atomically via a temp file rename so a crash
// mid-write never leaves a truncated record.
func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

func readJSON(path string, value any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, value); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filepath.Base(path), err)
	}

	return nil
}
