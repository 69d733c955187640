package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxion-dev/fluxion/pkg/protocol"
)

func TestExecuteShapedOutput(t *testing.T) {
	h := NewHandler()

	out, err := h.Execute(context.Background(), protocol.Request{
		Config: map[string]any{
			"output": map[string]any{"total": float64(84), "currency": "USD"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"total": float64(84), "currency": "USD"}, out)
}

func TestExecuteScalarOutput(t *testing.T) {
	h := NewHandler()

	out, err := h.Execute(context.Background(), protocol.Request{
		Config: map[string]any{"output": "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"result": "hello"}, out)
}

func TestExecuteMergeInputs(t *testing.T) {
	h := NewHandler()

	out, err := h.Execute(context.Background(), protocol.Request{
		Config: map[string]any{"merge": true},
		Inputs: map[string]any{
			"fetch_user":   map[string]any{"name": "ada", "id": float64(1)},
			"fetch_orders": map[string]any{"orders": []any{"o-1"}, "id": float64(9)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "ada", out["name"])
	assert.Equal(t, []any{"o-1"}, out["orders"])
	// Colliding key resolves to the lexically smallest node id.
	assert.Equal(t, float64(9), out["id"])
}

func TestExecutePickNarrowsResult(t *testing.T) {
	h := NewHandler()

	out, err := h.Execute(context.Background(), protocol.Request{
		Config: map[string]any{
			"output": map[string]any{"a": 1, "b": 2, "c": 3},
			"pick":   []any{"a", "c", "missing"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1, "c": 3}, out)
}

func TestExecuteRequiresSource(t *testing.T) {
	h := NewHandler()

	_, err := h.Execute(context.Background(), protocol.Request{Config: map[string]any{}})
	require.Error(t, err)
}
