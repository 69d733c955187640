package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecutionStatus_Terminal(t *testing.T) {
	terminal := []ExecutionStatus{ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusStopped}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "expected %s to be terminal", s)
	}

	open := []ExecutionStatus{ExecutionStatusPending, ExecutionStatusRunning, ExecutionStatusPaused}
	for _, s := range open {
		assert.False(t, s.Terminal(), "expected %s to be non-terminal", s)
	}
}

func TestNodeStatus_Terminal(t *testing.T) {
	assert.True(t, NodeStatusSuccess.Terminal())
	assert.True(t, NodeStatusError.Terminal())
	assert.True(t, NodeStatusSkipped.Terminal())
	assert.False(t, NodeStatusPending.Terminal())
	assert.False(t, NodeStatusRunning.Terminal())
}

func TestExecutionRecord_Progress(t *testing.T) {
	record := &ExecutionRecord{
		NodeOutputs: map[string]NodeOutput{
			"a": {NodeID: "a", Status: NodeStatusSuccess},
			"b": {NodeID: "b", Status: NodeStatusSkipped},
			"c": {NodeID: "c", Status: NodeStatusRunning},
		},
	}

	assert.InDelta(t, 50.0, record.Progress(4), 0.001)
	assert.InDelta(t, 0.0, record.Progress(0), 0.001)
}

func TestExecutionPriority_Valid(t *testing.T) {
	assert.True(t, PriorityLow.Valid())
	assert.True(t, PriorityCritical.Valid())
	assert.False(t, ExecutionPriority("urgent").Valid())
}
