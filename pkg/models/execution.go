package models

import (
	"time"
)

// ExecutionStatus represents the lifecycle state of one workflow run.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusPaused    ExecutionStatus = "paused"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusStopped   ExecutionStatus = "stopped"
)

// Terminal reports whether the status admits no further transitions.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusStopped:
		return true
	default:
		return false
	}
}

// NodeStatus defines the possible states of one node execution.
type NodeStatus string

const (
	NodeStatusPending NodeStatus = "pending"
	NodeStatusRunning NodeStatus = "running"
	NodeStatusSuccess NodeStatus = "success"
	NodeStatusError   NodeStatus = "error"
	NodeStatusSkipped NodeStatus = "skipped" // Node on an untaken condition branch
)

// Terminal reports whether the node output is final.
func (s NodeStatus) Terminal() bool {
	switch s {
	case NodeStatusSuccess, NodeStatusError, NodeStatusSkipped:
		return true
	default:
		return false
	}
}

// NodeOutput is the persisted result of a single node execution. It is the
// recovery checkpoint: a crashed worker resumes from the last stored output.
type NodeOutput struct {
	NodeID    string         `json:"node_id"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
	Status    NodeStatus     `json:"status"`
	StartTime time.Time      `json:"start_time,omitzero"`
	EndTime   time.Time      `json:"end_time,omitzero"`
}

// ExecutionLogEntry is one line of the run's user-visible log stream.
type ExecutionLogEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	NodeID  string    `json:"node_id,omitempty"`
	Message string    `json:"message"`
}

// ExecutionRecord is the authoritative, persisted state of one workflow run.
// All progress is written through the record store before being acted upon.
type ExecutionRecord struct {
	ID            string                `json:"id"`
	WorkflowID    string                `json:"workflow_id"`
	Status        ExecutionStatus       `json:"status"`
	StartTime     time.Time             `json:"start_time,omitzero"`
	EndTime       time.Time             `json:"end_time,omitzero"`
	Inputs        map[string]any        `json:"inputs,omitempty"`
	Variables     map[string]any        `json:"variables,omitempty"`
	NodeOutputs   map[string]NodeOutput `json:"node_outputs"`
	CurrentNodeID string                `json:"current_node_id,omitempty"`
	Error         string                `json:"error,omitempty"`
	Logs          []ExecutionLogEntry   `json:"logs,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// Progress returns the completed-node percentage against the given node total.
func (r *ExecutionRecord) Progress(totalNodes int) float64 {
	if totalNodes == 0 {
		return 0
	}

	completed := 0

	for _, out := range r.NodeOutputs {
		if out.Status.Terminal() {
			completed++
		}
	}

	return float64(completed) / float64(totalNodes) * 100
}

// ExecutionPatch is a partial update applied to an execution record.
// Nil fields are left untouched.
type ExecutionPatch struct {
	Status        *ExecutionStatus
	CurrentNodeID *string
	Error         *string
	StartTime     *time.Time
	EndTime       *time.Time
	Variables     map[string]any
}

// ExecutionPriority orders control messages on the durable queue.
type ExecutionPriority string

const (
	PriorityLow      ExecutionPriority = "low"
	PriorityNormal   ExecutionPriority = "normal"
	PriorityHigh     ExecutionPriority = "high"
	PriorityCritical ExecutionPriority = "critical"
)

// Valid reports whether p is one of the defined priorities.
func (p ExecutionPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}
