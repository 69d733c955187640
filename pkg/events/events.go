// Package events defines the control intents and lifecycle notifications
// exchanged between the API, the scheduler and the workers.
//
// Control intents are commands: they ask a worker to start, pause, resume or
// stop an execution. Lifecycle events are facts published after the
// orchestrator changed state. Both travel over the same durable bus.
package events

import (
	"time"

	"github.com/fluxion-dev/fluxion/pkg/models"
)

type EventType string

// Bus topics.
const (
	ControlTopic   = "fluxion.execution.control"   // Control intents consumed by workers
	LifecycleTopic = "fluxion.execution.lifecycle" // Notifications for observers
)

// Message metadata keys.
const (
	EventMetadataKey     = "key"
	EventTypeMetadataKey = "event_type"
	PriorityMetadataKey  = "priority"
)

const (
	// Control intents.
	ExecutionStartEvent  EventType = "execution.start"
	ExecutionPauseEvent  EventType = "execution.pause"
	ExecutionResumeEvent EventType = "execution.resume"
	ExecutionStopEvent   EventType = "execution.stop"

	// Lifecycle notifications.
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionPausedEvent    EventType = "execution.paused"
	ExecutionResumedEvent   EventType = "execution.resumed"
	ExecutionStoppedEvent   EventType = "execution.stopped"
	NodeCompletedEvent      EventType = "node.completed"
)

type BaseEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	ExecutionID string    `json:"execution_id"`
	WorkflowID  string    `json:"workflow_id,omitempty"`
	WorkerID    string    `json:"worker_id,omitempty"`
}

// GetExecutionID returns the execution this event belongs to. It doubles as
// the partition key on the bus.
func (e BaseEvent) GetExecutionID() string {
	return e.ExecutionID
}

// ExecutionStart asks a worker to begin running a pending execution. Resume
// and stop outrank it on the bus so control reaches a busy system first.
type ExecutionStart struct {
	BaseEvent

	Priority models.ExecutionPriority `json:"priority"`
}

func (e ExecutionStart) GetType() EventType { return ExecutionStartEvent }

func (e ExecutionStart) GetPriority() models.ExecutionPriority {
	if e.Priority.Valid() {
		return e.Priority
	}

	return models.PriorityNormal
}

// ExecutionPause asks the running worker to stop at the next node boundary.
type ExecutionPause struct {
	BaseEvent
}

func (e ExecutionPause) GetType() EventType { return ExecutionPauseEvent }

func (e ExecutionPause) GetPriority() models.ExecutionPriority { return models.PriorityHigh }

// ExecutionResume asks a worker to continue a paused execution from its
// checkpoint.
type ExecutionResume struct {
	BaseEvent
}

func (e ExecutionResume) GetType() EventType { return ExecutionResumeEvent }

func (e ExecutionResume) GetPriority() models.ExecutionPriority { return models.PriorityHigh }

// ExecutionStop asks for immediate termination. It carries the highest
// priority so it jumps ahead of queued starts.
type ExecutionStop struct {
	BaseEvent

	Reason string `json:"reason,omitempty"`
}

func (e ExecutionStop) GetType() EventType { return ExecutionStopEvent }

func (e ExecutionStop) GetPriority() models.ExecutionPriority { return models.PriorityCritical }

// Lifecycle notifications.

type ExecutionStarted struct {
	BaseEvent
}

func (e ExecutionStarted) GetType() EventType { return ExecutionStartedEvent }

type ExecutionCompleted struct {
	BaseEvent

	Duration time.Duration `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType { return ExecutionCompletedEvent }

type ExecutionFailed struct {
	BaseEvent

	NodeID   string        `json:"node_id,omitempty"`
	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func (e ExecutionFailed) GetType() EventType { return ExecutionFailedEvent }

type ExecutionPaused struct {
	BaseEvent

	CurrentNodeID string `json:"current_node_id,omitempty"`
}

func (e ExecutionPaused) GetType() EventType { return ExecutionPausedEvent }

type ExecutionResumed struct {
	BaseEvent
}

func (e ExecutionResumed) GetType() EventType { return ExecutionResumedEvent }

type ExecutionStopped struct {
	BaseEvent

	Reason string `json:"reason,omitempty"`
}

func (e ExecutionStopped) GetType() EventType { return ExecutionStoppedEvent }

type NodeCompleted struct {
	BaseEvent

	NodeID     string            `json:"node_id"`
	Status     models.NodeStatus `json:"status"`
	Error      string            `json:"error,omitempty"`
	DurationMs int64             `json:"duration_ms"`
}

func (e NodeCompleted) GetType() EventType { return NodeCompletedEvent }
