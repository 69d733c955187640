// Package eventbus provides the durable messaging layer between the API,
// the scheduler and the workers.
package eventbus

import (
	"context"

	"github.com/fluxion-dev/fluxion/pkg/events"
	"github.com/fluxion-dev/fluxion/pkg/models"
)

type Event interface {
	GetType() events.EventType
}

// Prioritized events carry a queue priority. Events without it default to
// normal.
type Prioritized interface {
	GetPriority() models.ExecutionPriority
}

type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler)
	Subscribe(ctx context.Context, topic string) error
}

type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
