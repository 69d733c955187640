package eventbus

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/fluxion-dev/fluxion/pkg/events"
	"github.com/fluxion-dev/fluxion/pkg/models"
)

// WatermillEventBus implements EventBus on a watermill publisher/subscriber
// pair. Constructors for the concrete transports live in pkg/channels.
type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber

	mu            sync.RWMutex
	subscriptions map[events.EventType]EventHandler
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber) *WatermillEventBus {
	return &WatermillEventBus{
		publisher:     pub,
		subscriber:    sub,
		subscriptions: make(map[events.EventType]EventHandler),
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

// Publish serializes the event and attaches routing metadata. The priority
// metadata lets priority-aware transports dequeue stop and pause intents
// ahead of queued starts.
func (eb *WatermillEventBus) Publish(_ context.Context, topic, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	priority := models.PriorityNormal
	if prioritized, ok := event.(Prioritized); ok {
		priority = prioritized.GetPriority()
	}

	msg.Metadata.Set(events.PriorityMetadataKey, string(priority))

	return eb.publisher.Publish(topic, msg)
}

// Handle registers the handler for one event type. Must be called before
// Subscribe.
func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscriptions[eventType] = handler
}

// Subscribe consumes the topic until ctx is cancelled. Messages without a
// registered handler are acked and dropped; handler failures nack so the
// transport redelivers.
func (eb *WatermillEventBus) Subscribe(ctx context.Context, topic string) error {
	messages, err := eb.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

			eb.mu.RLock()
			handler, exists := eb.subscriptions[eventType]
			eb.mu.RUnlock()

			if !exists {
				msg.Ack()

				continue
			}

			event := newEvent(eventType)
			if event == nil {
				msg.Nack()

				continue
			}

			if err := json.Unmarshal(msg.Payload, event); err != nil {
				msg.Nack()

				continue
			}

			if err := handler(ctx, event); err != nil {
				msg.Nack()

				continue
			}

			msg.Ack()
		}
	}()

	return nil
}

func newEvent(eventType events.EventType) any {
	switch eventType {
	case events.ExecutionStartEvent:
		return &events.ExecutionStart{}
	case events.ExecutionPauseEvent:
		return &events.ExecutionPause{}
	case events.ExecutionResumeEvent:
		return &events.ExecutionResume{}
	case events.ExecutionStopEvent:
		return &events.ExecutionStop{}
	case events.ExecutionStartedEvent:
		return &events.ExecutionStarted{}
	case events.ExecutionCompletedEvent:
		return &events.ExecutionCompleted{}
	case events.ExecutionFailedEvent:
		return &events.ExecutionFailed{}
	case events.ExecutionPausedEvent:
		return &events.ExecutionPaused{}
	case events.ExecutionResumedEvent:
		return &events.ExecutionResumed{}
	case events.ExecutionStoppedEvent:
		return &events.ExecutionStopped{}
	case events.NodeCompletedEvent:
		return &events.NodeCompleted{}
	default:
		return nil
	}
}

func (eb *WatermillEventBus) Close() error {
	if err := eb.publisher.Close(); err != nil {
		return err
	}

	return eb.subscriber.Close()
}
