// Package events is the in-process event bus the modules communicate over.
// This file holds the contracts; the bus implementation lives in bus.go.
// Nothing here knows about loans, tasks, or any other domain.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event put on the bus.
type Event interface {
	// EventName identifies the event type. Subscriptions key on it.
	EventName() string
	// OccurredAt is the time the event was raised.
	OccurredAt() time.Time
}

// BaseEvent carries the timestamp shared by all events. Embed it and
// implement EventName.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt is the time the event was raised.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a base event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler consumes events it has subscribed to.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls the underlying function.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes domain events and registers the handlers that receive them.
type Bus interface {
	// Publish dispatches the event to every handler subscribed to its name.
	// Dispatch is asynchronous; the caller never waits on handlers.
	Publish(ctx context.Context, event Event)

	// PublishSync dispatches the event and blocks until every handler has
	// returned, collecting their errors.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler under an event name, as returned by
	// Event.EventName.
	Subscribe(eventName string, handler Handler)
}
