// Package notification pushes committed task activity to connected clients
// over SSE. It subscribes to domain events so the task engine never needs to
// know about transports.
package notification

import (
	"context"

	"nplvision_backend/internal/events"
	"nplvision_backend/internal/notification/sse"
	"nplvision_backend/platform/logger"
)

// Pusher delivers events to connected clients, either per-user or to
// everyone. *sse.Service satisfies it.
type Pusher interface {
	Publish(userID int64, event sse.Event)
	Broadcast(event sse.Event)
}

// Module handles all notification-related event subscriptions.
type Module struct {
	sse Pusher
	log *logger.Logger
}

// New creates a new notification module.
func New(push Pusher, log *logger.Logger) *Module {
	return &Module{sse: push, log: log}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.TaskCreated{}.EventName(), m)
	bus.Subscribe(events.TaskUpdated{}.EventName(), m)
	bus.Subscribe(events.SweepCompleted{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.TaskCreated:
		return m.handleTaskCreated(ctx, e)
	case events.TaskUpdated:
		return m.handleTaskUpdated(ctx, e)
	case events.SweepCompleted:
		return m.handleSweepCompleted(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleTaskCreated(_ context.Context, e events.TaskCreated) error {
	event := sse.Event{
		Type:     sse.EventNewInboxTask,
		TaskID:   e.TaskID.String(),
		Message:  e.Message,
		Priority: e.Priority,
		Data:     map[string]any{"taskType": e.TaskType},
	}
	if e.LoanID != nil {
		event.LoanID = *e.LoanID
	}

	// Unassigned tasks go to everyone watching the inbox.
	if e.UserID != nil {
		m.sse.Publish(*e.UserID, event)
	} else {
		m.sse.Broadcast(event)
	}

	m.log.Debug("task pushed over sse", "taskId", e.TaskID, "assigned", e.UserID != nil)
	return nil
}

func (m *Module) handleTaskUpdated(_ context.Context, e events.TaskUpdated) error {
	event := sse.Event{
		Type:   sse.EventTaskUpdated,
		TaskID: e.TaskID.String(),
		Data:   map[string]any{"taskType": e.TaskType, "status": e.NewStatus},
	}
	if e.LoanID != nil {
		event.LoanID = *e.LoanID
	}

	// Status changes on unassigned tasks are still inbox-visible to everyone.
	if e.UserID != nil {
		m.sse.Publish(*e.UserID, event)
	} else {
		m.sse.Broadcast(event)
	}
	return nil
}

func (m *Module) handleSweepCompleted(_ context.Context, e events.SweepCompleted) error {
	m.sse.Broadcast(sse.Event{
		Type: sse.EventSweepComplete,
		Data: map[string]any{
			"loansScanned": e.LoansScanned,
			"tasksRaised":  e.TasksRaised,
			"loansFailed":  e.LoansFailed,
		},
	})
	return nil
}
