package notification

import (
	"context"
	"testing"

	"nplvision_backend/internal/events"
	"nplvision_backend/internal/notification/sse"
	"nplvision_backend/platform/logger"

	"github.com/google/uuid"
)

type pushed struct {
	userID int64
	event  sse.Event
}

type fakePusher struct {
	published []pushed
	broadcast []sse.Event
}

func (f *fakePusher) Publish(userID int64, event sse.Event) {
	f.published = append(f.published, pushed{userID: userID, event: event})
}

func (f *fakePusher) Broadcast(event sse.Event) {
	f.broadcast = append(f.broadcast, event)
}

func newTestModule() (*Module, *fakePusher) {
	push := &fakePusher{}
	return New(push, logger.New("development")), push
}

func TestHandleTaskCreatedAssignedGoesToUser(t *testing.T) {
	m, push := newTestModule()
	userID := int64(3)
	loanID := "L100"

	err := m.Handle(context.Background(), events.TaskCreated{
		BaseEvent: events.NewBaseEvent(),
		TaskID:    uuid.New(),
		UserID:    &userID,
		Message:   "Review document",
		TaskType:  "document_review_low_confidence",
		LoanID:    &loanID,
		Priority:  "high",
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(push.broadcast) != 0 {
		t.Fatalf("assigned task must not broadcast, got %d", len(push.broadcast))
	}
	if len(push.published) != 1 || push.published[0].userID != 3 {
		t.Fatalf("published = %#v", push.published)
	}
	ev := push.published[0].event
	if ev.Type != sse.EventNewInboxTask || ev.LoanID != "L100" {
		t.Fatalf("event = %#v", ev)
	}
}

func TestHandleTaskCreatedUnassignedBroadcasts(t *testing.T) {
	m, push := newTestModule()

	err := m.Handle(context.Background(), events.TaskCreated{
		BaseEvent: events.NewBaseEvent(),
		TaskID:    uuid.New(),
		Message:   "Unassigned work",
		TaskType:  "general_follow_up",
		Priority:  "medium",
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(push.published) != 0 || len(push.broadcast) != 1 {
		t.Fatalf("published=%d broadcast=%d", len(push.published), len(push.broadcast))
	}
}

func TestHandleTaskUpdated(t *testing.T) {
	m, push := newTestModule()
	userID := int64(9)
	taskID := uuid.New()

	err := m.Handle(context.Background(), events.TaskUpdated{
		BaseEvent: events.NewBaseEvent(),
		TaskID:    taskID,
		UserID:    &userID,
		TaskType:  "payment_investigation",
		NewStatus: "in_progress",
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(push.published) != 1 || push.published[0].userID != 9 {
		t.Fatalf("published = %#v", push.published)
	}
	ev := push.published[0].event
	if ev.Type != sse.EventTaskUpdated || ev.TaskID != taskID.String() {
		t.Fatalf("event = %#v", ev)
	}
	data, ok := ev.Data.(map[string]any)
	if !ok || data["status"] != "in_progress" {
		t.Fatalf("data = %#v", ev.Data)
	}

	// Unassigned status changes reach everyone.
	err = m.Handle(context.Background(), events.TaskUpdated{
		BaseEvent: events.NewBaseEvent(),
		TaskID:    uuid.New(),
		TaskType:  "general_follow_up",
		NewStatus: "completed",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(push.broadcast) != 1 {
		t.Fatalf("broadcast = %d, want 1", len(push.broadcast))
	}
}

func TestHandleSweepCompletedBroadcasts(t *testing.T) {
	m, push := newTestModule()

	err := m.Handle(context.Background(), events.SweepCompleted{
		BaseEvent:    events.NewBaseEvent(),
		LoansScanned: 40,
		TasksRaised:  3,
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(push.broadcast) != 1 || push.broadcast[0].Type != sse.EventSweepComplete {
		t.Fatalf("broadcast = %#v", push.broadcast)
	}
}
