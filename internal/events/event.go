// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"nplvision_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Task Engine Events
// =============================================================================

// TaskCreated is published after a generated task (and its notification, when
// one was resolved) has been committed. Subscribers push it to the real-time
// "new inbox task" topic; delivery is best-effort and never affects the
// persisted task.
type TaskCreated struct {
	BaseEvent
	TaskID   uuid.UUID `json:"taskId"`
	UserID   *int64    `json:"userId,omitempty"`
	Message  string    `json:"message"`
	TaskType string    `json:"taskType"`
	LoanID   *string   `json:"loanId,omitempty"`
	Priority string    `json:"priority"`
}

func (e TaskCreated) EventName() string { return "tasks.task.created" }

// TaskUpdated is published after a task status change commits, so inbox
// views can refresh the row without polling.
type TaskUpdated struct {
	BaseEvent
	TaskID    uuid.UUID `json:"taskId"`
	UserID    *int64    `json:"userId,omitempty"`
	LoanID    *string   `json:"loanId,omitempty"`
	TaskType  string    `json:"taskType"`
	NewStatus string    `json:"newStatus"`
}

func (e TaskUpdated) EventName() string { return "tasks.task.updated" }

// =============================================================================
// Loan State Events
// =============================================================================

// DocumentIngested is published after a collateral document row is committed.
type DocumentIngested struct {
	BaseEvent
	LoanID       string    `json:"loanId"`
	DocumentID   uuid.UUID `json:"documentId"`
	DocumentType string    `json:"documentType"`
	FileName     string    `json:"fileName"`
}

func (e DocumentIngested) EventName() string { return "loans.document.ingested" }

// LegalStatusChanged is published after a legal status transition commits.
type LegalStatusChanged struct {
	BaseEvent
	LoanID    string `json:"loanId"`
	OldStatus string `json:"oldStatus"`
	NewStatus string `json:"newStatus"`
}

func (e LegalStatusChanged) EventName() string { return "loans.legal_status.changed" }

// SweepCompleted is published when a missing-document sweep run finishes.
type SweepCompleted struct {
	BaseEvent
	LoansScanned int           `json:"loansScanned"`
	TasksRaised  int           `json:"tasksRaised"`
	LoansFailed  int           `json:"loansFailed"`
	Elapsed      time.Duration `json:"elapsed"`
}

func (e SweepCompleted) EventName() string { return "sweep.completed" }
