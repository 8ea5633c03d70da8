package tasks

import (
	"context"

	"nplvision_backend/internal/events"
	"nplvision_backend/platform/db"
	"nplvision_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the subset of the task repository the engine writes through.
type Store interface {
	CreateTask(ctx context.Context, q db.DBTX, spec Spec, source Source, assignee *int64) (Task, bool, error)
	HasOpenTask(ctx context.Context, q db.DBTX, loanID string, taskType Type) (bool, error)
	CreateNotification(ctx context.Context, q db.DBTX, taskID uuid.UUID, userID int64, message string) (Notification, error)
}

// Outcome describes what one engine invocation committed inside the caller's
// transaction. A nil Outcome means the pipeline decided not to create a task.
type Outcome struct {
	Task         Task
	Notification *Notification
}

// Engine runs the classify → assign → dedup → store pipeline. It never owns a
// transaction: event-triggered callers pass the transaction that performs the
// originating mutation, so a failed task write aborts that mutation with it.
type Engine struct {
	store    Store
	assignee AssigneePolicy
	bus      events.Bus
	log      *logger.Logger
}

// NewEngine creates the task engine.
func NewEngine(store Store, assignee AssigneePolicy, bus events.Bus, log *logger.Logger) *Engine {
	return &Engine{
		store:    store,
		assignee: assignee,
		bus:      bus,
		log:      log,
	}
}

// RaiseEvent persists a classified task for a discrete event. Discrete events
// are each independently actionable, so no dedup pre-check runs; the open-task
// unique index still absorbs a racing duplicate (nil Outcome, no error).
//
// Any store error propagates so the caller can abort the originating mutation.
func (e *Engine) RaiseEvent(ctx context.Context, q db.DBTX, spec Spec) (*Outcome, error) {
	return e.raise(ctx, q, spec)
}

// RaiseSwept persists a classified task for a sweep finding. The sweep
// re-evaluates the same condition on every run, so an existing open task for
// the (loan, task type) pair suppresses creation. A failed dedup lookup is
// treated as "duplicate exists": under-notifying beats flooding the inbox on
// a transient read error.
func (e *Engine) RaiseSwept(ctx context.Context, q db.DBTX, spec Spec) (*Outcome, error) {
	if spec.LoanID != nil {
		exists, err := e.store.HasOpenTask(ctx, q, *spec.LoanID, spec.Type)
		if err != nil {
			e.log.Warn("dedup lookup failed, assuming open task exists", "task_type", spec.Type, "loan_id", *spec.LoanID, "error", err)
			return nil, nil
		}
		if exists {
			e.log.TaskSkipped(string(spec.Type), *spec.LoanID, "open task exists")
			return nil, nil
		}
	}

	return e.raise(ctx, q, spec)
}

func (e *Engine) raise(ctx context.Context, q db.DBTX, spec Spec) (*Outcome, error) {
	assignee, err := e.assignee.Resolve(ctx, q, spec.Type, spec.LoanID)
	if err != nil {
		// An unassigned task is still a task; resolution failures only cost
		// the notification.
		e.log.Warn("assignee resolution failed, creating unassigned task", "task_type", spec.Type, "error", err)
		assignee = nil
	}

	task, created, err := e.store.CreateTask(ctx, q, spec, SourceEngine, assignee)
	if err != nil {
		return nil, err
	}
	if !created {
		if spec.LoanID != nil {
			e.log.TaskSkipped(string(spec.Type), *spec.LoanID, "duplicate absorbed by store")
		}
		return nil, nil
	}

	outcome := &Outcome{Task: task}
	if assignee != nil {
		n, err := e.store.CreateNotification(ctx, q, task.ID, *assignee, task.Title)
		if err != nil {
			return nil, err
		}
		outcome.Notification = &n
	}

	loanID := ""
	if task.LoanID != nil {
		loanID = *task.LoanID
	}
	e.log.TaskRaised(string(task.Type), loanID, string(task.Priority))

	return outcome, nil
}

// Announce publishes the committed outcome to real-time subscribers. Callers
// invoke it only after their transaction commits; failures are swallowed
// because delivery is best-effort while persistence is guaranteed.
func (e *Engine) Announce(ctx context.Context, outcome *Outcome) {
	if e == nil || e.bus == nil || outcome == nil {
		return
	}

	ev := events.TaskCreated{
		BaseEvent: events.NewBaseEvent(),
		TaskID:    outcome.Task.ID,
		Message:   outcome.Task.Title,
		TaskType:  string(outcome.Task.Type),
		LoanID:    outcome.Task.LoanID,
		Priority:  string(outcome.Task.Priority),
	}
	if outcome.Notification != nil {
		userID := outcome.Notification.UserID
		ev.UserID = &userID
		ev.Message = outcome.Notification.Message
	}

	e.bus.Publish(ctx, ev)
}
