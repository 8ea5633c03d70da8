// Package repository persists inbox tasks and their notifications.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nplvision_backend/internal/tasks"
	"nplvision_backend/platform/apperr"
	"nplvision_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreateTask         = "tasks.repository.create_task"
	opHasOpenTask        = "tasks.repository.has_open_task"
	opGetTask            = "tasks.repository.get_task"
	opListTasks          = "tasks.repository.list_tasks"
	opUpdateStatus       = "tasks.repository.update_status"
	opCreateNotification = "tasks.repository.create_notification"
	opListNotifications  = "tasks.repository.list_notifications"
	opCountUnread        = "tasks.repository.count_unread"
	opMarkRead           = "tasks.repository.mark_read"
	opMarkAllRead        = "tasks.repository.mark_all_read"

	errRepoNotConfigured = "task repository not configured"

	taskColumns = `id, task_type, title, description, priority, status, source,
		loan_id, document_id, assigned_to, metadata, created_at, updated_at`

	// uniqueViolation is the Postgres error code hit when a concurrent insert
	// beats us to the open-task partial index.
	uniqueViolation = "23505"
)

// Repository is the task and notification store.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a task repository backed by the given pool.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Pool exposes the underlying pool for callers that own transactions.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// CreateTask inserts a task inside the caller's unit of work. For
// engine-created tasks the open-task partial unique index is the race
// backstop: a duplicate insert is absorbed (created = false) instead of
// producing a second open task for the same (loan, task type).
func (r *Repository) CreateTask(ctx context.Context, q db.DBTX, spec tasks.Spec, source tasks.Source, assignee *int64) (tasks.Task, bool, error) {
	if r == nil || q == nil {
		return tasks.Task{}, false, apperr.Internal(errRepoNotConfigured).WithOp(opCreateTask)
	}
	if spec.Type == "" || spec.Title == "" {
		return tasks.Task{}, false, apperr.Validation("task type and title are required").WithOp(opCreateTask)
	}

	var metadata []byte
	if spec.Metadata != nil {
		encoded, err := json.Marshal(spec.Metadata)
		if err != nil {
			return tasks.Task{}, false, apperr.Internal(fmt.Sprintf("encode task metadata failed: %v", err)).WithOp(opCreateTask)
		}
		metadata = encoded
	}

	now := time.Now().UTC()
	var t tasks.Task
	err := q.QueryRow(ctx, `
		INSERT INTO inbox_tasks
		(id, task_type, title, description, priority, status, source, loan_id, document_id, assigned_to, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		ON CONFLICT (loan_id, task_type) WHERE status IN ('pending', 'in_progress') AND source = 'engine'
		DO NOTHING
		RETURNING `+taskColumns,
		uuid.New(), spec.Type, spec.Title, spec.Description, spec.Priority,
		tasks.StatusPending, source, spec.LoanID, spec.DocumentID, assignee, metadata, now,
	).Scan(
		&t.ID, &t.Type, &t.Title, &t.Description, &t.Priority, &t.Status, &t.Source,
		&t.LoanID, &t.DocumentID, &t.AssignedTo, &t.Metadata, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Conflict with an existing open task: absorbed, not an error.
			return tasks.Task{}, false, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return tasks.Task{}, false, nil
		}
		return tasks.Task{}, false, apperr.Internal(fmt.Sprintf("create task failed: %v", err)).WithOp(opCreateTask)
	}

	return t, true, nil
}

// HasOpenTask reports whether an engine-created open task already exists for
// the (loan, task type) pair. This is the sweep's dedup guard.
func (r *Repository) HasOpenTask(ctx context.Context, q db.DBTX, loanID string, taskType tasks.Type) (bool, error) {
	if r == nil || q == nil {
		return false, apperr.Internal(errRepoNotConfigured).WithOp(opHasOpenTask)
	}

	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM inbox_tasks
			WHERE loan_id = $1 AND task_type = $2
			  AND status IN ('pending', 'in_progress')
			  AND source = 'engine'
		)
	`, loanID, taskType).Scan(&exists)
	if err != nil {
		return false, apperr.Internal(fmt.Sprintf("open task lookup failed: %v", err)).WithOp(opHasOpenTask)
	}

	return exists, nil
}

// CreateNotification inserts the task's notification in the caller's unit of
// work. The task_id unique constraint keeps it to at most one per task.
func (r *Repository) CreateNotification(ctx context.Context, q db.DBTX, taskID uuid.UUID, userID int64, message string) (tasks.Notification, error) {
	if r == nil || q == nil {
		return tasks.Notification{}, apperr.Internal(errRepoNotConfigured).WithOp(opCreateNotification)
	}
	if taskID == uuid.Nil || userID == 0 {
		return tasks.Notification{}, apperr.Validation("taskId and userId are required").WithOp(opCreateNotification)
	}

	var n tasks.Notification
	err := q.QueryRow(ctx, `
		INSERT INTO notifications (id, task_id, user_id, message, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, task_id, user_id, message, read_at, created_at
	`, uuid.New(), taskID, userID, message, time.Now().UTC()).Scan(
		&n.ID, &n.TaskID, &n.UserID, &n.Message, &n.ReadAt, &n.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return tasks.Notification{}, apperr.Conflict("task already has a notification").WithOp(opCreateNotification)
		}
		return tasks.Notification{}, apperr.Internal(fmt.Sprintf("create notification failed: %v", err)).WithOp(opCreateNotification)
	}

	return n, nil
}

// ListFilter narrows the inbox listing.
type ListFilter struct {
	Status     *tasks.Status
	AssignedTo *int64
	LoanID     *string
	Limit      int
	Offset     int
}

// List returns tasks matching the filter, newest first, with the total count.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]tasks.Task, int, error) {
	if r == nil || r.pool == nil {
		return nil, 0, apperr.Internal(errRepoNotConfigured).WithOp(opListTasks)
	}
	if f.Limit < 1 {
		f.Limit = 20
	}

	where := "TRUE"
	args := []any{}
	idx := 1
	addCond := func(cond string, val any) {
		where += fmt.Sprintf(" AND %s = $%d", cond, idx)
		args = append(args, val)
		idx++
	}
	if f.Status != nil {
		addCond("status", *f.Status)
	}
	if f.AssignedTo != nil {
		addCond("assigned_to", *f.AssignedTo)
	}
	if f.LoanID != nil {
		addCond("loan_id", *f.LoanID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM inbox_tasks WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("count tasks failed: %v", err)).WithOp(opListTasks)
	}

	query := fmt.Sprintf(`SELECT %s FROM inbox_tasks WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		taskColumns, where, idx, idx+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("list tasks query failed: %v", err)).WithOp(opListTasks)
	}
	defer rows.Close()

	items := make([]tasks.Task, 0, f.Limit)
	for rows.Next() {
		var t tasks.Task
		if scanErr := rows.Scan(
			&t.ID, &t.Type, &t.Title, &t.Description, &t.Priority, &t.Status, &t.Source,
			&t.LoanID, &t.DocumentID, &t.AssignedTo, &t.Metadata, &t.CreatedAt, &t.UpdatedAt,
		); scanErr != nil {
			return nil, 0, apperr.Internal(fmt.Sprintf("scan task failed: %v", scanErr)).WithOp(opListTasks)
		}
		items = append(items, t)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("iterate tasks failed: %v", rowsErr)).WithOp(opListTasks)
	}

	return items, total, nil
}

// GetByID returns one task.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (tasks.Task, error) {
	if r == nil || r.pool == nil {
		return tasks.Task{}, apperr.Internal(errRepoNotConfigured).WithOp(opGetTask)
	}

	var t tasks.Task
	err := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM inbox_tasks WHERE id = $1`, id).Scan(
		&t.ID, &t.Type, &t.Title, &t.Description, &t.Priority, &t.Status, &t.Source,
		&t.LoanID, &t.DocumentID, &t.AssignedTo, &t.Metadata, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tasks.Task{}, apperr.NotFound("task not found").WithOp(opGetTask)
		}
		return tasks.Task{}, apperr.Internal(fmt.Sprintf("get task failed: %v", err)).WithOp(opGetTask)
	}

	return t, nil
}

// UpdateStatus moves a task to a new lifecycle status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status tasks.Status) (tasks.Task, error) {
	if r == nil || r.pool == nil {
		return tasks.Task{}, apperr.Internal(errRepoNotConfigured).WithOp(opUpdateStatus)
	}

	var t tasks.Task
	err := r.pool.QueryRow(ctx, `
		UPDATE inbox_tasks SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+taskColumns, id, status, time.Now().UTC()).Scan(
		&t.ID, &t.Type, &t.Title, &t.Description, &t.Priority, &t.Status, &t.Source,
		&t.LoanID, &t.DocumentID, &t.AssignedTo, &t.Metadata, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tasks.Task{}, apperr.NotFound("task not found").WithOp(opUpdateStatus)
		}
		return tasks.Task{}, apperr.Internal(fmt.Sprintf("update task status failed: %v", err)).WithOp(opUpdateStatus)
	}

	return t, nil
}

// ListNotifications returns a user's notifications, newest first.
func (r *Repository) ListNotifications(ctx context.Context, userID int64, limit, offset int) ([]tasks.Notification, int, error) {
	if r == nil || r.pool == nil {
		return nil, 0, apperr.Internal(errRepoNotConfigured).WithOp(opListNotifications)
	}
	if limit < 1 {
		limit = 20
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("count notifications failed: %v", err)).WithOp(opListNotifications)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, task_id, user_id, message, read_at, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("list notifications failed: %v", err)).WithOp(opListNotifications)
	}
	defer rows.Close()

	items := make([]tasks.Notification, 0, limit)
	for rows.Next() {
		var n tasks.Notification
		if scanErr := rows.Scan(&n.ID, &n.TaskID, &n.UserID, &n.Message, &n.ReadAt, &n.CreatedAt); scanErr != nil {
			return nil, 0, apperr.Internal(fmt.Sprintf("scan notification failed: %v", scanErr)).WithOp(opListNotifications)
		}
		items = append(items, n)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("iterate notifications failed: %v", rowsErr)).WithOp(opListNotifications)
	}

	return items, total, nil
}

// CountUnread returns the user's unread notification count.
func (r *Repository) CountUnread(ctx context.Context, userID int64) (int, error) {
	if r == nil || r.pool == nil {
		return 0, apperr.Internal(errRepoNotConfigured).WithOp(opCountUnread)
	}

	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL
	`, userID).Scan(&count)
	if err != nil {
		return 0, apperr.Internal(fmt.Sprintf("count unread notifications failed: %v", err)).WithOp(opCountUnread)
	}

	return count, nil
}

// MarkRead acknowledges one notification. Read acknowledgement is the only
// mutation a notification supports.
func (r *Repository) MarkRead(ctx context.Context, userID int64, notificationID uuid.UUID) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opMarkRead)
	}

	_, err := r.pool.Exec(ctx, `
		UPDATE notifications SET read_at = now()
		WHERE id = $1 AND user_id = $2 AND read_at IS NULL
	`, notificationID, userID)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("mark notification read failed: %v", err)).WithOp(opMarkRead)
	}

	return nil
}

// MarkAllRead acknowledges all of a user's unread notifications.
func (r *Repository) MarkAllRead(ctx context.Context, userID int64) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opMarkAllRead)
	}

	_, err := r.pool.Exec(ctx, `
		UPDATE notifications SET read_at = now()
		WHERE user_id = $1 AND read_at IS NULL
	`, userID)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("mark all notifications read failed: %v", err)).WithOp(opMarkAllRead)
	}

	return nil
}
