// Package service implements the inbox and notification API operations on
// top of the task store.
package service

import (
	"context"

	"nplvision_backend/internal/events"
	"nplvision_backend/internal/tasks"
	"nplvision_backend/internal/tasks/repository"
	"nplvision_backend/internal/tasks/transport"
	"nplvision_backend/platform/apperr"
	"nplvision_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 25

	opCreateManual = "tasks.service.create_manual"
)

// Service provides inbox task and notification operations.
type Service struct {
	repo *repository.Repository
	bus  events.Bus
	log  *logger.Logger
}

// New creates a tasks service.
func New(repo *repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// List returns the inbox tasks matching the filter.
func (s *Service) List(ctx context.Context, req transport.ListTasksRequest) (*transport.TaskListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	filter := repository.ListFilter{
		AssignedTo: req.AssignedTo,
		LoanID:     req.LoanID,
		Limit:      pageSize,
		Offset:     (page - 1) * pageSize,
	}
	if req.Status != nil {
		status := tasks.Status(*req.Status)
		filter.Status = &status
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	resp := &transport.TaskListResponse{
		Items:      make([]transport.TaskResponse, 0, len(items)),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
	for _, t := range items {
		resp.Items = append(resp.Items, taskResponse(t))
	}
	return resp, nil
}

// Get returns one task by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*transport.TaskResponse, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := taskResponse(t)
	return &resp, nil
}

// UpdateStatus moves a task through its lifecycle. Completed tasks are
// terminal; reopening happens by raising a new task, not by editing history.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, req transport.UpdateTaskStatusRequest) (*transport.TaskResponse, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == tasks.StatusCompleted {
		return nil, apperr.Conflict("task is already completed")
	}

	t, err := s.repo.UpdateStatus(ctx, id, tasks.Status(req.Status))
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.TaskUpdated{
		BaseEvent: events.NewBaseEvent(),
		TaskID:    t.ID,
		UserID:    t.AssignedTo,
		LoanID:    t.LoanID,
		TaskType:  string(t.Type),
		NewStatus: string(t.Status),
	})

	resp := taskResponse(t)
	return &resp, nil
}

// CreateManual creates a human-authored task. Manual tasks use the general
// follow-up type, never dedup, and notify the chosen assignee.
func (s *Service) CreateManual(ctx context.Context, req transport.CreateManualTaskRequest) (*transport.TaskResponse, error) {
	spec := tasks.Spec{
		Type:        tasks.TypeGeneralFollowUp,
		Title:       req.Title,
		Description: req.Description,
		Priority:    tasks.Priority(req.Priority),
		LoanID:      req.LoanID,
		DocumentID:  req.DocumentID,
	}

	pool := s.repo.Pool()
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Internal("begin transaction failed").WithOp(opCreateManual)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	t, created, err := s.repo.CreateTask(ctx, tx, spec, tasks.SourceManual, req.AssignedTo)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, apperr.Conflict("task was not created").WithOp(opCreateManual)
	}

	var notified *tasks.Notification
	if req.AssignedTo != nil {
		n, err := s.repo.CreateNotification(ctx, tx, t.ID, *req.AssignedTo, t.Title)
		if err != nil {
			return nil, err
		}
		notified = &n
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Internal("commit failed").WithOp(opCreateManual)
	}

	event := events.TaskCreated{
		BaseEvent: events.NewBaseEvent(),
		TaskID:    t.ID,
		Message:   t.Title,
		TaskType:  string(t.Type),
		LoanID:    t.LoanID,
		Priority:  string(t.Priority),
	}
	if notified != nil {
		event.UserID = &notified.UserID
	}
	s.bus.Publish(ctx, event)

	resp := taskResponse(t)
	return &resp, nil
}

// ListNotifications returns a user's notifications, newest first.
func (s *Service) ListNotifications(ctx context.Context, userID int64, page, pageSize int) (*transport.NotificationListResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	items, total, err := s.repo.ListNotifications(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	resp := &transport.NotificationListResponse{
		Items:      make([]transport.NotificationResponse, 0, len(items)),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
	for _, n := range items {
		resp.Items = append(resp.Items, transport.NotificationResponse{
			ID:        n.ID,
			TaskID:    n.TaskID,
			UserID:    n.UserID,
			Message:   n.Message,
			ReadAt:    n.ReadAt,
			CreatedAt: n.CreatedAt,
		})
	}
	return resp, nil
}

// UnreadCount returns the user's unread notification count.
func (s *Service) UnreadCount(ctx context.Context, userID int64) (*transport.UnreadCountResponse, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &transport.UnreadCountResponse{Unread: count}, nil
}

// MarkRead acknowledges one notification for the user.
func (s *Service) MarkRead(ctx context.Context, userID int64, notificationID uuid.UUID) error {
	return s.repo.MarkRead(ctx, userID, notificationID)
}

// MarkAllRead acknowledges all of the user's unread notifications.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) error {
	return s.repo.MarkAllRead(ctx, userID)
}

func taskResponse(t tasks.Task) transport.TaskResponse {
	return transport.TaskResponse{
		ID:          t.ID,
		TaskType:    string(t.Type),
		Title:       t.Title,
		Description: t.Description,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		Source:      string(t.Source),
		LoanID:      t.LoanID,
		DocumentID:  t.DocumentID,
		AssignedTo:  t.AssignedTo,
		Metadata:    t.Metadata,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
