package transport

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ListTasksRequest is the query parameters for the inbox listing.
type ListTasksRequest struct {
	Status     *string `form:"status" validate:"omitempty,oneof=pending in_progress completed"`
	AssignedTo *int64  `form:"assignedTo"`
	LoanID     *string `form:"loanId"`
	Page       int     `form:"page" validate:"omitempty,min=1"`
	PageSize   int     `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// UpdateTaskStatusRequest moves a task through its lifecycle.
type UpdateTaskStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending in_progress completed"`
}

// CreateManualTaskRequest creates a human-authored inbox task.
type CreateManualTaskRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=200"`
	Description string     `json:"description,omitempty" validate:"max=2000"`
	Priority    string     `json:"priority" validate:"required,oneof=critical high medium low"`
	LoanID      *string    `json:"loanId,omitempty" validate:"omitempty,max=64"`
	DocumentID  *uuid.UUID `json:"documentId,omitempty"`
	AssignedTo  *int64     `json:"assignedTo,omitempty"`
}

// TaskResponse is the inbox task representation.
type TaskResponse struct {
	ID          uuid.UUID       `json:"id"`
	TaskType    string          `json:"taskType"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Priority    string          `json:"priority"`
	Status      string          `json:"status"`
	Source      string          `json:"source"`
	LoanID      *string         `json:"loanId,omitempty"`
	DocumentID  *uuid.UUID      `json:"documentId,omitempty"`
	AssignedTo  *int64          `json:"assignedTo,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// TaskListResponse is the paginated inbox listing.
type TaskListResponse struct {
	Items      []TaskResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

// NotificationResponse is one delivery record.
type NotificationResponse struct {
	ID        uuid.UUID  `json:"id"`
	TaskID    uuid.UUID  `json:"taskId"`
	UserID    int64      `json:"userId"`
	Message   string     `json:"message"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// NotificationListResponse is the paginated notification listing.
type NotificationListResponse struct {
	Items      []NotificationResponse `json:"items"`
	Total      int                    `json:"total"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"pageSize"`
	TotalPages int                    `json:"totalPages"`
}

// UnreadCountResponse reports the user's unread notification count.
type UnreadCountResponse struct {
	Unread int `json:"unread"`
}
