// Package tasks implements the automated task-generation engine: it turns
// loan state changes into prioritized, deduplicated inbox work items with
// notifications.
package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type is the fixed task type vocabulary.
type Type string

const (
	TypeDocumentReviewLowConfidence      Type = "document_review_low_confidence"
	TypeDocumentReviewCriticalConfidence Type = "document_review_critical_confidence"
	TypeForeclosureActionScheduled       Type = "foreclosure_action_scheduled"
	TypeForeclosureActionUrgent          Type = "foreclosure_action_urgent"
	TypeForeclosureCompletionReview      Type = "foreclosure_completion_review"
	TypeDocumentUploadRequired           Type = "document_upload_required"
	TypeTitleReportUploadRequired        Type = "title_report_upload_required"
	TypePaymentInvestigation             Type = "payment_investigation"
	TypeLoanReinstatementReview          Type = "loan_reinstatement_review"

	// TypeGeneralFollowUp is the default for manually created tasks.
	TypeGeneralFollowUp Type = "general_follow_up"
)

// Priority is the fixed priority vocabulary.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Status is the inbox task lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// OpenStatuses are the statuses counted by the at-most-one-open invariant.
var OpenStatuses = []Status{StatusPending, StatusInProgress}

// Source records who created a task. The open-task uniqueness constraint
// applies to engine-created tasks only.
type Source string

const (
	SourceEngine Source = "engine"
	SourceManual Source = "manual"
)

// Metadata is the tagged union of per-task-type metadata shapes. Each task
// type has exactly one variant, so the stored shape is statically known.
type Metadata interface {
	metadataType() Type
}

// DocumentReviewMetadata accompanies both document review task types.
type DocumentReviewMetadata struct {
	FileName        string `json:"fileName"`
	DocumentType    string `json:"documentType,omitempty"`
	ConfidenceScore int    `json:"confidenceScore"`
}

// ForeclosureActionMetadata accompanies scheduled and urgent sale tasks.
type ForeclosureActionMetadata struct {
	SaleScheduledDate time.Time `json:"saleScheduledDate"`
	DaysUntilSale     int       `json:"daysUntilSale"`
	FCStatus          string    `json:"fcStatus,omitempty"`
}

// CompletionReviewMetadata accompanies foreclosure_completion_review tasks.
type CompletionReviewMetadata struct {
	SaleHeldDate *time.Time `json:"saleHeldDate,omitempty"`
	REODate      *time.Time `json:"reoDate,omitempty"`
}

// PaymentInvestigationMetadata accompanies payment_investigation tasks.
type PaymentInvestigationMetadata struct {
	LastPaymentDate  time.Time `json:"lastPaymentDate"`
	NextPaymentDue   time.Time `json:"nextPaymentDue"`
	MonthsDelinquent int       `json:"monthsDelinquent"`
}

// ReinstatementMetadata carries both legal status strings so reviewers can
// see the transition that fired the task.
type ReinstatementMetadata struct {
	OldStatus string `json:"oldStatus"`
	NewStatus string `json:"newStatus"`
}

// MissingDocumentMetadata accompanies both sweep-raised upload tasks.
type MissingDocumentMetadata struct {
	RequiredCategory string `json:"requiredCategory"`
	DaysSinceAdded   int    `json:"daysSinceAdded"`
}

// ManualMetadata accompanies manually created tasks.
type ManualMetadata struct {
	Note string `json:"note,omitempty"`
}

func (DocumentReviewMetadata) metadataType() Type       { return TypeDocumentReviewLowConfidence }
func (ForeclosureActionMetadata) metadataType() Type    { return TypeForeclosureActionScheduled }
func (CompletionReviewMetadata) metadataType() Type     { return TypeForeclosureCompletionReview }
func (PaymentInvestigationMetadata) metadataType() Type { return TypePaymentInvestigation }
func (ReinstatementMetadata) metadataType() Type        { return TypeLoanReinstatementReview }
func (MissingDocumentMetadata) metadataType() Type      { return TypeDocumentUploadRequired }
func (ManualMetadata) metadataType() Type               { return TypeGeneralFollowUp }

// DecodeMetadata unmarshals a stored metadata blob into the variant for the
// given task type.
func DecodeMetadata(taskType Type, raw []byte) (Metadata, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var meta Metadata
	switch taskType {
	case TypeDocumentReviewLowConfidence, TypeDocumentReviewCriticalConfidence:
		meta = &DocumentReviewMetadata{}
	case TypeForeclosureActionScheduled, TypeForeclosureActionUrgent:
		meta = &ForeclosureActionMetadata{}
	case TypeForeclosureCompletionReview:
		meta = &CompletionReviewMetadata{}
	case TypePaymentInvestigation:
		meta = &PaymentInvestigationMetadata{}
	case TypeLoanReinstatementReview:
		meta = &ReinstatementMetadata{}
	case TypeDocumentUploadRequired, TypeTitleReportUploadRequired:
		meta = &MissingDocumentMetadata{}
	case TypeGeneralFollowUp:
		meta = &ManualMetadata{}
	default:
		return nil, fmt.Errorf("unknown task type %q", taskType)
	}

	if err := json.Unmarshal(raw, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// Spec describes a task the classifier wants raised. The engine fills in
// identity, assignee, and timestamps.
type Spec struct {
	Type        Type
	Title       string
	Description string
	Priority    Priority
	LoanID      *string
	DocumentID  *uuid.UUID
	Metadata    Metadata
}

// Task is a persisted inbox work item.
type Task struct {
	ID          uuid.UUID       `json:"id"`
	Type        Type            `json:"taskType"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    Priority        `json:"priority"`
	Status      Status          `json:"status"`
	Source      Source          `json:"source"`
	LoanID      *string         `json:"loanId,omitempty"`
	DocumentID  *uuid.UUID      `json:"documentId,omitempty"`
	AssignedTo  *int64          `json:"assignedTo,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Notification is the delivery record tied to one task.
type Notification struct {
	ID        uuid.UUID  `json:"id"`
	TaskID    uuid.UUID  `json:"taskId"`
	UserID    int64      `json:"userId"`
	Message   string     `json:"message"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}
