package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateLoanRequest registers a loan with the platform.
type CreateLoanRequest struct {
	LoanID      string `json:"loanId" validate:"required,min=1,max=64"`
	State       string `json:"state" validate:"required,len=2,alpha"`
	LegalStatus string `json:"legalStatus" validate:"required,max=100"`
}

// IngestDocumentRequest is the request body for attaching a collateral
// document row to a loan. Confidence is the classifier's 0-100 score; absent
// means unscored.
type IngestDocumentRequest struct {
	DocumentType    string `json:"documentType" validate:"required,max=100"`
	FileName        string `json:"fileName" validate:"required,max=255"`
	ConfidenceScore *int   `json:"confidenceScore,omitempty" validate:"omitempty,min=0,max=100"`
}

// UpsertForeclosureRequest carries the full foreclosure case state. Date
// fields omitted leave the stored milestone dates untouched.
type UpsertForeclosureRequest struct {
	Jurisdiction         string     `json:"jurisdiction" validate:"required,max=50"`
	FCStatus             string     `json:"fcStatus" validate:"required,max=100"`
	FCStartDate          *time.Time `json:"fcStartDate,omitempty"`
	ReferralDate         *time.Time `json:"referralDate,omitempty"`
	ComplaintFiledDate   *time.Time `json:"complaintFiledDate,omitempty"`
	ServiceCompletedDate *time.Time `json:"serviceCompletedDate,omitempty"`
	JudgmentDate         *time.Time `json:"judgmentDate,omitempty"`
	NoticeOfDefaultDate  *time.Time `json:"noticeOfDefaultDate,omitempty"`
	NoticeOfSaleDate     *time.Time `json:"noticeOfSaleDate,omitempty"`
	SaleScheduledDate    *time.Time `json:"saleScheduledDate,omitempty"`
	SaleHeldDate         *time.Time `json:"saleHeldDate,omitempty"`
	RealEstateOwnedDate  *time.Time `json:"realEstateOwnedDate,omitempty"`
}

// PostPaymentRequest records a payment posting from the servicing feed.
type PostPaymentRequest struct {
	LastPaymentReceivedDate *time.Time `json:"lastPaymentReceivedDate" validate:"required"`
	NextPaymentDueDate      *time.Time `json:"nextPaymentDueDate,omitempty"`
}

// UpdateLegalStatusRequest transitions the loan's legal status.
type UpdateLegalStatusRequest struct {
	LegalStatus string `json:"legalStatus" validate:"required,max=100"`
}

// DocumentResponse is the ingestion result: the stored document plus the id
// of the review task it raised, if any.
type DocumentResponse struct {
	ID              uuid.UUID  `json:"id"`
	LoanID          string     `json:"loanId"`
	DocumentType    string     `json:"documentType"`
	FileName        string     `json:"fileName"`
	ConfidenceScore *int       `json:"confidenceScore,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	RaisedTaskID    *uuid.UUID `json:"raisedTaskId,omitempty"`
}

// MutationResponse reports a write-path mutation and the task it raised.
type MutationResponse struct {
	LoanID       string     `json:"loanId"`
	RaisedTaskID *uuid.UUID `json:"raisedTaskId,omitempty"`
}

// StepVarianceResponse is one completed milestone in the risk breakdown.
type StepVarianceResponse struct {
	Milestone     string    `json:"milestone"`
	PreferredDays int       `json:"preferredDays"`
	ActualDays    int       `json:"actualDays"`
	Variance      int       `json:"variance"`
	CompletedOn   time.Time `json:"completedOn"`
}

// TimelineRiskResponse is the schedule-risk classification for one loan.
type TimelineRiskResponse struct {
	LoanID             string                 `json:"loanId"`
	Risk               string                 `json:"risk"`
	JurisdictionType   string                 `json:"jurisdictionType,omitempty"`
	CumulativeVariance int                    `json:"cumulativeVariance"`
	Steps              []StepVarianceResponse `json:"steps,omitempty"`
}
