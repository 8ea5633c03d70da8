package tasks

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Classification thresholds. Each rule that does not meet its threshold
// returns no task; that is the "don't flood the inbox" policy, not a gap.
const (
	criticalConfidenceBelow = 50
	reviewConfidenceBelow   = 70

	urgentSaleWithinDays    = 7
	scheduledSaleWithinDays = 30

	delinquencyMonthsOver = 6
)

// DocumentIngestedInput describes a collateral document insert.
type DocumentIngestedInput struct {
	LoanID          string
	DocumentID      uuid.UUID
	FileName        string
	DocumentType    string
	ConfidenceScore *int // nil means the classifier did not score it
}

// ClassifyDocumentIngested maps a document insert to a review task.
// An unscored document is treated as fully confident and raises nothing.
func ClassifyDocumentIngested(in DocumentIngestedInput) (Spec, bool) {
	confidence := 100
	if in.ConfidenceScore != nil {
		confidence = *in.ConfidenceScore
	}
	if confidence >= reviewConfidenceBelow {
		return Spec{}, false
	}

	meta := DocumentReviewMetadata{
		FileName:        in.FileName,
		DocumentType:    in.DocumentType,
		ConfidenceScore: confidence,
	}

	loanID := in.LoanID
	docID := in.DocumentID

	if confidence < criticalConfidenceBelow {
		return Spec{
			Type:     TypeDocumentReviewCriticalConfidence,
			Title:    fmt.Sprintf("Critical review: %s", in.FileName),
			Description: fmt.Sprintf(
				"Document %q on loan %s was classified with %d%% confidence. Verify the document type before relying on it.",
				in.FileName, in.LoanID, confidence),
			Priority:   PriorityCritical,
			LoanID:     &loanID,
			DocumentID: &docID,
			Metadata:   meta,
		}, true
	}

	return Spec{
		Type:  TypeDocumentReviewLowConfidence,
		Title: fmt.Sprintf("Review classification: %s", in.FileName),
		Description: fmt.Sprintf(
			"Document %q on loan %s was classified with %d%% confidence, below the review threshold.",
			in.FileName, in.LoanID, confidence),
		Priority:   PriorityHigh,
		LoanID:     &loanID,
		DocumentID: &docID,
		Metadata:   meta,
	}, true
}

// ForeclosureChangeInput describes a foreclosure case insert or update after
// change detection: the caller only invokes classification when at least one
// of status, sale scheduled, sale held, or REO date actually changed.
type ForeclosureChangeInput struct {
	LoanID            string
	FCStatus          string
	SaleScheduledDate *time.Time
	SaleHeldDate      *time.Time
	REODate           *time.Time
}

// ClassifyForeclosureChange maps a foreclosure case change to an action task.
func ClassifyForeclosureChange(in ForeclosureChangeInput, today time.Time) (Spec, bool) {
	loanID := in.LoanID

	if in.SaleScheduledDate != nil && in.SaleHeldDate == nil {
		daysUntil := wholeDays(dateOnly(today), dateOnly(*in.SaleScheduledDate))
		if daysUntil > scheduledSaleWithinDays {
			return Spec{}, false
		}

		meta := ForeclosureActionMetadata{
			SaleScheduledDate: dateOnly(*in.SaleScheduledDate),
			DaysUntilSale:     daysUntil,
			FCStatus:          in.FCStatus,
		}

		if daysUntil <= urgentSaleWithinDays {
			return Spec{
				Type:  TypeForeclosureActionUrgent,
				Title: fmt.Sprintf("Urgent: foreclosure sale for loan %s", in.LoanID),
				Description: fmt.Sprintf(
					"Foreclosure sale for loan %s is scheduled on %s (%d days out). Confirm bidding instructions and sale readiness now.",
					in.LoanID, in.SaleScheduledDate.Format("2006-01-02"), daysUntil),
				Priority: PriorityCritical,
				LoanID:   &loanID,
				Metadata: meta,
			}, true
		}

		return Spec{
			Type:  TypeForeclosureActionScheduled,
			Title: fmt.Sprintf("Upcoming foreclosure sale for loan %s", in.LoanID),
			Description: fmt.Sprintf(
				"Foreclosure sale for loan %s is scheduled on %s (%d days out). Prepare sale documentation.",
				in.LoanID, in.SaleScheduledDate.Format("2006-01-02"), daysUntil),
			Priority: PriorityHigh,
			LoanID:   &loanID,
			Metadata: meta,
		}, true
	}

	if in.SaleHeldDate != nil || in.REODate != nil {
		var parts []string
		if in.SaleHeldDate != nil {
			parts = append(parts, fmt.Sprintf("sale held on %s", in.SaleHeldDate.Format("2006-01-02")))
		}
		if in.REODate != nil {
			parts = append(parts, fmt.Sprintf("REO as of %s", in.REODate.Format("2006-01-02")))
		}

		return Spec{
			Type:  TypeForeclosureCompletionReview,
			Title: fmt.Sprintf("Review foreclosure completion for loan %s", in.LoanID),
			Description: fmt.Sprintf(
				"Foreclosure on loan %s has progressed to completion (%s). Review post-sale status and next steps.",
				in.LoanID, strings.Join(parts, ", ")),
			Priority: PriorityMedium,
			LoanID:   &loanID,
			Metadata: CompletionReviewMetadata{SaleHeldDate: in.SaleHeldDate, REODate: in.REODate},
		}, true
	}

	return Spec{}, false
}

// PaymentChangeInput describes a payment field update. The rule only fires
// when the last-payment-received date actually changed to a non-null value.
type PaymentChangeInput struct {
	LoanID              string
	PreviousLastPayment *time.Time
	NewLastPayment      *time.Time
	NextPaymentDue      *time.Time
}

// ClassifyPaymentChange maps a payment posting to an investigation task when
// the loan is deeply delinquent: a payment arriving on a loan more than six
// months past due is unusual enough to warrant a look.
func ClassifyPaymentChange(in PaymentChangeInput, today time.Time) (Spec, bool) {
	if in.NewLastPayment == nil {
		return Spec{}, false
	}
	if in.PreviousLastPayment != nil && in.PreviousLastPayment.Equal(*in.NewLastPayment) {
		return Spec{}, false
	}
	if in.NextPaymentDue == nil {
		return Spec{}, false
	}

	months := wholeMonths(dateOnly(*in.NextPaymentDue), dateOnly(today))
	if months <= delinquencyMonthsOver {
		return Spec{}, false
	}

	loanID := in.LoanID
	return Spec{
		Type:  TypePaymentInvestigation,
		Title: fmt.Sprintf("Investigate payment activity on loan %s", in.LoanID),
		Description: fmt.Sprintf(
			"A payment was received on loan %s on %s, but the loan is %d months past its next due date (%s). Confirm how the funds should be applied.",
			in.LoanID, in.NewLastPayment.Format("2006-01-02"), months, in.NextPaymentDue.Format("2006-01-02")),
		Priority: PriorityMedium,
		LoanID:   &loanID,
		Metadata: PaymentInvestigationMetadata{
			LastPaymentDate:  dateOnly(*in.NewLastPayment),
			NextPaymentDue:   dateOnly(*in.NextPaymentDue),
			MonthsDelinquent: months,
		},
	}, true
}

// LegalStatusChangeInput describes a legal status field update with both the
// previous and new values.
type LegalStatusChangeInput struct {
	LoanID    string
	OldStatus string
	NewStatus string
}

// ClassifyLegalStatusChange raises a reinstatement review when a loan moves
// from a delinquent state to a performing one.
func ClassifyLegalStatusChange(in LegalStatusChangeInput) (Spec, bool) {
	old := strings.ToLower(in.OldStatus)
	if !strings.Contains(old, "delinquent") && !strings.Contains(old, "default") {
		return Spec{}, false
	}

	curr := strings.ToLower(in.NewStatus)
	if !strings.Contains(curr, "current") && !strings.Contains(curr, "performing") && !strings.Contains(curr, "reinstate") {
		return Spec{}, false
	}

	loanID := in.LoanID
	return Spec{
		Type:  TypeLoanReinstatementReview,
		Title: fmt.Sprintf("Possible reinstatement: loan %s", in.LoanID),
		Description: fmt.Sprintf(
			"Legal status on loan %s changed from %q to %q. Confirm reinstatement terms and update the servicing plan.",
			in.LoanID, in.OldStatus, in.NewStatus),
		Priority: PriorityHigh,
		LoanID:   &loanID,
		Metadata: ReinstatementMetadata{OldStatus: in.OldStatus, NewStatus: in.NewStatus},
	}, true
}

// MissingDocumentCategory names the required document category a sweep check
// found absent.
type MissingDocumentCategory string

const (
	CategorySecurityInstrument MissingDocumentCategory = "security_instrument"
	CategoryTitleReport        MissingDocumentCategory = "title_report"
)

// MissingDocumentInput describes one sweep finding for one loan.
type MissingDocumentInput struct {
	LoanID         string
	Category       MissingDocumentCategory
	DaysSinceAdded int
	GraceDays      int
}

// ClassifyMissingDocument raises an upload task once a loan has been on the
// books longer than the category's grace period with no matching document.
func ClassifyMissingDocument(in MissingDocumentInput) (Spec, bool) {
	if in.DaysSinceAdded <= in.GraceDays {
		return Spec{}, false
	}

	loanID := in.LoanID
	meta := MissingDocumentMetadata{
		RequiredCategory: string(in.Category),
		DaysSinceAdded:   in.DaysSinceAdded,
	}

	switch in.Category {
	case CategoryTitleReport:
		return Spec{
			Type:  TypeTitleReportUploadRequired,
			Title: fmt.Sprintf("Upload title report for loan %s", in.LoanID),
			Description: fmt.Sprintf(
				"Loan %s has been on the platform for %d days with no title report on file.",
				in.LoanID, in.DaysSinceAdded),
			Priority: PriorityMedium,
			LoanID:   &loanID,
			Metadata: meta,
		}, true
	case CategorySecurityInstrument:
		return Spec{
			Type:  TypeDocumentUploadRequired,
			Title: fmt.Sprintf("Upload security instrument for loan %s", in.LoanID),
			Description: fmt.Sprintf(
				"Loan %s has been on the platform for %d days with no mortgage, deed of trust, or other security instrument on file.",
				in.LoanID, in.DaysSinceAdded),
			Priority: PriorityMedium,
			LoanID:   &loanID,
			Metadata: meta,
		}, true
	}

	return Spec{}, false
}

// dateOnly normalizes a timestamp to a UTC calendar date.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// wholeDays returns the whole calendar days from a to b (negative if b < a).
func wholeDays(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}

// wholeMonths returns the whole months elapsed from a to b, counting a month
// only once the day-of-month has been reached.
func wholeMonths(a, b time.Time) int {
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day() {
		months--
	}
	return months
}
