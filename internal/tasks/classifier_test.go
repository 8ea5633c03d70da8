package tasks

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

var today = time.Date(2026, time.June, 15, 10, 30, 0, 0, time.UTC)

func intPtr(n int) *int { return &n }

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestClassifyDocumentIngestedConfidenceBoundaries(t *testing.T) {
	cases := []struct {
		confidence *int
		wantType   Type
		wantRaise  bool
	}{
		{intPtr(49), TypeDocumentReviewCriticalConfidence, true},
		{intPtr(50), TypeDocumentReviewLowConfidence, true},
		{intPtr(69), TypeDocumentReviewLowConfidence, true},
		{intPtr(70), "", false},
		{intPtr(0), TypeDocumentReviewCriticalConfidence, true},
		{nil, "", false}, // unscored defaults to 100
	}

	for _, tc := range cases {
		spec, ok := ClassifyDocumentIngested(DocumentIngestedInput{
			LoanID:          "L100",
			DocumentID:      uuid.New(),
			FileName:        "Deed.pdf",
			ConfidenceScore: tc.confidence,
		})
		if ok != tc.wantRaise {
			t.Fatalf("confidence %v: raise = %v, want %v", tc.confidence, ok, tc.wantRaise)
		}
		if ok && spec.Type != tc.wantType {
			t.Fatalf("confidence %v: type = %s, want %s", tc.confidence, spec.Type, tc.wantType)
		}
	}
}

func TestClassifyDocumentIngestedCriticalScenario(t *testing.T) {
	docID := uuid.New()
	spec, ok := ClassifyDocumentIngested(DocumentIngestedInput{
		LoanID:          "L100",
		DocumentID:      docID,
		FileName:        "Deed.pdf",
		ConfidenceScore: intPtr(45),
	})
	if !ok {
		t.Fatal("expected a task for confidence 45")
	}
	if spec.Type != TypeDocumentReviewCriticalConfidence {
		t.Fatalf("type = %s", spec.Type)
	}
	if spec.Priority != PriorityCritical {
		t.Fatalf("priority = %s, want critical", spec.Priority)
	}
	if spec.LoanID == nil || *spec.LoanID != "L100" {
		t.Fatalf("loan id = %v", spec.LoanID)
	}
	if spec.DocumentID == nil || *spec.DocumentID != docID {
		t.Fatalf("document id = %v", spec.DocumentID)
	}
	meta, isDoc := spec.Metadata.(DocumentReviewMetadata)
	if !isDoc || meta.FileName != "Deed.pdf" || meta.ConfidenceScore != 45 {
		t.Fatalf("metadata = %#v", spec.Metadata)
	}
}

func TestClassifyForeclosureChangeSaleBoundaries(t *testing.T) {
	cases := []struct {
		daysOut   int
		wantType  Type
		wantRaise bool
	}{
		{0, TypeForeclosureActionUrgent, true},
		{7, TypeForeclosureActionUrgent, true},
		{8, TypeForeclosureActionScheduled, true},
		{30, TypeForeclosureActionScheduled, true},
		{31, "", false},
	}

	for _, tc := range cases {
		sale := today.AddDate(0, 0, tc.daysOut)
		spec, ok := ClassifyForeclosureChange(ForeclosureChangeInput{
			LoanID:            "L200",
			SaleScheduledDate: &sale,
		}, today)
		if ok != tc.wantRaise {
			t.Fatalf("%d days out: raise = %v, want %v", tc.daysOut, ok, tc.wantRaise)
		}
		if !ok {
			continue
		}
		if spec.Type != tc.wantType {
			t.Fatalf("%d days out: type = %s, want %s", tc.daysOut, spec.Type, tc.wantType)
		}
		meta := spec.Metadata.(ForeclosureActionMetadata)
		if meta.DaysUntilSale != tc.daysOut {
			t.Fatalf("%d days out: metadata days = %d", tc.daysOut, meta.DaysUntilSale)
		}
	}
}

func TestClassifyForeclosureChangeCompletionReview(t *testing.T) {
	sale := today.AddDate(0, 0, 5)
	held := today.AddDate(0, 0, -3)

	// A held sale suppresses the urgent path even with a scheduled date.
	spec, ok := ClassifyForeclosureChange(ForeclosureChangeInput{
		LoanID:            "L201",
		SaleScheduledDate: &sale,
		SaleHeldDate:      &held,
	}, today)
	if !ok {
		t.Fatal("expected completion review task")
	}
	if spec.Type != TypeForeclosureCompletionReview || spec.Priority != PriorityMedium {
		t.Fatalf("type = %s, priority = %s", spec.Type, spec.Priority)
	}

	// REO alone also triggers completion review.
	reo := today.AddDate(0, 0, -1)
	spec, ok = ClassifyForeclosureChange(ForeclosureChangeInput{
		LoanID:  "L202",
		REODate: &reo,
	}, today)
	if !ok || spec.Type != TypeForeclosureCompletionReview {
		t.Fatalf("REO-only change: ok=%v type=%s", ok, spec.Type)
	}

	// No sale data at all raises nothing.
	if _, ok := ClassifyForeclosureChange(ForeclosureChangeInput{LoanID: "L203"}, today); ok {
		t.Fatal("expected no task without sale fields")
	}
}

func TestClassifyPaymentChangeDelinquencyBoundaries(t *testing.T) {
	lastPayment := datePtr(2026, time.June, 10)

	cases := []struct {
		monthsPastDue int
		wantRaise     bool
	}{
		{5, false},
		{6, false},
		{7, true},
		{12, true},
	}

	for _, tc := range cases {
		due := today.AddDate(0, -tc.monthsPastDue, 0)
		spec, ok := ClassifyPaymentChange(PaymentChangeInput{
			LoanID:         "L300",
			NewLastPayment: lastPayment,
			NextPaymentDue: &due,
		}, today)
		if ok != tc.wantRaise {
			t.Fatalf("%d months past due: raise = %v, want %v", tc.monthsPastDue, ok, tc.wantRaise)
		}
		if ok {
			meta := spec.Metadata.(PaymentInvestigationMetadata)
			if meta.MonthsDelinquent != tc.monthsPastDue {
				t.Fatalf("metadata months = %d, want %d", meta.MonthsDelinquent, tc.monthsPastDue)
			}
		}
	}
}

func TestClassifyPaymentChangeOnlyFiresOnActualChange(t *testing.T) {
	due := today.AddDate(0, -12, 0)
	payment := datePtr(2026, time.June, 10)

	// Unchanged last payment date: no task.
	if _, ok := ClassifyPaymentChange(PaymentChangeInput{
		LoanID:              "L300",
		PreviousLastPayment: payment,
		NewLastPayment:      payment,
		NextPaymentDue:      &due,
	}, today); ok {
		t.Fatal("unchanged payment date must not fire")
	}

	// Cleared to null: no task.
	if _, ok := ClassifyPaymentChange(PaymentChangeInput{
		LoanID:              "L300",
		PreviousLastPayment: payment,
		NewLastPayment:      nil,
		NextPaymentDue:      &due,
	}, today); ok {
		t.Fatal("nulled payment date must not fire")
	}

	// Missing next due date: nothing to measure against.
	if _, ok := ClassifyPaymentChange(PaymentChangeInput{
		LoanID:         "L300",
		NewLastPayment: payment,
	}, today); ok {
		t.Fatal("missing next due date must not fire")
	}
}

func TestClassifyLegalStatusChangeReinstatement(t *testing.T) {
	spec, ok := ClassifyLegalStatusChange(LegalStatusChangeInput{
		LoanID:    "L200",
		OldStatus: "Delinquent 90",
		NewStatus: "Current",
	})
	if !ok {
		t.Fatal("expected reinstatement task")
	}
	if spec.Type != TypeLoanReinstatementReview || spec.Priority != PriorityHigh {
		t.Fatalf("type = %s, priority = %s", spec.Type, spec.Priority)
	}
	meta := spec.Metadata.(ReinstatementMetadata)
	if meta.OldStatus != "Delinquent 90" || meta.NewStatus != "Current" {
		t.Fatalf("metadata = %#v", meta)
	}
}

func TestClassifyLegalStatusChangeNonMatches(t *testing.T) {
	cases := []LegalStatusChangeInput{
		{OldStatus: "Current", NewStatus: "Delinquent 30"},   // wrong direction
		{OldStatus: "Active", NewStatus: "Current"},          // old not delinquent
		{OldStatus: "In Default", NewStatus: "Liquidated"},   // new not performing
		{OldStatus: "", NewStatus: "Current"},
	}
	for _, in := range cases {
		in.LoanID = "L200"
		if _, ok := ClassifyLegalStatusChange(in); ok {
			t.Fatalf("%q -> %q must not fire", in.OldStatus, in.NewStatus)
		}
	}

	// Substring matching is case-insensitive on both sides.
	if _, ok := ClassifyLegalStatusChange(LegalStatusChangeInput{
		LoanID:    "L200",
		OldStatus: "IN DEFAULT",
		NewStatus: "Reinstated",
	}); !ok {
		t.Fatal("expected case-insensitive substring match to fire")
	}
}

func TestClassifyMissingDocumentGraceBoundaries(t *testing.T) {
	// Exactly at the grace period is still inside it.
	if _, ok := ClassifyMissingDocument(MissingDocumentInput{
		LoanID:         "L400",
		Category:       CategorySecurityInstrument,
		DaysSinceAdded: 7,
		GraceDays:      7,
	}); ok {
		t.Fatal("day 7 must not fire the security instrument check")
	}

	spec, ok := ClassifyMissingDocument(MissingDocumentInput{
		LoanID:         "L400",
		Category:       CategorySecurityInstrument,
		DaysSinceAdded: 8,
		GraceDays:      7,
	})
	if !ok || spec.Type != TypeDocumentUploadRequired {
		t.Fatalf("day 8: ok=%v type=%s", ok, spec.Type)
	}

	spec, ok = ClassifyMissingDocument(MissingDocumentInput{
		LoanID:         "L400",
		Category:       CategoryTitleReport,
		DaysSinceAdded: 15,
		GraceDays:      14,
	})
	if !ok || spec.Type != TypeTitleReportUploadRequired {
		t.Fatalf("title report day 15: ok=%v type=%s", ok, spec.Type)
	}
	if spec.Priority != PriorityMedium {
		t.Fatalf("priority = %s, want medium", spec.Priority)
	}
}

func TestWholeMonths(t *testing.T) {
	cases := []struct {
		from, to time.Time
		want     int
	}{
		{time.Date(2025, time.December, 15, 0, 0, 0, 0, time.UTC), today, 6},
		{time.Date(2025, time.December, 16, 0, 0, 0, 0, time.UTC), today, 5},
		{time.Date(2025, time.November, 15, 0, 0, 0, 0, time.UTC), today, 7},
		{time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC), today, 0},
	}
	for _, tc := range cases {
		if got := wholeMonths(tc.from, tc.to); got != tc.want {
			t.Fatalf("wholeMonths(%s, %s) = %d, want %d", tc.from.Format("2006-01-02"), tc.to.Format("2006-01-02"), got, tc.want)
		}
	}
}
