package timeline

import (
	"strings"
	"time"
)

// Risk is the schedule classification for one foreclosure.
type Risk string

const (
	RiskOnTrack Risk = "On Track"
	RiskOverdue Risk = "Overdue"
	RiskUnknown Risk = "Unknown"
)

// Snapshot field names referenced by MilestoneStep.SourceField.
const (
	FieldReferralDate         = "referral_date"
	FieldComplaintFiledDate   = "complaint_filed_date"
	FieldServiceCompletedDate = "service_completed_date"
	FieldJudgmentDate         = "judgment_date"
	FieldNoticeOfDefaultDate  = "notice_of_default_date"
	FieldNoticeOfSaleDate     = "notice_of_sale_date"
	FieldSaleScheduledDate    = "sale_scheduled_date"
	FieldSaleHeldDate         = "sale_held_date"
)

// CaseSnapshot is the read-only view of a loan's foreclosure state that the
// evaluator consumes. Nil dates mean the milestone has not completed.
type CaseSnapshot struct {
	LegalStatus  string
	State        string
	Jurisdiction string
	FCStartDate  *time.Time

	ReferralDate         *time.Time
	ComplaintFiledDate   *time.Time
	ServiceCompletedDate *time.Time
	JudgmentDate         *time.Time
	NoticeOfDefaultDate  *time.Time
	NoticeOfSaleDate     *time.Time
	SaleScheduledDate    *time.Time
	SaleHeldDate         *time.Time
}

func (s CaseSnapshot) actualDate(field string) *time.Time {
	switch field {
	case FieldReferralDate:
		return s.ReferralDate
	case FieldComplaintFiledDate:
		return s.ComplaintFiledDate
	case FieldServiceCompletedDate:
		return s.ServiceCompletedDate
	case FieldJudgmentDate:
		return s.JudgmentDate
	case FieldNoticeOfDefaultDate:
		return s.NoticeOfDefaultDate
	case FieldNoticeOfSaleDate:
		return s.NoticeOfSaleDate
	case FieldSaleScheduledDate:
		return s.SaleScheduledDate
	case FieldSaleHeldDate:
		return s.SaleHeldDate
	}
	return nil
}

// StepVariance is the per-milestone breakdown included in an Evaluation.
type StepVariance struct {
	Milestone     string    `json:"milestone"`
	PreferredDays int       `json:"preferredDays"`
	ActualDays    int       `json:"actualDays"`
	Variance      int       `json:"variance"`
	CompletedOn   time.Time `json:"completedOn"`
}

// Evaluation is the result of classifying one foreclosure timeline.
type Evaluation struct {
	Risk               Risk             `json:"risk"`
	JurisdictionType   JurisdictionType `json:"jurisdictionType,omitempty"`
	CumulativeVariance int              `json:"cumulativeVariance"`
	Steps              []StepVariance   `json:"steps,omitempty"`
}

var unknown = Evaluation{Risk: RiskUnknown}

// Evaluate classifies one loan's foreclosure schedule.
//
// The walk is strictly sequential: each completed milestone's elapsed days are
// measured from the previous completed milestone (starting at fc_start_date)
// and compared against the benchmark's preferred days; the walk stops at the
// first milestone with no recorded date. A positive cumulative variance means
// the case is behind schedule.
//
// Every missing precondition degrades to RiskUnknown. This is a best-effort
// display classification, never an error.
func Evaluate(s CaseSnapshot) Evaluation {
	status := strings.ToUpper(strings.TrimSpace(s.LegalStatus))
	if status != "ACTIVE" && status != "HOLD" {
		return unknown
	}
	if strings.TrimSpace(s.State) == "" || strings.TrimSpace(s.Jurisdiction) == "" || s.FCStartDate == nil {
		return unknown
	}

	bench, ok := LookupBenchmark(s.State)
	if !ok {
		return unknown
	}

	jt := JurisdictionTypeOf(s.Jurisdiction)
	steps := bench.Steps(jt)
	if len(steps) == 0 {
		return unknown
	}

	eval := Evaluation{Risk: RiskOnTrack, JurisdictionType: jt}
	cursor := dateOnly(*s.FCStartDate)

	for _, step := range steps {
		actual := s.actualDate(step.SourceField)
		if actual == nil {
			break
		}

		completed := dateOnly(*actual)
		actualDays := wholeDays(cursor, completed)
		variance := actualDays - step.PreferredDays
		eval.CumulativeVariance += variance
		eval.Steps = append(eval.Steps, StepVariance{
			Milestone:     step.Name,
			PreferredDays: step.PreferredDays,
			ActualDays:    actualDays,
			Variance:      variance,
			CompletedOn:   completed,
		})
		cursor = completed
	}

	if eval.CumulativeVariance > 0 {
		eval.Risk = RiskOverdue
	}
	return eval
}

// dateOnly normalizes a timestamp to a UTC calendar date. Day differences are
// always computed on calendar dates, never raw timestamp deltas, so
// time-of-day and zone offsets cannot introduce off-by-one errors.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// wholeDays returns the whole calendar days from a to b (negative if b < a).
func wholeDays(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}
