package timeline

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func activeFLCase() CaseSnapshot {
	return CaseSnapshot{
		LegalStatus:  "Active",
		State:        "FL",
		Jurisdiction: "Judicial",
		FCStartDate:  date(2026, time.January, 1),
	}
}

func TestEvaluateUnknownWhenLegalStatusNotActiveOrHold(t *testing.T) {
	for _, status := range []string{"", "Liquidated", "closed", "REO"} {
		s := activeFLCase()
		s.LegalStatus = status
		if got := Evaluate(s); got.Risk != RiskUnknown {
			t.Fatalf("legal status %q: expected Unknown, got %s", status, got.Risk)
		}
	}

	for _, status := range []string{"Active", "ACTIVE", " hold "} {
		s := activeFLCase()
		s.LegalStatus = status
		if got := Evaluate(s); got.Risk == RiskUnknown {
			t.Fatalf("legal status %q: expected a classification, got Unknown", status)
		}
	}
}

func TestEvaluateUnknownWhenPreconditionsMissing(t *testing.T) {
	cases := map[string]func(*CaseSnapshot){
		"missing state":        func(s *CaseSnapshot) { s.State = "" },
		"missing jurisdiction": func(s *CaseSnapshot) { s.Jurisdiction = "" },
		"missing start date":   func(s *CaseSnapshot) { s.FCStartDate = nil },
		"no benchmark state":   func(s *CaseSnapshot) { s.State = "ZZ" },
	}

	for name, mutate := range cases {
		s := activeFLCase()
		mutate(&s)
		if got := Evaluate(s); got.Risk != RiskUnknown {
			t.Fatalf("%s: expected Unknown, got %s", name, got.Risk)
		}
	}
}

func TestEvaluateUnknownWhenTrackHasNoMilestones(t *testing.T) {
	// FL carries no non-judicial milestone list.
	s := activeFLCase()
	s.Jurisdiction = "Non-Judicial"
	if got := Evaluate(s); got.Risk != RiskUnknown {
		t.Fatalf("expected Unknown for empty milestone list, got %s", got.Risk)
	}
}

func TestEvaluateOnTrackNeverOverdueWhenAllStepsOnTime(t *testing.T) {
	// FL judicial preferred days: 15, 30, 60, 120, 45, 30.
	s := activeFLCase()
	s.ReferralDate = date(2026, time.January, 16)          // 15 days
	s.ComplaintFiledDate = date(2026, time.February, 10)   // 25 days (preferred 30)
	s.ServiceCompletedDate = date(2026, time.April, 11)    // 60 days

	eval := Evaluate(s)
	if eval.Risk != RiskOnTrack {
		t.Fatalf("expected On Track, got %s (cumulative %d)", eval.Risk, eval.CumulativeVariance)
	}
	if eval.CumulativeVariance != -5 {
		t.Fatalf("expected cumulative variance -5, got %d", eval.CumulativeVariance)
	}
	if len(eval.Steps) != 3 {
		t.Fatalf("expected 3 completed steps, got %d", len(eval.Steps))
	}
}

func TestEvaluateOverdueWhenCumulativeVariancePositive(t *testing.T) {
	// One slow step outweighing an early one.
	s := activeFLCase()
	s.ReferralDate = date(2026, time.January, 11)        // 10 days, variance -5
	s.ComplaintFiledDate = date(2026, time.February, 20) // 40 days, variance +10

	eval := Evaluate(s)
	if eval.Risk != RiskOverdue {
		t.Fatalf("expected Overdue, got %s", eval.Risk)
	}
	if eval.CumulativeVariance != 5 {
		t.Fatalf("expected cumulative variance 5, got %d", eval.CumulativeVariance)
	}
}

func TestEvaluateZeroVarianceIsOnTrack(t *testing.T) {
	s := activeFLCase()
	s.ReferralDate = date(2026, time.January, 16) // exactly 15 days

	eval := Evaluate(s)
	if eval.Risk != RiskOnTrack {
		t.Fatalf("variance 0 must classify On Track, got %s", eval.Risk)
	}
}

func TestEvaluateStopsAtFirstGap(t *testing.T) {
	// Complaint date missing: the late service date past the gap must be
	// ignored, no look-ahead.
	s := activeFLCase()
	s.ReferralDate = date(2026, time.January, 16)
	s.ServiceCompletedDate = date(2026, time.December, 31)

	eval := Evaluate(s)
	if len(eval.Steps) != 1 {
		t.Fatalf("expected walk to stop at first gap, got %d steps", len(eval.Steps))
	}
	if eval.Risk != RiskOnTrack {
		t.Fatalf("expected On Track, got %s", eval.Risk)
	}
}

func TestEvaluateIgnoresTimeOfDay(t *testing.T) {
	// 23:59 on day 16 is still 15 whole calendar days after midnight day 1.
	s := activeFLCase()
	late := time.Date(2026, time.January, 16, 23, 59, 0, 0, time.UTC)
	s.ReferralDate = &late

	eval := Evaluate(s)
	if eval.Risk != RiskOnTrack {
		t.Fatalf("time-of-day must not push the step over, got %s", eval.Risk)
	}
	if eval.Steps[0].ActualDays != 15 {
		t.Fatalf("expected 15 whole days, got %d", eval.Steps[0].ActualDays)
	}
}

func TestEvaluateNonJudicialTrackSelection(t *testing.T) {
	s := CaseSnapshot{
		LegalStatus:         "Active",
		State:               "CA",
		Jurisdiction:        "NON-JUDICIAL",
		FCStartDate:         date(2026, time.January, 1),
		NoticeOfDefaultDate: date(2026, time.March, 1),
	}
	// CA non-judicial: referral first. Referral missing, so the walk stops
	// before the notice of default.
	eval := Evaluate(s)
	if len(eval.Steps) != 0 {
		t.Fatalf("expected no completed steps before gap, got %d", len(eval.Steps))
	}

	s.ReferralDate = date(2026, time.January, 10)
	eval = Evaluate(s)
	if eval.JurisdictionType != NonJudicial {
		t.Fatalf("expected non-judicial track, got %s", eval.JurisdictionType)
	}
	if len(eval.Steps) != 2 {
		t.Fatalf("expected 2 completed steps, got %d", len(eval.Steps))
	}
}

func TestJurisdictionTypeOf(t *testing.T) {
	cases := map[string]JurisdictionType{
		"Judicial":          Judicial,
		"NON-JUDICIAL":      NonJudicial,
		"non judicial":      NonJudicial,
		"Power of Sale/Non": NonJudicial,
		"unknown":           Judicial,
	}
	for in, want := range cases {
		if got := JurisdictionTypeOf(in); got != want {
			t.Fatalf("JurisdictionTypeOf(%q) = %s, want %s", in, got, want)
		}
	}
}
