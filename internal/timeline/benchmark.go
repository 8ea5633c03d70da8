// Package timeline computes the schedule-risk classification for active
// foreclosures by comparing actual milestone completion dates against
// state-specific benchmark durations.
package timeline

import "strings"

// JurisdictionType distinguishes the two procedural foreclosure tracks.
type JurisdictionType string

const (
	Judicial    JurisdictionType = "judicial"
	NonJudicial JurisdictionType = "non_judicial"
)

// MilestoneStep is one expected step in a foreclosure timeline.
// SourceField names the case snapshot field holding the actual completion date.
type MilestoneStep struct {
	Name          string
	PreferredDays int
	SourceField   string
}

// Benchmark holds the expected milestone sequences for one state.
// A state that does not support a track has an empty list for it.
type Benchmark struct {
	State       string
	Judicial    []MilestoneStep
	NonJudicial []MilestoneStep
}

// Steps returns the milestone list for the given track.
func (b Benchmark) Steps(jt JurisdictionType) []MilestoneStep {
	if jt == NonJudicial {
		return b.NonJudicial
	}
	return b.Judicial
}

func judicialSteps(firstLegal, service, judgment, saleSched, saleHeld int) []MilestoneStep {
	return []MilestoneStep{
		{Name: "referral", PreferredDays: 15, SourceField: FieldReferralDate},
		{Name: "first_legal_filed", PreferredDays: firstLegal, SourceField: FieldComplaintFiledDate},
		{Name: "service_completed", PreferredDays: service, SourceField: FieldServiceCompletedDate},
		{Name: "judgment_entered", PreferredDays: judgment, SourceField: FieldJudgmentDate},
		{Name: "sale_scheduled", PreferredDays: saleSched, SourceField: FieldSaleScheduledDate},
		{Name: "sale_held", PreferredDays: saleHeld, SourceField: FieldSaleHeldDate},
	}
}

func nonJudicialSteps(nod, nos, saleHeld int) []MilestoneStep {
	return []MilestoneStep{
		{Name: "referral", PreferredDays: 15, SourceField: FieldReferralDate},
		{Name: "notice_of_default", PreferredDays: nod, SourceField: FieldNoticeOfDefaultDate},
		{Name: "notice_of_sale", PreferredDays: nos, SourceField: FieldNoticeOfSaleDate},
		{Name: "sale_held", PreferredDays: saleHeld, SourceField: FieldSaleHeldDate},
	}
}

// benchmarks is static reference data keyed by two-letter state code.
// Day counts reflect typical uncontested timelines per track; they are
// versioned with the binary, not stored in the database.
var benchmarks = map[string]Benchmark{
	// Judicial states
	"NY": {State: "NY", Judicial: judicialSteps(45, 90, 210, 60, 45)},
	"NJ": {State: "NJ", Judicial: judicialSteps(45, 75, 180, 60, 45)},
	"FL": {State: "FL", Judicial: judicialSteps(30, 60, 120, 45, 30)},
	"IL": {State: "IL", Judicial: judicialSteps(30, 60, 150, 45, 30)},
	"OH": {State: "OH", Judicial: judicialSteps(30, 60, 120, 45, 30)},
	"PA": {State: "PA", Judicial: judicialSteps(30, 75, 150, 45, 30)},
	"CT": {State: "CT", Judicial: judicialSteps(45, 75, 180, 60, 45)},
	"IN": {State: "IN", Judicial: judicialSteps(30, 60, 120, 45, 30)},

	// Non-judicial states
	"CA": {State: "CA", NonJudicial: nonJudicialSteps(30, 90, 25)},
	"TX": {State: "TX", NonJudicial: nonJudicialSteps(30, 60, 25)},
	"GA": {State: "GA", NonJudicial: nonJudicialSteps(30, 45, 25)},
	"AZ": {State: "AZ", NonJudicial: nonJudicialSteps(30, 90, 25)},
	"NV": {State: "NV", NonJudicial: nonJudicialSteps(30, 90, 25)},
	"TN": {State: "TN", NonJudicial: nonJudicialSteps(30, 45, 25)},
	"MO": {State: "MO", NonJudicial: nonJudicialSteps(30, 45, 25)},
	"VA": {State: "VA", NonJudicial: nonJudicialSteps(30, 45, 25)},

	// States with both tracks keep separate day counts per track.
	"OK": {
		State:       "OK",
		Judicial:    judicialSteps(30, 60, 120, 45, 30),
		NonJudicial: nonJudicialSteps(30, 60, 25),
	},
	"WI": {
		State:       "WI",
		Judicial:    judicialSteps(30, 60, 150, 45, 30),
		NonJudicial: nonJudicialSteps(30, 60, 25),
	},
}

// LookupBenchmark returns the benchmark for a state code, if one exists.
func LookupBenchmark(state string) (Benchmark, bool) {
	b, ok := benchmarks[strings.ToUpper(strings.TrimSpace(state))]
	return b, ok
}

// JurisdictionTypeOf maps a free-form jurisdiction string onto a track.
// Jurisdiction strings containing "non" (any case) select the non-judicial
// list; everything else selects judicial.
func JurisdictionTypeOf(jurisdiction string) JurisdictionType {
	if strings.Contains(strings.ToLower(jurisdiction), "non") {
		return NonJudicial
	}
	return Judicial
}
