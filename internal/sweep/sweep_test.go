package sweep

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"nplvision_backend/internal/loans/repository"
	"nplvision_backend/internal/tasks"
	"nplvision_backend/platform/db"
	"nplvision_backend/platform/logger"
)

type fakeLoanSource struct {
	loans   []repository.SweepLoan
	listErr error

	mu sync.Mutex
	// docs maps loanID -> stored document types
	docs    map[string][]string
	lookErr map[string]error
}

func (f *fakeLoanSource) ListForSweep(context.Context) ([]repository.SweepLoan, error) {
	return f.loans, f.listErr
}

func (f *fakeLoanSource) HasDocumentMatching(_ context.Context, loanID string, subs []string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.lookErr[loanID]; err != nil {
		return false, err
	}
	for _, docType := range f.docs[loanID] {
		for _, sub := range subs {
			if strings.Contains(strings.ToLower(docType), strings.ToLower(sub)) {
				return true, nil
			}
		}
	}
	return false, nil
}

type fakeEngine struct {
	mu        sync.Mutex
	open      map[string]bool // loanID|type
	raiseErr  map[string]error
	raised    []tasks.Spec
	announced int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{open: make(map[string]bool), raiseErr: make(map[string]error)}
}

func (f *fakeEngine) RaiseSwept(_ context.Context, _ db.DBTX, spec tasks.Spec) (*tasks.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if spec.LoanID == nil {
		return nil, errors.New("sweep spec without loan")
	}
	key := *spec.LoanID + "|" + string(spec.Type)
	if err := f.raiseErr[key]; err != nil {
		return nil, err
	}
	if f.open[key] {
		return nil, nil
	}
	f.open[key] = true
	f.raised = append(f.raised, spec)
	return &tasks.Outcome{}, nil
}

func (f *fakeEngine) Announce(context.Context, *tasks.Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.announced++
}

type fakeTxRunner struct{}

func (fakeTxRunner) InTx(ctx context.Context, fn func(q db.DBTX) error) error {
	return fn(nil)
}

type sweepConfig struct {
	parallelism int
}

func (c sweepConfig) GetSweepInterval() time.Duration { return time.Hour }
func (c sweepConfig) GetSweepParallelism() int        { return c.parallelism }
func (c sweepConfig) GetSecurityInstrumentGraceDays() int {
	return 7
}
func (c sweepConfig) GetTitleReportGraceDays() int { return 14 }

func newTestSweeper(loans *fakeLoanSource, engine *fakeEngine, at time.Time) *Sweeper {
	s := New(loans, engine, fakeTxRunner{}, sweepConfig{parallelism: 2}, nil, logger.New("development"))
	s.now = func() time.Time { return at }
	return s
}

func daysAgo(ref time.Time, days int) time.Time {
	return ref.AddDate(0, 0, -days)
}

func TestSweepRaisesBothCategories(t *testing.T) {
	ref := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)
	loans := &fakeLoanSource{
		loans: []repository.SweepLoan{{LoanID: "L300", FirstObserved: daysAgo(ref, 20)}},
		docs:  map[string][]string{},
	}
	engine := newFakeEngine()

	result, err := newTestSweeper(loans, engine, ref).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.LoansScanned != 1 || result.TasksRaised != 2 || result.LoansFailed != 0 {
		t.Fatalf("result = %+v", result)
	}
	if engine.announced != 2 {
		t.Fatalf("announced = %d", engine.announced)
	}

	types := map[tasks.Type]bool{}
	for _, spec := range engine.raised {
		types[spec.Type] = true
	}
	if !types[tasks.TypeDocumentUploadRequired] || !types[tasks.TypeTitleReportUploadRequired] {
		t.Fatalf("raised types = %v", types)
	}
}

func TestSweepRespectsGracePeriods(t *testing.T) {
	ref := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)
	loans := &fakeLoanSource{
		loans: []repository.SweepLoan{
			{LoanID: "TOO_NEW", FirstObserved: daysAgo(ref, 7)},
			{LoanID: "PAST_SECURITY", FirstObserved: daysAgo(ref, 10)},
		},
		docs: map[string][]string{},
	}
	engine := newFakeEngine()

	result, err := newTestSweeper(loans, engine, ref).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	// TOO_NEW raises nothing; PAST_SECURITY is over the 7-day grace but under
	// the 14-day title grace.
	if result.TasksRaised != 1 {
		t.Fatalf("tasksRaised = %d", result.TasksRaised)
	}
	if engine.raised[0].Type != tasks.TypeDocumentUploadRequired {
		t.Fatalf("raised = %v", engine.raised[0].Type)
	}
	if loanOf(t, engine.raised[0]) != "PAST_SECURITY" {
		t.Fatalf("loan = %s", loanOf(t, engine.raised[0]))
	}
}

func TestSweepSkipsLoansWithDocuments(t *testing.T) {
	ref := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)
	loans := &fakeLoanSource{
		loans: []repository.SweepLoan{{LoanID: "L300", FirstObserved: daysAgo(ref, 30)}},
		docs: map[string][]string{
			"L300": {"Deed of Trust", "Preliminary Title Report"},
		},
	}
	engine := newFakeEngine()

	result, err := newTestSweeper(loans, engine, ref).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.TasksRaised != 0 {
		t.Fatalf("tasksRaised = %d", result.TasksRaised)
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	ref := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)
	loans := &fakeLoanSource{
		loans: []repository.SweepLoan{{LoanID: "L300", FirstObserved: daysAgo(ref, 30)}},
		docs:  map[string][]string{},
	}
	engine := newFakeEngine()
	sweeper := newTestSweeper(loans, engine, ref)

	first, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first.TasksRaised != 2 || second.TasksRaised != 0 {
		t.Fatalf("first=%d second=%d", first.TasksRaised, second.TasksRaised)
	}

	// Completing the security-instrument task reopens that condition only.
	engine.open["L300|"+string(tasks.TypeDocumentUploadRequired)] = false
	third, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("third run: %v", err)
	}
	if third.TasksRaised != 1 {
		t.Fatalf("third=%d", third.TasksRaised)
	}
}

func TestSweepIsolatesLoanFailures(t *testing.T) {
	ref := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)
	loans := &fakeLoanSource{
		loans: []repository.SweepLoan{
			{LoanID: "BROKEN", FirstObserved: daysAgo(ref, 30)},
			{LoanID: "HEALTHY", FirstObserved: daysAgo(ref, 30)},
		},
		docs:    map[string][]string{},
		lookErr: map[string]error{"BROKEN": errors.New("read timeout")},
	}
	engine := newFakeEngine()

	result, err := newTestSweeper(loans, engine, ref).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.LoansFailed != 1 {
		t.Fatalf("loansFailed = %d", result.LoansFailed)
	}
	if result.TasksRaised != 2 {
		t.Fatalf("healthy loan must still raise both tasks, got %d", result.TasksRaised)
	}
	for _, spec := range engine.raised {
		if loanOf(t, spec) != "HEALTHY" {
			t.Fatalf("unexpected task for loan %s", loanOf(t, spec))
		}
	}
}

func TestSweepChecksAreIndependentPerLoan(t *testing.T) {
	ref := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)
	loans := &fakeLoanSource{
		loans: []repository.SweepLoan{{LoanID: "L300", FirstObserved: daysAgo(ref, 30)}},
		docs:  map[string][]string{},
	}
	engine := newFakeEngine()
	engine.raiseErr["L300|"+string(tasks.TypeDocumentUploadRequired)] = errors.New("insert failed")

	result, err := newTestSweeper(loans, engine, ref).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.TasksRaised != 1 {
		t.Fatalf("title check must still run, tasksRaised = %d", result.TasksRaised)
	}
	if engine.raised[0].Type != tasks.TypeTitleReportUploadRequired {
		t.Fatalf("raised = %v", engine.raised[0].Type)
	}
	if result.LoansFailed != 1 {
		t.Fatalf("loansFailed = %d", result.LoansFailed)
	}
}

func loanOf(t *testing.T, spec tasks.Spec) string {
	t.Helper()
	if spec.LoanID == nil {
		t.Fatal("spec has no loan id")
	}
	return *spec.LoanID
}
