// Package sweep implements the periodic missing-document scan: loans that
// have been on the books past a grace period with no required document raise
// upload tasks through the same classifier/engine pipeline as live events.
package sweep

import (
	"context"
	"time"

	"nplvision_backend/internal/events"
	"nplvision_backend/internal/loans/repository"
	"nplvision_backend/internal/tasks"
	"nplvision_backend/platform/config"
	"nplvision_backend/platform/db"
	"nplvision_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

// Document type substrings per required category, matched case-insensitively.
var (
	securityInstrumentTypes = []string{"security", "mortgage", "deed"}
	titleReportTypes        = []string{"title"}
)

// LoanSource lists loans and answers document-presence questions.
type LoanSource interface {
	ListForSweep(ctx context.Context) ([]repository.SweepLoan, error)
	HasDocumentMatching(ctx context.Context, loanID string, typeSubstrings []string) (bool, error)
}

// TaskRaiser is the engine surface the sweep drives.
type TaskRaiser interface {
	RaiseSwept(ctx context.Context, q db.DBTX, spec tasks.Spec) (*tasks.Outcome, error)
	Announce(ctx context.Context, outcome *tasks.Outcome)
}

// TxRunner runs a function inside one transaction. Each loan gets its own so
// one loan's failure cannot roll back another's tasks.
type TxRunner interface {
	InTx(ctx context.Context, fn func(q db.DBTX) error) error
}

// Result summarizes one sweep run.
type Result struct {
	LoansScanned int
	TasksRaised  int
	LoansFailed  int
	Elapsed      time.Duration
}

// Sweeper runs the missing-document sweep.
type Sweeper struct {
	loans  LoanSource
	engine TaskRaiser
	txs    TxRunner
	cfg    config.SweepConfig
	bus    events.Bus
	log    *logger.Logger

	// now is swapped in tests to pin the reference date.
	now func() time.Time
}

// New creates a sweeper.
func New(loans LoanSource, engine TaskRaiser, txs TxRunner, cfg config.SweepConfig, bus events.Bus, log *logger.Logger) *Sweeper {
	return &Sweeper{
		loans:  loans,
		engine: engine,
		txs:    txs,
		cfg:    cfg,
		bus:    bus,
		log:    log,
		now:    time.Now,
	}
}

// Run scans every loan once. Loans are processed concurrently up to the
// configured parallelism; a failing loan is logged and skipped, never fatal.
func (s *Sweeper) Run(ctx context.Context) (Result, error) {
	start := s.now()
	today := dateOnly(start.UTC())

	loans, err := s.loans.ListForSweep(ctx)
	if err != nil {
		return Result{}, err
	}

	var (
		raised int64
		failed int64
	)
	g, gctx := errgroup.WithContext(ctx)
	parallelism := s.cfg.GetSweepParallelism()
	if parallelism < 1 {
		parallelism = 1
	}
	g.SetLimit(parallelism)

	results := make([]loanResult, len(loans))
	for i, loan := range loans {
		i, loan := i, loan
		g.Go(func() error {
			results[i] = s.sweepLoan(gctx, loan, today)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		raised += int64(r.raised)
		if r.failed {
			failed++
		}
	}

	result := Result{
		LoansScanned: len(loans),
		TasksRaised:  int(raised),
		LoansFailed:  int(failed),
		Elapsed:      s.now().Sub(start),
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.SweepCompleted{
			BaseEvent:    events.NewBaseEvent(),
			LoansScanned: result.LoansScanned,
			TasksRaised:  result.TasksRaised,
			LoansFailed:  result.LoansFailed,
			Elapsed:      result.Elapsed,
		})
	}

	s.log.Info("missing-document sweep finished",
		"loansScanned", result.LoansScanned,
		"tasksRaised", result.TasksRaised,
		"loansFailed", result.LoansFailed,
		"elapsed", result.Elapsed,
	)
	return result, nil
}

type loanResult struct {
	raised int
	failed bool
}

// sweepLoan runs both category checks for one loan. The checks are
// independent: a failure or skip of one does not affect the other.
func (s *Sweeper) sweepLoan(ctx context.Context, loan repository.SweepLoan, today time.Time) loanResult {
	days := wholeDays(dateOnly(loan.FirstObserved.UTC()), today)

	var res loanResult

	checks := []struct {
		category  tasks.MissingDocumentCategory
		graceDays int
		types     []string
	}{
		{tasks.CategorySecurityInstrument, s.cfg.GetSecurityInstrumentGraceDays(), securityInstrumentTypes},
		{tasks.CategoryTitleReport, s.cfg.GetTitleReportGraceDays(), titleReportTypes},
	}

	for _, check := range checks {
		spec, ok := tasks.ClassifyMissingDocument(tasks.MissingDocumentInput{
			LoanID:         loan.LoanID,
			Category:       check.category,
			DaysSinceAdded: days,
			GraceDays:      check.graceDays,
		})
		if !ok {
			continue
		}

		present, err := s.loans.HasDocumentMatching(ctx, loan.LoanID, check.types)
		if err != nil {
			s.log.SweepError(loan.LoanID, string(check.category), err)
			res.failed = true
			continue
		}
		if present {
			continue
		}

		var outcome *tasks.Outcome
		err = s.txs.InTx(ctx, func(q db.DBTX) error {
			var raiseErr error
			outcome, raiseErr = s.engine.RaiseSwept(ctx, q, spec)
			return raiseErr
		})
		if err != nil {
			s.log.SweepError(loan.LoanID, string(check.category), err)
			res.failed = true
			continue
		}
		if outcome != nil {
			s.engine.Announce(ctx, outcome)
			res.raised++
		}
	}

	return res
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func wholeDays(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}
