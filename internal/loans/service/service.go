// Package service implements the write path for loan state: every mutation
// that can raise work runs the task engine inside its own transaction, so a
// qualifying event is never recorded without its task.
package service

import (
	"context"
	"fmt"
	"time"

	"nplvision_backend/internal/events"
	"nplvision_backend/internal/loans/repository"
	"nplvision_backend/internal/loans/transport"
	"nplvision_backend/internal/tasks"
	"nplvision_backend/internal/timeline"
	"nplvision_backend/platform/apperr"
	"nplvision_backend/platform/db"
	"nplvision_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const opWritePath = "loans.service.write_path"

// Service provides loan reads and the event-producing write path.
type Service struct {
	repo   *repository.Repository
	engine *tasks.Engine
	bus    events.Bus
	pool   *pgxpool.Pool
	log    *logger.Logger
}

// New creates a loans service.
func New(repo *repository.Repository, engine *tasks.Engine, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		engine: engine,
		bus:    bus,
		pool:   repo.Pool(),
		log:    log,
	}
}

// CreateLoan registers a loan.
func (s *Service) CreateLoan(ctx context.Context, req transport.CreateLoanRequest) (repository.LoanRecord, error) {
	return s.repo.CreateLoan(ctx, req.LoanID, req.State, req.LegalStatus)
}

// GetLoan returns one loan.
func (s *Service) GetLoan(ctx context.Context, loanID string) (repository.LoanRecord, error) {
	return s.repo.GetLoan(ctx, loanID)
}

// GetForeclosureCase returns the loan's foreclosure row.
func (s *Service) GetForeclosureCase(ctx context.Context, loanID string) (repository.ForeclosureCase, error) {
	return s.repo.GetForeclosureCase(ctx, loanID)
}

// ListDocuments returns a loan's collateral documents.
func (s *Service) ListDocuments(ctx context.Context, loanID string) ([]repository.CollateralDocument, error) {
	if _, err := s.repo.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}
	return s.repo.ListDocuments(ctx, loanID)
}

// IngestDocument stores a collateral document and evaluates it for review
// tasks in the same transaction. A failed task write rejects the ingestion.
func (s *Service) IngestDocument(ctx context.Context, loanID string, req transport.IngestDocumentRequest) (*transport.DocumentResponse, error) {
	if _, err := s.repo.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}

	var (
		doc     repository.CollateralDocument
		outcome *tasks.Outcome
	)
	err := s.inTx(ctx, func(tx db.DBTX) error {
		var err error
		doc, err = s.repo.InsertDocument(ctx, tx, repository.InsertDocumentParams{
			LoanID:          loanID,
			DocumentType:    req.DocumentType,
			FileName:        req.FileName,
			ConfidenceScore: req.ConfidenceScore,
		})
		if err != nil {
			return err
		}

		spec, ok := tasks.ClassifyDocumentIngested(tasks.DocumentIngestedInput{
			LoanID:          loanID,
			DocumentID:      doc.ID,
			FileName:        doc.FileName,
			DocumentType:    doc.DocumentType,
			ConfidenceScore: doc.ConfidenceScore,
		})
		if !ok {
			return nil
		}

		outcome, err = s.engine.RaiseEvent(ctx, tx, spec)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.engine.Announce(ctx, outcome)
	s.bus.Publish(ctx, events.DocumentIngested{
		BaseEvent:    events.NewBaseEvent(),
		LoanID:       doc.LoanID,
		DocumentID:   doc.ID,
		DocumentType: doc.DocumentType,
		FileName:     doc.FileName,
	})

	resp := &transport.DocumentResponse{
		ID:              doc.ID,
		LoanID:          doc.LoanID,
		DocumentType:    doc.DocumentType,
		FileName:        doc.FileName,
		ConfidenceScore: doc.ConfidenceScore,
		CreatedAt:       doc.CreatedAt,
	}
	if outcome != nil {
		id := outcome.Task.ID
		resp.RaisedTaskID = &id
	}
	return resp, nil
}

// UpsertForeclosureCase applies a foreclosure case update and evaluates it in
// the same transaction. Classification only runs when one of the trigger
// fields (status, sale scheduled, sale held, REO) actually changed.
func (s *Service) UpsertForeclosureCase(ctx context.Context, loanID string, req transport.UpsertForeclosureRequest) (*transport.MutationResponse, error) {
	if _, err := s.repo.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}

	var outcome *tasks.Outcome
	err := s.inTx(ctx, func(tx db.DBTX) error {
		prev, curr, err := s.repo.UpsertForeclosureCase(ctx, tx, repository.UpsertForeclosureParams{
			LoanID:               loanID,
			Jurisdiction:         req.Jurisdiction,
			FCStatus:             req.FCStatus,
			FCStartDate:          req.FCStartDate,
			ReferralDate:         req.ReferralDate,
			ComplaintFiledDate:   req.ComplaintFiledDate,
			ServiceCompletedDate: req.ServiceCompletedDate,
			JudgmentDate:         req.JudgmentDate,
			NoticeOfDefaultDate:  req.NoticeOfDefaultDate,
			NoticeOfSaleDate:     req.NoticeOfSaleDate,
			SaleScheduledDate:    req.SaleScheduledDate,
			SaleHeldDate:         req.SaleHeldDate,
			RealEstateOwnedDate:  req.RealEstateOwnedDate,
		})
		if err != nil {
			return err
		}

		if !foreclosureTriggerChanged(prev, curr) {
			return nil
		}

		spec, ok := tasks.ClassifyForeclosureChange(tasks.ForeclosureChangeInput{
			LoanID:            loanID,
			FCStatus:          curr.FCStatus,
			SaleScheduledDate: curr.SaleScheduledDate,
			SaleHeldDate:      curr.SaleHeldDate,
			REODate:           curr.RealEstateOwnedDate,
		}, time.Now().UTC())
		if !ok {
			return nil
		}

		outcome, err = s.engine.RaiseEvent(ctx, tx, spec)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.engine.Announce(ctx, outcome)
	return mutationResponse(loanID, outcome), nil
}

// PostPayment records a payment posting and evaluates it in the same
// transaction.
func (s *Service) PostPayment(ctx context.Context, loanID string, req transport.PostPaymentRequest) (*transport.MutationResponse, error) {
	loan, err := s.repo.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	var outcome *tasks.Outcome
	err = s.inTx(ctx, func(tx db.DBTX) error {
		prevLastPayment, err := s.repo.UpdatePayment(ctx, tx, loanID, req.LastPaymentReceivedDate, req.NextPaymentDueDate)
		if err != nil {
			return err
		}

		nextDue := req.NextPaymentDueDate
		if nextDue == nil {
			nextDue = loan.NextPaymentDueDate
		}

		spec, ok := tasks.ClassifyPaymentChange(tasks.PaymentChangeInput{
			LoanID:              loanID,
			PreviousLastPayment: prevLastPayment,
			NewLastPayment:      req.LastPaymentReceivedDate,
			NextPaymentDue:      nextDue,
		}, time.Now().UTC())
		if !ok {
			return nil
		}

		outcome, err = s.engine.RaiseEvent(ctx, tx, spec)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.engine.Announce(ctx, outcome)
	return mutationResponse(loanID, outcome), nil
}

// UpdateLegalStatus transitions the loan's legal status and evaluates it in
// the same transaction.
func (s *Service) UpdateLegalStatus(ctx context.Context, loanID string, req transport.UpdateLegalStatusRequest) (*transport.MutationResponse, error) {
	var (
		outcome    *tasks.Outcome
		prevStatus string
	)
	err := s.inTx(ctx, func(tx db.DBTX) error {
		var err error
		prevStatus, err = s.repo.UpdateLegalStatus(ctx, tx, loanID, req.LegalStatus)
		if err != nil {
			return err
		}

		spec, ok := tasks.ClassifyLegalStatusChange(tasks.LegalStatusChangeInput{
			LoanID:    loanID,
			OldStatus: prevStatus,
			NewStatus: req.LegalStatus,
		})
		if !ok {
			return nil
		}

		outcome, err = s.engine.RaiseEvent(ctx, tx, spec)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.engine.Announce(ctx, outcome)
	s.bus.Publish(ctx, events.LegalStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		LoanID:    loanID,
		OldStatus: prevStatus,
		NewStatus: req.LegalStatus,
	})
	return mutationResponse(loanID, outcome), nil
}

// GetTimelineRisk classifies the loan's foreclosure schedule.
func (s *Service) GetTimelineRisk(ctx context.Context, loanID string) (*transport.TimelineRiskResponse, error) {
	snapshot, err := s.repo.GetCaseSnapshot(ctx, loanID)
	if err != nil {
		return nil, err
	}

	eval := timeline.Evaluate(snapshot)

	resp := &transport.TimelineRiskResponse{
		LoanID:             loanID,
		Risk:               string(eval.Risk),
		JurisdictionType:   string(eval.JurisdictionType),
		CumulativeVariance: eval.CumulativeVariance,
	}
	for _, step := range eval.Steps {
		resp.Steps = append(resp.Steps, transport.StepVarianceResponse{
			Milestone:     step.Milestone,
			PreferredDays: step.PreferredDays,
			ActualDays:    step.ActualDays,
			Variance:      step.Variance,
			CompletedOn:   step.CompletedOn,
		})
	}
	return resp, nil
}

func mutationResponse(loanID string, outcome *tasks.Outcome) *transport.MutationResponse {
	resp := &transport.MutationResponse{LoanID: loanID}
	if outcome != nil {
		id := outcome.Task.ID
		resp.RaisedTaskID = &id
	}
	return resp
}

// foreclosureTriggerChanged reports whether any classification trigger field
// differs between the previous and current row. A first insert always counts
// as changed.
func foreclosureTriggerChanged(prev *repository.ForeclosureCase, curr repository.ForeclosureCase) bool {
	if prev == nil {
		return true
	}
	return prev.FCStatus != curr.FCStatus ||
		!datePtrEqual(prev.SaleScheduledDate, curr.SaleScheduledDate) ||
		!datePtrEqual(prev.SaleHeldDate, curr.SaleHeldDate) ||
		!datePtrEqual(prev.RealEstateOwnedDate, curr.RealEstateOwnedDate)
}

func datePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// inTx runs fn inside a transaction, rolling back when fn or the commit
// fails. The rollback after a successful commit is a no-op.
func (s *Service) inTx(ctx context.Context, fn func(tx db.DBTX) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("begin transaction failed: %v", err)).WithOp(opWritePath)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Internal(fmt.Sprintf("commit failed: %v", err)).WithOp(opWritePath)
	}
	return nil
}
