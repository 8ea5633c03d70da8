// Package repository persists loans, foreclosure cases, and collateral
// documents. Mutations that feed the task engine accept a DBTX so they share
// the caller's transaction with the engine's writes.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nplvision_backend/internal/timeline"
	"nplvision_backend/platform/apperr"
	"nplvision_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opGetLoan           = "loans.repository.get_loan"
	opCreateLoan        = "loans.repository.create_loan"
	opInsertDocument    = "loans.repository.insert_document"
	opListDocuments     = "loans.repository.list_documents"
	opGetForeclosure    = "loans.repository.get_foreclosure"
	opUpsertForeclosure = "loans.repository.upsert_foreclosure"
	opUpdatePayment     = "loans.repository.update_payment"
	opUpdateLegalStatus = "loans.repository.update_legal_status"
	opGetCaseSnapshot   = "loans.repository.get_case_snapshot"
	opListForSweep      = "loans.repository.list_for_sweep"
	opHasDocumentLike   = "loans.repository.has_document_like"

	errRepoNotConfigured = "loan repository not configured"

	loanColumns = `loan_id, state, legal_status, last_payment_received_date,
		next_payment_due_date, created_at, updated_at`

	caseColumns = `loan_id, jurisdiction, fc_status, fc_start_date, referral_date,
		complaint_filed_date, service_completed_date, judgment_date,
		notice_of_default_date, notice_of_sale_date, sale_scheduled_date,
		sale_held_date, real_estate_owned_date, updated_at`
)

// LoanRecord is a serviced loan. Loans keep their natural string key.
type LoanRecord struct {
	LoanID                  string     `json:"loanId"`
	State                   string     `json:"state"`
	LegalStatus             string     `json:"legalStatus"`
	LastPaymentReceivedDate *time.Time `json:"lastPaymentReceivedDate,omitempty"`
	NextPaymentDueDate      *time.Time `json:"nextPaymentDueDate,omitempty"`
	CreatedAt               time.Time  `json:"createdAt"`
	UpdatedAt               time.Time  `json:"updatedAt"`
}

// ForeclosureCase is the single active foreclosure row for a loan.
type ForeclosureCase struct {
	LoanID               string     `json:"loanId"`
	Jurisdiction         string     `json:"jurisdiction"`
	FCStatus             string     `json:"fcStatus"`
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
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// CollateralDocument is an ingested document row tied to a loan. Immutable
// once the confidence score is recorded.
type CollateralDocument struct {
	ID              uuid.UUID `json:"id"`
	LoanID          string    `json:"loanId"`
	DocumentType    string    `json:"documentType"`
	FileName        string    `json:"fileName"`
	ConfidenceScore *int      `json:"confidenceScore,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// SweepLoan is the minimal projection the missing-document sweep iterates.
type SweepLoan struct {
	LoanID        string
	FirstObserved time.Time
}

// Repository is the loan store.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a loan repository backed by the given pool.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Pool exposes the underlying pool for callers that own transactions.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// GetLoan fetches one loan by its natural key.
func (r *Repository) GetLoan(ctx context.Context, loanID string) (LoanRecord, error) {
	if r == nil || r.pool == nil {
		return LoanRecord{}, apperr.Internal(errRepoNotConfigured).WithOp(opGetLoan)
	}

	var l LoanRecord
	err := r.pool.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE loan_id = $1`, loanID).Scan(
		&l.LoanID, &l.State, &l.LegalStatus, &l.LastPaymentReceivedDate,
		&l.NextPaymentDueDate, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LoanRecord{}, apperr.NotFound("loan not found").WithOp(opGetLoan)
		}
		return LoanRecord{}, apperr.Internal(fmt.Sprintf("get loan failed: %v", err)).WithOp(opGetLoan)
	}
	return l, nil
}

// CreateLoan registers a loan. Ingestion feeds call this once per loan;
// re-ingesting an existing loan is a conflict, not an upsert.
func (r *Repository) CreateLoan(ctx context.Context, loanID, state, legalStatus string) (LoanRecord, error) {
	if r == nil || r.pool == nil {
		return LoanRecord{}, apperr.Internal(errRepoNotConfigured).WithOp(opCreateLoan)
	}

	now := time.Now().UTC()
	var l LoanRecord
	err := r.pool.QueryRow(ctx, `
		INSERT INTO loans (loan_id, state, legal_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (loan_id) DO NOTHING
		RETURNING `+loanColumns,
		loanID, state, legalStatus, now,
	).Scan(
		&l.LoanID, &l.State, &l.LegalStatus, &l.LastPaymentReceivedDate,
		&l.NextPaymentDueDate, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LoanRecord{}, apperr.Conflict("loan already exists").WithOp(opCreateLoan)
		}
		return LoanRecord{}, apperr.Internal(fmt.Sprintf("create loan failed: %v", err)).WithOp(opCreateLoan)
	}
	return l, nil
}

// InsertDocumentParams describes a collateral document insert.
type InsertDocumentParams struct {
	LoanID          string
	DocumentType    string
	FileName        string
	ConfidenceScore *int
}

// InsertDocument records a collateral document inside the caller's unit of
// work.
func (r *Repository) InsertDocument(ctx context.Context, q db.DBTX, params InsertDocumentParams) (CollateralDocument, error) {
	if r == nil || q == nil {
		return CollateralDocument{}, apperr.Internal(errRepoNotConfigured).WithOp(opInsertDocument)
	}

	var d CollateralDocument
	err := q.QueryRow(ctx, `
		INSERT INTO collateral_documents (id, loan_id, document_type, file_name, confidence_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, loan_id, document_type, file_name, confidence_score, created_at`,
		uuid.New(), params.LoanID, params.DocumentType, params.FileName,
		params.ConfidenceScore, time.Now().UTC(),
	).Scan(&d.ID, &d.LoanID, &d.DocumentType, &d.FileName, &d.ConfidenceScore, &d.CreatedAt)
	if err != nil {
		return CollateralDocument{}, apperr.Internal(fmt.Sprintf("insert document failed: %v", err)).WithOp(opInsertDocument)
	}
	return d, nil
}

// ListDocuments returns a loan's collateral documents, newest first.
func (r *Repository) ListDocuments(ctx context.Context, loanID string) ([]CollateralDocument, error) {
	if r == nil || r.pool == nil {
		return nil, apperr.Internal(errRepoNotConfigured).WithOp(opListDocuments)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, loan_id, document_type, file_name, confidence_score, created_at
		FROM collateral_documents
		WHERE loan_id = $1
		ORDER BY created_at DESC`, loanID)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list documents failed: %v", err)).WithOp(opListDocuments)
	}
	defer rows.Close()

	docs := make([]CollateralDocument, 0)
	for rows.Next() {
		var d CollateralDocument
		if err := rows.Scan(&d.ID, &d.LoanID, &d.DocumentType, &d.FileName, &d.ConfidenceScore, &d.CreatedAt); err != nil {
			return nil, apperr.Internal(fmt.Sprintf("scan document failed: %v", err)).WithOp(opListDocuments)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list documents failed: %v", err)).WithOp(opListDocuments)
	}
	return docs, nil
}

// getForeclosureLocked fetches and row-locks the loan's foreclosure case
// inside the caller's transaction. Returns nil when no row exists yet.
func (r *Repository) getForeclosureLocked(ctx context.Context, q db.DBTX, loanID string) (*ForeclosureCase, error) {
	var c ForeclosureCase
	err := q.QueryRow(ctx, `SELECT `+caseColumns+` FROM foreclosure_cases WHERE loan_id = $1 FOR UPDATE`, loanID).Scan(
		&c.LoanID, &c.Jurisdiction, &c.FCStatus, &c.FCStartDate, &c.ReferralDate,
		&c.ComplaintFiledDate, &c.ServiceCompletedDate, &c.JudgmentDate,
		&c.NoticeOfDefaultDate, &c.NoticeOfSaleDate, &c.SaleScheduledDate,
		&c.SaleHeldDate, &c.RealEstateOwnedDate, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("get foreclosure case failed: %v", err)).WithOp(opGetForeclosure)
	}
	return &c, nil
}

// GetForeclosureCase fetches the foreclosure row for a loan, or NotFound.
func (r *Repository) GetForeclosureCase(ctx context.Context, loanID string) (ForeclosureCase, error) {
	if r == nil || r.pool == nil {
		return ForeclosureCase{}, apperr.Internal(errRepoNotConfigured).WithOp(opGetForeclosure)
	}

	var c ForeclosureCase
	err := r.pool.QueryRow(ctx, `SELECT `+caseColumns+` FROM foreclosure_cases WHERE loan_id = $1`, loanID).Scan(
		&c.LoanID, &c.Jurisdiction, &c.FCStatus, &c.FCStartDate, &c.ReferralDate,
		&c.ComplaintFiledDate, &c.ServiceCompletedDate, &c.JudgmentDate,
		&c.NoticeOfDefaultDate, &c.NoticeOfSaleDate, &c.SaleScheduledDate,
		&c.SaleHeldDate, &c.RealEstateOwnedDate, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ForeclosureCase{}, apperr.NotFound("foreclosure case not found").WithOp(opGetForeclosure)
		}
		return ForeclosureCase{}, apperr.Internal(fmt.Sprintf("get foreclosure case failed: %v", err)).WithOp(opGetForeclosure)
	}
	return c, nil
}

// UpsertForeclosureParams carries the incoming foreclosure case state. Nil
// date fields leave the stored value untouched.
type UpsertForeclosureParams struct {
	LoanID               string
	Jurisdiction         string
	FCStatus             string
	FCStartDate          *time.Time
	ReferralDate         *time.Time
	ComplaintFiledDate   *time.Time
	ServiceCompletedDate *time.Time
	JudgmentDate         *time.Time
	NoticeOfDefaultDate  *time.Time
	NoticeOfSaleDate     *time.Time
	SaleScheduledDate    *time.Time
	SaleHeldDate         *time.Time
	RealEstateOwnedDate  *time.Time
}

// UpsertForeclosureCase inserts or updates the loan's foreclosure row inside
// the caller's transaction and returns the previous row (nil on first insert)
// so the caller can detect which trigger fields actually changed.
// sale_held_date and real_estate_owned_date, once set, are never cleared:
// COALESCE keeps the stored value when the incoming one is null.
func (r *Repository) UpsertForeclosureCase(ctx context.Context, q db.DBTX, params UpsertForeclosureParams) (prev *ForeclosureCase, curr ForeclosureCase, err error) {
	if r == nil || q == nil {
		return nil, ForeclosureCase{}, apperr.Internal(errRepoNotConfigured).WithOp(opUpsertForeclosure)
	}

	prev, err = r.getForeclosureLocked(ctx, q, params.LoanID)
	if err != nil {
		return nil, ForeclosureCase{}, err
	}

	scanErr := q.QueryRow(ctx, `
		INSERT INTO foreclosure_cases
		(loan_id, jurisdiction, fc_status, fc_start_date, referral_date,
		 complaint_filed_date, service_completed_date, judgment_date,
		 notice_of_default_date, notice_of_sale_date, sale_scheduled_date,
		 sale_held_date, real_estate_owned_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (loan_id) DO UPDATE SET
			jurisdiction = EXCLUDED.jurisdiction,
			fc_status = EXCLUDED.fc_status,
			fc_start_date = COALESCE(EXCLUDED.fc_start_date, foreclosure_cases.fc_start_date),
			referral_date = COALESCE(EXCLUDED.referral_date, foreclosure_cases.referral_date),
			complaint_filed_date = COALESCE(EXCLUDED.complaint_filed_date, foreclosure_cases.complaint_filed_date),
			service_completed_date = COALESCE(EXCLUDED.service_completed_date, foreclosure_cases.service_completed_date),
			judgment_date = COALESCE(EXCLUDED.judgment_date, foreclosure_cases.judgment_date),
			notice_of_default_date = COALESCE(EXCLUDED.notice_of_default_date, foreclosure_cases.notice_of_default_date),
			notice_of_sale_date = COALESCE(EXCLUDED.notice_of_sale_date, foreclosure_cases.notice_of_sale_date),
			sale_scheduled_date = EXCLUDED.sale_scheduled_date,
			sale_held_date = COALESCE(EXCLUDED.sale_held_date, foreclosure_cases.sale_held_date),
			real_estate_owned_date = COALESCE(EXCLUDED.real_estate_owned_date, foreclosure_cases.real_estate_owned_date),
			updated_at = EXCLUDED.updated_at
		RETURNING `+caseColumns,
		params.LoanID, params.Jurisdiction, params.FCStatus, params.FCStartDate,
		params.ReferralDate, params.ComplaintFiledDate, params.ServiceCompletedDate,
		params.JudgmentDate, params.NoticeOfDefaultDate, params.NoticeOfSaleDate,
		params.SaleScheduledDate, params.SaleHeldDate, params.RealEstateOwnedDate,
		time.Now().UTC(),
	).Scan(
		&curr.LoanID, &curr.Jurisdiction, &curr.FCStatus, &curr.FCStartDate, &curr.ReferralDate,
		&curr.ComplaintFiledDate, &curr.ServiceCompletedDate, &curr.JudgmentDate,
		&curr.NoticeOfDefaultDate, &curr.NoticeOfSaleDate, &curr.SaleScheduledDate,
		&curr.SaleHeldDate, &curr.RealEstateOwnedDate, &curr.UpdatedAt,
	)
	if scanErr != nil {
		return nil, ForeclosureCase{}, apperr.Internal(fmt.Sprintf("upsert foreclosure case failed: %v", scanErr)).WithOp(opUpsertForeclosure)
	}
	return prev, curr, nil
}

// UpdatePayment sets the payment fields inside the caller's transaction and
// returns the previous last-payment date for the change detection the
// classifier needs.
func (r *Repository) UpdatePayment(ctx context.Context, q db.DBTX, loanID string, lastPayment, nextDue *time.Time) (prevLastPayment *time.Time, err error) {
	if r == nil || q == nil {
		return nil, apperr.Internal(errRepoNotConfigured).WithOp(opUpdatePayment)
	}

	err = q.QueryRow(ctx, `SELECT last_payment_received_date FROM loans WHERE loan_id = $1 FOR UPDATE`, loanID).Scan(&prevLastPayment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("loan not found").WithOp(opUpdatePayment)
		}
		return nil, apperr.Internal(fmt.Sprintf("lock loan failed: %v", err)).WithOp(opUpdatePayment)
	}

	_, err = q.Exec(ctx, `
		UPDATE loans
		SET last_payment_received_date = $2,
		    next_payment_due_date = COALESCE($3, next_payment_due_date),
		    updated_at = $4
		WHERE loan_id = $1`,
		loanID, lastPayment, nextDue, time.Now().UTC())
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("update payment failed: %v", err)).WithOp(opUpdatePayment)
	}
	return prevLastPayment, nil
}

// UpdateLegalStatus sets the loan's legal status inside the caller's
// transaction and returns the previous value.
func (r *Repository) UpdateLegalStatus(ctx context.Context, q db.DBTX, loanID, newStatus string) (prevStatus string, err error) {
	if r == nil || q == nil {
		return "", apperr.Internal(errRepoNotConfigured).WithOp(opUpdateLegalStatus)
	}

	err = q.QueryRow(ctx, `SELECT legal_status FROM loans WHERE loan_id = $1 FOR UPDATE`, loanID).Scan(&prevStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.NotFound("loan not found").WithOp(opUpdateLegalStatus)
		}
		return "", apperr.Internal(fmt.Sprintf("lock loan failed: %v", err)).WithOp(opUpdateLegalStatus)
	}

	_, err = q.Exec(ctx, `UPDATE loans SET legal_status = $2, updated_at = $3 WHERE loan_id = $1`,
		loanID, newStatus, time.Now().UTC())
	if err != nil {
		return "", apperr.Internal(fmt.Sprintf("update legal status failed: %v", err)).WithOp(opUpdateLegalStatus)
	}
	return prevStatus, nil
}

// GetCaseSnapshot builds the evaluator's view of a loan: legal status and
// state from the loan row, case dates from the foreclosure row. A loan with
// no foreclosure row still gets a snapshot (which evaluates to Unknown).
func (r *Repository) GetCaseSnapshot(ctx context.Context, loanID string) (timeline.CaseSnapshot, error) {
	if r == nil || r.pool == nil {
		return timeline.CaseSnapshot{}, apperr.Internal(errRepoNotConfigured).WithOp(opGetCaseSnapshot)
	}

	var (
		s            timeline.CaseSnapshot
		jurisdiction *string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT l.legal_status, l.state, fc.jurisdiction, fc.fc_start_date,
		       fc.referral_date, fc.complaint_filed_date, fc.service_completed_date,
		       fc.judgment_date, fc.notice_of_default_date, fc.notice_of_sale_date,
		       fc.sale_scheduled_date, fc.sale_held_date
		FROM loans l
		LEFT JOIN foreclosure_cases fc ON fc.loan_id = l.loan_id
		WHERE l.loan_id = $1`, loanID).Scan(
		&s.LegalStatus, &s.State, &jurisdiction, &s.FCStartDate,
		&s.ReferralDate, &s.ComplaintFiledDate, &s.ServiceCompletedDate,
		&s.JudgmentDate, &s.NoticeOfDefaultDate, &s.NoticeOfSaleDate,
		&s.SaleScheduledDate, &s.SaleHeldDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timeline.CaseSnapshot{}, apperr.NotFound("loan not found").WithOp(opGetCaseSnapshot)
		}
		return timeline.CaseSnapshot{}, apperr.Internal(fmt.Sprintf("get case snapshot failed: %v", err)).WithOp(opGetCaseSnapshot)
	}
	if jurisdiction != nil {
		s.Jurisdiction = *jurisdiction
	}
	return s, nil
}

// ListForSweep returns every loan with the timestamp it was first observed.
func (r *Repository) ListForSweep(ctx context.Context) ([]SweepLoan, error) {
	if r == nil || r.pool == nil {
		return nil, apperr.Internal(errRepoNotConfigured).WithOp(opListForSweep)
	}

	rows, err := r.pool.Query(ctx, `SELECT loan_id, created_at FROM loans ORDER BY loan_id`)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list loans for sweep failed: %v", err)).WithOp(opListForSweep)
	}
	defer rows.Close()

	loans := make([]SweepLoan, 0)
	for rows.Next() {
		var l SweepLoan
		if err := rows.Scan(&l.LoanID, &l.FirstObserved); err != nil {
			return nil, apperr.Internal(fmt.Sprintf("scan sweep loan failed: %v", err)).WithOp(opListForSweep)
		}
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list loans for sweep failed: %v", err)).WithOp(opListForSweep)
	}
	return loans, nil
}

// HasDocumentMatching reports whether the loan has a document whose type
// contains any of the given substrings, case-insensitively.
func (r *Repository) HasDocumentMatching(ctx context.Context, loanID string, typeSubstrings []string) (bool, error) {
	if r == nil || r.pool == nil {
		return false, apperr.Internal(errRepoNotConfigured).WithOp(opHasDocumentLike)
	}
	if len(typeSubstrings) == 0 {
		return false, nil
	}

	patterns := make([]string, 0, len(typeSubstrings))
	for _, s := range typeSubstrings {
		patterns = append(patterns, "%"+s+"%")
	}

	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM collateral_documents
			WHERE loan_id = $1 AND document_type ILIKE ANY($2)
		)`, loanID, patterns).Scan(&exists)
	if err != nil {
		return false, apperr.Internal(fmt.Sprintf("document lookup failed: %v", err)).WithOp(opHasDocumentLike)
	}
	return exists, nil
}
