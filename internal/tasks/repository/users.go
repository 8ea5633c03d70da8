package repository

import (
	"context"
	"errors"
	"fmt"

	"nplvision_backend/platform/apperr"
	"nplvision_backend/platform/db"

	"github.com/jackc/pgx/v5"
)

const (
	opFirstAssignedUser = "tasks.repository.first_assigned_user"
	opLowestActiveUser  = "tasks.repository.lowest_active_user"
)

// FirstAssignedUser returns the first user assigned to the loan, or nil when
// no assignment exists. "First" means lowest user id, matching the fallback
// ordering.
func (r *Repository) FirstAssignedUser(ctx context.Context, q db.DBTX, loanID string) (*int64, error) {
	if r == nil || q == nil {
		return nil, apperr.Internal(errRepoNotConfigured).WithOp(opFirstAssignedUser)
	}

	var userID int64
	err := q.QueryRow(ctx, `
		SELECT ua.user_id
		FROM user_assignments ua
		JOIN users u ON u.id = ua.user_id
		WHERE ua.loan_id = $1 AND u.active
		ORDER BY ua.user_id
		LIMIT 1
	`, loanID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Internal(fmt.Sprintf("assigned user lookup failed: %v", err)).WithOp(opFirstAssignedUser)
	}

	return &userID, nil
}

// LowestActiveUser returns the lowest-id active user excluding excludeID, or
// nil when none exists.
func (r *Repository) LowestActiveUser(ctx context.Context, q db.DBTX, excludeID int64) (*int64, error) {
	if r == nil || q == nil {
		return nil, apperr.Internal(errRepoNotConfigured).WithOp(opLowestActiveUser)
	}

	var userID int64
	err := q.QueryRow(ctx, `
		SELECT id FROM users
		WHERE active AND id <> $1
		ORDER BY id
		LIMIT 1
	`, excludeID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Internal(fmt.Sprintf("fallback user lookup failed: %v", err)).WithOp(opLowestActiveUser)
	}

	return &userID, nil
}
