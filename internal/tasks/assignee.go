package tasks

import (
	"context"

	"nplvision_backend/platform/db"
)

// SystemUserID is the reserved service account. It owns automated feeds and
// never receives inbox tasks.
const SystemUserID int64 = 1

// AssignmentReader provides the user lookups the assignee policy needs.
type AssignmentReader interface {
	// FirstAssignedUser returns the first user assigned to the loan, or nil.
	FirstAssignedUser(ctx context.Context, q db.DBTX, loanID string) (*int64, error)
	// LowestActiveUser returns the lowest-id active user excluding excludeID,
	// or nil when no such user exists.
	LowestActiveUser(ctx context.Context, q db.DBTX, excludeID int64) (*int64, error)
}

// AssigneePolicy decides which user receives a generated task. Returning nil
// with no error means the task is created unassigned and no notification is
// sent.
type AssigneePolicy interface {
	Resolve(ctx context.Context, q db.DBTX, taskType Type, loanID *string) (*int64, error)
}

// OwnerFirstPolicy assigns to the loan's owner when one exists, otherwise to
// the lowest-id active user excluding the system account.
//
// The fallback is deliberately simplistic. Role-based routing is the intended
// replacement; until then the policy stays behind the AssigneePolicy
// interface so it can be swapped without touching the engine.
type OwnerFirstPolicy struct {
	reader AssignmentReader
}

// NewOwnerFirstPolicy creates the default assignee policy.
func NewOwnerFirstPolicy(reader AssignmentReader) *OwnerFirstPolicy {
	return &OwnerFirstPolicy{reader: reader}
}

// Resolve implements AssigneePolicy.
func (p *OwnerFirstPolicy) Resolve(ctx context.Context, q db.DBTX, _ Type, loanID *string) (*int64, error) {
	if loanID != nil {
		owner, err := p.reader.FirstAssignedUser(ctx, q, *loanID)
		if err != nil {
			return nil, err
		}
		if owner != nil {
			return owner, nil
		}
	}

	return p.reader.LowestActiveUser(ctx, q, SystemUserID)
}
