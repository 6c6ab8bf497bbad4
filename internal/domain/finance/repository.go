package finance

import (
	"context"

	"github.com/google/uuid"
	"github.com/maraline/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// WithdrawalFilter represents filter criteria for withdrawal queries
type WithdrawalFilter struct {
	shared.Filter
	UserID *uuid.UUID
	Status WithdrawalStatus
}

// WithdrawalRepository defines the persistence interface for withdrawal requests
type WithdrawalRepository interface {
	// FindByID retrieves a withdrawal request by ID
	FindByID(ctx context.Context, id uuid.UUID) (*WithdrawalRequest, error)

	// FindAll retrieves withdrawal requests matching the filter with pagination
	FindAll(ctx context.Context, filter WithdrawalFilter) (*shared.Paginated[WithdrawalRequest], error)

	// FindPendingByUser retrieves a user's open requests, oldest first
	FindPendingByUser(ctx context.Context, userID uuid.UUID) ([]*WithdrawalRequest, error)

	// SumApprovedByUser totals a user's approved withdrawals. Wallet
	// recomputation subtracts this from ledger earnings.
	SumApprovedByUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)

	// Save persists a withdrawal request
	Save(ctx context.Context, req *WithdrawalRequest) error
}
