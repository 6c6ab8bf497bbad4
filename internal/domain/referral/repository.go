package referral

import (
	"context"

	"github.com/google/uuid"
	"github.com/maraline/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LedgerFilter defines filtering options for ledger queries
type LedgerFilter struct {
	shared.Filter
	Kind *EntryKind
}

// LedgerRepository defines the interface for ledger-entry persistence.
//
// Insert must be backed by a database unique constraint over the idempotency
// key columns (user, kind, pair owner, pair index, order ref key, period) and
// translate a duplicate-key violation into shared.ErrAlreadyExists, which
// callers treat as the idempotent no-op signal.
type LedgerRepository interface {
	// Insert appends a new ledger entry
	Insert(ctx context.Context, entry *LedgerEntry) error

	// FindByID finds an entry by ID
	FindByID(ctx context.Context, id uuid.UUID) (*LedgerEntry, error)

	// FindByUser lists a user's entries, most recent first
	FindByUser(ctx context.Context, userID uuid.UUID, filter LedgerFilter) ([]*LedgerEntry, int64, error)

	// HasDirectBonus checks whether the user already holds a direct bonus for the pair index
	HasDirectBonus(ctx context.Context, userID uuid.UUID, pairIndex int) (bool, error)

	// HasChainBonus checks whether the user already holds a chain bonus for the
	// (level, pair owner, pair index) combination
	HasChainBonus(ctx context.Context, userID uuid.UUID, level int, pairOwnerID uuid.UUID, pairIndex int) (bool, error)

	// HasEligibilityMarker checks whether the user's cap-reached marker exists
	HasEligibilityMarker(ctx context.Context, userID uuid.UUID) (bool, error)

	// HasRefillForPeriod checks whether the user received a passive refill in the period
	HasRefillForPeriod(ctx context.Context, userID uuid.UUID, period string) (bool, error)

	// HasPayoutForPeriod checks whether the user received a passive payout in the period
	HasPayoutForPeriod(ctx context.Context, userID uuid.UUID, period string) (bool, error)

	// EngineTotal sums the user's positive direct and chain bonus entries.
	// This is the figure compared against the earning cap; passive payouts
	// are excluded.
	EngineTotal(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)

	// EarningsTotal sums the user's positive direct, chain and passive-payout
	// entries. This is the lifetime-earnings figure.
	EarningsTotal(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)

	// FindByOrderRefKey returns every entry correlated to the order
	FindByOrderRefKey(ctx context.Context, orderRefKey string) ([]*LedgerEntry, error)

	// SumBonusesForOrder sums the positive engine bonuses correlated to the order
	SumBonusesForOrder(ctx context.Context, orderRefKey string) (decimal.Decimal, error)

	// FindDirectBonusesAbovePair returns the user's direct bonuses whose pair
	// index exceeds the given highest valid even count
	FindDirectBonusesAbovePair(ctx context.Context, userID uuid.UUID, pairIndex int) ([]*LedgerEntry, error)

	// FindChainBonusesForPairs returns every chain bonus, for any beneficiary,
	// that references the pair owner with one of the given pair indexes
	FindChainBonusesForPairs(ctx context.Context, pairOwnerID uuid.UUID, pairIndexes []int) ([]*LedgerEntry, error)

	// Remove deletes the entries with the given IDs
	Remove(ctx context.Context, ids []uuid.UUID) error

	// DeleteEngineEntries deletes every direct and chain bonus entry.
	// Passive payouts and markers are preserved; used by full recomputation.
	DeleteEngineEntries(ctx context.Context) error
}
