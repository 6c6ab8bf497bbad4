package referral

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/maraline/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// EntryKind classifies a ledger entry. The kind together with the structured
// correlation fields (pair index, level, pair owner, order ref key, period)
// forms the idempotency key for the entry; no information is ever encoded in
// the free-text description.
type EntryKind string

const (
	KindDirectBonus       EntryKind = "DIRECT_BONUS"       // pair bonus paid to the immediate sponsor
	KindChainBonus        EntryKind = "CHAIN_BONUS"        // bonus propagated to an ancestor of the sponsor
	KindPassivePayout     EntryKind = "PASSIVE_PAYOUT"     // monthly payout of the passive allowance
	KindPassiveRefill     EntryKind = "PASSIVE_REFILL"     // zero-amount marker: allowance refilled this month
	KindEligibilityMarker EntryKind = "ELIGIBILITY_MARKER" // zero-amount marker: earning cap first reached
)

// IsValid checks if the kind is a known EntryKind
func (k EntryKind) IsValid() bool {
	switch k {
	case KindDirectBonus, KindChainBonus, KindPassivePayout, KindPassiveRefill, KindEligibilityMarker:
		return true
	}
	return false
}

// IsEngineKind reports whether entries of this kind count towards the
// engine total used for earning-cap comparisons. Passive payouts are
// deliberately excluded: lifetime earnings can exceed the cap through them.
func (k EntryKind) IsEngineKind() bool {
	return k == KindDirectBonus || k == KindChainBonus
}

// MaxChainDepth bounds chain-bonus propagation up the sponsor tree. The walk
// stops after this many ancestors even if the chain continues, which also
// protects against cyclic sponsor data.
const MaxChainDepth = 10

// PeriodOf formats a timestamp as the calendar-month period key used by the
// monthly passive markers
func PeriodOf(t time.Time) string {
	return t.Format("2006-01")
}

// LedgerEntry is an immutable record of a monetary event in the referral
// program. Entries are appended and removed, never mutated. Positive amounts
// are credits to the user.
type LedgerEntry struct {
	shared.BaseEntity
	UserID      uuid.UUID       // beneficiary
	Amount      decimal.Decimal // signed; positive = credit
	Kind        EntryKind
	PairIndex   int        // pair number for direct/chain bonuses, 0 otherwise
	Level       int        // ancestor distance for chain bonuses, 0 otherwise
	PairOwnerID *uuid.UUID // sponsor whose pair justified a chain bonus
	OrderRefKey string     // idempotency key of the originating order, if any
	Period      string     // YYYY-MM for monthly markers and payouts
	Description string     // human-readable only, carries no semantics
}

// NewDirectBonusEntry creates a pair-bonus credit for a sponsor.
// pairIndex is the sponsor's active-referral count at grant time and must be
// an even number of at least 2.
func NewDirectBonusEntry(userID uuid.UUID, amount decimal.Decimal, pairIndex int, orderRefKey string) (*LedgerEntry, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Beneficiary cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Bonus amount must be positive")
	}
	if pairIndex < 2 || pairIndex%2 != 0 {
		return nil, shared.NewDomainError("INVALID_PAIR_INDEX", fmt.Sprintf("Pair index must be even and at least 2, got %d", pairIndex))
	}

	return &LedgerEntry{
		BaseEntity:  shared.NewBaseEntity(),
		UserID:      userID,
		Amount:      amount,
		Kind:        KindDirectBonus,
		PairIndex:   pairIndex,
		OrderRefKey: orderRefKey,
		Description: fmt.Sprintf("Direct pair bonus for pair %d", pairIndex),
	}, nil
}

// NewChainBonusEntry creates a chain-bonus credit for an ancestor.
// level is the distance above the pair owner's sponsor (1-based) and is
// bounded by MaxChainDepth.
func NewChainBonusEntry(userID uuid.UUID, amount decimal.Decimal, level int, pairOwnerID uuid.UUID, pairIndex int, orderRefKey string) (*LedgerEntry, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Beneficiary cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Bonus amount must be positive")
	}
	if level < 1 || level > MaxChainDepth {
		return nil, shared.NewDomainError("INVALID_LEVEL", fmt.Sprintf("Chain level must be between 1 and %d, got %d", MaxChainDepth, level))
	}
	if pairOwnerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PAIR_OWNER", "Pair owner cannot be empty")
	}
	if pairIndex < 2 || pairIndex%2 != 0 {
		return nil, shared.NewDomainError("INVALID_PAIR_INDEX", fmt.Sprintf("Pair index must be even and at least 2, got %d", pairIndex))
	}

	return &LedgerEntry{
		BaseEntity:  shared.NewBaseEntity(),
		UserID:      userID,
		Amount:      amount,
		Kind:        KindChainBonus,
		PairIndex:   pairIndex,
		Level:       level,
		PairOwnerID: &pairOwnerID,
		OrderRefKey: orderRefKey,
		Description: fmt.Sprintf("Level %d chain bonus for pair %d", level, pairIndex),
	}, nil
}

// NewPassivePayoutEntry creates the monthly passive-income credit for a period
func NewPassivePayoutEntry(userID uuid.UUID, amount decimal.Decimal, period string) (*LedgerEntry, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Beneficiary cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payout amount must be positive")
	}
	if period == "" {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period cannot be empty")
	}

	return &LedgerEntry{
		BaseEntity:  shared.NewBaseEntity(),
		UserID:      userID,
		Amount:      amount,
		Kind:        KindPassivePayout,
		Period:      period,
		Description: fmt.Sprintf("Monthly passive payout %s", period),
	}, nil
}

// NewPassiveRefillMarker creates the zero-amount marker recording that the
// passive allowance was refilled for the given period
func NewPassiveRefillMarker(userID uuid.UUID, period string) (*LedgerEntry, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Beneficiary cannot be empty")
	}
	if period == "" {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period cannot be empty")
	}

	return &LedgerEntry{
		BaseEntity:  shared.NewBaseEntity(),
		UserID:      userID,
		Amount:      decimal.Zero,
		Kind:        KindPassiveRefill,
		Period:      period,
		Description: fmt.Sprintf("Monthly passive refill %s", period),
	}, nil
}

// NewEligibilityMarker creates the zero-amount marker recording that the user
// first reached their earning cap. Inserted at most once per user.
func NewEligibilityMarker(userID uuid.UUID) (*LedgerEntry, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Beneficiary cannot be empty")
	}

	return &LedgerEntry{
		BaseEntity:  shared.NewBaseEntity(),
		UserID:      userID,
		Amount:      decimal.Zero,
		Kind:        KindEligibilityMarker,
		Description: "Passive income eligibility earned",
	}, nil
}

// IsEngineEntry reports whether this entry counts towards the engine total
func (e *LedgerEntry) IsEngineEntry() bool {
	return e.Kind.IsEngineKind()
}

// IsCredit reports whether this entry credits the beneficiary
func (e *LedgerEntry) IsCredit() bool {
	return e.Amount.IsPositive()
}
