package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maraline/backend/internal/domain/referral"
	"github.com/maraline/backend/internal/domain/shared"
)

func newLedgerRepo(t *testing.T) *GormLedgerRepository {
	return NewGormLedgerRepository(setupTestDB(t))
}

func mustDirectBonus(t *testing.T, userID uuid.UUID, amount int64, pairIndex int, orderRefKey string) *referral.LedgerEntry {
	t.Helper()
	entry, err := referral.NewDirectBonusEntry(userID, decimal.NewFromInt(amount), pairIndex, orderRefKey)
	require.NoError(t, err)
	return entry
}

func mustChainBonus(t *testing.T, userID uuid.UUID, amount int64, level int, pairOwnerID uuid.UUID, pairIndex int, orderRefKey string) *referral.LedgerEntry {
	t.Helper()
	entry, err := referral.NewChainBonusEntry(userID, decimal.NewFromInt(amount), level, pairOwnerID, pairIndex, orderRefKey)
	require.NoError(t, err)
	return entry
}

func TestGormLedgerRepository_InsertAndFind(t *testing.T) {
	repo := newLedgerRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	entry := mustDirectBonus(t, userID, 100, 2, "order-ref-1")
	require.NoError(t, repo.Insert(ctx, entry))

	found, err := repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, userID, found.UserID)
	assert.Equal(t, referral.KindDirectBonus, found.Kind)
	assert.Equal(t, 2, found.PairIndex)
	assert.Equal(t, "order-ref-1", found.OrderRefKey)
	assert.True(t, found.Amount.Equal(decimal.NewFromInt(100)))

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormLedgerRepository_DuplicateDirectBonus(t *testing.T) {
	repo := newLedgerRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, repo.Insert(ctx, mustDirectBonus(t, userID, 100, 2, "order-a")))

	// Same user and pair index, even from a different order, is a duplicate
	err := repo.Insert(ctx, mustDirectBonus(t, userID, 100, 2, "order-b"))
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	// The next pair index is fine
	assert.NoError(t, repo.Insert(ctx, mustDirectBonus(t, userID, 100, 4, "order-b")))

	// Another user may hold the same pair index
	assert.NoError(t, repo.Insert(ctx, mustDirectBonus(t, uuid.New(), 100, 2, "order-c")))
}

func TestGormLedgerRepository_DuplicateChainBonus(t *testing.T) {
	repo := newLedgerRepo(t)
	ctx := context.Background()
	userID := uuid.New()
	pairOwner := uuid.New()

	require.NoError(t, repo.Insert(ctx, mustChainBonus(t, userID, 100, 1, pairOwner, 2, "order-a")))

	err := repo.Insert(ctx, mustChainBonus(t, userID, 100, 1, pairOwner, 2, "order-b"))
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	// Different level, pair owner or pair index are distinct grants
	assert.NoError(t, repo.Insert(ctx, mustChainBonus(t, userID, 100, 2, pairOwner, 2, "order-a")))
	assert.NoError(t, repo.Insert(ctx, mustChainBonus(t, userID, 100, 1, uuid.New(), 2, "order-a")))
	assert.NoError(t, repo.Insert(ctx, mustChainBonus(t, userID, 100, 1, pairOwner, 4, "order-a")))
}

func TestGormLedgerRepository_DuplicateMarkers(t *testing.T) {
	repo := newLedgerRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	marker, err := referral.NewEligibilityMarker(userID)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, marker))

	again, err := referral.NewEligibilityMarker(userID)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Insert(ctx, again), shared.ErrAlreadyExists)

	refill, err := referral.NewPassiveRefillMarker(userID, "2026-08")
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, refill))

	refillAgain, err := referral.NewPassiveRefillMarker(userID, "2026-08")
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Insert(ctx, refillAgain), shared.ErrAlreadyExists)

	// A new period is a fresh refill
	nextMonth, err := referral.NewPassiveRefillMarker(userID, "2026-09")
	require.NoError(t, err)
	assert.NoError(t, repo.Insert(ctx, nextMonth))

	payout, err := referral.NewPassivePayoutEntry(userID, decimal.NewFromInt(250), "2026-08")
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, payout))

	payoutAgain, err := referral.NewPassivePayoutEntry(userID, decimal.NewFromInt(250), "2026-08")
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Insert(ctx, payoutAgain), shared.ErrAlreadyExists)
}

func TestGormLedgerRepository_ExistenceChecks(t *testing.T) {
	repo := newLedgerRepo(t)
	ctx := context.Background()
	userID := uuid.New()
	pairOwner := uuid.New()

	require.NoError(t, repo.Insert(ctx, mustDirectBonus(t, userID, 100, 2, "order-a")))
	require.NoError(t, repo.Insert(ctx, mustChainBonus(t, userID, 100, 3, pairOwner, 2, "order-a")))

	has, err := repo.HasDirectBonus(ctx, userID, 2)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = repo.HasDirectBonus(ctx, userID, 4)
	require.NoError(t, err)
	assert.False(t, has)

	has, err = repo.HasChainBonus(ctx, userID, 3, pairOwner, 2)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = repo.HasChainBonus(ctx, userID, 2, pairOwner, 2)
	require.NoError(t, err)
	assert.False(t, has)

	has, err = repo.HasEligibilityMarker(ctx, userID)
	require.NoError(t, err)
	assert.False(t, has)

	marker, err := referral.NewEligibilityMarker(userID)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, marker))

	has, err = repo.HasEligibilityMarker(ctx, userID)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = repo.HasRefillForPeriod(ctx, userID, "2026-08")
	require.NoError(t, err)
	assert.False(t, has)

	refill, err := referral.NewPassiveRefillMarker(userID, "2026-08")
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, refill))

	has, err = repo.HasRefillForPeriod(ctx, userID, "2026-08")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = repo.HasPayoutForPeriod(ctx, userID, "2026-08")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestGormLedgerRepository_Totals(t *testing.T) {
	repo := newLedgerRepo(t)
	ctx := context.Background()
	userID := uuid.New()
	pairOwner := uuid.New()

	require.NoError(t, repo.Insert(ctx, mustDirectBonus(t, userID, 100, 2, "order-a")))
	require.NoError(t, repo.Insert(ctx, mustChainBonus(t, userID, 100, 1, pairOwner, 2, "order-a")))

	payout, err := referral.NewPassivePayoutEntry(userID, decimal.NewFromInt(250), "2026-08")
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, payout))

	// Another user's entries must not leak into the totals
	require.NoError(t, repo.Insert(ctx, mustDirectBonus(t, uuid.New(), 500, 2, "order-x")))

	engine, err := repo.EngineTotal(ctx, userID)
	require.NoError(t, err)
	assert.True(t, engine.Equal(decimal.NewFromInt(200)), "engine total should exclude passive payouts, got %s", engine)

	earnings, err := repo.EarningsTotal(ctx, userID)
	require.NoError(t, err)
	assert.True(t, earnings.Equal(decimal.NewFromInt(450)), "earnings total should include passive payouts, got %s", earnings)

	empty, err := repo.EngineTotal(ctx, uuid.New())
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
}

func TestGormLedgerRepository_OrderCorrelation(t *testing.T) {
	repo := newLedgerRepo(t)
	ctx := context.Background()
	sponsor := uuid.New()
	ancestor := uuid.New()

	require.NoError(t, repo.Insert(ctx, mustDirectBonus(t, sponsor, 100, 2, "order-a")))
	require.NoError(t, repo.Insert(ctx, mustChainBonus(t, ancestor, 100, 1, sponsor, 2, "order-a")))
	require.NoError(t, repo.Insert(ctx, mustDirectBonus(t, sponsor, 100, 4, "order-b")))

	entries, err := repo.FindByOrderRefKey(ctx, "order-a")
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	total, err := repo.SumBonusesForOrder(ctx, "order-a")
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(200)))

	total, err = repo.SumBonusesForOrder(ctx, "order-unknown")
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestGormLedgerRepository_ClawbackQueries(t *testing.T) {
	repo := newLedgerRepo(t)
	ctx := context.Background()
	sponsor := uuid.New()
	ancestor := uuid.New()

	require.NoError(t, repo.Insert(ctx, mustDirectBonus(t, sponsor, 100, 2, "order-a")))
	require.NoError(t, repo.Insert(ctx, mustDirectBonus(t, sponsor, 100, 4, "order-b")))
	require.NoError(t, repo.Insert(ctx, mustDirectBonus(t, sponsor, 100, 6, "order-c")))
	require.NoError(t, repo.Insert(ctx, mustChainBonus(t, ancestor, 100, 1, sponsor, 4, "order-b")))
	require.NoError(t, repo.Insert(ctx, mustChainBonus(t, ancestor, 100, 1, sponsor, 6, "order-c")))

	above, err := repo.FindDirectBonusesAbovePair(ctx, sponsor, 2)
	require.NoError(t, err)
	require.Len(t, above, 2)
	assert.Equal(t, 4, above[0].PairIndex)
	assert.Equal(t, 6, above[1].PairIndex)

	chains, err := repo.FindChainBonusesForPairs(ctx, sponsor, []int{4, 6})
	require.NoError(t, err)
	assert.Len(t, chains, 2)

	none, err := repo.FindChainBonusesForPairs(ctx, sponsor, nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	ids := []uuid.UUID{above[0].ID, above[1].ID, chains[0].ID, chains[1].ID}
	require.NoError(t, repo.Remove(ctx, ids))

	remaining, err := repo.FindDirectBonusesAbovePair(ctx, sponsor, 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, 2, remaining[0].PairIndex)

	// Removing nothing is a no-op
	assert.NoError(t, repo.Remove(ctx, nil))
}

func TestGormLedgerRepository_DeleteEngineEntries(t *testing.T) {
	repo := newLedgerRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, repo.Insert(ctx, mustDirectBonus(t, userID, 100, 2, "order-a")))
	require.NoError(t, repo.Insert(ctx, mustChainBonus(t, uuid.New(), 100, 1, userID, 2, "order-a")))

	payout, err := referral.NewPassivePayoutEntry(userID, decimal.NewFromInt(250), "2026-08")
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, payout))

	marker, err := referral.NewEligibilityMarker(userID)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, marker))

	require.NoError(t, repo.DeleteEngineEntries(ctx))

	engine, err := repo.EngineTotal(ctx, userID)
	require.NoError(t, err)
	assert.True(t, engine.IsZero())

	// Payouts and markers survive a recompute wipe
	has, err := repo.HasPayoutForPeriod(ctx, userID, "2026-08")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = repo.HasEligibilityMarker(ctx, userID)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestGormLedgerRepository_FindByUser(t *testing.T) {
	repo := newLedgerRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, repo.Insert(ctx, mustDirectBonus(t, userID, 100, 2, "order-a")))
	require.NoError(t, repo.Insert(ctx, mustDirectBonus(t, userID, 100, 4, "order-b")))
	payout, err := referral.NewPassivePayoutEntry(userID, decimal.NewFromInt(250), "2026-08")
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, payout))

	entries, total, err := repo.FindByUser(ctx, userID, referral.LedgerFilter{Filter: shared.DefaultFilter()})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, entries, 3)

	kind := referral.KindDirectBonus
	entries, total, err = repo.FindByUser(ctx, userID, referral.LedgerFilter{Filter: shared.DefaultFilter(), Kind: &kind})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, e := range entries {
		assert.Equal(t, referral.KindDirectBonus, e.Kind)
	}

	// Pagination caps the page size
	filter := referral.LedgerFilter{Filter: shared.Filter{Page: 1, PageSize: 2}}
	entries, total, err = repo.FindByUser(ctx, userID, filter)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, entries, 2)
}
