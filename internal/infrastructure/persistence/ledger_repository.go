package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/maraline/backend/internal/domain/referral"
	"github.com/maraline/backend/internal/domain/shared"
	"github.com/maraline/backend/internal/infrastructure/persistence/models"
)

// engineKinds are the entry kinds counted towards the earning-cap total
var engineKinds = []referral.EntryKind{referral.KindDirectBonus, referral.KindChainBonus}

// earningKinds are the entry kinds counted towards lifetime earnings
var earningKinds = []referral.EntryKind{referral.KindDirectBonus, referral.KindChainBonus, referral.KindPassivePayout}

// GormLedgerRepository implements referral.LedgerRepository using GORM.
//
// Insert relies on the partial unique indexes declared on LedgerEntryModel:
// a concurrent or repeated grant for the same idempotency key is rejected by
// the database and surfaced as shared.ErrAlreadyExists.
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// Insert appends a new ledger entry
func (r *GormLedgerRepository) Insert(ctx context.Context, entry *referral.LedgerEntry) error {
	model := models.LedgerEntryModelFromDomain(entry)
	if err := session(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateKey(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// FindByID finds an entry by ID
func (r *GormLedgerRepository) FindByID(ctx context.Context, id uuid.UUID) (*referral.LedgerEntry, error) {
	var model models.LedgerEntryModel
	if err := session(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByUser lists a user's entries, most recent first
func (r *GormLedgerRepository) FindByUser(ctx context.Context, userID uuid.UUID, filter referral.LedgerFilter) ([]*referral.LedgerEntry, int64, error) {
	query := session(ctx, r.db).
		Model(&models.LedgerEntryModel{}).
		Where("user_id = ?", userID)
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Filter)

	var rows []models.LedgerEntryModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	entries := make([]*referral.LedgerEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, total, nil
}

// HasDirectBonus checks whether the user already holds a direct bonus for the pair index
func (r *GormLedgerRepository) HasDirectBonus(ctx context.Context, userID uuid.UUID, pairIndex int) (bool, error) {
	var count int64
	if err := session(ctx, r.db).
		Model(&models.LedgerEntryModel{}).
		Where("user_id = ? AND kind = ? AND pair_index = ?", userID, referral.KindDirectBonus, pairIndex).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// HasChainBonus checks whether the user already holds a chain bonus for the
// (level, pair owner, pair index) combination
func (r *GormLedgerRepository) HasChainBonus(ctx context.Context, userID uuid.UUID, level int, pairOwnerID uuid.UUID, pairIndex int) (bool, error) {
	var count int64
	if err := session(ctx, r.db).
		Model(&models.LedgerEntryModel{}).
		Where("user_id = ? AND kind = ? AND level = ? AND pair_owner_id = ? AND pair_index = ?",
			userID, referral.KindChainBonus, level, pairOwnerID, pairIndex).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// HasEligibilityMarker checks whether the user's cap-reached marker exists
func (r *GormLedgerRepository) HasEligibilityMarker(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	if err := session(ctx, r.db).
		Model(&models.LedgerEntryModel{}).
		Where("user_id = ? AND kind = ?", userID, referral.KindEligibilityMarker).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// HasRefillForPeriod checks whether the user received a passive refill in the period
func (r *GormLedgerRepository) HasRefillForPeriod(ctx context.Context, userID uuid.UUID, period string) (bool, error) {
	return r.hasPeriodMarker(ctx, userID, referral.KindPassiveRefill, period)
}

// HasPayoutForPeriod checks whether the user received a passive payout in the period
func (r *GormLedgerRepository) HasPayoutForPeriod(ctx context.Context, userID uuid.UUID, period string) (bool, error) {
	return r.hasPeriodMarker(ctx, userID, referral.KindPassivePayout, period)
}

func (r *GormLedgerRepository) hasPeriodMarker(ctx context.Context, userID uuid.UUID, kind referral.EntryKind, period string) (bool, error) {
	var count int64
	if err := session(ctx, r.db).
		Model(&models.LedgerEntryModel{}).
		Where("user_id = ? AND kind = ? AND period = ?", userID, kind, period).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// EngineTotal sums the user's positive direct and chain bonus entries
func (r *GormLedgerRepository) EngineTotal(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	return r.sumPositive(ctx, userID, engineKinds)
}

// EarningsTotal sums the user's positive direct, chain and passive-payout entries
func (r *GormLedgerRepository) EarningsTotal(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	return r.sumPositive(ctx, userID, earningKinds)
}

func (r *GormLedgerRepository) sumPositive(ctx context.Context, userID uuid.UUID, kinds []referral.EntryKind) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := session(ctx, r.db).
		Model(&models.LedgerEntryModel{}).
		Where("user_id = ? AND kind IN ? AND amount > 0", userID, kinds).
		Select("COALESCE(SUM(amount), 0)").
		Row().Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// FindByOrderRefKey returns every entry correlated to the order
func (r *GormLedgerRepository) FindByOrderRefKey(ctx context.Context, orderRefKey string) ([]*referral.LedgerEntry, error) {
	var rows []models.LedgerEntryModel
	if err := session(ctx, r.db).
		Where("order_ref_key = ?", orderRefKey).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]*referral.LedgerEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, nil
}

// SumBonusesForOrder sums the positive engine bonuses correlated to the order
func (r *GormLedgerRepository) SumBonusesForOrder(ctx context.Context, orderRefKey string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := session(ctx, r.db).
		Model(&models.LedgerEntryModel{}).
		Where("order_ref_key = ? AND kind IN ? AND amount > 0", orderRefKey, engineKinds).
		Select("COALESCE(SUM(amount), 0)").
		Row().Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// FindDirectBonusesAbovePair returns the user's direct bonuses whose pair
// index exceeds the given highest valid even count
func (r *GormLedgerRepository) FindDirectBonusesAbovePair(ctx context.Context, userID uuid.UUID, pairIndex int) ([]*referral.LedgerEntry, error) {
	var rows []models.LedgerEntryModel
	if err := session(ctx, r.db).
		Where("user_id = ? AND kind = ? AND pair_index > ?", userID, referral.KindDirectBonus, pairIndex).
		Order("pair_index ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]*referral.LedgerEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, nil
}

// FindChainBonusesForPairs returns every chain bonus, for any beneficiary,
// that references the pair owner with one of the given pair indexes
func (r *GormLedgerRepository) FindChainBonusesForPairs(ctx context.Context, pairOwnerID uuid.UUID, pairIndexes []int) ([]*referral.LedgerEntry, error) {
	if len(pairIndexes) == 0 {
		return nil, nil
	}

	var rows []models.LedgerEntryModel
	if err := session(ctx, r.db).
		Where("kind = ? AND pair_owner_id = ? AND pair_index IN ?", referral.KindChainBonus, pairOwnerID, pairIndexes).
		Order("level ASC, pair_index ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]*referral.LedgerEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, nil
}

// Remove deletes the entries with the given IDs
func (r *GormLedgerRepository) Remove(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return session(ctx, r.db).
		Where("id IN ?", ids).
		Delete(&models.LedgerEntryModel{}).Error
}

// DeleteEngineEntries deletes every direct and chain bonus entry.
// Passive payouts and markers are preserved.
func (r *GormLedgerRepository) DeleteEngineEntries(ctx context.Context) error {
	return session(ctx, r.db).
		Where("kind IN ?", engineKinds).
		Delete(&models.LedgerEntryModel{}).Error
}

// Ensure GormLedgerRepository implements LedgerRepository
var _ referral.LedgerRepository = (*GormLedgerRepository)(nil)
