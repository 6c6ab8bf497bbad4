package referral

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/maraline/backend/internal/domain/identity"
	"github.com/maraline/backend/internal/domain/referral"
	"github.com/maraline/backend/internal/domain/shared"
	"github.com/maraline/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config holds the compensation plan parameters
type Config struct {
	// BonusAmount is the fixed credit per direct or chain bonus event.
	// Chain levels are not decayed, every ancestor receives the full amount.
	BonusAmount decimal.Decimal

	// EarningCap is the per-user ceiling on the engine total (direct plus
	// chain bonuses). Passive payouts are not counted against it.
	EarningCap decimal.Decimal

	// ActivitySpendThreshold is the cumulative approved-order spend that
	// activates a referred user.
	ActivitySpendThreshold decimal.Decimal

	// ReferralLimit is the default number of inactive direct referrals a
	// sponsor may hold before the oldest is pruned.
	ReferralLimit int

	// AdminReferralLimit replaces ReferralLimit for admin sponsors.
	AdminReferralLimit int

	// AdminHasEarningCap applies the earning cap to admin users too. Admins
	// never receive bonuses either way, the toggle only affects cap reporting.
	AdminHasEarningCap bool

	// ChainDepth bounds bonus propagation up the ancestor tree.
	ChainDepth int
}

// DefaultConfig returns the production compensation plan
func DefaultConfig() Config {
	return Config{
		BonusAmount:            decimal.NewFromInt(200),
		EarningCap:             decimal.NewFromInt(2000),
		ActivitySpendThreshold: decimal.NewFromInt(4000),
		ReferralLimit:          identity.DefaultReferralLimit,
		AdminReferralLimit:     identity.DefaultReferralLimit,
		AdminHasEarningCap:     false,
		ChainDepth:             referral.MaxChainDepth,
	}
}

// RecomputeContext threads recomputation state through the engine call
// chain. The zero value is the live context used by normal order processing.
type RecomputeContext struct {
	// SuppressAllowanceGrant stops first-time passive allowance grants while
	// the ledger is being rebuilt, so replay does not re-fund buckets.
	SuppressAllowanceGrant bool
}

// LiveContext is the context for regular, non-recompute operations.
var LiveContext = RecomputeContext{}

// WithdrawalLedger reports approved payout totals per user. Withdrawals are
// not ledger entries, they are subtracted at wallet-recompute time.
type WithdrawalLedger interface {
	SumApprovedByUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}

// BonusEngine computes referral compensation from ledger truth. All derived
// figures (cap state, wallet balances) are recomputed from the ledger on
// every decision, never cached, so reversals are reflected automatically.
type BonusEngine struct {
	users       identity.UserRepository
	ledger      referral.LedgerRepository
	orders      trade.OrderRepository
	withdrawals WithdrawalLedger
	config      Config
	logger      *zap.Logger
}

// BonusEngineConfig holds dependencies for the bonus engine
type BonusEngineConfig struct {
	UserRepo       identity.UserRepository
	LedgerRepo     referral.LedgerRepository
	OrderRepo      trade.OrderRepository
	WithdrawalRepo WithdrawalLedger
	Config         Config
	Logger         *zap.Logger
}

// NewBonusEngine creates a new BonusEngine
func NewBonusEngine(config BonusEngineConfig) *BonusEngine {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := config.Config
	if cfg.ChainDepth <= 0 || cfg.ChainDepth > referral.MaxChainDepth {
		cfg.ChainDepth = referral.MaxChainDepth
	}
	if cfg.ReferralLimit <= 0 {
		cfg.ReferralLimit = identity.DefaultReferralLimit
	}
	if cfg.AdminReferralLimit <= 0 {
		cfg.AdminReferralLimit = cfg.ReferralLimit
	}

	return &BonusEngine{
		users:       config.UserRepo,
		ledger:      config.LedgerRepo,
		orders:      config.OrderRepo,
		withdrawals: config.WithdrawalRepo,
		config:      cfg,
		logger:      logger,
	}
}

// Config returns the engine's compensation plan parameters
func (e *BonusEngine) Config() Config {
	return e.config
}

// ApplyReferral runs threshold activation and sponsor-side bonus processing
// for one user. Called automatically when the user's cumulative spend crosses
// the activity threshold, or with force=true during replay. orderRefKey, when
// set, correlates every resulting ledger entry to the triggering order.
func (e *BonusEngine) ApplyReferral(ctx context.Context, rc RecomputeContext, userID uuid.UUID, force bool, orderRefKey string) error {
	user, err := e.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if user.SponsorID == nil {
		return nil
	}

	if !user.MetReferralThreshold {
		if !force && user.TotalSpend.LessThan(e.config.ActivitySpendThreshold) {
			return nil
		}
		user.ActivateReferral()
		if err := e.users.Save(ctx, user); err != nil {
			return err
		}
		e.logger.Info("referral activated",
			zap.String("user_id", user.ID.String()),
			zap.String("total_spend", user.TotalSpend.String()))
	}

	return e.processSponsor(ctx, rc, *user.SponsorID, orderRefKey)
}

// processSponsor prunes over-capacity inactive referrals, refreshes the
// sponsor's active count and grants the pair bonus when a new even pair has
// formed.
func (e *BonusEngine) processSponsor(ctx context.Context, rc RecomputeContext, sponsorID uuid.UUID, orderRefKey string) error {
	sponsor, err := e.users.FindByID(ctx, sponsorID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}

	limit := e.referralLimitFor(sponsor)

	activeCount, err := e.users.CountDirectReferrals(ctx, sponsor.ID, true)
	if err != nil {
		return err
	}

	if activeCount >= limit {
		notActivated := false
		inactive, err := e.users.FindDirectReferrals(ctx, sponsor.ID, &notActivated)
		if err != nil {
			return err
		}
		if len(inactive) > 0 {
			oldest := inactive[0]
			oldest.DetachSponsor()
			if err := e.users.Save(ctx, oldest); err != nil {
				return err
			}
			e.logger.Info("pruned oldest inactive referral",
				zap.String("sponsor_id", sponsor.ID.String()),
				zap.String("detached_user_id", oldest.ID.String()))
		}
	}

	activeCount, err = e.users.CountDirectReferrals(ctx, sponsor.ID, true)
	if err != nil {
		return err
	}
	sponsor.SetActiveReferralCount(activeCount)
	if err := e.users.Save(ctx, sponsor); err != nil {
		return err
	}

	capReached, err := e.capReached(ctx, sponsor)
	if err != nil {
		return err
	}

	if sponsor.IsAdmin() || capReached || activeCount < 2 || activeCount%2 != 0 {
		return nil
	}

	pairIndex := activeCount

	exists, err := e.ledger.HasDirectBonus(ctx, sponsor.ID, pairIndex)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	entry, err := referral.NewDirectBonusEntry(sponsor.ID, e.config.BonusAmount, pairIndex, orderRefKey)
	if err != nil {
		return err
	}
	if err := e.ledger.Insert(ctx, entry); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil
		}
		return err
	}

	e.logger.Info("direct pair bonus granted",
		zap.String("sponsor_id", sponsor.ID.String()),
		zap.Int("pair_index", pairIndex),
		zap.String("amount", e.config.BonusAmount.String()),
		zap.String("order_ref_key", orderRefKey))

	if err := e.RecomputeWallet(ctx, sponsor); err != nil {
		return err
	}
	if err := e.checkPassiveEligibility(ctx, rc, sponsor); err != nil {
		return err
	}

	return e.propagateChainBonus(ctx, rc, sponsor, pairIndex, orderRefKey)
}

// propagateChainBonus walks the ancestor chain above the pair owner's own
// sponsor, one level at a time, crediting each eligible ancestor. Admin and
// capped ancestors are skipped but the walk continues past them.
func (e *BonusEngine) propagateChainBonus(ctx context.Context, rc RecomputeContext, pairOwner *identity.User, pairIndex int, orderRefKey string) error {
	current := pairOwner
	for level := 1; level <= e.config.ChainDepth; level++ {
		if current.SponsorID == nil {
			return nil
		}
		ancestor, err := e.users.FindByID(ctx, *current.SponsorID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil
			}
			return err
		}

		eligible := !ancestor.IsAdmin()
		if eligible {
			capReached, err := e.capReached(ctx, ancestor)
			if err != nil {
				return err
			}
			eligible = !capReached
		}

		if eligible {
			exists, err := e.ledger.HasChainBonus(ctx, ancestor.ID, level, pairOwner.ID, pairIndex)
			if err != nil {
				return err
			}
			if !exists {
				entry, err := referral.NewChainBonusEntry(ancestor.ID, e.config.BonusAmount, level, pairOwner.ID, pairIndex, orderRefKey)
				if err != nil {
					return err
				}
				err = e.ledger.Insert(ctx, entry)
				switch {
				case err == nil:
					e.logger.Info("chain bonus granted",
						zap.String("ancestor_id", ancestor.ID.String()),
						zap.Int("level", level),
						zap.String("pair_owner_id", pairOwner.ID.String()),
						zap.Int("pair_index", pairIndex))
					if err := e.RecomputeWallet(ctx, ancestor); err != nil {
						return err
					}
					if err := e.checkPassiveEligibility(ctx, rc, ancestor); err != nil {
						return err
					}
				case errors.Is(err, shared.ErrAlreadyExists):
					// concurrent writer got there first, keep walking
				default:
					return err
				}
			}
		}

		current = ancestor
	}
	return nil
}

// ApplyOrderEffects applies the referral side effects of an approved order.
// Safe to call more than once, the order's ReferralProcessed flag guards
// re-application.
func (e *BonusEngine) ApplyOrderEffects(ctx context.Context, order *trade.Order) error {
	if !order.IsApproved() {
		return nil
	}
	if order.ReferralProcessed {
		return nil
	}

	buyer, err := e.users.FindByID(ctx, order.BuyerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}

	wasActivated := buyer.MetReferralThreshold
	if err := buyer.AddSpend(order.TotalAmount); err != nil {
		return err
	}
	if err := e.users.Save(ctx, buyer); err != nil {
		return err
	}

	if !wasActivated && buyer.TotalSpend.GreaterThanOrEqual(e.config.ActivitySpendThreshold) {
		if err := e.ApplyReferral(ctx, LiveContext, buyer.ID, true, order.OrderRefKey); err != nil {
			return err
		}
	}

	order.MarkReferralProcessed()
	return e.orders.Save(ctx, order)
}

// RevertOrderEffects undoes the referral side effects of a previously
// approved order: spend is rolled back, now-unjustified pair bonuses are
// clawed back network-wide and every affected wallet is recomputed from the
// ledger.
func (e *BonusEngine) RevertOrderEffects(ctx context.Context, order *trade.Order) error {
	if !order.ReferralProcessed && order.OrderRefKey == "" {
		return nil
	}

	affected := make(map[uuid.UUID]struct{})

	buyer, err := e.users.FindByID(ctx, order.BuyerID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	if buyer != nil {
		if err := buyer.ReduceSpend(order.TotalAmount); err != nil {
			return err
		}
		if buyer.MetReferralThreshold && buyer.TotalSpend.LessThan(e.config.ActivitySpendThreshold) {
			buyer.DeactivateReferral()
		}
		if err := e.users.Save(ctx, buyer); err != nil {
			return err
		}

		if buyer.SponsorID != nil {
			sponsor, err := e.users.FindByID(ctx, *buyer.SponsorID)
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			if sponsor != nil {
				activeCount, err := e.users.CountDirectReferrals(ctx, sponsor.ID, true)
				if err != nil {
					return err
				}
				sponsor.SetActiveReferralCount(activeCount)
				if err := e.users.Save(ctx, sponsor); err != nil {
					return err
				}

				clawedBack, err := e.RemoveInvalidPairBonuses(ctx, sponsor)
				if err != nil {
					return err
				}
				for _, id := range clawedBack {
					affected[id] = struct{}{}
				}

				affected[sponsor.ID] = struct{}{}
				if err := e.collectAncestors(ctx, sponsor, affected); err != nil {
					return err
				}
			}
		}
	}

	if order.OrderRefKey != "" {
		entries, err := e.ledger.FindByOrderRefKey(ctx, order.OrderRefKey)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			ids := make([]uuid.UUID, 0, len(entries))
			for _, entry := range entries {
				ids = append(ids, entry.ID)
				affected[entry.UserID] = struct{}{}
			}
			if err := e.ledger.Remove(ctx, ids); err != nil {
				return err
			}
			e.logger.Info("removed order-correlated ledger entries",
				zap.String("order_ref_key", order.OrderRefKey),
				zap.Int("count", len(ids)))
		}
	}

	for id := range affected {
		user, err := e.users.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return err
		}
		if err := e.RecomputeWallet(ctx, user); err != nil {
			return err
		}
		if err := e.revalidatePassiveEligibility(ctx, user); err != nil {
			return err
		}
	}

	order.ClearReferralProcessed()
	return e.orders.Save(ctx, order)
}

// GetOrderDistributedBonusTotal sums the positive engine bonuses correlated
// to one order. Invoicing uses it to compute the platform fee split.
func (e *BonusEngine) GetOrderDistributedBonusTotal(ctx context.Context, orderRefKey string) (decimal.Decimal, error) {
	if orderRefKey == "" {
		return decimal.Zero, nil
	}
	return e.ledger.SumBonusesForOrder(ctx, orderRefKey)
}

// RemoveInvalidPairBonuses claws back pair bonuses whose justifying even
// pair count no longer holds, together with every chain bonus derived from
// them anywhere in the network. Returns the beneficiaries whose wallets need
// recomputation.
func (e *BonusEngine) RemoveInvalidPairBonuses(ctx context.Context, sponsor *identity.User) ([]uuid.UUID, error) {
	activeCount, err := e.users.CountDirectReferrals(ctx, sponsor.ID, true)
	if err != nil {
		return nil, err
	}
	highestValidEven := (activeCount / 2) * 2

	invalidDirect, err := e.ledger.FindDirectBonusesAbovePair(ctx, sponsor.ID, highestValidEven)
	if err != nil {
		return nil, err
	}
	if len(invalidDirect) == 0 {
		return nil, nil
	}

	pairIndexes := make([]int, 0, len(invalidDirect))
	ids := make([]uuid.UUID, 0, len(invalidDirect))
	affected := make(map[uuid.UUID]struct{})
	for _, entry := range invalidDirect {
		pairIndexes = append(pairIndexes, entry.PairIndex)
		ids = append(ids, entry.ID)
		affected[entry.UserID] = struct{}{}
	}

	derivedChains, err := e.ledger.FindChainBonusesForPairs(ctx, sponsor.ID, pairIndexes)
	if err != nil {
		return nil, err
	}
	for _, entry := range derivedChains {
		ids = append(ids, entry.ID)
		affected[entry.UserID] = struct{}{}
	}

	if err := e.ledger.Remove(ctx, ids); err != nil {
		return nil, err
	}

	e.logger.Info("clawed back invalid pair bonuses",
		zap.String("sponsor_id", sponsor.ID.String()),
		zap.Int("active_count", activeCount),
		zap.Ints("pair_indexes", pairIndexes),
		zap.Int("removed", len(ids)))

	result := make([]uuid.UUID, 0, len(affected))
	for id := range affected {
		result = append(result, id)
	}
	return result, nil
}

// RecalculateAllEarnings rebuilds the engine side of the ledger from
// scratch. Passive payout entries are preserved. Replay runs in registration
// order, pair-bonus eligibility depends on the order in which referrals
// activated.
func (e *BonusEngine) RecalculateAllEarnings(ctx context.Context) error {
	rc := RecomputeContext{SuppressAllowanceGrant: true}

	if err := e.ledger.DeleteEngineEntries(ctx); err != nil {
		return err
	}

	users, err := e.users.FindAllOrderedByRegistration(ctx)
	if err != nil {
		return err
	}

	for _, user := range users {
		user.SetWallet(decimal.Zero, decimal.Zero)
		user.SetActiveReferralCount(0)
		if user.MetReferralThreshold {
			user.DeactivateReferral()
		}
		if err := e.users.Save(ctx, user); err != nil {
			return err
		}
	}

	for _, user := range users {
		if user.SponsorID == nil {
			continue
		}
		if user.TotalSpend.LessThan(e.config.ActivitySpendThreshold) {
			continue
		}
		if err := e.ApplyReferral(ctx, rc, user.ID, true, ""); err != nil {
			return err
		}
	}

	for _, user := range users {
		fresh, err := e.users.FindByID(ctx, user.ID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return err
		}
		if err := e.RecomputeWallet(ctx, fresh); err != nil {
			return err
		}
	}

	e.logger.Info("recalculated all earnings", zap.Int("users", len(users)))
	return nil
}

// RecomputeWallet rebuilds the user's derived wallet fields from ledger
// truth: lifetime earnings from positive entries, withdrawable balance net
// of approved withdrawals. Persists the user.
func (e *BonusEngine) RecomputeWallet(ctx context.Context, user *identity.User) error {
	earnings, err := e.ledger.EarningsTotal(ctx, user.ID)
	if err != nil {
		return err
	}
	withdrawn, err := e.withdrawals.SumApprovedByUser(ctx, user.ID)
	if err != nil {
		return err
	}
	user.SetWallet(earnings, earnings.Sub(withdrawn))
	return e.users.Save(ctx, user)
}

// checkPassiveEligibility grants passive income rights when the user's
// engine total first reaches the cap: one zero-amount marker entry, plus a
// first-time allowance grant unless the recompute context suppresses it.
func (e *BonusEngine) checkPassiveEligibility(ctx context.Context, rc RecomputeContext, user *identity.User) error {
	if user.IsAdmin() {
		return nil
	}

	engineTotal, err := e.ledger.EngineTotal(ctx, user.ID)
	if err != nil {
		return err
	}
	if engineTotal.LessThan(e.config.EarningCap) {
		return nil
	}

	hasMarker, err := e.ledger.HasEligibilityMarker(ctx, user.ID)
	if err != nil {
		return err
	}
	if !hasMarker {
		marker, err := referral.NewEligibilityMarker(user.ID)
		if err != nil {
			return err
		}
		if err := e.ledger.Insert(ctx, marker); err != nil && !errors.Is(err, shared.ErrAlreadyExists) {
			return err
		}
	}

	if !rc.SuppressAllowanceGrant && user.MonthlyPassiveAllowance.IsZero() {
		user.GrantPassiveAllowance(e.config.EarningCap)
		if err := e.users.Save(ctx, user); err != nil {
			return err
		}
		e.logger.Info("passive allowance granted",
			zap.String("user_id", user.ID.String()),
			zap.String("amount", e.config.EarningCap.String()))
	}

	return nil
}

// revalidatePassiveEligibility revokes an unpaid allowance when a reversal
// drops the user's engine total back below the cap.
func (e *BonusEngine) revalidatePassiveEligibility(ctx context.Context, user *identity.User) error {
	if user.MonthlyPassiveAllowance.IsZero() {
		return nil
	}
	engineTotal, err := e.ledger.EngineTotal(ctx, user.ID)
	if err != nil {
		return err
	}
	if engineTotal.GreaterThanOrEqual(e.config.EarningCap) {
		return nil
	}

	user.ClearPassiveAllowance()
	if err := e.users.Save(ctx, user); err != nil {
		return err
	}
	e.logger.Info("passive allowance revoked",
		zap.String("user_id", user.ID.String()),
		zap.String("engine_total", engineTotal.String()))
	return nil
}

// capReached evaluates the earning cap freshly from ledger sums
func (e *BonusEngine) capReached(ctx context.Context, user *identity.User) (bool, error) {
	if user.IsAdmin() && !e.config.AdminHasEarningCap {
		return false, nil
	}
	engineTotal, err := e.ledger.EngineTotal(ctx, user.ID)
	if err != nil {
		return false, err
	}
	return engineTotal.GreaterThanOrEqual(e.config.EarningCap), nil
}

// collectAncestors adds the sponsor chain above the user, up to the
// configured depth, into the affected set
func (e *BonusEngine) collectAncestors(ctx context.Context, user *identity.User, affected map[uuid.UUID]struct{}) error {
	current := user
	for level := 1; level <= e.config.ChainDepth; level++ {
		if current.SponsorID == nil {
			return nil
		}
		ancestor, err := e.users.FindByID(ctx, *current.SponsorID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil
			}
			return err
		}
		affected[ancestor.ID] = struct{}{}
		current = ancestor
	}
	return nil
}

// referralLimitFor resolves the sponsor's capacity limit, per-user override
// first, then the role default
func (e *BonusEngine) referralLimitFor(sponsor *identity.User) int {
	def := e.config.ReferralLimit
	if sponsor.IsAdmin() {
		def = e.config.AdminReferralLimit
	}
	return sponsor.ReferralLimit(def)
}
