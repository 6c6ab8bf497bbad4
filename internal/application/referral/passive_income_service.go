package referral

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/maraline/backend/internal/domain/identity"
	"github.com/maraline/backend/internal/domain/referral"
	"github.com/maraline/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// PendingOrderChecker reports whether a buyer has orders awaiting approval
type PendingOrderChecker interface {
	HasPendingOrders(ctx context.Context, buyerID uuid.UUID) (bool, error)
}

// PassiveIncomeService runs the two monthly batch operations of the passive
// income program. Refill funds the allowance bucket for capped users,
// distribution pays it out. They are deliberately separate so an operator can
// re-run either one safely: both are idempotent per calendar month through
// ledger marker entries.
type PassiveIncomeService struct {
	engine *BonusEngine
	users  identity.UserRepository
	ledger referral.LedgerRepository
	orders PendingOrderChecker
	logger *zap.Logger
	now    func() time.Time
}

// PassiveIncomeServiceConfig holds dependencies for the passive income service
type PassiveIncomeServiceConfig struct {
	Engine     *BonusEngine
	UserRepo   identity.UserRepository
	LedgerRepo referral.LedgerRepository
	OrderRepo  PendingOrderChecker
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewPassiveIncomeService creates a new PassiveIncomeService
func NewPassiveIncomeService(config PassiveIncomeServiceConfig) *PassiveIncomeService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &PassiveIncomeService{
		engine: config.Engine,
		users:  config.UserRepo,
		ledger: config.LedgerRepo,
		orders: config.OrderRepo,
		logger: logger,
		now:    now,
	}
}

// RefillMonthlyPassive funds the allowance bucket for every non-admin user
// whose engine total has reached the cap and who has not yet been refilled
// this calendar month. Admin allowances are forced to zero in the same pass.
// Returns the number of users refilled.
func (s *PassiveIncomeService) RefillMonthlyPassive(ctx context.Context) (int, error) {
	period := referral.PeriodOf(s.now())
	cap := s.engine.Config().EarningCap

	users, err := s.users.FindAllOrderedByRegistration(ctx)
	if err != nil {
		return 0, err
	}

	refilled := 0
	for _, user := range users {
		if user.IsAdmin() {
			if !user.MonthlyPassiveAllowance.IsZero() {
				user.ClearPassiveAllowance()
				if err := s.users.Save(ctx, user); err != nil {
					return refilled, err
				}
			}
			continue
		}

		engineTotal, err := s.ledger.EngineTotal(ctx, user.ID)
		if err != nil {
			return refilled, err
		}
		if engineTotal.LessThan(cap) {
			continue
		}

		done, err := s.ledger.HasRefillForPeriod(ctx, user.ID, period)
		if err != nil {
			return refilled, err
		}
		if done {
			continue
		}

		marker, err := referral.NewPassiveRefillMarker(user.ID, period)
		if err != nil {
			return refilled, err
		}
		if err := s.ledger.Insert(ctx, marker); err != nil {
			if errors.Is(err, shared.ErrAlreadyExists) {
				continue
			}
			return refilled, err
		}

		user.GrantPassiveAllowance(cap)
		if err := s.users.Save(ctx, user); err != nil {
			return refilled, err
		}
		refilled++
	}

	s.logger.Info("monthly passive refill finished",
		zap.String("period", period),
		zap.Int("refilled", refilled))
	return refilled, nil
}

// DistributeMonthlyPassive pays out every positive allowance bucket as a
// ledger credit and zeroes the bucket. Buyers with orders still awaiting
// approval are skipped this cycle. Returns the number of users paid.
func (s *PassiveIncomeService) DistributeMonthlyPassive(ctx context.Context) (int, error) {
	period := referral.PeriodOf(s.now())

	users, err := s.users.FindAllOrderedByRegistration(ctx)
	if err != nil {
		return 0, err
	}

	paid := 0
	for _, user := range users {
		if user.MonthlyPassiveAllowance.IsZero() || user.MonthlyPassiveAllowance.IsNegative() {
			continue
		}

		if user.IsAdmin() {
			user.ClearPassiveAllowance()
			if err := s.users.Save(ctx, user); err != nil {
				return paid, err
			}
			continue
		}

		pending, err := s.orders.HasPendingOrders(ctx, user.ID)
		if err != nil {
			return paid, err
		}
		if pending {
			s.logger.Debug("skipping passive payout, buyer has unapproved orders",
				zap.String("user_id", user.ID.String()))
			continue
		}

		done, err := s.ledger.HasPayoutForPeriod(ctx, user.ID, period)
		if err != nil {
			return paid, err
		}
		if done {
			continue
		}

		entry, err := referral.NewPassivePayoutEntry(user.ID, user.MonthlyPassiveAllowance, period)
		if err != nil {
			return paid, err
		}
		if err := s.ledger.Insert(ctx, entry); err != nil {
			if errors.Is(err, shared.ErrAlreadyExists) {
				continue
			}
			return paid, err
		}

		user.ClearPassiveAllowance()
		if err := s.users.Save(ctx, user); err != nil {
			return paid, err
		}
		if err := s.engine.RecomputeWallet(ctx, user); err != nil {
			return paid, err
		}
		paid++
	}

	s.logger.Info("monthly passive distribution finished",
		zap.String("period", period),
		zap.Int("paid", paid))
	return paid, nil
}
