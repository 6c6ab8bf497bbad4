package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	referralapp "github.com/maraline/backend/internal/application/referral"
	tradeapp "github.com/maraline/backend/internal/application/trade"
	"github.com/maraline/backend/internal/domain/identity"
	"github.com/maraline/backend/internal/domain/referral"
	"github.com/maraline/backend/internal/domain/shared"
	"github.com/maraline/backend/internal/domain/shared/valueobject"
	"github.com/maraline/backend/internal/domain/trade"
)

func newCustomer(t *testing.T, users identity.UserRepository, email string, sponsor *identity.User) *identity.User {
	t.Helper()
	user, err := identity.NewUser(email, "Customer", "Sup3rSecret!", identity.RoleCustomer)
	require.NoError(t, err)
	if sponsor != nil {
		require.NoError(t, user.SetSponsor(sponsor.ID))
	}
	require.NoError(t, users.Save(context.Background(), user))
	return user
}

func TestGormTransactionManagerRollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	users := NewGormUserRepository(db)
	manager := NewGormTransactionManager(db)

	user, err := identity.NewUser("rollback@example.com", "Rollback", "Sup3rSecret!", identity.RoleCustomer)
	require.NoError(t, err)

	sentinel := errors.New("connection reset")
	err = manager.Execute(ctx, func(ctx context.Context) error {
		if err := users.Save(ctx, user); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	_, err = users.FindByID(ctx, user.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormTransactionManagerCommits(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	users := NewGormUserRepository(db)
	manager := NewGormTransactionManager(db)

	user, err := identity.NewUser("commit@example.com", "Commit", "Sup3rSecret!", identity.RoleCustomer)
	require.NoError(t, err)

	require.NoError(t, manager.Execute(ctx, func(ctx context.Context) error {
		return users.Save(ctx, user)
	}))

	found, err := users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, found.Email)
}

// flakyLedger fails a set number of inserts before delegating
type flakyLedger struct {
	referral.LedgerRepository
	failures int
}

func (l *flakyLedger) Insert(ctx context.Context, entry *referral.LedgerEntry) error {
	if l.failures > 0 {
		l.failures--
		return errors.New("connection reset")
	}
	return l.LedgerRepository.Insert(ctx, entry)
}

// A transient failure in the middle of referral application must roll back
// the approval and the already-saved spend, so the retry counts the order
// total exactly once.
func TestOrderApprovalRollsBackReferralEffects(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	users := NewGormUserRepository(db)
	orders := NewGormOrderRepository(db)
	withdrawals := NewGormWithdrawalRepository(db)
	ledger := &flakyLedger{LedgerRepository: NewGormLedgerRepository(db), failures: 1}

	engine := referralapp.NewBonusEngine(referralapp.BonusEngineConfig{
		UserRepo:       users,
		LedgerRepo:     ledger,
		OrderRepo:      orders,
		WithdrawalRepo: withdrawals,
		Config: referralapp.Config{
			BonusAmount:            decimal.NewFromInt(200),
			EarningCap:             decimal.NewFromInt(2000),
			ActivitySpendThreshold: decimal.NewFromInt(4000),
			ReferralLimit:          2,
			AdminReferralLimit:     2,
			ChainDepth:             10,
		},
	})
	service := tradeapp.NewOrderService(tradeapp.OrderServiceConfig{
		Orders:   orders,
		Users:    users,
		Referral: engine,
		Tx:       NewGormTransactionManager(db),
	})

	sponsor := newCustomer(t, users, "sponsor@example.com", nil)

	// one activated referral already in place, the buyer completes the pair
	first := newCustomer(t, users, "first@example.com", sponsor)
	first.ActivateReferral()
	require.NoError(t, users.Save(ctx, first))

	buyer := newCustomer(t, users, "buyer@example.com", sponsor)

	order, err := trade.NewOrder(buyer.ID, "SO-TX-0001")
	require.NoError(t, err)
	_, err = order.AddItem(uuid.New(), uuid.New(), "Hand-woven rug", 1, valueobject.NewMoneyTRYFromFloat(4000))
	require.NoError(t, err)
	require.NoError(t, order.MarkPaid("pay-ref-tx"))
	require.NoError(t, orders.Save(ctx, order))

	// pair bonus insert fails mid-apply, nothing may stick
	_, err = service.Approve(ctx, order.ID)
	require.Error(t, err)

	reloaded, err := orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.OrderStatusPending, reloaded.Status)
	assert.False(t, reloaded.ReferralProcessed)

	spent, err := users.FindByID(ctx, buyer.ID)
	require.NoError(t, err)
	assert.True(t, spent.TotalSpend.IsZero())
	assert.False(t, spent.MetReferralThreshold)

	// retry succeeds, the spend counts exactly once
	_, err = service.Approve(ctx, order.ID)
	require.NoError(t, err)

	spent, err = users.FindByID(ctx, buyer.ID)
	require.NoError(t, err)
	assert.True(t, spent.TotalSpend.Equal(decimal.NewFromInt(4000)))
	assert.True(t, spent.MetReferralThreshold)

	reloaded, err = orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.OrderStatusApproved, reloaded.Status)
	assert.True(t, reloaded.ReferralProcessed)

	paired, err := users.FindByID(ctx, sponsor.ID)
	require.NoError(t, err)
	assert.True(t, paired.WithdrawableBalance.Equal(decimal.NewFromInt(200)))
}
