package identity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUser(t *testing.T, role UserRole) *User {
	user, err := NewUser("buyer@example.com", "Test Buyer", "s3cret-pass", role)
	require.NoError(t, err)
	return user
}

func TestNewUser(t *testing.T) {
	t.Run("creates customer with referral code", func(t *testing.T) {
		user := newTestUser(t, RoleCustomer)
		assert.Equal(t, "buyer@example.com", user.Email)
		assert.Equal(t, RoleCustomer, user.Role)
		assert.Len(t, user.ReferralCode, referralCodeLength)
		assert.Nil(t, user.SponsorID)
		assert.False(t, user.ReferralCodeActive)
		assert.False(t, user.MetReferralThreshold)
		assert.True(t, user.TotalSpend.IsZero())
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		_, err := NewUser("not-an-email", "Name", "s3cret-pass", RoleCustomer)
		assert.Error(t, err)
	})

	t.Run("rejects short password", func(t *testing.T) {
		_, err := NewUser("a@b.co", "Name", "short", RoleCustomer)
		assert.Error(t, err)
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		_, err := NewUser("a@b.co", "Name", "s3cret-pass", UserRole("SUPERVISOR"))
		assert.Error(t, err)
	})
}

func TestUser_SetSponsor(t *testing.T) {
	user := newTestUser(t, RoleCustomer)
	sponsorID := uuid.New()

	require.NoError(t, user.SetSponsor(sponsorID))
	require.NotNil(t, user.SponsorID)
	assert.Equal(t, sponsorID, *user.SponsorID)

	t.Run("rejects second sponsor", func(t *testing.T) {
		assert.Error(t, user.SetSponsor(uuid.New()))
	})

	t.Run("rejects self sponsorship", func(t *testing.T) {
		fresh := newTestUser(t, RoleCustomer)
		assert.Error(t, fresh.SetSponsor(fresh.ID))
	})
}

func TestUser_ActivationFlagsMoveInLockstep(t *testing.T) {
	user := newTestUser(t, RoleCustomer)

	user.ActivateReferral()
	assert.True(t, user.MetReferralThreshold)
	assert.True(t, user.ReferralCodeActive)
	assert.Equal(t, user.MetReferralThreshold, user.ReferralCodeActive)

	user.DeactivateReferral()
	assert.False(t, user.MetReferralThreshold)
	assert.False(t, user.ReferralCodeActive)
	assert.Equal(t, user.MetReferralThreshold, user.ReferralCodeActive)
}

func TestUser_ReferralLimit(t *testing.T) {
	user := newTestUser(t, RoleCustomer)

	assert.Equal(t, 2, user.ReferralLimit(2))
	assert.Equal(t, 5, user.ReferralLimit(5))
	assert.Equal(t, DefaultReferralLimit, user.ReferralLimit(0))

	require.NoError(t, user.SetCustomReferralLimit(7))
	assert.Equal(t, 7, user.ReferralLimit(2))

	user.ClearCustomReferralLimit()
	assert.Equal(t, 2, user.ReferralLimit(2))

	assert.Error(t, user.SetCustomReferralLimit(-1))
}

func TestUser_Spend(t *testing.T) {
	user := newTestUser(t, RoleCustomer)

	require.NoError(t, user.AddSpend(decimal.NewFromInt(3000)))
	require.NoError(t, user.AddSpend(decimal.NewFromInt(1500)))
	assert.True(t, user.TotalSpend.Equal(decimal.NewFromInt(4500)))

	require.NoError(t, user.ReduceSpend(decimal.NewFromInt(1500)))
	assert.True(t, user.TotalSpend.Equal(decimal.NewFromInt(3000)))

	t.Run("floors at zero", func(t *testing.T) {
		require.NoError(t, user.ReduceSpend(decimal.NewFromInt(99999)))
		assert.True(t, user.TotalSpend.IsZero())
	})

	t.Run("rejects negative amounts", func(t *testing.T) {
		assert.Error(t, user.AddSpend(decimal.NewFromInt(-1)))
		assert.Error(t, user.ReduceSpend(decimal.NewFromInt(-1)))
	})
}

func TestUser_GrantPassiveAllowance(t *testing.T) {
	t.Run("grants to regular user", func(t *testing.T) {
		user := newTestUser(t, RoleCustomer)
		user.GrantPassiveAllowance(decimal.NewFromInt(2000))
		assert.True(t, user.MonthlyPassiveAllowance.Equal(decimal.NewFromInt(2000)))
	})

	t.Run("admin allowance is forced to zero", func(t *testing.T) {
		admin := newTestUser(t, RoleAdmin)
		admin.GrantPassiveAllowance(decimal.NewFromInt(2000))
		assert.True(t, admin.MonthlyPassiveAllowance.IsZero())
	})
}

func TestUser_DebitWithdrawable(t *testing.T) {
	user := newTestUser(t, RoleCustomer)
	user.SetWallet(decimal.NewFromInt(500), decimal.NewFromInt(500))

	require.NoError(t, user.DebitWithdrawable(decimal.NewFromInt(200)))
	assert.True(t, user.WithdrawableBalance.Equal(decimal.NewFromInt(300)))

	t.Run("insufficient funds is an error and leaves balance untouched", func(t *testing.T) {
		err := user.DebitWithdrawable(decimal.NewFromInt(1000))
		assert.Error(t, err)
		assert.True(t, user.WithdrawableBalance.Equal(decimal.NewFromInt(300)))
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		assert.Error(t, user.DebitWithdrawable(decimal.Zero))
	})
}

func TestUser_VerifyPassword(t *testing.T) {
	user := newTestUser(t, RoleCustomer)
	assert.True(t, user.VerifyPassword("s3cret-pass"))
	assert.False(t, user.VerifyPassword("wrong"))
}

func TestUser_ChangePassword(t *testing.T) {
	user := newTestUser(t, RoleCustomer)

	require.NoError(t, user.ChangePassword("s3cret-pass", "another-pass"))
	assert.True(t, user.VerifyPassword("another-pass"))

	assert.Error(t, user.ChangePassword("wrong", "whatever-pass"))
}

func TestUser_PromoteToSeller(t *testing.T) {
	candidate := newTestUser(t, RoleSellerCandidate)
	require.NoError(t, candidate.PromoteToSeller())
	assert.Equal(t, RoleSeller, candidate.Role)

	customer := newTestUser(t, RoleCustomer)
	assert.Error(t, customer.PromoteToSeller())
}
