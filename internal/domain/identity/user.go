package identity

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/maraline/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// UserRole represents the role of a user in the marketplace
type UserRole string

const (
	RoleCustomer        UserRole = "CUSTOMER"
	RoleSeller          UserRole = "SELLER"
	RoleSellerCandidate UserRole = "SELLER_CANDIDATE"
	RoleAdmin           UserRole = "ADMIN"
)

// IsValid checks if the role is a valid UserRole
func (r UserRole) IsValid() bool {
	switch r {
	case RoleCustomer, RoleSeller, RoleSellerCandidate, RoleAdmin:
		return true
	}
	return false
}

// String returns the string representation of UserRole
func (r UserRole) String() string {
	return string(r)
}

// Password cost for bcrypt
const bcryptCost = 12

// DefaultReferralLimit is the sponsor capacity used when no per-user override is set
const DefaultReferralLimit = 2

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const referralCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const referralCodeLength = 8

// User represents a marketplace account and is the aggregate root for
// identity and referral-program state.
//
// Referral state invariant: ReferralCodeActive and MetReferralThreshold always
// change together. Activation sets both, deactivation clears both.
type User struct {
	shared.BaseAggregateRoot
	Email        string
	DisplayName  string
	PasswordHash string
	Role         UserRole

	// Referral tree
	ReferralCode         string     // this user's own code, handed out to referees
	SponsorID            *uuid.UUID // the user who referred this one; nil for organic signups
	ReferralCodeActive   bool
	MetReferralThreshold bool
	ActiveReferralCount  int  // denormalized count of activated direct referrals
	CustomReferralLimit  *int // overrides the global referral limit when set

	// Wallet (derived from the ledger except TotalSpend and the allowance bucket)
	TotalSpend              decimal.Decimal
	LifetimeEarnings        decimal.Decimal
	WithdrawableBalance     decimal.Decimal
	MonthlyPassiveAllowance decimal.Decimal
}

// NewUser creates a new user with the given role
func NewUser(email, displayName, password string, role UserRole) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRegex.MatchString(email) {
		return nil, shared.NewDomainError("INVALID_EMAIL", "Email address is not valid")
	}
	if displayName == "" {
		return nil, shared.NewDomainError("INVALID_DISPLAY_NAME", "Display name cannot be empty")
	}
	if len(displayName) > 200 {
		return nil, shared.NewDomainError("INVALID_DISPLAY_NAME", "Display name cannot exceed 200 characters")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", fmt.Sprintf("Unknown role %q", role))
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	code, err := generateReferralCode()
	if err != nil {
		return nil, shared.NewDomainError("REFERRAL_CODE_ERROR", "Failed to generate referral code")
	}

	user := &User{
		BaseAggregateRoot:       shared.NewBaseAggregateRoot(),
		Email:                   email,
		DisplayName:             strings.TrimSpace(displayName),
		PasswordHash:            passwordHash,
		Role:                    role,
		ReferralCode:            code,
		TotalSpend:              decimal.Zero,
		LifetimeEarnings:        decimal.Zero,
		WithdrawableBalance:     decimal.Zero,
		MonthlyPassiveAllowance: decimal.Zero,
	}

	user.AddDomainEvent(NewUserRegisteredEvent(user))

	return user, nil
}

// SetSponsor links this user under the referring user.
// Only allowed once, at registration time.
func (u *User) SetSponsor(sponsorID uuid.UUID) error {
	if u.SponsorID != nil {
		return shared.NewDomainError("SPONSOR_ALREADY_SET", "User already has a sponsor")
	}
	if sponsorID == u.ID {
		return shared.NewDomainError("INVALID_SPONSOR", "User cannot sponsor themselves")
	}

	u.SponsorID = &sponsorID
	u.UpdatedAt = time.Now()

	return nil
}

// DetachSponsor removes the sponsor link. Used by capacity pruning when a
// sponsor's retention slots are full and this referral never activated.
func (u *User) DetachSponsor() {
	if u.SponsorID == nil {
		return
	}
	u.SponsorID = nil
	u.UpdatedAt = time.Now()
}

// ActivateReferral marks the user as having met the spend threshold.
// Both flags flip together; this is the only way they are set.
func (u *User) ActivateReferral() {
	if u.MetReferralThreshold && u.ReferralCodeActive {
		return
	}
	u.MetReferralThreshold = true
	u.ReferralCodeActive = true
	u.UpdatedAt = time.Now()
	u.AddDomainEvent(NewReferralActivatedEvent(u))
}

// DeactivateReferral reverses activation, symmetric with ActivateReferral.
func (u *User) DeactivateReferral() {
	if !u.MetReferralThreshold && !u.ReferralCodeActive {
		return
	}
	u.MetReferralThreshold = false
	u.ReferralCodeActive = false
	u.UpdatedAt = time.Now()
	u.AddDomainEvent(NewReferralDeactivatedEvent(u))
}

// ReferralLimit returns the sponsor's retention capacity for inactive
// direct referrals: the per-user override when set, the global default otherwise.
func (u *User) ReferralLimit(globalDefault int) int {
	if u.CustomReferralLimit != nil {
		return *u.CustomReferralLimit
	}
	if globalDefault > 0 {
		return globalDefault
	}
	return DefaultReferralLimit
}

// SetCustomReferralLimit sets a per-user referral limit override
func (u *User) SetCustomReferralLimit(limit int) error {
	if limit < 0 {
		return shared.NewDomainError("INVALID_REFERRAL_LIMIT", "Referral limit cannot be negative")
	}
	u.CustomReferralLimit = &limit
	u.UpdatedAt = time.Now()
	return nil
}

// ClearCustomReferralLimit removes the per-user override
func (u *User) ClearCustomReferralLimit() {
	u.CustomReferralLimit = nil
	u.UpdatedAt = time.Now()
}

// IsAdmin returns true for administrator accounts, which are excluded from
// every bonus and passive-income flow.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// AddSpend increases the cumulative approved-order spend
func (u *User) AddSpend(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Spend amount cannot be negative")
	}
	u.TotalSpend = u.TotalSpend.Add(amount)
	u.UpdatedAt = time.Now()
	return nil
}

// ReduceSpend decreases the cumulative spend, flooring at zero
func (u *User) ReduceSpend(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Spend amount cannot be negative")
	}
	u.TotalSpend = u.TotalSpend.Sub(amount)
	if u.TotalSpend.IsNegative() {
		u.TotalSpend = decimal.Zero
	}
	u.UpdatedAt = time.Now()
	return nil
}

// SetActiveReferralCount refreshes the denormalized active-referral counter
func (u *User) SetActiveReferralCount(count int) {
	if count < 0 {
		count = 0
	}
	u.ActiveReferralCount = count
	u.UpdatedAt = time.Now()
}

// SetWallet overwrites the derived wallet fields after a ledger recompute
func (u *User) SetWallet(lifetimeEarnings, withdrawableBalance decimal.Decimal) {
	u.LifetimeEarnings = lifetimeEarnings
	u.WithdrawableBalance = withdrawableBalance
	if u.WithdrawableBalance.IsNegative() {
		u.WithdrawableBalance = decimal.Zero
	}
	u.UpdatedAt = time.Now()
}

// GrantPassiveAllowance funds the monthly passive bucket.
// Admin accounts never hold an allowance.
func (u *User) GrantPassiveAllowance(amount decimal.Decimal) {
	if u.IsAdmin() {
		u.MonthlyPassiveAllowance = decimal.Zero
		u.UpdatedAt = time.Now()
		return
	}
	u.MonthlyPassiveAllowance = amount
	u.UpdatedAt = time.Now()
}

// ClearPassiveAllowance empties the monthly passive bucket
func (u *User) ClearPassiveAllowance() {
	u.MonthlyPassiveAllowance = decimal.Zero
	u.UpdatedAt = time.Now()
}

// DebitWithdrawable atomically reduces the withdrawable balance.
// Returns ErrInsufficientBalance when funds do not cover the amount.
func (u *User) DebitWithdrawable(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Withdrawal amount must be positive")
	}
	if u.WithdrawableBalance.LessThan(amount) {
		return shared.ErrInsufficientBalance
	}
	u.WithdrawableBalance = u.WithdrawableBalance.Sub(amount)
	u.UpdatedAt = time.Now()
	return nil
}

// ChangePassword verifies the current password and sets a new one
func (u *User) ChangePassword(current, newPassword string) error {
	if !u.VerifyPassword(current) {
		return shared.NewDomainError("INVALID_PASSWORD", "Current password is incorrect")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now()
	return nil
}

// VerifyPassword checks a plaintext password against the stored hash
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// PromoteToSeller transitions a seller candidate to a full seller
func (u *User) PromoteToSeller() error {
	if u.Role != RoleSellerCandidate {
		return shared.NewDomainError("INVALID_STATE", "Only seller candidates can be promoted to seller")
	}
	u.Role = RoleSeller
	u.UpdatedAt = time.Now()
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 128 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 128 characters")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func generateReferralCode() (string, error) {
	code := make([]byte, referralCodeLength)
	max := big.NewInt(int64(len(referralCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = referralCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}
