package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RegisterInput contains the input for user registration
type RegisterInput struct {
	Email        string
	DisplayName  string
	Password     string
	ReferralCode string // optional sponsor code
	AsSeller     bool   // registers a seller candidate instead of a customer
}

// RegisterResult contains the result of a successful registration
type RegisterResult struct {
	User      UserInfo
	SponsorID *uuid.UUID
}

// LoginInput contains the input for user login
type LoginInput struct {
	Email    string
	Password string
	IP       string // Client IP for login tracking
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
	User                  UserInfo
}

// UserInfo contains basic user information returned by the identity services
type UserInfo struct {
	ID                      uuid.UUID
	Email                   string
	DisplayName             string
	Role                    string
	ReferralCode            string
	ReferralCodeActive      bool
	SponsorID               *uuid.UUID
	ActiveReferralCount     int
	TotalSpend              decimal.Decimal
	LifetimeEarnings        decimal.Decimal
	WithdrawableBalance     decimal.Decimal
	MonthlyPassiveAllowance decimal.Decimal
	CreatedAt               time.Time
}

// RefreshTokenInput contains the input for token refresh
type RefreshTokenInput struct {
	RefreshToken string
}

// RefreshTokenResult contains the result of a token refresh
type RefreshTokenResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
}

// ChangePasswordInput contains the input for password change
type ChangePasswordInput struct {
	UserID      uuid.UUID
	OldPassword string
	NewPassword string
}

// ReferralNode is one entry in a sponsor's referral tree view
type ReferralNode struct {
	User      UserInfo
	Activated bool
	Children  []ReferralNode
}
