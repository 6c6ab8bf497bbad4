package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/maraline/backend/internal/domain/identity"
)

// UserModel is the persistence model for the User aggregate root.
type UserModel struct {
	AggregateModel
	Email        string            `gorm:"type:varchar(255);not null;uniqueIndex"`
	DisplayName  string            `gorm:"type:varchar(200);not null"`
	PasswordHash string            `gorm:"type:varchar(100);not null"`
	Role         identity.UserRole `gorm:"type:varchar(20);not null;default:'CUSTOMER';index"`

	ReferralCode         string     `gorm:"type:varchar(16);not null;uniqueIndex"`
	SponsorID            *uuid.UUID `gorm:"type:uuid;index"`
	ReferralCodeActive   bool       `gorm:"not null;default:false"`
	MetReferralThreshold bool       `gorm:"not null;default:false"`
	ActiveReferralCount  int        `gorm:"not null;default:0"`
	CustomReferralLimit  *int

	TotalSpend              decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	LifetimeEarnings        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	WithdrawableBalance     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	MonthlyPassiveAllowance decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User entity.
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseAggregateRoot:       m.ToDomainAggregateRoot(),
		Email:                   m.Email,
		DisplayName:             m.DisplayName,
		PasswordHash:            m.PasswordHash,
		Role:                    m.Role,
		ReferralCode:            m.ReferralCode,
		SponsorID:               m.SponsorID,
		ReferralCodeActive:      m.ReferralCodeActive,
		MetReferralThreshold:    m.MetReferralThreshold,
		ActiveReferralCount:     m.ActiveReferralCount,
		CustomReferralLimit:     m.CustomReferralLimit,
		TotalSpend:              m.TotalSpend,
		LifetimeEarnings:        m.LifetimeEarnings,
		WithdrawableBalance:     m.WithdrawableBalance,
		MonthlyPassiveAllowance: m.MonthlyPassiveAllowance,
	}
}

// FromDomain populates the persistence model from a domain User entity.
func (m *UserModel) FromDomain(u *identity.User) {
	m.FromDomainAggregateRoot(u.BaseAggregateRoot)
	m.Email = u.Email
	m.DisplayName = u.DisplayName
	m.PasswordHash = u.PasswordHash
	m.Role = u.Role
	m.ReferralCode = u.ReferralCode
	m.SponsorID = u.SponsorID
	m.ReferralCodeActive = u.ReferralCodeActive
	m.MetReferralThreshold = u.MetReferralThreshold
	m.ActiveReferralCount = u.ActiveReferralCount
	m.CustomReferralLimit = u.CustomReferralLimit
	m.TotalSpend = u.TotalSpend
	m.LifetimeEarnings = u.LifetimeEarnings
	m.WithdrawableBalance = u.WithdrawableBalance
	m.MonthlyPassiveAllowance = u.MonthlyPassiveAllowance
}

// UserModelFromDomain creates a new persistence model from a domain User entity.
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{}
	m.FromDomain(u)
	return m
}
