package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/maraline/backend/internal/domain/finance"
)

// WithdrawalModel is the persistence model for the WithdrawalRequest aggregate root.
type WithdrawalModel struct {
	AggregateModel
	UserID      uuid.UUID                `gorm:"type:uuid;not null;index"`
	Amount      decimal.Decimal          `gorm:"type:decimal(18,2);not null"`
	IBAN        string                   `gorm:"type:varchar(34);not null"`
	HolderName  string                   `gorm:"type:varchar(200);not null"`
	Status      finance.WithdrawalStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	Note        string                   `gorm:"type:varchar(500)"`
	DecidedAt   *time.Time
	DecidedByID *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (WithdrawalModel) TableName() string {
	return "withdrawal_requests"
}

// ToDomain converts the persistence model to a domain WithdrawalRequest entity.
func (m *WithdrawalModel) ToDomain() *finance.WithdrawalRequest {
	return &finance.WithdrawalRequest{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		UserID:            m.UserID,
		Amount:            m.Amount,
		IBAN:              m.IBAN,
		HolderName:        m.HolderName,
		Status:            m.Status,
		Note:              m.Note,
		DecidedAt:         m.DecidedAt,
		DecidedByID:       m.DecidedByID,
	}
}

// FromDomain populates the persistence model from a domain WithdrawalRequest entity.
func (m *WithdrawalModel) FromDomain(w *finance.WithdrawalRequest) {
	m.FromDomainAggregateRoot(w.BaseAggregateRoot)
	m.UserID = w.UserID
	m.Amount = w.Amount
	m.IBAN = w.IBAN
	m.HolderName = w.HolderName
	m.Status = w.Status
	m.Note = w.Note
	m.DecidedAt = w.DecidedAt
	m.DecidedByID = w.DecidedByID
}

// WithdrawalModelFromDomain creates a new persistence model from a domain WithdrawalRequest entity.
func WithdrawalModelFromDomain(w *finance.WithdrawalRequest) *WithdrawalModel {
	m := &WithdrawalModel{}
	m.FromDomain(w)
	return m
}
