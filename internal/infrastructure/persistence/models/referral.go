package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/maraline/backend/internal/domain/referral"
)

// LedgerEntryModel is the persistence model for a referral ledger entry.
//
// The partial unique indexes are the idempotency backbone: a duplicate grant
// attempt hits the constraint and the repository reports it as an
// already-exists condition instead of writing a second entry.
type LedgerEntryModel struct {
	BaseModel
	UserID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uniq_ledger_direct,priority:1,where:kind = 'DIRECT_BONUS';uniqueIndex:uniq_ledger_chain,priority:1,where:kind = 'CHAIN_BONUS';uniqueIndex:uniq_ledger_eligibility,where:kind = 'ELIGIBILITY_MARKER';uniqueIndex:uniq_ledger_refill,priority:1,where:kind = 'PASSIVE_REFILL';uniqueIndex:uniq_ledger_payout,priority:1,where:kind = 'PASSIVE_PAYOUT'"`
	Amount decimal.Decimal    `gorm:"type:decimal(18,2);not null"`
	Kind   referral.EntryKind `gorm:"type:varchar(30);not null;index"`

	PairIndex   int        `gorm:"not null;default:0;uniqueIndex:uniq_ledger_direct,priority:2;uniqueIndex:uniq_ledger_chain,priority:4"`
	Level       int        `gorm:"not null;default:0;uniqueIndex:uniq_ledger_chain,priority:2"`
	PairOwnerID *uuid.UUID `gorm:"type:uuid;index;uniqueIndex:uniq_ledger_chain,priority:3"`
	OrderRefKey string     `gorm:"type:varchar(64);index"`
	Period      string     `gorm:"type:varchar(7);uniqueIndex:uniq_ledger_refill,priority:2;uniqueIndex:uniq_ledger_payout,priority:2"`
	Description string     `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (LedgerEntryModel) TableName() string {
	return "referral_ledger_entries"
}

// ToDomain converts the persistence model to a domain LedgerEntry.
func (m *LedgerEntryModel) ToDomain() *referral.LedgerEntry {
	return &referral.LedgerEntry{
		BaseEntity:  m.BaseModel.ToDomain(),
		UserID:      m.UserID,
		Amount:      m.Amount,
		Kind:        m.Kind,
		PairIndex:   m.PairIndex,
		Level:       m.Level,
		PairOwnerID: m.PairOwnerID,
		OrderRefKey: m.OrderRefKey,
		Period:      m.Period,
		Description: m.Description,
	}
}

// FromDomain populates the persistence model from a domain LedgerEntry.
func (m *LedgerEntryModel) FromDomain(e *referral.LedgerEntry) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.UserID = e.UserID
	m.Amount = e.Amount
	m.Kind = e.Kind
	m.PairIndex = e.PairIndex
	m.Level = e.Level
	m.PairOwnerID = e.PairOwnerID
	m.OrderRefKey = e.OrderRefKey
	m.Period = e.Period
	m.Description = e.Description
}

// LedgerEntryModelFromDomain creates a new persistence model from a domain LedgerEntry.
func LedgerEntryModelFromDomain(e *referral.LedgerEntry) *LedgerEntryModel {
	m := &LedgerEntryModel{}
	m.FromDomain(e)
	return m
}
