package finance

import (
	"github.com/google/uuid"
	"github.com/maraline/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const (
	AggregateTypeWithdrawal = "WithdrawalRequest"

	EventTypeWithdrawalRequested = "withdrawal.requested"
	EventTypeWithdrawalDecided   = "withdrawal.decided"
)

// WithdrawalRequestedEvent is published when a user files a payout request
type WithdrawalRequestedEvent struct {
	shared.BaseDomainEvent
	UserID uuid.UUID       `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
}

// NewWithdrawalRequestedEvent creates a new WithdrawalRequestedEvent
func NewWithdrawalRequestedEvent(req *WithdrawalRequest) *WithdrawalRequestedEvent {
	return &WithdrawalRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeWithdrawalRequested, AggregateTypeWithdrawal, req.ID),
		UserID:          req.UserID,
		Amount:          req.Amount,
	}
}

// WithdrawalDecidedEvent is published when an admin approves or rejects
type WithdrawalDecidedEvent struct {
	shared.BaseDomainEvent
	UserID uuid.UUID        `json:"user_id"`
	Amount decimal.Decimal  `json:"amount"`
	Status WithdrawalStatus `json:"status"`
}

// NewWithdrawalDecidedEvent creates a new WithdrawalDecidedEvent
func NewWithdrawalDecidedEvent(req *WithdrawalRequest) *WithdrawalDecidedEvent {
	return &WithdrawalDecidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeWithdrawalDecided, AggregateTypeWithdrawal, req.ID),
		UserID:          req.UserID,
		Amount:          req.Amount,
		Status:          req.Status,
	}
}
