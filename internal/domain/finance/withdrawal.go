package finance

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/maraline/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// WithdrawalStatus represents the status of a withdrawal request
type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "PENDING"
	WithdrawalStatusApproved WithdrawalStatus = "APPROVED"
	WithdrawalStatusRejected WithdrawalStatus = "REJECTED"
)

// IsValid checks if the status is a valid WithdrawalStatus
func (s WithdrawalStatus) IsValid() bool {
	switch s {
	case WithdrawalStatusPending, WithdrawalStatusApproved, WithdrawalStatusRejected:
		return true
	}
	return false
}

// MinWithdrawalAmount is the smallest amount a user may request to withdraw.
var MinWithdrawalAmount = decimal.NewFromInt(100)

// WithdrawalRequest represents a user's request to pay out withdrawable
// balance to a bank account. The balance is debited at approval time, not at
// request time, so a rejected request never touches the wallet.
type WithdrawalRequest struct {
	shared.BaseAggregateRoot
	UserID      uuid.UUID
	Amount      decimal.Decimal
	IBAN        string
	HolderName  string
	Status      WithdrawalStatus
	Note        string
	DecidedAt   *time.Time
	DecidedByID *uuid.UUID
}

// NewWithdrawalRequest creates a pending withdrawal request
func NewWithdrawalRequest(userID uuid.UUID, amount decimal.Decimal, iban, holderName string) (*WithdrawalRequest, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if amount.LessThan(MinWithdrawalAmount) {
		return nil, shared.NewDomainError("AMOUNT_TOO_SMALL",
			fmt.Sprintf("Withdrawal amount must be at least %s", MinWithdrawalAmount.StringFixed(2)))
	}
	if len(iban) < 15 || len(iban) > 34 {
		return nil, shared.NewDomainError("INVALID_IBAN", "IBAN must be between 15 and 34 characters")
	}
	if holderName == "" {
		return nil, shared.NewDomainError("INVALID_HOLDER", "Account holder name cannot be empty")
	}

	req := &WithdrawalRequest{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		Amount:            amount,
		IBAN:              iban,
		HolderName:        holderName,
		Status:            WithdrawalStatusPending,
	}

	req.AddDomainEvent(NewWithdrawalRequestedEvent(req))

	return req, nil
}

// Approve marks the request as approved by an admin. The caller debits the
// user's withdrawable balance in the same transaction.
func (w *WithdrawalRequest) Approve(adminID uuid.UUID) error {
	if w.Status != WithdrawalStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot approve withdrawal in %s status", w.Status))
	}
	if adminID == uuid.Nil {
		return shared.NewDomainError("INVALID_ADMIN", "Approver ID cannot be empty")
	}

	now := time.Now()
	w.Status = WithdrawalStatusApproved
	w.DecidedAt = &now
	w.DecidedByID = &adminID
	w.UpdatedAt = now

	w.AddDomainEvent(NewWithdrawalDecidedEvent(w))

	return nil
}

// Reject marks the request as rejected with a note for the user
func (w *WithdrawalRequest) Reject(adminID uuid.UUID, note string) error {
	if w.Status != WithdrawalStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reject withdrawal in %s status", w.Status))
	}
	if adminID == uuid.Nil {
		return shared.NewDomainError("INVALID_ADMIN", "Approver ID cannot be empty")
	}
	if note == "" {
		return shared.NewDomainError("INVALID_NOTE", "Rejection note is required")
	}

	now := time.Now()
	w.Status = WithdrawalStatusRejected
	w.Note = note
	w.DecidedAt = &now
	w.DecidedByID = &adminID
	w.UpdatedAt = now

	w.AddDomainEvent(NewWithdrawalDecidedEvent(w))

	return nil
}

// IsPending returns true if the request awaits an admin decision
func (w *WithdrawalRequest) IsPending() bool {
	return w.Status == WithdrawalStatusPending
}
