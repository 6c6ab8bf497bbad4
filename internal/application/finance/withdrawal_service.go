package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/maraline/backend/internal/domain/finance"
	"github.com/maraline/backend/internal/domain/identity"
	"github.com/maraline/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// WithdrawalService handles payout requests against the withdrawable balance
type WithdrawalService struct {
	withdrawals finance.WithdrawalRepository
	users       identity.UserRepository
	logger      *zap.Logger
}

// NewWithdrawalService creates a new withdrawal service
func NewWithdrawalService(withdrawals finance.WithdrawalRepository, users identity.UserRepository, logger *zap.Logger) *WithdrawalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WithdrawalService{
		withdrawals: withdrawals,
		users:       users,
		logger:      logger,
	}
}

// RequestWithdrawalInput contains the input for requesting a payout
type RequestWithdrawalInput struct {
	UserID     uuid.UUID
	Amount     decimal.Decimal
	IBAN       string
	HolderName string
}

// WithdrawalResponse is the response representation of a withdrawal request
type WithdrawalResponse struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"user_id"`
	Amount     decimal.Decimal `json:"amount"`
	IBAN       string          `json:"iban"`
	HolderName string          `json:"holder_name"`
	Status     string          `json:"status"`
	Note       string          `json:"note,omitempty"`
	DecidedAt  *time.Time      `json:"decided_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

func toWithdrawalResponse(w *finance.WithdrawalRequest) WithdrawalResponse {
	return WithdrawalResponse{
		ID:         w.ID,
		UserID:     w.UserID,
		Amount:     w.Amount,
		IBAN:       w.IBAN,
		HolderName: w.HolderName,
		Status:     string(w.Status),
		Note:       w.Note,
		DecidedAt:  w.DecidedAt,
		CreatedAt:  w.CreatedAt,
	}
}

// Request opens a payout request. The balance check here is advisory, the
// binding check happens at approval time against the balance of that moment.
func (s *WithdrawalService) Request(ctx context.Context, input RequestWithdrawalInput) (*WithdrawalResponse, error) {
	user, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	pending, err := s.withdrawals.FindPendingByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	reserved := decimal.Zero
	for _, p := range pending {
		reserved = reserved.Add(p.Amount)
	}
	if user.WithdrawableBalance.Sub(reserved).LessThan(input.Amount) {
		return nil, shared.ErrInsufficientBalance
	}

	req, err := finance.NewWithdrawalRequest(user.ID, input.Amount, input.IBAN, input.HolderName)
	if err != nil {
		return nil, err
	}
	if err := s.withdrawals.Save(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("Withdrawal requested",
		zap.String("request_id", req.ID.String()),
		zap.String("user_id", user.ID.String()),
		zap.String("amount", input.Amount.String()))

	response := toWithdrawalResponse(req)
	return &response, nil
}

// Approve approves a pending request and debits the user's balance
func (s *WithdrawalService) Approve(ctx context.Context, requestID, adminID uuid.UUID) (*WithdrawalResponse, error) {
	req, err := s.withdrawals.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	if err := user.DebitWithdrawable(req.Amount); err != nil {
		return nil, err
	}
	if err := req.Approve(adminID); err != nil {
		return nil, err
	}

	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	if err := s.withdrawals.Save(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("Withdrawal approved",
		zap.String("request_id", req.ID.String()),
		zap.String("user_id", user.ID.String()),
		zap.String("amount", req.Amount.String()))

	response := toWithdrawalResponse(req)
	return &response, nil
}

// Reject rejects a pending request without touching the balance
func (s *WithdrawalService) Reject(ctx context.Context, requestID, adminID uuid.UUID, note string) (*WithdrawalResponse, error) {
	req, err := s.withdrawals.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := req.Reject(adminID, note); err != nil {
		return nil, err
	}
	if err := s.withdrawals.Save(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("Withdrawal rejected",
		zap.String("request_id", req.ID.String()),
		zap.String("note", note))

	response := toWithdrawalResponse(req)
	return &response, nil
}

// List retrieves withdrawal requests matching the filter
func (s *WithdrawalService) List(ctx context.Context, filter finance.WithdrawalFilter) (*shared.Paginated[WithdrawalResponse], error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	page, err := s.withdrawals.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]WithdrawalResponse, len(page.Items))
	for i := range page.Items {
		responses[i] = toWithdrawalResponse(&page.Items[i])
	}
	result := shared.NewPaginated(responses, page.Total, page.Page, page.PageSize)
	return &result, nil
}

// ListByUser retrieves the user's own withdrawal requests
func (s *WithdrawalService) ListByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) (*shared.Paginated[WithdrawalResponse], error) {
	return s.List(ctx, finance.WithdrawalFilter{Filter: filter, UserID: &userID})
}
