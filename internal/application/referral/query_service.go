package referral

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/maraline/backend/internal/domain/identity"
	"github.com/maraline/backend/internal/domain/referral"
	"github.com/maraline/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LedgerEntryView is the read representation of a ledger entry
type LedgerEntryView struct {
	ID          uuid.UUID       `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        string          `json:"kind"`
	PairIndex   int             `json:"pair_index,omitempty"`
	Level       int             `json:"level,omitempty"`
	Period      string          `json:"period,omitempty"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

// EarningsSummary gathers a user's referral-program standing in one view
type EarningsSummary struct {
	UserID                  uuid.UUID       `json:"user_id"`
	ReferralCode            string          `json:"referral_code"`
	ReferralCodeActive      bool            `json:"referral_code_active"`
	ActiveReferralCount     int             `json:"active_referral_count"`
	EngineTotal             decimal.Decimal `json:"engine_total"`
	EarningCap              decimal.Decimal `json:"earning_cap"`
	CapReached              bool            `json:"cap_reached"`
	LifetimeEarnings        decimal.Decimal `json:"lifetime_earnings"`
	WithdrawableBalance     decimal.Decimal `json:"withdrawable_balance"`
	MonthlyPassiveAllowance decimal.Decimal `json:"monthly_passive_allowance"`
}

// QueryService serves read-only views over the referral ledger
type QueryService struct {
	users  identity.UserRepository
	ledger referral.LedgerRepository
	config Config
}

// NewQueryService creates a new referral query service
func NewQueryService(users identity.UserRepository, ledger referral.LedgerRepository, config Config) *QueryService {
	return &QueryService{
		users:  users,
		ledger: ledger,
		config: config,
	}
}

// GetUserLedger lists a user's ledger entries, most recent first
func (s *QueryService) GetUserLedger(ctx context.Context, userID uuid.UUID, filter referral.LedgerFilter) (*shared.Paginated[LedgerEntryView], error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	entries, total, err := s.ledger.FindByUser(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	views := make([]LedgerEntryView, len(entries))
	for i, e := range entries {
		views[i] = LedgerEntryView{
			ID:          e.ID,
			Amount:      e.Amount,
			Kind:        string(e.Kind),
			PairIndex:   e.PairIndex,
			Level:       e.Level,
			Period:      e.Period,
			Description: e.Description,
			CreatedAt:   e.CreatedAt,
		}
	}
	result := shared.NewPaginated(views, total, filter.Page, filter.PageSize)
	return &result, nil
}

// GetEarningsSummary returns a user's referral standing, with totals read
// from the ledger rather than the denormalized wallet columns
func (s *QueryService) GetEarningsSummary(ctx context.Context, userID uuid.UUID) (*EarningsSummary, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	engineTotal, err := s.ledger.EngineTotal(ctx, userID)
	if err != nil {
		return nil, err
	}
	earnings, err := s.ledger.EarningsTotal(ctx, userID)
	if err != nil {
		return nil, err
	}

	capReached := engineTotal.GreaterThanOrEqual(s.config.EarningCap)
	if user.IsAdmin() && !s.config.AdminHasEarningCap {
		capReached = false
	}

	return &EarningsSummary{
		UserID:                  user.ID,
		ReferralCode:            user.ReferralCode,
		ReferralCodeActive:      user.ReferralCodeActive,
		ActiveReferralCount:     user.ActiveReferralCount,
		EngineTotal:             engineTotal,
		EarningCap:              s.config.EarningCap,
		CapReached:              capReached,
		LifetimeEarnings:        earnings,
		WithdrawableBalance:     user.WithdrawableBalance,
		MonthlyPassiveAllowance: user.MonthlyPassiveAllowance,
	}, nil
}
