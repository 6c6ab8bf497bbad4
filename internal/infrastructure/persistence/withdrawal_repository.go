package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/maraline/backend/internal/domain/finance"
	"github.com/maraline/backend/internal/domain/shared"
	"github.com/maraline/backend/internal/infrastructure/persistence/models"
)

// GormWithdrawalRepository implements finance.WithdrawalRepository using GORM
type GormWithdrawalRepository struct {
	db *gorm.DB
}

// NewGormWithdrawalRepository creates a new GormWithdrawalRepository
func NewGormWithdrawalRepository(db *gorm.DB) *GormWithdrawalRepository {
	return &GormWithdrawalRepository{db: db}
}

// FindByID retrieves a withdrawal request by ID
func (r *GormWithdrawalRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.WithdrawalRequest, error) {
	var model models.WithdrawalModel
	if err := session(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll retrieves withdrawal requests matching the filter with pagination
func (r *GormWithdrawalRepository) FindAll(ctx context.Context, filter finance.WithdrawalFilter) (*shared.Paginated[finance.WithdrawalRequest], error) {
	query := session(ctx, r.db).Model(&models.WithdrawalModel{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	query = applyPagination(query, filter.Filter)

	var rows []models.WithdrawalModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	requests := make([]finance.WithdrawalRequest, len(rows))
	for i := range rows {
		requests[i] = *rows[i].ToDomain()
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	result := shared.NewPaginated(requests, total, page, pageSize)
	return &result, nil
}

// FindPendingByUser retrieves a user's open requests, oldest first
func (r *GormWithdrawalRepository) FindPendingByUser(ctx context.Context, userID uuid.UUID) ([]*finance.WithdrawalRequest, error) {
	var rows []models.WithdrawalModel
	if err := session(ctx, r.db).
		Where("user_id = ? AND status = ?", userID, finance.WithdrawalStatusPending).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	requests := make([]*finance.WithdrawalRequest, len(rows))
	for i := range rows {
		requests[i] = rows[i].ToDomain()
	}
	return requests, nil
}

// SumApprovedByUser totals a user's approved withdrawals
func (r *GormWithdrawalRepository) SumApprovedByUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := session(ctx, r.db).
		Model(&models.WithdrawalModel{}).
		Where("user_id = ? AND status = ?", userID, finance.WithdrawalStatusApproved).
		Select("COALESCE(SUM(amount), 0)").
		Row().Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// Save persists a withdrawal request
func (r *GormWithdrawalRepository) Save(ctx context.Context, req *finance.WithdrawalRequest) error {
	model := models.WithdrawalModelFromDomain(req)
	return session(ctx, r.db).Save(model).Error
}

// Ensure GormWithdrawalRepository implements WithdrawalRepository
var _ finance.WithdrawalRepository = (*GormWithdrawalRepository)(nil)
