package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/maraline/backend/internal/domain/identity"
	"github.com/maraline/backend/internal/domain/shared"
	"github.com/maraline/backend/internal/infrastructure/persistence/models"
)

// GormUserRepository implements identity.UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	var model models.UserModel
	if err := session(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByEmail finds a user by email address. Emails are stored lowercase.
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	var model models.UserModel
	if err := session(ctx, r.db).
		First(&model, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByReferralCode finds the user owning the given referral code
func (r *GormUserRepository) FindByReferralCode(ctx context.Context, code string) (*identity.User, error) {
	var model models.UserModel
	if err := session(ctx, r.db).First(&model, "referral_code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds users with filtering
func (r *GormUserRepository) FindAll(ctx context.Context, filter identity.UserFilter) ([]*identity.User, int64, error) {
	query := session(ctx, r.db).Model(&models.UserModel{})

	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.SponsorID != nil {
		query = query.Where("sponsor_id = ?", *filter.SponsorID)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("lower(email) LIKE ? OR lower(display_name) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Filter)

	var rows []models.UserModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	users := make([]*identity.User, len(rows))
	for i := range rows {
		users[i] = rows[i].ToDomain()
	}
	return users, total, nil
}

// FindAllOrderedByRegistration returns every user ordered by creation time
// ascending, with the ID as a stable tiebreak for identical timestamps.
func (r *GormUserRepository) FindAllOrderedByRegistration(ctx context.Context) ([]*identity.User, error) {
	var rows []models.UserModel
	if err := session(ctx, r.db).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	users := make([]*identity.User, len(rows))
	for i := range rows {
		users[i] = rows[i].ToDomain()
	}
	return users, nil
}

// FindDirectReferrals returns the direct children of a sponsor ordered by
// registration time ascending
func (r *GormUserRepository) FindDirectReferrals(ctx context.Context, sponsorID uuid.UUID, activated *bool) ([]*identity.User, error) {
	query := session(ctx, r.db).Where("sponsor_id = ?", sponsorID)
	if activated != nil {
		query = query.Where("met_referral_threshold = ?", *activated)
	}

	var rows []models.UserModel
	if err := query.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	users := make([]*identity.User, len(rows))
	for i := range rows {
		users[i] = rows[i].ToDomain()
	}
	return users, nil
}

// CountDirectReferrals counts a sponsor's direct children by activation state
func (r *GormUserRepository) CountDirectReferrals(ctx context.Context, sponsorID uuid.UUID, activated bool) (int, error) {
	var count int64
	if err := session(ctx, r.db).
		Model(&models.UserModel{}).
		Where("sponsor_id = ? AND met_referral_threshold = ?", sponsorID, activated).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// Save creates or updates a user
func (r *GormUserRepository) Save(ctx context.Context, user *identity.User) error {
	model := models.UserModelFromDomain(user)
	if err := session(ctx, r.db).Save(model).Error; err != nil {
		if isDuplicateKey(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// ExistsByEmail checks whether a user with the email exists
func (r *GormUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := session(ctx, r.db).
		Model(&models.UserModel{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Ensure GormUserRepository implements UserRepository
var _ identity.UserRepository = (*GormUserRepository)(nil)
