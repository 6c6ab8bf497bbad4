package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/maraline/backend/internal/domain/catalog"
	"github.com/maraline/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CategoryService handles category management, admin only
type CategoryService struct {
	categories catalog.CategoryRepository
	logger     *zap.Logger
}

// NewCategoryService creates a new category service
func NewCategoryService(categories catalog.CategoryRepository, logger *zap.Logger) *CategoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryService{
		categories: categories,
		logger:     logger,
	}
}

// Create creates a new category under an optional parent
func (s *CategoryService) Create(ctx context.Context, name, slug string, parentID *uuid.UUID) (*CategoryResponse, error) {
	if _, err := s.categories.FindBySlug(ctx, slug); err == nil {
		return nil, shared.NewDomainError("SLUG_TAKEN", "A category with this slug already exists")
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	if parentID != nil {
		if _, err := s.categories.FindByID(ctx, *parentID); err != nil {
			return nil, shared.NewDomainError("INVALID_PARENT", "Parent category does not exist")
		}
	}

	category, err := catalog.NewCategory(name, slug, parentID)
	if err != nil {
		return nil, err
	}
	if err := s.categories.Save(ctx, category); err != nil {
		return nil, err
	}

	s.logger.Info("Category created", zap.String("slug", slug))

	response := ToCategoryResponse(category)
	return &response, nil
}

// SetActive toggles a category's storefront visibility
func (s *CategoryService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if active {
		category.Activate()
	} else {
		category.Deactivate()
	}
	return s.categories.Save(ctx, category)
}

// List returns all categories
func (s *CategoryService) List(ctx context.Context) ([]CategoryResponse, error) {
	categories, err := s.categories.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	responses := make([]CategoryResponse, len(categories))
	for i, c := range categories {
		responses[i] = ToCategoryResponse(c)
	}
	return responses, nil
}
