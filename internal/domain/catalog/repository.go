package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/maraline/backend/internal/domain/shared"
)

// ProductFilter represents filter criteria for product queries
type ProductFilter struct {
	shared.Filter
	SellerID   *uuid.UUID
	CategoryID *uuid.UUID
	Status     ProductStatus
}

// ProductRepository defines the persistence interface for products
type ProductRepository interface {
	// FindByID retrieves a product by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindAll retrieves products matching the filter with pagination
	FindAll(ctx context.Context, filter ProductFilter) (*shared.Paginated[Product], error)

	// FindBySeller retrieves a seller's products
	FindBySeller(ctx context.Context, sellerID uuid.UUID, filter shared.Filter) (*shared.Paginated[Product], error)

	// Save persists a product
	Save(ctx context.Context, product *Product) error

	// Delete removes a product listing
	Delete(ctx context.Context, id uuid.UUID) error
}

// CategoryRepository defines the persistence interface for categories
type CategoryRepository interface {
	// FindByID retrieves a category by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Category, error)

	// FindBySlug retrieves a category by its URL slug
	FindBySlug(ctx context.Context, slug string) (*Category, error)

	// FindAll retrieves all categories
	FindAll(ctx context.Context) ([]*Category, error)

	// Save persists a category
	Save(ctx context.Context, category *Category) error
}
