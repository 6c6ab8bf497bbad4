package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/maraline/backend/internal/domain/shared"
)

// Category represents a product category. Categories form a single-level
// tree, a child points at its parent through ParentID.
type Category struct {
	shared.BaseEntity
	Name     string
	Slug     string
	ParentID *uuid.UUID
	Active   bool
}

// NewCategory creates a new active category
func NewCategory(name, slug string, parentID *uuid.UUID) (*Category, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Category name cannot be empty")
	}
	if slug == "" {
		return nil, shared.NewDomainError("INVALID_SLUG", "Category slug cannot be empty")
	}

	return &Category{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Slug:       slug,
		ParentID:   parentID,
		Active:     true,
	}, nil
}

// Deactivate hides the category from storefront listings
func (c *Category) Deactivate() {
	c.Active = false
	c.UpdatedAt = time.Now()
}

// Activate restores the category to storefront listings
func (c *Category) Activate() {
	c.Active = true
	c.UpdatedAt = time.Now()
}
