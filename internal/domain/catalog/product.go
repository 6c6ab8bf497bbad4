package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/maraline/backend/internal/domain/shared"
	"github.com/maraline/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ProductStatus represents the lifecycle status of a product listing
type ProductStatus string

const (
	ProductStatusDraft     ProductStatus = "DRAFT"
	ProductStatusPublished ProductStatus = "PUBLISHED"
	ProductStatusSuspended ProductStatus = "SUSPENDED"
)

// Product represents a seller's product listing aggregate root
type Product struct {
	shared.BaseAggregateRoot
	SellerID    uuid.UUID
	CategoryID  uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Status      ProductStatus
	ImageURLs   []string
}

// NewProduct creates a new draft product listing
func NewProduct(sellerID, categoryID uuid.UUID, name, description string, price valueobject.Money, stock int) (*Product, error) {
	if sellerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SELLER", "Seller ID cannot be empty")
	}
	if categoryID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CATEGORY", "Category ID cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	if price.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price must be positive")
	}
	if stock < 0 {
		return nil, shared.NewDomainError("INVALID_STOCK", "Stock cannot be negative")
	}

	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SellerID:          sellerID,
		CategoryID:        categoryID,
		Name:              name,
		Description:       description,
		Price:             price.Amount(),
		Stock:             stock,
		Status:            ProductStatusDraft,
		ImageURLs:         make([]string, 0),
	}, nil
}

// Publish makes the listing visible on the storefront
func (p *Product) Publish() error {
	if p.Status == ProductStatusSuspended {
		return shared.NewDomainError("SUSPENDED", "Suspended products cannot be published by the seller")
	}
	if p.Stock <= 0 {
		return shared.NewDomainError("NO_STOCK", "Cannot publish a product without stock")
	}

	p.Status = ProductStatusPublished
	p.UpdatedAt = time.Now()
	return nil
}

// Suspend pulls the listing from the storefront, admin action
func (p *Product) Suspend() {
	p.Status = ProductStatusSuspended
	p.UpdatedAt = time.Now()
}

// Unsuspend returns a suspended listing to draft
func (p *Product) Unsuspend() error {
	if p.Status != ProductStatusSuspended {
		return shared.NewDomainError("INVALID_STATE", "Product is not suspended")
	}
	p.Status = ProductStatusDraft
	p.UpdatedAt = time.Now()
	return nil
}

// UpdatePrice changes the listing price
func (p *Product) UpdatePrice(price valueobject.Money) error {
	if price.Amount().LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_PRICE", "Price must be positive")
	}
	p.Price = price.Amount()
	p.UpdatedAt = time.Now()
	return nil
}

// AdjustStock applies a stock delta, negative deltas reserve units on sale
func (p *Product) AdjustStock(delta int) error {
	next := p.Stock + delta
	if next < 0 {
		return shared.NewDomainError("INSUFFICIENT_STOCK",
			fmt.Sprintf("Stock adjustment of %d would go below zero (current %d)", delta, p.Stock))
	}
	p.Stock = next
	p.UpdatedAt = time.Now()
	return nil
}

// IsAvailable reports whether the product can be ordered right now
func (p *Product) IsAvailable(quantity int) bool {
	return p.Status == ProductStatusPublished && quantity > 0 && p.Stock >= quantity
}

// GetPriceMoney returns the price as a Money value object
func (p *Product) GetPriceMoney() valueobject.Money {
	return valueobject.NewMoneyTRY(p.Price)
}
