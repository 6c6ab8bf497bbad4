package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/maraline/backend/internal/domain/catalog"
)

// ProductModel is the persistence model for the Product aggregate root.
type ProductModel struct {
	AggregateModel
	SellerID    uuid.UUID             `gorm:"type:uuid;not null;index"`
	CategoryID  uuid.UUID             `gorm:"type:uuid;not null;index"`
	Name        string                `gorm:"type:varchar(200);not null"`
	Description string                `gorm:"type:text"`
	Price       decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Stock       int                   `gorm:"not null;default:0"`
	Status      catalog.ProductStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	ImageURLs   []string              `gorm:"type:text;serializer:json"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		SellerID:          m.SellerID,
		CategoryID:        m.CategoryID,
		Name:              m.Name,
		Description:       m.Description,
		Price:             m.Price,
		Stock:             m.Stock,
		Status:            m.Status,
		ImageURLs:         m.ImageURLs,
	}
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.SellerID = p.SellerID
	m.CategoryID = p.CategoryID
	m.Name = p.Name
	m.Description = p.Description
	m.Price = p.Price
	m.Stock = p.Stock
	m.Status = p.Status
	m.ImageURLs = p.ImageURLs
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}

// CategoryModel is the persistence model for the Category entity.
type CategoryModel struct {
	BaseModel
	Name     string     `gorm:"type:varchar(200);not null"`
	Slug     string     `gorm:"type:varchar(200);not null;uniqueIndex"`
	ParentID *uuid.UUID `gorm:"type:uuid;index"`
	Active   bool       `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (CategoryModel) TableName() string {
	return "categories"
}

// ToDomain converts the persistence model to a domain Category entity.
func (m *CategoryModel) ToDomain() *catalog.Category {
	return &catalog.Category{
		BaseEntity: m.BaseModel.ToDomain(),
		Name:       m.Name,
		Slug:       m.Slug,
		ParentID:   m.ParentID,
		Active:     m.Active,
	}
}

// FromDomain populates the persistence model from a domain Category entity.
func (m *CategoryModel) FromDomain(c *catalog.Category) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.Name = c.Name
	m.Slug = c.Slug
	m.ParentID = c.ParentID
	m.Active = c.Active
}

// CategoryModelFromDomain creates a new persistence model from a domain Category entity.
func CategoryModelFromDomain(c *catalog.Category) *CategoryModel {
	m := &CategoryModel{}
	m.FromDomain(c)
	return m
}
