package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/maraline/backend/internal/domain/trade"
)

// OrderModel is the persistence model for the Order aggregate root.
type OrderModel struct {
	AggregateModel
	OrderNumber       string            `gorm:"type:varchar(50);not null;uniqueIndex"`
	OrderRefKey       string            `gorm:"type:varchar(64);not null;uniqueIndex"`
	BuyerID           uuid.UUID         `gorm:"type:uuid;not null;index"`
	Items             []OrderItemModel  `gorm:"foreignKey:OrderID;references:ID"`
	TotalAmount       decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0"`
	Status            trade.OrderStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	Paid              bool              `gorm:"not null;default:false"`
	PaidAt            *time.Time
	GatewayPaymentRef string `gorm:"type:varchar(100)"`
	ReferralProcessed bool   `gorm:"not null;default:false"`
	ApprovedAt        *time.Time
	ShippedAt         *time.Time
	CompletedAt       *time.Time
	RejectedAt        *time.Time
	RejectReason      string `gorm:"type:varchar(500)"`
	ReturnReason      string `gorm:"type:varchar(500)"`
	ReturnedAt        *time.Time
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order entity.
func (m *OrderModel) ToDomain() *trade.Order {
	order := &trade.Order{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		OrderNumber:       m.OrderNumber,
		OrderRefKey:       m.OrderRefKey,
		BuyerID:           m.BuyerID,
		TotalAmount:       m.TotalAmount,
		Status:            m.Status,
		Paid:              m.Paid,
		PaidAt:            m.PaidAt,
		GatewayPaymentRef: m.GatewayPaymentRef,
		ReferralProcessed: m.ReferralProcessed,
		ApprovedAt:        m.ApprovedAt,
		ShippedAt:         m.ShippedAt,
		CompletedAt:       m.CompletedAt,
		RejectedAt:        m.RejectedAt,
		RejectReason:      m.RejectReason,
		ReturnReason:      m.ReturnReason,
		ReturnedAt:        m.ReturnedAt,
		Items:             make([]trade.OrderItem, len(m.Items)),
	}
	for i, item := range m.Items {
		order.Items[i] = *item.ToDomain()
	}
	return order
}

// FromDomain populates the persistence model from a domain Order entity.
func (m *OrderModel) FromDomain(o *trade.Order) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.OrderRefKey = o.OrderRefKey
	m.BuyerID = o.BuyerID
	m.TotalAmount = o.TotalAmount
	m.Status = o.Status
	m.Paid = o.Paid
	m.PaidAt = o.PaidAt
	m.GatewayPaymentRef = o.GatewayPaymentRef
	m.ReferralProcessed = o.ReferralProcessed
	m.ApprovedAt = o.ApprovedAt
	m.ShippedAt = o.ShippedAt
	m.CompletedAt = o.CompletedAt
	m.RejectedAt = o.RejectedAt
	m.RejectReason = o.RejectReason
	m.ReturnReason = o.ReturnReason
	m.ReturnedAt = o.ReturnedAt
	m.Items = make([]OrderItemModel, len(o.Items))
	for i, item := range o.Items {
		m.Items[i] = *OrderItemModelFromDomain(&item)
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order entity.
func OrderModelFromDomain(o *trade.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderItemModel is the persistence model for an order line item.
type OrderItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	SellerID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	Quantity    int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain OrderItem entity.
func (m *OrderItemModel) ToDomain() *trade.OrderItem {
	return &trade.OrderItem{
		ID:          m.ID,
		OrderID:     m.OrderID,
		ProductID:   m.ProductID,
		SellerID:    m.SellerID,
		ProductName: m.ProductName,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		Amount:      m.Amount,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain OrderItem entity.
func (m *OrderItemModel) FromDomain(i *trade.OrderItem) {
	m.ID = i.ID
	m.OrderID = i.OrderID
	m.ProductID = i.ProductID
	m.SellerID = i.SellerID
	m.ProductName = i.ProductName
	m.Quantity = i.Quantity
	m.UnitPrice = i.UnitPrice
	m.Amount = i.Amount
	m.CreatedAt = i.CreatedAt
	m.UpdatedAt = i.UpdatedAt
}

// OrderItemModelFromDomain creates a new persistence model from a domain OrderItem entity.
func OrderItemModelFromDomain(i *trade.OrderItem) *OrderItemModel {
	m := &OrderItemModel{}
	m.FromDomain(i)
	return m
}
