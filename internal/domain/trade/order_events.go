package trade

import (
	"github.com/google/uuid"
	"github.com/maraline/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const (
	AggregateTypeOrder = "Order"

	EventTypeOrderCreated  = "order.created"
	EventTypeOrderApproved = "order.approved"
	EventTypeOrderReverted = "order.reverted"
)

// OrderCreatedEvent is published when a new order is placed
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string          `json:"order_number"`
	BuyerID     uuid.UUID       `json:"buyer_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(order *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, order.ID),
		OrderNumber:     order.OrderNumber,
		BuyerID:         order.BuyerID,
		TotalAmount:     order.TotalAmount,
	}
}

// OrderApprovedEvent is published when an order is approved. Approval is the
// trigger for applying referral effects.
type OrderApprovedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string          `json:"order_number"`
	OrderRefKey string          `json:"order_ref_key"`
	BuyerID     uuid.UUID       `json:"buyer_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewOrderApprovedEvent creates a new OrderApprovedEvent
func NewOrderApprovedEvent(order *Order) *OrderApprovedEvent {
	return &OrderApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderApproved, AggregateTypeOrder, order.ID),
		OrderNumber:     order.OrderNumber,
		OrderRefKey:     order.OrderRefKey,
		BuyerID:         order.BuyerID,
		TotalAmount:     order.TotalAmount,
	}
}

// OrderRevertedEvent is published when an order is rejected or its return is
// approved. WasApproved tells subscribers whether referral effects may need
// to be reverted.
type OrderRevertedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string      `json:"order_number"`
	OrderRefKey string      `json:"order_ref_key"`
	BuyerID     uuid.UUID   `json:"buyer_id"`
	Status      OrderStatus `json:"status"`
	WasApproved bool        `json:"was_approved"`
}

// NewOrderRevertedEvent creates a new OrderRevertedEvent
func NewOrderRevertedEvent(order *Order, wasApproved bool) *OrderRevertedEvent {
	return &OrderRevertedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderReverted, AggregateTypeOrder, order.ID),
		OrderNumber:     order.OrderNumber,
		OrderRefKey:     order.OrderRefKey,
		BuyerID:         order.BuyerID,
		Status:          order.Status,
		WasApproved:     wasApproved,
	}
}
