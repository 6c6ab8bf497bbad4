package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/maraline/backend/internal/domain/shared"
	"github.com/maraline/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the status of a marketplace order
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusApproved        OrderStatus = "APPROVED"
	OrderStatusShipped         OrderStatus = "SHIPPED"
	OrderStatusCompleted       OrderStatus = "COMPLETED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusReturnRequested OrderStatus = "RETURN_REQUESTED"
	OrderStatusReturnApproved  OrderStatus = "RETURN_APPROVED"
	OrderStatusReturned        OrderStatus = "RETURNED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusApproved, OrderStatusShipped, OrderStatusCompleted,
		OrderStatusRejected, OrderStatusReturnRequested, OrderStatusReturnApproved, OrderStatusReturned:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusApproved || target == OrderStatusRejected
	case OrderStatusApproved:
		return target == OrderStatusShipped || target == OrderStatusRejected || target == OrderStatusReturnRequested
	case OrderStatusShipped:
		return target == OrderStatusCompleted || target == OrderStatusReturnRequested
	case OrderStatusCompleted:
		return target == OrderStatusReturnRequested
	case OrderStatusReturnRequested:
		return target == OrderStatusReturnApproved || target == OrderStatusCompleted
	case OrderStatusReturnApproved:
		return target == OrderStatusReturned
	case OrderStatusRejected, OrderStatusReturned:
		return false // Terminal states
	}
	return false
}

// IsPastApproval reports whether referral effects have had a chance to apply
func (s OrderStatus) IsPastApproval() bool {
	switch s {
	case OrderStatusApproved, OrderStatusShipped, OrderStatusCompleted, OrderStatusReturnRequested:
		return true
	}
	return false
}

// OrderItem represents a line item in an order. Each line carries its seller:
// a single checkout may span products from multiple vendors.
type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	SellerID    uuid.UUID
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewOrderItem creates a new order line item
func NewOrderItem(orderID, productID, sellerID uuid.UUID, productName string, quantity int, unitPrice valueobject.Money) (*OrderItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if sellerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SELLER", "Seller ID cannot be empty")
	}
	if productName == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.Amount().IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	now := time.Now()
	return &OrderItem{
		ID:          uuid.New(),
		OrderID:     orderID,
		ProductID:   productID,
		SellerID:    sellerID,
		ProductName: productName,
		Quantity:    quantity,
		UnitPrice:   unitPrice.Amount(),
		Amount:      unitPrice.Amount().Mul(decimal.NewFromInt(int64(quantity))),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Order represents a marketplace order aggregate root.
//
// OrderRefKey is the order's idempotency key. Every ledger entry written on
// behalf of this order carries the key, which is what makes exact reversal
// possible. ReferralProcessed guards exactly-once application of referral
// effects; reversal clears it so a re-approved order can apply again.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber       string
	OrderRefKey       string
	BuyerID           uuid.UUID
	Items             []OrderItem
	TotalAmount       decimal.Decimal
	Status            OrderStatus
	Paid              bool
	PaidAt            *time.Time
	GatewayPaymentRef string
	ReferralProcessed bool
	ApprovedAt        *time.Time
	ShippedAt         *time.Time
	CompletedAt       *time.Time
	RejectedAt        *time.Time
	RejectReason      string
	ReturnReason      string
	ReturnedAt        *time.Time
}

// NewOrder creates a new pending order for a buyer
func NewOrder(buyerID uuid.UUID, orderNumber string) (*Order, error) {
	if buyerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BUYER", "Buyer ID cannot be empty")
	}
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if len(orderNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot exceed 50 characters")
	}

	order := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		OrderRefKey:       strings.ReplaceAll(uuid.NewString(), "-", ""),
		BuyerID:           buyerID,
		Items:             make([]OrderItem, 0),
		TotalAmount:       decimal.Zero,
		Status:            OrderStatusPending,
	}

	order.AddDomainEvent(NewOrderCreatedEvent(order))

	return order, nil
}

// AddItem adds a line item; only allowed while the order is pending
func (o *Order) AddItem(productID, sellerID uuid.UUID, productName string, quantity int, unitPrice valueobject.Money) (*OrderItem, error) {
	if o.Status != OrderStatusPending {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot add items to a non-pending order")
	}

	item, err := NewOrderItem(o.ID, productID, sellerID, productName, quantity, unitPrice)
	if err != nil {
		return nil, err
	}

	o.Items = append(o.Items, *item)
	o.recalculateTotal()
	o.UpdatedAt = time.Now()

	return item, nil
}

// MarkPaid records a successful payment-gateway settlement
func (o *Order) MarkPaid(gatewayPaymentRef string) error {
	if o.Paid {
		return nil // already settled, callback retries are expected
	}
	now := time.Now()
	o.Paid = true
	o.PaidAt = &now
	o.GatewayPaymentRef = gatewayPaymentRef
	o.UpdatedAt = now
	return nil
}

// Approve transitions the order to APPROVED. Requires payment and items.
func (o *Order) Approve() error {
	if !o.Status.CanTransitionTo(OrderStatusApproved) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot approve order in %s status", o.Status))
	}
	if len(o.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Cannot approve an order without items")
	}
	if !o.Paid {
		return shared.NewDomainError("NOT_PAID", "Cannot approve an unpaid order")
	}

	now := time.Now()
	o.Status = OrderStatusApproved
	o.ApprovedAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderApprovedEvent(o))

	return nil
}

// Ship marks the order as shipped
func (o *Order) Ship() error {
	if !o.Status.CanTransitionTo(OrderStatusShipped) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot ship order in %s status", o.Status))
	}

	now := time.Now()
	o.Status = OrderStatusShipped
	o.ShippedAt = &now
	o.UpdatedAt = now

	return nil
}

// Complete marks the order as delivered and received
func (o *Order) Complete() error {
	if !o.Status.CanTransitionTo(OrderStatusCompleted) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete order in %s status", o.Status))
	}

	now := time.Now()
	o.Status = OrderStatusCompleted
	o.CompletedAt = &now
	o.UpdatedAt = now

	return nil
}

// Reject rejects the order. Allowed before approval, and after approval for
// admin intervention; the caller is responsible for reverting referral
// effects when rejecting a previously approved order.
func (o *Order) Reject(reason string) error {
	if !o.Status.CanTransitionTo(OrderStatusRejected) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reject order in %s status", o.Status))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Reject reason is required")
	}

	wasApproved := o.Status.IsPastApproval()
	now := time.Now()
	o.Status = OrderStatusRejected
	o.RejectedAt = &now
	o.RejectReason = reason
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderRevertedEvent(o, wasApproved))

	return nil
}

// RequestReturn opens a return request on a delivered or in-flight order
func (o *Order) RequestReturn(reason string) error {
	if !o.Status.CanTransitionTo(OrderStatusReturnRequested) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot request return for order in %s status", o.Status))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Return reason is required")
	}

	o.Status = OrderStatusReturnRequested
	o.ReturnReason = reason
	o.UpdatedAt = time.Now()

	return nil
}

// ApproveReturn accepts the return request
func (o *Order) ApproveReturn() error {
	if !o.Status.CanTransitionTo(OrderStatusReturnApproved) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot approve return for order in %s status", o.Status))
	}

	o.Status = OrderStatusReturnApproved
	o.UpdatedAt = time.Now()

	o.AddDomainEvent(NewOrderRevertedEvent(o, true))

	return nil
}

// DenyReturn closes the return request, the order counts as completed
func (o *Order) DenyReturn() error {
	if !o.Status.CanTransitionTo(OrderStatusCompleted) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot deny return for order in %s status", o.Status))
	}

	now := time.Now()
	o.Status = OrderStatusCompleted
	o.CompletedAt = &now
	o.UpdatedAt = now

	return nil
}

// MarkReturned records the physical return of the goods
func (o *Order) MarkReturned() error {
	if !o.Status.CanTransitionTo(OrderStatusReturned) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark order returned in %s status", o.Status))
	}

	now := time.Now()
	o.Status = OrderStatusReturned
	o.ReturnedAt = &now
	o.UpdatedAt = now

	return nil
}

// MarkReferralProcessed flags the order's referral effects as applied
func (o *Order) MarkReferralProcessed() {
	o.ReferralProcessed = true
	o.UpdatedAt = time.Now()
}

// ClearReferralProcessed resets the guard after reversal so the order can
// apply referral effects again if it is ever re-approved
func (o *Order) ClearReferralProcessed() {
	o.ReferralProcessed = false
	o.UpdatedAt = time.Now()
}

// recalculateTotal recalculates the order total from its items
func (o *Order) recalculateTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Amount)
	}
	o.TotalAmount = total
}

// GetTotalAmountMoney returns the total as a Money value object
func (o *Order) GetTotalAmountMoney() valueobject.Money {
	return valueobject.NewMoneyTRY(o.TotalAmount)
}

// IsApproved returns true if the order is in APPROVED status
func (o *Order) IsApproved() bool {
	return o.Status == OrderStatusApproved
}

// IsTerminal returns true if the order is in a terminal state
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusRejected || o.Status == OrderStatusReturned
}

// ItemCount returns the number of line items
func (o *Order) ItemCount() int {
	return len(o.Items)
}
