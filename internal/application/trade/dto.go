package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/maraline/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// CheckoutItemRequest is one cart line in a checkout request
type CheckoutItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,gt=0"`
}

// CheckoutRequest contains the input for creating an order
type CheckoutRequest struct {
	BuyerID uuid.UUID
	BuyerIP string
	Items   []CheckoutItemRequest
}

// CheckoutResponse returns the created order and the payment session
type CheckoutResponse struct {
	Order           OrderResponse `json:"order"`
	PaymentToken    string        `json:"payment_token"`
	PaymentURL      string        `json:"payment_url"`
	PaymentDeadline time.Time     `json:"payment_deadline"`
}

// OrderItemResponse is the response representation of an order line
type OrderItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	SellerID    uuid.UUID       `json:"seller_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// OrderResponse is the response representation of an order
type OrderResponse struct {
	ID           uuid.UUID           `json:"id"`
	OrderNumber  string              `json:"order_number"`
	BuyerID      uuid.UUID           `json:"buyer_id"`
	Status       string              `json:"status"`
	TotalAmount  decimal.Decimal     `json:"total_amount"`
	Paid         bool                `json:"paid"`
	PaidAt       *time.Time          `json:"paid_at,omitempty"`
	Items        []OrderItemResponse `json:"items"`
	RejectReason string              `json:"reject_reason,omitempty"`
	ReturnReason string              `json:"return_reason,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// OrderListFilter contains filtering options for order listing
type OrderListFilter struct {
	Page     int
	PageSize int
	BuyerID  *uuid.UUID
	Status   *trade.OrderStatus
	OrderBy  string
	OrderDir string
}

// ToOrderResponse converts a domain order to its response representation
func ToOrderResponse(order *trade.Order) OrderResponse {
	items := make([]OrderItemResponse, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			SellerID:    item.SellerID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount,
		}
	}
	return OrderResponse{
		ID:           order.ID,
		OrderNumber:  order.OrderNumber,
		BuyerID:      order.BuyerID,
		Status:       order.Status.String(),
		TotalAmount:  order.TotalAmount,
		Paid:         order.Paid,
		PaidAt:       order.PaidAt,
		Items:        items,
		RejectReason: order.RejectReason,
		ReturnReason: order.ReturnReason,
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
	}
}
