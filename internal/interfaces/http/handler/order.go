package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	tradeapp "github.com/maraline/backend/internal/application/trade"
	"github.com/maraline/backend/internal/domain/trade"
)

// OrderHandler handles order endpoints
type OrderHandler struct {
	BaseHandler
	orderService *tradeapp.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *tradeapp.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// CheckoutItem is one cart line in the checkout request body
type CheckoutItem struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,gt=0"`
}

// CheckoutBody is the request body for creating an order
type CheckoutBody struct {
	Items []CheckoutItem `json:"items" binding:"required,min=1,dive"`
}

// RejectOrderRequest is the request body for rejecting an order
type RejectOrderRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// ReturnRequestBody is the request body for requesting a return
type ReturnRequestBody struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// Checkout creates an order from the buyer's cart and opens a payment session
func (h *OrderHandler) Checkout(c *gin.Context) {
	buyerID, err := currentUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var body CheckoutBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	items := make([]tradeapp.CheckoutItemRequest, len(body.Items))
	for i, item := range body.Items {
		items[i] = tradeapp.CheckoutItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
	}

	resp, err := h.orderService.Checkout(c.Request.Context(), tradeapp.CheckoutRequest{
		BuyerID: buyerID,
		BuyerIP: c.ClientIP(),
		Items:   items,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get returns a single order
func (h *OrderHandler) Get(c *gin.Context) {
	orderID, ok := pathID(c)
	if !ok {
		h.BadRequest(c, "invalid order ID")
		return
	}

	resp, err := h.orderService.GetByID(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List returns orders matching the query filters
func (h *OrderHandler) List(c *gin.Context) {
	filter, _, err := bindFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	listFilter := tradeapp.OrderListFilter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
	}
	if buyerParam := c.Query("buyer_id"); buyerParam != "" {
		buyerID, err := uuid.Parse(buyerParam)
		if err != nil {
			h.BadRequest(c, "invalid buyer ID")
			return
		}
		listFilter.BuyerID = &buyerID
	}
	if statusParam := c.Query("status"); statusParam != "" {
		status := trade.OrderStatus(statusParam)
		if !status.IsValid() {
			h.BadRequest(c, "invalid status filter")
			return
		}
		listFilter.Status = &status
	}

	page, err := h.orderService.List(c.Request.Context(), listFilter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// MyOrders returns the authenticated buyer's orders
func (h *OrderHandler) MyOrders(c *gin.Context) {
	buyerID, err := currentUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	filter, _, err := bindFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.orderService.ListByBuyer(c.Request.Context(), buyerID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Approve approves a paid order and triggers referral processing
func (h *OrderHandler) Approve(c *gin.Context) {
	h.transition(c, h.orderService.Approve)
}

// Ship marks an approved order as shipped
func (h *OrderHandler) Ship(c *gin.Context) {
	h.transition(c, h.orderService.Ship)
}

// Complete marks a shipped order as completed
func (h *OrderHandler) Complete(c *gin.Context) {
	h.transition(c, h.orderService.Complete)
}

// Reject rejects a pending order and reverts its referral effects
func (h *OrderHandler) Reject(c *gin.Context) {
	orderID, ok := pathID(c)
	if !ok {
		h.BadRequest(c, "invalid order ID")
		return
	}

	var req RejectOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.orderService.Reject(c.Request.Context(), orderID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RequestReturn opens a return request on the buyer's own order
func (h *OrderHandler) RequestReturn(c *gin.Context) {
	buyerID, err := currentUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	orderID, ok := pathID(c)
	if !ok {
		h.BadRequest(c, "invalid order ID")
		return
	}

	var req ReturnRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.orderService.RequestReturn(c.Request.Context(), orderID, buyerID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ApproveReturn accepts a return request and claws back referral bonuses
func (h *OrderHandler) ApproveReturn(c *gin.Context) {
	h.transition(c, h.orderService.ApproveReturn)
}

// DenyReturn declines a return request
func (h *OrderHandler) DenyReturn(c *gin.Context) {
	h.transition(c, h.orderService.DenyReturn)
}

// MarkReturned records physical receipt of the returned goods
func (h *OrderHandler) MarkReturned(c *gin.Context) {
	h.transition(c, h.orderService.MarkReturned)
}

func (h *OrderHandler) transition(c *gin.Context, fn func(ctx context.Context, orderID uuid.UUID) (*tradeapp.OrderResponse, error)) {
	orderID, ok := pathID(c)
	if !ok {
		h.BadRequest(c, "invalid order ID")
		return
	}

	resp, err := fn(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
