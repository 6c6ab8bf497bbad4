package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	financeapp "github.com/maraline/backend/internal/application/finance"
	"github.com/maraline/backend/internal/domain/finance"
)

// WithdrawalHandler handles withdrawal request endpoints
type WithdrawalHandler struct {
	BaseHandler
	withdrawalService *financeapp.WithdrawalService
}

// NewWithdrawalHandler creates a new WithdrawalHandler
func NewWithdrawalHandler(withdrawalService *financeapp.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawalService: withdrawalService}
}

// RequestWithdrawalBody is the request body for creating a withdrawal request
type RequestWithdrawalBody struct {
	Amount     decimal.Decimal `json:"amount" binding:"required"`
	IBAN       string          `json:"iban" binding:"required,tr_iban"`
	HolderName string          `json:"holder_name" binding:"required,min=2,max=200"`
}

// RejectWithdrawalRequest is the request body for rejecting a withdrawal
type RejectWithdrawalRequest struct {
	Note string `json:"note" binding:"required,min=1,max=500"`
}

// Request creates a withdrawal request against the caller's available balance
func (h *WithdrawalHandler) Request(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var body RequestWithdrawalBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.withdrawalService.Request(c.Request.Context(), financeapp.RequestWithdrawalInput{
		UserID:     userID,
		Amount:     body.Amount,
		IBAN:       body.IBAN,
		HolderName: body.HolderName,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// MyWithdrawals returns the caller's withdrawal history
func (h *WithdrawalHandler) MyWithdrawals(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	filter, _, err := bindFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.withdrawalService.ListByUser(c.Request.Context(), userID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// List returns withdrawal requests matching the query filters
func (h *WithdrawalHandler) List(c *gin.Context) {
	filter, _, err := bindFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	listFilter := finance.WithdrawalFilter{Filter: filter}
	if userParam := c.Query("user_id"); userParam != "" {
		userID, err := uuid.Parse(userParam)
		if err != nil {
			h.BadRequest(c, "invalid user ID")
			return
		}
		listFilter.UserID = &userID
	}
	if statusParam := c.Query("status"); statusParam != "" {
		status := finance.WithdrawalStatus(statusParam)
		if !status.IsValid() {
			h.BadRequest(c, "invalid status filter")
			return
		}
		listFilter.Status = status
	}

	page, err := h.withdrawalService.List(c.Request.Context(), listFilter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Approve approves a pending withdrawal and debits the user's wallet
func (h *WithdrawalHandler) Approve(c *gin.Context) {
	adminID, err := currentUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	requestID, ok := pathID(c)
	if !ok {
		h.BadRequest(c, "invalid withdrawal request ID")
		return
	}

	resp, err := h.withdrawalService.Approve(c.Request.Context(), requestID, adminID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Reject rejects a pending withdrawal with an explanatory note
func (h *WithdrawalHandler) Reject(c *gin.Context) {
	adminID, err := currentUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	requestID, ok := pathID(c)
	if !ok {
		h.BadRequest(c, "invalid withdrawal request ID")
		return
	}

	var req RejectWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.withdrawalService.Reject(c.Request.Context(), requestID, adminID, req.Note)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
