package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	financeapp "github.com/maraline/backend/internal/application/finance"
	"github.com/maraline/backend/internal/domain/finance"
)

// PaymentCallbackHandler receives server-to-server payment notifications.
// The gateway retries until it reads a bare "OK" body, so responses here
// deliberately bypass the JSON envelope.
type PaymentCallbackHandler struct {
	callbackService *financeapp.PaymentCallbackService
	logger          *zap.Logger
}

// NewPaymentCallbackHandler creates a new PaymentCallbackHandler
func NewPaymentCallbackHandler(callbackService *financeapp.PaymentCallbackService, logger *zap.Logger) *PaymentCallbackHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentCallbackHandler{callbackService: callbackService, logger: logger}
}

// Callback handles the gateway's form-encoded payment notification
func (h *PaymentCallbackHandler) Callback(c *gin.Context) {
	merchantOID := c.PostForm("merchant_oid")
	status := c.PostForm("status")
	if merchantOID == "" || status == "" {
		c.String(http.StatusBadRequest, "missing fields")
		return
	}

	amount, err := decimal.NewFromString(c.PostForm("total_amount"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid amount")
		return
	}

	result, err := h.callbackService.ProcessCallback(c.Request.Context(), finance.CallbackNotification{
		MerchantOID: merchantOID,
		Status:      status,
		TotalAmount: amount,
		PaymentRef:  c.PostForm("payment_ref"),
		Signature:   c.PostForm("hash"),
	})
	if err != nil {
		h.logger.Error("payment callback rejected",
			zap.String("merchant_oid", merchantOID),
			zap.Error(err))
		c.String(http.StatusBadRequest, "callback rejected")
		return
	}

	h.logger.Info("payment callback processed",
		zap.String("merchant_oid", merchantOID),
		zap.Bool("success", result.Success),
		zap.Bool("already_processed", result.AlreadyProcessed))
	c.String(http.StatusOK, "OK")
}
