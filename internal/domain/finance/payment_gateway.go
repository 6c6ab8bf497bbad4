package finance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Callback status values sent by the payment gateway.
const (
	CallbackStatusSuccess = "success"
	CallbackStatusFailed  = "failed"
	CallbackStatusRefund  = "refund"
)

// CheckoutRequest carries what the gateway needs to open a payment session
type CheckoutRequest struct {
	MerchantOID string
	Amount      decimal.Decimal
	Currency    string
	BuyerEmail  string
	BuyerIP     string
	SuccessURL  string
	FailURL     string
}

// CheckoutSession is the gateway's answer, the buyer is redirected to PayURL
type CheckoutSession struct {
	Token     string
	PayURL    string
	ExpiresAt time.Time
}

// CallbackNotification is the server-to-server notification the gateway
// posts after the buyer finishes payment. Signature covers MerchantOID,
// status and amount, keyed with the merchant secret.
type CallbackNotification struct {
	MerchantOID string
	Status      string
	TotalAmount decimal.Decimal
	PaymentRef  string
	Signature   string
}

// IsSuccess reports whether the notification signals a settled payment
func (n CallbackNotification) IsSuccess() bool {
	return n.Status == CallbackStatusSuccess
}

// IsRefund reports whether the notification signals a refunded or
// charged-back payment
func (n CallbackNotification) IsRefund() bool {
	return n.Status == CallbackStatusRefund
}

// PaymentGateway abstracts the external payment provider
type PaymentGateway interface {
	// CreateCheckout opens a hosted payment session for an order
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)

	// VerifyCallback validates the notification signature. Returns
	// shared.ErrUnauthorized wrapped in a domain error when it does not match.
	VerifyCallback(n CallbackNotification) error
}
