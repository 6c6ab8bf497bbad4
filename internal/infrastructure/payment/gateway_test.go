package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maraline/backend/internal/domain/finance"
	"github.com/maraline/backend/internal/domain/shared"
	"github.com/maraline/backend/internal/infrastructure/config"
)

func newTestGateway(baseURL string) *HostedCheckoutGateway {
	return NewHostedCheckoutGateway(config.PaymentConfig{
		MerchantID:   "merchant-1",
		MerchantKey:  "test-merchant-key",
		MerchantSalt: "test-salt",
		BaseURL:      baseURL,
		SuccessURL:   "https://shop.example.com/payment/success",
		FailURL:      "https://shop.example.com/payment/fail",
		Timeout:      5 * time.Second,
	})
}

func checkoutRequest() finance.CheckoutRequest {
	return finance.CheckoutRequest{
		MerchantOID: "a1b2c3d4e5f60718293a4b5c6d7e8f90",
		Amount:      decimal.NewFromInt(1150),
		Currency:    "TRY",
		BuyerEmail:  "buyer@example.com",
		BuyerIP:     "203.0.113.10",
	}
}

func TestCreateCheckout(t *testing.T) {
	t.Run("opens a session and builds the pay URL", func(t *testing.T) {
		var gotForm map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			gotForm = map[string]string{}
			for key := range r.PostForm {
				gotForm[key] = r.PostForm.Get(key)
			}
			json.NewEncoder(w).Encode(checkoutCreateResponse{
				Status:    "success",
				Token:     "tok-123",
				ExpiresIn: 900,
			})
		}))
		defer server.Close()

		gateway := newTestGateway(server.URL)
		session, err := gateway.CreateCheckout(context.Background(), checkoutRequest())
		require.NoError(t, err)

		assert.Equal(t, "tok-123", session.Token)
		assert.Equal(t, server.URL+"/checkout/tok-123", session.PayURL)
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), session.ExpiresAt, 5*time.Second)

		assert.Equal(t, "merchant-1", gotForm["merchant_id"])
		assert.Equal(t, "a1b2c3d4e5f60718293a4b5c6d7e8f90", gotForm["merchant_oid"])
		assert.Equal(t, "115000", gotForm["payment_amount"], "amount should be sent in cents")
		assert.Equal(t, "TRY", gotForm["currency"])
		assert.NotEmpty(t, gotForm["token"], "request must be signed")
	})

	t.Run("rejected session surfaces the provider reason", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(checkoutCreateResponse{
				Status: "failed",
				Reason: "merchant suspended",
			})
		}))
		defer server.Close()

		gateway := newTestGateway(server.URL)
		_, err := gateway.CreateCheckout(context.Background(), checkoutRequest())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "merchant suspended")
	})

	t.Run("HTTP error fails the checkout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		gateway := newTestGateway(server.URL)
		_, err := gateway.CreateCheckout(context.Background(), checkoutRequest())
		assert.Error(t, err)
	})

	t.Run("empty merchant OID is rejected before any call", func(t *testing.T) {
		gateway := newTestGateway("http://127.0.0.1:0")
		req := checkoutRequest()
		req.MerchantOID = ""
		_, err := gateway.CreateCheckout(context.Background(), req)
		assert.Error(t, err)
	})
}

func TestVerifyCallback(t *testing.T) {
	gateway := newTestGateway("https://checkout.example.com")
	amount := decimal.NewFromInt(1150)

	notification := finance.CallbackNotification{
		MerchantOID: "a1b2c3d4e5f60718293a4b5c6d7e8f90",
		Status:      finance.CallbackStatusSuccess,
		TotalAmount: amount,
		PaymentRef:  "pay-789",
	}
	notification.Signature = gateway.CallbackSignature(notification.MerchantOID, notification.Status, amount)

	t.Run("accepts a correctly signed notification", func(t *testing.T) {
		assert.NoError(t, gateway.VerifyCallback(notification))
	})

	t.Run("rejects a tampered amount", func(t *testing.T) {
		tampered := notification
		tampered.TotalAmount = decimal.NewFromInt(1)
		err := gateway.VerifyCallback(tampered)
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})

	t.Run("rejects a tampered status", func(t *testing.T) {
		tampered := notification
		tampered.Status = finance.CallbackStatusFailed
		assert.ErrorIs(t, gateway.VerifyCallback(tampered), shared.ErrUnauthorized)
	})

	t.Run("rejects a signature from a different merchant secret", func(t *testing.T) {
		other := NewHostedCheckoutGateway(config.PaymentConfig{
			MerchantID:   "merchant-1",
			MerchantKey:  "another-key",
			MerchantSalt: "test-salt",
			BaseURL:      "https://checkout.example.com",
		})
		forged := notification
		forged.Signature = other.CallbackSignature(forged.MerchantOID, forged.Status, amount)
		assert.ErrorIs(t, gateway.VerifyCallback(forged), shared.ErrUnauthorized)
	})
}
