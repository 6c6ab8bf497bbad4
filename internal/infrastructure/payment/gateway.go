package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maraline/backend/internal/domain/finance"
	"github.com/maraline/backend/internal/domain/shared"
	"github.com/maraline/backend/internal/infrastructure/config"
)

const (
	checkoutCreatePath = "/api/checkout/create"
	checkoutPayPath    = "/checkout"
)

// HostedCheckoutGateway implements finance.PaymentGateway against an
// HMAC-token hosted checkout provider. The buyer is redirected to the
// provider's payment page; settlement arrives as a signed server-to-server
// callback.
type HostedCheckoutGateway struct {
	merchantID   string
	merchantKey  []byte
	merchantSalt string
	baseURL      string
	successURL   string
	failURL      string
	httpClient   *http.Client
}

// NewHostedCheckoutGateway creates a gateway client from payment configuration
func NewHostedCheckoutGateway(cfg config.PaymentConfig) *HostedCheckoutGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HostedCheckoutGateway{
		merchantID:   cfg.MerchantID,
		merchantKey:  []byte(cfg.MerchantKey),
		merchantSalt: cfg.MerchantSalt,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		successURL:   cfg.SuccessURL,
		failURL:      cfg.FailURL,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// checkoutCreateResponse is the provider's answer to a session request
type checkoutCreateResponse struct {
	Status    string `json:"status"`
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
	Reason    string `json:"reason"`
}

// CreateCheckout opens a hosted payment session for an order
func (g *HostedCheckoutGateway) CreateCheckout(ctx context.Context, req finance.CheckoutRequest) (*finance.CheckoutSession, error) {
	if req.MerchantOID == "" {
		return nil, shared.NewDomainError("INVALID_MERCHANT_OID", "Merchant order ID cannot be empty")
	}

	amountCents := strconv.FormatInt(req.Amount.Mul(decimal.NewFromInt(100)).IntPart(), 10)

	successURL := req.SuccessURL
	if successURL == "" {
		successURL = g.successURL
	}
	failURL := req.FailURL
	if failURL == "" {
		failURL = g.failURL
	}

	form := url.Values{}
	form.Set("merchant_id", g.merchantID)
	form.Set("merchant_oid", req.MerchantOID)
	form.Set("payment_amount", amountCents)
	form.Set("currency", req.Currency)
	form.Set("email", req.BuyerEmail)
	form.Set("user_ip", req.BuyerIP)
	form.Set("merchant_ok_url", successURL)
	form.Set("merchant_fail_url", failURL)
	form.Set("token", g.requestToken(req.MerchantOID, amountCents, req.Currency, req.BuyerEmail))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+checkoutCreatePath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("payment: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payment: gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("payment: failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("payment: gateway returned HTTP %d", resp.StatusCode)
	}

	var result checkoutCreateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("payment: failed to parse response: %w", err)
	}
	if result.Status != "success" {
		return nil, fmt.Errorf("payment: session rejected: %s", result.Reason)
	}
	if result.Token == "" {
		return nil, fmt.Errorf("payment: session response missing token")
	}

	expiresIn := result.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 1800
	}

	return &finance.CheckoutSession{
		Token:     result.Token,
		PayURL:    fmt.Sprintf("%s%s/%s", g.baseURL, checkoutPayPath, result.Token),
		ExpiresAt: time.Now().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}

// VerifyCallback validates the notification signature
func (g *HostedCheckoutGateway) VerifyCallback(n finance.CallbackNotification) error {
	expected := g.CallbackSignature(n.MerchantOID, n.Status, n.TotalAmount)
	if !hmac.Equal([]byte(expected), []byte(n.Signature)) {
		return fmt.Errorf("payment: callback signature mismatch: %w", shared.ErrUnauthorized)
	}
	return nil
}

// CallbackSignature computes the expected signature for a callback. Exposed
// so tests and sandbox tooling can produce valid notifications.
func (g *HostedCheckoutGateway) CallbackSignature(merchantOID, status string, amount decimal.Decimal) string {
	return g.hmacToken(merchantOID + g.merchantSalt + status + amount.StringFixed(2))
}

// requestToken signs a session request with the merchant key
func (g *HostedCheckoutGateway) requestToken(merchantOID, amountCents, currency, email string) string {
	return g.hmacToken(g.merchantID + merchantOID + amountCents + currency + email + g.merchantSalt)
}

func (g *HostedCheckoutGateway) hmacToken(message string) string {
	mac := hmac.New(sha256.New, g.merchantKey)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Ensure HostedCheckoutGateway implements PaymentGateway
var _ finance.PaymentGateway = (*HostedCheckoutGateway)(nil)
