package finance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/maraline/backend/internal/domain/finance"
	"github.com/maraline/backend/internal/domain/shared"
	"github.com/maraline/backend/internal/domain/trade"
	"go.uber.org/zap"
)

var (
	// ErrCallbackVerificationFailed is returned when the notification signature does not match
	ErrCallbackVerificationFailed = errors.New("payment callback: signature verification failed")
	// ErrCallbackOrderNotFound is returned when no order matches the merchant oid
	ErrCallbackOrderNotFound = errors.New("payment callback: order not found")
	// ErrCallbackAmountMismatch is returned when the settled amount differs from the order total
	ErrCallbackAmountMismatch = errors.New("payment callback: amount mismatch")
)

// OrderReverter undoes a refunded order's commercial effects. Implemented by
// the trade order service.
type OrderReverter interface {
	Refund(ctx context.Context, orderID uuid.UUID, reason string) error
}

// PaymentCallbackService handles server-to-server payment notifications.
// The gateway retries callbacks until it sees an OK, so every path through
// here has to be safe to repeat.
type PaymentCallbackService struct {
	gateway     finance.PaymentGateway
	orders      trade.OrderRepository
	reverter    OrderReverter
	idempotency shared.IdempotencyStore
	ttl         time.Duration
	logger      *zap.Logger
}

// PaymentCallbackServiceConfig holds configuration for the callback service
type PaymentCallbackServiceConfig struct {
	Gateway     finance.PaymentGateway
	Orders      trade.OrderRepository
	Reverter    OrderReverter
	Idempotency shared.IdempotencyStore
	TTL         time.Duration
	Logger      *zap.Logger
}

// NewPaymentCallbackService creates a new PaymentCallbackService
func NewPaymentCallbackService(cfg PaymentCallbackServiceConfig) *PaymentCallbackService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyConfig().TTL
	}
	return &PaymentCallbackService{
		gateway:     cfg.Gateway,
		orders:      cfg.Orders,
		reverter:    cfg.Reverter,
		idempotency: cfg.Idempotency,
		ttl:         ttl,
		logger:      logger,
	}
}

// CallbackResult reports how a notification was handled
type CallbackResult struct {
	Success          bool
	AlreadyProcessed bool
}

// ProcessCallback verifies and settles a gateway notification
func (s *PaymentCallbackService) ProcessCallback(ctx context.Context, n finance.CallbackNotification) (*CallbackResult, error) {
	if err := s.gateway.VerifyCallback(n); err != nil {
		s.logger.Warn("Callback verification failed",
			zap.String("merchant_oid", n.MerchantOID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrCallbackVerificationFailed, err)
	}

	s.logger.Info("Payment callback received",
		zap.String("merchant_oid", n.MerchantOID),
		zap.String("status", n.Status),
		zap.String("amount", n.TotalAmount.String()))

	key := fmt.Sprintf("payment:%s:%s", n.MerchantOID, n.PaymentRef)
	fresh, err := s.idempotency.MarkProcessed(ctx, key, s.ttl)
	if err != nil {
		return nil, err
	}
	if !fresh {
		s.logger.Info("Callback already processed", zap.String("key", key))
		return &CallbackResult{Success: true, AlreadyProcessed: true}, nil
	}

	if err := s.handle(ctx, n); err != nil {
		// forget the key so the gateway's retry can succeed
		if ferr := s.idempotency.Forget(ctx, key); ferr != nil {
			s.logger.Error("Failed to forget idempotency key", zap.String("key", key), zap.Error(ferr))
		}
		return nil, err
	}

	return &CallbackResult{Success: true}, nil
}

func (s *PaymentCallbackService) handle(ctx context.Context, n finance.CallbackNotification) error {
	if n.IsRefund() {
		return s.handleRefund(ctx, n)
	}
	if !n.IsSuccess() {
		s.logger.Info("Skipping non-successful callback",
			zap.String("merchant_oid", n.MerchantOID),
			zap.String("status", n.Status))
		return nil
	}

	order, err := s.orders.FindByOrderRefKey(ctx, n.MerchantOID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return ErrCallbackOrderNotFound
		}
		return err
	}

	if order.Paid {
		s.logger.Info("Order already settled",
			zap.String("order_id", order.ID.String()))
		return nil
	}

	if !n.TotalAmount.Equal(order.TotalAmount) {
		s.logger.Error("Callback amount does not match order total",
			zap.String("order_id", order.ID.String()),
			zap.String("order_total", order.TotalAmount.String()),
			zap.String("callback_amount", n.TotalAmount.String()))
		return ErrCallbackAmountMismatch
	}

	if err := order.MarkPaid(n.PaymentRef); err != nil {
		return err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return fmt.Errorf("failed to save settled order: %w", err)
	}

	s.logger.Info("Order settled via gateway callback",
		zap.String("order_id", order.ID.String()),
		zap.String("payment_ref", n.PaymentRef))

	return nil
}

// handleRefund maps a gateway refund notification onto the order reversal
// flow. Only full refunds are supported; a partial amount is rejected so the
// gateway surfaces it for manual handling.
func (s *PaymentCallbackService) handleRefund(ctx context.Context, n finance.CallbackNotification) error {
	order, err := s.orders.FindByOrderRefKey(ctx, n.MerchantOID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return ErrCallbackOrderNotFound
		}
		return err
	}

	if !order.Paid {
		s.logger.Info("Refund callback for unsettled order, nothing to revert",
			zap.String("order_id", order.ID.String()))
		return nil
	}

	if !n.TotalAmount.Equal(order.TotalAmount) {
		s.logger.Error("Refund amount does not match order total",
			zap.String("order_id", order.ID.String()),
			zap.String("order_total", order.TotalAmount.String()),
			zap.String("refund_amount", n.TotalAmount.String()))
		return ErrCallbackAmountMismatch
	}

	if err := s.reverter.Refund(ctx, order.ID, "Payment refunded by gateway"); err != nil {
		return fmt.Errorf("failed to revert refunded order: %w", err)
	}

	s.logger.Info("Order reverted via gateway refund",
		zap.String("order_id", order.ID.String()),
		zap.String("payment_ref", n.PaymentRef))

	return nil
}
