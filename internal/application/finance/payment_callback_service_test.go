package finance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/maraline/backend/internal/domain/finance"
	"github.com/maraline/backend/internal/domain/shared"
	"github.com/maraline/backend/internal/domain/shared/valueobject"
	"github.com/maraline/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memOrderRepo struct {
	orders map[uuid.UUID]*trade.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[uuid.UUID]*trade.Order)}
}

func (r *memOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	if o, ok := r.orders[id]; ok {
		return o, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memOrderRepo) FindByOrderNumber(ctx context.Context, orderNumber string) (*trade.Order, error) {
	for _, o := range r.orders {
		if o.OrderNumber == orderNumber {
			return o, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memOrderRepo) FindByOrderRefKey(ctx context.Context, orderRefKey string) (*trade.Order, error) {
	for _, o := range r.orders {
		if o.OrderRefKey == orderRefKey {
			return o, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memOrderRepo) FindAll(ctx context.Context, filter trade.OrderFilter) (*shared.Paginated[trade.Order], error) {
	p := shared.NewPaginated([]trade.Order{}, 0, 1, 20)
	return &p, nil
}

func (r *memOrderRepo) FindByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) (*shared.Paginated[trade.Order], error) {
	p := shared.NewPaginated([]trade.Order{}, 0, 1, 20)
	return &p, nil
}

func (r *memOrderRepo) HasPendingOrders(ctx context.Context, buyerID uuid.UUID) (bool, error) {
	return false, nil
}

func (r *memOrderRepo) Save(ctx context.Context, order *trade.Order) error {
	r.orders[order.ID] = order
	return nil
}

// verifyingGateway accepts only notifications signed "valid".
type verifyingGateway struct{}

func (verifyingGateway) CreateCheckout(ctx context.Context, req finance.CheckoutRequest) (*finance.CheckoutSession, error) {
	return &finance.CheckoutSession{Token: "tok", PayURL: "https://pay.example.com/tok", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (verifyingGateway) VerifyCallback(n finance.CallbackNotification) error {
	if n.Signature != "valid" {
		return shared.ErrUnauthorized
	}
	return nil
}

type memIdempotencyStore struct {
	keys map[string]bool
}

func newMemIdempotencyStore() *memIdempotencyStore {
	return &memIdempotencyStore{keys: make(map[string]bool)}
}

func (s *memIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *memIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	return s.keys[key], nil
}

func (s *memIdempotencyStore) Forget(ctx context.Context, key string) error {
	delete(s.keys, key)
	return nil
}

func (s *memIdempotencyStore) Close() error { return nil }

// recordingReverter captures refund requests handed to the order service
type recordingReverter struct {
	orderIDs []uuid.UUID
	err      error
}

func (r *recordingReverter) Refund(ctx context.Context, orderID uuid.UUID, reason string) error {
	if r.err != nil {
		return r.err
	}
	r.orderIDs = append(r.orderIDs, orderID)
	return nil
}

func newRefundFixture(t *testing.T) (*PaymentCallbackService, *recordingReverter, *trade.Order) {
	t.Helper()
	orders := newMemOrderRepo()
	reverter := &recordingReverter{}
	svc := NewPaymentCallbackService(PaymentCallbackServiceConfig{
		Gateway:     verifyingGateway{},
		Orders:      orders,
		Reverter:    reverter,
		Idempotency: newMemIdempotencyStore(),
	})

	order, err := trade.NewOrder(uuid.New(), "SO20260830-refund")
	require.NoError(t, err)
	_, err = order.AddItem(uuid.New(), uuid.New(), "Shoes", 2,
		valueobject.NewMoneyTRY(decimal.NewFromInt(500)))
	require.NoError(t, err)
	require.NoError(t, order.MarkPaid("gw-12345"))
	require.NoError(t, orders.Save(context.Background(), order))

	return svc, reverter, order
}

func newCallbackFixture(t *testing.T) (*PaymentCallbackService, *memOrderRepo, *trade.Order) {
	t.Helper()
	orders := newMemOrderRepo()
	svc := NewPaymentCallbackService(PaymentCallbackServiceConfig{
		Gateway:     verifyingGateway{},
		Orders:      orders,
		Idempotency: newMemIdempotencyStore(),
	})

	order, err := trade.NewOrder(uuid.New(), "SO20260830-test")
	require.NoError(t, err)
	_, err = order.AddItem(uuid.New(), uuid.New(), "Shoes", 2,
		valueobject.NewMoneyTRY(decimal.NewFromInt(500)))
	require.NoError(t, err)
	require.NoError(t, orders.Save(context.Background(), order))

	return svc, orders, order
}

func notificationFor(order *trade.Order) finance.CallbackNotification {
	return finance.CallbackNotification{
		MerchantOID: order.OrderRefKey,
		Status:      finance.CallbackStatusSuccess,
		TotalAmount: order.TotalAmount,
		PaymentRef:  "gw-12345",
		Signature:   "valid",
	}
}

func TestProcessCallback_SettlesOrder(t *testing.T) {
	svc, _, order := newCallbackFixture(t)

	result, err := svc.ProcessCallback(context.Background(), notificationFor(order))

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.AlreadyProcessed)
	assert.True(t, order.Paid)
	assert.Equal(t, "gw-12345", order.GatewayPaymentRef)
}

func TestProcessCallback_RetryIsIdempotent(t *testing.T) {
	svc, _, order := newCallbackFixture(t)
	ctx := context.Background()

	_, err := svc.ProcessCallback(ctx, notificationFor(order))
	require.NoError(t, err)

	result, err := svc.ProcessCallback(ctx, notificationFor(order))

	require.NoError(t, err)
	assert.True(t, result.AlreadyProcessed)
	assert.Equal(t, "gw-12345", order.GatewayPaymentRef)
}

func TestProcessCallback_BadSignature(t *testing.T) {
	svc, _, order := newCallbackFixture(t)

	n := notificationFor(order)
	n.Signature = "forged"

	_, err := svc.ProcessCallback(context.Background(), n)

	assert.ErrorIs(t, err, ErrCallbackVerificationFailed)
	assert.False(t, order.Paid)
}

func TestProcessCallback_FailedPaymentLeavesOrderUnpaid(t *testing.T) {
	svc, _, order := newCallbackFixture(t)

	n := notificationFor(order)
	n.Status = finance.CallbackStatusFailed

	result, err := svc.ProcessCallback(context.Background(), n)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, order.Paid)
}

func TestProcessCallback_UnknownOrder(t *testing.T) {
	svc, _, order := newCallbackFixture(t)

	n := notificationFor(order)
	n.MerchantOID = "deadbeefdeadbeefdeadbeefdeadbeef"

	_, err := svc.ProcessCallback(context.Background(), n)

	assert.ErrorIs(t, err, ErrCallbackOrderNotFound)
}

func TestProcessCallback_AmountMismatch(t *testing.T) {
	svc, _, order := newCallbackFixture(t)

	n := notificationFor(order)
	n.TotalAmount = decimal.NewFromInt(1)

	_, err := svc.ProcessCallback(context.Background(), n)

	assert.ErrorIs(t, err, ErrCallbackAmountMismatch)
	assert.False(t, order.Paid)
}

func TestProcessCallback_RefundRevertsOrder(t *testing.T) {
	svc, reverter, order := newRefundFixture(t)

	n := notificationFor(order)
	n.Status = finance.CallbackStatusRefund
	n.PaymentRef = "gw-12345-refund"

	result, err := svc.ProcessCallback(context.Background(), n)

	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, reverter.orderIDs, 1)
	assert.Equal(t, order.ID, reverter.orderIDs[0])
}

func TestProcessCallback_RefundForUnsettledOrderIsSkipped(t *testing.T) {
	svc, _, order := newCallbackFixture(t)

	n := notificationFor(order)
	n.Status = finance.CallbackStatusRefund

	result, err := svc.ProcessCallback(context.Background(), n)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, order.Paid)
}

func TestProcessCallback_PartialRefundRejected(t *testing.T) {
	svc, reverter, order := newRefundFixture(t)

	n := notificationFor(order)
	n.Status = finance.CallbackStatusRefund
	n.TotalAmount = decimal.NewFromInt(1)

	_, err := svc.ProcessCallback(context.Background(), n)

	assert.ErrorIs(t, err, ErrCallbackAmountMismatch)
	assert.Empty(t, reverter.orderIDs)
}

func TestProcessCallback_ErrorAllowsRetry(t *testing.T) {
	svc, _, order := newCallbackFixture(t)
	ctx := context.Background()

	bad := notificationFor(order)
	bad.TotalAmount = decimal.NewFromInt(1)
	_, err := svc.ProcessCallback(ctx, bad)
	require.Error(t, err)

	// Corrected retry must not be swallowed by the idempotency check
	result, err := svc.ProcessCallback(ctx, notificationFor(order))

	require.NoError(t, err)
	assert.False(t, result.AlreadyProcessed)
	assert.True(t, order.Paid)
}
