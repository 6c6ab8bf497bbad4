package trade

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/maraline/backend/internal/domain/catalog"
	"github.com/maraline/backend/internal/domain/finance"
	"github.com/maraline/backend/internal/domain/identity"
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
	var items []trade.Order
	for _, o := range r.orders {
		if filter.BuyerID != nil && o.BuyerID != *filter.BuyerID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		items = append(items, *o)
	}
	p := shared.NewPaginated(items, int64(len(items)), filter.Page, filter.PageSize)
	return &p, nil
}

func (r *memOrderRepo) FindByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) (*shared.Paginated[trade.Order], error) {
	var items []trade.Order
	for _, o := range r.orders {
		if o.BuyerID == buyerID {
			items = append(items, *o)
		}
	}
	p := shared.NewPaginated(items, int64(len(items)), filter.Page, filter.PageSize)
	return &p, nil
}

func (r *memOrderRepo) HasPendingOrders(ctx context.Context, buyerID uuid.UUID) (bool, error) {
	for _, o := range r.orders {
		if o.BuyerID == buyerID && o.Status == trade.OrderStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *memOrderRepo) Save(ctx context.Context, order *trade.Order) error {
	r.orders[order.ID] = order
	return nil
}

type memProductRepo struct {
	products map[uuid.UUID]*catalog.Product
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{products: make(map[uuid.UUID]*catalog.Product)}
}

func (r *memProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	if p, ok := r.products[id]; ok {
		return p, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memProductRepo) FindAll(ctx context.Context, filter catalog.ProductFilter) (*shared.Paginated[catalog.Product], error) {
	var items []catalog.Product
	for _, p := range r.products {
		items = append(items, *p)
	}
	page := shared.NewPaginated(items, int64(len(items)), 1, 20)
	return &page, nil
}

func (r *memProductRepo) FindBySeller(ctx context.Context, sellerID uuid.UUID, filter shared.Filter) (*shared.Paginated[catalog.Product], error) {
	var items []catalog.Product
	for _, p := range r.products {
		if p.SellerID == sellerID {
			items = append(items, *p)
		}
	}
	page := shared.NewPaginated(items, int64(len(items)), 1, 20)
	return &page, nil
}

func (r *memProductRepo) Save(ctx context.Context, product *catalog.Product) error {
	r.products[product.ID] = product
	return nil
}

func (r *memProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.products, id)
	return nil
}

type memUserRepo struct {
	users map[uuid.UUID]*identity.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]*identity.User)}
}

func (r *memUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memUserRepo) FindByReferralCode(ctx context.Context, code string) (*identity.User, error) {
	for _, u := range r.users {
		if u.ReferralCode == code {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memUserRepo) FindAll(ctx context.Context, filter identity.UserFilter) ([]*identity.User, int64, error) {
	return nil, 0, nil
}

func (r *memUserRepo) FindAllOrderedByRegistration(ctx context.Context) ([]*identity.User, error) {
	return nil, nil
}

func (r *memUserRepo) FindDirectReferrals(ctx context.Context, sponsorID uuid.UUID, activated *bool) ([]*identity.User, error) {
	return nil, nil
}

func (r *memUserRepo) CountDirectReferrals(ctx context.Context, sponsorID uuid.UUID, activated bool) (int, error) {
	return 0, nil
}

func (r *memUserRepo) Save(ctx context.Context, user *identity.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	return err == nil, nil
}

// fakeGateway records checkout requests and returns a canned session.
type fakeGateway struct {
	requests []finance.CheckoutRequest
	fail     bool
}

func (g *fakeGateway) CreateCheckout(ctx context.Context, req finance.CheckoutRequest) (*finance.CheckoutSession, error) {
	if g.fail {
		return nil, assert.AnError
	}
	g.requests = append(g.requests, req)
	return &finance.CheckoutSession{
		Token:     "tok-" + req.MerchantOID,
		PayURL:    "https://pay.example.com/" + req.MerchantOID,
		ExpiresAt: time.Now().Add(30 * time.Minute),
	}, nil
}

func (g *fakeGateway) VerifyCallback(notification finance.CallbackNotification) error {
	return nil
}

// fakeReferral records which orders had effects applied or reverted.
type fakeReferral struct {
	applied  []string
	reverted []string
}

func (f *fakeReferral) ApplyOrderEffects(ctx context.Context, order *trade.Order) error {
	f.applied = append(f.applied, order.OrderRefKey)
	order.MarkReferralProcessed()
	return nil
}

func (f *fakeReferral) RevertOrderEffects(ctx context.Context, order *trade.Order) error {
	f.reverted = append(f.reverted, order.OrderRefKey)
	order.ClearReferralProcessed()
	return nil
}

type orderFixture struct {
	svc      *OrderService
	orders   *memOrderRepo
	products *memProductRepo
	users    *memUserRepo
	gateway  *fakeGateway
	referral *fakeReferral
	buyer    *identity.User
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	f := &orderFixture{
		orders:   newMemOrderRepo(),
		products: newMemProductRepo(),
		users:    newMemUserRepo(),
		gateway:  &fakeGateway{},
		referral: &fakeReferral{},
	}
	f.svc = NewOrderService(OrderServiceConfig{
		Orders:   f.orders,
		Products: f.products,
		Users:    f.users,
		Gateway:  f.gateway,
		Referral: f.referral,
	})

	buyer, err := identity.NewUser("buyer@example.com", "Buyer", "Sup3rSecret!", identity.RoleCustomer)
	require.NoError(t, err)
	require.NoError(t, f.users.Save(context.Background(), buyer))
	f.buyer = buyer

	return f
}

func (f *orderFixture) seedProduct(t *testing.T, name string, price int64, stock int) *catalog.Product {
	t.Helper()
	seller, err := identity.NewUser(name+"-seller@example.com", "Seller", "Sup3rSecret!", identity.RoleSeller)
	require.NoError(t, err)
	require.NoError(t, f.users.Save(context.Background(), seller))

	product, err := catalog.NewProduct(seller.ID, uuid.New(), name, "",
		valueobject.NewMoneyTRY(decimal.NewFromInt(price)), stock)
	require.NoError(t, err)
	require.NoError(t, product.Publish())
	require.NoError(t, f.products.Save(context.Background(), product))
	return product
}

func (f *orderFixture) checkout(t *testing.T, items ...CheckoutItemRequest) *CheckoutResponse {
	t.Helper()
	resp, err := f.svc.Checkout(context.Background(), CheckoutRequest{
		BuyerID: f.buyer.ID,
		BuyerIP: "203.0.113.10",
		Items:   items,
	})
	require.NoError(t, err)
	return resp
}

func TestCheckout(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	shoes := f.seedProduct(t, "Shoes", 500, 10)
	socks := f.seedProduct(t, "Socks", 50, 20)

	resp := f.checkout(t,
		CheckoutItemRequest{ProductID: shoes.ID, Quantity: 2},
		CheckoutItemRequest{ProductID: socks.ID, Quantity: 3},
	)

	assert.Equal(t, "1150", resp.Order.TotalAmount.String())
	assert.Len(t, resp.Order.Items, 2)
	assert.NotEmpty(t, resp.PaymentToken)
	assert.NotEmpty(t, resp.PaymentURL)

	// Stock reserved immediately
	assert.Equal(t, 8, shoes.Stock)
	assert.Equal(t, 17, socks.Stock)

	// Gateway got the order's ledger reference key as merchant oid
	require.Len(t, f.gateway.requests, 1)
	order, err := f.orders.FindByID(ctx, resp.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderRefKey, f.gateway.requests[0].MerchantOID)
	assert.Equal(t, "TRY", f.gateway.requests[0].Currency)
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.svc.Checkout(context.Background(), CheckoutRequest{BuyerID: f.buyer.ID})

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "EMPTY_CART", domainErr.Code)
}

func TestCheckout_InsufficientStock(t *testing.T) {
	f := newOrderFixture(t)

	shoes := f.seedProduct(t, "Shoes", 500, 1)

	_, err := f.svc.Checkout(context.Background(), CheckoutRequest{
		BuyerID: f.buyer.ID,
		Items:   []CheckoutItemRequest{{ProductID: shoes.ID, Quantity: 5}},
	})

	require.Error(t, err)
	assert.Equal(t, 1, shoes.Stock)
}

func TestCheckout_ReleasesStockWhenGatewayFails(t *testing.T) {
	f := newOrderFixture(t)
	f.gateway.fail = true

	shoes := f.seedProduct(t, "Shoes", 500, 10)

	_, err := f.svc.Checkout(context.Background(), CheckoutRequest{
		BuyerID: f.buyer.ID,
		Items:   []CheckoutItemRequest{{ProductID: shoes.ID, Quantity: 2}},
	})

	require.Error(t, err)
	assert.Equal(t, 10, shoes.Stock)
}

func TestCheckout_ReleasesEarlierLinesWhenLaterLineUnavailable(t *testing.T) {
	f := newOrderFixture(t)

	shoes := f.seedProduct(t, "Shoes", 500, 10)
	socks := f.seedProduct(t, "Socks", 50, 1)

	_, err := f.svc.Checkout(context.Background(), CheckoutRequest{
		BuyerID: f.buyer.ID,
		Items: []CheckoutItemRequest{
			{ProductID: shoes.ID, Quantity: 2},
			{ProductID: socks.ID, Quantity: 5},
		},
	})

	require.Error(t, err)
	assert.Equal(t, 10, shoes.Stock)
	assert.Equal(t, 1, socks.Stock)
}

func TestApprove_AppliesReferralEffects(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	shoes := f.seedProduct(t, "Shoes", 500, 10)
	resp := f.checkout(t, CheckoutItemRequest{ProductID: shoes.ID, Quantity: 1})

	order, err := f.orders.FindByID(ctx, resp.Order.ID)
	require.NoError(t, err)
	require.NoError(t, order.MarkPaid("gw-1"))

	approved, err := f.svc.Approve(ctx, order.ID)

	require.NoError(t, err)
	assert.Equal(t, trade.OrderStatusApproved.String(), approved.Status)
	assert.Equal(t, []string{order.OrderRefKey}, f.referral.applied)
}

func TestApprove_UnpaidOrderFails(t *testing.T) {
	f := newOrderFixture(t)

	shoes := f.seedProduct(t, "Shoes", 500, 10)
	resp := f.checkout(t, CheckoutItemRequest{ProductID: shoes.ID, Quantity: 1})

	_, err := f.svc.Approve(context.Background(), resp.Order.ID)

	require.Error(t, err)
	assert.Empty(t, f.referral.applied)
}

func TestReject_BeforeApproval_RestocksWithoutRevert(t *testing.T) {
	f := newOrderFixture(t)

	shoes := f.seedProduct(t, "Shoes", 500, 10)
	resp := f.checkout(t, CheckoutItemRequest{ProductID: shoes.ID, Quantity: 3})
	assert.Equal(t, 7, shoes.Stock)

	rejected, err := f.svc.Reject(context.Background(), resp.Order.ID, "out of business")

	require.NoError(t, err)
	assert.Equal(t, trade.OrderStatusRejected.String(), rejected.Status)
	assert.Equal(t, 10, shoes.Stock)
	assert.Empty(t, f.referral.reverted)
}

func TestReject_AfterApproval_RevertsReferralEffects(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	shoes := f.seedProduct(t, "Shoes", 500, 10)
	resp := f.checkout(t, CheckoutItemRequest{ProductID: shoes.ID, Quantity: 1})

	order, err := f.orders.FindByID(ctx, resp.Order.ID)
	require.NoError(t, err)
	require.NoError(t, order.MarkPaid("gw-1"))
	_, err = f.svc.Approve(ctx, order.ID)
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, order.ID, "fraud suspicion")

	require.NoError(t, err)
	assert.Equal(t, []string{order.OrderRefKey}, f.referral.reverted)
	assert.Equal(t, 10, shoes.Stock)
}

func TestReturnFlow(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	shoes := f.seedProduct(t, "Shoes", 500, 10)
	resp := f.checkout(t, CheckoutItemRequest{ProductID: shoes.ID, Quantity: 2})

	order, err := f.orders.FindByID(ctx, resp.Order.ID)
	require.NoError(t, err)
	require.NoError(t, order.MarkPaid("gw-1"))
	_, err = f.svc.Approve(ctx, order.ID)
	require.NoError(t, err)
	_, err = f.svc.Ship(ctx, order.ID)
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, order.ID)
	require.NoError(t, err)

	_, err = f.svc.RequestReturn(ctx, order.ID, f.buyer.ID, "wrong size")
	require.NoError(t, err)

	_, err = f.svc.ApproveReturn(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{order.OrderRefKey}, f.referral.reverted)

	returned, err := f.svc.MarkReturned(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.OrderStatusReturned.String(), returned.Status)
	assert.Equal(t, 10, shoes.Stock)
}

func TestRefund_ApprovedOrderIsRejectedAndReverted(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	shoes := f.seedProduct(t, "Shoes", 500, 10)
	resp := f.checkout(t, CheckoutItemRequest{ProductID: shoes.ID, Quantity: 2})

	order, err := f.orders.FindByID(ctx, resp.Order.ID)
	require.NoError(t, err)
	require.NoError(t, order.MarkPaid("gw-1"))
	_, err = f.svc.Approve(ctx, order.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Refund(ctx, order.ID, "Payment refunded by gateway"))

	assert.Equal(t, trade.OrderStatusRejected, order.Status)
	assert.Equal(t, []string{order.OrderRefKey}, f.referral.reverted)
	assert.Equal(t, 10, shoes.Stock)
}

func TestRefund_ShippedOrderGoesThroughReturnFlow(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	shoes := f.seedProduct(t, "Shoes", 500, 10)
	resp := f.checkout(t, CheckoutItemRequest{ProductID: shoes.ID, Quantity: 2})

	order, err := f.orders.FindByID(ctx, resp.Order.ID)
	require.NoError(t, err)
	require.NoError(t, order.MarkPaid("gw-1"))
	_, err = f.svc.Approve(ctx, order.ID)
	require.NoError(t, err)
	_, err = f.svc.Ship(ctx, order.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Refund(ctx, order.ID, "Payment refunded by gateway"))

	// bonuses revert now, stock waits for the goods to arrive back
	assert.Equal(t, trade.OrderStatusReturnApproved, order.Status)
	assert.Equal(t, []string{order.OrderRefKey}, f.referral.reverted)
	assert.Equal(t, 8, shoes.Stock)

	returned, err := f.svc.MarkReturned(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.OrderStatusReturned.String(), returned.Status)
	assert.Equal(t, 10, shoes.Stock)
}

func TestRefund_TerminalOrderFails(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	shoes := f.seedProduct(t, "Shoes", 500, 10)
	resp := f.checkout(t, CheckoutItemRequest{ProductID: shoes.ID, Quantity: 1})

	_, err := f.svc.Reject(ctx, resp.Order.ID, "out of business")
	require.NoError(t, err)

	err = f.svc.Refund(ctx, resp.Order.ID, "Payment refunded by gateway")

	require.Error(t, err)
	assert.Empty(t, f.referral.reverted)
}

func TestRequestReturn_OnlyBuyer(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	shoes := f.seedProduct(t, "Shoes", 500, 10)
	resp := f.checkout(t, CheckoutItemRequest{ProductID: shoes.ID, Quantity: 1})

	order, err := f.orders.FindByID(ctx, resp.Order.ID)
	require.NoError(t, err)
	require.NoError(t, order.MarkPaid("gw-1"))
	_, err = f.svc.Approve(ctx, order.ID)
	require.NoError(t, err)

	_, err = f.svc.RequestReturn(ctx, order.ID, uuid.New(), "not mine")

	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestDenyReturn(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	shoes := f.seedProduct(t, "Shoes", 500, 10)
	resp := f.checkout(t, CheckoutItemRequest{ProductID: shoes.ID, Quantity: 1})

	order, err := f.orders.FindByID(ctx, resp.Order.ID)
	require.NoError(t, err)
	require.NoError(t, order.MarkPaid("gw-1"))
	_, err = f.svc.Approve(ctx, order.ID)
	require.NoError(t, err)
	_, err = f.svc.RequestReturn(ctx, order.ID, f.buyer.ID, "changed my mind")
	require.NoError(t, err)

	denied, err := f.svc.DenyReturn(ctx, order.ID)

	require.NoError(t, err)
	assert.Equal(t, trade.OrderStatusCompleted.String(), denied.Status)
	assert.Empty(t, f.referral.reverted)
}

func TestListByBuyer(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	shoes := f.seedProduct(t, "Shoes", 500, 10)
	f.checkout(t, CheckoutItemRequest{ProductID: shoes.ID, Quantity: 1})
	f.checkout(t, CheckoutItemRequest{ProductID: shoes.ID, Quantity: 2})

	page, err := f.svc.ListByBuyer(ctx, f.buyer.ID, shared.DefaultFilter())

	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Len(t, page.Items, 2)
}
