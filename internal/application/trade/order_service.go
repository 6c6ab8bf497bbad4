package trade

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/maraline/backend/internal/domain/catalog"
	"github.com/maraline/backend/internal/domain/finance"
	"github.com/maraline/backend/internal/domain/identity"
	"github.com/maraline/backend/internal/domain/shared"
	"github.com/maraline/backend/internal/domain/trade"
	"go.uber.org/zap"
)

// ReferralProcessor applies and reverts an order's referral effects.
// Implemented by the referral bonus engine.
type ReferralProcessor interface {
	ApplyOrderEffects(ctx context.Context, order *trade.Order) error
	RevertOrderEffects(ctx context.Context, order *trade.Order) error
}

// OrderServiceConfig contains dependencies for the order service
type OrderServiceConfig struct {
	Orders   trade.OrderRepository
	Products catalog.ProductRepository
	Users    identity.UserRepository
	Gateway  finance.PaymentGateway
	Referral ReferralProcessor
	Tx       shared.TransactionManager
	Logger   *zap.Logger
}

// OrderService handles the marketplace order lifecycle
type OrderService struct {
	orders   trade.OrderRepository
	products catalog.ProductRepository
	users    identity.UserRepository
	gateway  finance.PaymentGateway
	referral ReferralProcessor
	tx       shared.TransactionManager
	logger   *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(cfg OrderServiceConfig) *OrderService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tx := cfg.Tx
	if tx == nil {
		tx = shared.NopTransactionManager{}
	}
	return &OrderService{
		orders:   cfg.Orders,
		products: cfg.Products,
		users:    cfg.Users,
		gateway:  cfg.Gateway,
		referral: cfg.Referral,
		tx:       tx,
		logger:   logger,
	}
}

// Checkout creates a pending order from the buyer's cart, reserves stock and
// opens a payment session at the gateway. Stock is reserved up front so two
// buyers cannot pay for the same last unit.
func (s *OrderService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	if len(req.Items) == 0 {
		return nil, shared.NewDomainError("EMPTY_CART", "Checkout requires at least one item")
	}

	buyer, err := s.users.FindByID(ctx, req.BuyerID)
	if err != nil {
		return nil, err
	}

	order, err := trade.NewOrder(buyer.ID, generateOrderNumber())
	if err != nil {
		return nil, err
	}

	reserved := make(map[uuid.UUID]int)
	for _, line := range req.Items {
		product, err := s.products.FindByID(ctx, line.ProductID)
		if err != nil {
			s.releaseStock(ctx, reserved)
			return nil, err
		}
		if !product.IsAvailable(line.Quantity) {
			s.releaseStock(ctx, reserved)
			return nil, shared.NewDomainError("PRODUCT_UNAVAILABLE",
				fmt.Sprintf("Product %s is not available in the requested quantity", product.Name))
		}
		if err := product.AdjustStock(-line.Quantity); err != nil {
			s.releaseStock(ctx, reserved)
			return nil, err
		}
		if err := s.products.Save(ctx, product); err != nil {
			s.releaseStock(ctx, reserved)
			return nil, err
		}
		reserved[product.ID] = line.Quantity

		if _, err := order.AddItem(product.ID, product.SellerID, product.Name, line.Quantity, product.GetPriceMoney()); err != nil {
			s.releaseStock(ctx, reserved)
			return nil, err
		}
	}

	if err := s.orders.Save(ctx, order); err != nil {
		s.releaseStock(ctx, reserved)
		return nil, err
	}

	session, err := s.gateway.CreateCheckout(ctx, finance.CheckoutRequest{
		MerchantOID: order.OrderRefKey,
		Amount:      order.TotalAmount,
		Currency:    "TRY",
		BuyerEmail:  buyer.Email,
		BuyerIP:     req.BuyerIP,
	})
	if err != nil {
		s.logger.Error("Failed to open payment session",
			zap.String("order_id", order.ID.String()),
			zap.Error(err))
		s.releaseStock(ctx, reserved)
		return nil, shared.NewDomainError("PAYMENT_SESSION_FAILED", "Could not start the payment session")
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("buyer_id", buyer.ID.String()),
		zap.String("total", order.TotalAmount.String()))

	response := ToOrderResponse(order)
	return &CheckoutResponse{
		Order:           response,
		PaymentToken:    session.Token,
		PaymentURL:      session.PayURL,
		PaymentDeadline: session.ExpiresAt,
	}, nil
}

// releaseStock returns reserved units after a failed checkout
func (s *OrderService) releaseStock(ctx context.Context, reserved map[uuid.UUID]int) {
	for productID, qty := range reserved {
		product, err := s.products.FindByID(ctx, productID)
		if err != nil {
			s.logger.Error("Failed to release reserved stock",
				zap.String("product_id", productID.String()),
				zap.Error(err))
			continue
		}
		if err := product.AdjustStock(qty); err == nil {
			if err := s.products.Save(ctx, product); err != nil {
				s.logger.Error("Failed to save released stock",
					zap.String("product_id", productID.String()),
					zap.Error(err))
			}
		}
	}
}

// Approve approves a paid order and applies its referral effects. The status
// mutation and the referral writes share one transaction: a failure anywhere
// rolls the approval back entirely, so the spend and bonus bookkeeping never
// land without the ReferralProcessed guard.
func (s *OrderService) Approve(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	var order *trade.Order
	err := s.tx.Execute(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := order.Approve(); err != nil {
			return err
		}
		if err := s.orders.Save(ctx, order); err != nil {
			return err
		}
		return s.referral.ApplyOrderEffects(ctx, order)
	})
	if err != nil {
		s.logger.Error("Failed to approve order",
			zap.String("order_id", orderID.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Order approved", zap.String("order_id", order.ID.String()))

	response := ToOrderResponse(order)
	return &response, nil
}

// Ship marks an approved order as shipped
func (s *OrderService) Ship(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.Ship(); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}
	response := ToOrderResponse(order)
	return &response, nil
}

// Complete marks a shipped order as delivered
func (s *OrderService) Complete(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.Complete(); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}
	response := ToOrderResponse(order)
	return &response, nil
}

// Reject rejects an order, restocks its items and reverts any referral
// effects already applied. Runs in one transaction so a failed reversal also
// rolls back the rejection and the restock.
func (s *OrderService) Reject(ctx context.Context, orderID uuid.UUID, reason string) (*OrderResponse, error) {
	var order *trade.Order
	var wasPastApproval bool
	err := s.tx.Execute(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}

		wasPastApproval = order.Status.IsPastApproval()

		if err := order.Reject(reason); err != nil {
			return err
		}
		if err := s.orders.Save(ctx, order); err != nil {
			return err
		}

		s.restockItems(ctx, order)

		if wasPastApproval {
			return s.referral.RevertOrderEffects(ctx, order)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to reject order",
			zap.String("order_id", orderID.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Order rejected",
		zap.String("order_id", order.ID.String()),
		zap.Bool("was_past_approval", wasPastApproval))

	response := ToOrderResponse(order)
	return &response, nil
}

// RequestReturn opens a return request on behalf of the buyer
func (s *OrderService) RequestReturn(ctx context.Context, orderID, buyerID uuid.UUID, reason string) (*OrderResponse, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, shared.ErrForbidden
	}
	if err := order.RequestReturn(reason); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}
	response := ToOrderResponse(order)
	return &response, nil
}

// ApproveReturn accepts the return and reverts the order's referral effects,
// both inside one transaction
func (s *OrderService) ApproveReturn(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	var order *trade.Order
	err := s.tx.Execute(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := order.ApproveReturn(); err != nil {
			return err
		}
		if err := s.orders.Save(ctx, order); err != nil {
			return err
		}
		return s.referral.RevertOrderEffects(ctx, order)
	})
	if err != nil {
		s.logger.Error("Failed to approve return",
			zap.String("order_id", orderID.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Return approved", zap.String("order_id", order.ID.String()))

	response := ToOrderResponse(order)
	return &response, nil
}

// Refund handles a gateway-originated refund or chargeback. Orders not yet
// shipped are rejected outright with their referral effects reverted and
// stock restored. Once goods are in transit the refund is routed through the
// return flow instead: the return is opened and approved so the referral
// effects revert now, while restocking waits for MarkReturned.
func (s *OrderService) Refund(ctx context.Context, orderID uuid.UUID, reason string) error {
	err := s.tx.Execute(ctx, func(ctx context.Context) error {
		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}

		switch order.Status {
		case trade.OrderStatusPending, trade.OrderStatusApproved:
			wasPastApproval := order.Status.IsPastApproval()
			if err := order.Reject(reason); err != nil {
				return err
			}
			if err := s.orders.Save(ctx, order); err != nil {
				return err
			}
			s.restockItems(ctx, order)
			if wasPastApproval {
				return s.referral.RevertOrderEffects(ctx, order)
			}
			return nil

		case trade.OrderStatusShipped, trade.OrderStatusCompleted, trade.OrderStatusReturnRequested:
			if order.Status != trade.OrderStatusReturnRequested {
				if err := order.RequestReturn(reason); err != nil {
					return err
				}
			}
			if err := order.ApproveReturn(); err != nil {
				return err
			}
			if err := s.orders.Save(ctx, order); err != nil {
				return err
			}
			return s.referral.RevertOrderEffects(ctx, order)

		default:
			return shared.NewDomainError("INVALID_STATE",
				fmt.Sprintf("Cannot refund order in %s status", order.Status))
		}
	})
	if err != nil {
		s.logger.Error("Failed to process refund",
			zap.String("order_id", orderID.String()),
			zap.Error(err))
		return err
	}

	s.logger.Info("Order refunded", zap.String("order_id", orderID.String()))
	return nil
}

// DenyReturn closes the return request and keeps the order completed
func (s *OrderService) DenyReturn(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.DenyReturn(); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}
	response := ToOrderResponse(order)
	return &response, nil
}

// MarkReturned records the goods arriving back and restocks them
func (s *OrderService) MarkReturned(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	var order *trade.Order
	err := s.tx.Execute(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := order.MarkReturned(); err != nil {
			return err
		}
		if err := s.orders.Save(ctx, order); err != nil {
			return err
		}

		s.restockItems(ctx, order)
		return nil
	})
	if err != nil {
		return nil, err
	}

	response := ToOrderResponse(order)
	return &response, nil
}

// restockItems returns an order's units to their product listings
func (s *OrderService) restockItems(ctx context.Context, order *trade.Order) {
	for _, item := range order.Items {
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			s.logger.Error("Failed to restock product",
				zap.String("product_id", item.ProductID.String()),
				zap.Error(err))
			continue
		}
		if err := product.AdjustStock(item.Quantity); err == nil {
			if err := s.products.Save(ctx, product); err != nil {
				s.logger.Error("Failed to save restocked product",
					zap.String("product_id", item.ProductID.String()),
					zap.Error(err))
			}
		}
	}
}

// GetByID retrieves an order by ID
func (s *OrderService) GetByID(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	response := ToOrderResponse(order)
	return &response, nil
}

// List retrieves orders matching the filter
func (s *OrderService) List(ctx context.Context, filter OrderListFilter) (*shared.Paginated[OrderResponse], error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := trade.OrderFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
		},
		BuyerID: filter.BuyerID,
	}
	if filter.Status != nil {
		domainFilter.Status = *filter.Status
	}

	page, err := s.orders.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, err
	}

	responses := make([]OrderResponse, len(page.Items))
	for i := range page.Items {
		responses[i] = ToOrderResponse(&page.Items[i])
	}
	result := shared.NewPaginated(responses, page.Total, page.Page, page.PageSize)
	return &result, nil
}

// ListByBuyer retrieves the buyer's own orders, newest first
func (s *OrderService) ListByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) (*shared.Paginated[OrderResponse], error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	page, err := s.orders.FindByBuyer(ctx, buyerID, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]OrderResponse, len(page.Items))
	for i := range page.Items {
		responses[i] = ToOrderResponse(&page.Items[i])
	}
	result := shared.NewPaginated(responses, page.Total, page.Page, page.PageSize)
	return &result, nil
}

// generateOrderNumber builds a human-facing order number. The uuid suffix
// keeps concurrent checkouts from colliding without a database sequence.
func generateOrderNumber() string {
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("SO%s-%s", time.Now().Format("20060102"), suffix)
}
