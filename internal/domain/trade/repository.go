package trade

import (
	"context"

	"github.com/google/uuid"
	"github.com/maraline/backend/internal/domain/shared"
)

// OrderFilter represents filter criteria for order queries
type OrderFilter struct {
	shared.Filter
	BuyerID  *uuid.UUID
	SellerID *uuid.UUID
	Status   OrderStatus
	Paid     *bool
}

// OrderRepository defines the persistence interface for orders
type OrderRepository interface {
	// FindByID retrieves an order with its items
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByOrderNumber retrieves an order by its human-facing number
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)

	// FindByOrderRefKey retrieves an order by its ledger reference key
	FindByOrderRefKey(ctx context.Context, orderRefKey string) (*Order, error)

	// FindAll retrieves orders matching the filter with pagination
	FindAll(ctx context.Context, filter OrderFilter) (*shared.Paginated[Order], error)

	// FindByBuyer retrieves a buyer's orders, newest first
	FindByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) (*shared.Paginated[Order], error)

	// HasPendingOrders reports whether the buyer has any order still awaiting
	// approval. Passive income distribution skips such buyers until their
	// pending referral effects are settled.
	HasPendingOrders(ctx context.Context, buyerID uuid.UUID) (bool, error)

	// Save persists an order and its items
	Save(ctx context.Context, order *Order) error
}
