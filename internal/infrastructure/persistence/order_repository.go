package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/maraline/backend/internal/domain/shared"
	"github.com/maraline/backend/internal/domain/trade"
	"github.com/maraline/backend/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements trade.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID retrieves an order with its items
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByOrderNumber retrieves an order by its human-facing number
func (r *GormOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*trade.Order, error) {
	return r.findOne(ctx, "order_number = ?", orderNumber)
}

// FindByOrderRefKey retrieves an order by its ledger reference key
func (r *GormOrderRepository) FindByOrderRefKey(ctx context.Context, orderRefKey string) (*trade.Order, error) {
	return r.findOne(ctx, "order_ref_key = ?", orderRefKey)
}

func (r *GormOrderRepository) findOne(ctx context.Context, cond string, arg any) (*trade.Order, error) {
	var model models.OrderModel
	if err := session(ctx, r.db).
		Preload("Items").
		Where(cond, arg).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll retrieves orders matching the filter with pagination
func (r *GormOrderRepository) FindAll(ctx context.Context, filter trade.OrderFilter) (*shared.Paginated[trade.Order], error) {
	query := session(ctx, r.db).Model(&models.OrderModel{})

	if filter.BuyerID != nil {
		query = query.Where("buyer_id = ?", *filter.BuyerID)
	}
	if filter.SellerID != nil {
		query = query.Where("EXISTS (SELECT 1 FROM order_items WHERE order_items.order_id = orders.id AND order_items.seller_id = ?)", *filter.SellerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Paid != nil {
		query = query.Where("paid = ?", *filter.Paid)
	}
	if filter.Search != "" {
		query = query.Where("order_number LIKE ?", "%"+filter.Search+"%")
	}

	return r.paginate(ctx, query, filter.Filter)
}

// FindByBuyer retrieves a buyer's orders, newest first
func (r *GormOrderRepository) FindByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) (*shared.Paginated[trade.Order], error) {
	query := session(ctx, r.db).
		Model(&models.OrderModel{}).
		Where("buyer_id = ?", buyerID)
	return r.paginate(ctx, query, filter)
}

func (r *GormOrderRepository) paginate(ctx context.Context, query *gorm.DB, filter shared.Filter) (*shared.Paginated[trade.Order], error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	query = applyPagination(query, filter)

	var rows []models.OrderModel
	if err := query.Preload("Items").Find(&rows).Error; err != nil {
		return nil, err
	}

	orders := make([]trade.Order, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	result := shared.NewPaginated(orders, total, page, pageSize)
	return &result, nil
}

// HasPendingOrders reports whether the buyer has any order still awaiting approval
func (r *GormOrderRepository) HasPendingOrders(ctx context.Context, buyerID uuid.UUID) (bool, error) {
	var count int64
	if err := session(ctx, r.db).
		Model(&models.OrderModel{}).
		Where("buyer_id = ? AND status = ?", buyerID, trade.OrderStatusPending).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save persists an order and its items. Removed items are deleted so the
// stored line set always mirrors the aggregate.
func (r *GormOrderRepository) Save(ctx context.Context, order *trade.Order) error {
	model := models.OrderModelFromDomain(order)
	return session(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		items := model.Items
		model.Items = nil

		if err := tx.Save(model).Error; err != nil {
			if isDuplicateKey(err) {
				return shared.ErrAlreadyExists
			}
			return err
		}

		itemIDs := make([]uuid.UUID, len(items))
		for i := range items {
			itemIDs[i] = items[i].ID
		}

		if len(itemIDs) > 0 {
			if err := tx.Where("order_id = ? AND id NOT IN ?", model.ID, itemIDs).
				Delete(&models.OrderItemModel{}).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Where("order_id = ?", model.ID).
				Delete(&models.OrderItemModel{}).Error; err != nil {
				return err
			}
		}

		for i := range items {
			items[i].OrderID = model.ID
			if err := tx.Save(&items[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// Ensure GormOrderRepository implements OrderRepository
var _ trade.OrderRepository = (*GormOrderRepository)(nil)
