package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/maraline/backend/internal/domain/catalog"
	"github.com/maraline/backend/internal/domain/shared"
	"github.com/maraline/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// ProductService handles seller listing management
type ProductService struct {
	products   catalog.ProductRepository
	categories catalog.CategoryRepository
	logger     *zap.Logger
}

// NewProductService creates a new product service
func NewProductService(products catalog.ProductRepository, categories catalog.CategoryRepository, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		products:   products,
		categories: categories,
		logger:     logger,
	}
}

// Create creates a new draft listing for the seller
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	category, err := s.categories.FindByID(ctx, req.CategoryID)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_CATEGORY", "Category does not exist")
	}
	if !category.Active {
		return nil, shared.NewDomainError("INVALID_CATEGORY", "Category is not active")
	}

	product, err := catalog.NewProduct(req.SellerID, category.ID, req.Name, req.Description,
		valueobject.NewMoneyTRY(req.Price), req.Stock)
	if err != nil {
		return nil, err
	}

	if err := s.products.Save(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("seller_id", req.SellerID.String()))

	response := ToProductResponse(product)
	return &response, nil
}

// Update applies partial updates to a seller's own listing
func (s *ProductService) Update(ctx context.Context, productID, sellerID uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.ownedProduct(ctx, productID, sellerID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
		}
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		if err := product.UpdatePrice(valueobject.NewMoneyTRY(*req.Price)); err != nil {
			return nil, err
		}
	}
	if req.StockDelta != nil {
		if err := product.AdjustStock(*req.StockDelta); err != nil {
			return nil, err
		}
	}

	if err := s.products.Save(ctx, product); err != nil {
		return nil, err
	}

	response := ToProductResponse(product)
	return &response, nil
}

// Publish makes a seller's listing visible on the storefront
func (s *ProductService) Publish(ctx context.Context, productID, sellerID uuid.UUID) (*ProductResponse, error) {
	product, err := s.ownedProduct(ctx, productID, sellerID)
	if err != nil {
		return nil, err
	}
	if err := product.Publish(); err != nil {
		return nil, err
	}
	if err := s.products.Save(ctx, product); err != nil {
		return nil, err
	}
	response := ToProductResponse(product)
	return &response, nil
}

// Suspend pulls a listing from the storefront, admin action
func (s *ProductService) Suspend(ctx context.Context, productID uuid.UUID) error {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return err
	}
	product.Suspend()
	if err := s.products.Save(ctx, product); err != nil {
		return err
	}
	s.logger.Info("Product suspended", zap.String("product_id", productID.String()))
	return nil
}

// Unsuspend returns a suspended listing to draft, admin action
func (s *ProductService) Unsuspend(ctx context.Context, productID uuid.UUID) error {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return err
	}
	if err := product.Unsuspend(); err != nil {
		return err
	}
	return s.products.Save(ctx, product)
}

// Delete removes a seller's own listing
func (s *ProductService) Delete(ctx context.Context, productID, sellerID uuid.UUID) error {
	if _, err := s.ownedProduct(ctx, productID, sellerID); err != nil {
		return err
	}
	return s.products.Delete(ctx, productID)
}

// GetByID retrieves a single product
func (s *ProductService) GetByID(ctx context.Context, productID uuid.UUID) (*ProductResponse, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	response := ToProductResponse(product)
	return &response, nil
}

// List retrieves products matching the filter
func (s *ProductService) List(ctx context.Context, filter catalog.ProductFilter) (*shared.Paginated[ProductResponse], error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	page, err := s.products.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]ProductResponse, len(page.Items))
	for i := range page.Items {
		responses[i] = ToProductResponse(&page.Items[i])
	}
	result := shared.NewPaginated(responses, page.Total, page.Page, page.PageSize)
	return &result, nil
}

// ListBySeller retrieves a seller's own listings
func (s *ProductService) ListBySeller(ctx context.Context, sellerID uuid.UUID, filter shared.Filter) (*shared.Paginated[ProductResponse], error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	page, err := s.products.FindBySeller(ctx, sellerID, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]ProductResponse, len(page.Items))
	for i := range page.Items {
		responses[i] = ToProductResponse(&page.Items[i])
	}
	result := shared.NewPaginated(responses, page.Total, page.Page, page.PageSize)
	return &result, nil
}

func (s *ProductService) ownedProduct(ctx context.Context, productID, sellerID uuid.UUID) (*catalog.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.SellerID != sellerID {
		return nil, shared.ErrForbidden
	}
	return product, nil
}
