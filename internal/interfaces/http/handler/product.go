package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	catalogapp "github.com/maraline/backend/internal/application/catalog"
	"github.com/maraline/backend/internal/domain/catalog"
)

// ProductHandler handles product listing endpoints
type ProductHandler struct {
	BaseHandler
	productService *catalogapp.ProductService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService *catalogapp.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// CreateProductRequest is the request body for creating a product
type CreateProductRequest struct {
	CategoryID  uuid.UUID       `json:"category_id" binding:"required"`
	Name        string          `json:"name" binding:"required,max=200"`
	Description string          `json:"description" binding:"max=5000"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	Stock       int             `json:"stock" binding:"gte=0"`
}

// UpdateProductRequest is the request body for updating a product
type UpdateProductRequest struct {
	Name        *string          `json:"name" binding:"omitempty,max=200"`
	Description *string          `json:"description" binding:"omitempty,max=5000"`
	Price       *decimal.Decimal `json:"price"`
	StockDelta  *int             `json:"stock_delta"`
}

// Create adds a new product owned by the authenticated seller
func (h *ProductHandler) Create(c *gin.Context) {
	sellerID, err := currentUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.productService.Create(c.Request.Context(), catalogapp.CreateProductRequest{
		SellerID:    sellerID,
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Update modifies a product owned by the authenticated seller
func (h *ProductHandler) Update(c *gin.Context) {
	sellerID, err := currentUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	productID, ok := pathID(c)
	if !ok {
		h.BadRequest(c, "invalid product ID")
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.productService.Update(c.Request.Context(), productID, sellerID, catalogapp.UpdateProductRequest{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		StockDelta:  req.StockDelta,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Publish makes a draft product visible in the storefront
func (h *ProductHandler) Publish(c *gin.Context) {
	sellerID, err := currentUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	productID, ok := pathID(c)
	if !ok {
		h.BadRequest(c, "invalid product ID")
		return
	}

	resp, err := h.productService.Publish(c.Request.Context(), productID, sellerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Suspend takes a product off the storefront (admin moderation)
func (h *ProductHandler) Suspend(c *gin.Context) {
	productID, ok := pathID(c)
	if !ok {
		h.BadRequest(c, "invalid product ID")
		return
	}

	if err := h.productService.Suspend(c.Request.Context(), productID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Unsuspend returns a suspended product to the storefront
func (h *ProductHandler) Unsuspend(c *gin.Context) {
	productID, ok := pathID(c)
	if !ok {
		h.BadRequest(c, "invalid product ID")
		return
	}

	if err := h.productService.Unsuspend(c.Request.Context(), productID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Delete removes a product owned by the authenticated seller
func (h *ProductHandler) Delete(c *gin.Context) {
	sellerID, err := currentUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	productID, ok := pathID(c)
	if !ok {
		h.BadRequest(c, "invalid product ID")
		return
	}

	if err := h.productService.Delete(c.Request.Context(), productID, sellerID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Get returns a single product
func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := pathID(c)
	if !ok {
		h.BadRequest(c, "invalid product ID")
		return
	}

	resp, err := h.productService.GetByID(c.Request.Context(), productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List returns products matching the query filters
func (h *ProductHandler) List(c *gin.Context) {
	filter, search, err := bindFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	filter.Search = search

	productFilter := catalog.ProductFilter{Filter: filter}
	if categoryParam := c.Query("category_id"); categoryParam != "" {
		categoryID, err := uuid.Parse(categoryParam)
		if err != nil {
			h.BadRequest(c, "invalid category ID")
			return
		}
		productFilter.CategoryID = &categoryID
	}
	if statusParam := c.Query("status"); statusParam != "" {
		productFilter.Status = catalog.ProductStatus(statusParam)
	}

	page, err := h.productService.List(c.Request.Context(), productFilter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// MyProducts returns the authenticated seller's products
func (h *ProductHandler) MyProducts(c *gin.Context) {
	sellerID, err := currentUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	filter, search, err := bindFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	filter.Search = search

	page, err := h.productService.ListBySeller(c.Request.Context(), sellerID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}
