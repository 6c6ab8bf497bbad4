package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	catalogapp "github.com/maraline/backend/internal/application/catalog"
)

// CategoryHandler handles category endpoints
type CategoryHandler struct {
	BaseHandler
	categoryService *catalogapp.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService *catalogapp.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// CreateCategoryRequest is the request body for creating a category
type CreateCategoryRequest struct {
	Name     string     `json:"name" binding:"required,max=200"`
	Slug     string     `json:"slug" binding:"required,max=200"`
	ParentID *uuid.UUID `json:"parent_id"`
}

// SetCategoryActiveRequest is the request body for toggling a category
type SetCategoryActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// Create adds a new category
func (h *CategoryHandler) Create(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.categoryService.Create(c.Request.Context(), req.Name, req.Slug, req.ParentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// SetActive enables or disables a category
func (h *CategoryHandler) SetActive(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		h.BadRequest(c, "invalid category ID")
		return
	}

	var req SetCategoryActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.categoryService.SetActive(c.Request.Context(), id, *req.Active); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// List returns all categories
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.categoryService.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, categories)
}
