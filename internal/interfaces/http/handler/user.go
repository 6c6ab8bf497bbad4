package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	identityapp "github.com/maraline/backend/internal/application/identity"
	"github.com/maraline/backend/internal/domain/identity"
)

// UserHandler handles user management endpoints
type UserHandler struct {
	BaseHandler
	userService *identityapp.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService *identityapp.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// SetReferralLimitRequest is the request body for overriding a referral limit
type SetReferralLimitRequest struct {
	Limit int `json:"limit" binding:"required,gt=0"`
}

// ReferralNodeResponse is one node of a referral tree
type ReferralNodeResponse struct {
	User      UserResponse           `json:"user"`
	Activated bool                   `json:"activated"`
	Children  []ReferralNodeResponse `json:"children,omitempty"`
}

func toReferralNodeResponses(nodes []identityapp.ReferralNode) []ReferralNodeResponse {
	out := make([]ReferralNodeResponse, len(nodes))
	for i, n := range nodes {
		out[i] = ReferralNodeResponse{
			User:      toUserResponse(n.User),
			Activated: n.Activated,
			Children:  toReferralNodeResponses(n.Children),
		}
	}
	return out
}

// List returns users matching the query filters
func (h *UserHandler) List(c *gin.Context) {
	filter, search, err := bindFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	filter.Search = search

	userFilter := identity.UserFilter{Filter: filter}
	if roleParam := c.Query("role"); roleParam != "" {
		role := identity.UserRole(roleParam)
		if !role.IsValid() {
			h.BadRequest(c, "invalid role filter")
			return
		}
		userFilter.Role = &role
	}

	users, total, err := h.userService.ListUsers(c.Request.Context(), userFilter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]UserResponse, len(users))
	for i, u := range users {
		responses[i] = toUserResponse(u)
	}
	h.SuccessWithMeta(c, responses, total, filter.Page, filter.PageSize)
}

// Get returns a single user by ID
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		h.BadRequest(c, "invalid user ID")
		return
	}

	info, err := h.userService.GetUser(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toUserResponse(*info))
}

// SetReferralLimit overrides a user's inactive-referral capacity
func (h *UserHandler) SetReferralLimit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		h.BadRequest(c, "invalid user ID")
		return
	}

	var req SetReferralLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.userService.SetReferralLimit(c.Request.Context(), id, req.Limit); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ClearReferralLimit removes a user's referral limit override
func (h *UserHandler) ClearReferralLimit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		h.BadRequest(c, "invalid user ID")
		return
	}

	if err := h.userService.ClearReferralLimit(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ApproveSeller promotes a seller candidate to seller
func (h *UserHandler) ApproveSeller(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		h.BadRequest(c, "invalid user ID")
		return
	}

	if err := h.userService.ApproveSeller(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ReferralTree returns a user's referral tree down to the requested depth
func (h *UserHandler) ReferralTree(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		h.BadRequest(c, "invalid user ID")
		return
	}
	h.referralTree(c, id)
}

// MyReferralTree returns the authenticated user's referral tree
func (h *UserHandler) MyReferralTree(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	h.referralTree(c, userID)
}

func (h *UserHandler) referralTree(c *gin.Context, sponsorID uuid.UUID) {
	depth := 3
	if depthParam := c.Query("depth"); depthParam != "" {
		parsed, err := strconv.Atoi(depthParam)
		if err != nil || parsed < 1 || parsed > 10 {
			h.BadRequest(c, "depth must be between 1 and 10")
			return
		}
		depth = parsed
	}

	tree, err := h.userService.GetReferralTree(c.Request.Context(), sponsorID, depth)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toReferralNodeResponses(tree))
}
