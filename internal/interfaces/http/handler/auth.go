package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	identityapp "github.com/maraline/backend/internal/application/identity"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	BaseHandler
	authService *identityapp.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *identityapp.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRequest is the request body for user registration
type RegisterRequest struct {
	Email        string `json:"email" binding:"required,email"`
	DisplayName  string `json:"display_name" binding:"required,min=2,max=200"`
	Password     string `json:"password" binding:"required,min=8,max=72"`
	ReferralCode string `json:"referral_code"`
	AsSeller     bool   `json:"as_seller"`
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest is the request body for token refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ChangePasswordRequest is the request body for password change
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

// UserResponse is the API representation of a user account
type UserResponse struct {
	ID                      uuid.UUID       `json:"id"`
	Email                   string          `json:"email"`
	DisplayName             string          `json:"display_name"`
	Role                    string          `json:"role"`
	ReferralCode            string          `json:"referral_code"`
	ReferralCodeActive      bool            `json:"referral_code_active"`
	SponsorID               *uuid.UUID      `json:"sponsor_id,omitempty"`
	ActiveReferralCount     int             `json:"active_referral_count"`
	TotalSpend              decimal.Decimal `json:"total_spend"`
	LifetimeEarnings        decimal.Decimal `json:"lifetime_earnings"`
	WithdrawableBalance     decimal.Decimal `json:"withdrawable_balance"`
	MonthlyPassiveAllowance decimal.Decimal `json:"monthly_passive_allowance"`
	CreatedAt               time.Time       `json:"created_at"`
}

// TokenResponse is the API representation of an issued token pair
type TokenResponse struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// LoginResponse bundles the token pair with the authenticated user
type LoginResponse struct {
	TokenResponse
	User UserResponse `json:"user"`
}

func toUserResponse(u identityapp.UserInfo) UserResponse {
	return UserResponse{
		ID:                      u.ID,
		Email:                   u.Email,
		DisplayName:             u.DisplayName,
		Role:                    u.Role,
		ReferralCode:            u.ReferralCode,
		ReferralCodeActive:      u.ReferralCodeActive,
		SponsorID:               u.SponsorID,
		ActiveReferralCount:     u.ActiveReferralCount,
		TotalSpend:              u.TotalSpend,
		LifetimeEarnings:        u.LifetimeEarnings,
		WithdrawableBalance:     u.WithdrawableBalance,
		MonthlyPassiveAllowance: u.MonthlyPassiveAllowance,
		CreatedAt:               u.CreatedAt,
	}
}

// Register creates a new user account
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.Register(c.Request.Context(), identityapp.RegisterInput{
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		Password:     req.Password,
		ReferralCode: req.ReferralCode,
		AsSeller:     req.AsSeller,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toUserResponse(result.User))
}

// Login authenticates a user and issues a token pair
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.Login(c.Request.Context(), identityapp.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		IP:       c.ClientIP(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, LoginResponse{
		TokenResponse: TokenResponse{
			AccessToken:           result.AccessToken,
			RefreshToken:          result.RefreshToken,
			AccessTokenExpiresAt:  result.AccessTokenExpiresAt,
			RefreshTokenExpiresAt: result.RefreshTokenExpiresAt,
			TokenType:             result.TokenType,
		},
		User: toUserResponse(result.User),
	})
}

// Refresh exchanges a refresh token for a new token pair
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.RefreshToken(c.Request.Context(), identityapp.RefreshTokenInput{
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, TokenResponse{
		AccessToken:           result.AccessToken,
		RefreshToken:          result.RefreshToken,
		AccessTokenExpiresAt:  result.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: result.RefreshTokenExpiresAt,
		TokenType:             result.TokenType,
	})
}

// ChangePassword updates the authenticated user's password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), identityapp.ChangePasswordInput{
		UserID:      userID,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	}); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Me returns the authenticated user's account
func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	info, err := h.authService.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toUserResponse(*info))
}
