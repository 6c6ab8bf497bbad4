package handler

import (
	"github.com/gin-gonic/gin"

	referralapp "github.com/maraline/backend/internal/application/referral"
	"github.com/maraline/backend/internal/domain/referral"
)

// ReferralHandler handles referral earnings endpoints
type ReferralHandler struct {
	BaseHandler
	queryService  *referralapp.QueryService
	bonusEngine   *referralapp.BonusEngine
	passiveIncome *referralapp.PassiveIncomeService
}

// NewReferralHandler creates a new ReferralHandler
func NewReferralHandler(
	queryService *referralapp.QueryService,
	bonusEngine *referralapp.BonusEngine,
	passiveIncome *referralapp.PassiveIncomeService,
) *ReferralHandler {
	return &ReferralHandler{
		queryService:  queryService,
		bonusEngine:   bonusEngine,
		passiveIncome: passiveIncome,
	}
}

// MyLedger returns the caller's referral ledger entries
func (h *ReferralHandler) MyLedger(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	filter, _, err := bindFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	ledgerFilter := referral.LedgerFilter{Filter: filter}
	if kindParam := c.Query("kind"); kindParam != "" {
		kind := referral.EntryKind(kindParam)
		if !kind.IsValid() {
			h.BadRequest(c, "invalid entry kind filter")
			return
		}
		ledgerFilter.Kind = &kind
	}

	page, err := h.queryService.GetUserLedger(c.Request.Context(), userID, ledgerFilter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// MySummary returns the caller's earnings summary
func (h *ReferralHandler) MySummary(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	summary, err := h.queryService.GetEarningsSummary(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// UserLedger returns any user's ledger entries
func (h *ReferralHandler) UserLedger(c *gin.Context) {
	userID, ok := pathID(c)
	if !ok {
		h.BadRequest(c, "invalid user ID")
		return
	}

	filter, _, err := bindFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	ledgerFilter := referral.LedgerFilter{Filter: filter}
	if kindParam := c.Query("kind"); kindParam != "" {
		kind := referral.EntryKind(kindParam)
		if !kind.IsValid() {
			h.BadRequest(c, "invalid entry kind filter")
			return
		}
		ledgerFilter.Kind = &kind
	}

	page, err := h.queryService.GetUserLedger(c.Request.Context(), userID, ledgerFilter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// UserSummary returns any user's earnings summary
func (h *ReferralHandler) UserSummary(c *gin.Context) {
	userID, ok := pathID(c)
	if !ok {
		h.BadRequest(c, "invalid user ID")
		return
	}

	summary, err := h.queryService.GetEarningsSummary(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// Recalculate wipes and rebuilds all engine-derived ledger entries
func (h *ReferralHandler) Recalculate(c *gin.Context) {
	if err := h.bonusEngine.RecalculateAllEarnings(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"recalculated": true})
}

// RunPassiveRefill grants this month's passive allowance to eligible users
func (h *ReferralHandler) RunPassiveRefill(c *gin.Context) {
	count, err := h.passiveIncome.RefillMonthlyPassive(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"refilled": count})
}

// RunPassiveDistribution pays out this month's accumulated passive balances
func (h *ReferralHandler) RunPassiveDistribution(c *gin.Context) {
	count, err := h.passiveIncome.DistributeMonthlyPassive(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"distributed": count})
}
