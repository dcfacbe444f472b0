package handler

import (
	"errors"

	"finora/internal/app"
	applog "finora/internal/log"
	"finora/internal/middleware"
	"finora/internal/models"
	"finora/internal/registry"
	"finora/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ProfileHandler struct {
	App *app.App
	Log *applog.Logger
}

func NewProfileHandler(a *app.App, logger *applog.Logger) *ProfileHandler {
	return &ProfileHandler{App: a, Log: logger}
}

// UpdateProfileReq only carries the fields to change; omitted fields stay.
type UpdateProfileReq struct {
	DisplayName    *string          `json:"display_name" binding:"omitempty,max=64"`
	Age            *int             `json:"age"`
	RiskAppetite   *string          `json:"risk_appetite"`
	InvestmentPlan *string          `json:"investment_plan" binding:"omitempty,max=128"`
	MonthlyBudget  *decimal.Decimal `json:"monthly_budget"`
}

type ChangePasswordReq struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	upd := registry.ProfileUpdate{
		DisplayName:    req.DisplayName,
		Age:            req.Age,
		InvestmentPlan: req.InvestmentPlan,
		MonthlyBudget:  req.MonthlyBudget,
	}
	if req.RiskAppetite != nil {
		risk := models.RiskAppetite(*req.RiskAppetite)
		if parsed, ok := models.ParseRiskAppetite(*req.RiskAppetite); ok {
			risk = parsed
		}
		upd.RiskAppetite = &risk
	}

	s := middleware.CurrentSession(c)
	if err := h.App.UpdateProfile(c.Request.Context(), s, upd); err != nil {
		respondError(c, h.Log, err)
		return
	}
	user, err := h.App.Profile(c.Request.Context(), s)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{"user": userResponse(user)})
}

func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	err := h.App.ChangeCredential(c.Request.Context(), middleware.CurrentSession(c), req.OldPassword, req.NewPassword)
	if errors.Is(err, registry.ErrAuthFailure) {
		badRequest(c, "old password is wrong")
		return
	}
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{"message": "password changed"})
}
