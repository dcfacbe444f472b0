package handler

import (
	"finora/internal/middleware"
	"finora/internal/models"
	"finora/internal/util"

	"github.com/gin-gonic/gin"
)

func userResponse(u *models.User) gin.H {
	var budget any
	if u.MonthlyBudget.Valid {
		budget = u.MonthlyBudget.Decimal
	}
	return gin.H{
		"id":              u.ID,
		"username":        u.Username,
		"display_name":    u.DisplayName,
		"age":             u.Age,
		"risk_appetite":   u.RiskAppetite,
		"investment_plan": u.InvestmentPlan,
		"monthly_budget":  budget,
		"last_login_at":   u.LastLoginAt,
		"created_at":      u.CreatedAt,
	}
}

// GetMe returns the logged-in user's profile.
func (h *ProfileHandler) GetMe(c *gin.Context) {
	user, err := h.App.Profile(c.Request.Context(), middleware.CurrentSession(c))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{"user": userResponse(user)})
}
