package handler

import (
	"strconv"

	"finora/internal/app"
	applog "finora/internal/log"
	"finora/internal/market"
	"finora/internal/middleware"
	"finora/internal/models"
	"finora/internal/util"

	"github.com/gin-gonic/gin"
)

type AdviceHandler struct {
	App *app.App
	Log *applog.Logger
}

func NewAdviceHandler(a *app.App, logger *applog.Logger) *AdviceHandler {
	return &AdviceHandler{App: a, Log: logger}
}

// Recommendation blends age and risk appetite from the query, falling back
// to the profile, with the caller's savings rate.
func (h *AdviceHandler) Recommendation(c *gin.Context) {
	var age *int
	if raw := c.Query("age"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 150 {
			badRequest(c, "age must be between 0 and 150")
			return
		}
		age = &n
	}

	var risk *models.RiskAppetite
	if raw := c.Query("risk"); raw != "" {
		r, ok := models.ParseRiskAppetite(raw)
		if !ok {
			badRequest(c, "risk must be Low, Moderate or High")
			return
		}
		risk = &r
	}

	rec, err := h.App.GetRecommendation(c.Request.Context(), middleware.CurrentSession(c), age, risk)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{"recommendation": rec})
}

// Quote returns the last price of a symbol, best effort.
func (h *AdviceHandler) Quote(c *gin.Context) {
	symbol := market.NormalizeSymbol(c.Param("symbol"))
	price, err := h.App.Quote(c.Request.Context(), middleware.CurrentSession(c), symbol)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{
		"symbol": symbol,
		"price":  price,
	})
}
