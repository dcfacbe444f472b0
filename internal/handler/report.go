package handler

import (
	"time"

	"finora/internal/aggregate"
	"finora/internal/app"
	applog "finora/internal/log"
	"finora/internal/middleware"
	"finora/internal/util"

	"github.com/gin-gonic/gin"
)

// ReportHandler serves the derived views of a ledger.
type ReportHandler struct {
	App *app.App
	Log *applog.Logger
}

func NewReportHandler(a *app.App, logger *applog.Logger) *ReportHandler {
	return &ReportHandler{App: a, Log: logger}
}

func (h *ReportHandler) Summary(c *gin.Context) {
	sum, err := h.App.GetSummary(c.Request.Context(), middleware.CurrentSession(c))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{"summary": sum})
}

func (h *ReportHandler) Categories(c *gin.Context) {
	f, ok := entryFilter(c)
	if !ok {
		return
	}
	items, err := h.App.CategoryReport(c.Request.Context(), middleware.CurrentSession(c), f)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{"items": items})
}

// Trend groups income and expense by granularity (default month). fill=1
// includes empty periods.
func (h *ReportHandler) Trend(c *gin.Context) {
	g, err := aggregate.ParseGranularity(c.DefaultQuery("granularity", "month"))
	if err != nil {
		badRequest(c, "granularity must be day, week, month or year")
		return
	}
	f, ok := entryFilter(c)
	if !ok {
		return
	}
	fill := c.Query("fill") == "1" || c.Query("fill") == "true"

	items, err := h.App.Trend(c.Request.Context(), middleware.CurrentSession(c), f, g, fill)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{
		"granularity": g,
		"items":       items,
	})
}

// Budget reports spending against the monthly budget, month=YYYY-MM
// (default current month).
func (h *ReportHandler) Budget(c *gin.Context) {
	var month time.Time
	if raw := c.Query("month"); raw != "" {
		m, err := util.ParseMonth(raw)
		if err != nil {
			badRequest(c, "month must be YYYY-MM")
			return
		}
		month = m
	}

	b, ok, err := h.App.BudgetReport(c.Request.Context(), middleware.CurrentSession(c), month)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	if !ok {
		util.Success(c, util.Response{"budget": nil})
		return
	}
	util.Success(c, util.Response{"budget": b})
}
