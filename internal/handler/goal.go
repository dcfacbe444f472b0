package handler

import (
	"time"

	"finora/internal/aggregate"
	"finora/internal/app"
	applog "finora/internal/log"
	"finora/internal/middleware"
	"finora/internal/models"
	"finora/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type GoalHandler struct {
	App *app.App
	Log *applog.Logger
}

func NewGoalHandler(a *app.App, logger *applog.Logger) *GoalHandler {
	return &GoalHandler{App: a, Log: logger}
}

type createGoalReq struct {
	Name         string           `json:"name" binding:"required,max=64"`
	TargetAmount *decimal.Decimal `json:"target_amount" binding:"required"`
	SavedAmount  *decimal.Decimal `json:"saved_amount"`
	Deadline     string           `json:"deadline"`
}

func (h *GoalHandler) CreateGoal(c *gin.Context) {
	var req createGoalReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	deadline, err := util.ParseOptionalDate(req.Deadline)
	if err != nil {
		badRequest(c, "deadline must be YYYY-MM-DD")
		return
	}

	g := models.Goal{
		Name:         req.Name,
		TargetAmount: *req.TargetAmount,
		Deadline:     deadline,
	}
	if req.SavedAmount != nil {
		g.SavedAmount = *req.SavedAmount
	}

	saved, err := h.App.AddGoal(c.Request.Context(), middleware.CurrentSession(c), g)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Created(c, util.Response{"goal": saved})
}

// ListGoals returns the caller's goals with their progress.
func (h *GoalHandler) ListGoals(c *gin.Context) {
	goals, err := h.App.Goals(c.Request.Context(), middleware.CurrentSession(c))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{
		"items": aggregate.GoalProgress(goals, time.Now()),
	})
}
