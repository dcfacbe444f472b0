package handler

import (
	"slices"
	"strings"
	"time"

	"finora/internal/app"
	applog "finora/internal/log"
	"finora/internal/middleware"
	"finora/internal/models"
	"finora/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// EntryHandler serves the ledger endpoints.
type EntryHandler struct {
	App *app.App
	Log *applog.Logger
}

func NewEntryHandler(a *app.App, logger *applog.Logger) *EntryHandler {
	return &EntryHandler{App: a, Log: logger}
}

type createEntryReq struct {
	Date     string           `json:"date"`
	Kind     string           `json:"kind" binding:"required"`
	Category string           `json:"category" binding:"required,max=32"`
	Amount   *decimal.Decimal `json:"amount" binding:"required"`
	Notes    string           `json:"notes" binding:"max=255"`
}

// CreateEntry appends an income or expense entry. The date defaults to
// today and may not lie in the future.
func (h *EntryHandler) CreateEntry(c *gin.Context) {
	var req createEntryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	now := time.Now()
	date := now.UTC()
	if strings.TrimSpace(req.Date) != "" {
		d, err := util.ParseDate(req.Date)
		if err != nil {
			badRequest(c, "date must be YYYY-MM-DD")
			return
		}
		date = d
	}
	if afterToday(date, now) {
		badRequest(c, "date cannot be in the future")
		return
	}

	kind, ok := models.ParseEntryKind(req.Kind)
	if !ok {
		badRequest(c, "kind must be Income or Expense")
		return
	}

	e := models.Entry{
		Date:     date,
		Kind:     kind,
		Category: req.Category,
		Amount:   *req.Amount,
		Notes:    req.Notes,
	}
	id, err := h.App.AddEntry(c.Request.Context(), middleware.CurrentSession(c), e)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}

	util.Created(c, util.Response{
		"id":       id,
		"date":     date.Format(util.DateLayout),
		"kind":     kind,
		"category": strings.TrimSpace(req.Category),
		"amount":   req.Amount.StringFixed(2),
	})
}

type entryResp struct {
	ID       int64            `json:"id"`
	Date     string           `json:"date"`
	Kind     models.EntryKind `json:"kind"`
	Category string           `json:"category"`
	Amount   string           `json:"amount"`
	Notes    string           `json:"notes"`
}

func toEntryResp(e models.Entry) entryResp {
	return entryResp{
		ID:       e.ID,
		Date:     e.Date.Format(util.DateLayout),
		Kind:     e.Kind,
		Category: e.Category,
		Amount:   e.Amount.StringFixed(2),
		Notes:    e.Notes,
	}
}

// entryFilter reads start, end, kind and category from the query string.
func entryFilter(c *gin.Context) (app.EntryFilter, bool) {
	var f app.EntryFilter
	var err error
	if f.From, err = util.ParseOptionalDate(c.Query("start")); err != nil {
		badRequest(c, "start must be YYYY-MM-DD")
		return f, false
	}
	if f.To, err = util.ParseOptionalDate(c.Query("end")); err != nil {
		badRequest(c, "end must be YYYY-MM-DD")
		return f, false
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		badRequest(c, "end is before start")
		return f, false
	}
	if k := c.Query("kind"); k != "" {
		kind, ok := models.ParseEntryKind(k)
		if !ok {
			badRequest(c, "kind must be Income or Expense")
			return f, false
		}
		f.Kind = kind
	}
	if cat := strings.TrimSpace(c.Query("category")); cat != "" {
		if err := util.ValidateCategory(cat); err != nil {
			badRequest(c, err.Error())
			return f, false
		}
		f.Category = cat
	}
	return f, true
}

// afterToday reports whether the calendar day of date lies after the UTC day
// of now. Entry dates are UTC days.
func afterToday(date, now time.Time) bool {
	return date.UTC().Format(util.DateLayout) > now.UTC().Format(util.DateLayout)
}

// ListEntries returns one page of the caller's entries. sort=date_desc
// lists newest first; the default is ledger order.
func (h *EntryHandler) ListEntries(c *gin.Context) {
	f, ok := entryFilter(c)
	if !ok {
		return
	}

	page, size := pagination(c, 20)

	entries, err := h.App.Entries(c.Request.Context(), middleware.CurrentSession(c), f)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	switch c.DefaultQuery("sort", "date_asc") {
	case "date_desc":
		slices.Reverse(entries)
	case "date_asc":
	default:
		badRequest(c, "sort must be date_asc or date_desc")
		return
	}

	pageItems := paginate(entries, page, size)
	items := make([]entryResp, 0, len(pageItems))
	for _, e := range pageItems {
		items = append(items, toEntryResp(e))
	}

	util.Success(c, util.Response{
		"items": items,
		"total": len(entries),
		"page":  page,
		"size":  size,
	})
}

// Categories lists the categories offered by default.
func (h *EntryHandler) Categories(c *gin.Context) {
	util.Success(c, util.Response{"items": models.DefaultCategories})
}
