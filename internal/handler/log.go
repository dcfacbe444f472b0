package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	applog "finora/internal/log"
	"finora/internal/middleware"
	"finora/internal/models"
	"finora/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// LogHandler lists the caller's audit trail.
type LogHandler struct {
	DB         *gorm.DB
	EncryptKey string
	Log        *applog.Logger
}

func NewLogHandler(db *gorm.DB, encryptKey string, logger *applog.Logger) *LogHandler {
	return &LogHandler{DB: db, EncryptKey: encryptKey, Log: logger}
}

// decryptField returns "" for values that cannot be decrypted.
func (h *LogHandler) decryptField(cipherStr string) string {
	if cipherStr == "" {
		return ""
	}
	plain, err := util.DecryptString(h.EncryptKey, cipherStr)
	if err != nil {
		return ""
	}
	return plain
}

type logResp struct {
	ID        uint      `json:"id"`
	Action    string    `json:"action"`
	Path      string    `json:"path"`
	Method    string    `json:"method"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

// maxPage bounds the page parameter so offsets cannot overflow.
const maxPage = 100_000

func pagination(c *gin.Context, defaultSize int) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page <= 0 {
		page = 1
	}
	page = min(page, maxPage)
	size, _ = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultSize)))
	if size <= 0 || size > 100 {
		size = defaultSize
	}
	return page, size
}

func paginate[T any](items []T, page, size int) []T {
	if page < 1 || size < 1 || page-1 >= (len(items)+size-1)/size {
		return items[:0]
	}
	start := (page - 1) * size
	end := min(start+size, len(items))
	return items[start:end]
}

// scope returns the query over the caller's audit rows within the optional
// start/end day range, newest first.
func (h *LogHandler) scope(c *gin.Context) (*gorm.DB, bool) {
	start, err := util.ParseOptionalDate(c.Query("start"))
	if err != nil {
		badRequest(c, "start must be YYYY-MM-DD")
		return nil, false
	}
	end, err := util.ParseOptionalDate(c.Query("end"))
	if err != nil {
		badRequest(c, "end must be YYYY-MM-DD")
		return nil, false
	}

	s := middleware.CurrentSession(c)
	q := h.DB.WithContext(c.Request.Context()).Model(&models.AuditLog{}).Where("username = ?", s.Username)
	if !start.IsZero() {
		q = q.Where("created_at >= ?", start)
	}
	if !end.IsZero() {
		q = q.Where("created_at < ?", end.AddDate(0, 0, 1))
	}
	// Session makes the scope reusable for count and page queries
	return q.Order("created_at DESC, id DESC").Session(&gorm.Session{}), true
}

// fetch runs q and decrypts the rows it returns.
func (h *LogHandler) fetch(c *gin.Context, q *gorm.DB) ([]logResp, bool) {
	var rows []models.AuditLog
	if err := q.Find(&rows).Error; err != nil {
		h.Log.Failure(c.Request.Context(), "query audit log", err)
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return nil, false
	}

	out := make([]logResp, 0, len(rows))
	for i := range rows {
		l := &rows[i]
		out = append(out, logResp{
			ID:        l.ID,
			Action:    h.decryptField(l.ActionEnc),
			Path:      h.decryptField(l.PathEnc),
			Method:    l.Method,
			IP:        l.IP,
			UserAgent: l.UserAgent,
			CreatedAt: l.CreatedAt,
		})
	}
	return out, true
}

// ListLogs pages through the audit log. Without q the page is cut in SQL;
// q matches path or action and runs after decryption since only ciphertext
// is stored.
func (h *LogHandler) ListLogs(c *gin.Context) {
	page, size := pagination(c, 20)
	q, ok := h.scope(c)
	if !ok {
		return
	}

	kw := strings.TrimSpace(c.Query("q"))
	if kw == "" {
		var total int64
		if err := q.Count(&total).Error; err != nil {
			h.Log.Failure(c.Request.Context(), "count audit log", err)
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
			return
		}
		items, ok := h.fetch(c, q.Offset((page-1)*size).Limit(size))
		if !ok {
			return
		}
		util.Success(c, util.Response{
			"items": items,
			"total": total,
			"page":  page,
			"size":  size,
		})
		return
	}

	all, ok := h.fetch(c, q)
	if !ok {
		return
	}
	filtered := all[:0]
	for _, l := range all {
		if strings.Contains(l.Path, kw) || strings.Contains(l.Action, kw) {
			filtered = append(filtered, l)
		}
	}

	util.Success(c, util.Response{
		"items": paginate(filtered, page, size),
		"total": len(filtered),
		"page":  page,
		"size":  size,
	})
}

type entryHistoryResp struct {
	ID        uint      `json:"id"`
	Date      string    `json:"date"`
	Kind      string    `json:"kind"`
	Category  string    `json:"category"`
	Amount    string    `json:"amount"`
	Notes     string    `json:"notes"`
	IP        string    `json:"ip"`
	CreatedAt time.Time `json:"created_at"`
}

// ListEntryHistory lists the entry submissions found in the audit log.
func (h *LogHandler) ListEntryHistory(c *gin.Context) {
	page, size := pagination(c, 50)
	q, ok := h.scope(c)
	if !ok {
		return
	}
	all, ok := h.fetch(c, q.Where("method = ?", http.MethodPost))
	if !ok {
		return
	}

	items := make([]entryHistoryResp, 0)
	for _, l := range all {
		if l.Method != http.MethodPost || l.Path != "/api/entries" {
			continue
		}
		item := entryHistoryResp{ID: l.ID, IP: l.IP, CreatedAt: l.CreatedAt}

		// action is "POST /api/entries {json body}"
		if i := strings.Index(l.Action, "{"); i >= 0 {
			var body struct {
				Date     string          `json:"date"`
				Kind     string          `json:"kind"`
				Category string          `json:"category"`
				Amount   json.RawMessage `json:"amount"`
				Notes    string          `json:"notes"`
			}
			if json.Unmarshal([]byte(l.Action[i:]), &body) == nil {
				item.Date = body.Date
				item.Kind = body.Kind
				item.Category = body.Category
				item.Amount = strings.Trim(string(body.Amount), `"`)
				item.Notes = body.Notes
			}
		}
		items = append(items, item)
	}

	util.Success(c, util.Response{
		"items": paginate(items, page, size),
		"total": len(items),
		"page":  page,
		"size":  size,
	})
}
