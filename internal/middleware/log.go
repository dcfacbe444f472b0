package middleware

import (
	"bytes"
	"io"
	"strings"
	"time"

	applog "finora/internal/log"
	"finora/internal/models"
	"finora/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxAuditBody = 2000

// RequestLogger logs one line per request with a request id.
func RequestLogger(logger *applog.Logger) gin.HandlerFunc {
	logger = logger.WithComponent(applog.ComponentHTTP)
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header("X-Request-ID", reqID)

		c.Next()

		status := c.Writer.Status()
		args := []any{
			applog.FieldRequestID, reqID,
			applog.FieldMethod, c.Request.Method,
			applog.FieldPath, c.FullPath(),
			applog.FieldStatusCode, status,
			applog.FieldDuration, time.Since(start).Milliseconds(),
			applog.FieldClientIP, c.ClientIP(),
		}
		if s := CurrentSession(c); s.Authenticated() {
			args = append(args, applog.FieldUsername, s.Username)
		}
		switch {
		case status >= 500:
			logger.ErrorContext(c.Request.Context(), "request failed", args...)
		case status >= 400:
			logger.WarnContext(c.Request.Context(), "request rejected", args...)
		default:
			logger.InfoContext(c.Request.Context(), "request", args...)
		}
	}
}

// sensitive requests never have their body recorded
func sensitive(path string) bool {
	return strings.Contains(path, "/auth/") || strings.Contains(path, "password")
}

// AuditMiddleware records every authenticated request. Path and action are
// stored AES encrypted; plaintext never reaches the table.
func AuditMiddleware(db *gorm.DB, encryptKey string, logger *applog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var bodyBytes []byte
		path := c.Request.URL.Path
		if c.Request.Body != nil && !sensitive(path) {
			bodyBytes, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxAuditBody+1))
			c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(bodyBytes), c.Request.Body))
		}

		c.Next()

		s := CurrentSession(c)
		if !s.Authenticated() {
			return
		}

		action := c.Request.Method + " " + path
		if q := c.Request.URL.RawQuery; q != "" && !strings.Contains(q, "token=") {
			action += "?" + q
		}
		if len(bodyBytes) > 0 && len(bodyBytes) <= maxAuditBody {
			action += " " + string(bodyBytes)
		}

		encPath, err := util.EncryptString(encryptKey, path)
		if err != nil {
			logger.Failure(c.Request.Context(), "encrypt audit path", err)
			return
		}
		encAction, err := util.EncryptString(encryptKey, action)
		if err != nil {
			logger.Failure(c.Request.Context(), "encrypt audit action", err)
			return
		}

		entry := models.AuditLog{
			Username:  s.Username,
			Method:    c.Request.Method,
			PathEnc:   encPath,
			ActionEnc: encAction,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		if err := db.WithContext(c.Request.Context()).Create(&entry).Error; err != nil {
			logger.Failure(c.Request.Context(), "write audit log", err, applog.FieldUsername, s.Username)
		}
	}
}
