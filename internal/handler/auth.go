package handler

import (
	"net/http"
	"strings"
	"time"

	"finora/internal/app"
	applog "finora/internal/log"
	"finora/internal/middleware"
	"finora/internal/session"
	"finora/internal/util"

	"github.com/gin-gonic/gin"
)

// AuthHandler serves registration, login and logout.
type AuthHandler struct {
	App *app.App
	Log *applog.Logger
}

func NewAuthHandler(a *app.App, logger *applog.Logger) *AuthHandler {
	return &AuthHandler{App: a, Log: logger}
}

type registerReq struct {
	Username        string `json:"username" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if req.Password != req.ConfirmPassword {
		badRequest(c, "passwords do not match")
		return
	}

	s, token, err := h.App.Register(c.Request.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	h.setCookie(c, token, s)
	util.Created(c, sessionResponse(s, token))
}

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	s, token, err := h.App.Login(c.Request.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	h.setCookie(c, token, s)
	util.Success(c, sessionResponse(s, token))
}

// Logout ends the caller's session and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.App.Logout(c.Request.Context(), middleware.CurrentSession(c)); err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", false, true)
	util.Success(c, util.Response{"message": "logged out"})
}

func (h *AuthHandler) setCookie(c *gin.Context, token string, s *session.Session) {
	maxAge := int(time.Until(s.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.TokenCookie, token, maxAge, "/", "", c.Request.TLS != nil, true)
}

func sessionResponse(s *session.Session, token string) util.Response {
	return util.Response{
		"token":      token,
		"expires_at": s.ExpiresAt,
		"user": gin.H{
			"username": s.Username,
		},
	}
}
