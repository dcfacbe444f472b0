package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	applog "finora/internal/log"
	"finora/internal/session"
	"finora/internal/util"

	"github.com/gin-gonic/gin"
)

// SessionKey is the gin context key holding the caller's *session.Session.
const SessionKey = "session"

// TokenCookie may carry the bearer token for download links.
const TokenCookie = "finora_token"

// SessionResolver turns a bearer token into a live session.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*session.Session, error)
}

// BearerToken extracts the token from the Authorization header, the token
// query parameter or the cookie, in that order.
func BearerToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	// downloads cannot set headers
	if tok := c.Query("token"); tok != "" {
		return tok
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil {
		return cookie
	}
	return ""
}

// AuthMiddleware resolves the bearer token and stores the session in the
// context. Requests without a live session are rejected.
func AuthMiddleware(sessions SessionResolver, logger *applog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := BearerToken(c)
		if tokenStr == "" {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
			c.Abort()
			return
		}

		s, err := sessions.Resolve(c.Request.Context(), tokenStr)
		if err != nil {
			if errors.Is(err, session.ErrInvalidSession) {
				util.Error(c, http.StatusUnauthorized, util.CodeAuth, "session expired, please log in again")
			} else {
				logger.Failure(c.Request.Context(), "resolve session", err)
				util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to load session")
			}
			c.Abort()
			return
		}

		c.Set(SessionKey, s)
		c.Next()
	}
}

// CurrentSession returns the caller's session, or an anonymous one.
func CurrentSession(c *gin.Context) *session.Session {
	if v, ok := c.Get(SessionKey); ok {
		if s, ok := v.(*session.Session); ok && s != nil {
			return s
		}
	}
	return &session.Session{}
}
