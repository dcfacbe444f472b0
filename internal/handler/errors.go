package handler

import (
	"errors"
	"net/http"

	"finora/internal/advice"
	"finora/internal/app"
	"finora/internal/ledger"
	applog "finora/internal/log"
	"finora/internal/market"
	"finora/internal/registry"
	"finora/internal/session"
	"finora/internal/util"

	"github.com/gin-gonic/gin"
)

// respondError maps domain errors onto the JSON error envelope. Anything
// unexpected is logged and reported as a generic server error.
func respondError(c *gin.Context, logger *applog.Logger, err error) {
	var (
		verr *ledger.ValidationError
		perr *ledger.PersistenceError
		cerr *advice.ConfigurationError
	)
	switch {
	case errors.Is(err, session.ErrNotAuthenticated), errors.Is(err, session.ErrInvalidSession):
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
	case errors.Is(err, registry.ErrLocked):
		util.Error(c, http.StatusUnauthorized, util.CodeLocked, "account locked, try again later")
	case errors.Is(err, registry.ErrAuthFailure):
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "wrong username or password")
	case errors.Is(err, registry.ErrDuplicateUser):
		util.Error(c, http.StatusConflict, util.CodeConflict, "username already exists")
	case errors.Is(err, registry.ErrWeakCredential):
		util.Error(c, http.StatusBadRequest, util.CodeWeakPassword, err.Error())
	case errors.Is(err, registry.ErrInvalidUsername), errors.Is(err, registry.ErrInvalidProfile):
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, err.Error())
	case errors.Is(err, registry.ErrUserNotFound):
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "user not found")
	case errors.As(err, &verr):
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, verr.Error())
	case errors.Is(err, app.ErrProfileIncomplete):
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, err.Error())
	case errors.Is(err, market.ErrUnavailable):
		util.Error(c, http.StatusServiceUnavailable, util.CodeUnavailable, "market data unavailable")
	case errors.As(err, &cerr):
		logger.Failure(c.Request.Context(), "advice configuration", err)
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "internal error")
	case errors.As(err, &perr):
		logger.Failure(c.Request.Context(), "persistence failure", err, applog.FieldOperation, perr.Op)
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to save, please retry")
	default:
		logger.Failure(c.Request.Context(), "request failed", err, applog.FieldPath, c.FullPath())
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "internal error")
	}
}

func badRequest(c *gin.Context, msg string) {
	util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, msg)
}
