package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ajharbinger/tender-eligibility/internal/auth"
	apperrors "github.com/ajharbinger/tender-eligibility/internal/errors"
	"github.com/ajharbinger/tender-eligibility/internal/services"
)

// respondError writes the error envelope. Errors that are not AppErrors are
// reported as internal errors without leaking their text.
func respondError(c *gin.Context, err error) {
	appErr := apperrors.As(err)
	if appErr.HTTPStatus() >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus(), gin.H{"error": appErr})
}

// respondBindError reports a request body or query that failed to bind
func respondBindError(c *gin.Context, err error) {
	respondError(c, apperrors.InvalidInput("Invalid request format", err).WithDetails(err.Error()))
}

// callerFrom returns the authenticated caller. Routes using it sit behind
// JWTMiddleware, so a missing caller means the route was misconfigured.
func callerFrom(c *gin.Context) (services.Caller, bool) {
	id, role, ok := auth.CurrentUser(c)
	if !ok {
		respondError(c, apperrors.Unauthorized("Authentication required", nil))
		return services.Caller{}, false
	}
	return services.Caller{UserID: id, Role: role}, true
}
