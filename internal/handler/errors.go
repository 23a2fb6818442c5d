package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yourusername/survey-api/internal/pkg/errors"
	"github.com/yourusername/survey-api/internal/service"
	"github.com/yourusername/survey-api/pkg/logger"
)

// errorStatus maps the error taxonomy to an HTTP status and a message safe
// to show to clients.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFoundOrForbidden):
		return http.StatusNotFound, "Survey not found or access denied"
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, apperrors.ErrAmbiguousState):
		return http.StatusConflict, "More than one active survey"
	case errors.Is(err, service.ErrSurveyInactive):
		return http.StatusConflict, "Survey is not accepting responses"
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, "Conflict with the current state"
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, service.ErrFeatureDisabled):
		return http.StatusServiceUnavailable, "Feature is not configured"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// respondError writes {success:false, error} and logs server-side failures
func respondError(c *gin.Context, log *logger.Logger, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "route", c.FullPath(), "error", err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
}

func respondBindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "Invalid request data: " + err.Error(),
	})
}
