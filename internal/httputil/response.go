// Package httputil provides shared HTTP response helpers.
package httputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/persistorai/tasktrail/internal/models"
)

// RespondError writes a standardized JSON error response and aborts the request.
func RespondError(c *gin.Context, status int, code, message string) {
	resp := gin.H{
		"code":    code,
		"message": message,
	}

	if requestID := c.GetString("request_id"); requestID != "" {
		resp["request_id"] = requestID
	}

	c.AbortWithStatusJSON(status, resp)
}

// ErrorStatus classifies err into an HTTP status, a stable error code and a
// message that is safe to show clients. Unclassified errors become 500 with a
// generic message; the caller is expected to log the cause.
func ErrorStatus(err error) (status int, code, message string) {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, "validation_error", err.Error()
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthorized", "authentication required"
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden, "forbidden", "Task belongs to another user"
	case errors.Is(err, models.ErrTaskNotFound):
		return http.StatusNotFound, "not_found", "Task not found"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}
