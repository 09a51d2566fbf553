package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/tasktrail/internal/httputil"
	"github.com/persistorai/tasktrail/internal/metrics"
	"github.com/persistorai/tasktrail/internal/middleware"
)

// Error code constants for standardized API responses.
const (
	ErrCodeInvalidRequest  = "invalid_request"
	ErrCodeNotFound        = "not_found"
	ErrCodeInternalError   = "internal_error"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeValidationError = "validation_error"
)

// respondError writes a standardized JSON error response, pulling the request
// ID from the Gin context (set by the request ID middleware).
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondError(c, status, code, message)
}

// respondServiceError maps a coordinator or query error onto its HTTP
// response. Server-side failures are logged with their cause, which never
// reaches the client.
func respondServiceError(c *gin.Context, log *logrus.Logger, op string, err error) {
	status, code, message := httputil.ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		middleware.RequestLogger(c, log).WithError(err).WithField("op", op).Error("request failed")
	}

	respondError(c, status, code, message)
}
