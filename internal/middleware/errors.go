package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/persistorai/tasktrail/internal/httputil"
	"github.com/persistorai/tasktrail/internal/metrics"
)

// Error codes produced by middleware before a request reaches a handler.
const (
	codeUnauthorized    = "unauthorized"
	codeRateLimited     = "rate_limited"
	codePayloadTooLarge = "payload_too_large"
)

// respondError writes the shared JSON error body and counts the rejection
// under the same errors metric the task handlers use.
func respondError(c *gin.Context, code int, errCode, message string) {
	metrics.ErrorsTotal.WithLabelValues(errCode).Inc()
	httputil.RespondError(c, code, errCode, message)
}
