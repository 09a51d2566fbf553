package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/persistorai/tasktrail/internal/metrics"
)

// unmatchedRoute labels requests that hit no registered route, so probing
// random paths cannot grow label cardinality.
const unmatchedRoute = "unmatched"

// PrometheusMiddleware records HTTP request duration and count by route
// pattern. Scrapes of /metrics are not counted. Websocket sessions are
// counted but kept out of the duration histogram since they last as long
// as the client stays connected.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		metrics.RequestsTotal.WithLabelValues(method, route, status).Inc()
		if !c.IsWebsocket() {
			metrics.RequestDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
		}
	}
}
