package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// DefaultMaxBodyBytes comfortably fits the largest task payload (120-char
// title, 500-char description) with JSON overhead.
const DefaultMaxBodyBytes int64 = 64 << 10

// MaxBodySize returns middleware that limits request body size. Requests that
// declare a larger Content-Length are rejected up front with 413; bodies
// without one are capped while being read.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	limit := strconv.FormatInt(maxBytes, 10)

	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			respondError(c, http.StatusRequestEntityTooLarge, codePayloadTooLarge,
				"request body exceeds "+limit+" bytes")

			return
		}

		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}
