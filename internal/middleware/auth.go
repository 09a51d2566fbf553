package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/tasktrail/internal/auth"
)

// UserIDKey is the gin context key holding the authenticated actor id.
const UserIDKey = "user_id"

// TokenVerifier resolves a bearer token to an actor id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// AuthMiddleware returns Gin middleware that authenticates requests via a
// Bearer JWT and stores the token subject under UserIDKey.
// If a BruteForceGuard is provided, failed attempts are tracked per client IP.
func AuthMiddleware(verifier TokenVerifier, log *logrus.Logger, guards ...*BruteForceGuard) gin.HandlerFunc {
	var guard *BruteForceGuard
	if len(guards) > 0 {
		guard = guards[0]
	}

	return func(c *gin.Context) {
		token := ExtractBearerToken(c)
		if token == "" {
			respondError(c, http.StatusUnauthorized, codeUnauthorized, "missing or invalid authorization header")
			return
		}

		userID, err := verifier.Verify(token)
		if err != nil {
			logAuthFailure(log, c, err)

			if guard != nil {
				guard.RecordFailure(c.ClientIP())
			}

			msg := "invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "token has expired"
			}

			respondError(c, http.StatusUnauthorized, codeUnauthorized, msg)
			return
		}

		if guard != nil {
			guard.Reset(c.ClientIP())
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// ExtractBearerToken extracts the token from the Authorization header.
func ExtractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// logAuthFailure logs a failed authentication attempt. The token itself is never logged.
func logAuthFailure(log *logrus.Logger, c *gin.Context, err error) {
	log.WithFields(logrus.Fields{
		"client_ip":  c.ClientIP(),
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"user_agent": c.Request.UserAgent(),
		"request_id": c.GetString(RequestIDKey),
	}).WithError(err).Warn("authentication failed")
}
