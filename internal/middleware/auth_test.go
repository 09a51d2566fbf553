package middleware_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/tasktrail/internal/auth"
	"github.com/persistorai/tasktrail/internal/middleware"
	"github.com/persistorai/tasktrail/internal/models"
)

type mockVerifier struct {
	valid map[string]string
}

func (m *mockVerifier) Verify(token string) (string, error) {
	if token == "expired" {
		return "", auth.ErrTokenExpired
	}
	if userID, ok := m.valid[token]; ok {
		return userID, nil
	}
	return "", fmt.Errorf("%w: invalid token", models.ErrUnauthenticated)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestAuthMiddleware(t *testing.T) {
	verifier := &mockVerifier{valid: map[string]string{"good-token": "alice"}}

	tests := []struct {
		name       string
		authHeader string
		wantCode   int
	}{
		{"valid token", "Bearer good-token", http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"invalid token", "Bearer bad-token", http.StatusUnauthorized},
		{"expired token", "Bearer expired", http.StatusUnauthorized},
		{"no bearer prefix", "good-token", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(middleware.AuthMiddleware(verifier, quietLogger()))
			r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			r.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("got %d, want %d", w.Code, tt.wantCode)
			}
		})
	}
}

func TestAuthMiddleware_SetsUserID(t *testing.T) {
	verifier := &mockVerifier{valid: map[string]string{"k1": "alice"}}

	var got string
	r := gin.New()
	r.Use(middleware.AuthMiddleware(verifier, quietLogger()))
	r.GET("/test", func(c *gin.Context) {
		got = c.GetString(middleware.UserIDKey)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set("Authorization", "Bearer k1")
	r.ServeHTTP(w, req)

	if got != "alice" {
		t.Errorf("user_id = %q, want alice", got)
	}
}

func TestAuthMiddleware_RealVerifier(t *testing.T) {
	key := []byte("test-signing-key-test-signing-key")
	token, err := auth.NewIssuer(key, "tasktrail").Issue("bob", 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	var got string
	r := gin.New()
	r.Use(middleware.AuthMiddleware(auth.NewVerifier(key, "tasktrail"), quietLogger()))
	r.GET("/test", func(c *gin.Context) {
		got = c.GetString(middleware.UserIDKey)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || got != "bob" {
		t.Fatalf("code=%d user=%q, want 200 bob", w.Code, got)
	}
}

func TestAuthMiddleware_FailuresFeedGuard(t *testing.T) {
	guard, cancel := newTestGuard()
	defer cancel()

	r := gin.New()
	r.Use(middleware.BruteForceMiddleware(guard))
	r.Use(middleware.AuthMiddleware(&mockVerifier{}, quietLogger(), guard))
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 6)
	for range 6 {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
		req.RemoteAddr = "9.9.9.9:1000"
		req.Header.Set("Authorization", "Bearer forged")
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	for i := range 5 {
		if codes[i] != http.StatusUnauthorized {
			t.Fatalf("attempt %d: got %d, want 401", i, codes[i])
		}
	}

	if codes[5] != http.StatusTooManyRequests {
		t.Fatalf("attempt 6: got %d, want 429", codes[5])
	}
}
