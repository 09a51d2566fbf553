package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/persistorai/tasktrail/internal/auth"
	"github.com/persistorai/tasktrail/internal/models"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestIssueAndVerify(t *testing.T) {
	token, err := auth.NewIssuer(testKey, "tasktrail").Issue("alice", time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	actor, err := auth.NewVerifier(testKey, "tasktrail").Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if actor != "alice" {
		t.Errorf("actor = %q, want alice", actor)
	}
}

func TestVerifyRejects(t *testing.T) {
	good, err := auth.NewIssuer(testKey, "tasktrail").Issue("alice", time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	otherKey, err := auth.NewIssuer([]byte("another-key-another-key-another!"), "tasktrail").Issue("alice", time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	wrongIssuer, err := auth.NewIssuer(testKey, "someone-else").Issue("alice", time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	expired := sign(t, jwt.MapClaims{
		"sub": "alice",
		"iss": "tasktrail",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	noSubject := sign(t, jwt.MapClaims{
		"iss": "tasktrail",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	noExpiry := sign(t, jwt.MapClaims{
		"sub": "alice",
		"iss": "tasktrail",
	})

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"tampered", good + "x"},
		{"wrong key", otherKey},
		{"wrong issuer", wrongIssuer},
		{"expired", expired},
		{"no subject", noSubject},
		{"no expiry", noExpiry},
		{"alg none", unsigned(t)},
	}

	v := auth.NewVerifier(testKey, "tasktrail")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			if !errors.Is(err, models.ErrUnauthenticated) {
				t.Fatalf("err = %v, want ErrUnauthenticated", err)
			}
		})
	}
}

func TestVerifyExpiredIsDistinguishable(t *testing.T) {
	expired := sign(t, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	_, err := auth.NewVerifier(testKey, "").Verify(expired)
	if !errors.Is(err, auth.ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestIssueRequiresActor(t *testing.T) {
	if _, err := auth.NewIssuer(testKey, "").Issue("", time.Minute); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestIssueDefaultTTL(t *testing.T) {
	token, err := auth.NewIssuer(testKey, "").Issue("alice", 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := auth.NewVerifier(testKey, "").Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if ttl != auth.DefaultTTL {
		t.Errorf("ttl = %v, want %v", ttl, auth.DefaultTTL)
	}

	if claims.ID == "" {
		t.Error("token has no jti")
	}
}

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testKey)
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	return token
}

func unsigned(t *testing.T) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	return token
}
