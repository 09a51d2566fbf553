// Package auth verifies and mints the HS256 bearer tokens that identify callers.
// The token subject (sub) is the actor id used for task ownership and audit entries.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/persistorai/tasktrail/internal/models"
)

// DefaultTTL is the lifetime of tokens minted without an explicit TTL.
const DefaultTTL = 15 * time.Minute

// ErrTokenExpired distinguishes expired tokens from otherwise invalid ones.
// It matches models.ErrUnauthenticated.
var ErrTokenExpired = fmt.Errorf("%w: token has expired", models.ErrUnauthenticated)

// Claims are the registered claims carried by tasktrail tokens.
type Claims struct {
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens.
type Verifier struct {
	key    []byte
	issuer string
}

// NewVerifier creates a Verifier. When issuer is non-empty the iss claim must match it.
func NewVerifier(key []byte, issuer string) *Verifier {
	return &Verifier{key: key, issuer: issuer}
}

// Verify checks the signature, expiry and issuer of token and returns the
// actor id from its subject. Every failure matches models.ErrUnauthenticated.
func (v *Verifier) Verify(token string) (string, error) {
	claims, err := v.Parse(token)
	if err != nil {
		return "", err
	}

	return claims.Subject, nil
}

// Parse validates token and returns its claims.
func (v *Verifier) Parse(token string) (*Claims, error) {
	if token == "" {
		return nil, models.ErrUnauthenticated
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}

		return v.key, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}

		return nil, fmt.Errorf("%w: invalid token", models.ErrUnauthenticated)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", models.ErrUnauthenticated)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", models.ErrUnauthenticated)
	}

	return claims, nil
}

// Issuer mints tokens for development and scripting. It is not a login flow.
type Issuer struct {
	key    []byte
	issuer string
	now    func() time.Time
}

// NewIssuer creates an Issuer signing with key and stamping iss with issuer.
func NewIssuer(key []byte, issuer string) *Issuer {
	return &Issuer{key: key, issuer: issuer, now: time.Now}
}

// Issue returns a signed token whose subject is actor. A non-positive ttl
// selects DefaultTTL.
func (i *Issuer) Issue(actor string, ttl time.Duration) (string, error) {
	if actor == "" {
		return "", models.ErrMissingActor
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return signed, nil
}
