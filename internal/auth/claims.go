package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLength is the shortest accepted HMAC signing secret.
const MinSecretLength = 32

// DefaultTTL is used when GenerateToken is given a non-positive lifetime.
const DefaultTTL = 30 * 24 * time.Hour

// issuer identifies tokens minted by this service.
const issuer = "homealone"

// Scope limits what a token may do.
type Scope string

const (
	// ScopeControl permits switching relays and reading state.
	ScopeControl Scope = "control"

	// ScopeRead permits read-only access.
	ScopeRead Scope = "read"
)

// Claims is the JWT payload for API tokens.
type Claims struct {
	jwt.RegisteredClaims
	Scope Scope `json:"scope"`
}

// CanControl reports whether the token may trigger relay actions.
func (c *Claims) CanControl() bool {
	return c.Scope == ScopeControl
}

// GenerateToken creates a signed token for subject.
//
// An empty scope defaults to ScopeControl.
func GenerateToken(subject string, scope Scope, secret string, ttl time.Duration) (string, error) {
	if len(secret) < MinSecretLength {
		return "", fmt.Errorf("%w: need %d characters", ErrSecretTooShort, MinSecretLength)
	}
	if subject == "" {
		return "", ErrMissingSubject
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if scope == "" {
		scope = ScopeControl
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Scope: scope,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token's signature, expiry and issuer and returns its
// claims.
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	switch claims.Scope {
	case ScopeControl, ScopeRead:
	default:
		return nil, fmt.Errorf("%w: unknown scope %q", ErrTokenInvalid, claims.Scope)
	}

	return claims, nil
}
