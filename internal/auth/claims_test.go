package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-for-jwt-signing-000"

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("relayctl", "", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("GenerateToken() = %q, not a JWT", token)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "relayctl" {
		t.Errorf("Subject = %q, want relayctl", claims.Subject)
	}
	if claims.Scope != ScopeControl || !claims.CanControl() {
		t.Errorf("Scope = %q, want default %q", claims.Scope, ScopeControl)
	}
	if claims.ID == "" {
		t.Error("ID should not be empty")
	}
	if ttl := time.Until(claims.ExpiresAt.Time); ttl <= 59*time.Minute || ttl > time.Hour {
		t.Errorf("expiry in %v, want about 1h", ttl)
	}
}

func TestGenerateToken_ReadScope(t *testing.T) {
	token, err := GenerateToken("dashboard", ScopeRead, testSecret, 0)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.CanControl() {
		t.Error("read token must not control relays")
	}
	if ttl := time.Until(claims.ExpiresAt.Time); ttl < DefaultTTL-time.Minute {
		t.Errorf("expiry in %v, want default TTL", ttl)
	}
}

func TestGenerateToken_Errors(t *testing.T) {
	if _, err := GenerateToken("x", ScopeRead, "short", time.Hour); !errors.Is(err, ErrSecretTooShort) {
		t.Errorf("short secret error = %v, want ErrSecretTooShort", err)
	}
	if _, err := GenerateToken("", ScopeRead, testSecret, time.Hour); !errors.Is(err, ErrMissingSubject) {
		t.Errorf("empty subject error = %v, want ErrMissingSubject", err)
	}
}

func TestParseToken_Rejects(t *testing.T) {
	valid, err := GenerateToken("relayctl", ScopeRead, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	other, err := GenerateToken("intruder", ScopeControl, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	v, o := strings.Split(valid, "."), strings.Split(other, ".")
	tampered := v[0] + "." + o[1] + "." + v[2]

	sign := func(method jwt.SigningMethod, key any, claims Claims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("SignedString() error = %v", err)
		}
		return s
	}
	base := func() Claims {
		now := time.Now()
		return Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    issuer,
				Subject:   "relayctl",
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
			Scope: ScopeControl,
		}
	}

	expired := base()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	otherIssuer := base()
	otherIssuer.Issuer = "someone-else"
	noSubject := base()
	noSubject.Subject = ""
	badScope := base()
	badScope.Scope = "admin"
	noExpiry := base()
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"wrong secret", sign(jwt.SigningMethodHS256, []byte("another-secret-key-for-jwt-signing"), base())},
		{"none algorithm", sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, base())},
		{"HS512", sign(jwt.SigningMethodHS512, []byte(testSecret), base())},
		{"expired", sign(jwt.SigningMethodHS256, []byte(testSecret), expired)},
		{"other issuer", sign(jwt.SigningMethodHS256, []byte(testSecret), otherIssuer)},
		{"no subject", sign(jwt.SigningMethodHS256, []byte(testSecret), noSubject)},
		{"unknown scope", sign(jwt.SigningMethodHS256, []byte(testSecret), badScope)},
		{"no expiry", sign(jwt.SigningMethodHS256, []byte(testSecret), noExpiry)},
		{"tampered", tampered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, testSecret); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}
