package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calbridge/calbridge/internal/tier"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, secret []byte, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func validClaims() Claims {
	return Claims{
		Email: "jane@example.com",
		Tier:  "premium",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestAuthenticateValidToken(t *testing.T) {
	a := NewJWTAuthenticator(testSecret)

	r := httptest.NewRequest("POST", "/mcp", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims()))

	user := a.Authenticate(r)
	require.NotNil(t, user)
	assert.Equal(t, "user-1", user.UserID)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.Equal(t, tier.Premium, user.Tier)
}

func TestAuthenticateFailures(t *testing.T) {
	a := NewJWTAuthenticator(testSecret)

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	noSubject := validClaims()
	noSubject.Subject = ""

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"empty bearer", "Bearer "},
		{"garbage token", "Bearer not.a.jwt"},
		{"wrong secret", "Bearer " + signToken(t, []byte("other-secret"), validClaims())},
		{"expired token", "Bearer " + signToken(t, testSecret, expired)},
		{"missing subject", "Bearer " + signToken(t, testSecret, noSubject)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/mcp", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			assert.Nil(t, a.Authenticate(r))
		})
	}
}

func TestAuthenticateUnknownTier(t *testing.T) {
	a := NewJWTAuthenticator(testSecret)

	claims := validClaims()
	claims.Tier = "platinum"

	r := httptest.NewRequest("POST", "/mcp", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, claims))

	user := a.Authenticate(r)
	require.NotNil(t, user)
	assert.Equal(t, tier.Unknown, user.Tier, "unrecognized tier strings rank below free")
}
