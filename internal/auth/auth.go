// Package auth implements the authentication boundary for the JSON-RPC
// endpoint. The dispatch core only depends on the Authenticator
// interface; token format and verification live here.
package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/calbridge/calbridge/internal/tier"
)

// UserContext identifies the authenticated caller for the duration of a
// single request. It is never persisted.
type UserContext struct {
	UserID string
	Email  string
	Tier   tier.Tier
}

// Authenticator resolves an HTTP request to a user context. A nil result
// means the request carries no valid credential; implementations must not
// distinguish missing from invalid credentials in their output.
type Authenticator interface {
	Authenticate(r *http.Request) *UserContext
}

// Claims is the JWT claim set calbridge issues and accepts. Subject (the
// registered claim) carries the user id.
type Claims struct {
	Email string `json:"email"`
	Tier  string `json:"tier"`
	jwt.RegisteredClaims
}

// JWTAuthenticator validates HMAC-signed bearer tokens from the
// Authorization header.
type JWTAuthenticator struct {
	secret []byte
}

// NewJWTAuthenticator creates an authenticator verifying HS256 tokens
// signed with the given secret.
func NewJWTAuthenticator(secret []byte) *JWTAuthenticator {
	return &JWTAuthenticator{secret: secret}
}

// Authenticate extracts and verifies the bearer token. Any failure —
// missing header, malformed token, bad signature, expiry — yields nil.
func (a *JWTAuthenticator) Authenticate(r *http.Request) *UserContext {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil
	}
	tokenStr, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenStr == "" {
		return nil
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil
	}
	if claims.Subject == "" {
		return nil
	}

	return &UserContext{
		UserID: claims.Subject,
		Email:  claims.Email,
		Tier:   tier.Parse(claims.Tier),
	}
}
