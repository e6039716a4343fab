// internal/middleware/auth.go
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Moderation token expiration time - 24 hours
const tokenExpiration = 24 * time.Hour

// AdminClaims is the JWT payload for a moderation token.
type AdminClaims struct {
	ClientID string `json:"client_id"`
	jwt.RegisteredClaims
}

// AdminAuth issues and validates moderation tokens. Client ids on the
// allow-list resolve as admins; everyone else must present an admin key
// matching the configured bcrypt hash to obtain a token.
type AdminAuth struct {
	secret  []byte
	keyHash string
}

func NewAdminAuth(secret, keyHash string) *AdminAuth {
	return &AdminAuth{secret: []byte(secret), keyHash: keyHash}
}

// VerifyKey compares the presented admin key against the configured
// bcrypt hash. An empty configured hash disables key-based login.
func (a *AdminAuth) VerifyKey(key string) error {
	if a.keyHash == "" {
		return errors.New("admin key login is not configured")
	}
	return bcrypt.CompareHashAndPassword([]byte(a.keyHash), []byte(key))
}

// GenerateToken creates a new moderation token for the given client id
func (a *AdminAuth) GenerateToken(clientID string) (string, error) {
	expirationTime := time.Now().Add(tokenExpiration)

	claims := &AdminClaims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "marker-map-api",
			Subject:   clientID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ValidateToken validates the provided moderation token
func (a *AdminAuth) ValidateToken(tokenString string) (*AdminClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&AdminClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return a.secret, nil
		},
	)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AdminClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// TokenFromRequest extracts a bearer token from the Authorization
// header, returning the empty string when absent.
func TokenFromRequest(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(authHeader, "Bearer ")
}
