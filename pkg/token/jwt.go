// Package token verifies the JSON Web Tokens issued by the auth provider.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that fail parsing or validation.
var ErrInvalidToken = errors.New("invalid token")

// JWTManager verifies (and, for tests and tooling, issues) HS256 tokens.
type JWTManager struct {
	secretKey []byte
}

// CustomClaims carries the claims the auth provider puts in its access tokens.
// The user id is the standard subject claim.
type CustomClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject of the token.
func (c *CustomClaims) UserID() string {
	return c.Subject
}

// NewJWTManager creates a manager for the shared auth provider secret.
func NewJWTManager(secret string) *JWTManager {
	return &JWTManager{secretKey: []byte(secret)}
}

// GenerateToken issues a token for userID valid for ttl.
func (m *JWTManager) GenerateToken(userID, email, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := CustomClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
}

// VerifyToken parses tokenString and returns its claims when the signature
// and time claims are valid and a subject is present.
func (m *JWTManager) VerifyToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
