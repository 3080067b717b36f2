// Package security provides JWT token utilities
package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// RoleAdmin is the only role the admin endpoints accept.
const RoleAdmin = "admin"

var (
	ErrEmptySecret  = errors.New("JWT secret is not configured")
	ErrInvalidToken = errors.New("invalid token")
)

// ValidateJWT validates a HS256 token and returns its claims.
func ValidateJWT(tokenString, jwtSecret string) (jwt.MapClaims, error) {
	if jwtSecret == "" {
		return nil, ErrEmptySecret
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// GenerateAdminToken signs a token for the admin role, valid for ttl.
func GenerateAdminToken(jwtSecret string, ttl time.Duration) (string, error) {
	if jwtSecret == "" {
		return "", ErrEmptySecret
	}
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"role": RoleAdmin,
		"type": "admin_auth",
		"jti":  GenerateULID(),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// RoleFromClaims returns the role claim, or "" when absent.
func RoleFromClaims(claims jwt.MapClaims) string {
	role, _ := claims["role"].(string)
	return role
}
