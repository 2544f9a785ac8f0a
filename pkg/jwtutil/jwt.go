package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"access-service/pkg/config"

	"github.com/golang-jwt/jwt/v4"
)

// TokenKind distinguishes access tokens from refresh tokens.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// UserClaims represents the JWT claims for user authentication
type UserClaims struct {
	UserID            uint      `json:"user_id"`
	TenantID          uint      `json:"tenant_id"`
	Email             string    `json:"email"`
	UserType          string    `json:"user_type"`
	IsAdmin           bool      `json:"is_admin"`
	ActiveWorkspaceID *uint     `json:"active_workspace_id,omitempty"`
	Kind              TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// JWTUtil signs and verifies access and refresh tokens.
type JWTUtil struct {
	config *config.JWTConfig
}

// New creates a new JWT utility with the given configuration
func New(cfg *config.JWTConfig) *JWTUtil {
	return &JWTUtil{config: cfg}
}

// GenerateAccessToken creates a short-lived access token.
func (j *JWTUtil) GenerateAccessToken(claims UserClaims) (string, error) {
	return j.generate(claims, KindAccess, j.config.AccessTTL)
}

// GenerateRefreshToken creates a long-lived refresh token carrying the same
// claims. The caller is responsible for persisting it so it can be revoked.
func (j *JWTUtil) GenerateRefreshToken(claims UserClaims) (string, error) {
	return j.generate(claims, KindRefresh, j.config.RefreshTTL)
}

func (j *JWTUtil) generate(claims UserClaims, kind TokenKind, ttl time.Duration) (string, error) {
	if j.config == nil {
		return "", errors.New("JWT configuration not provided")
	}

	claims.Kind = kind
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.config.SigningKey))
}

// ValidateToken validates and parses a token of the expected kind.
func (j *JWTUtil) ValidateToken(tokenString string, kind TokenKind) (*UserClaims, error) {
	if j.config == nil {
		return nil, errors.New("JWT configuration not provided")
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&UserClaims{},
		func(token *jwt.Token) (interface{}, error) {
			// Validate the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(j.config.SigningKey), nil
		},
	)

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Kind != kind {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
