// Package auth issues and verifies the HS256 session tokens and hashes
// passwords with bcrypt.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/shashiranjanraj/panaya/config"
)

const (
	issuer     = "panaya"
	accessTTL  = 24 * time.Hour
	refreshTTL = 7 * 24 * time.Hour
)

var ErrInvalidToken = errors.New("auth: invalid token")

// Claims is the token payload.
type Claims struct {
	UserID  uint   `json:"user_id"`
	Role    string `json:"role"`
	Refresh bool   `json:"refresh,omitempty"`
	jwt.RegisteredClaims
}

func secret() []byte {
	return []byte(config.JWTSecret())
}

func sign(userID uint, role string, ttl time.Duration, refresh bool) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:  userID,
		Role:    role,
		Refresh: refresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret())
}

// GenerateToken creates an access token valid for 24h.
func GenerateToken(userID uint, role string) (string, error) {
	return sign(userID, role, accessTTL, false)
}

// GenerateRefreshToken creates a 7 day token accepted only by Refresh.
func GenerateRefreshToken(userID uint, role string) (string, error) {
	return sign(userID, role, refreshTTL, true)
}

// ValidateToken parses an access token. Refresh tokens are rejected.
func ValidateToken(t string) (*Claims, error) {
	c, err := parse(t)
	if err != nil {
		return nil, err
	}
	if c.Refresh {
		return nil, ErrInvalidToken
	}
	return c, nil
}

// Refresh exchanges a refresh token for a new access token.
func Refresh(t string) (string, error) {
	c, err := parse(t)
	if err != nil {
		return "", err
	}
	if !c.Refresh {
		return "", ErrInvalidToken
	}
	return GenerateToken(c.UserID, c.Role)
}

func parse(t string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(t, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		return secret(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

type ctxKey struct{}

// WithClaims stores verified claims in ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the claims stored by the auth middleware.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Claims)
	return c, ok && c != nil
}
