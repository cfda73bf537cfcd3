package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultTokenTTL = 24 * time.Hour
	issuer          = "panoptes"
)

var (
	ErrMissingSecret    = errors.New("jwt secret is not configured")
	ErrMissingPrincipal = errors.New("principal id is required")
	ErrInvalidToken     = errors.New("invalid token")
)

type JWTConfig struct {
	Secret   string        `mapstructure:"jwt_secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// Claims identifies the principal whose Plume credentials a request acts on.
type Claims struct {
	PrincipalID string `json:"principal_id"`
	jwt.RegisteredClaims
}

func GenerateToken(cfg JWTConfig, principalID string) (string, time.Time, error) {
	if cfg.Secret == "" {
		return "", time.Time{}, ErrMissingSecret
	}
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return "", time.Time{}, ErrMissingPrincipal
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		PrincipalID: principalID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func ValidateToken(secret, tokenString string) (*Claims, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.PrincipalID == "" || claims.PrincipalID != claims.Subject {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
