package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	cfg := JWTConfig{Secret: "test-secret", TokenTTL: time.Hour}

	token, expiresAt, err := GenerateToken(cfg, " 42 ")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 2*time.Second)

	claims, err := ValidateToken(cfg.Secret, token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.PrincipalID)
	assert.Equal(t, "42", claims.Subject)
}

func TestGenerateTokenDefaultTTL(t *testing.T) {
	_, expiresAt, err := GenerateToken(JWTConfig{Secret: "s"}, "42")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(DefaultTokenTTL), expiresAt, 2*time.Second)
}

func TestGenerateTokenErrors(t *testing.T) {
	_, _, err := GenerateToken(JWTConfig{}, "42")
	assert.ErrorIs(t, err, ErrMissingSecret)

	_, _, err = GenerateToken(JWTConfig{Secret: "s"}, "  ")
	assert.ErrorIs(t, err, ErrMissingPrincipal)
}

func TestValidateTokenRejects(t *testing.T) {
	cfg := JWTConfig{Secret: "test-secret", TokenTTL: time.Hour}
	good, _, err := GenerateToken(cfg, "42")
	require.NoError(t, err)

	expiredClaims := Claims{
		PrincipalID: "42",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, expiredClaims).SignedString([]byte(cfg.Secret))
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, expiredClaims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		secret string
		token  string
	}{
		{"wrong secret", "other", good},
		{"expired", cfg.Secret, expired},
		{"garbage", cfg.Secret, "not-a-jwt"},
		{"alg none", cfg.Secret, none},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateToken(tt.secret, tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err = ValidateToken("", good)
	assert.ErrorIs(t, err, ErrMissingSecret)
}
