package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/EternisAI/panoptes/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "middleware-secret"

func setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/me", JWTAuth(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"principal_id": PrincipalID(c)})
	})
	r.GET("/admin", APIKeyAuth("admin-key"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/closed", APIKeyAuth(""), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestJWTAuth(t *testing.T) {
	r := setupRouter()
	token, _, err := auth.GenerateToken(auth.JWTConfig{Secret: testSecret, TokenTTL: time.Minute}, "42")
	require.NoError(t, err)
	otherToken, _, err := auth.GenerateToken(auth.JWTConfig{Secret: "other", TokenTTL: time.Minute}, "42")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + otherToken, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Contains(t, w.Body.String(), `"principal_id":"42"`)
			}
		})
	}
}

func TestAPIKeyAuth(t *testing.T) {
	r := setupRouter()

	tests := []struct {
		name string
		path string
		key  string
		want int
	}{
		{"valid", "/admin", "admin-key", http.StatusNoContent},
		{"missing", "/admin", "", http.StatusUnauthorized},
		{"wrong", "/admin", "nope", http.StatusUnauthorized},
		{"not configured", "/closed", "anything", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", tt.path, nil)
			if tt.key != "" {
				req.Header.Set(apiKeyHeader, tt.key)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	r := setupRouter()

	req, _ := http.NewRequest("GET", "/admin", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	_, err := uuid.Parse(w.Header().Get(requestIDHeader))
	assert.NoError(t, err)

	given := uuid.NewString()
	req, _ = http.NewRequest("GET", "/admin", nil)
	req.Header.Set(requestIDHeader, given)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, given, w.Header().Get(requestIDHeader))
}
