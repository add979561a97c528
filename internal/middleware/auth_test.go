package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"design-lab-backend/internal/config"
	"design-lab-backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing-must-be-long-enough"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func authRouter(handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{SupabaseJWTSecret: testSecret}

	router := gin.New()
	router.Use(middleware.AuthMiddleware(cfg))
	router.GET("/test", handler)
	return router
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func doAuth(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", "/test", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	w := doAuth(authRouter(okHandler), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing authorization header")
}

func TestAuthMiddleware_BadHeaderFormat(t *testing.T) {
	w := doAuth(authRouter(okHandler), "Token abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	w := doAuth(authRouter(okHandler), "Bearer invalid-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid token format")
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": uuid.NewString()}).
		SignedString([]byte("another-secret"))
	require.NoError(t, err)

	w := doAuth(authRouter(okHandler), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "signature is invalid")
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub": uuid.NewString(),
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	w := doAuth(authRouter(okHandler), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "expired")
}

func TestAuthMiddleware_MissingSubject(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"role": "authenticated"})

	w := doAuth(authRouter(okHandler), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	userID := uuid.New()
	token := signToken(t, jwt.MapClaims{"sub": userID.String()})

	router := authRouter(func(c *gin.Context) {
		raw, exists := c.Get(middleware.UserIDKey)
		assert.True(t, exists)
		assert.Equal(t, userID.String(), raw)

		id, ok := middleware.CurrentUserID(c)
		assert.True(t, ok)
		assert.Equal(t, userID, id)
		okHandler(c)
	})

	w := doAuth(router, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCurrentUserID_RejectsNonUUIDSubject(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"sub": "user-123"})

	router := authRouter(func(c *gin.Context) {
		_, ok := middleware.CurrentUserID(c)
		assert.False(t, ok)
		okHandler(c)
	})

	w := doAuth(router, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
}
