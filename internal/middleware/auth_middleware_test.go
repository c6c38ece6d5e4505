package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSessionSecret = "test-session-secret-for-middleware"
	testCookieName    = "session"
)

type stubRevocations struct {
	revoked map[string]bool
	err     error
}

func (s *stubRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return s.revoked[tokenID], s.err
}

func setupMiddlewareTest(revocations RevocationChecker) (*gin.Engine, *AuthMiddleware) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	middleware := NewAuthMiddleware(testSessionSecret, testCookieName, revocations)
	return router, middleware
}

func generateTestToken(t *testing.T, id uint, email, kind string) (string, *util.SessionClaims) {
	token, claims, err := util.GenerateSessionToken(id, "Tester", email, kind, testSessionSecret, 15*time.Minute)
	require.NoError(t, err)
	return token, claims
}

func identityHandler(c *gin.Context) {
	identity, _ := GetIdentity(c)
	c.JSON(http.StatusOK, gin.H{
		"id":   identity.ID,
		"kind": identity.Kind,
	})
}

func TestAuthMiddleware_Authenticate_Bearer(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest(nil)
	token, _ := generateTestToken(t, 7, "test@example.com", util.KindUser)

	router.GET("/test", authMiddleware.Authenticate(), identityHandler)

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":7,"kind":"user"}`, w.Body.String())
}

func TestAuthMiddleware_Authenticate_Cookie(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest(nil)
	token, _ := generateTestToken(t, 3, "staff@example.com", util.KindEmployee)

	router.GET("/test", authMiddleware.Authenticate(), identityHandler)

	req := httptest.NewRequest("GET", "/test", nil)
	req.AddCookie(&http.Cookie{Name: testCookieName, Value: token})
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":3,"kind":"employee"}`, w.Body.String())
}

func TestAuthMiddleware_Authenticate_QueryToken(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest(nil)
	token, _ := generateTestToken(t, 3, "staff@example.com", util.KindEmployee)

	router.GET("/ws", authMiddleware.Authenticate(), identityHandler)

	req := httptest.NewRequest("GET", "/ws?token="+token, nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_Authenticate_NoSession(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest(nil)

	router.GET("/test", authMiddleware.Authenticate(), identityHandler)

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_UNAUTHORIZED")
}

func TestAuthMiddleware_Authenticate_InvalidFormat(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest(nil)

	router.GET("/test", authMiddleware.Authenticate(), identityHandler)

	tests := []struct {
		name   string
		header string
	}{
		{
			name:   "Missing Bearer prefix",
			header: "invalid-token",
		},
		{
			name:   "Wrong prefix",
			header: "Basic token123",
		},
		{
			name:   "Empty token",
			header: "Bearer ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", tt.header)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuthMiddleware_Authenticate_InvalidToken(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest(nil)

	router.GET("/test", authMiddleware.Authenticate(), identityHandler)

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer invalid.jwt.token")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_TOKEN_INVALID")
}

func TestAuthMiddleware_Authenticate_Revoked(t *testing.T) {
	token, claims := generateTestToken(t, 7, "test@example.com", util.KindUser)
	router, authMiddleware := setupMiddlewareTest(&stubRevocations{
		revoked: map[string]bool{claims.ID: true},
	})

	router.GET("/test", authMiddleware.Authenticate(), identityHandler)

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_TOKEN_REVOKED")
}

func TestAuthMiddleware_Authenticate_RevocationStoreDown(t *testing.T) {
	token, _ := generateTestToken(t, 7, "test@example.com", util.KindUser)
	router, authMiddleware := setupMiddlewareTest(&stubRevocations{err: errors.New("connection refused")})

	router.GET("/test", authMiddleware.Authenticate(), identityHandler)

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_OptionalAuthenticate(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest(nil)
	token, _ := generateTestToken(t, 7, "test@example.com", util.KindUser)

	router.GET("/test", authMiddleware.OptionalAuthenticate(), func(c *gin.Context) {
		_, ok := GetIdentity(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok})
	})

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "Guest", header: "", want: `{"authenticated":false}`},
		{name: "Garbage token", header: "Bearer nope", want: `{"authenticated":false}`},
		{name: "Valid session", header: "Bearer " + token, want: `{"authenticated":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, tt.want, w.Body.String())
		})
	}
}

func TestAuthMiddleware_RequireEmployee(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest(nil)

	router.GET("/admin",
		authMiddleware.Authenticate(),
		authMiddleware.RequireEmployee(),
		func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "employee access granted"})
		},
	)

	tests := []struct {
		name           string
		kind           string
		expectedStatus int
	}{
		{
			name:           "Employee session",
			kind:           util.KindEmployee,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Shopper session",
			kind:           util.KindUser,
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, _ := generateTestToken(t, 1, "test@example.com", tt.kind)

			req := httptest.NewRequest("GET", "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestAuthMiddleware_RequireUser(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest(nil)
	token, _ := generateTestToken(t, 1, "staff@example.com", util.KindEmployee)

	router.GET("/mine", authMiddleware.Authenticate(), authMiddleware.RequireUser(), identityHandler)

	req := httptest.NewRequest("GET", "/mine", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, exists := GetIdentity(c)
	assert.False(t, exists)

	_, claims := generateTestToken(t, 42, "test@example.com", util.KindUser)
	setIdentity(c, claims)

	identity, exists := GetIdentity(c)
	assert.True(t, exists)
	assert.Equal(t, uint(42), identity.ID)
	assert.Equal(t, "test@example.com", identity.Email)
	assert.True(t, identity.IsUser())

	stored, ok := GetSessionClaims(c)
	assert.True(t, ok)
	assert.Equal(t, claims.ID, stored.ID)
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(LoggingMiddleware())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
	assert.Len(t, w.Body.String(), 36)
	assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "upstream-id", w.Body.String())
}
