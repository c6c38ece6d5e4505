package router

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Only routes that never reach a controller are exercised here; controller routes are
// covered in the controller package.
func setupRouter(t *testing.T, storageCfg config.StorageConfig) *gin.Engine {
	cfg := &config.Config{
		Server:  config.ServerConfig{GinMode: gin.TestMode},
		CORS:    config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		Storage: storageCfg,
	}
	auth := middleware.NewAuthMiddleware("router-test-secret", "session", nil)
	return NewRouter(nil, nil, nil, nil, nil, nil, auth, cfg).Setup()
}

func TestRouter_Health(t *testing.T) {
	router := setupRouter(t, config.StorageConfig{Driver: "s3"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_Metrics(t *testing.T) {
	router := setupRouter(t, config.StorageConfig{Driver: "s3"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "storefront_http_requests_total")
}

func TestRouter_CORS(t *testing.T) {
	router := setupRouter(t, config.StorageConfig{Driver: "s3"})

	tests := []struct {
		name          string
		origin        string
		expectAllowed bool
	}{
		{name: "Listed origin", origin: "http://localhost:5173", expectAllowed: true},
		{name: "Unlisted origin", origin: "http://evil.example.com", expectAllowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("OPTIONS", "/api/cart/add", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", "POST")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if tt.expectAllowed {
				assert.Equal(t, http.StatusNoContent, w.Code)
				assert.Equal(t, tt.origin, w.Header().Get("Access-Control-Allow-Origin"))
				assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
			} else {
				assert.Equal(t, http.StatusForbidden, w.Code)
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestRouter_ServesLocalUploads(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "receipts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "receipts", "r.txt"), []byte("receipt"), 0o644))

	router := setupRouter(t, config.StorageConfig{Driver: "local", LocalRoot: root, PublicURL: "/uploads"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/uploads/receipts/r.txt", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "receipt", w.Body.String())
}

func TestRouter_ProtectedRoutesRequireSession(t *testing.T) {
	router := setupRouter(t, config.StorageConfig{Driver: "s3"})

	for _, path := range []string{"/api/cart/getcart/1", "/api/checkout/mine", "/api/product"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}
