package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/controller"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/internal/router"
	"github.com/ikkim/storefront-backend/internal/storage"
	ws "github.com/ikkim/storefront-backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testSecret     = "integration-secret"
	testCookieName = "session"
)

// memorySessions stands in for the Redis session store.
type memorySessions struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func (m *memorySessions) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[tokenID] = true
	return nil
}

func (m *memorySessions) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoked[tokenID], nil
}

type TestServer struct {
	Router      *gin.Engine
	DB          *gorm.DB
	AuthService service.AuthService
}

func setupIntegrationTest(t *testing.T) *TestServer {
	gin.SetMode(gin.TestMode)

	// Setup database
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	cfg := &config.Config{
		Server:  config.ServerConfig{GinMode: gin.TestMode, Environment: "test"},
		Session: config.SessionConfig{Secret: testSecret, CookieName: testCookieName, Expiry: time.Hour},
		CORS:    config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		Storage: config.StorageConfig{Driver: "local", LocalRoot: t.TempDir(), PublicURL: "/uploads"},
		Order:   config.OrderConfig{ClearCartOnCheckout: true},
	}

	sessions := &memorySessions{revoked: make(map[string]bool)}
	files, err := storage.New(cfg.Storage)
	require.NoError(t, err)

	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Setup repositories
	userRepo := repository.NewUserRepository(testDB)
	employeeRepo := repository.NewEmployeeRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)
	checkoutRepo := repository.NewCheckoutRepository(testDB)
	feedbackRepo := repository.NewFeedbackRepository(testDB)

	// Setup services
	authService := service.NewAuthService(userRepo, employeeRepo, sessions, testSecret, time.Hour)
	productService := service.NewProductService(productRepo)
	cartService := service.NewCartService(cartRepo, productRepo)
	checkoutService := service.NewCheckoutService(checkoutRepo, productRepo, cartService, files, hub, service.CheckoutOptions{
		ClearCartOnCheckout: cfg.Order.ClearCartOnCheckout,
		StrictTransitions:   cfg.Order.StrictTransitions,
	})
	feedbackService := service.NewFeedbackService(feedbackRepo, checkoutRepo, userRepo, checkoutService, nil)
	reportService := service.NewReportService(checkoutRepo, files)

	// Setup router
	r := router.NewRouter(
		controller.NewAuthController(authService, controller.SessionCookie{Name: testCookieName, MaxAge: time.Hour}),
		controller.NewProductController(productService),
		controller.NewCartController(cartService),
		controller.NewCheckoutController(checkoutService, reportService, hub, cfg.CORS.AllowedOrigins),
		controller.NewFeedbackController(feedbackService),
		controller.NewUploadController(files),
		middleware.NewAuthMiddleware(testSecret, testCookieName, sessions),
		cfg,
	)

	return &TestServer{
		Router:      r.Setup(),
		DB:          testDB,
		AuthService: authService,
	}
}

// request sends body as JSON and carries the session cookie when one is given.
func (ts *TestServer) request(t *testing.T, method, path string, body interface{}, session *http.Cookie) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != nil {
		req.AddCookie(session)
	}

	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)
	return w
}

func sessionFrom(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == testCookieName && cookie.Value != "" {
			return cookie
		}
	}
	t.Fatalf("no session cookie in response: %s", w.Body.String())
	return nil
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func requireStatus(t *testing.T, want int, w *httptest.ResponseRecorder) {
	t.Helper()
	require.Equalf(t, want, w.Code, "body: %s", w.Body.String())
}

func (ts *TestServer) employeeSession(t *testing.T) *http.Cookie {
	_, err := ts.AuthService.AddEmployee(context.Background(), "staff@example.com", "password123")
	require.NoError(t, err)

	w := ts.request(t, "POST", "/api/employee/login", controller.LoginRequest{
		Email:    "staff@example.com",
		Password: "password123",
	}, nil)
	requireStatus(t, http.StatusOK, w)
	return sessionFrom(t, w)
}

func (ts *TestServer) createProduct(t *testing.T, staff *http.Cookie, name string, price float64) uint {
	w := ts.request(t, "POST", "/api/product", controller.ProductRequest{
		Name:     name,
		Price:    price,
		Quantity: 100,
	}, staff)
	requireStatus(t, http.StatusCreated, w)
	return uint(decodeBody(t, w)["product"].(map[string]interface{})["id"].(float64))
}

func TestCartJourney(t *testing.T) {
	ts := setupIntegrationTest(t)
	staff := ts.employeeSession(t)
	mugID := ts.createProduct(t, staff, "Mug", 10)

	t.Log("Step 1: Sign up")
	w := ts.request(t, "POST", "/api/users/signup", controller.SignUpRequest{
		Name:     "Test Buyer",
		Email:    "buyer@example.com",
		Password: "password123",
	}, nil)
	requireStatus(t, http.StatusCreated, w)
	shopper := sessionFrom(t, w)
	userID := uint(decodeBody(t, w)["user"].(map[string]interface{})["id"].(float64))

	t.Log("Step 2: Add two mugs")
	w = ts.request(t, "POST", "/api/cart/add", controller.AddToCartRequest{ProductID: mugID, Quantity: 2}, shopper)
	requireStatus(t, http.StatusOK, w)
	cart := decodeBody(t, w)["cart"].(map[string]interface{})
	assert.Equal(t, float64(20), cart["total_price"])

	t.Log("Step 3: Read the cart back")
	w = ts.request(t, "GET", fmt.Sprintf("/api/cart/getcart/%d", userID), nil, shopper)
	requireStatus(t, http.StatusOK, w)
	cart = decodeBody(t, w)["cart"].(map[string]interface{})
	assert.Equal(t, float64(20), cart["total_price"])
	assert.Len(t, cart["items"], 1)

	t.Log("Step 4: Remove the line, which drops the cart")
	w = ts.request(t, "DELETE", fmt.Sprintf("/api/cart/%d/%d", userID, mugID), nil, shopper)
	requireStatus(t, http.StatusOK, w)
	assert.Nil(t, decodeBody(t, w)["cart"])

	w = ts.request(t, "GET", fmt.Sprintf("/api/cart/getcart/%d", userID), nil, shopper)
	requireStatus(t, http.StatusOK, w)
	assert.JSONEq(t, `{"cart":null}`, w.Body.String())
}

func TestCheckoutToFeedbackJourney(t *testing.T) {
	ts := setupIntegrationTest(t)
	staff := ts.employeeSession(t)
	mugID := ts.createProduct(t, staff, "Mug", 10)
	plateID := ts.createProduct(t, staff, "Plate", 15)

	w := ts.request(t, "POST", "/api/users/signup", controller.SignUpRequest{
		Name:     "Test Buyer",
		Email:    "buyer@example.com",
		Password: "password123",
	}, nil)
	requireStatus(t, http.StatusCreated, w)
	shopper := sessionFrom(t, w)
	userID := uint(decodeBody(t, w)["user"].(map[string]interface{})["id"].(float64))

	w = ts.request(t, "POST", "/api/cart/add", controller.AddToCartRequest{ProductID: mugID, Quantity: 2}, shopper)
	requireStatus(t, http.StatusOK, w)

	t.Log("Step 1: Check out two lines")
	w = ts.request(t, "POST", "/api/checkout", controller.CheckoutRequest{
		Address:     "1 Main St",
		PhoneNumber: "555-0100",
		Email:       "buyer@example.com",
		Items: []service.CheckoutItemInput{
			{ProductID: mugID, Quantity: 2},
			{ProductID: plateID, Quantity: 1},
		},
		TotalPrice: 35,
	}, shopper)
	requireStatus(t, http.StatusCreated, w)
	checkout := decodeBody(t, w)["checkout"].(map[string]interface{})
	checkoutID := uint(checkout["id"].(float64))
	assert.Equal(t, string(model.CheckoutStatusPending), checkout["status"])
	assert.Equal(t, float64(35), checkout["total_price"])
	assert.Len(t, checkout["items"], 2)

	t.Log("Step 2: The cart is cleared after checkout")
	w = ts.request(t, "GET", fmt.Sprintf("/api/cart/getcart/%d", userID), nil, shopper)
	requireStatus(t, http.StatusOK, w)
	assert.JSONEq(t, `{"cart":null}`, w.Body.String())

	t.Log("Step 3: Feedback is refused before delivery")
	feedbackPath := fmt.Sprintf("/api/feedback/add/%d", checkoutID)
	w = ts.request(t, "POST", feedbackPath, controller.OrderFeedbackRequest{Feedback: "Too early"}, shopper)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	t.Log("Step 4: Staff marks the pending order delivered in one step")
	statusPath := fmt.Sprintf("/api/checkout/%d/status", checkoutID)
	w = ts.request(t, "PATCH", statusPath, controller.UpdateCheckoutStatusRequest{Status: model.CheckoutStatusDelivered}, staff)
	requireStatus(t, http.StatusOK, w)
	updated := decodeBody(t, w)["checkout"].(map[string]interface{})
	assert.Equal(t, string(model.CheckoutStatusDelivered), updated["status"])

	t.Log("Step 5: Leave feedback")
	rating := 4
	w = ts.request(t, "POST", feedbackPath, controller.OrderFeedbackRequest{Feedback: "Arrived safely", Rating: &rating}, shopper)
	requireStatus(t, http.StatusCreated, w)

	w = ts.request(t, "GET", fmt.Sprintf("/api/feedback/order/%d", checkoutID), nil, nil)
	requireStatus(t, http.StatusOK, w)
	feedback := decodeBody(t, w)
	assert.Equal(t, "Arrived safely", feedback["comment"])
	assert.Equal(t, float64(4), feedback["rating"])

	w = ts.request(t, "GET", fmt.Sprintf("/api/feedback/product/%d", plateID), nil, nil)
	requireStatus(t, http.StatusOK, w)

	w = ts.request(t, "GET", "/api/feedback/average", nil, nil)
	requireStatus(t, http.StatusOK, w)
	assert.JSONEq(t, `{"average_rating":4,"total_feedbacks":1}`, w.Body.String())

	t.Log("Step 6: Staff sees the order in the stats")
	w = ts.request(t, "GET", "/api/checkout/stats", nil, staff)
	requireStatus(t, http.StatusOK, w)
}

func TestSignOutRevokesSession(t *testing.T) {
	ts := setupIntegrationTest(t)

	w := ts.request(t, "POST", "/api/users/signup", controller.SignUpRequest{
		Name:     "Test Buyer",
		Email:    "buyer@example.com",
		Password: "password123",
	}, nil)
	requireStatus(t, http.StatusCreated, w)
	shopper := sessionFrom(t, w)

	w = ts.request(t, "GET", "/api/users/me", nil, shopper)
	requireStatus(t, http.StatusOK, w)

	w = ts.request(t, "POST", "/api/users/signout", nil, shopper)
	requireStatus(t, http.StatusOK, w)

	// A client that kept the old cookie is still refused
	w = ts.request(t, "GET", "/api/users/me", nil, shopper)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
