package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/internal/storage"
	ws "github.com/ikkim/storefront-backend/internal/websocket"
	"github.com/ikkim/storefront-backend/pkg/util"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testSessionSecret = "test-session-secret"
	testCookieName    = "session"
)

type testServer struct {
	db        *gorm.DB
	router    *gin.Engine
	hub       *ws.Hub
	auth      service.AuthService
	checkouts service.CheckoutService
	feedback  service.FeedbackService
}

// setupControllerTest wires every controller onto a router laid out like the production one.
func setupControllerTest(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	userRepo := repository.NewUserRepository(testDB)
	employeeRepo := repository.NewEmployeeRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)
	checkoutRepo := repository.NewCheckoutRepository(testDB)
	feedbackRepo := repository.NewFeedbackRepository(testDB)

	files := storage.NewLocalStorage(t.TempDir(), "/uploads")
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

	authService := service.NewAuthService(userRepo, employeeRepo, nil, testSessionSecret, time.Hour)
	productService := service.NewProductService(productRepo)
	cartService := service.NewCartService(cartRepo, productRepo)
	checkoutService := service.NewCheckoutService(checkoutRepo, productRepo, cartService, files, hub,
		service.CheckoutOptions{StrictTransitions: true})
	feedbackService := service.NewFeedbackService(feedbackRepo, checkoutRepo, userRepo, checkoutService, nil)
	reportService := service.NewReportService(checkoutRepo, files)

	authCtrl := NewAuthController(authService, SessionCookie{Name: testCookieName, MaxAge: time.Hour})
	productCtrl := NewProductController(productService)
	cartCtrl := NewCartController(cartService)
	checkoutCtrl := NewCheckoutController(checkoutService, reportService, hub, []string{"http://localhost:5173"})
	feedbackCtrl := NewFeedbackController(feedbackService)
	uploadCtrl := NewUploadController(files)

	auth := middleware.NewAuthMiddleware(testSessionSecret, testCookieName, nil)
	authenticated := auth.Authenticate()
	employeeOnly := auth.RequireEmployee()
	shopperOnly := auth.RequireUser()

	router := gin.New()
	api := router.Group("/api")

	users := api.Group("/users")
	users.POST("/signup", authCtrl.SignUp)
	users.POST("/signin", authCtrl.SignIn)
	users.POST("/signout", auth.OptionalAuthenticate(), authCtrl.SignOut)
	users.GET("/me", authenticated, authCtrl.GetMe)
	users.GET("/user/:id", authenticated, authCtrl.GetUserByID)
	api.POST("/user/signin", authCtrl.SignIn)

	employees := api.Group("/employee")
	employees.POST("/login", authCtrl.EmployeeLogin)
	employees.POST("/logout", auth.OptionalAuthenticate(), authCtrl.SignOut)
	employees.POST("/add", authenticated, employeeOnly, authCtrl.AddEmployee)

	products := api.Group("/product")
	products.GET("", authenticated, employeeOnly, productCtrl.GetAllProducts)
	products.GET("/active", productCtrl.GetActiveProducts)
	products.GET("/:id", productCtrl.GetProductByID)
	products.POST("", authenticated, employeeOnly, productCtrl.CreateProduct)
	products.POST("/images", authenticated, employeeOnly, uploadCtrl.UploadProductImage)
	products.PUT("/:id", authenticated, employeeOnly, productCtrl.UpdateProduct)
	products.PATCH("/status/:id", authenticated, employeeOnly, productCtrl.UpdateProductStatus)
	products.DELETE("/delete/:id", authenticated, employeeOnly, productCtrl.DeleteProduct)

	carts := api.Group("/cart", authenticated)
	carts.GET("/getcart/:userId", cartCtrl.GetCart)
	carts.POST("/add", cartCtrl.AddToCart)
	carts.PUT("/:userId/:productId", cartCtrl.UpdateCartItem)
	carts.DELETE("/:userId/:productId", cartCtrl.RemoveFromCart)

	checkouts := api.Group("/checkout", authenticated)
	checkouts.POST("", shopperOnly, checkoutCtrl.CreateCheckout)
	checkouts.POST("/checkout", shopperOnly, checkoutCtrl.CreateCheckout)
	checkouts.GET("", employeeOnly, checkoutCtrl.GetAllCheckouts)
	checkouts.GET("/mine", shopperOnly, checkoutCtrl.GetMyCheckouts)
	checkouts.GET("/stats", employeeOnly, checkoutCtrl.GetCheckoutStats)
	checkouts.GET("/export", employeeOnly, checkoutCtrl.ExportCheckouts)
	checkouts.GET("/events", employeeOnly, checkoutCtrl.Events)
	checkouts.GET("/:id", checkoutCtrl.GetCheckoutByID)
	checkouts.PATCH("/:id/status", employeeOnly, checkoutCtrl.UpdateCheckoutStatus)
	checkouts.DELETE("/:id", employeeOnly, checkoutCtrl.DeleteCheckout)

	feedback := api.Group("/feedback")
	feedback.POST("/add/:orderId", auth.OptionalAuthenticate(), feedbackCtrl.SubmitOrderFeedback)
	feedback.GET("/order/:orderId", feedbackCtrl.GetOrderFeedback)
	feedback.PATCH("/update/:orderId", authenticated, feedbackCtrl.UpdateOrderFeedback)
	feedback.DELETE("/order/:orderId", authenticated, feedbackCtrl.DeleteOrderFeedback)
	feedback.DELETE("/delete/:id", authenticated, feedbackCtrl.DeleteFeedback)
	feedback.GET("", authenticated, employeeOnly, feedbackCtrl.GetAllFeedback)
	feedback.DELETE("/:id", authenticated, feedbackCtrl.ModerateFeedback)
	feedback.GET("/product/:productId", feedbackCtrl.GetProductFeedback)
	feedback.GET("/user/:userId", feedbackCtrl.GetUserFeedback)
	feedback.POST("/add", authenticated, feedbackCtrl.AddFeedback)
	feedback.GET("/all", feedbackCtrl.ListFeedback)
	feedback.GET("/average", feedbackCtrl.GetAverageRating)
	feedback.GET("/:id", feedbackCtrl.GetFeedbackByID)
	feedback.PUT("/edit/:id", authenticated, feedbackCtrl.EditFeedback)

	return &testServer{
		db:        testDB,
		router:    router,
		hub:       hub,
		auth:      authService,
		checkouts: checkoutService,
		feedback:  feedbackService,
	}
}

func (s *testServer) createUser(t *testing.T, name, email string) *model.User {
	user := &model.User{Name: name, Email: email, PasswordHash: "hash"}
	require.NoError(t, s.db.Create(user).Error)
	return user
}

func (s *testServer) createProduct(t *testing.T, name string, price float64) *model.Product {
	product := &model.Product{Name: name, Price: price, Quantity: 50, Status: model.ProductStatusActive}
	require.NoError(t, s.db.Create(product).Error)
	return product
}

func (s *testServer) createCheckout(t *testing.T, userID uint, status model.CheckoutStatus, items ...model.CheckoutItem) *model.Checkout {
	checkout := &model.Checkout{
		UserID:      userID,
		Address:     "1 Main St",
		Email:       "buyer@example.com",
		PhoneNumber: "555-0100",
		TotalPrice:  10,
		Status:      status,
		Items:       items,
	}
	require.NoError(t, s.db.Create(checkout).Error)
	return checkout
}

func userToken(t *testing.T, user *model.User) string {
	token, _, err := util.GenerateSessionToken(user.ID, user.Name, user.Email, util.KindUser, testSessionSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func employeeToken(t *testing.T, id uint) string {
	token, _, err := util.GenerateSessionToken(id, "staff@example.com", "staff@example.com", util.KindEmployee, testSessionSecret, time.Hour)
	require.NoError(t, err)
	return token
}

// do sends a JSON request; body may be nil and token may be empty.
func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]interface{} {
	var response []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func intPtr(v int) *int {
	return &v
}

func assertStatus(t *testing.T, want int, w *httptest.ResponseRecorder) {
	t.Helper()
	require.Equalf(t, want, w.Code, "body: %s", w.Body.String())
}
