package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/controller"
	"github.com/ikkim/storefront-backend/internal/metrics"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

// multipart forms above this size spill to temporary files
const maxMultipartMemory = 16 << 20

type Router struct {
	authController     *controller.AuthController
	productController  *controller.ProductController
	cartController     *controller.CartController
	checkoutController *controller.CheckoutController
	feedbackController *controller.FeedbackController
	uploadController   *controller.UploadController
	authMiddleware     *middleware.AuthMiddleware
	config             *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	productController *controller.ProductController,
	cartController *controller.CartController,
	checkoutController *controller.CheckoutController,
	feedbackController *controller.FeedbackController,
	uploadController *controller.UploadController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:     authController,
		productController:  productController,
		cartController:     cartController,
		checkoutController: checkoutController,
		feedbackController: feedbackController,
		uploadController:   uploadController,
		authMiddleware:     authMiddleware,
		config:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()
	router.MaxMultipartMemory = maxMultipartMemory

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(metrics.Middleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Storefront API is running",
		})
	})
	router.GET("/metrics", metrics.Handler())

	// Uploaded receipts and product images when they live on local disk
	if isLocalDriver(r.config.Storage.Driver) && strings.HasPrefix(r.config.Storage.PublicURL, "/") {
		router.Static(r.config.Storage.PublicURL, r.config.Storage.LocalRoot)
	}

	authenticated := r.authMiddleware.Authenticate()
	employeeOnly := r.authMiddleware.RequireEmployee()
	shopperOnly := r.authMiddleware.RequireUser()

	api := router.Group("/api")
	{
		users := api.Group("/users")
		{
			users.POST("/signup", r.authController.SignUp)
			users.POST("/signin", r.authController.SignIn)
			users.POST("/signout", r.authMiddleware.OptionalAuthenticate(), r.authController.SignOut)
			users.GET("/me", authenticated, r.authController.GetMe)
			users.GET("/user/:id", authenticated, r.authController.GetUserByID)
		}

		// singular path used by older storefront builds
		api.POST("/user/signin", r.authController.SignIn)

		employees := api.Group("/employee")
		{
			employees.POST("/login", r.authController.EmployeeLogin)
			employees.POST("/logout", r.authMiddleware.OptionalAuthenticate(), r.authController.SignOut)
			employees.POST("/add", authenticated, employeeOnly, r.authController.AddEmployee)
		}

		products := api.Group("/product")
		{
			products.GET("/active", r.productController.GetActiveProducts)
			products.GET("/:id", r.productController.GetProductByID)

			products.GET("", authenticated, employeeOnly, r.productController.GetAllProducts)
			products.POST("", authenticated, employeeOnly, r.productController.CreateProduct)
			products.POST("/images", authenticated, employeeOnly, r.uploadController.UploadProductImage)
			products.PUT("/:id", authenticated, employeeOnly, r.productController.UpdateProduct)
			products.PATCH("/status/:id", authenticated, employeeOnly, r.productController.UpdateProductStatus)
			products.DELETE("/delete/:id", authenticated, employeeOnly, r.productController.DeleteProduct)
		}

		carts := api.Group("/cart", authenticated)
		{
			carts.GET("/getcart/:userId", r.cartController.GetCart)
			carts.POST("/add", r.cartController.AddToCart)
			carts.PUT("/:userId/:productId", r.cartController.UpdateCartItem)
			carts.DELETE("/:userId/:productId", r.cartController.RemoveFromCart)
		}

		checkouts := api.Group("/checkout", authenticated)
		{
			checkouts.POST("", shopperOnly, r.checkoutController.CreateCheckout)
			checkouts.POST("/checkout", shopperOnly, r.checkoutController.CreateCheckout)
			checkouts.GET("/mine", shopperOnly, r.checkoutController.GetMyCheckouts)
			checkouts.GET("/:id", r.checkoutController.GetCheckoutByID)

			checkouts.GET("", employeeOnly, r.checkoutController.GetAllCheckouts)
			checkouts.GET("/stats", employeeOnly, r.checkoutController.GetCheckoutStats)
			checkouts.GET("/export", employeeOnly, r.checkoutController.ExportCheckouts)
			checkouts.GET("/events", employeeOnly, r.checkoutController.Events)
			checkouts.PATCH("/:id/status", employeeOnly, r.checkoutController.UpdateCheckoutStatus)
			checkouts.DELETE("/:id", employeeOnly, r.checkoutController.DeleteCheckout)
		}

		feedback := api.Group("/feedback")
		{
			feedback.GET("/all", r.feedbackController.ListFeedback)
			feedback.GET("/average", r.feedbackController.GetAverageRating)
			feedback.GET("/order/:orderId", r.feedbackController.GetOrderFeedback)
			feedback.GET("/product/:productId", r.feedbackController.GetProductFeedback)
			feedback.GET("/user/:userId", r.feedbackController.GetUserFeedback)
			feedback.GET("/:id", r.feedbackController.GetFeedbackByID)

			// Order feedback may name its author in the body when no session is present
			feedback.POST("/add/:orderId", r.authMiddleware.OptionalAuthenticate(), r.feedbackController.SubmitOrderFeedback)
			feedback.PATCH("/update/:orderId", authenticated, r.feedbackController.UpdateOrderFeedback)
			feedback.DELETE("/order/:orderId", authenticated, r.feedbackController.DeleteOrderFeedback)

			feedback.POST("/add", authenticated, r.feedbackController.AddFeedback)
			feedback.PUT("/edit/:id", authenticated, r.feedbackController.EditFeedback)
			feedback.DELETE("/delete/:id", authenticated, r.feedbackController.DeleteFeedback)

			feedback.GET("", authenticated, employeeOnly, r.feedbackController.GetAllFeedback)
			feedback.DELETE("/:id", authenticated, r.feedbackController.ModerateFeedback)
		}
	}

	return router
}

// corsMiddleware echoes listed origins back so credentialed requests work; "*" admits any origin.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			for _, allowed := range allowedOrigins {
				if origin == allowed || allowed == "*" {
					return true
				}
			}
			return false
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept", "Authorization", "Cache-Control", "X-Requested-With", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func isLocalDriver(driver string) bool {
	return driver == "" || driver == "local"
}
