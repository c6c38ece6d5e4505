package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/controller"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/internal/router"
	"github.com/ikkim/storefront-backend/internal/scheduler"
	"github.com/ikkim/storefront-backend/internal/storage"
	ws "github.com/ikkim/storefront-backend/internal/websocket"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/redis"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	logFormat := "console"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	if cfg.Server.Environment == "production" {
		logFormat = "json"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: logFormat == "console",
	})

	logger.Info("Starting Storefront Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Redis is optional: without it sessions cannot be revoked and ratings are not cached
	var (
		revoker     service.SessionRevoker
		revocations middleware.RevocationChecker
		ratingCache service.RatingCache
	)
	if cfg.Redis.Enabled() {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Fatal("Failed to initialize Redis", err)
		}
		defer func() {
			if err := redis.Close(); err != nil {
				logger.Error("Failed to close Redis connection", err)
			}
		}()
		sessions := redis.NewSessionStore(redis.GetClient())
		revoker = sessions
		revocations = sessions
		ratingCache = redis.NewCache(redis.GetClient())
	} else {
		logger.Warn("Redis disabled; sign-out only clears the cookie and ratings are not cached")
	}

	files, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to initialize storage", err)
	}

	hub := ws.NewHub()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	employeeRepo := repository.NewEmployeeRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())
	cartRepo := repository.NewCartRepository(db.GetDB())
	checkoutRepo := repository.NewCheckoutRepository(db.GetDB())
	feedbackRepo := repository.NewFeedbackRepository(db.GetDB())

	// Initialize services
	authService := service.NewAuthService(
		userRepo,
		employeeRepo,
		revoker,
		cfg.Session.Secret,
		cfg.Session.Expiry,
	)
	productService := service.NewProductService(productRepo)
	cartService := service.NewCartService(cartRepo, productRepo)
	checkoutService := service.NewCheckoutService(checkoutRepo, productRepo, cartService, files, hub, service.CheckoutOptions{
		ClearCartOnCheckout: cfg.Order.ClearCartOnCheckout,
		StrictTransitions:   cfg.Order.StrictTransitions,
	})
	feedbackService := service.NewFeedbackService(feedbackRepo, checkoutRepo, userRepo, checkoutService, ratingCache)
	reportService := service.NewReportService(checkoutRepo, files)

	// Initialize controllers
	authController := controller.NewAuthController(authService, controller.SessionCookie{
		Name:   cfg.Session.CookieName,
		MaxAge: cfg.Session.Expiry,
		Secure: cfg.Session.Secure,
	})
	productController := controller.NewProductController(productService)
	cartController := controller.NewCartController(cartService)
	checkoutController := controller.NewCheckoutController(checkoutService, reportService, hub, cfg.CORS.AllowedOrigins)
	feedbackController := controller.NewFeedbackController(feedbackService)
	uploadController := controller.NewUploadController(files)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.Session.Secret, cfg.Session.CookieName, revocations)

	// Setup router
	r := router.NewRouter(
		authController,
		productController,
		cartController,
		checkoutController,
		feedbackController,
		uploadController,
		authMiddleware,
		cfg,
	)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": server.Addr,
			"pid":     os.Getpid(),
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Report.Cron != "" {
		reports := scheduler.NewReportScheduler(cfg.Report.Cron, reportService)
		if err := reports.Start(); err != nil {
			logger.Fatal("Failed to start report scheduler", err)
		}
		g.Go(func() error {
			<-gctx.Done()
			reports.Stop()
			return nil
		})
	}

	// Wait for a signal, or for any component to fail, then shut the server down
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server stopped with error", err)
		return
	}
	logger.Info("Server stopped successfully")
}
