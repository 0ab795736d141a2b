package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/recetteplus/recette-backend/config"
	"github.com/recetteplus/recette-backend/internal/app/controller"
	"github.com/recetteplus/recette-backend/internal/app/repository"
	"github.com/recetteplus/recette-backend/internal/app/service"
	"github.com/recetteplus/recette-backend/internal/cache"
	"github.com/recetteplus/recette-backend/internal/db"
	"github.com/recetteplus/recette-backend/internal/middleware"
	"github.com/recetteplus/recette-backend/internal/router"
	"github.com/recetteplus/recette-backend/internal/scheduler"
	"github.com/recetteplus/recette-backend/internal/storage"
	ws "github.com/recetteplus/recette-backend/internal/websocket"
	"github.com/recetteplus/recette-backend/pkg/logger"
	"github.com/recetteplus/recette-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	logger.Initialize(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		EnableColor: cfg.Log.Format == "console",
	})

	logger.Info("Starting Recette+ Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   cfg.Log.Level,
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

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	if cfg.Server.Environment == "development" {
		if err := db.Seed(); err != nil {
			logger.Warn("Failed to seed database", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	// Cart view cache: Redis when configured, otherwise every read is computed
	cartCache := service.NewNoopCartViewCache()
	if cfg.Redis.Enabled() {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Warn("Redis unavailable, cart view cache disabled", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			cartCache = cache.NewRedisCartViewCache(redis.GetClient(), cfg.Cart.ViewCacheTTL)
			defer redis.Close()
		}
	}

	// Proof-of-delivery uploads need a bucket and credentials
	var uploader storage.Uploader
	if cfg.S3.Bucket != "" && cfg.S3.AccessKeyID != "" {
		uploader = storage.NewS3Storage(
			cfg.S3.Region,
			cfg.S3.Bucket,
			cfg.S3.AccessKeyID,
			cfg.S3.SecretAccessKey,
			cfg.S3.BaseURL,
			cfg.S3.PresignExpiry,
		)
	} else {
		logger.Warn("S3 not configured, proof uploads disabled", nil)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())
	cartRepo := repository.NewCartRepository(db.GetDB())
	orderRepo := repository.NewOrderRepository(db.GetDB())
	trackingRepo := repository.NewTrackingRepository(db.GetDB())
	favoriteRepo := repository.NewFavoriteRepository(db.GetDB())

	// Initialize services
	cartService := service.NewCartService(cartRepo, productRepo, db.GetDB(), cartCache)
	orderService := service.NewOrderService(orderRepo, cartRepo, trackingRepo, userRepo, db.GetDB(), cartCache)
	trackingService := service.NewTrackingService(trackingRepo, orderRepo, cfg.Tracking.PollInterval, cfg.Tracking.StaleAfter)
	productService := service.NewProductService(productRepo, cartCache)
	favoriteService := service.NewFavoriteService(favoriteRepo, productRepo)

	// Tracking push: hub plus the polling job feeding it
	ctx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := ws.NewHub()
	go hub.Run(ctx)

	trackingScheduler := scheduler.NewTrackingScheduler(trackingService, hub, cfg.Tracking.PollInterval)
	if err := trackingScheduler.Start(); err != nil {
		logger.Fatal("Failed to start tracking scheduler", err)
	}
	defer trackingScheduler.Stop()

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	assignLimiter := middleware.NewRateLimiter(cfg.RateLimit.AssignPerMinute, cfg.RateLimit.AssignBurst)
	defer assignLimiter.Stop()

	// Setup router
	r := router.NewRouter(
		controller.NewProductController(productService),
		controller.NewCartController(cartService),
		controller.NewOrderController(orderService),
		controller.NewTrackingController(trackingService, hub, uploader, cfg.CORS.AllowedOrigins),
		controller.NewFavoriteController(favoriteService),
		authMiddleware,
		assignLimiter,
		cfg,
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r.Setup(),
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	logger.Info("Server stopped successfully")
}
