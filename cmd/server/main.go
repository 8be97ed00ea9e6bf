package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"practice_app_echo/internal/config"
	"practice_app_echo/internal/handlers"
	authMiddleware "practice_app_echo/internal/middleware"
	"practice_app_echo/internal/services"
)

func main() {
	cfg, envLoaded := config.Load()

	logger, err := services.NewLogger(cfg.IsDevelopment())
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	if !envLoaded {
		logger.Info("No .env file found, using system environment")
	}

	// amounts go out as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL not set")
	}
	db, err := services.InitDB(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := services.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}
	if err := services.SeedPaymentTypes(db, logger); err != nil {
		logger.Fatal("Failed to seed payment types", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cache services.Cache
	if cfg.RedisURL != "" {
		redisCache, err := services.NewRedisCache(cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis unavailable, running without cache and idempotency locks", zap.Error(err))
		} else {
			defer redisCache.Close()
			cache = redisCache
		}
	}

	var verifier authMiddleware.TokenVerifier
	if !cfg.AuthDisabled {
		authClient, err := services.InitFirebaseAuth(ctx, cfg.Firebase.CredentialsPath)
		if err != nil {
			logger.Warn("Firebase initialization failed, API requests will be rejected", zap.Error(err))
		} else {
			verifier = authClient
		}
	} else {
		logger.Warn("AUTH_DISABLED is set, trusting the X-User-ID header")
	}

	var receipts handlers.ReceiptUploader
	if cfg.Receipts.Bucket != "" {
		storage, err := services.NewReceiptStorage(ctx, cfg.Receipts)
		if err != nil {
			logger.Warn("Receipt storage disabled", zap.Error(err))
		} else {
			receipts = storage
		}
	}

	paymentService := services.NewPaymentService(db, cache, logger)
	users := services.NewUserDirectory(db)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = authMiddleware.JSONErrorHandler(logger)

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	publicHandler := handlers.NewPublicHandler(paymentService.Ledger(), logger)
	e.GET("/p/receipts/:uuid", publicHandler.ShowReceipt)

	api := e.Group("/api")
	api.Use(authMiddleware.RequireAPIAuth(verifier, users, cfg.AuthDisabled))
	api.GET("/me", handlers.NewUserHandler(users).Me)
	handlers.NewPaymentHandler(paymentService, receipts, logger).RegisterRoutes(api)

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
