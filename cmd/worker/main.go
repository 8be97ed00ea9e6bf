package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"practice_app_echo/internal/config"
	"practice_app_echo/internal/services"
	"practice_app_echo/internal/tasks"
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

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL not set")
	}
	db, err := services.InitDB(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	var cache services.Cache
	if cfg.RedisURL != "" {
		redisCache, err := services.NewRedisCache(cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis unavailable, summaries will not be invalidated", zap.Error(err))
		} else {
			defer redisCache.Close()
			cache = redisCache
		}
	}

	registry := tasks.NewRegistry()
	tasks.DefineTasks(registry)
	runner := tasks.NewRunner(registry, tasks.Deps{
		DB:       db,
		Payments: services.NewPaymentService(db, cache, logger),
		Log:      logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Worker.ReconcileRRule != "" {
		task, created, err := tasks.EnsureRecurringReconcile(ctx, db, cfg.Worker.ReconcileRRule, time.Now().UTC())
		if err != nil {
			logger.Error("Failed to schedule reconciliation", zap.Error(err))
		} else if created {
			logger.Info("Scheduled recurring reconciliation", zap.Uint("task_id", task.ID), zap.Time("due", task.Due))
		}
	}

	logger.Info("Worker started", zap.Duration("interval", cfg.Worker.Interval))

	ticker := time.NewTicker(cfg.Worker.Interval)
	defer ticker.Stop()

	// run once on start, then on every tick
	process(ctx, runner, logger)
	for {
		select {
		case <-ticker.C:
			process(ctx, runner, logger)
		case <-ctx.Done():
			logger.Info("Shutting down worker...")
			return
		}
	}
}

func process(ctx context.Context, runner *tasks.Runner, logger *zap.Logger) {
	if _, err := runner.ProcessDue(ctx); err != nil && ctx.Err() == nil {
		logger.Error("Error processing scheduled tasks", zap.Error(err))
	}
}
