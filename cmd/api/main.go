package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/budwatch/budwatch/internal/infra/gateway/ynab"
	"github.com/budwatch/budwatch/internal/infra/postgres"
	infraRedis "github.com/budwatch/budwatch/internal/infra/redis"
	"github.com/budwatch/budwatch/internal/module/analytics"
	"github.com/budwatch/budwatch/internal/platform/alerts"
	"github.com/budwatch/budwatch/internal/platform/sync"
	"github.com/budwatch/budwatch/internal/transport/httpapi"
	"github.com/budwatch/budwatch/internal/transport/httpapi/handler"
	"github.com/budwatch/budwatch/internal/transport/httpapi/middleware"
	"github.com/budwatch/budwatch/pkg/config"
	"github.com/budwatch/budwatch/pkg/logger"
)

func main() {
	// Create context that listens for termination signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewDefault(cfg.Env)
	log.Info("Starting BudWatch API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	// Initialize database connection pool
	dbCfg := postgres.Config{
		URL: cfg.DatabaseURL,
	}
	db, err := postgres.NewPool(ctx, dbCfg)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Error("Failed to apply database migrations", "error", err)
		os.Exit(1)
	}
	log.Info("Database connection established")

	// Initialize Redis client for analytics caching
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Redis connection established")
	analyticsCache := infraRedis.NewCache(redisClient, log)

	// Initialize YNAB API client with its request quota tracker
	limiter := ynab.NewRateLimiter(cfg.RateLimitRequests, time.Duration(cfg.RateLimitWindow)*time.Second)
	ynabClient := ynab.NewClient(cfg.YNABToken, limiter, log)
	if cfg.YNABBaseURL != "" {
		ynabClient.SetBaseURL(cfg.YNABBaseURL)
	}
	remote := ynab.NewSyncAdapter(ynabClient)

	// Initialize the local budget cache store
	store := postgres.NewStore(db.Pool)
	alertRepo := postgres.NewAlertRepository(db.Pool)

	// Initialize sync service
	syncSvc := sync.NewService(sync.DefaultConfig(), store, remote, log)
	log.Info("Sync service initialized")

	// Initialize alert detection engine
	alertConfig := alerts.DefaultConfig()
	alertConfig.UnusualSpending.WarningThreshold = cfg.Alerts.UnusualWarning
	alertConfig.UnusualSpending.CriticalThreshold = cfg.Alerts.UnusualCritical
	alertConfig.BudgetOverspending.ApproachingThreshold = cfg.Alerts.BudgetApproaching
	alertConfig.Recurring.DaysOverdueWarn = cfg.Alerts.RecurringDaysWarning
	alertConfig.Recurring.DaysOverdueCrit = cfg.Alerts.RecurringDaysCritical
	alertConfig.Recurring.TolerancePercent = cfg.Alerts.RecurringTolerancePercent
	alertConfig.Recurring.ToleranceAbsolute = cfg.Alerts.RecurringToleranceAbs

	detectors := alerts.NewDetectors(store, alertConfig)
	alertWriter := alerts.NewWriter(alertRepo, log)
	alertEngine := alerts.NewEngine(detectors, alertWriter, log)
	log.Info("Alert engine initialized", "detectors", len(detectors))

	// Initialize analytics service with the Redis read-through cache
	analyticsSvc := analytics.NewService(store, analyticsCache, log)
	log.Info("Analytics service initialized")

	// Initialize HTTP handlers
	jwtSvc := middleware.NewJWTService(cfg.JWTSecret)
	authHandler := handler.NewAuthHandler(cfg.AccessPasswordHash, jwtSvc)
	budgetHandler := handler.NewBudgetHandler(store, log)
	syncHandler := handler.NewSyncHandler(syncSvc, analyticsCache, log)
	alertHandler := handler.NewAlertHandler(alertEngine, alertRepo, log)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc, log)
	healthHandler := handler.NewHealthHandler(db, analyticsCache, ynabClient)

	// Create JWT middleware
	jwtMiddleware := middleware.JWTMiddleware(jwtSvc)

	// Determine allowed origins for CORS
	allowedOrigins := []string{"http://localhost:5173", "http://localhost:3000"}
	if cfg.IsProduction() {
		if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
			allowedOrigins = []string{origins}
		}
	}

	// Create HTTP router
	routerCfg := httpapi.Config{
		Logger:           log,
		AllowedOrigins:   allowedOrigins,
		AuthHandler:      authHandler,
		BudgetHandler:    budgetHandler,
		SyncHandler:      syncHandler,
		AlertHandler:     alertHandler,
		AnalyticsHandler: analyticsHandler,
		HealthHandler:    healthHandler,
		JWTMiddleware:    jwtMiddleware,
	}
	r := httpapi.NewRouter(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for termination signal
	<-ctx.Done()
	log.Info("Shutdown signal received")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("Server stopped gracefully")
}
