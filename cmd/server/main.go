package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zfogg/sidechain/views/internal/auth"
	"github.com/zfogg/sidechain/views/internal/cache"
	"github.com/zfogg/sidechain/views/internal/config"
	"github.com/zfogg/sidechain/views/internal/database"
	"github.com/zfogg/sidechain/views/internal/handlers"
	"github.com/zfogg/sidechain/views/internal/logger"
	"github.com/zfogg/sidechain/views/internal/metrics"
	"github.com/zfogg/sidechain/views/internal/middleware"
	"github.com/zfogg/sidechain/views/internal/privacy"
	"github.com/zfogg/sidechain/views/internal/repair"
	"github.com/zfogg/sidechain/views/internal/repository"
	"github.com/zfogg/sidechain/views/internal/telemetry"
	"github.com/zfogg/sidechain/views/internal/validation"
	"github.com/zfogg/sidechain/views/internal/views"
	"github.com/zfogg/sidechain/views/internal/visibility"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Log.Info("=== Sidechain views service starting ===",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port))

	// Tracing
	shutdownTracer, err := telemetry.InitTracer(telemetry.Config{
		ServiceName:  cfg.Telemetry.ServiceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		Insecure:     cfg.Telemetry.Insecure,
		Enabled:      cfg.Telemetry.Enabled,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Log.Warn("Tracing disabled", zap.Error(err))
	}

	// Initialize database
	if err := database.Initialize(cfg.Database, cfg.Environment); err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	db := database.DB
	if cfg.Telemetry.Enabled {
		if err := db.Use(telemetry.GORMTracingPlugin()); err != nil {
			logger.Log.Warn("Failed to install GORM tracing", zap.Error(err))
		}
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		logger.Log.Fatal("Failed to run migrations", zap.Error(err))
	}

	metrics.Initialize()

	// Redis is optional; without it the flag cache is skipped and rate
	// limiting falls back to a per-process token bucket
	var flagCache privacy.FlagCache
	var limiter middleware.Limiter
	validator := validation.NewServiceValidator(cfg.RequiredServices)
	validator.Register("database", func(ctx context.Context) error {
		return database.Health(db)
	})
	validator.Register("redis", nil)
	if cfg.Redis.Host != "" {
		redisClient, err := cache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password)
		if err != nil {
			logger.Log.Warn("Redis unavailable, continuing without cache", zap.Error(err))
		} else {
			flagCache = redisClient
			limiter = redisClient
			validator.Register("redis", redisClient.Ping)
			defer redisClient.Close()
		}
	}
	if err := validator.ValidateServices(context.Background()); err != nil {
		logger.Log.Fatal("Required service unavailable", zap.Error(err))
	}

	// Core services
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	ledger := views.NewLedger(db)
	aggregator := views.NewAggregator(db, userRepo)
	gate := privacy.NewGate(userRepo, flagCache)
	facade := visibility.NewFacade(userRepo, postRepo, ledger, aggregator, gate)

	authService, err := auth.NewService([]byte(cfg.JWTSecret), 0)
	if err != nil {
		logger.Log.Fatal("Failed to initialize auth service", zap.Error(err))
	}

	repairService := repair.NewService(aggregator, cfg.RepairInterval, cfg.RepairConcurrency)
	repairService.Start()

	// Initialize handlers
	h := handlers.NewHandlers(facade, db)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.CorrelationMiddleware())
	r.Use(middleware.TracingMiddleware(cfg.Telemetry.ServiceName)...)
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"}
	r.Use(cors.New(corsConfig))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	viewLimit := middleware.RedisRateLimitMiddleware(limiter, middleware.ViewRateLimitConfig(cfg.ViewRateLimit))
	h.RegisterRoutes(api, auth.Middleware(authService), viewLimit)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repairService.Stop()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := shutdownTracer(ctx); err != nil {
		logger.Log.Warn("Tracer shutdown failed", zap.Error(err))
	}
	if err := database.Close(db); err != nil {
		logger.Log.Warn("Database close failed", zap.Error(err))
	}

	logger.Log.Info("Server exited")
}
