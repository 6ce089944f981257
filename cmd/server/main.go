package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BelikanM/cub/internal/auth"
	"github.com/BelikanM/cub/internal/cache"
	"github.com/BelikanM/cub/internal/changefeed"
	"github.com/BelikanM/cub/internal/config"
	"github.com/BelikanM/cub/internal/database"
	"github.com/BelikanM/cub/internal/handlers"
	"github.com/BelikanM/cub/internal/logger"
	"github.com/BelikanM/cub/internal/metrics"
	"github.com/BelikanM/cub/internal/middleware"
	"github.com/BelikanM/cub/internal/repository"
	"github.com/BelikanM/cub/internal/storage"
	"github.com/BelikanM/cub/internal/telemetry"
	"github.com/BelikanM/cub/internal/websocket"
)

const realtimePath = "/api/v1/realtime"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Log.Info("=== cub server starting ===",
		zap.String("environment", cfg.Environment),
		zap.String("db_driver", cfg.DBDriver))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	tp, err := telemetry.InitTracer(telemetry.Config{
		ServiceName:  "cub",
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTelEndpoint,
		Enabled:      cfg.OTelEnabled,
	})
	if err != nil {
		logger.Log.Warn("Tracing disabled", zap.Error(err))
	}

	metrics.Initialize()

	if err := database.Initialize(cfg.DBDriver, cfg.DatabaseURL, !cfg.IsProduction() && cfg.LogLevel == "debug"); err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()

	if err := database.Migrate(database.DB); err != nil {
		logger.Log.Fatal("Failed to run migrations", zap.Error(err))
	}
	if tp != nil {
		if err := database.DB.Use(telemetry.GORMTracingPlugin(cfg.DBDriver)); err != nil {
			logger.Log.Warn("Database tracing disabled", zap.Error(err))
		}
	}

	broker := changefeed.NewBroker()
	defer broker.Close()

	var rateCounter middleware.WindowCounter
	if cfg.RedisEnabled() {
		redisClient, err := cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
		if err != nil {
			logger.Log.Warn("Redis unavailable, changes and rate limits stay local", zap.Error(err))
		} else {
			defer redisClient.Close()
			rateCounter = redisClient
			if err := broker.UseRelay(redisClient); err != nil {
				logger.Log.Warn("Change relay disabled", zap.Error(err))
			}
		}
	}

	repos := repository.New(database.DB, broker)
	authService := auth.NewService(cfg.JWTSecret, cfg.TokenTTL, repos.Users)
	store := newObjectStore(cfg)

	hub := websocket.NewHub(broker, repos)
	wsHandler := websocket.NewHandler(hub, authService)

	h := handlers.NewHandlers(database.DB, repos, authService, store)

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(gin.Recovery())
	r.Use(middleware.MetricsMiddleware())
	if tp != nil {
		r.Use(middleware.TracingMiddleware("cub")...)
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Prefer", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	r.Use(cors.New(corsConfig))

	// Compressing the upgrade response breaks the websocket handshake
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{realtimePath, "/metrics"})))

	h.RegisterRoutes(r, handlers.RouteOptions{
		AuthMiddleware:    authService.Middleware(),
		Realtime:          wsHandler,
		RateCounter:       rateCounter,
		RequestsPerMinute: cfg.RateLimitPerMinute,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("cub server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := wsHandler.Shutdown(ctx); err != nil {
		logger.Log.Warn("WebSocket shutdown incomplete", zap.Error(err))
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := telemetry.Shutdown(ctx, tp); err != nil {
		logger.Log.Warn("Tracer shutdown failed", zap.Error(err))
	}

	logger.Log.Info("Server exited")
}

// newObjectStore uses S3 when a bucket is configured, memory otherwise
func newObjectStore(cfg *config.Config) storage.ObjectStore {
	if cfg.AWSBucket == "" {
		logger.Log.Warn("AWS_BUCKET not set, uploads are kept in memory")
		return storage.NewMemoryStore(strings.TrimSuffix(cfg.CDNBaseURL, "/"))
	}

	s3, err := storage.NewS3Uploader(cfg.AWSRegion, cfg.AWSBucket, cfg.CDNBaseURL)
	if err != nil {
		logger.Log.Fatal("Failed to initialize S3 uploader", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s3.CheckBucketAccess(ctx); err != nil {
		logger.Log.Warn("S3 bucket access failed, uploads may fail", zap.Error(err))
	}
	return s3
}
