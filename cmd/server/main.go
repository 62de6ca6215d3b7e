package main

import (
	"context"   // Context for shutdown and health checks
	"errors"    // Error inspection
	"net/http"  // HTTP server
	"os"        // Process signals
	"os/signal" // Signal notification
	"syscall"   // SIGTERM
	"time"      // Timeouts

	"qic_life/internal/ai"      // LLM provider
	"qic_life/internal/api"     // Custom package for API handlers
	"qic_life/internal/catalog" // Plan catalog
	"qic_life/internal/config"  // Custom package for configuration
	"qic_life/internal/db"      // Database connection
	"qic_life/internal/events"  // Analytics publishing
	"qic_life/internal/jobs"    // Cron jobs
	"qic_life/internal/metrics" // Prometheus collectors
	"qic_life/internal/service" // Business services

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	} else {
		logrus.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
	}

	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}

	// Connect to the database with the configured driver
	gdb, err := db.Open(cfg.DBDriver, cfg.DSN(), cfg.IsProd)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client, optional
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		// Test Redis connection; the API keeps working without it
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logrus.WithError(err).Warn("Redis unreachable at startup, caching degrades until it recovers")
		}
		cancel()
	} else {
		logrus.Info("REDIS_ADDR not set, caching disabled")
	}

	// Analytics publisher, optional
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATSURL != "" {
		nc, err := events.Connect(cfg.NATSURL)
		if err != nil {
			logrus.WithError(err).Warn("NATS unavailable, analytics events are stored only")
		} else {
			publisher = nc
		}
	}
	defer publisher.Close()

	plans, err := catalog.Default()
	if err != nil {
		logrus.Fatalf("failed to load plan catalog: %v", err)
	}

	provider := ai.NewClient(ai.ClientConfig{
		APIKey:            cfg.AIAPIKey,
		BaseURL:           cfg.AIBaseURL,
		Model:             cfg.AIModel,
		Timeout:           cfg.AITimeout,
		RequestsPerSecond: cfg.AIRequestsPerSecond,
	})
	if !provider.Enabled() {
		logrus.Info("AI_API_KEY not set, AI features answer from catalog heuristics")
	}

	m := metrics.New()
	services := service.New(service.Deps{
		DB:        gdb,
		Redis:     redisClient,
		Catalog:   plans,
		AI:        provider,
		Publisher: publisher,
		JWTSecret: cfg.JWTSecret,
		JWTTTL:    cfg.JWTTTL,
		Metrics:   m,
	})

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	r, err := api.NewRouter(api.RouterConfig{
		DB:              gdb,
		Redis:           redisClient,
		Services:        services,
		Catalog:         plans,
		Metrics:         m,
		JWTSecret:       cfg.JWTSecret,
		RateLimitWindow: cfg.RateLimitWindow,
		RateLimitMax:    cfg.RateLimitMax,
		AIRateLimitMax:  cfg.AIRateLimitMax,
		TrustedProxies:  cfg.TrustedProxies,
	})
	if err != nil {
		logrus.Fatalf("failed to build router: %v", err)
	}

	// Cron jobs
	scheduler := jobs.New(m)
	if cfg.JobsEnabled {
		if err := jobs.Register(scheduler, services, cfg.MissionExpiryCron, cfg.StreakResetCron); err != nil {
			logrus.Fatalf("failed to schedule jobs: %v", err)
		}
		scheduler.Start()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logrus.WithField("port", cfg.AppPort).Info("Server running") // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server error: %v", err)
		}
	}()

	// Wait for a shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Graceful shutdown failed")
	}
	scheduler.Stop(ctx)
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
