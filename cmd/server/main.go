package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/onegreenvn/green-session-service/docs"
	"github.com/onegreenvn/green-session-service/internal/config"
	"github.com/onegreenvn/green-session-service/internal/database"
	"github.com/onegreenvn/green-session-service/internal/database/repository"
	"github.com/onegreenvn/green-session-service/internal/router"
	"github.com/onegreenvn/green-session-service/internal/services/auth"
	"github.com/onegreenvn/green-session-service/internal/services/device"
	"github.com/onegreenvn/green-session-service/internal/services/events"
	"github.com/onegreenvn/green-session-service/internal/services/ratelimit"
	"github.com/onegreenvn/green-session-service/internal/utils"
)

// @title Green Session Service API
// @version 1.0
// @description Refresh token rotation, session listing and revocation

// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter `Bearer ` followed by the access token

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	utils.ConfigureLogging(cfg.LogLevel, cfg.LogFormat)
	gin.SetMode(gin.ReleaseMode)
	docs.SwaggerInfo.BasePath = cfg.BasePath + "/api/v1"

	sentryEnabled, err := utils.InitSentry(cfg.SentryDSN, cfg.SentryEnvironment)
	if err != nil {
		logrus.Warnf("Failed to initialize Sentry: %v", err)
	}
	if sentryEnabled {
		defer utils.FlushSentry()
	}

	ctx := context.Background()

	tokenStore, userStore, closeStore := initStores(cfg)
	defer closeStore()

	limiter, closeLimiter := initLimiter(ctx, cfg)
	defer closeLimiter()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	publisher, closeEvents := initEvents(cfg, registry, sentryEnabled)
	defer closeEvents()

	if cfg.SeedUser.Email != "" {
		if _, err := auth.EnsureUser(ctx, userStore, cfg.SeedUser.Email, cfg.SeedUser.Password); err != nil {
			logrus.Warnf("Failed to create seed user: %v", err)
		}
	}

	access := auth.NewAccessTokenManager(cfg.Token.JWTSecret, cfg.Token.JWTIssuer, cfg.Token.AccessTokenTTL, time.Now)
	tokenService := auth.NewTokenService(tokenStore, access, device.NewParser(), publisher, auth.TokenPolicy{
		RefreshTokenTTL:   cfg.Token.RefreshTokenTTL,
		RefreshTokenBytes: cfg.Token.RefreshTokenBytes,
		MaxRotations:      cfg.Token.MaxRotations,
	}, time.Now)
	sessionCatalog := auth.NewSessionCatalog(tokenStore, publisher, cfg.SessionListLimit, time.Now)
	authService := auth.NewAuthService(auth.NewPasswordVerifier(userStore), tokenService, sessionCatalog, access)

	// Initialize token cleanup service
	tokenCleanupService := auth.NewTokenCleanupService(tokenStore, publisher, auth.CleanupConfig{
		Schedule:    cfg.Reaper.Schedule,
		MaxAttempts: cfg.Reaper.MaxAttempts,
		MaxAge:      cfg.Token.AbsoluteMaxAge,
	}, time.Now)
	if err := tokenCleanupService.Start(); err != nil {
		logrus.Fatalf("Failed to start token cleanup: %v", err)
	}
	defer tokenCleanupService.Stop()

	r := router.SetupRouter(cfg, router.Deps{
		AuthService: authService,
		Limiter:     limiter,
		Registry:    registry,
	})

	// Configure HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.Infof("Server starting on port %s", cfg.Port)
		logrus.Infof("Health Check: http://localhost:%s%s/health", cfg.Port, cfg.BasePath)
		logrus.Infof("Swagger UI: http://localhost:%s%s/swagger/index.html", cfg.Port, cfg.BasePath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited properly")
}

func initStores(cfg *config.Config) (repository.TokenStore, auth.UserStore, func()) {
	if cfg.StoreBackend == config.StoreBackendMemory {
		logrus.Warn("Using in-memory token store, sessions will not survive a restart")
		return repository.NewMemoryTokenStore(), repository.NewMemoryUserRepository(), func() {}
	}

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}

	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return repository.NewRefreshTokenRepository(db), repository.NewUserRepository(db), closeDB
}

func initLimiter(ctx context.Context, cfg *config.Config) (ratelimit.Limiter, func()) {
	if cfg.RateLimit.Backend == config.RateLimitBackendRedis {
		client, err := database.InitRedis(ctx, cfg.Redis)
		if err != nil {
			logrus.Fatalf("Failed to initialize Redis: %v", err)
		}
		return ratelimit.NewRedisLimiter(client, time.Now), func() { client.Close() }
	}

	limiter := ratelimit.NewMemoryLimiter(time.Now)
	limiter.Start(cfg.RateLimit.EvictInterval)
	return limiter, limiter.Stop
}

func initEvents(cfg *config.Config, registry *prometheus.Registry, sentryEnabled bool) (events.Publisher, func()) {
	metrics, err := events.NewMetricsPublisher(registry)
	if err != nil {
		logrus.Fatalf("Failed to register metrics: %v", err)
	}

	sinks := events.Multi{events.NewLogPublisher(logrus.StandardLogger()), metrics}
	if sentryEnabled {
		sinks = append(sinks, events.NewSentryPublisher(sentry.CurrentHub()))
	}

	closeFn := func() {}
	if cfg.RabbitMQ.Enabled {
		rabbit, err := events.NewRabbitMQPublisher(cfg.RabbitMQ)
		if err != nil {
			logrus.Warnf("Failed to initialize RabbitMQ: %v", err)
		} else {
			sinks = append(sinks, rabbit)
			closeFn = func() {
				if err := rabbit.Close(); err != nil {
					logrus.Warnf("Failed to close RabbitMQ publisher: %v", err)
				}
			}
		}
	}
	return sinks, closeFn
}
