package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	billingapp "github.com/backupflow/backend/internal/application/billing"
	domainbilling "github.com/backupflow/backend/internal/domain/billing"
	"github.com/backupflow/backend/internal/infrastructure/auth"
	hubspot "github.com/backupflow/backend/internal/infrastructure/billing"
	"github.com/backupflow/backend/internal/infrastructure/cache"
	"github.com/backupflow/backend/internal/infrastructure/config"
	"github.com/backupflow/backend/internal/infrastructure/logger"
	"github.com/backupflow/backend/internal/infrastructure/notification"
	"github.com/backupflow/backend/internal/infrastructure/persistence"
	"github.com/backupflow/backend/internal/infrastructure/scheduler"
	"github.com/backupflow/backend/internal/interfaces/http/handler"
	"github.com/backupflow/backend/internal/interfaces/http/middleware"
	"github.com/backupflow/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting BackupFlow backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Repositories
	overageRepo := persistence.NewOverageRepository(db.DB)
	userRepo := persistence.NewUserRepository(db.DB)

	// HubSpot billing gateway
	hubspotConfig := &hubspot.HubSpotConfig{
		APIBaseURL:     cfg.Billing.APIBaseURL,
		APIToken:       cfg.Billing.APIToken,
		RequestTimeout: cfg.Billing.RequestTimeout,
	}
	gateway, err := hubspot.NewHubSpotAdapter(hubspotConfig)
	if err != nil {
		log.Fatal("Failed to initialize HubSpot adapter", zap.Error(err))
	}

	// Optional Redis cache for billing summaries; the reconciler degrades
	// to direct reads when the cache is absent.
	var summaryCache domainbilling.SummaryCache
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisSummaryCache(cache.RedisConfig{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn("Redis unavailable, billing summaries will not be cached", zap.Error(err))
		} else {
			summaryCache = redisCache
			defer func() {
				if err := redisCache.Close(); err != nil {
					log.Error("Error closing Redis client", zap.Error(err))
				}
			}()
			log.Info("Billing summary cache connected", zap.String("addr", cfg.Redis.Addr()))
		}
	}

	notifier := notification.NewBillingNotifier(log)

	unitPrice, err := decimal.NewFromString(cfg.Billing.UnitPrice)
	if err != nil {
		log.Fatal("Invalid billing.unit_price", zap.String("value", cfg.Billing.UnitPrice), zap.Error(err))
	}

	// Application services
	reconcilerConfig := billingapp.DefaultReconcilerConfig()
	reconcilerConfig.UnitPrice = unitPrice
	reconcilerConfig.GatewayTimeout = cfg.Billing.RequestTimeout
	reconciler := billingapp.NewReconcilerService(
		overageRepo, userRepo, gateway, notifier, summaryCache, log, reconcilerConfig,
	)
	webhookService := billingapp.NewWebhookService(userRepo, cfg.Billing.WebhookSecret, log)

	jwtService := auth.NewJWTService(cfg.JWT)

	// Unbilled overage sweep
	if cfg.Scheduler.Enabled {
		sweepScheduler := scheduler.NewOverageSweepScheduler(reconciler, log, scheduler.OverageSweepSchedulerConfig{
			Enabled:       cfg.Scheduler.Enabled,
			SweepInterval: cfg.Scheduler.SweepInterval,
			SweepTimeout:  cfg.Scheduler.SweepTimeout,
		})
		if err := sweepScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start overage sweep scheduler", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := sweepScheduler.Stop(stopCtx); err != nil {
				log.Error("Error stopping overage sweep scheduler", zap.Error(err))
			}
		}()
	}

	// HTTP handlers
	overageHandler := handler.NewOverageHandler(reconciler)
	billingHandler := handler.NewBillingHandler(reconciler)
	webhookHandler := handler.NewWebhookHandler(webhookService, log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Stop()
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	engine.GET("/health", healthHandler(db))

	// HubSpot calls the webhook directly; the route bypasses session
	// authentication and relies on the HMAC signature instead.
	engine.POST("/api/v1/billing/webhook", webhookHandler.HandlePlanChange)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Every versioned route is a back-office operation; the webhook and
	// health endpoints are registered on the engine above this chain.
	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.Logger = log
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig), middleware.RequireAdmin())

	overageRoutes := router.NewDomainGroup("overages", "/overages")
	overageRoutes.POST("/process", overageHandler.ProcessOverages)

	userRoutes := router.NewDomainGroup("users", "/users")
	userRoutes.GET("/:userId/billing-summary", overageHandler.GetUserBillingSummary)

	billingRoutes := router.NewDomainGroup("billing", "/billing")
	billingRoutes.POST("/validate-connection", billingHandler.ValidateConnection)
	billingRoutes.POST("/update-usage", billingHandler.UpdateUsage)

	r.Register(overageRoutes).
		Register(userRoutes).
		Register(billingRoutes)

	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler reports process and database health
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
