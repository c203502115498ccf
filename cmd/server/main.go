package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appchat "github.com/chatmeter/backend/internal/application/chat"
	appsub "github.com/chatmeter/backend/internal/application/subscription"
	"github.com/chatmeter/backend/internal/domain/chat"
	"github.com/chatmeter/backend/internal/domain/subscription"
	"github.com/chatmeter/backend/internal/infrastructure/config"
	"github.com/chatmeter/backend/internal/infrastructure/logger"
	"github.com/chatmeter/backend/internal/infrastructure/persistence"
	"github.com/chatmeter/backend/internal/infrastructure/scheduler"
	"github.com/chatmeter/backend/internal/interfaces/http/handler"
	"github.com/chatmeter/backend/internal/interfaces/http/middleware"
	"github.com/chatmeter/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
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
		_ = logger.Sync(log)
	}()

	log.Info("Starting ChatMeter Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))

	// Initialize database connection with custom logger
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

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize repositories
	usageRepo := persistence.NewGormMonthlyUsageRepository(db.DB)
	messageRepo := persistence.NewGormChatMessageRepository(db.DB)
	subscriptionRepo := persistence.NewGormSubscriptionRepository(db.DB)

	// Initialize domain services. Each random consumer gets its own source;
	// the closures serialize their own draws.
	allocator := chat.NewUsageAllocator(usageRepo, subscriptionRepo, log)
	generator := chat.NewSimulatedAnswerGenerator(
		chat.RandomLatency(rand.New(rand.NewSource(time.Now().UnixNano()))))
	billingRunner := subscription.NewBillingCycleRunner(
		subscription.RandomRenewalDecider(cfg.Billing.RenewalSuccessRate,
			rand.New(rand.NewSource(time.Now().UnixNano()))), log)

	// Initialize application services
	chatService := appchat.NewChatService(allocator, generator, messageRepo, subscriptionRepo, log)
	subscriptionService := appsub.NewSubscriptionService(subscriptionRepo, billingRunner, log)

	// Start the billing scheduler (if enabled)
	schedulerConfig := scheduler.DefaultBillingSchedulerConfig()
	schedulerConfig.Enabled = cfg.Billing.SchedulerEnabled
	schedulerConfig.RunInterval = cfg.Billing.RunInterval
	billingScheduler := scheduler.NewBillingScheduler(
		billingRunnerFunc{service: subscriptionService}, log, schedulerConfig)
	if err := billingScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start billing scheduler", zap.Error(err))
	}
	defer func() {
		if err := billingScheduler.Stop(context.Background()); err != nil {
			log.Error("Error stopping billing scheduler", zap.Error(err))
		}
	}()
	if cfg.Billing.SchedulerEnabled {
		log.Info("Billing scheduler started",
			zap.Duration("run_interval", cfg.Billing.RunInterval),
			zap.Float64("renewal_success_rate", cfg.Billing.RenewalSuccessRate),
		)
	}

	// Initialize HTTP handlers
	chatHandler := handler.NewChatHandler(chatService)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionService)
	systemHandler := handler.NewSystemHandler(db)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	if err := handler.RegisterValidations(); err != nil {
		log.Fatal("Failed to register validations", zap.Error(err))
	}

	// Initialize router with custom middleware
	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.HTTP.CORSAllowOrigins,
		AllowMethods: cfg.HTTP.CORSAllowMethods,
		AllowHeaders: cfg.HTTP.CORSAllowHeaders,
		MaxAge:       12 * time.Hour,
	}))

	// Setup API routes
	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(chatHandler).
		Register(subscriptionHandler).
		Register(systemHandler).
		Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
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

// billingRunnerFunc adapts the subscription service to the scheduler's
// BillingRunner interface, discarding the per-run summary.
type billingRunnerFunc struct {
	service *appsub.SubscriptionService
}

func (r billingRunnerFunc) RunBillingCycle(ctx context.Context, now time.Time) error {
	_, err := r.service.RunBillingCycle(ctx, now)
	return err
}
