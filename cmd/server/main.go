package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	allocationapp "github.com/cellar/backend/internal/application/allocation"
	procurementapp "github.com/cellar/backend/internal/application/procurement"
	voucherapp "github.com/cellar/backend/internal/application/voucher"
	"github.com/cellar/backend/internal/infrastructure/cache"
	"github.com/cellar/backend/internal/infrastructure/config"
	"github.com/cellar/backend/internal/infrastructure/event"
	"github.com/cellar/backend/internal/infrastructure/logger"
	"github.com/cellar/backend/internal/infrastructure/persistence"
	"github.com/cellar/backend/internal/infrastructure/scheduler"
	"github.com/cellar/backend/internal/infrastructure/telemetry"
	"github.com/cellar/backend/internal/interfaces/http/handler"
	"github.com/cellar/backend/internal/interfaces/http/middleware"
	"github.com/cellar/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//	@title			Cellar Allocation API
//	@version		1.0
//	@description	Serialized wine allocation backend: capacity ledger, temporary reservations, voucher lifecycle, gifting transfers and the trading platform callback gateway.

//	@contact.name	API Support
//	@contact.url	https://github.com/cellar/backend

//	@host		localhost:8080
//	@BasePath	/api/v1

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

	log.Info("Starting cellar backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Tracer provider (no-op when telemetry is disabled)
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()
	if cfg.Telemetry.SpanProfiles {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Database query tracing (otelgorm)
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DefaultDBTracingConfig(), log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	// Initialize repositories
	allocationRepo := persistence.NewGormAllocationRepository(db.DB)
	reservationRepo := persistence.NewGormReservationRepository(db.DB)
	voucherRepo := persistence.NewGormVoucherRepository(db.DB)
	transferRepo := persistence.NewGormTransferRepository(db.DB)
	intentRepo := persistence.NewGormIntentRepository(db.DB)
	auditSink := persistence.NewGormAuditRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Initialize event serializer and register all event types
	eventSerializer := event.NewEventSerializer()
	event.RegisterAllEvents(eventSerializer)

	// Outbox publisher saves events in the same transaction as the state change
	outboxPublisher := event.NewOutboxPublisher(eventSerializer)

	// Transaction scopes bind repositories, the audit sink and the outbox
	// to one GORM transaction
	allocationScope := persistence.NewGormAllocationTransactionScope(db.DB, outboxPublisher)
	voucherScope := persistence.NewGormVoucherTransactionScope(db.DB, outboxPublisher)

	// Initialize application services
	ledgerService := allocationapp.NewLedgerService(allocationRepo, reservationRepo, allocationScope, log)
	ledgerService.SetHoldDuration(cfg.Reservation.HoldDuration)
	lifecycleService := voucherapp.NewLifecycleService(voucherRepo, voucherScope, log)
	tradingService := voucherapp.NewTradingService(voucherRepo, voucherScope, log)
	transferService := voucherapp.NewTransferService(voucherRepo, transferRepo, voucherScope, log)
	transferService.SetTransferWindow(cfg.Transfer.AcceptanceWindow)
	reservationExpiryService := allocationapp.NewReservationExpiryService(reservationRepo, allocationScope, log)
	transferExpiryService := voucherapp.NewTransferExpiryService(transferRepo, voucherScope, log)

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)

	// Vouchers issued -> procurement intent draft. The handler is wrapped
	// for idempotent delivery since the outbox processor retries.
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	voucherIssuedHandler := procurementapp.NewVoucherIssuedHandler(intentRepo, auditSink, log)
	estimatedUnitCost, err := decimal.NewFromString(cfg.Procurement.EstimatedUnitCost)
	if err != nil {
		log.Fatal("Invalid procurement.estimated_unit_cost", zap.Error(err))
	}
	voucherIssuedHandler.SetEstimatedUnitCost(estimatedUnitCost)
	eventBus.Subscribe(event.NewIdempotentHandler(voucherIssuedHandler, idempotencyStore, log))

	// Start event bus
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Outbox processor delivers committed events to the bus
	if cfg.Event.ProcessorEnabled {
		outboxProcessorConfig := event.OutboxProcessorConfig{
			BatchSize:        cfg.Event.BatchSize,
			PollInterval:     cfg.Event.PollInterval,
			CleanupEnabled:   cfg.Event.CleanupEnabled,
			CleanupRetention: cfg.Event.CleanupRetention,
			CleanupInterval:  time.Hour,
		}
		outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, outboxProcessorConfig, log)
		if err := outboxProcessor.Start(context.Background()); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := outboxProcessor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", outboxProcessorConfig.BatchSize),
			zap.Duration("poll_interval", outboxProcessorConfig.PollInterval),
		)
	}

	// Expiry sweeps: overdue reservation holds and overdue transfer offers
	if cfg.Sweep.Enabled {
		reservationSweeper, err := scheduler.NewSweepScheduler(scheduler.SweepSchedulerConfig{
			Interval:      cfg.Sweep.ReservationInterval,
			RetryAttempts: cfg.Sweep.RetryAttempts,
			RetryBackoff:  cfg.Sweep.RetryBackoff,
		}, reservationSweepAdapter{reservationExpiryService}, log)
		if err != nil {
			log.Fatal("Failed to create reservation sweep scheduler", zap.Error(err))
		}
		if err := reservationSweeper.Start(context.Background()); err != nil {
			log.Fatal("Failed to start reservation sweep scheduler", zap.Error(err))
		}
		defer func() {
			if err := reservationSweeper.Stop(context.Background()); err != nil {
				log.Error("Error stopping reservation sweep scheduler", zap.Error(err))
			}
		}()

		transferSweeper, err := scheduler.NewSweepScheduler(scheduler.SweepSchedulerConfig{
			Interval:      cfg.Sweep.TransferInterval,
			RetryAttempts: cfg.Sweep.RetryAttempts,
			RetryBackoff:  cfg.Sweep.RetryBackoff,
		}, transferSweepAdapter{transferExpiryService}, log)
		if err != nil {
			log.Fatal("Failed to create transfer sweep scheduler", zap.Error(err))
		}
		if err := transferSweeper.Start(context.Background()); err != nil {
			log.Fatal("Failed to start transfer sweep scheduler", zap.Error(err))
		}
		defer func() {
			if err := transferSweeper.Stop(context.Background()); err != nil {
				log.Error("Error stopping transfer sweep scheduler", zap.Error(err))
			}
		}()
		log.Info("Expiry sweeps started",
			zap.Duration("reservation_interval", cfg.Sweep.ReservationInterval),
			zap.Duration("transfer_interval", cfg.Sweep.TransferInterval),
		)
	}

	// Initialize HTTP handlers
	allocationHandler := handler.NewAllocationHandler(ledgerService)
	reservationHandler := handler.NewReservationHandler(ledgerService)
	voucherHandler := handler.NewVoucherHandler(lifecycleService)
	transferHandler := handler.NewTransferHandler(transferService)
	tradingHandler := handler.NewTradingHandler(tradingService)
	systemHandler := handler.NewSystemHandler(db)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.Secure())

	// Configure CORS from config
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health and readiness endpoints (outside API versioning)
	engine.GET("/health", systemHandler.Health)
	engine.GET("/ready", systemHandler.Ready)

	// Setup API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	allocationRoutes := router.NewDomainGroup("allocations", "/allocations")
	allocationRoutes.GET("/:id", allocationHandler.GetByID)
	allocationRoutes.GET("/:id/capacity", allocationHandler.GetCapacity)

	reservationRoutes := router.NewDomainGroup("reservations", "/reservations")
	reservationRoutes.POST("", reservationHandler.Create)
	reservationRoutes.GET("/:id", reservationHandler.GetByID)
	reservationRoutes.POST("/:id/confirm", reservationHandler.Confirm)
	reservationRoutes.POST("/:id/release", reservationHandler.Release)

	voucherRoutes := router.NewDomainGroup("vouchers", "/vouchers")
	voucherRoutes.GET("/:id", voucherHandler.GetByID)
	voucherRoutes.POST("/:id/lock", voucherHandler.Lock)
	voucherRoutes.POST("/:id/redeem", voucherHandler.Redeem)
	voucherRoutes.POST("/:id/suspend", voucherHandler.Suspend)
	voucherRoutes.POST("/:id/unsuspend", voucherHandler.Unsuspend)
	voucherRoutes.POST("/:id/transfers", transferHandler.Initiate)

	// Trading platform callback, behind HMAC signature verification
	tradingRoutes := router.NewDomainGroup("trading", "/vouchers")
	tradingRoutes.Use(middleware.VerifySignature(middleware.SignatureConfig{
		Secret:          cfg.Trading.SigningSecret,
		TimestampWindow: cfg.Trading.TimestampWindow,
		Logger:          log,
	}))
	tradingRoutes.POST("/:id/trading-complete", tradingHandler.Complete)

	transferRoutes := router.NewDomainGroup("transfers", "/transfers")
	transferRoutes.GET("/:id", transferHandler.GetByID)
	transferRoutes.POST("/:id/accept", transferHandler.Accept)
	transferRoutes.POST("/:id/cancel", transferHandler.Cancel)

	r.Register(allocationRoutes).
		Register(reservationRoutes).
		Register(voucherRoutes).
		Register(tradingRoutes).
		Register(transferRoutes)

	r.Setup()

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

// reservationSweepAdapter exposes the reservation expiry service as a
// scheduler.Sweeper.
type reservationSweepAdapter struct {
	service *allocationapp.ReservationExpiryService
}

func (a reservationSweepAdapter) Name() string { return "reservation-expiry" }

func (a reservationSweepAdapter) Sweep(ctx context.Context) (scheduler.SweepStats, error) {
	stats, err := a.service.ReleaseExpired(ctx)
	if err != nil {
		return scheduler.SweepStats{}, err
	}
	return scheduler.SweepStats{Found: stats.Found, Processed: stats.Released, Failed: stats.Failed}, nil
}

// transferSweepAdapter exposes the transfer expiry service as a
// scheduler.Sweeper.
type transferSweepAdapter struct {
	service *voucherapp.TransferExpiryService
}

func (a transferSweepAdapter) Name() string { return "transfer-expiry" }

func (a transferSweepAdapter) Sweep(ctx context.Context) (scheduler.SweepStats, error) {
	stats, err := a.service.ExpireOverdue(ctx)
	if err != nil {
		return scheduler.SweepStats{}, err
	}
	return scheduler.SweepStats{Found: stats.Found, Processed: stats.Expired, Failed: stats.Failed}, nil
}
