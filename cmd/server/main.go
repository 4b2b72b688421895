package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	billingapp "github.com/ledgersync/backend/internal/application/billing"
	inventoryapp "github.com/ledgersync/backend/internal/application/inventory"
	"github.com/ledgersync/backend/internal/domain/integration"
	"github.com/ledgersync/backend/internal/infrastructure/cache"
	"github.com/ledgersync/backend/internal/infrastructure/config"
	"github.com/ledgersync/backend/internal/infrastructure/deferredpay"
	"github.com/ledgersync/backend/internal/infrastructure/ledger"
	"github.com/ledgersync/backend/internal/infrastructure/logger"
	"github.com/ledgersync/backend/internal/infrastructure/persistence"
	"github.com/ledgersync/backend/internal/infrastructure/scheduler"
	"github.com/ledgersync/backend/internal/infrastructure/storefront"
	"github.com/ledgersync/backend/internal/interfaces/http/handler"
	"github.com/ledgersync/backend/internal/interfaces/http/router"
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

	log.Info("Starting LedgerSync Backend",
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

	// Initialize repositories
	trackingRepo := persistence.NewGormOrderTrackingRepository(db.DB)
	catalogRepo := persistence.NewGormCatalogRepository(db.DB)
	priceRepo := persistence.NewGormPriceRepository(db.DB)
	movementRepo := persistence.NewGormMovementRepository(db.DB)

	// Initialize external gateways
	storefrontGateway, err := storefront.NewAdapter(&storefront.Config{
		ShopDomain:               cfg.Storefront.ShopDomain,
		AccessToken:              cfg.Storefront.AccessToken,
		APIVersion:               cfg.Storefront.APIVersion,
		PageSize:                 cfg.Storefront.PageSize,
		MinRequestIntervalMillis: cfg.Storefront.MinRequestIntervalMillis,
		TimeoutSeconds:           cfg.Storefront.TimeoutSeconds,
	})
	if err != nil {
		log.Fatal("Failed to initialize storefront gateway", zap.Error(err))
	}

	ledgerGateway, err := ledger.NewAdapter(&ledger.Config{
		BaseURL:                  cfg.Ledger.BaseURL,
		APIToken:                 cfg.Ledger.APIToken,
		MinRequestIntervalMillis: cfg.Ledger.MinRequestIntervalMillis,
		TimeoutSeconds:           cfg.Ledger.TimeoutSeconds,
		CityCacheSize:            cfg.Ledger.CityCacheSize,
	})
	if err != nil {
		log.Fatal("Failed to initialize ledger gateway", zap.Error(err))
	}

	var deferredGateway integration.DeferredPaymentGateway
	if cfg.DeferredPay.Enabled {
		adapter, err := deferredpay.NewAdapter(&deferredpay.Config{
			BaseURL:        cfg.DeferredPay.BaseURL,
			APIKey:         cfg.DeferredPay.APIKey,
			APISecret:      cfg.DeferredPay.APISecret,
			TimeoutSeconds: cfg.DeferredPay.TimeoutSeconds,
		})
		if err != nil {
			log.Fatal("Failed to initialize deferred-payment gateway", zap.Error(err))
		}
		deferredGateway = adapter
		log.Info("Deferred-payment gateway enabled",
			zap.String("gateway_name", cfg.DeferredPay.GatewayName),
		)
	}

	// Initialize application services
	contactResolver := billingapp.NewContactResolver(ledgerGateway)
	termResolver := billingapp.NewPaymentTermResolver(
		deferredGateway,
		cfg.DeferredPay.GatewayName,
		cfg.Reconcile.CreditTag,
	)
	reconciler := billingapp.NewOrderReconciler(
		trackingRepo,
		storefrontGateway,
		ledgerGateway,
		contactResolver,
		termResolver,
		billingapp.ReconcilerConfig{
			RetryBudget:        cfg.Reconcile.RetryBudget,
			InvoiceLookupDelay: cfg.Reconcile.InvoiceLookupDelay,
			DoNotInvoiceTag:    cfg.Reconcile.DoNotInvoiceTag,
		},
	)
	snapshotSync := inventoryapp.NewSnapshotSync(storefrontGateway, catalogRepo, priceRepo, movementRepo)

	// Initialize the webhook dedup store, falling back to memory when Redis
	// is unreachable
	dedupStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}
	defer func() {
		if err := dedupStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Initialize and start background schedulers
	retrySweeper := scheduler.NewRetrySweeper(trackingRepo, reconciler, scheduler.RetrySweeperConfig{
		Enabled:   cfg.Reconcile.SweepEnabled,
		Interval:  cfg.Reconcile.SweepInterval,
		BatchSize: cfg.Reconcile.SweepBatchSize,
	}, log)
	if err := retrySweeper.Start(context.Background()); err != nil {
		log.Fatal("Failed to start retry sweeper", zap.Error(err))
	}
	defer func() {
		if err := retrySweeper.Stop(context.Background()); err != nil {
			log.Error("Error stopping retry sweeper", zap.Error(err))
		}
	}()

	snapshotScheduler := scheduler.NewSnapshotScheduler(snapshotSync, scheduler.SnapshotSchedulerConfig{
		Enabled:  cfg.Snapshot.Enabled,
		Interval: cfg.Snapshot.Interval,
	}, log)
	if err := snapshotScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start snapshot scheduler", zap.Error(err))
	}
	defer func() {
		if err := snapshotScheduler.Stop(context.Background()); err != nil {
			log.Error("Error stopping snapshot scheduler", zap.Error(err))
		}
	}()

	// Initialize HTTP handlers and router
	webhookHandler := handler.NewWebhookHandler(reconciler, dedupStore, cfg.Storefront.WebhookDedupTTL, log)
	adminHandler := handler.NewAdminHandler(reconciler, trackingRepo, snapshotScheduler, log)

	engine := router.New(cfg, log, webhookHandler, adminHandler)

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
