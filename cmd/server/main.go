package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/nats-io/nats.go"

	"github.com/dukerupert/vidar/internal"
	"github.com/dukerupert/vidar/internal/billing"
	"github.com/dukerupert/vidar/internal/handler/api"
	"github.com/dukerupert/vidar/internal/middleware"
	"github.com/dukerupert/vidar/internal/notify"
	"github.com/dukerupert/vidar/internal/orders"
	"github.com/dukerupert/vidar/internal/postgres"
	"github.com/dukerupert/vidar/internal/router"
	"github.com/dukerupert/vidar/internal/service"
	"github.com/dukerupert/vidar/internal/shipping"
	"github.com/dukerupert/vidar/internal/tax"
	"github.com/dukerupert/vidar/internal/telemetry"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info("Database connection established")

	// Run migrations
	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize pgx connection pool for application reads
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()
	orderReader := postgres.NewOrderReader(pool)

	// Initialize Stripe billing provider
	billingProvider := billing.NewStripeProvider(cfg.Stripe.SecretKey)
	logger.Info("Stripe billing provider initialized")

	// Initialize shipping provider (flat rate for MVP)
	shippingProvider := shipping.NewFlatRateProvider(
		cfg.Shipping.ServiceName,
		cfg.Shipping.FlatRateCents,
		cfg.Shipping.FreeAboveSubTotal,
	)

	// Initialize tax rates (fixed rate for MVP)
	rateProvider := tax.NewFixedRateProvider(cfg.Tax.StandardRate, cfg.Tax.ShippingRate)

	// Notification sink: NATS when configured, structured log otherwise
	var notifier notify.Sink
	if cfg.Nats.Enabled {
		nc, err := nats.Connect(cfg.Nats.URL)
		if err != nil {
			return fmt.Errorf("NATS connection failed: %w", err)
		}
		defer nc.Drain()
		notifier = notify.NewNATSSink(nc, logger)
		logger.Info("NATS notification sink initialized", "url", cfg.Nats.URL)
	} else {
		notifier = notify.NewLogSink(logger)
	}

	// Order store backing the modification workflow.
	// TODO: replace with a Postgres-backed orders.Mutator once the
	// write queries land; reads already go through the pool.
	store := orders.NewStore(orders.StoreConfig{
		Rates:         rateProvider,
		Shipping:      shippingProvider,
		Billing:       billingProvider,
		MaxOrderLines: cfg.Limits.MaxOrderLines,
		MaxOrderValue: cfg.Limits.MaxOrderValue,
		Logger:        logger,
	})

	// Business metrics
	metrics := telemetry.NewMetrics("vidar")

	// Modification engine
	engine, err := service.NewEngine(service.EngineConfig{
		Mutator:      store,
		Transitioner: store,
		Reader:       store,
		History:      store,
		Notifier:     notifier,
		Metrics:      metrics,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize modification engine: %w", err)
	}

	// HTTP metrics and router
	httpMetrics := middleware.NewMetrics("vidar")
	r := router.New(
		middleware.RequestID,
		router.Recovery(logger),
		router.Logger(logger),
		httpMetrics.Middleware,
	)

	modHandler := api.NewModificationHandler(engine, logger)
	orderHandler := api.NewOrderHandler(store)
	dbOrderHandler := api.NewOrderHandler(orderReader)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle(http.MethodGet, "/metrics", httpMetrics.Handler())

	r.Get("/orders/{id}", orderHandler.Get)
	r.Get("/archive/orders/{id}", dbOrderHandler.Get)
	r.Post("/orders/{id}/modification", modHandler.Start)
	r.Post("/orders/{id}/modification/preview", modHandler.Preview)
	r.Post("/orders/{id}/modification/commit", modHandler.Commit)
	r.Post("/orders/{id}/modification/cancel", modHandler.CancelPreview)
	r.Delete("/orders/{id}/modification", modHandler.Close)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
