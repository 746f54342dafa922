package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/egannguyen/ecommerce-orders/internal/config"
	httpdelivery "github.com/egannguyen/ecommerce-orders/internal/delivery/http"
	"github.com/egannguyen/ecommerce-orders/internal/discount"
	"github.com/egannguyen/ecommerce-orders/internal/entity"
	"github.com/egannguyen/ecommerce-orders/internal/metrics"
	"github.com/egannguyen/ecommerce-orders/internal/outbox"
	"github.com/egannguyen/ecommerce-orders/internal/platform/observability"
	"github.com/egannguyen/ecommerce-orders/internal/repository/sqlstore"
	"github.com/egannguyen/ecommerce-orders/internal/seed"
	"github.com/egannguyen/ecommerce-orders/internal/service"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Failed to load config: %v", err)
	}

	// --- Observability ---
	logShutdown, err := observability.SetupLoggingSDK(ctx, cfg)
	if err != nil {
		stdlog.Printf("OpenTelemetry logging disabled: %v", err)
	}
	tp, traceShutdown, err := observability.SetupTracingSDK(ctx, cfg)
	if err != nil {
		stdlog.Printf("OpenTelemetry tracing disabled: %v", err)
	}

	provider := global.GetLoggerProvider()
	if cfg.OtelEndpoint == "" {
		provider = nil
	}
	logger, err := observability.NewLogger(cfg.LogLevel, provider)
	if err != nil {
		stdlog.Fatalf("Failed to create logger: %v", err)
	}

	code := 0
	if err := run(ctx, cfg, logger, tp); err != nil {
		logger.Error("Service stopped with error", zap.Error(err))
		code = 1
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := observability.Shutdown(shutdownCtx, traceShutdown, logShutdown); err != nil {
		logger.Error("OpenTelemetry shutdown failed", zap.Error(err))
	}
	logger.Info("Service stopped")
	_ = logger.Sync()
	if code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, tp traceProvider) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	workflowMetrics := metrics.NewWorkflow(registry)
	serverMetrics := metrics.NewServer(registry)

	// --- Database ---
	store, err := sqlstore.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL,
		sqlstore.WithIsolation(cfg.Isolation),
		sqlstore.WithMaxOpenConns(cfg.MaxOpenConns),
		sqlstore.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.SeedData {
		if err := seed.Run(ctx, store, cfg.Currency, time.Now().UTC(), logger); err != nil {
			return err
		}
	}

	// --- Services ---
	policies, err := discount.DefaultPolicies(cfg.Currency, cfg.ExpensiveThreshold, cfg.LowStockThreshold)
	if err != nil {
		return err
	}
	opts := []service.Option{service.WithLogger(logger), service.WithMetrics(workflowMetrics)}
	orders, err := service.NewOrderService(store, service.NewOrderRules(rulesConfig(cfg)), discount.NewEngine(time.Now, policies...), opts...)
	if err != nil {
		return err
	}
	inventory, err := service.NewInventoryService(store, cfg.LowStockThreshold, opts...)
	if err != nil {
		return err
	}

	// --- Outbox relay ---
	publisher, err := newPublisher(cfg, logger, tp)
	if err != nil {
		return err
	}
	defer publisher.Close()

	outboxStore, closeOutbox, err := newOutboxStore(ctx, cfg, store)
	if err != nil {
		return err
	}
	defer closeOutbox()

	relay, err := outbox.NewRelay(outboxStore, publisher,
		outbox.WithTopicPrefix(cfg.TopicPrefix),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithLogger(logger),
		outbox.WithMetrics(workflowMetrics),
	)
	if err != nil {
		return err
	}

	// --- HTTP API ---
	handler := httpdelivery.NewHandler(
		service.NewCommands(orders, inventory),
		service.NewQueries(orders, inventory),
		cfg.Currency, logger, serverMetrics,
	)
	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpdelivery.NewRouter(handler, httpdelivery.RouterConfig{
			Title:    "Order API",
			Version:  config.ServiceVersion,
			Gatherer: registry,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// --- Start everything ---
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return relay.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func rulesConfig(cfg *config.Config) service.RulesConfig {
	rules := service.DefaultRulesConfig(cfg.Currency)
	rules.ShippingBaseFee = cfg.ShippingBaseFee
	rules.ShippingPerKg = cfg.ShippingPerKg
	rules.HomeCountry = cfg.HomeCountry
	rules.InternationalSurcharge = cfg.InternationalSurcharge
	rules.TaxRates[entity.CustomerIndividual] = cfg.TaxRateIndividual
	rules.TaxRates[entity.CustomerBusiness] = cfg.TaxRateBusiness
	return rules
}
