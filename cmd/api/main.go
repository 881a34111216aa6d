package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tobimartins/servicehub-backend/api/routes"
	internalpayments "github.com/tobimartins/servicehub-backend/internal/payments"
	"github.com/tobimartins/servicehub-backend/internal/payments/reference"
	"github.com/tobimartins/servicehub-backend/internal/providers"
	"github.com/tobimartins/servicehub-backend/internal/providers/flutterwave"
	"github.com/tobimartins/servicehub-backend/internal/providers/manual"
	"github.com/tobimartins/servicehub-backend/internal/providers/paystack"
	"github.com/tobimartins/servicehub-backend/internal/quotes"
	internalwebhooks "github.com/tobimartins/servicehub-backend/internal/webhooks"
	"github.com/tobimartins/servicehub-backend/pkg/config"
	"github.com/tobimartins/servicehub-backend/pkg/db"
	"github.com/tobimartins/servicehub-backend/pkg/logger"
	"github.com/tobimartins/servicehub-backend/pkg/metrics"
	"github.com/tobimartins/servicehub-backend/pkg/migrate"
	"github.com/tobimartins/servicehub-backend/pkg/outbox"
	"github.com/tobimartins/servicehub-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry, err := buildRegistry(cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build provider registry", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	paymentMetrics := metrics.NewPaymentMetrics(promRegistry)

	paymentsRepo := internalpayments.NewRepository(dbClient.DB())
	quotesRepo := quotes.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	generator, err := reference.NewGenerator(reference.Params{
		Prefix:     cfg.Payments.ReferencePrefix,
		MaxRetries: cfg.Payments.ReferenceMaxRetries,
		Exists:     paymentsRepo.ReferenceExists,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build reference generator", err)
		os.Exit(1)
	}

	paymentsService, err := internalpayments.NewService(internalpayments.ServiceParams{
		Repo:      paymentsRepo,
		Quotes:    quotesRepo,
		Registry:  registry,
		Generator: generator,
		Tx:        dbClient,
		Outbox:    outboxService,
		Logger:    logg,
		Metrics:   paymentMetrics,
		Config:    cfg.Payments,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	webhookGuard, err := internalwebhooks.NewIdempotencyGuard(redisClient, cfg.Payments.WebhookEventTTL, "webhooks")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}
	webhookService, err := internalwebhooks.NewService(internalwebhooks.ServiceParams{
		Registry:    registry,
		Payments:    paymentsService,
		Idempotency: webhookGuard,
		Logger:      logg,
		Metrics:     paymentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"providers": registry.Methods(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			redisClient,
			promRegistry,
			paymentsService,
			webhookService,
		),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "error draining api server", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down gracefully")
}

// buildRegistry wires every configured channel. The hosted gateways are
// skipped outside production when their secrets are absent so local
// development can run with manual channels only.
func buildRegistry(cfg *config.Config, logg *logger.Logger) (*providers.Registry, error) {
	var adapters []providers.Adapter

	if cfg.Paystack.SecretKey != "" {
		adapter, err := paystack.New(paystack.Params{
			Config:  cfg.Paystack,
			Timeout: cfg.Payments.ProviderTimeout,
			Logger:  logg,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, adapter)
	} else if cfg.App.IsProd() {
		logg.Warn(context.Background(), "paystack secret not configured, adapter disabled")
	}

	if cfg.Flutterwave.SecretKey != "" && cfg.Flutterwave.WebhookHash != "" {
		adapter, err := flutterwave.New(flutterwave.Params{
			Config:  cfg.Flutterwave,
			Timeout: cfg.Payments.ProviderTimeout,
			Logger:  logg,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, adapter)
	} else if cfg.App.IsProd() {
		logg.Warn(context.Background(), "flutterwave secret not configured, adapter disabled")
	}

	if cfg.BankTransfer.AccountNumber != "" {
		adapter, err := manual.NewBankTransfer(cfg.BankTransfer)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, adapter)
	}

	if cfg.Cash.OfficeAddress != "" {
		adapter, err := manual.NewCash(cfg.Cash)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, adapter)
	}

	return providers.NewRegistry(adapters...)
}
