package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/brewcart/brewcart-backend/internal/cron"
	"github.com/brewcart/brewcart-backend/internal/notifications"
	"github.com/brewcart/brewcart-backend/internal/orders"
	"github.com/brewcart/brewcart-backend/internal/payments"
	"github.com/brewcart/brewcart-backend/internal/products"
	"github.com/brewcart/brewcart-backend/pkg/config"
	"github.com/brewcart/brewcart-backend/pkg/db"
	"github.com/brewcart/brewcart-backend/pkg/logger"
	"github.com/brewcart/brewcart-backend/pkg/metrics"
	"github.com/brewcart/brewcart-backend/pkg/migrate"
	"github.com/brewcart/brewcart-backend/pkg/outbox"
	"github.com/brewcart/brewcart-backend/pkg/redis"
	pkgstripe "github.com/brewcart/brewcart-backend/pkg/stripe"
)

const serviceName = "cron-worker"

// Schedules use the standard five-field cron syntax.
const (
	unpaidOrderSchedule         = "*/5 * * * *"
	notificationCleanupSchedule = "15 3 * * *"
	outboxRetentionSchedule     = "45 3 * * *"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.LogFormat == "console",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "service": serviceName})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
	}()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	closers = append(closers, dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	closers = append(closers, redisClient.Close)

	registry, err := buildRegistry(ctx, cfg, logg, dbClient)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Locks:    cron.RedisLocks(redisClient, cfg.Cron.LockTTL),
		Metrics:  metrics.NewCronJobMetrics(reg),
		Tick:     cfg.Cron.TickInterval,
	})
	if err != nil {
		return fmt.Errorf("create cron service: %w", err)
	}

	stopMetrics := metrics.Serve(ctx, cfg.App.MetricsPort, reg, logg)
	defer stopMetrics()

	logg.Info(ctx, "starting cron worker")
	return service.Run(ctx)
}

func buildRegistry(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	conn := dbClient.DB()

	var intents orders.IntentCanceler
	if cfg.FeatureFlags.Stripe {
		stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap stripe: %w", err)
		}
		gateway, err := payments.NewStripeGateway(stripeClient)
		if err != nil {
			return nil, fmt.Errorf("stripe gateway: %w", err)
		}
		intents = gateway
	}

	productRepo := products.NewRepository(conn)
	orderSvc, err := orders.NewService(orders.ServiceParams{
		Tx:        dbClient,
		Repo:      orders.NewRepository(conn),
		Outbox:    outbox.NewService(outbox.NewRepository(conn), logg),
		Inventory: products.NewStockReleaser(productRepo),
		Intents:   intents,
		Logger:    logg,
	})
	if err != nil {
		return nil, fmt.Errorf("order service: %w", err)
	}

	unpaid, err := cron.NewUnpaidOrderJob(cron.UnpaidOrderJobParams{
		Logger: logg,
		Orders: orderSvc,
		TTL:    cfg.Checkout.UnpaidOrderTTL,
	})
	if err != nil {
		return nil, err
	}
	cleanup, err := cron.NewRetentionJob(cron.RetentionJobParams{
		Name:     "notification-cleanup",
		Logger:   logg,
		Prune:    notifications.NewRepository(conn).DeleteReadBefore,
		Fallback: cron.NotificationRetention,
	})
	if err != nil {
		return nil, err
	}
	retention, err := cron.NewRetentionJob(cron.RetentionJobParams{
		Name:      "outbox-retention",
		Logger:    logg,
		Prune:     outbox.NewRepository(conn).DeletePublishedBefore,
		Retention: cfg.Outbox.Retention,
		Fallback:  cron.OutboxRetention,
	})
	if err != nil {
		return nil, err
	}

	registry := cron.NewRegistry()
	jobs := []struct {
		spec string
		job  cron.Job
	}{
		{unpaidOrderSchedule, unpaid},
		{notificationCleanupSchedule, cleanup},
		{outboxRetentionSchedule, retention},
	}
	for _, j := range jobs {
		if err := registry.Register(j.spec, j.job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
