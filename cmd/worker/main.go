package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/brewcart/brewcart-backend/internal/analytics"
	"github.com/brewcart/brewcart-backend/internal/consumers"
	"github.com/brewcart/brewcart-backend/internal/devices"
	"github.com/brewcart/brewcart-backend/internal/notifications"
	"github.com/brewcart/brewcart-backend/internal/realtime"
	"github.com/brewcart/brewcart-backend/internal/settings"
	"github.com/brewcart/brewcart-backend/pkg/bigquery"
	"github.com/brewcart/brewcart-backend/pkg/config"
	"github.com/brewcart/brewcart-backend/pkg/db"
	"github.com/brewcart/brewcart-backend/pkg/instance"
	"github.com/brewcart/brewcart-backend/pkg/logger"
	"github.com/brewcart/brewcart-backend/pkg/metrics"
	"github.com/brewcart/brewcart-backend/pkg/migrate"
	"github.com/brewcart/brewcart-backend/pkg/outbox"
	"github.com/brewcart/brewcart-backend/pkg/outbox/idempotency"
	"github.com/brewcart/brewcart-backend/pkg/pubsub"
	"github.com/brewcart/brewcart-backend/pkg/push"
	"github.com/brewcart/brewcart-backend/pkg/redis"
)

const serviceName = "worker"

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
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"service":  serviceName,
		"instance": instance.GetID(),
	})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "worker shutting down gracefully")
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

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg,
		pubsub.WorkerSubscriptions(cfg.PubSub, cfg.FeatureFlags.Analytics)...)
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	closers = append(closers, pubsubClient.Close)

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return fmt.Errorf("idempotency manager: %w", err)
	}

	deps := []dependency{
		{name: "database", ping: dbClient.Ping},
		{name: "redis", ping: redisClient.Ping},
		{name: "pubsub", ping: pubsubClient.Ping},
	}

	var runners []runner
	addRunner := func(subscription string, handler consumers.Handler) error {
		r, err := consumers.NewRunner(pubsubClient.Subscriber(subscription), handler, manager, logg)
		if err != nil {
			return fmt.Errorf("%s consumer: %w", handler.Name(), err)
		}
		runners = append(runners, r)
		return nil
	}

	conn := dbClient.DB()

	notificationConsumer, err := notifications.NewConsumer(notifications.NewRepository(conn), logg)
	if err != nil {
		return fmt.Errorf("notification consumer: %w", err)
	}
	if err := addRunner(cfg.PubSub.NotificationSubscription, notificationConsumer); err != nil {
		return err
	}

	realtimePublisher, err := realtime.NewPublisher(redisClient, cfg.Realtime.ChannelPrefix)
	if err != nil {
		return fmt.Errorf("realtime publisher: %w", err)
	}
	relay, err := realtime.NewRelay(realtimePublisher, logg)
	if err != nil {
		return fmt.Errorf("realtime relay: %w", err)
	}
	if err := addRunner(cfg.PubSub.RealtimeSubscription, relay); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()

	if cfg.FeatureFlags.Push {
		fcmCfg := cfg.FCM
		if strings.TrimSpace(fcmCfg.LinkBaseURL) == "" {
			fcmCfg.LinkBaseURL = cfg.App.PublicBaseURL
		}
		sender, err := push.NewFCMSender(ctx, cfg.GCP, fcmCfg, logg)
		if err != nil {
			return fmt.Errorf("bootstrap fcm: %w", err)
		}
		settingsSvc, err := settings.NewService(settings.ServiceParams{
			Tx:            dbClient,
			Repo:          settings.NewRepository(conn),
			Outbox:        outbox.NewService(outbox.NewRepository(conn), logg),
			StripeEnabled: cfg.FeatureFlags.Stripe,
		})
		if err != nil {
			return fmt.Errorf("settings service: %w", err)
		}
		pushConsumer, err := devices.NewPushConsumer(devices.PushConsumerParams{
			Devices:  devices.NewRepository(conn),
			Settings: settingsSvc,
			Sender:   sender,
			Metrics:  metrics.NewCommerceMetrics(reg),
			Logger:   logg,
		})
		if err != nil {
			return fmt.Errorf("push consumer: %w", err)
		}
		if err := addRunner(cfg.PubSub.PushSubscription, pushConsumer); err != nil {
			return err
		}
	}

	if cfg.FeatureFlags.Analytics {
		bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
		if err != nil {
			return fmt.Errorf("bootstrap bigquery: %w", err)
		}
		closers = append(closers, bqClient.Close)
		deps = append(deps, dependency{name: "bigquery", ping: bqClient.Ping})

		writer, err := analytics.NewWriter(bqClient, analytics.WriterConfig{Table: bqClient.OrderEventsTable()})
		if err != nil {
			return fmt.Errorf("analytics writer: %w", err)
		}
		analyticsConsumer, err := analytics.NewConsumer(writer, logg)
		if err != nil {
			return fmt.Errorf("analytics consumer: %w", err)
		}
		if err := addRunner(cfg.PubSub.AnalyticsSubscription, analyticsConsumer); err != nil {
			return err
		}
	}

	stopMetrics := metrics.Serve(ctx, cfg.App.MetricsPort, reg, logg)
	defer stopMetrics()

	service, err := NewService(ServiceParams{Logger: logg, Dependencies: deps, Runners: runners})
	if err != nil {
		return fmt.Errorf("create worker: %w", err)
	}

	logg.Info(ctx, "starting worker")
	return service.Run(ctx)
}
