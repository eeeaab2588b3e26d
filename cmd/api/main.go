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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/brewcart/brewcart-backend/api"
	"github.com/brewcart/brewcart-backend/api/controllers"
	"github.com/brewcart/brewcart-backend/api/routes"
	"github.com/brewcart/brewcart-backend/internal/auth"
	"github.com/brewcart/brewcart-backend/internal/checkout"
	"github.com/brewcart/brewcart-backend/internal/devices"
	"github.com/brewcart/brewcart-backend/internal/memberships"
	"github.com/brewcart/brewcart-backend/internal/notifications"
	"github.com/brewcart/brewcart-backend/internal/orders"
	"github.com/brewcart/brewcart-backend/internal/payments"
	"github.com/brewcart/brewcart-backend/internal/products"
	"github.com/brewcart/brewcart-backend/internal/realtime"
	"github.com/brewcart/brewcart-backend/internal/settings"
	"github.com/brewcart/brewcart-backend/internal/stores"
	"github.com/brewcart/brewcart-backend/internal/superadmin"
	"github.com/brewcart/brewcart-backend/internal/support"
	"github.com/brewcart/brewcart-backend/internal/users"
	stripewebhook "github.com/brewcart/brewcart-backend/internal/webhooks/stripe"
	"github.com/brewcart/brewcart-backend/pkg/auth/session"
	"github.com/brewcart/brewcart-backend/pkg/config"
	"github.com/brewcart/brewcart-backend/pkg/db"
	"github.com/brewcart/brewcart-backend/pkg/instance"
	"github.com/brewcart/brewcart-backend/pkg/logger"
	"github.com/brewcart/brewcart-backend/pkg/metrics"
	"github.com/brewcart/brewcart-backend/pkg/migrate"
	"github.com/brewcart/brewcart-backend/pkg/outbox"
	"github.com/brewcart/brewcart-backend/pkg/outbox/idempotency"
	"github.com/brewcart/brewcart-backend/pkg/redis"
	"github.com/brewcart/brewcart-backend/pkg/storage/gcs"
	pkgstripe "github.com/brewcart/brewcart-backend/pkg/stripe"
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
		Console:     cfg.App.LogFormat == "console",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
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

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		return fmt.Errorf("bootstrap gcs: %w", err)
	}
	closers = append(closers, gcsClient.Close)

	var stripeClient *pkgstripe.Client
	if cfg.FeatureFlags.Stripe {
		stripeClient, err = pkgstripe.NewClient(ctx, cfg.Stripe, logg)
		if err != nil {
			return fmt.Errorf("bootstrap stripe: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps, err := buildDependencies(cfg, logg, dbClient, redisClient, gcsClient, stripeClient, reg)
	if err != nil {
		return err
	}

	hub, err := realtime.NewHub(realtime.HubParams{
		Source:           redisClient,
		ChannelPrefix:    cfg.Realtime.ChannelPrefix,
		SubscriberBuffer: cfg.Realtime.SubscriberBuffer,
		Logger:           logg,
	})
	if err != nil {
		return fmt.Errorf("realtime hub: %w", err)
	}
	wsServer, err := realtime.NewWSServer(realtime.WSServerParams{
		Hub:            hub,
		PingInterval:   cfg.Realtime.PingInterval,
		WriteTimeout:   cfg.Realtime.WriteTimeout,
		AllowedOrigins: cfg.Realtime.AllowedOrigins,
		Logger:         logg,
	})
	if err != nil {
		return fmt.Errorf("realtime websocket server: %w", err)
	}
	deps.Realtime = wsServer

	go func() {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "realtime hub stopped", err)
		}
	}()

	addr := ":" + cfg.App.Port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	return api.Serve(ctx, api.NewServer(addr, routes.NewRouter(deps)), logg)
}

func buildDependencies(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	gcsClient *gcs.Client,
	stripeClient *pkgstripe.Client,
	reg *prometheus.Registry,
) (routes.Dependencies, error) {
	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("session manager: %w", err)
	}

	usersRepo := users.NewRepository(conn)
	membershipsRepo := memberships.NewRepository(conn)
	storeRepo := stores.NewRepository(conn)
	superAdminRepo := superadmin.NewRepository(conn)
	productRepo := products.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)

	storeSvc, err := stores.NewService(dbClient, storeRepo, emitter)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("store service: %w", err)
	}
	settingsSvc, err := settings.NewService(settings.ServiceParams{
		Tx:            dbClient,
		Repo:          settings.NewRepository(conn),
		Outbox:        emitter,
		StripeEnabled: cfg.FeatureFlags.Stripe,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("settings service: %w", err)
	}

	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:        usersRepo,
		MembershipsRepo: membershipsRepo,
		SuperAdmins:     superAdminRepo,
		SessionManager:  sessionManager,
		JWTConfig:       cfg.JWT,
		PasswordConfig:  cfg.Password,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("auth service: %w", err)
	}
	registerSvc, err := auth.NewRegisterService(auth.RegisterServiceParams{
		Tx:             dbClient,
		Settings:       settingsSvc,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("register service: %w", err)
	}
	switchSvc, err := auth.NewSwitchStoreService(auth.SwitchStoreServiceParams{
		MembershipsRepo: membershipsRepo,
		StoreRepo:       storeRepo,
		SessionManager:  sessionManager,
		JWTConfig:       cfg.JWT,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("switch store service: %w", err)
	}

	productSvc, err := products.NewService(products.ServiceParams{
		Tx:       dbClient,
		Repo:     productRepo,
		Outbox:   emitter,
		Uploads:  gcsClient,
		Settings: settingsSvc,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("product service: %w", err)
	}

	var (
		gateway payments.Gateway
		intents orders.IntentCanceler
	)
	if stripeClient != nil {
		stripeGateway, err := payments.NewStripeGateway(stripeClient)
		if err != nil {
			return routes.Dependencies{}, fmt.Errorf("stripe gateway: %w", err)
		}
		gateway, intents = stripeGateway, stripeGateway
	}

	orderSvc, err := orders.NewService(orders.ServiceParams{
		Tx:        dbClient,
		Repo:      orderRepo,
		Outbox:    emitter,
		Inventory: products.NewStockReleaser(productRepo),
		Intents:   intents,
		Logger:    logg,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("order service: %w", err)
	}

	paymentSvc, err := payments.NewService(settingsSvc, cfg.FeatureFlags.Stripe)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("payment service: %w", err)
	}

	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		Tx:       dbClient,
		Stores:   storeSvc,
		Settings: settingsSvc,
		Products: productRepo,
		Orders:   orderRepo,
		OrderSvc: orderSvc,
		Outbox:   emitter,
		Gateway:  gateway,
		Metrics:  metrics.NewCommerceMetrics(reg),
		Logger:   logg,
		MaxLines: cfg.Checkout.MaxLinesPerCart,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("checkout service: %w", err)
	}

	notificationSvc, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("notification service: %w", err)
	}
	deviceSvc, err := devices.NewService(devices.NewRepository(conn))
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("device service: %w", err)
	}
	supportSvc, err := support.NewService(dbClient, support.NewRepository(conn), emitter)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("support service: %w", err)
	}
	superAdminSvc, err := superadmin.NewService(superadmin.ServiceParams{
		Tx:     dbClient,
		Repo:   superAdminRepo,
		Stores: storeRepo,
		Users:  usersRepo,
		Orders: orderSvc,
		Outbox: emitter,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("superadmin service: %w", err)
	}

	deps := routes.Dependencies{
		Config:   cfg,
		Logger:   logg,
		Sessions: sessionManager,
		Redis:    redisClient,
		Health: []controllers.NamedPinger{
			{Name: "database", Pinger: dbClient},
			{Name: "redis", Pinger: redisClient},
			{Name: "gcs", Pinger: gcsClient},
		},
		HTTPMetrics:     metrics.NewHTTPMetrics(reg),
		MetricsGatherer: reg,
		Memberships:     membershipsRepo,

		Auth:          authSvc,
		Register:      registerSvc,
		SwitchStore:   switchSvc,
		Stores:        storeSvc,
		Settings:      settingsSvc,
		Products:      productSvc,
		Checkout:      checkoutSvc,
		Payments:      paymentSvc,
		Orders:        orderSvc,
		Notifications: notificationSvc,
		Devices:       deviceSvc,
		Support:       supportSvc,
		SuperAdmin:    superAdminSvc,
	}

	if stripeClient != nil {
		guard, err := idempotency.NewManager(redisClient, cfg.Eventing.WebhookIdempotencyTTL)
		if err != nil {
			return routes.Dependencies{}, fmt.Errorf("webhook idempotency: %w", err)
		}
		webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
			Payments: orderSvc,
			Guard:    guard,
			Logger:   logg,
		})
		if err != nil {
			return routes.Dependencies{}, fmt.Errorf("stripe webhook service: %w", err)
		}
		deps.StripeWebhook = webhookSvc
		deps.StripeVerifier = stripeClient
	}

	return deps, nil
}
