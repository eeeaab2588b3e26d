package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stripe/stripe-go/v84"

	"github.com/brewcart/brewcart-backend/api/controllers"
	webhookcontrollers "github.com/brewcart/brewcart-backend/api/controllers/webhooks"
	"github.com/brewcart/brewcart-backend/api/middleware"
	"github.com/brewcart/brewcart-backend/internal/auth"
	"github.com/brewcart/brewcart-backend/internal/checkout"
	"github.com/brewcart/brewcart-backend/internal/devices"
	"github.com/brewcart/brewcart-backend/internal/notifications"
	"github.com/brewcart/brewcart-backend/internal/orders"
	"github.com/brewcart/brewcart-backend/internal/payments"
	"github.com/brewcart/brewcart-backend/internal/products"
	"github.com/brewcart/brewcart-backend/internal/realtime"
	"github.com/brewcart/brewcart-backend/internal/settings"
	"github.com/brewcart/brewcart-backend/internal/stores"
	"github.com/brewcart/brewcart-backend/internal/superadmin"
	"github.com/brewcart/brewcart-backend/internal/support"
	"github.com/brewcart/brewcart-backend/pkg/auth/session"
	"github.com/brewcart/brewcart-backend/pkg/config"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	"github.com/brewcart/brewcart-backend/pkg/logger"
)

// replayWindow is how long non-checkout mutations replay their response.
const replayWindow = 24 * time.Hour

// RedisStore is the slice of the redis client the HTTP layer needs.
type RedisStore interface {
	middleware.ReplayStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type realtimeServer interface {
	Serve(w http.ResponseWriter, r *http.Request, storeID uuid.UUID, filter realtime.Filter)
}

type httpObserver interface {
	Observe(method, route string, status int, duration time.Duration)
}

type stripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type stripeEventVerifier interface {
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

// Dependencies carries everything the router hands to controllers. Nil services
// still mount their routes and answer with an internal error.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	Sessions session.AccessSessionChecker
	Redis    RedisStore
	Health   []controllers.NamedPinger

	HTTPMetrics     httpObserver
	MetricsGatherer prometheus.Gatherer

	Memberships middleware.MembershipChecker

	Auth          auth.Service
	Register      auth.RegisterService
	SwitchStore   auth.SwitchStoreService
	Stores        stores.Service
	Settings      settings.Service
	Products      products.Service
	Checkout      checkout.Service
	Payments      payments.Service
	Orders        orders.Service
	Notifications notifications.Service
	Devices       devices.Service
	Realtime      realtimeServer
	Support       support.Service
	SuperAdmin    superadmin.Service

	StripeWebhook  stripeWebhookService
	StripeVerifier stripeEventVerifier
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)
	if deps.HTTPMetrics != nil {
		r.Use(middleware.Metrics(deps.HTTPMetrics))
	}

	limits := cfg.RateLimit
	loginPolicy := middleware.RateLimitPolicy{
		Surface: "login",
		Window:  limits.LoginWindow,
		Keys:    []middleware.RateLimitKey{middleware.ByClientIP(limits.LoginIPLimit), middleware.ByBodyEmail(limits.LoginEmailLimit)},
	}
	registerPolicy := middleware.RateLimitPolicy{
		Surface: "register",
		Window:  limits.RegisterWindow,
		Keys:    []middleware.RateLimitKey{middleware.ByClientIP(limits.RegisterIPLimit), middleware.ByBodyEmail(limits.RegisterEmailLimit)},
	}
	supportPolicy := middleware.RateLimitPolicy{
		Surface: "support",
		Window:  limits.SupportWindow,
		Keys:    []middleware.RateLimitKey{middleware.ByClientIP(limits.SupportIPLimit)},
	}

	limiter := deps.Redis
	idempotent := func(surface string, ttl time.Duration) func(http.Handler) http.Handler {
		return middleware.Idempotency(middleware.IdempotencyPolicy{Surface: surface, TTL: ttl}, deps.Redis, logg)
	}
	authenticate := middleware.Auth(cfg.JWT, deps.Sessions, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Health...))
	})
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(loginPolicy, limiter, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.With(middleware.RateLimit(registerPolicy, limiter, logg), idempotent("register", replayWindow)).Post("/register", controllers.AuthRegister(deps.Register, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		r.With(authenticate).Post("/logout", controllers.AuthLogout(deps.Auth, logg))
		r.With(authenticate).Post("/switch-store", controllers.AuthSwitchStore(deps.SwitchStore, cfg.JWT, logg))
	})

	r.Route("/api/v1/storefront/{slug}", func(r chi.Router) {
		r.Get("/", controllers.StorefrontStore(deps.Stores, logg))
		r.Get("/products", controllers.StorefrontProductList(deps.Stores, deps.Products, logg))
		r.Get("/products/{productId}", controllers.StorefrontProductGet(deps.Stores, deps.Products, logg))
		r.Get("/payment-methods", controllers.StorefrontPaymentMethods(deps.Stores, deps.Payments, logg))
		r.With(idempotent("checkout", cfg.Checkout.IdempotencyTTL)).Post("/checkout", controllers.StorefrontCheckout(deps.Checkout, logg))
		r.Get("/orders/{orderId}", controllers.StorefrontTrackOrder(deps.Checkout, logg))
	})

	r.With(middleware.RateLimit(supportPolicy, limiter, logg)).
		Post("/api/v1/support", controllers.SupportCreate(deps.Support, logg))

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhook, deps.StripeVerifier, logg))
	})

	anyMember := []enums.MemberRole{enums.MemberRoleOwner, enums.MemberRoleManager, enums.MemberRoleStaff}
	managers := []enums.MemberRole{enums.MemberRoleOwner, enums.MemberRoleManager}

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(middleware.RequireStore(logg))
		r.Use(middleware.RequireStoreRoles(deps.Memberships, logg, anyMember...))

		manage := middleware.RequireStoreRoles(deps.Memberships, logg, managers...)

		r.Get("/store", controllers.StoreProfile(deps.Stores, logg))
		r.With(manage).Put("/store", controllers.StoreUpdate(deps.Stores, logg))
		r.Get("/settings", controllers.StoreSettingsGet(deps.Settings, logg))
		r.With(manage).Put("/settings", controllers.StoreSettingsUpdate(deps.Settings, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.AdminProductList(deps.Products, logg))
			r.With(manage, idempotent("product_create", replayWindow)).Post("/", controllers.AdminProductCreate(deps.Products, logg))
			r.Get("/{productId}", controllers.AdminProductGet(deps.Products, logg))
			r.With(manage).Patch("/{productId}", controllers.AdminProductUpdate(deps.Products, logg))
			r.With(manage).Delete("/{productId}", controllers.AdminProductDelete(deps.Products, logg))
			r.With(idempotent("stock_adjust", replayWindow)).Post("/{productId}/stock", controllers.AdminProductAdjustStock(deps.Products, logg))
			r.With(manage).Post("/{productId}/images", controllers.AdminProductImageUpload(deps.Products, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrderList(deps.Orders, logg))
			r.Get("/{orderId}", controllers.AdminOrderGet(deps.Orders, logg))
			r.With(idempotent("order_status", replayWindow)).Patch("/{orderId}/status", controllers.AdminOrderUpdateStatus(deps.Orders, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})

		r.Post("/devices", controllers.RegisterDevice(deps.Devices, logg))
		r.Delete("/devices", controllers.UnregisterDevice(deps.Devices, logg))

		r.Get("/realtime", controllers.RealtimeStream(deps.Realtime, logg))

		r.Get("/support", controllers.SupportListForStore(deps.Support, logg))
		r.Post("/support", controllers.SupportCreate(deps.Support, logg))
	})

	r.Route("/api/v1/superadmin", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(middleware.RequireRole(logg, enums.MemberRoleSuperAdmin))

		r.Get("/stores", controllers.SuperAdminStores(deps.SuperAdmin, logg))
		r.Patch("/stores/{storeId}", controllers.SuperAdminSetStoreActive(deps.SuperAdmin, logg))
		r.Get("/orders", controllers.SuperAdminOrders(deps.SuperAdmin, logg))
		r.Get("/overview", controllers.SuperAdminOverview(deps.SuperAdmin, logg))
		r.Post("/super-admins", controllers.SuperAdminGrant(deps.SuperAdmin, logg))
		r.Get("/support", controllers.SupportListAll(deps.Support, logg))
		r.Patch("/support/{requestId}", controllers.SupportUpdate(deps.Support, logg))
	})

	return r
}
