package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	GCS          GCSConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
	Stripe       StripeConfig
	FCM          FCMConfig
	Realtime     RealtimeConfig
	Checkout     CheckoutConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if cfg.FeatureFlags.Stripe && strings.TrimSpace(cfg.Stripe.APIKey) == "" {
		return nil, fmt.Errorf("%s is required when %s is enabled", EnvStripeAPIKey, EnvFeatureStripe)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env           string   `envconfig:"BREWCART_APP_ENV" required:"true"`
	Port          string   `envconfig:"BREWCART_APP_PORT" required:"true"`
	PublicBaseURL string   `envconfig:"BREWCART_PUBLIC_BASE_URL" default:"http://localhost:3000"`
	CORSOrigins   []string `envconfig:"BREWCART_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	LogLevel      string   `envconfig:"BREWCART_LOG_LEVEL" default:"info"`
	LogWarnStack  bool     `envconfig:"BREWCART_LOG_WARN_STACK" default:"false"`
	LogFormat     string   `envconfig:"BREWCART_LOG_FORMAT" default:"json"`
	// MetricsPort exposes /metrics on background processes; empty disables it.
	MetricsPort string `envconfig:"BREWCART_METRICS_PORT"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"BREWCART_DB_DSN"`
	Driver string `envconfig:"BREWCART_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"BREWCART_DB_HOST"`
	Port     int    `envconfig:"BREWCART_DB_PORT" default:"5432"`
	User     string `envconfig:"BREWCART_DB_USER"`
	Password string `envconfig:"BREWCART_DB_PASSWORD"`
	Name     string `envconfig:"BREWCART_DB_NAME"`
	SSLMode  string `envconfig:"BREWCART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BREWCART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BREWCART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BREWCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BREWCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"BREWCART_DB_SLOW_QUERY_THRESHOLD" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BREWCART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BREWCART_REDIS_ADDR"`
	Password     string        `envconfig:"BREWCART_REDIS_PASSWORD"`
	DB           int           `envconfig:"BREWCART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BREWCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BREWCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BREWCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BREWCART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BREWCART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"BREWCART_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"BREWCART_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"BREWCART_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"BREWCART_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BREWCART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BREWCART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BREWCART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BREWCART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BREWCART_ARGON_KEY_LEN" default:"32"`
}

type RateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"BREWCART_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"BREWCART_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"BREWCART_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"BREWCART_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"BREWCART_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"BREWCART_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	SupportWindow      time.Duration `envconfig:"BREWCART_SUPPORT_RATE_LIMIT_WINDOW" default:"10m"`
	SupportIPLimit     int           `envconfig:"BREWCART_SUPPORT_RATE_LIMIT_IP_LIMIT" default:"5"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BREWCART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BREWCART_AUTO_MIGRATE" default:"false"`
	Push        bool `envconfig:"BREWCART_FEATURE_PUSH" default:"false"`
	Analytics   bool `envconfig:"BREWCART_FEATURE_ANALYTICS" default:"false"`
	Stripe      bool `envconfig:"BREWCART_FEATURE_STRIPE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL  time.Duration `envconfig:"BREWCART_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	WebhookIdempotencyTTL time.Duration `envconfig:"BREWCART_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BREWCART_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"BREWCART_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BREWCART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName      string        `envconfig:"BREWCART_GCS_BUCKET_NAME" required:"true"`
	UploadURLExpiry time.Duration `envconfig:"BREWCART_GCS_UPLOAD_URL_EXPIRY" default:"15m"`
	PublicBaseURL   string        `envconfig:"BREWCART_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

type PubSubConfig struct {
	DomainTopic              string `envconfig:"BREWCART_PUBSUB_DOMAIN_TOPIC" required:"true"`
	NotificationSubscription string `envconfig:"BREWCART_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"brewcart-notifications"`
	PushSubscription         string `envconfig:"BREWCART_PUBSUB_PUSH_SUBSCRIPTION" default:"brewcart-push"`
	RealtimeSubscription     string `envconfig:"BREWCART_PUBSUB_REALTIME_SUBSCRIPTION" default:"brewcart-realtime"`
	AnalyticsSubscription    string `envconfig:"BREWCART_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"brewcart-analytics"`
	MaxOutstandingMessages   int    `envconfig:"BREWCART_PUBSUB_MAX_OUTSTANDING" default:"50"`
}

type BigQueryConfig struct {
	Dataset          string `envconfig:"BREWCART_BIGQUERY_DATASET" default:"brewcart"`
	OrderEventsTable string `envconfig:"BREWCART_BIGQUERY_ORDER_EVENTS_TABLE" default:"order_events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"BREWCART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"BREWCART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"BREWCART_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"BREWCART_OUTBOX_RETENTION" default:"168h"`
}

type StripeConfig struct {
	APIKey string `envconfig:"BREWCART_STRIPE_API_KEY"`
	Secret string `envconfig:"BREWCART_STRIPE_WEBHOOK_SECRET"`
	Env    string `envconfig:"BREWCART_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type FCMConfig struct {
	// ProjectID falls back to the GCP project when empty.
	ProjectID      string  `envconfig:"BREWCART_FCM_PROJECT_ID"`
	RatePerSecond  float64 `envconfig:"BREWCART_FCM_RATE_PER_SECOND" default:"20"`
	Burst          int     `envconfig:"BREWCART_FCM_BURST" default:"10"`
	DefaultLinkURL string  `envconfig:"BREWCART_FCM_DEFAULT_LINK" default:"/admin/orders"`
	// LinkBaseURL resolves relative links; empty falls back to the app public base URL.
	// Web push only accepts https links, so other origins drop the link.
	LinkBaseURL string `envconfig:"BREWCART_FCM_LINK_BASE_URL"`
}

type RealtimeConfig struct {
	ChannelPrefix    string        `envconfig:"BREWCART_REALTIME_CHANNEL_PREFIX" default:"bc:realtime"`
	SubscriberBuffer int           `envconfig:"BREWCART_REALTIME_SUBSCRIBER_BUFFER" default:"64"`
	PingInterval     time.Duration `envconfig:"BREWCART_REALTIME_PING_INTERVAL" default:"30s"`
	WriteTimeout     time.Duration `envconfig:"BREWCART_REALTIME_WRITE_TIMEOUT" default:"10s"`
	AllowedOrigins   []string      `envconfig:"BREWCART_REALTIME_ALLOWED_ORIGINS"`
}

type CheckoutConfig struct {
	UnpaidOrderTTL  time.Duration `envconfig:"BREWCART_CHECKOUT_UNPAID_ORDER_TTL" default:"2h"`
	IdempotencyTTL  time.Duration `envconfig:"BREWCART_CHECKOUT_IDEMPOTENCY_TTL" default:"24h"`
	MaxLinesPerCart int           `envconfig:"BREWCART_CHECKOUT_MAX_LINES" default:"50"`
}

type CronConfig struct {
	TickInterval time.Duration `envconfig:"BREWCART_CRON_TICK_INTERVAL" default:"1m"`
	LockTTL      time.Duration `envconfig:"BREWCART_CRON_LOCK_TTL" default:"10m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbPartEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
