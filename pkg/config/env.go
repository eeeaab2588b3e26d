package config

// EnvPrefix is empty because every field carries its fully qualified variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "BREWCART_APP_ENV"
	EnvPort                   = "BREWCART_APP_PORT"
	EnvDBDSN                  = "BREWCART_DB_DSN"
	EnvDBHost                 = "BREWCART_DB_HOST"
	EnvDBUser                 = "BREWCART_DB_USER"
	EnvDBName                 = "BREWCART_DB_NAME"
	EnvDBPassword             = "BREWCART_DB_PASSWORD"
	EnvRedisURL               = "BREWCART_REDIS_URL"
	EnvJWTSecret              = "BREWCART_JWT_SECRET"
	EnvJWTIssuer              = "BREWCART_JWT_ISSUER"
	EnvJWTExpMins             = "BREWCART_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "BREWCART_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "BREWCART_GCP_PROJECT_ID"
	EnvGCSBucket              = "BREWCART_GCS_BUCKET_NAME"
	EnvGCSUploadExpiry        = "BREWCART_GCS_UPLOAD_URL_EXPIRY"
	EnvPubSubDomainTopic      = "BREWCART_PUBSUB_DOMAIN_TOPIC"
	EnvFeatureStripe          = "BREWCART_FEATURE_STRIPE"
	EnvStripeAPIKey           = "BREWCART_STRIPE_API_KEY"
	EnvRealtimePrefix         = "BREWCART_REALTIME_CHANNEL_PREFIX"
	EnvCheckoutUnpaidTTL      = "BREWCART_CHECKOUT_UNPAID_ORDER_TTL"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
