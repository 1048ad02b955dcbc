package config

// EnvPrefix scopes every environment variable read by Load.
const EnvPrefix = "AFYAKART"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv    = "AFYAKART_APP_ENV"
	EnvPort      = "AFYAKART_APP_PORT"
	EnvDBDSN     = "AFYAKART_DB_DSN"
	EnvDBHost    = "AFYAKART_DB_HOST"
	EnvDBUser    = "AFYAKART_DB_USER"
	EnvDBName    = "AFYAKART_DB_NAME"
	EnvRedisURL  = "AFYAKART_REDIS_URL"
	EnvJWTSecret = "AFYAKART_JWT_SECRET"
	EnvJWTIssuer = "AFYAKART_JWT_ISSUER"

	EnvGCPProjectID          = "AFYAKART_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic     = "AFYAKART_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub       = "AFYAKART_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvPubSubPaymentsTopic   = "AFYAKART_PUBSUB_PAYMENTS_TOPIC"
	EnvPubSubPaymentsSub     = "AFYAKART_PUBSUB_PAYMENTS_SUBSCRIPTION"
	EnvPubSubNotificationSub = "AFYAKART_PUBSUB_NOTIFICATION_SUBSCRIPTION"

	EnvMpesaEnv         = "AFYAKART_MPESA_ENV"
	EnvMpesaConsumerKey = "AFYAKART_MPESA_CONSUMER_KEY"
	EnvMpesaShortCode   = "AFYAKART_MPESA_SHORT_CODE"
	EnvMpesaCallbackURL = "AFYAKART_MPESA_CALLBACK_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
