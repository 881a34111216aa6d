package config

const (
	EnvPrefix = "SERVICEHUB"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv   = "SERVICEHUB_APP_ENV"
	EnvPort     = "SERVICEHUB_APP_PORT"
	EnvDBDSN    = "SERVICEHUB_DB_DSN"
	EnvDBHost   = "SERVICEHUB_DB_HOST"
	EnvDBUser   = "SERVICEHUB_DB_USER"
	EnvDBName   = "SERVICEHUB_DB_NAME"
	EnvRedisURL = "SERVICEHUB_REDIS_URL"

	EnvJWTSecret  = "SERVICEHUB_JWT_SECRET"
	EnvJWTIssuer  = "SERVICEHUB_JWT_ISSUER"
	EnvJWTExpMins = "SERVICEHUB_JWT_EXPIRATION_MINUTES"

	EnvPaystackSecretKey      = "SERVICEHUB_PAYSTACK_SECRET_KEY"
	EnvFlutterwaveSecretKey   = "SERVICEHUB_FLUTTERWAVE_SECRET_KEY"
	EnvFlutterwaveWebhookHash = "SERVICEHUB_FLUTTERWAVE_WEBHOOK_HASH"

	EnvMinDepositPercent = "SERVICEHUB_PAYMENTS_MIN_DEPOSIT_PERCENT"
	EnvProviderTimeout   = "SERVICEHUB_PAYMENTS_PROVIDER_TIMEOUT"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
