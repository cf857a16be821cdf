package config

// Environment variable names shared between Load, tests, and error messages.
const (
	EnvPrefix = "QUOTEFLOW"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv   = "QUOTEFLOW_APP_ENV"
	EnvPort     = "QUOTEFLOW_APP_PORT"
	EnvBaseURL  = "QUOTEFLOW_APP_BASE_URL"
	EnvLogLevel = "QUOTEFLOW_LOG_LEVEL"

	EnvDBDSN      = "QUOTEFLOW_DB_DSN"
	EnvDBHost     = "QUOTEFLOW_DB_HOST"
	EnvDBPort     = "QUOTEFLOW_DB_PORT"
	EnvDBUser     = "QUOTEFLOW_DB_USER"
	EnvDBPassword = "QUOTEFLOW_DB_PASSWORD"
	EnvDBName     = "QUOTEFLOW_DB_NAME"

	EnvRedisURL = "QUOTEFLOW_REDIS_URL"

	EnvJWTSecret  = "QUOTEFLOW_JWT_SECRET"
	EnvJWTIssuer  = "QUOTEFLOW_JWT_ISSUER"
	EnvJWTExpMins = "QUOTEFLOW_JWT_EXPIRATION_MINUTES"

	EnvStripeAPIKey        = "QUOTEFLOW_STRIPE_API_KEY"
	EnvStripeWebhookSecret = "QUOTEFLOW_STRIPE_WEBHOOK_SECRET"

	EnvResendAPIKey = "QUOTEFLOW_RESEND_API_KEY"

	EnvCronSecret = "QUOTEFLOW_CRON_SECRET"

	EnvGCPProjectID      = "QUOTEFLOW_GCP_PROJECT_ID"
	EnvGCSBucket         = "QUOTEFLOW_GCS_BUCKET_NAME"
	EnvGCSUploadExpiry   = "QUOTEFLOW_GCS_UPLOAD_URL_EXPIRY"
	EnvGCSDownloadExpiry = "QUOTEFLOW_GCS_DOWNLOAD_URL_EXPIRY"
)

// legacyDBEnvVars are the discrete connection vars accepted when no DSN is set.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
