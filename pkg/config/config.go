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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Stripe       StripeConfig
	Resend       ResendConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
	FollowUp     FollowUpConfig
	GCP          GCPConfig
	GCS          GCSConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"QUOTEFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"QUOTEFLOW_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"QUOTEFLOW_APP_BASE_URL" default:"http://localhost:3000"`
	LogLevel     string `envconfig:"QUOTEFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"QUOTEFLOW_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"QUOTEFLOW_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"QUOTEFLOW_DB_DSN"`
	Driver string `envconfig:"QUOTEFLOW_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"QUOTEFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"QUOTEFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"QUOTEFLOW_DB_USER"`
	LegacyPassword string `envconfig:"QUOTEFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"QUOTEFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"QUOTEFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"QUOTEFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"QUOTEFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"QUOTEFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"QUOTEFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"QUOTEFLOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"QUOTEFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"QUOTEFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"QUOTEFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"QUOTEFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"QUOTEFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"QUOTEFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"QUOTEFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"QUOTEFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"QUOTEFLOW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"QUOTEFLOW_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"QUOTEFLOW_JWT_EXPIRATION_MINUTES" default:"60"`
}

type StripeConfig struct {
	APIKey             string        `envconfig:"QUOTEFLOW_STRIPE_API_KEY"`
	Secret             string        `envconfig:"QUOTEFLOW_STRIPE_WEBHOOK_SECRET"`
	Env                string        `envconfig:"QUOTEFLOW_STRIPE_ENV" default:"test"`
	ProPriceID         string        `envconfig:"QUOTEFLOW_STRIPE_PRO_PRICE_ID"`
	LifetimePriceID    string        `envconfig:"QUOTEFLOW_STRIPE_LIFETIME_PRICE_ID"`
	PlatformFeePercent int           `envconfig:"QUOTEFLOW_STRIPE_PLATFORM_FEE_PERCENT" default:"2"`
	WebhookEventTTL    time.Duration `envconfig:"QUOTEFLOW_STRIPE_WEBHOOK_EVENT_TTL" default:"720h"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type ResendConfig struct {
	APIKey      string `envconfig:"QUOTEFLOW_RESEND_API_KEY"`
	FromAddress string `envconfig:"QUOTEFLOW_RESEND_FROM_ADDRESS" default:"QuoteFlow <notifications@quoteflow.app>"`
}

type CronConfig struct {
	Secret   string        `envconfig:"QUOTEFLOW_CRON_SECRET"`
	Interval time.Duration `envconfig:"QUOTEFLOW_CRON_INTERVAL" default:"1h"`
}

// RateLimitConfig throttles the unauthenticated customer surface.
type RateLimitConfig struct {
	PublicWindow time.Duration `envconfig:"QUOTEFLOW_RATE_LIMIT_PUBLIC_WINDOW" default:"1m"`
	PublicLimit  int           `envconfig:"QUOTEFLOW_RATE_LIMIT_PUBLIC_LIMIT" default:"30"`
}

type FollowUpConfig struct {
	DefaultIntervalDays []int `envconfig:"QUOTEFLOW_FOLLOW_UP_DEFAULT_DAYS" default:"2,7,15"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"QUOTEFLOW_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"QUOTEFLOW_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"QUOTEFLOW_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"QUOTEFLOW_GCS_BUCKET_NAME"`
	UploadURLExpiry   time.Duration `envconfig:"QUOTEFLOW_GCS_UPLOAD_URL_EXPIRY" default:"15m"`
	DownloadURLExpiry time.Duration `envconfig:"QUOTEFLOW_GCS_DOWNLOAD_URL_EXPIRY" default:"24h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"QUOTEFLOW_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"QUOTEFLOW_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
