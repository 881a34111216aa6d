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
	Payments     PaymentsConfig
	Paystack     PaystackConfig
	Flutterwave  FlutterwaveConfig
	BankTransfer BankTransferConfig
	Cash         CashConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"SERVICEHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"SERVICEHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SERVICEHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SERVICEHUB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SERVICEHUB_DB_DSN"`
	Driver string `envconfig:"SERVICEHUB_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"SERVICEHUB_DB_HOST"`
	Port     int    `envconfig:"SERVICEHUB_DB_PORT" default:"5432"`
	User     string `envconfig:"SERVICEHUB_DB_USER"`
	Password string `envconfig:"SERVICEHUB_DB_PASSWORD"`
	Name     string `envconfig:"SERVICEHUB_DB_NAME"`
	SSLMode  string `envconfig:"SERVICEHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SERVICEHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SERVICEHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SERVICEHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SERVICEHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SERVICEHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SERVICEHUB_REDIS_ADDR"`
	Password     string        `envconfig:"SERVICEHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"SERVICEHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SERVICEHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SERVICEHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SERVICEHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SERVICEHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SERVICEHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SERVICEHUB_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SERVICEHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SERVICEHUB_JWT_EXPIRATION_MINUTES" default:"60"`
}

// PaymentsConfig holds the knobs of the payment core itself.
type PaymentsConfig struct {
	MinDepositPercent   float64       `envconfig:"SERVICEHUB_PAYMENTS_MIN_DEPOSIT_PERCENT" default:"30.0"`
	DefaultCurrency     string        `envconfig:"SERVICEHUB_PAYMENTS_DEFAULT_CURRENCY" default:"NGN"`
	ReferencePrefix     string        `envconfig:"SERVICEHUB_PAYMENTS_REFERENCE_PREFIX" default:"SHP"`
	ProviderTimeout     time.Duration `envconfig:"SERVICEHUB_PAYMENTS_PROVIDER_TIMEOUT" default:"15s"`
	WebhookEventTTL     time.Duration `envconfig:"SERVICEHUB_PAYMENTS_WEBHOOK_EVENT_TTL" default:"168h"`
	CallbackBaseURL     string        `envconfig:"SERVICEHUB_PAYMENTS_CALLBACK_BASE_URL"`
	ReferenceMaxRetries int           `envconfig:"SERVICEHUB_PAYMENTS_REFERENCE_MAX_RETRIES" default:"5"`
}

type PaystackConfig struct {
	SecretKey string `envconfig:"SERVICEHUB_PAYSTACK_SECRET_KEY"`
	BaseURL   string `envconfig:"SERVICEHUB_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
}

type FlutterwaveConfig struct {
	SecretKey   string `envconfig:"SERVICEHUB_FLUTTERWAVE_SECRET_KEY"`
	WebhookHash string `envconfig:"SERVICEHUB_FLUTTERWAVE_WEBHOOK_HASH"`
	BaseURL     string `envconfig:"SERVICEHUB_FLUTTERWAVE_BASE_URL" default:"https://api.flutterwave.com/v3"`
}

type BankTransferConfig struct {
	BankName      string `envconfig:"SERVICEHUB_BANK_TRANSFER_BANK_NAME"`
	AccountName   string `envconfig:"SERVICEHUB_BANK_TRANSFER_ACCOUNT_NAME"`
	AccountNumber string `envconfig:"SERVICEHUB_BANK_TRANSFER_ACCOUNT_NUMBER"`
}

type CashConfig struct {
	OfficeAddress string `envconfig:"SERVICEHUB_CASH_OFFICE_ADDRESS"`
	OfficeHours   string `envconfig:"SERVICEHUB_CASH_OFFICE_HOURS" default:"Mon-Fri 9:00-17:00"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"SERVICEHUB_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	PaymentEventsTopic string `envconfig:"SERVICEHUB_PUBSUB_PAYMENT_EVENTS_TOPIC" default:"sh-payment-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SERVICEHUB_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SERVICEHUB_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SERVICEHUB_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SERVICEHUB_AUTO_MIGRATE" default:"false"`
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
	for _, env := range requiredDBEnvVars {
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
