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
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Mpesa        MpesaConfig
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
	Env          string `envconfig:"AFYAKART_APP_ENV" required:"true"`
	Port         string `envconfig:"AFYAKART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"AFYAKART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AFYAKART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"AFYAKART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"AFYAKART_DB_DSN"`
	Driver string `envconfig:"AFYAKART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AFYAKART_DB_HOST"`
	LegacyPort     int    `envconfig:"AFYAKART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AFYAKART_DB_USER"`
	LegacyPassword string `envconfig:"AFYAKART_DB_PASSWORD"`
	LegacyName     string `envconfig:"AFYAKART_DB_NAME"`
	LegacySSLMode  string `envconfig:"AFYAKART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AFYAKART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AFYAKART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AFYAKART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AFYAKART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AFYAKART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AFYAKART_REDIS_ADDR"`
	Password     string        `envconfig:"AFYAKART_REDIS_PASSWORD"`
	DB           int           `envconfig:"AFYAKART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AFYAKART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AFYAKART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AFYAKART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AFYAKART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AFYAKART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"AFYAKART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"AFYAKART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"AFYAKART_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"AFYAKART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"AFYAKART_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"AFYAKART_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"AFYAKART_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"AFYAKART_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"AFYAKART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"AFYAKART_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription       string `envconfig:"AFYAKART_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	PaymentsTopic            string `envconfig:"AFYAKART_PUBSUB_PAYMENTS_TOPIC" required:"true"`
	PaymentsSubscription     string `envconfig:"AFYAKART_PUBSUB_PAYMENTS_SUBSCRIPTION" required:"true"`
	NotificationTopic        string `envconfig:"AFYAKART_PUBSUB_NOTIFICATION_TOPIC" default:"afya-notification-events"`
	NotificationSubscription string `envconfig:"AFYAKART_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"AFYAKART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"AFYAKART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"AFYAKART_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// MpesaConfig holds Daraja credentials. Every value is injected here at load
// time; nothing in the payments path reads the environment directly.
type MpesaConfig struct {
	Env            string        `envconfig:"AFYAKART_MPESA_ENV" default:"sandbox"`
	ConsumerKey    string        `envconfig:"AFYAKART_MPESA_CONSUMER_KEY"`
	ConsumerSecret string        `envconfig:"AFYAKART_MPESA_CONSUMER_SECRET"`
	ShortCode      string        `envconfig:"AFYAKART_MPESA_SHORT_CODE"`
	Passkey        string        `envconfig:"AFYAKART_MPESA_PASSKEY"`
	CallbackURL    string        `envconfig:"AFYAKART_MPESA_CALLBACK_URL"`
	Timeout        time.Duration `envconfig:"AFYAKART_MPESA_TIMEOUT" default:"30s"`
}

// Environment returns the normalized Daraja environment (sandbox/production).
func (m MpesaConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(m.Env))
	if env == "" {
		return "sandbox"
	}
	return env
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
