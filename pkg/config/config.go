package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Settlement   SettlementConfig
	Outbox       OutboxConfig
	RateLimit    RateLimitConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
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
	if err := cfg.Settlement.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TRADEPOST_APP_ENV" required:"true"`
	Port         string `envconfig:"TRADEPOST_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"TRADEPOST_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TRADEPOST_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TRADEPOST_DB_DSN"`
	Driver string `envconfig:"TRADEPOST_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"TRADEPOST_DB_HOST"`
	Port     int    `envconfig:"TRADEPOST_DB_PORT" default:"5432"`
	User     string `envconfig:"TRADEPOST_DB_USER"`
	Password string `envconfig:"TRADEPOST_DB_PASSWORD"`
	Name     string `envconfig:"TRADEPOST_DB_NAME"`
	SSLMode  string `envconfig:"TRADEPOST_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TRADEPOST_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TRADEPOST_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TRADEPOST_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TRADEPOST_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TRADEPOST_REDIS_URL"`
	Address      string        `envconfig:"TRADEPOST_REDIS_ADDR"`
	Password     string        `envconfig:"TRADEPOST_REDIS_PASSWORD"`
	DB           int           `envconfig:"TRADEPOST_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TRADEPOST_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TRADEPOST_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TRADEPOST_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TRADEPOST_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TRADEPOST_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TRADEPOST_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TRADEPOST_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TRADEPOST_JWT_EXPIRATION_MINUTES" default:"60"`
}

// SettlementConfig carries the process-wide marketplace settlement knobs.
// The platform fee and payout minimum vary by deployment, never by seller.
type SettlementConfig struct {
	FeeRate         string `envconfig:"TRADEPOST_SETTLEMENT_FEE_RATE" default:"0.15"`
	MinPayoutAmount string `envconfig:"TRADEPOST_SETTLEMENT_MIN_PAYOUT" default:"50"`
	Currency        string `envconfig:"TRADEPOST_SETTLEMENT_CURRENCY" default:"USD"`

	feeRate   decimal.Decimal
	minPayout decimal.Decimal
}

// Validate parses the string knobs and caches their decimal values.
func (s *SettlementConfig) Validate() error {
	rate, err := decimal.NewFromString(s.FeeRate)
	if err != nil {
		return fmt.Errorf("invalid settlement fee rate %q: %w", s.FeeRate, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("settlement fee rate %s must be in [0, 1)", rate)
	}
	minPayout, err := decimal.NewFromString(s.MinPayoutAmount)
	if err != nil {
		return fmt.Errorf("invalid minimum payout %q: %w", s.MinPayoutAmount, err)
	}
	if minPayout.IsNegative() {
		return fmt.Errorf("minimum payout %s must not be negative", minPayout)
	}
	s.feeRate = rate
	s.minPayout = minPayout
	return nil
}

// PlatformFeeRate returns the parsed platform fee rate.
func (s SettlementConfig) PlatformFeeRate() decimal.Decimal {
	return s.feeRate
}

// MinimumPayout returns the parsed minimum payout amount.
func (s SettlementConfig) MinimumPayout() decimal.Decimal {
	return s.minPayout
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TRADEPOST_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TRADEPOST_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TRADEPOST_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"TRADEPOST_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"TRADEPOST_PUBSUB_NOTIFICATION_TOPIC" default:"tp-notification-events"`
}

type RateLimitConfig struct {
	WriteWindow    time.Duration `envconfig:"TRADEPOST_RATE_LIMIT_WRITE_WINDOW" default:"1m"`
	WriteIPLimit   int           `envconfig:"TRADEPOST_RATE_LIMIT_WRITE_IP_LIMIT" default:"120"`
	WriteUserLimit int           `envconfig:"TRADEPOST_RATE_LIMIT_WRITE_USER_LIMIT" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TRADEPOST_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	parts := map[string]string{
		"TRADEPOST_DB_HOST": db.Host,
		"TRADEPOST_DB_USER": db.User,
		"TRADEPOST_DB_NAME": db.Name,
	}
	for _, key := range []string{"TRADEPOST_DB_HOST", "TRADEPOST_DB_USER", "TRADEPOST_DB_NAME"} {
		if parts[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either TRADEPOST_DB_DSN or %s are required", strings.Join(missing, ", "))
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
