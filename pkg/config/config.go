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
	Checkout     CheckoutConfig
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
	Env          string `envconfig:"OMOSHOP_APP_ENV" required:"true"`
	Port         string `envconfig:"OMOSHOP_APP_PORT" required:"true"`
	APIPrefix    string `envconfig:"OMOSHOP_API_PREFIX" default:"/api/v1"`
	LogLevel     string `envconfig:"OMOSHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"OMOSHOP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"OMOSHOP_DB_DSN"`
	Driver string `envconfig:"OMOSHOP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"OMOSHOP_DB_HOST"`
	LegacyPort     int    `envconfig:"OMOSHOP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"OMOSHOP_DB_USER"`
	LegacyPassword string `envconfig:"OMOSHOP_DB_PASSWORD"`
	LegacyName     string `envconfig:"OMOSHOP_DB_NAME"`
	LegacySSLMode  string `envconfig:"OMOSHOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"OMOSHOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"OMOSHOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"OMOSHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"OMOSHOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"OMOSHOP_REDIS_URL"`
	Address      string        `envconfig:"OMOSHOP_REDIS_ADDR"`
	Password     string        `envconfig:"OMOSHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"OMOSHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"OMOSHOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"OMOSHOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"OMOSHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"OMOSHOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"OMOSHOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type CheckoutConfig struct {
	TxTimeout      time.Duration `envconfig:"OMOSHOP_CHECKOUT_TX_TIMEOUT" default:"10s"`
	IdempotencyTTL time.Duration `envconfig:"OMOSHOP_CHECKOUT_IDEMPOTENCY_TTL" default:"168h"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"OMOSHOP_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"OMOSHOP_OUTBOX_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"OMOSHOP_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// PollInterval returns the worker poll interval in duration form.
func (o OutboxConfig) PollInterval() time.Duration {
	if o.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"OMOSHOP_AUTO_MIGRATE" default:"false"`
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
