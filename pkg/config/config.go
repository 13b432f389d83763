package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "craftmeals"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv               = "CRAFTMEALS_APP_ENV"
	EnvPort                 = "CRAFTMEALS_APP_PORT"
	EnvDBDSN                = "CRAFTMEALS_DB_DSN"
	EnvDBHost               = "CRAFTMEALS_DB_HOST"
	EnvDBUser               = "CRAFTMEALS_DB_USER"
	EnvDBName               = "CRAFTMEALS_DB_NAME"
	EnvRedisURL             = "CRAFTMEALS_REDIS_URL"
	EnvJWTSecret            = "CRAFTMEALS_JWT_SECRET"
	EnvJWTIssuer            = "CRAFTMEALS_JWT_ISSUER"
	EnvJWTExpMins           = "CRAFTMEALS_JWT_EXPIRATION_MINUTES"
	EnvETransferVerifyToken = "CRAFTMEALS_ETRANSFER_VERIFY_TOKEN"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	ETransfer    ETransferConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CRAFTMEALS_APP_ENV" required:"true"`
	Port         string `envconfig:"CRAFTMEALS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CRAFTMEALS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CRAFTMEALS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CRAFTMEALS_DB_DSN"`
	Driver string `envconfig:"CRAFTMEALS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CRAFTMEALS_DB_HOST"`
	LegacyPort     int    `envconfig:"CRAFTMEALS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CRAFTMEALS_DB_USER"`
	LegacyPassword string `envconfig:"CRAFTMEALS_DB_PASSWORD"`
	LegacyName     string `envconfig:"CRAFTMEALS_DB_NAME"`
	LegacySSLMode  string `envconfig:"CRAFTMEALS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CRAFTMEALS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CRAFTMEALS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CRAFTMEALS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CRAFTMEALS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CRAFTMEALS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CRAFTMEALS_REDIS_ADDR"`
	Password     string        `envconfig:"CRAFTMEALS_REDIS_PASSWORD"`
	DB           int           `envconfig:"CRAFTMEALS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CRAFTMEALS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CRAFTMEALS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CRAFTMEALS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CRAFTMEALS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CRAFTMEALS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CRAFTMEALS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CRAFTMEALS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CRAFTMEALS_JWT_EXPIRATION_MINUTES" required:"true"`
}

// ETransferConfig carries the shared secret and idempotency window for the
// e-transfer verification webhook.
type ETransferConfig struct {
	VerifyToken     string        `envconfig:"CRAFTMEALS_ETRANSFER_VERIFY_TOKEN" required:"true"`
	IdempotencyTTL  time.Duration `envconfig:"CRAFTMEALS_ETRANSFER_IDEMPOTENCY_TTL" default:"720h"`
	RateLimit       int64         `envconfig:"CRAFTMEALS_ETRANSFER_RATE_LIMIT" default:"60"`
	RateLimitWindow time.Duration `envconfig:"CRAFTMEALS_ETRANSFER_RATE_LIMIT_WINDOW" default:"1m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CRAFTMEALS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CRAFTMEALS_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.Driver == "sqlite" {
		return fmt.Errorf("%s is required when using the sqlite driver", EnvDBDSN)
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
