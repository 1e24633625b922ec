package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
)

// Refresh token store backends.
const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
)

type Config struct {
	Port      string `env:"PORT,       default=8080"`
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	RefreshStore   string `env:"REFRESH_STORE,    default=mongo"`
	RateLimitStore string `env:"RATE_LIMIT_STORE, default=memory"`

	SweepInterval time.Duration `env:"SWEEP_INTERVAL, default=1h"`
	AuditWorkers  int           `env:"AUDIT_WORKERS,  default=4"`
	BcryptCost    int           `env:"BCRYPT_COST,    default=10"`

	Mongo    MongoConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	JWT      JWTConfig
	Captcha  CaptchaConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=hikari_auth"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type PostgresConfig struct {
	DSN string `env:"POSTGRES_DSN"`
}

type JWTConfig struct {
	PrivateKey        string        `env:"JWT_PRIVATE_KEY"`
	PublicKey         string        `env:"JWT_PUBLIC_KEY"`
	Secret            string        `env:"JWT_SECRET"`
	Issuer            string        `env:"JWT_ISSUER,                     default=hikari-app"`
	Audience          string        `env:"JWT_AUDIENCE,                   default=hikari-users"`
	Expiration        time.Duration `env:"JWT_EXPIRATION,                 default=15m"`
	RefreshExpiryDays int           `env:"REFRESH_TOKEN_EXPIRATION_DAYS, default=7"`
}

type CaptchaConfig struct {
	Enabled  bool          `env:"RECAPTCHA_ENABLED,   default=false"`
	Secret   string        `env:"RECAPTCHA_SECRET"`
	MinScore float64       `env:"RECAPTCHA_MIN_SCORE, default=0.5"`
	Timeout  time.Duration `env:"RECAPTCHA_TIMEOUT,   default=3s"`
}

// IsProduction reports whether ENV names a production deployment.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Env))
	return env == "production" || env == "prod"
}

// RefreshTTL is the refresh token lifetime.
func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.JWT.RefreshExpiryDays) * 24 * time.Hour
}

// Validate rejects settings that cannot be served.
func (c *Config) Validate() error {
	switch c.RefreshStore {
	case StoreMongo, StoreMemory:
	case StorePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("config: REFRESH_STORE=postgres requires POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("config: unknown REFRESH_STORE %q", c.RefreshStore)
	}
	switch c.RateLimitStore {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("config: unknown RATE_LIMIT_STORE %q", c.RateLimitStore)
	}
	if c.JWT.RefreshExpiryDays <= 0 {
		return fmt.Errorf("config: REFRESH_TOKEN_EXPIRATION_DAYS must be positive")
	}
	return nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad is Load for process start-up: it logs and panics on failure.
func MustLoad(ctx context.Context, log zerolog.Logger) *Config {
	cfg, err := Load(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		panic(err)
	}
	return cfg
}
