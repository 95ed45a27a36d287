package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/mpro775/tagdod-promo-engine/pkg/config"
	"github.com/mpro775/tagdod-promo-engine/pkg/database"
	"github.com/mpro775/tagdod-promo-engine/pkg/tracing"
)

// Config holds all configuration for the promo engine.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"PROMO_HTTP_PORT" envDefault:"8010"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"promo"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"promo_secret"`
	PostgresDB   string `env:"PROMO_DB_NAME" envDefault:"promo_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	RunMigrations bool `env:"PROMO_RUN_MIGRATIONS" envDefault:"true"`

	// Redis
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"PROMO_REDIS_DB" envDefault:"0"`

	// Short TTL so cached rules and coupons stay close to storage; usage
	// counters never go through the cache.
	CacheTTL time.Duration `env:"PROMO_CACHE_TTL" envDefault:"5s"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Flat tax rate in basis points applied to the post-discount subtotal.
	TaxRateBps int64 `env:"PROMO_TAX_RATE_BPS" envDefault:"0"`

	// Tracing
	TracingEnabled  bool    `env:"TRACING_ENABLED" envDefault:"false"`
	TracingEndpoint string  `env:"TRACING_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TracingSample   float64 `env:"TRACING_SAMPLE_RATIO" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load promo config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache TTL must not be negative: %s", c.CacheTTL)
	}
	if c.TaxRateBps < 0 || c.TaxRateBps > 10000 {
		return fmt.Errorf("tax rate must be between 0 and 10000 basis points: %d", c.TaxRateBps)
	}
	return nil
}

// Postgres returns the PostgreSQL connection settings.
func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:     c.PostgresHost,
		Port:     c.PostgresPort,
		User:     c.PostgresUser,
		Password: c.PostgresPass,
		DBName:   c.PostgresDB,
		SSLMode:  c.PostgresSSL,
	}
}

// Redis returns the Redis connection settings.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPass,
		DB:       c.RedisDB,
	}
}

// Tracing returns the OpenTelemetry tracer settings.
func (c *Config) Tracing() tracing.Config {
	return tracing.Config{
		ServiceName:  "promo-engine",
		Environment:  c.Environment,
		OTLPEndpoint: c.TracingEndpoint,
		SampleRate:   c.TracingSample,
		Enabled:      c.TracingEnabled,
	}
}
