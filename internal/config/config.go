package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/pannatron/Bakugan-Dashboard-sub000/pkg/config"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/database"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/tracing"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Search engines.
const (
	EngineRepository    = "repository"
	EngineElasticsearch = "elasticsearch"
)

// Config holds all configuration for the catalog service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort            int           `env:"CATALOG_HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout     time.Duration `env:"CATALOG_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	ReadCacheMaxAgeSecs int           `env:"CATALOG_READ_CACHE_MAX_AGE" envDefault:"30"`
	CORSAllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Admin write rate limit, per client IP
	WriteRateLimitRPS   float64 `env:"CATALOG_WRITE_RPS" envDefault:"5"`
	WriteRateLimitBurst int     `env:"CATALOG_WRITE_BURST" envDefault:"10"`

	// Storage backend (postgres or memory)
	Store string `env:"CATALOG_STORE" envDefault:"postgres"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"bakugan"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"bakugan_secret"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"bakugan"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`
	RunMigrations         bool  `env:"DB_RUN_MIGRATIONS" envDefault:"true"`

	// Search engine selection (repository or elasticsearch)
	SearchEngine       string `env:"CATALOG_SEARCH_ENGINE" envDefault:"repository"`
	ElasticsearchURL   string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchIndex string `env:"ELASTICSEARCH_INDEX" envDefault:"bakugan_items"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load catalog config: %w", err)
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
	switch c.Store {
	case StorePostgres:
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required")
		}
		if c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("CATALOG_STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store)
	}
	switch c.SearchEngine {
	case EngineRepository:
	case EngineElasticsearch:
		if c.ElasticsearchURL == "" {
			return fmt.Errorf("ELASTICSEARCH_URL is required when CATALOG_SEARCH_ENGINE=elasticsearch")
		}
	default:
		return fmt.Errorf("CATALOG_SEARCH_ENGINE must be %q or %q, got %q", EngineRepository, EngineElasticsearch, c.SearchEngine)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED=true")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	if c.WriteRateLimitRPS > 0 && c.WriteRateLimitBurst < 1 {
		return fmt.Errorf("CATALOG_WRITE_BURST must be positive when CATALOG_WRITE_RPS is set")
	}
	return nil
}

// Postgres returns the connection settings for database.NewPostgresPool.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// Tracing returns the tracer settings for the named service.
func (c *Config) Tracing(serviceName string) tracing.Config {
	tc := tracing.DefaultConfig(serviceName)
	tc.Environment = c.Environment
	tc.Enabled = c.OTELEnabled
	tc.OTLPEndpoint = c.OTELEndpoint
	tc.SampleRate = c.OTELSampleRate
	return tc
}

// SlowQueryThreshold returns LOG_SLOW_QUERY_MS as a duration.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryThresholdMs) * time.Millisecond
}
