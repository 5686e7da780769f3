package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/pannatron/Bakugan-Dashboard-sub000/pkg/config"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/database"
)

// Cache backends for the browse client.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// BrowseConfig holds all configuration for the browse client.
type BrowseConfig struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"warn"`

	// Catalog API
	APIURL         string        `env:"BROWSE_API_URL" envDefault:"http://localhost:8080"`
	HTTPTimeout    time.Duration `env:"BROWSE_HTTP_TIMEOUT" envDefault:"10s"`
	HTTPMaxRetries int           `env:"BROWSE_HTTP_MAX_RETRIES" envDefault:"0"`

	// Response cache
	CacheBackend string        `env:"BROWSE_CACHE_BACKEND" envDefault:"memory"`
	CacheTTL     time.Duration `env:"BROWSE_CACHE_TTL" envDefault:"60s"`
	CacheSize    int           `env:"BROWSE_CACHE_SIZE" envDefault:"256"`
	CachePrefix  string        `env:"BROWSE_CACHE_PREFIX" envDefault:"bakugan:browse:"`

	// Redis (BROWSE_CACHE_BACKEND=redis)
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Controller timing
	PageSize         int           `env:"BROWSE_PAGE_SIZE" envDefault:"20"`
	FetchDebounce    time.Duration `env:"BROWSE_FETCH_DEBOUNCE" envDefault:"500ms"`
	SuggestDebounce  time.Duration `env:"BROWSE_SUGGEST_DEBOUNCE" envDefault:"300ms"`
	SettleDelay      time.Duration `env:"BROWSE_SETTLE_DELAY" envDefault:"800ms"`
	PrefetchInFlight int           `env:"BROWSE_PREFETCH_MAX_IN_FLIGHT" envDefault:"4"`

	// Kafka (browse watch)
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupID string   `env:"BROWSE_KAFKA_GROUP_ID" envDefault:"bakugan-browse"`
}

// LoadBrowse reads browse client configuration from environment variables.
func LoadBrowse() (*BrowseConfig, error) {
	cfg := &BrowseConfig{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load browse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *BrowseConfig) validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BROWSE_API_URL must be an absolute URL, got %q", c.APIURL)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("BROWSE_HTTP_TIMEOUT must be positive")
	}
	if c.HTTPMaxRetries < 0 {
		return fmt.Errorf("BROWSE_HTTP_MAX_RETRIES must not be negative")
	}
	switch c.CacheBackend {
	case CacheMemory:
		if c.CacheSize < 1 {
			return fmt.Errorf("BROWSE_CACHE_SIZE must be positive, got %d", c.CacheSize)
		}
	case CacheRedis:
		if c.RedisHost == "" {
			return fmt.Errorf("REDIS_HOST is required when BROWSE_CACHE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("BROWSE_CACHE_BACKEND must be %q or %q, got %q", CacheMemory, CacheRedis, c.CacheBackend)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("BROWSE_CACHE_TTL must be positive")
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("BROWSE_PAGE_SIZE must be between 1 and 100, got %d", c.PageSize)
	}
	if c.FetchDebounce < 0 || c.SuggestDebounce < 0 || c.SettleDelay < 0 {
		return fmt.Errorf("debounce and settle delays must not be negative")
	}
	if c.PrefetchInFlight < 1 {
		return fmt.Errorf("BROWSE_PREFETCH_MAX_IN_FLIGHT must be positive, got %d", c.PrefetchInFlight)
	}
	return nil
}

// Redis returns the connection settings for database.NewRedisClient.
func (c *BrowseConfig) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}
