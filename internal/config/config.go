package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	pkgconfig "github.com/utafrali/storefront/pkg/config"
)

// Notification sinks accepted by NOTIFY_SINKS.
const (
	SinkLog   = "log"
	SinkKafka = "kafka"
	SinkRedis = "redis"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	// HTTP server
	HTTPPort int `env:"STOREFRONT_HTTP_PORT" envDefault:"8090"`

	// Storefront backend
	APIBaseURL      string        `env:"STOREFRONT_API_BASE_URL" envDefault:"http://127.0.0.1:5000/api"`
	APIHealthPath   string        `env:"STOREFRONT_API_HEALTH_PATH" envDefault:"/health"`
	ClientTimeout   time.Duration `env:"STOREFRONT_CLIENT_TIMEOUT" envDefault:"10s"`
	ClientRetries   int           `env:"STOREFRONT_CLIENT_MAX_RETRIES" envDefault:"2"`
	ClientRateLimit float64       `env:"STOREFRONT_CLIENT_RATE_LIMIT" envDefault:"20"`
	ClientRateBurst int           `env:"STOREFRONT_CLIENT_RATE_BURST" envDefault:"10"`

	// Circuit breaker
	BreakerTimeout      time.Duration `env:"STOREFRONT_BREAKER_TIMEOUT" envDefault:"30s"`
	BreakerFailureRatio float64       `env:"STOREFRONT_BREAKER_FAILURE_RATIO" envDefault:"0.5"`

	// Catalog
	RefreshInterval time.Duration `env:"CATALOG_REFRESH_INTERVAL" envDefault:"1m"`

	// Notifications
	NotifySinks       []string `env:"NOTIFY_SINKS" envDefault:"log" envSeparator:","`
	NotifyHistorySize int      `env:"NOTIFY_HISTORY_SIZE" envDefault:"50"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaTopic   string   `env:"STOREFRONT_NOTIFY_TOPIC" envDefault:"storefront.notifications"`

	// Redis
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisChannel  string `env:"STOREFRONT_NOTIFY_CHANNEL" envDefault:"storefront:notifications"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	for i, s := range cfg.NotifySinks {
		cfg.NotifySinks[i] = strings.ToLower(strings.TrimSpace(s))
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("STOREFRONT_API_BASE_URL must be an absolute http(s) URL, got %q", c.APIBaseURL)
	}
	if c.ClientTimeout <= 0 {
		return fmt.Errorf("STOREFRONT_CLIENT_TIMEOUT must be positive, got %s", c.ClientTimeout)
	}
	if c.ClientRetries < 0 {
		return fmt.Errorf("STOREFRONT_CLIENT_MAX_RETRIES must not be negative, got %d", c.ClientRetries)
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1.0 {
		return fmt.Errorf("STOREFRONT_BREAKER_FAILURE_RATIO must be in (0, 1], got %f", c.BreakerFailureRatio)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("CATALOG_REFRESH_INTERVAL must be positive, got %s", c.RefreshInterval)
	}
	for _, s := range c.NotifySinks {
		switch s {
		case SinkLog, SinkKafka, SinkRedis:
		default:
			return fmt.Errorf("unknown notify sink %q (want %s, %s or %s)", s, SinkLog, SinkKafka, SinkRedis)
		}
	}
	if c.HasSink(SinkKafka) && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required for the kafka notify sink")
	}
	if c.HasSink(SinkRedis) && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required for the redis notify sink")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// HasSink reports whether the named notification sink is enabled.
func (c *Config) HasSink(name string) bool {
	return slices.Contains(c.NotifySinks, name)
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
