package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/DeyanBora/ElasticSearch.API/pkg/config"
)

// Search engine backends.
const (
	EngineElasticsearch = "elasticsearch"
	EngineMemory        = "memory"
)

// Config holds all configuration for the catalog search service.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"catalog-search"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"CATALOG_HTTP_PORT" envDefault:"8090"`
	RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	PprofCIDRs      []string      `env:"PPROF_ALLOWED_CIDRS" envSeparator:","`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Search engine selection (elasticsearch or memory)
	SearchEngine string `env:"SEARCH_ENGINE" envDefault:"elasticsearch"`

	// Elasticsearch
	ElasticsearchURLs     []string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200" envSeparator:","`
	ElasticsearchIndex    string   `env:"ELASTICSEARCH_INDEX" envDefault:"products"`
	ElasticsearchUsername string   `env:"ELASTICSEARCH_USERNAME"`
	ElasticsearchPassword string   `env:"ELASTICSEARCH_PASSWORD"`
	ElasticsearchRefresh  string   `env:"ELASTICSEARCH_REFRESH" envDefault:"wait_for"`

	// Circuit breaker around the document store
	BreakerMaxRequests  uint32        `env:"BREAKER_MAX_REQUESTS" envDefault:"1"`
	BreakerInterval     time.Duration `env:"BREAKER_INTERVAL" envDefault:"60s"`
	BreakerTimeout      time.Duration `env:"BREAKER_TIMEOUT" envDefault:"30s"`
	BreakerFailureRatio float64       `env:"BREAKER_FAILURE_RATIO" envDefault:"0.5"`
	BreakerMinRequests  uint32        `env:"BREAKER_MIN_REQUESTS" envDefault:"5"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID" envDefault:"catalog-search"`

	// Redis (event de-duplication)
	RedisEnabled   bool          `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost      string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort      int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	RedisDB        int           `env:"REDIS_DB" envDefault:"0"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	// Tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load catalog search config: %w", err)
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

	switch c.SearchEngine {
	case EngineElasticsearch:
		if len(c.ElasticsearchURLs) == 0 {
			return fmt.Errorf("ELASTICSEARCH_URL is required when SEARCH_ENGINE=%s", EngineElasticsearch)
		}
		for _, raw := range c.ElasticsearchURLs {
			if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("invalid ELASTICSEARCH_URL entry: %q", raw)
			}
		}
		if c.ElasticsearchIndex == "" {
			return fmt.Errorf("ELASTICSEARCH_INDEX must not be empty")
		}
		switch c.ElasticsearchRefresh {
		case "true", "false", "wait_for":
		default:
			return fmt.Errorf("invalid ELASTICSEARCH_REFRESH: %q (want true, false or wait_for)", c.ElasticsearchRefresh)
		}
	case EngineMemory:
	default:
		return fmt.Errorf("invalid SEARCH_ENGINE: %q (want %s or %s)", c.SearchEngine, EngineElasticsearch, EngineMemory)
	}

	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		return fmt.Errorf("BREAKER_FAILURE_RATIO must be in (0, 1], got %v", c.BreakerFailureRatio)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED=true")
	}
	if c.RedisEnabled && (c.RedisPort < 1 || c.RedisPort > 65535) {
		return fmt.Errorf("invalid Redis port: %d", c.RedisPort)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be in [0, 1], got %v", c.OTELSampleRate)
	}
	return nil
}
