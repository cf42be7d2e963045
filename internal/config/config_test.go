package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "catalog-search", cfg.ServiceName)
	assert.Equal(t, 8090, cfg.HTTPPort)
	assert.Equal(t, []string{"http://localhost:9200"}, cfg.ElasticsearchURLs)
	assert.Equal(t, "products", cfg.ElasticsearchIndex)
	assert.Equal(t, "wait_for", cfg.ElasticsearchRefresh)
	assert.Equal(t, EngineElasticsearch, cfg.SearchEngine)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.False(t, cfg.KafkaEnabled)
	assert.False(t, cfg.RedisEnabled)
	assert.Empty(t, cfg.PprofCIDRs)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("CATALOG_HTTP_PORT", "9000")
	t.Setenv("ELASTICSEARCH_URL", "http://es-1:9200,http://es-2:9200")
	t.Setenv("SEARCH_ENGINE", "memory")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("BREAKER_TIMEOUT", "5s")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, []string{"http://es-1:9200", "http://es-2:9200"}, cfg.ElasticsearchURLs)
	assert.Equal(t, EngineMemory, cfg.SearchEngine)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5*time.Second, cfg.BreakerTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"http port", "CATALOG_HTTP_PORT", "0", "invalid HTTP port"},
		{"engine", "SEARCH_ENGINE", "solr", "invalid SEARCH_ENGINE"},
		{"es url", "ELASTICSEARCH_URL", "localhost", "invalid ELASTICSEARCH_URL"},
		{"refresh", "ELASTICSEARCH_REFRESH", "sometimes", "invalid ELASTICSEARCH_REFRESH"},
		{"failure ratio", "BREAKER_FAILURE_RATIO", "1.5", "BREAKER_FAILURE_RATIO"},
		{"sample rate", "OTEL_SAMPLE_RATE", "2", "OTEL_SAMPLE_RATE"},
		{"not a number", "CATALOG_HTTP_PORT", "abc", "load catalog search config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)

			cfg, err := Load()

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MemoryEngineSkipsElasticsearchChecks(t *testing.T) {
	t.Setenv("SEARCH_ENGINE", "memory")
	t.Setenv("ELASTICSEARCH_URL", "not a url")

	_, err := Load()
	assert.NoError(t, err)
}
