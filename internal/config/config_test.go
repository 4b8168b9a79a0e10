package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadReadsTelemetryEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("OTEL_ENABLED", "yes")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", " collector:4317 ")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.25")
	t.Setenv("ORDERING_LOCK_TTL", "2s")

	cfg := Load()

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.OtelEnabled)
	assert.Equal(t, "collector:4317", cfg.OtelEndpoint)
	assert.Equal(t, "grpc", cfg.OtelProtocol)
	assert.Equal(t, 0.25, cfg.OtelSamplingRatio)
	assert.Equal(t, 2*time.Second, cfg.OrderingLockTTL)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OTEL_SAMPLING_RATIO", "half")
	t.Setenv("DATABASE_MAX_OPEN_CONN", "many")
	t.Setenv("DIRECTORY_CACHE_TTL", "-1m")

	cfg := Load()

	assert.Equal(t, 1.0, cfg.OtelSamplingRatio)
	assert.Equal(t, 50, cfg.DBMaxOpenConn)
	assert.Equal(t, time.Minute, cfg.DirectoryCacheTTL)
	assert.False(t, cfg.IsProduction())
}
