package observability

import (
	"testing"

	"github.com/smallbiznis/sprintboard/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestNewConfigNormalizes(t *testing.T) {
	cfg := NewConfig(config.Config{
		AppVersion:        "1.2.0",
		Environment:       " Production ",
		LogLevel:          "WARN",
		LogFormat:         "text",
		OtelEnabled:       true,
		OtelEndpoint:      "collector:4318",
		OtelProtocol:      "HTTP/protobuf",
		OtelSamplingRatio: 3,
	})

	assert.Equal(t, "sprintboard", cfg.ServiceName)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "http", cfg.OtelProtocol)
	assert.Equal(t, 1.0, cfg.OtelSamplingRatio)
	assert.True(t, cfg.OtelEnabled)
	assert.False(t, cfg.Debug())

	assert.Equal(t, "1.2.0", cfg.Tracing().ServiceVersion)
	assert.Equal(t, "collector:4318", cfg.Metrics().ExporterEndpoint)
	assert.False(t, cfg.Logger().IncludeStackOnError)
}

func TestNewConfigDisablesOtelWithoutEndpoint(t *testing.T) {
	cfg := NewConfig(config.Config{AppName: "board-api", OtelEnabled: true, OtelProtocol: "grpc"})

	assert.Equal(t, "board-api", cfg.ServiceName)
	assert.False(t, cfg.OtelEnabled)
	assert.False(t, cfg.Tracing().Enabled)
	assert.Equal(t, "grpc", cfg.OtelProtocol)
}

func TestDebug(t *testing.T) {
	cases := []struct {
		env   string
		level string
		want  bool
	}{
		{"development", "info", true},
		{"test", "info", true},
		{"staging", "info", false},
		{"production", "debug", true},
		{"production", "info", false},
	}
	for _, tc := range cases {
		t.Run(tc.env+"/"+tc.level, func(t *testing.T) {
			cfg := NewConfig(config.Config{Environment: tc.env, LogLevel: tc.level})
			assert.Equal(t, tc.want, cfg.Debug())
			assert.Equal(t, tc.want, cfg.Logger().IncludeStackOnError)
		})
	}
}
