package observability

import (
	"strings"

	"github.com/smallbiznis/sprintboard/internal/config"
	"github.com/smallbiznis/sprintboard/internal/observability/logger"
	"github.com/smallbiznis/sprintboard/internal/observability/metrics"
	"github.com/smallbiznis/sprintboard/internal/observability/tracing"
)

const defaultServiceName = "sprintboard"

// Config is the normalized telemetry view of the application config.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled       bool
	OtelEndpoint      string
	OtelProtocol      string
	OtelSamplingRatio float64
}

func NewConfig(cfg config.Config) Config {
	c := Config{
		ServiceName:       strings.TrimSpace(cfg.AppName),
		Environment:       strings.ToLower(strings.TrimSpace(cfg.Environment)),
		Version:           strings.TrimSpace(cfg.AppVersion),
		LogLevel:          strings.ToLower(strings.TrimSpace(cfg.LogLevel)),
		LogFormat:         strings.ToLower(strings.TrimSpace(cfg.LogFormat)),
		OtelEnabled:       cfg.OtelEnabled,
		OtelEndpoint:      strings.TrimSpace(cfg.OtelEndpoint),
		OtelProtocol:      strings.ToLower(strings.TrimSpace(cfg.OtelProtocol)),
		OtelSamplingRatio: cfg.OtelSamplingRatio,
	}
	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat != "console" {
		c.LogFormat = "json"
	}
	switch c.OtelProtocol {
	case "http", "http/protobuf":
		c.OtelProtocol = "http"
	default:
		c.OtelProtocol = "grpc"
	}
	switch {
	case c.OtelSamplingRatio < 0:
		c.OtelSamplingRatio = 0
	case c.OtelSamplingRatio > 1:
		c.OtelSamplingRatio = 1
	}
	// No collector to ship to.
	if c.OtelEndpoint == "" {
		c.OtelEnabled = false
	}
	return c
}

// Debug enables stack traces and verbose request logs.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch c.Environment {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func (c Config) Logger() logger.Config {
	return logger.Config{
		ServiceName:         c.ServiceName,
		Environment:         c.Environment,
		Version:             c.Version,
		Level:               c.LogLevel,
		Format:              c.LogFormat,
		IncludeCaller:       true,
		IncludeStackOnError: c.Debug(),
	}
}

func (c Config) Tracing() tracing.Config {
	return tracing.Config{
		Enabled:          c.OtelEnabled,
		ServiceName:      c.ServiceName,
		ServiceVersion:   c.Version,
		Environment:      c.Environment,
		ExporterEndpoint: c.OtelEndpoint,
		ExporterProtocol: c.OtelProtocol,
		SamplingRatio:    c.OtelSamplingRatio,
	}
}

func (c Config) Metrics() metrics.Config {
	return metrics.Config{
		Enabled:          c.OtelEnabled,
		ExporterEndpoint: c.OtelEndpoint,
		ExporterProtocol: c.OtelProtocol,
		ServiceName:      c.ServiceName,
		Environment:      c.Environment,
	}
}
