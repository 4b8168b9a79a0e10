package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes board-level instruments. A nil *Metrics records nothing.
type Metrics struct {
	issuesCreated     metric.Int64Counter
	reorderBatches    metric.Int64Counter
	ordinalConflicts  metric.Int64Counter
	authzDenials      metric.Int64Counter
	sprintTransitions metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return provider.Shutdown(ctx)
			},
		})
	}
	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New creates the board instruments on provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "sprintboard"
	}
	meter := provider.Meter(name)

	var (
		m   Metrics
		err error
	)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
	}{
		{&m.issuesCreated, "sprintboard_issues_created_total"},
		{&m.reorderBatches, "sprintboard_reorder_batches_total"},
		{&m.ordinalConflicts, "sprintboard_ordinal_conflicts_total"},
		{&m.authzDenials, "sprintboard_authz_denials_total"},
		{&m.sprintTransitions, "sprintboard_sprint_transitions_total"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

func (m *Metrics) RecordIssueCreated(ctx context.Context, orgID, status string) {
	if m == nil {
		return
	}
	m.issuesCreated.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("org_id", orgID),
		attribute.String("status", status),
	)...))
}

// RecordReorder counts reorder batches by result (applied, rejected, failed).
func (m *Metrics) RecordReorder(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.reorderBatches.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("result", result),
	)...))
}

// RecordOrdinalConflict counts unique-index collisions on the order column.
func (m *Metrics) RecordOrdinalConflict(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.ordinalConflicts.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("operation", operation),
	)...))
}

func (m *Metrics) RecordAuthzDenial(ctx context.Context, action, reason string) {
	if m == nil {
		return
	}
	m.authzDenials.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("action", action),
		attribute.String("reason", reason),
	)...))
}

func (m *Metrics) RecordSprintTransition(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.sprintTransitions.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("status", status),
	)...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"org_id":      {},
	"status":      {},
	"result":      {},
	"operation":   {},
	"action":      {},
	"reason":      {},
	"route":       {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
