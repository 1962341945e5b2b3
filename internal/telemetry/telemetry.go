// Package telemetry exports dashboard metrics over OTLP.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/studylock/studylock/internal/agent"
	"github.com/studylock/studylock/internal/domain"
)

const (
	serviceName    = "studylock"
	serviceVersion = "1.0.0"
)

// Config controls the OTLP exporter.
type Config struct {
	Enabled  bool
	Endpoint string
	Insecure bool
}

// Metrics records exchange, toggle and session metrics.
type Metrics struct {
	shutdown       func(context.Context) error
	exchangesTotal metric.Int64Counter
	latencyHist    metric.Float64Histogram
	togglesTotal   metric.Int64Counter
	sessionsActive metric.Int64UpDownCounter
	sessionsTotal  metric.Int64Counter
}

// New creates the metrics pipeline. When disabled every instrument is a no-op.
func New(ctx context.Context, cfg Config) (*Metrics, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return newMetrics(noop.NewMeterProvider(), nil)
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)
	slog.Info("OTLP metrics exporter enabled", "endpoint", cfg.Endpoint)

	return newMetrics(provider, provider.Shutdown)
}

func newMetrics(provider metric.MeterProvider, shutdown func(context.Context) error) (*Metrics, error) {
	meter := provider.Meter(serviceName)

	exchangesTotal, err := meter.Int64Counter(
		"studylock_exchanges_total",
		metric.WithDescription("Completed assistant exchanges"),
		metric.WithUnit("{exchange}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating exchanges counter: %w", err)
	}

	latencyHist, err := meter.Float64Histogram(
		"studylock_exchange_latency_seconds",
		metric.WithDescription("Assistant exchange latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating latency histogram: %w", err)
	}

	togglesTotal, err := meter.Int64Counter(
		"studylock_app_toggles_total",
		metric.WithDescription("Blocked flag toggles"),
		metric.WithUnit("{toggle}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating toggles counter: %w", err)
	}

	sessionsActive, err := meter.Int64UpDownCounter(
		"studylock_sessions_active",
		metric.WithDescription("Live dashboard sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating active sessions counter: %w", err)
	}

	sessionsTotal, err := meter.Int64Counter(
		"studylock_sessions_total",
		metric.WithDescription("Dashboard sessions opened"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sessions counter: %w", err)
	}

	return &Metrics{
		shutdown:       shutdown,
		exchangesTotal: exchangesTotal,
		latencyHist:    latencyHist,
		togglesTotal:   togglesTotal,
		sessionsActive: sessionsActive,
		sessionsTotal:  sessionsTotal,
	}, nil
}

// Record implements agent.Recorder.
func (m *Metrics) Record(ctx context.Context, result agent.Result) {
	opt := metric.WithAttributes(
		attribute.String("language", string(result.Language)),
		attribute.String("outcome", string(result.Outcome)),
	)
	m.exchangesTotal.Add(ctx, 1, opt)
	m.latencyHist.Record(ctx, result.Latency.Seconds(), opt)
}

// RecordToggle counts a blocked flag change.
func (m *Metrics) RecordToggle(ctx context.Context, app domain.MonitoredApp) {
	m.togglesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("app", app.Name),
		attribute.Bool("blocked", app.Blocked),
	))
}

// SessionOpened counts a new dashboard session.
func (m *Metrics) SessionOpened(ctx context.Context) {
	m.sessionsTotal.Add(ctx, 1)
	m.sessionsActive.Add(ctx, 1)
}

// SessionClosed counts a removed dashboard session.
func (m *Metrics) SessionClosed(ctx context.Context) {
	m.sessionsActive.Add(ctx, -1)
}

// Close shuts down the exporter and flushes any pending metrics.
func (m *Metrics) Close(ctx context.Context) error {
	if m.shutdown == nil {
		return nil
	}
	return m.shutdown(ctx)
}
