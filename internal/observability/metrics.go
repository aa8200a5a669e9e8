package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/trubax/trubax-core/internal/config"
)

type AppMetrics struct {
	followToggleCounter   metric.Int64Counter
	followResolveCounter  metric.Int64Counter
	sweepSessionCounter   metric.Int64Counter
	sweepChunkCounter     metric.Int64Counter
	sessionCreatedCounter metric.Int64Counter
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.OTELServiceName),
			attribute.String("deployment.environment", cfg.OTELEnvironment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	meter := mp.Meter("trubax-core")
	toggleCounter, err := meter.Int64Counter("follow.toggle.attempts")
	if err != nil {
		return nil, err
	}
	resolveCounter, err := meter.Int64Counter("follow.request.resolutions")
	if err != nil {
		return nil, err
	}
	sweepSessions, err := meter.Int64Counter("sweep.sessions.terminated")
	if err != nil {
		return nil, err
	}
	sweepChunks, err := meter.Int64Counter("sweep.chunks")
	if err != nil {
		return nil, err
	}
	sessionsCreated, err := meter.Int64Counter("session.created")
	if err != nil {
		return nil, err
	}

	metricsMu.Lock()
	appMetrics = &AppMetrics{
		followToggleCounter:   toggleCounter,
		followResolveCounter:  resolveCounter,
		sweepSessionCounter:   sweepSessions,
		sweepChunkCounter:     sweepChunks,
		sessionCreatedCounter: sessionsCreated,
	}
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func RecordFollowToggle(outcome string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.followToggleCounter.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordFollowResolution(action, status string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.followResolveCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("action", action),
			attribute.String("status", status),
		),
	)
}

func RecordSweepSessions(n int64, accountKind string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil || n == 0 {
		return
	}
	m.sweepSessionCounter.Add(context.Background(), n, metric.WithAttributes(attribute.String("account_kind", accountKind)))
}

func RecordSweepChunk(status string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.sweepChunkCounter.Add(context.Background(), 1, metric.WithAttributes(attribute.String("status", status)))
}

func RecordSessionCreated(platform string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.sessionCreatedCounter.Add(context.Background(), 1, metric.WithAttributes(attribute.String("platform", platform)))
}
