package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/litweaver/internal/config"
	"github.com/fyrsmithlabs/litweaver/internal/logging"
)

// Telemetry owns the process-wide tracer and meter providers.
type Telemetry struct {
	config config.TelemetryConfig
	logger *logging.Logger

	tracerProvider *trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider

	healthy  atomic.Bool
	degraded atomic.Bool
}

// New installs OTLP-exporting providers as the otel globals when cfg.Enabled
// is set. A disabled config yields an instance whose methods are no-ops.
//
// Exporter errors do not fail New; the instance is marked degraded instead.
func New(ctx context.Context, cfg config.TelemetryConfig, version string, logger *logging.Logger, opts ...Option) (*Telemetry, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	t := &Telemetry{config: cfg, logger: logger}
	t.healthy.Store(true)

	if !cfg.Enabled {
		return t, nil
	}
	if version == "" {
		return nil, errors.New("invalid telemetry config: service version is required")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	res := newResource(version)

	spanExporter := o.traceExporter
	if spanExporter == nil {
		exp, err := newTraceExporter(ctx, cfg)
		if err != nil {
			t.setDegraded(ctx, "tracer provider", err)
		}
		spanExporter = exp
	}
	if spanExporter != nil {
		t.tracerProvider = trace.NewTracerProvider(
			trace.WithBatcher(spanExporter),
			trace.WithResource(res),
			trace.WithSampler(newSampler(cfg.SampleRate)),
		)
		otel.SetTracerProvider(t.tracerProvider)
	}

	metricExporter := o.metricExporter
	if metricExporter == nil {
		exp, err := newMetricExporter(ctx, cfg)
		if err != nil {
			t.setDegraded(ctx, "meter provider", err)
		}
		metricExporter = exp
	}
	if metricExporter != nil {
		t.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(
				metricExporter,
				sdkmetric.WithInterval(cfg.ExportInterval.Duration()),
			)),
		)
		otel.SetMeterProvider(t.meterProvider)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Debug(ctx, "telemetry enabled",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("protocol", cfg.Protocol),
		zap.Float64("sample_rate", cfg.SampleRate),
	)
	return t, nil
}

// Tracer returns a tracer from the installed provider, or from the otel
// global when telemetry is disabled.
func (t *Telemetry) Tracer(name string, opts ...oteltrace.TracerOption) oteltrace.Tracer {
	if t == nil || t.tracerProvider == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return t.tracerProvider.Tracer(name, opts...)
}

// Meter returns a meter from the installed provider, or from the otel global
// when telemetry is disabled.
func (t *Telemetry) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if t == nil || t.meterProvider == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return t.meterProvider.Meter(name, opts...)
}

// Shutdown flushes and stops the providers. Without a deadline on ctx the
// configured shutdown timeout applies.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}

	if _, ok := ctx.Deadline(); !ok {
		timeout := t.config.ShutdownTimeout.Duration()
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var errs []error
	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace provider shutdown: %w", err))
		}
	}
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	t.healthy.Store(false)
	return errors.Join(errs...)
}

// ForceFlush exports all pending spans and metrics.
func (t *Telemetry) ForceFlush(ctx context.Context) error {
	if t == nil {
		return nil
	}

	var errs []error
	if t.tracerProvider != nil {
		if err := t.tracerProvider.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace flush: %w", err))
		}
	}
	if t.meterProvider != nil {
		if err := t.meterProvider.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter flush: %w", err))
		}
	}
	return errors.Join(errs...)
}

// HealthStatus reports whether telemetry is running and whether any provider
// failed to start.
type HealthStatus struct {
	Healthy  bool
	Degraded bool
}

// Health returns the current telemetry health status.
func (t *Telemetry) Health() HealthStatus {
	if t == nil {
		return HealthStatus{Healthy: false, Degraded: true}
	}
	return HealthStatus{
		Healthy:  t.healthy.Load(),
		Degraded: t.degraded.Load(),
	}
}

// IsEnabled returns true if telemetry is enabled and has not been shut down.
func (t *Telemetry) IsEnabled() bool {
	if t == nil {
		return false
	}
	return t.config.Enabled && t.healthy.Load()
}

func (t *Telemetry) setDegraded(ctx context.Context, component string, err error) {
	t.degraded.Store(true)
	t.logger.Warn(ctx, "telemetry degraded",
		zap.String("component", component),
		zap.Error(err),
	)
}
