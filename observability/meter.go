package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/apikit/logger"
)

// InitMeter installs a periodic OTLP meter provider as the process global.
// The caller owns Shutdown.
func InitMeter(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		logger.FieldService, cfg.ServiceName,
		"endpoint", cfg.Endpoint,
		"interval", cfg.Interval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded around every outgoing call.
type Metrics struct {
	callTotal    metric.Int64Counter
	callDuration metric.Float64Histogram
	callActive   metric.Int64UpDownCounter
	errorTotal   metric.Int64Counter
}

// NewMetrics creates the call instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	callTotal, err := meter.Int64Counter("apikit.call.total",
		metric.WithDescription("Outgoing calls by service, method and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating apikit.call.total counter: %w", err)
	}

	callDuration, err := meter.Float64Histogram("apikit.call.duration",
		metric.WithDescription("Outgoing call latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating apikit.call.duration histogram: %w", err)
	}

	callActive, err := meter.Int64UpDownCounter("apikit.call.active",
		metric.WithDescription("Calls currently in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating apikit.call.active gauge: %w", err)
	}

	errorTotal, err := meter.Int64Counter("apikit.error.total",
		metric.WithDescription("Failed calls by service and error kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating apikit.error.total counter: %w", err)
	}

	return &Metrics{
		callTotal:    callTotal,
		callDuration: callDuration,
		callActive:   callActive,
		errorTotal:   errorTotal,
	}, nil
}

// RecordCallStart marks a call as in flight.
func (m *Metrics) RecordCallStart(ctx context.Context, service string) {
	m.callActive.Add(ctx, 1, metric.WithAttributes(attribute.String("service", service)))
}

// RecordCallEnd closes a call started with RecordCallStart. A zero status
// means no response was received.
func (m *Metrics) RecordCallEnd(ctx context.Context, service, method string, status int, elapsed time.Duration) {
	svc := attribute.String("service", service)
	m.callActive.Add(ctx, -1, metric.WithAttributes(svc))
	m.callTotal.Add(ctx, 1, metric.WithAttributes(
		svc,
		attribute.String("method", method),
		attribute.String("status", statusLabel(status)),
	))
	m.callDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		svc,
		attribute.String("method", method),
	))
}

// RecordError counts a failed call by kind, e.g. "timeout" or "application".
func (m *Metrics) RecordError(ctx context.Context, service, kind string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("kind", kind),
	))
}

func statusLabel(status int) string {
	if status == 0 {
		return "none"
	}
	return strconv.Itoa(status)
}
