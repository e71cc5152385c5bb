package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records engine metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordStepExecution records a step execution with its duration and error status.
	RecordStepExecution(ctx context.Context, step string, duration time.Duration, err error)

	// RecordTurn records a completed conversation turn.
	RecordTurn(ctx context.Context, success bool, duration time.Duration)

	// RecordBackendCall records a model backend call.
	RecordBackendCall(ctx context.Context, backend string, duration time.Duration, err error)

	// RecordActionExecution records a repair action execution.
	RecordActionExecution(ctx context.Context, actionType string, success bool)

	// RecordCheckpoint records a session checkpoint save.
	RecordCheckpoint(ctx context.Context, sessionID string, sizeBytes int64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	stepExecutions   metric.Int64Counter
	stepLatency      metric.Float64Histogram
	stepErrors       metric.Int64Counter
	turns            metric.Int64Counter
	turnLatency      metric.Float64Histogram
	backendCalls     metric.Int64Counter
	backendLatency   metric.Float64Histogram
	actionExecutions metric.Int64Counter
	checkpointSize   metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("nodemedic")

	stepExecutions, err := meter.Int64Counter("nodemedic.step.executions",
		metric.WithDescription("Number of step executions"),
	)
	if err != nil {
		return nil, err
	}

	stepLatency, err := meter.Float64Histogram("nodemedic.step.latency_ms",
		metric.WithDescription("Step execution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	stepErrors, err := meter.Int64Counter("nodemedic.step.errors",
		metric.WithDescription("Number of step execution errors"),
	)
	if err != nil {
		return nil, err
	}

	turns, err := meter.Int64Counter("nodemedic.turns",
		metric.WithDescription("Number of conversation turns"),
	)
	if err != nil {
		return nil, err
	}

	turnLatency, err := meter.Float64Histogram("nodemedic.turn.latency_ms",
		metric.WithDescription("Turn latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	backendCalls, err := meter.Int64Counter("nodemedic.backend.calls",
		metric.WithDescription("Number of model backend calls"),
	)
	if err != nil {
		return nil, err
	}

	backendLatency, err := meter.Float64Histogram("nodemedic.backend.latency_ms",
		metric.WithDescription("Backend call latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	actionExecutions, err := meter.Int64Counter("nodemedic.action.executions",
		metric.WithDescription("Number of repair action executions"),
	)
	if err != nil {
		return nil, err
	}

	checkpointSize, err := meter.Int64Histogram("nodemedic.checkpoint.size_bytes",
		metric.WithDescription("Session checkpoint size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		stepExecutions:   stepExecutions,
		stepLatency:      stepLatency,
		stepErrors:       stepErrors,
		turns:            turns,
		turnLatency:      turnLatency,
		backendCalls:     backendCalls,
		backendLatency:   backendLatency,
		actionExecutions: actionExecutions,
		checkpointSize:   checkpointSize,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordStepExecution records a step execution.
func (m *otelMetrics) RecordStepExecution(ctx context.Context, step string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("step", step),
	}

	m.stepExecutions.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.stepLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.stepErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordTurn records a completed turn.
func (m *otelMetrics) RecordTurn(ctx context.Context, success bool, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.Bool("success", success),
	}
	m.turns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.turnLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordBackendCall records a model backend call.
func (m *otelMetrics) RecordBackendCall(ctx context.Context, backend string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("backend", backend),
		attribute.Bool("success", err == nil),
	}
	m.backendCalls.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.backendLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordActionExecution records a repair action execution.
func (m *otelMetrics) RecordActionExecution(ctx context.Context, actionType string, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("action_type", actionType),
		attribute.Bool("success", success),
	}
	m.actionExecutions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCheckpoint records a checkpoint save.
func (m *otelMetrics) RecordCheckpoint(ctx context.Context, sessionID string, sizeBytes int64) {
	m.checkpointSize.Record(ctx, sizeBytes)
}
