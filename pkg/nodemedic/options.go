package nodemedic

import (
	"log/slog"

	"github.com/randalmurphal/nodemedic/pkg/nodemedic/checkpoint"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/observability"
)

// runConfig holds configuration for turn execution.
type runConfig struct {
	maxIterations int
	logger        *slog.Logger
	metrics       observability.MetricsRecorder
	spans         observability.SpanManager

	tracingEnabled bool

	checkpointStore        checkpoint.Store
	sessionID              string
	checkpointFailureFatal bool
	sequence               int

	observer Observer
}

// defaultRunConfig returns the default execution configuration.
func defaultRunConfig() runConfig {
	return runConfig{
		maxIterations: 100,
		metrics:       observability.NoopMetrics{},
		spans:         observability.NoopSpanManager{},
	}
}

// RunOption configures execution behavior.
type RunOption func(*runConfig)

// WithMaxIterations sets the maximum number of step executions.
// Default: 100
//
// This prevents routing cycles from hanging forever. If a turn
// exceeds this limit, Run returns ErrMaxIterations.
func WithMaxIterations(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// WithRunLogger sets the logger used for run-level logging.
func WithRunLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder for the run.
func WithMetrics(m observability.MetricsRecorder) RunOption {
	return func(c *runConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing enables distributed tracing using the given span manager.
func WithTracing(spans observability.SpanManager) RunOption {
	return func(c *runConfig) {
		if spans != nil {
			c.spans = spans
			c.tracingEnabled = true
		}
	}
}

// WithCheckpointStore enables session state persistence after each step.
// The session ID keys the checkpoint; it is required when a store is set.
//
// Checkpoint failures are logged but non-fatal by default.
// Use WithCheckpointFailureFatal to make them abort the run.
func WithCheckpointStore(store checkpoint.Store, sessionID string) RunOption {
	return func(c *runConfig) {
		c.checkpointStore = store
		c.sessionID = sessionID
	}
}

// WithCheckpointFailureFatal makes checkpoint save failures abort the run.
func WithCheckpointFailureFatal() RunOption {
	return func(c *runConfig) {
		c.checkpointFailureFatal = true
	}
}

// WithObserver registers an observer for step lifecycle events.
// The stream bridge uses this to emit status updates as steps begin.
func WithObserver(o Observer) RunOption {
	return func(c *runConfig) {
		c.observer = o
	}
}
