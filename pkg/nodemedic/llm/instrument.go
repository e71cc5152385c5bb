package llm

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/randalmurphal/nodemedic/pkg/nodemedic/errors"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/observability"
)

// instrumentedClient wraps a Client with backend call metrics and logs.
type instrumentedClient struct {
	inner   Client
	backend string
	model   string
	logger  *slog.Logger
	metrics observability.MetricsRecorder
}

// Instrument wraps a client so every Complete and Stream call is timed,
// counted, and logged under the given backend and model labels.
func Instrument(client Client, backend, model string, logger *slog.Logger, metrics observability.MetricsRecorder) Client {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &instrumentedClient{
		inner:   client,
		backend: backend,
		model:   model,
		logger:  logger,
		metrics: metrics,
	}
}

// Complete implements Client.
func (c *instrumentedClient) Complete(ctx context.Context, msgs []Message) (string, error) {
	start := time.Now()
	out, err := c.inner.Complete(ctx, msgs)
	c.record(ctx, time.Since(start), err)
	return out, err
}

// Stream implements Client.
func (c *instrumentedClient) Stream(ctx context.Context, msgs []Message, onDelta func(string)) (string, error) {
	start := time.Now()
	out, err := c.inner.Stream(ctx, msgs, onDelta)
	c.record(ctx, time.Since(start), err)
	return out, err
}

func (c *instrumentedClient) record(ctx context.Context, duration time.Duration, err error) {
	c.metrics.RecordBackendCall(ctx, c.backend, duration, err)
	observability.LogBackendCall(c.logger, c.backend, c.model,
		float64(duration.Milliseconds()), attemptCount(err), err)
}

// attemptCount reads the attempt count from a categorized retry error.
// Calls that never entered the retry loop count as one attempt.
func attemptCount(err error) int {
	var catErr *errors.CategorizedError
	if stderrors.As(err, &catErr) && catErr.Attempts > 0 {
		return catErr.Attempts
	}
	return 1
}
