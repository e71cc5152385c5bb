package nodemedic

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Context provides execution context to steps.
// It extends context.Context with turn-specific services and metadata.
//
// Context is immutable after creation. The driver creates derived contexts
// for each step with updated StepID and enriched logger.
type Context interface {
	context.Context

	// Logger returns the configured logger, enriched with turn and step context.
	// Never returns nil - defaults to slog.Default() if not configured.
	Logger() *slog.Logger

	// SessionID returns the conversation session this turn belongs to.
	SessionID() string

	// TurnID returns the unique identifier for this turn.
	// Auto-generated if not configured.
	TurnID() string

	// StepID returns the current step being executed.
	// Empty string before execution starts.
	StepID() string
}

// executionContext is the internal implementation of Context.
type executionContext struct {
	context.Context

	logger    *slog.Logger
	sessionID string
	turnID    string
	stepID    string
}

// Logger returns the configured logger.
func (c *executionContext) Logger() *slog.Logger {
	return c.logger
}

// SessionID returns the session identifier.
func (c *executionContext) SessionID() string {
	return c.sessionID
}

// TurnID returns the turn identifier.
func (c *executionContext) TurnID() string {
	return c.turnID
}

// StepID returns the current step identifier.
func (c *executionContext) StepID() string {
	return c.stepID
}

// ContextOption configures a Context.
type ContextOption func(*executionContext)

// WithLogger sets the logger for the context.
// The logger will be enriched with session_id, turn_id, and step during execution.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		c.logger = logger
	}
}

// WithSessionID sets the session identifier for the context.
func WithSessionID(id string) ContextOption {
	return func(c *executionContext) {
		c.sessionID = id
	}
}

// WithTurnID sets the turn identifier for the context.
// If not set, a UUID is auto-generated.
func WithTurnID(id string) ContextOption {
	return func(c *executionContext) {
		c.turnID = id
	}
}

// NewContext creates an execution context from a standard context.
// The returned Context wraps the provided context.Context and adds
// turn-specific services and metadata.
//
// Example:
//
//	ctx := nodemedic.NewContext(context.Background(),
//	    nodemedic.WithLogger(myLogger),
//	    nodemedic.WithSessionID("sess-123"))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &executionContext{
		Context: ctx,
		logger:  slog.Default(),
		turnID:  uuid.New().String(),
	}

	for _, opt := range opts {
		opt(ec)
	}

	return ec
}

// withStepID returns a new context with the given step ID set.
// Used internally by the driver to enrich the context per-step.
func (c *executionContext) withStepID(stepID string) *executionContext {
	return &executionContext{
		Context:   c.Context,
		logger:    c.logger.With("session_id", c.sessionID, "turn_id", c.turnID, "step", stepID),
		sessionID: c.sessionID,
		turnID:    c.turnID,
		stepID:    stepID,
	}
}
