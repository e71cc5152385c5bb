// Package nodemedic provides a step-graph execution engine for
// conversational diagnostic turns.
//
// A turn is modeled as a pipeline of named steps connected by edges.
// Conditional transitions use routers that return route keys looked up
// in static route tables, so every possible transition is known at
// compile time. The driver loop executes steps one at a time, persists
// state through an optional checkpoint store, and reports progress to
// an optional observer.
package nodemedic

import (
	"errors"
	"fmt"
)

// Sentinel errors for graph building and compilation.
var (
	// ErrNoEntryPoint indicates SetEntry() was not called before Compile().
	ErrNoEntryPoint = errors.New("entry point not set")

	// ErrEntryNotFound indicates the entry point references a non-existent step.
	ErrEntryNotFound = errors.New("entry point step not found")

	// ErrStepNotFound indicates an edge references a non-existent step.
	ErrStepNotFound = errors.New("step not found")

	// ErrNoPathToEnd indicates no path exists from the entry point to END.
	ErrNoPathToEnd = errors.New("no path to END from entry")
)

// Sentinel errors for execution.
var (
	// ErrMaxIterations indicates the driver loop exceeded the configured limit.
	ErrMaxIterations = errors.New("exceeded maximum iterations")

	// ErrNilContext indicates Run() was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrUnknownRoute indicates a router returned a key absent from its route table.
	ErrUnknownRoute = errors.New("router returned unknown route key")

	// ErrSessionIDRequired indicates checkpointing was enabled without a session ID.
	ErrSessionIDRequired = errors.New("session ID required for checkpointing")
)

// CheckpointError wraps errors from checkpoint operations.
type CheckpointError struct {
	// SessionID is the session whose checkpoint failed.
	SessionID string
	// Op is the operation that failed ("save", "serialize", "marshal").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s for session %s: %v", e.Op, e.SessionID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *CheckpointError) Unwrap() error {
	return e.Err
}

// StepError wraps an error with step context.
// It provides information about which step failed and what operation was attempted.
type StepError struct {
	// Step is the identifier of the step that failed.
	Step string
	// Op is the operation that failed (e.g., "execute").
	Op string
	// Err is the underlying error from the step.
	Err error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %s: %v", e.Step, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *StepError) Unwrap() error {
	return e.Err
}

// PanicError captures panic information from step execution.
// It includes the stack trace for debugging.
type PanicError struct {
	// Step is the identifier of the step that panicked.
	Step string
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("step %s panicked: %v", e.Step, e.Value)
}

// CancellationError captures the state when execution was cancelled.
// It preserves the state at the point of cancellation for recovery.
type CancellationError struct {
	// Step is the step that was about to execute.
	Step string
	// State is the state at cancellation (can type-assert to the actual type).
	State any
	// Cause is the underlying cancellation cause.
	Cause error
}

// Error implements the error interface.
func (e *CancellationError) Error() string {
	return fmt.Sprintf("cancelled before step %s: %v", e.Step, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CancellationError) Unwrap() error {
	return e.Cause
}

// RouterError wraps errors from conditional edge routing.
// It provides context about which router failed and what key it returned.
type RouterError struct {
	// FromStep is the step with the conditional edge.
	FromStep string
	// Returned is the route key the router returned.
	Returned string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *RouterError) Error() string {
	return fmt.Sprintf("router from %s returned %q: %v", e.FromStep, e.Returned, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *RouterError) Unwrap() error {
	return e.Err
}

// MaxIterationsError provides context when the loop limit is exceeded.
// It includes the state at termination for inspection.
type MaxIterationsError struct {
	// Max is the configured iteration limit.
	Max int
	// LastStep is the step that would have executed next.
	LastStep string
	// State is the state at termination (can type-assert to the actual type).
	State any
}

// Error implements the error interface.
func (e *MaxIterationsError) Error() string {
	return fmt.Sprintf("exceeded maximum iterations (%d) at step %s", e.Max, e.LastStep)
}

// Unwrap returns ErrMaxIterations for errors.Is support.
func (e *MaxIterationsError) Unwrap() error {
	return ErrMaxIterations
}
