package nodemedic

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/randalmurphal/nodemedic/pkg/nodemedic/checkpoint"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/observability"
	"go.opentelemetry.io/otel/trace"
)

// Run executes the turn pipeline with the given initial state.
// Returns the final state and any error encountered.
//
// On success, returns the state after the last step executed before END.
// On error, returns the state at the point of failure (useful for debugging).
//
// Execution flow:
//  1. Start at the entry point step
//  2. Check for cancellation
//  3. Execute the current step
//  4. Determine the next step (via simple edge or route table)
//  5. Checkpoint the state if a store is configured
//  6. Repeat until END is reached or an error occurs
func (cg *CompiledGraph[S]) Run(ctx Context, state S, opts ...RunOption) (result S, runErr error) {
	if ctx == nil {
		return state, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.checkpointStore != nil && cfg.sessionID == "" {
		return state, ErrSessionIDRequired
	}
	if cfg.checkpointStore != nil {
		cfg.sequence = loadSequence(cfg.checkpointStore, cfg.sessionID)
	}

	sessionID := cfg.sessionID
	if sessionID == "" {
		sessionID = ctx.SessionID()
	}
	turnID := ctx.TurnID()

	startTime := time.Now()
	observability.LogTurnStart(cfg.logger, sessionID, turnID)

	var execCtx context.Context = ctx
	var turnSpan trace.Span
	if cfg.tracingEnabled {
		execCtx, turnSpan = cfg.spans.StartTurnSpan(ctx, sessionID, turnID)
		defer func() {
			cfg.spans.EndSpanWithError(turnSpan, runErr)
		}()
	}

	var stepCount int
	result, stepCount, runErr = cg.drive(execCtx, ctx, state, &cfg)

	duration := time.Since(startTime)
	cfg.metrics.RecordTurn(ctx, runErr == nil, duration)

	if runErr != nil {
		lastStep := ""
		switch e := runErr.(type) {
		case *StepError:
			lastStep = e.Step
		case *MaxIterationsError:
			lastStep = e.LastStep
		case *CancellationError:
			lastStep = e.Step
		case *PanicError:
			lastStep = e.Step
		}
		observability.LogTurnError(cfg.logger, sessionID, turnID, runErr, lastStep)
	} else {
		observability.LogTurnComplete(cfg.logger, sessionID, turnID, float64(duration.Milliseconds()), stepCount)
	}

	return result, runErr
}

// drive is the explicit driver loop.
// tracingCtx carries span context; execCtx is the engine Context.
// Returns the final state, step count, and any error.
func (cg *CompiledGraph[S]) drive(tracingCtx context.Context, execCtx Context, state S, cfg *runConfig) (S, int, error) {
	current := cg.entryPoint
	iterations := 0
	prevStep := ""
	stepCount := 0

	for current != END {
		iterations++
		if iterations > cfg.maxIterations {
			return state, stepCount, &MaxIterationsError{
				Max:      cfg.maxIterations,
				LastStep: current,
				State:    state,
			}
		}

		// Check for cancellation before executing the step.
		select {
		case <-execCtx.Done():
			return state, stepCount, &CancellationError{
				Step:  current,
				State: state,
				Cause: execCtx.Err(),
			}
		default:
		}

		observability.LogStepStart(cfg.logger, current)
		if cfg.observer != nil {
			cfg.observer.OnStepStart(current)
		}

		stepTracingCtx := tracingCtx
		var stepSpan trace.Span
		if cfg.tracingEnabled {
			stepTracingCtx, stepSpan = cfg.spans.StartStepSpan(tracingCtx, current)
		}

		stepStart := time.Now()
		var stepErr error
		state, stepErr = cg.executeStep(execCtx, current, state)
		stepDuration := time.Since(stepStart)

		cfg.metrics.RecordStepExecution(stepTracingCtx, current, stepDuration, stepErr)
		if cfg.tracingEnabled {
			cfg.spans.EndSpanWithError(stepSpan, stepErr)
		}
		if cfg.observer != nil {
			cfg.observer.OnStepEnd(current, stepErr)
		}

		if stepErr != nil {
			observability.LogStepError(cfg.logger, current, stepErr)
			return state, stepCount, stepErr
		}
		observability.LogStepComplete(cfg.logger, current, float64(stepDuration.Milliseconds()))
		stepCount++

		next, err := cg.nextStep(execCtx, state, current)
		if err != nil {
			return state, stepCount, err
		}

		if cfg.checkpointStore != nil {
			if err := cg.saveCheckpoint(execCtx, cfg, current, prevStep, state, next); err != nil {
				return state, stepCount, err
			}
		}

		prevStep = current
		current = next
	}

	return state, stepCount, nil
}

// loadSequence resumes envelope numbering from the session's latest
// checkpoint so sequences stay monotonic across turns. New sessions
// and unreadable checkpoints start from zero.
func loadSequence(store checkpoint.Store, sessionID string) int {
	data, err := store.Load(sessionID)
	if err != nil {
		return 0
	}
	cp, err := checkpoint.Unmarshal(data)
	if err != nil {
		return 0
	}
	return cp.Sequence
}

// saveCheckpoint persists the current state after step execution.
func (cg *CompiledGraph[S]) saveCheckpoint(ctx Context, cfg *runConfig, stepID, prevStepID string, state S, nextStep string) error {
	stateBytes, err := json.Marshal(state)
	if err != nil {
		if cfg.checkpointFailureFatal {
			return &CheckpointError{SessionID: cfg.sessionID, Op: "serialize", Err: err}
		}
		observability.LogCheckpointError(cfg.logger, cfg.sessionID, "serialize", err)
		return nil
	}

	cfg.sequence++
	cp := checkpoint.New(cfg.sessionID, stepID, cfg.sequence, stateBytes, nextStep).
		WithPrevStep(prevStepID)

	data, err := cp.Marshal()
	if err != nil {
		if cfg.checkpointFailureFatal {
			return &CheckpointError{SessionID: cfg.sessionID, Op: "marshal", Err: err}
		}
		observability.LogCheckpointError(cfg.logger, cfg.sessionID, "marshal", err)
		return nil
	}

	if err := cfg.checkpointStore.Save(cfg.sessionID, data); err != nil {
		if cfg.checkpointFailureFatal {
			return &CheckpointError{SessionID: cfg.sessionID, Op: "save", Err: err}
		}
		observability.LogCheckpointError(cfg.logger, cfg.sessionID, "save", err)
		return nil
	}

	sizeBytes := len(data)
	observability.LogCheckpoint(cfg.logger, cfg.sessionID, sizeBytes)
	cfg.metrics.RecordCheckpoint(ctx, cfg.sessionID, int64(sizeBytes))

	return nil
}

// executeStep executes a single step with panic recovery.
// Returns the new state and any error (including wrapped panics).
func (cg *CompiledGraph[S]) executeStep(ctx Context, stepID string, state S) (result S, err error) {
	fn, exists := cg.getStep(stepID)
	if !exists {
		// Shouldn't happen if compilation was successful.
		return state, &StepError{
			Step: stepID,
			Op:   "lookup",
			Err:  fmt.Errorf("step not found: %s", stepID),
		}
	}

	// Create step-specific context with enriched logger.
	stepCtx := ctx
	if ec, ok := ctx.(*executionContext); ok {
		stepCtx = ec.withStepID(stepID)
	}

	defer func() {
		if r := recover(); r != nil {
			result = state
			err = &PanicError{
				Step:  stepID,
				Value: r,
				Stack: string(debug.Stack()),
			}
		}
	}()

	result, err = fn(stepCtx, state)
	if err != nil {
		return result, &StepError{
			Step: stepID,
			Op:   "execute",
			Err:  err,
		}
	}

	return result, nil
}

// nextStep determines the next step to execute.
// Checks conditional edges first, then simple edges.
func (cg *CompiledGraph[S]) nextStep(ctx Context, state S, current string) (string, error) {
	if router, table, exists := cg.getRouter(current); exists {
		routerCtx := ctx
		if ec, ok := ctx.(*executionContext); ok {
			routerCtx = ec.withStepID(current)
		}

		key := router(routerCtx, state)

		next, ok := table[key]
		if !ok {
			return "", &RouterError{
				FromStep: current,
				Returned: key,
				Err:      ErrUnknownRoute,
			}
		}
		return next, nil
	}

	next, ok := cg.edges[current]
	if !ok {
		// Shouldn't happen if compilation was successful.
		return "", &StepError{
			Step: current,
			Op:   "routing",
			Err:  fmt.Errorf("no outgoing edge from step %s", current),
		}
	}
	return next, nil
}
