package action

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/nodemedic/pkg/nodemedic/observability"
)

// Type identifies a repair operation.
type Type string

// Supported action types.
const (
	TypeUpdateConfig   Type = "update_config"
	TypeInstallNode    Type = "install_node"
	TypeModifyWorkflow Type = "modify_workflow"
	TypeFixConnection  Type = "fix_connection"
	TypeResetNode      Type = "reset_node"
)

// Valid reports whether t is a known action type.
func (t Type) Valid() bool {
	switch t {
	case TypeUpdateConfig, TypeInstallNode, TypeModifyWorkflow, TypeFixConnection, TypeResetNode:
		return true
	}
	return false
}

// Result is the outcome of an execute call. UndoAction mirrors
// ActionID on the wire; clients pass it back to undo.
type Result struct {
	Success    bool           `json:"success"`
	Message    string         `json:"message"`
	Data       map[string]any `json:"data,omitempty"`
	ActionID   string         `json:"action_id,omitempty"`
	UndoAction string         `json:"undo_action,omitempty"`
	CanUndo    bool           `json:"can_undo"`
}

// UndoResult is the outcome of an undo call. RestoredState is the
// snapshot captured before the original action ran; applying it is the
// caller's responsibility.
type UndoResult struct {
	Success       bool           `json:"success"`
	Message       string         `json:"message"`
	RestoredState map[string]any `json:"restored_state,omitempty"`
}

type handlerFunc func(data map[string]any) (Result, error)

// Executor dispatches repair actions to type-specific handlers,
// recording each dispatch in the history before the handler runs.
type Executor struct {
	history  *History
	handlers map[Type]handlerFunc
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLogger sets the executor's logger.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = logger }
}

// WithMetrics sets the executor's metrics recorder.
func WithMetrics(m observability.MetricsRecorder) ExecutorOption {
	return func(e *Executor) { e.metrics = m }
}

// NewExecutor creates an executor backed by the given history.
func NewExecutor(history *History, opts ...ExecutorOption) *Executor {
	e := &Executor{
		history: history,
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
	}
	e.handlers = map[Type]handlerFunc{
		TypeUpdateConfig:   updateConfig,
		TypeInstallNode:    installNode,
		TypeModifyWorkflow: modifyWorkflow,
		TypeFixConnection:  fixConnection,
		TypeResetNode:      resetNode,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs an action for a session.
//
// Unknown types fail without creating a history record. For known
// types a snapshot is captured and the record appended before the
// handler runs, so a failed handler still leaves an auditable entry;
// the failure result then carries the action id with CanUndo false.
func (e *Executor) Execute(ctx context.Context, sessionID string, actionType Type, data map[string]any) Result {
	handler, ok := e.handlers[actionType]
	if !ok {
		e.logger.Warn("unknown action type",
			slog.String("session_id", sessionID),
			slog.String("action_type", string(actionType)))
		return Result{Success: false, Message: fmt.Sprintf("Unknown action type: %s", actionType)}
	}

	snapshot := captureState(actionType, data)
	actionID := e.history.Add(sessionID, actionType, data, snapshot)

	result, err := e.runHandler(handler, data)
	if err != nil {
		e.logger.Error("action handler failed",
			slog.String("session_id", sessionID),
			slog.String("action_type", string(actionType)),
			slog.String("action_id", actionID),
			slog.String("error", err.Error()))
		e.metrics.RecordActionExecution(ctx, string(actionType), false)
		return Result{
			Success:    false,
			Message:    fmt.Sprintf("Action failed: %v", err),
			ActionID:   actionID,
			UndoAction: actionID,
			CanUndo:    false,
		}
	}

	result.ActionID = actionID
	result.UndoAction = actionID
	result.CanUndo = true
	e.logger.Info("action executed",
		slog.String("session_id", sessionID),
		slog.String("action_type", string(actionType)),
		slog.String("action_id", actionID))
	e.metrics.RecordActionExecution(ctx, string(actionType), true)
	return result
}

// runHandler invokes a handler, converting panics into errors.
func (e *Executor) runHandler(handler handlerFunc, data map[string]any) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler(data)
}

// Undo returns the snapshot captured before the action ran. It never
// mutates anything and may be called repeatedly for the same id.
func (e *Executor) Undo(actionID string) UndoResult {
	record, ok := e.history.Get(actionID)
	if !ok {
		return UndoResult{Success: false, Message: "Action not found"}
	}
	if record.PreviousState == nil {
		return UndoResult{Success: false, Message: "Could not undo action"}
	}
	return UndoResult{
		Success:       true,
		Message:       "Action undone successfully",
		RestoredState: record.PreviousState,
	}
}

// SessionActions returns the history entries for a session.
func (e *Executor) SessionActions(sessionID string) []Record {
	return e.history.SessionRecords(sessionID)
}

// captureState records the caller-supplied prior state for action
// types that have one. Other types carry no snapshot and cannot be
// undone meaningfully.
func captureState(actionType Type, data map[string]any) map[string]any {
	var key string
	switch actionType {
	case TypeModifyWorkflow:
		key = "current_workflow"
	case TypeUpdateConfig:
		key = "current_config"
	default:
		return nil
	}
	snapshot, ok := data[key].(map[string]any)
	if !ok {
		return nil
	}
	return snapshot
}
