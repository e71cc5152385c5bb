package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/nodemedic/pkg/nodemedic"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/action"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/analyze"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/checkpoint"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/llm"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/observability"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/provider"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/search"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/stream"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/workflow"
)

// ClientFactory builds a model client for a provider config.
type ClientFactory func(ctx context.Context, cfg provider.Config) (llm.Client, error)

// Config carries the service's constructor-injected dependencies.
type Config struct {
	Store     checkpoint.Store
	Providers *provider.Store
	Executor  *action.Executor

	// Logger and Metrics default to slog.Default and a no-op recorder.
	Logger  *slog.Logger
	Metrics observability.MetricsRecorder

	// GitHubToken enables authenticated issue search; empty is fine.
	GitHubToken string

	// MaxSearchResults bounds results per evidence source.
	MaxSearchResults int

	// HistoryWindow bounds the messages sent to models per call.
	HistoryWindow int

	// ClientFactory defaults to llm.NewClient; tests inject fakes.
	ClientFactory ClientFactory

	// SearchSources overrides the evidence sources. Defaults to GitHub
	// issue search plus model-backed web search.
	SearchSources []search.Source
}

// Service runs conversation turns. Turns for the same session are
// serialized; different sessions run independently.
type Service struct {
	store         checkpoint.Store
	providers     *provider.Store
	executor      *action.Executor
	locker        *checkpoint.SessionLocker
	logger        *slog.Logger
	metrics       observability.MetricsRecorder
	githubToken   string
	maxResults    int
	historyWindow int
	newClient     ClientFactory
	sources       []search.Source
}

// NewService builds the turn service.
func NewService(cfg Config) *Service {
	s := &Service{
		store:         cfg.Store,
		providers:     cfg.Providers,
		executor:      cfg.Executor,
		locker:        checkpoint.NewSessionLocker(),
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		githubToken:   cfg.GitHubToken,
		maxResults:    cfg.MaxSearchResults,
		historyWindow: cfg.HistoryWindow,
		newClient:     cfg.ClientFactory,
		sources:       cfg.SearchSources,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = observability.NoopMetrics{}
	}
	if s.historyWindow <= 0 {
		s.historyWindow = defaultHistoryWindow
	}
	if s.maxResults <= 0 {
		s.maxResults = 5
	}
	if s.newClient == nil {
		s.newClient = llm.NewClient
	}
	return s
}

// TurnRequest is one submitted message.
type TurnRequest struct {
	SessionID        string          `json:"session_id"`
	Message          string          `json:"message"`
	Workflow         json.RawMessage `json:"workflow,omitempty"`
	ErrorLog         string          `json:"error_log,omitempty"`
	ProviderConfigID string          `json:"provider_config_id,omitempty"`
	Language         string          `json:"language,omitempty"`
}

// Validate checks required fields.
func (r TurnRequest) Validate() error {
	if r.SessionID == "" {
		return errors.New("session_id is required")
	}
	if r.Message == "" {
		return errors.New("message is required")
	}
	return nil
}

// TurnResponse is the single-shot result of a turn.
type TurnResponse struct {
	Response                 string            `json:"response"`
	RequiresUserConfirmation bool              `json:"requires_user_confirmation"`
	ActionType               string            `json:"action_type,omitempty"`
	ActionData               map[string]any    `json:"action_data,omitempty"`
	Solutions                []search.Solution `json:"solutions"`
	SearchResults            []search.Result   `json:"search_results"`
	Error                    bool              `json:"error,omitempty"`
}

// SetupError marks failures before the turn machine started: bad
// input, missing provider, unreachable store. These surface to the
// caller as transport errors instead of turn results.
type SetupError struct {
	Err error
}

// Error implements the error interface.
func (e *SetupError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error.
func (e *SetupError) Unwrap() error { return e.Err }

// StreamTurn runs a turn and returns its ordered event sequence. The
// turn executes in the background; the channel closes after the
// terminal event. Setup failures are returned directly instead.
func (s *Service) StreamTurn(ctx context.Context, req TurnRequest) (<-chan stream.Event, error) {
	if err := req.Validate(); err != nil {
		return nil, &SetupError{Err: err}
	}

	emitter := stream.NewEmitter(ctx)
	go func() {
		if _, err := s.runTurn(ctx, req, emitter); err != nil {
			emitter.Error(err.Error())
			return
		}
		emitter.End()
	}()
	return emitter.Events(), nil
}

// ProcessTurn runs a turn to completion and returns the single-shot
// response. Business failures inside the turn become an error-flagged
// response; only setup failures are returned as errors.
func (s *Service) ProcessTurn(ctx context.Context, req TurnRequest) (TurnResponse, error) {
	if err := req.Validate(); err != nil {
		return TurnResponse{}, &SetupError{Err: err}
	}

	final, err := s.runTurn(ctx, req, nil)
	if err != nil {
		var setupErr *SetupError
		if errors.As(err, &setupErr) {
			return TurnResponse{}, err
		}
		return TurnResponse{
			Response: fmt.Sprintf("Error: %v", err),
			Error:    true,
		}, nil
	}

	return TurnResponse{
		Response:                 final.Response,
		RequiresUserConfirmation: final.RequiresUserConfirmation,
		ActionType:               final.ActionType,
		ActionData:               final.ActionData,
		Solutions:                final.Solutions,
		SearchResults:            final.SearchResults,
	}, nil
}

// AnalyzeRequest asks for a standalone workflow analysis outside a
// conversation turn.
type AnalyzeRequest struct {
	SessionID        string          `json:"session_id"`
	Workflow         json.RawMessage `json:"workflow"`
	Language         string          `json:"language,omitempty"`
	ProviderConfigID string          `json:"provider_config_id,omitempty"`
}

// Validate checks required fields.
func (r AnalyzeRequest) Validate() error {
	if r.SessionID == "" {
		return errors.New("session_id is required")
	}
	if len(r.Workflow) == 0 {
		return errors.New("workflow is required")
	}
	return nil
}

// AnalyzeResponse pairs the analysis with the workflow it examined.
type AnalyzeResponse struct {
	Analysis     workflow.Analysis `json:"analysis"`
	WorkflowJSON json.RawMessage   `json:"workflow_json"`
}

// AnalyzeWorkflow runs the workflow analyzer directly, without touching
// session state. Analysis degrades to the structural fallback on model
// failure; only bad input or an unresolvable provider is an error.
func (s *Service) AnalyzeWorkflow(ctx context.Context, req AnalyzeRequest) (AnalyzeResponse, error) {
	if err := req.Validate(); err != nil {
		return AnalyzeResponse{}, &SetupError{Err: err}
	}

	doc, err := workflow.Parse(req.Workflow)
	if err != nil {
		return AnalyzeResponse{}, &SetupError{Err: fmt.Errorf("parse workflow: %w", err)}
	}

	providerCfg, err := s.resolveProvider(req.ProviderConfigID)
	if err != nil {
		return AnalyzeResponse{}, &SetupError{Err: err}
	}
	client, err := s.buildClient(ctx, providerCfg)
	if err != nil {
		return AnalyzeResponse{}, &SetupError{Err: err}
	}

	analysis := analyze.NewAnalyzer(client, s.logger).Analyze(ctx, doc, normalizeLanguage(req.Language))
	return AnalyzeResponse{Analysis: analysis, WorkflowJSON: req.Workflow}, nil
}

// History returns a session's conversation, empty for new sessions.
func (s *Service) History(sessionID string) ([]llm.Message, error) {
	state, err := s.loadState(sessionID)
	if err != nil {
		return nil, err
	}
	return state.Messages, nil
}

// runTurn is the load/run/save unit of per-session mutual exclusion.
func (s *Service) runTurn(ctx context.Context, req TurnRequest, emitter *stream.Emitter) (TurnState, error) {
	unlock := s.locker.Lock(req.SessionID)
	defer unlock()

	state, err := s.loadState(req.SessionID)
	if err != nil {
		return state, &SetupError{Err: err}
	}

	state.SessionID = req.SessionID
	state.Language = normalizeLanguage(req.Language)
	state.ErrorLog = req.ErrorLog
	state.Workflow = nil
	if len(req.Workflow) > 0 {
		doc, err := workflow.Parse(req.Workflow)
		if err != nil {
			return state, &SetupError{Err: fmt.Errorf("parse workflow: %w", err)}
		}
		state.Workflow = doc
	}
	state.resetTurn()
	state.Messages = append(state.Messages, llm.User(req.Message))
	state.emitter = emitter

	providerCfg, err := s.resolveProvider(req.ProviderConfigID)
	if err != nil {
		return state, &SetupError{Err: err}
	}
	client, err := s.buildClient(ctx, providerCfg)
	if err != nil {
		return state, &SetupError{Err: err}
	}

	graph, err := s.buildAgent(client).graph()
	if err != nil {
		return state, &SetupError{Err: fmt.Errorf("compile turn graph: %w", err)}
	}

	runCtx := nodemedic.NewContext(ctx,
		nodemedic.WithLogger(s.logger),
		nodemedic.WithSessionID(req.SessionID))

	opts := []nodemedic.RunOption{
		nodemedic.WithRunLogger(s.logger),
		nodemedic.WithMetrics(s.metrics),
		nodemedic.WithCheckpointStore(s.store, req.SessionID),
	}
	if emitter != nil {
		opts = append(opts, nodemedic.WithObserver(emitter.Observer(state.Language)))
	}

	return graph.Run(runCtx, state, opts...)
}

// buildClient resolves the model client for a provider config and wraps
// it so backend calls feed the service's metrics and logs.
func (s *Service) buildClient(ctx context.Context, cfg provider.Config) (llm.Client, error) {
	client, err := s.newClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build model client: %w", err)
	}
	return llm.Instrument(client, string(cfg.Kind), cfg.Model, s.logger, s.metrics), nil
}

// buildAgent assembles the per-turn step dependencies around the
// resolved model client.
func (s *Service) buildAgent(client llm.Client) *turnAgent {
	sources := s.sources
	if sources == nil {
		sources = []search.Source{
			search.NewGitHubSearcher(s.githubToken, s.maxResults),
			search.NewWebSearcher(client, s.maxResults),
		}
	}
	return &turnAgent{
		client:        client,
		search:        search.NewService(sources, search.NewSynthesizer(client), s.logger),
		analyzer:      analyze.NewAnalyzer(client, s.logger),
		executor:      s.executor,
		historyWindow: s.historyWindow,
	}
}

// loadState restores a session from its latest checkpoint, returning
// fresh state for unknown sessions.
func (s *Service) loadState(sessionID string) (TurnState, error) {
	data, err := s.store.Load(sessionID)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return TurnState{SessionID: sessionID}, nil
	}
	if err != nil {
		return TurnState{}, fmt.Errorf("load session: %w", err)
	}

	cp, err := checkpoint.Unmarshal(data)
	if err != nil {
		return TurnState{}, fmt.Errorf("decode checkpoint: %w", err)
	}

	var state TurnState
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return TurnState{}, fmt.Errorf("decode session state: %w", err)
	}
	return state, nil
}

// resolveProvider picks the requested config, or the default when the
// request carries no id.
func (s *Service) resolveProvider(configID string) (provider.Config, error) {
	if configID == "" {
		return s.providers.GetDefault()
	}
	return s.providers.Get(configID)
}
