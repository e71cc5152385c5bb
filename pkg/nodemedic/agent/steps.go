package agent

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/randalmurphal/nodemedic/pkg/nodemedic"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/action"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/analyze"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/llm"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/search"
)

// Route keys returned by the routers.
const (
	routeSearch  = "search"
	routeAnalyze = "analyze"
	routeRespond = "respond"
	routeExecute = "execute"
	routePrepare = "prepare_action"
)

// turnAgent holds the per-turn dependencies the steps close over. A
// new one is built for every turn because the model client depends on
// the provider the caller selected.
type turnAgent struct {
	client        llm.Client
	search        *search.Service
	analyzer      *analyze.Analyzer
	executor      *action.Executor
	historyWindow int
}

// graph wires the six steps into the compiled conversation machine.
func (a *turnAgent) graph() (*nodemedic.CompiledGraph[TurnState], error) {
	return nodemedic.NewGraph[TurnState]().
		AddStep(StepClassify, a.classify).
		AddStep(StepSearch, a.searchSolutions).
		AddStep(StepAnalyze, a.analyzeWorkflow).
		AddStep(StepPrepare, a.prepareAction).
		AddStep(StepExecute, a.executeAction).
		AddStep(StepRespond, a.respond).
		SetEntry(StepClassify).
		AddConditionalEdge(StepClassify, a.afterClassify, map[string]string{
			routeSearch:  StepSearch,
			routeAnalyze: StepAnalyze,
			routeRespond: StepRespond,
			routeExecute: StepExecute,
		}).
		AddConditionalEdge(StepSearch, a.afterSearch, map[string]string{
			routePrepare: StepPrepare,
			routeRespond: StepRespond,
		}).
		AddEdge(StepAnalyze, StepRespond).
		AddConditionalEdge(StepPrepare, a.afterPrepare, map[string]string{
			routeExecute: StepExecute,
			routeRespond: StepRespond,
		}).
		AddEdge(StepExecute, StepRespond).
		AddEdge(StepRespond, nodemedic.END).
		Compile()
}

// classify buckets the user's message. A staged action plus an
// affirmative reply short-circuits straight to execution; any model
// failure or unrecognized category falls back to a plain response.
func (a *turnAgent) classify(ctx nodemedic.Context, state TurnState) (TurnState, error) {
	if staged := state.StagedAction; staged != nil {
		state.StagedAction = nil
		if isAffirmative(state.lastUserMessage()) {
			state.ActionType = staged.Type
			state.ActionData = staged.Data
			state.CurrentStep = routeExecute
			return state, nil
		}
	}

	last := state.lastUserMessage()
	if last == "" {
		state.CurrentStep = routeRespond
		return state, nil
	}

	prompt := fmt.Sprintf(classifyPromptFormat, last, state.ErrorLog != "", state.Workflow != nil)
	response, err := a.client.Complete(ctx, []llm.Message{llm.User(prompt)})
	if err != nil {
		ctx.Logger().Warn("classification failed, defaulting to respond",
			slog.String("error", err.Error()))
		state.CurrentStep = routeRespond
		return state, nil
	}

	category := strings.ToLower(strings.TrimSpace(response))
	switch category {
	case routeSearch, routeAnalyze, routeRespond:
		state.CurrentStep = category
	default:
		state.CurrentStep = routeRespond
	}
	return state, nil
}

// searchSolutions gathers evidence for the error and synthesizes
// candidate solutions, previewing result titles on the event stream.
func (a *turnAgent) searchSolutions(ctx nodemedic.Context, state TurnState) (TurnState, error) {
	query := strings.TrimSpace(state.lastUserMessage() + " " + state.ErrorLog)

	results, solutions := a.search.Gather(ctx, query, state.ErrorLog, state.Language)
	state.SearchResults = results
	state.Solutions = solutions

	state.CanAutoFix = false
	for _, sol := range solutions {
		if sol.RequiresAction {
			state.CanAutoFix = true
			break
		}
	}

	if state.emitter != nil && len(results) > 0 {
		titles := make([]string, 0, len(results))
		for _, r := range results {
			titles = append(titles, r.Title)
		}
		state.emitter.MetaUpdate(StepSearch, titles)
	}
	return state, nil
}

// analyzeWorkflow runs the model-assisted structural analysis. The
// analyzer degrades internally, so this step never fails the turn.
func (a *turnAgent) analyzeWorkflow(ctx nodemedic.Context, state TurnState) (TurnState, error) {
	if state.Workflow == nil {
		return state, nil
	}
	analysis := a.analyzer.Analyze(ctx, state.Workflow, state.Language)
	state.Analysis = &analysis
	return state, nil
}

// prepareAction stages the first auto-fixable solution. Staged repairs
// always require confirmation; execution happens on the next turn
// after the user agrees.
func (a *turnAgent) prepareAction(_ nodemedic.Context, state TurnState) (TurnState, error) {
	for _, sol := range state.Solutions {
		if !sol.RequiresAction {
			continue
		}
		state.RequiresUserConfirmation = true
		state.ActionType = sol.ActionType
		state.ActionData = sol.ActionData
		state.StagedAction = &StagedAction{Type: sol.ActionType, Data: sol.ActionData}
		break
	}
	return state, nil
}

// executeAction dispatches the staged repair. The executor reports
// failures as structured results, so this step never fails the turn.
func (a *turnAgent) executeAction(ctx nodemedic.Context, state TurnState) (TurnState, error) {
	if state.ActionType == "" {
		return state, nil
	}
	result := a.executor.Execute(ctx, ctx.SessionID(), action.Type(state.ActionType), state.ActionData)
	state.ActionResult = &result
	return state, nil
}

// respond composes and streams the final reply. A model failure
// becomes the reply text rather than a turn failure, so the caller
// always gets a well-formed response.
func (a *turnAgent) respond(ctx nodemedic.Context, state TurnState) (TurnState, error) {
	msgs := make([]llm.Message, 0, a.historyWindow+1)
	msgs = append(msgs, llm.System(systemPrompt(state)))
	msgs = append(msgs, recentMessages(state.Messages, a.historyWindow)...)

	var onDelta func(string)
	if state.emitter != nil {
		onDelta = state.emitter.ContentChunk
	}

	content, err := a.client.Stream(ctx, msgs, onDelta)
	if err != nil {
		ctx.Logger().Error("response generation failed",
			slog.String("error", err.Error()))
		content = fmt.Sprintf("Error generating response: %v", err)
		if state.emitter != nil {
			state.emitter.ContentChunk(content)
		}
	}

	state.Messages = append(state.Messages, llm.Assistant(content))
	state.Response = content
	return state, nil
}

func (a *turnAgent) afterClassify(_ nodemedic.Context, state TurnState) string {
	if state.CurrentStep == "" {
		return routeRespond
	}
	return state.CurrentStep
}

func (a *turnAgent) afterSearch(_ nodemedic.Context, state TurnState) string {
	if state.CanAutoFix {
		return routePrepare
	}
	return routeRespond
}

func (a *turnAgent) afterPrepare(_ nodemedic.Context, state TurnState) string {
	if state.RequiresUserConfirmation {
		return routeRespond
	}
	return routeExecute
}
