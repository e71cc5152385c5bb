// Package agent specializes the step engine into the diagnose/repair
// conversation machine: classify the request, gather evidence or
// analyze the workflow, stage and execute repairs, and generate the
// streamed reply.
package agent

import (
	"strings"

	"github.com/randalmurphal/nodemedic/pkg/nodemedic/action"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/llm"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/search"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/stream"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/workflow"
)

// Step names of the conversation machine.
const (
	StepClassify = "classify"
	StepSearch   = "search_solutions"
	StepAnalyze  = "analyze_workflow"
	StepPrepare  = "prepare_action"
	StepExecute  = "execute_action"
	StepRespond  = "generate_response"
)

// defaultHistoryWindow bounds how many messages reach a model.
const defaultHistoryWindow = 10

// StagedAction is a repair proposed in an earlier turn, persisted in
// session state while awaiting the user's confirmation.
type StagedAction struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// TurnState is the conversation state threaded through the steps. It
// is the unit persisted to the checkpoint store after every step.
type TurnState struct {
	SessionID string        `json:"session_id"`
	Language  string        `json:"language"`
	Messages  []llm.Message `json:"messages"`

	// Per-turn inputs, provided fresh each turn.
	Workflow *workflow.Document `json:"workflow,omitempty"`
	ErrorLog string             `json:"error_log,omitempty"`

	// Staged repair awaiting confirmation; survives across turns.
	StagedAction *StagedAction `json:"staged_action,omitempty"`

	// Transient per-turn fields.
	CurrentStep              string             `json:"current_step,omitempty"`
	SearchResults            []search.Result    `json:"search_results,omitempty"`
	Solutions                []search.Solution  `json:"solutions,omitempty"`
	CanAutoFix               bool               `json:"can_auto_fix,omitempty"`
	RequiresUserConfirmation bool               `json:"requires_user_confirmation,omitempty"`
	ActionType               string             `json:"action_type,omitempty"`
	ActionData               map[string]any     `json:"action_data,omitempty"`
	ActionResult             *action.Result     `json:"action_result,omitempty"`
	Analysis                 *workflow.Analysis `json:"workflow_analysis,omitempty"`
	Response                 string             `json:"response,omitempty"`

	// emitter delivers events for the current turn; never persisted.
	emitter *stream.Emitter
}

// resetTurn clears the transient fields at the start of a turn.
// Messages, language, and any staged action survive.
func (s *TurnState) resetTurn() {
	s.CurrentStep = ""
	s.SearchResults = nil
	s.Solutions = nil
	s.CanAutoFix = false
	s.RequiresUserConfirmation = false
	s.ActionType = ""
	s.ActionData = nil
	s.ActionResult = nil
	s.Analysis = nil
	s.Response = ""
}

// lastUserMessage returns the text of the most recent user message.
func (s *TurnState) lastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == llm.RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

// recentMessages returns the last n messages, always including the
// current user input.
func recentMessages(msgs []llm.Message, n int) []llm.Message {
	if n <= 0 || len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}

// affirmativeReplies confirm a staged action on the following turn.
var affirmativeReplies = map[string]bool{
	"yes":     true,
	"y":       true,
	"ok":      true,
	"confirm": true,
	"do it":   true,
}

func isAffirmative(message string) bool {
	return affirmativeReplies[strings.ToLower(strings.TrimSpace(message))]
}

// normalizeLanguage restricts the language tag to the supported set.
func normalizeLanguage(language string) string {
	switch language {
	case "en", "zh", "ja", "ko":
		return language
	}
	return "en"
}
