package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/randalmurphal/nodemedic/pkg/nodemedic/llm"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/template"
)

// maxSynthesisResults bounds how many results feed the synthesis
// prompt.
const maxSynthesisResults = 5

// synthesisInstructions maps language to the system prompt for
// solution synthesis.
var synthesisInstructions = map[string]string{
	"en": "Analyze these search results and provide solutions in English.",
	"zh": "分析这些搜索结果并用中文提供解决方案。",
	"ja": "これらの検索結果を分析し、日本語で解決策を提供してください。",
	"ko": "이 검색 결과를 분석하고 한국어로 솔루션을 제공하세요.",
}

// Synthesizer condenses search results into candidate solutions.
type Synthesizer struct {
	client llm.Client
}

// NewSynthesizer builds a synthesizer on top of a model client.
func NewSynthesizer(client llm.Client) *Synthesizer {
	return &Synthesizer{client: client}
}

const synthesisPromptFormat = `%s

Error Log:
%s

Search Results:
%s

Analyze the search results and provide a consolidated solution.
Return in JSON format with these fields:
- description: Brief description of the solution
- steps: List of steps to fix the issue
- code_snippet: Any relevant code snippet (optional)
- requires_action: Boolean - can this be fixed automatically?
- action_type: Type of action if requires_action is true (e.g., "update_config", "install_node", "modify_workflow")
- action_data: Data needed for the action (optional)`

// Synthesize asks the model for a consolidated solution. When the
// response carries no parsable JSON object, the raw text becomes a
// single advisory solution instead of an error. Empty input yields no
// solutions without a model call.
func (s *Synthesizer) Synthesize(ctx context.Context, results []Result, errorLog, language string) ([]Solution, error) {
	if len(results) == 0 {
		return nil, nil
	}

	instructions, ok := synthesisInstructions[language]
	if !ok {
		instructions = synthesisInstructions["en"]
	}

	prompt := fmt.Sprintf(synthesisPromptFormat, instructions, errorLog, formatResults(results))
	response, err := s.client.Complete(ctx, []llm.Message{
		llm.System(instructions),
		llm.User(prompt),
	})
	if err != nil {
		return nil, err
	}

	if candidate := template.ExtractJSONObject(response); candidate != "" {
		var solution Solution
		if err := json.Unmarshal([]byte(candidate), &solution); err == nil {
			return []Solution{solution}, nil
		}
	}

	return []Solution{{Description: response, RequiresAction: false}}, nil
}

func formatResults(results []Result) string {
	if len(results) > maxSynthesisResults {
		results = results[:maxSynthesisResults]
	}
	formatted := make([]string, 0, len(results))
	for _, r := range results {
		formatted = append(formatted, fmt.Sprintf(
			"Source: %s\nTitle: %s\nURL: %s\nContent: %s",
			r.Source, r.Title, r.URL, r.Content()))
	}
	return strings.Join(formatted, "\n\n")
}
