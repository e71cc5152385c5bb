// Package analyze runs model-assisted structural analysis of workflow
// documents, falling back to deterministic analysis when the model is
// unavailable or returns something unusable.
package analyze

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/nodemedic/pkg/nodemedic/llm"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/template"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/workflow"
)

// Analyzer asks a model to explain a workflow's structure and problems.
type Analyzer struct {
	client llm.Client
	logger *slog.Logger
}

// NewAnalyzer builds an analyzer on top of a model client.
func NewAnalyzer(client llm.Client, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{client: client, logger: logger}
}

const analysisPromptFormat = `You are an expert ComfyUI workflow analyzer.
Your task is to analyze the provided workflow JSON and return a structured analysis in JSON format.

[WORKFLOW STRUCTURE EXPLANATION]
- Nodes have ID, Type, Inputs, and Outputs.
- Links array format: [link_id, origin_node_id, origin_slot_index, target_node_id, target_slot_index, type].
- A connection exists if a link entry connects an Origin Node to a Target Node.

[TASK]
1. **Summary**: Briefly describe what this workflow does based on the nodes and connections.
2. **Data Flow**: List the high-level flow of data (e.g., LoadImage -> KSampler -> SaveImage). Trace the links array to find actual connections.
3. **Key Nodes**: Identify the most important nodes (CheckpointLoader, KSampler, SaveImage, etc.).
4. **Issues**: specific errors.
   - Check for nodes with missing inputs (where 'link_id' is null).
   - Check for broken flows (e.g., KSampler not connected to VAE Decode).
   - Count the links correctly based on the 'links' array.
5. **Suggestions**: actionable advice to improve or fix the workflow.

[OUTPUT FORMAT]
Return ONLY valid JSON with this schema:
{
    "summary": "string",
    "data_flow": ["string", "string"],
    "key_nodes": [{"id": "string", "type": "string", "description": "string"}],
    "issues": [
        {"id": "unique_id", "node_id": int, "severity": "error|warning", "message": "string", "fix_suggestion": "string"}
    ],
    "suggestions": ["string"]
}

[WORKFLOW JSON]
%s

Analyze in %s language.`

// wire mirrors the model's output schema; node ids arrive as numbers
// or strings depending on the model's mood.
type wire struct {
	Summary  string   `json:"summary"`
	DataFlow []string `json:"data_flow"`
	KeyNodes []struct {
		ID          any    `json:"id"`
		Type        string `json:"type"`
		Description string `json:"description"`
	} `json:"key_nodes"`
	Issues []struct {
		ID            string `json:"id"`
		NodeID        any    `json:"node_id"`
		Severity      string `json:"severity"`
		Message       string `json:"message"`
		FixSuggestion string `json:"fix_suggestion"`
	} `json:"issues"`
	Suggestions []string `json:"suggestions"`
}

// Analyze runs the model analysis. Any failure degrades to the
// deterministic analysis; it never returns an error to the caller.
func (a *Analyzer) Analyze(ctx context.Context, doc *workflow.Document, language string) workflow.Analysis {
	analysis, err := a.modelAnalysis(ctx, doc, language)
	if err != nil {
		a.logger.Warn("model analysis failed, using structural fallback",
			slog.String("error", err.Error()))
		return workflow.Analyze(doc, language)
	}
	return analysis
}

func (a *Analyzer) modelAnalysis(ctx context.Context, doc *workflow.Document, language string) (workflow.Analysis, error) {
	simplified, err := doc.Simplify()
	if err != nil {
		return workflow.Analysis{}, fmt.Errorf("simplify workflow: %w", err)
	}

	prompt := fmt.Sprintf(analysisPromptFormat, simplified, language)
	response, err := a.client.Complete(ctx, []llm.Message{llm.User(prompt)})
	if err != nil {
		return workflow.Analysis{}, err
	}

	var parsed wire
	if err := template.UnmarshalEmbedded(response, &parsed); err != nil {
		return workflow.Analysis{}, fmt.Errorf("decode analysis: %w", err)
	}

	analysis := workflow.Analysis{
		Summary:     parsed.Summary,
		DataFlow:    parsed.DataFlow,
		Suggestions: parsed.Suggestions,
	}
	if analysis.Summary == "" {
		analysis.Summary = "Analysis failed"
	}
	for _, kn := range parsed.KeyNodes {
		analysis.KeyNodes = append(analysis.KeyNodes, workflow.KeyNode{
			ID:          idString(kn.ID),
			Type:        kn.Type,
			Description: kn.Description,
		})
	}
	for _, issue := range parsed.Issues {
		analysis.Issues = append(analysis.Issues, workflow.Issue{
			ID:            issue.ID,
			NodeID:        idString(issue.NodeID),
			Severity:      issue.Severity,
			Message:       issue.Message,
			FixSuggestion: issue.FixSuggestion,
		})
	}
	return analysis, nil
}

// idString normalizes a model-supplied id to text. JSON numbers decode
// as float64; integral values must not render with an exponent or
// decimal point.
func idString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		return fmt.Sprintf("%d", int64(id))
	default:
		return fmt.Sprintf("%v", id)
	}
}
