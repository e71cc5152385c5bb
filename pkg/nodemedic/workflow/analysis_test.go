package workflow

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_DetectsMissingInputs(t *testing.T) {
	doc, err := Parse([]byte(sampleWorkflow))
	require.NoError(t, err)

	analysis := Analyze(doc, "en")

	// The KSampler "model" input is disconnected; "seed" is optional
	// and must not be flagged.
	var flagged []string
	for _, issue := range analysis.Issues {
		flagged = append(flagged, issue.Message)
	}
	assert.Contains(t, strings.Join(flagged, "\n"), "missing input: model")
	assert.NotContains(t, strings.Join(flagged, "\n"), "missing input: seed")
}

func TestAnalyze_DetectsMissingVAEDecode(t *testing.T) {
	input := `{
		"nodes": [{"id": 1, "type": "KSampler", "inputs": [], "outputs": []}],
		"links": []
	}`
	doc, err := Parse([]byte(input))
	require.NoError(t, err)

	analysis := Analyze(doc, "en")

	ids := make(map[string]bool)
	for _, issue := range analysis.Issues {
		ids[issue.ID] = true
	}
	assert.True(t, ids["missing_vae_decode"])
	assert.True(t, ids["missing_output"])
}

func TestAnalyze_DataFlow(t *testing.T) {
	doc, err := Parse([]byte(sampleWorkflow))
	require.NoError(t, err)

	analysis := Analyze(doc, "en")
	require.NotEmpty(t, analysis.DataFlow)
	assert.Equal(t, "LoadImage (Node 1) -> KSampler (Node 2)", analysis.DataFlow[0])
}

func TestAnalyze_KeyNodes(t *testing.T) {
	doc, err := Parse([]byte(sampleWorkflow))
	require.NoError(t, err)

	analysis := Analyze(doc, "en")

	categories := make(map[string]string)
	for _, kn := range analysis.KeyNodes {
		categories[kn.Type] = kn.Category
	}
	assert.Equal(t, "loader", categories["LoadImage"])
	assert.Equal(t, "sampler", categories["KSampler"])
	assert.Equal(t, "output", categories["SaveImage"])
}

func TestAnalyze_LocalizedSummaries(t *testing.T) {
	doc, err := Parse([]byte(sampleWorkflow))
	require.NoError(t, err)

	tests := []struct {
		language string
		contains string
	}{
		{"en", "This workflow contains 3 nodes"},
		{"zh", "此工作流包含 3 个节点"},
		{"ja", "このワークフローには 3 個のノードが含まれています"},
		{"ko", "이 워크플로우에는 3 개의 노드가 포함되어 있습니다"},
		{"fr", "This workflow contains 3 nodes"}, // unknown falls back to en
	}

	for _, tt := range tests {
		t.Run(tt.language, func(t *testing.T) {
			analysis := Analyze(doc, tt.language)
			assert.Contains(t, analysis.Summary, tt.contains)
		})
	}
}

func TestAnalyze_SuggestionsIncludeIssueCounts(t *testing.T) {
	doc, err := Parse([]byte(sampleWorkflow))
	require.NoError(t, err)

	analysis := Analyze(doc, "en")
	require.NotEmpty(t, analysis.Suggestions)
	// Warnings exist, so the first suggestion is the fix summary.
	assert.Contains(t, analysis.Suggestions[0], "Fix")
	assert.Contains(t, analysis.Suggestions[0], "warning")
}

func TestAnalyze_CleanWorkflowHasNoFixPrefix(t *testing.T) {
	input := `{
		"nodes": [{"id": 1, "type": "LoadImage", "inputs": [], "outputs": []}],
		"links": []
	}`
	doc, err := Parse([]byte(input))
	require.NoError(t, err)

	analysis := Analyze(doc, "en")
	assert.Empty(t, analysis.Issues)
	require.NotEmpty(t, analysis.Suggestions)
	assert.NotContains(t, analysis.Suggestions[0], "Fix ")
}

func TestAnalyze_DataFlowCapped(t *testing.T) {
	// Build a hub node with many outgoing links.
	var links []string
	var outLinks []string
	for i := 0; i < 20; i++ {
		linkID := strconv.Itoa(100 + i)
		links = append(links, `[`+linkID+`, 1, 0, 2, 0, "IMAGE"]`)
		outLinks = append(outLinks, linkID)
	}
	input := `{
		"nodes": [
			{"id": 1, "type": "LoadImage", "inputs": [], "outputs": [{"name": "IMAGE", "links": [` + strings.Join(outLinks, ",") + `]}]},
			{"id": 2, "type": "SaveImage", "inputs": [], "outputs": []}
		],
		"links": [` + strings.Join(links, ",") + `]
	}`

	doc, err := Parse([]byte(input))
	require.NoError(t, err)

	analysis := Analyze(doc, "en")
	assert.Len(t, analysis.DataFlow, maxDataFlowEntries)
}
