package workflow

import (
	"fmt"
	"strconv"
	"strings"
)

// Analysis is the structured result of examining a workflow.
type Analysis struct {
	Summary     string    `json:"summary"`
	DataFlow    []string  `json:"data_flow"`
	KeyNodes    []KeyNode `json:"key_nodes"`
	Issues      []Issue   `json:"issues"`
	Suggestions []string  `json:"suggestions"`
}

// KeyNode identifies a structurally important node.
type KeyNode struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description"`
}

// Issue is a detected problem in the workflow.
type Issue struct {
	ID            string `json:"id"`
	NodeID        string `json:"node_id,omitempty"`
	Severity      string `json:"severity"`
	Message       string `json:"message"`
	FixSuggestion string `json:"fix_suggestion,omitempty"`
}

// Issue severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// maxDataFlowEntries caps data flow listings to keep analyses readable.
const maxDataFlowEntries = 10

// optionalInputs are input names that commonly have widget defaults and
// should not be flagged when disconnected.
var optionalInputs = map[string]bool{
	"seed":       true,
	"width":      true,
	"height":     true,
	"batch_size": true,
	"clip":       true,
}

// nodeCategories groups node types by role for key node detection.
var nodeCategories = map[string][]string{
	"loader":  {"LoadImage", "LoadCheckpoint", "LoadText", "LoadAudio", "LoadVideo", "CheckpointLoader"},
	"sampler": {"KSampler", "KSamplerAdvanced"},
	"output":  {"SaveImage", "PreviewImage", "SaveAnimatedWEBP"},
}

var categoryDescriptions = map[string]string{
	"loader":  "Loads input data (images, models, etc.)",
	"sampler": "Generates images using the diffusion model",
	"output":  "Saves or previews the generated images",
}

// Analyze performs a deterministic structural analysis of the document.
// It is the fallback when model-driven analysis is unavailable or fails.
// The language tag selects localized summary and suggestion text.
func Analyze(doc *Document, language string) Analysis {
	issues := detectIssues(doc)
	dataFlow := analyzeDataFlow(doc)
	keyNodes := identifyKeyNodes(doc)

	return Analysis{
		Summary:     localizedSummary(language, len(doc.Nodes), len(keyNodes), len(dataFlow)),
		DataFlow:    dataFlow,
		KeyNodes:    keyNodes,
		Issues:      issues,
		Suggestions: buildSuggestions(language, issues),
	}
}

// detectIssues flags disconnected required inputs and missing pipeline stages.
func detectIssues(doc *Document) []Issue {
	issues := make([]Issue, 0)

	for _, node := range doc.Nodes {
		for idx, input := range node.Inputs {
			if input.Link != nil || optionalInputs[input.Name] {
				continue
			}
			issues = append(issues, Issue{
				ID:            fmt.Sprintf("missing_input_%s_%d", node.ID, idx),
				NodeID:        node.ID.String(),
				Severity:      SeverityWarning,
				Message:       fmt.Sprintf("Node %s has missing input: %s", node.Type, input.Name),
				FixSuggestion: fmt.Sprintf("Connect a node to the %s input or provide a value", input.Name),
			})
		}
	}

	hasType := make(map[string]bool, len(doc.Nodes))
	for _, node := range doc.Nodes {
		hasType[node.Type] = true
	}

	if hasType["KSampler"] && !hasType["VAEDecode"] {
		issues = append(issues, Issue{
			ID:            "missing_vae_decode",
			Severity:      SeverityWarning,
			Message:       "Workflow has KSampler but no VAE Decode node",
			FixSuggestion: "Add a VAE Decode node to convert latent images to visible images",
		})
	}

	if hasType["KSampler"] && !hasType["SaveImage"] && !hasType["PreviewImage"] {
		issues = append(issues, Issue{
			ID:            "missing_output",
			Severity:      SeverityInfo,
			Message:       "Workflow has no output node (SaveImage or PreviewImage)",
			FixSuggestion: "Add a SaveImage or PreviewImage node to see the results",
		})
	}

	return issues
}

// analyzeDataFlow traces output links to describe node-to-node connections.
func analyzeDataFlow(doc *Document) []string {
	linkTargets := make(map[int64]ID, len(doc.Links))
	for _, link := range doc.Links {
		linkTargets[int64(link.ID)] = link.TargetID
	}

	nodesByID := make(map[ID]*Node, len(doc.Nodes))
	for i := range doc.Nodes {
		nodesByID[doc.Nodes[i].ID] = &doc.Nodes[i]
	}

	flow := make([]string, 0)
	for _, node := range doc.Nodes {
		for _, output := range node.Outputs {
			for _, linkID := range output.Links {
				targetID, ok := linkTargets[linkID]
				if !ok {
					continue
				}
				target, ok := nodesByID[targetID]
				if !ok {
					continue
				}
				flow = append(flow, fmt.Sprintf("%s (Node %s) -> %s (Node %s)",
					node.Type, node.ID, target.Type, target.ID))
				if len(flow) >= maxDataFlowEntries {
					return flow
				}
			}
		}
	}
	return flow
}

// identifyKeyNodes picks out loaders, samplers, and outputs.
func identifyKeyNodes(doc *Document) []KeyNode {
	keyNodes := make([]KeyNode, 0)
	for _, node := range doc.Nodes {
		for _, category := range []string{"loader", "sampler", "output"} {
			if matchesCategory(node.Type, category) {
				keyNodes = append(keyNodes, KeyNode{
					ID:          node.ID.String(),
					Type:        node.Type,
					Category:    category,
					Description: categoryDescriptions[category],
				})
				break
			}
		}
	}
	return keyNodes
}

func matchesCategory(nodeType, category string) bool {
	for _, candidate := range nodeCategories[category] {
		if strings.Contains(nodeType, candidate) {
			return true
		}
	}
	return false
}

func localizedSummary(language string, nodeCount, keyNodeCount, flowCount int) string {
	switch language {
	case "zh":
		return fmt.Sprintf("此工作流包含 %d 个节点。关键组件包括 %d 个重要节点。工作流通过 %d 个连接处理数据。",
			nodeCount, keyNodeCount, flowCount)
	case "ja":
		return fmt.Sprintf("このワークフローには %d 個のノードが含まれています。主要コンポーネントには %d 個の重要なノードがあります。",
			nodeCount, keyNodeCount)
	case "ko":
		return fmt.Sprintf("이 워크플로우에는 %d 개의 노드가 포함되어 있습니다. 주요 구성 요소에는 %d 개의 중요한 노드가 있습니다.",
			nodeCount, keyNodeCount)
	default:
		return fmt.Sprintf("This workflow contains %d nodes. Key components include %d important nodes. The workflow processes data through %d connections.",
			nodeCount, keyNodeCount, flowCount)
	}
}

func buildSuggestions(language string, issues []Issue) []string {
	base := map[string][]string{
		"en": {
			"Review the workflow connections for any missing links",
			"Consider adding a preview node to see intermediate results",
			"Check if all required custom nodes are installed",
		},
		"zh": {
			"检查工作流连接是否有缺失的链接",
			"考虑添加预览节点以查看中间结果",
			"检查是否已安装所有必需的自定义节点",
		},
		"ja": {
			"欠けているリンクがないかワークフロー接続を確認してください",
			"中間結果を確認するためにプレビューノードを追加することを検討してください",
			"必要なカスタムノードがすべてインストールされているか確認してください",
		},
		"ko": {
			"누락된 연결이 없는지 워크플로우 연결을 검토하세요",
			"중간 결과를 보기 위해 미리보기 노드를 추가하는 것을 고려하세요",
			"필요한 사용자 정의 노드가 모두 설치되어 있는지 확인하세요",
		},
	}

	suggestions, ok := base[language]
	if !ok {
		suggestions = base["en"]
	}
	// Copy so callers can't mutate the shared table.
	result := make([]string, len(suggestions))
	copy(result, suggestions)

	var errorCount, warningCount int
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityError:
			errorCount++
		case SeverityWarning:
			warningCount++
		}
	}

	if errorCount > 0 || warningCount > 0 {
		prefix := map[string]string{"en": "Fix", "zh": "修复", "ja": "修正", "ko": "수정"}[language]
		if prefix == "" {
			prefix = "Fix"
		}
		var msg string
		switch language {
		case "zh":
			msg = strconv.Itoa(errorCount) + " 个错误和 " + strconv.Itoa(warningCount) + " 个警告"
		case "ja":
			msg = strconv.Itoa(errorCount) + " 個のエラーと " + strconv.Itoa(warningCount) + " 個の警告"
		case "ko":
			msg = strconv.Itoa(errorCount) + " 개의 오류와 " + strconv.Itoa(warningCount) + " 개의 경고"
		default:
			msg = fmt.Sprintf("%d error(s) and %d warning(s)", errorCount, warningCount)
		}
		result = append([]string{prefix + " " + msg}, result...)
	}

	return result
}
