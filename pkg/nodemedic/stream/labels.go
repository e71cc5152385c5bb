package stream

// stepLabels maps step name to display text per language. Languages
// fall back to English; unknown steps get a generic label.
var stepLabels = map[string]map[string]string{
	"en": {
		"classify":          "Analyzing your intent...",
		"search_solutions":  "Searching the knowledge base...",
		"analyze_workflow":  "Analyzing workflow structure...",
		"prepare_action":    "Planning a solution...",
		"execute_action":    "Executing the fix...",
		"generate_response": "Generating a reply...",
	},
	"zh": {
		"classify":          "正在分析您的意图...",
		"search_solutions":  "正在检索知识库...",
		"analyze_workflow":  "正在分析工作流结构...",
		"prepare_action":    "正在规划解决方案...",
		"execute_action":    "正在执行修复操作...",
		"generate_response": "正在生成回复...",
	},
	"ja": {
		"classify":          "意図を分析しています...",
		"search_solutions":  "ナレッジベースを検索しています...",
		"analyze_workflow":  "ワークフロー構造を分析しています...",
		"prepare_action":    "解決策を計画しています...",
		"execute_action":    "修復操作を実行しています...",
		"generate_response": "返信を生成しています...",
	},
	"ko": {
		"classify":          "의도를 분석하고 있습니다...",
		"search_solutions":  "지식 베이스를 검색하고 있습니다...",
		"analyze_workflow":  "워크플로우 구조를 분석하고 있습니다...",
		"prepare_action":    "해결책을 계획하고 있습니다...",
		"execute_action":    "수정 작업을 실행하고 있습니다...",
		"generate_response": "답변을 생성하고 있습니다...",
	},
}

var genericLabels = map[string]string{
	"en": "Processing...",
	"zh": "处理中...",
	"ja": "処理中...",
	"ko": "처리 중...",
}

// StepLabel returns the human-readable label for a step in the given
// language.
func StepLabel(step, language string) string {
	labels, ok := stepLabels[language]
	if !ok {
		labels = stepLabels["en"]
		language = "en"
	}
	if label, ok := labels[step]; ok {
		return label
	}
	return genericLabels[language]
}
