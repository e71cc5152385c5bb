package agent

import (
	"encoding/json"
	"fmt"
)

const classifyPromptFormat = `Analyze the user's request and classify it into one of these categories:
1. "search" - User is reporting an error or asking for help with a problem
2. "analyze" - User wants to understand or analyze a workflow
3. "respond" - General conversation or other requests

User Request: "%s"

Error log present: %t
Workflow present: %t

Respond with only the category name.`

// systemBasePrompts set the assistant's identity per language.
var systemBasePrompts = map[string]string{
	"en": "You are ComfyUI Workflow Agent, an expert assistant specialized in ComfyUI workflows.",
	"zh": "你是 ComfyUI 工作流助手，专门帮助用户解决 ComfyUI 工作流问题。",
	"ja": "あなたは ComfyUI ワークフローエージェントです。",
	"ko": "당신은 ComfyUI 워크플로우 에이전트입니다.",
}

const missionPrompt = `## CORE MISSION
1. **SOLVE ERRORS**: Identify, explain, and fix execution errors, missing connections, and incompatible types.
2. **EXPLAIN LOGIC**: Deconstruct complex workflows into clear, step-by-step explanations of how data flows (e.g., Load Image -> VAE Encode -> KSampler -> Decode).

## CAPABILITIES
1. **Analyze Workflows**: Understand the structure, data flow, and logic of the provided JSON.
2. **Modify Workflows**: Generate a VALID, COMPLETE JSON representation of the workflow when requested.
3. **Active Inquiry**: If a user's request is ambiguous, ASK for clarification.

## RESPONSE FORMAT
1. **For Explanations**: Use natural language with bold key terms. Break down the flow logically (e.g., "Step 1: Input", "Step 2: Processing").
2. **For Workflow Updates**: Output the FULL JSON in a Markdown code block labeled json. Ensure valid JSON: no trailing commas, no comments inside the JSON block.
3. **For Diagnostics / Issues**: If you find specific problems, output them in a JSON array block labeled ISSUES_JSON.
   Format: ISSUES_JSON: [{"nodeId": 10, "severity": "error", "message": "...", "fixSuggestion": "..."}]
4. **For Missing Nodes**: Use a section: "SUGGESTED_ACTIONS: [Action1, Action2]".

## RULES
- **Always** validate connections.
- **Never** break JSON structure.
- When explaining, focus on **data flow** and **functionality**, not just node names.

## FINAL OUTPUT
At the end of your response, please provide 3 short "Related Questions" that the user might want to ask next.
Format them as a JSON array labeled RELATED_QUESTIONS.
Example: RELATED_QUESTIONS: ["Question 1?", "Question 2?"]`

// systemPrompt assembles the reply generation prompt from the
// accumulated turn context.
func systemPrompt(state TurnState) string {
	base, ok := systemBasePrompts[state.Language]
	if !ok {
		base = systemBasePrompts["en"]
	}

	if len(state.SearchResults) > 0 {
		base += "\n\nSearch Results:\n" + asJSON(state.SearchResults)
	}
	if len(state.Solutions) > 0 {
		base += "\n\nSolutions:\n" + asJSON(state.Solutions)
	}
	if state.Analysis != nil {
		base += "\n\nWorkflow Analysis:\n" + asJSON(state.Analysis)
	}
	if state.RequiresUserConfirmation {
		base += "\n\nIMPORTANT: Ask the user if they want to execute the suggested action."
	}

	return base + "\n\n" + missionPrompt
}

func asJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
