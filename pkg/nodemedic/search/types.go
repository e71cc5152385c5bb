// Package search gathers supporting evidence for an error report from
// the GitHub issue tracker and a model-backed web search, then
// synthesizes candidate solutions from the combined results.
package search

// Result is one piece of evidence from any source.
type Result struct {
	Source    string `json:"source"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Body      string `json:"body,omitempty"`
	Snippet   string `json:"snippet,omitempty"`
	State     string `json:"state,omitempty"`
	Comments  int    `json:"comments,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Content returns whichever of body or snippet the source populated.
func (r Result) Content() string {
	if r.Body != "" {
		return r.Body
	}
	return r.Snippet
}

// Solution is a synthesized candidate fix. RequiresAction marks
// solutions the assistant can apply itself via the named action type.
type Solution struct {
	Description    string         `json:"description"`
	Steps          []string       `json:"steps,omitempty"`
	CodeSnippet    string         `json:"code_snippet,omitempty"`
	RequiresAction bool           `json:"requires_action"`
	ActionType     string         `json:"action_type,omitempty"`
	ActionData     map[string]any `json:"action_data,omitempty"`
}
