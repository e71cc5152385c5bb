package search

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/randalmurphal/nodemedic/pkg/nodemedic/llm"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/template"
)

// WebSearcher asks a model to surface relevant pages for an error.
// The model's answer is free text with an embedded JSON array; entries
// that survive extraction become results, anything else is dropped.
type WebSearcher struct {
	client llm.Client
	limit  int
}

// NewWebSearcher builds a web searcher on top of a model client.
func NewWebSearcher(client llm.Client, limit int) *WebSearcher {
	if limit <= 0 {
		limit = 5
	}
	return &WebSearcher{client: client, limit: limit}
}

const webSearchPrompt = `Search the web for solutions to this ComfyUI error/problem:

Query: %s

Return results in JSON format with these fields:
- title: The title of the page/result
- url: The URL
- snippet: A brief description/snippet

Return up to %d results.`

// Search returns up to the configured number of results. A model
// response without a parsable JSON array yields no results, not an
// error.
func (w *WebSearcher) Search(ctx context.Context, query string) ([]Result, error) {
	response, err := w.client.Complete(ctx, []llm.Message{
		llm.User(fmt.Sprintf(webSearchPrompt, query, w.limit)),
	})
	if err != nil {
		return nil, err
	}

	candidate := template.ExtractJSONArray(response)
	if candidate == "" {
		return nil, nil
	}

	var parsed []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Snippet string `json:"snippet"`
	}
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return nil, nil
	}

	results := make([]Result, 0, len(parsed))
	for _, item := range parsed {
		results = append(results, Result{
			Source:  "web",
			Title:   item.Title,
			URL:     item.URL,
			Snippet: item.Snippet,
		})
	}
	if len(results) > w.limit {
		results = results[:w.limit]
	}
	return results, nil
}
