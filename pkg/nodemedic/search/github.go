package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/randalmurphal/nodemedic/pkg/nodemedic/errors"
)

const defaultGitHubAPI = "https://api.github.com"

// maxBodyLength truncates issue bodies before they reach a prompt.
const maxBodyLength = 500

// GitHubSearcher queries the GitHub issue search API.
type GitHubSearcher struct {
	baseURL    string
	token      string
	maxResults int
	httpClient *http.Client
}

// GitHubOption configures a GitHubSearcher.
type GitHubOption func(*GitHubSearcher)

// WithGitHubBaseURL overrides the API base URL, mainly for tests.
func WithGitHubBaseURL(u string) GitHubOption {
	return func(g *GitHubSearcher) { g.baseURL = strings.TrimRight(u, "/") }
}

// WithGitHubHTTPClient overrides the HTTP client.
func WithGitHubHTTPClient(c *http.Client) GitHubOption {
	return func(g *GitHubSearcher) { g.httpClient = c }
}

// NewGitHubSearcher builds a searcher. An empty token means
// unauthenticated requests (lower rate limits, but functional).
func NewGitHubSearcher(token string, maxResults int, opts ...GitHubOption) *GitHubSearcher {
	if maxResults <= 0 {
		maxResults = 5
	}
	g := &GitHubSearcher{
		baseURL:    defaultGitHubAPI,
		token:      token,
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Search queries issues matching the error, most recently updated
// first. The query is scoped to the authoring tool's ecosystem.
func (g *GitHubSearcher) Search(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query+" comfyui error issue")
	params.Set("per_page", strconv.Itoa(g.maxResults))
	params.Set("sort", "updated")
	params.Set("order", "desc")

	endpoint := g.baseURL + "/search/issues?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if g.token != "" {
		req.Header.Set("Authorization", "token "+g.token)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &errors.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(raw)),
			Endpoint:   g.baseURL + "/search/issues",
		}
	}

	var parsed struct {
		Items []struct {
			Title     string `json:"title"`
			HTMLURL   string `json:"html_url"`
			Body      string `json:"body"`
			State     string `json:"state"`
			Comments  int    `json:"comments"`
			CreatedAt string `json:"created_at"`
			UpdatedAt string `json:"updated_at"`
		} `json:"items"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		body := item.Body
		if len(body) > maxBodyLength {
			body = body[:maxBodyLength]
		}
		results = append(results, Result{
			Source:    "github",
			Title:     item.Title,
			URL:       item.HTMLURL,
			Body:      body,
			State:     item.State,
			Comments:  item.Comments,
			CreatedAt: item.CreatedAt,
			UpdatedAt: item.UpdatedAt,
		})
	}
	return results, nil
}
