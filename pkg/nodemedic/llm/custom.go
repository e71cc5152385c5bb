package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/randalmurphal/nodemedic/pkg/nodemedic/errors"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/provider"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/template"
)

// messagesPlaceholder must appear in the body template; it is replaced
// with null before parsing so the template stays valid JSON, then the
// real message list is injected into the parsed payload.
const messagesPlaceholder = "$messages"

// doneSentinel terminates an SSE stream.
const doneSentinel = "[DONE]"

// CustomClient talks to any OpenAI-compatible HTTP API described by
// request templates. The endpoint, headers, and body come from the
// provider config; $apiKey, $model, and $messages placeholders are
// substituted per request.
type CustomClient struct {
	cfg        provider.Config
	settings   provider.CustomSettings
	httpClient *http.Client
	retry      errors.RetryConfig
}

// CustomOption configures a CustomClient.
type CustomOption func(*CustomClient)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) CustomOption {
	return func(cc *CustomClient) { cc.httpClient = c }
}

// WithRetry overrides the retry configuration.
func WithRetry(r errors.RetryConfig) CustomOption {
	return func(cc *CustomClient) { cc.retry = r }
}

// NewCustomClient builds a client from a custom provider config.
func NewCustomClient(cfg provider.Config, opts ...CustomOption) (*CustomClient, error) {
	if cfg.Custom == nil {
		return nil, provider.ErrCustomSettingsRequired
	}
	if cfg.BaseURL == "" {
		return nil, provider.ErrBaseURLRequired
	}

	c := &CustomClient{
		cfg:        cfg,
		settings:   cfg.Custom.Normalize(),
		httpClient: &http.Client{Timeout: 120 * time.Second},
		retry:      errors.DefaultRetry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// endpointURL joins the base URL and endpoint with exactly one slash.
func (c *CustomClient) endpointURL() string {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	endpoint := strings.TrimLeft(c.settings.Endpoint, "/")
	return base + "/" + endpoint
}

// buildHeaders renders the header template and parses it as a JSON
// object. A parse failure after substitution is a config error.
func (c *CustomClient) buildHeaders() (map[string]string, error) {
	rendered := template.Expand(c.settings.Headers, map[string]any{
		"apiKey": c.cfg.APIKey,
		"model":  c.cfg.Model,
	})

	var headers map[string]string
	if err := json.Unmarshal([]byte(rendered), &headers); err != nil {
		return nil, &errors.TemplateError{Part: "headers", Rendered: rendered, Err: err}
	}
	return headers, nil
}

// buildBody renders the body template into a request payload.
//
// $messages cannot be substituted textually because the message list is
// structured data, so the placeholder (quoted or bare) is nulled out
// first, the template is parsed, and the messages are injected into the
// parsed payload under the top-level "messages" key.
func (c *CustomClient) buildBody(msgs []Message, stream bool) ([]byte, error) {
	prepared := strings.ReplaceAll(c.settings.Body, `"`+messagesPlaceholder+`"`, "null")
	prepared = strings.ReplaceAll(prepared, messagesPlaceholder, "null")

	rendered := template.Expand(prepared, map[string]any{
		"apiKey": c.cfg.APIKey,
		"model":  c.cfg.Model,
	})

	var payload map[string]any
	if err := json.Unmarshal([]byte(rendered), &payload); err != nil {
		return nil, &errors.TemplateError{Part: "body", Rendered: rendered, Err: err}
	}

	payload["messages"] = msgs
	if stream {
		payload["stream"] = true
	}
	return json.Marshal(payload)
}

// Complete sends a non-streaming completion request. Transient failures
// (5xx, transport) are retried with doubling backoff; 4xx responses and
// template problems fail immediately.
func (c *CustomClient) Complete(ctx context.Context, msgs []Message) (string, error) {
	url := c.endpointURL()
	headers, err := c.buildHeaders()
	if err != nil {
		return "", err
	}
	body, err := c.buildBody(msgs, false)
	if err != nil {
		return "", err
	}

	result := errors.WithRetryContext(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.doRequest(ctx, url, headers, body)
	})
	if result.Err != nil {
		return "", result.Err
	}
	return extractContent(result.Value), nil
}

// doRequest performs one HTTP attempt and returns the raw response body.
func (c *CustomClient) doRequest(ctx context.Context, url string, headers map[string]string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &errors.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(raw)),
			Endpoint:   url,
		}
	}
	return raw, nil
}

// extractContent pulls the assistant text out of an OpenAI-style
// response, falling back to the raw body for nonconforming APIs.
func extractContent(raw []byte) string {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && len(parsed.Choices) > 0 && parsed.Choices[0].Message.Content != "" {
		return parsed.Choices[0].Message.Content
	}
	return string(raw)
}

// Stream sends a streaming request and parses the SSE response. Only
// establishing the connection is retried; once deltas start flowing a
// failure is returned as-is.
func (c *CustomClient) Stream(ctx context.Context, msgs []Message, onDelta func(string)) (string, error) {
	url := c.endpointURL()
	headers, err := c.buildHeaders()
	if err != nil {
		return "", err
	}
	body, err := c.buildBody(msgs, true)
	if err != nil {
		return "", err
	}

	result := errors.WithRetryContext(ctx, c.retry, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 400 {
			raw, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, &errors.HTTPError{
				StatusCode: resp.StatusCode,
				Message:    strings.TrimSpace(string(raw)),
				Endpoint:   url,
			}
		}
		return resp, nil
	})
	if result.Err != nil {
		return "", result.Err
	}

	resp := result.Value
	defer resp.Body.Close()
	return readSSE(resp.Body, onDelta)
}

// readSSE consumes an SSE body, forwarding each content delta. Lines
// without the data prefix and fragments that fail to parse are skipped.
func readSSE(r io.Reader, onDelta func(string)) (string, error) {
	var full strings.Builder
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == doneSentinel {
			break
		}

		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}

		full.WriteString(chunk.Choices[0].Delta.Content)
		if onDelta != nil {
			onDelta(chunk.Choices[0].Delta.Content)
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("read stream: %w", err)
	}
	return full.String(), nil
}
