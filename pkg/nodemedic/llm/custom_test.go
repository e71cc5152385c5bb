package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/nodemedic/pkg/nodemedic/errors"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/provider"
)

func customConfig(baseURL string) provider.Config {
	settings := provider.DefaultCustomSettings()
	return provider.Config{
		Kind:    provider.KindCustom,
		Name:    "test",
		APIKey:  "secret-key",
		Model:   "test-model",
		BaseURL: baseURL,
		Custom:  &settings,
	}
}

func fastRetry(maxRetries int) errors.RetryConfig {
	return errors.RetryConfig{MaxRetries: maxRetries, InitialBackoff: time.Millisecond}
}

func completionResponse(content string) string {
	return fmt.Sprintf(`{"choices": [{"message": {"content": %q}}]}`, content)
}

func TestCustomClient_Complete(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		fmt.Fprint(w, completionResponse("hello there"))
	}))
	defer server.Close()

	// Trailing slash on the base URL and leading slash on the endpoint
	// must not produce a double slash.
	client, err := NewCustomClient(customConfig(server.URL+"/v1/"), WithRetry(errors.NoRetry))
	require.NoError(t, err)

	content, err := client.Complete(context.Background(), []Message{User("hi")})
	require.NoError(t, err)
	assert.Equal(t, "hello there", content)

	// The template's $model substitutes and $messages injects the real
	// message list.
	assert.Equal(t, "test-model", captured["model"])
	assert.Equal(t, 0.5, captured["temperature"])
	msgs, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	first := msgs[0].(map[string]any)
	assert.Equal(t, "user", first["role"])
	assert.Equal(t, "hi", first["content"])
	_, hasStream := captured["stream"]
	assert.False(t, hasStream)
}

func TestCustomClient_CompleteFallsBackToRawBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"output": "nonstandard"}`)
	}))
	defer server.Close()

	client, err := NewCustomClient(customConfig(server.URL), WithRetry(errors.NoRetry))
	require.NoError(t, err)

	content, err := client.Complete(context.Background(), []Message{User("hi")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"output": "nonstandard"}`, content)
}

func TestCustomClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, completionResponse("recovered"))
	}))
	defer server.Close()

	client, err := NewCustomClient(customConfig(server.URL), WithRetry(fastRetry(3)))
	require.NoError(t, err)

	content, err := client.Complete(context.Background(), []Message{User("hi")})
	require.NoError(t, err)
	assert.Equal(t, "recovered", content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCustomClient_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, "bad key")
	}))
	defer server.Close()

	client, err := NewCustomClient(customConfig(server.URL), WithRetry(fastRetry(3)))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), []Message{User("hi")})
	require.Error(t, err)

	var httpErr *errors.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCustomClient_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewCustomClient(customConfig(server.URL), WithRetry(fastRetry(2)))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), []Message{User("hi")})
	require.Error(t, err)
	// Initial attempt plus two retries.
	assert.Equal(t, int32(3), calls.Load())
}

func TestCustomClient_BadBodyTemplate(t *testing.T) {
	cfg := customConfig("http://unused")
	cfg.Custom.Body = `{"model": "$model", "messages": $messages,}`

	client, err := NewCustomClient(cfg, WithRetry(errors.NoRetry))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), []Message{User("hi")})
	require.Error(t, err)

	var tmplErr *errors.TemplateError
	require.ErrorAs(t, err, &tmplErr)
	assert.Equal(t, "body", tmplErr.Part)
	assert.Equal(t, errors.CategoryConfig, errors.Categorize(err))
}

func TestCustomClient_BadHeadersTemplate(t *testing.T) {
	cfg := customConfig("http://unused")
	cfg.Custom.Headers = `not json at all`

	client, err := NewCustomClient(cfg, WithRetry(errors.NoRetry))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), []Message{User("hi")})
	require.Error(t, err)

	var tmplErr *errors.TemplateError
	require.ErrorAs(t, err, &tmplErr)
	assert.Equal(t, "headers", tmplErr.Part)
}

func TestCustomClient_Stream(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\": [{\"delta\": {\"content\": \"Hel\"}}]}\n\n")
		fmt.Fprint(w, ": comment line ignored\n\n")
		fmt.Fprint(w, "data: not valid json\n\n")
		fmt.Fprint(w, "data: {\"choices\": [{\"delta\": {\"content\": \"lo\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client, err := NewCustomClient(customConfig(server.URL), WithRetry(errors.NoRetry))
	require.NoError(t, err)

	var deltas []string
	content, err := client.Stream(context.Background(), []Message{User("hi")}, func(d string) {
		deltas = append(deltas, d)
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello", content)
	assert.Equal(t, []string{"Hel", "lo"}, deltas)
	assert.Equal(t, true, captured["stream"])
}

func TestCustomClient_StreamRetriesConnection(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "data: {\"choices\": [{\"delta\": {\"content\": \"ok\"}}]}\n\ndata: [DONE]\n\n")
	}))
	defer server.Close()

	client, err := NewCustomClient(customConfig(server.URL), WithRetry(fastRetry(1)))
	require.NoError(t, err)

	content, err := client.Stream(context.Background(), []Message{User("hi")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", content)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNewCustomClient_RequiresSettings(t *testing.T) {
	cfg := provider.Config{Kind: provider.KindCustom, BaseURL: "http://x"}
	_, err := NewCustomClient(cfg)
	assert.ErrorIs(t, err, provider.ErrCustomSettingsRequired)

	settings := provider.DefaultCustomSettings()
	cfg = provider.Config{Kind: provider.KindCustom, Custom: &settings}
	_, err = NewCustomClient(cfg)
	assert.ErrorIs(t, err, provider.ErrBaseURLRequired)
}

func TestNewClient_KindDispatch(t *testing.T) {
	ctx := context.Background()

	openaiClient, err := NewClient(ctx, provider.Config{Kind: provider.KindOpenAI, APIKey: "k", Model: "m"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, openaiClient)

	anthropicClient, err := NewClient(ctx, provider.Config{Kind: provider.KindAnthropic, APIKey: "k", Model: "m"})
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, anthropicClient)

	settings := provider.DefaultCustomSettings()
	custom, err := NewClient(ctx, provider.Config{
		Kind: provider.KindCustom, APIKey: "k", Model: "m",
		BaseURL: "http://localhost", Custom: &settings,
	})
	require.NoError(t, err)
	assert.IsType(t, &CustomClient{}, custom)

	_, err = NewClient(ctx, provider.Config{Kind: "mystery"})
	assert.Error(t, err)
}
