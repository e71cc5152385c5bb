package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// defaultMaxTokens bounds Anthropic responses; the API requires an
// explicit limit.
const defaultMaxTokens = 4096

// AnthropicClient wraps the official Anthropic SDK.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicClient builds a client for the given model.
func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicClient{client: &client, model: model}
}

// Complete sends a message request. System messages are lifted out of
// the conversation into the dedicated system parameter.
func (c *AnthropicClient) Complete(ctx context.Context, msgs []Message) (string, error) {
	converted, system := toAnthropicMessages(msgs)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: defaultMaxTokens,
		Messages:  converted,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("anthropic returned no content")
	}

	var content strings.Builder
	for _, block := range resp.Content {
		content.WriteString(block.Text)
	}
	return content.String(), nil
}

// Stream delivers the complete response as a single delta.
func (c *AnthropicClient) Stream(ctx context.Context, msgs []Message, onDelta func(string)) (string, error) {
	content, err := c.Complete(ctx, msgs)
	if err != nil {
		return "", err
	}
	if onDelta != nil && content != "" {
		onDelta(content)
	}
	return content, nil
}

func toAnthropicMessages(msgs []Message) ([]anthropic.MessageParam, string) {
	converted := make([]anthropic.MessageParam, 0, len(msgs))
	var system []string
	for _, msg := range msgs {
		switch msg.Role {
		case RoleUser:
			converted = append(converted, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case RoleAssistant:
			converted = append(converted, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		case RoleSystem:
			system = append(system, msg.Content)
		}
	}
	return converted, strings.Join(system, "\n\n")
}
