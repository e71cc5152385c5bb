package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient wraps the Google GenAI SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient builds a client for the given model.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Complete sends a generate content request.
func (c *GeminiClient) Complete(ctx context.Context, msgs []Message) (string, error) {
	contents, system := toGeminiContents(msgs)

	var config *genai.GenerateContentConfig
	if system != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		}
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	var content strings.Builder
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text == "" || part.Thought {
				continue
			}
			content.WriteString(part.Text)
		}
	}
	return content.String(), nil
}

// Stream delivers the complete response as a single delta.
func (c *GeminiClient) Stream(ctx context.Context, msgs []Message, onDelta func(string)) (string, error) {
	content, err := c.Complete(ctx, msgs)
	if err != nil {
		return "", err
	}
	if onDelta != nil && content != "" {
		onDelta(content)
	}
	return content, nil
}

func toGeminiContents(msgs []Message) ([]*genai.Content, string) {
	contents := make([]*genai.Content, 0, len(msgs))
	var system []string
	for _, msg := range msgs {
		var role string
		switch msg.Role {
		case RoleUser:
			role = "user"
		case RoleAssistant:
			// Gemini names the assistant role "model".
			role = "model"
		case RoleSystem:
			system = append(system, msg.Content)
			continue
		default:
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	if len(contents) == 0 {
		contents = append(contents, &genai.Content{
			Role:  "user",
			Parts: []*genai.Part{{Text: ""}},
		})
	}
	return contents, strings.Join(system, "\n\n")
}
