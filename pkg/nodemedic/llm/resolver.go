package llm

import (
	"context"
	"fmt"

	"github.com/randalmurphal/nodemedic/pkg/nodemedic/provider"
)

// NewClient builds the appropriate client for a provider config.
func NewClient(ctx context.Context, cfg provider.Config) (Client, error) {
	switch cfg.Kind {
	case provider.KindOpenAI:
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case provider.KindAnthropic:
		return NewAnthropicClient(cfg.APIKey, cfg.Model), nil
	case provider.KindGoogle:
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	case provider.KindCustom:
		return NewCustomClient(cfg)
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Kind)
	}
}
