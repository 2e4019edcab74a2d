package llm

import (
	"context"

	"github.com/tomdee2/samples/errors"
)

// NewClientForProvider builds a model client for the named provider. An
// unknown or empty provider yields the mock client so the samples stay
// runnable without credentials.
func NewClientForProvider(ctx context.Context, provider, model, region string) (Client, error) {
	switch provider {
	case "bedrock":
		return NewBedrockClient(ctx, model, region)
	case "anthropic":
		return NewAnthropicClient(ctx, model)
	case "openai":
		return NewOpenAIClient(ctx, model)
	case "gemini":
		return NewGeminiClient(ctx, model)
	case "", "mock":
		return &MockClient{}, nil
	default:
		return nil, errors.New("unknown model provider '%s'", provider)
	}
}
