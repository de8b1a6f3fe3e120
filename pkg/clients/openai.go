package clients

import (
	"fmt"
	"os"

	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAi constructs a model against an OpenAI-compatible endpoint. With
// OPENAI_BASE_URL pointing at a compatible gateway this is the way to run
// reasoning models (deepseek-r1 and friends) that emit a separate
// reasoning_content stream.
func OpenAi(model string) (*openai.LLM, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if model == "" {
		return nil, fmt.Errorf("model name is required")
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to init OpenAI client: %w", err)
	}

	return llm, nil
}
