package clients

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// ForModel picks the provider from the model name: gemini models go to
// Google AI, everything else to the OpenAI-compatible endpoint.
func ForModel(ctx context.Context, model string) (llms.Model, error) {
	if strings.HasPrefix(model, "gemini") {
		return GoogleAi(ctx, ModelType(model))
	}
	return OpenAi(model)
}
