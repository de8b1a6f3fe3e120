// Package llm adapts langchaingo models to the research.Model collaborator
// interface, splitting streamed output into reasoning and content chunks.
package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/tmc/langchaingo/llms"

	"github.com/mikeboe/deep-research/pkg/research"
)

// errStreamStopped aborts the underlying generation when the consumer
// stops pulling chunks.
var errStreamStopped = errors.New("stream consumer stopped")

// Client wraps a langchaingo model as a research.Model.
type Client struct {
	model llms.Model
	name  string
}

// NewClient wraps the given model. The name only shows up in errors.
func NewClient(model llms.Model, name string) *Client {
	return &Client{model: model, name: name}
}

// Stream issues one generation and yields reasoning and content increments
// in emission order. The callback runs on the calling goroutine, so chunks
// are pulled cooperatively; returning early from the consumer cancels the
// generation through the callback error.
func (c *Client) Stream(ctx context.Context, messages []research.Message) iter.Seq2[research.Chunk, error] {
	return func(yield func(research.Chunk, error) bool) {
		stopped := false
		_, err := c.model.GenerateContent(ctx, toMessageContent(messages),
			llms.WithStreamingReasoningFunc(func(_ context.Context, reasoningChunk, chunk []byte) error {
				if len(reasoningChunk) > 0 {
					if !yield(research.Chunk{ReasoningContent: string(reasoningChunk)}, nil) {
						stopped = true
						return errStreamStopped
					}
				}
				if len(chunk) > 0 {
					if !yield(research.Chunk{Content: string(chunk)}, nil) {
						stopped = true
						return errStreamStopped
					}
				}
				return nil
			}))
		if err != nil && !stopped {
			yield(research.Chunk{}, fmt.Errorf("%s: %w", c.name, err))
		}
	}
}

// Run issues one buffered generation.
func (c *Client) Run(ctx context.Context, messages []research.Message) (research.Response, error) {
	resp, err := c.model.GenerateContent(ctx, toMessageContent(messages))
	if err != nil {
		return research.Response{}, fmt.Errorf("%s: %w", c.name, err)
	}
	if len(resp.Choices) == 0 {
		return research.Response{}, fmt.Errorf("%s: model returned no choices", c.name)
	}
	choice := resp.Choices[0]
	return research.Response{
		ReasoningContent: choice.ReasoningContent,
		Content:          choice.Content,
	}, nil
}

func toMessageContent(messages []research.Message) []llms.MessageContent {
	converted := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		role := llms.ChatMessageTypeHuman
		switch m.Role {
		case research.RoleAssistant:
			role = llms.ChatMessageTypeAI
		case research.RoleSystem:
			role = llms.ChatMessageTypeSystem
		}
		converted = append(converted, llms.TextParts(role, m.Content))
	}
	return converted
}
