// Package research implements the deep research run: an iterative planning
// loop that searches for evidence, followed by a synthesis pass that
// streams the final answer.
package research

import (
	"context"
	"iter"
)

// Role tags a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one entry of the conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request carries the conversation history of one research run. The run
// appends an assistant message with the accumulated planning reasoning
// before the synthesis phase, so the summary model sees what was already
// explored.
type Request struct {
	Messages []Message `json:"messages"`
}

// Chunk is one streamed increment of model output. At most one of the two
// fields is populated: ReasoningContent carries the model's internal
// thinking, Content carries user-visible output.
type Chunk struct {
	ReasoningContent string `json:"reasoning_content,omitempty"`
	Content          string `json:"content,omitempty"`
}

// Response is the buffered form of a model call or of a whole research run.
type Response struct {
	ReasoningContent string `json:"reasoning_content,omitempty"`
	Content          string `json:"content"`
}

// Model is a language model collaborator. Stream yields output chunks in
// emission order; a consumer that stops early must cause the underlying
// call to be abandoned. Run is the buffered variant and agrees with Stream
// on the final content.
type Model interface {
	Stream(ctx context.Context, messages []Message) iter.Seq2[Chunk, error]
	Run(ctx context.Context, messages []Message) (Response, error)
}
