package research

// ChunkKind classifies a streamed output chunk.
type ChunkKind int

const (
	// ChunkEmpty marks a chunk with neither field populated; it is dropped.
	ChunkEmpty ChunkKind = iota
	// ChunkReasoning marks a reasoning-text increment.
	ChunkReasoning
	// ChunkContent marks a content-text increment.
	ChunkContent
)

// Kind reports which channel the chunk belongs to. Reasoning wins when
// both fields are somehow populated; upstream protocols emit at most one.
func (c Chunk) Kind() ChunkKind {
	switch {
	case c.ReasoningContent != "":
		return ChunkReasoning
	case c.Content != "":
		return ChunkContent
	default:
		return ChunkEmpty
	}
}

// AsReasoning reclassifies a content chunk into the reasoning channel.
// During planning the model's "content" is its search plan, not an answer;
// surfacing it as reasoning keeps the visible thinking trace intact while
// the true answer is produced by the summary phase only.
func (c Chunk) AsReasoning() Chunk {
	return Chunk{ReasoningContent: c.Content}
}
