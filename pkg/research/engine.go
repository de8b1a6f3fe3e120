package research

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/mikeboe/deep-research/pkg/search"
)

// DeepResearch runs one research question at a time: a bounded planning
// loop that searches for evidence, then a summary pass over everything
// found. A single instance is safe for concurrent runs because all
// per-run state lives in the Request and a fresh ResultsSummary.
type DeepResearch struct {
	searcher   search.Engine
	planner    Model
	summarizer Model
	intention  Model
	config     Config
	logger     *slog.Logger
}

// Option configures a DeepResearch instance.
type Option func(*DeepResearch)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(d *DeepResearch) { d.config = cfg }
}

// WithIntentionModel sets the model used for the intention check. It is
// required when Config.UsingIntention is set.
func WithIntentionModel(m Model) Option {
	return func(d *DeepResearch) { d.intention = m }
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *DeepResearch) { d.logger = l }
}

// New validates the configuration and collaborators before any model or
// search call is made.
func New(searcher search.Engine, planner, summarizer Model, opts ...Option) (*DeepResearch, error) {
	d := &DeepResearch{
		searcher:   searcher,
		planner:    planner,
		summarizer: summarizer,
		config:     DefaultConfig(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.searcher == nil {
		return nil, fmt.Errorf("%w: search engine is required", ErrInvalidConfig)
	}
	if d.planner == nil {
		return nil, fmt.Errorf("%w: planning model is required", ErrInvalidConfig)
	}
	if d.summarizer == nil {
		return nil, fmt.Errorf("%w: summary model is required", ErrInvalidConfig)
	}
	if err := d.config.validate(); err != nil {
		return nil, err
	}
	if d.config.UsingIntention && d.intention == nil {
		return nil, fmt.Errorf("%w: intention gating enabled without an intention model", ErrInvalidConfig)
	}
	d.config.applyDefaults()
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d, nil
}

// RunDeepResearch executes the whole run and returns a single buffered
// response. Its ReasoningContent is the planning-phase reasoning followed
// by the summary-phase reasoning; its Content is the summary content only.
// On any collaborator failure the error is returned and no partial
// response is produced.
func (d *DeepResearch) RunDeepResearch(ctx context.Context, req *Request, question string) (Response, error) {
	references := NewResultsSummary()
	var reasoning strings.Builder

	for chunk, err := range d.streamPlanning(ctx, req, question, references) {
		if err != nil {
			return Response{}, err
		}
		reasoning.WriteString(chunk.ReasoningContent)
	}

	// The reasoning so far becomes an assistant message so the summary
	// model knows what was already explored.
	req.Messages = append(req.Messages, Message{Role: RoleAssistant, Content: reasoning.String()})

	resp, err := d.runSummary(ctx, req, question, references)
	if err != nil {
		return Response{}, err
	}
	resp.ReasoningContent = reasoning.String() + resp.ReasoningContent
	return resp, nil
}

// StreamDeepResearch executes the whole run as one ordered chunk stream:
// every planning chunk (reasoning, or content reclassified as reasoning)
// followed by every summary chunk as-is. Stopping the iteration early
// abandons any in-flight model call.
func (d *DeepResearch) StreamDeepResearch(ctx context.Context, req *Request, question string) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		references := NewResultsSummary()
		var reasoning strings.Builder

		for chunk, err := range d.streamPlanning(ctx, req, question, references) {
			if err != nil {
				yield(Chunk{}, err)
				return
			}
			reasoning.WriteString(chunk.ReasoningContent)
			if !yield(chunk, nil) {
				return
			}
		}

		req.Messages = append(req.Messages, Message{Role: RoleAssistant, Content: reasoning.String()})

		for chunk, err := range d.streamSummary(ctx, req, question, references) {
			if err != nil {
				yield(Chunk{}, err)
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// streamPlanning drives the bounded planning rounds. Reasoning chunks
// pass through unchanged; content chunks are buffered as the round's
// planning result and re-emitted reclassified as reasoning. The loop ends
// on the round limit, a negative intention check, the stop marker, or an
// empty query parse.
func (d *DeepResearch) streamPlanning(ctx context.Context, req *Request, question string, references *ResultsSummary) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		for round := 1; round <= d.config.MaxPlanningRounds; round++ {
			if d.config.UsingIntention {
				proceed, err := d.intentionCheck(ctx, req, question, references)
				if err != nil {
					yield(Chunk{}, fmt.Errorf("intention check: %w", err))
					return
				}
				if !proceed {
					d.logger.Info("no need to search", "round", round)
					return
				}
			}

			prompt := d.config.PlanningTemplate.Render(PromptParams{
				Reference:      references.Render(),
				Question:       question,
				MaxSearchWords: d.config.MaxSearchWords,
				MetaInfo:       currentMetaInfo(),
			})

			var planningResult strings.Builder
			for chunk, err := range d.planner.Stream(ctx, promptMessages(req, prompt)) {
				if err != nil {
					yield(Chunk{}, fmt.Errorf("planning round %d: %w", round, err))
					return
				}
				switch chunk.Kind() {
				case ChunkReasoning:
					if !yield(chunk, nil) {
						return
					}
				case ChunkContent:
					planningResult.WriteString(chunk.Content)
					if !yield(chunk.AsReasoning(), nil) {
						return
					}
				}
			}
			d.logger.Info("got planning result", "round", round, "planning_result", planningResult.String())

			newQueries := checkQuery(planningResult.String())
			if len(newQueries) == 0 {
				d.logger.Info("planning finished", "round", round)
				return
			}

			d.logger.Info("searching", "round", round, "queries", newQueries)
			searchResults, err := d.searcher.Search(ctx, newQueries)
			if err != nil {
				yield(Chunk{}, fmt.Errorf("search round %d: %w", round, err))
				return
			}
			d.logger.Info("search finished", "round", round, "results", len(searchResults))
			for _, result := range searchResults {
				references.AddResult(result.Query, []search.Result{result})
			}
		}
		d.logger.Info("max planning rounds reached", "rounds", d.config.MaxPlanningRounds)
	}
}

// intentionCheck asks the intention model whether further search is
// needed. A reply containing the negative marker stops the loop.
func (d *DeepResearch) intentionCheck(ctx context.Context, req *Request, question string, references *ResultsSummary) (bool, error) {
	prompt := d.config.IntentionTemplate.Render(PromptParams{
		Reference: references.Render(),
		Question:  question,
		MetaInfo:  currentMetaInfo(),
	})
	resp, err := d.intention.Run(ctx, promptMessages(req, prompt))
	if err != nil {
		return false, err
	}
	d.logger.Info("intention response", "content", resp.Content)
	return !strings.Contains(resp.Content, noIntentMarker), nil
}

func (d *DeepResearch) runSummary(ctx context.Context, req *Request, question string, references *ResultsSummary) (Response, error) {
	resp, err := d.summarizer.Run(ctx, promptMessages(req, d.summaryPrompt(question, references)))
	if err != nil {
		return Response{}, fmt.Errorf("summary: %w", err)
	}
	return resp, nil
}

func (d *DeepResearch) streamSummary(ctx context.Context, req *Request, question string, references *ResultsSummary) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		d.logger.Info("rendering references for summary", "queries", references.Len())
		for chunk, err := range d.summarizer.Stream(ctx, promptMessages(req, d.summaryPrompt(question, references))) {
			if err != nil {
				yield(Chunk{}, fmt.Errorf("summary: %w", err))
				return
			}
			if chunk.Kind() == ChunkEmpty {
				continue
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

func (d *DeepResearch) summaryPrompt(question string, references *ResultsSummary) string {
	return d.config.SummaryTemplate.Render(PromptParams{
		Reference: references.Render(),
		Question:  question,
		MetaInfo:  currentMetaInfo(),
	})
}

// checkQuery parses a buffered planning result. The stop marker yields no
// queries; anything else is split on single spaces with each token
// trimmed. An empty result without the stop marker therefore yields one
// empty query, matching the observed behavior this loop was built around.
func checkQuery(output string) []string {
	if strings.Contains(output, stopMarker) {
		return nil
	}
	parts := strings.Split(output, " ")
	queries := make([]string, len(parts))
	for i, part := range parts {
		queries[i] = strings.TrimSpace(part)
	}
	return queries
}

// promptMessages appends the rendered prompt as a trailing user message
// without mutating the request history.
func promptMessages(req *Request, prompt string) []Message {
	messages := make([]Message, 0, len(req.Messages)+1)
	messages = append(messages, req.Messages...)
	return append(messages, Message{Role: RoleUser, Content: prompt})
}
