package research

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/mikeboe/deep-research/pkg/search"
)

// scriptedModel plays back one chunk script per Stream call and one
// response per Run call, recording everything it was asked.
type scriptedModel struct {
	streams   [][]Chunk
	streamErr error
	runs      []Response
	runErr    error

	streamCalls int
	runCalls    int
	seen        [][]Message
}

func (m *scriptedModel) Stream(_ context.Context, messages []Message) iter.Seq2[Chunk, error] {
	m.streamCalls++
	m.seen = append(m.seen, messages)
	idx := m.streamCalls - 1
	return func(yield func(Chunk, error) bool) {
		if m.streamErr != nil {
			yield(Chunk{}, m.streamErr)
			return
		}
		if idx >= len(m.streams) {
			return
		}
		for _, chunk := range m.streams[idx] {
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

func (m *scriptedModel) Run(_ context.Context, messages []Message) (Response, error) {
	m.runCalls++
	m.seen = append(m.seen, messages)
	if m.runErr != nil {
		return Response{}, m.runErr
	}
	if m.runCalls > len(m.runs) {
		return Response{}, errors.New("no scripted response available")
	}
	return m.runs[m.runCalls-1], nil
}

func (m *scriptedModel) lastSeen() []Message {
	if len(m.seen) == 0 {
		return nil
	}
	return m.seen[len(m.seen)-1]
}

type fakeSearch struct {
	calls [][]string
	err   error
}

func (f *fakeSearch) Search(_ context.Context, queries []string) ([]search.Result, error) {
	f.calls = append(f.calls, queries)
	if f.err != nil {
		return nil, f.err
	}
	var results []search.Result
	for _, q := range queries {
		results = append(results, search.Result{Query: q, Title: q, Summary: "info about " + q})
	}
	return results, nil
}

func newTestResearch(t *testing.T, searcher search.Engine, planner, summarizer Model, opts ...Option) *DeepResearch {
	t.Helper()
	d, err := New(searcher, planner, summarizer, opts...)
	if err != nil {
		t.Fatalf("unexpected error constructing research: %v", err)
	}
	return d
}

func collect(t *testing.T, seq iter.Seq2[Chunk, error]) []Chunk {
	t.Helper()
	var chunks []Chunk
	for chunk, err := range seq {
		if err != nil {
			t.Fatalf("unexpected stream error: %v", err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

func TestStopMarkerSkipsSearch(t *testing.T) {
	planner := &scriptedModel{streams: [][]Chunk{{{Content: "无需进一步搜索"}}}}
	summarizer := &scriptedModel{runs: []Response{{ReasoningContent: "sum-think", Content: "final answer"}}}
	searcher := &fakeSearch{}

	cfg := DefaultConfig()
	cfg.MaxPlanningRounds = 1
	d := newTestResearch(t, searcher, planner, summarizer, WithConfig(cfg))

	req := &Request{Messages: []Message{{Role: RoleUser, Content: "q"}}}
	resp, err := d.RunDeepResearch(context.Background(), req, "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(searcher.calls) != 0 {
		t.Fatalf("expected zero search calls, got %d", len(searcher.calls))
	}
	if planner.streamCalls != 1 {
		t.Fatalf("expected one planning call, got %d", planner.streamCalls)
	}
	if summarizer.runCalls != 1 {
		t.Fatalf("expected one summary call, got %d", summarizer.runCalls)
	}
	if resp.ReasoningContent != "无需进一步搜索sum-think" {
		t.Fatalf("unexpected reasoning: %q", resp.ReasoningContent)
	}
	if resp.Content != "final answer" {
		t.Fatalf("unexpected content: %q", resp.Content)
	}
}

func TestRoundLimitBoundsCalls(t *testing.T) {
	planner := &scriptedModel{streams: [][]Chunk{
		{{Content: "query_a query_b"}},
		{{Content: "query_a query_b"}},
	}}
	summarizer := &scriptedModel{runs: []Response{{Content: "answer"}}}
	searcher := &fakeSearch{}

	cfg := DefaultConfig()
	cfg.MaxPlanningRounds = 2
	d := newTestResearch(t, searcher, planner, summarizer, WithConfig(cfg))

	req := &Request{Messages: []Message{{Role: RoleUser, Content: "q"}}}
	if _, err := d.RunDeepResearch(context.Background(), req, "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if planner.streamCalls != 2 {
		t.Fatalf("expected 2 planning calls, got %d", planner.streamCalls)
	}
	if len(searcher.calls) != 2 {
		t.Fatalf("expected 2 search calls, got %d", len(searcher.calls))
	}
	for _, call := range searcher.calls {
		if len(call) != 2 || call[0] != "query_a" || call[1] != "query_b" {
			t.Fatalf("unexpected search queries: %v", call)
		}
	}

	// Round two planning must see the evidence from round one.
	roundTwoPrompt := planner.seen[1][len(planner.seen[1])-1].Content
	if !strings.Contains(roundTwoPrompt, "【查询 “query_a” 得到的相关资料】") {
		t.Fatalf("round two prompt missing rendered evidence: %q", roundTwoPrompt)
	}
	if !strings.Contains(roundTwoPrompt, "info about query_b") {
		t.Fatalf("round two prompt missing result summary: %q", roundTwoPrompt)
	}
}

func TestIntentionGateStopsBeforePlanning(t *testing.T) {
	planner := &scriptedModel{}
	summarizer := &scriptedModel{runs: []Response{{Content: "answer"}}}
	intention := &scriptedModel{runs: []Response{{Content: "否"}}}
	searcher := &fakeSearch{}

	cfg := DefaultConfig()
	cfg.UsingIntention = true
	cfg.IntentionTemplate = DefaultIntentionTemplate
	d := newTestResearch(t, searcher, planner, summarizer,
		WithConfig(cfg), WithIntentionModel(intention))

	req := &Request{Messages: []Message{{Role: RoleUser, Content: "q"}}}
	if _, err := d.RunDeepResearch(context.Background(), req, "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if intention.runCalls != 1 {
		t.Fatalf("expected one intention call, got %d", intention.runCalls)
	}
	if planner.streamCalls != 0 {
		t.Fatalf("expected zero planning calls, got %d", planner.streamCalls)
	}
	if len(searcher.calls) != 0 {
		t.Fatalf("expected zero search calls, got %d", len(searcher.calls))
	}
	if summarizer.runCalls != 1 {
		t.Fatalf("expected summary to still run, got %d calls", summarizer.runCalls)
	}
}

func TestStreamReclassifiesPlanningContent(t *testing.T) {
	planner := &scriptedModel{streams: [][]Chunk{{
		{ReasoningContent: "thinking "},
		{Content: "query_a"},
	}}}
	summarizer := &scriptedModel{streams: [][]Chunk{{
		{ReasoningContent: "sum-think"},
		{Content: "answer"},
	}}}
	searcher := &fakeSearch{}

	cfg := DefaultConfig()
	cfg.MaxPlanningRounds = 1
	d := newTestResearch(t, searcher, planner, summarizer, WithConfig(cfg))

	req := &Request{Messages: []Message{{Role: RoleUser, Content: "q"}}}
	chunks := collect(t, d.StreamDeepResearch(context.Background(), req, "q"))

	want := []Chunk{
		{ReasoningContent: "thinking "},
		{ReasoningContent: "query_a"}, // planning content surfaced as reasoning
		{ReasoningContent: "sum-think"},
		{Content: "answer"},
	}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %v", len(want), len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Fatalf("chunk %d: got %+v, want %+v", i, chunks[i], want[i])
		}
	}

	if len(searcher.calls) != 1 || searcher.calls[0][0] != "query_a" {
		t.Fatalf("unexpected search calls: %v", searcher.calls)
	}
}

func TestBufferedReasoningConcatenation(t *testing.T) {
	planner := &scriptedModel{streams: [][]Chunk{{
		{ReasoningContent: "first "},
		{Content: "无需进一步搜索"},
	}}}
	summarizer := &scriptedModel{runs: []Response{{ReasoningContent: " then", Content: "answer"}}}

	d := newTestResearch(t, &fakeSearch{}, planner, summarizer)

	req := &Request{Messages: []Message{{Role: RoleUser, Content: "q"}}}
	resp, err := d.RunDeepResearch(context.Background(), req, "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.ReasoningContent != "first 无需进一步搜索 then" {
		t.Fatalf("unexpected reasoning concatenation: %q", resp.ReasoningContent)
	}
	if resp.Content != "answer" {
		t.Fatalf("unexpected content: %q", resp.Content)
	}
}

func TestAssistantReasoningMessageAppendedOnce(t *testing.T) {
	planner := &scriptedModel{streams: [][]Chunk{{
		{ReasoningContent: "planning trace"},
		{Content: "无需进一步搜索"},
	}}}
	summarizer := &scriptedModel{runs: []Response{{Content: "answer"}}}

	d := newTestResearch(t, &fakeSearch{}, planner, summarizer)

	req := &Request{Messages: []Message{{Role: RoleUser, Content: "q"}}}
	if _, err := d.RunDeepResearch(context.Background(), req, "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assistants := 0
	for _, m := range req.Messages {
		if m.Role == RoleAssistant {
			assistants++
			if !strings.Contains(m.Content, "planning trace") {
				t.Fatalf("assistant message missing planning reasoning: %q", m.Content)
			}
		}
	}
	if assistants != 1 {
		t.Fatalf("expected exactly one assistant message, got %d", assistants)
	}

	// The summary call sees the history including that assistant message,
	// followed by its own rendered prompt.
	summaryMessages := summarizer.lastSeen()
	if len(summaryMessages) != 3 {
		t.Fatalf("expected 3 summary messages, got %d", len(summaryMessages))
	}
	if summaryMessages[1].Role != RoleAssistant {
		t.Fatalf("expected assistant message before summary prompt, got role %q", summaryMessages[1].Role)
	}
	if summaryMessages[2].Role != RoleUser {
		t.Fatalf("expected trailing user prompt, got role %q", summaryMessages[2].Role)
	}
}

func TestEmptyPlanningResultSearchesBlankQuery(t *testing.T) {
	// Reasoning-only output leaves the planning result empty without the
	// stop marker; parsing yields a single blank query and a search call
	// is issued with it. Documented behavior, kept on purpose.
	planner := &scriptedModel{streams: [][]Chunk{{{ReasoningContent: "hmm"}}}}
	summarizer := &scriptedModel{runs: []Response{{Content: "answer"}}}
	searcher := &fakeSearch{}

	cfg := DefaultConfig()
	cfg.MaxPlanningRounds = 1
	d := newTestResearch(t, searcher, planner, summarizer, WithConfig(cfg))

	req := &Request{Messages: []Message{{Role: RoleUser, Content: "q"}}}
	if _, err := d.RunDeepResearch(context.Background(), req, "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(searcher.calls) != 1 {
		t.Fatalf("expected one search call, got %d", len(searcher.calls))
	}
	if len(searcher.calls[0]) != 1 || searcher.calls[0][0] != "" {
		t.Fatalf("expected a single blank query, got %v", searcher.calls[0])
	}
}

func TestSameQueryAccumulatesAcrossRounds(t *testing.T) {
	planner := &scriptedModel{streams: [][]Chunk{
		{{Content: "query_a"}},
		{{Content: "query_a"}},
	}}
	summarizer := &scriptedModel{runs: []Response{{Content: "answer"}}}
	searcher := &fakeSearch{}

	cfg := DefaultConfig()
	cfg.MaxPlanningRounds = 2
	d := newTestResearch(t, searcher, planner, summarizer, WithConfig(cfg))

	req := &Request{Messages: []Message{{Role: RoleUser, Content: "q"}}}
	if _, err := d.RunDeepResearch(context.Background(), req, "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	summaryPrompt := summarizer.lastSeen()[len(summarizer.lastSeen())-1].Content
	if got := strings.Count(summaryPrompt, "【查询 “query_a” 得到的相关资料】"); got != 1 {
		t.Fatalf("expected one header for query_a, got %d", got)
	}
	if got := strings.Count(summaryPrompt, "info about query_a"); got != 2 {
		t.Fatalf("expected two accumulated results for query_a, got %d", got)
	}
}

func TestSearchFailureAbortsRun(t *testing.T) {
	planner := &scriptedModel{streams: [][]Chunk{{{Content: "query_a"}}}}
	summarizer := &scriptedModel{runs: []Response{{Content: "answer"}}}
	searchErr := errors.New("provider down")
	searcher := &fakeSearch{err: searchErr}

	d := newTestResearch(t, searcher, planner, summarizer)

	req := &Request{Messages: []Message{{Role: RoleUser, Content: "q"}}}
	_, err := d.RunDeepResearch(context.Background(), req, "q")
	if !errors.Is(err, searchErr) {
		t.Fatalf("expected search error to propagate, got %v", err)
	}
	if summarizer.runCalls != 0 {
		t.Fatalf("expected no summary call after failure, got %d", summarizer.runCalls)
	}
}

func TestPlannerStreamFailureAbortsRun(t *testing.T) {
	streamErr := errors.New("model timeout")
	planner := &scriptedModel{streamErr: streamErr}
	summarizer := &scriptedModel{runs: []Response{{Content: "answer"}}}

	d := newTestResearch(t, &fakeSearch{}, planner, summarizer)

	req := &Request{Messages: []Message{{Role: RoleUser, Content: "q"}}}
	_, err := d.RunDeepResearch(context.Background(), req, "q")
	if !errors.Is(err, streamErr) {
		t.Fatalf("expected planner error to propagate, got %v", err)
	}
	if summarizer.runCalls != 0 {
		t.Fatalf("expected no summary call after failure, got %d", summarizer.runCalls)
	}
}

func TestNewValidation(t *testing.T) {
	planner := &scriptedModel{}
	summarizer := &scriptedModel{}
	searcher := &fakeSearch{}

	tests := []struct {
		name    string
		build   func() (*DeepResearch, error)
		wantErr bool
	}{
		{
			name:  "valid defaults",
			build: func() (*DeepResearch, error) { return New(searcher, planner, summarizer) },
		},
		{
			name:    "nil search engine",
			build:   func() (*DeepResearch, error) { return New(nil, planner, summarizer) },
			wantErr: true,
		},
		{
			name:    "nil planner",
			build:   func() (*DeepResearch, error) { return New(searcher, nil, summarizer) },
			wantErr: true,
		},
		{
			name:    "nil summarizer",
			build:   func() (*DeepResearch, error) { return New(searcher, planner, nil) },
			wantErr: true,
		},
		{
			name: "negative round limit",
			build: func() (*DeepResearch, error) {
				return New(searcher, planner, summarizer, WithConfig(Config{MaxPlanningRounds: -1}))
			},
			wantErr: true,
		},
		{
			name: "intention without template",
			build: func() (*DeepResearch, error) {
				return New(searcher, planner, summarizer,
					WithConfig(Config{UsingIntention: true}),
					WithIntentionModel(&scriptedModel{}))
			},
			wantErr: true,
		},
		{
			name: "intention without model",
			build: func() (*DeepResearch, error) {
				return New(searcher, planner, summarizer,
					WithConfig(Config{UsingIntention: true, IntentionTemplate: DefaultIntentionTemplate}))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCheckQuery(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []string
	}{
		{"stop marker alone", "无需进一步搜索", nil},
		{"stop marker embedded", "根据资料判断，无需再搜索了", nil},
		{"single query", "golang", []string{"golang"}},
		{"multiple queries", "golang concurrency channels", []string{"golang", "concurrency", "channels"}},
		{"trims tokens", "golang\t concurrency", []string{"golang", "concurrency"}},
		{"empty output", "", []string{""}},
		{"whitespace only", " ", []string{"", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkQuery(tt.output)
			if len(got) != len(tt.want) {
				t.Fatalf("checkQuery(%q) = %v, want %v", tt.output, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("checkQuery(%q) = %v, want %v", tt.output, got, tt.want)
				}
			}
		})
	}
}
