package research

import (
	"fmt"
	"strings"

	"github.com/mikeboe/deep-research/pkg/search"
)

// ResultsSummary accumulates the search results of one research run,
// keyed by query. Keys keep first-insertion order and results keep append
// order; appending is the only mutation.
type ResultsSummary struct {
	order []string
	refs  map[string][]search.Result
}

// NewResultsSummary returns an empty summary.
func NewResultsSummary() *ResultsSummary {
	return &ResultsSummary{refs: make(map[string][]search.Result)}
}

// AddResult appends results under the given query, creating the key if it
// is not present yet. Duplicates are kept; nothing is ever overwritten.
func (s *ResultsSummary) AddResult(query string, results []search.Result) {
	if _, ok := s.refs[query]; !ok {
		s.order = append(s.order, query)
	}
	s.refs[query] = append(s.refs[query], results...)
}

// Len reports the number of distinct queries accumulated so far.
func (s *ResultsSummary) Len() int {
	return len(s.order)
}

// Results returns the accumulated results for a query in append order.
func (s *ResultsSummary) Results(query string) []search.Result {
	return s.refs[query]
}

// Render produces the plaintext reference block handed to the prompt
// templates: one header per query in first-insertion order, followed by
// the summaries of that query's results in append order.
func (s *ResultsSummary) Render() string {
	var b strings.Builder
	for _, query := range s.order {
		b.WriteString(fmt.Sprintf("\n【查询 “%s” 得到的相关资料】", query))
		summaries := make([]string, 0, len(s.refs[query]))
		for _, r := range s.refs[query] {
			summaries = append(summaries, r.Summary)
		}
		b.WriteString(strings.Join(summaries, "\n"))
	}
	return b.String()
}
