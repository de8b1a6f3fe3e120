// Package search provides the external search engines the research loop
// dispatches queries to.
package search

import "context"

// Result is a single piece of retrieved evidence, tagged with the query
// that produced it.
type Result struct {
	Query   string `json:"query"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Summary string `json:"summary"`
}

// Engine executes a batch of queries against an external search provider.
// Every returned Result carries the Query it originated from; an engine may
// reorder or batch internally but must not invent query tags. A provider
// failure is returned as-is, never as an empty result set.
type Engine interface {
	Search(ctx context.Context, queries []string) ([]Result, error)
}
