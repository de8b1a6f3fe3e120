package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// Tavily calls the Tavily search API, one request per query.
type Tavily struct {
	APIKey string
	// Depth controls Tavily's depth parameter (basic or advanced).
	Depth string
	// MaxResults bounds the number of results kept per query.
	MaxResults int

	endpoint string
	client   *http.Client
}

// NewTavily constructs a Tavily search engine. The API key is checked
// here so a misconfigured run fails before any search is issued.
func NewTavily(apiKey, depth string) (*Tavily, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("tavily: API key is missing")
	}
	if depth == "" {
		depth = "basic"
	}
	return &Tavily{
		APIKey:     apiKey,
		Depth:      depth,
		MaxResults: 5,
		endpoint:   tavilyEndpoint,
		client:     &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Search executes the queries sequentially so results stay grouped per
// query in input order.
func (t *Tavily) Search(ctx context.Context, queries []string) ([]Result, error) {
	var results []Result
	for _, query := range queries {
		perQuery, err := t.searchOne(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("tavily query %q: %w", query, err)
		}
		results = append(results, perQuery...)
	}
	return results, nil
}

func (t *Tavily) searchOne(ctx context.Context, query string) ([]Result, error) {
	body := map[string]any{
		"query":   query,
		"api_key": t.APIKey,
		"depth":   t.Depth,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	var resp *http.Response
	delay := 1 * time.Second
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err = t.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			break
		}
		resp.Body.Close()

		// Back off and retry on 429, doubling the delay each time up to 30 s.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}

	var response struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	max := t.MaxResults
	if max <= 0 {
		max = 5
	}
	results := make([]Result, 0, len(response.Results))
	for _, r := range response.Results {
		results = append(results, Result{
			Query:   query,
			Title:   r.Title,
			URL:     r.URL,
			Summary: r.Content,
		})
		if len(results) >= max {
			break
		}
	}
	return results, nil
}
