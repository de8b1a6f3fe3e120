package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const arxivEndpoint = "https://export.arxiv.org/api/query"

// arxivEntry holds one entry of the arXiv Atom feed.
type arxivEntry struct {
	Title     string      `xml:"title"`
	Summary   string      `xml:"summary"`
	Published string      `xml:"published"`
	Link      []arxivLink `xml:"link"`
}

type arxivLink struct {
	Href string `xml:"href,attr"`
	Type string `xml:"type,attr"`
}

type arxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entry   []arxivEntry `xml:"entry"`
}

// Arxiv queries the arXiv API. Useful for academic questions where a web
// search engine returns too much noise.
type Arxiv struct {
	// MaxResults bounds the number of entries fetched per query.
	MaxResults int

	endpoint string
	client   *http.Client
}

// NewArxiv constructs an arXiv search engine.
func NewArxiv(maxResults int) *Arxiv {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Arxiv{
		MaxResults: maxResults,
		endpoint:   arxivEndpoint,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Search executes the queries sequentially against the arXiv API.
func (a *Arxiv) Search(ctx context.Context, queries []string) ([]Result, error) {
	var results []Result
	for _, query := range queries {
		perQuery, err := a.searchOne(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("arxiv query %q: %w", query, err)
		}
		results = append(results, perQuery...)
	}
	return results, nil
}

func (a *Arxiv) searchOne(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Add("search_query", query)
	params.Add("max_results", strconv.Itoa(a.MaxResults))
	params.Add("start", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned non-200 status code: %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal XML: %w", err)
	}

	results := make([]Result, 0, len(feed.Entry))
	for _, entry := range feed.Entry {
		pdfLink := ""
		for _, link := range entry.Link {
			if link.Type == "application/pdf" {
				pdfLink = link.Href
				break
			}
		}
		results = append(results, Result{
			Query:   query,
			Title:   strings.TrimSpace(entry.Title),
			URL:     pdfLink,
			Summary: strings.TrimSpace(entry.Summary),
		})
	}
	return results, nil
}
