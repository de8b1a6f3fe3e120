package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CachedEngine wraps an Engine with a Postgres-backed per-query cache.
// Only provider results are cached; nothing about a research run is
// stored. Misses are fetched from the wrapped engine in one batch and the
// merged output preserves the input query order.
type CachedEngine struct {
	pool     *pgxpool.Pool
	next     Engine
	provider string
	ttl      time.Duration
}

// NewCachedEngine wraps next with the cache. The provider string
// namespaces cache rows so different engines don't collide; ttl <= 0
// disables expiry.
func NewCachedEngine(pool *pgxpool.Pool, next Engine, provider string, ttl time.Duration) *CachedEngine {
	return &CachedEngine{pool: pool, next: next, provider: provider, ttl: ttl}
}

func (c *CachedEngine) Search(ctx context.Context, queries []string) ([]Result, error) {
	cached := make(map[string][]Result, len(queries))
	var misses []string
	for _, query := range queries {
		results, ok, err := c.lookup(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("cache lookup %q: %w", query, err)
		}
		if ok {
			cached[query] = results
		} else {
			misses = append(misses, query)
		}
	}

	if len(misses) > 0 {
		fetched, err := c.next.Search(ctx, misses)
		if err != nil {
			return nil, err
		}
		byQuery := make(map[string][]Result, len(misses))
		for _, r := range fetched {
			byQuery[r.Query] = append(byQuery[r.Query], r)
		}
		for _, query := range misses {
			cached[query] = byQuery[query]
			if err := c.store(ctx, query, byQuery[query]); err != nil {
				return nil, fmt.Errorf("cache store %q: %w", query, err)
			}
		}
	}

	return mergeByQuery(queries, cached), nil
}

func (c *CachedEngine) lookup(ctx context.Context, query string) ([]Result, bool, error) {
	row := c.pool.QueryRow(ctx,
		`SELECT results, created_at FROM search_cache WHERE provider = $1 AND query = $2`,
		c.provider, query)
	return scanCacheRow(row, c.ttl)
}

// scanCacheRow decodes one cache row. An absent row is a miss; any other
// scan or decode failure is surfaced so a broken database doesn't silently
// degrade into a provider call per query.
func scanCacheRow(row pgx.Row, ttl time.Duration) ([]Result, bool, error) {
	var payload []byte
	var createdAt time.Time
	if err := row.Scan(&payload, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if ttl > 0 && time.Since(createdAt) > ttl {
		return nil, false, nil
	}

	var results []Result
	if err := json.Unmarshal(payload, &results); err != nil {
		return nil, false, err
	}
	return results, true, nil
}

func (c *CachedEngine) store(ctx context.Context, query string, results []Result) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return err
	}
	_, err = c.pool.Exec(ctx,
		`INSERT INTO search_cache (provider, query, results, created_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (provider, query) DO UPDATE SET results = $3, created_at = NOW()`,
		c.provider, query, payload)
	return err
}

// mergeByQuery flattens per-query result groups back into input order.
func mergeByQuery(queries []string, byQuery map[string][]Result) []Result {
	var merged []Result
	for _, query := range queries {
		merged = append(merged, byQuery[query]...)
	}
	return merged
}
