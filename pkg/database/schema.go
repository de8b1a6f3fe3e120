package database

import (
	"context"
	"fmt"
)

func (db *PostgresDB) InitSchema(ctx context.Context) error {
	// Search cache table: one row per (provider, query) lookup. Rows are
	// replaced on refresh, never keyed by run or session.
	cacheQuery := `
		CREATE TABLE IF NOT EXISTS search_cache (
			provider TEXT NOT NULL,
			query TEXT NOT NULL,
			results JSONB NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			PRIMARY KEY (provider, query)
		);
	`
	if _, err := db.Pool.Exec(ctx, cacheQuery); err != nil {
		return fmt.Errorf("failed to create search_cache table: %w", err)
	}

	if _, err := db.Pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_search_cache_created_at ON search_cache(created_at)"); err != nil {
		return fmt.Errorf("failed to create index on search_cache: %w", err)
	}

	return nil
}
