package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	pool *pgxpool.Pool
	once sync.Once
)

const schema = `
CREATE TABLE IF NOT EXISTS valuation_runs (
	id          UUID PRIMARY KEY,
	scenario    TEXT NOT NULL DEFAULT '',
	fingerprint UUID NOT NULL,
	run_json    JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS valuation_runs_fingerprint_idx ON valuation_runs (fingerprint, created_at DESC);
`

// InitDB initializes the database connection pool from dbURL and makes sure
// the valuation_runs table exists.
func InitDB(ctx context.Context, dbURL string) error {
	var err error
	once.Do(func() {
		if dbURL == "" {
			err = fmt.Errorf("DATABASE_URL environment variable not set")
			return
		}

		config, parseErr := pgxpool.ParseConfig(dbURL)
		if parseErr != nil {
			err = fmt.Errorf("failed to parse database config: %w", parseErr)
			return
		}

		p, connErr := pgxpool.NewWithConfig(ctx, config)
		if connErr != nil {
			err = fmt.Errorf("failed to connect to database: %w", connErr)
			return
		}
		if _, execErr := p.Exec(ctx, schema); execErr != nil {
			p.Close()
			err = fmt.Errorf("failed to ensure schema: %w", execErr)
			return
		}
		pool = p
	})
	return err
}

// GetPool returns the database connection pool, nil when InitDB was never
// called or failed.
func GetPool() *pgxpool.Pool {
	return pool
}

// Close closes the database connection pool
func Close() {
	if pool != nil {
		pool.Close()
	}
}
