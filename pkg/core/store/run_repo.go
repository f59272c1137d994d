package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RunRepo stores valuation runs in the valuation_runs table.
type RunRepo struct {
	pool *pgxpool.Pool
}

// NewRunRepo creates a repository on pool.
func NewRunRepo(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

// Save upserts run by ID.
func (r *RunRepo) Save(ctx context.Context, run *ValuationRun) error {
	if r.pool == nil {
		return fmt.Errorf("database pool not initialized")
	}
	run.prepare()

	jsonData, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	query := `
		INSERT INTO valuation_runs (id, scenario, fingerprint, run_json, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id)
		DO UPDATE SET
			scenario = EXCLUDED.scenario,
			fingerprint = EXCLUDED.fingerprint,
			run_json = EXCLUDED.run_json;
	`
	_, err = r.pool.Exec(ctx, query, run.ID.String(), run.Scenario, run.Fingerprint.String(), jsonData, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Load retrieves a run by ID.
func (r *RunRepo) Load(ctx context.Context, id uuid.UUID) (*ValuationRun, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}
	query := `SELECT run_json FROM valuation_runs WHERE id = $1`
	return r.scanOne(ctx, query, id.String())
}

// FindByFingerprint returns the newest run with the given fingerprint, or
// nil when there is none.
func (r *RunRepo) FindByFingerprint(ctx context.Context, fp uuid.UUID) (*ValuationRun, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}
	query := `
		SELECT run_json
		FROM valuation_runs
		WHERE fingerprint = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	run, err := r.scanOne(ctx, query, fp.String())
	if errors.Is(err, ErrRunNotFound) {
		return nil, nil
	}
	return run, err
}

// List returns up to limit runs, newest first.
func (r *RunRepo) List(ctx context.Context, limit int) ([]*ValuationRun, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}
	query := `SELECT run_json FROM valuation_runs ORDER BY created_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	raw, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}

	runs := make([]*ValuationRun, 0, len(raw))
	for _, data := range raw {
		var run ValuationRun
		if err := json.Unmarshal(data, &run); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run: %w", err)
		}
		runs = append(runs, &run)
	}
	return runs, nil
}

func (r *RunRepo) scanOne(ctx context.Context, query string, arg string) (*ValuationRun, error) {
	var jsonData []byte
	err := r.pool.QueryRow(ctx, query, arg).Scan(&jsonData)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	var run ValuationRun
	if err := json.Unmarshal(jsonData, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}
