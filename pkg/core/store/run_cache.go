package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"structural_valuation/pkg/core/logger"
)

// RunCache stores valuation runs in the database when a pool is configured
// and as JSON files under a directory otherwise.
type RunCache struct {
	repo    *RunRepo
	fileDir string
	log     *zap.SugaredLogger
}

// NewRunCache creates a run cache. With a nil pool it falls back to files in
// dir, defaulting to .cache/runs.
func NewRunCache(pool *pgxpool.Pool, dir string) *RunCache {
	c := &RunCache{log: logger.Named("store")}
	if pool != nil {
		c.repo = NewRunRepo(pool)
		return c
	}

	if dir == "" {
		dir = filepath.Join(".cache", "runs")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		c.log.Warnw("run cache directory unavailable", "dir", dir, "error", err)
	}
	c.fileDir = dir
	return c
}

// Backend names the active storage, "postgres" or "file".
func (c *RunCache) Backend() string {
	if c.repo != nil {
		return "postgres"
	}
	return "file"
}

// Save stores run, assigning an ID and timestamp if it has none.
func (c *RunCache) Save(ctx context.Context, run *ValuationRun) error {
	if c.repo != nil {
		return c.repo.Save(ctx, run)
	}
	run.prepare()

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	if err := os.WriteFile(c.runPath(run.ID), data, 0644); err != nil {
		return fmt.Errorf("failed to save to file cache: %w", err)
	}
	return nil
}

// Load retrieves a run by ID.
func (c *RunCache) Load(ctx context.Context, id uuid.UUID) (*ValuationRun, error) {
	if c.repo != nil {
		return c.repo.Load(ctx, id)
	}

	run, err := c.loadEntry(c.runPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrRunNotFound
	}
	return run, err
}

// FindByFingerprint returns the newest run with the given fingerprint, or
// nil on a miss.
func (c *RunCache) FindByFingerprint(ctx context.Context, fp uuid.UUID) (*ValuationRun, error) {
	if c.repo != nil {
		return c.repo.FindByFingerprint(ctx, fp)
	}

	runs, err := c.scanFiles()
	if err != nil {
		return nil, err
	}
	for _, run := range runs {
		if run.Fingerprint == fp {
			return run, nil
		}
	}
	return nil, nil
}

// List returns up to limit runs, newest first.
func (c *RunCache) List(ctx context.Context, limit int) ([]*ValuationRun, error) {
	if c.repo != nil {
		return c.repo.List(ctx, limit)
	}

	runs, err := c.scanFiles()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Internal File Helpers

func (c *RunCache) runPath(id uuid.UUID) string {
	return filepath.Join(c.fileDir, id.String()+".json")
}

// scanFiles loads every run in the directory, newest first. Unreadable files
// are skipped.
func (c *RunCache) scanFiles() ([]*ValuationRun, error) {
	entries, err := os.ReadDir(c.fileDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read run cache: %w", err)
	}

	var runs []*ValuationRun
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(c.fileDir, e.Name())
		run, err := c.loadEntry(path)
		if err != nil {
			c.log.Warnw("skipping unreadable run", "path", path, "error", err)
			continue
		}
		runs = append(runs, run)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}

func (c *RunCache) loadEntry(path string) (*ValuationRun, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var run ValuationRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}
