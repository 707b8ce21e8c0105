// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scrapeworks/jobscraper/internal/scraper"
)

// JobStoreConfig controls the Postgres connection pool used for job rows.
type JobStoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// JobStore persists jobs and their extracted records in Postgres.
type JobStore struct {
	pool pgxPool
}

// NewJobStore creates a Postgres-backed JobStore using the provided config.
func NewJobStore(ctx context.Context, cfg JobStoreConfig) (*JobStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &JobStore{pool: pool}, nil
}

// NewJobStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewJobStoreWithPool(pool pgxPool) (*JobStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &JobStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *JobStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// CreateJob inserts a new job row.
func (s *JobStore) CreateJob(ctx context.Context, job scraper.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job id is required")
	}
	query := `
INSERT INTO jobs (
	id, title, location, output_name, status, error_text,
	pages_fetched, links_discovered, records_extracted, pages_failed,
	artifact_uri, submitted_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := s.pool.Exec(ctx, query,
		job.ID,
		job.Query.Title,
		job.Query.Location,
		job.Query.OutputName,
		string(job.Status),
		job.ErrorText,
		job.Counters.Fetched,
		job.Counters.Discovered,
		job.Counters.Extracted,
		job.Counters.Failed,
		job.ArtifactURI,
		job.Submitted,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetJob fetches a job row by ID.
func (s *JobStore) GetJob(ctx context.Context, jobID string) (scraper.Job, error) {
	query := `
SELECT id, title, location, output_name, status, error_text,
	pages_fetched, links_discovered, records_extracted, pages_failed,
	artifact_uri, submitted_at, started_at, finished_at
FROM jobs WHERE id = $1`
	var (
		job    scraper.Job
		status string
	)
	err := s.pool.QueryRow(ctx, query, jobID).Scan(
		&job.ID,
		&job.Query.Title,
		&job.Query.Location,
		&job.Query.OutputName,
		&status,
		&job.ErrorText,
		&job.Counters.Fetched,
		&job.Counters.Discovered,
		&job.Counters.Extracted,
		&job.Counters.Failed,
		&job.ArtifactURI,
		&job.Submitted,
		&job.Started,
		&job.Finished,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return scraper.Job{}, scraper.ErrJobNotFound
		}
		return scraper.Job{}, fmt.Errorf("select job: %w", err)
	}
	job.Status = scraper.JobStatus(status)
	return job, nil
}

// UpdateJobStatus transitions a job and stamps started/finished timestamps
// in SQL so the transition is atomic under concurrent writers.
func (s *JobStore) UpdateJobStatus(
	ctx context.Context,
	jobID string,
	status scraper.JobStatus,
	errText string,
	counters scraper.JobCounters,
) error {
	query := `
UPDATE jobs SET
	status = $2,
	error_text = $3,
	pages_fetched = $4,
	links_discovered = $5,
	records_extracted = $6,
	pages_failed = $7,
	started_at = CASE WHEN $2 = 'running' THEN COALESCE(started_at, $8) ELSE started_at END,
	finished_at = CASE WHEN $2 IN ('succeeded','failed','canceled') THEN COALESCE(finished_at, $8) ELSE finished_at END
WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query,
		jobID,
		string(status),
		errText,
		counters.Fetched,
		counters.Discovered,
		counters.Extracted,
		counters.Failed,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return scraper.ErrJobNotFound
	}
	return nil
}

// SetArtifact records the exported artifact URI.
func (s *JobStore) SetArtifact(ctx context.Context, jobID string, uri string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE jobs SET artifact_uri = $2 WHERE id = $1`, jobID, uri)
	if err != nil {
		return fmt.Errorf("update artifact uri: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return scraper.ErrJobNotFound
	}
	return nil
}

// RecordResults inserts one row per extracted record.
func (s *JobStore) RecordResults(ctx context.Context, jobID string, records []scraper.JobRecord) error {
	query := `
INSERT INTO job_records (job_id, position, title, company_name, posted_at, url)
VALUES ($1,$2,$3,$4,$5,$6)`
	for i, rec := range records {
		if _, err := s.pool.Exec(ctx, query, jobID, i, rec.Title, rec.CompanyName, rec.PostedAt, rec.URL); err != nil {
			return fmt.Errorf("insert job record: %w", err)
		}
	}
	return nil
}

// ListResults returns the recorded records for a job in insertion order.
func (s *JobStore) ListResults(ctx context.Context, jobID string) ([]scraper.JobRecord, error) {
	query := `
SELECT title, company_name, posted_at, url
FROM job_records WHERE job_id = $1 ORDER BY position`
	rows, err := s.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("select job records: %w", err)
	}
	defer rows.Close()

	var out []scraper.JobRecord
	for rows.Next() {
		var rec scraper.JobRecord
		if err := rows.Scan(&rec.Title, &rec.CompanyName, &rec.PostedAt, &rec.URL); err != nil {
			return nil, fmt.Errorf("scan job record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job records: %w", err)
	}
	return out, nil
}
