package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/scrapeworks/jobscraper/internal/scraper"
)

// JobStore provides an in-memory scraper.JobStore for development/testing.
type JobStore struct {
	mu      sync.RWMutex
	jobs    map[string]scraper.Job
	records map[string][]scraper.JobRecord
}

// NewJobStore constructs a JobStore.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs:    make(map[string]scraper.Job),
		records: make(map[string][]scraper.JobRecord),
	}
}

// CreateJob stores a new job.
func (s *JobStore) CreateJob(_ context.Context, job scraper.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return errors.New("job already exists")
	}
	s.jobs[job.ID] = job
	return nil
}

// GetJob fetches a job by ID.
func (s *JobStore) GetJob(_ context.Context, jobID string) (scraper.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return scraper.Job{}, scraper.ErrJobNotFound
	}
	return job, nil
}

// UpdateJobStatus updates status, error text and counters, stamping the
// started/finished timestamps on the relevant transitions.
func (s *JobStore) UpdateJobStatus(
	_ context.Context,
	jobID string,
	status scraper.JobStatus,
	errText string,
	counters scraper.JobCounters,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return scraper.ErrJobNotFound
	}
	job.Status = status
	job.ErrorText = errText
	job.Counters = counters
	now := time.Now().UTC()
	if status == scraper.JobStatusRunning && job.Started == nil {
		job.Started = pointerTime(now)
	}
	if status.IsTerminal() && job.Finished == nil {
		job.Finished = pointerTime(now)
	}
	s.jobs[jobID] = job
	return nil
}

// SetArtifact records the exported artifact URI.
func (s *JobStore) SetArtifact(_ context.Context, jobID string, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return scraper.ErrJobNotFound
	}
	job.ArtifactURI = uri
	s.jobs[jobID] = job
	return nil
}

// RecordResults appends extracted records for a job.
func (s *JobStore) RecordResults(_ context.Context, jobID string, records []scraper.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[jobID]; !ok {
		return scraper.ErrJobNotFound
	}
	s.records[jobID] = append(s.records[jobID], records...)
	return nil
}

// ListResults returns all recorded records for a job.
func (s *JobStore) ListResults(_ context.Context, jobID string) ([]scraper.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.jobs[jobID]; !ok {
		return nil, scraper.ErrJobNotFound
	}
	records := s.records[jobID]
	out := make([]scraper.JobRecord, len(records))
	copy(out, records)
	return out, nil
}

func pointerTime(t time.Time) *time.Time {
	ts := t
	return &ts
}
