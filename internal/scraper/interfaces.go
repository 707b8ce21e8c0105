package scraper

import (
	"context"
	"time"
)

// Fetcher retrieves a page over plain HTTP.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// Renderer retrieves a page through a browser so client-side markup is
// present before extraction runs.
type Renderer interface {
	Render(ctx context.Context, url string) (*Page, error)
}

// RenderDetector decides whether a statically fetched page needs a rendered
// re-fetch before its stage handler can succeed.
type RenderDetector interface {
	ShouldRender(page *Page) bool
}

// JobStore persists job rows and their extracted records.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	GetJob(ctx context.Context, jobID string) (Job, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errText string, counters JobCounters) error
	SetArtifact(ctx context.Context, jobID string, uri string) error
	RecordResults(ctx context.Context, jobID string, records []JobRecord) error
	ListResults(ctx context.Context, jobID string) ([]JobRecord, error)
}

// Publisher pushes completion events to a broker.
type Publisher interface {
	Publish(ctx context.Context, event CompletionEvent) error
}

// Queue provides enqueue/dequeue semantics for scrape jobs.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Hasher computes digests for artifact integrity.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
