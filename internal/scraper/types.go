package scraper

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// JobStatus represents the lifecycle state of a scrape job.
type JobStatus string

// Job status values persisted in the job store.
const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// IsTerminal reports whether the status is a final state.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
		return true
	default:
		return false
	}
}

// RequestLabel selects which stage handler processes a fetched page.
type RequestLabel string

// Stage labels understood by the engine's route table.
const (
	LabelDiscovery RequestLabel = "discovery"
	LabelDetail    RequestLabel = "detail"
)

// SearchQuery is the immutable input of one crawl: what to search for and
// the name of the exported artifact.
type SearchQuery struct {
	Title      string `json:"title"`
	Location   string `json:"location"`
	OutputName string `json:"data_name" mapstructure:"data_name"`
}

// Validate rejects queries the pipeline cannot act on. The output name
// becomes a file name, so path separators and parent references are refused.
func (q SearchQuery) Validate() error {
	if strings.TrimSpace(q.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if strings.TrimSpace(q.Location) == "" {
		return &ValidationError{Field: "location", Reason: "must not be empty"}
	}
	name := strings.TrimSpace(q.OutputName)
	if name == "" {
		return &ValidationError{Field: "data_name", Reason: "must not be empty"}
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return &ValidationError{Field: "data_name", Reason: "must not contain path separators"}
	}
	return nil
}

// ArtifactName returns the file name of the exported CSV for this query.
func (q SearchQuery) ArtifactName() string {
	return strings.TrimSpace(q.OutputName) + ".csv"
}

// JobRecord is one extracted job posting. The three text fields carry
// whitespace-normalized text; URL is the detail page address verbatim.
type JobRecord struct {
	Title       string `json:"title"`
	CompanyName string `json:"company_name"`
	PostedAt    string `json:"posted_at"`
	URL         string `json:"url"`
}

// JobCounters tracks per-crawl progress stats.
type JobCounters struct {
	Fetched    int `json:"pages_fetched"`
	Discovered int `json:"links_discovered"`
	Extracted  int `json:"records_extracted"`
	Failed     int `json:"pages_failed"`
}

// Job is the metadata persisted for each submitted scrape request.
type Job struct {
	ID          string      `json:"id"`
	Query       SearchQuery `json:"query"`
	Status      JobStatus   `json:"status"`
	Submitted   time.Time   `json:"submitted_at"`
	Started     *time.Time  `json:"started_at,omitempty"`
	Finished    *time.Time  `json:"finished_at,omitempty"`
	ErrorText   string      `json:"error_text,omitempty"`
	ArtifactURI string      `json:"artifact_uri,omitempty"`
	Counters    JobCounters `json:"counters"`
}

// QueueItem wraps a job ready to run.
type QueueItem struct {
	JobID     string
	Query     SearchQuery
	Submitted int64
}

// CompletionEvent is published when a job reaches a terminal status.
type CompletionEvent struct {
	JobID       string    `json:"job_id"`
	Status      JobStatus `json:"status"`
	ArtifactURI string    `json:"artifact_uri,omitempty"`
	Records     int       `json:"records"`
	ContentHash string    `json:"content_hash,omitempty"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Page is a fetched and parsed document handed to stage handlers.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
	Doc        *goquery.Document
	Rendered   bool
	Duration   time.Duration
}

// NewPage parses the body into a queryable document.
func NewPage(url string, statusCode int, body []byte, rendered bool) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse page %s: %w", url, err)
	}
	return &Page{
		URL:        url,
		StatusCode: statusCode,
		Body:       body,
		Doc:        doc,
		Rendered:   rendered,
	}, nil
}
