package scraper

import "sync"

// CrawlResult is the append-only record collection of one crawl. Appends are
// serialized so concurrently finishing detail stages can share it; the order
// is completion order, not discovery order.
type CrawlResult struct {
	mu      sync.Mutex
	records []JobRecord
}

// NewCrawlResult returns an empty result collection.
func NewCrawlResult() *CrawlResult {
	return &CrawlResult{}
}

// Append adds one record.
func (r *CrawlResult) Append(rec JobRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

// Len returns the number of records appended so far.
func (r *CrawlResult) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Records returns a copy of the collected records.
func (r *CrawlResult) Records() []JobRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]JobRecord, len(r.records))
	copy(out, r.records)
	return out
}
