package scraper

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the scraping subsystems.
var (
	// ErrQueueFull is returned by bounded queues instead of blocking the caller.
	ErrQueueFull = errors.New("queue full")
	// ErrJobNotFound is returned by job stores for unknown job IDs.
	ErrJobNotFound = errors.New("job not found")
	// ErrRendererDisabled indicates headless rendering is not available.
	ErrRendererDisabled = errors.New("renderer is disabled")
)

// ValidationError names the query field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ElementNotFoundError reports a required DOM lookup that matched nothing.
// It fails the individual record, never the crawl.
type ElementNotFoundError struct {
	Field    string
	Selector string
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("element not found: %s (%s)", e.Field, e.Selector)
}
