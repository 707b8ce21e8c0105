package memory

import (
	"context"
	"testing"

	"github.com/scrapeworks/jobscraper/internal/scraper"
)

func TestPublisherStoresEvents(t *testing.T) {
	t.Parallel()

	pub := New()
	err := pub.Publish(context.Background(), scraper.CompletionEvent{JobID: "job-1", Status: scraper.JobStatusSucceeded})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	err = pub.Publish(context.Background(), scraper.CompletionEvent{JobID: "job-2", Status: scraper.JobStatusFailed})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	events := pub.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].JobID != "job-1" || events[1].JobID != "job-2" {
		t.Fatalf("events not recorded correctly: %+v", events)
	}

	events[0].JobID = "modified"
	if pub.Events()[0].JobID == "modified" {
		t.Fatal("expected Events() to return a copy")
	}
}
