package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Reset collectors for testing purposes.
	scraperPagesTotal = nil
	scraperJobsTotal = nil
	httpRequestsTotal = nil
	httpRequestDurationSeconds = nil

	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if scraperPagesTotal == nil || scraperJobsTotal == nil ||
		httpRequestsTotal == nil || httpRequestDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}

	// A simple check to see if a metric can be used.
	scraperPagesTotal.WithLabelValues("discovery", "success").Inc()
	if val := testutil.ToFloat64(scraperPagesTotal); val != 1 {
		t.Errorf("Expected scraperPagesTotal to be 1, got %f", val)
	}
}

func TestObserveRecordsIgnoresNonPositive(t *testing.T) {
	Init()

	before := testutil.ToFloat64(scraperRecordsTotal)
	ObserveRecords(0)
	ObserveRecords(-3)
	if got := testutil.ToFloat64(scraperRecordsTotal); got != before {
		t.Errorf("expected record counter unchanged, got %f want %f", got, before)
	}
	ObserveRecords(4)
	if got := testutil.ToFloat64(scraperRecordsTotal); got != before+4 {
		t.Errorf("expected record counter %f, got %f", before+4, got)
	}
}
