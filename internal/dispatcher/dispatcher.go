// Package dispatcher manages worker fan-out over the job queue.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/scrapeworks/jobscraper/internal/metrics"
	"github.com/scrapeworks/jobscraper/internal/scraper"
	"github.com/scrapeworks/jobscraper/internal/worker"
)

// depthReporter is implemented by queues that can report their backlog.
type depthReporter interface {
	Depth() int
}

// Dispatcher fans out queue work to a pool of workers and routes cancel
// requests to whichever worker holds the job.
type Dispatcher struct {
	queue    scraper.Queue
	workers  []*worker.Worker
	registry *worker.CancelRegistry
}

// New creates a Dispatcher.
func New(queue scraper.Queue, workers []*worker.Worker, registry *worker.CancelRegistry) *Dispatcher {
	if registry == nil {
		registry = worker.NewCancelRegistry()
	}
	return &Dispatcher{
		queue:    queue,
		workers:  workers,
		registry: registry,
	}
}

// Run starts all workers and blocks until the context finishes.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	<-ctx.Done()
	wg.Wait()
}

// Enqueue proxies to the underlying queue. ErrQueueFull passes through
// unwrapped so API handlers can map it to a retryable response.
func (d *Dispatcher) Enqueue(ctx context.Context, item scraper.QueueItem) error {
	if err := d.queue.Enqueue(ctx, item); err != nil {
		if errors.Is(err, scraper.ErrQueueFull) {
			return err
		}
		return fmt.Errorf("queue enqueue: %w", err)
	}
	if q, ok := d.queue.(depthReporter); ok {
		metrics.SetQueueDepth(q.Depth())
	}
	return nil
}

// Cancel interrupts a job currently being processed. It reports whether a
// running job was found; queued jobs are canceled in the store instead.
func (d *Dispatcher) Cancel(jobID string) bool {
	return d.registry.Cancel(jobID)
}
