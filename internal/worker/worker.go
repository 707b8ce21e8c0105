// Package worker implements the scrape job execution loop.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/scrapeworks/jobscraper/internal/export"
	"github.com/scrapeworks/jobscraper/internal/metrics"
	"github.com/scrapeworks/jobscraper/internal/scraper"
	"github.com/scrapeworks/jobscraper/internal/storage"
)

// CrawlEngine runs one crawl for a search query.
type CrawlEngine interface {
	Run(ctx context.Context, query scraper.SearchQuery) (*scraper.CrawlResult, scraper.JobCounters, error)
}

// depthReporter is implemented by queues that can report their backlog.
type depthReporter interface {
	Depth() int
}

// finishTimeout bounds the post-run persistence phase once the worker's own
// context is gone.
const finishTimeout = 30 * time.Second

// CancelRegistry tracks cancel functions of in-flight jobs so a cancel
// request can interrupt a crawl that already left the queue.
type CancelRegistry struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewCancelRegistry returns an empty registry.
func NewCancelRegistry() *CancelRegistry {
	return &CancelRegistry{cancels: make(map[string]context.CancelFunc)}
}

func (r *CancelRegistry) register(jobID string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels[jobID] = cancel
}

func (r *CancelRegistry) unregister(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cancels, jobID)
}

// Cancel interrupts a running job. It reports whether a running job was found.
func (r *CancelRegistry) Cancel(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cancel, ok := r.cancels[jobID]
	if ok {
		cancel()
	}
	return ok
}

// Worker consumes queue items and executes the crawl-export-persist pipeline.
type Worker struct {
	queue     scraper.Queue
	jobStore  scraper.JobStore
	blobStore storage.Provider
	publisher scraper.Publisher
	hasher    scraper.Hasher
	clock     scraper.Clock
	engine    CrawlEngine
	registry  *CancelRegistry
	logger    *zap.Logger
}

// New constructs a Worker.
func New(
	queue scraper.Queue,
	jobStore scraper.JobStore,
	blobStore storage.Provider,
	publisher scraper.Publisher,
	hasher scraper.Hasher,
	clock scraper.Clock,
	engine CrawlEngine,
	registry *CancelRegistry,
	logger *zap.Logger,
) *Worker {
	metrics.Init()
	if registry == nil {
		registry = NewCancelRegistry()
	}
	return &Worker{
		queue:     queue,
		jobStore:  jobStore,
		blobStore: blobStore,
		publisher: publisher,
		hasher:    hasher,
		clock:     clock,
		engine:    engine,
		registry:  registry,
		logger:    logger,
	}
}

// Run blocks, consuming queue items until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		if q, ok := w.queue.(depthReporter); ok {
			metrics.SetQueueDepth(q.Depth())
		}
		w.logger.Debug("dequeued job", zap.String("job_id", item.JobID))
		w.processJob(ctx, item)
	}
}

func (w *Worker) processJob(ctx context.Context, item scraper.QueueItem) {
	job, err := w.jobStore.GetJob(ctx, item.JobID)
	if err != nil {
		w.logger.Error("load job failed", zap.String("job_id", item.JobID), zap.Error(err))
		return
	}
	// A job canceled while still queued is skipped, not run.
	if job.Status.IsTerminal() {
		w.logger.Info("skipping terminal job",
			zap.String("job_id", item.JobID),
			zap.String("status", string(job.Status)),
		)
		return
	}

	if err := w.jobStore.UpdateJobStatus(ctx, item.JobID, scraper.JobStatusRunning, "", scraper.JobCounters{}); err != nil {
		w.logger.Error("update job status failed", zap.String("job_id", item.JobID), zap.Error(err))
		return
	}

	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	w.registry.register(item.JobID, cancel)
	defer w.registry.unregister(item.JobID)

	start := w.clock.Now()
	result, counters, runErr := w.engine.Run(runCtx, item.Query)
	metrics.ObserveCrawlDuration(w.clock.Now().Sub(start))

	errText := ""
	if runErr != nil {
		errText = runErr.Error()
		w.logger.Error("crawl failed",
			zap.String("job_id", item.JobID),
			zap.String("title", item.Query.Title),
			zap.Error(runErr),
		)
	}

	status := deriveFinalStatus(runCtx, runErr)

	// The terminal write and completion event must land even when the run
	// context is already canceled (shutdown, job cancel), or the row is
	// stranded in running.
	finishCtx, finishCancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer finishCancel()

	artifactURI := ""
	contentHash := ""
	recordCount := 0
	if status == scraper.JobStatusSucceeded {
		uri, hash, n, persistErr := w.persistResult(finishCtx, item, result)
		if persistErr != nil {
			status = scraper.JobStatusFailed
			errText = persistErr.Error()
			w.logger.Error("persist result failed", zap.String("job_id", item.JobID), zap.Error(persistErr))
		} else {
			artifactURI, contentHash, recordCount = uri, hash, n
			metrics.ObserveRecords(n)
		}
	}

	if err := w.jobStore.UpdateJobStatus(finishCtx, item.JobID, status, errText, counters); err != nil {
		w.logger.Error("final job status update failed", zap.String("job_id", item.JobID), zap.Error(err))
	}
	metrics.ObserveJob(string(status))

	w.publishCompletion(finishCtx, item.JobID, status, artifactURI, contentHash, recordCount)

	w.logger.Info("job finished",
		zap.String("job_id", item.JobID),
		zap.String("status", string(status)),
		zap.Int("records", recordCount),
		zap.Int("pages_fetched", counters.Fetched),
		zap.Int("pages_failed", counters.Failed),
	)
}

// persistResult renders the CSV artifact, saves it, and records the rows.
func (w *Worker) persistResult(
	ctx context.Context,
	item scraper.QueueItem,
	result *scraper.CrawlResult,
) (uri string, hash string, count int, err error) {
	records := result.Records()

	data, err := export.RenderCSV(records)
	if err != nil {
		return "", "", 0, fmt.Errorf("render csv: %w", err)
	}

	hash, err = w.hasher.Hash(data)
	if err != nil {
		return "", "", 0, fmt.Errorf("hash artifact: %w", err)
	}

	uri, err = w.blobStore.Save(ctx, item.Query.ArtifactName(), data)
	if err != nil {
		return "", "", 0, fmt.Errorf("save artifact: %w", err)
	}

	if err := w.jobStore.RecordResults(ctx, item.JobID, records); err != nil {
		return "", "", 0, fmt.Errorf("record results: %w", err)
	}
	if err := w.jobStore.SetArtifact(ctx, item.JobID, uri); err != nil {
		return "", "", 0, fmt.Errorf("set artifact uri: %w", err)
	}
	return uri, hash, len(records), nil
}

func (w *Worker) publishCompletion(
	ctx context.Context,
	jobID string,
	status scraper.JobStatus,
	artifactURI string,
	contentHash string,
	records int,
) {
	if w.publisher == nil {
		return
	}
	event := scraper.CompletionEvent{
		JobID:       jobID,
		Status:      status,
		ArtifactURI: artifactURI,
		Records:     records,
		ContentHash: contentHash,
		FinishedAt:  w.clock.Now(),
	}
	if err := w.publisher.Publish(ctx, event); err != nil {
		w.logger.Warn("publish completion failed", zap.String("job_id", jobID), zap.Error(err))
	}
}

func deriveFinalStatus(runCtx context.Context, runErr error) scraper.JobStatus {
	switch {
	case runCtx.Err() != nil:
		return scraper.JobStatusCanceled
	case runErr != nil:
		return scraper.JobStatusFailed
	default:
		return scraper.JobStatusSucceeded
	}
}
