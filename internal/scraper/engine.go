package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/scrapeworks/jobscraper/internal/metrics"
)

// Mode selects the fetch strategy for a crawl.
type Mode string

// Engine modes. Auto starts static and promotes to the renderer when the
// discovery page carries no usable results list.
const (
	ModeStatic   Mode = "colly"
	ModeRendered Mode = "chromedp"
	ModeAuto     Mode = "auto"
)

// Config controls one Engine.
type Config struct {
	MaxRequests int
	Parallelism int
	Mode        Mode
}

const (
	defaultMaxRequests = 50
	defaultParallelism = 2
)

func (c Config) withDefaults() Config {
	if c.MaxRequests <= 0 {
		c.MaxRequests = defaultMaxRequests
	}
	if c.Parallelism <= 0 {
		c.Parallelism = defaultParallelism
	}
	if c.Mode == "" {
		c.Mode = ModeStatic
	}
	return c
}

// Handler processes one fetched page for a labeled request.
type Handler func(ctx context.Context, page *Page, crawl *Crawl) error

// DefaultRoutes returns the two-stage route table: discovery pages feed the
// link extractor, detail pages feed the record extractor.
func DefaultRoutes() map[RequestLabel]Handler {
	return map[RequestLabel]Handler{
		LabelDiscovery: handleDiscovery,
		LabelDetail:    handleDetail,
	}
}

func handleDiscovery(_ context.Context, page *Page, crawl *Crawl) error {
	links := DiscoverLinks(page)
	crawl.addDiscovered(len(links))
	for _, link := range links {
		if !crawl.Schedule(link, LabelDetail) {
			break
		}
	}
	return nil
}

func handleDetail(_ context.Context, page *Page, crawl *Crawl) error {
	rec, err := ExtractJobRecord(page)
	if err != nil {
		return err
	}
	crawl.Append(rec)
	return nil
}

// Engine runs the two-stage crawl workflow. It owns the request queue seeded
// with one discovery request, enforces the total-request budget, fetches
// concurrently up to the configured parallelism, and routes fetched pages
// through the label table passed at construction. An Engine holds no per-run
// state and is safe to share across workers.
type Engine struct {
	cfg      Config
	fetcher  Fetcher
	renderer Renderer
	detector RenderDetector
	routes   map[RequestLabel]Handler
	logger   *zap.Logger
}

// NewEngine constructs an Engine. The renderer and detector may be nil when
// the mode never renders.
func NewEngine(
	cfg Config,
	fetcher Fetcher,
	renderer Renderer,
	detector RenderDetector,
	routes map[RequestLabel]Handler,
	logger *zap.Logger,
) *Engine {
	metrics.Init()
	if routes == nil {
		routes = DefaultRoutes()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:      cfg.withDefaults(),
		fetcher:  fetcher,
		renderer: renderer,
		detector: detector,
		routes:   routes,
		logger:   logger,
	}
}

type task struct {
	url   string
	label RequestLabel
}

// Crawl carries the mutable state of one engine run. Stage handlers interact
// with the run only through Schedule and Append.
type Crawl struct {
	result *CrawlResult
	tasks  chan task
	wg     sync.WaitGroup

	mu            sync.Mutex
	scheduled     int
	budget        int
	counters      JobCounters
	renderDetails bool
}

// Schedule enqueues a URL for the labeled stage. It reports false once the
// request budget is exhausted; in-flight requests still complete.
func (c *Crawl) Schedule(url string, label RequestLabel) bool {
	c.mu.Lock()
	if c.scheduled >= c.budget {
		c.mu.Unlock()
		return false
	}
	c.scheduled++
	c.mu.Unlock()

	c.wg.Add(1)
	c.tasks <- task{url: url, label: label}
	return true
}

// Append adds one extracted record to the shared result.
func (c *Crawl) Append(rec JobRecord) {
	c.result.Append(rec)
	c.mu.Lock()
	c.counters.Extracted++
	c.mu.Unlock()
}

func (c *Crawl) addDiscovered(n int) {
	c.mu.Lock()
	c.counters.Discovered += n
	c.mu.Unlock()
}

func (c *Crawl) addFetched() {
	c.mu.Lock()
	c.counters.Fetched++
	c.mu.Unlock()
}

func (c *Crawl) addFailed() {
	c.mu.Lock()
	c.counters.Failed++
	c.mu.Unlock()
}

func (c *Crawl) setRenderDetails() {
	c.mu.Lock()
	c.renderDetails = true
	c.mu.Unlock()
}

func (c *Crawl) shouldRenderDetails() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renderDetails
}

func (c *Crawl) snapshot() JobCounters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters
}

// Run executes one crawl for the query and returns the collected records and
// counters. Per-page failures are counted, never fatal; Run errors only when
// the seed fetch itself fails or the context ends.
func (e *Engine) Run(ctx context.Context, query SearchQuery) (*CrawlResult, JobCounters, error) {
	seed := BuildSeedURL(query.Title, query.Location)

	crawl := &Crawl{
		result: NewCrawlResult(),
		tasks:  make(chan task, e.cfg.MaxRequests),
		budget: e.cfg.MaxRequests,
	}
	crawl.Schedule(seed, LabelDiscovery)
	go func() {
		crawl.wg.Wait()
		close(crawl.tasks)
	}()

	var (
		seedErrMu sync.Mutex
		seedErr   error
	)
	var workers sync.WaitGroup
	for i := 0; i < e.cfg.Parallelism; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for t := range crawl.tasks {
				if err := e.process(ctx, t, crawl); err != nil && t.label == LabelDiscovery {
					seedErrMu.Lock()
					seedErr = err
					seedErrMu.Unlock()
				}
				crawl.wg.Done()
			}
		}()
	}
	workers.Wait()

	counters := crawl.snapshot()
	if err := ctx.Err(); err != nil {
		return crawl.result, counters, fmt.Errorf("crawl interrupted: %w", err)
	}
	if seedErr != nil {
		return crawl.result, counters, fmt.Errorf("seed fetch: %w", seedErr)
	}
	return crawl.result, counters, nil
}

// process fetches one labeled request and hands the page to its handler.
// The returned error is only meaningful for discovery requests, where a
// failed seed fails the run.
func (e *Engine) process(ctx context.Context, t task, crawl *Crawl) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	page, err := e.fetchPage(ctx, t, crawl)
	if err != nil {
		crawl.addFailed()
		metrics.ObservePage(string(t.label), "failure")
		e.logger.Warn("page fetch failed",
			zap.String("url", t.url),
			zap.String("label", string(t.label)),
			zap.Error(err),
		)
		return err
	}
	crawl.addFetched()

	handler, ok := e.routes[t.label]
	if !ok {
		crawl.addFailed()
		metrics.ObservePage(string(t.label), "failure")
		return fmt.Errorf("no handler for label %q", t.label)
	}
	if err := handler(ctx, page, crawl); err != nil {
		crawl.addFailed()
		metrics.ObservePage(string(t.label), "failure")
		var notFound *ElementNotFoundError
		if errors.As(err, &notFound) {
			e.logger.Debug("record skipped",
				zap.String("url", t.url),
				zap.String("field", notFound.Field),
			)
			return nil
		}
		e.logger.Warn("stage handler failed",
			zap.String("url", t.url),
			zap.String("label", string(t.label)),
			zap.Error(err),
		)
		return nil
	}
	metrics.ObservePage(string(t.label), "success")
	return nil
}

func (e *Engine) fetchPage(ctx context.Context, t task, crawl *Crawl) (*Page, error) {
	switch {
	case e.cfg.Mode == ModeRendered:
		return e.render(ctx, t.url)
	case e.cfg.Mode == ModeAuto && t.label == LabelDetail && crawl.shouldRenderDetails():
		return e.render(ctx, t.url)
	}

	page, err := e.fetcher.Fetch(ctx, t.url)
	if err != nil {
		return nil, err
	}

	// Auto mode: a discovery page with no results list is re-fetched through
	// the browser, and the rest of the crawl stays rendered.
	if e.cfg.Mode == ModeAuto && t.label == LabelDiscovery &&
		e.detector != nil && e.detector.ShouldRender(page) {
		rendered, rerr := e.render(ctx, t.url)
		if rerr != nil {
			e.logger.Warn("rendered re-fetch failed, keeping static page",
				zap.String("url", t.url), zap.Error(rerr))
			return page, nil
		}
		crawl.setRenderDetails()
		return rendered, nil
	}
	return page, nil
}

func (e *Engine) render(ctx context.Context, url string) (*Page, error) {
	if e.renderer == nil {
		return nil, ErrRendererDisabled
	}
	return e.renderer.Render(ctx, url)
}
