// Package server assembles the application's dependencies and lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/scrapeworks/jobscraper/internal/api"
	"github.com/scrapeworks/jobscraper/internal/clock/system"
	"github.com/scrapeworks/jobscraper/internal/config"
	"github.com/scrapeworks/jobscraper/internal/dispatcher"
	collyfetcher "github.com/scrapeworks/jobscraper/internal/fetcher/colly"
	headlessfetcher "github.com/scrapeworks/jobscraper/internal/fetcher/headless"
	"github.com/scrapeworks/jobscraper/internal/hash/sha256"
	"github.com/scrapeworks/jobscraper/internal/id/uuid"
	"github.com/scrapeworks/jobscraper/internal/logging"
	memorypublisher "github.com/scrapeworks/jobscraper/internal/publisher/memory"
	gcppublisher "github.com/scrapeworks/jobscraper/internal/publisher/pubsub"
	queueMemory "github.com/scrapeworks/jobscraper/internal/queue/memory"
	"github.com/scrapeworks/jobscraper/internal/scheduler"
	"github.com/scrapeworks/jobscraper/internal/scraper"
	gcsstorage "github.com/scrapeworks/jobscraper/internal/storage/gcs"
	localstorage "github.com/scrapeworks/jobscraper/internal/storage/local"
	memoryStorage "github.com/scrapeworks/jobscraper/internal/storage/memory"
	pgstore "github.com/scrapeworks/jobscraper/internal/storage/postgres"
	"github.com/scrapeworks/jobscraper/internal/storage"
	"github.com/scrapeworks/jobscraper/internal/worker"
)

// App contains the application's dependencies.
type App struct {
	cfg             *config.Config
	logger          *zap.Logger
	apiServer       *api.Server
	dispatch        *dispatcher.Dispatcher
	sched           *scheduler.Scheduler
	queue           *queueMemory.Queue
	pubsubClient    *pubsub.Client
	pubsubPublisher *pubsub.Publisher
	gcsClient       *gcs.Client
	pgStore         *pgstore.JobStore
}

// Build creates the application's dependencies from configuration.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development, cfg.App.Name)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)

	app := &App{cfg: cfg, logger: logger}
	logger.Info("building application dependencies", zap.Int("port", cfg.Server.Port))

	jobStore, err := app.setupJobStore(ctx)
	if err != nil {
		return nil, err
	}
	blobStore, err := app.setupStorage(ctx)
	if err != nil {
		return nil, err
	}
	publisher, err := app.setupPublisher(ctx)
	if err != nil {
		return nil, err
	}

	app.queue = queueMemory.NewQueue(cfg.Queue.Capacity)

	engine, err := NewEngine(cfg, logger.Named("engine"))
	if err != nil {
		return nil, err
	}

	registry := worker.NewCancelRegistry()
	hasher := sha256.New()
	clock := system.New()
	var workers []*worker.Worker
	for i := 0; i < cfg.Workers.Count; i++ {
		workers = append(workers, worker.New(
			app.queue,
			jobStore,
			blobStore,
			publisher,
			hasher,
			clock,
			engine,
			registry,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	app.dispatch = dispatcher.New(app.queue, workers, registry)

	app.apiServer = api.NewServer(
		jobStore,
		app.dispatch,
		uuid.NewUUIDGenerator(),
		clock,
		*cfg,
		logger.Named("api"),
	)

	if len(cfg.Schedules) > 0 {
		app.sched = scheduler.New(cfg.Schedules, app.apiServer.Submit, logger.Named("scheduler"))
	}

	return app, nil
}

// Run starts the application and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		a.logger.Info("dispatcher started", zap.Int("workers", a.cfg.Workers.Count))
		a.dispatch.Run(ctx)
	}()

	if a.sched != nil {
		if err := a.sched.Start(ctx); err != nil {
			return fmt.Errorf("scheduler start failed: %w", err)
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       a.cfg.ReadTimeout(),
		WriteTimeout:      a.cfg.WriteTimeout(),
	}

	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}

	return a.Close()
}

// Close gracefully shuts down the application.
func (a *App) Close() error {
	if a.sched != nil {
		a.sched.Stop()
	}
	a.queue.Close()
	if a.pubsubPublisher != nil {
		a.pubsubPublisher.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.pgStore != nil {
		a.pgStore.Close()
	}
	//nolint:errcheck // stdout sync failure is not actionable
	_ = a.logger.Sync()
	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) setupJobStore(ctx context.Context) (scraper.JobStore, error) {
	switch a.cfg.Store.Backend {
	case "postgres":
		a.logger.Info("using postgres job store")
		store, err := pgstore.NewJobStore(ctx, pgstore.JobStoreConfig{
			DSN:      a.cfg.Store.DSN,
			MaxConns: a.cfg.Store.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres job store init failed: %w", err)
		}
		a.pgStore = store
		return store, nil
	default:
		a.logger.Info("using in-memory job store")
		return memoryStorage.NewJobStore(), nil
	}
}

func (a *App) setupStorage(ctx context.Context) (storage.Provider, error) {
	switch a.cfg.Storage.Backend {
	case "gcs":
		a.logger.Info("using GCS storage backend", zap.String("bucket", a.cfg.Storage.GCSBucket))
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		a.gcsClient = client
		blobStore, err := gcsstorage.New(client, gcsstorage.Config{
			Bucket: a.cfg.Storage.GCSBucket,
			Prefix: a.cfg.Storage.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		return blobStore, nil
	case "local":
		a.logger.Info("using local storage backend", zap.String("dir", a.cfg.Storage.LocalDir))
		blobStore, err := localstorage.New(localstorage.Config{BaseDir: a.cfg.Storage.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		return blobStore, nil
	default:
		a.logger.Info("using in-memory storage backend")
		return memoryStorage.NewBlobStore(), nil
	}
}

func (a *App) setupPublisher(ctx context.Context) (scraper.Publisher, error) {
	if a.cfg.Publisher.Backend != "pubsub" {
		a.logger.Info("using in-memory completion publisher")
		return memorypublisher.New(), nil
	}
	client, err := pubsub.NewClient(ctx, a.cfg.Publisher.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	a.pubsubClient = client
	a.pubsubPublisher = client.Publisher(a.cfg.Publisher.TopicName)
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.Publisher.ProjectID),
		zap.String("topic", a.cfg.Publisher.TopicName),
	)
	return gcppublisher.New(a.pubsubPublisher), nil
}

// NewEngine builds the crawl engine with the configured fetch strategy. The
// serve and scrape commands share it.
func NewEngine(cfg *config.Config, logger *zap.Logger) (*scraper.Engine, error) {
	fetcher, err := collyfetcher.New(collyfetcher.Config{
		UserAgent:    cfg.Scraper.UserAgent,
		Timeout:      cfg.FetchTimeout(),
		IgnoreRobots: cfg.Scraper.IgnoreRobots,
		Proxies:      cfg.Scraper.Proxies,
		Parallelism:  cfg.Scraper.Parallelism,
		RandomDelay:  time.Duration(cfg.Scraper.RandomDelayMs) * time.Millisecond,
		MaxRetries:   cfg.Scraper.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("colly fetcher init failed: %w", err)
	}
	logger.Info("static fetcher ready",
		zap.String("user_agent", cfg.Scraper.UserAgent),
		zap.Int("proxies", len(cfg.Scraper.Proxies)),
	)

	mode := scraper.Mode(cfg.Scraper.Engine)
	var renderer scraper.Renderer = headlessfetcher.NewNoop()
	if mode != scraper.ModeStatic {
		r, err := headlessfetcher.NewRenderer(headlessfetcher.Config{
			Headless:          cfg.Headless.Headless,
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Scraper.UserAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
			SettleDelay:       time.Duration(cfg.Headless.SettleMs) * time.Millisecond,
			DomainQPS:         cfg.Headless.DomainQPS,
		})
		if err != nil {
			return nil, fmt.Errorf("renderer init failed: %w", err)
		}
		renderer = r
		logger.Info("browser renderer ready", zap.Int("max_parallel", cfg.Headless.MaxParallel))
	}

	engine := scraper.NewEngine(
		scraper.Config{
			MaxRequests: cfg.Scraper.MaxRequests,
			Parallelism: cfg.Scraper.Parallelism,
			Mode:        mode,
		},
		fetcher,
		renderer,
		scraper.NewResultsDetector(),
		scraper.DefaultRoutes(),
		logger,
	)
	return engine, nil
}
