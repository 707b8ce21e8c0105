// Package scheduler runs recurring scrapes from configured cron entries.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/scrapeworks/jobscraper/internal/config"
	"github.com/scrapeworks/jobscraper/internal/scraper"
)

// SubmitFunc submits a query for execution and returns the job ID. The API
// server's Submit method satisfies it.
type SubmitFunc func(ctx context.Context, query scraper.SearchQuery) (string, error)

// Scheduler wraps robfig/cron and submits configured queries on each tick.
type Scheduler struct {
	cron    *cron.Cron
	entries []config.ScheduleConfig
	submit  SubmitFunc
	logger  *zap.Logger
}

// New creates a Scheduler over the configured entries.
func New(entries []config.ScheduleConfig, submit SubmitFunc, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		entries: entries,
		submit:  submit,
		logger:  logger,
	}
}

// Start registers all entries and starts the cron loop. A bad spec fails
// startup rather than silently dropping the schedule.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, entry := range s.entries {
		query := scraper.SearchQuery{
			Title:      entry.Title,
			Location:   entry.Location,
			OutputName: entry.DataName,
		}
		spec := entry.Spec
		if _, err := s.cron.AddFunc(spec, func() {
			s.runScrape(ctx, spec, query)
		}); err != nil {
			return fmt.Errorf("register schedule %q: %w", spec, err)
		}
	}
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("schedules", len(s.entries)))
	return nil
}

// Stop shuts down the cron loop. Already-submitted jobs keep running.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runScrape(ctx context.Context, spec string, query scraper.SearchQuery) {
	jobID, err := s.submit(ctx, query)
	if err != nil {
		s.logger.Error("scheduled scrape submission failed",
			zap.String("spec", spec),
			zap.String("title", query.Title),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("scheduled scrape submitted",
		zap.String("spec", spec),
		zap.String("job_id", jobID),
		zap.String("title", query.Title),
		zap.String("location", query.Location),
	)
}
