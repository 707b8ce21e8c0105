package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scrapeworks/jobscraper/internal/config"
	"github.com/scrapeworks/jobscraper/internal/server"
)

// newServeCmd creates the 'serve' subcommand hosting the HTTP API, worker
// pool, and scheduler.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the scraper service",
		Long: `Starts the HTTP API together with the background worker pool.
Scrape jobs submitted over HTTP (or by configured schedules) are queued,
crawled, exported as CSV artifacts, and tracked in the job store.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if verbose {
				cfg.Logging.Development = true
			}
			app, err := server.Build(cmd.Context(), &cfg)
			if err != nil {
				return fmt.Errorf("build application: %w", err)
			}
			return app.Run(cmd.Context())
		},
	}
}
