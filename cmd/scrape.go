package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scrapeworks/jobscraper/internal/config"
	"github.com/scrapeworks/jobscraper/internal/export"
	"github.com/scrapeworks/jobscraper/internal/logging"
	"github.com/scrapeworks/jobscraper/internal/scraper"
	"github.com/scrapeworks/jobscraper/internal/server"
	localstorage "github.com/scrapeworks/jobscraper/internal/storage/local"
)

// newScrapeCmd creates the 'scrape' subcommand for one-shot crawls without
// the HTTP service.
func newScrapeCmd() *cobra.Command {
	var (
		title    string
		location string
		out      string
	)
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run a single scrape and write the CSV locally",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if verbose {
				cfg.Logging.Development = true
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.App.Name)
			if err != nil {
				return fmt.Errorf("logger init: %w", err)
			}
			defer logger.Sync() //nolint:errcheck // best-effort flush

			query := scraper.SearchQuery{Title: title, Location: location, OutputName: out}
			if err := query.Validate(); err != nil {
				return err
			}

			engine, err := server.NewEngine(&cfg, logger.Named("engine"))
			if err != nil {
				return err
			}

			result, counters, err := engine.Run(cmd.Context(), query)
			if err != nil {
				return fmt.Errorf("crawl failed: %w", err)
			}

			data, err := export.RenderCSV(result.Records())
			if err != nil {
				return fmt.Errorf("render csv: %w", err)
			}
			store, err := localstorage.New(localstorage.Config{BaseDir: cfg.Storage.LocalDir})
			if err != nil {
				return fmt.Errorf("open output directory: %w", err)
			}
			uri, err := store.Save(cmd.Context(), query.ArtifactName(), data)
			if err != nil {
				return fmt.Errorf("save artifact: %w", err)
			}

			logger.Info("scrape finished",
				zap.Int("records", result.Len()),
				zap.Int("pages_fetched", counters.Fetched),
				zap.Int("links_discovered", counters.Discovered),
				zap.Int("pages_failed", counters.Failed),
				zap.String("artifact", uri),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to %s\n", result.Len(), uri)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "job title to search for")
	cmd.Flags().StringVar(&location, "location", "", "location to search in")
	cmd.Flags().StringVar(&out, "out", "", "artifact name without extension")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("location")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}
