// Package cmd defines the CLI commands for the jobscraper executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobscraper",
		Short: "A job posting scraper for public search result pages.",
		Long: `jobscraper collects job postings from public search result pages.
It discovers posting links from a search query, extracts the title, company,
and posting time from each detail page, and exports the rows as CSV.

Run 'jobscraper serve' to host the HTTP API with queued background jobs, or
'jobscraper scrape' for a one-shot crawl that writes the CSV locally.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "use development console logging")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newScrapeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
