package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/freelance-applier/internal/llm"
	"github.com/jonathan/freelance-applier/internal/observability"
	"github.com/jonathan/freelance-applier/internal/sink"
)

var scrapeFlags pipelineFlags

var scrapeCommand = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape jobs for a query and export them to CSV",
	Long:  "Runs only the scraping step: fetches jobs for the query from the configured source, validates and deduplicates them and writes scraped_jobs_<date>.csv to the CSV directory.",
	RunE:  runScrapeCmd,
}

func init() {
	addPipelineFlags(scrapeCommand, &scrapeFlags)
	rootCmd.AddCommand(scrapeCommand)
}

func runScrapeCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := resolveConfig(cmd, &scrapeFlags)
	if err != nil {
		return err
	}
	logger := newLogger(&scrapeFlags, cfg.Verbose)

	// Only the listing page scraper talks to the LLM
	var client llm.Client
	if cfg.ListingURL != "" {
		usage, err := newLLMClient(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = usage.Close() }()
		client = usage
	}

	scraper, err := newScraper(cfg, client, logger)
	if err != nil {
		return err
	}

	jobs, err := scraper.Scrape(ctx, cfg.Query)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(os.Stdout, "Scraped %d jobs for %q\n", len(jobs), cfg.Query)
	if len(jobs) == 0 {
		return nil
	}

	if cfg.Verbose {
		observability.NewPrinter(os.Stdout).PrintScrapedJobs(jobs)
	}

	path, err := sink.ExportCSV(cfg.CSVDir, jobs, time.Now())
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(os.Stdout, "Jobs exported to %s\n", path)
	return nil
}
