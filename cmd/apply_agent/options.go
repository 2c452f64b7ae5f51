package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jonathan/freelance-applier/internal/config"
	"github.com/jonathan/freelance-applier/internal/db"
	"github.com/jonathan/freelance-applier/internal/fetch"
	"github.com/jonathan/freelance-applier/internal/generation"
	"github.com/jonathan/freelance-applier/internal/llm"
	"github.com/jonathan/freelance-applier/internal/logging"
	"github.com/jonathan/freelance-applier/internal/observability"
	"github.com/jonathan/freelance-applier/internal/pipeline"
	"github.com/jonathan/freelance-applier/internal/scoring"
	"github.com/jonathan/freelance-applier/internal/scraping"
	"github.com/jonathan/freelance-applier/internal/sink"
	"github.com/jonathan/freelance-applier/internal/types"
)

// pipelineFlags holds the flags shared by the run and schedule commands
type pipelineFlags struct {
	configPath     string
	query          string
	profilePath    string
	applicantName  string
	desiredRate    string
	threshold      int
	maxMatches     int
	maxTransitions int
	batchSize      int
	failurePolicy  string
	outputPath     string
	csvDir         string
	provider       string
	model          string
	apiKey         string
	apifyActor     string
	apifyMaxItems  int
	listingURL     string
	jobsFile       string
	useBrowser     bool
	databaseURL    string
	allowReapply   bool
	verbose        bool
	logLevel       string
}

func addPipelineFlags(cmd *cobra.Command, f *pipelineFlags) {
	// Config file flag (processed first)
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to a JSON or YAML config file (values can be overridden by other flags)")

	cmd.Flags().StringVarP(&f.query, "query", "q", "", "Job search query")
	cmd.Flags().StringVarP(&f.profilePath, "profile", "p", "", "Path to your profile text file")
	cmd.Flags().StringVarP(&f.applicantName, "name", "n", "", "Your name, used in generated content")
	cmd.Flags().StringVar(&f.desiredRate, "rate", "", "Desired hourly rate in USD")
	cmd.Flags().IntVar(&f.threshold, "threshold", 0, "Minimum score (1-10) for a job to be a match")
	cmd.Flags().IntVar(&f.maxMatches, "max-matches", 0, "Process only the last N matches (0 = all)")
	cmd.Flags().IntVar(&f.maxTransitions, "max-transitions", 0, "Stage executions allowed per run")
	cmd.Flags().IntVar(&f.batchSize, "batch-size", 0, "Jobs per scoring call (0 = all in one call)")
	cmd.Flags().StringVar(&f.failurePolicy, "on-generation-failure", "", "What a failed draft does to the run: skip or abort")
	cmd.Flags().StringVarP(&f.outputPath, "out", "o", "", "File that generated content is appended to")
	cmd.Flags().StringVar(&f.csvDir, "csv-dir", "", "Directory for scraped job CSV exports")

	cmd.Flags().StringVar(&f.provider, "provider", "", "LLM provider: gemini or openai")
	cmd.Flags().StringVar(&f.model, "model", "", "Model name used for every tier")
	// API key can be passed as a flag, or read from GEMINI_API_KEY / OPENAI_API_KEY
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "LLM API key (optional, defaults to the provider's env var)")

	cmd.Flags().StringVar(&f.apifyActor, "apify-actor", "", "Apify actor ID used to scrape jobs (token from APIFY_API_TOKEN)")
	cmd.Flags().IntVar(&f.apifyMaxItems, "apify-max-items", 0, "Maximum jobs requested from the actor")
	cmd.Flags().StringVar(&f.listingURL, "listing-url", "", "Listing page URL template with {query}; jobs are extracted by the LLM")
	cmd.Flags().StringVar(&f.jobsFile, "jobs-file", "", "Read jobs from a JSON file instead of scraping")
	cmd.Flags().BoolVar(&f.useBrowser, "use-browser", false, "Use headless browser for SPA listing pages (requires Chrome)")

	// Database URL for run history
	cmd.Flags().StringVar(&f.databaseURL, "db-url", "", "PostgreSQL URL for run history (optional, defaults to DATABASE_URL env var)")
	cmd.Flags().BoolVar(&f.allowReapply, "allow-reapply", false, "Draft content for jobs already applied to in earlier runs (needs run history)")

	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Print detailed debug information")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// defaultConfig holds the values used when neither the config file nor flags set them
func defaultConfig() config.Config {
	return config.Config{
		Query:          "AI agent",
		DesiredRate:    scoring.DefaultDesiredRate,
		Threshold:      scoring.DefaultThreshold,
		MaxTransitions: pipeline.DefaultMaxTransitions,
		FailurePolicy:  string(pipeline.PolicySkip),
		OutputPath:     sink.DefaultLogPath,
		CSVDir:         sink.DefaultCSVDir,
		Provider:       string(llm.ProviderGemini),
		ApifyMaxItems:  scraping.DefaultMaxItems,
		Schedule:       "@every 6h",
	}
}

// resolveConfig merges config file, explicitly set flags, defaults and env vars, in that order of precedence.
func resolveConfig(cmd *cobra.Command, f *pipelineFlags) (config.Config, error) {
	// Step 1: Load config file if provided
	var cfg config.Config
	if f.configPath != "" {
		loaded, err := config.LoadConfig(f.configPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return cfg, err
		}
		cfg = *loaded
	}

	// Step 2: Apply CLI overrides; only flags that were explicitly set win
	flags := cmd.Flags()
	strs := map[string]struct {
		dst *string
		val string
	}{
		"query":                 {&cfg.Query, f.query},
		"profile":               {&cfg.ProfilePath, f.profilePath},
		"name":                  {&cfg.ApplicantName, f.applicantName},
		"rate":                  {&cfg.DesiredRate, f.desiredRate},
		"on-generation-failure": {&cfg.FailurePolicy, f.failurePolicy},
		"out":                   {&cfg.OutputPath, f.outputPath},
		"csv-dir":               {&cfg.CSVDir, f.csvDir},
		"provider":              {&cfg.Provider, f.provider},
		"model":                 {&cfg.Model, f.model},
		"api-key":               {&cfg.APIKey, f.apiKey},
		"apify-actor":           {&cfg.ApifyActor, f.apifyActor},
		"listing-url":           {&cfg.ListingURL, f.listingURL},
		"jobs-file":             {&cfg.JobsFile, f.jobsFile},
		"db-url":                {&cfg.DatabaseURL, f.databaseURL},
	}
	for name, s := range strs {
		if flags.Changed(name) {
			*s.dst = s.val
		}
	}
	ints := map[string]struct {
		dst *int
		val int
	}{
		"threshold":       {&cfg.Threshold, f.threshold},
		"max-matches":     {&cfg.MaxMatches, f.maxMatches},
		"max-transitions": {&cfg.MaxTransitions, f.maxTransitions},
		"batch-size":      {&cfg.BatchSize, f.batchSize},
		"apify-max-items": {&cfg.ApifyMaxItems, f.apifyMaxItems},
	}
	for name, i := range ints {
		if flags.Changed(name) {
			*i.dst = i.val
		}
	}
	if flags.Changed("use-browser") {
		cfg.UseBrowser = f.useBrowser
	}
	if flags.Changed("allow-reapply") {
		cfg.AllowReapply = f.allowReapply
	}
	if flags.Changed("verbose") {
		cfg.Verbose = f.verbose
	}

	// Step 3: Apply defaults for unset values
	cfg = cfg.MergeWithDefaults(defaultConfig())

	// Step 4: Env fallbacks for secrets
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(apiKeyEnv(cfg.Provider))
	}
	if cfg.ApifyToken == "" {
		cfg.ApifyToken = os.Getenv("APIFY_API_TOKEN")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// apiKeyEnv names the env var holding the provider's API key
func apiKeyEnv(provider string) string {
	if llm.ParseProvider(provider) == llm.ProviderOpenAI {
		return "OPENAI_API_KEY"
	}
	return "GEMINI_API_KEY"
}

func newLogger(f *pipelineFlags, verbose bool) *zerolog.Logger {
	level := f.logLevel
	if level == "" {
		level = "warn"
		if verbose {
			level = "debug"
		}
	}
	return logging.New(logging.Options{Level: level})
}

// newLLMClient builds the provider client wrapped in a usage tracker
func newLLMClient(ctx context.Context, cfg config.Config) (*llm.UsageTracker, error) {
	provider := llm.ParseProvider(cfg.Provider)
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s environment variable or --api-key flag is required", apiKeyEnv(cfg.Provider))
	}

	llmCfg := llm.ConfigFor(provider)
	if cfg.Model != "" {
		llmCfg = llmCfg.WithAllModels(cfg.Model)
	}
	client, err := llm.NewClient(ctx, llmCfg, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return llm.NewUsageTracker(client, llm.NewTiktokenCounter()), nil
}

// newScraper picks the job source: a JSON file, a listing page or an Apify actor.
// client may be nil unless a listing URL is configured.
func newScraper(cfg config.Config, client llm.Client, logger *zerolog.Logger) (scraping.Scraper, error) {
	switch {
	case cfg.JobsFile != "":
		return scraping.NewFileScraper(cfg.JobsFile, logger), nil
	case cfg.ListingURL != "":
		if client == nil {
			return nil, fmt.Errorf("the listing page scraper needs an LLM client")
		}
		opts := fetch.DefaultOptions()
		opts.UseBrowser = cfg.UseBrowser
		opts.Logger = logger
		return scraping.NewPageScraper(client, cfg.ListingURL, opts, logger), nil
	default:
		if cfg.ApifyActor == "" {
			return nil, fmt.Errorf("no job source: set --apify-actor, --listing-url or --jobs-file")
		}
		if cfg.ApifyToken == "" {
			return nil, fmt.Errorf("APIFY_API_TOKEN environment variable is required for the Apify scraper")
		}
		return scraping.NewApifyScraper(scraping.ApifyConfig{
			Token:    cfg.ApifyToken,
			Actor:    cfg.ApifyActor,
			MaxItems: cfg.ApifyMaxItems,
		}, logger)
	}
}

// app is everything a pipeline run needs, built once per command
type app struct {
	cfg      config.Config
	profile  string
	pipeline *pipeline.Pipeline
	usage    *llm.UsageTracker
	database *db.DB
}

func (a *app) Close() {
	if a.database != nil {
		a.database.Close()
	}
	if a.usage != nil {
		_ = a.usage.Close()
	}
}

// newApp wires the pipeline from a resolved config
func newApp(ctx context.Context, cfg config.Config, logger *zerolog.Logger, out io.Writer) (*app, error) {
	if cfg.ProfilePath == "" {
		return nil, fmt.Errorf("--profile is required (via flag or config)")
	}
	profile, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, profile: profile}
	a.usage, err = newLLMClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	scraper, err := newScraper(cfg, a.usage, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	scorer := scoring.NewScorer(a.usage, scoring.Options{
		DesiredRate: cfg.DesiredRate,
		BatchSize:   cfg.BatchSize,
	}, logger)
	generator := generation.NewGenerator(a.usage, generation.Options{
		ApplicantName: cfg.ApplicantName,
		DesiredRate:   cfg.DesiredRate,
	}, logger)

	policy, err := pipeline.ParseFailurePolicy(cfg.FailurePolicy)
	if err != nil {
		a.Close()
		return nil, err
	}

	csvDir := cfg.CSVDir
	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithExporter(func(jobs []types.JobPosting, now time.Time) (string, error) {
			return sink.ExportCSV(csvDir, jobs, now)
		}),
		pipeline.WithProgress(progressReporter(out, cfg.Verbose, cfg.Threshold)),
	}

	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := database.EnsureSchema(ctx); err != nil {
			database.Close()
			a.Close()
			return nil, err
		}
		a.database = database
		opts = append(opts, pipeline.WithRecorder(database))
		if !cfg.AllowReapply {
			opts = append(opts, pipeline.WithAppliedFilter(database))
		}
	}

	a.pipeline, err = pipeline.New(pipeline.Config{
		Profile:        profile,
		Threshold:      cfg.Threshold,
		MaxTransitions: cfg.MaxTransitions,
		MaxMatches:     cfg.MaxMatches,
		FailurePolicy:  policy,
	}, scraper, scorer, generator, sink.NewAppendLog(cfg.OutputPath), opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// progressReporter prints a line per progress event, plus boxed details in verbose mode
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func progressReporter(out io.Writer, verbose bool, threshold int) pipeline.ProgressCallback {
	printer := observability.NewPrinter(out)
	return func(e pipeline.ProgressEvent) {
		fmt.Fprintf(out, "[%s] %s\n", e.Stage, e.Message)
		if !verbose {
			return
		}
		switch c := e.Content.(type) {
		case []types.JobPosting:
			printer.PrintScrapedJobs(c)
		case []types.ScoredJob:
			printer.PrintScoredJobs(c, threshold)
		case types.GeneratedContent:
			printer.PrintGeneratedContent(&c)
		}
	}
}
