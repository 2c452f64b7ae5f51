// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Run inputs
	Query       string `json:"query,omitempty" yaml:"query,omitempty"`               // Search query for the scraper
	ProfilePath string `json:"profile_path,omitempty" yaml:"profile_path,omitempty"` // Path to the freelancer profile text file

	// Applicant
	ApplicantName string `json:"applicant_name,omitempty" yaml:"applicant_name,omitempty"` // Name used in generated content
	DesiredRate   string `json:"desired_rate,omitempty" yaml:"desired_rate,omitempty"`     // Hourly rate in USD, e.g. "15"

	// Limits
	Threshold      int `json:"threshold,omitempty" yaml:"threshold,omitempty"`             // Minimum score for a match (1-10)
	MaxMatches     int `json:"max_matches,omitempty" yaml:"max_matches,omitempty"`         // Keep only the last N matches (0 = all)
	MaxTransitions int `json:"max_transitions,omitempty" yaml:"max_transitions,omitempty"` // Stage executions allowed per run
	BatchSize      int `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`           // Jobs per scoring call (0 = all)

	// Behavior
	FailurePolicy string `json:"failure_policy,omitempty" yaml:"failure_policy,omitempty"` // "skip" or "abort" on generation failure
	OutputPath    string `json:"output_path,omitempty" yaml:"output_path,omitempty"`       // Append log for generated content
	CSVDir        string `json:"csv_dir,omitempty" yaml:"csv_dir,omitempty"`               // Directory for scraped job exports
	UseBrowser    bool   `json:"use_browser,omitempty" yaml:"use_browser,omitempty"`       // Use headless browser for SPA listing pages
	Verbose       bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"`               // Print detailed debug information

	// LLM
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"` // "gemini" or "openai"
	Model    string `json:"model,omitempty" yaml:"model,omitempty"`       // Override for the standard tier model
	APIKey   string `json:"api_key,omitempty" yaml:"api_key,omitempty"`   // Provider API key

	// Scraper
	ApifyToken    string `json:"apify_token,omitempty" yaml:"apify_token,omitempty"`         // Apify API token
	ApifyActor    string `json:"apify_actor,omitempty" yaml:"apify_actor,omitempty"`         // Apify actor ID
	ApifyMaxItems int    `json:"apify_max_items,omitempty" yaml:"apify_max_items,omitempty"` // Result cap passed to the actor
	ListingURL    string `json:"listing_url,omitempty" yaml:"listing_url,omitempty"`         // Listing page template for the page scraper
	JobsFile      string `json:"jobs_file,omitempty" yaml:"jobs_file,omitempty"`             // Read postings from a JSON file instead

	// Infrastructure
	DatabaseURL  string `json:"database_url,omitempty" yaml:"database_url,omitempty"`   // PostgreSQL connection URL for run history
	AllowReapply bool   `json:"allow_reapply,omitempty" yaml:"allow_reapply,omitempty"` // Keep matches already applied to in earlier runs
	Schedule     string `json:"schedule,omitempty" yaml:"schedule,omitempty"`           // Cron spec for the schedule command
}

// LoadConfig loads configuration from a JSON or YAML file.
// The format is chosen by extension; anything other than .yaml/.yml is JSON.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.Threshold != 0 && (c.Threshold < 1 || c.Threshold > 10) {
		return fmt.Errorf("config error: 'threshold' must be between 1 and 10")
	}
	if c.MaxMatches < 0 {
		return fmt.Errorf("config error: 'max_matches' must be non-negative")
	}
	if c.MaxTransitions < 0 {
		return fmt.Errorf("config error: 'max_transitions' must be non-negative")
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("config error: 'batch_size' must be non-negative")
	}
	if c.ApifyMaxItems < 0 {
		return fmt.Errorf("config error: 'apify_max_items' must be non-negative")
	}

	switch c.FailurePolicy {
	case "", "skip", "abort":
	default:
		return fmt.Errorf("config error: 'failure_policy' must be 'skip' or 'abort', got %q", c.FailurePolicy)
	}
	switch c.Provider {
	case "", "gemini", "openai":
	default:
		return fmt.Errorf("config error: 'provider' must be 'gemini' or 'openai', got %q", c.Provider)
	}

	if c.JobsFile != "" && (c.ListingURL != "" || c.ApifyActor != "") {
		return fmt.Errorf("config error: 'jobs_file' is mutually exclusive with 'listing_url' and 'apify_actor'")
	}

	// Validate file paths exist (if specified)
	if c.ProfilePath != "" {
		if _, err := os.Stat(c.ProfilePath); os.IsNotExist(err) {
			return fmt.Errorf("config error: profile file not found: %s", c.ProfilePath)
		}
	}
	if c.JobsFile != "" {
		if _, err := os.Stat(c.JobsFile); os.IsNotExist(err) {
			return fmt.Errorf("config error: jobs file not found: %s", c.JobsFile)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	strs := []struct {
		dst *string
		def string
	}{
		{&result.Query, defaults.Query},
		{&result.ProfilePath, defaults.ProfilePath},
		{&result.ApplicantName, defaults.ApplicantName},
		{&result.DesiredRate, defaults.DesiredRate},
		{&result.FailurePolicy, defaults.FailurePolicy},
		{&result.OutputPath, defaults.OutputPath},
		{&result.CSVDir, defaults.CSVDir},
		{&result.Provider, defaults.Provider},
		{&result.Model, defaults.Model},
		{&result.APIKey, defaults.APIKey},
		{&result.ApifyToken, defaults.ApifyToken},
		{&result.ApifyActor, defaults.ApifyActor},
		{&result.ListingURL, defaults.ListingURL},
		{&result.JobsFile, defaults.JobsFile},
		{&result.DatabaseURL, defaults.DatabaseURL},
		{&result.Schedule, defaults.Schedule},
	}
	for _, s := range strs {
		if *s.dst == "" {
			*s.dst = s.def
		}
	}

	// Int fields: use default if zero
	ints := []struct {
		dst *int
		def int
	}{
		{&result.Threshold, defaults.Threshold},
		{&result.MaxMatches, defaults.MaxMatches},
		{&result.MaxTransitions, defaults.MaxTransitions},
		{&result.BatchSize, defaults.BatchSize},
		{&result.ApifyMaxItems, defaults.ApifyMaxItems},
	}
	for _, i := range ints {
		if *i.dst == 0 {
			*i.dst = i.def
		}
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// LoadProfile reads a profile text file, dropping blank lines and trimming
// surrounding whitespace from the rest. Lines are joined with newlines.
func LoadProfile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return "", fmt.Errorf("profile %s is empty", path)
	}
	return strings.Join(lines, "\n"), nil
}
