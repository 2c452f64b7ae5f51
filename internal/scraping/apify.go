package scraping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jonathan/freelance-applier/internal/logging"
	"github.com/jonathan/freelance-applier/internal/types"
)

const (
	// DefaultApifyBaseURL is the public Apify API
	DefaultApifyBaseURL = "https://api.apify.com"
	// DefaultMaxItems caps the dataset items requested per run
	DefaultMaxItems = 50
	// DefaultApifyTimeout bounds one synchronous actor run
	DefaultApifyTimeout = 5 * time.Minute
)

// ApifyConfig configures an ApifyScraper
type ApifyConfig struct {
	Token    string
	Actor    string // actor id, "username~actor-name"
	BaseURL  string
	MaxItems int
	Timeout  time.Duration
	// Input is merged into the actor input; "query" and "maxItems" are always set.
	Input map[string]any
}

// ApifyScraper runs an Apify actor synchronously and normalizes its dataset items.
type ApifyScraper struct {
	cfg    ApifyConfig
	client *http.Client
	log    *zerolog.Logger
}

var _ Scraper = (*ApifyScraper)(nil)

// NewApifyScraper creates a scraper. Token and actor are required.
func NewApifyScraper(cfg ApifyConfig, logger *zerolog.Logger) (*ApifyScraper, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("apify token is required")
	}
	if cfg.Actor == "" {
		return nil, fmt.Errorf("apify actor is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultApifyBaseURL
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = DefaultMaxItems
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultApifyTimeout
	}

	return &ApifyScraper{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    logging.OrNop(logger),
	}, nil
}

// Scrape runs the actor for query and returns the valid, deduplicated postings.
func (s *ApifyScraper) Scrape(ctx context.Context, query string) ([]types.JobPosting, error) {
	raw, err := s.runActor(ctx, query)
	if err != nil {
		return nil, err
	}

	postings := NormalizeRecords(raw, s.log)
	s.log.Info().
		Str("query", query).
		Int("records", len(raw)).
		Int("postings", len(postings)).
		Msg("apify scrape complete")
	return postings, nil
}

func (s *ApifyScraper) runActor(ctx context.Context, query string) ([]map[string]any, error) {
	input := make(map[string]any, len(s.cfg.Input)+2)
	for k, v := range s.cfg.Input {
		input[k] = v
	}
	input["query"] = query
	input["maxItems"] = s.cfg.MaxItems

	body, err := json.Marshal(input)
	if err != nil {
		return nil, &ScrapeError{Query: query, Message: "failed to encode actor input", Cause: err}
	}

	// the token travels in a header, never in the URL
	endpoint := fmt.Sprintf("%s/v2/acts/%s/run-sync-get-dataset-items",
		strings.TrimRight(s.cfg.BaseURL, "/"),
		url.PathEscape(s.cfg.Actor),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &ScrapeError{Query: query, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.Token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &ScrapeError{Query: query, Message: "actor request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ScrapeError{Query: query, Message: "failed to read actor response", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ScrapeError{
			Query:   query,
			Message: fmt.Sprintf("apify returned %d: %s", resp.StatusCode, truncate(string(payload), 200)),
		}
	}

	var items []map[string]any
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, &ScrapeError{Query: query, Message: "malformed dataset items", Cause: err}
	}
	return items, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return clip(s, n) + "..."
}
