package scraping

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jonathan/freelance-applier/internal/fetch"
	"github.com/jonathan/freelance-applier/internal/llm"
	"github.com/jonathan/freelance-applier/internal/logging"
	"github.com/jonathan/freelance-applier/internal/prompts"
	"github.com/jonathan/freelance-applier/internal/schemas"
	"github.com/jonathan/freelance-applier/internal/types"
)

// MaxPageChars bounds the page text sent to the LLM
const MaxPageChars = 60000

// PageScraper fetches a marketplace search page and has the LLM extract the
// postings from its text.
type PageScraper struct {
	client     llm.Client
	listingURL string
	fetchOpts  *fetch.Options
	tier       llm.ModelTier
	log        *zerolog.Logger
}

var _ Scraper = (*PageScraper)(nil)

// NewPageScraper creates a page scraper. listingURL may contain "{query}",
// otherwise the query is sent as the q parameter.
func NewPageScraper(client llm.Client, listingURL string, opts *fetch.Options, logger *zerolog.Logger) *PageScraper {
	if opts == nil {
		opts = fetch.DefaultOptions()
	}
	return &PageScraper{
		client:     client,
		listingURL: listingURL,
		fetchOpts:  opts,
		tier:       llm.TierLite,
		log:        logging.OrNop(logger),
	}
}

// Scrape implements Scraper
func (s *PageScraper) Scrape(ctx context.Context, query string) ([]types.JobPosting, error) {
	pageURL, err := BuildListingURL(s.listingURL, query)
	if err != nil {
		return nil, &ScrapeError{Query: query, Message: "invalid listing URL", Cause: err}
	}

	page, err := fetch.ListingPage(ctx, pageURL, s.fetchOpts)
	if err != nil {
		return nil, &ScrapeError{Query: query, Message: "failed to fetch listing page", Cause: err}
	}
	s.log.Debug().Str("url", pageURL).Int("chars", len(page.Text)).Bool("rendered", page.Rendered).Msg("fetched listing page")

	if strings.TrimSpace(page.Text) == "" {
		return nil, nil
	}

	text := clip(page.Text, MaxPageChars)

	preamble, err := prompts.Get(prompts.ScrapingFile, prompts.KeyExtractJobs)
	if err != nil {
		return nil, &ScrapeError{Query: query, Message: "failed to load prompt", Cause: err}
	}
	prompt := llm.BuildExtractionPrompt(llm.JobPostingsSchema(preamble), text)

	resp, err := s.client.GenerateJSON(ctx, prompt, s.tier)
	if err != nil {
		return nil, &ScrapeError{Query: query, Message: "extraction call failed", Cause: err}
	}

	var extracted struct {
		Jobs []map[string]any `json:"jobs"`
	}
	if err := schemas.Decode(schemas.JobPostings, resp, &extracted); err != nil {
		return nil, &ScrapeError{Query: query, Message: "malformed extraction response", Cause: err}
	}

	postings := NormalizeRecords(extracted.Jobs, s.log)
	s.log.Info().
		Str("query", query).
		Int("records", len(extracted.Jobs)).
		Int("postings", len(postings)).
		Msg("page scrape complete")
	return postings, nil
}

// BuildListingURL substitutes query into the listing URL template.
func BuildListingURL(template, query string) (string, error) {
	if strings.Contains(template, "{query}") {
		return strings.ReplaceAll(template, "{query}", url.QueryEscape(query)), nil
	}

	u, err := url.Parse(template)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("listing URL %q must be absolute", template)
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
