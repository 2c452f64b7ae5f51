// Package scraping adapts external job sources into validated JobPostings.
package scraping

import (
	"context"
	"unicode/utf8"

	"github.com/jonathan/freelance-applier/internal/types"
)

// Scraper returns the postings matching a free-text search query.
// Zero postings is a valid result; failures are *ScrapeError.
type Scraper interface {
	Scrape(ctx context.Context, query string) ([]types.JobPosting, error)
}

// Func adapts a function to the Scraper interface
type Func func(ctx context.Context, query string) ([]types.JobPosting, error)

// Scrape implements Scraper
func (f Func) Scrape(ctx context.Context, query string) ([]types.JobPosting, error) {
	return f(ctx, query)
}

// clip cuts s to at most n bytes without splitting a UTF-8 sequence.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
