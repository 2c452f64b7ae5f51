package scraping

import (
	"errors"
	"fmt"
)

// ErrScrapeFailure matches every error returned by a Scraper
var ErrScrapeFailure = errors.New("scrape failure")

// ScrapeError represents a failure of the scraping collaborator
type ScrapeError struct {
	Query   string
	Message string
	Cause   error
}

func (e *ScrapeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("scrape %q failed: %s: %v", e.Query, e.Message, e.Cause)
	}
	return fmt.Sprintf("scrape %q failed: %s", e.Query, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Cause
}

// Is reports ErrScrapeFailure so callers can test with errors.Is.
func (e *ScrapeError) Is(target error) bool {
	return target == ErrScrapeFailure
}

// RecordError describes a raw record rejected at the boundary
type RecordError struct {
	Index   int
	Field   string
	Message string
}

func (e *RecordError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("record %d: invalid %s: %s", e.Index, e.Field, e.Message)
	}
	return fmt.Sprintf("record %d: %s", e.Index, e.Message)
}
