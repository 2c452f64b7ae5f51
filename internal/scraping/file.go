package scraping

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jonathan/freelance-applier/internal/logging"
	"github.com/jonathan/freelance-applier/internal/types"
)

// FileScraper reads raw records from a JSON file instead of a live source,
// for replaying an exported dataset. The query is ignored.
type FileScraper struct {
	Path string
	log  *zerolog.Logger
}

var _ Scraper = (*FileScraper)(nil)

// NewFileScraper creates a FileScraper for path
func NewFileScraper(path string, logger *zerolog.Logger) *FileScraper {
	return &FileScraper{Path: path, log: logging.OrNop(logger)}
}

// Scrape implements Scraper
func (s *FileScraper) Scrape(_ context.Context, query string) ([]types.JobPosting, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, &ScrapeError{Query: query, Message: "failed to read jobs file", Cause: err}
	}

	records, err := DecodeRecords(data)
	if err != nil {
		return nil, &ScrapeError{Query: query, Message: "malformed jobs file", Cause: err}
	}
	return NormalizeRecords(records, s.log), nil
}

// DecodeRecords accepts either a JSON array of records or an object holding
// the array under "jobs". A single object without "jobs" is one record.
func DecodeRecords(data []byte) ([]map[string]any, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var records []map[string]any
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, err
		}
		return records, nil
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	jobs, ok := obj["jobs"].([]any)
	if !ok {
		return []map[string]any{obj}, nil
	}
	records := make([]map[string]any, 0, len(jobs))
	for _, j := range jobs {
		if m, ok := j.(map[string]any); ok {
			records = append(records, m)
		}
	}
	return records, nil
}
