package scraping

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRecords(t *testing.T) {
	records, err := DecodeRecords([]byte(`[{"title": "a"}, {"title": "b"}]`))
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = DecodeRecords([]byte(`{"jobs": [{"title": "a"}]}`))
	require.NoError(t, err)
	assert.Len(t, records, 1)

	records, err = DecodeRecords([]byte(`{"title": "single"}`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "single", records[0]["title"])

	_, err = DecodeRecords([]byte(`not json`))
	assert.Error(t, err)
}

func TestFileScraper(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"title": "Go API", "description": "d", "job_url": "https://example.com/1"},
		{"title": "dup", "description": "d", "job_url": "https://example.com/1"}
	]`), 0644))

	postings, err := NewFileScraper(path, nil).Scrape(context.Background(), "ignored")
	require.NoError(t, err)
	require.Len(t, postings, 1)
	assert.Equal(t, "Go API", postings[0].Title)

	_, err = NewFileScraper(filepath.Join(dir, "missing.json"), nil).Scrape(context.Background(), "q")
	assert.True(t, errors.Is(err, ErrScrapeFailure))
}
