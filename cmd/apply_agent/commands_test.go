package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/freelance-applier/internal/db"
	"github.com/jonathan/freelance-applier/internal/schemas"
	"github.com/jonathan/freelance-applier/internal/sink"
	"github.com/jonathan/freelance-applier/internal/types"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseKind(t *testing.T) {
	k, err := parseKind("cover-letter")
	require.NoError(t, err)
	assert.Equal(t, types.KindCoverLetter, k)

	k, err = parseKind(" Intro_Message ")
	require.NoError(t, err)
	assert.Equal(t, types.KindIntroMessage, k)

	k, err = parseKind("call_script")
	require.NoError(t, err)
	assert.Equal(t, types.KindCallScript, k)

	_, err = parseKind("resume")
	assert.Error(t, err)
}

func TestLoadJob(t *testing.T) {
	path := writeTemp(t, "job.json", `{
		"title": "Build a scraper",
		"description": "Scrape listings daily",
		"job_type": "Hourly",
		"skills_required": ["Go", "Colly"],
		"job_url": "https://www.upwork.com/jobs/~01"
	}`)

	job, err := loadJob(path)
	require.NoError(t, err)
	assert.Equal(t, "Build a scraper", job.Title)
	assert.Equal(t, types.JobTypeHourly, job.JobType)
	assert.Equal(t, []string{"Go", "Colly"}, job.SkillsRequired)
}

func TestLoadJob_Errors(t *testing.T) {
	_, err := loadJob("/nonexistent/job.json")
	assert.Error(t, err)

	_, err = loadJob(writeTemp(t, "two.json", `[{"title":"a"},{"title":"b"}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one job")

	_, err = loadJob(writeTemp(t, "invalid.json", `{"title": "no url", "description": "x"}`))
	assert.Error(t, err)
}

func TestPrintFileHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cover_letter.txt")
	at := time.Date(2024, 3, 2, 9, 15, 0, 0, time.Local)

	log := sink.NewAppendLog(path)
	for _, title := range []string{"First", "Second"} {
		require.NoError(t, log.Append(context.Background(), types.GeneratedContent{
			Job:          types.JobPosting{Title: title, Description: title + " job description\nmore detail"},
			CoverLetter:  "Dear client",
			IntroMessage: "Hi",
			GeneratedAt:  at,
		}))
	}

	var buf bytes.Buffer
	require.NoError(t, printFileHistory(&buf, path, 1))
	output := buf.String()

	assert.Contains(t, output, "2 applications in "+path)
	assert.Contains(t, output, "2024-03-02 09:15:00  Second job description")
	assert.NotContains(t, output, "First job description")
	assert.NotContains(t, output, "more detail")
}

func TestPrintFileHistory_MissingFile(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printFileHistory(&buf, filepath.Join(t.TempDir(), "none.txt"), 10))
	assert.Contains(t, buf.String(), "No applications yet")
}

// fakeHistory serves runs and applications from memory
type fakeHistory struct {
	runs []db.Run
	apps map[uuid.UUID][]db.Application
	err  error
}

func (f *fakeHistory) ListRuns(_ context.Context, limit int) ([]db.Run, error) {
	if limit > 0 && len(f.runs) > limit {
		return f.runs[:limit], f.err
	}
	return f.runs, f.err
}

func (f *fakeHistory) GetRun(_ context.Context, runID uuid.UUID) (*db.Run, error) {
	for i := range f.runs {
		if f.runs[i].ID == runID {
			return &f.runs[i], f.err
		}
	}
	return nil, f.err
}

func (f *fakeHistory) ListApplications(_ context.Context, runID uuid.UUID) ([]db.Application, error) {
	return f.apps[runID], f.err
}

func TestPrintRuns(t *testing.T) {
	id := uuid.New()
	store := &fakeHistory{runs: []db.Run{{
		ID: id, Query: "AI agent", Status: "completed", Scraped: 12, Matches: 3, Persisted: 2, Skipped: 1,
		CreatedAt: time.Date(2024, 3, 2, 9, 15, 0, 0, time.Local),
	}}}

	var buf bytes.Buffer
	require.NoError(t, printRuns(context.Background(), &buf, store, 10))
	output := buf.String()
	assert.Contains(t, output, id.String())
	assert.Contains(t, output, "scraped=12 matches=3 persisted=2 skipped=1")
}

func TestPrintRunDetail(t *testing.T) {
	id := uuid.New()
	reason := "generation: llm unavailable"
	store := &fakeHistory{
		runs: []db.Run{{ID: id, Query: "AI agent", Status: "aborted", Matches: 2, Persisted: 1, Error: &reason}},
		apps: map[uuid.UUID][]db.Application{id: {{
			RunID: id, JobURL: "https://example.com/jobs/1", Title: "Chatbot build", Score: 9,
			IntroMessage: "Hi, I have built three chatbots\nSecond line",
		}}},
	}

	var buf bytes.Buffer
	require.NoError(t, printRunDetail(context.Background(), &buf, store, id))
	output := buf.String()

	assert.Contains(t, output, "Run "+id.String()+" (aborted)")
	assert.Contains(t, output, "Error:     "+reason)
	assert.Contains(t, output, "1 applications:")
	assert.Contains(t, output, " 9  Chatbot build  https://example.com/jobs/1")
	assert.Contains(t, output, "Hi, I have built three chatbots")
	assert.NotContains(t, output, "Second line")
}

func TestPrintRunDetail_Errors(t *testing.T) {
	err := printRunDetail(context.Background(), &bytes.Buffer{}, &fakeHistory{}, uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	id := uuid.New()
	failing := &fakeHistory{runs: []db.Run{{ID: id}}, err: errors.New("connection reset")}
	assert.Error(t, printRunDetail(context.Background(), &bytes.Buffer{}, failing, id))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "one", firstLine("one\ntwo", 10))
	assert.Equal(t, "abcdefg...", firstLine("abcdefghijklmnop", 10))
}

func TestValidateAgainst(t *testing.T) {
	valid := writeTemp(t, "letter.json", `{"letter": "Dear client"}`)
	invalid := writeTemp(t, "empty.json", `{"letter": ""}`)

	assert.NoError(t, validateAgainst(schemas.CoverLetter, valid))

	err := validateAgainst(schemas.CoverLetter, invalid)
	var validationErr *schemas.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	schemaPath := writeTemp(t, "custom.schema.json", `{"type": "object", "required": ["letter"]}`)
	assert.NoError(t, validateAgainst(schemaPath, valid))
	assert.Error(t, validateAgainst(schemaPath, writeTemp(t, "other.json", `{"script": "x"}`)))
}
