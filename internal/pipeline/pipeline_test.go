package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/freelance-applier/internal/scraping"
	"github.com/jonathan/freelance-applier/internal/types"
)

func job(name string) types.JobPosting {
	return types.JobPosting{
		Title:          "Job " + name,
		Description:    "Build " + name,
		SkillsRequired: []string{"Go"},
		SourceURL:      "https://example.com/jobs/" + name,
	}
}

func staticScraper(jobs ...types.JobPosting) scraping.Scraper {
	return scraping.Func(func(_ context.Context, _ string) ([]types.JobPosting, error) {
		return jobs, nil
	})
}

// fakeScorer assigns scores by job URL
type fakeScorer struct {
	scores  map[string]int
	err     error
	calls   int
	profile string
}

func (f *fakeScorer) Score(_ context.Context, postings []types.JobPosting, profile string) ([]types.ScoredJob, error) {
	f.calls++
	f.profile = profile
	if f.err != nil {
		return nil, f.err
	}
	out := make([]types.ScoredJob, 0, len(postings))
	for _, p := range postings {
		out = append(out, types.ScoredJob{JobPosting: p, Score: f.scores[p.SourceURL]})
	}
	return out, nil
}

// fakeGenerator returns "<kind> for <title>" unless FailFor names the job
type fakeGenerator struct {
	mu      sync.Mutex
	failFor map[string]bool
	calls   []string
}

func (f *fakeGenerator) Generate(_ context.Context, kind types.DocumentKind, posting types.JobPosting, _ string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, string(kind)+":"+posting.Title)
	f.mu.Unlock()
	if f.failFor[posting.Title] && kind == types.KindCoverLetter {
		return "", errors.New("llm unavailable")
	}
	return fmt.Sprintf("%s for %s", kind, posting.Title), nil
}

type fakeSink struct {
	mu       sync.Mutex
	contents []types.GeneratedContent
	err      error
}

func (f *fakeSink) Append(_ context.Context, c types.GeneratedContent) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contents = append(f.contents, c)
	return nil
}

func (f *fakeSink) titles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.contents))
	for _, c := range f.contents {
		out = append(out, c.Job.Title)
	}
	return out
}

type fakeRecorder struct {
	started      []string
	applications []string
	summary      *types.RunSummary
	err          error
}

func (f *fakeRecorder) StartRun(_ context.Context, _ uuid.UUID, query string) error {
	f.started = append(f.started, query)
	return f.err
}

func (f *fakeRecorder) RecordApplication(_ context.Context, _ uuid.UUID, job types.ScoredJob, _ types.GeneratedContent) error {
	f.applications = append(f.applications, job.Title)
	return f.err
}

func (f *fakeRecorder) CompleteRun(_ context.Context, _ uuid.UUID, summary types.RunSummary) error {
	f.summary = &summary
	return f.err
}

// fakeApplied reports the URLs in applied as already applied to
type fakeApplied struct {
	applied map[string]bool
	err     error
	checked []string
}

func (f *fakeApplied) HasApplied(_ context.Context, jobURL string) (bool, error) {
	f.checked = append(f.checked, jobURL)
	return f.applied[jobURL], f.err
}

func titles(jobs []types.ScoredJob) []string {
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Title)
	}
	return out
}

func newTestPipeline(t *testing.T, cfg Config, scraper scraping.Scraper, scorer Scorer, gen Generator, out *fakeSink, opts ...Option) *Pipeline {
	t.Helper()
	p, err := New(cfg, scraper, scorer, gen, out, opts...)
	require.NoError(t, err)
	return p
}

func TestRun_EmptyScrapeFinishesWithoutScoring(t *testing.T) {
	scorer := &fakeScorer{}
	out := &fakeSink{}
	p := newTestPipeline(t, Config{}, staticScraper(), scorer, &fakeGenerator{}, out)

	state, err := p.Run(context.Background(), "golang", "profile")
	require.NoError(t, err)

	assert.Equal(t, StageDone, state.Stage)
	assert.Equal(t, 0, scorer.calls)
	assert.Empty(t, out.contents)
	assert.Equal(t, 0, state.NumMatches)
}

func TestRun_ProcessesMatchesLastFirst(t *testing.T) {
	j0, j1, j2 := job("0"), job("1"), job("2")
	scorer := &fakeScorer{scores: map[string]int{j0.SourceURL: 9, j1.SourceURL: 5, j2.SourceURL: 8}}
	out := &fakeSink{}
	p := newTestPipeline(t, Config{}, staticScraper(j0, j1, j2), scorer, &fakeGenerator{}, out)

	state, err := p.Run(context.Background(), "golang", "profile")
	require.NoError(t, err)

	assert.Equal(t, StageDone, state.Stage)
	assert.Equal(t, []string{"Job 2", "Job 0"}, out.titles())
	assert.Equal(t, []string{"Job 2", "Job 0"}, titles(state.Persisted))
	assert.Empty(t, state.Matches)
	assert.Nil(t, state.Current)
	assert.Equal(t, 2, state.NumMatches)
	assert.Len(t, state.Scored, 3)

	first := out.contents[0]
	assert.Equal(t, "cover_letter for Job 2", first.CoverLetter)
	assert.Equal(t, "intro_message for Job 2", first.IntroMessage)
	assert.Equal(t, j2.Description, first.Job.Description)
}

func TestRun_LIFOOrderForThreeMatches(t *testing.T) {
	a, b, c := job("A"), job("B"), job("C")
	scorer := &fakeScorer{scores: map[string]int{a.SourceURL: 7, b.SourceURL: 10, c.SourceURL: 8}}
	out := &fakeSink{}
	p := newTestPipeline(t, Config{}, staticScraper(a, b, c), scorer, &fakeGenerator{}, out)

	_, err := p.Run(context.Background(), "q", "profile")
	require.NoError(t, err)
	assert.Equal(t, []string{"Job C", "Job B", "Job A"}, out.titles())
}

func TestRun_ThresholdIsInclusive(t *testing.T) {
	a, b := job("A"), job("B")
	scorer := &fakeScorer{scores: map[string]int{a.SourceURL: 7, b.SourceURL: 6}}
	out := &fakeSink{}
	p := newTestPipeline(t, Config{}, staticScraper(a, b), scorer, &fakeGenerator{}, out)

	state, err := p.Run(context.Background(), "q", "profile")
	require.NoError(t, err)
	assert.Equal(t, []string{"Job A"}, out.titles())
	assert.Equal(t, 1, state.NumMatches)
}

func TestRun_GenerationFailureSkipsJob(t *testing.T) {
	a, b, c := job("A"), job("B"), job("C")
	scorer := &fakeScorer{scores: map[string]int{a.SourceURL: 8, b.SourceURL: 8, c.SourceURL: 8}}
	gen := &fakeGenerator{failFor: map[string]bool{"Job B": true}}
	out := &fakeSink{}
	p := newTestPipeline(t, Config{}, staticScraper(a, b, c), scorer, gen, out)

	state, err := p.Run(context.Background(), "q", "profile")
	require.NoError(t, err)

	assert.Equal(t, StageDone, state.Stage)
	assert.Equal(t, []string{"Job C", "Job A"}, out.titles())
	require.Len(t, state.Skipped, 1)
	assert.Equal(t, "Job B", state.Skipped[0].Job.Title)
	assert.Contains(t, state.Skipped[0].Reason, "llm unavailable")
	assert.Empty(t, state.Matches)
}

func TestRun_GenerationFailureAbortsUnderAbortPolicy(t *testing.T) {
	a, b, c := job("A"), job("B"), job("C")
	scorer := &fakeScorer{scores: map[string]int{a.SourceURL: 8, b.SourceURL: 8, c.SourceURL: 8}}
	gen := &fakeGenerator{failFor: map[string]bool{"Job B": true}}
	out := &fakeSink{}
	p := newTestPipeline(t, Config{FailurePolicy: PolicyAbort}, staticScraper(a, b, c), scorer, gen, out)

	state, err := p.Run(context.Background(), "q", "profile")
	require.Error(t, err)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageGenerate, stageErr.Stage)
	assert.Equal(t, b.SourceURL, stageErr.JobURL)

	assert.Equal(t, StageAborted, state.Stage)
	assert.Equal(t, []string{"Job C"}, out.titles())
	assert.Equal(t, []string{"Job A", "Job B"}, titles(state.Matches))
	assert.Empty(t, state.Skipped)
}

func TestRun_SinkFailureKeepsQueue(t *testing.T) {
	a, b := job("A"), job("B")
	scorer := &fakeScorer{scores: map[string]int{a.SourceURL: 9, b.SourceURL: 9}}
	out := &fakeSink{err: errors.New("disk full")}
	p := newTestPipeline(t, Config{}, staticScraper(a, b), scorer, &fakeGenerator{}, out)

	state, err := p.Run(context.Background(), "q", "profile")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StagePersist, stageErr.Stage)
	assert.Equal(t, StageAborted, state.Stage)
	assert.Equal(t, []string{"Job A", "Job B"}, titles(state.Matches))
	assert.Empty(t, state.Persisted)
}

func TestRun_ScrapeFailureAborts(t *testing.T) {
	scraper := scraping.Func(func(_ context.Context, query string) ([]types.JobPosting, error) {
		return nil, &scraping.ScrapeError{Query: query, Message: "upstream down"}
	})
	scorer := &fakeScorer{}
	p := newTestPipeline(t, Config{}, scraper, scorer, &fakeGenerator{}, &fakeSink{})

	state, err := p.Run(context.Background(), "q", "profile")
	require.Error(t, err)
	assert.True(t, errors.Is(err, scraping.ErrScrapeFailure))
	assert.Equal(t, StageAborted, state.Stage)
	assert.Equal(t, 0, scorer.calls)
}

func TestRun_ScoringFailureAborts(t *testing.T) {
	scorer := &fakeScorer{err: errors.New("all batches failed")}
	out := &fakeSink{}
	p := newTestPipeline(t, Config{}, staticScraper(job("A")), scorer, &fakeGenerator{}, out)

	state, err := p.Run(context.Background(), "q", "profile")
	require.Error(t, err)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageScore, stageErr.Stage)
	assert.Equal(t, StageAborted, state.Stage)
	assert.Empty(t, out.contents)
}

func TestRun_TransitionCeiling(t *testing.T) {
	a := job("A")
	scorer := &fakeScorer{scores: map[string]int{a.SourceURL: 9}}
	out := &fakeSink{}
	p := newTestPipeline(t, Config{MaxTransitions: 3}, staticScraper(a), scorer, &fakeGenerator{}, out)

	state, err := p.Run(context.Background(), "q", "profile")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPipelineOverrun))
	assert.Equal(t, StageAborted, state.Stage)
	assert.Equal(t, 3, state.Transitions)
	assert.Empty(t, out.contents)
}

func TestRun_TransitionCountForFullRun(t *testing.T) {
	a, b := job("A"), job("B")
	scorer := &fakeScorer{scores: map[string]int{a.SourceURL: 9, b.SourceURL: 9}}
	p := newTestPipeline(t, Config{}, staticScraper(a, b), scorer, &fakeGenerator{}, &fakeSink{})

	state, err := p.Run(context.Background(), "q", "profile")
	require.NoError(t, err)
	// scrape, score, then check+generate+persist per match, then the final check
	assert.Equal(t, 2+3*2+1, state.Transitions)
}

func TestRun_MaxMatchesKeepsLastMatches(t *testing.T) {
	a, b, c := job("A"), job("B"), job("C")
	scorer := &fakeScorer{scores: map[string]int{a.SourceURL: 9, b.SourceURL: 9, c.SourceURL: 9}}
	out := &fakeSink{}
	p := newTestPipeline(t, Config{MaxMatches: 2}, staticScraper(a, b, c), scorer, &fakeGenerator{}, out)

	state, err := p.Run(context.Background(), "q", "profile")
	require.NoError(t, err)
	assert.Equal(t, 2, state.NumMatches)
	assert.Equal(t, []string{"Job C", "Job B"}, out.titles())
}

func TestRun_CancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPipeline(t, Config{}, staticScraper(job("A")), &fakeScorer{}, &fakeGenerator{}, &fakeSink{})
	state, err := p.Run(ctx, "q", "profile")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, StageAborted, state.Stage)
	assert.Equal(t, 0, state.Transitions)
}

func TestRun_EmptyProfileFallsBackToConfig(t *testing.T) {
	a := job("A")
	scorer := &fakeScorer{scores: map[string]int{a.SourceURL: 3}}
	p := newTestPipeline(t, Config{Profile: "configured profile"}, staticScraper(a), scorer, &fakeGenerator{}, &fakeSink{})

	_, err := p.Run(context.Background(), "q", "")
	require.NoError(t, err)
	assert.Equal(t, "configured profile", scorer.profile)
}

func TestRun_RecorderReceivesHistory(t *testing.T) {
	a, b := job("A"), job("B")
	scorer := &fakeScorer{scores: map[string]int{a.SourceURL: 9, b.SourceURL: 2}}
	rec := &fakeRecorder{}
	p := newTestPipeline(t, Config{}, staticScraper(a, b), scorer, &fakeGenerator{}, &fakeSink{}, WithRecorder(rec))

	_, err := p.Run(context.Background(), "golang", "profile")
	require.NoError(t, err)

	assert.Equal(t, []string{"golang"}, rec.started)
	assert.Equal(t, []string{"Job A"}, rec.applications)
	require.NotNil(t, rec.summary)
	assert.Equal(t, types.RunStatusCompleted, rec.summary.Status)
	assert.Equal(t, 2, rec.summary.Scraped)
	assert.Equal(t, 1, rec.summary.Matches)
	assert.Equal(t, 1, rec.summary.Persisted)
	assert.False(t, rec.summary.CompletedAt.IsZero())
}

func TestRun_RecorderErrorsDoNotFailRun(t *testing.T) {
	a := job("A")
	scorer := &fakeScorer{scores: map[string]int{a.SourceURL: 9}}
	rec := &fakeRecorder{err: errors.New("db down")}
	out := &fakeSink{}
	p := newTestPipeline(t, Config{}, staticScraper(a), scorer, &fakeGenerator{}, out, WithRecorder(rec))

	state, err := p.Run(context.Background(), "q", "profile")
	require.NoError(t, err)
	assert.Equal(t, StageDone, state.Stage)
	assert.Len(t, out.contents, 1)
}

func TestRun_RecorderSeesAbortedRun(t *testing.T) {
	scorer := &fakeScorer{err: errors.New("boom")}
	rec := &fakeRecorder{}
	p := newTestPipeline(t, Config{}, staticScraper(job("A")), scorer, &fakeGenerator{}, &fakeSink{}, WithRecorder(rec))

	_, err := p.Run(context.Background(), "q", "profile")
	require.Error(t, err)
	require.NotNil(t, rec.summary)
	assert.Equal(t, types.RunStatusAborted, rec.summary.Status)
	assert.Contains(t, rec.summary.Error, "boom")
}

func TestRun_ExporterFailureIsNotFatal(t *testing.T) {
	a := job("A")
	scorer := &fakeScorer{scores: map[string]int{a.SourceURL: 9}}
	exported := 0
	exporter := func(jobs []types.JobPosting, _ time.Time) (string, error) {
		exported += len(jobs)
		return "", errors.New("read-only filesystem")
	}
	out := &fakeSink{}
	p := newTestPipeline(t, Config{}, staticScraper(a), scorer, &fakeGenerator{}, out, WithExporter(exporter))

	state, err := p.Run(context.Background(), "q", "profile")
	require.NoError(t, err)
	assert.Equal(t, 1, exported)
	assert.Equal(t, StageDone, state.Stage)
	assert.Len(t, out.contents, 1)
}

func TestRun_ContentCarriesClockTime(t *testing.T) {
	a := job("A")
	scorer := &fakeScorer{scores: map[string]int{a.SourceURL: 9}}
	fixed := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	out := &fakeSink{}
	p := newTestPipeline(t, Config{}, staticScraper(a), scorer, &fakeGenerator{}, out, WithClock(func() time.Time { return fixed }))

	_, err := p.Run(context.Background(), "q", "profile")
	require.NoError(t, err)
	require.Len(t, out.contents, 1)
	assert.Equal(t, fixed, out.contents[0].GeneratedAt)
}

func TestRun_ProgressEvents(t *testing.T) {
	a := job("A")
	scorer := &fakeScorer{scores: map[string]int{a.SourceURL: 9}}
	var stages []Stage
	p := newTestPipeline(t, Config{}, staticScraper(a), scorer, &fakeGenerator{}, &fakeSink{},
		WithProgress(func(e ProgressEvent) { stages = append(stages, e.Stage) }))

	state, err := p.Run(context.Background(), "q", "profile")
	require.NoError(t, err)
	require.NotEmpty(t, stages)
	assert.Equal(t, StageScrape, stages[0])
	assert.Equal(t, StageDone, stages[len(stages)-1])
	assert.Contains(t, stages, StageGenerate)
	assert.Contains(t, stages, StagePersist)
	assert.NotEqual(t, uuid.Nil, state.RunID)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := New(Config{Threshold: 11}, staticScraper(), &fakeScorer{}, &fakeGenerator{}, &fakeSink{})
	require.Error(t, err)

	_, err = New(Config{}, nil, &fakeScorer{}, &fakeGenerator{}, &fakeSink{})
	require.Error(t, err)
}

func TestConfig_Defaults(t *testing.T) {
	p := newTestPipeline(t, Config{}, staticScraper(), &fakeScorer{}, &fakeGenerator{}, &fakeSink{})
	cfg := p.Config()
	assert.Equal(t, 7, cfg.Threshold)
	assert.Equal(t, DefaultMaxTransitions, cfg.MaxTransitions)
	assert.Equal(t, PolicySkip, cfg.FailurePolicy)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"threshold too low", Config{Threshold: 0, MaxTransitions: 10, FailurePolicy: PolicySkip}, true},
		{"threshold at max", Config{Threshold: 10, MaxTransitions: 10, FailurePolicy: PolicySkip}, false},
		{"no transitions", Config{Threshold: 7, MaxTransitions: 0, FailurePolicy: PolicySkip}, true},
		{"negative max matches", Config{Threshold: 7, MaxTransitions: 10, MaxMatches: -1}, true},
		{"bad policy", Config{Threshold: 7, MaxTransitions: 10, FailurePolicy: "retry"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseFailurePolicy(t *testing.T) {
	p, err := ParseFailurePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicySkip, p)

	p, err = ParseFailurePolicy("abort")
	require.NoError(t, err)
	assert.Equal(t, PolicyAbort, p)

	_, err = ParseFailurePolicy("never")
	assert.Error(t, err)
}

func TestStateSummary(t *testing.T) {
	s := &State{Stage: StageScore, Scraped: []types.JobPosting{job("A")}}
	assert.Equal(t, types.RunStatusRunning, s.Summary().Status)
	s.Stage = StageDone
	assert.Equal(t, types.RunStatusCompleted, s.Summary().Status)
}

func TestRun_AppliedFilterSkipsEarlierApplications(t *testing.T) {
	a, b, c := job("A"), job("B"), job("C")
	scorer := &fakeScorer{scores: map[string]int{a.SourceURL: 8, b.SourceURL: 9, c.SourceURL: 4}}
	applied := &fakeApplied{applied: map[string]bool{b.SourceURL: true}}
	out := &fakeSink{}
	p := newTestPipeline(t, Config{}, staticScraper(a, b, c), scorer, &fakeGenerator{}, out, WithAppliedFilter(applied))

	state, err := p.Run(context.Background(), "q", "profile")
	require.NoError(t, err)

	assert.Equal(t, StageDone, state.Stage)
	assert.Equal(t, []string{"Job A"}, out.titles())
	assert.Equal(t, []string{a.SourceURL, b.SourceURL}, applied.checked, "only matches are looked up")
	require.Len(t, state.Skipped, 1)
	assert.Equal(t, "Job B", state.Skipped[0].Job.Title)
	assert.Equal(t, ReasonAlreadyApplied, state.Skipped[0].Reason)
	assert.Equal(t, 1, state.NumMatches)
}

func TestRun_AppliedFilterErrorKeepsJob(t *testing.T) {
	a := job("A")
	scorer := &fakeScorer{scores: map[string]int{a.SourceURL: 8}}
	applied := &fakeApplied{err: errors.New("connection refused")}
	out := &fakeSink{}
	p := newTestPipeline(t, Config{}, staticScraper(a), scorer, &fakeGenerator{}, out, WithAppliedFilter(applied))

	state, err := p.Run(context.Background(), "q", "profile")
	require.NoError(t, err)
	assert.Equal(t, []string{"Job A"}, out.titles())
	assert.Empty(t, state.Skipped)
}
