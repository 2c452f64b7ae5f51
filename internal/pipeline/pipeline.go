// Package pipeline drives one application run: scrape, score, then draft and
// persist content for every match, last match first.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jonathan/freelance-applier/internal/logging"
	"github.com/jonathan/freelance-applier/internal/scraping"
	"github.com/jonathan/freelance-applier/internal/sink"
	"github.com/jonathan/freelance-applier/internal/types"
)

// Scorer scores postings against a profile
type Scorer interface {
	Score(ctx context.Context, postings []types.JobPosting, profile string) ([]types.ScoredJob, error)
}

// Generator drafts one document for a posting
type Generator interface {
	Generate(ctx context.Context, kind types.DocumentKind, posting types.JobPosting, profile string) (string, error)
}

// Recorder receives run history. Its errors are logged and never fail a run.
type Recorder interface {
	StartRun(ctx context.Context, runID uuid.UUID, query string) error
	RecordApplication(ctx context.Context, runID uuid.UUID, job types.ScoredJob, content types.GeneratedContent) error
	CompleteRun(ctx context.Context, runID uuid.UUID, summary types.RunSummary) error
}

// AppliedChecker reports whether content was persisted for a job in an
// earlier run.
type AppliedChecker interface {
	HasApplied(ctx context.Context, jobURL string) (bool, error)
}

// Exporter writes the scraped postings somewhere outside the run, e.g. a CSV file.
// It returns a description of where they went.
type Exporter func(jobs []types.JobPosting, now time.Time) (string, error)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Stage   Stage     `json:"stage"`
	Message string    `json:"message"`
	RunID   uuid.UUID `json:"run_id"`
	Content any       `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Pipeline runs the fixed scrape → score → check → generate → persist loop.
type Pipeline struct {
	cfg        Config
	scraper    scraping.Scraper
	scorer     Scorer
	generator  Generator
	sink       sink.Sink
	recorder   Recorder
	applied    AppliedChecker
	exporter   Exporter
	onProgress ProgressCallback
	log        *zerolog.Logger
	now        func() time.Time
}

// Option configures optional collaborators of a Pipeline
type Option func(*Pipeline)

// WithRecorder sets the run history recorder
func WithRecorder(r Recorder) Option { return func(p *Pipeline) { p.recorder = r } }

// WithAppliedFilter skips matches that c reports as already applied to.
func WithAppliedFilter(c AppliedChecker) Option { return func(p *Pipeline) { p.applied = c } }

// WithExporter sets the exporter called after a successful scrape
func WithExporter(e Exporter) Option { return func(p *Pipeline) { p.exporter = e } }

// WithProgress sets the progress callback
func WithProgress(cb ProgressCallback) Option { return func(p *Pipeline) { p.onProgress = cb } }

// WithLogger sets the logger
func WithLogger(l *zerolog.Logger) Option { return func(p *Pipeline) { p.log = logging.OrNop(l) } }

// WithClock sets the clock stamped on generated content
func WithClock(now func() time.Time) Option { return func(p *Pipeline) { p.now = now } }

// New creates a Pipeline. Zero config values take their defaults.
func New(cfg Config, scraper scraping.Scraper, scorer Scorer, generator Generator, out sink.Sink, opts ...Option) (*Pipeline, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	if scraper == nil || scorer == nil || generator == nil || out == nil {
		return nil, errors.New("scraper, scorer, generator and sink are required")
	}

	p := &Pipeline{
		cfg:       cfg,
		scraper:   scraper,
		scorer:    scorer,
		generator: generator,
		sink:      out,
		log:       logging.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the effective configuration
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Run executes one run for query. An empty profile falls back to Config.Profile.
// The returned state is never nil; on error its stage is StageAborted.
func (p *Pipeline) Run(ctx context.Context, query, profile string) (*State, error) {
	if profile == "" {
		profile = p.cfg.Profile
	}

	state := &State{
		RunID: uuid.New(),
		Query: query,
		Stage: StageScrape,
	}
	log := logging.WithRun(p.log, state.RunID.String(), query)
	r := &run{p: p, state: state, profile: profile, log: log}

	if p.recorder != nil {
		if err := p.recorder.StartRun(ctx, state.RunID, query); err != nil {
			log.Warn().Err(err).Msg("run history: failed to record start")
		}
	}

	err := r.loop(ctx)

	if p.recorder != nil {
		summary := state.Summary()
		summary.CompletedAt = p.now()
		if err != nil {
			summary.Error = err.Error()
		}
		// the run context may already be cancelled
		if recErr := p.recorder.CompleteRun(context.WithoutCancel(ctx), state.RunID, summary); recErr != nil {
			log.Warn().Err(recErr).Msg("run history: failed to record completion")
		}
	}

	if err != nil {
		log.Error().Err(err).Int("transitions", state.Transitions).Msg("run aborted")
		r.emit(StageAborted, err.Error(), nil)
		return state, err
	}

	log.Info().
		Int("scraped", len(state.Scraped)).
		Int("matches", state.NumMatches).
		Int("persisted", len(state.Persisted)).
		Int("skipped", len(state.Skipped)).
		Msg("run complete")
	r.emit(StageDone, fmt.Sprintf("Run complete: %d persisted, %d skipped", len(state.Persisted), len(state.Skipped)), state.Summary())
	return state, nil
}

// run holds the per-run values shared by the stage handlers
type run struct {
	p       *Pipeline
	state   *State
	profile string
	log     *zerolog.Logger
}

func (r *run) emit(stage Stage, message string, content any) {
	if r.p.onProgress != nil {
		r.p.onProgress(ProgressEvent{Stage: stage, Message: message, RunID: r.state.RunID, Content: content})
	}
}

// loop executes stages until a terminal one is reached
func (r *run) loop(ctx context.Context) error {
	for !r.state.Stage.Terminal() {
		if err := ctx.Err(); err != nil {
			stage := r.state.Stage
			r.state.Stage = StageAborted
			return &StageError{Stage: stage, Cause: err}
		}
		if r.state.Transitions >= r.p.cfg.MaxTransitions {
			stage := r.state.Stage
			r.state.Stage = StageAborted
			return &StageError{
				Stage: stage,
				Cause: fmt.Errorf("%w: %d transitions without reaching a terminal stage", ErrPipelineOverrun, r.state.Transitions),
			}
		}
		r.state.Transitions++

		current := r.state.Stage
		next, err := r.step(ctx, current)
		if err != nil {
			r.state.Stage = StageAborted
			return err
		}
		r.log.Debug().Str("from", string(current)).Str("to", string(next)).Msg("transition")
		r.state.Stage = next
	}
	return nil
}

func (r *run) step(ctx context.Context, stage Stage) (Stage, error) {
	switch stage {
	case StageScrape:
		return r.scrape(ctx)
	case StageScore:
		return r.score(ctx)
	case StageCheckMatches:
		return r.checkMatches(), nil
	case StageGenerate:
		return r.generate(ctx)
	case StagePersist:
		return r.persist(ctx)
	default:
		return StageAborted, &StageError{Stage: stage, Cause: fmt.Errorf("no handler for stage %q", stage)}
	}
}
