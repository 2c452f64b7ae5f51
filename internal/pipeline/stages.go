package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/freelance-applier/internal/scoring"
	"github.com/jonathan/freelance-applier/internal/types"
)

func (r *run) scrape(ctx context.Context) (Stage, error) {
	r.emit(StageScrape, fmt.Sprintf("Scraping jobs for %q...", r.state.Query), nil)

	postings, err := r.p.scraper.Scrape(ctx, r.state.Query)
	if err != nil {
		return StageAborted, &StageError{Stage: StageScrape, Cause: err}
	}
	r.state.Scraped = postings
	r.emit(StageScrape, fmt.Sprintf("Scraped %d jobs", len(postings)), postings)

	if r.p.exporter != nil && len(postings) > 0 {
		if where, err := r.p.exporter(postings, r.p.now()); err != nil {
			r.log.Warn().Err(err).Msg("failed to export scraped jobs")
		} else {
			r.log.Info().Str("export", where).Int("jobs", len(postings)).Msg("exported scraped jobs")
		}
	}

	if len(postings) == 0 {
		// nothing to score; CheckMatches will finish the run
		return StageCheckMatches, nil
	}
	return StageScore, nil
}

func (r *run) score(ctx context.Context) (Stage, error) {
	r.emit(StageScore, fmt.Sprintf("Scoring %d jobs...", len(r.state.Scraped)), nil)

	scored, err := r.p.scorer.Score(ctx, r.state.Scraped, r.profile)
	if err != nil {
		return StageAborted, &StageError{Stage: StageScore, Cause: err}
	}
	r.state.Scored = scored

	matches := r.dropApplied(ctx, scoring.FilterMatches(scored, r.p.cfg.Threshold))
	if limit := r.p.cfg.MaxMatches; limit > 0 && len(matches) > limit {
		r.log.Info().Int("matches", len(matches)).Int("limit", limit).Msg("trimming match queue")
		matches = matches[len(matches)-limit:]
	}
	r.state.Matches = matches
	r.state.NumMatches = len(matches)

	r.emit(StageScore, fmt.Sprintf("%d of %d jobs scored %d or higher", len(matches), len(scored), r.p.cfg.Threshold), scored)
	return StageCheckMatches, nil
}

// dropApplied moves matches already applied to into Skipped. A failed lookup
// keeps the job queued.
func (r *run) dropApplied(ctx context.Context, matches []types.ScoredJob) []types.ScoredJob {
	if r.p.applied == nil {
		return matches
	}
	kept := make([]types.ScoredJob, 0, len(matches))
	for _, job := range matches {
		applied, err := r.p.applied.HasApplied(ctx, job.SourceURL)
		if err != nil {
			r.log.Warn().Err(err).Str("job_url", job.SourceURL).Msg("run history: failed to check earlier applications")
			kept = append(kept, job)
			continue
		}
		if applied {
			r.log.Info().Str("job_url", job.SourceURL).Msg("skipping job applied to in an earlier run")
			r.state.Skipped = append(r.state.Skipped, SkippedJob{Job: job, Reason: ReasonAlreadyApplied})
			continue
		}
		kept = append(kept, job)
	}
	return kept
}

func (r *run) checkMatches() Stage {
	if len(r.state.Matches) == 0 {
		return StageDone
	}
	return StageGenerate
}

func (r *run) generate(ctx context.Context) (Stage, error) {
	job := r.state.Matches[len(r.state.Matches)-1]
	r.state.Current = &job
	r.emit(StageGenerate, fmt.Sprintf("Drafting application for %q (score %d, %d left)", job.Title, job.Score, len(r.state.Matches)), job)

	var coverLetter, introMessage string
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		text, err := r.p.generator.Generate(gCtx, types.KindCoverLetter, job.JobPosting, r.profile)
		coverLetter = text
		return err
	})
	g.Go(func() error {
		text, err := r.p.generator.Generate(gCtx, types.KindIntroMessage, job.JobPosting, r.profile)
		introMessage = text
		return err
	})

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil || r.p.cfg.FailurePolicy == PolicyAbort {
			return StageAborted, &StageError{Stage: StageGenerate, JobURL: job.SourceURL, Cause: err}
		}

		r.log.Warn().Err(err).Str("job_url", job.SourceURL).Msg("skipping job after generation failure")
		r.state.Skipped = append(r.state.Skipped, SkippedJob{Job: job, Reason: err.Error()})
		r.state.pop()
		r.emit(StageGenerate, fmt.Sprintf("Skipped %q: %v", job.Title, err), nil)
		return StageCheckMatches, nil
	}

	r.state.CoverLetter = coverLetter
	r.state.IntroMessage = introMessage
	return StagePersist, nil
}

func (r *run) persist(ctx context.Context) (Stage, error) {
	job := *r.state.Current
	content := types.GeneratedContent{
		Job:          job.JobPosting,
		CoverLetter:  r.state.CoverLetter,
		IntroMessage: r.state.IntroMessage,
		GeneratedAt:  r.p.now(),
	}

	if err := r.p.sink.Append(ctx, content); err != nil {
		return StageAborted, &StageError{Stage: StagePersist, JobURL: job.SourceURL, Cause: err}
	}

	if r.p.recorder != nil {
		if err := r.p.recorder.RecordApplication(ctx, r.state.RunID, job, content); err != nil {
			r.log.Warn().Err(err).Str("job_url", job.SourceURL).Msg("run history: failed to record application")
		}
	}

	r.state.Persisted = append(r.state.Persisted, job)
	r.state.pop()
	r.emit(StagePersist, fmt.Sprintf("Saved application for %q", job.Title), content)
	return StageCheckMatches, nil
}
