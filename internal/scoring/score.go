// Package scoring rates scraped postings against the freelancer profile with
// the LLM and selects the matches.
package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jonathan/freelance-applier/internal/llm"
	"github.com/jonathan/freelance-applier/internal/logging"
	"github.com/jonathan/freelance-applier/internal/prompts"
	"github.com/jonathan/freelance-applier/internal/schemas"
	"github.com/jonathan/freelance-applier/internal/types"
)

// DefaultThreshold is the minimum score of a match
const DefaultThreshold = 7

// DefaultDesiredRate is the hourly rate in USD quoted to the scorer
const DefaultDesiredRate = "15"

// Options configures a Scorer
type Options struct {
	DesiredRate string
	// BatchSize is the number of postings per LLM call; 0 sends all at once.
	BatchSize int
	Tier      llm.ModelTier
}

// Scorer scores postings with one LLM call per batch
type Scorer struct {
	client llm.Client
	opts   Options
	log    *zerolog.Logger
}

// NewScorer creates a Scorer
func NewScorer(client llm.Client, opts Options, logger *zerolog.Logger) *Scorer {
	if opts.DesiredRate == "" {
		opts.DesiredRate = DefaultDesiredRate
	}
	if opts.Tier == "" {
		opts.Tier = llm.TierStandard
	}
	return &Scorer{client: client, opts: opts, log: logging.OrNop(logger)}
}

// scoringInput is the view of a posting embedded in the prompt
type scoringInput struct {
	JobID           string        `json:"job_id"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	JobType         types.JobType `json:"job_type,omitempty"`
	ExperienceLevel string        `json:"experience_level,omitempty"`
	Duration        string        `json:"duration,omitempty"`
	Budget          string        `json:"budget,omitempty"`
	ClientRating    *float64      `json:"client_rating,omitempty"`
	SkillsRequired  []string      `json:"skills_required"`
}

// Score returns one ScoredJob per posting the LLM scored validly, in input
// order. Entries with unknown or duplicate job ids, or scores outside
// [MinScore, MaxScore], and malformed entries are dropped with a warning. A
// batch is dropped when its response has no matches array or none of its
// entries decode. An error is returned only
// when every batch failed.
func (s *Scorer) Score(ctx context.Context, postings []types.JobPosting, profile string) ([]types.ScoredJob, error) {
	if len(postings) == 0 {
		return nil, nil
	}
	defer logging.TraceDuration(s.log, "scoring.Score")()

	batches := split(postings, s.opts.BatchSize)
	scores := make(map[string]int, len(postings))
	failed := 0
	var lastErr error

	for i, batch := range batches {
		batchScores, err := s.scoreBatch(ctx, i, batch, profile)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &ScoringError{Batches: len(batches), Message: "cancelled", Cause: ctx.Err()}
			}
			failed++
			lastErr = err
			s.log.Warn().Err(err).Int("batch", i).Int("jobs", len(batch)).Msg("scoring batch dropped")
			continue
		}
		for id, score := range batchScores {
			scores[id] = score
		}
	}

	if failed == len(batches) {
		return nil, &ScoringError{Batches: len(batches), Message: "no batch could be scored", Cause: lastErr}
	}

	scored := make([]types.ScoredJob, 0, len(scores))
	for _, p := range postings {
		if score, ok := scores[p.SourceURL]; ok {
			scored = append(scored, types.ScoredJob{JobPosting: p, Score: score})
		}
	}

	s.log.Info().Int("postings", len(postings)).Int("scored", len(scored)).Int("failed_batches", failed).Msg("scoring complete")
	return scored, nil
}

func (s *Scorer) scoreBatch(ctx context.Context, index int, batch []types.JobPosting, profile string) (map[string]int, error) {
	inputs := make([]scoringInput, len(batch))
	submitted := make(map[string]bool, len(batch))
	for i, p := range batch {
		inputs[i] = scoringInput{
			JobID:           p.SourceURL,
			Title:           p.Title,
			Description:     p.Description,
			JobType:         p.JobType,
			ExperienceLevel: p.ExperienceLevel,
			Duration:        p.Duration,
			Budget:          p.Budget,
			ClientRating:    p.ClientRating,
			SkillsRequired:  p.SkillsRequired,
		}
		submitted[p.SourceURL] = true
	}

	jobsJSON, err := json.MarshalIndent(inputs, "", "  ")
	if err != nil {
		return nil, &BatchError{Batch: index, Message: "failed to encode jobs", Cause: err}
	}

	prompt, err := prompts.Render(prompts.ScoringFile, prompts.KeyScoreJobs, map[string]string{
		"Profile":     profile,
		"DesiredRate": s.opts.DesiredRate,
		"Jobs":        string(jobsJSON),
	})
	if err != nil {
		return nil, &BatchError{Batch: index, Message: "failed to render prompt", Cause: err}
	}

	resp, err := s.client.GenerateJSON(ctx, prompt, s.opts.Tier)
	if err != nil {
		return nil, &BatchError{Batch: index, Message: "LLM call failed", Cause: err}
	}

	entries, err := decodeEnvelope(llm.CleanJSONBlock(resp))
	if err != nil {
		return nil, &BatchError{Batch: index, Message: "malformed response", Cause: err}
	}

	decoded := make([]types.JobScore, 0, len(entries))
	var entryErr error
	for i, raw := range entries {
		m, err := decodeEntry(raw)
		if err != nil {
			entryErr = err
			s.log.Warn().Int("batch", index).Int("entry", i).Err(err).Str("reason", "malformed entry").Msg("dropping score")
			continue
		}
		decoded = append(decoded, m)
	}
	if len(entries) > 0 && len(decoded) == 0 {
		return nil, &BatchError{Batch: index, Message: "no well-formed entries", Cause: entryErr}
	}

	counts := make(map[string]int, len(decoded))
	for _, m := range decoded {
		counts[m.JobID]++
	}

	scores := make(map[string]int, len(decoded))
	for _, m := range decoded {
		id := m.JobID
		var reason string
		switch {
		case !submitted[id]:
			reason = "unknown job id"
		case counts[id] > 1:
			reason = "duplicate job id"
		case !types.ValidScore(m.Score):
			reason = "score out of range"
		default:
			scores[id] = m.Score
			continue
		}
		s.log.Warn().Int("batch", index).Str("job_id", id).Int("score", m.Score).Str("reason", reason).Msg("dropping score")
	}
	return scores, nil
}

// decodeEnvelope checks that the response is an object carrying a matches
// array and returns its entries undecoded.
func decodeEnvelope(content string) ([]json.RawMessage, error) {
	var envelope struct {
		Matches *[]json.RawMessage `json:"matches"`
	}
	if err := json.Unmarshal([]byte(content), &envelope); err != nil {
		return nil, fmt.Errorf("invalid %s envelope: %w", schemas.JobScores, err)
	}
	if envelope.Matches == nil {
		return nil, fmt.Errorf("invalid %s envelope: missing matches array", schemas.JobScores)
	}
	return *envelope.Matches, nil
}

// decodeEntry validates one match against the job_score schema and decodes
// it. Whole-number floats such as 8.0 are accepted as integer scores.
func decodeEntry(raw json.RawMessage) (types.JobScore, error) {
	if err := schemas.ValidateResponse(schemas.JobScore, string(raw)); err != nil {
		return types.JobScore{}, err
	}
	var entry struct {
		JobID string  `json:"job_id"`
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		return types.JobScore{}, err
	}
	id := strings.TrimSpace(entry.JobID)
	if id == "" {
		return types.JobScore{}, errors.New("blank job_id")
	}
	return types.JobScore{JobID: id, Score: int(math.Round(entry.Score))}, nil
}

func split(postings []types.JobPosting, size int) [][]types.JobPosting {
	if size <= 0 || size >= len(postings) {
		return [][]types.JobPosting{postings}
	}
	var batches [][]types.JobPosting
	for start := 0; start < len(postings); start += size {
		end := start + size
		if end > len(postings) {
			end = len(postings)
		}
		batches = append(batches, postings[start:end])
	}
	return batches
}

// FilterMatches keeps the jobs scoring at least threshold, preserving order.
func FilterMatches(scored []types.ScoredJob, threshold int) []types.ScoredJob {
	matches := make([]types.ScoredJob, 0, len(scored))
	for _, job := range scored {
		if job.IsMatch(threshold) {
			matches = append(matches, job)
		}
	}
	return matches
}
