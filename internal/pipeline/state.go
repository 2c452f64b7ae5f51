package pipeline

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/freelance-applier/internal/scoring"
	"github.com/jonathan/freelance-applier/internal/types"
)

// Stage is a state of the run state machine
type Stage string

const (
	StageScrape       Stage = "scrape"
	StageScore        Stage = "score"
	StageCheckMatches Stage = "check_matches"
	StageGenerate     Stage = "generate"
	StagePersist      Stage = "persist"
	StageDone         Stage = "done"
	StageAborted      Stage = "aborted"
)

// Terminal reports whether the run stops in this stage
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageAborted
}

// FailurePolicy decides what a generation failure does to the run
type FailurePolicy string

const (
	// PolicySkip records the job as skipped, drops it from the queue and continues
	PolicySkip FailurePolicy = "skip"
	// PolicyAbort stops the run, leaving the queue untouched
	PolicyAbort FailurePolicy = "abort"
)

// ParseFailurePolicy parses "skip" or "abort"
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case PolicySkip, "":
		return PolicySkip, nil
	case PolicyAbort:
		return PolicyAbort, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q (want skip or abort)", s)
	}
}

// DefaultMaxTransitions bounds the number of stage executions in one run
const DefaultMaxTransitions = 1000

// Config is the run configuration passed at construction time
type Config struct {
	// Profile is used when Run is called with an empty profile.
	Profile        string
	Threshold      int
	MaxTransitions int
	// MaxMatches keeps only the last N matches after scoring; 0 keeps all.
	MaxMatches    int
	FailurePolicy FailurePolicy
}

// DefaultConfig returns the defaults: threshold 7, 1000 transitions, skip policy.
func DefaultConfig() Config {
	return Config{
		Threshold:      scoring.DefaultThreshold,
		MaxTransitions: DefaultMaxTransitions,
		FailurePolicy:  PolicySkip,
	}
}

// withDefaults fills zero values from DefaultConfig
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Threshold == 0 {
		c.Threshold = d.Threshold
	}
	if c.MaxTransitions == 0 {
		c.MaxTransitions = d.MaxTransitions
	}
	if c.FailurePolicy == "" {
		c.FailurePolicy = d.FailurePolicy
	}
	return c
}

// Validate checks the configuration values
func (c Config) Validate() error {
	if c.Threshold < types.MinScore || c.Threshold > types.MaxScore {
		return fmt.Errorf("threshold must be between %d and %d, got %d", types.MinScore, types.MaxScore, c.Threshold)
	}
	if c.MaxTransitions < 1 {
		return fmt.Errorf("max transitions must be positive, got %d", c.MaxTransitions)
	}
	if c.MaxMatches < 0 {
		return fmt.Errorf("max matches must not be negative, got %d", c.MaxMatches)
	}
	if _, err := ParseFailurePolicy(string(c.FailurePolicy)); err != nil {
		return err
	}
	return nil
}

// SkippedJob is a match dropped from the queue without being persisted
type SkippedJob struct {
	Job    types.ScoredJob `json:"job"`
	Reason string          `json:"reason"`
}

// ReasonAlreadyApplied marks matches dropped by the applied filter
const ReasonAlreadyApplied = "already applied in an earlier run"

// State is the record threaded through one run. Matches is a LIFO queue: the
// last element is processed first and it only shrinks, one element at a time,
// once that element is persisted or skipped.
type State struct {
	RunID        uuid.UUID          `json:"run_id"`
	Query        string             `json:"query"`
	Stage        Stage              `json:"stage"`
	Scraped      []types.JobPosting `json:"scraped"`
	Scored       []types.ScoredJob  `json:"scored"`
	Matches      []types.ScoredJob  `json:"matches"`
	Current      *types.ScoredJob   `json:"current,omitempty"`
	CoverLetter  string             `json:"cover_letter,omitempty"`
	IntroMessage string             `json:"intro_message,omitempty"`
	NumMatches   int                `json:"num_matches"`
	Persisted    []types.ScoredJob  `json:"persisted"`
	Skipped      []SkippedJob       `json:"skipped"`
	Transitions  int                `json:"transitions"`
}

// Summary condenses the state for run history
func (s *State) Summary() types.RunSummary {
	status := types.RunStatusRunning
	switch s.Stage {
	case StageDone:
		status = types.RunStatusCompleted
	case StageAborted:
		status = types.RunStatusAborted
	}
	return types.RunSummary{
		Status:    status,
		Scraped:   len(s.Scraped),
		Matches:   s.NumMatches,
		Persisted: len(s.Persisted),
		Skipped:   len(s.Skipped),
	}
}

// pop removes the last match; it is the only place the queue shrinks.
func (s *State) pop() {
	s.Matches = s.Matches[:len(s.Matches)-1]
	s.Current = nil
	s.CoverLetter = ""
	s.IntroMessage = ""
}
