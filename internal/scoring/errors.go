package scoring

import (
	"errors"
	"fmt"
)

// ErrScoringFailure matches every error returned by Scorer.Score
var ErrScoringFailure = errors.New("scoring failure")

// ScoringError is returned when no batch could be scored
type ScoringError struct {
	Batches int
	Message string
	Cause   error
}

func (e *ScoringError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("scoring failed (%d batches): %s: %v", e.Batches, e.Message, e.Cause)
	}
	return fmt.Sprintf("scoring failed (%d batches): %s", e.Batches, e.Message)
}

func (e *ScoringError) Unwrap() error {
	return e.Cause
}

// Is reports ErrScoringFailure so callers can test with errors.Is.
func (e *ScoringError) Is(target error) bool {
	return target == ErrScoringFailure
}

// BatchError describes why a single batch produced no scores
type BatchError struct {
	Batch   int
	Message string
	Cause   error
}

func (e *BatchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("batch %d: %s: %v", e.Batch, e.Message, e.Cause)
	}
	return fmt.Sprintf("batch %d: %s", e.Batch, e.Message)
}

func (e *BatchError) Unwrap() error {
	return e.Cause
}
