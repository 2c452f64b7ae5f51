package pipeline

import (
	"errors"
	"fmt"
)

// ErrPipelineOverrun is returned when a run exceeds its transition ceiling
var ErrPipelineOverrun = errors.New("pipeline overrun")

// StageError wraps the failure that aborted a run
type StageError struct {
	Stage  Stage
	JobURL string
	Cause  error
}

func (e *StageError) Error() string {
	if e.JobURL != "" {
		return fmt.Sprintf("%s stage failed for %s: %v", e.Stage, e.JobURL, e.Cause)
	}
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}
