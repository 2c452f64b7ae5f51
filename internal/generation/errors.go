package generation

import (
	"errors"
	"fmt"

	"github.com/jonathan/freelance-applier/internal/types"
)

var (
	// ErrGenerationFailure matches every error returned by Generator.Generate
	ErrGenerationFailure = errors.New("generation failure")
	// ErrUnknownKind is the cause when Generate is called with an unsupported kind
	ErrUnknownKind = errors.New("unknown document kind")
)

// GenerationError represents a failed document generation for one job
type GenerationError struct {
	Kind    types.DocumentKind
	JobURL  string
	Message string
	Cause   error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generate %s for %s: %s: %v", e.Kind, e.JobURL, e.Message, e.Cause)
	}
	return fmt.Sprintf("generate %s for %s: %s", e.Kind, e.JobURL, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Is reports ErrGenerationFailure so callers can test with errors.Is.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailure
}
