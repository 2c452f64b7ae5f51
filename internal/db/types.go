package db

import (
	"time"

	"github.com/google/uuid"
)

// Run represents an application run record
type Run struct {
	ID          uuid.UUID  `json:"id"`
	Query       string     `json:"query"`
	Status      string     `json:"status"`
	Scraped     int        `json:"scraped"`
	Matches     int        `json:"matches"`
	Persisted   int        `json:"persisted"`
	Skipped     int        `json:"skipped"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Application is the content generated for one job within a run
type Application struct {
	ID           uuid.UUID `json:"id"`
	RunID        uuid.UUID `json:"run_id"`
	JobURL       string    `json:"job_url"`
	Title        string    `json:"title"`
	Score        int       `json:"score"`
	CoverLetter  string    `json:"cover_letter"`
	IntroMessage string    `json:"intro_message"`
	CreatedAt    time.Time `json:"created_at"`
}

// DefaultListLimit and MaxListLimit bound list queries
const (
	DefaultListLimit = 20
	MaxListLimit     = 500
)

// clampLimit maps non-positive limits to the default and caps large ones
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// nullableString maps "" to a SQL NULL
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
