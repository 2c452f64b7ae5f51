package types

import "time"

// Run statuses recorded in run history
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusAborted   = "aborted"
)

// RunSummary is the outcome of one pipeline run
type RunSummary struct {
	Status      string    `json:"status"`
	Scraped     int       `json:"scraped"`
	Matches     int       `json:"matches"`
	Persisted   int       `json:"persisted"`
	Skipped     int       `json:"skipped"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}
