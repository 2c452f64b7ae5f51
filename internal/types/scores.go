package types

// Score bounds accepted from the scorer
const (
	MinScore = 1
	MaxScore = 10
)

// ScoredJob is a posting with the score assigned by the scorer
type ScoredJob struct {
	JobPosting
	Score int `json:"score"`
}

// IsMatch reports whether the score meets the acceptance threshold (inclusive).
func (s ScoredJob) IsMatch(threshold int) bool {
	return s.Score >= threshold
}

// JobScore is a single entry of the matches array in the scorer's LLM response
type JobScore struct {
	JobID string `json:"job_id"`
	Score int    `json:"score"`
}

// ValidScore reports whether a score lies in [MinScore, MaxScore].
func ValidScore(score int) bool {
	return score >= MinScore && score <= MaxScore
}
