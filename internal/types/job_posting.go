// Package types provides type definitions for structured data used throughout the freelance-applier system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// JobType is the billing model of a posting
type JobType string

const (
	// JobTypeFixed is a fixed-price contract
	JobTypeFixed JobType = "Fixed"
	// JobTypeHourly is an hourly contract
	JobTypeHourly JobType = "Hourly"
)

// ParseJobType maps free-form marketplace labels onto a JobType.
// Anything that mentions "hour" is hourly, everything else with content is fixed.
func ParseJobType(s string) (JobType, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "":
		return "", false
	case strings.Contains(v, "hour"):
		return JobTypeHourly, true
	case strings.Contains(v, "fixed"):
		return JobTypeFixed, true
	default:
		return "", false
	}
}

// JobPosting represents a single scraped job posting.
// Values are passed by copy between components and never mutated after scraping.
type JobPosting struct {
	Title           string   `json:"title" validate:"required"`
	Description     string   `json:"description" validate:"required"`
	JobType         JobType  `json:"job_type,omitempty" validate:"omitempty,oneof=Fixed Hourly"`
	ExperienceLevel string   `json:"experience_level,omitempty"`
	Duration        string   `json:"duration,omitempty"`
	Budget          string   `json:"budget,omitempty"`
	ClientRating    *float64 `json:"client_rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	SkillsRequired  []string `json:"skills_required"`
	SourceURL       string   `json:"job_url" validate:"required,url"`
}

var postingValidator = validator.New()

// Validate checks the required fields and value ranges of the posting.
func (j *JobPosting) Validate() error {
	return postingValidator.Struct(j)
}

// Skills returns the required skills joined for prompt rendering.
func (j JobPosting) Skills() string {
	if len(j.SkillsRequired) == 0 {
		return "Not specified"
	}
	return strings.Join(j.SkillsRequired, ", ")
}

// NormalizeSkills trims skills and removes case-insensitive duplicates,
// keeping the first spelling seen.
func NormalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]bool, len(skills))
	for _, skill := range skills {
		skill = strings.TrimSpace(skill)
		key := strings.ToLower(skill)
		if skill == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, skill)
	}
	return out
}
