package scraping

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/jonathan/freelance-applier/internal/types"
)

// Key aliases accepted for each posting field, in priority order.
var (
	titleKeys       = []string{"title", "job_title", "name"}
	descriptionKeys = []string{"description", "job_description", "snippet"}
	urlKeys         = []string{"job_url", "url", "link"}
	skillKeys       = []string{"skills_required", "skills", "tags"}
	ratingKeys      = []string{"client_rating", "rating", "clientRating"}
	budgetKeys      = []string{"budget", "rate", "price"}
	typeKeys        = []string{"job_type", "type", "jobType"}
	experienceKeys  = []string{"experience_level", "experience", "experienceLevel", "level"}
	durationKeys    = []string{"duration", "project_length", "projectLength"}
)

// NormalizeRecord converts a raw scraper record into a validated JobPosting.
// Records missing a title, description or URL, or carrying out-of-range
// values, are rejected with a *RecordError.
func NormalizeRecord(raw map[string]any) (types.JobPosting, error) {
	posting := types.JobPosting{
		Title:           firstString(raw, titleKeys),
		Description:     firstString(raw, descriptionKeys),
		SourceURL:       firstString(raw, urlKeys),
		ExperienceLevel: firstString(raw, experienceKeys),
		Duration:        firstString(raw, durationKeys),
		Budget:          budget(raw),
		SkillsRequired:  types.NormalizeSkills(stringList(raw, skillKeys)),
	}

	if jobType, ok := types.ParseJobType(firstString(raw, typeKeys)); ok {
		posting.JobType = jobType
	} else if jobType, ok := types.ParseJobType(posting.Budget); ok {
		posting.JobType = jobType
	}

	rating, ok, err := firstFloat(raw, ratingKeys)
	if err != nil {
		return types.JobPosting{}, &RecordError{Field: "client_rating", Message: err.Error()}
	}
	if ok {
		posting.ClientRating = &rating
	}

	if err := posting.Validate(); err != nil {
		return types.JobPosting{}, toRecordError(err)
	}
	return posting, nil
}

// NormalizeRecords normalizes raw records, dropping and logging rejected ones,
// then removes duplicate URLs.
func NormalizeRecords(raw []map[string]any, logger *zerolog.Logger) []types.JobPosting {
	postings := make([]types.JobPosting, 0, len(raw))
	for i, record := range raw {
		posting, err := NormalizeRecord(record)
		if err != nil {
			var recErr *RecordError
			if errors.As(err, &recErr) {
				recErr.Index = i
			}
			if logger != nil {
				logger.Warn().Err(err).Int("index", i).Msg("rejected scraped record")
			}
			continue
		}
		postings = append(postings, posting)
	}
	return Dedupe(postings)
}

// Dedupe removes postings whose SourceURL was already seen; the first wins.
// URLs are compared with the scheme and host lowercased and trailing slashes
// removed. Paths and queries stay case sensitive.
func Dedupe(postings []types.JobPosting) []types.JobPosting {
	seen := make(map[string]bool, len(postings))
	out := make([]types.JobPosting, 0, len(postings))
	for _, p := range postings {
		key := dedupeKey(p.SourceURL)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

func dedupeKey(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(raw, "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String()
}

var fieldNames = map[string]string{
	"SourceURL":    "job_url",
	"JobType":      "job_type",
	"ClientRating": "client_rating",
}

func toRecordError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field, ok := fieldNames[fe.Field()]
		if !ok {
			field = strings.ToLower(fe.Field())
		}
		return &RecordError{Field: field, Message: fmt.Sprintf("failed %q check", fe.Tag())}
	}
	return &RecordError{Message: err.Error()}
}

func firstString(raw map[string]any, keys []string) string {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		var s string
		switch val := v.(type) {
		case string:
			s = val
		case float64, int, int64, bool:
			s = fmt.Sprint(val)
		default:
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func stringList(raw map[string]any, keys []string) []string {
	for _, key := range keys {
		switch val := raw[key].(type) {
		case []any:
			out := make([]string, 0, len(val))
			for _, item := range val {
				if s, ok := item.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return val
		case string:
			if strings.TrimSpace(val) == "" {
				continue
			}
			return strings.Split(val, ",")
		}
	}
	return nil
}

func firstFloat(raw map[string]any, keys []string) (float64, bool, error) {
	for _, key := range keys {
		switch val := raw[key].(type) {
		case float64:
			return val, true, nil
		case int:
			return float64(val), true, nil
		case string:
			s := strings.TrimSpace(val)
			if s == "" {
				continue
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return 0, false, fmt.Errorf("%q is not a number", s)
			}
			return f, true, nil
		}
	}
	return 0, false, nil
}

// budget keeps free-text budgets as-is and renders numeric ones with a dollar sign.
func budget(raw map[string]any) string {
	for _, key := range budgetKeys {
		switch val := raw[key].(type) {
		case string:
			if s := strings.TrimSpace(val); s != "" {
				return s
			}
		case float64:
			return "$" + strconv.FormatFloat(val, 'f', -1, 64)
		}
	}
	return ""
}
