package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/freelance-applier/internal/types"
)

// DefaultCSVDir is where scraped job exports are written
const DefaultCSVDir = "./files/upwork_job_listings/"

var csvHeader = []string{
	"title",
	"description",
	"job_type",
	"experience_level",
	"duration",
	"budget",
	"client_rating",
	"skills_required",
	"job_url",
}

// CSVFileName returns the export file name for the day of now.
func CSVFileName(now time.Time) string {
	return fmt.Sprintf("scraped_jobs_%s.csv", now.Format("2006-01-02"))
}

// ExportCSV writes jobs to dir/scraped_jobs_<YYYY-MM-DD>.csv, replacing an
// export from earlier the same day, and returns the file path.
func ExportCSV(dir string, jobs []types.JobPosting, now time.Time) (string, error) {
	if dir == "" {
		dir = DefaultCSVDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(dir, CSVFileName(now))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}

	if err := WriteCSV(f, jobs); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close export file: %w", err)
	}
	return path, nil
}

// WriteCSV writes a header row and one row per job.
func WriteCSV(w io.Writer, jobs []types.JobPosting) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, job := range jobs {
		rating := ""
		if job.ClientRating != nil {
			rating = strconv.FormatFloat(*job.ClientRating, 'f', -1, 64)
		}
		row := []string{
			job.Title,
			job.Description,
			string(job.JobType),
			job.ExperienceLevel,
			job.Duration,
			job.Budget,
			rating,
			strings.Join(job.SkillsRequired, ", "),
			job.SourceURL,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", job.SourceURL, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}
