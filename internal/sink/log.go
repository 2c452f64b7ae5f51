// Package sink persists generated application content and scraped job exports.
package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/freelance-applier/internal/types"
)

// DefaultLogPath is where generated content is appended
const DefaultLogPath = "./files/cover_letter.txt"

// DateLayout is the layout of the DATE: line of a record
const DateLayout = "2006-01-02 15:04:05"

var (
	headerRule = strings.Repeat("=", 80)
	footerRule = strings.Repeat("/", 100)
)

// Sink receives the content generated for one job
type Sink interface {
	Append(ctx context.Context, content types.GeneratedContent) error
}

// AppendLog appends records to a text file. Appends from any number of
// goroutines sharing one AppendLog never interleave.
type AppendLog struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

var _ Sink = (*AppendLog)(nil)

// NewAppendLog creates an AppendLog writing to path
func NewAppendLog(path string) *AppendLog {
	if path == "" {
		path = DefaultLogPath
	}
	return &AppendLog{path: path, now: time.Now}
}

// WithClock overrides the clock used when content carries no GeneratedAt.
func (l *AppendLog) WithClock(now func() time.Time) *AppendLog {
	l.now = now
	return l
}

// Path returns the file path of the log
func (l *AppendLog) Path() string {
	return l.path
}

// Append validates content and writes one record with a single write call.
func (l *AppendLog) Append(ctx context.Context, content types.GeneratedContent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := content.Validate(); err != nil {
		return fmt.Errorf("refusing to persist %s: %w", content.Job.SourceURL, err)
	}

	at := content.GeneratedAt
	if at.IsZero() {
		at = l.now()
	}
	record := FormatRecord(at, content.Job.Description, content.CoverLetter, content.IntroMessage)

	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create sink directory: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open sink file: %w", err)
	}

	if _, err := f.WriteString(record); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append record: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close sink file: %w", err)
	}
	return nil
}

// FormatRecord renders one sink record.
func FormatRecord(at time.Time, description, coverLetter, introMessage string) string {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(headerRule)
	sb.WriteString("\nDATE: ")
	sb.WriteString(at.Format(DateLayout))
	sb.WriteString("\n")
	sb.WriteString(headerRule)
	sb.WriteString("\n\n### Job Description ###\n")
	sb.WriteString(description)
	sb.WriteString("\n\n### Cover Letter ###\n")
	sb.WriteString(coverLetter)
	sb.WriteString("\n\n### Intro Message ###\n")
	sb.WriteString(introMessage)
	sb.WriteString("\n\n")
	sb.WriteString(footerRule)
	sb.WriteString("\n")
	return sb.String()
}
