package sink

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Record is one entry recovered from the sink file
type Record struct {
	Date           time.Time
	JobDescription string
	CoverLetter    string
	IntroMessage   string
}

const (
	descriptionHeading = "### Job Description ###\n"
	coverLetterHeading = "\n\n### Cover Letter ###\n"
	introHeading       = "\n\n### Intro Message ###\n"
)

// ParseRecords splits a sink file on its "=" rules and recovers every record.
// Dates are parsed in loc (time.Local when nil).
func ParseRecords(r io.Reader, loc *time.Location) ([]Record, error) {
	if loc == nil {
		loc = time.Local
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read sink: %w", err)
	}

	opener := "\n" + headerRule + "\nDATE: "
	chunks := strings.Split(string(data), opener)
	if strings.TrimSpace(chunks[0]) != "" {
		return nil, fmt.Errorf("unexpected content before first record")
	}

	records := make([]Record, 0, len(chunks)-1)
	for i, chunk := range chunks[1:] {
		rec, err := parseRecord(chunk, loc)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// parseRecord parses the text following "DATE: ".
func parseRecord(chunk string, loc *time.Location) (Record, error) {
	dateLine, rest, ok := strings.Cut(chunk, "\n"+headerRule+"\n\n")
	if !ok {
		return Record{}, fmt.Errorf("missing closing rule after DATE line")
	}
	date, err := time.ParseInLocation(DateLayout, dateLine, loc)
	if err != nil {
		return Record{}, fmt.Errorf("invalid DATE %q: %w", dateLine, err)
	}

	body, ok := strings.CutSuffix(strings.TrimRight(rest, "\n"), "\n\n"+footerRule)
	if !ok {
		return Record{}, fmt.Errorf("missing closing %d-char rule", len(footerRule))
	}

	body, ok = strings.CutPrefix(body, descriptionHeading)
	if !ok {
		return Record{}, fmt.Errorf("missing job description section")
	}
	description, rest, ok := strings.Cut(body, coverLetterHeading)
	if !ok {
		return Record{}, fmt.Errorf("missing cover letter section")
	}
	idx := strings.LastIndex(rest, introHeading)
	if idx < 0 {
		return Record{}, fmt.Errorf("missing intro message section")
	}

	return Record{
		Date:           date,
		JobDescription: description,
		CoverLetter:    rest[:idx],
		IntroMessage:   rest[idx+len(introHeading):],
	}, nil
}
