// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/freelance-applier/internal/llm"
	"github.com/jonathan/freelance-applier/internal/pipeline"
	"github.com/jonathan/freelance-applier/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "..."
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintScrapedJobs outputs the first few scraped postings.
func (p *Printer) PrintScrapedJobs(jobs []types.JobPosting) {
	if len(jobs) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total jobs scraped: %d\n\n", len(jobs)))

	count := min(len(jobs), maxItemsToShow)
	for i := 0; i < count; i++ {
		job := jobs[i]
		sb.WriteString(fmt.Sprintf("• %s\n", truncate(job.Title, 50)))
		details := []string{}
		if job.JobType != "" {
			details = append(details, string(job.JobType))
		}
		if job.Budget != "" {
			details = append(details, job.Budget)
		}
		if job.ExperienceLevel != "" {
			details = append(details, job.ExperienceLevel)
		}
		if len(details) > 0 {
			sb.WriteString(fmt.Sprintf("  %s\n", strings.Join(details, " · ")))
		}
	}

	if len(jobs) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more jobs", len(jobs)-maxItemsToShow))
	}

	p.printBox("SCRAPED JOBS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintScoredJobs outputs every scored job, marking the ones at or above threshold.
func (p *Printer) PrintScoredJobs(scored []types.ScoredJob, threshold int) {
	if len(scored) == 0 {
		return
	}

	var sb strings.Builder
	matches := 0
	for _, job := range scored {
		marker := " "
		if job.IsMatch(threshold) {
			marker = "✓"
			matches++
		}
		sb.WriteString(fmt.Sprintf("%s %2d  %s\n", marker, job.Score, truncate(job.Title, 45)))
	}
	sb.WriteString(fmt.Sprintf("\n%d of %d jobs scored %d or higher", matches, len(scored), threshold))

	p.printBox("JOB SCORES", sb.String())
}

// PrintGeneratedContent outputs the start of both drafted documents.
func (p *Printer) PrintGeneratedContent(content *types.GeneratedContent) {
	if content == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Job: %s\n\n", content.Job.Title))
	sb.WriteString("Cover Letter:\n")
	sb.WriteString(preview(content.CoverLetter, 4))
	sb.WriteString("\nIntro Message:\n")
	sb.WriteString(preview(content.IntroMessage, 3))

	p.printBox("GENERATED CONTENT", strings.TrimSuffix(sb.String(), "\n"))
}

// preview returns the first n non-empty lines of text, indented
func preview(text string, n int) string {
	var sb strings.Builder
	shown, total := 0, 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		total++
		if shown < n {
			sb.WriteString("  " + line + "\n")
			shown++
		}
	}
	if total > shown {
		sb.WriteString(fmt.Sprintf("  ... %d more lines\n", total-shown))
	}
	return sb.String()
}

// PrintRunState outputs the outcome of a run, including skipped jobs.
func (p *Printer) PrintRunState(state *pipeline.State) {
	if state == nil {
		return
	}

	summary := state.Summary()
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:        %s\n", state.RunID))
	sb.WriteString(fmt.Sprintf("Query:      %s\n", state.Query))
	sb.WriteString(fmt.Sprintf("Status:     %s\n", summary.Status))
	sb.WriteString(fmt.Sprintf("Scraped:    %d\n", summary.Scraped))
	sb.WriteString(fmt.Sprintf("Matches:    %d\n", summary.Matches))
	sb.WriteString(fmt.Sprintf("Persisted:  %d\n", summary.Persisted))
	sb.WriteString(fmt.Sprintf("Skipped:    %d\n", summary.Skipped))
	sb.WriteString(fmt.Sprintf("Stages run: %d", state.Transitions))

	if len(state.Skipped) > 0 {
		sb.WriteString("\n\nSkipped jobs:\n")
		for i, s := range state.Skipped {
			sb.WriteString(fmt.Sprintf("⚠ %s\n", s.Job.Title))
			sb.WriteString(fmt.Sprintf("  %s", s.Reason))
			if i < len(state.Skipped)-1 {
				sb.WriteString("\n")
			}
		}
	}
	if len(state.Matches) > 0 {
		sb.WriteString(fmt.Sprintf("\n\n%d matches left unprocessed", len(state.Matches)))
	}

	p.printBox("RUN SUMMARY", sb.String())
}

// UsageSource reports accumulated token estimates, in total and per tier.
type UsageSource interface {
	Total() llm.Usage
	ByTier(tier llm.ModelTier) llm.Usage
}

// PrintUsage outputs estimated LLM token usage with a line per tier used.
func (p *Printer) PrintUsage(usage UsageSource) {
	total := usage.Total()
	if total.Calls == 0 {
		return
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("LLM calls:          %d\nPrompt tokens:      %d\nCompletion tokens:  %d\nTotal tokens:       %d",
		total.Calls, total.PromptTokens, total.CompletionTokens, total.TotalTokens()))
	for _, tier := range []llm.ModelTier{llm.TierLite, llm.TierStandard, llm.TierAdvanced} {
		u := usage.ByTier(tier)
		if u.Calls == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n  %-9s %3d calls  %7d tokens", tier, u.Calls, u.TotalTokens()))
	}
	p.printBox("LLM USAGE (estimated)", sb.String())
}
