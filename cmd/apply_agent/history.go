package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/freelance-applier/internal/db"
	"github.com/jonathan/freelance-applier/internal/sink"
)

var historyCommand = &cobra.Command{
	Use:   "history",
	Short: "Show previously generated applications",
	Long:  "Reads the output file and lists every application record in it. With --db-url (or DATABASE_URL) it also lists recent runs from the run history database, or with --run the applications of one run.",
	RunE:  runHistoryCmd,
}

var (
	historyFile  string
	historyLimit int
	historyDBURL string
	historyRunID string
)

func init() {
	historyCommand.Flags().StringVarP(&historyFile, "file", "f", sink.DefaultLogPath, "Output file written by run")
	historyCommand.Flags().IntVarP(&historyLimit, "limit", "l", 10, "Number of most recent entries to list (0 = all)")
	historyCommand.Flags().StringVar(&historyDBURL, "db-url", "", "PostgreSQL URL for run history (optional, defaults to DATABASE_URL env var)")
	historyCommand.Flags().StringVar(&historyRunID, "run", "", "Run ID to show in detail (requires run history)")
	rootCmd.AddCommand(historyCommand)
}

// runHistory is the subset of the run history store the command reads
type runHistory interface {
	ListRuns(ctx context.Context, limit int) ([]db.Run, error)
	GetRun(ctx context.Context, runID uuid.UUID) (*db.Run, error)
	ListApplications(ctx context.Context, runID uuid.UUID) ([]db.Application, error)
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	var runID uuid.UUID
	if historyRunID != "" {
		id, err := uuid.Parse(historyRunID)
		if err != nil {
			return fmt.Errorf("invalid --run: %w", err)
		}
		runID = id
	} else if err := printFileHistory(out, historyFile, historyLimit); err != nil {
		return err
	}

	dbURL := historyDBURL
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		if historyRunID != "" {
			return errors.New("--run requires --db-url or DATABASE_URL")
		}
		return nil
	}

	ctx := cmd.Context()
	database, err := db.Connect(ctx, dbURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if historyRunID != "" {
		return printRunDetail(ctx, out, database, runID)
	}
	return printRuns(ctx, out, database, historyLimit)
}

func printRuns(ctx context.Context, out io.Writer, store runHistory, limit int) error {
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "\nRecent runs:\n")
	for _, r := range runs {
		_, _ = fmt.Fprintf(out, "  %s  %s  %-9s  %-30q scraped=%d matches=%d persisted=%d skipped=%d\n",
			r.ID, r.CreatedAt.Format(sink.DateLayout), r.Status, r.Query, r.Scraped, r.Matches, r.Persisted, r.Skipped)
	}
	return nil
}

// printRunDetail prints one run and the applications persisted in it
func printRunDetail(ctx context.Context, out io.Writer, store runHistory, runID uuid.UUID) error {
	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}

	_, _ = fmt.Fprintf(out, "Run %s (%s)\n", run.ID, run.Status)
	_, _ = fmt.Fprintf(out, "  Query:     %q\n", run.Query)
	_, _ = fmt.Fprintf(out, "  Started:   %s\n", run.CreatedAt.Format(sink.DateLayout))
	_, _ = fmt.Fprintf(out, "  Jobs:      scraped=%d matches=%d persisted=%d skipped=%d\n",
		run.Scraped, run.Matches, run.Persisted, run.Skipped)
	if run.Error != nil {
		_, _ = fmt.Fprintf(out, "  Error:     %s\n", *run.Error)
	}

	apps, err := store.ListApplications(ctx, runID)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "\n%d applications:\n", len(apps))
	for _, a := range apps {
		_, _ = fmt.Fprintf(out, "  %2d  %s  %s\n", a.Score, firstLine(a.Title, 50), a.JobURL)
		_, _ = fmt.Fprintf(out, "      %s\n", firstLine(a.IntroMessage, 70))
	}
	return nil
}

// printFileHistory lists the last limit records of the output file
func printFileHistory(out io.Writer, path string, limit int) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			_, _ = fmt.Fprintf(out, "No applications yet (%s does not exist)\n", path)
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	records, err := sink.ParseRecords(f, nil)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(out, "%d applications in %s\n", len(records), path)
	start := 0
	if limit > 0 && len(records) > limit {
		start = len(records) - limit
	}
	for _, r := range records[start:] {
		_, _ = fmt.Fprintf(out, "  %s  %s\n", r.Date.Format(sink.DateLayout), firstLine(r.JobDescription, 60))
	}
	return nil
}

// firstLine returns the first line of s, cut to n runes
func firstLine(s string, n int) string {
	for i, c := range s {
		if c == '\n' {
			s = s[:i]
			break
		}
	}
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}
