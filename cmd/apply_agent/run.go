package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/freelance-applier/internal/observability"
)

var runFlags pipelineFlags

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the full application pipeline once",
	Long: `Scrapes jobs for the query, scores them against your profile and, for every job scoring at or above the threshold, drafts a cover letter and intro message and appends them to the output file. Matches are processed last first.

Configuration can be loaded from a JSON or YAML file using --config. Command-line arguments override config file values.`,
	RunE: runPipelineCmd,
}

func init() {
	addPipelineFlags(runCommand, &runFlags)
	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := resolveConfig(cmd, &runFlags)
	if err != nil {
		return err
	}
	if cfg.Verbose && runFlags.configPath != "" {
		_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", runFlags.configPath)
	}

	logger := newLogger(&runFlags, cfg.Verbose)
	a, err := newApp(ctx, cfg, logger, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	state, runErr := a.pipeline.Run(ctx, cfg.Query, a.profile)

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintRunState(state)
	if cfg.Verbose {
		printer.PrintUsage(a.usage)
	}
	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}

	_, _ = fmt.Fprintf(os.Stdout, "\nApplications written to %s\n", cfg.OutputPath)
	return nil
}
