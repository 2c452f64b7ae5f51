package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/freelance-applier/internal/observability"
	"github.com/jonathan/freelance-applier/internal/schedule"
)

var (
	scheduleFlags pipelineFlags
	scheduleSpec  string
)

var scheduleCommand = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline repeatedly on a cron schedule",
	Long: `Runs the pipeline once immediately and then on every tick of the cron spec until interrupted. A tick that fires while a run is still active is skipped.

Accepts the same flags as run, plus --cron (default "@every 6h").`,
	RunE: runScheduleCmd,
}

func init() {
	addPipelineFlags(scheduleCommand, &scheduleFlags)
	scheduleCommand.Flags().StringVar(&scheduleSpec, "cron", "", `Cron spec or descriptor, e.g. "0 */6 * * *" or "@every 6h"`)
	rootCmd.AddCommand(scheduleCommand)
}

func runScheduleCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := resolveConfig(cmd, &scheduleFlags)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("cron") {
		cfg.Schedule = scheduleSpec
	}

	logger := newLogger(&scheduleFlags, cfg.Verbose)
	a, err := newApp(ctx, cfg, logger, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	printer := observability.NewPrinter(os.Stdout)
	sched, err := schedule.New(cfg.Schedule, func(ctx context.Context) error {
		state, err := a.pipeline.Run(ctx, cfg.Query, a.profile)
		printer.PrintRunState(state)
		return err
	}, logger)
	if err != nil {
		return err
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(os.Stdout, "Scheduled %q with %s; press Ctrl+C to stop\n", cfg.Query, cfg.Schedule)

	<-ctx.Done()
	_, _ = fmt.Fprintln(os.Stdout, "Stopping scheduler, waiting for the active run...")
	sched.Stop()
	return nil
}
