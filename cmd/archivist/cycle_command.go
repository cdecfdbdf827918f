package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"archivist/internal/cycle"
	"archivist/internal/daemonrun"
)

func newCycleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cycle",
		Short: "Run exactly one scan, archive and reap cycle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report, err := daemonrun.RunCycle(cmd.Context(), cfg, ctx.runOptions())
			if err != nil {
				return err
			}
			printCycleReport(cmd.OutOrStdout(), report)
			if report.Err != nil {
				return report.Err
			}
			if report.Failed > 0 {
				return fmt.Errorf("%d job(s) failed; flags kept for the next cycle", report.Failed)
			}
			return nil
		},
	}
}

func printCycleReport(out io.Writer, report cycle.Report) {
	fmt.Fprintf(out, "Cycle %s (%s): %d archived, %d failed", report.CycleID, report.Day, report.Archived, report.Failed)
	if report.Deferred > 0 {
		fmt.Fprintf(out, ", %d deferred", report.Deferred)
	}
	fmt.Fprintln(out)
	for _, job := range report.Jobs {
		if job.OK() {
			fmt.Fprintf(out, "  %s -> %s\n", job.JobID, job.Result.ArchivePath)
			continue
		}
		fmt.Fprintf(out, "  %s failed: %v\n", job.JobID, job.Result.Err)
	}
}
