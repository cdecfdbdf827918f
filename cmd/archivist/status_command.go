package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"archivist/internal/daemon"
	"archivist/internal/ledger"
	"archivist/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon lock state and the last 24 hours of archival",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			status, err := daemon.ReadStatus(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon running: %s\n", yesNo(status.Running))
			if status.PID > 0 {
				fmt.Fprintf(out, "PID: %d\n", status.PID)
			}
			fmt.Fprintf(out, "Log dir: %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "Flag dir: %s\n", cfg.Paths.FlagDir)
			fmt.Fprintf(out, "Archive dir: %s\n", cfg.ArchiveRoot())
			fmt.Fprintf(out, "Lock file: %s\n", status.LockFilePath)
			fmt.Fprintln(out, "Checks:")
			for _, result := range preflight.RunAll(cfg) {
				mark := "ok"
				if !result.Passed {
					mark = "FAIL"
				}
				fmt.Fprintf(out, "  [%s] %s: %s\n", mark, result.Name, result.Detail)
			}

			if _, err := os.Stat(status.LedgerPath); errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintln(out, "Ledger: none yet")
				return nil
			}
			store, err := ledger.Open(status.LedgerPath)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			summary, err := store.SummarySince(cmd.Context(), time.Now().Add(-24*time.Hour))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Last 24h: %d archived, %d failed, %s in, %s out\n",
				summary.Archived, summary.Failed,
				humanize.Bytes(uint64(summary.InputBytes)), humanize.Bytes(uint64(summary.OutputBytes)))
			if !summary.LastEntryAt.IsZero() {
				fmt.Fprintf(out, "Last entry: %s\n", humanize.Time(summary.LastEntryAt))
			}
			return nil
		},
	}
}
