package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"archivist/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jobID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent archive outcomes from the ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg.LedgerPath())
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			var entries []ledger.Entry
			if job := strings.TrimSpace(jobID); job != "" {
				entries, err = store.ForJob(cmd.Context(), job, limit)
			} else {
				entries, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No archive history recorded")
				return nil
			}
			fmt.Fprintln(out, renderHistory(entries))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries (0 for all)")
	cmd.Flags().StringVar(&jobID, "job", "", "Only show entries for this job identifier")
	return cmd
}

func renderHistory(entries []ledger.Entry) string {
	columns := []tableColumn{
		{Header: "ID", Align: alignRight},
		{Header: "When"},
		{Header: "Job"},
		{Header: "Day"},
		{Header: "Status"},
		{Header: "Sources", Align: alignRight},
		{Header: "Input", Align: alignRight},
		{Header: "Output", Align: alignRight},
		{Header: "Detail", MaxWidth: 60},
	}
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		detail := entry.ArchivePath
		if entry.Status == ledger.StatusFailed {
			detail = entry.Error
		} else if entry.Recovered {
			detail += " (recovered)"
		}
		rows = append(rows, []string{
			strconv.FormatInt(entry.ID, 10),
			entry.CreatedAt.Local().Format(time.DateTime),
			entry.JobID,
			entry.Day,
			string(entry.Status),
			strconv.Itoa(entry.SourceCount),
			humanize.Bytes(uint64(entry.InputBytes)),
			humanize.Bytes(uint64(entry.OutputBytes)),
			detail,
		})
	}
	return renderTable(columns, rows)
}
