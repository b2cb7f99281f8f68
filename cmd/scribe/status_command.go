package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"scribe/internal/ledger"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show ledger progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			store, err := ledger.Open(cfg.LedgerPath())
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			summary, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			episodes, err := store.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Episodes: %d total, %d fetched, %d normalized, %d transcribed, %d published\n",
				summary.Total, summary.Fetched, summary.Normalized, summary.Transcribed, summary.Published)
			if summary.TotalDurationSeconds > 0 {
				fmt.Fprintf(out, "Media duration: %s\n", formatDuration(summary.TotalDurationSeconds))
			}

			if len(episodes) == 0 {
				fmt.Fprintln(out, "Ledger is empty")
				return nil
			}
			if limit > 0 && len(episodes) > limit {
				episodes = episodes[len(episodes)-limit:]
			}

			rows := make([][]string, 0, len(episodes))
			for _, episode := range episodes {
				title := episode.Title
				if title == "" {
					title = "-"
				}
				rows = append(rows, []string{
					episode.ID,
					truncate(title, 48),
					formatDuration(episode.DurationSeconds),
					episode.Stage(),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Title", "Duration", "Stage"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the most recent N episodes")
	return cmd
}

func truncate(value string, max int) string {
	if max <= 3 || len(value) <= max {
		return value
	}
	return value[:max-3] + "..."
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return strconv.Itoa(minutes) + ":" + fmt.Sprintf("%02d", secs)
}
