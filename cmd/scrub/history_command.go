package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"scrub/internal/history"
	"scrub/internal/services"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent verification runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return services.Wrap(services.ErrConfiguration, "history", "", "history is disabled in configuration", nil)
			}

			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "history", "open store", cfg.History.Path, err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()

			if runID != "" {
				files, err := store.FilesForRun(cmd.Context(), runID)
				if err != nil {
					return services.Wrap(services.ErrIO, "history", "load run", runID, err)
				}
				if len(files) == 0 {
					fmt.Fprintf(out, "No file outcomes recorded for run %s\n", runID)
					return nil
				}
				rows := make([][]string, 0, len(files))
				for _, file := range files {
					rows = append(rows, []string{
						file.Path,
						strconv.Itoa(file.Records),
						strconv.Itoa(file.Failures),
						yesNo(file.Skipped),
					})
				}
				fmt.Fprintln(out, renderReport(
					[]reportColumn{
						{title: "SIDECAR"},
						{title: "RECORDS", count: true},
						{title: "FAILURES", count: true},
						{title: "SKIPPED"},
					},
					rows,
				))
				return nil
			}

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return services.Wrap(services.ErrIO, "history", "list runs", "", err)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.ID,
					run.StartedAt.UTC().Format(time.RFC3339),
					run.Mode,
					run.Root,
					strconv.Itoa(run.FilesChecked),
					strconv.Itoa(run.RecordsChecked),
					strconv.Itoa(run.Failures),
					strconv.Itoa(run.Errors),
				})
			}
			fmt.Fprintln(out, renderReport(
				[]reportColumn{
					{title: "RUN"},
					{title: "STARTED"},
					{title: "MODE"},
					{title: "ROOT"},
					{title: "FILES", count: true},
					{title: "RECORDS", count: true},
					{title: "FAILURES", count: true},
					{title: "ERRORS", count: true},
				},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "Show per-file outcomes for one run ID")
	return cmd
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
