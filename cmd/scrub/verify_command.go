package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"scrub/internal/deps"
	"scrub/internal/history"
	"scrub/internal/logging"
	"scrub/internal/schedule"
	"scrub/internal/services"
	"scrub/internal/services/hashtool"
	"scrub/internal/verify"
)

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var (
		percent    int
		quiet      bool
		statusOnly bool
		toolFlag   string
		nameFlag   string
	)

	cmd := &cobra.Command{
		Use:   "verify [root]",
		Short: "Verify recorded checksums, oldest sidecars first",
		Long: `Verify discovers every sidecar under root, orders them by the age of
their last check, and re-verifies whole files until the requested share of
all recorded checksums has been covered. Each verified sidecar gets a fresh
metadata header recording the check time and failure count.

Concurrent runs coordinate through per-sidecar advisory locks: a sidecar held
by another run is skipped and counted as an error.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if statusOnly {
				return runStatus(cmd, ctx, args, nameFlag)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.ensureLogger()

			root, err := resolveRoot(args)
			if err != nil {
				return err
			}

			name := cfg.Sidecar.FileName
			if nameFlag != "" {
				name = nameFlag
			}
			toolName := cfg.Sidecar.HashTool
			if toolFlag != "" {
				toolName = toolFlag
			}
			pct := cfg.Verify.Percent
			if cmd.Flags().Changed("percent") {
				pct = percent
			}
			if pct < 0 || pct > 100 {
				return services.Wrap(services.ErrConfiguration, "verify", "validate percent", fmt.Sprintf("%d is out of range", pct), nil)
			}

			if status := deps.CheckHashTool(toolName); !status.Available {
				return services.Wrap(services.ErrConfiguration, "verify", "check hash tool", status.Detail, nil)
			}
			tool, err := hashtool.New(toolName, hashtool.WithTimeout(time.Duration(cfg.Verify.ToolTimeoutSeconds)*time.Second))
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "verify", "configure hash tool", "", err)
			}

			items, parseErrors, err := schedule.Discover(root, name, logger)
			if err != nil {
				return services.Wrap(services.ErrIO, "verify", "discover sidecars", root, err)
			}
			plan := schedule.Build(items, pct, parseErrors)

			runner := verify.New(tool, logger,
				verify.WithOutput(cmd.OutOrStdout()),
				verify.WithQuiet(quiet),
				verify.WithLockWait(time.Duration(cfg.Verify.LockWaitSeconds)*time.Second),
			)

			started := time.Now().UTC()
			summary, err := runner.Run(cmd.Context(), plan)
			if err != nil {
				return err
			}
			finished := time.Now().UTC()

			if cfg.History.Enabled {
				if err := recordRun(cmd, cfg.History.Path, root, started, finished, summary); err != nil {
					logger.Warn("recording run history failed", logging.Error(err))
				}
			}

			printer := message.NewPrinter(language.English)
			printer.Fprintf(cmd.OutOrStdout(), "%d/%d checksums checked, %d errors found\n",
				summary.CheckedRecords, summary.TotalRecords, summary.Errors())

			if summary.Errors() > 0 {
				return services.Wrap(services.ErrIntegrity, "verify", "", fmt.Sprintf("%d errors found", summary.Errors()), nil)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&percent, "percent", 100, "Share of all checksums to verify in this run (overrides config)")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Suppress per-file progress logging")
	cmd.Flags().BoolVar(&statusOnly, "status", false, "Report existing metadata without checking anything")
	cmd.Flags().StringVar(&toolFlag, "hash-tool", "", "Hashing tool command (overrides config)")
	cmd.Flags().StringVar(&nameFlag, "name", "", "Sidecar file name (overrides config)")

	return cmd
}

func recordRun(cmd *cobra.Command, dbPath, root string, started, finished time.Time, summary verify.Summary) error {
	store, err := history.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	run := history.Run{
		ID:             uuid.NewString(),
		Root:           root,
		Mode:           "verify",
		StartedAt:      started,
		FinishedAt:     finished,
		FilesChecked:   summary.FilesChecked,
		RecordsChecked: summary.CheckedRecords,
		Failures:       summary.Failures,
		Errors:         summary.Errors(),
	}
	files := make([]history.FileOutcome, 0, len(summary.Results))
	for _, result := range summary.Results {
		files = append(files, history.FileOutcome{
			Path:     result.Path,
			Records:  result.Records,
			Failures: result.Failures,
			Skipped:  result.Skipped,
		})
	}
	return store.RecordRun(cmd.Context(), run, files)
}
