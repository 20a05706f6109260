package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"scrub/internal/checksumfile"
	"scrub/internal/schedule"
	"scrub/internal/services"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var nameFlag string

	cmd := &cobra.Command{
		Use:   "status [root]",
		Short: "Show every sidecar under root with its last check time",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, ctx, args, nameFlag)
		},
	}

	cmd.Flags().StringVar(&nameFlag, "name", "", "Sidecar file name (overrides config)")
	return cmd
}

// runStatus surfaces existing metadata without invoking the hashing tool. It
// backs both `scrub status` and `scrub verify --status`.
func runStatus(cmd *cobra.Command, ctx *commandContext, args []string, nameFlag string) error {
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

	items, parseErrors, err := schedule.Discover(root, name, logger)
	if err != nil {
		return services.Wrap(services.ErrIO, "status", "discover sidecars", root, err)
	}

	out := cmd.OutOrStdout()
	if len(items) == 0 && parseErrors == 0 {
		fmt.Fprintf(out, "No sidecars named %s found under %s\n", name, root)
		return nil
	}

	rows := make([][]string, 0, len(items))
	var totalRecords int
	for _, item := range items {
		totalRecords += item.Records
		rows = append(rows, []string{
			item.Path,
			strconv.Itoa(item.Records),
			formatLastChecked(item.Meta),
			strconv.Itoa(item.Meta.Failures),
		})
	}

	fmt.Fprintln(out, renderReport(
		[]reportColumn{
			{title: "SIDECAR"},
			{title: "RECORDS", count: true},
			{title: "LAST CHECKED"},
			{title: "FAILURES", count: true},
		},
		rows,
	))
	fmt.Fprintf(out, "%d sidecars, %d checksums\n", len(items), totalRecords)
	if parseErrors > 0 {
		fmt.Fprintf(out, "%d sidecars could not be parsed\n", parseErrors)
		return services.Wrap(services.ErrIntegrity, "status", "", fmt.Sprintf("%d unparsable sidecars", parseErrors), nil)
	}
	return nil
}

func formatLastChecked(meta checksumfile.Meta) string {
	if meta.Never() {
		return "never"
	}
	return meta.LastChecked.UTC().Format(checksumfile.TimeLayout)
}
