package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"scrub/internal/deps"
	"scrub/internal/logging"
	"scrub/internal/reconcile"
	"scrub/internal/services"
	"scrub/internal/services/hashtool"
	"scrub/internal/walk"
)

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var (
		depth    int
		update   bool
		include  []string
		exclude  []string
		minSize  int64
		maxSize  int64
		toolFlag string
		nameFlag string
	)

	cmd := &cobra.Command{
		Use:   "create [root]",
		Short: "Create checksum sidecars for every directory under root",
		Long: `Create walks the directory tree under root and writes a checksum sidecar
into each directory, one record per eligible file. Directories that already
have a sidecar are left alone unless --update is given, in which case new
files are appended and records for vanished files are dropped. Existing
records are never re-hashed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			filter := cfg.FileFilter()
			if cmd.Flags().Changed("include") {
				filter.Include = include
			}
			if cmd.Flags().Changed("exclude") {
				filter.Exclude = exclude
			}
			if cmd.Flags().Changed("min-size") {
				filter.MinSize = minSize
			}
			if cmd.Flags().Changed("max-size") {
				filter.MaxSize = maxSize
			}
			if err := filter.Validate(); err != nil {
				return services.Wrap(services.ErrConfiguration, "create", "validate filter", "", err)
			}

			if status := deps.CheckHashTool(toolName); !status.Available {
				return services.Wrap(services.ErrConfiguration, "create", "check hash tool", status.Detail, nil)
			}
			tool, err := hashtool.New(toolName, hashtool.WithTimeout(time.Duration(cfg.Verify.ToolTimeoutSeconds)*time.Second))
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "create", "configure hash tool", "", err)
			}

			dirs, err := walk.Dirs(root, depth)
			if err != nil {
				return services.Wrap(services.ErrIO, "create", "walk tree", root, err)
			}

			engine := reconcile.New(tool, logger)
			out := cmd.OutOrStdout()

			var created, updated, skipped, dirErrors int
			for _, dir := range dirs {
				sidecarPath := filepath.Join(dir, name)
				exists := true
				if _, err := os.Stat(sidecarPath); err != nil {
					if !errors.Is(err, fs.ErrNotExist) {
						logger.Warn("skipping directory", logging.String("dir", dir), logging.Error(err))
						dirErrors++
						continue
					}
					exists = false
				}
				if exists && !update {
					skipped++
					continue
				}

				eligible, err := walk.Eligible(dir, name, filter)
				if err != nil {
					logger.Warn("listing directory failed", logging.String("dir", dir), logging.Error(err))
					dirErrors++
					continue
				}

				result, err := engine.Reconcile(cmd.Context(), dir, sidecarPath, eligible)
				if err != nil {
					if cmd.Context().Err() != nil {
						return cmd.Context().Err()
					}
					logger.Warn("reconcile failed", logging.String("dir", dir), logging.Error(err))
					dirErrors++
					continue
				}
				switch {
				case result.Created:
					created++
					fmt.Fprintf(out, "%s: %d checksums written\n", sidecarPath, result.Added)
				case result.Changed():
					updated++
					fmt.Fprintf(out, "%s: %d added, %d removed\n", sidecarPath, result.Added, result.Removed)
				}
			}

			fmt.Fprintf(out, "%d sidecars created, %d updated, %d unchanged\n", created, updated, skipped)
			if dirErrors > 0 {
				return services.Wrap(services.ErrIntegrity, "create", "", fmt.Sprintf("%d directories failed", dirErrors), nil)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&depth, "depth", -1, "How many directory levels below root to descend (-1 for unlimited)")
	cmd.Flags().BoolVar(&update, "update", false, "Reconcile directories that already have a sidecar")
	cmd.Flags().StringSliceVar(&include, "include", nil, "File name patterns to include (overrides config)")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "File name patterns to exclude (overrides config)")
	cmd.Flags().Int64Var(&minSize, "min-size", 0, "Minimum file size in bytes (overrides config)")
	cmd.Flags().Int64Var(&maxSize, "max-size", 0, "Maximum file size in bytes, 0 for unlimited (overrides config)")
	cmd.Flags().StringVar(&toolFlag, "hash-tool", "", "Hashing tool command (overrides config)")
	cmd.Flags().StringVar(&nameFlag, "name", "", "Sidecar file name (overrides config)")

	return cmd
}

func resolveRoot(args []string) (string, error) {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	absolute, err := filepath.Abs(root)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "resolve root", root, "", err)
	}
	info, err := os.Stat(absolute)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "resolve root", absolute, "", err)
	}
	if !info.IsDir() {
		return "", services.Wrap(services.ErrConfiguration, "resolve root", absolute, "not a directory", nil)
	}
	return absolute, nil
}
