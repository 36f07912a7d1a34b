package main

import (
	"fmt"

	"github.com/esafeeds/devenv/pkg/extract"
	"github.com/esafeeds/devenv/pkg/jj"
	"github.com/esafeeds/devenv/pkg/presenter"
	"github.com/esafeeds/devenv/pkg/toolchain"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Save every version of a file from the jj history",
	Long: `Save every version of a file tracked in the jj repository of the current
directory. Each version is written to <output-dir>/<timestamp>_<commit>.json,
the timestamp being the commit's author time in seconds since the epoch.

Examples:
  devenv extract
  devenv extract --file data/feed.json --output-dir ./feeds --concurrency 8`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := appConfig.Extract
		client := jj.NewClient(cfg.JJPath, toolchain.NewExecRunner())

		summary, err := extract.Run(cmd.Context(), client, extract.Options{
			OutputDir:   cfg.OutputDir,
			File:        cfg.File,
			Revset:      cfg.Revset,
			Concurrency: cfg.Concurrency,
		})
		if summary != nil {
			presenter.Info(fmt.Sprintf("Processed %d commits: %d extracted, %d failed",
				summary.Commits, summary.Succeeded, summary.Failed))
		}
		if err != nil {
			return errors.Wrap(err, "some files failed to extract")
		}

		presenter.Success(fmt.Sprintf("Extracted %d versions of %s to %s", summary.Succeeded, cfg.File, cfg.OutputDir))
		return nil
	},
}

func init() {
	flags := extractCmd.Flags()
	flags.StringP("output-dir", "o", extract.DefaultOutputDir, "Directory the versions are written to")
	flags.StringP("file", "f", extract.DefaultFile, "File to extract, relative to the repository root")
	flags.String("jj-path", jj.DefaultBinary, "Path to the jj executable")
	flags.String("revset", jj.DefaultRevset, "Revisions to extract from")
	flags.Int("concurrency", extract.DefaultConcurrency, "Maximum number of concurrent jj invocations")
}
