package main

import (
	"context"
	"fmt"
	"io"

	"github.com/esafeeds/devenv/pkg/config"
	"github.com/esafeeds/devenv/pkg/jsonscan"
	"github.com/esafeeds/devenv/pkg/presenter"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan <directory>",
	Short: "Report the value types used by each key across JSON files",
	Long: `Analyze every *.json file below a directory, each holding an array of
objects, and report for every key how often each JSON type occurs.

Examples:
  devenv scan /tmp/esa-feeds
  devenv scan ./feeds --format jsonschema > feed.schema.json
  devenv scan ./feeds --exclude 'archive/**' --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd.Context(), appConfig, args[0], cmd.OutOrStdout())
	},
}

// runScan writes the report for dir to out. Files that could not be analyzed
// are reported as warnings and left out of the report.
func runScan(ctx context.Context, cfg *config.Config, dir string, out io.Writer) error {
	result, err := jsonscan.Scan(ctx, dir, jsonscan.Options{
		Exclude:     cfg.Scan.Exclude,
		Concurrency: cfg.ScanWorkers(),
	})
	if err != nil {
		return err
	}

	for _, w := range result.Warnings {
		presenter.Warning(w.String())
	}
	if cfg.Scan.Format == jsonscan.FormatText && len(result.Files) > 0 {
		presenter.Info(fmt.Sprintf("Analyzed %d JSON files", len(result.Files)))
	}
	return jsonscan.Write(out, cfg.Scan.Format, jsonscan.NewReport(result))
}

func init() {
	flags := scanCmd.Flags()
	flags.String("format", jsonscan.FormatText, "Output format (text, json, yaml, jsonschema)")
	flags.StringSlice("exclude", nil, "Glob of paths to skip, relative to the directory (repeatable)")
	flags.Int("concurrency", 0, "Number of files analyzed in parallel (0 uses every CPU)")
}
