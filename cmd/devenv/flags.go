package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var venvFlagKeys = map[string]string{
	"path":        "venv.path",
	"tool":        "venv.tool",
	"python":      "venv.python",
	"prompt":      "venv.prompt",
	"uv-path":     "venv.uv_path",
	"python-path": "venv.python_path",
}

// commandFlagKeys maps, per command, local flag names to config keys. Several
// commands share flag names, so binding happens for the executing command only.
var commandFlagKeys = map[string]map[string]string{
	"bootstrap": venvFlagKeys,
	"hook":      venvFlagKeys,
	"shell":     venvFlagKeys,
	"status":    venvFlagKeys,
	"extract": {
		"output-dir":  "extract.output_dir",
		"file":        "extract.file",
		"jj-path":     "extract.jj_path",
		"revset":      "extract.revset",
		"concurrency": "extract.concurrency",
	},
	"scan": {
		"format":      "scan.format",
		"exclude":     "scan.exclude",
		"concurrency": "scan.concurrency",
	},
}

func bindCommandFlags(v *viper.Viper, cmd *cobra.Command) error {
	for flag, key := range commandFlagKeys[cmd.Name()] {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}
