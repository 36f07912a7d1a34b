package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/esafeeds/devenv/pkg/presenter"
	"github.com/esafeeds/devenv/pkg/venv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the virtual environment",
	Long: `Show whether the virtual environment is absent, complete, adoptable (created
outside devenv), partial (an interrupted creation) or invalid, without changing
anything.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, _ := cmd.Flags().GetString("format")
		return writeStatus(appConfig.Venv.Path, format, os.Environ(), cmd.OutOrStdout())
	},
}

func init() {
	statusCmd.Flags().String("path", "venv", "Virtual environment directory")
	statusCmd.Flags().String("format", "text", "Output format (text, json)")
}

func writeStatus(path, format string, environ []string, out io.Writer) error {
	status, err := venv.Inspect(path)
	if err != nil {
		return err
	}
	status.Active = venv.IsActive(path, environ)

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(status), "failed to encode status")
	case "text", "":
	default:
		return errors.Errorf("unsupported format %q (supported: text, json)", format)
	}

	p := presenter.NewWithOptions(out, out, presenter.ColorAuto)
	p.Section("Environment")
	p.Field("path", status.Path)
	p.Field("state", status.State)
	p.Field("active", status.Active)
	if status.PythonVersion != "" {
		p.Field("python", status.PythonVersion)
	}
	if status.Prompt != "" {
		p.Field("prompt", status.Prompt)
	}
	if m := status.Marker; m != nil {
		p.Field("tool", m.Tool)
		if m.ToolVersion != "" {
			p.Field("tool version", m.ToolVersion)
		}
		p.Field("created", m.CreatedAt.Format("2006-01-02 15:04:05 MST"))
		if m.Adopted {
			p.Field("adopted", true)
		}
	}
	return nil
}
