package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/esafeeds/devenv/pkg/config"
	"github.com/esafeeds/devenv/pkg/presenter"
	"github.com/esafeeds/devenv/pkg/shell"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Print a script that bootstraps and activates the environment in the calling shell",
	Long: `Bootstrap the environment and print shell code that activates it. A process
cannot change its parent's environment, so the calling shell evaluates the
output:

  eval "$(devenv hook)"               # bash, zsh, sh
  devenv hook --shell fish | source   # fish

On failure the script is "false", so the eval fails too.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		flag, _ := cmd.Flags().GetString("shell")
		kind, err := shell.ParseKind(flag)
		if err != nil {
			return err
		}
		if kind == shell.Auto {
			kind = shell.Detect(cmd.Context())
		}

		return writeHook(cmd.Context(), appConfig, kind, cmd.OutOrStdout())
	},
}

func init() {
	addVenvFlags(hookCmd)
	hookCmd.Flags().String("shell", "auto", "Shell to render for (auto, bash, zsh, fish, sh)")
}

// writeHook writes the activation script for kind. The confirmation line is
// echoed by the script itself, so stdout only ever carries shell code.
func writeHook(ctx context.Context, cfg *config.Config, kind shell.Kind, out io.Writer) error {
	result, err := bootstrapEnvironment(ctx, cfg, io.Discard)
	if err != nil {
		fmt.Fprintln(out, shell.FailCommand)
		return errors.Wrap(err, "failed to bootstrap environment")
	}

	var script strings.Builder
	script.WriteString(result.Activation.Script(kind))
	if !presenter.IsQuiet() {
		script.WriteString(shell.Echo(kind, result.Message))
		script.WriteString("\n")
	}
	_, err = io.WriteString(out, script.String())
	return err
}
