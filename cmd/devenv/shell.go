package main

import (
	"os"
	"os/exec"

	"github.com/esafeeds/devenv/pkg/logger"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start a new shell inside the activated environment",
	Long: `Bootstrap the environment and start $SHELL (sh when unset) with the
environment activated. Leaving the shell leaves the environment.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		result, err := bootstrapEnvironment(ctx, appConfig, cmd.OutOrStdout())
		if err != nil {
			return errors.Wrap(err, "failed to bootstrap environment")
		}

		sh := userShell()
		logger.G(ctx).WithField("shell", sh).Debug("starting shell")
		return runActivated(ctx, result.Activation, []string{sh})
	},
}

func init() {
	addVenvFlags(shellCmd)
}

func userShell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	if sh, err := exec.LookPath("sh"); err == nil {
		return sh
	}
	return "/bin/sh"
}
