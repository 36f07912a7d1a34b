package main

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/esafeeds/devenv/pkg/config"
	"github.com/esafeeds/devenv/pkg/logger"
	"github.com/esafeeds/devenv/pkg/toolchain"
	"github.com/esafeeds/devenv/pkg/venv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var bootstrapCmd = &cobra.Command{
	Use:     "bootstrap [-- command [args...]]",
	Aliases: []string{"up"},
	Short:   "Create the virtual environment if needed and activate it",
	Long: `Ensure the virtual environment exists, creating it when it is absent or was
left incomplete by an interrupted run, then activate it and print
"Activated <name>".

With a trailing command the command runs inside the activated environment and
devenv exits with its status:

  devenv bootstrap -- python -m pytest`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		result, err := bootstrapEnvironment(ctx, appConfig, cmd.OutOrStdout())
		if err != nil {
			return errors.Wrap(err, "failed to bootstrap environment")
		}
		if len(args) == 0 {
			return nil
		}
		return runActivated(ctx, result.Activation, args)
	},
}

func init() {
	addVenvFlags(bootstrapCmd)
}

// addVenvFlags registers the flags shared by every command that bootstraps
func addVenvFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("path", "venv", "Virtual environment directory")
	flags.String("tool", "uv", "Environment tool (uv, python, auto)")
	flags.String("python", "3.12", "Python version requested from the tool")
	flags.String("prompt", "", "Prompt name stored in the environment")
	flags.String("uv-path", "", "Path to the uv binary, skipping PATH lookup")
	flags.String("python-path", "", "Path to the Python interpreter, skipping PATH lookup")
}

func newCreator(cfg *config.Config) (venv.Creator, error) {
	runner := toolchain.NewExecRunner()
	resolver := toolchain.NewResolver(runner,
		toolchain.WithOverride(toolchain.UV.Name, cfg.Venv.UVPath),
		toolchain.WithOverride(toolchain.Python312.Name, cfg.Venv.PythonPath),
	)
	return venv.NewToolCreator(cfg.Venv.Tool, resolver, runner)
}

func bootstrapEnvironment(ctx context.Context, cfg *config.Config, out io.Writer) (*venv.Result, error) {
	creator, err := newCreator(cfg)
	if err != nil {
		return nil, err
	}

	b := venv.New(creator,
		venv.WithOutput(out),
		venv.WithCreateOptions(venv.CreateOptions{
			Python: cfg.Venv.Python,
			Prompt: cfg.Venv.Prompt,
		}),
	)
	return b.Bootstrap(ctx, cfg.Venv.Path)
}

// runActivated runs args in the activated environment, attached to the
// terminal. The child shares devenv's process group so it receives terminal
// signals itself; devenv waits and returns its exit status.
func runActivated(ctx context.Context, act *venv.Activation, args []string) error {
	binary, err := lookPathIn(act.BinDir, args[0])
	if err != nil {
		return err
	}

	c := exec.Command(binary, args[1:]...)
	c.Env = act.Apply(os.Environ())
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr

	logger.G(ctx).WithField("command", strings.Join(args, " ")).Debug("running command in environment")
	if err := c.Run(); err != nil {
		var execErr *exec.ExitError
		if errors.As(err, &execErr) {
			return &exitCodeError{code: execErr.ExitCode()}
		}
		return errors.Wrapf(err, "failed to run %s", args[0])
	}
	return nil
}

// lookPathIn finds name in dir first, then on the current PATH. exec.Command
// would only search the PATH devenv itself was started with.
func lookPathIn(dir, name string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '/') {
		return name, nil
	}
	candidate := filepath.Join(dir, name)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() && info.Mode()&0o111 != 0 {
		return candidate, nil
	}
	found, err := exec.LookPath(name)
	if err != nil {
		return "", errors.Wrapf(err, "command %q not found in %s or on PATH", name, dir)
	}
	return found, nil
}
