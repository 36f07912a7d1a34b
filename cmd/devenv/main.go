package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/esafeeds/devenv/pkg/config"
	"github.com/esafeeds/devenv/pkg/logger"
	"github.com/esafeeds/devenv/pkg/presenter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// appConfig is loaded once flags are parsed, before any command runs
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "devenv",
	Short: "Bootstrap and activate the project's Python virtual environment",
	Long: `devenv makes sure the project's virtual environment exists, creating it with
uv (or the Python 3.12 venv module) when it is absent, and activates it.

Typical use is from a shell hook:

  eval "$(devenv hook)"

It also carries the feed history tools: 'devenv extract' saves every version of
feed.json from the jj repository, 'devenv scan' reports the structure of the
extracted files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := bindCommandFlags(viper.GetViper(), cmd); err != nil {
			return err
		}
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		appConfig = cfg

		if err := logger.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
			return err
		}
		if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
			presenter.SetQuiet(true)
		}

		return initTracing(cmd.Context(), cfg)
	},
}

func init() {
	if err := config.Init(viper.GetViper(), config.DefaultSearchPaths()...); err != nil {
		presenter.Error(err, "Failed to load configuration")
		os.Exit(1)
	}

	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "info", "Log level (panic, fatal, error, warn, info, debug, trace)")
	flags.String("log-format", "fmt", "Log format (fmt, json)")
	flags.String("profile", "", "Configuration profile to apply")
	flags.BoolP("quiet", "q", false, "Suppress informational messages")

	viper.BindPFlag("log_level", flags.Lookup("log-level"))
	viper.BindPFlag("log_format", flags.Lookup("log-format"))
	viper.BindPFlag("profile", flags.Lookup("profile"))
}

func main() {
	rootCmd.AddCommand(withTracing(bootstrapCmd))
	rootCmd.AddCommand(withTracing(hookCmd))
	rootCmd.AddCommand(withTracing(shellCmd))
	rootCmd.AddCommand(withTracing(statusCmd))
	rootCmd.AddCommand(withTracing(extractCmd))
	rootCmd.AddCommand(withTracing(scanCmd))
	rootCmd.AddCommand(versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		var exitErr *exitCodeError
		if !errors.As(err, &exitErr) {
			presenter.Error(err, "")
		}
		exit(ctx, exitCode(err))
	}
	exit(ctx, 0)
}

// exitCodeError carries the exit status of a command devenv ran for the user.
// The command already reported its own failure, so nothing more is printed.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func exitCode(err error) int {
	var exitErr *exitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	return 1
}

// exit flushes pending spans before leaving the process
func exit(ctx context.Context, code int) {
	shutdownTracing(context.WithoutCancel(ctx))
	os.Exit(code)
}
