package main

import (
	"context"

	"github.com/esafeeds/devenv/pkg/config"
	"github.com/esafeeds/devenv/pkg/logger"
	"github.com/esafeeds/devenv/pkg/telemetry"
	"github.com/esafeeds/devenv/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = telemetry.Tracer("devenv.cli")

	tracingShutdown func(context.Context) error
)

func initTracing(ctx context.Context, cfg *config.Config) error {
	tc := cfg.Tracing
	tc.ServiceName = "devenv"
	tc.ServiceVersion = version.Get().Version

	shutdown, err := telemetry.InitTracer(ctx, tc)
	if err != nil {
		return err
	}
	tracingShutdown = shutdown
	return nil
}

func shutdownTracing(ctx context.Context) {
	if tracingShutdown == nil {
		return
	}
	if err := tracingShutdown(ctx); err != nil {
		logger.G(ctx).WithError(err).Debug("failed to flush traces")
	}
}

// withTracing wraps a command's RunE in a cli.command span
func withTracing(cmd *cobra.Command) *cobra.Command {
	originalRunE := cmd.RunE

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		attrs := []attribute.KeyValue{
			attribute.String("command.name", cmd.Name()),
			attribute.String("command.path", cmd.CommandPath()),
			attribute.Int("args.count", len(args)),
		}
		cmd.Flags().Visit(func(flag *pflag.Flag) {
			attrs = append(attrs, attribute.String("flag."+flag.Name, flag.Value.String()))
		})

		ctx, span := tracer.Start(cmd.Context(), "cli.command", trace.WithAttributes(attrs...))
		defer span.End()
		cmd.SetContext(ctx)

		if err := originalRunE(cmd, args); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		span.SetStatus(codes.Ok, "")
		return nil
	}

	return cmd
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.Bool("tracing-enabled", false, "Enable OpenTelemetry tracing")
	flags.String("tracing-sampler", "always", "Tracing sampler type (always, never, ratio)")
	flags.Float64("tracing-ratio", 1, "Sampling ratio when using ratio sampler")

	viper.BindPFlag("tracing.enabled", flags.Lookup("tracing-enabled"))
	viper.BindPFlag("tracing.sampler", flags.Lookup("tracing-sampler"))
	viper.BindPFlag("tracing.ratio", flags.Lookup("tracing-ratio"))
}
