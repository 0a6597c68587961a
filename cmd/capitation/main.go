package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vsinha/capitation/pkg/interfaces/cli/commands"
)

type globalFlags struct {
	logFormat string
	logLevel  string
}

func main() {
	var (
		config commands.Config
		global globalFlags
	)

	rootCmd := &cobra.Command{
		Use:           "capitation",
		Short:         "Primary-care capitation budget simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&config.ConfigPath, "config", "c", "policy.yaml", "Path to the policy file")
	rootCmd.PersistentFlags().StringVarP(&config.OutputDir, "output", "o", "", "Output directory for results (optional)")
	rootCmd.PersistentFlags().StringVarP(&config.Format, "format", "f", "text", "Output format: text, json, csv")
	rootCmd.PersistentFlags().StringVar(&config.MetricsFile, "metrics", "", "Write stage gauges to this Prometheus textfile")
	rootCmd.PersistentFlags().BoolVarP(&config.Verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&global.logFormat, "log-format", "text", "Log format: text, json")
	rootCmd.PersistentFlags().StringVar(&global.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(runCmd(&config, &global))
	rootCmd.AddCommand(watchCmd(&config, &global))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func runCmd(config *commands.Config, global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once and write its results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(global, config.Verbose)
			if err != nil {
				return err
			}
			return commands.NewRunCommand(*config, logger).Execute(cmd.Context())
		},
	}
}

func watchCmd(config *commands.Config, global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the pipeline and rerun it whenever the policy file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(global, config.Verbose)
			if err != nil {
				return err
			}
			return commands.NewWatchCommand(*config, logger).Execute(cmd.Context())
		},
	}
}

// newLogger builds the process logger and installs it as the default so
// packages logging through slog.Default() share its handler. Verbose forces
// debug level.
func newLogger(global *globalFlags, verbose bool) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(global.logLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", global.logLevel, err)
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch global.logFormat {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return nil, fmt.Errorf("unsupported log format: %s", global.logFormat)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}
