package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/peter-kozarec/barsim/internal/dbg"
	"github.com/peter-kozarec/barsim/pkg/config"
)

const version = "0.1.0"

var (
	logLevel string
	dev      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "barsim",
		Short:        "Bar driven multi symbol portfolio backtester",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error), overrides BARSIM_LOG_LEVEL")
	rootCmd.PersistentFlags().BoolVar(&dev, "dev", false, "Human readable development logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(dumpCmd())
	rootCmd.AddCommand(versionCmd())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "barsim version %s\n", version)
		},
	}
}

// setup reads the environment and builds the logger shared by all subcommands.
func setup() (*zap.Logger, config.Env, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, config.Env{}, err
	}

	level := logLevel
	if level == "" {
		level = env.LogLevel
	}
	logger, err := dbg.NewLogger(level, dev)
	if err != nil {
		return nil, config.Env{}, err
	}
	return logger, env, nil
}

func loadConfig(path string, env config.Env) (*config.Run, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	env.Apply(cfg)
	return cfg, nil
}
