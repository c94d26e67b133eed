package main

import (
	"fmt"
	"io"
	"runtime"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/peter-kozarec/barsim/pkg/sweep"
)

func sweepCmd() *cobra.Command {
	var (
		configPath string
		symbol     string
		workers    int
		redisAddr  string
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the sensitivity grids around a configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, env, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			cfg, err := loadConfig(configPath, env)
			if err != nil {
				return err
			}

			symbols := cfg.Symbols()
			if symbol == "" {
				symbol = symbols[0]
			}
			if !slices.Contains(symbols, symbol) {
				return fmt.Errorf("symbol %q is not in the market", symbol)
			}

			if !cmd.Flags().Changed("workers") && env.Workers > 0 {
				workers = env.Workers
			}
			if redisAddr == "" {
				redisAddr = env.RedisAddr
			}

			var cache sweep.Cache = sweep.NewMemoryCache()
			if redisAddr != "" {
				rdb, err := sweep.DialRedis(cmd.Context(), redisAddr)
				if err != nil {
					return err
				}
				defer func() { _ = rdb.Close() }()
				cache = sweep.NewRedisCache(rdb, sweep.DefaultRedisPrefix, sweep.DefaultRedisTTL)
			}

			grids := sweep.StandardGrids(cfg, symbol)
			jobs := sweep.Jobs(grids...)
			logger.Info("sweep started",
				zap.String("symbol", symbol),
				zap.Int("grids", len(grids)),
				zap.Int("jobs", len(jobs)),
				zap.Int("workers", workers),
				zap.Bool("redis", redisAddr != ""))

			// per run logs would drown the tables
			quiet := logger.WithOptions(zap.IncreaseLevel(zap.WarnLevel))
			runner := sweep.NewRunner(logger, cache, workers, sweep.Backtest(quiet))

			outcomes, err := runner.Run(cmd.Context(), jobs)
			if err != nil {
				return err
			}
			return writeTables(cmd.OutOrStdout(), grids, outcomes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Base run configuration (.toml, .yaml or .json)")
	cmd.Flags().StringVar(&symbol, "symbol", "", "Symbol whose strategies are varied, defaults to the first market symbol")
	cmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "Parallel backtests, overrides BARSIM_WORKERS")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "Share results through redis at this address, overrides BARSIM_REDIS_ADDR")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func writeTables(w io.Writer, grids []sweep.Grid, outcomes []sweep.Outcome) error {
	for _, g := range grids {
		if err := sweep.WriteTable(w, g, outcomes); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
