package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/peter-kozarec/barsim/pkg/bus"
	"github.com/peter-kozarec/barsim/pkg/config"
	"github.com/peter-kozarec/barsim/pkg/feed"
	"github.com/peter-kozarec/barsim/pkg/middleware"
	"github.com/peter-kozarec/barsim/pkg/simulation"
	"github.com/peter-kozarec/barsim/pkg/tools/metrics"
)

const feedShutdownTimeout = 5 * time.Second

func runCmd() *cobra.Command {
	var (
		configPath string
		feedAddr   string
		monitor    []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single backtest and print its report",
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
			flags, ok := middleware.ParseMonitorFlags(monitor)
			if !ok {
				return fmt.Errorf("unknown monitor flag in %v", monitor)
			}
			return runBacktest(cmd.Context(), logger, cfg, flags, feedAddr, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Run configuration (.toml, .yaml or .json)")
	cmd.Flags().StringVar(&feedAddr, "feed-addr", "", "Serve the live event feed on this address, e.g. :8080")
	cmd.Flags().StringSliceVar(&monitor, "monitor", []string{"trades"}, "Events to log (bars, signals, orders_placed, orders_filled, orders_rejected, orders_cancelled, risk_decisions, trades, equity, all, none)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runBacktest(ctx context.Context, logger *zap.Logger, cfg *config.Run, flags middleware.MonitorFlags, feedAddr string, out io.Writer) error {
	capacity := cfg.Simulation.EventCapacity
	if capacity <= 0 {
		capacity = simulation.DefaultEventCapacity
	}

	monitor := middleware.NewMonitor(logger, flags)
	telemetry := middleware.NewTelemetry(logger)
	audit := metrics.NewAudit()
	router := bus.NewRouter(logger, capacity)

	router.OnBar = telemetry.WithBar(monitor.WithBar(middleware.NoopBarHdl))
	router.OnSignal = telemetry.WithSignal(monitor.WithSignal(middleware.NoopSignalHdl))
	router.OnOrderPlaced = telemetry.WithOrder(monitor.WithOrder(middleware.NoopOrderHdl))
	router.OnOrderFilled = telemetry.WithOrder(monitor.WithOrder(middleware.NoopOrderHdl))
	router.OnOrderRejected = telemetry.WithOrder(monitor.WithOrder(middleware.NoopOrderHdl))
	router.OnOrderCancelled = telemetry.WithOrder(monitor.WithOrder(middleware.NoopOrderHdl))
	router.OnRiskDecision = telemetry.WithRiskDecision(monitor.WithRiskDecision(middleware.NoopRiskDecisionHdl))
	router.OnTrade = telemetry.WithTrade(monitor.WithTrade(audit.OnTrade))
	router.OnEquity = telemetry.WithEquity(monitor.WithEquity(audit.OnEquity))

	if feedAddr != "" {
		stop := serveFeed(logger, router, feedAddr)
		defer stop()
	}

	source, closeSource, err := simulation.OpenSource(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeSource() }()

	b, err := simulation.Build(logger, cfg, simulation.WithRouter(router))
	if err != nil {
		return err
	}

	defer router.PrintStatistics()
	defer telemetry.PrintStatistics()

	result, err := b.Run(ctx, source)
	if err != nil {
		return err
	}

	report := audit.GenerateReport()
	report.Print(logger)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		ExecutionId string         `json:"execution_id"`
		Steps       int64          `json:"steps"`
		Report      metrics.Report `json:"report"`
		Cash        string         `json:"cash"`
		Positions   any            `json:"positions"`
	}{
		ExecutionId: result.ExecutionId.String(),
		Steps:       result.Steps,
		Report:      report,
		Cash:        result.Cash.String(),
		Positions:   result.Positions,
	})
}

// serveFeed starts the websocket feed on addr and returns its shutdown.
func serveFeed(logger *zap.Logger, router *bus.Router, addr string) func() {
	hub := feed.NewHub(logger)
	hub.Attach(router)

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("event feed listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("event feed stopped", zap.Error(err))
		}
	}()

	return func() {
		hub.Close()
		ctx, cancel := context.WithTimeout(context.Background(), feedShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
