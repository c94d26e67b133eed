package sweep

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/peter-kozarec/barsim/pkg/config"
	"github.com/peter-kozarec/barsim/pkg/simulation"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

const runnerComponentName = "sweep.runner"

// Metrics is the part of a run a sweep keeps.
type Metrics struct {
	Sharpe      fixed.Point `json:"sharpe"`
	HasSharpe   bool        `json:"has_sharpe"`
	TotalReturn fixed.Point `json:"total_return"`
	MaxDrawdown fixed.Point `json:"max_drawdown"`
	FinalEquity fixed.Point `json:"final_equity"`
	Trades      int         `json:"trades"`
}

func MetricsFromResult(result *simulation.Result) Metrics {
	report := result.Report()
	return Metrics{
		Sharpe:      report.SharpeRatio,
		HasSharpe:   report.HasSharpe,
		TotalReturn: report.TotalReturn,
		MaxDrawdown: report.MaxDrawdown,
		FinalEquity: report.FinalEquity,
		Trades:      report.TotalTrades,
	}
}

type Outcome struct {
	Job     Job
	Key     string
	Metrics Metrics
	Cached  bool
}

// Evaluator runs the backtest of a single configuration.
type Evaluator func(ctx context.Context, cfg *config.Run) (Metrics, error)

// Backtest evaluates a configuration with a full backtest on its own sources.
func Backtest(logger *zap.Logger) Evaluator {
	return func(ctx context.Context, cfg *config.Run) (Metrics, error) {
		source, closeSource, err := simulation.OpenSource(ctx, logger, cfg)
		if err != nil {
			return Metrics{}, err
		}
		defer func() { _ = closeSource() }()

		b, err := simulation.Build(logger, cfg)
		if err != nil {
			return Metrics{}, err
		}
		result, err := b.Run(ctx, source)
		if err != nil {
			return Metrics{}, err
		}
		return MetricsFromResult(result), nil
	}
}

// Runner evaluates jobs in parallel. Jobs with equal configurations are
// evaluated once, whether they overlap in time or not.
type Runner struct {
	logger   *zap.Logger
	cache    Cache
	evaluate Evaluator
	workers  int

	inflight singleflight.Group
}

// NewRunner limits parallelism to workers, zero or less means unlimited.
func NewRunner(logger *zap.Logger, cache Cache, workers int, evaluate Evaluator) *Runner {
	return &Runner{
		logger:   logger.Named(runnerComponentName),
		cache:    cache,
		evaluate: evaluate,
		workers:  workers,
	}
}

// Run returns the outcomes in job order. The first failing job cancels the rest.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Outcome, error) {
	outcomes := make([]Outcome, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	if r.workers > 0 {
		g.SetLimit(r.workers)
	}

	for i, job := range jobs {
		g.Go(func() error {
			outcome, err := r.runJob(ctx, job)
			if err != nil {
				return fmt.Errorf("%s [%d, %d]: %w", job.Grid, job.Row, job.Col, err)
			}
			outcomes[i] = outcome
			r.logger.Debug("sweep job done",
				zap.String("grid", job.Grid),
				zap.Int("row", job.Row),
				zap.Int("col", job.Col),
				zap.Bool("cached", outcome.Cached))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (r *Runner) runJob(ctx context.Context, job Job) (Outcome, error) {
	key, err := Key(&job.Config)
	if err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{Job: job, Key: key}
	if m, ok, err := r.cache.Get(ctx, key); err != nil {
		return Outcome{}, err
	} else if ok {
		outcome.Metrics, outcome.Cached = m, true
		return outcome, nil
	}

	v, err, shared := r.inflight.Do(key, func() (any, error) {
		// a caller that missed the cache may arrive after the first evaluation finished
		if m, ok, err := r.cache.Get(ctx, key); err != nil {
			return Metrics{}, err
		} else if ok {
			return m, nil
		}

		cfg := job.Config
		m, err := r.evaluate(ctx, &cfg)
		if err != nil {
			return Metrics{}, err
		}
		if err := r.cache.PutIfAbsent(ctx, key, m); err != nil {
			return Metrics{}, err
		}
		return m, nil
	})
	if err != nil {
		return Outcome{}, err
	}

	outcome.Metrics = v.(Metrics)
	outcome.Cached = shared
	return outcome, nil
}
