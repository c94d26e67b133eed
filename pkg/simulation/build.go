package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/barsim/pkg/bus"
	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/config"
	"github.com/peter-kozarec/barsim/pkg/datasource"
	"github.com/peter-kozarec/barsim/pkg/datasource/duckdb"
	"github.com/peter-kozarec/barsim/pkg/datasource/historical"
	"github.com/peter-kozarec/barsim/pkg/datasource/resample"
	"github.com/peter-kozarec/barsim/pkg/datasource/synthetic"
	"github.com/peter-kozarec/barsim/pkg/exchange/sandbox"
	"github.com/peter-kozarec/barsim/pkg/tools/execution"
	"github.com/peter-kozarec/barsim/pkg/tools/position"
	"github.com/peter-kozarec/barsim/pkg/tools/risk"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

// Build creates a backtester from a validated run configuration. Extra options
// are applied after the ones derived from cfg.
func Build(logger *zap.Logger, cfg *config.Run, options ...Option) (*Backtester, error) {
	settings, err := execution.ParseSettings(cfg.Execution)
	if err != nil {
		return nil, err
	}
	riskCfg, err := risk.ParseConfiguration(cfg.Risk)
	if err != nil {
		return nil, err
	}

	cash := fixed.FromFloat64(cfg.Portfolio.Cash)
	if riskCfg.InitialCapital.IsZero() {
		riskCfg.InitialCapital = cash
	}

	positions := make([]common.Position, 0, len(cfg.Portfolio.Positions))
	for _, p := range cfg.Portfolio.Positions {
		positions = append(positions, common.Position{
			Symbol:   p.Symbol,
			Quantity: p.Quantity,
			AvgPrice: fixed.FromFloat64(p.AvgPrice),
		})
	}

	sim := cfg.Simulation
	var engineOptions []sandbox.Option
	if sim.RejectChance != nil {
		engineOptions = append(engineOptions, sandbox.WithRejectChance(*sim.RejectChance))
	}
	if sim.PartialFillChance != nil {
		engineOptions = append(engineOptions, sandbox.WithPartialFillChance(*sim.PartialFillChance))
	}

	base := []Option{
		WithMaxHistory(sim.MaxHistory),
		WithMaxSteps(sim.MaxSteps),
		WithFee(fixed.FromFloat64(sim.Fee)),
		WithEngineOptions(engineOptions...),
	}
	if sim.EventCapacity > 0 {
		base = append(base, WithRouter(bus.NewRouter(logger, sim.EventCapacity)))
	}

	b, err := NewBacktester(logger, position.NewLedger(cash, positions...), settings, riskCfg, sim.Seed, append(base, options...)...)
	if err != nil {
		return nil, err
	}

	for _, symbol := range cfg.Symbols() {
		for _, spec := range cfg.Strategies[symbol] {
			if err := b.AddStrategy(symbol, spec.Type, spec.Params, fixed.FromFloat64(spec.EffectiveWeight())); err != nil {
				return nil, fmt.Errorf("%s: %w", symbol, err)
			}
		}
	}
	return b, nil
}

// OpenSource builds the aligned bar source of the market section. The returned
// close function releases memory mapped files.
func OpenSource(ctx context.Context, logger *zap.Logger, cfg *config.Run) (datasource.BarSource, func() error, error) {
	var closers []func() error
	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}

	sources := make(map[string]datasource.SymbolSource, len(cfg.Market.Sources))
	for i, spec := range cfg.Market.Sources {
		src, closer, err := openSymbolSource(ctx, logger, spec, cfg.Simulation.Seed+int64(i))
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("%s: %w", spec.Symbol, err)
		}
		if closer != nil {
			closers = append(closers, closer)
		}
		sources[spec.Symbol] = src
	}

	if cfg.Market.Align == config.AlignLockstep {
		return datasource.NewLockstep(sources), closeAll, nil
	}
	return datasource.NewAligner(sources), closeAll, nil
}

func openSymbolSource(ctx context.Context, logger *zap.Logger, spec config.SourceSpec, seed int64) (datasource.SymbolSource, func() error, error) {
	source, closer, err := openRawSource(ctx, logger, spec, seed)
	if err != nil || spec.Resample == "" {
		return source, closer, err
	}

	fail := func(err error) (datasource.SymbolSource, func() error, error) {
		if closer != nil {
			_ = closer()
		}
		return nil, nil, err
	}

	period, err := time.ParseDuration(spec.Resample)
	if err != nil {
		return fail(err)
	}
	resampler, err := resample.NewResampler(source, period)
	if err != nil {
		return fail(err)
	}
	return resampler, closer, nil
}

func openRawSource(ctx context.Context, logger *zap.Logger, spec config.SourceSpec, seed int64) (datasource.SymbolSource, func() error, error) {
	from, err := config.ParseTime(spec.From)
	if err != nil {
		return nil, nil, err
	}
	to, err := config.ParseTime(spec.To)
	if err != nil {
		return nil, nil, err
	}

	switch spec.Kind {
	case config.KindBinary:
		source := historical.NewSource[historical.BinaryBar](spec.Path)
		if err := source.Open(); err != nil {
			return nil, nil, err
		}
		return historical.NewBarReader(source, spec.Symbol, from, to), source.Close, nil

	case config.KindCSV:
		bars, err := loadBars(ctx, "", spec.Symbol, duckdb.CSVQuery(spec.Path, spec.TimeColumn))
		if err != nil {
			return nil, nil, err
		}
		return datasource.NewSliceSource(withinRange(bars, from, to)), nil, nil

	case config.KindDuckDB:
		if spec.Query != "" {
			bars, err := loadBars(ctx, spec.Path, spec.Symbol, spec.Query)
			if err != nil {
				return nil, nil, err
			}
			return datasource.NewSliceSource(withinRange(bars, from, to)), nil, nil
		}
		query, args := duckdb.TableQuery(spec.Table, from, to)
		bars, err := loadBars(ctx, spec.Path, spec.Symbol, query, args...)
		if err != nil {
			return nil, nil, err
		}
		return datasource.NewSliceSource(bars), nil, nil

	case config.KindSynthetic:
		start, err := config.ParseTime(spec.Synthetic.Start)
		if err != nil {
			return nil, nil, err
		}
		var interval time.Duration
		if spec.Synthetic.Interval != "" {
			if interval, err = time.ParseDuration(spec.Synthetic.Interval); err != nil {
				return nil, nil, err
			}
		}
		return synthetic.NewBarGenerator(logger, spec.Symbol, rand.New(rand.NewSource(seed)), synthetic.Parameters{
			Start:      start,
			StartPrice: fixed.FromFloat64(spec.Synthetic.StartPrice),
			Mu:         spec.Synthetic.Mu,
			Sigma:      spec.Synthetic.Sigma,
			Bars:       spec.Synthetic.Bars,
			Interval:   interval,
		}), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown source kind %q", spec.Kind)
	}
}

func loadBars(ctx context.Context, dsn, symbol, query string, args ...any) ([]common.Bar, error) {
	reader := duckdb.NewReader(dsn)
	if err := reader.Connect(); err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	return reader.LoadBars(ctx, symbol, query, args...)
}

func withinRange(bars []common.Bar, from, to time.Time) []common.Bar {
	out := bars[:0]
	for _, bar := range bars {
		if !from.IsZero() && bar.TimeStamp.Before(from) {
			continue
		}
		if !to.IsZero() && bar.TimeStamp.After(to) {
			continue
		}
		out = append(out, bar)
	}
	return out
}
