package sweep

import (
	"fmt"

	"github.com/peter-kozarec/barsim/pkg/config"
	"github.com/peter-kozarec/barsim/pkg/strategy"
)

const (
	keyWeightPerStrengthUnit = "weight_per_strength_unit"
	keyMaxSymbolWeight       = "max_symbol_weight"
)

var (
	DefaultStrengthUnits   = []any{0.0, 0.01, 0.02, 0.03, 0.04}
	DefaultMaxWeights      = []any{0.2, 0.4, 0.6, 0.8, 1.0}
	DefaultStrategyWeights = []any{0.25, 0.5, 1.0, 1.5, 2.0}
)

// Job is one backtest of a grid. Row and Col index into the grid axes.
type Job struct {
	Grid   string
	Row    int
	Col    int
	Config config.Run
}

// Grid is a one or two dimensional table of configurations derived from a base.
// One dimensional grids have a single column and no column label.
type Grid struct {
	Name     string
	RowLabel string
	ColLabel string
	Rows     []any
	Cols     []any
	Jobs     []Job
}

func newGrid(name, rowLabel, colLabel string, rows, cols []any, base *config.Run, apply func(cfg *config.Run, row, col any)) Grid {
	g := Grid{Name: name, RowLabel: rowLabel, ColLabel: colLabel, Rows: rows, Cols: cols}
	if len(cols) == 0 {
		cols = []any{nil}
	}
	for i, row := range rows {
		for j, col := range cols {
			cfg := base.Clone()
			apply(&cfg, row, col)
			g.Jobs = append(g.Jobs, Job{Grid: name, Row: i, Col: j, Config: cfg})
		}
	}
	return g
}

// ExecutionGrid varies weight_per_strength_unit by row and max_symbol_weight by column.
func ExecutionGrid(base *config.Run, strengthUnits, maxWeights []any) Grid {
	return newGrid("execution sensitivity", keyWeightPerStrengthUnit, keyMaxSymbolWeight, strengthUnits, maxWeights, base,
		func(cfg *config.Run, row, col any) {
			if cfg.Execution == nil {
				cfg.Execution = map[string]any{}
			}
			cfg.Execution[keyWeightPerStrengthUnit] = row
			cfg.Execution[keyMaxSymbolWeight] = col
		})
}

// WeightGrid varies the weight of every strategy of type tag attached to symbol.
// Symbols without such a strategy produce identical jobs.
func WeightGrid(base *config.Run, symbol, tag string, weights []any) Grid {
	return newGrid(fmt.Sprintf("%s %s weight", symbol, tag), tag+"_weight", "", weights, nil, base,
		func(cfg *config.Run, row, _ any) {
			weight, ok := row.(float64)
			if !ok {
				return
			}
			for i := range cfg.Strategies[symbol] {
				if cfg.Strategies[symbol][i].Type == tag {
					cfg.Strategies[symbol][i].Weight = &weight
				}
			}
		})
}

// ParamGrid varies two params of every strategy of type tag attached to symbol.
func ParamGrid(base *config.Run, symbol, tag, paramX string, xs []any, paramY string, ys []any) Grid {
	return newGrid(fmt.Sprintf("%s %s %s vs %s", symbol, tag, paramX, paramY), paramX, paramY, xs, ys, base,
		func(cfg *config.Run, x, y any) {
			for i := range cfg.Strategies[symbol] {
				spec := &cfg.Strategies[symbol][i]
				if spec.Type != tag {
					continue
				}
				if spec.Params == nil {
					spec.Params = map[string]any{}
				}
				spec.Params[paramX] = x
				spec.Params[paramY] = y
			}
		})
}

// StandardGrids is the full sensitivity report for symbol.
func StandardGrids(base *config.Run, symbol string) []Grid {
	return []Grid{
		ExecutionGrid(base, DefaultStrengthUnits, DefaultMaxWeights),
		WeightGrid(base, symbol, strategy.TagMomentum, DefaultStrategyWeights),
		WeightGrid(base, symbol, strategy.TagMaCrossover, DefaultStrategyWeights),
		WeightGrid(base, symbol, strategy.TagRsiReversion, DefaultStrategyWeights),
		ParamGrid(base, symbol, strategy.TagMomentum,
			"period", []any{10, 20, 40, 60},
			"threshold", []any{0.01, 0.02, 0.03, 0.05}),
		ParamGrid(base, symbol, strategy.TagMaCrossover,
			"fast", []any{5, 10, 20},
			"slow", []any{30, 50, 100}),
		ParamGrid(base, symbol, strategy.TagRsiReversion,
			"overbought", []any{60, 70, 80},
			"oversold", []any{20, 30, 40}),
	}
}

// Jobs flattens the jobs of all grids.
func Jobs(grids ...Grid) []Job {
	var jobs []Job
	for _, g := range grids {
		jobs = append(jobs, g.Jobs...)
	}
	return jobs
}
