package sweep

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/peter-kozarec/barsim/pkg/config"
	"github.com/peter-kozarec/barsim/pkg/strategy"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

func baseConfig() *config.Run {
	cfg := config.Defaults()
	cfg.Market.Sources = []config.SourceSpec{
		{Symbol: "SYN", Kind: config.KindSynthetic, Synthetic: config.SyntheticSpec{Start: "2024-01-01", StartPrice: 100, Mu: 0.05, Sigma: 0.3, Bars: 40}},
	}
	cfg.Strategies = map[string][]config.StrategySpec{
		"SYN": {
			{Type: strategy.TagMomentum, Params: map[string]any{"period": 5, "threshold": 0.01}},
			{Type: strategy.TagRsiReversion},
		},
	}
	cfg.Execution = map[string]any{"base_weight_per_symbol": 0.05}
	cfg.Simulation.Seed = 3
	return &cfg
}

func TestKey(t *testing.T) {
	base := baseConfig()
	baseKey, err := Key(base)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(cfg *config.Run)
		same   bool
	}{
		{"clone", func(cfg *config.Run) {}, true},
		{"integral float param", func(cfg *config.Run) { cfg.Strategies["SYN"][0].Params["period"] = 5.0 }, true},
		{"rebuilt params map", func(cfg *config.Run) {
			cfg.Strategies["SYN"][0].Params = map[string]any{"threshold": 0.01, "period": 5}
		}, true},
		{"param change", func(cfg *config.Run) { cfg.Strategies["SYN"][0].Params["period"] = 6 }, false},
		{"seed change", func(cfg *config.Run) { cfg.Simulation.Seed = 4 }, false},
		{"execution change", func(cfg *config.Run) { cfg.Execution["max_symbol_weight"] = 0.5 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base.Clone()
			tt.mutate(&cfg)
			key, err := Key(&cfg)
			require.NoError(t, err)
			assert.Len(t, key, 64)
			if tt.same {
				assert.Equal(t, baseKey, key)
			} else {
				assert.NotEqual(t, baseKey, key)
			}
		})
	}
}

func TestGrids(t *testing.T) {
	base := baseConfig()

	tests := []struct {
		name     string
		grid     Grid
		validate func(*testing.T, Grid)
	}{
		{
			name: "execution",
			grid: ExecutionGrid(base, []any{0.0, 0.02}, []any{0.5, 1.0}),
			validate: func(t *testing.T, g Grid) {
				require.Len(t, g.Jobs, 4)
				last := g.Jobs[3]
				assert.Equal(t, 1, last.Row)
				assert.Equal(t, 1, last.Col)
				assert.Equal(t, 0.02, last.Config.Execution[keyWeightPerStrengthUnit])
				assert.Equal(t, 1.0, last.Config.Execution[keyMaxSymbolWeight])
				assert.Equal(t, 0.05, last.Config.Execution["base_weight_per_symbol"])
			},
		},
		{
			name: "weight",
			grid: WeightGrid(base, "SYN", strategy.TagMomentum, []any{0.5, 2.0}),
			validate: func(t *testing.T, g Grid) {
				require.Len(t, g.Jobs, 2)
				assert.Empty(t, g.Cols)
				specs := g.Jobs[1].Config.Strategies["SYN"]
				require.NotNil(t, specs[0].Weight)
				assert.Equal(t, 2.0, *specs[0].Weight)
				assert.Nil(t, specs[1].Weight)
				assert.Equal(t, 0.5, *g.Jobs[0].Config.Strategies["SYN"][0].Weight)
			},
		},
		{
			name: "params",
			grid: ParamGrid(base, "SYN", strategy.TagMomentum, "period", []any{10, 20}, "threshold", []any{0.02, 0.03, 0.05}),
			validate: func(t *testing.T, g Grid) {
				require.Len(t, g.Jobs, 6)
				params := g.Jobs[5].Config.Strategies["SYN"][0].Params
				assert.Equal(t, 20, params["period"])
				assert.Equal(t, 0.05, params["threshold"])
				assert.Nil(t, g.Jobs[5].Config.Strategies["SYN"][1].Params)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, tt.grid)
		})
	}

	assert.Equal(t, 5, base.Strategies["SYN"][0].Params["period"])
	assert.Nil(t, base.Strategies["SYN"][0].Weight)
	assert.NotContains(t, base.Execution, keyMaxSymbolWeight)
}

func TestStandardGrids(t *testing.T) {
	grids := StandardGrids(baseConfig(), "SYN")
	require.Len(t, grids, 7)

	jobs := Jobs(grids...)
	assert.Len(t, jobs, 25+5+5+5+16+9+9)

	for _, job := range jobs {
		assert.NoError(t, job.Config.Validate(), job.Grid)
	}
}

func TestRunner_EvaluatesIdenticalJobsOnce(t *testing.T) {
	var calls atomic.Int64
	evaluate := func(_ context.Context, cfg *config.Run) (Metrics, error) {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return Metrics{FinalEquity: fixed.FromInt64(cfg.Simulation.Seed, 0), Trades: 1}, nil
	}

	base := baseConfig()
	jobs := make([]Job, 8)
	for i := range jobs {
		jobs[i] = Job{Grid: "same", Row: i, Config: base.Clone()}
	}

	cache := NewMemoryCache()
	runner := NewRunner(zaptest.NewLogger(t), cache, 4, evaluate)

	outcomes, err := runner.Run(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, outcomes, 8)
	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, 1, cache.Len())

	for i, o := range outcomes {
		assert.Equal(t, i, o.Job.Row)
		assert.Equal(t, outcomes[0].Key, o.Key)
		assert.True(t, o.Metrics.FinalEquity.Eq(fixed.FromInt64(3, 0)))
	}

	again, err := runner.Run(context.Background(), jobs[:2])
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load())
	for _, o := range again {
		assert.True(t, o.Cached)
	}
}

func TestRunner_PropagatesErrors(t *testing.T) {
	errBoom := errors.New("boom")
	evaluate := func(_ context.Context, cfg *config.Run) (Metrics, error) {
		if cfg.Simulation.Seed == 2 {
			return Metrics{}, errBoom
		}
		return Metrics{}, nil
	}

	var jobs []Job
	for seed := int64(0); seed < 4; seed++ {
		cfg := baseConfig()
		cfg.Simulation.Seed = seed
		jobs = append(jobs, Job{Grid: "seeds", Row: int(seed), Config: *cfg})
	}

	cache := NewMemoryCache()
	_, err := NewRunner(zaptest.NewLogger(t), cache, 2, evaluate).Run(context.Background(), jobs)
	assert.ErrorIs(t, err, errBoom)
	assert.ErrorContains(t, err, "seeds [2, 0]")

	key, err := Key(&jobs[2].Config)
	require.NoError(t, err)
	_, ok, err := cache.Get(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCache_PutIfAbsent(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	_, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.PutIfAbsent(ctx, "k", Metrics{Trades: 1}))
	require.NoError(t, cache.PutIfAbsent(ctx, "k", Metrics{Trades: 2}))

	m, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, m.Trades)
}

func TestRedisCache_Unreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	defer func() { _ = rdb.Close() }()

	cache := NewRedisCache(rdb, "", time.Minute)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "k")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, cache.PutIfAbsent(ctx, "k", Metrics{}))

	_, err = DialRedis(ctx, "127.0.0.1:1")
	assert.Error(t, err)
}

func TestRunner_Backtest(t *testing.T) {
	base := baseConfig()
	grid := ExecutionGrid(base, []any{0.0, 0.02}, []any{0.5, 1.0})

	runner := NewRunner(zaptest.NewLogger(t), NewMemoryCache(), 2, Backtest(zaptest.NewLogger(t)))
	outcomes, err := runner.Run(context.Background(), grid.Jobs)
	require.NoError(t, err)
	require.Len(t, outcomes, 4)

	for _, o := range outcomes {
		assert.False(t, o.Cached)
		assert.True(t, o.Metrics.FinalEquity.IsPos())
		assert.False(t, o.Metrics.MaxDrawdown.IsNeg())
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, grid, outcomes))
	assert.Contains(t, buf.String(), "execution sensitivity")
	assert.Contains(t, buf.String(), "weight_per_strength_unit \\ max_symbol_weight")
}

func TestWriteTable(t *testing.T) {
	matrix := Grid{
		Name:     "matrix",
		RowLabel: "fast",
		ColLabel: "slow",
		Rows:     []any{5, 10},
		Cols:     []any{30, 50},
	}
	line := Grid{
		Name:     "line",
		RowLabel: "momentum_weight",
		Rows:     []any{0.5, 1.0},
	}

	outcomes := []Outcome{
		{Job: Job{Grid: "matrix", Row: 0, Col: 0}, Metrics: Metrics{Sharpe: fixed.FromFloat64(1.234), HasSharpe: true}},
		{Job: Job{Grid: "matrix", Row: 1, Col: 1}, Metrics: Metrics{}},
		{Job: Job{Grid: "line", Row: 1}, Metrics: Metrics{TotalReturn: fixed.FromFloat64(0.1), MaxDrawdown: fixed.FromFloat64(0.05), Trades: 7}},
	}

	tests := []struct {
		name     string
		grid     Grid
		validate func(*testing.T, string)
	}{
		{
			name: "matrix",
			grid: matrix,
			validate: func(t *testing.T, out string) {
				assert.Contains(t, out, "fast \\ slow")
				assert.Contains(t, out, "1.23")
				assert.Contains(t, out, notAvailable)
				assert.NotContains(t, out, "momentum_weight")
			},
		},
		{
			name: "line",
			grid: line,
			validate: func(t *testing.T, out string) {
				assert.Contains(t, out, "momentum_weight")
				assert.Contains(t, out, "10.00%")
				assert.Contains(t, out, "5.00%")
				assert.Contains(t, out, "7")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteTable(&buf, tt.grid, outcomes))
			tt.validate(t, buf.String())
		})
	}
}
