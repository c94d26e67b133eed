package simulation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/config"
	"github.com/peter-kozarec/barsim/pkg/datasource"
	"github.com/peter-kozarec/barsim/pkg/datasource/historical"
)

func syntheticConfig() *config.Run {
	cfg := config.Defaults()
	cfg.Market.Sources = []config.SourceSpec{
		{Symbol: "SYN1", Kind: config.KindSynthetic, Synthetic: config.SyntheticSpec{Start: "2024-01-01", StartPrice: 100, Mu: 0.05, Sigma: 0.3, Bars: 120}},
		{Symbol: "SYN2", Kind: config.KindSynthetic, Synthetic: config.SyntheticSpec{Start: "2024-01-01", StartPrice: 40, Sigma: 0.5, Bars: 120}},
	}
	half := 0.5
	cfg.Strategies = map[string][]config.StrategySpec{
		"SYN1": {{Type: "momentum", Params: map[string]any{"period": 5, "threshold": 0.01}}},
		"SYN2": {
			{Type: "rsi_reversion", Weight: &half},
			{Type: "bollinger_reversion", Params: map[string]any{"period": 10}},
		},
	}
	cfg.Execution = map[string]any{"base_weight_per_symbol": 0.05, "weight_per_strength_unit": 0.02}
	cfg.Simulation.Seed = 11
	cfg.Simulation.Fee = 1
	return &cfg
}

func runConfig(t *testing.T, cfg *config.Run) *Result {
	t.Helper()
	require.NoError(t, cfg.Validate())

	logger := zaptest.NewLogger(t)
	source, closeSource, err := OpenSource(context.Background(), logger, cfg)
	require.NoError(t, err)
	defer func() { assert.NoError(t, closeSource()) }()

	b, err := Build(logger, cfg)
	require.NoError(t, err)

	result, err := b.Run(context.Background(), source)
	require.NoError(t, err)
	return result
}

func TestBuild_SyntheticRunIsReproducible(t *testing.T) {
	first := runConfig(t, syntheticConfig())
	second := runConfig(t, syntheticConfig())

	assert.Equal(t, int64(120), first.Steps)
	assert.Len(t, first.Equity, 120)
	assert.NotEqual(t, first.ExecutionId, second.ExecutionId)

	assert.Equal(t, first.Trades, second.Trades)
	assert.True(t, first.Cash.Eq(second.Cash))
	assert.False(t, first.Cash.IsNeg())
	for _, trade := range first.Trades {
		assert.True(t, trade.Fee.Eq(px(1)))
	}
}

func TestBuild_SeedsPortfolio(t *testing.T) {
	cfg := syntheticConfig()
	cfg.Portfolio = config.Portfolio{
		Cash:      5_000,
		Positions: []config.PositionSpec{{Symbol: "SYN1", Quantity: 20, AvgPrice: 90}},
	}
	cfg.Simulation.MaxSteps = 1

	b, err := Build(zaptest.NewLogger(t), cfg)
	require.NoError(t, err)

	assert.True(t, b.Ledger().Cash().Eq(px(5_000)))
	assert.Equal(t, int64(20), b.Ledger().PositionQuantity("SYN1"))
	assert.Len(t, b.strategies["SYN2"], 2)
	assert.True(t, b.strategies["SYN2"][0].weight.Eq(px(0.5)))
}

func TestBuild_RejectsUnknownStrategy(t *testing.T) {
	cfg := syntheticConfig()
	cfg.Strategies["SYN1"] = []config.StrategySpec{{Type: "astrology"}}

	_, err := Build(zaptest.NewLogger(t), cfg)
	assert.Error(t, err)
}

func drainFrames(t *testing.T, source datasource.BarSource) [][]common.Bar {
	t.Helper()
	var frames [][]common.Bar
	for {
		frame, err := source.GetNext()
		if errors.Is(err, datasource.ErrEof) {
			return frames
		}
		require.NoError(t, err)
		frames = append(frames, frame)
	}
}

func TestOpenSource_FileKinds(t *testing.T) {
	dir := t.TempDir()

	binPath := filepath.Join(dir, "aapl.bin")
	f, err := os.Create(binPath)
	require.NoError(t, err)
	require.NoError(t, historical.WriteBars(f, []common.Bar{
		flatBar("AAPL", 0, 10), flatBar("AAPL", 1, 11), flatBar("AAPL", 2, 12),
	}))
	require.NoError(t, f.Close())

	csvPath := filepath.Join(dir, "msft.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("Datetime,Open,High,Low,Close,Volume\n"+
		"2024-01-02 00:00:00,20,20,20,20,100\n"+
		"2024-01-04 00:00:00,22,22,22,22,100\n"), 0o600))

	cfg := config.Defaults()
	cfg.Market.Sources = []config.SourceSpec{
		{Symbol: "AAPL", Kind: config.KindBinary, Path: binPath},
		{Symbol: "MSFT", Kind: config.KindCSV, Path: csvPath, To: "2024-01-03"},
	}
	require.NoError(t, cfg.Validate())

	source, closeSource, err := OpenSource(context.Background(), zaptest.NewLogger(t), &cfg)
	require.NoError(t, err)
	defer func() { assert.NoError(t, closeSource()) }()

	frames := drainFrames(t, source)
	require.Len(t, frames, 3)
	require.Len(t, frames[0], 2)
	assert.Equal(t, "AAPL", frames[0][0].Symbol)
	assert.Equal(t, "MSFT", frames[0][1].Symbol)
	assert.True(t, frames[0][1].Close.Eq(px(20)))
	assert.Len(t, frames[1], 1)
	assert.Len(t, frames[2], 1)
}

func TestOpenSource_MissingFile(t *testing.T) {
	cfg := config.Defaults()
	cfg.Market.Sources = []config.SourceSpec{{Symbol: "AAPL", Kind: config.KindBinary, Path: filepath.Join(t.TempDir(), "none.bin")}}

	_, _, err := OpenSource(context.Background(), zaptest.NewLogger(t), &cfg)
	assert.Error(t, err)
}

func TestOpenSource_Resample(t *testing.T) {
	cfg := config.Defaults()
	cfg.Market.Sources = []config.SourceSpec{{
		Symbol:    "SYN",
		Kind:      config.KindSynthetic,
		Resample:  "24h",
		Synthetic: config.SyntheticSpec{Start: "2024-01-01", StartPrice: 100, Sigma: 0.2, Bars: 48, Interval: "1h"},
	}}
	require.NoError(t, cfg.Validate())

	source, closeSource, err := OpenSource(context.Background(), zaptest.NewLogger(t), &cfg)
	require.NoError(t, err)
	defer func() { assert.NoError(t, closeSource()) }()

	frames := drainFrames(t, source)
	require.Len(t, frames, 2)
	assert.Equal(t, "2024-01-02T00:00:00Z", frames[1][0].TimeStamp.Format(time.RFC3339))
	assert.True(t, frames[0][0].Close.Eq(frames[1][0].Open))
}
