package metrics

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func dailyCurve(values ...float64) []common.Equity {
	out := make([]common.Equity, len(values))
	for i, v := range values {
		out[i] = common.Equity{TimeStamp: t0.AddDate(0, 0, i), Value: fixed.FromFloat64(v)}
	}
	return out
}

func toFloat(t *testing.T, p fixed.Point) float64 {
	f, ok := p.Float64()
	require.True(t, ok)
	return f
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		curve  []common.Equity
		expect fixed.Point
	}{
		{"empty", nil, fixed.Zero},
		{"monotonic", dailyCurve(100, 101, 102), fixed.Zero},
		{"deepest trough", dailyCurve(100, 110, 99, 108.9, 105), fixed.FromFloat64(-0.1)},
		{"later peak", dailyCurve(100, 50, 200, 150), fixed.FromFloat64(-0.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaxDrawdown(tt.curve)
			assert.True(t, got.Eq(tt.expect), "got %s, want %s", got, tt.expect)
		})
	}
}

func TestPeriodsPerYear(t *testing.T) {
	ppy, ok := PeriodsPerYear(dailyCurve(1, 1, 1))
	require.True(t, ok)
	assert.True(t, ppy.Eq(fixed.FromInt(365, 0)))

	// median ignores a single long gap
	curve := dailyCurve(1, 1, 1, 1)
	curve[3].TimeStamp = curve[2].TimeStamp.Add(30 * 24 * time.Hour)
	ppy, ok = PeriodsPerYear(curve)
	require.True(t, ok)
	assert.True(t, ppy.Eq(fixed.FromInt(365, 0)))

	_, ok = PeriodsPerYear(dailyCurve(1))
	assert.False(t, ok)

	same := []common.Equity{{TimeStamp: t0, Value: fixed.One}, {TimeStamp: t0, Value: fixed.One}}
	_, ok = PeriodsPerYear(same)
	assert.False(t, ok)
}

func TestAnnualizedSharpe(t *testing.T) {
	curve := dailyCurve(100, 110, 99, 108.9)

	returns := []float64{0.1, -0.1, 0.1}
	mean := (returns[0] + returns[1] + returns[2]) / 3
	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	std := math.Sqrt(variance / 2)

	sharpe, ok := AnnualizedSharpe(curve)
	require.True(t, ok)
	assert.InDelta(t, mean/std*math.Sqrt(365), toFloat(t, sharpe), 1e-9)

	vol, ok := AnnualizedVolatility(curve)
	require.True(t, ok)
	assert.InDelta(t, std*math.Sqrt(365), toFloat(t, vol), 1e-9)
}

func TestAnnualizedSharpe_Undefined(t *testing.T) {
	tests := []struct {
		name  string
		curve []common.Equity
	}{
		{"empty", nil},
		{"single return", dailyCurve(100, 101)},
		{"flat", dailyCurve(100, 100, 100, 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := AnnualizedSharpe(tt.curve)
			assert.False(t, ok)
		})
	}
}

func TestAudit_GenerateReport(t *testing.T) {
	audit := NewAudit()
	ctx := context.Background()

	for _, eq := range dailyCurve(100, 110, 99, 108.9) {
		audit.OnEquity(ctx, eq)
	}
	for _, pnl := range []int{0, 500, -200} {
		audit.OnTrade(ctx, common.TradeRecord{
			TimeStamp:   t0,
			Symbol:      "X",
			RealizedPnL: fixed.FromInt(pnl, 0),
			Fee:         fixed.One,
		})
	}

	report := audit.GenerateReport()

	assert.Equal(t, 4, report.EquitySamples)
	assert.Equal(t, t0, report.StartDate)
	assert.True(t, report.InitialEquity.Eq(fixed.FromInt(100, 0)))
	assert.True(t, report.TotalReturn.Eq(fixed.FromFloat64(0.089)))
	assert.True(t, report.MaxDrawdown.Eq(fixed.FromFloat64(-0.1)))
	assert.True(t, report.HasSharpe)
	assert.True(t, report.HasVolatility)

	assert.Equal(t, 3, report.TotalTrades)
	assert.Equal(t, 1, report.WinningTrades)
	assert.Equal(t, 1, report.LosingTrades)
	assert.True(t, report.TotalRealizedPnL.Eq(fixed.FromInt(300, 0)))
	assert.True(t, report.AverageTradePnL.Eq(fixed.FromInt(100, 0)))
	assert.True(t, report.AverageWin.Eq(fixed.FromInt(500, 0)))
	assert.True(t, report.AverageLoss.Eq(fixed.FromInt(200, 0)))
	assert.True(t, report.ProfitFactor.Eq(fixed.FromFloat64(2.5)))
	assert.True(t, report.TotalFees.Eq(fixed.FromInt(3, 0)))
	assert.InDelta(t, 1.0/3.0, toFloat(t, report.WinRate), 1e-12)

	assert.Len(t, audit.Equities(), 4)
	assert.Len(t, audit.Trades(), 3)
}

func TestGenerateReport_Empty(t *testing.T) {
	report := GenerateReport(nil, nil)
	assert.Zero(t, report.TotalTrades)
	assert.False(t, report.HasSharpe)
	assert.True(t, report.TotalReturn.IsZero())
}

func TestReport_Print(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	report := GenerateReport(dailyCurve(100, 100), nil)
	report.Print(zap.New(core))

	require.Equal(t, 3, logs.Len())
	assert.Equal(t, "0.00%", logs.All()[0].ContextMap()["total_return"])
	assert.NotContains(t, logs.All()[1].ContextMap(), "sharpe_ratio")
}
