package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

func sig(symbol string, side common.Side, strength float64, source string) common.Signal {
	return common.Signal{Symbol: symbol, Side: side, Strength: fixed.FromFloat64(strength), Source: source}
}

func TestAggregate(t *testing.T) {
	b := Aggregate([]common.Signal{
		sig("AAPL", common.SideBuy, 1, "momentum"),
		sig("MSFT", common.SideSell, 0.5, "rsi_reversion"),
		sig("AAPL", common.SideBuy, 0.5, "ma_crossover"),
		sig("AAPL", common.SideSell, 0.25, "mean_reversion"),
	})

	assert.Equal(t, 2, b.Len())
	assert.Equal(t, []string{"AAPL", "MSFT"}, b.Symbols())

	aapl, ok := b.Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, 2, aapl.BuyCount)
	assert.Equal(t, 1, aapl.SellCount)
	assert.True(t, aapl.TotalBuyStrength.Eq(fixed.FromFloat64(1.5)))
	assert.True(t, aapl.TotalSellStrength.Eq(fixed.FromFloat64(0.25)))
	assert.True(t, aapl.NetStrength().Eq(fixed.FromFloat64(1.25)))
	assert.Equal(t, []string{"momentum", "ma_crossover", "mean_reversion"}, aapl.Sources)

	_, ok = b.Get("TSLA")
	assert.False(t, ok)
}

func TestBundle_Strongest(t *testing.T) {
	tests := []struct {
		name     string
		signals  []common.Signal
		wantBuy  string
		wantSell string
		hasBuy   bool
		hasSell  bool
	}{
		{
			name:    "empty",
			signals: nil,
		},
		{
			name: "picks maximum per side",
			signals: []common.Signal{
				sig("AAPL", common.SideBuy, 1, ""),
				sig("MSFT", common.SideBuy, 2, ""),
				sig("AAPL", common.SideSell, 3, ""),
				sig("MSFT", common.SideSell, 1, ""),
			},
			wantBuy: "MSFT", hasBuy: true,
			wantSell: "AAPL", hasSell: true,
		},
		{
			name: "ties go to first inserted",
			signals: []common.Signal{
				sig("MSFT", common.SideBuy, 1, ""),
				sig("AAPL", common.SideBuy, 1, ""),
			},
			wantBuy: "MSFT", hasBuy: true,
		},
		{
			name: "zero strength is not a candidate",
			signals: []common.Signal{
				sig("AAPL", common.SideBuy, 0, ""),
				sig("AAPL", common.SideSell, 0, ""),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Aggregate(tt.signals)

			buy, ok := b.StrongestBuy()
			assert.Equal(t, tt.hasBuy, ok)
			assert.Equal(t, tt.wantBuy, buy.Symbol)

			sell, ok := b.StrongestSell()
			assert.Equal(t, tt.hasSell, ok)
			assert.Equal(t, tt.wantSell, sell.Symbol)
		})
	}
}
