package signal

import (
	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

// Bundle holds the per-symbol aggregation of one bar worth of signals. Symbols
// keep the order in which they were first seen, which is also the tie-break
// order for StrongestBuy and StrongestSell.
type Bundle struct {
	order      []string
	aggregates map[string]*common.AggregatedSignal
}

func Aggregate(signals []common.Signal) *Bundle {
	b := &Bundle{
		aggregates: make(map[string]*common.AggregatedSignal),
	}
	for _, s := range signals {
		b.Add(s)
	}
	return b
}

func (b *Bundle) Add(s common.Signal) {
	agg, ok := b.aggregates[s.Symbol]
	if !ok {
		agg = &common.AggregatedSignal{Symbol: s.Symbol}
		b.aggregates[s.Symbol] = agg
		b.order = append(b.order, s.Symbol)
	}

	switch s.Side {
	case common.SideBuy:
		agg.BuyCount++
		agg.TotalBuyStrength = agg.TotalBuyStrength.Add(s.Strength)
	case common.SideSell:
		agg.SellCount++
		agg.TotalSellStrength = agg.TotalSellStrength.Add(s.Strength)
	}
	if s.Source != "" {
		agg.Sources = append(agg.Sources, s.Source)
	}
}

func (b *Bundle) Len() int {
	return len(b.order)
}

func (b *Bundle) Symbols() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

func (b *Bundle) Get(symbol string) (common.AggregatedSignal, bool) {
	agg, ok := b.aggregates[symbol]
	if !ok {
		return common.AggregatedSignal{}, false
	}
	return *agg, true
}

func (b *Bundle) StrongestBuy() (common.AggregatedSignal, bool) {
	return b.strongest(func(a *common.AggregatedSignal) fixed.Point { return a.TotalBuyStrength })
}

func (b *Bundle) StrongestSell() (common.AggregatedSignal, bool) {
	return b.strongest(func(a *common.AggregatedSignal) fixed.Point { return a.TotalSellStrength })
}

func (b *Bundle) strongest(strength func(*common.AggregatedSignal) fixed.Point) (common.AggregatedSignal, bool) {
	var best *common.AggregatedSignal
	for _, symbol := range b.order {
		agg := b.aggregates[symbol]
		if !strength(agg).IsPos() {
			continue
		}
		if best == nil || strength(agg).Gt(strength(best)) {
			best = agg
		}
	}
	if best == nil {
		return common.AggregatedSignal{}, false
	}
	return *best, true
}
