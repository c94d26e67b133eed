package strategy

import (
	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/indicators"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

const (
	TagDonchianBreakout = "donchian_breakout"
	TagAtrBreakout      = "atr_breakout"
)

// DonchianBreakout compares the price against the channel of the lookback bars
// before the newest one. A channel that includes the newest bar could never be
// broken by its close.
type DonchianBreakout struct {
	store    *indicators.Store
	lookback int
}

func newDonchianBreakout(store *indicators.Store, values map[string]any) (Strategy, error) {
	p := newParams(values)
	s := &DonchianBreakout{
		store:    store,
		lookback: p.period("lookback", 20),
	}
	return s, p.done()
}

func (s *DonchianBreakout) GenerateSignals(point common.MarketDataPoint) []common.Signal {
	high, low, ok := s.store.PriorHighLowRange(point.Symbol, s.lookback)
	if !ok {
		return nil
	}
	switch {
	case point.Price.Gt(high):
		return signal(point, common.SideBuy, TagDonchianBreakout)
	case point.Price.Lt(low):
		return signal(point, common.SideSell, TagDonchianBreakout)
	}
	return nil
}

// AtrBreakout trades moves of more than k atr away from the sma.
type AtrBreakout struct {
	store     *indicators.Store
	atrPeriod int
	k         fixed.Point
}

func newAtrBreakout(store *indicators.Store, values map[string]any) (Strategy, error) {
	p := newParams(values)
	s := &AtrBreakout{
		store:     store,
		atrPeriod: p.period("atr_period", 14),
		k:         p.nonNegative("k", fixed.FromFloat64(1.5)),
	}
	return s, p.done()
}

func (s *AtrBreakout) GenerateSignals(point common.MarketDataPoint) []common.Signal {
	atr, okAtr := s.store.Atr(point.Symbol, s.atrPeriod)
	sma, okSma := s.store.Sma(point.Symbol, s.atrPeriod)
	if !okAtr || !okSma {
		return nil
	}
	width := atr.Mul(s.k)
	switch {
	case point.Price.Gt(sma.Add(width)):
		return signal(point, common.SideBuy, TagAtrBreakout)
	case point.Price.Lt(sma.Sub(width)):
		return signal(point, common.SideSell, TagAtrBreakout)
	}
	return nil
}
