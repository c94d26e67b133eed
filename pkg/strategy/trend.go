package strategy

import (
	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/indicators"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

const (
	TagMomentum    = "momentum"
	TagMaCrossover = "ma_crossover"
	TagTrendRsi    = "trend_rsi"
	TagMacdTrend   = "macd_trend"
)

// Momentum follows the rate of change over period bars.
type Momentum struct {
	store     *indicators.Store
	period    int
	threshold fixed.Point
}

func newMomentum(store *indicators.Store, values map[string]any) (Strategy, error) {
	p := newParams(values)
	s := &Momentum{
		store:     store,
		period:    p.period("period", 20),
		threshold: p.nonNegative("threshold", fixed.FromFloat64(0.02)),
	}
	return s, p.done()
}

func (s *Momentum) GenerateSignals(point common.MarketDataPoint) []common.Signal {
	roc, ok := s.store.RateOfChange(point.Symbol, s.period)
	if !ok {
		return nil
	}
	switch {
	case roc.Gt(s.threshold):
		return signal(point, common.SideBuy, TagMomentum)
	case roc.Lt(s.threshold.Neg()):
		return signal(point, common.SideSell, TagMomentum)
	}
	return nil
}

// MaCrossover compares the levels of a fast and a slow sma. It fires on every
// bar the fast average stays on one side, not only on the cross itself.
type MaCrossover struct {
	store *indicators.Store
	fast  int
	slow  int
}

func newMaCrossover(store *indicators.Store, values map[string]any) (Strategy, error) {
	p := newParams(values)
	s := &MaCrossover{
		store: store,
		fast:  p.period("fast", 10),
		slow:  p.period("slow", 50),
	}
	return s, p.done()
}

func (s *MaCrossover) GenerateSignals(point common.MarketDataPoint) []common.Signal {
	fast, okFast := s.store.Sma(point.Symbol, s.fast)
	slow, okSlow := s.store.Sma(point.Symbol, s.slow)
	if !okFast || !okSlow {
		return nil
	}
	switch {
	case fast.Gt(slow):
		return signal(point, common.SideBuy, TagMaCrossover)
	case fast.Lt(slow):
		return signal(point, common.SideSell, TagMaCrossover)
	}
	return nil
}

// TrendRsi trades with the sma trend when rsi confirms it.
type TrendRsi struct {
	store     *indicators.Store
	smaPeriod int
	rsiPeriod int
	rsiBuy    fixed.Point
	rsiSell   fixed.Point
}

func newTrendRsi(store *indicators.Store, values map[string]any) (Strategy, error) {
	p := newParams(values)
	s := &TrendRsi{
		store:     store,
		smaPeriod: p.period("sma_period", 50),
		rsiPeriod: p.period("rsi_period", 14),
		rsiBuy:    p.point("rsi_buy", fixed.FromInt(55, 0)),
		rsiSell:   p.point("rsi_sell", fixed.FromInt(45, 0)),
	}
	return s, p.done()
}

func (s *TrendRsi) GenerateSignals(point common.MarketDataPoint) []common.Signal {
	sma, okSma := s.store.Sma(point.Symbol, s.smaPeriod)
	rsi, okRsi := s.store.Rsi(point.Symbol, s.rsiPeriod)
	if !okSma || !okRsi {
		return nil
	}
	switch {
	case point.Price.Gt(sma) && rsi.Gt(s.rsiBuy):
		return signal(point, common.SideBuy, TagTrendRsi)
	case point.Price.Lt(sma) && rsi.Lt(s.rsiSell):
		return signal(point, common.SideSell, TagTrendRsi)
	}
	return nil
}

type MacdTrend struct {
	store  *indicators.Store
	fast   int
	slow   int
	signal int
}

func newMacdTrend(store *indicators.Store, values map[string]any) (Strategy, error) {
	p := newParams(values)
	s := &MacdTrend{
		store:  store,
		fast:   p.period("fast", 12),
		slow:   p.period("slow", 26),
		signal: p.period("signal", 9),
	}
	return s, p.done()
}

func (s *MacdTrend) GenerateSignals(point common.MarketDataPoint) []common.Signal {
	macd, ok := s.store.Macd(point.Symbol, s.fast, s.slow, s.signal)
	if !ok || !macd.HasSignal {
		return nil
	}
	switch {
	case macd.Histogram.IsPos() && macd.Line.Gt(macd.Signal):
		return signal(point, common.SideBuy, TagMacdTrend)
	case macd.Histogram.IsNeg() && macd.Line.Lt(macd.Signal):
		return signal(point, common.SideSell, TagMacdTrend)
	}
	return nil
}
