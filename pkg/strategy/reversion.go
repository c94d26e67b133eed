package strategy

import (
	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/indicators"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

const (
	TagMeanReversion      = "mean_reversion"
	TagBollingerReversion = "bollinger_reversion"
	TagRsiReversion       = "rsi_reversion"
)

// MeanReversion fades relative deviations from the sma larger than band.
type MeanReversion struct {
	store  *indicators.Store
	period int
	band   fixed.Point
}

func newMeanReversion(store *indicators.Store, values map[string]any) (Strategy, error) {
	p := newParams(values)
	s := &MeanReversion{
		store:  store,
		period: p.period("period", 20),
		band:   p.nonNegative("band", fixed.FromFloat64(0.02)),
	}
	return s, p.done()
}

func (s *MeanReversion) GenerateSignals(point common.MarketDataPoint) []common.Signal {
	deviation, ok := s.store.PriceDeviationFromSma(point.Symbol, s.period)
	if !ok {
		return nil
	}
	switch {
	case deviation.Lt(s.band.Neg()):
		return signal(point, common.SideBuy, TagMeanReversion)
	case deviation.Gt(s.band):
		return signal(point, common.SideSell, TagMeanReversion)
	}
	return nil
}

type BollingerReversion struct {
	store  *indicators.Store
	period int
	numStd fixed.Point
}

func newBollingerReversion(store *indicators.Store, values map[string]any) (Strategy, error) {
	p := newParams(values)
	s := &BollingerReversion{
		store:  store,
		period: p.period("period", 20),
		numStd: p.nonNegative("num_std", fixed.Two),
	}
	return s, p.done()
}

func (s *BollingerReversion) GenerateSignals(point common.MarketDataPoint) []common.Signal {
	bands, ok := s.store.BollingerBands(point.Symbol, s.period, s.numStd)
	if !ok {
		return nil
	}
	switch {
	case point.Price.Lt(bands.Lower):
		return signal(point, common.SideBuy, TagBollingerReversion)
	case point.Price.Gt(bands.Upper):
		return signal(point, common.SideSell, TagBollingerReversion)
	}
	return nil
}

type RsiReversion struct {
	store      *indicators.Store
	period     int
	oversold   fixed.Point
	overbought fixed.Point
}

func newRsiReversion(store *indicators.Store, values map[string]any) (Strategy, error) {
	p := newParams(values)
	s := &RsiReversion{
		store:      store,
		period:     p.period("period", 14),
		oversold:   p.point("oversold", fixed.FromInt(30, 0)),
		overbought: p.point("overbought", fixed.FromInt(70, 0)),
	}
	return s, p.done()
}

func (s *RsiReversion) GenerateSignals(point common.MarketDataPoint) []common.Signal {
	rsi, ok := s.store.Rsi(point.Symbol, s.period)
	if !ok {
		return nil
	}
	switch {
	case rsi.Lt(s.oversold):
		return signal(point, common.SideBuy, TagRsiReversion)
	case rsi.Gt(s.overbought):
		return signal(point, common.SideSell, TagRsiReversion)
	}
	return nil
}
