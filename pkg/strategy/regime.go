package strategy

import (
	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/indicators"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

const TagRegimeSwitching = "regime_switching"

// RegimeSwitching mean-reverts while volatility is low and follows the sma
// trend otherwise.
type RegimeSwitching struct {
	store         *indicators.Store
	volaPeriod    int
	volaThreshold fixed.Point
	smaPeriod     int
	devThreshold  fixed.Point
}

func newRegimeSwitching(store *indicators.Store, values map[string]any) (Strategy, error) {
	p := newParams(values)
	s := &RegimeSwitching{
		store:         store,
		volaPeriod:    p.period("vola_period", 20),
		volaThreshold: p.nonNegative("vola_threshold", fixed.FromFloat64(0.01)),
		smaPeriod:     p.period("sma_period", 20),
		devThreshold:  p.nonNegative("dev_threshold", fixed.FromFloat64(0.01)),
	}
	return s, p.done()
}

func (s *RegimeSwitching) GenerateSignals(point common.MarketDataPoint) []common.Signal {
	vola, okVola := s.store.Volatility(point.Symbol, s.volaPeriod)
	sma, okSma := s.store.Sma(point.Symbol, s.smaPeriod)
	if !okVola || !okSma {
		return nil
	}

	if vola.Lt(s.volaThreshold) {
		deviation, ok := s.store.PriceDeviationFromSma(point.Symbol, s.smaPeriod)
		if !ok {
			return nil
		}
		switch {
		case deviation.Lt(s.devThreshold.Neg()):
			return signal(point, common.SideBuy, TagRegimeSwitching)
		case deviation.Gt(s.devThreshold):
			return signal(point, common.SideSell, TagRegimeSwitching)
		}
		return nil
	}

	switch {
	case point.Price.Gt(sma):
		return signal(point, common.SideBuy, TagRegimeSwitching)
	case point.Price.Lt(sma):
		return signal(point, common.SideSell, TagRegimeSwitching)
	}
	return nil
}
