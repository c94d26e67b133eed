package strategy

import (
	"errors"
	"fmt"
	"slices"

	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/indicators"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

var (
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrInvalidParams   = errors.New("invalid strategy params")
)

// Strategy turns the latest market data point into zero or more signals.
// Implementations only read from the shared indicator store.
type Strategy interface {
	GenerateSignals(point common.MarketDataPoint) []common.Signal
}

type Factory func(store *indicators.Store, params map[string]any) (Strategy, error)

var registry = map[string]Factory{
	TagMomentum:           newMomentum,
	TagMaCrossover:        newMaCrossover,
	TagMeanReversion:      newMeanReversion,
	TagBollingerReversion: newBollingerReversion,
	TagDonchianBreakout:   newDonchianBreakout,
	TagAtrBreakout:        newAtrBreakout,
	TagRsiReversion:       newRsiReversion,
	TagTrendRsi:           newTrendRsi,
	TagMacdTrend:          newMacdTrend,
	TagRegimeSwitching:    newRegimeSwitching,
}

// New builds the strategy registered under tag.
func New(tag string, store *indicators.Store, params map[string]any) (Strategy, error) {
	factory, ok := registry[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, tag)
	}
	s, err := factory(store, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tag, err)
	}
	return s, nil
}

// Validate checks tag and params without keeping the strategy.
func Validate(tag string, params map[string]any) error {
	_, err := New(tag, indicators.NewStore(1), params)
	return err
}

func Tags() []string {
	tags := make([]string, 0, len(registry))
	for tag := range registry {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

func signal(point common.MarketDataPoint, side common.Side, source string) []common.Signal {
	return []common.Signal{{
		TimeStamp: point.TimeStamp,
		Symbol:    point.Symbol,
		Side:      side,
		Strength:  fixed.One,
		Source:    source,
	}}
}
