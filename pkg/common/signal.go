package common

import (
	"time"

	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

type Signal struct {
	TimeStamp time.Time   `json:"ts"`
	Symbol    string      `json:"symbol"`
	Side      Side        `json:"side"`
	Strength  fixed.Point `json:"strength"`
	Source    string      `json:"source,omitempty"`
}

// AggregatedSignal is the roll-up of all signals for one symbol within a bar.
type AggregatedSignal struct {
	Symbol            string      `json:"symbol"`
	BuyCount          int         `json:"buy_count"`
	SellCount         int         `json:"sell_count"`
	TotalBuyStrength  fixed.Point `json:"total_buy_strength"`
	TotalSellStrength fixed.Point `json:"total_sell_strength"`
	Sources           []string    `json:"sources,omitempty"`
}

func (a AggregatedSignal) NetStrength() fixed.Point {
	return a.TotalBuyStrength.Sub(a.TotalSellStrength)
}
