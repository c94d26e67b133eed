package common

import (
	"time"

	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

type Bar struct {
	Symbol        string      `json:"symbol"`
	TimeStamp     time.Time   `json:"ts"`
	Open          fixed.Point `json:"open"`
	High          fixed.Point `json:"high"`
	Low           fixed.Point `json:"low"`
	Close         fixed.Point `json:"close"`
	Volume        fixed.Point `json:"volume"`
	MissingVolume bool        `json:"missing_volume,omitempty"`
}

// MarketDataPoint is the view of a bar handed to strategies.
type MarketDataPoint struct {
	TimeStamp time.Time   `json:"ts"`
	Symbol    string      `json:"symbol"`
	Price     fixed.Point `json:"price"`
	Quantity  int64       `json:"quantity"`
}

// NewMarketDataPoint uses Close as the price. A missing volume becomes zero quantity.
func NewMarketDataPoint(bar Bar) MarketDataPoint {
	var quantity int64
	if !bar.MissingVolume && bar.Volume.IsPos() {
		quantity = bar.Volume.Floor()
	}
	return MarketDataPoint{
		TimeStamp: bar.TimeStamp,
		Symbol:    bar.Symbol,
		Price:     bar.Close,
		Quantity:  quantity,
	}
}
