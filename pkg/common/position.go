package common

import (
	"time"

	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

// Position quantity is signed, positive is long and negative is short.
type Position struct {
	Symbol   string      `json:"symbol"`
	Quantity int64       `json:"quantity"`
	AvgPrice fixed.Point `json:"avg_price"`
}

func (p Position) IsFlat() bool {
	return p.Quantity == 0
}

type TradeRecord struct {
	TimeStamp     time.Time   `json:"ts"`
	Symbol        string      `json:"symbol"`
	Side          Side        `json:"side"`
	Quantity      int64       `json:"quantity"`
	Price         fixed.Point `json:"price"`
	Fee           fixed.Point `json:"fee"`
	RealizedPnL   fixed.Point `json:"realized_pnl"`
	PositionAfter int64       `json:"position_after"`
}

type Equity struct {
	TimeStamp time.Time   `json:"ts"`
	Value     fixed.Point `json:"value"`
}
