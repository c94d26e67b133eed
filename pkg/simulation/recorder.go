package simulation

import (
	"github.com/peter-kozarec/barsim/pkg/bus"
	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/tools/position"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

// fillRecorder forwards fills to the ledger and publishes the resulting trade.
type fillRecorder struct {
	ledger *position.Ledger
	post   func(bus.EventId, any)
}

func (r *fillRecorder) UpdateFromFill(order *common.Order, fee fixed.Point) common.TradeRecord {
	trade := r.ledger.UpdateFromFill(order, fee)
	r.post(bus.TradeEvent, trade)
	return trade
}
