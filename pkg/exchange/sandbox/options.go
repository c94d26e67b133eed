package sandbox

import (
	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

type Option func(*Engine)

// FeeHandler returns the fee charged for a filled order.
type FeeHandler func(order *common.Order) fixed.Point

// FixedFee charges the same amount for every fill.
func FixedFee(fee fixed.Point) FeeHandler {
	return func(*common.Order) fixed.Point {
		return fee
	}
}

func WithFeeHandler(feeHandler FeeHandler) Option {
	return func(e *Engine) {
		e.feeHandler = feeHandler
	}
}

// WithRejectChance sets the probability of a simulated rejection of a new order.
func WithRejectChance(chance float64) Option {
	return func(e *Engine) {
		e.rejectChance = chance
	}
}

// WithPartialFillChance sets the probability that an immediate fill only executes a fraction
// of the requested quantity.
func WithPartialFillChance(chance float64) Option {
	return func(e *Engine) {
		e.partialFillChance = chance
	}
}
