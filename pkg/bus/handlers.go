package bus

import (
	"context"

	"github.com/peter-kozarec/barsim/pkg/common"
)

type EventHandler[T any] = func(context.Context, T)

type BarEventHandler EventHandler[common.Bar]
type SignalEventHandler EventHandler[common.Signal]
type OrderEventHandler EventHandler[common.OrderEvent]
type RiskDecisionEventHandler EventHandler[common.RiskDecision]
type TradeEventHandler EventHandler[common.TradeRecord]
type EquityEventHandler EventHandler[common.Equity]

func MergeHandlers[T any](handlers ...EventHandler[T]) EventHandler[T] {
	return func(ctx context.Context, event T) {
		for _, handler := range handlers {
			if handler != nil {
				handler(ctx, event)
			}
		}
	}
}
