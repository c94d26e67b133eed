package bus

type EventId uint8

const (
	BarEvent EventId = iota
	SignalEvent
	OrderPlacedEvent
	OrderFilledEvent
	OrderRejectedEvent
	OrderCancelledEvent
	RiskDecisionEvent
	TradeEvent
	EquityEvent
)

func (id EventId) String() string {
	switch id {
	case BarEvent:
		return "bar"
	case SignalEvent:
		return "signal"
	case OrderPlacedEvent:
		return "order_placed"
	case OrderFilledEvent:
		return "order_filled"
	case OrderRejectedEvent:
		return "order_rejected"
	case OrderCancelledEvent:
		return "order_cancelled"
	case RiskDecisionEvent:
		return "risk_decision"
	case TradeEvent:
		return "trade"
	case EquityEvent:
		return "equity"
	default:
		return "unknown"
	}
}
