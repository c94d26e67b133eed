package middleware

import (
	"context"

	"go.uber.org/zap"

	"github.com/peter-kozarec/barsim/pkg/bus"
	"github.com/peter-kozarec/barsim/pkg/common"
)

const monitorComponentName = "middleware.monitor"

type MonitorFlags uint16

//goland:noinspection GoUnusedConst
const (
	MonitorNone MonitorFlags = 1 << iota
	MonitorAll
	MonitorBars
	MonitorSignals
	MonitorOrdersPlaced
	MonitorOrdersFilled
	MonitorOrdersRejected
	MonitorOrdersCancelled
	MonitorRiskDecisions
	MonitorTrades
	MonitorEquity
)

var monitorFlagNames = map[string]MonitorFlags{
	"none":             MonitorNone,
	"all":              MonitorAll,
	"bars":             MonitorBars,
	"signals":          MonitorSignals,
	"orders_placed":    MonitorOrdersPlaced,
	"orders_filled":    MonitorOrdersFilled,
	"orders_rejected":  MonitorOrdersRejected,
	"orders_cancelled": MonitorOrdersCancelled,
	"risk_decisions":   MonitorRiskDecisions,
	"trades":           MonitorTrades,
	"equity":           MonitorEquity,
}

// ParseMonitorFlags combines flag names such as "orders_filled" or "trades".
func ParseMonitorFlags(names []string) (MonitorFlags, bool) {
	var flags MonitorFlags
	for _, name := range names {
		flag, ok := monitorFlagNames[name]
		if !ok {
			return 0, false
		}
		flags |= flag
	}
	return flags, true
}

// Monitor logs the events selected by its flags before passing them on.
type Monitor struct {
	logger *zap.Logger
	flags  MonitorFlags
}

func NewMonitor(logger *zap.Logger, flags MonitorFlags) *Monitor {
	return &Monitor{
		logger: logger.Named(monitorComponentName),
		flags:  flags,
	}
}

func (m *Monitor) enabled(flag MonitorFlags) bool {
	return m.flags&flag != 0 || m.flags&MonitorAll != 0
}

func (m *Monitor) WithBar(handler bus.BarEventHandler) bus.BarEventHandler {
	return func(ctx context.Context, bar common.Bar) {
		if m.enabled(MonitorBars) {
			m.logger.Info("bar",
				zap.String("symbol", bar.Symbol),
				zap.Time("ts", bar.TimeStamp),
				zap.Stringer("open", bar.Open),
				zap.Stringer("high", bar.High),
				zap.Stringer("low", bar.Low),
				zap.Stringer("close", bar.Close),
				zap.Stringer("volume", bar.Volume))
		}
		handler(ctx, bar)
	}
}

func (m *Monitor) WithSignal(handler bus.SignalEventHandler) bus.SignalEventHandler {
	return func(ctx context.Context, signal common.Signal) {
		if m.enabled(MonitorSignals) {
			m.logger.Info("signal",
				zap.String("symbol", signal.Symbol),
				zap.Time("ts", signal.TimeStamp),
				zap.Stringer("side", signal.Side),
				zap.Stringer("strength", signal.Strength),
				zap.String("source", signal.Source))
		}
		handler(ctx, signal)
	}
}

// WithOrder wraps the handler of one order event kind. The flag checked
// follows the kind of each event.
func (m *Monitor) WithOrder(handler bus.OrderEventHandler) bus.OrderEventHandler {
	return func(ctx context.Context, ev common.OrderEvent) {
		if m.enabled(orderEventFlag(ev.Kind)) {
			fields := []zap.Field{
				zap.String("id", ev.Order.Id),
				zap.String("symbol", ev.Order.Symbol),
				zap.Stringer("side", ev.Order.Side),
				zap.Stringer("type", ev.Order.Type),
				zap.Int64("quantity", ev.Order.Quantity),
				zap.Stringer("price", ev.Order.Price),
				zap.Time("ts", ev.TimeStamp),
			}
			if ev.Kind == common.OrderEventFilled {
				fields = append(fields,
					zap.Int64("filled_quantity", ev.Order.FilledQuantity),
					zap.Stringer("filled_price", ev.Order.FilledPrice),
					zap.Stringer("fee", ev.Fee))
			}
			if ev.Reason != "" {
				fields = append(fields, zap.String("reason", ev.Reason))
			}
			m.logger.Info("order "+ev.Kind.String(), fields...)
		}
		handler(ctx, ev)
	}
}

func (m *Monitor) WithRiskDecision(handler bus.RiskDecisionEventHandler) bus.RiskDecisionEventHandler {
	return func(ctx context.Context, decision common.RiskDecision) {
		if m.enabled(MonitorRiskDecisions) {
			m.logger.Info("risk decision",
				zap.String("id", decision.Order.Id),
				zap.String("symbol", decision.Order.Symbol),
				zap.Bool("accepted", decision.Accepted),
				zap.String("reason", decision.Reason))
		}
		handler(ctx, decision)
	}
}

func (m *Monitor) WithTrade(handler bus.TradeEventHandler) bus.TradeEventHandler {
	return func(ctx context.Context, trade common.TradeRecord) {
		if m.enabled(MonitorTrades) {
			m.logger.Info("trade",
				zap.String("symbol", trade.Symbol),
				zap.Time("ts", trade.TimeStamp),
				zap.Stringer("side", trade.Side),
				zap.Int64("quantity", trade.Quantity),
				zap.Stringer("price", trade.Price),
				zap.Stringer("fee", trade.Fee),
				zap.Stringer("realized_pnl", trade.RealizedPnL),
				zap.Int64("position_after", trade.PositionAfter))
		}
		handler(ctx, trade)
	}
}

func (m *Monitor) WithEquity(handler bus.EquityEventHandler) bus.EquityEventHandler {
	return func(ctx context.Context, equity common.Equity) {
		if m.enabled(MonitorEquity) {
			m.logger.Info("equity",
				zap.Time("ts", equity.TimeStamp),
				zap.Stringer("value", equity.Value))
		}
		handler(ctx, equity)
	}
}

func orderEventFlag(kind common.OrderEventKind) MonitorFlags {
	switch kind {
	case common.OrderEventPlaced:
		return MonitorOrdersPlaced
	case common.OrderEventFilled:
		return MonitorOrdersFilled
	case common.OrderEventRejected:
		return MonitorOrdersRejected
	case common.OrderEventCancelled:
		return MonitorOrdersCancelled
	default:
		return MonitorNone
	}
}
