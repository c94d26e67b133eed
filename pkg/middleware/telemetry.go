package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/barsim/pkg/bus"
	"github.com/peter-kozarec/barsim/pkg/common"
)

const telemetryComponentName = "middleware.telemetry"

type counter struct {
	events   int64
	duration time.Duration
}

func (c *counter) observe(start time.Time) {
	c.events++
	c.duration += time.Since(start)
}

func (c *counter) fields(prefix string) []zap.Field {
	fields := []zap.Field{zap.Int64(prefix+"_events", c.events)}
	if c.events > 0 {
		fields = append(fields,
			zap.Duration(prefix+"_total_duration", c.duration),
			zap.Duration(prefix+"_avg_duration", c.duration/time.Duration(c.events)))
	}
	return fields
}

// Telemetry counts handled events and the time spent in their handlers.
// It is not safe for concurrent use, the router drains on one goroutine.
type Telemetry struct {
	logger *zap.Logger

	bars          counter
	signals       counter
	orders        counter
	riskDecisions counter
	trades        counter
	equity        counter
}

func NewTelemetry(logger *zap.Logger) *Telemetry {
	return &Telemetry{
		logger: logger.Named(telemetryComponentName),
	}
}

func (t *Telemetry) WithBar(handler bus.BarEventHandler) bus.BarEventHandler {
	return func(ctx context.Context, bar common.Bar) {
		defer t.bars.observe(time.Now())
		handler(ctx, bar)
	}
}

func (t *Telemetry) WithSignal(handler bus.SignalEventHandler) bus.SignalEventHandler {
	return func(ctx context.Context, signal common.Signal) {
		defer t.signals.observe(time.Now())
		handler(ctx, signal)
	}
}

func (t *Telemetry) WithOrder(handler bus.OrderEventHandler) bus.OrderEventHandler {
	return func(ctx context.Context, ev common.OrderEvent) {
		defer t.orders.observe(time.Now())
		handler(ctx, ev)
	}
}

func (t *Telemetry) WithRiskDecision(handler bus.RiskDecisionEventHandler) bus.RiskDecisionEventHandler {
	return func(ctx context.Context, decision common.RiskDecision) {
		defer t.riskDecisions.observe(time.Now())
		handler(ctx, decision)
	}
}

func (t *Telemetry) WithTrade(handler bus.TradeEventHandler) bus.TradeEventHandler {
	return func(ctx context.Context, trade common.TradeRecord) {
		defer t.trades.observe(time.Now())
		handler(ctx, trade)
	}
}

func (t *Telemetry) WithEquity(handler bus.EquityEventHandler) bus.EquityEventHandler {
	return func(ctx context.Context, equity common.Equity) {
		defer t.equity.observe(time.Now())
		handler(ctx, equity)
	}
}

func (t *Telemetry) PrintStatistics() {
	var fields []zap.Field
	fields = append(fields, t.bars.fields("bar")...)
	fields = append(fields, t.signals.fields("signal")...)
	fields = append(fields, t.orders.fields("order")...)
	fields = append(fields, t.riskDecisions.fields("risk_decision")...)
	fields = append(fields, t.trades.fields("trade")...)
	fields = append(fields, t.equity.fields("equity")...)
	t.logger.Info("event statistics", fields...)
}
