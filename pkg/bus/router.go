package bus

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/barsim/pkg/common"
)

const routerComponentName = "bus.router"

var ErrCapacityReached = errors.New("event capacity reached")

type event struct {
	id   EventId
	data any
}

// Router queues events posted during a simulation step and dispatches them to
// the registered handlers when drained. Handlers run on the draining goroutine.
type Router struct {
	logger *zap.Logger
	events chan event

	OnBar            BarEventHandler
	OnSignal         SignalEventHandler
	OnOrderPlaced    OrderEventHandler
	OnOrderFilled    OrderEventHandler
	OnOrderRejected  OrderEventHandler
	OnOrderCancelled OrderEventHandler
	OnRiskDecision   RiskDecisionEventHandler
	OnTrade          TradeEventHandler
	OnEquity         EquityEventHandler

	runTime       atomic.Int64
	postCount     atomic.Uint64
	postFails     atomic.Uint64
	dispatchCount atomic.Uint64
	dispatchFails atomic.Uint64
}

func NewRouter(logger *zap.Logger, eventCapacity int) *Router {
	return &Router{
		logger: logger.Named(routerComponentName),
		events: make(chan event, eventCapacity),
	}
}

func (r *Router) Post(id EventId, data any) error {
	select {
	case r.events <- event{id, data}:
		r.postCount.Add(1)
		return nil
	default:
		r.postFails.Add(1)
		return fmt.Errorf("%w: %s", ErrCapacityReached, id)
	}
}

// PostOrderEvent routes an order event by its kind.
func (r *Router) PostOrderEvent(ev common.OrderEvent) error {
	switch ev.Kind {
	case common.OrderEventPlaced:
		return r.Post(OrderPlacedEvent, ev)
	case common.OrderEventFilled:
		return r.Post(OrderFilledEvent, ev)
	case common.OrderEventRejected:
		return r.Post(OrderRejectedEvent, ev)
	case common.OrderEventCancelled:
		return r.Post(OrderCancelledEvent, ev)
	default:
		return fmt.Errorf("unsupported order event kind: %v", ev.Kind)
	}
}

func (r *Router) Pending() int {
	return len(r.events)
}

// Drain dispatches queued events until the queue is empty, including events
// posted by handlers while draining.
func (r *Router) Drain(ctx context.Context) error {
	start := time.Now()
	defer func() {
		r.runTime.Add(int64(time.Since(start)))
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-r.events:
			r.dispatchCount.Add(1)
			if err := r.dispatch(ctx, ev); err != nil {
				r.dispatchFails.Add(1)
				r.logger.Warn("dispatch failed",
					zap.Error(err),
					zap.Stringer("event", ev.id))
			}
		default:
			return nil
		}
	}
}

func (r *Router) GetStatistics() Statistics {
	runTime := time.Duration(r.runTime.Load())
	stats := Statistics{
		RunTime:       runTime,
		PostCount:     r.postCount.Load(),
		PostFails:     r.postFails.Load(),
		DispatchCount: r.dispatchCount.Load(),
		DispatchFails: r.dispatchFails.Load(),
	}
	if runTime > 0 {
		stats.Throughput = float64(stats.DispatchCount) / runTime.Seconds()
	}
	return stats
}

func (r *Router) PrintStatistics() {
	r.GetStatistics().Print(r.logger)
}

func (r *Router) dispatch(ctx context.Context, ev event) error {
	switch ev.id {
	case BarEvent:
		return dispatchAs(ctx, ev, r.OnBar)
	case SignalEvent:
		return dispatchAs(ctx, ev, r.OnSignal)
	case OrderPlacedEvent:
		return dispatchAs(ctx, ev, r.OnOrderPlaced)
	case OrderFilledEvent:
		return dispatchAs(ctx, ev, r.OnOrderFilled)
	case OrderRejectedEvent:
		return dispatchAs(ctx, ev, r.OnOrderRejected)
	case OrderCancelledEvent:
		return dispatchAs(ctx, ev, r.OnOrderCancelled)
	case RiskDecisionEvent:
		return dispatchAs(ctx, ev, r.OnRiskDecision)
	case TradeEvent:
		return dispatchAs(ctx, ev, r.OnTrade)
	case EquityEvent:
		return dispatchAs(ctx, ev, r.OnEquity)
	default:
		return fmt.Errorf("unsupported event id: %v", ev.id)
	}
}

// dispatchAs hands the payload to handler. A missing handler drops the event.
func dispatchAs[T any, H ~func(context.Context, T)](ctx context.Context, ev event, handler H) error {
	data, ok := ev.data.(T)
	if !ok {
		return fmt.Errorf("invalid type assertion for %s event: %T", ev.id, ev.data)
	}
	if handler != nil {
		handler(ctx, data)
	}
	return nil
}
