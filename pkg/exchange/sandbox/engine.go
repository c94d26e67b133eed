package sandbox

import (
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/exchange/orderbook"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

const (
	engineComponentName = "exchange.sandbox.engine"

	DefaultRejectChance      = 0.05
	DefaultPartialFillChance = 0.10

	minPartialFraction = 0.1
	maxPartialFraction = 0.9

	reasonSimulatedRejection = "simulated rejection"
	reasonRestingInBook      = "placed in book to wait"
)

// RandomSource is satisfied by *rand.Rand. Each run injects its own seeded instance.
type RandomSource interface {
	Float64() float64
}

// FillHandler applies fills to the portfolio.
type FillHandler interface {
	UpdateFromFill(order *common.Order, fee fixed.Point) common.TradeRecord
}

// Engine simulates order execution against bars for a single symbol.
type Engine struct {
	logger *zap.Logger
	book   *orderbook.Book
	ledger FillHandler
	rng    RandomSource

	rejectChance      float64
	partialFillChance float64
	feeHandler        FeeHandler
}

func NewEngine(logger *zap.Logger, book *orderbook.Book, ledger FillHandler, rng RandomSource, options ...Option) *Engine {
	e := &Engine{
		logger:            logger.Named(engineComponentName),
		book:              book,
		ledger:            ledger,
		rng:               rng,
		rejectChance:      DefaultRejectChance,
		partialFillChance: DefaultPartialFillChance,
		feeHandler:        FixedFee(fixed.Zero),
	}

	for _, option := range options {
		option(e)
	}

	return e
}

func (e *Engine) Book() *orderbook.Book {
	return e.book
}

// ProcessOrder decides the fate of a new order against the current bar. Market
// orders fill at the close. Limit orders that are marketable within the bar
// range fill at their limit price, the rest rest in the book.
func (e *Engine) ProcessOrder(order *common.Order, bar common.Bar) []common.OrderEvent {
	if e.rng.Float64() < e.rejectChance {
		order.Status = common.OrderStatusRejected
		e.logger.Debug("order rejected", zap.String("id", order.Id), zap.String("reason", reasonSimulatedRejection))
		return []common.OrderEvent{{
			Kind:      common.OrderEventRejected,
			Order:     *order,
			Reason:    reasonSimulatedRejection,
			TimeStamp: bar.TimeStamp,
		}}
	}

	switch order.Type {
	case common.OrderTypeLimit:
		if !marketable(order, bar) {
			e.book.AddOrder(order)
			e.logger.Debug("order placed",
				zap.String("id", order.Id),
				zap.Stringer("side", order.Side),
				zap.Stringer("price", order.Price))
			return []common.OrderEvent{{
				Kind:      common.OrderEventPlaced,
				Order:     *order,
				Reason:    reasonRestingInBook,
				TimeStamp: bar.TimeStamp,
			}}
		}
		return []common.OrderEvent{e.fill(order, order.Price, e.fillQuantity(order), bar.TimeStamp)}
	default:
		return []common.OrderEvent{e.fill(order, bar.Close, e.fillQuantity(order), bar.TimeStamp)}
	}
}

// CheckOpenOrders fills resting orders the bar trades through. Book fills happen
// at the resting price for the full quantity. Draining stops at the first order
// that does not qualify since everything behind it is priced worse.
func (e *Engine) CheckOpenOrders(bar common.Bar) []common.OrderEvent {
	var events []common.OrderEvent

	for {
		best, ok := e.book.BestBid()
		if !ok || best.Price.Lt(bar.Low) {
			break
		}
		order, _ := e.book.PopBestBid()
		events = append(events, e.fill(order, order.Price, order.Quantity, bar.TimeStamp))
	}

	for {
		best, ok := e.book.BestAsk()
		if !ok || best.Price.Gt(bar.High) {
			break
		}
		order, _ := e.book.PopBestAsk()
		events = append(events, e.fill(order, order.Price, order.Quantity, bar.TimeStamp))
	}

	return events
}

func (e *Engine) fillQuantity(order *common.Order) int64 {
	if e.rng.Float64() >= e.partialFillChance {
		return order.Quantity
	}
	fraction := minPartialFraction + (maxPartialFraction-minPartialFraction)*e.rng.Float64()
	quantity := int64(float64(order.Quantity) * fraction)
	if quantity < 1 {
		quantity = 1
	}
	e.logger.Debug("partial fill", zap.String("id", order.Id), zap.Int64("quantity", quantity), zap.Int64("requested", order.Quantity))
	return quantity
}

func (e *Engine) fill(order *common.Order, price fixed.Point, quantity int64, ts time.Time) common.OrderEvent {
	order.FilledPrice = price
	order.FilledQuantity = quantity
	order.FilledTimeStamp = ts
	order.Status = common.OrderStatusFilled

	fee := e.feeHandler(order)
	e.ledger.UpdateFromFill(order, fee)

	e.logger.Debug("order filled",
		zap.String("id", order.Id),
		zap.String("symbol", order.Symbol),
		zap.Stringer("side", order.Side),
		zap.Int64("quantity", quantity),
		zap.Stringer("price", price))

	return common.OrderEvent{
		Kind:      common.OrderEventFilled,
		Order:     *order,
		Fee:       fee,
		TimeStamp: ts,
	}
}

func marketable(order *common.Order, bar common.Bar) bool {
	if order.Side == common.SideSell {
		return order.Price.Lte(bar.High)
	}
	return order.Price.Gte(bar.Low)
}
