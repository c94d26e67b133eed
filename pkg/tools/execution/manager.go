package execution

import (
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/signal"
	"github.com/peter-kozarec/barsim/pkg/utility"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

const managerComponentName = "tools.execution.manager"

// Portfolio is the read side of the ledger.
type Portfolio interface {
	Cash() fixed.Point
	PositionQuantity(symbol string) int64
	Positions() []common.Position
}

type PriceProvider interface {
	LatestPrice(symbol string) (fixed.Point, bool)
}

// Manager turns aggregated signals into sized orders. It never mutates the
// portfolio, cash and positions change only when orders fill.
type Manager struct {
	logger    *zap.Logger
	portfolio Portfolio
	prices    PriceProvider
	settings  Settings
	fee       fixed.Point
}

type Option func(*Manager)

// WithFeeReserve keeps fee out of the cash a buy may spend, so a filled buy
// can always pay its fee.
func WithFeeReserve(fee fixed.Point) Option {
	return func(m *Manager) {
		m.fee = fee.Max(fixed.Zero)
	}
}

func NewManager(logger *zap.Logger, portfolio Portfolio, prices PriceProvider, settings Settings, options ...Option) (*Manager, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		logger:    logger.Named(managerComponentName),
		portfolio: portfolio,
		prices:    prices,
		settings:  settings,
		fee:       fixed.Zero,
	}
	for _, option := range options {
		option(m)
	}
	return m, nil
}

func (m *Manager) Settings() Settings {
	return m.settings
}

func (m *Manager) Cash() fixed.Point {
	return m.portfolio.Cash()
}

func (m *Manager) PositionQuantity(symbol string) int64 {
	return m.portfolio.PositionQuantity(symbol)
}

// PortfolioValue is cash plus every position at its latest price. Symbols
// without a price are skipped.
func (m *Manager) PortfolioValue() fixed.Point {
	value := m.portfolio.Cash()
	for _, pos := range m.portfolio.Positions() {
		if price, ok := m.prices.LatestPrice(pos.Symbol); ok {
			value = value.Add(price.MulInt64(pos.Quantity))
		}
	}
	return value
}

func (m *Manager) SymbolValue(symbol string) fixed.Point {
	price, ok := m.prices.LatestPrice(symbol)
	if !ok {
		return fixed.Zero
	}
	return price.MulInt64(m.portfolio.PositionQuantity(symbol))
}

func (m *Manager) SymbolWeight(symbol string) fixed.Point {
	pv := m.PortfolioValue()
	if !pv.IsPos() {
		return fixed.Zero
	}
	return m.SymbolValue(symbol).Div(pv)
}

// OpenSymbols lists symbols with a non-zero position, ordered by symbol.
func (m *Manager) OpenSymbols() []string {
	var out []string
	for _, pos := range m.portfolio.Positions() {
		if pos.Quantity != 0 {
			out = append(out, pos.Symbol)
		}
	}
	return out
}

// GenerateOrdersFromBundle emits at most one buy for the strongest buy aggregate
// and at most one sell for the strongest sell aggregate.
func (m *Manager) GenerateOrdersFromBundle(bundle *signal.Bundle, ts time.Time) []*common.Order {
	var orders []*common.Order

	if best, ok := bundle.StrongestBuy(); ok {
		if order := m.buildBuyOrder(best, ts); order != nil {
			orders = append(orders, order)
		}
	}
	if best, ok := bundle.StrongestSell(); ok {
		if order := m.buildSellOrder(best, ts); order != nil {
			orders = append(orders, order)
		}
	}

	return orders
}

func (m *Manager) buildBuyOrder(agg common.AggregatedSignal, ts time.Time) *common.Order {
	symbol := agg.Symbol
	price, ok := m.prices.LatestPrice(symbol)
	if !ok || !price.IsPos() {
		return m.skip(symbol, common.SideBuy, "no usable price")
	}

	held := m.portfolio.PositionQuantity(symbol) != 0
	if !held && int64(len(m.OpenSymbols())) >= m.settings.MaxPositions {
		return m.skip(symbol, common.SideBuy, "max positions reached")
	}

	if m.SymbolWeight(symbol).Gte(m.settings.MaxSymbolWeight) {
		return m.skip(symbol, common.SideBuy, "symbol weight at maximum")
	}

	rawWeight := m.settings.BaseWeightPerSymbol.Add(agg.TotalBuyStrength.Mul(m.settings.WeightPerStrengthUnit))
	targetWeight := rawWeight.
		Min(m.settings.MaxSymbolWeight).
		Min(m.settings.MaxSymbolWeight.Mul(m.settings.MaxStrengthMultiplier))

	targetValue := targetWeight.Mul(m.PortfolioValue())
	currentValue := m.SymbolValue(symbol)
	incremental := targetValue.Sub(currentValue).Max(fixed.Zero)

	if incremental.Lt(m.settings.MinTradeValue) {
		return m.skip(symbol, common.SideBuy, "trade value below minimum")
	}

	desired := incremental.Div(price).Floor()
	if desired <= 0 {
		return m.skip(symbol, common.SideBuy, "target below one share")
	}

	shares := min(desired, m.portfolio.Cash().Sub(m.fee).Div(price).Floor())
	if shares <= 0 {
		return m.skip(symbol, common.SideBuy, "insufficient cash")
	}

	if currentValue.Add(price.MulInt64(shares)).Lt(m.settings.MinPositionValue) {
		return m.skip(symbol, common.SideBuy, "position value below minimum")
	}

	return m.newOrder(symbol, common.SideBuy, shares, price, ts)
}

// buildSellOrder liquidates the full long position.
func (m *Manager) buildSellOrder(agg common.AggregatedSignal, ts time.Time) *common.Order {
	symbol := agg.Symbol
	quantity := m.portfolio.PositionQuantity(symbol)
	if quantity <= 0 {
		return nil
	}

	price, ok := m.prices.LatestPrice(symbol)
	if !ok || !price.IsPos() {
		return m.skip(symbol, common.SideSell, "no usable price")
	}

	return m.newOrder(symbol, common.SideSell, quantity, price, ts)
}

func (m *Manager) newOrder(symbol string, side common.Side, quantity int64, price fixed.Point, ts time.Time) *common.Order {
	order := &common.Order{
		Id:        utility.NewOrderID(),
		TimeStamp: ts,
		Symbol:    symbol,
		Quantity:  quantity,
		Price:     price,
		Type:      m.settings.DefaultOrderType,
		Side:      side,
		Status:    common.OrderStatusPending,
	}
	m.logger.Debug("order generated",
		zap.String("id", order.Id),
		zap.String("symbol", symbol),
		zap.Stringer("side", side),
		zap.Int64("quantity", quantity),
		zap.Stringer("price", price))
	return order
}

func (m *Manager) skip(symbol string, side common.Side, reason string) *common.Order {
	m.logger.Debug("order skipped",
		zap.String("symbol", symbol),
		zap.Stringer("side", side),
		zap.String("reason", reason))
	return nil
}
