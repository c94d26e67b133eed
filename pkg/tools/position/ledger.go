package position

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

var (
	ErrNegativeCash     = errors.New("cash is negative")
	ErrNegativePosition = errors.New("position is negative")
)

// PriceProvider resolves the latest known price of a symbol.
type PriceProvider interface {
	LatestPrice(symbol string) (fixed.Point, bool)
}

// Prices is a static PriceProvider.
type Prices map[string]fixed.Point

func (p Prices) LatestPrice(symbol string) (fixed.Point, bool) {
	price, ok := p[symbol]
	return price, ok
}

// Ledger owns cash and positions. UpdateFromFill is the only mutator.
type Ledger struct {
	cash      fixed.Point
	realized  fixed.Point
	positions map[string]*common.Position
	trades    []common.TradeRecord
}

// NewLedger seeds the ledger with starting cash and positions.
func NewLedger(cash fixed.Point, positions ...common.Position) *Ledger {
	l := &Ledger{
		cash:      cash,
		positions: make(map[string]*common.Position),
	}
	for _, p := range positions {
		seeded := p
		if seeded.Quantity == 0 {
			seeded.AvgPrice = fixed.Zero
		}
		l.positions[p.Symbol] = &seeded
	}
	return l
}

// UpdateFromFill applies the filled part of an order. Realized pnl is booked
// only for the part that closes an existing position.
func (l *Ledger) UpdateFromFill(order *common.Order, fee fixed.Point) common.TradeRecord {
	price := order.FilledPrice
	signedQty := order.FilledQuantity * order.Side.Sign()

	pos, ok := l.positions[order.Symbol]
	if !ok {
		pos = &common.Position{Symbol: order.Symbol}
		l.positions[order.Symbol] = pos
	}

	oldQty := pos.Quantity
	newQty := oldQty + signedQty

	tradeValue := price.MulInt64(order.FilledQuantity)
	if signedQty > 0 {
		l.cash = l.cash.Sub(tradeValue.Add(fee))
	} else {
		l.cash = l.cash.Add(tradeValue.Sub(fee))
	}

	realized := fixed.Zero
	if oldQty != 0 && sign(signedQty) != sign(oldQty) {
		closed := min(abs(oldQty), abs(signedQty))
		realized = price.Sub(pos.AvgPrice).MulInt64(closed)
		if oldQty < 0 {
			realized = realized.Neg()
		}
		l.realized = l.realized.Add(realized)
	}

	switch {
	case newQty == 0:
		pos.AvgPrice = fixed.Zero
	case oldQty == 0:
		pos.AvgPrice = price
	case sign(oldQty) != sign(newQty):
		pos.AvgPrice = price
	case sign(signedQty) == sign(oldQty):
		notional := pos.AvgPrice.MulInt64(abs(oldQty)).Add(price.MulInt64(abs(signedQty)))
		pos.AvgPrice = notional.DivInt64(abs(newQty))
	}
	pos.Quantity = newQty

	record := common.TradeRecord{
		TimeStamp:     order.FilledTimeStamp,
		Symbol:        order.Symbol,
		Side:          order.Side,
		Quantity:      order.FilledQuantity,
		Price:         price,
		Fee:           fee,
		RealizedPnL:   realized,
		PositionAfter: newQty,
	}
	l.trades = append(l.trades, record)
	return record
}

func (l *Ledger) Cash() fixed.Point {
	return l.cash
}

func (l *Ledger) RealizedPnL() fixed.Point {
	return l.realized
}

func (l *Ledger) Position(symbol string) (common.Position, bool) {
	pos, ok := l.positions[symbol]
	if !ok {
		return common.Position{Symbol: symbol}, false
	}
	return *pos, true
}

func (l *Ledger) PositionQuantity(symbol string) int64 {
	pos, _ := l.Position(symbol)
	return pos.Quantity
}

// Positions returns copies ordered by symbol.
func (l *Ledger) Positions() []common.Position {
	out := make([]common.Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, *pos)
	}
	slices.SortFunc(out, func(a, b common.Position) int {
		return strings.Compare(a.Symbol, b.Symbol)
	})
	return out
}

func (l *Ledger) Trades() []common.TradeRecord {
	return slices.Clone(l.trades)
}

func (l *Ledger) PositionValue(symbol string, lastPrice fixed.Point) fixed.Point {
	return lastPrice.MulInt64(l.PositionQuantity(symbol))
}

// PortfolioValue is cash plus every position marked at its latest price.
// Symbols without a price are skipped.
func (l *Ledger) PortfolioValue(prices PriceProvider) fixed.Point {
	value := l.cash
	for symbol, pos := range l.positions {
		price, ok := prices.LatestPrice(symbol)
		if !ok {
			continue
		}
		value = value.Add(price.MulInt64(pos.Quantity))
	}
	return value
}

func (l *Ledger) IsFlat(symbol string) bool  { return l.PositionQuantity(symbol) == 0 }
func (l *Ledger) IsLong(symbol string) bool  { return l.PositionQuantity(symbol) > 0 }
func (l *Ledger) IsShort(symbol string) bool { return l.PositionQuantity(symbol) < 0 }

// CheckInvariants reports states that correct risk gating must never produce.
func (l *Ledger) CheckInvariants(allowShort bool) error {
	if l.cash.IsNeg() {
		return fmt.Errorf("%w: %s", ErrNegativeCash, l.cash)
	}
	if allowShort {
		return nil
	}
	for _, pos := range l.Positions() {
		if pos.Quantity < 0 {
			return fmt.Errorf("%w: %s %d", ErrNegativePosition, pos.Symbol, pos.Quantity)
		}
	}
	return nil
}

func sign(v int64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
