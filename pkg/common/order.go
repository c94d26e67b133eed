package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

type OrderType int
type OrderStatus int

const (
	OrderTypeMarket OrderType = iota
	OrderTypeLimit
)

const (
	OrderStatusPending OrderStatus = iota
	OrderStatusPlaced
	OrderStatusFilled
	OrderStatusRejected
	OrderStatusCancelled
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeMarket:
		return "MARKET"
	case OrderTypeLimit:
		return "LIMIT"
	default:
		return fmt.Sprintf("OrderType(%d)", int(t))
	}
}

func (t OrderType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func ParseOrderType(s string) (OrderType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MARKET":
		return OrderTypeMarket, nil
	case "LIMIT":
		return OrderTypeLimit, nil
	default:
		return 0, fmt.Errorf("unknown order type %q", s)
	}
}

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusPending:
		return "Pending"
	case OrderStatusPlaced:
		return "Placed"
	case OrderStatusFilled:
		return "Filled"
	case OrderStatusRejected:
		return "Rejected"
	case OrderStatusCancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("OrderStatus(%d)", int(s))
	}
}

func (s OrderStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Order is created by the execution manager. The order book owns the placement
// and cancellation fields, the matching engine owns status and fill fields.
type Order struct {
	Id        string      `json:"id"`
	TimeStamp time.Time   `json:"ts"`
	Symbol    string      `json:"symbol"`
	Quantity  int64       `json:"quantity"`
	Price     fixed.Point `json:"price"`
	Type      OrderType   `json:"type"`
	Side      Side        `json:"side"`
	Status    OrderStatus `json:"status"`

	FilledPrice     fixed.Point `json:"filled_price"`
	FilledQuantity  int64       `json:"filled_quantity"`
	FilledTimeStamp time.Time   `json:"filled_ts"`
	IsCancelled     bool        `json:"is_cancelled,omitempty"`
}

// Notional is quantity times the reference price.
func (o *Order) Notional() fixed.Point {
	return o.Price.MulInt64(o.Quantity)
}

// FilledNotional is filled quantity times the fill price.
func (o *Order) FilledNotional() fixed.Point {
	return o.FilledPrice.MulInt64(o.FilledQuantity)
}
