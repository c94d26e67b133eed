package common

import (
	"fmt"
	"time"

	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

type OrderEventKind int

const (
	OrderEventPlaced OrderEventKind = iota
	OrderEventFilled
	OrderEventRejected
	OrderEventCancelled
)

func (k OrderEventKind) String() string {
	switch k {
	case OrderEventPlaced:
		return "placed"
	case OrderEventFilled:
		return "filled"
	case OrderEventRejected:
		return "rejected"
	case OrderEventCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("OrderEventKind(%d)", int(k))
	}
}

func (k OrderEventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// OrderEvent records an order state change together with a snapshot of the order.
type OrderEvent struct {
	Kind      OrderEventKind `json:"kind"`
	Order     Order          `json:"order"`
	Fee       fixed.Point    `json:"fee"`
	Reason    string         `json:"reason,omitempty"`
	TimeStamp time.Time      `json:"ts"`
}

// RiskDecision records the outcome of a pre-trade validation.
type RiskDecision struct {
	Order     Order     `json:"order"`
	Accepted  bool      `json:"accepted"`
	Reason    string    `json:"reason"`
	TimeStamp time.Time `json:"ts"`
}
