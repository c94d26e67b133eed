package risk

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

const (
	managerComponentName = "tools.risk.manager"

	rateWindow = time.Minute
)

// Manager gates orders before they reach the matching engine.
type Manager struct {
	logger        *zap.Logger
	configuration Configuration

	// accepted order timestamps, oldest first
	window []time.Time
}

// NewManager fails on configurations that cannot be enforced.
func NewManager(logger *zap.Logger, configuration Configuration) (*Manager, error) {
	if err := validateConfiguration(configuration); err != nil {
		return nil, err
	}
	return &Manager{
		logger:        logger.Named(managerComponentName),
		configuration: configuration,
	}, nil
}

func (m *Manager) Configuration() Configuration {
	return m.configuration
}

// ValidateOrder runs the rate, capital and position checks in that order and
// stops at the first failure. Accepted orders are recorded in the rate window.
func (m *Manager) ValidateOrder(order *common.Order, capital fixed.Point, positionSize int64) (bool, string) {
	m.evict(order.TimeStamp)

	if int64(len(m.window)) >= m.configuration.MaxOrdersPerMinute {
		return m.fail(order, fmt.Sprintf("too many orders per minute, limit %d", m.configuration.MaxOrdersPerMinute))
	}

	if order.Side == common.SideBuy {
		required := order.Notional()
		if required.Gt(capital) {
			return m.fail(order, fmt.Sprintf("not enough capital, need %s have %s", required, capital))
		}
		if positionSize+order.Quantity > m.configuration.MaxPositionSize {
			return m.fail(order, fmt.Sprintf("position limit exceeded, %d + %d > %d", positionSize, order.Quantity, m.configuration.MaxPositionSize))
		}
	} else if positionSize-order.Quantity < 0 {
		return m.fail(order, fmt.Sprintf("position limit exceeded, cannot sell %d with %d held", order.Quantity, positionSize))
	}

	m.window = append(m.window, order.TimeStamp)

	m.logger.Debug("risk check passed",
		zap.String("id", order.Id),
		zap.String("symbol", order.Symbol),
		zap.Stringer("side", order.Side),
		zap.Int64("quantity", order.Quantity),
		zap.Stringer("price", order.Price))
	return true, "passed"
}

// WindowSize is the number of accepted orders still inside the rate window.
func (m *Manager) WindowSize() int {
	return len(m.window)
}

func (m *Manager) evict(now time.Time) {
	cutoff := now.Add(-rateWindow)
	n := 0
	for n < len(m.window) && m.window[n].Before(cutoff) {
		n++
	}
	m.window = m.window[n:]
}

func (m *Manager) fail(order *common.Order, reason string) (bool, string) {
	m.logger.Debug("risk check failed",
		zap.String("id", order.Id),
		zap.String("symbol", order.Symbol),
		zap.Stringer("side", order.Side),
		zap.String("reason", reason))
	return false, reason
}
