package risk

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

var t0 = time.Date(2024, 4, 1, 14, 30, 0, 0, time.UTC)

func createTestManager(t *testing.T, cfg Configuration) *Manager {
	m, err := NewManager(zaptest.NewLogger(t), cfg)
	require.NoError(t, err)
	return m
}

func testOrder(side common.Side, quantity int64, price float64, ts time.Time) *common.Order {
	return &common.Order{
		Id:        "o",
		TimeStamp: ts,
		Symbol:    "X",
		Quantity:  quantity,
		Price:     fixed.FromFloat64(price),
		Side:      side,
	}
}

func TestValidateConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Configuration
		wantErr bool
	}{
		{"defaults", DefaultConfiguration(), false},
		{"zero rate limit is enforceable", Configuration{MaxOrdersPerMinute: 0, MaxPositionSize: 10}, false},
		{"negative rate limit", Configuration{MaxOrdersPerMinute: -1, MaxPositionSize: 10}, true},
		{"negative position size", Configuration{MaxOrdersPerMinute: 1, MaxPositionSize: -10}, true},
		{"negative capital", Configuration{MaxOrdersPerMinute: 1, MaxPositionSize: 10, InitialCapital: fixed.FromInt(-1, 0)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewManager(zaptest.NewLogger(t), tt.cfg)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfiguration)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseConfiguration(t *testing.T) {
	cfg, err := ParseConfiguration(map[string]any{
		"max_orders_per_minute": int64(5),
		"max_position_size":     float64(250),
		"initial_capital":       100000.0,
		"unknown_key":           "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), cfg.MaxOrdersPerMinute)
	assert.Equal(t, int64(250), cfg.MaxPositionSize)
	assert.True(t, cfg.InitialCapital.Eq(fixed.FromInt(100000, 0)))

	cfg, err = ParseConfiguration(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfiguration(), cfg)

	_, err = ParseConfiguration(map[string]any{"max_orders_per_minute": -3})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = ParseConfiguration(map[string]any{"max_position_size": "lots"})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestManager_RateLimit(t *testing.T) {
	tests := []struct {
		name       string
		gap        time.Duration
		wantSecond bool
	}{
		{"ten seconds apart", 10 * time.Second, false},
		{"seventy seconds apart", 70 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := createTestManager(t, Configuration{MaxOrdersPerMinute: 1, MaxPositionSize: 1000})

			ok, _ := m.ValidateOrder(testOrder(common.SideBuy, 1, 10, t0), fixed.FromInt(1000, 0), 0)
			require.True(t, ok)

			ok, reason := m.ValidateOrder(testOrder(common.SideBuy, 1, 10, t0.Add(tt.gap)), fixed.FromInt(1000, 0), 1)
			assert.Equal(t, tt.wantSecond, ok, reason)
			if !tt.wantSecond {
				assert.Contains(t, reason, "too many orders per minute")
			}
		})
	}
}

func TestManager_RateWindowNeverExceedsLimit(t *testing.T) {
	const limit = 3
	m := createTestManager(t, Configuration{MaxOrdersPerMinute: limit, MaxPositionSize: 1_000_000})

	var accepted []time.Time
	ts := t0
	for i := 0; i < 200; i++ {
		ts = ts.Add(time.Duration(1+i%17) * time.Second)
		if ok, _ := m.ValidateOrder(testOrder(common.SideBuy, 1, 1, ts), fixed.FromInt(1_000_000, 0), 0); ok {
			accepted = append(accepted, ts)
		}
		assert.LessOrEqual(t, m.WindowSize(), limit)
	}

	require.NotEmpty(t, accepted)
	for i := range accepted {
		count := 0
		for j := i; j < len(accepted) && accepted[j].Sub(accepted[i]) < time.Minute; j++ {
			count++
		}
		assert.LessOrEqual(t, count, limit, "window starting at %s", accepted[i])
	}
}

func TestManager_CapitalAndPositionChecks(t *testing.T) {
	tests := []struct {
		name         string
		order        *common.Order
		capital      float64
		positionSize int64
		wantOk       bool
		wantReason   string
	}{
		{"buy within capital", testOrder(common.SideBuy, 100, 50, t0), 5000, 0, true, ""},
		{"buy above capital", testOrder(common.SideBuy, 101, 50, t0), 5000, 0, false, "not enough capital"},
		{"buy above position limit", testOrder(common.SideBuy, 10, 1, t0), 1000, 95, false, "position limit"},
		{"sell ignores capital", testOrder(common.SideSell, 10, 1000, t0), 0, 10, true, ""},
		{"sell more than held", testOrder(common.SideSell, 11, 10, t0), 1000, 10, false, "position limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := createTestManager(t, Configuration{MaxOrdersPerMinute: 10, MaxPositionSize: 100})
			ok, reason := m.ValidateOrder(tt.order, fixed.FromFloat64(tt.capital), tt.positionSize)
			assert.Equal(t, tt.wantOk, ok, reason)
			if !tt.wantOk {
				assert.True(t, strings.Contains(reason, tt.wantReason), "reason %q", reason)
				assert.Equal(t, 0, m.WindowSize(), "rejected orders are not recorded")
			} else {
				assert.Equal(t, 1, m.WindowSize())
			}
		})
	}
}
