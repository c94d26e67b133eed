package risk

import (
	"errors"
	"fmt"

	"github.com/peter-kozarec/barsim/pkg/utility"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

const (
	DefaultMaxOrdersPerMinute = 60
	DefaultMaxPositionSize    = 10_000

	keyMaxOrdersPerMinute = "max_orders_per_minute"
	keyMaxPositionSize    = "max_position_size"
	keyInitialCapital     = "initial_capital"
)

var ErrInvalidConfiguration = errors.New("invalid risk configuration")

type Configuration struct {
	MaxOrdersPerMinute int64
	MaxPositionSize    int64
	// InitialCapital is informational, capital checks use the capital passed per order.
	InitialCapital fixed.Point
}

func DefaultConfiguration() Configuration {
	return Configuration{
		MaxOrdersPerMinute: DefaultMaxOrdersPerMinute,
		MaxPositionSize:    DefaultMaxPositionSize,
	}
}

// ParseConfiguration reads a flat key-value map. Missing keys keep their defaults,
// unknown keys are ignored.
func ParseConfiguration(values map[string]any) (Configuration, error) {
	cfg := DefaultConfiguration()

	if v, ok := values[keyMaxOrdersPerMinute]; ok {
		n, err := utility.ToInt64(v)
		if err != nil {
			return Configuration{}, fmt.Errorf("%w: %s: %w", ErrInvalidConfiguration, keyMaxOrdersPerMinute, err)
		}
		cfg.MaxOrdersPerMinute = n
	}
	if v, ok := values[keyMaxPositionSize]; ok {
		n, err := utility.ToInt64(v)
		if err != nil {
			return Configuration{}, fmt.Errorf("%w: %s: %w", ErrInvalidConfiguration, keyMaxPositionSize, err)
		}
		cfg.MaxPositionSize = n
	}
	if v, ok := values[keyInitialCapital]; ok {
		f, err := utility.ToFloat64(v)
		if err != nil {
			return Configuration{}, fmt.Errorf("%w: %s: %w", ErrInvalidConfiguration, keyInitialCapital, err)
		}
		cfg.InitialCapital = fixed.FromFloat64(f)
	}

	return cfg, validateConfiguration(cfg)
}

func validateConfiguration(cfg Configuration) error {
	if cfg.MaxOrdersPerMinute < 0 {
		return fmt.Errorf("%w: %s must not be negative, got %d", ErrInvalidConfiguration, keyMaxOrdersPerMinute, cfg.MaxOrdersPerMinute)
	}
	if cfg.MaxPositionSize < 0 {
		return fmt.Errorf("%w: %s must not be negative, got %d", ErrInvalidConfiguration, keyMaxPositionSize, cfg.MaxPositionSize)
	}
	if cfg.InitialCapital.IsNeg() {
		return fmt.Errorf("%w: %s must not be negative, got %s", ErrInvalidConfiguration, keyInitialCapital, cfg.InitialCapital)
	}
	return nil
}
