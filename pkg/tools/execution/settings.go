package execution

import (
	"errors"
	"fmt"

	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/utility"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

const (
	keyMaxPositions          = "max_positions"
	keyMaxSymbolWeight       = "max_symbol_weight"
	keyMinPositionValue      = "min_position_value"
	keyMinTradeValue         = "min_trade_value"
	keyBaseWeightPerSymbol   = "base_weight_per_symbol"
	keyWeightPerStrengthUnit = "weight_per_strength_unit"
	keyMaxStrengthMultiplier = "max_strength_multiplier"
	keyDefaultOrderType      = "default_order_type"
)

var ErrInvalidSetting = errors.New("invalid execution setting")

type Settings struct {
	MaxPositions          int64
	MaxSymbolWeight       fixed.Point
	MinPositionValue      fixed.Point
	MinTradeValue         fixed.Point
	BaseWeightPerSymbol   fixed.Point
	WeightPerStrengthUnit fixed.Point
	MaxStrengthMultiplier fixed.Point
	DefaultOrderType      common.OrderType
}

func DefaultSettings() Settings {
	return Settings{
		MaxPositions:          10,
		MaxSymbolWeight:       fixed.FromFloat64(0.2),
		MinPositionValue:      fixed.Zero,
		MinTradeValue:         fixed.Zero,
		BaseWeightPerSymbol:   fixed.FromFloat64(0.01),
		WeightPerStrengthUnit: fixed.Zero,
		MaxStrengthMultiplier: fixed.One,
		DefaultOrderType:      common.OrderTypeMarket,
	}
}

// ParseSettings reads a flat key-value map. Missing keys keep their defaults,
// unknown keys are ignored.
func ParseSettings(values map[string]any) (Settings, error) {
	s := DefaultSettings()

	if v, ok := values[keyMaxPositions]; ok {
		n, err := utility.ToInt64(v)
		if err != nil {
			return Settings{}, fmt.Errorf("%w: %s: %w", ErrInvalidSetting, keyMaxPositions, err)
		}
		s.MaxPositions = n
	}

	points := []struct {
		key    string
		target *fixed.Point
	}{
		{keyMaxSymbolWeight, &s.MaxSymbolWeight},
		{keyMinPositionValue, &s.MinPositionValue},
		{keyMinTradeValue, &s.MinTradeValue},
		{keyBaseWeightPerSymbol, &s.BaseWeightPerSymbol},
		{keyWeightPerStrengthUnit, &s.WeightPerStrengthUnit},
		{keyMaxStrengthMultiplier, &s.MaxStrengthMultiplier},
	}
	for _, p := range points {
		v, ok := values[p.key]
		if !ok {
			continue
		}
		f, err := utility.ToFloat64(v)
		if err != nil {
			return Settings{}, fmt.Errorf("%w: %s: %w", ErrInvalidSetting, p.key, err)
		}
		*p.target = fixed.FromFloat64(f)
	}

	if v, ok := values[keyDefaultOrderType]; ok {
		name, isString := v.(string)
		if !isString {
			return Settings{}, fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidSetting, keyDefaultOrderType, v)
		}
		orderType, err := common.ParseOrderType(name)
		if err != nil {
			return Settings{}, fmt.Errorf("%w: %s: %w", ErrInvalidSetting, keyDefaultOrderType, err)
		}
		s.DefaultOrderType = orderType
	}

	return s, s.Validate()
}

func (s Settings) Validate() error {
	if s.MaxPositions < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidSetting, keyMaxPositions)
	}
	for key, value := range map[string]fixed.Point{
		keyMaxSymbolWeight:       s.MaxSymbolWeight,
		keyMinPositionValue:      s.MinPositionValue,
		keyMinTradeValue:         s.MinTradeValue,
		keyBaseWeightPerSymbol:   s.BaseWeightPerSymbol,
		keyWeightPerStrengthUnit: s.WeightPerStrengthUnit,
		keyMaxStrengthMultiplier: s.MaxStrengthMultiplier,
	} {
		if value.IsNeg() {
			return fmt.Errorf("%w: %s must not be negative, got %s", ErrInvalidSetting, key, value)
		}
	}
	return nil
}
