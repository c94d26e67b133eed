package utility

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

var ErrConversion = errors.New("value conversion failed")

// ToFloat64 converts loosely typed configuration values as produced by the
// toml, yaml and json decoders.
func ToFloat64(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrConversion, v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrConversion, value)
	}
}

// ToInt64 accepts whole floats as well, since json decodes every number as float64.
func ToInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case uint64:
		return U64ToI64(v)
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt64 || v < math.MinInt64 {
			return 0, fmt.Errorf("%w: %v is not a whole number", ErrConversion, v)
		}
		return int64(v), nil
	case string:
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrConversion, v)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrConversion, value)
	}
}

func U64ToI64(i uint64) (int64, error) {
	if i <= uint64(math.MaxInt64) {
		return int64(i), nil // #nosec G115
	}
	return 0, fmt.Errorf("%w: integer overflow", ErrConversion)
}
