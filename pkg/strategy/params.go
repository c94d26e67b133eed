package strategy

import (
	"fmt"
	"slices"
	"strings"

	"github.com/peter-kozarec/barsim/pkg/utility"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

// params reads typed values out of a loosely typed map and remembers the first
// failure, so factories can read every field before checking once.
type params struct {
	values map[string]any
	used   map[string]struct{}
	err    error
}

func newParams(values map[string]any) *params {
	return &params{
		values: values,
		used:   make(map[string]struct{}, len(values)),
	}
}

// period reads a strictly positive integer.
func (p *params) period(key string, def int) int {
	p.used[key] = struct{}{}
	raw, ok := p.values[key]
	if !ok || p.err != nil {
		return def
	}
	v, err := utility.ToInt64(raw)
	if err != nil {
		p.fail("%s: %v", key, err)
		return def
	}
	if v <= 0 {
		p.fail("%s must be positive, got %d", key, v)
		return def
	}
	return int(v)
}

func (p *params) point(key string, def fixed.Point) fixed.Point {
	p.used[key] = struct{}{}
	raw, ok := p.values[key]
	if !ok || p.err != nil {
		return def
	}
	v, err := utility.ToFloat64(raw)
	if err != nil {
		p.fail("%s: %v", key, err)
		return def
	}
	return fixed.FromFloat64(v)
}

// nonNegative reads a point that must not be below zero.
func (p *params) nonNegative(key string, def fixed.Point) fixed.Point {
	v := p.point(key, def)
	if v.IsNeg() {
		p.fail("%s must not be negative, got %s", key, v)
	}
	return v
}

func (p *params) fail(format string, args ...any) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: %s", ErrInvalidParams, fmt.Sprintf(format, args...))
	}
}

// done reports the first read failure or any key no field asked for.
func (p *params) done() error {
	if p.err != nil {
		return p.err
	}
	var unknown []string
	for key := range p.values {
		if _, ok := p.used[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return fmt.Errorf("%w: unknown params %s", ErrInvalidParams, strings.Join(unknown, ", "))
	}
	return nil
}
