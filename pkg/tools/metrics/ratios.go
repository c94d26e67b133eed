package metrics

import (
	"time"

	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

// MaxDrawdown is the most negative relative distance from the running peak,
// so the result is zero or negative.
func MaxDrawdown(equities []common.Equity) fixed.Point {
	if len(equities) == 0 {
		return fixed.Zero
	}

	peak := equities[0].Value
	worst := fixed.Zero
	for _, eq := range equities {
		peak = peak.Max(eq.Value)
		if !peak.IsPos() {
			continue
		}
		worst = worst.Min(eq.Value.Sub(peak).Div(peak))
	}
	return worst
}

// PeriodsPerYear infers the sampling frequency from the median spacing of the
// curve over a 365 day year.
func PeriodsPerYear(equities []common.Equity) (fixed.Point, bool) {
	if len(equities) < 2 {
		return fixed.Zero, false
	}

	spacing := make([]fixed.Point, 0, len(equities)-1)
	for i := 1; i < len(equities); i++ {
		d := equities[i].TimeStamp.Sub(equities[i-1].TimeStamp)
		spacing = append(spacing, seconds(d))
	}

	median := fixed.Median(spacing)
	if !median.IsPos() {
		return fixed.Zero, false
	}
	return fixed.SecondsPerYear.Div(median), true
}

// AnnualizedVolatility is the sample standard deviation of period returns
// scaled by the square root of PeriodsPerYear.
func AnnualizedVolatility(equities []common.Equity) (fixed.Point, bool) {
	_, std, ok := returnMoments(equities)
	if !ok {
		return fixed.Zero, false
	}
	ppy, ok := PeriodsPerYear(equities)
	if !ok {
		return fixed.Zero, false
	}
	return std.Mul(ppy.Sqrt()), true
}

// AnnualizedSharpe uses a zero risk free rate. It is undefined for flat curves.
func AnnualizedSharpe(equities []common.Equity) (fixed.Point, bool) {
	mean, std, ok := returnMoments(equities)
	if !ok || std.IsZero() {
		return fixed.Zero, false
	}
	ppy, ok := PeriodsPerYear(equities)
	if !ok {
		return fixed.Zero, false
	}
	return mean.Div(std).Mul(ppy.Sqrt()), true
}

// returnMoments needs at least two returns for a sample deviation.
func returnMoments(equities []common.Equity) (mean, std fixed.Point, ok bool) {
	values := make([]fixed.Point, len(equities))
	for i, eq := range equities {
		values[i] = eq.Value
	}

	returns := fixed.Returns(values)
	if len(returns) < 2 {
		return fixed.Zero, fixed.Zero, false
	}
	mean = fixed.Mean(returns)
	return mean, fixed.SampleStdDev(returns, mean), true
}

func seconds(d time.Duration) fixed.Point {
	return fixed.FromInt64(d.Nanoseconds(), 9)
}
