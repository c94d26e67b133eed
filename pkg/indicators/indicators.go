package indicators

import (
	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

type Bands struct {
	Middle fixed.Point
	Upper  fixed.Point
	Lower  fixed.Point
}

type Macd struct {
	Line      fixed.Point
	Signal    fixed.Point
	Histogram fixed.Point
	// HasSignal is false while the macd series is shorter than the signal period.
	HasSignal bool
}

func (s *Store) Sma(symbol string, period int) (fixed.Point, bool) {
	values, ok := s.Closes(symbol, period)
	if !ok {
		return fixed.Zero, false
	}
	return fixed.Mean(values), true
}

// Std is the population standard deviation of the last period closes.
func (s *Store) Std(symbol string, period int) (fixed.Point, bool) {
	values, ok := s.Closes(symbol, period)
	if !ok {
		return fixed.Zero, false
	}
	return fixed.StdDev(values, fixed.Mean(values)), true
}

func (s *Store) BollingerBands(symbol string, period int, numStd fixed.Point) (Bands, bool) {
	values, ok := s.Closes(symbol, period)
	if !ok {
		return Bands{}, false
	}
	mean := fixed.Mean(values)
	width := fixed.StdDev(values, mean).Mul(numStd)
	return Bands{
		Middle: mean,
		Upper:  mean.Add(width),
		Lower:  mean.Sub(width),
	}, true
}

func (s *Store) RateOfChange(symbol string, period int) (fixed.Point, bool) {
	if period <= 0 {
		return fixed.Zero, false
	}
	values, ok := s.Closes(symbol, period+1)
	if !ok || values[0].IsZero() {
		return fixed.Zero, false
	}
	return values[len(values)-1].Sub(values[0]).Div(values[0]), true
}

// Ema runs over the whole retained window seeded with its oldest close.
func (s *Store) Ema(symbol string, period int) (fixed.Point, bool) {
	values := s.allCloses(symbol)
	if period <= 0 || len(values) < period {
		return fixed.Zero, false
	}
	return ema(values, period), true
}

// Rsi uses simple averages of gains and losses over the last period changes.
func (s *Store) Rsi(symbol string, period int) (fixed.Point, bool) {
	if period <= 0 {
		return fixed.Zero, false
	}
	values, ok := s.Closes(symbol, period+1)
	if !ok {
		return fixed.Zero, false
	}

	gains, losses := fixed.Zero, fixed.Zero
	for i := 1; i < len(values); i++ {
		change := values[i].Sub(values[i-1])
		if change.IsPos() {
			gains = gains.Add(change)
		} else {
			losses = losses.Sub(change)
		}
	}

	avgGain := gains.DivInt(period)
	avgLoss := losses.DivInt(period)
	if avgLoss.IsZero() {
		return fixed.Hundred, true
	}

	rs := avgGain.Div(avgLoss)
	return fixed.Hundred.Sub(fixed.Hundred.Div(fixed.One.Add(rs))), true
}

// Macd builds the macd series in one pass over the retained window. Every point
// equals fast minus slow ema of the prefix ending there.
func (s *Store) Macd(symbol string, fast, slow, signal int) (Macd, bool) {
	values := s.allCloses(symbol)
	warmup := max(fast, slow)
	if fast <= 0 || slow <= 0 || signal <= 0 || len(values) < warmup {
		return Macd{}, false
	}

	kFast := smoothing(fast)
	kSlow := smoothing(slow)
	emaFast, emaSlow := values[0], values[0]

	series := make([]fixed.Point, 0, len(values)-warmup+1)
	for i, value := range values {
		if i > 0 {
			emaFast = value.Sub(emaFast).Mul(kFast).Add(emaFast)
			emaSlow = value.Sub(emaSlow).Mul(kSlow).Add(emaSlow)
		}
		if i+1 >= warmup {
			series = append(series, emaFast.Sub(emaSlow))
		}
	}

	result := Macd{Line: series[len(series)-1]}
	if len(series) >= signal {
		result.Signal = ema(series, signal)
		result.Histogram = result.Line.Sub(result.Signal)
		result.HasSignal = true
	}
	return result, true
}

// Atr is the mean true range of the last period bars, each measured against the
// close of the bar before it.
func (s *Store) Atr(symbol string, period int) (fixed.Point, bool) {
	if period <= 0 {
		return fixed.Zero, false
	}
	bars, ok := s.Bars(symbol, period+1)
	if !ok {
		return fixed.Zero, false
	}

	sum := fixed.Zero
	for i := 1; i < len(bars); i++ {
		sum = sum.Add(trueRange(bars[i], bars[i-1].Close))
	}
	return sum.DivInt(period), true
}

func (s *Store) HighLowRange(symbol string, period int) (high, low fixed.Point, ok bool) {
	bars, ok := s.Bars(symbol, period)
	if !ok {
		return fixed.Zero, fixed.Zero, false
	}
	high, low = highLow(bars)
	return high, low, true
}

// PriorHighLowRange is HighLowRange over the period bars preceding the newest one.
func (s *Store) PriorHighLowRange(symbol string, period int) (high, low fixed.Point, ok bool) {
	if period <= 0 {
		return fixed.Zero, fixed.Zero, false
	}
	bars, ok := s.Bars(symbol, period+1)
	if !ok {
		return fixed.Zero, fixed.Zero, false
	}
	high, low = highLow(bars[:period])
	return high, low, true
}

// Volatility is the population standard deviation of simple returns over the
// last period changes.
func (s *Store) Volatility(symbol string, period int) (fixed.Point, bool) {
	if period <= 0 {
		return fixed.Zero, false
	}
	values, ok := s.Closes(symbol, period+1)
	if !ok {
		return fixed.Zero, false
	}
	for _, value := range values[:len(values)-1] {
		if value.IsZero() {
			return fixed.Zero, false
		}
	}
	returns := fixed.Returns(values)
	return fixed.StdDev(returns, fixed.Mean(returns)), true
}

func (s *Store) PriceDeviationFromSma(symbol string, period int) (fixed.Point, bool) {
	sma, ok := s.Sma(symbol, period)
	if !ok || sma.IsZero() {
		return fixed.Zero, false
	}
	price, _ := s.LatestPrice(symbol)
	return price.Sub(sma).Div(sma), true
}

func smoothing(period int) fixed.Point {
	return fixed.Two.DivInt(period + 1)
}

func ema(values []fixed.Point, period int) fixed.Point {
	k := smoothing(period)
	result := values[0]
	for _, value := range values[1:] {
		result = value.Sub(result).Mul(k).Add(result)
	}
	return result
}

func trueRange(bar common.Bar, prevClose fixed.Point) fixed.Point {
	tr := bar.High.Sub(bar.Low).Abs()
	tr = tr.Max(bar.High.Sub(prevClose).Abs())
	return tr.Max(bar.Low.Sub(prevClose).Abs())
}

func highLow(bars []common.Bar) (high, low fixed.Point) {
	high, low = bars[0].High, bars[0].Low
	for _, bar := range bars[1:] {
		high = high.Max(bar.High)
		low = low.Min(bar.Low)
	}
	return high, low
}
