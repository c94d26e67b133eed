package synthetic

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/datasource"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

const (
	barGeneratorComponentName = "datasource.synthetic.generator"

	DefaultInterval   = 24 * time.Hour
	DefaultPriceScale = 4

	// share of the bar volatility used to stretch high and low beyond open and close
	wickFactor = 0.5

	avgVolume         = 100_000
	volumeVariability = 0.35
)

var pointFive = fixed.FromInt64(5, 1)

// Parameters describes a geometric brownian motion path. Mu and Sigma are annualized.
type Parameters struct {
	Start      time.Time
	StartPrice fixed.Point
	Mu         float64
	Sigma      float64
	Bars       int64
	Interval   time.Duration
}

// BarGenerator produces OHLCV bars along a GBM path. All randomness comes from
// the injected rng so equal seeds give equal paths.
type BarGenerator struct {
	logger *zap.Logger
	symbol string
	rng    *rand.Rand

	interval time.Duration
	steps    int64
	t        int64

	deltaLogPre1 fixed.Point
	deltaLogPre2 fixed.Point
	barSigma     float64

	lastTime  time.Time
	lastPrice fixed.Point

	normPriceDigits int
}

func NewBarGenerator(logger *zap.Logger, symbol string, rng *rand.Rand, params Parameters) *BarGenerator {
	interval := params.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	mu := fixed.FromFloat64(params.Mu)
	sigma := fixed.FromFloat64(params.Sigma)
	deltaT := fixed.FromInt64(int64(interval/time.Second), 0).Div(fixed.SecondsPerYear)

	g := &BarGenerator{
		logger:   logger.Named(barGeneratorComponentName),
		symbol:   symbol,
		rng:      rng,
		interval: interval,
		steps:    params.Bars,

		deltaLogPre1: mu.Sub(sigma.Mul(sigma).Mul(pointFive)).Mul(deltaT),
		deltaLogPre2: sigma.Mul(deltaT.Sqrt()),

		lastTime:  params.Start,
		lastPrice: params.StartPrice,

		normPriceDigits: DefaultPriceScale,
	}
	g.barSigma, _ = g.deltaLogPre2.Float64()

	g.logger.Debug("synthetic bar generator configured",
		zap.String("symbol", symbol),
		zap.Float64("mu", params.Mu),
		zap.Float64("sigma", params.Sigma),
		zap.Stringer("start_price", params.StartPrice),
		zap.Duration("interval", interval),
		zap.Int64("bars", params.Bars))

	return g
}

func (g *BarGenerator) SetPriceDigits(digits int) {
	g.normPriceDigits = digits
}

// Next advances the path by one interval. The first bar is stamped at Start.
func (g *BarGenerator) Next() (common.Bar, error) {
	if g.t >= g.steps {
		return common.Bar{}, datasource.ErrEof
	}

	open := g.lastPrice

	z := g.rng.NormFloat64()
	deltaLog := g.deltaLogPre1.Add(g.deltaLogPre2.Mul(fixed.FromFloat64(z)))
	closePrice := open.Mul(deltaLog.Exp())

	high := open.Max(closePrice).Mul(g.wick(1))
	low := open.Min(closePrice).Mul(g.wick(-1))

	bar := common.Bar{
		Symbol:    g.symbol,
		TimeStamp: g.lastTime,
		Open:      open.Rescale(g.normPriceDigits),
		High:      high.Rescale(g.normPriceDigits),
		Low:       low.Rescale(g.normPriceDigits),
		Close:     closePrice.Rescale(g.normPriceDigits),
		Volume:    g.volume(),
	}

	g.lastPrice = bar.Close
	g.lastTime = g.lastTime.Add(g.interval)
	g.t++

	return bar, nil
}

func (g *BarGenerator) wick(direction float64) fixed.Point {
	stretch := abs(g.rng.NormFloat64()) * g.barSigma * wickFactor
	return fixed.FromFloat64(1 + direction*stretch)
}

func (g *BarGenerator) volume() fixed.Point {
	variation := g.rng.NormFloat64() * volumeVariability
	multiplier := fixed.FromFloat64(variation).Exp()
	return fixed.FromInt64(avgVolume, 0).Mul(multiplier).Rescale(0)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
