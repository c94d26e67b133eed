package resample

import (
	"errors"
	"fmt"
	"time"

	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/datasource"
)

var ErrInvalidPeriod = errors.New("resample period must be positive")

// Resampler merges the bars of a source into bars of a coarser period. Output
// bars are stamped with the start of their period, periods are aligned to the
// zero time in UTC, so a 24h period starts at midnight UTC.
type Resampler struct {
	source datasource.SymbolSource
	period time.Duration

	inConstruction common.Bar
	building       bool
}

func NewResampler(source datasource.SymbolSource, period time.Duration) (*Resampler, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	return &Resampler{source: source, period: period}, nil
}

// Next returns a bar once the source moves past its period, so each output
// reads one bar ahead.
func (r *Resampler) Next() (common.Bar, error) {
	for {
		bar, err := r.source.Next()
		if errors.Is(err, datasource.ErrEof) {
			if r.building {
				r.building = false
				return r.inConstruction, nil
			}
			return common.Bar{}, datasource.ErrEof
		}
		if err != nil {
			return common.Bar{}, err
		}

		start := periodStart(bar.TimeStamp, r.period)
		if !r.building {
			r.open(bar, start)
			continue
		}

		switch {
		case start.Equal(r.inConstruction.TimeStamp):
			r.merge(bar)
		case start.Before(r.inConstruction.TimeStamp):
			return common.Bar{}, fmt.Errorf("%s: bar at %s is older than the period in construction %s",
				bar.Symbol, bar.TimeStamp.Format(time.RFC3339), r.inConstruction.TimeStamp.Format(time.RFC3339))
		default:
			done := r.inConstruction
			r.open(bar, start)
			return done, nil
		}
	}
}

func (r *Resampler) open(bar common.Bar, start time.Time) {
	bar.TimeStamp = start
	r.inConstruction = bar
	r.building = true
}

func (r *Resampler) merge(bar common.Bar) {
	b := &r.inConstruction
	if bar.High.Gt(b.High) {
		b.High = bar.High
	}
	if bar.Low.Lt(b.Low) {
		b.Low = bar.Low
	}
	b.Close = bar.Close
	b.Volume = b.Volume.Add(bar.Volume)
	b.MissingVolume = b.MissingVolume || bar.MissingVolume
}

func periodStart(t time.Time, period time.Duration) time.Time {
	return t.UTC().Truncate(period)
}
