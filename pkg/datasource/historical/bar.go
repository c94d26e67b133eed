package historical

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

// BinaryBar is the on-disk record, 48 bytes little-endian. A NaN volume marks
// the volume as missing.
type BinaryBar struct {
	TimeStamp int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

func (b *BinaryBar) ToBar(symbol string) common.Bar {
	bar := common.Bar{
		Symbol:    symbol,
		TimeStamp: time.Unix(0, b.TimeStamp).UTC(),
		Open:      fixed.FromFloat64(b.Open),
		High:      fixed.FromFloat64(b.High),
		Low:       fixed.FromFloat64(b.Low),
		Close:     fixed.FromFloat64(b.Close),
	}
	if math.IsNaN(b.Volume) {
		bar.MissingVolume = true
	} else {
		bar.Volume = fixed.FromFloat64(b.Volume)
	}
	return bar
}

func NewBinaryBar(bar common.Bar) BinaryBar {
	out := BinaryBar{
		TimeStamp: bar.TimeStamp.UnixNano(),
		Open:      toFloat64(bar.Open),
		High:      toFloat64(bar.High),
		Low:       toFloat64(bar.Low),
		Close:     toFloat64(bar.Close),
		Volume:    math.NaN(),
	}
	if !bar.MissingVolume {
		out.Volume = toFloat64(bar.Volume)
	}
	return out
}

// WriteBars encodes bars in the layout Source[BinaryBar] reads.
func WriteBars(w io.Writer, bars []common.Bar) error {
	for i, bar := range bars {
		record := NewBinaryBar(bar)
		if err := binary.Write(w, binary.LittleEndian, &record); err != nil {
			return fmt.Errorf("unable to write bar %d: %w", i, err)
		}
	}
	return nil
}

func toFloat64(p fixed.Point) float64 {
	f, _ := p.Float64()
	return f
}
