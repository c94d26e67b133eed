package historical

import (
	"fmt"
	"time"

	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/datasource"
)

const invalidIndex = -1

// BarReader streams the bars of one symbol within [from, to]. A zero from
// starts at the first record, a zero to reads until the end of the file.
type BarReader struct {
	source *Source[BinaryBar]

	symbol string
	from   int64
	to     int64
	idx    int64
}

func NewBarReader(source *Source[BinaryBar], symbol string, from, to time.Time) *BarReader {
	r := &BarReader{
		source: source,
		symbol: symbol,
		idx:    invalidIndex,
	}
	if !from.IsZero() {
		r.from = from.UnixNano()
	}
	if !to.IsZero() {
		r.to = to.UnixNano()
	}
	return r
}

func (r *BarReader) Next() (common.Bar, error) {
	var binBar BinaryBar

	if r.idx == invalidIndex {
		if err := r.lookupStartIndex(); err != nil {
			return common.Bar{}, err
		}
	}

	if err := r.source.Read(r.idx, &binBar); err != nil {
		return common.Bar{}, err
	}
	r.idx++

	if binBar.TimeStamp < r.from {
		return common.Bar{}, fmt.Errorf("timestamp %d precedes the requested range", binBar.TimeStamp)
	}
	if r.to != 0 && binBar.TimeStamp > r.to {
		return common.Bar{}, datasource.ErrEof
	}

	return binBar.ToBar(r.symbol), nil
}

// lookupStartIndex binary searches the first record at or after from.
func (r *BarReader) lookupStartIndex() error {
	entryCount, err := r.source.EntryCount()
	if err != nil {
		return fmt.Errorf("error getting entry count: %w", err)
	}

	var entry BinaryBar

	low := int64(0)
	high := entryCount - 1

	for low <= high {
		mid := (low + high) / 2

		if err := r.source.Read(mid, &entry); err != nil {
			return fmt.Errorf("error reading entry at index %d: %w", mid, err)
		}

		if entry.TimeStamp < r.from {
			low = mid + 1
		} else {
			high = mid - 1
		}
	}

	r.idx = low
	return nil
}
