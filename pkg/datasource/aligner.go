package datasource

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/peter-kozarec/barsim/pkg/common"
)

type stream struct {
	symbol string
	source SymbolSource

	head    common.Bar
	hasHead bool
	done    bool
}

func (s *stream) peek() (bool, error) {
	if s.done {
		return false, nil
	}
	if s.hasHead {
		return true, nil
	}
	bar, err := s.source.Next()
	if errors.Is(err, ErrEof) {
		s.done = true
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", s.symbol, err)
	}
	if bar.Symbol == "" {
		bar.Symbol = s.symbol
	}
	s.head, s.hasHead = bar, true
	return true, nil
}

func (s *stream) take() common.Bar {
	s.hasHead = false
	return s.head
}

// Aligner merges per symbol streams by timestamp. Every frame holds the bars
// sharing the smallest pending timestamp, so symbols with gaps simply sit a
// frame out. Finished streams are dropped.
type Aligner struct {
	streams []*stream
}

// NewAligner takes the streams keyed by symbol. Frames are ordered by symbol.
func NewAligner(sources map[string]SymbolSource) *Aligner {
	a := &Aligner{}
	for symbol, source := range sources {
		a.streams = append(a.streams, &stream{symbol: symbol, source: source})
	}
	slices.SortFunc(a.streams, func(x, y *stream) int {
		return strings.Compare(x.symbol, y.symbol)
	})
	return a
}

func (a *Aligner) GetNext() ([]common.Bar, error) {
	var earliest time.Time
	found := false

	for _, s := range a.streams {
		ok, err := s.peek()
		if err != nil {
			return nil, err
		}
		if ok && (!found || s.head.TimeStamp.Before(earliest)) {
			earliest, found = s.head.TimeStamp, true
		}
	}
	if !found {
		return nil, ErrEof
	}

	var frame []common.Bar
	for _, s := range a.streams {
		if s.hasHead && s.head.TimeStamp.Equal(earliest) {
			frame = append(frame, s.take())
		}
	}
	return frame, nil
}

// Lockstep emits the next bar of every unfinished stream per frame regardless
// of timestamps.
type Lockstep struct {
	streams []*stream
}

func NewLockstep(sources map[string]SymbolSource) *Lockstep {
	return &Lockstep{streams: NewAligner(sources).streams}
}

func (l *Lockstep) GetNext() ([]common.Bar, error) {
	var frame []common.Bar
	for _, s := range l.streams {
		ok, err := s.peek()
		if err != nil {
			return nil, err
		}
		if ok {
			frame = append(frame, s.take())
		}
	}
	if len(frame) == 0 {
		return nil, ErrEof
	}
	return frame, nil
}
