package datasource

import (
	"errors"

	"github.com/peter-kozarec/barsim/pkg/common"
)

var ErrEof = errors.New("EOF")

// BarSource yields one frame of bars per call, at most one bar per symbol.
// ErrEof ends the stream.
type BarSource interface {
	GetNext() ([]common.Bar, error)
}

// SymbolSource yields the bars of a single symbol in timestamp order.
type SymbolSource interface {
	Next() (common.Bar, error)
}

// MemorySource replays prepared frames.
type MemorySource struct {
	frames [][]common.Bar
	idx    int
}

func NewMemorySource(frames ...[]common.Bar) *MemorySource {
	return &MemorySource{frames: frames}
}

func (s *MemorySource) GetNext() ([]common.Bar, error) {
	if s.idx >= len(s.frames) {
		return nil, ErrEof
	}
	frame := s.frames[s.idx]
	s.idx++
	return frame, nil
}

// SliceSource replays bars of one symbol.
type SliceSource struct {
	bars []common.Bar
	idx  int
}

func NewSliceSource(bars []common.Bar) *SliceSource {
	return &SliceSource{bars: bars}
}

func (s *SliceSource) Next() (common.Bar, error) {
	if s.idx >= len(s.bars) {
		return common.Bar{}, ErrEof
	}
	bar := s.bars[s.idx]
	s.idx++
	return bar, nil
}
