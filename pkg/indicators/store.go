package indicators

import (
	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/utility/circular"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

const DefaultMaxHistory = 200

// Store keeps a bounded bar history per symbol. Every indicator is a pure
// function of the retained window and reports ok=false when the window is too short.
type Store struct {
	maxHistory uint
	history    map[string]*circular.Buffer[common.Bar]
}

func NewStore(maxHistory uint) *Store {
	if maxHistory == 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Store{
		maxHistory: maxHistory,
		history:    make(map[string]*circular.Buffer[common.Bar]),
	}
}

func (s *Store) MaxHistory() uint {
	return s.maxHistory
}

func (s *Store) Update(symbol string, bar common.Bar) {
	buffer, ok := s.history[symbol]
	if !ok {
		buffer = circular.NewBuffer[common.Bar](s.maxHistory)
		s.history[symbol] = buffer
	}
	buffer.Push(bar)
}

// Len is the number of retained bars for symbol.
func (s *Store) Len(symbol string) int {
	buffer, ok := s.history[symbol]
	if !ok {
		return 0
	}
	return int(buffer.Size())
}

func (s *Store) LatestBar(symbol string) (common.Bar, bool) {
	buffer, ok := s.history[symbol]
	if !ok || buffer.IsEmpty() {
		return common.Bar{}, false
	}
	return buffer.First(), true
}

func (s *Store) LatestPrice(symbol string) (fixed.Point, bool) {
	bar, ok := s.LatestBar(symbol)
	if !ok {
		return fixed.Zero, false
	}
	return bar.Close, true
}

// Bars returns the n newest bars, oldest first.
func (s *Store) Bars(symbol string, n int) ([]common.Bar, bool) {
	buffer, ok := s.history[symbol]
	if !ok || n <= 0 || int(buffer.Size()) < n {
		return nil, false
	}
	return buffer.Tail(uint(n)), true
}

// Closes returns the n newest close prices, oldest first.
func (s *Store) Closes(symbol string, n int) ([]fixed.Point, bool) {
	bars, ok := s.Bars(symbol, n)
	if !ok {
		return nil, false
	}
	return closes(bars), true
}

func (s *Store) allCloses(symbol string) []fixed.Point {
	buffer, ok := s.history[symbol]
	if !ok {
		return nil
	}
	return closes(buffer.Data())
}

func closes(bars []common.Bar) []fixed.Point {
	out := make([]fixed.Point, len(bars))
	for i, bar := range bars {
		out[i] = bar.Close
	}
	return out
}
