package datasource

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

var t0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func bar(symbol string, day int, close int64) common.Bar {
	price := fixed.FromInt64(close, 0)
	return common.Bar{
		Symbol:    symbol,
		TimeStamp: t0.AddDate(0, 0, day),
		Open:      price,
		High:      price,
		Low:       price,
		Close:     price,
	}
}

func drain(t *testing.T, src BarSource) [][]common.Bar {
	t.Helper()
	var frames [][]common.Bar
	for {
		frame, err := src.GetNext()
		if errors.Is(err, ErrEof) {
			return frames
		}
		require.NoError(t, err)
		frames = append(frames, frame)
	}
}

func symbols(frame []common.Bar) []string {
	out := make([]string, 0, len(frame))
	for _, b := range frame {
		out = append(out, b.Symbol)
	}
	return out
}

type failingSource struct{}

func (failingSource) Next() (common.Bar, error) { return common.Bar{}, errors.New("boom") }

func TestAligner_GetNext(t *testing.T) {
	tests := []struct {
		name     string
		sources  map[string]SymbolSource
		validate func(*testing.T, [][]common.Bar)
	}{
		{
			name: "equal timestamps share a frame",
			sources: map[string]SymbolSource{
				"MSFT": NewSliceSource([]common.Bar{bar("MSFT", 0, 10), bar("MSFT", 1, 11)}),
				"AAPL": NewSliceSource([]common.Bar{bar("AAPL", 0, 20), bar("AAPL", 1, 21)}),
			},
			validate: func(t *testing.T, frames [][]common.Bar) {
				require.Len(t, frames, 2)
				assert.Equal(t, []string{"AAPL", "MSFT"}, symbols(frames[0]))
				assert.Equal(t, []string{"AAPL", "MSFT"}, symbols(frames[1]))
			},
		},
		{
			name: "gap skips a frame",
			sources: map[string]SymbolSource{
				"AAPL": NewSliceSource([]common.Bar{bar("AAPL", 0, 20), bar("AAPL", 1, 21), bar("AAPL", 2, 22)}),
				"MSFT": NewSliceSource([]common.Bar{bar("MSFT", 0, 10), bar("MSFT", 2, 12)}),
			},
			validate: func(t *testing.T, frames [][]common.Bar) {
				require.Len(t, frames, 3)
				assert.Equal(t, []string{"AAPL", "MSFT"}, symbols(frames[0]))
				assert.Equal(t, []string{"AAPL"}, symbols(frames[1]))
				assert.Equal(t, []string{"AAPL", "MSFT"}, symbols(frames[2]))
			},
		},
		{
			name: "finished stream is dropped",
			sources: map[string]SymbolSource{
				"AAPL": NewSliceSource([]common.Bar{bar("AAPL", 0, 20)}),
				"MSFT": NewSliceSource([]common.Bar{bar("MSFT", 0, 10), bar("MSFT", 1, 11)}),
			},
			validate: func(t *testing.T, frames [][]common.Bar) {
				require.Len(t, frames, 2)
				assert.Equal(t, []string{"MSFT"}, symbols(frames[1]))
			},
		},
		{
			name: "empty symbol is filled from the key",
			sources: map[string]SymbolSource{
				"AAPL": NewSliceSource([]common.Bar{bar("", 0, 20)}),
			},
			validate: func(t *testing.T, frames [][]common.Bar) {
				require.Len(t, frames, 1)
				assert.Equal(t, "AAPL", frames[0][0].Symbol)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, drain(t, NewAligner(tt.sources)))
		})
	}
}

func TestAligner_PropagatesErrors(t *testing.T) {
	a := NewAligner(map[string]SymbolSource{"AAPL": failingSource{}})
	_, err := a.GetNext()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEof)
	assert.Contains(t, err.Error(), "AAPL")
}

func TestLockstep_IgnoresTimestamps(t *testing.T) {
	l := NewLockstep(map[string]SymbolSource{
		"AAPL": NewSliceSource([]common.Bar{bar("AAPL", 0, 20), bar("AAPL", 1, 21)}),
		"MSFT": NewSliceSource([]common.Bar{bar("MSFT", 5, 10)}),
	})

	frames := drain(t, l)
	require.Len(t, frames, 2)
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols(frames[0]))
	assert.Equal(t, []string{"AAPL"}, symbols(frames[1]))
}

func TestMemorySource(t *testing.T) {
	src := NewMemorySource([]common.Bar{bar("AAPL", 0, 1)}, []common.Bar{bar("AAPL", 1, 2)})
	frames := drain(t, src)
	require.Len(t, frames, 2)
	assert.True(t, frames[1][0].Close.Eq(fixed.Two))

	_, err := src.GetNext()
	assert.ErrorIs(t, err, ErrEof)
}
