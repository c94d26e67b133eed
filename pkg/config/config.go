package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/peter-kozarec/barsim/pkg/strategy"
	"github.com/peter-kozarec/barsim/pkg/tools/execution"
	"github.com/peter-kozarec/barsim/pkg/tools/risk"
)

const (
	KindCSV       = "csv"
	KindDuckDB    = "duckdb"
	KindBinary    = "binary"
	KindSynthetic = "synthetic"

	AlignTimestamp = "timestamp"
	AlignLockstep  = "lockstep"

	DefaultCash          = 100_000
	DefaultMaxHistory    = 200
	DefaultEventCapacity = 4096
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Run describes one backtest.
type Run struct {
	Market     Market                    `toml:"market" yaml:"market" json:"market"`
	Strategies map[string][]StrategySpec `toml:"strategies" yaml:"strategies" json:"strategies"`
	Execution  map[string]any            `toml:"execution" yaml:"execution" json:"execution"`
	Risk       map[string]any            `toml:"risk" yaml:"risk" json:"risk"`
	Portfolio  Portfolio                 `toml:"portfolio" yaml:"portfolio" json:"portfolio"`
	Simulation Simulation                `toml:"simulation" yaml:"simulation" json:"simulation"`
}

type Market struct {
	// Align is either timestamp (default) or lockstep.
	Align   string       `toml:"align" yaml:"align" json:"align"`
	Sources []SourceSpec `toml:"sources" yaml:"sources" json:"sources"`
}

// SourceSpec points at the bars of one symbol. Path is a CSV file for csv, a
// record file for binary and a database file for duckdb.
type SourceSpec struct {
	Symbol     string        `toml:"symbol" yaml:"symbol" json:"symbol"`
	Kind       string        `toml:"kind" yaml:"kind" json:"kind"`
	Path       string        `toml:"path" yaml:"path" json:"path,omitempty"`
	Table      string        `toml:"table" yaml:"table" json:"table,omitempty"`
	Query      string        `toml:"query" yaml:"query" json:"query,omitempty"`
	TimeColumn string        `toml:"time_column" yaml:"time_column" json:"time_column,omitempty"`
	From       string        `toml:"from" yaml:"from" json:"from,omitempty"`
	To         string        `toml:"to" yaml:"to" json:"to,omitempty"`
	Resample   string        `toml:"resample" yaml:"resample" json:"resample,omitempty"`
	Synthetic  SyntheticSpec `toml:"synthetic" yaml:"synthetic" json:"synthetic"`
}

type SyntheticSpec struct {
	Start      string  `toml:"start" yaml:"start" json:"start,omitempty"`
	StartPrice float64 `toml:"start_price" yaml:"start_price" json:"start_price"`
	Mu         float64 `toml:"mu" yaml:"mu" json:"mu"`
	Sigma      float64 `toml:"sigma" yaml:"sigma" json:"sigma"`
	Bars       int64   `toml:"bars" yaml:"bars" json:"bars"`
	Interval   string  `toml:"interval" yaml:"interval" json:"interval,omitempty"`
}

// StrategySpec attaches one strategy to a symbol. A nil weight means 1.
type StrategySpec struct {
	Type   string         `toml:"type" yaml:"type" json:"type"`
	Weight *float64       `toml:"weight" yaml:"weight" json:"weight,omitempty"`
	Params map[string]any `toml:"params" yaml:"params" json:"params,omitempty"`
}

func (s StrategySpec) EffectiveWeight() float64 {
	if s.Weight == nil {
		return 1
	}
	return *s.Weight
}

type Portfolio struct {
	Cash      float64        `toml:"cash" yaml:"cash" json:"cash"`
	Positions []PositionSpec `toml:"positions" yaml:"positions" json:"positions,omitempty"`
}

type PositionSpec struct {
	Symbol   string  `toml:"symbol" yaml:"symbol" json:"symbol"`
	Quantity int64   `toml:"quantity" yaml:"quantity" json:"quantity"`
	AvgPrice float64 `toml:"avg_price" yaml:"avg_price" json:"avg_price"`
}

// Simulation holds the run controls. Nil chances keep the matching engine defaults.
type Simulation struct {
	Seed              int64    `toml:"seed" yaml:"seed" json:"seed"`
	MaxHistory        uint     `toml:"max_history" yaml:"max_history" json:"max_history"`
	Fee               float64  `toml:"fee" yaml:"fee" json:"fee"`
	RejectChance      *float64 `toml:"reject_chance" yaml:"reject_chance" json:"reject_chance,omitempty"`
	PartialFillChance *float64 `toml:"partial_fill_chance" yaml:"partial_fill_chance" json:"partial_fill_chance,omitempty"`
	EventCapacity     int      `toml:"event_capacity" yaml:"event_capacity" json:"event_capacity"`
	MaxSteps          int64    `toml:"max_steps" yaml:"max_steps" json:"max_steps,omitempty"`
}

func Defaults() Run {
	return Run{
		Market:     Market{Align: AlignTimestamp},
		Strategies: map[string][]StrategySpec{},
		Execution:  map[string]any{},
		Risk:       map[string]any{},
		Portfolio:  Portfolio{Cash: DefaultCash},
		Simulation: Simulation{
			MaxHistory:    DefaultMaxHistory,
			EventCapacity: DefaultEventCapacity,
		},
	}
}

// Symbols lists the market symbols in declaration order.
func (r *Run) Symbols() []string {
	out := make([]string, 0, len(r.Market.Sources))
	for _, src := range r.Market.Sources {
		out = append(out, src.Symbol)
	}
	return out
}

// Clone deep copies the maps and slices so the copy can be modified freely.
func (r *Run) Clone() Run {
	out := *r
	out.Market.Sources = slices.Clone(r.Market.Sources)
	out.Execution = maps.Clone(r.Execution)
	out.Risk = maps.Clone(r.Risk)
	out.Portfolio.Positions = slices.Clone(r.Portfolio.Positions)
	out.Simulation.RejectChance = clonePtr(r.Simulation.RejectChance)
	out.Simulation.PartialFillChance = clonePtr(r.Simulation.PartialFillChance)

	out.Strategies = make(map[string][]StrategySpec, len(r.Strategies))
	for symbol, specs := range r.Strategies {
		cloned := make([]StrategySpec, len(specs))
		for i, spec := range specs {
			cloned[i] = StrategySpec{
				Type:   spec.Type,
				Weight: clonePtr(spec.Weight),
				Params: maps.Clone(spec.Params),
			}
		}
		out.Strategies[symbol] = cloned
	}
	return out
}

func (r *Run) Validate() error {
	if len(r.Market.Sources) == 0 {
		return fmt.Errorf("%w: market has no sources", ErrInvalidConfig)
	}
	switch r.Market.Align {
	case "", AlignTimestamp, AlignLockstep:
	default:
		return fmt.Errorf("%w: unknown market alignment %q", ErrInvalidConfig, r.Market.Align)
	}

	symbols := make(map[string]struct{}, len(r.Market.Sources))
	for i, src := range r.Market.Sources {
		if src.Symbol == "" {
			return fmt.Errorf("%w: source %d has no symbol", ErrInvalidConfig, i)
		}
		if _, dup := symbols[src.Symbol]; dup {
			return fmt.Errorf("%w: duplicate symbol %q", ErrInvalidConfig, src.Symbol)
		}
		symbols[src.Symbol] = struct{}{}

		if err := src.validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, src.Symbol, err)
		}
	}

	for symbol, specs := range r.Strategies {
		if _, ok := symbols[symbol]; !ok {
			return fmt.Errorf("%w: strategies for unknown symbol %q", ErrInvalidConfig, symbol)
		}
		for _, spec := range specs {
			if spec.EffectiveWeight() < 0 {
				return fmt.Errorf("%w: %s: %s weight must not be negative", ErrInvalidConfig, symbol, spec.Type)
			}
			if err := strategy.Validate(spec.Type, spec.Params); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, symbol, err)
			}
		}
	}

	if _, err := execution.ParseSettings(r.Execution); err != nil {
		return fmt.Errorf("%w: execution: %w", ErrInvalidConfig, err)
	}
	if _, err := risk.ParseConfiguration(r.Risk); err != nil {
		return fmt.Errorf("%w: risk: %w", ErrInvalidConfig, err)
	}

	if r.Portfolio.Cash < 0 {
		return fmt.Errorf("%w: cash must not be negative", ErrInvalidConfig)
	}
	for _, pos := range r.Portfolio.Positions {
		if pos.Quantity < 0 || pos.AvgPrice < 0 {
			return fmt.Errorf("%w: position %q must not be negative", ErrInvalidConfig, pos.Symbol)
		}
	}

	sim := r.Simulation
	if sim.Fee < 0 {
		return fmt.Errorf("%w: fee must not be negative", ErrInvalidConfig)
	}
	if !isChance(sim.RejectChance) || !isChance(sim.PartialFillChance) {
		return fmt.Errorf("%w: chances must be within [0, 1]", ErrInvalidConfig)
	}
	if sim.EventCapacity < 0 || sim.MaxSteps < 0 {
		return fmt.Errorf("%w: event capacity and max steps must not be negative", ErrInvalidConfig)
	}
	return nil
}

func (s SourceSpec) validate() error {
	if _, err := ParseTime(s.From); err != nil {
		return fmt.Errorf("from: %w", err)
	}
	if _, err := ParseTime(s.To); err != nil {
		return fmt.Errorf("to: %w", err)
	}
	if s.Resample != "" {
		if d, err := time.ParseDuration(s.Resample); err != nil || d <= 0 {
			return fmt.Errorf("invalid resample period %q", s.Resample)
		}
	}

	switch s.Kind {
	case KindCSV, KindBinary:
		if s.Path == "" {
			return errors.New("path is required")
		}
	case KindDuckDB:
		if s.Path == "" || (s.Table == "" && s.Query == "") {
			return errors.New("path and either table or query are required")
		}
	case KindSynthetic:
		syn := s.Synthetic
		if syn.Bars <= 0 || syn.StartPrice <= 0 || syn.Sigma < 0 {
			return errors.New("synthetic source needs positive bars and start price and a non-negative sigma")
		}
		if _, err := ParseTime(syn.Start); err != nil {
			return fmt.Errorf("start: %w", err)
		}
		if syn.Interval != "" {
			if d, err := time.ParseDuration(syn.Interval); err != nil || d <= 0 {
				return fmt.Errorf("invalid interval %q", syn.Interval)
			}
		}
	default:
		return fmt.Errorf("unknown source kind %q", s.Kind)
	}
	return nil
}

// ParseTime accepts RFC 3339 timestamps and plain dates. An empty string is the zero time.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", s)
	}
	return t, nil
}

func isChance(p *float64) bool {
	return p == nil || (*p >= 0 && *p <= 1)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
