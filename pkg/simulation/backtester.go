package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/barsim/pkg/bus"
	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/datasource"
	"github.com/peter-kozarec/barsim/pkg/exchange/orderbook"
	"github.com/peter-kozarec/barsim/pkg/exchange/sandbox"
	"github.com/peter-kozarec/barsim/pkg/indicators"
	"github.com/peter-kozarec/barsim/pkg/signal"
	"github.com/peter-kozarec/barsim/pkg/strategy"
	"github.com/peter-kozarec/barsim/pkg/tools/execution"
	"github.com/peter-kozarec/barsim/pkg/tools/metrics"
	"github.com/peter-kozarec/barsim/pkg/tools/position"
	"github.com/peter-kozarec/barsim/pkg/tools/risk"
	"github.com/peter-kozarec/barsim/pkg/utility"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

const (
	backtesterComponentName = "simulation.backtester"

	DefaultMaxHistory    = 200
	DefaultEventCapacity = 4096
)

type weightedStrategy struct {
	tag      string
	strategy strategy.Strategy
	weight   fixed.Point
}

// Backtester owns every component of a single run. It is not safe for
// concurrent use, parallel runs each build their own.
type Backtester struct {
	logger *zap.Logger
	log    *zap.Logger
	router *bus.Router

	executionId utility.ExecutionID

	store     *indicators.Store
	ledger    *position.Ledger
	recorder  *fillRecorder
	execution *execution.Manager
	risk      *risk.Manager

	strategies    map[string][]weightedStrategy
	engines       map[string]*sandbox.Engine
	engineOptions []sandbox.Option
	fee           fixed.Point
	rng           *rand.Rand

	maxHistory uint
	maxSteps   int64
	steps      int64
	equity     []common.Equity
}

type Option func(*Backtester)

// WithRouter replaces the default router, typically to attach handlers.
func WithRouter(router *bus.Router) Option {
	return func(b *Backtester) {
		b.router = router
	}
}

func WithEngineOptions(options ...sandbox.Option) Option {
	return func(b *Backtester) {
		b.engineOptions = append(b.engineOptions, options...)
	}
}

// WithFee charges fee on every fill. Buys are sized and validated against cash
// net of the fee so a fill never leaves the ledger short.
func WithFee(fee fixed.Point) Option {
	return func(b *Backtester) {
		b.fee = fee
		b.engineOptions = append(b.engineOptions, sandbox.WithFeeHandler(sandbox.FixedFee(fee)))
	}
}

// WithMaxSteps stops Run after n steps. Zero means no limit.
func WithMaxSteps(n int64) Option {
	return func(b *Backtester) {
		b.maxSteps = n
	}
}

func WithMaxHistory(n uint) Option {
	return func(b *Backtester) {
		if n > 0 {
			b.maxHistory = n
		}
	}
}

// NewBacktester wires a run around the seeded ledger. All engines of the run
// share one rng seeded with seed.
func NewBacktester(logger *zap.Logger, ledger *position.Ledger, settings execution.Settings, riskCfg risk.Configuration, seed int64, options ...Option) (*Backtester, error) {
	b := &Backtester{
		logger:      logger,
		log:         logger.Named(backtesterComponentName),
		executionId: utility.NewExecutionID(),
		ledger:      ledger,
		strategies:  make(map[string][]weightedStrategy),
		engines:     make(map[string]*sandbox.Engine),
		fee:         fixed.Zero,
		rng:         rand.New(rand.NewSource(seed)),
		maxHistory:  DefaultMaxHistory,
	}
	for _, option := range options {
		option(b)
	}
	if b.router == nil {
		b.router = bus.NewRouter(logger, DefaultEventCapacity)
	}

	b.store = indicators.NewStore(b.maxHistory)
	b.recorder = &fillRecorder{ledger: ledger, post: b.post}

	var err error
	if b.execution, err = execution.NewManager(logger, ledger, b.store, settings, execution.WithFeeReserve(b.fee)); err != nil {
		return nil, fmt.Errorf("unable to create execution manager: %w", err)
	}
	if b.risk, err = risk.NewManager(logger, riskCfg); err != nil {
		return nil, fmt.Errorf("unable to create risk manager: %w", err)
	}

	return b, nil
}

// AddStrategy attaches a registered strategy to symbol. Its signal strengths
// are scaled by weight.
func (b *Backtester) AddStrategy(symbol, tag string, params map[string]any, weight fixed.Point) error {
	s, err := strategy.New(tag, b.store, params)
	if err != nil {
		return err
	}
	b.strategies[symbol] = append(b.strategies[symbol], weightedStrategy{tag: tag, strategy: s, weight: weight})
	return nil
}

func (b *Backtester) ExecutionId() utility.ExecutionID { return b.executionId }
func (b *Backtester) Router() *bus.Router              { return b.router }
func (b *Backtester) Ledger() *position.Ledger         { return b.ledger }
func (b *Backtester) Store() *indicators.Store         { return b.store }

// Step processes one frame holding at most one bar per symbol.
func (b *Backtester) Step(ctx context.Context, bars []common.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	bars = slices.Clone(bars)
	slices.SortStableFunc(bars, func(x, y common.Bar) int {
		return strings.Compare(x.Symbol, y.Symbol)
	})

	ts := bars[0].TimeStamp
	barBySymbol := make(map[string]common.Bar, len(bars))
	for _, bar := range bars {
		if bar.TimeStamp.Before(ts) {
			ts = bar.TimeStamp
		}
		barBySymbol[bar.Symbol] = bar
	}

	// resting orders only see the new bar, never the one they were placed on
	for _, bar := range bars {
		if engine, ok := b.engines[bar.Symbol]; ok {
			b.postOrderEvents(engine.CheckOpenOrders(bar))
		}
	}

	for _, bar := range bars {
		b.store.Update(bar.Symbol, bar)
		b.post(bus.BarEvent, bar)
	}

	var signals []common.Signal
	for _, bar := range bars {
		point := common.NewMarketDataPoint(bar)
		for _, ws := range b.strategies[bar.Symbol] {
			for _, sig := range ws.strategy.GenerateSignals(point) {
				sig.Strength = sig.Strength.Mul(ws.weight)
				signals = append(signals, sig)
				b.post(bus.SignalEvent, sig)
			}
		}
	}

	if len(signals) > 0 {
		orders := b.execution.GenerateOrdersFromBundle(signal.Aggregate(signals), ts)
		b.execute(b.validate(orders, ts), barBySymbol)
	}

	value := b.ledger.PortfolioValue(b.store)
	equity := common.Equity{TimeStamp: ts, Value: value}
	b.equity = append(b.equity, equity)
	b.post(bus.EquityEvent, equity)

	b.steps++

	// handlers always see the whole step, cancellation is honoured between steps
	if err := b.router.Drain(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("unable to drain events: %w", err)
	}

	if err := b.ledger.CheckInvariants(false); err != nil {
		return fmt.Errorf("ledger invariant violated at %s: %w", ts.Format(time.RFC3339), err)
	}
	return nil
}

// validate runs every order through the risk manager against the state before
// any of them is executed. The fee a fill will charge is not spendable.
func (b *Backtester) validate(orders []*common.Order, ts time.Time) []*common.Order {
	accepted := make([]*common.Order, 0, len(orders))
	cash := b.ledger.Cash().Sub(b.fee)

	for _, order := range orders {
		ok, reason := b.risk.ValidateOrder(order, cash, b.ledger.PositionQuantity(order.Symbol))
		b.post(bus.RiskDecisionEvent, common.RiskDecision{
			Order:     *order,
			Accepted:  ok,
			Reason:    reason,
			TimeStamp: ts,
		})
		if ok {
			accepted = append(accepted, order)
		}
	}
	return accepted
}

func (b *Backtester) execute(orders []*common.Order, barBySymbol map[string]common.Bar) {
	for _, order := range orders {
		bar, ok := barBySymbol[order.Symbol]
		if !ok {
			b.log.Warn("no bar for order symbol", zap.String("id", order.Id), zap.String("symbol", order.Symbol))
			continue
		}
		b.postOrderEvents(b.engine(order.Symbol).ProcessOrder(order, bar))
	}
}

func (b *Backtester) engine(symbol string) *sandbox.Engine {
	engine, ok := b.engines[symbol]
	if !ok {
		engine = sandbox.NewEngine(b.logger, orderbook.NewBook(), b.recorder, b.rng, b.engineOptions...)
		b.engines[symbol] = engine
	}
	return engine
}

func (b *Backtester) post(id bus.EventId, data any) {
	if err := b.router.Post(id, data); err != nil {
		b.log.Warn("unable to post event", zap.Error(err))
	}
}

func (b *Backtester) postOrderEvents(events []common.OrderEvent) {
	for _, ev := range events {
		if err := b.router.PostOrderEvent(ev); err != nil {
			b.log.Warn("unable to post order event", zap.Error(err))
		}
	}
}

// Run steps through source until it is exhausted, the step limit is reached
// or ctx is cancelled.
func (b *Backtester) Run(ctx context.Context, source datasource.BarSource) (*Result, error) {
	b.log.Info("backtest started",
		zap.Stringer("execution_id", b.executionId),
		zap.Stringer("cash", b.ledger.Cash()))

	for b.maxSteps == 0 || b.steps < b.maxSteps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bars, err := source.GetNext()
		if errors.Is(err, datasource.ErrEof) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read bars: %w", err)
		}

		if err := b.Step(ctx, bars); err != nil {
			return nil, err
		}
	}

	result := b.Result()
	b.log.Info("backtest finished",
		zap.Stringer("execution_id", b.executionId),
		zap.Int64("steps", result.Steps),
		zap.Int("trades", len(result.Trades)),
		zap.Stringer("cash", result.Cash))
	return result, nil
}

// Result snapshots the run so far.
func (b *Backtester) Result() *Result {
	trades := b.ledger.Trades()
	slices.SortStableFunc(trades, func(x, y common.TradeRecord) int {
		return x.TimeStamp.Compare(y.TimeStamp)
	})

	return &Result{
		ExecutionId: b.executionId,
		Steps:       b.steps,
		Equity:      slices.Clone(b.equity),
		Trades:      trades,
		Positions:   b.ledger.Positions(),
		Cash:        b.ledger.Cash(),
	}
}

type Result struct {
	ExecutionId utility.ExecutionID  `json:"execution_id"`
	Steps       int64                `json:"steps"`
	Equity      []common.Equity      `json:"equity"`
	Trades      []common.TradeRecord `json:"trades"`
	Positions   []common.Position    `json:"positions"`
	Cash        fixed.Point          `json:"cash"`
}

func (r *Result) Report() metrics.Report {
	return metrics.GenerateReport(r.Equity, r.Trades)
}
