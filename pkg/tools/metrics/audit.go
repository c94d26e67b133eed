package metrics

import (
	"context"
	"slices"

	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

// Audit collects the equity curve and the trade log of one run.
type Audit struct {
	equities []common.Equity
	trades   []common.TradeRecord
}

func NewAudit() *Audit {
	return &Audit{}
}

func (a *Audit) OnEquity(_ context.Context, equity common.Equity) {
	a.equities = append(a.equities, equity)
}

func (a *Audit) OnTrade(_ context.Context, trade common.TradeRecord) {
	a.trades = append(a.trades, trade)
}

func (a *Audit) Equities() []common.Equity {
	return slices.Clone(a.equities)
}

func (a *Audit) Trades() []common.TradeRecord {
	return slices.Clone(a.trades)
}

func (a *Audit) GenerateReport() Report {
	return GenerateReport(a.equities, a.trades)
}

// GenerateReport summarises an equity curve and a trade log. Metrics that
// cannot be computed from the data are left zero with their Has flag unset.
func GenerateReport(equities []common.Equity, trades []common.TradeRecord) Report {
	report := Report{}

	if len(equities) > 0 {
		first, last := equities[0], equities[len(equities)-1]
		report.StartDate = first.TimeStamp
		report.EndDate = last.TimeStamp
		report.InitialEquity = first.Value
		report.FinalEquity = last.Value
		report.EquitySamples = len(equities)

		if !first.Value.IsZero() {
			report.TotalReturn = last.Value.Div(first.Value).Sub(fixed.One)
		}
		report.MaxDrawdown = MaxDrawdown(equities)
		report.PeriodsPerYear, _ = PeriodsPerYear(equities)
		report.AnnualizedVolatility, report.HasVolatility = AnnualizedVolatility(equities)
		report.SharpeRatio, report.HasSharpe = AnnualizedSharpe(equities)
	}

	var totalWin, totalLoss fixed.Point
	for _, trade := range trades {
		report.TotalTrades++
		report.TotalRealizedPnL = report.TotalRealizedPnL.Add(trade.RealizedPnL)
		report.TotalFees = report.TotalFees.Add(trade.Fee)

		switch {
		case trade.RealizedPnL.IsPos():
			report.WinningTrades++
			totalWin = totalWin.Add(trade.RealizedPnL)
		case trade.RealizedPnL.IsNeg():
			report.LosingTrades++
			totalLoss = totalLoss.Sub(trade.RealizedPnL)
		}
	}

	if report.TotalTrades > 0 {
		report.AverageTradePnL = report.TotalRealizedPnL.DivInt(report.TotalTrades)
		report.WinRate = fixed.FromInt(report.WinningTrades, 0).DivInt(report.TotalTrades)
	}
	if report.WinningTrades > 0 {
		report.AverageWin = totalWin.DivInt(report.WinningTrades)
	}
	if report.LosingTrades > 0 {
		report.AverageLoss = totalLoss.DivInt(report.LosingTrades)
	}
	if totalLoss.IsPos() {
		report.ProfitFactor = totalWin.Div(totalLoss)
	}

	return report
}
