package metrics

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

type Report struct {
	StartDate     time.Time   `json:"start_date"`
	EndDate       time.Time   `json:"end_date"`
	EquitySamples int         `json:"equity_samples"`
	InitialEquity fixed.Point `json:"initial_equity"`
	FinalEquity   fixed.Point `json:"final_equity"`
	TotalReturn   fixed.Point `json:"total_return"`
	MaxDrawdown   fixed.Point `json:"max_drawdown"`

	PeriodsPerYear       fixed.Point `json:"periods_per_year"`
	AnnualizedVolatility fixed.Point `json:"annualized_volatility"`
	HasVolatility        bool        `json:"has_volatility"`
	SharpeRatio          fixed.Point `json:"sharpe_ratio"`
	HasSharpe            bool        `json:"has_sharpe"`

	TotalTrades      int         `json:"total_trades"`
	WinningTrades    int         `json:"winning_trades"`
	LosingTrades     int         `json:"losing_trades"`
	WinRate          fixed.Point `json:"win_rate"`
	TotalRealizedPnL fixed.Point `json:"total_realized_pnl"`
	AverageTradePnL  fixed.Point `json:"average_trade_pnl"`
	AverageWin       fixed.Point `json:"average_win"`
	AverageLoss      fixed.Point `json:"average_loss"`
	ProfitFactor     fixed.Point `json:"profit_factor"`
	TotalFees        fixed.Point `json:"total_fees"`
}

func (r Report) Print(logger *zap.Logger) {
	logger.Info("equity report",
		zap.Time("start", r.StartDate),
		zap.Time("end", r.EndDate),
		zap.Stringer("initial_equity", r.InitialEquity),
		zap.Stringer("final_equity", r.FinalEquity),
		zap.String("total_return", percent(r.TotalReturn)),
		zap.String("max_drawdown", percent(r.MaxDrawdown)))

	riskFields := []zap.Field{zap.Stringer("periods_per_year", r.PeriodsPerYear.Rescale(2))}
	if r.HasVolatility {
		riskFields = append(riskFields, zap.String("annualized_volatility", percent(r.AnnualizedVolatility)))
	}
	if r.HasSharpe {
		riskFields = append(riskFields, zap.Stringer("sharpe_ratio", r.SharpeRatio.Rescale(2)))
	}
	logger.Info("risk metrics", riskFields...)

	logger.Info("trade statistics",
		zap.Int("total_trades", r.TotalTrades),
		zap.Int("winning_trades", r.WinningTrades),
		zap.Int("losing_trades", r.LosingTrades),
		zap.String("win_rate", percent(r.WinRate)),
		zap.Stringer("total_realized_pnl", r.TotalRealizedPnL.Rescale(2)),
		zap.Stringer("average_trade_pnl", r.AverageTradePnL.Rescale(2)),
		zap.Stringer("average_win", r.AverageWin.Rescale(2)),
		zap.Stringer("average_loss", r.AverageLoss.Rescale(2)),
		zap.Stringer("profit_factor", r.ProfitFactor.Rescale(2)),
		zap.Stringer("total_fees", r.TotalFees.Rescale(2)))
}

func percent(ratio fixed.Point) string {
	return fmt.Sprintf("%s%%", ratio.Mul(fixed.Hundred).Rescale(2))
}
