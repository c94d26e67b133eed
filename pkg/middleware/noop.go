package middleware

import (
	"context"

	"github.com/peter-kozarec/barsim/pkg/common"
)

//goland:noinspection ALL
var (
	NoopBarHdl          = func(context.Context, common.Bar) {}
	NoopSignalHdl       = func(context.Context, common.Signal) {}
	NoopOrderHdl        = func(context.Context, common.OrderEvent) {}
	NoopRiskDecisionHdl = func(context.Context, common.RiskDecision) {}
	NoopTradeHdl        = func(context.Context, common.TradeRecord) {}
	NoopEquityHdl       = func(context.Context, common.Equity) {}
)
