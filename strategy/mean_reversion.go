package strategy

import (
	"fmt"

	"github.com/evdnx/gomr/config"
	"github.com/evdnx/gomr/executor"
	"github.com/evdnx/gomr/indicator"
	"github.com/evdnx/gomr/ledger"
	"github.com/evdnx/gomr/logger"
	"github.com/evdnx/gomr/marketdata"
	"github.com/evdnx/gomr/signal"
	"github.com/evdnx/gomr/types"
)

// MeanReversion backtests the moving-average crossover strategy for one
// parameter set: indicators, then signals, then accounting.
type MeanReversion struct {
	*BaseStrategy
}

// NewMeanReversion validates cfg. exec may be nil.
func NewMeanReversion(symbol string, cfg config.StrategyConfig,
	exec executor.Executor, log logger.Logger) (*MeanReversion, error) {

	base, err := NewBaseStrategy(symbol, cfg, exec, log)
	if err != nil {
		return nil, err
	}
	return &MeanReversion{BaseStrategy: base}, nil
}

// Run backtests bars. The caller's slice is copied and never modified.
// Empty input yields marketdata.ErrDataUnavailable; input shorter than the
// slow window yields a result with StatusInsufficientHistory.
func (mr *MeanReversion) Run(bars []types.Bar) (*Result, error) {
	if len(bars) == 0 {
		mr.Log.Warn("strategy_no_data", logger.String("symbol", mr.Symbol))
		return nil, fmt.Errorf("%s: %w", mr.Symbol, marketdata.ErrDataUnavailable)
	}
	work := types.CloneBars(bars)

	rows, err := indicator.Compute(work, mr.indicatorParams())
	if err != nil {
		return nil, fmt.Errorf("compute indicators: %w", err)
	}
	res := &Result{Symbol: mr.Symbol, Bars: len(bars), Config: mr.Cfg, Rules: mr.Rules.Name}
	if len(rows) == 0 {
		res.Ledger = &ledger.Ledger{Summary: ledger.InsufficientHistory(mr.Cfg.Capital)}
		mr.Log.Warn("strategy_insufficient_history",
			logger.String("symbol", mr.Symbol),
			logger.Int("bars", len(bars)),
			logger.Int("slow", mr.Cfg.SlowWindow),
		)
		mr.record(res.Ledger.Summary)
		return res, nil
	}

	res.Steps = signal.Generate(rows, mr.Rules, mr.Cfg.StopLossPct)
	res.Ledger, err = ledger.Account(mr.Symbol, res.Steps, mr.Cfg.Capital)
	if err != nil {
		return nil, fmt.Errorf("account: %w", err)
	}
	if err := mr.replayOrders(res.Ledger.Orders); err != nil {
		return nil, err
	}
	mr.record(res.Ledger.Summary)
	return res, nil
}
