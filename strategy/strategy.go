// Package strategy runs a single backtest configuration end to end.
package strategy

import (
	"github.com/samber/lo"

	"github.com/evdnx/gomr/config"
	"github.com/evdnx/gomr/ledger"
	"github.com/evdnx/gomr/signal"
	"github.com/evdnx/gomr/types"
)

// Result is everything one run produced. Steps is empty when the series
// was shorter than the slow window.
type Result struct {
	Symbol string
	Bars   int // input length, before the warm-up drop
	Config config.StrategyConfig
	Rules  string
	Steps  []signal.Step
	Ledger *ledger.Ledger
}

// Summary is shorthand for r.Ledger.Summary.
func (r *Result) Summary() ledger.Summary {
	return r.Ledger.Summary
}

// Metric is the run's net profit and whether it is defined.
func (r *Result) Metric() (float64, bool) {
	return r.Ledger.Summary.Metric()
}

// Signals lists the emitted signal per retained row.
func (r *Result) Signals() []types.Signal {
	return lo.Map(r.Steps, func(s signal.Step, _ int) types.Signal { return s.Signal })
}

// Evaluate backtests one parameter set with the remaining settings at
// their defaults and returns its summary.
func Evaluate(bars []types.Bar, fast, slow int, stopLossPct, capital float64) (ledger.Summary, error) {
	cfg := config.DefaultStrategyConfig()
	cfg.FastWindow, cfg.SlowWindow = fast, slow
	cfg.StopLossPct, cfg.Capital = stopLossPct, capital

	mr, err := NewMeanReversion("", cfg, nil, nil)
	if err != nil {
		return ledger.Summary{}, err
	}
	res, err := mr.Run(bars)
	if err != nil {
		return ledger.Summary{}, err
	}
	return res.Summary(), nil
}
