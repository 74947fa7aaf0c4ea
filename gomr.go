// Package gomr wires a market-data provider to the backtester.
//
// Backtest runs one configuration; Search runs a parameter grid. Both fetch
// the bars once and stop with marketdata.ErrDataUnavailable when the
// provider has none.
package gomr

import (
	"context"
	"fmt"

	"github.com/evdnx/gomr/config"
	"github.com/evdnx/gomr/executor"
	"github.com/evdnx/gomr/logger"
	"github.com/evdnx/gomr/marketdata"
	"github.com/evdnx/gomr/optimizer"
	"github.com/evdnx/gomr/strategy"
)

// Backtest fetches q from p and runs cfg over it. exec may be nil.
func Backtest(ctx context.Context, p marketdata.Provider, q marketdata.Query,
	cfg config.StrategyConfig, exec executor.Executor, log logger.Logger) (*strategy.Result, error) {

	mr, err := strategy.NewMeanReversion(q.Symbol, cfg, exec, log)
	if err != nil {
		return nil, err
	}
	bars, err := p.Bars(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", q.Symbol, err)
	}
	return mr.Run(bars)
}

// Search fetches q from p and ranks every point of grid, using base for
// all settings the grid does not vary.
func Search(ctx context.Context, p marketdata.Provider, q marketdata.Query,
	base config.StrategyConfig, grid config.GridConfig, log logger.Logger, opts ...optimizer.Option) (*optimizer.Table, error) {

	opts = append([]optimizer.Option{optimizer.WithSymbol(q.Symbol)}, opts...)
	opt, err := optimizer.New(base, log, opts...)
	if err != nil {
		return nil, err
	}
	bars, err := p.Bars(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", q.Symbol, err)
	}
	return opt.Optimize(ctx, bars, grid)
}
