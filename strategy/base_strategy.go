package strategy

import (
	"github.com/evdnx/gomr/config"
	"github.com/evdnx/gomr/executor"
	"github.com/evdnx/gomr/indicator"
	"github.com/evdnx/gomr/ledger"
	"github.com/evdnx/gomr/logger"
	"github.com/evdnx/gomr/metrics"
	"github.com/evdnx/gomr/signal"
	"github.com/evdnx/gomr/types"
)

// BaseStrategy bundles the common dependencies and helpers.
type BaseStrategy struct {
	Exec   executor.Executor // optional; receives the ledger orders
	Log    logger.Logger
	Cfg    config.StrategyConfig
	Rules  signal.Rules
	Symbol string
}

// NewBaseStrategy validates the config and resolves its rule preset.
func NewBaseStrategy(symbol string, cfg config.StrategyConfig,
	exec executor.Executor, log logger.Logger) (*BaseStrategy, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rules, err := signal.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &BaseStrategy{
		Exec:   exec,
		Log:    log,
		Cfg:    cfg,
		Rules:  rules,
		Symbol: symbol,
	}, nil
}

// indicatorParams derives what the indicator engine has to compute.
func (b *BaseStrategy) indicatorParams() indicator.Params {
	return indicator.Params{
		FastWindow:    b.Cfg.FastWindow,
		SlowWindow:    b.Cfg.SlowWindow,
		WithRSI:       b.Rules.NeedsRSI(),
		RSIWindow:     b.Cfg.RSIWindow,
		RSIOversold:   b.Rules.Oversold,
		RSIOverbought: b.Rules.Overbought,
	}
}

// replayOrders forwards the ledger orders to the executor, if any.
func (b *BaseStrategy) replayOrders(orders []types.Order) error {
	if b.Exec == nil || len(orders) == 0 {
		return nil
	}
	if err := executor.Replay(b.Exec, orders); err != nil {
		b.Log.Error("order_replay_failed",
			logger.String("symbol", b.Symbol),
			logger.Int("orders", len(orders)),
			logger.Err(err),
		)
		return err
	}
	b.Log.Info("orders_replayed",
		logger.String("symbol", b.Symbol),
		logger.Int("orders", len(orders)),
		logger.Float64("cash", b.Exec.Equity()),
		logger.Float64("equity_at_cost", executor.EquityAtCost(b.Exec, b.Symbol)),
	)
	return nil
}

// record is a thin wrapper that records metrics and logs a finished run.
func (b *BaseStrategy) record(s ledger.Summary) {
	metrics.StrategyRuns.WithLabelValues(string(s.Status)).Inc()
	metrics.TradesClosed.Add(float64(s.TradesClosed))
	b.Log.Debug("strategy_run_complete",
		logger.String("symbol", b.Symbol),
		logger.String("rules", b.Rules.Name),
		logger.Int("fast", b.Cfg.FastWindow),
		logger.Int("slow", b.Cfg.SlowWindow),
		logger.Float64("stop_loss_pct", b.Cfg.StopLossPct),
		logger.String("status", string(s.Status)),
		logger.Int("trades", s.TradesClosed),
		logger.Float64("net_profit", s.NetProfit),
	)
}
