package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	StrategyRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gomr_strategy_runs_total",
			Help: "Total number of single-configuration backtests (by outcome status).",
		},
		[]string{"status"},
	)

	TradesClosed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gomr_trades_closed_total",
			Help: "Total number of round trips closed across all backtests.",
		},
	)

	GridPoints = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gomr_grid_points_total",
			Help: "Grid points evaluated by the optimizer (by outcome status).",
		},
		[]string{"status"},
	)

	GridDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gomr_grid_duration_seconds",
			Help:    "Wall time of a full grid search.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)

	BestNetProfit = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gomr_best_net_profit",
			Help: "Net profit of the top-ranked configuration of the latest grid search.",
		},
	)

	OrdersReplayed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gomr_orders_replayed_total",
			Help: "Orders replayed into an executor (by side).",
		},
		[]string{"side"},
	)

	EquityGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gomr_paper_equity",
			Help: "Paper executor cash plus open positions at entry price after the latest replay.",
		},
	)
)

func init() {
	prometheus.MustRegister(StrategyRuns, TradesClosed, GridPoints, GridDuration,
		BestNetProfit, OrdersReplayed, EquityGauge)
}
