// Package optimizer searches a parameter grid exhaustively and ranks the
// configurations by net profit.
package optimizer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/evdnx/gomr/config"
	"github.com/evdnx/gomr/ledger"
	"github.com/evdnx/gomr/logger"
	"github.com/evdnx/gomr/marketdata"
	"github.com/evdnx/gomr/metrics"
	"github.com/evdnx/gomr/strategy"
	"github.com/evdnx/gomr/types"
)

// StatusFailed marks a grid point whose run returned an error.
const StatusFailed ledger.Status = "failed"

// Point is one parameter combination.
type Point struct {
	StopLossPct float64
	FastWindow  int
	SlowWindow  int
}

// Result is one row of the ranked table. Metric is NaN unless Defined.
type Result struct {
	Seq         int // enumeration order
	StopLossPct float64
	FastWindow  int
	SlowWindow  int
	Metric      float64
	Defined     bool
	WinRatio    float64
	Trades      int
	Status      ledger.Status
	Err         error
}

func (r Result) Point() Point {
	return Point{StopLossPct: r.StopLossPct, FastWindow: r.FastWindow, SlowWindow: r.SlowWindow}
}

// Table is the outcome of one grid search.
type Table struct {
	RunID    string
	Symbol   string
	Bars     int
	Results  []Result
	Duration time.Duration
}

// Best returns the top-ranked row if it has a defined metric.
func (t *Table) Best() (Result, bool) {
	if len(t.Results) == 0 || !t.Results[0].Defined {
		return Result{}, false
	}
	return t.Results[0], true
}

// Failed lists the rows whose run returned an error.
func (t *Table) Failed() []Result {
	return lo.Filter(t.Results, func(r Result, _ int) bool { return r.Err != nil })
}

type runFunc func(cfg config.StrategyConfig, bars []types.Bar) (*strategy.Result, error)

// Optimizer evaluates every point of a grid against one bar series.
type Optimizer struct {
	base    config.StrategyConfig
	symbol  string
	workers int
	log     logger.Logger
	run     runFunc
}

type Option func(*Optimizer)

// WithWorkers sets how many grid points are evaluated concurrently.
// The default of 1 evaluates them sequentially.
func WithWorkers(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithSymbol labels the table and the per-point logs.
func WithSymbol(symbol string) Option {
	return func(o *Optimizer) { o.symbol = symbol }
}

// New returns an optimizer whose grid points inherit every setting of base
// except the three searched axes.
func New(base config.StrategyConfig, log logger.Logger, opts ...Option) (*Optimizer, error) {
	if err := base.Validate(); err != nil {
		return nil, fmt.Errorf("base config: %w", err)
	}
	if log == nil {
		log = logger.NewNop()
	}
	o := &Optimizer{base: base, workers: 1, log: log}
	for _, opt := range opts {
		opt(o)
	}
	o.run = o.runStrategy
	return o, nil
}

func (o *Optimizer) runStrategy(cfg config.StrategyConfig, bars []types.Bar) (*strategy.Result, error) {
	mr, err := strategy.NewMeanReversion(o.symbol, cfg, nil, o.log)
	if err != nil {
		return nil, err
	}
	return mr.Run(bars)
}

// Points enumerates the grid: stop-loss outermost, slow window innermost.
func Points(grid config.GridConfig) []Point {
	out := make([]Point, 0, grid.Size())
	for _, stop := range grid.StopLossPct {
		for _, fast := range grid.FastWindow {
			for _, slow := range grid.SlowWindow {
				out = append(out, Point{StopLossPct: stop, FastWindow: fast, SlowWindow: slow})
			}
		}
	}
	return out
}

// Optimize runs every grid point and returns the ranked table. A point that
// fails is kept as an undefined row; only an invalid grid, missing data or
// a cancelled context abort the search.
func (o *Optimizer) Optimize(ctx context.Context, bars []types.Bar, grid config.GridConfig) (*Table, error) {
	if err := grid.Validate(); err != nil {
		return nil, fmt.Errorf("grid: %w", err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("grid %s: %w", o.symbol, marketdata.ErrDataUnavailable)
	}
	start := time.Now()
	table := &Table{RunID: uuid.NewString(), Symbol: o.symbol, Bars: len(bars)}
	points := Points(grid)
	results := make([]Result, len(points))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, p := range points {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = o.evaluate(i, p, bars)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rank(results)
	table.Results = results
	table.Duration = time.Since(start)
	metrics.GridDuration.Observe(table.Duration.Seconds())

	fields := []logger.Field{
		logger.String("run_id", table.RunID),
		logger.String("symbol", o.symbol),
		logger.Int("points", len(results)),
		logger.Int("defined", lo.CountBy(results, func(r Result) bool { return r.Defined })),
		logger.Duration("elapsed", table.Duration),
	}
	if best, ok := table.Best(); ok {
		metrics.BestNetProfit.Set(best.Metric)
		fields = append(fields,
			logger.Float64("best_net_profit", best.Metric),
			logger.Float64("best_stop_loss_pct", best.StopLossPct),
			logger.Int("best_fast", best.FastWindow),
			logger.Int("best_slow", best.SlowWindow),
		)
	}
	o.log.Info("grid_search_complete", fields...)
	return table, nil
}

// evaluate runs one point. It never panics and never returns an error;
// failures are recorded on the row.
func (o *Optimizer) evaluate(seq int, p Point, bars []types.Bar) (r Result) {
	r = Result{
		Seq:         seq,
		StopLossPct: p.StopLossPct,
		FastWindow:  p.FastWindow,
		SlowWindow:  p.SlowWindow,
		Metric:      math.NaN(),
		WinRatio:    math.NaN(),
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.Err = fmt.Errorf("panic: %v", rec)
			r.Defined, r.Status, r.Metric = false, StatusFailed, math.NaN()
		}
		if r.Err != nil {
			o.log.Warn("grid_point_failed",
				logger.Int("seq", seq),
				logger.Float64("stop_loss_pct", p.StopLossPct),
				logger.Int("fast", p.FastWindow),
				logger.Int("slow", p.SlowWindow),
				logger.Err(r.Err),
			)
		}
		metrics.GridPoints.WithLabelValues(string(r.Status)).Inc()
	}()

	cfg := o.base
	cfg.StopLossPct, cfg.FastWindow, cfg.SlowWindow = p.StopLossPct, p.FastWindow, p.SlowWindow
	res, err := o.run(cfg, bars)
	if err != nil {
		r.Err, r.Status = err, StatusFailed
		return r
	}
	s := res.Summary()
	r.Metric, r.Defined = s.Metric()
	r.WinRatio, r.Trades, r.Status = s.WinRatio, s.TradesClosed, s.Status
	return r
}

// rank orders rows by metric, best first, with undefined rows last. Equal
// metrics keep enumeration order.
func rank(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Defined != b.Defined {
			return a.Defined
		}
		if !a.Defined {
			return false
		}
		return a.Metric > b.Metric
	})
}
