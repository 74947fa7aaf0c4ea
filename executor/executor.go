package executor

import (
	"errors"
	"fmt"
	"math"

	"github.com/samber/lo"

	"github.com/evdnx/gomr/logger"
	"github.com/evdnx/gomr/metrics"
	"github.com/evdnx/gomr/types"
)

// ErrInsufficientCash is returned when a buy costs more than the free cash.
var ErrInsufficientCash = errors.New("paper executor: insufficient cash")

type Executor interface {
	Submit(o types.Order) error
	// For back-testing we expose the portfolio state
	Equity() float64
	Position(symbol string) (qty float64, avgPrice float64)
}

// cashEpsilon absorbs the rounding of capital/price*price on fully
// invested buys.
const cashEpsilon = 1e-9

// PaperExecutor is a long-only paper trader: perfect fills at the order
// price, no slippage, no fees.
type PaperExecutor struct {
	equity    float64
	positions map[string]float64
	avgPrice  map[string]float64
	log       logger.Logger
}

func NewPaperExecutor(startEquity float64, log logger.Logger) *PaperExecutor {
	if log == nil {
		log = logger.NewNop()
	}
	return &PaperExecutor{
		equity:    startEquity,
		positions: make(map[string]float64),
		avgPrice:  make(map[string]float64),
		log:       log,
	}
}

func (p *PaperExecutor) Submit(o types.Order) error {
	if o.Qty == 0 {
		return nil
	}
	cost := o.Price * o.Qty
	switch o.Side {
	case types.Buy:
		if cost > p.equity*(1+cashEpsilon) {
			p.log.Warn("paper_insufficient_cash",
				logger.String("symbol", o.Symbol),
				logger.Float64("cost", cost),
				logger.Float64("cash", p.equity))
			return ErrInsufficientCash
		}
		p.equity = math.Max(p.equity-cost, 0)
		prevQty := p.positions[o.Symbol]
		p.positions[o.Symbol] = prevQty + o.Qty
		// VWAP of the open quantity
		p.avgPrice[o.Symbol] = (p.avgPrice[o.Symbol]*prevQty + cost) / p.positions[o.Symbol]
	case types.Sell:
		held := p.positions[o.Symbol]
		if o.Qty > held*(1+cashEpsilon) {
			return fmt.Errorf("paper executor: sell %.8f %s exceeds held %.8f", o.Qty, o.Symbol, held)
		}
		p.equity += cost
		if rest := held - o.Qty; rest > held*cashEpsilon {
			p.positions[o.Symbol] = rest
		} else {
			delete(p.positions, o.Symbol)
			delete(p.avgPrice, o.Symbol)
		}
	default:
		return fmt.Errorf("paper executor: unknown side %q", o.Side)
	}
	p.log.Debug("paper_fill",
		logger.String("side", string(o.Side)),
		logger.String("symbol", o.Symbol),
		logger.Float64("qty", o.Qty),
		logger.Float64("price", o.Price),
		logger.Float64("cash", p.equity))
	return nil
}

func (p *PaperExecutor) Equity() float64 { return p.equity }

func (p *PaperExecutor) Position(sym string) (float64, float64) {
	return p.positions[sym], p.avgPrice[sym]
}

// EquityAtCost is the free cash plus the open positions in symbols valued
// at their average entry price. Equity alone is cash only.
func EquityAtCost(exec Executor, symbols ...string) float64 {
	total := exec.Equity()
	for _, sym := range lo.Uniq(symbols) {
		qty, avg := exec.Position(sym)
		total += qty * avg
	}
	return total
}

// Replay submits orders in sequence and stops at the first rejection.
func Replay(exec Executor, orders []types.Order) error {
	for i, o := range orders {
		if err := exec.Submit(o); err != nil {
			return fmt.Errorf("replay order %d (%s %s): %w", i, o.Side, o.Symbol, err)
		}
		metrics.OrdersReplayed.WithLabelValues(string(o.Side)).Inc()
	}
	symbols := lo.Map(orders, func(o types.Order, _ int) string { return o.Symbol })
	metrics.EquityGauge.Set(EquityAtCost(exec, symbols...))
	return nil
}
