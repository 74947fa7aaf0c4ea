// Package ledger converts a signal sequence into trades and a performance
// summary for a single fully reinvested long position.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/evdnx/gomr/indicator"
	"github.com/evdnx/gomr/risk"
	"github.com/evdnx/gomr/signal"
	"github.com/evdnx/gomr/types"
)

var (
	// ErrSequence is returned when Bought and Sold do not alternate.
	ErrSequence = errors.New("signal sequence out of order")
	// ErrNoTradesClosed marks a run whose metrics are undefined.
	ErrNoTradesClosed = errors.New("no trades closed")
)

// Status classifies a summary.
type Status string

const (
	StatusOK                  Status = "ok"
	StatusNoTrades            Status = "no_trades"
	StatusInsufficientHistory Status = "insufficient_history"
)

// Position is an open long position.
type Position struct {
	EntryIndex     int
	EntryTime      time.Time
	EntryPrice     float64
	CapitalAtEntry float64
}

// Trade is one closed round trip.
type Trade struct {
	EntryIndex    int
	ExitIndex     int
	EntryTime     time.Time
	ExitTime      time.Time
	EntryPrice    float64
	ExitPrice     float64
	ReturnPct     float64 // fractional, (exit-entry)/entry
	Profit        float64
	CapitalBefore float64
	CapitalAfter  float64
}

// Summary aggregates the trades of one run. NetProfit and WinRatio are NaN
// unless Status is StatusOK.
type Summary struct {
	InitialCapital float64
	FinalCapital   float64
	NetProfit      float64
	WinRatio       float64
	TradesClosed   int
	Wins           int
	Open           *Position
	Status         Status
}

// Defined reports whether the performance figures are meaningful.
func (s Summary) Defined() bool { return s.Status == StatusOK }

// Metric is the value configurations are ranked by.
func (s Summary) Metric() (float64, bool) {
	return s.NetProfit, s.Defined()
}

// Err maps a non-OK status to its sentinel error.
func (s Summary) Err() error {
	switch s.Status {
	case StatusOK:
		return nil
	case StatusInsufficientHistory:
		return indicator.ErrInsufficientHistory
	default:
		return ErrNoTradesClosed
	}
}

// InsufficientHistory is the summary of a run that never produced a row.
func InsufficientHistory(capital float64) Summary {
	return Summary{
		InitialCapital: capital,
		FinalCapital:   capital,
		NetProfit:      math.NaN(),
		WinRatio:       math.NaN(),
		Status:         StatusInsufficientHistory,
	}
}

// Ledger is the full accounting of one run.
type Ledger struct {
	Trades []Trade
	Orders []types.Order
	// Capital holds the running capital after each step, aligned with the
	// steps passed to Account.
	Capital []float64
	Summary Summary
}

// Account scans steps once. Bought opens a position at the row close with
// all current capital; Sold closes it and compounds the profit into the
// capital. A position still open at the end is reported but not realized.
func Account(symbol string, steps []signal.Step, capital float64) (*Ledger, error) {
	if !(capital > 0) || math.IsInf(capital, 0) {
		return nil, fmt.Errorf("capital must be positive and finite, got %v", capital)
	}
	if err := signal.Validate(steps); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSequence, err)
	}

	l := &Ledger{Capital: make([]float64, 0, len(steps))}
	current := capital
	var open *Position
	var qty float64
	for _, st := range steps {
		r := st.Row
		switch st.Signal {
		case types.Bought:
			open = &Position{
				EntryIndex:     r.Index,
				EntryTime:      r.Bar.Time,
				EntryPrice:     r.Close(),
				CapitalAtEntry: current,
			}
			qty = risk.FullyInvestedQty(current, r.Close())
			l.Orders = append(l.Orders, types.Order{
				Symbol: symbol, Side: types.Buy, Qty: qty, Price: r.Close(),
				Time: r.Bar.Time, Comment: st.Reason,
			})
		case types.Sold:
			ret := risk.ReturnPct(open.EntryPrice, r.Close())
			profit := current * ret
			l.Trades = append(l.Trades, Trade{
				EntryIndex:    open.EntryIndex,
				ExitIndex:     r.Index,
				EntryTime:     open.EntryTime,
				ExitTime:      r.Bar.Time,
				EntryPrice:    open.EntryPrice,
				ExitPrice:     r.Close(),
				ReturnPct:     ret,
				Profit:        profit,
				CapitalBefore: current,
				CapitalAfter:  current + profit,
			})
			l.Orders = append(l.Orders, types.Order{
				Symbol: symbol, Side: types.Sell, Qty: qty, Price: r.Close(),
				Time: r.Bar.Time, Comment: st.Reason,
			})
			current += profit
			open, qty = nil, 0
		}
		l.Capital = append(l.Capital, current)
	}
	l.Summary = summarize(capital, current, l.Trades, open)
	return l, nil
}

func summarize(initial, final float64, trades []Trade, open *Position) Summary {
	s := Summary{
		InitialCapital: initial,
		FinalCapital:   final,
		TradesClosed:   len(trades),
		Open:           open,
	}
	if len(trades) == 0 {
		s.NetProfit, s.WinRatio = math.NaN(), math.NaN()
		s.Status = StatusNoTrades
		return s
	}
	for _, t := range trades {
		s.NetProfit += t.Profit
		if t.ReturnPct > 0 {
			s.Wins++
		}
	}
	s.WinRatio = float64(s.Wins) / float64(len(trades))
	s.Status = StatusOK
	return s
}
