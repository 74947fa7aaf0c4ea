// Package signal turns indicator rows into a per-row trading signal.
package signal

import (
	"errors"
	"fmt"
	"math"

	"github.com/samber/lo"

	"github.com/evdnx/gomr/indicator"
	"github.com/evdnx/gomr/risk"
	"github.com/evdnx/gomr/types"
)

// ErrInvalidSequence is returned by Validate.
var ErrInvalidSequence = errors.New("invalid signal sequence")

// Step pairs a row with the signal emitted for it. StopPrice is the stop
// of the position open on that row, NaN when flat. Reason names the
// predicate that triggered a Bought or Sold.
type Step struct {
	Row       indicator.Row
	Signal    types.Signal
	StopPrice float64
	Reason    string
}

type state struct {
	awaitingEntry bool
	entryPrice    float64
}

func (s state) stopPrice(pct float64) float64 {
	if s.awaitingEntry {
		return math.NaN()
	}
	return risk.StopLossPrice(s.entryPrice, pct)
}

// next evaluates one row and returns the successor state.
func (s state) next(row indicator.Row, rules Rules, stopLossPct float64) (state, Step) {
	in := Input{
		Row:        row,
		EntryPrice: s.entryPrice,
		StopPrice:  s.stopPrice(stopLossPct),
		Oversold:   rules.Oversold,
		Overbought: rules.Overbought,
	}
	if s.awaitingEntry {
		if reason := firstHolding(rules.Entry, in); reason != "" {
			opened := state{awaitingEntry: false, entryPrice: row.Close()}
			return opened, Step{Row: row, Signal: types.Bought, StopPrice: opened.stopPrice(stopLossPct), Reason: reason}
		}
		return s, Step{Row: row, Signal: types.WaitingToBuy, StopPrice: math.NaN()}
	}
	if reason := firstHolding(rules.Exit, in); reason != "" {
		return state{awaitingEntry: true}, Step{Row: row, Signal: types.Sold, StopPrice: in.StopPrice, Reason: reason}
	}
	return s, Step{Row: row, Signal: types.Hold, StopPrice: in.StopPrice}
}

// Generate scans rows left to right and emits exactly one Step per row.
// It starts flat and never looks ahead. rows is not modified.
func Generate(rows []indicator.Row, rules Rules, stopLossPct float64) []Step {
	steps := make([]Step, 0, len(rows))
	st := state{awaitingEntry: true}
	for _, row := range rows {
		var step Step
		st, step = st.next(row, rules, stopLossPct)
		steps = append(steps, step)
	}
	return steps
}

// Validate checks that Bought only happens while flat, and that Hold and
// Sold only happen while a position is open.
func Validate(steps []Step) error {
	open := false
	for i, s := range steps {
		switch s.Signal {
		case types.Bought:
			if open {
				return fmt.Errorf("%w: row %d: Bought while a position is open", ErrInvalidSequence, i)
			}
			open = true
		case types.Hold:
			if !open {
				return fmt.Errorf("%w: row %d: Hold without an open position", ErrInvalidSequence, i)
			}
		case types.Sold:
			if !open {
				return fmt.Errorf("%w: row %d: Sold without an open position", ErrInvalidSequence, i)
			}
			open = false
		case types.WaitingToBuy:
			if open {
				return fmt.Errorf("%w: row %d: Waiting to Buy while a position is open", ErrInvalidSequence, i)
			}
		default:
			return fmt.Errorf("%w: row %d: unknown signal %d", ErrInvalidSequence, i, int(s.Signal))
		}
	}
	return nil
}

// Count returns how many steps carry sig.
func Count(steps []Step, sig types.Signal) int {
	return lo.CountBy(steps, func(s Step) bool { return s.Signal == sig })
}
