package signal

import (
	"math"

	"github.com/evdnx/gomr/indicator"
)

// Input is everything a predicate may look at for one row.
type Input struct {
	Row        indicator.Row
	EntryPrice float64 // zero while awaiting entry
	StopPrice  float64 // NaN while awaiting entry
	Oversold   float64
	Overbought float64
}

// Predicate is a named entry or exit condition.
type Predicate struct {
	Name  string
	Holds func(in Input) bool
}

var (
	GoldenCross = Predicate{"golden_cross", func(in Input) bool {
		return in.Row.FastMA > in.Row.SlowMA
	}}
	PriceAboveFast = Predicate{"price_above_fast", func(in Input) bool {
		return in.Row.Close() > in.Row.FastMA
	}}
	RSIOversold = Predicate{"rsi_oversold", func(in Input) bool {
		return !math.IsNaN(in.Row.RSI) && in.Row.RSI <= in.Oversold
	}}

	DeathCross = Predicate{"death_cross", func(in Input) bool {
		return in.Row.FastMA < in.Row.SlowMA
	}}
	PriceBelowFast = Predicate{"price_below_fast", func(in Input) bool {
		return in.Row.Close() < in.Row.FastMA
	}}
	StopLoss = Predicate{"stop_loss", func(in Input) bool {
		return in.Row.Close() < in.StopPrice
	}}
	RSIOverbought = Predicate{"rsi_overbought", func(in Input) bool {
		return !math.IsNaN(in.Row.RSI) && in.Row.RSI >= in.Overbought
	}}
)

// firstHolding returns the name of the first predicate that holds, or "".
func firstHolding(preds []Predicate, in Input) string {
	for _, p := range preds {
		if p.Holds(in) {
			return p.Name
		}
	}
	return ""
}
